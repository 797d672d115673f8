package course

import (
	"regexp"
	"strings"
)

// sentenceEnd matches a sentence boundary: terminal punctuation followed by
// whitespace. Common abbreviations ("e.g.", "Dr.") are protected by requiring
// the character before the terminator not to be part of a single-letter
// abbreviation chain.
var sentenceEnd = regexp.MustCompile(`(?:[.!?])\s+`)

// abbreviation matches a trailing token that ends with a period but is too
// short to be a real sentence end ("e.g.", "i.e.", "Dr.", "vs.").
var abbreviation = regexp.MustCompile(`(?:^|\s)(?:[A-Za-z]\.)+$|(?:^|\s)[A-Za-z]{1,3}\.$`)

// Chunker splits normalized text into overlapping chunks on sentence
// boundaries. Size is the maximum chunk length in characters; Overlap is the
// budget, in characters, of trailing sentences carried into the next chunk.
type Chunker struct {
	Size    int
	Overlap int
}

// NewChunker creates a Chunker. Non-positive size falls back to 800,
// negative overlap to 0; overlap is clamped below size.
func NewChunker(size, overlap int) *Chunker {
	if size <= 0 {
		size = 800
	}
	if overlap < 0 {
		overlap = 0
	}
	if overlap >= size {
		overlap = size / 2
	}
	return &Chunker{Size: size, Overlap: overlap}
}

// Split breaks text into chunks of at most c.Size characters, packing whole
// sentences and carrying up to c.Overlap characters of trailing sentences
// into the next chunk. A single sentence longer than c.Size becomes its own
// oversized chunk rather than being cut mid-word.
func (c *Chunker) Split(text string) []string {
	sentences := splitSentences(text)
	if len(sentences) == 0 {
		return nil
	}

	var chunks []string
	i := 0
	for i < len(sentences) {
		var (
			parts  []string
			length int
			j      = i
		)
		for j < len(sentences) {
			s := sentences[j]
			add := len(s)
			if len(parts) > 0 {
				add++ // joining space
			}
			if length+add > c.Size && len(parts) > 0 {
				break
			}
			parts = append(parts, s)
			length += add
			j++
		}
		chunks = append(chunks, strings.Join(parts, " "))

		if j >= len(sentences) {
			break
		}

		// Walk back over trailing sentences that fit the overlap budget.
		next := j
		budget := 0
		for k := j - 1; k > i; k-- {
			budget += len(sentences[k]) + 1
			if budget > c.Overlap {
				break
			}
			next = k
		}
		// Guarantee forward progress even when overlap swallows the chunk.
		if next <= i {
			next = i + 1
		}
		i = next
	}

	return chunks
}

// splitSentences splits text into sentences, merging fragments created by
// abbreviation periods back into their successor. Whitespace runs are
// collapsed first so chunk length accounting stays stable.
func splitSentences(text string) []string {
	text = strings.Join(strings.Fields(text), " ")
	if text == "" {
		return nil
	}

	raw := splitAfter(text)

	var sentences []string
	for _, s := range raw {
		s = strings.TrimSpace(s)
		if s == "" {
			continue
		}
		if n := len(sentences); n > 0 && abbreviation.MatchString(sentences[n-1]) {
			sentences[n-1] = sentences[n-1] + " " + s
			continue
		}
		sentences = append(sentences, s)
	}
	return sentences
}

// splitAfter splits text after each sentence terminator, keeping the
// terminator with the preceding sentence.
func splitAfter(text string) []string {
	var out []string
	last := 0
	for _, loc := range sentenceEnd.FindAllStringIndex(text, -1) {
		// loc[0] is the terminator position; keep it, drop the whitespace.
		out = append(out, text[last:loc[0]+1])
		last = loc[1]
	}
	if last < len(text) {
		out = append(out, text[last:])
	}
	return out
}
