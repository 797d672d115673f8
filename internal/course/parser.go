package course

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strconv"
	"strings"
)

// Header field prefixes recognized at the top of a course document.
const (
	prefixTitle      = "Course Title:"
	prefixLink       = "Course Link:"
	prefixInstructor = "Course Instructor:"
	prefixLessonLink = "Lesson Link:"
)

// ErrEmptyDocument indicates the document contained no usable content.
var ErrEmptyDocument = errors.New("empty course document")

// ErrMissingTitle indicates the document header lacked a course title.
var ErrMissingTitle = errors.New("missing course title")

// lessonMarker matches a lesson heading like "Lesson 4: Tool Calling".
var lessonMarker = regexp.MustCompile(`^Lesson\s+(\d+):\s*(.*)$`)

// Parser turns a raw course transcript into a Course plus its chunks.
type Parser struct {
	chunker *Chunker
}

// NewParser creates a Parser that chunks lesson content with the given
// chunker.
func NewParser(chunker *Chunker) *Parser {
	if chunker == nil {
		chunker = NewChunker(0, 0)
	}
	return &Parser{chunker: chunker}
}

// Parse reads a course document and returns the parsed course and its
// chunks. Chunk indexes are sequential across the whole course, and each
// chunk's content carries a course/lesson context prefix.
//
// The header must contain a "Course Title:" line. Lesson sections start at
// "Lesson N:" markers; an optional "Lesson Link:" line directly after a
// marker is captured as the lesson link. Text before the first marker (after
// the header) is treated as course-level content.
func (p *Parser) Parse(r io.Reader) (*Course, []Chunk, error) {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	var lines []string
	for scanner.Scan() {
		lines = append(lines, strings.TrimRight(scanner.Text(), "\r"))
	}
	if err := scanner.Err(); err != nil {
		return nil, nil, fmt.Errorf("reading course document: %w", err)
	}
	if len(lines) == 0 {
		return nil, nil, ErrEmptyDocument
	}

	course, body := parseHeader(lines)
	if course.Title == "" {
		return nil, nil, ErrMissingTitle
	}

	sections := splitSections(body)

	var chunks []Chunk
	index := 0
	for _, sec := range sections {
		text := strings.TrimSpace(strings.Join(sec.content, "\n"))
		if sec.lesson != nil {
			course.Lessons = append(course.Lessons, *sec.lesson)
		}
		if text == "" {
			continue
		}

		var lessonNum *int
		if sec.lesson != nil {
			n := sec.lesson.Number
			lessonNum = &n
		}
		prefix := contextPrefix(course.Title, lessonNum)
		for _, piece := range p.chunker.Split(text) {
			chunks = append(chunks, Chunk{
				Content:     prefix + piece,
				CourseTitle: course.Title,
				Lesson:      lessonNum,
				Index:       index,
			})
			index++
		}
	}

	if len(chunks) == 0 {
		return nil, nil, fmt.Errorf("%w: %q has no lesson content", ErrEmptyDocument, course.Title)
	}

	return course, chunks, nil
}

// parseHeader consumes the course header fields and returns the remaining
// body lines. Header fields may appear in any order but must precede the
// first lesson marker.
func parseHeader(lines []string) (*Course, []string) {
	course := &Course{}

	i := 0
	for ; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		switch {
		case line == "":
			continue
		case strings.HasPrefix(line, prefixTitle):
			course.Title = strings.TrimSpace(strings.TrimPrefix(line, prefixTitle))
			continue
		case strings.HasPrefix(line, prefixLink):
			course.Link = strings.TrimSpace(strings.TrimPrefix(line, prefixLink))
			continue
		case strings.HasPrefix(line, prefixInstructor):
			course.Instructor = strings.TrimSpace(strings.TrimPrefix(line, prefixInstructor))
			continue
		}
		// First non-header, non-blank line ends the header.
		break
	}

	return course, lines[i:]
}

// section is a run of content lines belonging to one lesson (or to the
// course itself when lesson is nil).
type section struct {
	lesson  *Lesson
	content []string
}

// splitSections splits body lines into per-lesson sections on lesson
// markers, capturing lesson links.
func splitSections(body []string) []section {
	var sections []section
	current := section{} // course-level preamble

	flush := func() {
		if current.lesson != nil || len(current.content) > 0 {
			sections = append(sections, current)
		}
	}

	for i := 0; i < len(body); i++ {
		line := body[i]
		m := lessonMarker.FindStringSubmatch(strings.TrimSpace(line))
		if m == nil {
			current.content = append(current.content, line)
			continue
		}

		flush()
		number, _ := strconv.Atoi(m[1])
		lesson := &Lesson{Number: number, Title: strings.TrimSpace(m[2])}
		current = section{lesson: lesson}

		// An optional lesson link sits directly under the marker.
		if i+1 < len(body) {
			next := strings.TrimSpace(body[i+1])
			if strings.HasPrefix(next, prefixLessonLink) {
				lesson.Link = strings.TrimSpace(strings.TrimPrefix(next, prefixLessonLink))
				i++
			}
		}
	}
	flush()

	return sections
}
