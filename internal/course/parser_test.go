package course

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleDocument = `Course Title: AI Fundamentals
Course Link: https://example.com/courses/ai
Course Instructor: Ada Lovelace

Lesson 0: Introduction
Lesson Link: https://example.com/courses/ai/lesson/0
Welcome to the course. This lesson covers the basics of machine learning.

Lesson 1: Neural Networks
Lesson Link: https://example.com/courses/ai/lesson/1
Neural networks are built from layers of neurons. Each layer transforms its input.

Lesson 2: Closing Thoughts
Thanks for joining the course. Keep practicing.
`

func TestParser_ParsesHeader(t *testing.T) {
	t.Parallel()

	p := NewParser(NewChunker(800, 100))
	course, _, err := p.Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	assert.Equal(t, "AI Fundamentals", course.Title)
	assert.Equal(t, "https://example.com/courses/ai", course.Link)
	assert.Equal(t, "Ada Lovelace", course.Instructor)
}

func TestParser_ParsesLessons(t *testing.T) {
	t.Parallel()

	p := NewParser(NewChunker(800, 100))
	course, _, err := p.Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)

	require.Len(t, course.Lessons, 3)

	assert.Equal(t, 0, course.Lessons[0].Number)
	assert.Equal(t, "Introduction", course.Lessons[0].Title)
	assert.Equal(t, "https://example.com/courses/ai/lesson/0", course.Lessons[0].Link)

	assert.Equal(t, 1, course.Lessons[1].Number)
	assert.Equal(t, "Neural Networks", course.Lessons[1].Title)

	// Lesson 2 has no link line.
	assert.Equal(t, 2, course.Lessons[2].Number)
	assert.Empty(t, course.Lessons[2].Link)
}

func TestParser_ChunksCarryMetadata(t *testing.T) {
	t.Parallel()

	p := NewParser(NewChunker(800, 100))
	course, chunks, err := p.Parse(strings.NewReader(sampleDocument))
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	for i, chunk := range chunks {
		assert.Equal(t, course.Title, chunk.CourseTitle)
		assert.Equal(t, i, chunk.Index, "chunk indexes must be sequential")
		require.NotNil(t, chunk.Lesson)
	}

	// First chunk belongs to lesson 0 and carries the context prefix.
	assert.Equal(t, 0, *chunks[0].Lesson)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "Course AI Fundamentals Lesson 0 content: "),
		"got %q", chunks[0].Content)
	assert.Contains(t, chunks[0].Content, "basics of machine learning")
}

func TestParser_MissingTitle(t *testing.T) {
	t.Parallel()

	doc := "Lesson 0: Introduction\nSome content here.\n"
	p := NewParser(nil)

	_, _, err := p.Parse(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrMissingTitle)
}

func TestParser_EmptyDocument(t *testing.T) {
	t.Parallel()

	p := NewParser(nil)

	_, _, err := p.Parse(strings.NewReader(""))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParser_TitleWithNoContent(t *testing.T) {
	t.Parallel()

	doc := "Course Title: Ghost Course\n\nLesson 0: Empty\n   \n"
	p := NewParser(nil)

	_, _, err := p.Parse(strings.NewReader(doc))
	assert.ErrorIs(t, err, ErrEmptyDocument)
}

func TestParser_NoLessonMarkers(t *testing.T) {
	t.Parallel()

	doc := `Course Title: Freeform Notes
Course Instructor: Nobody

This document has no lesson structure at all. It is just prose.
`
	p := NewParser(NewChunker(800, 100))
	course, chunks, err := p.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Empty(t, course.Lessons)
	require.NotEmpty(t, chunks)
	assert.Nil(t, chunks[0].Lesson)
	assert.True(t, strings.HasPrefix(chunks[0].Content, "Course Freeform Notes content: "),
		"got %q", chunks[0].Content)
}

func TestParser_CRLFInput(t *testing.T) {
	t.Parallel()

	doc := strings.ReplaceAll(sampleDocument, "\n", "\r\n")
	p := NewParser(NewChunker(800, 100))

	course, chunks, err := p.Parse(strings.NewReader(doc))
	require.NoError(t, err)
	assert.Equal(t, "AI Fundamentals", course.Title)
	assert.NotEmpty(t, chunks)
	for _, chunk := range chunks {
		assert.NotContains(t, chunk.Content, "\r")
	}
}

func TestParser_HeaderFieldsInAnyOrder(t *testing.T) {
	t.Parallel()

	doc := `Course Instructor: Grace Hopper
Course Title: Compilers

Lesson 1: Parsing
Parsing turns text into trees. It is the first stage.
`
	p := NewParser(NewChunker(800, 100))
	course, _, err := p.Parse(strings.NewReader(doc))
	require.NoError(t, err)

	assert.Equal(t, "Compilers", course.Title)
	assert.Equal(t, "Grace Hopper", course.Instructor)
	assert.Empty(t, course.Link)
}

func TestParser_LongLessonSplitsIntoMultipleChunks(t *testing.T) {
	t.Parallel()

	var sb strings.Builder
	sb.WriteString("Course Title: Long Course\n\nLesson 1: Marathon\n")
	for range 60 {
		sb.WriteString("This sentence pads the lesson with enough text to force splitting. ")
	}
	sb.WriteString("\n")

	p := NewParser(NewChunker(200, 50))
	_, chunks, err := p.Parse(strings.NewReader(sb.String()))
	require.NoError(t, err)

	assert.Greater(t, len(chunks), 1)
	for _, chunk := range chunks {
		require.NotNil(t, chunk.Lesson)
		assert.Equal(t, 1, *chunk.Lesson)
	}
}

func TestFindLesson(t *testing.T) {
	t.Parallel()

	c := &Course{Lessons: []Lesson{{Number: 0, Title: "Intro"}, {Number: 3, Title: "Jump"}}}

	l, ok := c.FindLesson(3)
	require.True(t, ok)
	assert.Equal(t, "Jump", l.Title)

	_, ok = c.FindLesson(7)
	assert.False(t, ok)
}
