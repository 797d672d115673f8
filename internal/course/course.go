// Package course defines the course document model and the document
// processor that turns raw course transcripts into overlapping text chunks
// ready for embedding.
//
// A course document is a plain-text file with a short header followed by
// lesson sections:
//
//	Course Title: Building RAG Applications
//	Course Link: https://example.com/courses/rag
//	Course Instructor: Ada Lovelace
//
//	Lesson 0: Introduction
//	Lesson Link: https://example.com/courses/rag/lesson/0
//	Welcome to the course...
//
//	Lesson 1: Vector Stores
//	...
package course

import "fmt"

// Course is a parsed course document. Title is the unique key across the
// whole store; Link and Instructor are optional.
type Course struct {
	Title      string   `json:"title"`
	Link       string   `json:"link,omitempty"`
	Instructor string   `json:"instructor,omitempty"`
	Lessons    []Lesson `json:"lessons"`
}

// Lesson is a single lesson within a course.
type Lesson struct {
	Number int    `json:"number"`
	Title  string `json:"title"`
	Link   string `json:"link,omitempty"`
}

// Chunk is one embeddable span of course text. Chunks are immutable once
// created and owned by the vector store after ingest.
//
// Lesson is nil for course-level content that precedes any lesson marker.
type Chunk struct {
	Content     string
	CourseTitle string
	Lesson      *int
	Index       int
}

// FindLesson returns the lesson with the given number, or false when the
// course has no such lesson.
func (c *Course) FindLesson(number int) (Lesson, bool) {
	for _, l := range c.Lessons {
		if l.Number == number {
			return l, true
		}
	}
	return Lesson{}, false
}

// contextPrefix returns the retrieval context prepended to chunk content
// before embedding, so chunks stay attributable when read in isolation.
func contextPrefix(courseTitle string, lesson *int) string {
	if lesson == nil {
		return fmt.Sprintf("Course %s content: ", courseTitle)
	}
	return fmt.Sprintf("Course %s Lesson %d content: ", courseTitle, *lesson)
}
