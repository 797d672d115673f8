package store

import "errors"

// ErrCourseNotFound indicates no course in the catalog matched the query.
var ErrCourseNotFound = errors.New("course not found")

// Hit is a single search result from the chunk index.
type Hit struct {
	Content     string
	CourseTitle string
	Lesson      *int
	ChunkIndex  int
	Similarity  float64
}

// SearchOption configures search behavior using the functional options
// pattern.
type SearchOption func(*searchConfig)

// searchConfig holds internal search configuration.
type searchConfig struct {
	courseName string
	lesson     *int
	limit      int
}

// WithCourse restricts results to the course whose title best matches name.
// The name is resolved against the catalog by embedding similarity, so
// partial titles ("MCP", "Computer Use") work.
func WithCourse(name string) SearchOption {
	return func(c *searchConfig) {
		c.courseName = name
	}
}

// WithLesson restricts results to a single lesson number.
func WithLesson(number int) SearchOption {
	return func(c *searchConfig) {
		n := number
		c.lesson = &n
	}
}

// WithLimit sets the maximum number of results. Non-positive values keep the
// store default.
func WithLimit(n int) SearchOption {
	return func(c *searchConfig) {
		if n > 0 {
			c.limit = n
		}
	}
}
