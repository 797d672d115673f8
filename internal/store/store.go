// Package store persists course metadata and content chunks in PostgreSQL
// with pgvector, and serves similarity search over them.
//
// Two tables back the store: course_catalog holds one row per course with
// the lesson list and an embedding of the course title (used for fuzzy
// course-name resolution), and course_chunks holds the embedded content
// chunks. Chunk rows always reference an existing catalog title.
//
// Store is safe for concurrent use by multiple goroutines.
package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/pgvector/pgvector-go"
	"golang.org/x/time/rate"

	"github.com/lectern0/lectern/internal/course"
)

// searchTimeout caps vector search queries so a slow embedding call or
// query cannot block a request indefinitely.
const searchTimeout = 10 * time.Second

// defaultEmbedRate throttles embedding calls during ingest. The Gemini
// embedding API enforces per-minute quotas; 2 QPS with a small burst stays
// comfortably under them.
const defaultEmbedRate = rate.Limit(2)

// Store manages courses and chunks with vector search capabilities.
type Store struct {
	queries    Querier
	embedder   Embedder
	limiter    *rate.Limiter
	maxResults int
	logger     *slog.Logger
}

// New creates a Store.
//
// maxResults is the default search result limit (overridable per search via
// WithLimit). A nil logger falls back to slog.Default().
func New(querier Querier, embedder Embedder, maxResults int, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	if maxResults <= 0 {
		maxResults = 5
	}

	return &Store{
		queries:    querier,
		embedder:   embedder,
		limiter:    rate.NewLimiter(defaultEmbedRate, 5),
		maxResults: maxResults,
		logger:     logger,
	}
}

// AddCourse upserts course metadata into the catalog. The course title is
// embedded so later searches can resolve partial names against it.
func (s *Store) AddCourse(ctx context.Context, c *course.Course) error {
	if c == nil || c.Title == "" {
		return errors.New("course title is required")
	}

	embedding, err := s.embed(ctx, c.Title)
	if err != nil {
		return fmt.Errorf("embedding course title %q: %w", c.Title, err)
	}

	lessons, err := json.Marshal(c.Lessons)
	if err != nil {
		return fmt.Errorf("marshaling lessons: %w", err)
	}

	if err := s.queries.UpsertCourse(ctx, CatalogRow{
		Title:      c.Title,
		Link:       c.Link,
		Instructor: c.Instructor,
		Lessons:    lessons,
		Embedding:  embedding,
	}); err != nil {
		return fmt.Errorf("upserting course %q: %w", c.Title, err)
	}

	s.logger.Debug("added course", "title", c.Title, "lessons", len(c.Lessons))
	return nil
}

// AddChunks embeds and inserts content chunks. Embedding calls are rate
// limited; a canceled context aborts the batch.
func (s *Store) AddChunks(ctx context.Context, chunks []course.Chunk) error {
	for _, chunk := range chunks {
		embedding, err := s.embed(ctx, chunk.Content)
		if err != nil {
			return fmt.Errorf("embedding chunk %d of %q: %w", chunk.Index, chunk.CourseTitle, err)
		}

		row := ChunkRow{
			ID:          fmt.Sprintf("%s#%d", chunk.CourseTitle, chunk.Index),
			CourseTitle: chunk.CourseTitle,
			Lesson:      chunk.Lesson,
			ChunkIndex:  chunk.Index,
			Content:     chunk.Content,
			Embedding:   embedding,
		}
		if err := s.queries.InsertChunk(ctx, row); err != nil {
			return fmt.Errorf("inserting chunk %d of %q: %w", chunk.Index, chunk.CourseTitle, err)
		}
	}

	s.logger.Debug("added chunks", "count", len(chunks))
	return nil
}

// Search performs semantic search over content chunks.
//
// Example:
//
//	hits, err := store.Search(ctx, "what is a tool call",
//	    store.WithCourse("MCP"), store.WithLesson(3))
//
// A course filter that matches nothing returns ErrCourseNotFound.
func (s *Store) Search(ctx context.Context, query string, opts ...SearchOption) ([]Hit, error) {
	cfg := &searchConfig{limit: s.maxResults}
	for _, opt := range opts {
		opt(cfg)
	}

	queryCtx, cancel := context.WithTimeout(ctx, searchTimeout)
	defer cancel()

	embedding, err := s.embed(queryCtx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	courseTitle := ""
	if cfg.courseName != "" {
		courseTitle, err = s.ResolveCourse(queryCtx, cfg.courseName)
		if err != nil {
			return nil, err
		}
	}

	rows, err := s.queries.SearchChunks(queryCtx, embedding, courseTitle, cfg.lesson, cfg.limit)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, fmt.Errorf("search query timeout: %w", err)
		}
		return nil, fmt.Errorf("search failed: %w", err)
	}

	hits := make([]Hit, 0, len(rows))
	for _, row := range rows {
		hits = append(hits, Hit{
			Content:     row.Content,
			CourseTitle: row.CourseTitle,
			Lesson:      row.Lesson,
			ChunkIndex:  row.ChunkIndex,
			Similarity:  row.Similarity,
		})
	}
	return hits, nil
}

// ResolveCourse maps a possibly-partial course name to the best-matching
// catalog title using title-embedding similarity. Returns ErrCourseNotFound
// when the catalog is empty.
func (s *Store) ResolveCourse(ctx context.Context, name string) (string, error) {
	embedding, err := s.embed(ctx, name)
	if err != nil {
		return "", fmt.Errorf("embedding course name: %w", err)
	}

	title, similarity, err := s.queries.NearestCourse(ctx, embedding)
	if err != nil {
		if errors.Is(err, ErrCourseNotFound) {
			return "", fmt.Errorf("%w: no course matching %q", ErrCourseNotFound, name)
		}
		return "", fmt.Errorf("resolving course %q: %w", name, err)
	}

	s.logger.Debug("resolved course", "query", name, "title", title, "similarity", similarity)
	return title, nil
}

// Outline returns the stored metadata for the course best matching name,
// including its full lesson list.
func (s *Store) Outline(ctx context.Context, name string) (*course.Course, error) {
	title, err := s.ResolveCourse(ctx, name)
	if err != nil {
		return nil, err
	}

	row, err := s.queries.GetCourse(ctx, title)
	if err != nil {
		return nil, fmt.Errorf("loading course %q: %w", title, err)
	}

	var lessons []course.Lesson
	if len(row.Lessons) > 0 {
		if err := json.Unmarshal(row.Lessons, &lessons); err != nil {
			s.logger.Warn("failed to parse lessons", "course", title, "error", err)
		}
	}

	return &course.Course{
		Title:      row.Title,
		Link:       row.Link,
		Instructor: row.Instructor,
		Lessons:    lessons,
	}, nil
}

// LessonLink returns the link for a lesson of the given (exact) course
// title. An empty string means no link is recorded.
func (s *Store) LessonLink(ctx context.Context, courseTitle string, lesson int) (string, error) {
	row, err := s.queries.GetCourse(ctx, courseTitle)
	if err != nil {
		return "", err
	}

	var lessons []course.Lesson
	if len(row.Lessons) > 0 {
		if err := json.Unmarshal(row.Lessons, &lessons); err != nil {
			return "", fmt.Errorf("parsing lessons for %q: %w", courseTitle, err)
		}
	}
	for _, l := range lessons {
		if l.Number == lesson {
			return l.Link, nil
		}
	}
	return "", nil
}

// CourseLink returns the link recorded for the given (exact) course title.
func (s *Store) CourseLink(ctx context.Context, courseTitle string) (string, error) {
	row, err := s.queries.GetCourse(ctx, courseTitle)
	if err != nil {
		return "", err
	}
	return row.Link, nil
}

// ListCourseTitles returns all catalog titles in lexical order.
func (s *Store) ListCourseTitles(ctx context.Context) ([]string, error) {
	titles, err := s.queries.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("listing courses: %w", err)
	}
	return titles, nil
}

// CountCourses returns the number of courses in the catalog.
func (s *Store) CountCourses(ctx context.Context) (int, error) {
	count, err := s.queries.CountCourses(ctx)
	if err != nil {
		return 0, fmt.Errorf("counting courses: %w", err)
	}
	return int(count), nil
}

// DeleteCourse removes a course and, via cascade, its chunks.
func (s *Store) DeleteCourse(ctx context.Context, title string) error {
	if err := s.queries.DeleteCourse(ctx, title); err != nil {
		return fmt.Errorf("deleting course %q: %w", title, err)
	}
	s.logger.Debug("deleted course", "title", title)
	return nil
}

// Clear removes all courses and chunks.
func (s *Store) Clear(ctx context.Context) error {
	if err := s.queries.TruncateAll(ctx); err != nil {
		return fmt.Errorf("clearing store: %w", err)
	}
	s.logger.Info("cleared course store")
	return nil
}

// embed waits for rate-limiter headroom and produces an embedding vector.
func (s *Store) embed(ctx context.Context, text string) (pgvector.Vector, error) {
	if err := s.limiter.Wait(ctx); err != nil {
		return pgvector.Vector{}, err
	}
	vec, err := s.embedder.Embed(ctx, text)
	if err != nil {
		return pgvector.Vector{}, err
	}
	return pgvector.NewVector(vec), nil
}
