// Package rag wires document processing, retrieval, tools, sessions,
// and answer generation into a single query pipeline.
package rag

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/lectern0/lectern/internal/ai"
	"github.com/lectern0/lectern/internal/course"
	"github.com/lectern0/lectern/internal/log"
	"github.com/lectern0/lectern/internal/session"
	"github.com/lectern0/lectern/internal/tools"
)

// Generator produces an answer for a query, optionally calling tools.
type Generator interface {
	Generate(ctx context.Context, query, history string, exec ai.ToolExecutor) (string, error)
}

// CourseStore is the slice of the store the orchestrator uses for
// indexing and analytics.
type CourseStore interface {
	AddCourse(ctx context.Context, c *course.Course) error
	AddChunks(ctx context.Context, chunks []course.Chunk) error
	DeleteCourse(ctx context.Context, title string) error
	ListCourseTitles(ctx context.Context) ([]string, error)
	CountCourses(ctx context.Context) (int, error)
	Clear(ctx context.Context) error
}

// Analytics summarizes the indexed corpus.
type Analytics struct {
	TotalCourses int
	CourseTitles []string
}

// System is the top-level RAG orchestrator.
type System struct {
	store     CourseStore
	generator Generator
	tools     *tools.Manager
	sessions  *session.Manager
	parser    *course.Parser
	logger    log.Logger
}

// New creates the orchestrator from its already-constructed parts.
func New(store CourseStore, gen Generator, tm *tools.Manager, sessions *session.Manager, parser *course.Parser, logger log.Logger) *System {
	if logger == nil {
		logger = log.NewNop()
	}

	return &System{
		store:     store,
		generator: gen,
		tools:     tm,
		sessions:  sessions,
		parser:    parser,
		logger:    logger,
	}
}

// NewSession starts a fresh conversation and returns its id.
func (s *System) NewSession() string {
	return s.sessions.Create()
}

// Query answers a user question. When sessionID is non-empty the
// exchange is recorded and prior history is provided to the model.
// Sources cover every tool call made while answering this query.
func (s *System) Query(ctx context.Context, query, sessionID string) (string, []tools.Source, error) {
	history := ""
	if sessionID != "" {
		history = s.sessions.History(sessionID)
	}

	prompt := fmt.Sprintf("Answer this question about course materials: %s", query)

	answer, err := s.generator.Generate(ctx, prompt, history, s.tools)
	if err != nil {
		return "", nil, fmt.Errorf("generate answer: %w", err)
	}

	sources := s.tools.LastSources()
	s.tools.ResetSources()

	if sessionID != "" {
		s.sessions.AddExchange(sessionID, query, answer)
	}

	s.logger.Debug("query answered", "session", sessionID, "sources", len(sources))

	return answer, sources, nil
}

// AddCourseDocument parses and indexes a single course document.
// It returns the parsed course and the number of chunks stored.
func (s *System) AddCourseDocument(ctx context.Context, path string) (*course.Course, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, fmt.Errorf("open course document: %w", err)
	}
	defer f.Close()

	c, chunks, err := s.parser.Parse(f)
	if err != nil {
		return nil, 0, fmt.Errorf("parse %s: %w", filepath.Base(path), err)
	}

	// Drop any earlier version of the course so a re-parse that
	// yields fewer chunks leaves no stale rows behind.
	if err := s.store.DeleteCourse(ctx, c.Title); err != nil {
		return nil, 0, fmt.Errorf("replace course %q: %w", c.Title, err)
	}

	if err := s.store.AddCourse(ctx, c); err != nil {
		return nil, 0, fmt.Errorf("index course %q: %w", c.Title, err)
	}
	if err := s.store.AddChunks(ctx, chunks); err != nil {
		return nil, 0, fmt.Errorf("index chunks of %q: %w", c.Title, err)
	}

	s.logger.Info("course indexed", "title", c.Title, "chunks", len(chunks))

	return c, len(chunks), nil
}

// AddCourseFolder indexes every course document in a directory.
// Documents whose course title is already indexed are skipped. When
// clear is true the store is emptied first. It returns the number of
// courses and chunks added.
func (s *System) AddCourseFolder(ctx context.Context, dir string, clear bool) (int, int, error) {
	if clear {
		if err := s.store.Clear(ctx); err != nil {
			return 0, 0, fmt.Errorf("clear store: %w", err)
		}
		s.logger.Info("store cleared")
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return 0, 0, fmt.Errorf("read course folder: %w", err)
	}

	existing, err := s.store.ListCourseTitles(ctx)
	if err != nil {
		return 0, 0, fmt.Errorf("list indexed courses: %w", err)
	}
	indexed := make(map[string]bool, len(existing))
	for _, title := range existing {
		indexed[title] = true
	}

	var courses, chunks int
	for _, entry := range entries {
		if entry.IsDir() || !isCourseDocument(entry.Name()) {
			continue
		}

		path := filepath.Join(dir, entry.Name())

		c, n, err := s.addIfNew(ctx, path, indexed)
		if err != nil {
			s.logger.Warn("skipping document", "file", entry.Name(), "error", err)

			continue
		}
		if c == nil {
			continue
		}

		indexed[c.Title] = true
		courses++
		chunks += n
	}

	return courses, chunks, nil
}

// addIfNew indexes a document unless its course title already exists.
// A nil course with nil error means the document was skipped.
func (s *System) addIfNew(ctx context.Context, path string, indexed map[string]bool) (*course.Course, int, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, 0, err
	}
	defer f.Close()

	c, chunks, err := s.parser.Parse(f)
	if err != nil {
		return nil, 0, err
	}

	if indexed[c.Title] {
		s.logger.Debug("course already indexed", "title", c.Title)

		return nil, 0, nil
	}

	if err := s.store.AddCourse(ctx, c); err != nil {
		return nil, 0, err
	}
	if err := s.store.AddChunks(ctx, chunks); err != nil {
		return nil, 0, err
	}

	s.logger.Info("course indexed", "title", c.Title, "chunks", len(chunks))

	return c, len(chunks), nil
}

// CourseAnalytics reports how many courses are indexed and their
// titles, sorted.
func (s *System) CourseAnalytics(ctx context.Context) (*Analytics, error) {
	count, err := s.store.CountCourses(ctx)
	if err != nil {
		return nil, fmt.Errorf("count courses: %w", err)
	}

	titles, err := s.store.ListCourseTitles(ctx)
	if err != nil {
		return nil, fmt.Errorf("list courses: %w", err)
	}
	sort.Strings(titles)

	return &Analytics{TotalCourses: count, CourseTitles: titles}, nil
}

func isCourseDocument(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".txt", ".md":
		return true
	default:
		return false
	}
}
