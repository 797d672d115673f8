package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"
	"github.com/anthropics/anthropic-sdk-go/packages/param"
	"github.com/anthropics/anthropic-sdk-go/shared/constant"

	"github.com/lectern0/lectern/internal/log"
	"github.com/lectern0/lectern/internal/store"
)

// SearchStore is the slice of the store the search tool needs.
type SearchStore interface {
	Search(ctx context.Context, query string, opts ...store.SearchOption) ([]store.Hit, error)
	LessonLink(ctx context.Context, courseTitle string, lesson int) (string, error)
	CourseLink(ctx context.Context, courseTitle string) (string, error)
}

// SearchTool performs semantic search over course content.
// Results are formatted with course and lesson context headers and
// tracked as sources for citation.
type SearchTool struct {
	store  SearchStore
	logger log.Logger

	mu      sync.Mutex
	sources []Source
}

// NewSearchTool creates the course content search tool.
func NewSearchTool(s SearchStore, logger log.Logger) *SearchTool {
	if logger == nil {
		logger = log.NewNop()
	}

	return &SearchTool{store: s, logger: logger}
}

// Name implements Tool.
func (t *SearchTool) Name() string { return "search_course_content" }

// Definition implements Tool.
func (t *SearchTool) Definition() anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: constant.ValueOf[constant.Object]().Default(),
		Properties: map[string]any{
			"query": map[string]any{
				"type":        "string",
				"description": "What to search for in the course content",
			},
			"course_name": map[string]any{
				"type":        "string",
				"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
			"lesson_number": map[string]any{
				"type":        "integer",
				"description": "Specific lesson number to search within (e.g. 1, 2, 3)",
			},
		},
	}
	schema.SetExtraFields(map[string]any{"required": []string{"query"}})

	def := anthropic.ToolUnionParamOfTool(schema, t.Name())
	def.OfTool.Description = param.NewOpt(
		"Search course materials with smart course name matching and lesson filtering")

	return def
}

type searchInput struct {
	Query        string `json:"query"`
	CourseName   string `json:"course_name"`
	LessonNumber *int   `json:"lesson_number"`
}

// Execute implements Tool. Failures to resolve a course and empty
// result sets are reported as result text so the model can rephrase.
func (t *SearchTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in searchInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode search input: %w", err)
	}
	if strings.TrimSpace(in.Query) == "" {
		return "", errors.New("search query is required")
	}

	var opts []store.SearchOption
	if in.CourseName != "" {
		opts = append(opts, store.WithCourse(in.CourseName))
	}
	if in.LessonNumber != nil {
		opts = append(opts, store.WithLesson(*in.LessonNumber))
	}

	hits, err := t.store.Search(ctx, in.Query, opts...)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", in.CourseName), nil
		}

		return "", fmt.Errorf("search course content: %w", err)
	}

	if len(hits) == 0 {
		return t.emptyMessage(in), nil
	}

	return t.format(ctx, hits), nil
}

func (t *SearchTool) emptyMessage(in searchInput) string {
	var b strings.Builder
	b.WriteString("No relevant content found")
	if in.CourseName != "" {
		fmt.Fprintf(&b, " in course '%s'", in.CourseName)
	}
	if in.LessonNumber != nil {
		fmt.Fprintf(&b, " in lesson %d", *in.LessonNumber)
	}
	b.WriteString(".")

	return b.String()
}

func (t *SearchTool) format(ctx context.Context, hits []store.Hit) string {
	blocks := make([]string, 0, len(hits))

	t.mu.Lock()
	defer t.mu.Unlock()

	for _, hit := range hits {
		header := hit.CourseTitle
		if hit.Lesson != nil {
			header = fmt.Sprintf("%s - Lesson %d", hit.CourseTitle, *hit.Lesson)
		}
		blocks = append(blocks, fmt.Sprintf("[%s]\n%s", header, hit.Content))

		t.sources = append(t.sources, Source{
			Text: header,
			Link: t.link(ctx, hit),
		})
	}

	return strings.Join(blocks, "\n\n")
}

// link resolves the most specific link available for a hit.
// Link lookups are best effort, a missing link never fails the search.
func (t *SearchTool) link(ctx context.Context, hit store.Hit) string {
	if hit.Lesson != nil {
		link, err := t.store.LessonLink(ctx, hit.CourseTitle, *hit.Lesson)
		if err == nil && link != "" {
			return link
		}
		if err != nil {
			t.logger.Debug("lesson link lookup failed",
				"course", hit.CourseTitle, "lesson", *hit.Lesson, "error", err)
		}
	}

	link, err := t.store.CourseLink(ctx, hit.CourseTitle)
	if err != nil {
		t.logger.Debug("course link lookup failed", "course", hit.CourseTitle, "error", err)

		return ""
	}

	return link
}

// Sources implements Tool.
func (t *SearchTool) Sources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Source, len(t.sources))
	copy(out, t.sources)

	return out
}

// ResetSources implements Tool.
func (t *SearchTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sources = nil
}
