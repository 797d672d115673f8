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

	"github.com/lectern0/lectern/internal/course"
	"github.com/lectern0/lectern/internal/store"
)

// OutlineStore is the slice of the store the outline tool needs.
type OutlineStore interface {
	Outline(ctx context.Context, name string) (*course.Course, error)
}

// OutlineTool returns the full lesson list of a course.
type OutlineTool struct {
	store OutlineStore

	mu      sync.Mutex
	sources []Source
}

// NewOutlineTool creates the course outline tool.
func NewOutlineTool(s OutlineStore) *OutlineTool {
	return &OutlineTool{store: s}
}

// Name implements Tool.
func (t *OutlineTool) Name() string { return "get_course_outline" }

// Definition implements Tool.
func (t *OutlineTool) Definition() anthropic.ToolUnionParam {
	schema := anthropic.ToolInputSchemaParam{
		Type: constant.ValueOf[constant.Object]().Default(),
		Properties: map[string]any{
			"course_name": map[string]any{
				"type":        "string",
				"description": "Course title (partial matches work, e.g. 'MCP', 'Introduction')",
			},
		},
	}
	schema.SetExtraFields(map[string]any{"required": []string{"course_name"}})

	def := anthropic.ToolUnionParamOfTool(schema, t.Name())
	def.OfTool.Description = param.NewOpt(
		"Get the complete outline of a course: its title, link, and every lesson")

	return def
}

type outlineInput struct {
	CourseName string `json:"course_name"`
}

// Execute implements Tool.
func (t *OutlineTool) Execute(ctx context.Context, input json.RawMessage) (string, error) {
	var in outlineInput
	if err := json.Unmarshal(input, &in); err != nil {
		return "", fmt.Errorf("decode outline input: %w", err)
	}
	if strings.TrimSpace(in.CourseName) == "" {
		return "", errors.New("course name is required")
	}

	c, err := t.store.Outline(ctx, in.CourseName)
	if err != nil {
		if errors.Is(err, store.ErrCourseNotFound) {
			return fmt.Sprintf("No course found matching '%s'", in.CourseName), nil
		}

		return "", fmt.Errorf("get course outline: %w", err)
	}

	t.mu.Lock()
	t.sources = append(t.sources, Source{Text: c.Title, Link: c.Link})
	t.mu.Unlock()

	return formatOutline(c), nil
}

func formatOutline(c *course.Course) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Course: %s\n", c.Title)
	if c.Link != "" {
		fmt.Fprintf(&b, "Course Link: %s\n", c.Link)
	}
	if c.Instructor != "" {
		fmt.Fprintf(&b, "Instructor: %s\n", c.Instructor)
	}

	fmt.Fprintf(&b, "Lessons (%d):\n", len(c.Lessons))
	for _, lesson := range c.Lessons {
		fmt.Fprintf(&b, "  %d. %s\n", lesson.Number, lesson.Title)
	}

	return strings.TrimRight(b.String(), "\n")
}

// Sources implements Tool.
func (t *OutlineTool) Sources() []Source {
	t.mu.Lock()
	defer t.mu.Unlock()

	out := make([]Source, len(t.sources))
	copy(out, t.sources)

	return out
}

// ResetSources implements Tool.
func (t *OutlineTool) ResetSources() {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sources = nil
}
