// Package tools provides the tool definitions the assistant exposes to
// Claude and the manager that dispatches tool calls during generation.
package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/anthropics/anthropic-sdk-go"

	"github.com/lectern0/lectern/internal/log"
)

// Source identifies a piece of course material that backed a tool result.
// Link is empty when the material has no lesson or course link.
type Source struct {
	Text string
	Link string
}

// Tool is a single callable tool.
//
// Definition returns the Anthropic tool schema sent with each request.
// Execute runs the tool and returns the text placed in the tool result
// block. Tools that surface course material also report it through
// Sources so answers can be cited.
type Tool interface {
	Name() string
	Definition() anthropic.ToolUnionParam
	Execute(ctx context.Context, input json.RawMessage) (string, error)
	Sources() []Source
	ResetSources()
}

// Manager registers tools and routes execution by name.
// Safe for concurrent use.
type Manager struct {
	mu     sync.Mutex
	tools  map[string]Tool
	order  []string
	logger log.Logger
}

// NewManager creates an empty tool manager.
func NewManager(logger log.Logger) *Manager {
	if logger == nil {
		logger = log.NewNop()
	}

	return &Manager{
		tools:  make(map[string]Tool),
		logger: logger,
	}
}

// Register adds a tool. Registering a name twice replaces the earlier tool.
func (m *Manager) Register(t Tool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	name := t.Name()
	if _, exists := m.tools[name]; !exists {
		m.order = append(m.order, name)
	}
	m.tools[name] = t
}

// Definitions returns the schemas of all registered tools in
// registration order.
func (m *Manager) Definitions() []anthropic.ToolUnionParam {
	m.mu.Lock()
	defer m.mu.Unlock()

	defs := make([]anthropic.ToolUnionParam, 0, len(m.order))
	for _, name := range m.order {
		defs = append(defs, m.tools[name].Definition())
	}

	return defs
}

// Execute dispatches a tool call. An unknown tool name is reported as
// result text rather than an error so the model can recover.
func (m *Manager) Execute(ctx context.Context, name string, input json.RawMessage) (string, error) {
	m.mu.Lock()
	t, ok := m.tools[name]
	m.mu.Unlock()

	if !ok {
		m.logger.Warn("unknown tool requested", "tool", name)

		return fmt.Sprintf("tool '%s' not found", name), nil
	}

	m.logger.Debug("executing tool", "tool", name)

	return t.Execute(ctx, input)
}

// LastSources collects the sources every registered tool accumulated
// since the last reset, in registration order.
func (m *Manager) LastSources() []Source {
	m.mu.Lock()
	defer m.mu.Unlock()

	var sources []Source
	for _, name := range m.order {
		sources = append(sources, m.tools[name].Sources()...)
	}

	return sources
}

// ResetSources clears the accumulated sources of every registered tool.
func (m *Manager) ResetSources() {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, t := range m.tools {
		t.ResetSources()
	}
}
