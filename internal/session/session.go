// Package session keeps per-session conversation history in memory.
//
// Each session holds the most recent question/answer exchanges, bounded by a
// fixed cap; older exchanges are evicted. History is formatted as plain text
// for inclusion in the generator's system prompt. State lives only for the
// process lifetime.
package session

import (
	"fmt"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// Exchange is one question/answer turn.
type Exchange struct {
	Question string
	Answer   string
}

// Manager tracks conversation history per session id.
// Safe for concurrent use by multiple goroutines.
type Manager struct {
	mu         sync.Mutex
	sessions   map[string][]Exchange
	maxHistory int
}

// NewManager creates a Manager keeping at most maxHistory exchanges per
// session. A non-positive maxHistory disables history entirely: sessions
// exist but History always returns "".
func NewManager(maxHistory int) *Manager {
	return &Manager{
		sessions:   make(map[string][]Exchange),
		maxHistory: maxHistory,
	}
}

// Create registers a new session and returns its id.
func (m *Manager) Create() string {
	id := uuid.NewString()

	m.mu.Lock()
	defer m.mu.Unlock()
	m.sessions[id] = nil
	return id
}

// AddExchange records a completed question/answer turn. Unknown session ids
// are created implicitly. The oldest exchange is evicted once the cap is
// exceeded.
func (m *Manager) AddExchange(id, question, answer string) {
	if id == "" || m.maxHistory <= 0 {
		return
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	exchanges := append(m.sessions[id], Exchange{Question: question, Answer: answer})
	if m.maxHistory > 0 && len(exchanges) > m.maxHistory {
		exchanges = exchanges[len(exchanges)-m.maxHistory:]
	}
	m.sessions[id] = exchanges
}

// History returns the formatted conversation history for a session:
//
//	User: first question
//	Assistant: first answer
//	User: second question
//	Assistant: second answer
//
// Unknown ids and empty sessions return "".
func (m *Manager) History(id string) string {
	if id == "" || m.maxHistory <= 0 {
		return ""
	}

	m.mu.Lock()
	exchanges := m.sessions[id]
	m.mu.Unlock()

	if len(exchanges) == 0 {
		return ""
	}

	parts := make([]string, 0, len(exchanges))
	for _, e := range exchanges {
		parts = append(parts, fmt.Sprintf("User: %s\nAssistant: %s", e.Question, e.Answer))
	}
	return strings.Join(parts, "\n")
}

// Clear removes a session's history but keeps the session id valid.
func (m *Manager) Clear(id string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.sessions[id]; ok {
		m.sessions[id] = nil
	}
}

// Len returns the number of stored exchanges for a session.
func (m *Manager) Len(id string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.sessions[id])
}
