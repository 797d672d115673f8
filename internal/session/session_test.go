package session

import (
	"fmt"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func TestManager_CreateReturnsUniqueIDs(t *testing.T) {
	t.Parallel()

	m := NewManager(2)

	a := m.Create()
	b := m.Create()

	assert.NotEmpty(t, a)
	assert.NotEmpty(t, b)
	assert.NotEqual(t, a, b)
}

func TestManager_HistoryFormatting(t *testing.T) {
	t.Parallel()

	m := NewManager(2)
	id := m.Create()

	m.AddExchange(id, "What is RAG?", "Retrieval-augmented generation.")

	got := m.History(id)
	assert.Equal(t, "User: What is RAG?\nAssistant: Retrieval-augmented generation.", got)

	m.AddExchange(id, "Why use it?", "It grounds answers in documents.")
	got = m.History(id)
	assert.Equal(t,
		"User: What is RAG?\nAssistant: Retrieval-augmented generation.\n"+
			"User: Why use it?\nAssistant: It grounds answers in documents.",
		got)
}

func TestManager_EvictsOldestBeyondCap(t *testing.T) {
	t.Parallel()

	m := NewManager(2)
	id := m.Create()

	for i := 1; i <= 5; i++ {
		m.AddExchange(id, fmt.Sprintf("q%d", i), fmt.Sprintf("a%d", i))
	}

	require.Equal(t, 2, m.Len(id))
	history := m.History(id)
	assert.NotContains(t, history, "q3")
	assert.Contains(t, history, "q4")
	assert.Contains(t, history, "q5")
}

func TestManager_UnknownSession(t *testing.T) {
	t.Parallel()

	m := NewManager(2)

	assert.Empty(t, m.History("missing"))

	// AddExchange creates the session implicitly.
	m.AddExchange("missing", "q", "a")
	assert.Equal(t, "User: q\nAssistant: a", m.History("missing"))
}

func TestManager_EmptyIDIgnored(t *testing.T) {
	t.Parallel()

	m := NewManager(2)

	m.AddExchange("", "q", "a")
	assert.Empty(t, m.History(""))
}

func TestManager_Clear(t *testing.T) {
	t.Parallel()

	m := NewManager(2)
	id := m.Create()
	m.AddExchange(id, "q", "a")

	m.Clear(id)

	assert.Empty(t, m.History(id))
	assert.Zero(t, m.Len(id))
}

func TestManager_ZeroHistoryDisabled(t *testing.T) {
	t.Parallel()

	m := NewManager(0)
	id := m.Create()
	for i := range 50 {
		m.AddExchange(id, fmt.Sprintf("q%d", i), "a")
	}

	assert.Empty(t, m.History(id))
	assert.Zero(t, m.Len(id))
}

func TestManager_ConcurrentAccess(t *testing.T) {
	t.Parallel()

	m := NewManager(10)
	id := m.Create()

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.AddExchange(id, fmt.Sprintf("q%d", i), "a")
			_ = m.History(id)
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, m.Len(id))
	assert.True(t, strings.Contains(m.History(id), "Assistant: a"))
}
