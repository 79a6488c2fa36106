package backend

import (
	"fmt"
	"sync"
	"sync/atomic"
)

// Compile-time interface check.
var _ Backend = (*Memory)(nil)

// Memory is a fully functional, thread-safe, in-memory implementation of
// [Backend]. It requires no external dependencies — ideal for unit tests
// that don't need to exercise the counter substrate.
//
//	b := backend.NewMemory()
//	defer b.Close()
type Memory struct {
	mu     sync.RWMutex
	chunks map[string][]string // table -> payloads in index order
	closed atomic.Bool
}

// NewMemory creates an empty Memory backend.
func NewMemory() *Memory {
	return &Memory{chunks: make(map[string][]string)}
}

// ---------------------------------------------------------------------------
// Backend implementation
// ---------------------------------------------------------------------------

func (m *Memory) Ensure(table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	if table == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTable)
	}

	if _, ok := m.chunks[table]; !ok {
		m.chunks[table] = []string{}
	}
	return nil
}

// Validate always passes for payloads: memory imposes no capacity limit.
func (m *Memory) Validate(table string, index int, payload string) error {
	if m.closed.Load() {
		return ErrClosed
	}
	if table == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTable)
	}
	return nil
}

func (m *Memory) Put(table string, index int, payload string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}

	existing, ok := m.chunks[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, table)
	}
	if index != len(existing) {
		return fmt.Errorf("%w: table %q got %d, want %d", ErrBadIndex, table, index, len(existing))
	}
	m.chunks[table] = append(existing, payload)
	return nil
}

func (m *Memory) Scan(table string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return nil, ErrClosed
	}

	payloads, ok := m.chunks[table]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrNotFound, table)
	}

	out := make([]string, len(payloads))
	copy(out, payloads)
	return out, nil
}

func (m *Memory) Wipe(table string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}

	if _, ok := m.chunks[table]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, table)
	}
	m.chunks[table] = []string{}
	return nil
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed.Load() {
		return ErrClosed
	}
	m.closed.Store(true)
	m.chunks = nil
	return nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// Len returns the number of chunks stored for a table. Returns -1 if the
// table does not exist or the backend is closed.
func (m *Memory) Len(table string) int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	if m.closed.Load() {
		return -1
	}
	payloads, ok := m.chunks[table]
	if !ok {
		return -1
	}
	return len(payloads)
}

// Drop removes a table entirely, as if it had never been ensured.
func (m *Memory) Drop(table string) {
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.chunks, table)
}
