package counter

import (
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Compile-time interface check.
var _ System = (*Sim)(nil)

// Sim is a fully functional, thread-safe, in-memory implementation of
// [System]. It mimics the host substrate including the entry-name length
// limit and the list-everything read model — ideal for unit and integration
// tests.
//
//	sys := counter.NewSim()
//	backend := backend.NewCounter(sys)
type Sim struct {
	mu     sync.RWMutex
	tables map[string]map[string]int // table -> entry name -> value
}

// NewSim creates an empty simulated counter system.
func NewSim() *Sim {
	return &Sim{tables: make(map[string]map[string]int)}
}

func (s *Sim) CreateTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; ok {
		return fmt.Errorf("%w: %q", ErrTableExists, name)
	}
	s.tables[name] = make(map[string]int)
	return nil
}

func (s *Sim) DropTable(name string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.tables[name]; !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, name)
	}
	delete(s.tables, name)
	return nil
}

func (s *Sim) SetCounter(table, entry string, value int) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	t, ok := s.tables[table]
	if !ok {
		return fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	if len(entry) > MaxNameLen {
		return fmt.Errorf("%w: %d bytes", ErrNameTooLong, len(entry))
	}
	t[entry] = value
	return nil
}

// ListAll renders one line per entry in the form "table: entry = value",
// sorted by table then entry for determinism.
func (s *Sim) ListAll() (string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)

	var b strings.Builder
	for _, name := range names {
		entries := make([]string, 0, len(s.tables[name]))
		for e := range s.tables[name] {
			entries = append(entries, e)
		}
		sort.Strings(entries)
		for _, e := range entries {
			fmt.Fprintf(&b, "%s: %s = %d\n", name, e, s.tables[name][e])
		}
	}
	return b.String(), nil
}

func (s *Sim) TestCounter(table, entry string, min, max int) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	t, ok := s.tables[table]
	if !ok {
		return 0, fmt.Errorf("%w: %q", ErrTableNotFound, table)
	}
	v, ok := t[entry]
	if !ok || v < min || v > max {
		return 0, fmt.Errorf("%w: %s/%s in [%d, %d]", ErrNoMatch, table, entry, min, max)
	}
	return v, nil
}

// ---------------------------------------------------------------------------
// Test helpers
// ---------------------------------------------------------------------------

// HasTable reports whether a table currently exists.
func (s *Sim) HasTable(name string) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()

	_, ok := s.tables[name]
	return ok
}

// Tables returns the sorted names of all current tables.
func (s *Sim) Tables() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()

	names := make([]string, 0, len(s.tables))
	for name := range s.tables {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Reset drops every table without recreating the system.
func (s *Sim) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.tables = make(map[string]map[string]int)
}
