package store

import (
	"errors"
	"reflect"
	"strings"
	"testing"

	"github.com/beyondbrewing/brewery-docstore/backend"
	"github.com/beyondbrewing/brewery-docstore/counter"
)

func newMemoryStore(t *testing.T, opts ...Option) (*Store, *backend.Memory) {
	t.Helper()
	m := backend.NewMemory()
	t.Cleanup(func() { _ = m.Close() })

	s, err := New(m, "players", opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s, m
}

func TestNewValidation(t *testing.T) {
	m := backend.NewMemory()
	defer m.Close()

	if _, err := New(nil, "t"); err != ErrNilBackend {
		t.Errorf("New(nil, ...) error = %v, want ErrNilBackend", err)
	}
	if _, err := New(m, ""); err != ErrEmptyTable {
		t.Errorf("New with empty table error = %v, want ErrEmptyTable", err)
	}
	if _, err := New(m, "t", WithChunkSize(0)); err == nil {
		t.Error("New with zero chunk size did not error")
	}
}

func TestFreshStoreIsEmpty(t *testing.T) {
	s, _ := newMemoryStore(t)

	doc := s.Load()
	if len(doc) != 0 {
		t.Errorf("fresh store Load = %v, want empty document", doc)
	}
	if keys := s.Keys(); len(keys) != 0 {
		t.Errorf("fresh store Keys = %v, want none", keys)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	// JSON numbers come back as float64, so documents are built that way.
	tests := []struct {
		name string
		doc  Document
	}{
		{"empty", Document{}},
		{"flat", Document{"score": float64(42), "name": "steve"}},
		{"nested", Document{
			"profile": map[string]any{"rank": "gold", "level": float64(3)},
			"tags":    []any{"a", "b"},
			"active":  true,
			"note":    nil,
		}},
		{"unicode", Document{"名前": "スティーブ", "emoji": "🎮"}},
		{"awkward characters", Document{`quo"te`: "back\\slash", "nl": "a\nb"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, _ := newMemoryStore(t)

			if err := s.Save(tt.doc); err != nil {
				t.Fatalf("Save: %v", err)
			}
			got := s.Load()
			if !reflect.DeepEqual(got, tt.doc) {
				t.Errorf("Load = %#v, want %#v", got, tt.doc)
			}
		})
	}
}

func TestSaveNilDocument(t *testing.T) {
	s, _ := newMemoryStore(t)

	if err := s.Save(nil); err != nil {
		t.Fatalf("Save(nil): %v", err)
	}
	if doc := s.Load(); len(doc) != 0 {
		t.Errorf("Load after Save(nil) = %v, want empty document", doc)
	}
}

func TestKeyOperations(t *testing.T) {
	s, _ := newMemoryStore(t)

	if err := s.Set("a", float64(1)); err != nil {
		t.Fatalf("Set: %v", err)
	}

	if v, ok := s.Get("a"); !ok || v != float64(1) {
		t.Errorf("Get(a) = (%v, %v), want (1, true)", v, ok)
	}
	if !s.Has("a") {
		t.Error("Has(a) = false after Set")
	}

	existed, err := s.Delete("a")
	if err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if !existed {
		t.Error("Delete(a) = false, want true")
	}
	if s.Has("a") {
		t.Error("Has(a) = true after Delete")
	}

	existed, err = s.Delete("a")
	if err != nil {
		t.Fatalf("second Delete: %v", err)
	}
	if existed {
		t.Error("second Delete(a) = true, want false")
	}
}

func TestKeysValuesEntries(t *testing.T) {
	s, _ := newMemoryStore(t)
	for k, v := range map[string]any{"c": float64(3), "a": float64(1), "b": float64(2)} {
		if err := s.Set(k, v); err != nil {
			t.Fatal(err)
		}
	}

	if got := s.Keys(); !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Errorf("Keys = %v, want [a b c]", got)
	}
	if got := s.Values(); !reflect.DeepEqual(got, []any{float64(1), float64(2), float64(3)}) {
		t.Errorf("Values = %v, want [1 2 3]", got)
	}

	entries := s.Entries()
	entries["d"] = float64(4)
	if s.Has("d") {
		t.Error("mutating Entries result leaked into the store")
	}
}

func TestClear(t *testing.T) {
	s, _ := newMemoryStore(t)
	if err := s.Set("a", float64(1)); err != nil {
		t.Fatal(err)
	}

	if err := s.Clear(); err != nil {
		t.Fatalf("Clear: %v", err)
	}
	if doc := s.Load(); len(doc) != 0 {
		t.Errorf("Load after Clear = %v, want empty document", doc)
	}
}

func TestChunkBoundary(t *testing.T) {
	// Serialized form is {"k":"<padding>"}: 8 characters of scaffolding.
	tests := []struct {
		name       string
		padding    int
		wantChunks int
	}{
		{"exactly one chunk", DefaultChunkSize - 8, 1},
		{"one character over", DefaultChunkSize - 7, 2},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s, m := newMemoryStore(t)

			doc := Document{"k": strings.Repeat("x", tt.padding)}
			if err := s.Save(doc); err != nil {
				t.Fatalf("Save: %v", err)
			}
			if got := m.Len("players"); got != tt.wantChunks {
				t.Errorf("chunk count = %d, want %d", got, tt.wantChunks)
			}
			if got := s.Load(); !reflect.DeepEqual(got, doc) {
				t.Error("boundary document did not round-trip")
			}
		})
	}
}

func TestMultiChunkRoundTrip(t *testing.T) {
	s, m := newMemoryStore(t, WithChunkSize(7))

	doc := Document{"long": strings.Repeat("ab", 50), "uni": "日本語テキスト"}
	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}
	if m.Len("players") < 2 {
		t.Fatalf("expected multiple chunks, got %d", m.Len("players"))
	}
	if got := s.Load(); !reflect.DeepEqual(got, doc) {
		t.Errorf("Load = %#v, want %#v", got, doc)
	}
}

func TestCorruptionFallsBackToEmpty(t *testing.T) {
	s, m := newMemoryStore(t)
	if err := s.Set("a", float64(1)); err != nil {
		t.Fatal(err)
	}

	// Externally destroy the table's bookkeeping between save and load.
	m.Drop("players")

	doc := s.Load()
	if len(doc) != 0 {
		t.Errorf("Load after external drop = %v, want empty document", doc)
	}
}

func TestCounterBackendEndToEnd(t *testing.T) {
	sys := counter.NewSim()
	b := backend.NewCounter(sys)
	defer b.Close()

	s, err := New(b, "players", WithChunkSize(16))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	doc := Document{
		"steve": map[string]any{"score": float64(42), "rank": "gold"},
		"alex":  map[string]any{"score": float64(17)},
	}
	if err := s.Save(doc); err != nil {
		t.Fatalf("Save: %v", err)
	}

	// A second store bound to the same table sees the persisted document.
	reloaded, err := New(b, "players", WithChunkSize(16))
	if err != nil {
		t.Fatalf("New (reload): %v", err)
	}
	if got := reloaded.Load(); !reflect.DeepEqual(got, doc) {
		t.Errorf("reloaded Load = %#v, want %#v", got, doc)
	}

	// Dropping one chunk table externally degrades the whole document to
	// empty rather than surfacing an error.
	if err := sys.DropTable("DB_players_0"); err != nil {
		t.Fatal(err)
	}
	if got := s.Load(); len(got) != 0 {
		t.Errorf("Load after chunk table drop = %v, want empty document", got)
	}
}

func TestOversizedSaveKeepsPreviousDocument(t *testing.T) {
	sys := counter.NewSim()
	b := backend.NewCounter(sys)
	defer b.Close()

	// Default chunk size: the binary encoding expands each chunk roughly
	// eightfold, so a few-KB document already overflows the substrate's
	// entry-name limit.
	s, err := New(b, "players")
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	small := Document{"a": float64(1)}
	if err := s.Save(small); err != nil {
		t.Fatalf("Save small: %v", err)
	}

	big := Document{"blob": strings.Repeat("x", 5000)}
	if err := s.Save(big); !errors.Is(err, backend.ErrPayloadTooLarge) {
		t.Fatalf("Save oversized error = %v, want ErrPayloadTooLarge", err)
	}

	// The failed save must not have touched the stored document.
	if got := s.Load(); !reflect.DeepEqual(got, small) {
		t.Errorf("Load after failed save = %#v, want the previous document", got)
	}

	// A smaller chunk size makes the same document storable.
	s2, err := New(b, "players", WithChunkSize(512))
	if err != nil {
		t.Fatal(err)
	}
	if err := s2.Save(big); err != nil {
		t.Fatalf("Save with small chunks: %v", err)
	}
	if got := s2.Load(); !reflect.DeepEqual(got, big) {
		t.Error("oversized document did not round-trip with smaller chunks")
	}
}

func TestWipeCompleteness(t *testing.T) {
	sys := counter.NewSim()
	b := backend.NewCounter(sys)
	defer b.Close()

	s, err := New(b, "t", WithChunkSize(4))
	if err != nil {
		t.Fatal(err)
	}

	if err := s.Save(Document{"k": strings.Repeat("x", 100)}); err != nil {
		t.Fatalf("Save large: %v", err)
	}
	large := len(sys.Tables())

	if err := s.Save(Document{"k": "y"}); err != nil {
		t.Fatalf("Save small: %v", err)
	}
	small := len(sys.Tables())

	if small >= large {
		t.Fatalf("table count did not shrink: %d -> %d", large, small)
	}
	for _, name := range sys.Tables() {
		if name == "t" {
			continue
		}
		if _, ok := strings.CutPrefix(name, "DB_t_"); !ok {
			t.Errorf("unexpected table %q", name)
		}
	}
	if got := s.Load(); !reflect.DeepEqual(got, Document{"k": "y"}) {
		t.Errorf("Load after rewrite = %#v, want the small document", got)
	}
}

func TestCachedSnapshot(t *testing.T) {
	s, _ := newMemoryStore(t)
	if err := s.Set("a", float64(1)); err != nil {
		t.Fatal(err)
	}

	cached := s.Cached()
	if v, ok := cached["a"]; !ok || v != float64(1) {
		t.Errorf("Cached = %#v, want the last saved document", cached)
	}
}

func TestCachedDecoupledFromCaller(t *testing.T) {
	s, _ := newMemoryStore(t)

	doc := Document{"a": float64(1)}
	if err := s.Save(doc); err != nil {
		t.Fatal(err)
	}

	// Mutating the caller's map after Save must not leak into the
	// snapshot of what was persisted.
	doc["b"] = float64(2)

	cached := s.Cached()
	if _, ok := cached["b"]; ok {
		t.Error("caller mutation after Save leaked into Cached")
	}
	if !reflect.DeepEqual(cached, Document{"a": float64(1)}) {
		t.Errorf("Cached = %#v, want the document as saved", cached)
	}
}
