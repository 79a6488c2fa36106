// Package store implements a persistent JSON document store on top of a
// chunk backend. Each store owns one table name and persists exactly one
// document under it: every save serializes the whole document, splits it
// into length-bounded chunks, encodes them into the backend's safe alphabet,
// and rewrites the table from scratch.
//
// A Store is deliberately single-writer: it takes no locks, and two actors
// mutating the same table race with last-full-document-write-wins semantics.
// Callers needing multi-writer safety must serialize externally.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/beyondbrewing/brewery-docstore/backend"
	"github.com/beyondbrewing/brewery-docstore/codec"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

// Document is the JSON object persisted under a table name.
type Document = map[string]any

// Sentinel errors for the store package.
var (
	ErrNilBackend = errors.New("store: backend must not be nil")
	ErrEmptyTable = errors.New("store: table name must not be empty")
)

// DefaultChunkSize is the maximum raw character count per chunk, chosen to
// stay under the backing system's hard per-string limit of ~32767. It is a
// property of the backing system, not of the store, hence configurable via
// [WithChunkSize].
const DefaultChunkSize = 32000

// Config holds all settings for a Store instance.
type Config struct {
	// ChunkSize is the maximum raw character count per chunk.
	ChunkSize int

	// Logger is the structured logger. Falls back to logger.Default() if nil.
	Logger logger.Logger
}

// Option is a functional option for configuring a Store.
type Option func(*Config)

// DefaultConfig returns a Config with production defaults.
func DefaultConfig() *Config {
	return &Config{ChunkSize: DefaultChunkSize}
}

func (c *Config) validate() error {
	if c.ChunkSize < 1 {
		return fmt.Errorf("store: chunk size must be positive, got %d", c.ChunkSize)
	}
	return nil
}

// WithChunkSize sets the maximum raw character count per chunk.
func WithChunkSize(n int) Option {
	return func(c *Config) { c.ChunkSize = n }
}

// WithLogger sets a structured logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}

// Store persists one JSON document under a fixed table name.
type Store struct {
	table   string
	backend backend.Backend
	cfg     *Config
	logger  logger.Logger

	// cache is a snapshot of the last successful load or save. It is
	// replaced wholesale, never partially mutated.
	cache Document
}

// New creates a Store bound to the given table, ensures the table's
// bookkeeping exists in the backend, and performs an initial load.
func New(b backend.Backend, table string, opts ...Option) (*Store, error) {
	if b == nil {
		return nil, ErrNilBackend
	}
	if table == "" {
		return nil, ErrEmptyTable
	}

	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "store", "table", table)

	if err := b.Ensure(table); err != nil {
		return nil, fmt.Errorf("store: failed to ensure table %q: %w", table, err)
	}

	s := &Store{
		table:   table,
		backend: b,
		cfg:     cfg,
		logger:  log,
	}
	s.cache = s.Load()
	return s, nil
}

// Table returns the table name the store is bound to.
func (s *Store) Table() string { return s.table }

// ---------------------------------------------------------------------------
// Raw document access
// ---------------------------------------------------------------------------

// Load reads the whole document back from the backend. On any failure —
// missing bookkeeping, undecodable chunk, unparsable JSON — it degrades to
// an empty document instead of propagating, logging the cause at Warn. The
// store trades data-loss visibility for availability; callers that must
// detect corruption have to diff expected against observed keys themselves.
func (s *Store) Load() Document {
	doc, err := s.load()
	if err != nil {
		s.logger.Warn("load failed, falling back to empty document", "error", err)
		doc = Document{}
	}
	s.cache = doc
	return doc
}

func (s *Store) load() (Document, error) {
	payloads, err := s.backend.Scan(s.table)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	for i, p := range payloads {
		piece, err := codec.Decode(p)
		if err != nil {
			return nil, fmt.Errorf("store: chunk %d: %w", i, err)
		}
		b.WriteString(piece)
	}
	text := b.String()
	if text == "" {
		// Fresh table, nothing stored yet.
		return Document{}, nil
	}

	var doc Document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, fmt.Errorf("store: document is not valid JSON: %w", err)
	}
	if doc == nil {
		doc = Document{}
	}
	return doc, nil
}

// Save serializes doc, splits it into chunks of at most the configured size,
// and rewrites the table from scratch: wipe every existing chunk, then write
// the new ones in index order. Every encoded chunk is validated against the
// backend before the wipe, so a document the backend cannot hold fails the
// save while the previous document is still intact. The rewrite itself is
// not atomic for external observers; a concurrent Load may see a partial or
// empty document.
func (s *Store) Save(doc Document) error {
	if doc == nil {
		doc = Document{}
	}

	raw, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("store: failed to serialize document: %w", err)
	}

	chunks := codec.Split(string(raw), s.cfg.ChunkSize)
	if len(chunks) == 0 {
		chunks = []string{"{}"}
	}

	encoded := make([]string, len(chunks))
	for i, chunk := range chunks {
		encoded[i] = codec.Encode(chunk)
		if err := s.backend.Validate(s.table, i, encoded[i]); err != nil {
			return fmt.Errorf("store: document does not fit table %q: %w", s.table, err)
		}
	}

	if err := s.backend.Wipe(s.table); err != nil {
		return fmt.Errorf("store: failed to wipe table %q: %w", s.table, err)
	}
	for i, payload := range encoded {
		if err := s.backend.Put(s.table, i, payload); err != nil {
			return fmt.Errorf("store: failed to write chunk %d of %q: %w", i, s.table, err)
		}
	}

	s.cache = cloneDocument(doc)
	s.logger.Debug("document saved", "bytes", len(raw), "chunks", len(chunks))
	return nil
}

// Cached returns the snapshot taken by the last successful Load or Save,
// without touching the backend.
func (s *Store) Cached() Document { return s.cache }

// ---------------------------------------------------------------------------
// Key-level operations
// ---------------------------------------------------------------------------

// Get returns the value stored under key, reloading the document first.
func (s *Store) Get(key string) (any, bool) {
	v, ok := s.Load()[key]
	return v, ok
}

// Set stores value under key and persists the whole document.
func (s *Store) Set(key string, value any) error {
	doc := s.Load()
	doc[key] = value
	return s.Save(doc)
}

// Has reports whether key is present in the document.
func (s *Store) Has(key string) bool {
	_, ok := s.Load()[key]
	return ok
}

// Delete removes key from the document and persists the result. It reports
// whether the key was present; the save happens either way.
func (s *Store) Delete(key string) (bool, error) {
	doc := s.Load()
	_, ok := doc[key]
	delete(doc, key)
	if err := s.Save(doc); err != nil {
		return false, err
	}
	return ok, nil
}

// Keys returns the document's keys in sorted order.
func (s *Store) Keys() []string {
	doc := s.Load()
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Values returns the document's values, ordered by sorted key.
func (s *Store) Values() []any {
	doc := s.Load()
	keys := make([]string, 0, len(doc))
	for k := range doc {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	values := make([]any, len(keys))
	for i, k := range keys {
		values[i] = doc[k]
	}
	return values
}

// Entries returns a copy of the whole document.
func (s *Store) Entries() Document {
	return cloneDocument(s.Load())
}

// Clear replaces the document with an empty one.
func (s *Store) Clear() error {
	return s.Save(Document{})
}

// cloneDocument returns a shallow copy, decoupling the store's snapshot from
// later caller mutations of the same map.
func cloneDocument(doc Document) Document {
	out := make(Document, len(doc))
	for k, v := range doc {
		out[k] = v
	}
	return out
}
