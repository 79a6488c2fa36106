package backend

import (
	"errors"
	"fmt"
	"math"
	"strings"
	"sync/atomic"

	"github.com/beyondbrewing/brewery-docstore/counter"
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

// Compile-time interface check.
var _ Backend = (*Counter)(nil)

// ErrUnsafePayload is returned by [Counter.Put] when a payload contains
// characters outside the safe embedding alphabet ('0', '1', space).
var ErrUnsafePayload = errors.New("backend: payload contains characters outside the safe alphabet")

// noChunks is the chunk-count record value meaning "no chunks stored".
// The record always holds the highest valid chunk index, so -1 is the
// natural empty state.
const noChunks = -1

// Counter is a [Backend] built on the host's named-counter substrate, which
// offers no blob storage at all. Data is smuggled through entry *names*:
//
//   - a coordination table named after the store holds one entry (keyed by
//     the table name) whose integer value is the highest chunk index;
//   - each chunk lives in its own table "DB_{table}_{index}" as a single
//     entry named "DB_{table}_{index}({payload})" with value 0.
//
// Because the substrate's only bulk read renders every entry name into one
// text blob, Scan recovers payloads by pattern-matching that blob. Payloads
// are therefore restricted to the alphabet '0', '1' and space, which cannot
// collide with the template's delimiters.
type Counter struct {
	sys    counter.System
	logger logger.Logger
	closed atomic.Bool
}

// NewCounter creates a Counter backend over the given substrate. Only the
// logger option applies; storage-tuning options are for [Open].
func NewCounter(sys counter.System, opts ...Option) *Counter {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}

	return &Counter{
		sys:    sys,
		logger: log.With("component", "backend"),
	}
}

// ---------------------------------------------------------------------------
// Backend implementation
// ---------------------------------------------------------------------------

func (c *Counter) Ensure(table string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := validTable(table); err != nil {
		return err
	}

	if err := c.sys.CreateTable(table); err != nil && !errors.Is(err, counter.ErrTableExists) {
		return fmt.Errorf("backend: ensure %q: %w", table, err)
	}

	// Seed the chunk-count record only when absent, so re-ensuring an
	// existing store never clobbers its data.
	if _, err := c.count(table); errors.Is(err, counter.ErrNoMatch) {
		if err := c.sys.SetCounter(table, table, noChunks); err != nil {
			return fmt.Errorf("backend: ensure %q: %w", table, err)
		}
	} else if err != nil {
		return fmt.Errorf("backend: ensure %q: %w", table, err)
	}
	return nil
}

// Validate checks that the payload stays inside the safe alphabet and that
// the full entry name "DB_{table}_{index}({payload})" fits the substrate's
// hard name-length limit. The binary encoding expands text roughly eightfold,
// so payloads hit the limit long before their raw chunk does.
func (c *Counter) Validate(table string, index int, payload string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := validTable(table); err != nil {
		return err
	}
	if !safePayload(payload) {
		return fmt.Errorf("%w: table %q chunk %d", ErrUnsafePayload, table, index)
	}
	if n := len(chunkTable(table, index)) + len(payload) + 2; n > counter.MaxNameLen {
		return fmt.Errorf("%w: table %q chunk %d entry name is %d bytes, limit %d",
			ErrPayloadTooLarge, table, index, n, counter.MaxNameLen)
	}
	return nil
}

func (c *Counter) Put(table string, index int, payload string) error {
	if err := c.Validate(table, index, payload); err != nil {
		return err
	}

	prev, err := c.count(table)
	switch {
	case errors.Is(err, counter.ErrTableNotFound), errors.Is(err, counter.ErrNoMatch):
		return fmt.Errorf("%w: %q", ErrNotFound, table)
	case err != nil:
		return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
	}
	if index != prev+1 {
		return fmt.Errorf("%w: table %q got %d, want %d", ErrBadIndex, table, index, prev+1)
	}

	name := chunkTable(table, index)
	if err := c.sys.CreateTable(name); err != nil {
		if !errors.Is(err, counter.ErrTableExists) {
			return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
		}
		// Stale leftover from an interrupted rewrite: recreate it clean.
		if err := c.sys.DropTable(name); err != nil {
			return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
		}
		if err := c.sys.CreateTable(name); err != nil {
			return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
		}
	}

	// Record the new high index before writing the entry, mirroring the
	// recovery rule that the record bounds how far Scan will read.
	if err := c.sys.SetCounter(table, table, index); err != nil {
		return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
	}
	if err := c.sys.SetCounter(name, name+"("+payload+")", 0); err != nil {
		return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
	}
	return nil
}

func (c *Counter) Scan(table string) ([]string, error) {
	if c.closed.Load() {
		return nil, ErrClosed
	}
	if err := validTable(table); err != nil {
		return nil, err
	}

	n, err := c.count(table)
	switch {
	case errors.Is(err, counter.ErrTableNotFound), errors.Is(err, counter.ErrNoMatch):
		return nil, fmt.Errorf("%w: %q", ErrNotFound, table)
	case err != nil:
		return nil, fmt.Errorf("backend: scan %q: %w", table, err)
	}
	if n == noChunks {
		return []string{}, nil
	}

	blob, err := c.sys.ListAll()
	if err != nil {
		return nil, fmt.Errorf("backend: scan %q: %w", table, err)
	}

	payloads := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		payload, ok := extractPayload(blob, chunkTable(table, i))
		if !ok {
			return nil, fmt.Errorf("%w: %q chunk %d missing", ErrCorrupted, table, i)
		}
		payloads = append(payloads, payload)
	}
	return payloads, nil
}

func (c *Counter) Wipe(table string) error {
	if c.closed.Load() {
		return ErrClosed
	}
	if err := validTable(table); err != nil {
		return err
	}

	n, err := c.count(table)
	switch {
	case errors.Is(err, counter.ErrTableNotFound), errors.Is(err, counter.ErrNoMatch):
		return fmt.Errorf("%w: %q", ErrNotFound, table)
	case err != nil:
		return fmt.Errorf("backend: wipe %q: %w", table, err)
	}

	for i := 0; i <= n; i++ {
		if err := c.sys.DropTable(chunkTable(table, i)); err != nil && !errors.Is(err, counter.ErrTableNotFound) {
			return fmt.Errorf("backend: wipe %q: %w", table, err)
		}
	}
	if err := c.sys.SetCounter(table, table, noChunks); err != nil {
		return fmt.Errorf("backend: wipe %q: %w", table, err)
	}
	c.logger.Debug("table wiped", "table", table, "chunks", n+1)
	return nil
}

// Close marks the backend closed. The substrate itself is owned by the host
// and is not torn down.
func (c *Counter) Close() error {
	if c.closed.Load() {
		return ErrClosed
	}
	c.closed.Store(true)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

// count reads the chunk-count record via a full-range bounds query, the only
// targeted read the substrate offers.
func (c *Counter) count(table string) (int, error) {
	return c.sys.TestCounter(table, table, math.MinInt32, math.MaxInt32)
}

// chunkTable names the table holding one chunk: "DB_{table}_{index}".
func chunkTable(table string, index int) string {
	return fmt.Sprintf("DB_%s_%d", table, index)
}

// extractPayload pulls a chunk payload out of the list-all blob by locating
// the entry-name template "{prefix}({payload})" and scanning the payload's
// safe alphabet up to the closing delimiter.
func extractPayload(blob, prefix string) (string, bool) {
	start := strings.Index(blob, prefix+"(")
	if start < 0 {
		return "", false
	}
	start += len(prefix) + 1

	end := start
	for end < len(blob) && (blob[end] == '0' || blob[end] == '1' || blob[end] == ' ') {
		end++
	}
	if end >= len(blob) || blob[end] != ')' {
		return "", false
	}
	return blob[start:end], true
}

// safePayload reports whether the payload stays inside the embedding
// alphabet.
func safePayload(p string) bool {
	for i := 0; i < len(p); i++ {
		if p[i] != '0' && p[i] != '1' && p[i] != ' ' {
			return false
		}
	}
	return true
}

// validTable rejects names that would break the entry-name template or the
// list-all line format.
func validTable(table string) error {
	if table == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTable)
	}
	if strings.ContainsAny(table, "() \t\n\r") {
		return fmt.Errorf("%w: %q", ErrInvalidTable, table)
	}
	return nil
}
