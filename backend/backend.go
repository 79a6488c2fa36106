// Package backend provides the chunk-storage abstraction the document store
// writes through: ordered, indexed text payloads grouped under a table name.
//
// The primary interface is [Backend], satisfied by [Counter] (the host's
// named-counter substrate, the production target), [Pebble] (durable local
// storage), and [Memory] (testing). Create instances with [NewCounter],
// [Open], or [NewMemory] and inject them into a store via constructor
// arguments.
package backend

import (
	"errors"
	"io"
)

// Sentinel errors returned by Backend implementations.
var (
	ErrClosed          = errors.New("backend: backend is closed")
	ErrNotFound        = errors.New("backend: table has no stored document")
	ErrCorrupted       = errors.New("backend: stored chunks are corrupted")
	ErrInvalidTable    = errors.New("backend: invalid table name")
	ErrBadIndex        = errors.New("backend: chunk index out of sequence")
	ErrPayloadTooLarge = errors.New("backend: payload exceeds storage capacity")
)

// Backend stores the ordered chunk payloads of one document per table.
//
// The write protocol is wipe-then-rewrite: a full rewrite calls Wipe once,
// then Put for every chunk in index order starting at 0. Implementations
// record the highest written index durably so Scan knows how far to read
// after a restart. There is no partial update of a single chunk.
type Backend interface {
	// Ensure prepares storage for the named table, creating whatever
	// bookkeeping the implementation needs. Idempotent.
	Ensure(table string) error

	// Validate reports whether the payload could be durably stored for
	// the given table and chunk index, without writing anything. Returns
	// ErrPayloadTooLarge when the payload exceeds the implementation's
	// capacity. Save paths call it for every chunk before the destructive
	// wipe-then-rewrite begins, so an unstorable document fails while the
	// previous one is still intact.
	Validate(table string, index int, payload string) error

	// Put durably writes the payload for the given chunk index and
	// advances the table's recorded chunk count to that index. Chunks
	// must be written in index order; a gap returns ErrBadIndex.
	Put(table string, index int, payload string) error

	// Scan returns every chunk payload for the table in index order.
	// A table with no chunks yields an empty slice. Returns ErrNotFound
	// when the table's bookkeeping is missing entirely, and ErrCorrupted
	// when the recorded count promises chunks that cannot be read back.
	Scan(table string) ([]string, error)

	// Wipe removes every chunk for the table and resets its recorded
	// chunk count, leaving the table ready for a rewrite.
	Wipe(table string) error

	// Close releases all resources. After Close returns, every other
	// method returns ErrClosed.
	io.Closer
}
