// Package counter defines the interface to the host's named-counter
// subsystem: integer-valued entries grouped into named tables, with a
// bounded entry-name length and a single list-everything read primitive.
//
// This is the only durable storage the host exposes. The [System] interface
// is implemented by the host binding in production and by [Sim] in tests.
package counter

import "errors"

// Sentinel errors returned by System implementations.
var (
	ErrTableNotFound = errors.New("counter: table not found")
	ErrTableExists   = errors.New("counter: table already exists")
	ErrNoMatch       = errors.New("counter: no entry matched")
	ErrNameTooLong   = errors.New("counter: entry name exceeds limit")
)

// MaxNameLen is the hard per-string limit the host imposes on table and
// entry names.
const MaxNameLen = 32767

// System is the raw named-counter substrate.
//
// Note the asymmetry that shapes everything built on top: entries are
// written individually but can only be read back in bulk, as one text blob
// covering every table. There is no single-entry read for names; the only
// targeted read is the bounds query TestCounter, which sees values, not
// names.
type System interface {
	// CreateTable registers a new table. Returns ErrTableExists if a table
	// with that name is already present.
	CreateTable(name string) error

	// DropTable removes a table and every entry in it.
	// Returns ErrTableNotFound if the table does not exist.
	DropTable(name string) error

	// SetCounter creates or updates the named entry inside a table.
	// Returns ErrTableNotFound if the table does not exist and
	// ErrNameTooLong if the entry name exceeds MaxNameLen.
	SetCounter(table, entry string, value int) error

	// ListAll renders every entry across all tables into a single text
	// blob, one entry per line. Callers extract what they need by pattern
	// matching; this is the only way to read entry names back.
	ListAll() (string, error)

	// TestCounter returns the value of the named entry if it exists and
	// lies within [min, max], and ErrNoMatch otherwise.
	TestCounter(table, entry string, min, max int) (int, error)
}
