package backend

import (
	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
)

// Config holds tunable parameters for backend construction. Use functional
// [Option] values with [Open] or [NewCounter] rather than constructing a
// Config directly.
type Config struct {
	// CacheSize is the Pebble block-cache capacity in bytes.
	CacheSize int64

	// MemTableSize is the size of a single Pebble memtable in bytes.
	// Document rewrites are small bursty writes, so the default is modest.
	MemTableSize uint64

	// MaxOpenFiles limits the number of file descriptors Pebble keeps
	// open. Use 0 for unlimited.
	MaxOpenFiles int

	// WALDir overrides the write-ahead log directory. Leave empty to
	// co-locate WAL files with the database.
	WALDir string

	// SyncWrites forces an fsync per write. Slower, but a document save
	// survives a crash immediately after Put returns.
	SyncWrites bool

	// Logger receives structured operational log messages.
	// If not set, the global logger.Default() is used.
	Logger logger.Logger
}

// DefaultConfig returns a Config with defaults tuned for a document-store
// workload: whole documents rewritten occasionally, read back rarely.
func DefaultConfig() *Config {
	return &Config{
		CacheSize:    32 << 20, // 32 MB
		MemTableSize: 16 << 20, // 16 MB
		MaxOpenFiles: 0,        // unlimited
		SyncWrites:   true,
	}
}

// Option is a functional option applied to [Config] during construction.
type Option func(*Config)

// WithCacheSize sets the Pebble block-cache capacity in bytes.
func WithCacheSize(size int64) Option {
	return func(c *Config) { c.CacheSize = size }
}

// WithMemTableSize sets the Pebble memtable size in bytes.
func WithMemTableSize(size uint64) Option {
	return func(c *Config) { c.MemTableSize = size }
}

// WithMaxOpenFiles limits the number of open file descriptors.
// Use 0 for unlimited.
func WithMaxOpenFiles(n int) Option {
	return func(c *Config) { c.MaxOpenFiles = n }
}

// WithWALDir sets a separate directory for write-ahead log files.
func WithWALDir(dir string) Option {
	return func(c *Config) { c.WALDir = dir }
}

// WithSyncWrites controls per-write durability (fsync).
func WithSyncWrites(sync bool) Option {
	return func(c *Config) { c.SyncWrites = sync }
}

// WithLogger sets a custom logger for the backend.
// If not set, the global logger.Default() is used.
func WithLogger(l logger.Logger) Option {
	return func(c *Config) { c.Logger = l }
}
