package backend

import (
	"encoding/binary"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/beyondbrewing/brewery-docstore/pkg/logger"
	"github.com/cockroachdb/pebble"
)

// Compile-time interface check.
var _ Backend = (*Pebble)(nil)

// Pebble is a durable [Backend] backed by a local Pebble database, for hosts
// that have a real filesystem. It is safe for concurrent use — Pebble
// handles its own internal synchronisation.
//
// Layout: chunk payloads live under "table\x00" + big-endian index, the
// chunk-count record under "table\x01". The two ranges are disjoint and
// sorted, so a wipe is a single range deletion.
type Pebble struct {
	db *pebble.DB

	writeOpts *pebble.WriteOptions
	path      string
	logger    logger.Logger

	// closed + mu guard against use-after-close. Operations take an RLock;
	// Close takes the write lock, draining in-flight operations first.
	closed atomic.Bool
	mu     sync.RWMutex
}

// Open creates or opens a Pebble-backed store at path with the given
// options. The caller must call Close when done to release all resources.
func Open(path string, opts ...Option) (*Pebble, error) {
	cfg := DefaultConfig()
	for _, o := range opts {
		o(cfg)
	}

	log := cfg.Logger
	if log == nil {
		log = logger.Default()
	}
	log = log.With("component", "backend")

	cache := pebble.NewCache(cfg.CacheSize)
	defer cache.Unref()

	pOpts := &pebble.Options{
		Cache:        cache,
		MemTableSize: cfg.MemTableSize,
		MaxOpenFiles: cfg.MaxOpenFiles,
		WALDir:       cfg.WALDir,
	}

	db, err := pebble.Open(path, pOpts)
	if err != nil {
		return nil, fmt.Errorf("backend: failed to open %s: %w", path, err)
	}

	writeOpts := pebble.NoSync
	if cfg.SyncWrites {
		writeOpts = pebble.Sync
	}

	p := &Pebble{
		db:        db,
		writeOpts: writeOpts,
		path:      path,
		logger:    log,
	}

	log.Info("backend opened", "path", path)
	return p, nil
}

// ---------------------------------------------------------------------------
// Backend implementation
// ---------------------------------------------------------------------------

func (p *Pebble) Ensure(table string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}
	if err := checkTable(table); err != nil {
		return err
	}

	_, err := p.readCount(table)
	if errors.Is(err, ErrNotFound) {
		return p.writeCount(table, noChunks)
	}
	return err
}

// Validate always passes for payloads: Pebble values carry arbitrary bytes
// of any length.
func (p *Pebble) Validate(table string, index int, payload string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}
	return checkTable(table)
}

func (p *Pebble) Put(table string, index int, payload string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}
	if err := checkTable(table); err != nil {
		return err
	}

	prev, err := p.readCount(table)
	if err != nil {
		return err
	}
	if index != prev+1 {
		return fmt.Errorf("%w: table %q got %d, want %d", ErrBadIndex, table, index, prev+1)
	}

	// Chunk and count record land atomically, so a crash between the two
	// can never leave the record promising an unwritten chunk.
	batch := p.db.NewBatch()
	defer batch.Close()

	if err := batch.Set(chunkKey(table, index), []byte(payload), nil); err != nil {
		return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
	}
	if err := batch.Set(countKey(table), countValue(index), nil); err != nil {
		return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
	}
	if err := batch.Commit(p.writeOpts); err != nil {
		return fmt.Errorf("backend: put %q chunk %d: %w", table, index, err)
	}
	return nil
}

func (p *Pebble) Scan(table string) ([]string, error) {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return nil, ErrClosed
	}
	if err := checkTable(table); err != nil {
		return nil, err
	}

	n, err := p.readCount(table)
	if err != nil {
		return nil, err
	}
	if n == noChunks {
		return []string{}, nil
	}

	payloads := make([]string, 0, n+1)
	for i := 0; i <= n; i++ {
		val, closer, err := p.db.Get(chunkKey(table, i))
		if err != nil {
			if errors.Is(err, pebble.ErrNotFound) {
				return nil, fmt.Errorf("%w: %q chunk %d missing", ErrCorrupted, table, i)
			}
			return nil, fmt.Errorf("backend: scan %q: %w", table, err)
		}
		payloads = append(payloads, string(val))
		closer.Close()
	}
	return payloads, nil
}

func (p *Pebble) Wipe(table string) error {
	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.closed.Load() {
		return ErrClosed
	}
	if err := checkTable(table); err != nil {
		return err
	}

	if _, err := p.readCount(table); err != nil {
		return err
	}

	batch := p.db.NewBatch()
	defer batch.Close()

	// The count key ("table\x01") sorts immediately after the chunk range,
	// so it doubles as the exclusive upper bound.
	if err := batch.DeleteRange(chunkLowerBound(table), countKey(table), nil); err != nil {
		return fmt.Errorf("backend: wipe %q: %w", table, err)
	}
	if err := batch.Set(countKey(table), countValue(noChunks), nil); err != nil {
		return fmt.Errorf("backend: wipe %q: %w", table, err)
	}
	if err := batch.Commit(p.writeOpts); err != nil {
		return fmt.Errorf("backend: wipe %q: %w", table, err)
	}
	return nil
}

// Close performs a graceful shutdown. It acquires an exclusive lock so all
// in-flight operations complete before teardown.
func (p *Pebble) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed.Load() {
		return ErrClosed
	}
	p.closed.Store(true)

	if err := p.db.Flush(); err != nil {
		p.logger.Error("flush failed during shutdown", "error", err)
	}
	if err := p.db.Close(); err != nil {
		return fmt.Errorf("backend: close failed: %w", err)
	}

	p.logger.Info("backend closed", "path", p.path)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func (p *Pebble) readCount(table string) (int, error) {
	val, closer, err := p.db.Get(countKey(table))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return 0, fmt.Errorf("%w: %q", ErrNotFound, table)
		}
		return 0, fmt.Errorf("backend: read count for %q: %w", table, err)
	}
	defer closer.Close()

	if len(val) != 4 {
		return 0, fmt.Errorf("%w: %q count record is %d bytes", ErrCorrupted, table, len(val))
	}
	return int(int32(binary.BigEndian.Uint32(val))), nil
}

func (p *Pebble) writeCount(table string, n int) error {
	if err := p.db.Set(countKey(table), countValue(n), p.writeOpts); err != nil {
		return fmt.Errorf("backend: write count for %q: %w", table, err)
	}
	return nil
}

// checkTable rejects names containing the reserved separator bytes: a name
// like "t\x00x" would place its keys inside table "t"'s chunk range, where
// a wipe of "t" deletes them.
func checkTable(table string) error {
	if table == "" {
		return fmt.Errorf("%w: empty name", ErrInvalidTable)
	}
	if strings.ContainsAny(table, "\x00\x01") {
		return fmt.Errorf("%w: %q contains reserved bytes", ErrInvalidTable, table)
	}
	return nil
}

// chunkKey builds the storage key for one chunk: "table\x00" + BE index.
func chunkKey(table string, index int) []byte {
	k := make([]byte, len(table)+5)
	copy(k, table)
	k[len(table)] = 0x00
	binary.BigEndian.PutUint32(k[len(table)+1:], uint32(index))
	return k
}

// countKey builds the storage key for the chunk-count record: "table\x01".
func countKey(table string) []byte {
	k := make([]byte, len(table)+1)
	copy(k, table)
	k[len(table)] = 0x01
	return k
}

// countValue encodes the record as a big-endian int32, negative values
// included.
func countValue(n int) []byte {
	v := make([]byte, 4)
	binary.BigEndian.PutUint32(v, uint32(int32(n)))
	return v
}

// chunkLowerBound is the inclusive start of a table's chunk key range.
func chunkLowerBound(table string) []byte {
	k := make([]byte, len(table)+1)
	copy(k, table)
	k[len(table)] = 0x00
	return k
}
