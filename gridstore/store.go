// Package gridstore persists reporter locators in a Pebble key/value store so
// spots arriving without a usable grid can still be placed on the map when the
// same reporter supplied one earlier.
package gridstore

import (
	"encoding/binary"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/pebble"
	"github.com/cockroachdb/pebble/bloom"
)

const (
	recordVersion = 1
	callPrefix    = "r|"
)

var (
	errStoreClosed   = errors.New("gridstore: store is closed")
	errInvalidRecord = errors.New("gridstore: invalid record encoding")
)

const (
	defaultCacheSizeBytes  = int64(8 << 20)
	defaultBloomFilterBits = 10
	defaultTTL             = 30 * 24 * time.Hour
)

// Options controls Pebble tuning and record expiry.
// Zero/negative fields are replaced with defaults.
type Options struct {
	CacheSizeBytes        int64
	BloomFilterBitsPerKey int
	TTL                   time.Duration
}

// Record is one cached reporter entry.
type Record struct {
	Call     string
	Grid     string
	LastSeen time.Time
}

// Store manages the Pebble database holding reporter locators.
type Store struct {
	db    *pebble.DB
	cache *pebble.Cache // owned cache for the DB; unref'd on Close
	ttl   time.Duration

	mu     sync.Mutex
	closed bool
}

func sanitizeOptions(opts Options) Options {
	if opts.CacheSizeBytes <= 0 {
		opts.CacheSizeBytes = defaultCacheSizeBytes
	}
	if opts.BloomFilterBitsPerKey <= 0 {
		opts.BloomFilterBitsPerKey = defaultBloomFilterBits
	}
	if opts.TTL <= 0 {
		opts.TTL = defaultTTL
	}
	return opts
}

// Open opens or creates the locator cache at path.
func Open(path string, opts Options) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("gridstore: database path is empty")
	}
	opts = sanitizeOptions(opts)

	if info, err := os.Stat(path); err == nil {
		if !info.IsDir() {
			return nil, fmt.Errorf("gridstore: %s exists and is not a directory", path)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("gridstore: stat path: %w", err)
	}
	if err := os.MkdirAll(path, 0o755); err != nil {
		return nil, fmt.Errorf("gridstore: ensure directory: %w", err)
	}

	pebbleOpts := &pebble.Options{
		Cache: pebble.NewCache(opts.CacheSizeBytes),
	}
	filter := bloom.FilterPolicy(opts.BloomFilterBitsPerKey)
	level := pebble.LevelOptions{
		FilterPolicy: filter,
		FilterType:   pebble.TableFilter,
	}
	// Apply the same table filter policy to all default levels (Pebble defaults to 7).
	pebbleOpts.Levels = make([]pebble.LevelOptions, 7)
	for i := range pebbleOpts.Levels {
		pebbleOpts.Levels[i] = level
	}

	db, err := pebble.Open(path, pebbleOpts)
	if err != nil {
		pebbleOpts.Cache.Unref()
		return nil, fmt.Errorf("gridstore: open: %w", err)
	}
	return &Store{db: db, cache: pebbleOpts.Cache, ttl: opts.TTL}, nil
}

func callKey(call string) []byte {
	return []byte(callPrefix + strings.ToUpper(strings.TrimSpace(call)))
}

func encodeRecord(grid string, seen time.Time) []byte {
	buf := make([]byte, 9+len(grid))
	buf[0] = recordVersion
	binary.LittleEndian.PutUint64(buf[1:9], uint64(seen.Unix()))
	copy(buf[9:], grid)
	return buf
}

func decodeRecord(val []byte) (grid string, seen time.Time, err error) {
	if len(val) < 9 || val[0] != recordVersion {
		return "", time.Time{}, errInvalidRecord
	}
	seen = time.Unix(int64(binary.LittleEndian.Uint64(val[1:9])), 0).UTC()
	grid = string(val[9:])
	return grid, seen, nil
}

// Upsert stores or refreshes the locator for a reporter. Empty calls and
// empty grids are ignored.
func (s *Store) Upsert(call, grid string, seen time.Time) error {
	call = strings.ToUpper(strings.TrimSpace(call))
	grid = strings.ToUpper(strings.TrimSpace(grid))
	if call == "" || grid == "" {
		return nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return errStoreClosed
	}
	if err := s.db.Set(callKey(call), encodeRecord(grid, seen), pebble.NoSync); err != nil {
		return fmt.Errorf("gridstore: upsert %s: %w", call, err)
	}
	return nil
}

// Lookup returns the cached locator for a reporter, if present and not
// expired.
func (s *Store) Lookup(call string) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", false
	}
	val, closer, err := s.db.Get(callKey(call))
	if err != nil {
		return "", false
	}
	grid, seen, err := decodeRecord(val)
	_ = closer.Close()
	if err != nil {
		return "", false
	}
	if s.ttl > 0 && time.Since(seen) > s.ttl {
		return "", false
	}
	return grid, true
}

// Entries returns all cached records, expired ones included. Used by purge
// and diagnostics.
func (s *Store) Entries() ([]Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil, errStoreClosed
	}
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(callPrefix),
		UpperBound: []byte(callPrefix + "\xff"),
	})
	if err != nil {
		return nil, fmt.Errorf("gridstore: entries iterator: %w", err)
	}
	defer iter.Close()

	var list []Record
	for iter.First(); iter.Valid(); iter.Next() {
		key := iter.Key()
		if len(key) <= len(callPrefix) {
			continue
		}
		grid, seen, err := decodeRecord(iter.Value())
		if err != nil {
			continue
		}
		list = append(list, Record{
			Call:     string(key[len(callPrefix):]),
			Grid:     grid,
			LastSeen: seen,
		})
	}
	if err := iter.Error(); err != nil {
		return nil, fmt.Errorf("gridstore: iterate entries: %w", err)
	}
	return list, nil
}

// PurgeExpired removes records older than the TTL and returns how many were
// deleted.
func (s *Store) PurgeExpired(now time.Time) (int, error) {
	entries, err := s.Entries()
	if err != nil {
		return 0, err
	}
	cutoff := now.Add(-s.ttl)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, errStoreClosed
	}
	batch := s.db.NewBatch()
	removed := 0
	for _, rec := range entries {
		if rec.LastSeen.After(cutoff) {
			continue
		}
		if err := batch.Delete(callKey(rec.Call), nil); err != nil {
			_ = batch.Close()
			return removed, fmt.Errorf("gridstore: purge delete: %w", err)
		}
		removed++
	}
	if removed == 0 {
		_ = batch.Close()
		return 0, nil
	}
	if err := s.db.Apply(batch, pebble.Sync); err != nil {
		_ = batch.Close()
		return 0, fmt.Errorf("gridstore: purge apply: %w", err)
	}
	_ = batch.Close()
	return removed, nil
}

// Close flushes and closes the database. Safe to call more than once.
func (s *Store) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	err := s.db.Close()
	if s.cache != nil {
		s.cache.Unref()
		s.cache = nil
	}
	if err != nil {
		return fmt.Errorf("gridstore: close: %w", err)
	}
	return nil
}
