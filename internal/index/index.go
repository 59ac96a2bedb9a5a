// Package index provides the in-memory hash table implementation for the
// ignite key-value store. This package embodies the core Bitcask
// architectural principle: keep every key in memory with minimal metadata
// (just the log offset of its latest value) while the actual values live
// on disk in the append-only log.
//
// The index is deliberately unsynchronized. Every caller that touches the
// index — Set, Get, Delete, compaction, and the deletion task's log
// rewrite — does so while holding the engine's single log-lock, so a
// second lock inside Index would only add nesting without adding safety.
package index

import (
	stdErrors "errors"

	"github.com/kvforge/ignite/pkg/errors"
)

// ErrIndexClosed is returned by index operations performed after Close.
var ErrIndexClosed = stdErrors.New("operation failed: cannot access closed index")

// New creates and initializes a new Index instance configured according to
// the provided parameters.
func New(config *Config) (*Index, error) {
	if config == nil || config.DataDir == "" || config.Logger == nil {
		return nil, errors.NewValidationError(
			nil, errors.ErrorCodeInvalidInput, "Index configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	return &Index{
		log:     config.Logger,
		dataDir: config.DataDir,
		offsets: make(map[string]int64, 1024),
	}, nil
}

// Set records the byte offset of key's latest record in the log. The
// caller must hold the log-lock.
func (idx *Index) Set(key string, offset int64) error {
	if idx.closed.Load() {
		return ErrIndexClosed
	}
	idx.offsets[key] = offset
	return nil
}

// Get returns the byte offset of key's latest record, or false if key is
// not present. The caller must hold the log-lock.
func (idx *Index) Get(key string) (int64, bool, error) {
	if idx.closed.Load() {
		return 0, false, ErrIndexClosed
	}
	offset, ok := idx.offsets[key]
	return offset, ok, nil
}

// Delete removes key from the index, reporting whether it was present.
// The caller must hold the log-lock.
func (idx *Index) Delete(key string) (bool, error) {
	if idx.closed.Load() {
		return false, ErrIndexClosed
	}
	_, ok := idx.offsets[key]
	delete(idx.offsets, key)
	return ok, nil
}

// Len returns the number of keys currently tracked by the index.
func (idx *Index) Len() int {
	return len(idx.offsets)
}

// Snapshot returns a copy of the key-to-offset map. Used by compaction to
// iterate keys without holding the index open to concurrent mutation from
// within the same iteration.
func (idx *Index) Snapshot() map[string]int64 {
	snap := make(map[string]int64, len(idx.offsets))
	for k, v := range idx.offsets {
		snap[k] = v
	}
	return snap
}

// Replace atomically swaps the entire offset map, used by compaction and
// deletion to install the offsets computed against a rewritten log. The
// caller must hold the log-lock.
func (idx *Index) Replace(offsets map[string]int64) {
	idx.offsets = offsets
}

// Close gracefully shuts down the Index, releasing the offset map.
func (idx *Index) Close() error {
	if !idx.closed.CompareAndSwap(false, true) {
		return ErrIndexClosed
	}

	idx.log.Infow("closing index")
	clear(idx.offsets)
	idx.offsets = nil

	idx.log.Infow("index closed")
	return nil
}
