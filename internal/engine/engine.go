// Package engine provides the core database engine implementation for the
// Ignite storage system.
//
// The engine serves as the central coordinator and entry point for all
// database operations. It orchestrates the interaction between four
// subsystems:
//   - Index: an in-memory map from key to the byte offset of its latest record.
//   - Logstore: the append-only log file and the tombstone file on disk.
//   - Compaction: a background task that rewrites the log to drop superseded records.
//   - Deletion: a background task that rewrites the log to drop tombstoned records.
//
// A single mutex — the log-lock — guards every operation that touches the
// log file or the index: Set, Get, Delete's index removal, and both
// background tasks' rewrite passes. A second, independent mutex
// guards only the tombstone file. The two locks are never held at once;
// Delete acquires and releases the tombstone-lock before acquiring the
// log-lock. This mirrors the engine's fixed, two-lock concurrency model
// rather than a lock-per-subsystem design.
package engine

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"

	"github.com/kvforge/ignite/internal/compaction"
	"github.com/kvforge/ignite/internal/deletion"
	"github.com/kvforge/ignite/internal/index"
	"github.com/kvforge/ignite/internal/logstore"
	ierrors "github.com/kvforge/ignite/pkg/errors"
	"github.com/kvforge/ignite/pkg/options"
	"go.uber.org/multierr"
	"go.uber.org/zap"
)

var (
	// ErrEngineClosed is returned when attempting to perform operations on a closed engine.
	ErrEngineClosed = errors.New("operation failed: cannot access closed engine")

	// ErrNotFound is returned by Get when the requested key has no entry in
	// the index. Delete never returns it.
	ErrNotFound = errors.New("key not found")

	// ErrInvalidKey is returned when a key violates the record format
	// constraints (empty, or containing the field separator or line
	// terminator bytes).
	ErrInvalidKey = logstore.ErrInvalidKey
)

// Engine represents the main database engine that coordinates all
// subsystems. It is safe for concurrent use by multiple goroutines.
type Engine struct {
	options *options.Options   // All configuration parameters for the engine and its subsystems.
	log     *zap.SugaredLogger // Structured logging throughout the engine.
	closed  atomic.Bool        // Tracks the engine's lifecycle state.

	logMu         sync.Mutex // Guards the log file and the index together.
	tombstoneMu   sync.Mutex // Guards the tombstone file alone.
	index         *index.Index
	store         *logstore.Store
	compaction    *compaction.Compaction
	deletion      *deletion.Deletion
	backgroundCtx context.Context
	cancelBg      context.CancelFunc
}

// Config holds all the parameters needed to initialize a new Engine instance.
type Config struct {
	Options *options.Options
	Logger  *zap.SugaredLogger
}

// New creates and initializes a new Engine instance with the provided
// configuration, recovers the index from the on-disk log, and starts the
// compaction and deletion background tasks.
func New(ctx context.Context, config *Config) (*Engine, error) {
	if config == nil || config.Options == nil || config.Logger == nil {
		return nil, ierrors.NewValidationError(
			nil, ierrors.ErrorCodeInvalidInput, "engine configuration is required",
		).WithField("config").WithRule("required").WithProvided(config)
	}

	opts := config.Options

	idx, err := index.New(&index.Config{DataDir: opts.DataDir, Logger: config.Logger})
	if err != nil {
		return nil, err
	}

	store, err := logstore.Open(&logstore.Config{
		DataDir:           opts.DataDir,
		LogFileName:       opts.LogFileName,
		TombstoneFileName: opts.TombstoneFileName,
		MaxLineLength:     opts.MaxLineLength,
		MaxTombstoneBatch: opts.MaxTombstoneBatch,
		Logger:            config.Logger,
	})
	if err != nil {
		return nil, err
	}

	e := &Engine{
		options: opts,
		log:     config.Logger,
		index:   idx,
		store:   store,
	}

	if err := e.recover(); err != nil {
		store.Close()
		idx.Close()
		return nil, err
	}

	e.compaction = compaction.New(&compaction.Config{
		Store:    store,
		Index:    idx,
		LogLock:  &e.logMu,
		Interval: opts.CompactInterval,
		Logger:   config.Logger,
	})
	e.deletion = deletion.New(&deletion.Config{
		Store:         store,
		Index:         idx,
		LogLock:       &e.logMu,
		TombstoneLock: &e.tombstoneMu,
		Interval:      opts.DeleteInterval,
		Logger:        config.Logger,
	})

	e.backgroundCtx, e.cancelBg = context.WithCancel(context.Background())
	e.compaction.Start(e.backgroundCtx)
	e.deletion.Start(e.backgroundCtx)

	e.log.Infow("engine started", "dataDir", opts.DataDir)
	return e, nil
}

// recover scans the log file from the beginning and rebuilds the index,
// keeping the last offset seen for each key so a later write always
// overrides an earlier one. Tombstones recorded in the tombstone file are
// deliberately not replayed here: a key queued for deletion before a
// restart still resolves to its last written value until the deletion
// task next drains the tombstone file and rewrites the log.
func (e *Engine) recover() error {
	offsets := make(map[string]int64)

	err := e.store.ScanRecords(func(key, _ string, offset int64) error {
		offsets[key] = offset
		return nil
	})
	if err != nil {
		return ierrors.NewStorageError(err, ierrors.ErrorCodeRecoveryFailed, "failed to recover log file").
			WithPath(e.options.DataDir)
	}

	e.index.Replace(offsets)
	e.log.Infow("recovery complete", "keys", len(offsets))
	return nil
}

// Set writes key/value as a new record at the end of the log and points
// the index at it, overriding any prior offset for the same key.
func (e *Engine) Set(key, value string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if err := logstore.ValidateKey(key); err != nil {
		return err
	}
	if err := logstore.ValidateValue(value); err != nil {
		return err
	}

	e.logMu.Lock()
	defer e.logMu.Unlock()

	offset, err := e.store.AppendRecord(key, value)
	if err != nil {
		return err
	}
	return e.index.Set(key, offset)
}

// Get returns the current value for key, or ErrNotFound if it has no
// entry in the index.
func (e *Engine) Get(key string) (string, error) {
	if e.closed.Load() {
		return "", ErrEngineClosed
	}
	if err := logstore.ValidateKey(key); err != nil {
		return "", err
	}

	e.logMu.Lock()
	defer e.logMu.Unlock()

	offset, ok, err := e.index.Get(key)
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ierrors.NewKeyNotFoundError(ErrNotFound, key)
	}

	return e.store.ReadRecordAt(offset, key)
}

// Delete marks key for removal. It records a tombstone under the
// tombstone-lock, releases it, then removes the key from the index under
// the log-lock. The underlying log record is purged later by the
// deletion background task; Delete itself never rewrites the log.
//
// Delete is idempotent: deleting a key that has no index entry is not an
// error, matching the original engine's engine_delete, which always
// succeeds regardless of whether the key was found.
func (e *Engine) Delete(key string) error {
	if e.closed.Load() {
		return ErrEngineClosed
	}
	if err := logstore.ValidateKey(key); err != nil {
		return err
	}

	e.tombstoneMu.Lock()
	err := e.store.AppendTombstone(key)
	e.tombstoneMu.Unlock()
	if err != nil {
		return err
	}

	e.logMu.Lock()
	defer e.logMu.Unlock()

	_, err = e.index.Delete(key)
	return err
}

// Close stops the background tasks and releases the log store and index,
// combining any errors from both shutdown steps.
func (e *Engine) Close() error {
	if !e.closed.CompareAndSwap(false, true) {
		return ErrEngineClosed
	}

	if e.cancelBg != nil {
		e.cancelBg()
	}
	if e.compaction != nil {
		e.compaction.Stop()
	}
	if e.deletion != nil {
		e.deletion.Stop()
	}

	storeErr := e.store.Close()
	indexErr := e.index.Close()

	if err := multierr.Combine(storeErr, indexErr); err != nil {
		return err
	}

	e.log.Infow("engine closed")
	return nil
}
