// Package ignite provides a high-performance key/value data store designed
// for fast read and write operations, inspired by Bitcask. It combines an
// in-memory hash table (the Index) with an append-only log on disk to
// achieve high throughput, with background compaction and tombstone
// deletion keeping the log bounded over time. It is designed for
// applications requiring fast read and write operations, such as caching,
// session management, and real-time data processing.
package ignite

import (
	"context"

	"github.com/kvforge/ignite/internal/engine"
	"github.com/kvforge/ignite/pkg/logger"
	"github.com/kvforge/ignite/pkg/options"
)

// Instance represents an instance of the Ignite key/value data store. It
// encapsulates the core engine responsible for data handling and the
// configuration options for this specific database instance.
//
// Instance is the primary entry point for interacting with the Ignite
// store, providing methods for setting, getting, and deleting key-value
// pairs.
type Instance struct {
	engine  *engine.Engine   // The underlying database engine handling read/write operations.
	options *options.Options // Configuration options applied to this DB instance.
}

// NewInstance creates and initializes a new Ignite DB instance, applying
// the provided functional options on top of the library defaults.
func NewInstance(ctx context.Context, service string, opts ...options.OptionFunc) (*Instance, error) {
	log := logger.New(service)

	defaultOpts := options.NewDefaultOptions()
	for _, opt := range opts {
		opt(&defaultOpts)
	}

	eng, err := engine.New(ctx, &engine.Config{Logger: log, Options: &defaultOpts})
	if err != nil {
		return nil, err
	}

	return &Instance{engine: eng, options: &defaultOpts}, nil
}

// Set stores a key-value pair in the database. If the key already exists,
// its value will be updated. The operation is durable and will be
// written to the append-only log before it returns.
func (i *Instance) Set(_ context.Context, key, value string) error {
	return i.engine.Set(key, value)
}

// Get retrieves the value associated with the given key.
func (i *Instance) Get(_ context.Context, key string) (string, error) {
	return i.engine.Get(key)
}

// Delete removes a key-value pair from the database. The operation
// records a tombstone immediately; the underlying log record is
// physically removed later by the background deletion task.
func (i *Instance) Delete(_ context.Context, key string) error {
	return i.engine.Delete(key)
}

// Close gracefully shuts down the Ignite DB instance: it stops the
// background compaction and deletion tasks and releases the log store
// and index.
func (i *Instance) Close(_ context.Context) error {
	return i.engine.Close()
}
