// Package compaction implements the background task that rewrites
// ignite's log file to contain exactly one record per live key, dropping
// every byte range the index no longer points at. It runs on a ticker,
// can be triggered synchronously for deterministic tests, and shuts down
// cooperatively via context cancellation.
package compaction

import (
	"context"
	"sync"
	"time"

	"github.com/kvforge/ignite/internal/index"
	"github.com/kvforge/ignite/internal/logstore"
	"go.uber.org/zap"
)

// Compaction runs the periodic log-rewrite task.
type Compaction struct {
	log      *zap.SugaredLogger
	store    *logstore.Store
	index    *index.Index
	logLock  sync.Locker
	interval time.Duration

	stopCh    chan struct{}
	triggerCh chan chan error
	wg        sync.WaitGroup
}

// Config encapsulates the configuration parameters required to build a Compaction task.
type Config struct {
	Store    *logstore.Store
	Index    *index.Index
	LogLock  sync.Locker
	Interval time.Duration
	Logger   *zap.SugaredLogger
}

// New builds a Compaction task. It does not start the background
// goroutine; call Start for that.
func New(config *Config) *Compaction {
	return &Compaction{
		log:       config.Logger,
		store:     config.Store,
		index:     config.Index,
		logLock:   config.LogLock,
		interval:  config.Interval,
		stopCh:    make(chan struct{}),
		triggerCh: make(chan chan error),
	}
}

// Start launches the background ticker loop. It returns immediately; the
// loop runs until Stop is called or ctx is canceled.
func (c *Compaction) Start(ctx context.Context) {
	c.wg.Add(1)
	go c.loop(ctx)
}

func (c *Compaction) loop(ctx context.Context) {
	defer c.wg.Done()

	ticker := time.NewTicker(c.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopCh:
			return
		case <-ticker.C:
			if err := c.runOnce(); err != nil {
				c.log.Warnw("compaction run failed", "error", err)
			}
		case reply := <-c.triggerCh:
			reply <- c.runOnce()
		}
	}
}

// Trigger forces a compaction run and blocks until it completes,
// returning any error. Intended for tests that need deterministic
// control over when compaction happens.
func (c *Compaction) Trigger() error {
	reply := make(chan error, 1)
	select {
	case c.triggerCh <- reply:
		return <-reply
	case <-c.stopCh:
		return nil
	}
}

// Stop halts the background loop and waits for it to exit.
func (c *Compaction) Stop() {
	close(c.stopCh)
	c.wg.Wait()
}

// runOnce performs a single compaction pass: snapshot the index, rewrite
// the log to contain exactly those keys, then install the new offsets.
// The entire pass runs under the log-lock, matching the single-lock
// concurrency model — no SET, GET, or DELETE can interleave with a
// compaction run.
func (c *Compaction) runOnce() error {
	c.logLock.Lock()
	defer c.logLock.Unlock()

	before := c.index.Len()

	snapshot := c.index.Snapshot()
	newOffsets, orphaned, err := c.store.CompactTo(snapshot)
	if err != nil {
		return err
	}
	c.index.Replace(newOffsets)

	c.log.Infow("compaction run complete", "keys", before, "orphaned", len(orphaned))
	return nil
}
