// Package deletion implements the background task that physically purges
// tombstoned keys from ignite's log file. It runs in two stages per pass:
// a tombstone-lock-only stage that drains pending deletions, and a
// log-lock-only stage that rewrites the log to drop the records those
// deletions name. The two stages never nest their locks.
package deletion

import (
	"context"
	"sync"
	"time"

	"github.com/kvforge/ignite/internal/index"
	"github.com/kvforge/ignite/internal/logstore"
	"go.uber.org/zap"
)

// Deletion runs the periodic tombstone-draining task.
type Deletion struct {
	log           *zap.SugaredLogger
	store         *logstore.Store
	index         *index.Index
	logLock       sync.Locker
	tombstoneLock sync.Locker
	interval      time.Duration

	stopCh    chan struct{}
	triggerCh chan chan error
	wg        sync.WaitGroup
}

// Config encapsulates the configuration parameters required to build a Deletion task.
type Config struct {
	Store         *logstore.Store
	Index         *index.Index
	LogLock       sync.Locker
	TombstoneLock sync.Locker
	Interval      time.Duration
	Logger        *zap.SugaredLogger
}

// New builds a Deletion task. It does not start the background
// goroutine; call Start for that.
func New(config *Config) *Deletion {
	return &Deletion{
		log:           config.Logger,
		store:         config.Store,
		index:         config.Index,
		logLock:       config.LogLock,
		tombstoneLock: config.TombstoneLock,
		interval:      config.Interval,
		stopCh:        make(chan struct{}),
		triggerCh:     make(chan chan error),
	}
}

// Start launches the background ticker loop. It returns immediately; the
// loop runs until Stop is called or ctx is canceled.
func (d *Deletion) Start(ctx context.Context) {
	d.wg.Add(1)
	go d.loop(ctx)
}

func (d *Deletion) loop(ctx context.Context) {
	defer d.wg.Done()

	ticker := time.NewTicker(d.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-d.stopCh:
			return
		case <-ticker.C:
			if err := d.runOnce(); err != nil {
				d.log.Warnw("deletion run failed", "error", err)
			}
		case reply := <-d.triggerCh:
			reply <- d.runOnce()
		}
	}
}

// Trigger forces a deletion run and blocks until it completes, returning
// any error. Intended for tests that need deterministic control over
// when tombstone draining happens.
func (d *Deletion) Trigger() error {
	reply := make(chan error, 1)
	select {
	case d.triggerCh <- reply:
		return <-reply
	case <-d.stopCh:
		return nil
	}
}

// Stop halts the background loop and waits for it to exit.
func (d *Deletion) Stop() {
	close(d.stopCh)
	d.wg.Wait()
}

// runOnce performs one deletion pass: Stage A drains pending tombstones
// under the tombstone-lock alone, then Stage B rewrites the log to drop
// those keys under the log-lock alone. The locks are never held together.
func (d *Deletion) runOnce() error {
	keys, err := d.drainTombstones()
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}

	return d.purgeFromLog(keys)
}

func (d *Deletion) drainTombstones() ([]string, error) {
	d.tombstoneLock.Lock()
	defer d.tombstoneLock.Unlock()
	return d.store.DrainTombstones()
}

func (d *Deletion) purgeFromLog(keys []string) error {
	d.logLock.Lock()
	defer d.logLock.Unlock()

	dropKeys := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		dropKeys[k] = struct{}{}
	}

	currentOffsets := d.index.Snapshot()
	newOffsets, err := d.store.RewriteFiltered(dropKeys, currentOffsets)
	if err != nil {
		return err
	}
	d.index.Replace(newOffsets)

	d.log.Infow("deletion run complete", "drained", len(keys))
	return nil
}
