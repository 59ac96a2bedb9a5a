package deletion

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/kvforge/ignite/internal/index"
	"github.com/kvforge/ignite/internal/logstore"
	"github.com/kvforge/ignite/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestRunOncePurgesTombstonedKeys(t *testing.T) {
	dataDir := t.TempDir()

	store, err := logstore.Open(&logstore.Config{
		DataDir:           dataDir,
		LogFileName:       "ignite.log",
		TombstoneFileName: "ignite.tombstones",
		MaxLineLength:     1024,
		MaxTombstoneBatch: 1024,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	idx, err := index.New(&index.Config{DataDir: dataDir, Logger: logger.Nop()})
	require.NoError(t, err)

	offsetAlpha, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)
	require.NoError(t, idx.Set("alpha", offsetAlpha))

	offsetBeta, err := store.AppendRecord("beta", "two")
	require.NoError(t, err)
	require.NoError(t, idx.Set("beta", offsetBeta))

	require.NoError(t, store.AppendTombstone("alpha"))
	existed, err := idx.Delete("alpha")
	require.NoError(t, err)
	require.True(t, existed)

	var logLock, tombstoneLock sync.Mutex
	d := New(&Config{
		Store:         store,
		Index:         idx,
		LogLock:       &logLock,
		TombstoneLock: &tombstoneLock,
		Logger:        logger.Nop(),
	})

	require.NoError(t, d.runOnce())

	var seen []string
	require.NoError(t, store.ScanRecords(func(key, _ string, _ int64) error {
		seen = append(seen, key)
		return nil
	}))
	require.Equal(t, []string{"beta"}, seen)

	_, ok, err := idx.Get("beta")
	require.NoError(t, err)
	require.True(t, ok)
}

func TestStartStopTriggerLifecycle(t *testing.T) {
	dataDir := t.TempDir()
	store, err := logstore.Open(&logstore.Config{
		DataDir:           dataDir,
		LogFileName:       "ignite.log",
		TombstoneFileName: "ignite.tombstones",
		MaxLineLength:     1024,
		MaxTombstoneBatch: 1024,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	idx, err := index.New(&index.Config{DataDir: dataDir, Logger: logger.Nop()})
	require.NoError(t, err)

	var logLock, tombstoneLock sync.Mutex
	d := New(&Config{
		Store:         store,
		Index:         idx,
		LogLock:       &logLock,
		TombstoneLock: &tombstoneLock,
		Interval:      time.Hour,
		Logger:        logger.Nop(),
	})

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	d.Start(ctx)
	require.NoError(t, d.Trigger())
	d.Stop()
}
