package compaction

import (
	"sync"
	"testing"

	"github.com/kvforge/ignite/internal/index"
	"github.com/kvforge/ignite/internal/logstore"
	"github.com/kvforge/ignite/pkg/logger"
	"github.com/stretchr/testify/require"
)

func TestRunOnceCollapsesSupersededRecords(t *testing.T) {
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

	offset1, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)
	require.NoError(t, idx.Set("alpha", offset1))

	offset2, err := store.AppendRecord("alpha", "one-latest")
	require.NoError(t, err)
	require.NoError(t, idx.Set("alpha", offset2))

	var logLock sync.Mutex
	c := New(&Config{
		Store:    store,
		Index:    idx,
		LogLock:  &logLock,
		Interval: 0, // irrelevant, the loop is never started; runOnce is called directly
		Logger:   logger.Nop(),
	})

	require.NoError(t, c.runOnce())

	var seen []string
	require.NoError(t, store.ScanRecords(func(key, value string, _ int64) error {
		seen = append(seen, key+"="+value)
		return nil
	}))
	require.Equal(t, []string{"alpha=one-latest"}, seen)

	offset, ok, err := idx.Get("alpha")
	require.NoError(t, err)
	require.True(t, ok)
	value, err := store.ReadRecordAt(offset, "alpha")
	require.NoError(t, err)
	require.Equal(t, "one-latest", value)
}

func TestRunOnceIsNoopOnEmptyIndex(t *testing.T) {
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

	var logLock sync.Mutex
	c := New(&Config{Store: store, Index: idx, LogLock: &logLock, Logger: logger.Nop()})
	require.NoError(t, c.runOnce())
}
