package logstore

import (
	"testing"

	"github.com/kvforge/ignite/pkg/logger"
	"github.com/stretchr/testify/require"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := Open(&Config{
		DataDir:           t.TempDir(),
		LogFileName:       "ignite.log",
		TombstoneFileName: "ignite.tombstones",
		MaxLineLength:     1024,
		MaxTombstoneBatch: 1024,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestAppendAndReadRecord(t *testing.T) {
	store := newTestStore(t)

	offset, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)
	require.Equal(t, int64(0), offset)

	value, err := store.ReadRecordAt(offset, "alpha")
	require.NoError(t, err)
	require.Equal(t, "one", value)

	offset2, err := store.AppendRecord("beta", "two")
	require.NoError(t, err)
	require.Greater(t, offset2, offset)

	value2, err := store.ReadRecordAt(offset2, "beta")
	require.NoError(t, err)
	require.Equal(t, "two", value2)
}

func TestReadRecordAtWrongKeyIsCorruption(t *testing.T) {
	store := newTestStore(t)

	offset, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)

	_, err = store.ReadRecordAt(offset, "mismatched")
	require.Error(t, err)
}

func TestScanRecordsVisitsEveryKeyInOrder(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)
	_, err = store.AppendRecord("beta", "two")
	require.NoError(t, err)
	_, err = store.AppendRecord("alpha", "one-again")
	require.NoError(t, err)

	var keys []string
	var values []string
	err = store.ScanRecords(func(key, value string, _ int64) error {
		keys = append(keys, key)
		values = append(values, value)
		return nil
	})
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta", "alpha"}, keys)
	require.Equal(t, []string{"one", "two", "one-again"}, values)
}

func TestAppendAndDrainTombstones(t *testing.T) {
	store := newTestStore(t)

	require.NoError(t, store.AppendTombstone("alpha"))
	require.NoError(t, store.AppendTombstone("beta"))

	drained, err := store.DrainTombstones()
	require.NoError(t, err)
	require.Equal(t, []string{"alpha", "beta"}, drained)

	drainedAgain, err := store.DrainTombstones()
	require.NoError(t, err)
	require.Empty(t, drainedAgain)
}

func TestDrainTombstonesDropsOverflowBeyondBatchLimit(t *testing.T) {
	store, err := Open(&Config{
		DataDir:           t.TempDir(),
		LogFileName:       "ignite.log",
		TombstoneFileName: "ignite.tombstones",
		MaxLineLength:     1024,
		MaxTombstoneBatch: 2,
		Logger:            logger.Nop(),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	require.NoError(t, store.AppendTombstone("a"))
	require.NoError(t, store.AppendTombstone("b"))
	require.NoError(t, store.AppendTombstone("c"))

	drained, err := store.DrainTombstones()
	require.NoError(t, err)
	require.Len(t, drained, 2)

	// The third tombstone is dropped along with the batch, not preserved
	// for the next run.
	drainedAgain, err := store.DrainTombstones()
	require.NoError(t, err)
	require.Empty(t, drainedAgain)
}

func TestCompactToDropsSupersededOffsets(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)
	offset2, err := store.AppendRecord("alpha", "one-latest")
	require.NoError(t, err)
	offsetBeta, err := store.AppendRecord("beta", "two")
	require.NoError(t, err)

	offsets := map[string]int64{"alpha": offset2, "beta": offsetBeta}
	newOffsets, orphaned, err := store.CompactTo(offsets)
	require.NoError(t, err)
	require.Empty(t, orphaned)
	require.Len(t, newOffsets, 2)

	value, err := store.ReadRecordAt(newOffsets["alpha"], "alpha")
	require.NoError(t, err)
	require.Equal(t, "one-latest", value)

	var seen []string
	require.NoError(t, store.ScanRecords(func(key, _ string, _ int64) error {
		seen = append(seen, key)
		return nil
	}))
	require.Len(t, seen, 2)
}

func TestRewriteFilteredDropsTombstonedKeys(t *testing.T) {
	store := newTestStore(t)

	_, err := store.AppendRecord("alpha", "one")
	require.NoError(t, err)
	offsetBeta, err := store.AppendRecord("beta", "two")
	require.NoError(t, err)

	dropKeys := map[string]struct{}{"alpha": {}}
	currentOffsets := map[string]int64{"beta": offsetBeta}

	newOffsets, err := store.RewriteFiltered(dropKeys, currentOffsets)
	require.NoError(t, err)
	require.Contains(t, newOffsets, "beta")
	require.NotContains(t, newOffsets, "alpha")

	var seen []string
	require.NoError(t, store.ScanRecords(func(key, _ string, _ int64) error {
		seen = append(seen, key)
		return nil
	}))
	require.Equal(t, []string{"beta"}, seen)
}
