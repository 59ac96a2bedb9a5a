package engine

import (
	"context"
	"fmt"
	"sync"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/kvforge/ignite/pkg/logger"
	"github.com/kvforge/ignite/pkg/options"
	"github.com/stretchr/testify/require"
)

func newTestEngine(t *testing.T, mutate ...func(*options.Options)) (*Engine, *options.Options) {
	t.Helper()

	opts := options.NewDefaultOptions()
	opts.DataDir = t.TempDir()
	for _, m := range mutate {
		m(&opts)
	}

	eng, err := New(context.Background(), &Config{Options: &opts, Logger: logger.Nop()})
	require.NoError(t, err)
	t.Cleanup(func() { _ = eng.Close() })

	return eng, &opts
}

func TestSetGetRoundTrip(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.Set("alpha", "one"))
	value, err := eng.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "one", value)
}

func TestGetMissingKeyReturnsNotFound(t *testing.T) {
	eng, _ := newTestEngine(t)

	_, err := eng.Get("missing")
	require.ErrorIs(t, err, ErrNotFound)
}

func TestSetRejectsInvalidKey(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.ErrorIs(t, eng.Set("", "value"), ErrInvalidKey)
	require.ErrorIs(t, eng.Set("bad key", "value"), ErrInvalidKey)
	require.ErrorIs(t, eng.Set("bad\nkey", "value"), ErrInvalidKey)
}

func TestOverwriteThenForcedCompactionKeepsLatestValue(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.Set("alpha", "one"))
	require.NoError(t, eng.Set("alpha", "two"))
	require.NoError(t, eng.Set("alpha", "three"))

	require.NoError(t, eng.compaction.Trigger())

	value, err := eng.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "three", value)
}

func TestDeleteThenForcedDeletionRemovesRecord(t *testing.T) {
	eng, _ := newTestEngine(t)

	require.NoError(t, eng.Set("alpha", "one"))
	require.NoError(t, eng.Delete("alpha"))

	_, err := eng.Get("alpha")
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, eng.deletion.Trigger())

	var seenKeys int
	require.NoError(t, eng.store.ScanRecords(func(key, _ string, _ int64) error {
		if key == "alpha" {
			seenKeys++
		}
		return nil
	}))
	require.Zero(t, seenKeys)
}

func TestDeleteMissingKeyIsIdempotent(t *testing.T) {
	eng, _ := newTestEngine(t)
	require.NoError(t, eng.Delete("missing"))
}

func TestRestartRecoversIndexFromLog(t *testing.T) {
	eng, opts := newTestEngine(t)

	require.NoError(t, eng.Set("alpha", "one"))
	require.NoError(t, eng.Set("beta", "two"))
	require.NoError(t, eng.Set("alpha", "one-latest"))

	expectedOffsets := eng.index.Snapshot()
	require.NoError(t, eng.Close())

	restarted, err := New(context.Background(), &Config{Options: opts, Logger: logger.Nop()})
	require.NoError(t, err)
	defer restarted.Close()

	// Recovery re-scans the untouched log from scratch, so the rebuilt
	// index must land on the exact same key->offset map, not just agree
	// on the values Get happens to resolve.
	if diff := cmp.Diff(expectedOffsets, restarted.index.Snapshot()); diff != "" {
		t.Fatalf("recovered index snapshot mismatch (-want +got):\n%s", diff)
	}

	value, err := restarted.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "one-latest", value)

	value, err = restarted.Get("beta")
	require.NoError(t, err)
	require.Equal(t, "two", value)
}

func TestRestartDoesNotReplayTombstones(t *testing.T) {
	eng, opts := newTestEngine(t)

	require.NoError(t, eng.Set("alpha", "one"))
	require.NoError(t, eng.Delete("alpha"))
	require.NoError(t, eng.Close())

	restarted, err := New(context.Background(), &Config{Options: opts, Logger: logger.Nop()})
	require.NoError(t, err)
	defer restarted.Close()

	// Tombstones aren't replayed at startup: the key still resolves to its
	// last written value until the deletion task next drains the
	// tombstone file and rewrites the log.
	value, err := restarted.Get("alpha")
	require.NoError(t, err)
	require.Equal(t, "one", value)
}

func TestConcurrentWritesWithForcedCompactionStayConsistent(t *testing.T) {
	eng, _ := newTestEngine(t)

	const writers = 8
	const opsPerWriter = 125

	var wg sync.WaitGroup
	for w := 0; w < writers; w++ {
		wg.Add(1)
		go func(writer int) {
			defer wg.Done()
			for i := 0; i < opsPerWriter; i++ {
				key := fmt.Sprintf("key-%d", writer)
				value := fmt.Sprintf("value-%d-%d", writer, i)
				require.NoError(t, eng.Set(key, value))
				if i%20 == 0 {
					_ = eng.compaction.Trigger()
				}
			}
		}(w)
	}
	wg.Wait()

	require.NoError(t, eng.compaction.Trigger())

	for w := 0; w < writers; w++ {
		key := fmt.Sprintf("key-%d", w)
		expected := fmt.Sprintf("value-%d-%d", w, opsPerWriter-1)
		value, err := eng.Get(key)
		require.NoError(t, err)
		require.Equal(t, expected, value)
	}
}
