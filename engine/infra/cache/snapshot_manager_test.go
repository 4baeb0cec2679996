package cache

import (
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/pkg/logger"
)

func setupMiniredis(t *testing.T) *miniredis.Miniredis {
	t.Helper()
	s := miniredis.NewMiniRedis()
	require.NoError(t, s.Start())
	t.Cleanup(s.Close)
	return s
}

func TestSnapshotManager(t *testing.T) {
	t.Run("Should restore a snapshot into a fresh server", func(t *testing.T) {
		ctx := logger.ContextWithLogger(t.Context(), logger.NewForTests())
		fsys := afero.NewMemMapFs()
		src := setupMiniredis(t)
		require.NoError(t, src.Set("conduit:integration:a", `{"id":"a"}`))
		require.NoError(t, src.Set("conduit:extension:b", `{"id":"b"}`))
		src.HSet("not-a-string", "field", "value")

		sm, err := NewSnapshotManager(src, fsys, "/data")
		require.NoError(t, err)
		require.NoError(t, sm.Snapshot(ctx))
		metrics := sm.GetSnapshotMetrics()
		assert.Equal(t, int64(1), metrics.SnapshotsTaken)
		assert.Positive(t, metrics.LastSizeBytes)

		dst := setupMiniredis(t)
		restored, err := NewSnapshotManager(dst, fsys, "/data")
		require.NoError(t, err)
		require.NoError(t, restored.Restore(ctx))
		got, err := dst.Get("conduit:integration:a")
		require.NoError(t, err)
		assert.Equal(t, `{"id":"a"}`, got)
		assert.False(t, dst.Exists("not-a-string"))
		assert.Equal(t, int64(1), restored.GetSnapshotMetrics().Restores)
	})

	t.Run("Should ignore a missing snapshot", func(t *testing.T) {
		sm, err := NewSnapshotManager(setupMiniredis(t), afero.NewMemMapFs(), "/data")
		require.NoError(t, err)
		assert.NoError(t, sm.Restore(t.Context()))
		assert.Equal(t, int64(0), sm.GetSnapshotMetrics().Restores)
	})

	t.Run("Should reject a snapshot of another format", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		require.NoError(t, afero.WriteFile(fsys, "/data/"+snapshotFile, []byte(`{"version":"9","keys":{}}`), 0o600))
		sm, err := NewSnapshotManager(setupMiniredis(t), fsys, "/data")
		require.NoError(t, err)
		assert.ErrorContains(t, sm.Restore(t.Context()), "unsupported snapshot version")
		assert.Equal(t, int64(1), sm.GetSnapshotMetrics().RestoreFailures)
	})

	t.Run("Should take periodic snapshots until stopped", func(t *testing.T) {
		fsys := afero.NewMemMapFs()
		mr := setupMiniredis(t)
		require.NoError(t, mr.Set("k", "v"))
		sm, err := NewSnapshotManager(mr, fsys, "/data")
		require.NoError(t, err)
		sm.StartPeriodicSnapshots(t.Context(), 10*time.Millisecond)
		assert.Eventually(t, func() bool {
			return sm.GetSnapshotMetrics().SnapshotsTaken > 0
		}, 2*time.Second, 10*time.Millisecond)
		sm.Stop()
		sm.Stop()
		exists, err := afero.Exists(fsys, "/data/"+snapshotFile)
		require.NoError(t, err)
		assert.True(t, exists)
	})

	t.Run("Should require a data directory", func(t *testing.T) {
		_, err := NewSnapshotManager(setupMiniredis(t), afero.NewMemMapFs(), "")
		assert.Error(t, err)
		_, err = NewSnapshotManager(nil, afero.NewMemMapFs(), "/data")
		assert.Error(t, err)
	})
}
