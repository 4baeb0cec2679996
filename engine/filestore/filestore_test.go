package filestore

import (
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/compozy/conduit/pkg/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFileStore(t *testing.T) {
	t.Run("Should write, read and delete files", func(t *testing.T) {
		ctx := t.Context()
		s := NewMemory()
		require.NoError(t, s.Write(ctx, "/extensions/abc", strings.NewReader("jar-bytes")))

		ok, err := s.Exists(ctx, "extensions/abc")
		require.NoError(t, err)
		assert.True(t, ok)

		rc, size, err := s.Read(ctx, "/extensions/abc")
		require.NoError(t, err)
		body, err := io.ReadAll(rc)
		require.NoError(t, err)
		require.NoError(t, rc.Close())
		assert.Equal(t, int64(9), size)
		assert.Equal(t, "jar-bytes", string(body))

		require.NoError(t, s.Delete(ctx, "/extensions/abc"))
		require.NoError(t, s.Delete(ctx, "/extensions/abc"))
		_, _, err = s.Read(ctx, "/extensions/abc")
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("Should overwrite existing files", func(t *testing.T) {
		ctx := t.Context()
		s := NewMemory()
		require.NoError(t, s.Write(ctx, "/a", strings.NewReader("first, longer")))
		require.NoError(t, s.Write(ctx, "/a", strings.NewReader("second")))
		got, err := s.ReadAll(ctx, "/a")
		require.NoError(t, err)
		assert.Equal(t, "second", string(got))
	})

	t.Run("Should reject the root location", func(t *testing.T) {
		s := NewMemory()
		assert.Error(t, s.Write(t.Context(), "/", strings.NewReader("x")))
		_, _, err := s.Read(t.Context(), "")
		assert.Error(t, err)
	})

	t.Run("Should keep files below the configured root", func(t *testing.T) {
		ctx := t.Context()
		root := filepath.Join(t.TempDir(), "store")
		s, err := FromConfig(ctx, &config.FileStoreConfig{Driver: "os", Root: root})
		require.NoError(t, err)
		require.NoError(t, s.Write(ctx, "/../../extensions/x", strings.NewReader("data")))
		content, err := os.ReadFile(filepath.Join(root, "extensions", "x"))
		require.NoError(t, err)
		assert.Equal(t, "data", string(content))
	})

	t.Run("Should reject unknown drivers", func(t *testing.T) {
		_, err := FromConfig(t.Context(), &config.FileStoreConfig{Driver: "s3"})
		assert.ErrorContains(t, err, "unsupported filestore driver")
	})
}
