package start

import (
	"net"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/pkg/config"
)

func TestRun(t *testing.T) {
	t.Run("Should reject an unknown seed strategy", func(t *testing.T) {
		err := run(t.Context(), config.Default(), &options{seedStrategy: "merge"})
		assert.ErrorContains(t, err, "invalid --seed-strategy")
	})

	t.Run("Should refuse a busy port", func(t *testing.T) {
		ln, err := net.Listen("tcp", "127.0.0.1:0")
		require.NoError(t, err)
		defer ln.Close()
		cfg := config.Default()
		cfg.Server.Host = "127.0.0.1"
		cfg.Server.Port = ln.Addr().(*net.TCPAddr).Port
		err = run(t.Context(), cfg, &options{seedStrategy: "seed_only"})
		assert.ErrorContains(t, err, "is not available")
	})
}

func TestNewStartCommand(t *testing.T) {
	t.Run("Should expose the server flags", func(t *testing.T) {
		c := NewStartCommand()
		for _, name := range []string{"host", "port", "store-driver", "data-dir", "seed-dir", "seed-strategy"} {
			assert.NotNil(t, c.Flags().Lookup(name), name)
		}
		assert.Contains(t, c.Aliases, "start")
	})
}
