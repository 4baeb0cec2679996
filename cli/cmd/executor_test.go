package cmd

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/cli/helpers"
	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/pkg/config"
)

func newCommand(t *testing.T) *cobra.Command {
	t.Helper()
	c := &cobra.Command{Use: "test"}
	c.Flags().String("config", "", "")
	c.Flags().String("env-file", "", "")
	c.Flags().String("log-level", "disabled", "")
	c.Flags().Int("port", 0, "")
	c.SetContext(t.Context())
	return c
}

func TestSetup(t *testing.T) {
	t.Run("Should layer the config file under changed flags", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conduit.yaml")
		require.NoError(t, os.WriteFile(path, []byte("server:\n  port: 7000\n  host: 127.0.0.1\n"), 0o600))
		c := newCommand(t)
		require.NoError(t, c.Flags().Set("config", path))
		require.NoError(t, c.Flags().Set("port", "7100"))
		require.NoError(t, Setup(c))
		cfg := config.FromContext(c.Context())
		require.NotNil(t, cfg)
		assert.Equal(t, 7100, cfg.Server.Port)
		assert.Equal(t, "127.0.0.1", cfg.Server.Host)
	})

	t.Run("Should read variables from the env file", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), ".env")
		require.NoError(t, os.WriteFile(path, []byte("CONDUIT_GENERATOR_BASE_PACKAGE=com.acme.routes\n"), 0o600))
		t.Setenv("CONDUIT_GENERATOR_BASE_PACKAGE", "")
		require.NoError(t, os.Unsetenv("CONDUIT_GENERATOR_BASE_PACKAGE"))
		c := newCommand(t)
		require.NoError(t, c.Flags().Set("env-file", path))
		require.NoError(t, Setup(c))
		assert.Equal(t, "com.acme.routes", config.FromContext(c.Context()).Generator.BasePackage)
	})

	t.Run("Should fail on an explicit missing env file", func(t *testing.T) {
		c := newCommand(t)
		require.NoError(t, c.Flags().Set("env-file", filepath.Join(t.TempDir(), "missing.env")))
		assert.ErrorContains(t, Setup(c), "failed to load env file")
	})

	t.Run("Should fail on an invalid configuration", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "conduit.yaml")
		require.NoError(t, os.WriteFile(path, []byte("store:\n  driver: cassandra\n"), 0o600))
		c := newCommand(t)
		require.NoError(t, c.Flags().Set("config", path))
		assert.ErrorContains(t, Setup(c), "failed to load configuration")
	})
}

func TestExecuteCommand(t *testing.T) {
	t.Run("Should print coded errors as JSON", func(t *testing.T) {
		c := newCommand(t)
		require.NoError(t, Setup(c))
		var stderr bytes.Buffer
		c.SetErr(&stderr)
		err := ExecuteCommand(c, func(context.Context, *cobra.Command, *config.Config, []string) error {
			return core.Errorf(core.CodeNotFound, "integration %q not found", "i-1")
		}, nil)
		var cliErr *helpers.CliError
		require.True(t, errors.As(err, &cliErr))
		assert.Equal(t, core.CodeNotFound, cliErr.Code)
		assert.Contains(t, stderr.String(), `"code": "not_found"`)
	})
}
