package helpers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/pkg/config"
)

func TestConfigFlags(t *testing.T) {
	t.Run("Should map only changed flags to config keys", func(t *testing.T) {
		cmd := &cobra.Command{Use: "test"}
		cmd.Flags().Bool("mask-secrets", false, "")
		cmd.Flags().Bool("tracing", false, "")
		cmd.Flags().Int("port", 0, "")
		cmd.Flags().StringArray("additional-resource", nil, "")
		cmd.Flags().String("unrelated", "", "")
		require.NoError(t, cmd.ParseFlags([]string{
			"--mask-secrets",
			"--port", "9090",
			"--additional-resource", "a.yml=out/a.yml",
			"--additional-resource", "b.yml=out/b.yml",
			"--unrelated", "x",
		}))
		got, err := ConfigFlags(cmd)
		require.NoError(t, err)
		assert.Equal(t, map[string]any{
			"generator.secret_masking_enabled": true,
			"server.port":                      9090,
			"generator.additional_resources":   []string{"a.yml=out/a.yml", "b.yml=out/b.yml"},
		}, got)
	})
}

func TestParseAssignments(t *testing.T) {
	t.Run("Should parse id path pairs", func(t *testing.T) {
		got, err := ParseAssignments("extension", []string{"ext-1=lib/a.jar", " ext-2 = b.jar "})
		require.NoError(t, err)
		assert.Equal(t, map[string]string{"ext-1": "lib/a.jar", "ext-2": "b.jar"}, got)
	})

	for _, v := range []string{"no-separator", "=path", "id="} {
		t.Run("Should reject "+v, func(t *testing.T) {
			_, err := ParseAssignments("extension", []string{v})
			assert.ErrorContains(t, err, "expects id=path")
		})
	}

	t.Run("Should reject repeated ids", func(t *testing.T) {
		_, err := ParseAssignments("openapi", []string{"a=x.json", "a=y.json"})
		assert.ErrorContains(t, err, "repeats id")
	})
}

func TestCategorizeError(t *testing.T) {
	t.Run("Should keep the code of domain errors", func(t *testing.T) {
		err := fmt.Errorf("wrapped: %w", core.Errorf(core.CodeNotFound, "integration %s not found", "x"))
		got := CategorizeError(err)
		assert.Equal(t, core.CodeNotFound, got.Code)
		assert.ErrorIs(t, got, err)
	})

	t.Run("Should flag cancellation", func(t *testing.T) {
		assert.Equal(t, "OPERATION_CANCELED", CategorizeError(context.Canceled).Code)
	})

	t.Run("Should default to internal errors", func(t *testing.T) {
		assert.Equal(t, core.CodeInternal, CategorizeError(errors.New("boom")).Code)
		assert.Nil(t, CategorizeError(nil))
	})
}

func TestWriteData(t *testing.T) {
	t.Run("Should redact sensitive values in yaml", func(t *testing.T) {
		cfg := config.Default()
		cfg.Store.Redis.Password = "hunter2"
		var buf bytes.Buffer
		require.NoError(t, WriteData(&buf, OutputFormatYAML, cfg))
		assert.NotContains(t, buf.String(), "hunter2")
		assert.Contains(t, buf.String(), "[REDACTED]")
	})

	t.Run("Should reject unknown formats", func(t *testing.T) {
		assert.Error(t, WriteData(&bytes.Buffer{}, "table", struct{}{}))
	})
}
