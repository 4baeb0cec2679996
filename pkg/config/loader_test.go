package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockSource struct {
	data       map[string]any
	sourceType SourceType
}

func (m *mockSource) Load() (map[string]any, error) { return m.data, nil }
func (m *mockSource) Type() SourceType              { return m.sourceType }

func TestLoader_Load(t *testing.T) {
	t.Run("Should load default configuration when no sources provided", func(t *testing.T) {
		cfg, err := NewService().Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "0.0.0.0", cfg.Server.Host)
		assert.Equal(t, 5080, cfg.Server.Port)
		assert.Equal(t, "memory", cfg.Store.Driver)
		assert.Equal(t, "io.syndesis.example", cfg.Generator.BasePackage)
		assert.False(t, cfg.Generator.SecretMaskingEnabled)
		assert.Empty(t, cfg.Generator.AdditionalResources)
	})

	t.Run("Should apply sources in precedence order", func(t *testing.T) {
		svc := NewService()
		yamlSource := &mockSource{
			sourceType: SourceYAML,
			data: map[string]any{
				"generator": map[string]any{
					"template_override_path": "redhat",
					"secret_masking_enabled": true,
				},
			},
		}
		cliSource := &mockSource{
			sourceType: SourceCLI,
			data: map[string]any{
				"generator": map[string]any{
					"template_override_path": "",
				},
			},
		}
		cfg, err := svc.Load(t.Context(), yamlSource, cliSource)
		require.NoError(t, err)
		assert.Equal(t, "", cfg.Generator.TemplateOverridePath)
		assert.True(t, cfg.Generator.SecretMaskingEnabled)
		assert.Equal(t, SourceCLI, svc.GetSource("generator.template_override_path"))
		assert.Equal(t, SourceYAML, svc.GetSource("generator.secret_masking_enabled"))
		assert.Equal(t, SourceDefault, svc.GetSource("server.port"))
	})

	t.Run("Should let environment variables override other sources", func(t *testing.T) {
		t.Setenv("CONDUIT_GENERATOR_ACTIVITY_TRACING_ENABLED", "true")
		t.Setenv("CONDUIT_GENERATOR_ADDITIONAL_RESOURCES", "deployment.yml=src/main/fabric8/deployment.yml")
		t.Setenv("CONDUIT_STORE_REDIS_PASSWORD", "hunter2")
		svc := NewService()
		cfg, err := svc.Load(t.Context())
		require.NoError(t, err)
		assert.True(t, cfg.Generator.ActivityTracingEnabled)
		require.Len(t, cfg.Generator.AdditionalResources, 1)
		assert.Equal(t, AdditionalResource{
			Source:      "deployment.yml",
			Destination: "src/main/fabric8/deployment.yml",
		}, cfg.Generator.AdditionalResources[0])
		assert.Equal(t, "hunter2", cfg.Store.Redis.Password.Value())
		assert.Equal(t, "[REDACTED]", cfg.Store.Redis.Password.String())
		assert.Equal(t, SourceEnv, svc.GetSource("generator.activity_tracing_enabled"))
	})

	t.Run("Should map embedded store variables to the nested section", func(t *testing.T) {
		t.Setenv("CONDUIT_STORE_DRIVER", "embedded")
		t.Setenv("CONDUIT_STORE_EMBEDDED_DATA_DIR", "/var/lib/conduit")
		t.Setenv("CONDUIT_STORE_EMBEDDED_SNAPSHOT_INTERVAL", "30s")
		cfg, err := NewService().Load(t.Context())
		require.NoError(t, err)
		assert.Equal(t, "embedded", cfg.Store.Driver)
		assert.Equal(t, "/var/lib/conduit", cfg.Store.Embedded.DataDir)
		assert.Equal(t, 30*time.Second, cfg.Store.Embedded.SnapshotInterval)
	})

	t.Run("Should reject an invalid store driver", func(t *testing.T) {
		_, err := NewService().Load(t.Context(), &mockSource{
			sourceType: SourceCLI,
			data:       map[string]any{"store": map[string]any{"driver": "postgres"}},
		})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "validation failed")
	})

	t.Run("Should reject duplicate additional resource destinations", func(t *testing.T) {
		_, err := NewService().Load(t.Context(), NewCLIProvider(map[string]any{
			"generator.additional_resources": "a.yml=out.yml,b.yml=out.yml",
		}))
		require.Error(t, err)
		assert.Contains(t, err.Error(), "duplicate additional resource destination")
	})

	t.Run("Should reject a malformed base package", func(t *testing.T) {
		_, err := NewService().Load(t.Context(), NewCLIProvider(map[string]any{
			"generator.base_package": "Io.Example-Bad",
		}))
		require.Error(t, err)
	})
}

func TestYAMLProvider(t *testing.T) {
	t.Run("Should load additional resources as a list of objects", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "conduit.yaml")
		content := `
generator:
  template_override_path: redhat
  additional_resources:
    - source: deployment.yml
      destination: src/main/fabric8/deployment.yml
maven:
  mirror: https://mirror.example.com/maven2
`
		require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
		cfg, err := NewService().Load(t.Context(), NewYAMLProvider(path))
		require.NoError(t, err)
		assert.Equal(t, "redhat", cfg.Generator.TemplateOverridePath)
		require.Len(t, cfg.Generator.AdditionalResources, 1)
		assert.Equal(t, "src/main/fabric8/deployment.yml", cfg.Generator.AdditionalResources[0].Destination)
		assert.Equal(t, "https://mirror.example.com/maven2", cfg.Maven.Mirror)
	})

	t.Run("Should treat a missing file as empty", func(t *testing.T) {
		data, err := NewYAMLProvider(filepath.Join(t.TempDir(), "missing.yaml")).Load()
		require.NoError(t, err)
		assert.Empty(t, data)
	})
}

func TestParseAdditionalResource(t *testing.T) {
	t.Run("Should parse a source destination pair", func(t *testing.T) {
		res, err := ParseAdditionalResource(" deployment.yml = src/main/fabric8/deployment.yml ")
		require.NoError(t, err)
		assert.Equal(t, "deployment.yml", res.Source)
		assert.Equal(t, "src/main/fabric8/deployment.yml", res.Destination)
	})

	t.Run("Should reject a pair without destination", func(t *testing.T) {
		_, err := ParseAdditionalResource("deployment.yml=")
		assert.Error(t, err)
	})
}

func TestFromContext(t *testing.T) {
	t.Run("Should return the configuration attached to the context", func(t *testing.T) {
		cfg := Default()
		cfg.Generator.TemplateOverridePath = "redhat"
		ctx := ContextWithConfig(t.Context(), cfg)
		assert.Same(t, cfg, FromContext(ctx))
	})

	t.Run("Should fall back to defaults", func(t *testing.T) {
		cfg := FromContext(t.Context())
		require.NotNil(t, cfg)
		assert.NotEmpty(t, cfg.Server.Host)
	})
}
