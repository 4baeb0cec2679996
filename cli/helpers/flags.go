package helpers

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
)

// configFlags maps flag names to the config keys they override.
var configFlags = map[string]string{
	"log-level":           "log.level",
	"log-json":            "log.json",
	"log-source":          "log.source",
	"override-path":       "generator.template_override_path",
	"template-dir":        "generator.template_dir",
	"additional-resource": "generator.additional_resources",
	"mask-secrets":        "generator.secret_masking_enabled",
	"tracing":             "generator.activity_tracing_enabled",
	"base-package":        "generator.base_package",
	"maven-mirror":        "maven.mirror",
	"host":                "server.host",
	"port":                "server.port",
	"store-driver":        "store.driver",
	"data-dir":            "store.embedded.data_dir",
	"filestore-root":      "filestore.root",
	"filestore-driver":    "filestore.driver",
}

// ConfigFlags returns the changed flags of cmd keyed by config path.
func ConfigFlags(cmd *cobra.Command) (map[string]any, error) {
	out := make(map[string]any)
	var visitErr error
	cmd.Flags().Visit(func(f *pflag.Flag) {
		key, ok := configFlags[f.Name]
		if !ok || visitErr != nil {
			return
		}
		value, err := flagValue(cmd.Flags(), f)
		if err != nil {
			visitErr = fmt.Errorf("failed to read flag %s: %w", f.Name, err)
			return
		}
		out[key] = value
	})
	if visitErr != nil {
		return nil, visitErr
	}
	return out, nil
}

func flagValue(flags *pflag.FlagSet, f *pflag.Flag) (any, error) {
	switch f.Value.Type() {
	case "bool":
		return flags.GetBool(f.Name)
	case "int":
		return flags.GetInt(f.Name)
	case "stringArray":
		return flags.GetStringArray(f.Name)
	case "stringSlice":
		return flags.GetStringSlice(f.Name)
	default:
		return f.Value.String(), nil
	}
}

// ParseAssignments parses repeated "key=value" flag values. Keys must be unique.
func ParseAssignments(flag string, values []string) (map[string]string, error) {
	out := make(map[string]string, len(values))
	for _, v := range values {
		key, value, ok := strings.Cut(v, "=")
		key, value = strings.TrimSpace(key), strings.TrimSpace(value)
		if !ok || key == "" || value == "" {
			return nil, NewCliError("INVALID_FLAG", fmt.Sprintf("--%s expects id=path, got %q", flag, v))
		}
		if _, dup := out[key]; dup {
			return nil, NewCliError("INVALID_FLAG", fmt.Sprintf("--%s repeats id %q", flag, key))
		}
		out[key] = value
	}
	return out, nil
}
