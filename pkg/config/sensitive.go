package config

import (
	"encoding/json"
	"fmt"

	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

const redacted = "[REDACTED]"

// SensitiveString hides its value when printed or serialized.
type SensitiveString string

func (s SensitiveString) String() string {
	if s == "" {
		return ""
	}
	return redacted
}

// Value returns the underlying secret.
func (s SensitiveString) Value() string {
	return string(s)
}

func (s SensitiveString) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.String())
}

// Flatten returns cfg as dotted koanf keys with sensitive values redacted.
func Flatten(cfg *Config) (map[string]any, error) {
	if cfg == nil {
		return nil, fmt.Errorf("configuration cannot be nil")
	}
	k := koanf.New(".")
	if err := k.Load(structs.Provider(cfg, "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to flatten configuration: %w", err)
	}
	out := k.All()
	for key, value := range out {
		if s, ok := value.(SensitiveString); ok {
			out[key] = s.String()
		}
	}
	return out, nil
}
