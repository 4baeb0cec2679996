package monitoring

import (
	"fmt"
	"strings"

	"github.com/compozy/conduit/pkg/config"
)

const defaultPath = "/metrics"

// Config holds configuration for monitoring service
type Config struct {
	Enabled bool   `json:"enabled" yaml:"enabled" mapstructure:"enabled"`
	Path    string `json:"path"    yaml:"path"    mapstructure:"path"`
}

// DefaultConfig returns default monitoring configuration
func DefaultConfig() *Config {
	return &Config{
		Enabled: false,
		Path:    defaultPath,
	}
}

// FromServerConfig derives the monitoring settings of the HTTP server.
func FromServerConfig(cfg *config.ServerConfig) *Config {
	out := DefaultConfig()
	if cfg != nil {
		out.Enabled = cfg.MetricsEnabled
	}
	return out
}

// Validate validates the monitoring configuration
func (c *Config) Validate() error {
	if c.Path == "" {
		return fmt.Errorf("monitoring path cannot be empty")
	}
	if c.Path[0] != '/' {
		return fmt.Errorf("monitoring path must start with '/': got %s", c.Path)
	}
	if strings.HasPrefix(c.Path, "/api/") {
		return fmt.Errorf("monitoring path cannot be under /api/")
	}
	if strings.ContainsRune(c.Path, '?') {
		return fmt.Errorf("monitoring path cannot contain query parameters")
	}
	return nil
}
