package config

import (
	"context"
	"time"
)

// Config represents the complete configuration for the conduit generator and its services.
type Config struct {
	Generator GeneratorConfig `koanf:"generator" validate:"required"`
	Maven     MavenConfig     `koanf:"maven"`
	Store     StoreConfig     `koanf:"store"     validate:"required"`
	FileStore FileStoreConfig `koanf:"filestore" validate:"required"`
	Server    ServerConfig    `koanf:"server"    validate:"required"`
	Log       LogConfig       `koanf:"log"`
}

// GeneratorConfig holds the immutable options handed to the project generator.
type GeneratorConfig struct {
	// TemplateOverridePath selects a named alternate template set. Empty means defaults only.
	TemplateOverridePath string `koanf:"template_override_path"`
	// TemplateDir is an optional on-disk directory layered above the built-in templates.
	TemplateDir            string               `koanf:"template_dir"`
	AdditionalResources    []AdditionalResource `koanf:"additional_resources"     validate:"dive"`
	SecretMaskingEnabled   bool                 `koanf:"secret_masking_enabled"`
	ActivityTracingEnabled bool                 `koanf:"activity_tracing_enabled"`
	BasePackage            string               `koanf:"base_package"             validate:"required,java_package"`
}

// AdditionalResource is an extra file copied into the generated tree.
type AdditionalResource struct {
	Source      string `koanf:"source"      validate:"required" yaml:"source"      json:"source"`
	Destination string `koanf:"destination" validate:"required" yaml:"destination" json:"destination"`
}

type MavenConfig struct {
	Mirror                 string            `koanf:"mirror"                  validate:"omitempty,url"`
	Repositories           map[string]string `koanf:"repositories"`
	AdditionalRepositories map[string]string `koanf:"additional_repositories"`
}

type StoreConfig struct {
	Driver   string              `koanf:"driver"   validate:"oneof=memory redis embedded"`
	Redis    RedisConfig         `koanf:"redis"`
	Embedded EmbeddedStoreConfig `koanf:"embedded"`
}

// EmbeddedStoreConfig configures the in-process Redis used by the embedded driver.
// Snapshots are disabled when DataDir is empty.
type EmbeddedStoreConfig struct {
	DataDir          string        `koanf:"data_dir"`
	SnapshotInterval time.Duration `koanf:"snapshot_interval" validate:"min=0"`
}

type RedisConfig struct {
	Addr        string          `koanf:"addr"`
	Password    SensitiveString `koanf:"password"     sensitive:"true"`
	DB          int             `koanf:"db"           validate:"min=0"`
	Prefix      string          `koanf:"prefix"`
	PingTimeout time.Duration   `koanf:"ping_timeout"`
}

type FileStoreConfig struct {
	Driver string `koanf:"driver" validate:"oneof=memory os"`
	Root   string `koanf:"root"`
}

type ServerConfig struct {
	Host           string        `koanf:"host"            validate:"required"`
	Port           int           `koanf:"port"            validate:"min=1,max=65535"`
	MetricsEnabled bool          `koanf:"metrics_enabled"`
	Timeout        time.Duration `koanf:"timeout"`
}

type LogConfig struct {
	Level  string `koanf:"level"  validate:"omitempty,oneof=debug info warn error disabled"`
	JSON   bool   `koanf:"json"`
	Source bool   `koanf:"source"`
}

// Service defines the configuration management service interface.
type Service interface {
	// Load loads configuration from the specified sources with precedence order.
	Load(ctx context.Context, sources ...Source) (*Config, error)
	// Validate checks if the configuration meets all validation requirements.
	Validate(config *Config) error
	// GetSource returns the source type that provided a specific configuration key.
	GetSource(key string) SourceType
}

// Source defines the interface for configuration sources.
type Source interface {
	Load() (map[string]any, error)
	Type() SourceType
}

// SourceType identifies the type of configuration source.
type SourceType string

const (
	SourceCLI     SourceType = "cli"
	SourceYAML    SourceType = "yaml"
	SourceEnv     SourceType = "env"
	SourceDefault SourceType = "default"
)

// Metadata contains metadata about configuration sources.
type Metadata struct {
	Sources  map[string]SourceType `json:"sources"`
	LoadedAt time.Time             `json:"loaded_at"`
}

// Load loads configuration using the default service.
func Load(ctx context.Context, sources ...Source) (*Config, error) {
	return NewService().Load(ctx, sources...)
}

// Default returns a Config with default values for local development.
func Default() *Config {
	return &Config{
		Generator: GeneratorConfig{
			AdditionalResources: []AdditionalResource{},
			BasePackage:         "io.syndesis.example",
		},
		Maven: MavenConfig{
			Repositories: map[string]string{
				"maven_central": "https://repo.maven.apache.org/maven2",
			},
			AdditionalRepositories: map[string]string{},
		},
		Store: StoreConfig{
			Driver: "memory",
			Redis: RedisConfig{
				Addr:        "localhost:6379",
				Prefix:      "conduit",
				PingTimeout: 5 * time.Second,
			},
			Embedded: EmbeddedStoreConfig{
				SnapshotInterval: 5 * time.Minute,
			},
		},
		FileStore: FileStoreConfig{
			Driver: "memory",
			Root:   "./data",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           5080,
			MetricsEnabled: true,
			Timeout:        30 * time.Second,
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}
