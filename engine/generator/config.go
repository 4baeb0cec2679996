package generator

import (
	"github.com/compozy/conduit/pkg/config"
)

const (
	DefaultProjectVersion    = "0.1-SNAPSHOT"
	DefaultRuntimeVersion    = "1.13.0"
	DefaultSpringBootVersion = "2.3.12.RELEASE"
	DefaultBasePackage       = "io.syndesis.example"
)

// Config is the immutable configuration of a Generator. It is shared by every
// generation call.
type Config struct {
	// OverridePath names the template set searched before the default one.
	OverridePath string
	// TemplateDir is an optional directory layered above the built-in templates.
	TemplateDir         string
	AdditionalResources []config.AdditionalResource
	SecretMasking       bool
	// ActivityTracing renders application.properties from the tracing variant.
	ActivityTracing bool
	BasePackage     string
	Maven           config.MavenConfig

	ProjectVersion    string
	RuntimeVersion    string
	SpringBootVersion string
}

// ConfigFrom maps the application configuration to generator options.
func ConfigFrom(cfg *config.Config) Config {
	if cfg == nil {
		return Config{}
	}
	return Config{
		OverridePath:        cfg.Generator.TemplateOverridePath,
		TemplateDir:         cfg.Generator.TemplateDir,
		AdditionalResources: append([]config.AdditionalResource(nil), cfg.Generator.AdditionalResources...),
		SecretMasking:       cfg.Generator.SecretMaskingEnabled,
		ActivityTracing:     cfg.Generator.ActivityTracingEnabled,
		BasePackage:         cfg.Generator.BasePackage,
		Maven:               cfg.Maven,
	}
}

func (c Config) withDefaults() Config {
	if c.BasePackage == "" {
		c.BasePackage = DefaultBasePackage
	}
	if c.ProjectVersion == "" {
		c.ProjectVersion = DefaultProjectVersion
	}
	if c.RuntimeVersion == "" {
		c.RuntimeVersion = DefaultRuntimeVersion
	}
	if c.SpringBootVersion == "" {
		c.SpringBootVersion = DefaultSpringBootVersion
	}
	return c
}
