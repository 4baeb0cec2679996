// Package schemagen produces the JSON schemas of the documents conduit reads: integration
// files, extension descriptors and the configuration file.
package schemagen

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"runtime"
	"sort"

	"github.com/invopop/jsonschema"
	"github.com/spf13/afero"
	"golang.org/x/sync/errgroup"

	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

const draft07 = "http://json-schema.org/draft-07/schema#"

type schemaDefinition struct {
	name   string
	title  string
	source any
}

func (d schemaDefinition) fileName() string {
	return d.name + ".json"
}

var schemaDefinitions = []schemaDefinition{
	{name: "integration", title: "Integration", source: &integration.Integration{}},
	{name: "extension", title: "Extension descriptor", source: &integration.Extension{}},
	{name: "config", title: "Conduit configuration", source: &config.Config{}},
}

// Names lists the schemas Build accepts, sorted.
func Names() []string {
	out := make([]string, 0, len(schemaDefinitions))
	for _, d := range schemaDefinitions {
		out = append(out, d.name)
	}
	sort.Strings(out)
	return out
}

func newJSONSchemaReflector() *jsonschema.Reflector {
	return &jsonschema.Reflector{
		RequiredFromJSONSchemaTags: true,
		AllowAdditionalProperties:  true,
	}
}

// Build returns the indented schema named name.
func Build(name string) ([]byte, error) {
	for _, d := range schemaDefinitions {
		if d.name == name {
			return buildSchema(d)
		}
	}
	return nil, fmt.Errorf("unknown schema %q", name)
}

func buildSchema(definition schemaDefinition) ([]byte, error) {
	reflector := newJSONSchemaReflector()
	// config structs only carry koanf tags
	if _, ok := definition.source.(*config.Config); ok {
		reflector.FieldNameTag = "koanf"
	}
	schema := reflector.Reflect(definition.source)
	schema.ID = jsonschema.ID(definition.fileName())
	schema.Version = draft07
	schema.Title = definition.title
	schema.Extras = map[string]any{"yamlCompatible": true}
	out, err := json.MarshalIndent(schema, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal schema: %w", err)
	}
	return out, nil
}

// Generate writes every schema under outDir on fsys.
func Generate(ctx context.Context, fsys afero.Fs, outDir string) ([]string, error) {
	log := logger.FromContext(ctx)
	if err := fsys.MkdirAll(outDir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}
	files := make([]string, len(schemaDefinitions))
	group, _ := errgroup.WithContext(ctx)
	group.SetLimit(runtime.GOMAXPROCS(0))
	for i, definition := range schemaDefinitions {
		group.Go(func() error {
			schemaJSON, err := buildSchema(definition)
			if err != nil {
				return fmt.Errorf("failed to build schema for %s: %w", definition.name, err)
			}
			filePath := path.Join(outDir, definition.fileName())
			if err := afero.WriteFile(fsys, filePath, schemaJSON, 0o644); err != nil {
				return fmt.Errorf("failed to write schema to %s: %w", filePath, err)
			}
			files[i] = filePath
			log.Debug("Generated schema", "file", filePath)
			return nil
		})
	}
	if err := group.Wait(); err != nil {
		return nil, err
	}
	log.Info("Generated JSON schemas", "dir", outDir, "count", len(files))
	return files, nil
}
