package generate

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/gosimple/slug"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/cmd"
	"github.com/compozy/conduit/cli/helpers"
	"github.com/compozy/conduit/engine/extension"
	"github.com/compozy/conduit/engine/filestore"
	"github.com/compozy/conduit/engine/generator"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/engine/resources/importer"
	"github.com/compozy/conduit/pkg/archive"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

const stdoutPath = "-"

type options struct {
	input        string
	output       string
	extensions   []string
	openapis     []string
	resourcesDir string
	properties   bool
}

// NewGenerateCommand creates the generate command.
func NewGenerateCommand() *cobra.Command {
	opts := &options{}
	c := &cobra.Command{
		Use:   "generate",
		Short: "Generate the project of an integration as a tar archive",
		Long: `Generate reads an integration definition (YAML or JSON) and writes the
runnable project tree as a tar archive. Extensions and OpenAPI documents referenced by
the integration are supplied with --extension and --openapi, or imported from a
resources directory.`,
		Example: `  conduit generate -i integration.yaml -o project.tar
  conduit generate -i integration.yaml --mask-secrets --extension ext-1=log-body.jar`,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, func(ctx context.Context, c *cobra.Command, cfg *config.Config, _ []string) error {
				return run(ctx, c, cfg, opts)
			}, args)
		},
	}
	flags := c.Flags()
	flags.StringVarP(&opts.input, "input", "i", "", "Integration definition file")
	flags.StringVarP(&opts.output, "output", "o", "", "Output archive path, - for stdout (default <integration-name>.tar)")
	flags.StringArrayVar(&opts.extensions, "extension", nil, "Extension binary as id=path.jar (repeatable)")
	flags.StringArrayVar(&opts.openapis, "openapi", nil, "OpenAPI document as id=path (repeatable)")
	flags.StringVar(&opts.resourcesDir, "resources-dir", "", "Directory of exported resources to load first")
	flags.BoolVar(&opts.properties, "properties", false, "Print the application properties instead of the archive")
	flags.String("override-path", "", "Named template override set")
	flags.String("template-dir", "", "Directory of template overrides")
	flags.StringArray("additional-resource", nil, "Extra file as source=destination (repeatable)")
	flags.Bool("mask-secrets", false, "Replace secret property values with placeholders")
	flags.Bool("tracing", false, "Enable activity tracing in the generated project")
	flags.String("base-package", "", "Java base package of the generated project")
	flags.String("maven-mirror", "", "Maven mirror written to the settings file")
	_ = c.MarkFlagRequired("input")
	return c
}

func run(ctx context.Context, c *cobra.Command, cfg *config.Config, opts *options) error {
	log := logger.FromContext(ctx)
	integ, err := integration.LoadFile(opts.input)
	if err != nil {
		return err
	}
	m := resources.NewManager(resources.NewMemoryResourceStore(), filestore.NewMemory())
	defer m.Store().Close()
	if err := seed(ctx, m, opts); err != nil {
		return err
	}
	gen, err := generator.New(generator.ConfigFrom(cfg), m)
	if err != nil {
		return err
	}
	if opts.properties {
		props, err := gen.ApplicationProperties(integ)
		if err != nil {
			return err
		}
		return helpers.WriteData(c.OutOrStdout(), helpers.OutputFormatJSON, props.Map())
	}
	out, path, closeOut, err := openOutput(c, opts.output, integ)
	if err != nil {
		return err
	}
	n, err := writeArchive(ctx, gen, integ, out)
	if cerr := closeOut(err != nil); err == nil {
		err = cerr
	}
	if err != nil {
		return err
	}
	log.Info("Project generated", "integration", integ.ID, "output", path, "bytes", n)
	return nil
}

func writeArchive(ctx context.Context, gen *generator.Generator, integ integration.Integration, w io.Writer) (int64, error) {
	sink, errs := archive.ChannelSink()
	stream := gen.Generate(ctx, integ, sink)
	n, err := io.Copy(w, stream)
	if err != nil {
		stream.Close()
		<-stream.Done()
		return n, err
	}
	// a drained stream is only complete once the producer has exited without reporting
	<-stream.Done()
	select {
	case reported := <-errs:
		return n, reported
	default:
	}
	return n, stream.Close()
}

// openOutput returns the archive destination. Failed runs remove a partially written file.
func openOutput(c *cobra.Command, output string, integ integration.Integration) (io.Writer, string, func(failed bool) error, error) {
	if output == stdoutPath {
		return c.OutOrStdout(), "stdout", func(bool) error { return nil }, nil
	}
	if output == "" {
		output = defaultOutput(integ)
	}
	f, err := os.Create(output)
	if err != nil {
		return nil, "", nil, fmt.Errorf("failed to create output file: %w", err)
	}
	return f, output, func(failed bool) error {
		err := f.Close()
		if failed {
			return errors.Join(err, os.Remove(output))
		}
		return err
	}, nil
}

func defaultOutput(integ integration.Integration) string {
	name := slug.Make(integ.Name)
	if name == "" {
		name = slug.Make(integ.ID)
	}
	if name == "" {
		name = "project"
	}
	return name + ".tar"
}

// seed loads the resources the integration refers to into the in-memory manager.
func seed(ctx context.Context, m *resources.Manager, opts *options) error {
	if opts.resourcesDir != "" {
		if _, err := importer.ImportFromDir(ctx, m, afero.NewOsFs(), opts.resourcesDir, importer.OverwriteConflicts); err != nil {
			return fmt.Errorf("failed to import resources: %w", err)
		}
	}
	extensions, err := helpers.ParseAssignments("extension", opts.extensions)
	if err != nil {
		return err
	}
	analyzer := extension.NewJarAnalyzer()
	for id, path := range extensions {
		if err := seedExtension(ctx, m, analyzer, id, path); err != nil {
			return err
		}
	}
	openapis, err := helpers.ParseAssignments("openapi", opts.openapis)
	if err != nil {
		return err
	}
	for id, path := range openapis {
		doc, err := os.ReadFile(path)
		if err != nil {
			return fmt.Errorf("failed to read openapi document %s: %w", id, err)
		}
		if _, err := m.PutOpenAPI(ctx, &integration.OpenAPI{ID: id, Document: doc}); err != nil {
			return err
		}
	}
	return nil
}

func seedExtension(ctx context.Context, m *resources.Manager, analyzer extension.Analyzer, id, path string) error {
	binary, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read extension %s: %w", id, err)
	}
	ext, err := analyzer.Analyze(ctx, binary)
	if err != nil {
		return fmt.Errorf("extension %s: %w", id, err)
	}
	ext.ID = id
	ext.Status = integration.ExtensionInstalled
	if err := m.StoreExtensionBinary(ctx, id, bytes.NewReader(binary)); err != nil {
		return err
	}
	_, err = m.PutExtension(ctx, ext)
	return err
}
