package resource

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/cmd"
	"github.com/compozy/conduit/cli/helpers"
	"github.com/compozy/conduit/engine/infra/server"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/engine/resources/exporter"
	"github.com/compozy/conduit/engine/resources/importer"
	"github.com/compozy/conduit/pkg/config"
)

// NewResourcesCommand creates the resources command, which moves stored integrations,
// extensions, api contracts and deployments between the configured store and a directory.
func NewResourcesCommand() *cobra.Command {
	c := &cobra.Command{
		Use:     "resources",
		Aliases: []string{"resource"},
		Short:   "Import and export stored resources",
	}
	c.PersistentFlags().String("store-driver", "", "Resource store driver (memory, redis, embedded)")
	c.PersistentFlags().String("data-dir", "", "Snapshot directory of the embedded store")
	c.PersistentFlags().String("filestore-driver", "", "Filestore driver (memory, os)")
	c.PersistentFlags().String("filestore-root", "", "Root directory of the os filestore")
	c.PersistentFlags().String("dir", "", "Directory holding one sub-directory per resource type")
	c.PersistentFlags().String("type", "", "Restrict to one resource type (integration, extension, openapi, deployment)")
	_ = c.MarkPersistentFlagRequired("dir")
	c.AddCommand(newExportCommand(), newImportCommand())
	return c
}

func newExportCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "export",
		Short: "Write stored resources as files",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runExport, args)
		},
	}
}

func newImportCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "import",
		Short: "Store the resources found in a directory",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, runImport, args)
		},
	}
	c.Flags().String(
		"strategy", string(importer.SeedOnly),
		"Conflict handling (seed_only, overwrite_conflicts)",
	)
	return c
}

// selection reads the shared flags.
func selection(c *cobra.Command) (string, resources.ResourceType, error) {
	dir, err := c.Flags().GetString("dir")
	if err != nil {
		return "", "", err
	}
	raw, err := c.Flags().GetString("type")
	if err != nil {
		return "", "", err
	}
	if raw == "" {
		return dir, "", nil
	}
	typ := resources.ResourceType(raw)
	if _, ok := resources.DirForType(typ); !ok {
		return "", "", helpers.NewCliError("INVALID_FLAG", fmt.Sprintf("unsupported --type %q", raw))
	}
	return dir, typ, nil
}

func runExport(ctx context.Context, c *cobra.Command, cfg *config.Config, _ []string) error {
	dir, typ, err := selection(c)
	if err != nil {
		return err
	}
	m, cleanup, err := server.SetupResources(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	var res *exporter.Result
	if typ == "" {
		res, err = exporter.ExportToDir(ctx, m, afero.NewOsFs(), dir)
	} else {
		res, err = exporter.ExportTypeToDir(ctx, m, afero.NewOsFs(), dir, typ)
	}
	if err != nil {
		return err
	}
	return helpers.WriteData(c.OutOrStdout(), helpers.OutputFormatJSON, map[string]any{
		"dir":      dir,
		"written":  res.Written,
		"binaries": res.Binaries,
	})
}

func runImport(ctx context.Context, c *cobra.Command, cfg *config.Config, _ []string) error {
	dir, typ, err := selection(c)
	if err != nil {
		return err
	}
	raw, err := c.Flags().GetString("strategy")
	if err != nil {
		return err
	}
	strategy := importer.Strategy(raw)
	if !strategy.Valid() {
		return helpers.NewCliError("INVALID_FLAG", fmt.Sprintf("unsupported --strategy %q", raw))
	}
	m, cleanup, err := server.SetupResources(ctx, cfg)
	if err != nil {
		return err
	}
	defer cleanup()
	var res *importer.Result
	if typ == "" {
		res, err = importer.ImportFromDir(ctx, m, afero.NewOsFs(), dir, strategy)
	} else {
		res, err = importer.ImportTypeFromDir(ctx, m, afero.NewOsFs(), dir, strategy, typ)
	}
	if err != nil {
		return err
	}
	return helpers.WriteData(c.OutOrStdout(), helpers.OutputFormatJSON, map[string]any{
		"dir":         dir,
		"strategy":    strategy,
		"imported":    res.Imported,
		"skipped":     res.Skipped,
		"overwritten": res.Overwritten,
		"binaries":    res.Binaries,
	})
}
