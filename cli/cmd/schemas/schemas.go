package schemas

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/cmd"
	"github.com/compozy/conduit/cli/helpers"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/schemagen"
)

// NewSchemaCommand creates the schema command. With a name it prints that schema; with
// --out it writes all of them to a directory.
func NewSchemaCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "schema [name]",
		Short: "Print or write the JSON schemas of conduit documents",
		Long: fmt.Sprintf(
			"Print the JSON schema of one document type (%s) or write all of them with --out.",
			strings.Join(schemagen.Names(), ", "),
		),
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, run, args)
		},
	}
	c.Flags().String("out", "", "Directory receiving every schema file")
	return c
}

func run(ctx context.Context, c *cobra.Command, _ *config.Config, args []string) error {
	outDir, err := c.Flags().GetString("out")
	if err != nil {
		return err
	}
	switch {
	case outDir != "" && len(args) > 0:
		return helpers.NewCliError("INVALID_FLAG", "--out writes every schema and takes no name")
	case outDir != "":
		files, err := schemagen.Generate(ctx, afero.NewOsFs(), outDir)
		if err != nil {
			return err
		}
		return helpers.WriteData(c.OutOrStdout(), helpers.OutputFormatJSON, map[string]any{"files": files})
	case len(args) == 0:
		return helpers.NewCliError(
			"INVALID_ARGUMENT",
			fmt.Sprintf("a schema name is required: one of %s", strings.Join(schemagen.Names(), ", ")),
		)
	}
	out, err := schemagen.Build(args[0])
	if err != nil {
		return helpers.NewCliError("UNKNOWN_SCHEMA", err.Error())
	}
	_, err = fmt.Fprintln(c.OutOrStdout(), string(out))
	return err
}
