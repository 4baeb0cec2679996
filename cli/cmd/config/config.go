package config

import (
	"context"
	"fmt"
	"io"
	"sort"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/cmd"
	"github.com/compozy/conduit/cli/helpers"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

const formatTable = "table"

// NewConfigCommand creates the config command
func NewConfigCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "config",
		Short: "Configuration inspection and validation",
	}
	c.AddCommand(newShowCommand(), newValidateCommand())
	return c
}

func newShowCommand() *cobra.Command {
	c := &cobra.Command{
		Use:   "show",
		Short: "Show the effective configuration",
		Long: `Display the configuration after defaults, the --config file, flags and
CONDUIT_ environment variables were applied. Secrets are redacted.`,
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, handleShow, args)
		},
	}
	c.Flags().StringP("format", "f", formatTable, "Output format (json, yaml, table)")
	return c
}

func handleShow(ctx context.Context, c *cobra.Command, cfg *config.Config, _ []string) error {
	logger.FromContext(ctx).Debug("executing config show command")
	format, err := c.Flags().GetString("format")
	if err != nil {
		return fmt.Errorf("failed to get format flag: %w", err)
	}
	flat, err := config.Flatten(cfg)
	if err != nil {
		return err
	}
	if format == formatTable {
		return writeTable(c.OutOrStdout(), flat)
	}
	return helpers.WriteData(c.OutOrStdout(), helpers.OutputFormat(format), flat)
}

func writeTable(w io.Writer, flat map[string]any) error {
	keys := make([]string, 0, len(flat))
	for k := range flat {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tVALUE")
	for _, k := range keys {
		fmt.Fprintf(tw, "%s\t%v\n", k, flat[k])
	}
	return tw.Flush()
}

// validationResult is printed by config validate.
type validationResult struct {
	Valid   bool   `json:"valid"`
	File    string `json:"file,omitempty"`
	Message string `json:"message"`
}

func newValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate [file]",
		Short: "Validate a configuration file",
		Long: `Load the given YAML file on top of the defaults and the environment and report
whether the result passes validation. Without a file the active configuration is checked.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, handleValidate, args)
		},
	}
}

func handleValidate(ctx context.Context, c *cobra.Command, cfg *config.Config, args []string) error {
	res := validationResult{Valid: true, Message: "Configuration is valid"}
	var err error
	if len(args) == 1 {
		res.File = args[0]
		_, err = config.Load(ctx, config.NewYAMLProvider(args[0]))
	} else {
		err = config.NewService().Validate(cfg)
	}
	if err != nil {
		res.Valid = false
		res.Message = err.Error()
	}
	if werr := helpers.WriteData(c.OutOrStdout(), helpers.OutputFormatJSON, res); werr != nil {
		return werr
	}
	if !res.Valid {
		return helpers.NewCliError("INVALID_CONFIG", "configuration validation failed")
	}
	return nil
}
