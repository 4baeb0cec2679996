package cli

import (
	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/cmd"
	configcmd "github.com/compozy/conduit/cli/cmd/config"
	"github.com/compozy/conduit/cli/cmd/generate"
	"github.com/compozy/conduit/cli/cmd/resource"
	"github.com/compozy/conduit/cli/cmd/schemas"
	"github.com/compozy/conduit/cli/cmd/start"
	"github.com/compozy/conduit/pkg/version"
)

func RootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "conduit",
		Short:         "Generate runnable projects from integration definitions",
		Version:       version.GetVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(c *cobra.Command, _ []string) error {
			return cmd.Setup(c)
		},
	}
	root.PersistentFlags().String("config", "", "Path to a YAML configuration file")
	root.PersistentFlags().String("env-file", ".env", "Environment file loaded before the configuration")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error, disabled)")
	root.PersistentFlags().Bool("log-json", false, "Log in JSON format")
	root.PersistentFlags().Bool("log-source", false, "Include source locations in logs")
	root.AddCommand(
		generate.NewGenerateCommand(),
		start.NewStartCommand(),
		resource.NewResourcesCommand(),
		schemas.NewSchemaCommand(),
		configcmd.NewConfigCommand(),
	)
	return root
}
