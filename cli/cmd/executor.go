package cmd

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/helpers"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

// HandlerFunc runs a command with the loaded configuration.
type HandlerFunc func(ctx context.Context, cmd *cobra.Command, cfg *config.Config, args []string) error

// ExecuteCommand runs handler with a context canceled on SIGINT/SIGTERM and reports
// failures as structured errors on stderr.
func ExecuteCommand(cmd *cobra.Command, handler HandlerFunc, args []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return HandleCommonErrors(cmd, handler(ctx, cmd, config.FromContext(ctx), args))
}

// HandleCommonErrors prints err as JSON to the command's error stream.
func HandleCommonErrors(cmd *cobra.Command, err error) error {
	if err == nil {
		return nil
	}
	cliErr := helpers.CategorizeError(err)
	logger.FromContext(cmd.Context()).Debug("Command failed", "code", cliErr.Code, "error", err)
	if werr := helpers.WriteData(cmd.ErrOrStderr(), helpers.OutputFormatJSON, map[string]any{"error": cliErr}); werr != nil {
		return err
	}
	return cliErr
}

// Setup loads the configuration from defaults, the --config file, changed flags and the
// environment, then attaches it and a logger to the command context. Variables from
// --env-file are added to the environment without overriding it.
func Setup(cmd *cobra.Command) error {
	if err := loadEnvFile(cmd); err != nil {
		return err
	}
	var sources []config.Source
	if path, err := cmd.Flags().GetString("config"); err == nil && path != "" {
		sources = append(sources, config.NewYAMLProvider(path))
	}
	flags, err := helpers.ConfigFlags(cmd)
	if err != nil {
		return err
	}
	sources = append(sources, config.NewCLIProvider(flags))
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg, err := config.Load(ctx, sources...)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}
	log := logger.SetupLogger(cfg.Log.Level, cfg.Log.JSON, cfg.Log.Source)
	ctx = logger.ContextWithLogger(ctx, log)
	cmd.SetContext(config.ContextWithConfig(ctx, cfg))
	return nil
}

func loadEnvFile(cmd *cobra.Command) error {
	path, err := cmd.Flags().GetString("env-file")
	if err != nil || path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) && !cmd.Flags().Changed("env-file") {
			return nil
		}
		return fmt.Errorf("failed to load env file %s: %w", path, err)
	}
	return nil
}
