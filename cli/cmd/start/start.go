package start

import (
	"context"
	"fmt"
	"net"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/compozy/conduit/cli/cmd"
	"github.com/compozy/conduit/engine/infra/server"
	"github.com/compozy/conduit/engine/resources/importer"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

type options struct {
	seedDir      string
	seedStrategy string
}

// NewStartCommand creates the serve command.
func NewStartCommand() *cobra.Command {
	opts := &options{}
	c := &cobra.Command{
		Use:     "serve",
		Aliases: []string{"start", "server"},
		Short:   "Start the extension and project export API",
		RunE: func(c *cobra.Command, args []string) error {
			return cmd.ExecuteCommand(c, func(ctx context.Context, _ *cobra.Command, cfg *config.Config, _ []string) error {
				return run(ctx, cfg, opts)
			}, args)
		},
	}
	c.Flags().String("host", "", "Address to listen on")
	c.Flags().Int("port", 0, "Port to listen on")
	c.Flags().String("store-driver", "", "Resource store driver (memory, redis, embedded)")
	c.Flags().String("data-dir", "", "Snapshot directory of the embedded store")
	c.Flags().String("filestore-driver", "", "Filestore driver (memory, os)")
	c.Flags().String("filestore-root", "", "Root directory of the os filestore")
	c.Flags().StringVar(&opts.seedDir, "seed-dir", "", "Directory of resources imported before serving")
	c.Flags().StringVar(
		&opts.seedStrategy, "seed-strategy", string(importer.SeedOnly),
		"Conflict handling of --seed-dir (seed_only, overwrite_conflicts)",
	)
	return c
}

func run(ctx context.Context, cfg *config.Config, opts *options) error {
	strategy := importer.Strategy(opts.seedStrategy)
	if !strategy.Valid() {
		return fmt.Errorf("invalid --seed-strategy %q: must be one of [seed_only overwrite_conflicts]", opts.seedStrategy)
	}
	if !portAvailable(cfg.Server.Host, cfg.Server.Port) {
		return fmt.Errorf("port %d is not available on host %s", cfg.Server.Port, cfg.Server.Host)
	}
	gin.SetMode(gin.ReleaseMode)
	logger.FromContext(ctx).Info("Starting conduit server", "store", cfg.Store.Driver, "filestore", cfg.FileStore.Driver)
	srv, err := server.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}
	if err := srv.Setup(); err != nil {
		return err
	}
	if opts.seedDir != "" {
		state, err := srv.State()
		if err != nil {
			srv.Shutdown()
			return err
		}
		if _, err := importer.ImportFromDir(ctx, state.Resources, afero.NewOsFs(), opts.seedDir, strategy); err != nil {
			srv.Shutdown()
			return fmt.Errorf("failed to seed resources: %w", err)
		}
	}
	return srv.Run()
}

func portAvailable(host string, port int) bool {
	ln, err := net.Listen("tcp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return false
	}
	_ = ln.Close()
	return true
}
