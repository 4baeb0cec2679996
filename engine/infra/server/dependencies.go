package server

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/afero"

	"github.com/compozy/conduit/engine/extension"
	"github.com/compozy/conduit/engine/filestore"
	"github.com/compozy/conduit/engine/generator"
	"github.com/compozy/conduit/engine/infra/cache"
	"github.com/compozy/conduit/engine/infra/server/appstate"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

const (
	driverMemory   = "memory"
	driverRedis    = "redis"
	driverEmbedded = "embedded"
)

// SetupResources builds the resource manager selected by cfg.Store and cfg.FileStore.
// The returned cleanup releases the store and any Redis connection in reverse order.
func SetupResources(ctx context.Context, cfg *config.Config) (*resources.Manager, func(), error) {
	if cfg == nil {
		return nil, nil, fmt.Errorf("configuration is required")
	}
	log := logger.FromContext(ctx)
	var cleanups []func()
	cleanup := func() {
		for i := len(cleanups) - 1; i >= 0; i-- {
			cleanups[i]()
		}
	}
	start := time.Now()
	store, storeCleanup, err := setupStore(ctx, &cfg.Store)
	if err != nil {
		return nil, nil, err
	}
	cleanups = append(cleanups, storeCleanup)
	files, err := filestore.FromConfig(ctx, &cfg.FileStore)
	if err != nil {
		cleanup()
		return nil, nil, fmt.Errorf("failed to setup filestore: %w", err)
	}
	log.Info("Resource store initialized",
		"store_driver", storeDriver(&cfg.Store),
		"filestore_driver", cfg.FileStore.Driver,
		"duration", time.Since(start),
	)
	return resources.NewManager(store, files), cleanup, nil
}

func storeDriver(cfg *config.StoreConfig) string {
	if cfg.Driver == "" {
		return driverMemory
	}
	return cfg.Driver
}

func setupStore(ctx context.Context, cfg *config.StoreConfig) (resources.ResourceStore, func(), error) {
	log := logger.FromContext(ctx)
	switch storeDriver(cfg) {
	case driverMemory:
		store := resources.NewMemoryResourceStore()
		return store, func() { closeStore(ctx, store) }, nil
	case driverRedis:
		client, err := cache.NewRedis(ctx, &cfg.Redis)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to connect to redis: %w", err)
		}
		store := resources.NewRedisResourceStore(client, resources.WithPrefix(cfg.Redis.Prefix))
		return store, func() {
			closeStore(ctx, store)
			if err := client.Close(); err != nil {
				log.Warn("Failed to close redis client", "error", err)
			}
		}, nil
	case driverEmbedded:
		embedded, err := cache.NewMiniredisEmbedded(ctx, cfg.Embedded, afero.NewOsFs())
		if err != nil {
			return nil, nil, fmt.Errorf("failed to start embedded store: %w", err)
		}
		store := resources.NewRedisResourceStore(embedded.Client(), resources.WithPrefix(cfg.Redis.Prefix))
		return store, func() {
			closeStore(ctx, store)
			if err := embedded.Close(); err != nil {
				log.Warn("Failed to stop embedded store", "error", err)
			}
		}, nil
	default:
		return nil, nil, fmt.Errorf("unsupported store driver %q", cfg.Driver)
	}
}

func closeStore(ctx context.Context, store resources.ResourceStore) {
	if err := store.Close(); err != nil {
		logger.FromContext(ctx).Warn("Failed to close resource store", "error", err)
	}
}

// NewState wires the generator and the extension service over m.
func NewState(cfg *config.Config, m *resources.Manager) (*appstate.State, error) {
	gen, err := generator.New(generator.ConfigFrom(cfg), m)
	if err != nil {
		return nil, fmt.Errorf("failed to create generator: %w", err)
	}
	return appstate.NewState(cfg, m, gen, extension.NewService(m, nil))
}

func (s *Server) setupDependencies() (*appstate.State, error) {
	m, cleanup, err := SetupResources(s.ctx, s.cfg)
	if err != nil {
		return nil, err
	}
	s.addCleanup(cleanup)
	state, err := NewState(s.cfg, m)
	if err != nil {
		return nil, err
	}
	if s.cfg.Server.MetricsEnabled {
		s.monitoring = setupMonitoring(s.ctx, s.cfg)
		s.addCleanup(func() {
			ctx, cancel := context.WithTimeout(context.WithoutCancel(s.ctx), monitoringShutdownTimeout)
			defer cancel()
			if err := s.monitoring.Shutdown(ctx); err != nil {
				logger.FromContext(s.ctx).Error("Failed to shutdown monitoring service", "error", err)
			}
		})
	}
	stop := watchResources(s.ctx, m.Store())
	s.addCleanup(stop)
	return state, nil
}
