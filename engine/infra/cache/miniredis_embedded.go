package cache

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/spf13/afero"

	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
)

// MiniredisEmbedded runs an in-process Redis server for single node deployments. The
// keyspace survives restarts when a data directory is configured.
type MiniredisEmbedded struct {
	server    *miniredis.Miniredis
	client    *Redis
	snapshots *SnapshotManager
	closeOnce sync.Once
	ctx       context.Context
}

// NewMiniredisEmbedded starts the server, restores the last snapshot and connects a
// client to it.
func NewMiniredisEmbedded(ctx context.Context, cfg config.EmbeddedStoreConfig, fsys afero.Fs) (*MiniredisEmbedded, error) {
	log := logger.FromContext(ctx).With("component", "embedded_redis")
	ctx = logger.ContextWithLogger(ctx, log)
	server := miniredis.NewMiniRedis()
	if err := server.Start(); err != nil {
		return nil, fmt.Errorf("start embedded redis: %w", err)
	}
	e := &MiniredisEmbedded{server: server, ctx: ctx}
	if cfg.DataDir != "" {
		snapshots, err := NewSnapshotManager(server, fsys, cfg.DataDir)
		if err != nil {
			server.Close()
			return nil, err
		}
		if err := snapshots.Restore(ctx); err != nil {
			server.Close()
			return nil, err
		}
		snapshots.StartPeriodicSnapshots(ctx, cfg.SnapshotInterval)
		e.snapshots = snapshots
	}
	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	if err := pingRedis(ctx, client, fallbackRedisPingTimeout); err != nil {
		e.snapshots.Stop()
		client.Close()
		server.Close()
		return nil, err
	}
	e.client = &Redis{client: client, ctx: ctx}
	log.Info("Embedded Redis started", "addr", server.Addr(), "persistent", e.snapshots != nil)
	return e, nil
}

func (e *MiniredisEmbedded) Client() *Redis {
	return e.client
}

func (e *MiniredisEmbedded) Addr() string {
	return e.server.Addr()
}

func (e *MiniredisEmbedded) Snapshots() *SnapshotManager {
	return e.snapshots
}

// Close takes a final snapshot and stops the server.
func (e *MiniredisEmbedded) Close() error {
	var errs []error
	e.closeOnce.Do(func() {
		if e.snapshots != nil {
			e.snapshots.Stop()
			if err := e.snapshots.Snapshot(context.WithoutCancel(e.ctx)); err != nil {
				errs = append(errs, fmt.Errorf("final snapshot: %w", err))
			}
		}
		if err := e.client.Close(); err != nil {
			errs = append(errs, err)
		}
		e.server.Close()
	})
	return errors.Join(errs...)
}
