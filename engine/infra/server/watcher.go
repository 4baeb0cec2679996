package server

import (
	"context"
	"sync"

	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/logger"
)

// watchResources logs extension and integration changes until the returned stop
// function is called.
func watchResources(ctx context.Context, store resources.ResourceStore) func() {
	ctx, cancel := context.WithCancel(ctx)
	log := logger.FromContext(ctx).With("component", "resource_watcher")
	var wg sync.WaitGroup
	for _, typ := range []resources.ResourceType{resources.ResourceExtension, resources.ResourceIntegration} {
		events, err := store.Watch(ctx, typ)
		if err != nil {
			log.Warn("Failed to watch resources", "type", typ, "error", err)
			continue
		}
		wg.Add(1)
		go func() {
			defer wg.Done()
			// the initial synthetic puts replay the current items
			for evt := range events {
				log.Debug("Resource changed",
					"type", evt.Key.Type,
					"id", evt.Key.ID,
					"event", evt.Type,
					"etag", evt.ETag,
				)
			}
		}()
	}
	return func() {
		cancel()
		wg.Wait()
	}
}
