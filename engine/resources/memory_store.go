package resources

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/pkg/logger"
)

// MemoryResourceStore is an in-memory ResourceStore for the CLI, dev servers and tests.
type MemoryResourceStore struct {
	mu       sync.RWMutex
	items    map[ResourceKey]storedEntry
	watchers map[ResourceType][]*watcher
	closed   bool
}

type storedEntry struct {
	value any
	etag  string
}

type watcher struct {
	ch     chan Event
	closed bool
}

const defaultWatchBuffer = 64

func NewMemoryResourceStore() *MemoryResourceStore {
	return &MemoryResourceStore{
		items:    make(map[ResourceKey]storedEntry),
		watchers: make(map[ResourceType][]*watcher),
	}
}

func (s *MemoryResourceStore) Put(ctx context.Context, key ResourceKey, value any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	if value == nil {
		return "", fmt.Errorf("nil value is not allowed")
	}
	cp, err := core.DeepCopy[any](value)
	if err != nil {
		return "", fmt.Errorf("deep copy failed: %w", err)
	}
	etag := core.ETagFromAny(cp)
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return "", fmt.Errorf("store is closed")
	}
	s.items[key] = storedEntry{value: cp, etag: etag}
	// broadcast under the lock so Close cannot close a channel mid send
	s.broadcastLocked(ctx, Event{Type: EventPut, Key: key, ETag: etag, At: time.Now().UTC()})
	return etag, nil
}

func (s *MemoryResourceStore) Get(ctx context.Context, key ResourceKey) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("context canceled: %w", err)
	}
	s.mu.RLock()
	if s.closed {
		s.mu.RUnlock()
		return nil, "", fmt.Errorf("store is closed")
	}
	entry, ok := s.items[key]
	s.mu.RUnlock()
	if !ok {
		return nil, "", ErrNotFound
	}
	cp, err := core.DeepCopy[any](entry.value)
	if err != nil {
		return nil, "", fmt.Errorf("deep copy failed: %w", err)
	}
	return cp, entry.etag, nil
}

func (s *MemoryResourceStore) Delete(ctx context.Context, key ResourceKey) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return fmt.Errorf("store is closed")
	}
	entry, ok := s.items[key]
	if !ok {
		return nil
	}
	delete(s.items, key)
	s.broadcastLocked(ctx, Event{Type: EventDelete, Key: key, ETag: entry.etag, At: time.Now().UTC()})
	return nil
}

func (s *MemoryResourceStore) broadcastLocked(ctx context.Context, evt Event) {
	for _, w := range s.watchers[evt.Key.Type] {
		if w.closed {
			continue
		}
		select {
		case w.ch <- evt:
		default:
			logger.FromContext(ctx).Warn(
				"watch channel full; dropping event",
				"type", string(evt.Key.Type),
				"id", evt.Key.ID,
			)
		}
	}
}

func (s *MemoryResourceStore) List(ctx context.Context, typ ResourceType) ([]ResourceKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		return nil, fmt.Errorf("store is closed")
	}
	keys := make([]ResourceKey, 0, len(s.items))
	for k := range s.items {
		if k.Type == typ {
			keys = append(keys, k)
		}
	}
	return keys, nil
}

func (s *MemoryResourceStore) Watch(ctx context.Context, typ ResourceType) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	log := logger.FromContext(ctx)
	ch := make(chan Event, defaultWatchBuffer)
	w := &watcher{ch: ch}
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil, fmt.Errorf("store is closed")
	}
	s.watchers[typ] = append(s.watchers[typ], w)
	for k, entry := range s.items {
		if k.Type != typ {
			continue
		}
		select {
		case ch <- Event{Type: EventPut, Key: k, ETag: entry.etag, At: time.Now().UTC()}:
		default:
			log.Warn("watch channel full during prime; dropping event", "type", string(typ), "id", k.ID)
		}
	}
	s.mu.Unlock()
	go func() {
		<-ctx.Done()
		s.removeWatcher(typ, w)
	}()
	return ch, nil
}

// Close releases resources and closes all watcher channels.
func (s *MemoryResourceStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	for _, list := range s.watchers {
		for _, w := range list {
			if !w.closed {
				close(w.ch)
				w.closed = true
			}
		}
	}
	s.watchers = make(map[ResourceType][]*watcher)
	s.items = make(map[ResourceKey]storedEntry)
	return nil
}

func (s *MemoryResourceStore) removeWatcher(typ ResourceType, target *watcher) {
	s.mu.Lock()
	defer s.mu.Unlock()
	list := s.watchers[typ]
	for i, w := range list {
		if w == target {
			list = append(list[:i:i], list[i+1:]...)
			break
		}
	}
	if len(list) == 0 {
		delete(s.watchers, typ)
	} else {
		s.watchers[typ] = list
	}
	if !target.closed {
		close(target.ch)
		target.closed = true
	}
}
