package resources

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/infra/cache"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/redis/go-redis/v9"
)

// RedisResourceStore implements ResourceStore on Redis strings with Pub/Sub watch.
// Values are stored as stable JSON, so Get returns generic decoded JSON.
type RedisResourceStore struct {
	r         cache.RedisInterface
	prefix    string
	reconcile time.Duration
	closed    atomic.Bool
}

type RedisStoreOption func(*RedisResourceStore)

// WithPrefix sets the key prefix (default "conduit").
func WithPrefix(p string) RedisStoreOption {
	return func(s *RedisResourceStore) {
		if p != "" {
			s.prefix = p
		}
	}
}

// WithReconcileInterval sets how often Watch re-emits synthetic PUTs (default 30s).
func WithReconcileInterval(d time.Duration) RedisStoreOption {
	return func(s *RedisResourceStore) {
		s.reconcile = d
	}
}

func NewRedisResourceStore(client cache.RedisInterface, opts ...RedisStoreOption) *RedisResourceStore {
	s := &RedisResourceStore{r: client, prefix: "conduit", reconcile: 30 * time.Second}
	for _, o := range opts {
		o(s)
	}
	return s
}

func etagOf(bs []byte) string {
	sum := sha256.Sum256(bs)
	return hex.EncodeToString(sum[:])
}

func (s *RedisResourceStore) Put(ctx context.Context, key ResourceKey, value any) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return "", fmt.Errorf("store is closed")
	}
	if value == nil {
		return "", fmt.Errorf("nil value is not allowed")
	}
	jsonBytes := core.StableJSONBytes(value)
	if jsonBytes == nil {
		return "", fmt.Errorf("failed to encode %s %q", key.Type, key.ID)
	}
	etag := etagOf(jsonBytes)
	if err := s.r.Set(ctx, s.keyFor(key), jsonBytes, 0).Err(); err != nil {
		return "", err
	}
	evt := Event{Type: EventPut, Key: key, ETag: etag, At: time.Now().UTC()}
	if err := s.publish(ctx, &evt); err != nil {
		logger.FromContext(ctx).Warn("publish put failed", "error", err)
	}
	return etag, nil
}

func (s *RedisResourceStore) Get(ctx context.Context, key ResourceKey) (any, string, error) {
	if err := ctx.Err(); err != nil {
		return nil, "", fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return nil, "", fmt.Errorf("store is closed")
	}
	bs, err := s.r.Get(ctx, s.keyFor(key)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, "", ErrNotFound
		}
		return nil, "", err
	}
	var v any
	if err := json.Unmarshal(bs, &v); err != nil {
		return nil, "", fmt.Errorf("unmarshal failed: %w", err)
	}
	return v, etagOf(bs), nil
}

// getAndDelete removes the key atomically and returns the previous value.
const getAndDelete = "local v=redis.call('GET', KEYS[1]); if v then redis.call('DEL', KEYS[1]); end; return v"

func (s *RedisResourceStore) Delete(ctx context.Context, key ResourceKey) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return fmt.Errorf("store is closed")
	}
	res, err := s.r.Eval(ctx, getAndDelete, []string{s.keyFor(key)}).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}
		return err
	}
	etag := ""
	switch prev := res.(type) {
	case nil:
		return nil
	case string:
		etag = etagOf([]byte(prev))
	case []byte:
		etag = etagOf(prev)
	}
	evt := Event{Type: EventDelete, Key: key, ETag: etag, At: time.Now().UTC()}
	if err := s.publish(ctx, &evt); err != nil {
		logger.FromContext(ctx).Warn("publish delete failed", "error", err)
	}
	return nil
}

// List enumerates keys of a type using SCAN.
func (s *RedisResourceStore) List(ctx context.Context, typ ResourceType) ([]ResourceKey, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	if s.closed.Load() {
		return nil, fmt.Errorf("store is closed")
	}
	pattern := s.keyPrefix(typ) + ":*"
	var cursor uint64
	res := make([]ResourceKey, 0, 64)
	for {
		keys, next, err := s.r.Scan(ctx, cursor, pattern, 256).Result()
		if err != nil {
			return nil, err
		}
		for _, full := range keys {
			if rk, ok := s.parseKey(full); ok {
				res = append(res, rk)
			}
		}
		cursor = next
		if cursor == 0 {
			break
		}
	}
	return res, nil
}

// Watch subscribes to events of a type. It primes the channel with the current items and
// re-primes on every reconcile tick to cover messages lost while disconnected.
func (s *RedisResourceStore) Watch(ctx context.Context, typ ResourceType) (<-chan Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context canceled: %w", err)
	}
	log := logger.FromContext(ctx)
	if s.closed.Load() {
		return nil, fmt.Errorf("store is closed")
	}
	ch := make(chan Event, defaultWatchBuffer)
	ps := s.r.Subscribe(ctx, s.eventsChannel(typ))
	if _, err := ps.Receive(ctx); err != nil {
		_ = ps.Close()
		return nil, fmt.Errorf("subscribe failed: %w", err)
	}
	prime := func() {
		keys, err := s.List(ctx, typ)
		if err != nil {
			log.Warn("prime list failed", "error", err)
			return
		}
		for _, k := range keys {
			_, et, err := s.Get(ctx, k)
			if err != nil {
				continue
			}
			select {
			case ch <- Event{Type: EventPut, Key: k, ETag: et, At: time.Now().UTC()}:
			default:
				log.Warn("watch channel full during prime", "type", string(typ))
			}
		}
	}
	prime()
	go func() {
		defer close(ch)
		defer func() { _ = ps.Close() }()
		ticker := time.NewTicker(s.reconcile)
		defer ticker.Stop()
		msgs := ps.Channel()
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				prime()
			case m, ok := <-msgs:
				if !ok {
					return
				}
				var evt Event
				if err := json.Unmarshal([]byte(m.Payload), &evt); err != nil {
					log.Warn("event decode failed", "error", err)
					continue
				}
				select {
				case ch <- evt:
				default:
					log.Warn("watch channel full; dropping event", "type", string(typ))
				}
			}
		}
	}()
	return ch, nil
}

// Close closes the underlying client; watchers end when their contexts are canceled.
func (s *RedisResourceStore) Close() error {
	if !s.closed.CompareAndSwap(false, true) {
		return nil
	}
	return s.r.Close()
}

func (s *RedisResourceStore) publish(ctx context.Context, evt *Event) error {
	payload, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.r.Publish(ctx, s.eventsChannel(evt.Key.Type), payload).Err()
}

func (s *RedisResourceStore) keyFor(k ResourceKey) string {
	return s.keyPrefix(k.Type) + ":" + k.ID
}

func (s *RedisResourceStore) keyPrefix(typ ResourceType) string {
	return s.prefix + ":res:" + string(typ)
}

func (s *RedisResourceStore) eventsChannel(typ ResourceType) string {
	return s.prefix + ":events:" + string(typ)
}

func (s *RedisResourceStore) parseKey(full string) (ResourceKey, bool) {
	rest, ok := strings.CutPrefix(full, s.prefix+":res:")
	if !ok {
		return ResourceKey{}, false
	}
	typ, id, ok := strings.Cut(rest, ":")
	if !ok || id == "" {
		return ResourceKey{}, false
	}
	return ResourceKey{Type: ResourceType(typ), ID: id}, true
}
