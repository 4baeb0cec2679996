package resources

import (
	"context"
	"errors"
	"time"
)

// ResourceType identifies the category of a stored resource.
type ResourceType string

const (
	ResourceIntegration ResourceType = "integration"
	ResourceExtension   ResourceType = "extension"
	ResourceOpenAPI     ResourceType = "openapi"
	ResourceConnector   ResourceType = "connector"
	ResourceDeployment  ResourceType = "deployment"
)

// ResourceKey uniquely identifies a resource within its type.
type ResourceKey struct {
	Type ResourceType `json:"type"`
	ID   string       `json:"id"`
}

type EventType string

const (
	EventPut    EventType = "put"
	EventDelete EventType = "delete"
)

// Event describes a change in the store for watchers.
// ETag is a deterministic content hash for the affected value.
type Event struct {
	Type EventType   `json:"type"`
	Key  ResourceKey `json:"key"`
	ETag string      `json:"etag"`
	At   time.Time   `json:"at"`
}

// ResourceStore is a key value store of domain documents keyed by logical id.
// Implementations must be safe for concurrent use and must not share state with callers:
// values are copied on Put and Get.
type ResourceStore interface {
	// Put inserts or replaces a value and returns its ETag.
	Put(ctx context.Context, key ResourceKey, value any) (etag string, err error)

	// Get returns (nil, "", ErrNotFound) for missing keys.
	Get(ctx context.Context, key ResourceKey) (value any, etag string, err error)

	// Delete is idempotent.
	Delete(ctx context.Context, key ResourceKey) error

	List(ctx context.Context, typ ResourceType) ([]ResourceKey, error)

	// Watch streams events for a type until ctx is done, starting with a synthetic PUT
	// for every current item.
	Watch(ctx context.Context, typ ResourceType) (<-chan Event, error)

	Close() error
}

var ErrNotFound = errors.New("resource not found")
