package resources

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/filestore"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/resources/metrics"
	"github.com/compozy/conduit/pkg/logger"
)

// Manager gives typed access to the documents and binaries the generator and the
// extension service read.
type Manager struct {
	store ResourceStore
	files *filestore.FileStore
}

func NewManager(store ResourceStore, files *filestore.FileStore) *Manager {
	return &Manager{store: store, files: files}
}

func (m *Manager) Store() ResourceStore {
	return m.store
}

func (m *Manager) Files() *filestore.FileStore {
	return m.files
}

// ExtensionLocation is the filestore location of an extension binary.
func ExtensionLocation(id string) string {
	return "/extensions/" + id
}

func notFound(typ ResourceType, id string) error {
	return core.NewError(fmt.Errorf("%s %q: %w", typ, id, ErrNotFound), core.CodeNotFound, map[string]any{
		"type": string(typ),
		"id":   id,
	})
}

// decode accepts either the typed value kept by the memory store or the generic JSON
// returned by the redis store.
func decode[T any](v any) (T, error) {
	if typed, ok := v.(T); ok {
		return typed, nil
	}
	if ptr, ok := v.(*T); ok && ptr != nil {
		return *ptr, nil
	}
	var out T
	raw, err := json.Marshal(v)
	if err != nil {
		return out, fmt.Errorf("failed to encode stored value: %w", err)
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, fmt.Errorf("failed to decode stored value as %T: %w", out, err)
	}
	return out, nil
}

func load[T any](ctx context.Context, m *Manager, typ ResourceType, id string) (T, error) {
	var zero T
	op := metrics.StartOperation(ctx, metrics.OperationGet, string(typ))
	v, _, err := m.store.Get(ctx, ResourceKey{Type: typ, ID: id})
	if err != nil {
		op.End(err)
		if errors.Is(err, ErrNotFound) {
			return zero, notFound(typ, id)
		}
		return zero, fmt.Errorf("failed to load %s %q: %w", typ, id, err)
	}
	out, err := decode[T](v)
	op.End(err)
	if err != nil {
		return zero, fmt.Errorf("failed to load %s %q: %w", typ, id, err)
	}
	return out, nil
}

func put(ctx context.Context, m *Manager, typ ResourceType, id string, value any) (string, error) {
	if id == "" {
		return "", core.Errorf(core.CodeInvalidInput, "%s id is required", typ)
	}
	op := metrics.StartOperation(ctx, metrics.OperationPut, string(typ))
	etag, err := m.store.Put(ctx, ResourceKey{Type: typ, ID: id}, value)
	op.End(err)
	if err != nil {
		return "", fmt.Errorf("failed to store %s %q: %w", typ, id, err)
	}
	logger.FromContext(ctx).Debug("Stored resource", "type", string(typ), "id", id, "etag", etag)
	return etag, nil
}

func list[T any](ctx context.Context, m *Manager, typ ResourceType) ([]T, error) {
	op := metrics.StartOperation(ctx, metrics.OperationList, string(typ))
	keys, err := m.store.List(ctx, typ)
	if err != nil {
		op.End(err)
		return nil, fmt.Errorf("failed to list %s: %w", typ, err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	out := make([]T, 0, len(keys))
	for _, k := range keys {
		v, _, err := m.store.Get(ctx, k)
		if errors.Is(err, ErrNotFound) {
			// deleted between List and Get
			continue
		}
		if err != nil {
			op.End(err)
			return nil, fmt.Errorf("failed to load %s %q: %w", typ, k.ID, err)
		}
		item, err := decode[T](v)
		if err != nil {
			op.End(err)
			return nil, err
		}
		out = append(out, item)
	}
	op.End(nil)
	return out, nil
}

func (m *Manager) PutIntegration(ctx context.Context, integ integration.Integration) (string, error) {
	return put(ctx, m, ResourceIntegration, integ.ID, integ)
}

func (m *Manager) LoadIntegration(ctx context.Context, id string) (integration.Integration, error) {
	return load[integration.Integration](ctx, m, ResourceIntegration, id)
}

// ListIntegrations returns every stored integration ordered by id.
func (m *Manager) ListIntegrations(ctx context.Context) ([]integration.Integration, error) {
	return list[integration.Integration](ctx, m, ResourceIntegration)
}

func (m *Manager) PutExtension(ctx context.Context, ext *integration.Extension) (string, error) {
	return put(ctx, m, ResourceExtension, ext.ID, *ext)
}

func (m *Manager) LoadExtension(ctx context.Context, id string) (*integration.Extension, error) {
	ext, err := load[integration.Extension](ctx, m, ResourceExtension, id)
	if err != nil {
		return nil, err
	}
	return &ext, nil
}

// ListExtensions returns every stored extension ordered by id.
func (m *Manager) ListExtensions(ctx context.Context) ([]integration.Extension, error) {
	return list[integration.Extension](ctx, m, ResourceExtension)
}

func (m *Manager) PutOpenAPI(ctx context.Context, doc *integration.OpenAPI) (string, error) {
	return put(ctx, m, ResourceOpenAPI, doc.ID, *doc)
}

func (m *Manager) LoadOpenAPI(ctx context.Context, id string) (*integration.OpenAPI, error) {
	doc, err := load[integration.OpenAPI](ctx, m, ResourceOpenAPI, id)
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (m *Manager) PutDeployment(ctx context.Context, d *integration.Deployment) (string, error) {
	return put(ctx, m, ResourceDeployment, d.ID, *d)
}

func (m *Manager) ListDeployments(ctx context.Context) ([]integration.Deployment, error) {
	return list[integration.Deployment](ctx, m, ResourceDeployment)
}

// StoreExtensionBinary writes the binary of the extension record id.
func (m *Manager) StoreExtensionBinary(ctx context.Context, id string, r io.Reader) error {
	return m.files.Write(ctx, ExtensionLocation(id), r)
}

func (m *Manager) DeleteExtensionBinary(ctx context.Context, id string) error {
	return m.files.Delete(ctx, ExtensionLocation(id))
}

// LoadExtensionBinary opens the binary of the extension record id.
func (m *Manager) LoadExtensionBinary(ctx context.Context, id string) (io.ReadCloser, int64, error) {
	rc, size, err := m.files.Read(ctx, ExtensionLocation(id))
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			return nil, 0, core.NewError(fmt.Errorf("binary of extension %q: %w", id, err), core.CodeNotFound, nil)
		}
		return nil, 0, err
	}
	return rc, size, nil
}

// OpenExtensionBinary opens the binary referenced by a step. Steps that only carry the
// logical extension id are resolved to the installed record first.
func (m *Manager) OpenExtensionBinary(ctx context.Context, ext *integration.Extension) (io.ReadCloser, int64, error) {
	if ext.ID != "" {
		return m.LoadExtensionBinary(ctx, ext.ID)
	}
	installed, err := m.FindInstalledExtension(ctx, ext.ExtensionID)
	if err != nil {
		return nil, 0, err
	}
	return m.LoadExtensionBinary(ctx, installed.ID)
}

// FindInstalledExtension returns the installed record for a logical extension id.
func (m *Manager) FindInstalledExtension(ctx context.Context, extensionID string) (*integration.Extension, error) {
	all, err := m.ListExtensions(ctx)
	if err != nil {
		return nil, err
	}
	for i := range all {
		if all[i].ExtensionID == extensionID && all[i].Status == integration.ExtensionInstalled {
			return &all[i], nil
		}
	}
	return nil, core.NewError(
		fmt.Errorf("installed extension %q: %w", extensionID, ErrNotFound),
		core.CodeNotFound,
		map[string]any{"extension_id": extensionID},
	)
}
