package exporter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/filestore"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/spf13/afero"
	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// Result summarizes export operation
type Result struct {
	Written  map[resources.ResourceType]int
	Binaries int
}

const exportedFileMode os.FileMode = 0o644

func newResult() *Result {
	return &Result{Written: make(map[resources.ResourceType]int)}
}

// ExportToDir writes every exchanged resource as deterministic files under rootDir, one
// directory per type. Extension binaries are written next to their documents.
func ExportToDir(ctx context.Context, m *resources.Manager, fsys afero.Fs, rootDir string) (*Result, error) {
	res := newResult()
	for _, typ := range resources.ExchangeTypes {
		out, err := ExportTypeToDir(ctx, m, fsys, rootDir, typ)
		if err != nil {
			return nil, err
		}
		for k, v := range out.Written {
			res.Written[k] += v
		}
		res.Binaries += out.Binaries
	}
	return res, nil
}

// ExportTypeToDir writes the files of a single resource type.
func ExportTypeToDir(
	ctx context.Context,
	m *resources.Manager,
	fsys afero.Fs,
	rootDir string,
	typ resources.ResourceType,
) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("resource manager is required")
	}
	if rootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	dir, ok := resources.DirForType(typ)
	if !ok {
		return nil, fmt.Errorf("unsupported resource type: %s", typ)
	}
	keys, err := m.Store().List(ctx, typ)
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", typ, err)
	}
	res := newResult()
	if len(keys) == 0 {
		return res, nil
	}
	absDir := filepath.Join(rootDir, dir)
	if err := fsys.MkdirAll(absDir, 0o755); err != nil {
		return nil, fmt.Errorf("mkdir %s: %w", absDir, err)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].ID < keys[j].ID })
	e := &exporter{m: m, fs: fsys, dir: absDir, typ: typ, used: make(map[string]string, len(keys))}
	for i := range keys {
		written, err := e.export(ctx, keys[i])
		if err != nil {
			return nil, err
		}
		if written {
			res.Written[typ]++
		}
	}
	res.Binaries = e.binaries
	return res, nil
}

type exporter struct {
	m        *resources.Manager
	fs       afero.Fs
	dir      string
	typ      resources.ResourceType
	used     map[string]string
	binaries int
}

func (e *exporter) export(ctx context.Context, key resources.ResourceKey) (bool, error) {
	log := logger.FromContext(ctx)
	sid := sanitizeID(key.ID)
	if prev, ok := e.used[sid]; ok {
		return false, fmt.Errorf("sanitized id collision: %q and %q both map to %q", prev, key.ID, sid)
	}
	e.used[sid] = key.ID
	if e.typ == resources.ResourceOpenAPI {
		return e.exportDocument(ctx, key, sid)
	}
	val, _, err := e.m.Store().Get(ctx, key)
	if err != nil {
		if errors.Is(err, resources.ErrNotFound) {
			return false, nil
		}
		return false, fmt.Errorf("get %s/%s: %w", e.typ, key.ID, err)
	}
	body, err := encodeYAML(val)
	if err != nil {
		return false, fmt.Errorf("encode yaml for %s/%s: %w", e.typ, key.ID, err)
	}
	filename := filepath.Join(e.dir, sid+".yaml")
	if err := afero.WriteFile(e.fs, filename, body, exportedFileMode); err != nil {
		return false, fmt.Errorf("write file %s: %w", filename, err)
	}
	log.Debug("exported yaml", "type", string(e.typ), "id", key.ID, "file", filename)
	if e.typ == resources.ResourceExtension {
		if err := e.exportBinary(ctx, key.ID, sid); err != nil {
			return false, err
		}
	}
	return true, nil
}

// exportDocument writes the api contract as stored, keeping its original format.
func (e *exporter) exportDocument(ctx context.Context, key resources.ResourceKey, sid string) (bool, error) {
	doc, err := e.m.LoadOpenAPI(ctx, key.ID)
	if err != nil {
		if core.CodeOf(err) == core.CodeNotFound {
			return false, nil
		}
		return false, err
	}
	ext := ".yaml"
	if gjson.ValidBytes(doc.Document) {
		ext = ".json"
	}
	filename := filepath.Join(e.dir, sid+ext)
	if err := afero.WriteFile(e.fs, filename, doc.Document, exportedFileMode); err != nil {
		return false, fmt.Errorf("write file %s: %w", filename, err)
	}
	return true, nil
}

func (e *exporter) exportBinary(ctx context.Context, id, sid string) error {
	rc, _, err := e.m.LoadExtensionBinary(ctx, id)
	if err != nil {
		if errors.Is(err, filestore.ErrNotFound) {
			logger.FromContext(ctx).Warn("extension has no binary", "id", id)
			return nil
		}
		return err
	}
	defer rc.Close()
	filename := filepath.Join(e.dir, sid+".jar")
	if err := afero.WriteReader(e.fs, filename, rc); err != nil {
		return fmt.Errorf("write file %s: %w", filename, err)
	}
	e.binaries++
	return nil
}

// encodeYAML renders v with its JSON field names and sorted mapping keys.
func encodeYAML(v any) ([]byte, error) {
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(buildYAMLNode(generic)); err != nil {
		_ = enc.Close()
		return nil, err
	}
	if err := enc.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// buildYAMLNode marshals any Go value to a yaml.Node and canonicalizes mapping key order.
func buildYAMLNode(v any) *yaml.Node {
	var n yaml.Node
	b, err := yaml.Marshal(v)
	if err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprintf("marshal-error: %v", err)}
	}
	if err := yaml.Unmarshal(b, &n); err != nil {
		return &yaml.Node{Kind: yaml.ScalarNode, Tag: "!!str", Value: fmt.Sprintf("unmarshal-error: %v", err)}
	}
	canonicalizeYAML(&n)
	if n.Kind == yaml.DocumentNode && len(n.Content) > 0 {
		return n.Content[0]
	}
	return &n
}

func canonicalizeYAML(n *yaml.Node) {
	if n == nil || len(n.Content) == 0 {
		return
	}
	switch n.Kind {
	case yaml.DocumentNode, yaml.SequenceNode:
		for _, c := range n.Content {
			canonicalizeYAML(c)
		}
	case yaml.MappingNode:
		type kv struct{ k, v *yaml.Node }
		pairs := make([]kv, 0, len(n.Content)/2)
		for i := 0; i+1 < len(n.Content); i += 2 {
			pairs = append(pairs, kv{n.Content[i], n.Content[i+1]})
		}
		sort.Slice(pairs, func(i, j int) bool { return pairs[i].k.Value < pairs[j].k.Value })
		n.Content = n.Content[:0]
		for _, p := range pairs {
			canonicalizeYAML(p.v)
			n.Content = append(n.Content, p.k, p.v)
		}
	}
}

func sanitizeID(id string) string {
	out := make([]rune, 0, len(id))
	for _, r := range id {
		if r >= 'a' && r <= 'z' || r >= 'A' && r <= 'Z' || r >= '0' && r <= '9' || r == '-' || r == '_' || r == '.' {
			out = append(out, r)
		} else {
			out = append(out, '-')
		}
	}
	clean := strings.TrimLeft(string(out), ".")
	if clean == "" {
		return "-"
	}
	return clean
}
