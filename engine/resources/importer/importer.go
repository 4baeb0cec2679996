package importer

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/compozy/conduit/engine/core"
	"github.com/compozy/conduit/engine/integration"
	"github.com/compozy/conduit/engine/openapi"
	"github.com/compozy/conduit/engine/resources"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/spf13/afero"
)

// Strategy defines import conflict behavior
type Strategy string

const (
	SeedOnly           Strategy = "seed_only"
	OverwriteConflicts Strategy = "overwrite_conflicts"
)

func (s Strategy) Valid() bool {
	return s == SeedOnly || s == OverwriteConflicts
}

const defaultListCap = 16

// Result summarizes import operation
type Result struct {
	Imported    map[resources.ResourceType]int
	Skipped     map[resources.ResourceType]int
	Overwritten map[resources.ResourceType]int
	Binaries    int
}

func newResult() *Result {
	return &Result{
		Imported:    map[resources.ResourceType]int{},
		Skipped:     map[resources.ResourceType]int{},
		Overwritten: map[resources.ResourceType]int{},
	}
}

func (r *Result) merge(other *Result) {
	for k, v := range other.Imported {
		r.Imported[k] += v
	}
	for k, v := range other.Skipped {
		r.Skipped[k] += v
	}
	for k, v := range other.Overwritten {
		r.Overwritten[k] += v
	}
	r.Binaries += other.Binaries
}

// item is one parsed file ready to be stored.
type item struct {
	id   string
	file string
	put  func(ctx context.Context) (string, error)
	// jar is the sibling binary of an extension document, if present.
	jar string
}

// ImportFromDir reads the well-known type directories under rootDir and stores their
// documents following the provided strategy.
func ImportFromDir(
	ctx context.Context,
	m *resources.Manager,
	fsys afero.Fs,
	rootDir string,
	strategy Strategy,
) (*Result, error) {
	res := newResult()
	for _, typ := range resources.ExchangeTypes {
		out, err := ImportTypeFromDir(ctx, m, fsys, rootDir, strategy, typ)
		if err != nil {
			return nil, err
		}
		res.merge(out)
	}
	logger.FromContext(ctx).Info(
		"Imported resources",
		"dir", rootDir,
		"strategy", string(strategy),
		"imported", res.Imported,
		"skipped", res.Skipped,
		"overwritten", res.Overwritten,
	)
	return res, nil
}

// ImportTypeFromDir reads the files of a single resource type under rootDir.
func ImportTypeFromDir(
	ctx context.Context,
	m *resources.Manager,
	fsys afero.Fs,
	rootDir string,
	strategy Strategy,
	typ resources.ResourceType,
) (*Result, error) {
	if m == nil {
		return nil, fmt.Errorf("resource manager is required")
	}
	if rootDir == "" {
		return nil, fmt.Errorf("root directory is required")
	}
	if !strategy.Valid() {
		return nil, fmt.Errorf("unknown strategy: %s", strategy)
	}
	dirName, ok := resources.DirForType(typ)
	if !ok {
		return nil, fmt.Errorf("unsupported resource type: %s", typ)
	}
	res := newResult()
	absDir := filepath.Join(rootDir, dirName)
	info, err := fsys.Stat(absDir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return res, nil
		}
		return nil, fmt.Errorf("stat %s: %w", absDir, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%s is not a directory", absDir)
	}
	files, err := listDocuments(fsys, absDir, typ)
	if err != nil {
		return nil, err
	}
	items, err := parseFiles(ctx, m, fsys, typ, files)
	if err != nil {
		return nil, err
	}
	for i := range items {
		if err := apply(ctx, m, fsys, typ, &items[i], strategy, res); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func documentExtensions(typ resources.ResourceType) []string {
	if typ == resources.ResourceOpenAPI {
		return []string{".json", ".yaml", ".yml"}
	}
	return []string{".yaml", ".yml"}
}

func listDocuments(fsys afero.Fs, dir string, typ resources.ResourceType) ([]string, error) {
	allowed := documentExtensions(typ)
	files := make([]string, 0, defaultListCap)
	err := afero.Walk(fsys, dir, func(path string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		ext := strings.ToLower(filepath.Ext(info.Name()))
		for _, a := range allowed {
			if ext == a {
				files = append(files, path)
				break
			}
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("walk %s: %w", dir, err)
	}
	sort.Strings(files)
	return files, nil
}

func parseFiles(
	ctx context.Context,
	m *resources.Manager,
	fsys afero.Fs,
	typ resources.ResourceType,
	files []string,
) ([]item, error) {
	items := make([]item, 0, len(files))
	seen := make(map[string]string, len(files))
	for _, f := range files {
		data, err := afero.ReadFile(fsys, f)
		if err != nil {
			return nil, fmt.Errorf("read %s: %w", f, err)
		}
		it, err := parseItem(ctx, m, fsys, typ, f, data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", f, err)
		}
		if it.id == "" {
			return nil, fmt.Errorf("file %s missing id field", f)
		}
		if prev, ok := seen[it.id]; ok {
			return nil, fmt.Errorf("duplicate id '%s' in %s (first seen in %s)", it.id, f, prev)
		}
		seen[it.id] = f
		it.file = f
		items = append(items, it)
	}
	return items, nil
}

func decodeDocument[T any](data []byte) (T, error) {
	var out T
	raw, err := core.YAMLToJSON(data)
	if err != nil {
		return out, err
	}
	if err := json.Unmarshal(raw, &out); err != nil {
		return out, err
	}
	return out, nil
}

func parseItem(
	ctx context.Context,
	m *resources.Manager,
	fsys afero.Fs,
	typ resources.ResourceType,
	file string,
	data []byte,
) (item, error) {
	switch typ {
	case resources.ResourceIntegration:
		integ, err := integration.Load(bytes.NewReader(data))
		if err != nil {
			return item{}, err
		}
		return item{id: integ.ID, put: func(ctx context.Context) (string, error) {
			return m.PutIntegration(ctx, integ)
		}}, nil
	case resources.ResourceExtension:
		ext, err := decodeDocument[integration.Extension](data)
		if err != nil {
			return item{}, err
		}
		if ext.ExtensionID == "" {
			return item{}, fmt.Errorf("extension %q has no extensionId", ext.ID)
		}
		it := item{id: ext.ID, put: func(ctx context.Context) (string, error) {
			return m.PutExtension(ctx, &ext)
		}}
		jar := strings.TrimSuffix(file, filepath.Ext(file)) + ".jar"
		if ok, _ := afero.Exists(fsys, jar); ok {
			it.jar = jar
		}
		return it, nil
	case resources.ResourceOpenAPI:
		contract, err := openapi.Parse(ctx, data)
		if err != nil {
			return item{}, err
		}
		id := strings.TrimSuffix(filepath.Base(file), filepath.Ext(file))
		doc := &integration.OpenAPI{ID: id, Name: contract.Title(), Document: data}
		return item{id: id, put: func(ctx context.Context) (string, error) {
			return m.PutOpenAPI(ctx, doc)
		}}, nil
	case resources.ResourceDeployment:
		d, err := decodeDocument[integration.Deployment](data)
		if err != nil {
			return item{}, err
		}
		return item{id: d.ID, put: func(ctx context.Context) (string, error) {
			return m.PutDeployment(ctx, &d)
		}}, nil
	default:
		return item{}, fmt.Errorf("unsupported resource type: %s", typ)
	}
}

func apply(
	ctx context.Context,
	m *resources.Manager,
	fsys afero.Fs,
	typ resources.ResourceType,
	it *item,
	strategy Strategy,
	res *Result,
) error {
	key := resources.ResourceKey{Type: typ, ID: it.id}
	_, existingETag, getErr := m.Store().Get(ctx, key)
	exists := getErr == nil
	if getErr != nil && !errors.Is(getErr, resources.ErrNotFound) {
		return fmt.Errorf("get existing %s/%s: %w", typ, it.id, getErr)
	}
	if exists && strategy == SeedOnly {
		res.Skipped[typ]++
		return nil
	}
	newETag, err := it.put(ctx)
	if err != nil {
		return fmt.Errorf("store %s/%s: %w", typ, it.id, err)
	}
	switch {
	case !exists:
		res.Imported[typ]++
	case newETag == existingETag:
		res.Skipped[typ]++
	default:
		res.Overwritten[typ]++
	}
	if it.jar == "" {
		return nil
	}
	f, err := fsys.Open(it.jar)
	if err != nil {
		return fmt.Errorf("open %s: %w", it.jar, err)
	}
	defer f.Close()
	if err := m.StoreExtensionBinary(ctx, it.id, f); err != nil {
		return fmt.Errorf("store binary of %s: %w", it.id, err)
	}
	res.Binaries++
	return nil
}
