package template

import (
	"embed"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"sort"
	"strings"

	"github.com/bmatcuk/doublestar/v4"
	"github.com/spf13/afero"
)

//go:embed templates
var builtin embed.FS

// DefaultSet is the directory of the template set used when no override matches.
const DefaultSet = "default"

// Suffix marks a resource that must be rendered rather than copied.
const Suffix = ".tmpl"

var ErrResourceNotFound = errors.New("resource not found")

// Resource is a located template or static file.
type Resource struct {
	// Name is the logical name that was requested.
	Name string
	// Path is the location inside the resource space, e.g. "redhat/pom.xml.tmpl".
	Path     string
	Content  []byte
	Override bool
}

// IsTemplate reports whether the resource must be rendered before being written.
func (r Resource) IsTemplate() bool {
	return strings.HasSuffix(r.Path, Suffix)
}

// Placement is a resource bound to its destination in the generated tree.
type Placement struct {
	Resource    Resource
	Destination string
}

// Resolver locates resources in an override set first and falls back to the default set.
type Resolver struct {
	fs           afero.Fs
	overridePath string
}

type Option func(*resolverOptions)

type resolverOptions struct {
	layer afero.Fs
}

// WithTemplateDir layers an on-disk directory above the built-in resources.
func WithTemplateDir(dir string) Option {
	return func(o *resolverOptions) {
		if dir != "" {
			o.layer = afero.NewBasePathFs(afero.NewOsFs(), dir)
		}
	}
}

// WithLayer layers an arbitrary filesystem above the built-in resources.
func WithLayer(layer afero.Fs) Option {
	return func(o *resolverOptions) {
		o.layer = layer
	}
}

func NewResolver(overridePath string, opts ...Option) (*Resolver, error) {
	options := &resolverOptions{}
	for _, opt := range opts {
		opt(options)
	}
	sub, err := fs.Sub(builtin, "templates")
	if err != nil {
		return nil, fmt.Errorf("failed to open built-in templates: %w", err)
	}
	var space afero.Fs = afero.FromIOFS{FS: sub}
	if options.layer != nil {
		space = afero.NewCopyOnWriteFs(space, options.layer)
	}
	return &Resolver{
		fs:           afero.NewReadOnlyFs(space),
		overridePath: strings.Trim(path.Clean("/"+overridePath), "/"),
	}, nil
}

func (r *Resolver) OverridePath() string {
	return r.overridePath
}

// Resolve looks up {override}/{name} and then {default}/{name}. In each set a
// rendered variant (name + ".tmpl") is preferred over a static file.
func (r *Resolver) Resolve(name string) (Resource, error) {
	name = strings.TrimPrefix(path.Clean("/"+name), "/")
	for _, candidate := range r.candidates(name) {
		content, err := afero.ReadFile(r.fs, candidate.path)
		if err == nil {
			return Resource{Name: name, Path: candidate.path, Content: content, Override: candidate.override}, nil
		}
		if !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
			return Resource{}, fmt.Errorf("failed to read resource %s: %w", candidate.path, err)
		}
	}
	return Resource{}, fmt.Errorf("%w: %s", ErrResourceNotFound, name)
}

type candidate struct {
	path     string
	override bool
}

func (r *Resolver) candidates(name string) []candidate {
	var out []candidate
	if r.overridePath != "" && r.overridePath != DefaultSet {
		base := path.Join(r.overridePath, name)
		out = append(out, candidate{base + Suffix, true}, candidate{base, true})
	}
	base := path.Join(DefaultSet, name)
	return append(out, candidate{base + Suffix, false}, candidate{base, false})
}

// Expand resolves an additional resource. A source containing glob meta characters is
// matched in the override set and then the default set, with the first set yielding
// matches winning; each match lands under destination keeping its relative path.
// Zero matches is an error.
func (r *Resolver) Expand(source, destination string) ([]Placement, error) {
	if !hasMeta(source) {
		res, err := r.Resolve(source)
		if err != nil {
			return nil, err
		}
		return []Placement{{Resource: res, Destination: destinationFor(res, destination)}}, nil
	}
	sets := []string{DefaultSet}
	if r.overridePath != "" && r.overridePath != DefaultSet {
		sets = []string{r.overridePath, DefaultSet}
	}
	for _, set := range sets {
		matches, err := r.glob(set, source)
		if err != nil {
			return nil, err
		}
		if len(matches) == 0 {
			continue
		}
		out := make([]Placement, 0, len(matches))
		for _, rel := range matches {
			res, err := r.Resolve(strings.TrimSuffix(rel, Suffix))
			if err != nil {
				return nil, err
			}
			out = append(out, Placement{
				Resource:    res,
				Destination: path.Join(destination, strings.TrimSuffix(rel, Suffix)),
			})
		}
		return out, nil
	}
	return nil, fmt.Errorf("%w: no resource matches %s", ErrResourceNotFound, source)
}

func (r *Resolver) glob(set, pattern string) ([]string, error) {
	if ok, err := afero.DirExists(r.fs, set); err != nil || !ok {
		return nil, nil
	}
	seen := make(map[string]struct{})
	var matches []string
	err := afero.Walk(r.fs, set, func(p string, info fs.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}
		rel := strings.TrimPrefix(strings.TrimPrefix(p, set), "/")
		ok, err := doublestar.Match(pattern, strings.TrimSuffix(rel, Suffix))
		if err != nil {
			return fmt.Errorf("invalid resource pattern %q: %w", pattern, err)
		}
		if _, dup := seen[rel]; ok && !dup {
			seen[rel] = struct{}{}
			matches = append(matches, rel)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.Strings(matches)
	return matches, nil
}

func hasMeta(s string) bool {
	return strings.ContainsAny(s, "*?[{")
}

// destinationFor strips the template suffix when the destination names a directory.
func destinationFor(res Resource, destination string) string {
	if strings.HasSuffix(destination, "/") {
		return path.Join(destination, path.Base(strings.TrimSuffix(res.Path, Suffix)))
	}
	return destination
}

// Sets lists the template sets available in the resource space.
func (r *Resolver) Sets() ([]string, error) {
	entries, err := afero.ReadDir(r.fs, ".")
	if err != nil {
		return nil, fmt.Errorf("failed to list template sets: %w", err)
	}
	var sets []string
	for _, e := range entries {
		if e.IsDir() {
			sets = append(sets, e.Name())
		}
	}
	sort.Strings(sets)
	return sets, nil
}
