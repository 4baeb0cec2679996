package archive

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"path"
	"strings"
)

const (
	DefaultFileMode int64 = 0o644
	DefaultDirMode  int64 = 0o755
	ExecutableMode  int64 = 0o755
)

// Producer yields the content of a single archive entry. Open is called only when the
// entry is written, so expensive work (rendering, reading binaries) is deferred until the
// consumer has drained the entries before it.
type Producer interface {
	Open(ctx context.Context) (io.ReadCloser, int64, error)
}

type bytesProducer []byte

func (b bytesProducer) Open(context.Context) (io.ReadCloser, int64, error) {
	return io.NopCloser(bytes.NewReader(b)), int64(len(b)), nil
}

// Bytes returns a producer for content that is already in memory.
func Bytes(content []byte) Producer {
	return bytesProducer(content)
}

// DeferredFunc computes the whole content of an entry.
type DeferredFunc func(ctx context.Context) ([]byte, error)

func (f DeferredFunc) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	content, err := f(ctx)
	if err != nil {
		return nil, 0, err
	}
	return io.NopCloser(bytes.NewReader(content)), int64(len(content)), nil
}

// ReaderFunc opens a stream of known size, e.g. an extension binary in the filestore.
type ReaderFunc func(ctx context.Context) (io.ReadCloser, int64, error)

func (f ReaderFunc) Open(ctx context.Context) (io.ReadCloser, int64, error) {
	return f(ctx)
}

// Entry is one node of the logical tree.
type Entry struct {
	Path     string
	Dir      bool
	Mode     int64
	Producer Producer
}

// Tree is an ordered mapping of archive paths to producers. Adding a file inserts its
// missing parent directories first, so a canonical traversal always lists a directory
// before its contents.
type Tree struct {
	entries []Entry
	index   map[string]int
}

func NewTree() *Tree {
	return &Tree{index: make(map[string]int)}
}

type FileOption func(*Entry)

func WithMode(mode int64) FileOption {
	return func(e *Entry) {
		e.Mode = mode
	}
}

func cleanPath(p string) (string, error) {
	cleaned := strings.TrimPrefix(path.Clean("/"+strings.ReplaceAll(p, "\\", "/")), "/")
	if cleaned == "" {
		return "", fmt.Errorf("invalid archive path %q", p)
	}
	return cleaned, nil
}

// Dir adds a directory and its parents.
func (t *Tree) Dir(p string) error {
	cleaned, err := cleanPath(p)
	if err != nil {
		return err
	}
	t.ensureDir(cleaned)
	return nil
}

func (t *Tree) ensureDir(p string) {
	if p == "." || p == "" {
		return
	}
	if _, ok := t.index[p]; ok {
		return
	}
	t.ensureDir(path.Dir(p))
	t.index[p] = len(t.entries)
	t.entries = append(t.entries, Entry{Path: p, Dir: true, Mode: DefaultDirMode})
}

// File adds a file entry. Adding a path twice replaces the producer but keeps the position
// of the first insertion.
func (t *Tree) File(p string, producer Producer, opts ...FileOption) error {
	cleaned, err := cleanPath(p)
	if err != nil {
		return err
	}
	if producer == nil {
		return fmt.Errorf("nil producer for %s", cleaned)
	}
	entry := Entry{Path: cleaned, Mode: DefaultFileMode, Producer: producer}
	for _, opt := range opts {
		opt(&entry)
	}
	if i, ok := t.index[cleaned]; ok {
		if t.entries[i].Dir {
			return fmt.Errorf("%s is already a directory", cleaned)
		}
		t.entries[i] = entry
		return nil
	}
	t.ensureDir(path.Dir(cleaned))
	t.index[cleaned] = len(t.entries)
	t.entries = append(t.entries, entry)
	return nil
}

func (t *Tree) Has(p string) bool {
	cleaned, err := cleanPath(p)
	if err != nil {
		return false
	}
	_, ok := t.index[cleaned]
	return ok
}

func (t *Tree) Len() int {
	return len(t.entries)
}

// Entries returns the entries in write order.
func (t *Tree) Entries() []Entry {
	out := make([]Entry, len(t.entries))
	copy(out, t.entries)
	return out
}

// Files returns the file paths in write order.
func (t *Tree) Files() []string {
	var out []string
	for _, e := range t.entries {
		if !e.Dir {
			out = append(out, e.Path)
		}
	}
	return out
}
