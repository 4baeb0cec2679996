package filestore

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"strings"

	"github.com/compozy/conduit/pkg/config"
	"github.com/compozy/conduit/pkg/logger"
	"github.com/spf13/afero"
)

var ErrNotFound = errors.New("file not found")

// FileStore keeps binary artifacts, such as uploaded extensions, under slash separated
// locations like "/extensions/<id>".
type FileStore struct {
	fs afero.Fs
}

func New(fsys afero.Fs) *FileStore {
	return &FileStore{fs: fsys}
}

func NewMemory() *FileStore {
	return New(afero.NewMemMapFs())
}

// NewOS stores files below root, which is created when missing.
func NewOS(root string) (*FileStore, error) {
	if root == "" {
		return nil, fmt.Errorf("filestore root is required")
	}
	base := afero.NewOsFs()
	if err := base.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create filestore root %s: %w", root, err)
	}
	return New(afero.NewBasePathFs(base, root)), nil
}

// FromConfig builds the store selected by cfg.Driver.
func FromConfig(ctx context.Context, cfg *config.FileStoreConfig) (*FileStore, error) {
	switch cfg.Driver {
	case "", "memory":
		logger.FromContext(ctx).Debug("Using in-memory filestore")
		return NewMemory(), nil
	case "os":
		logger.FromContext(ctx).Debug("Using filesystem filestore", "root", cfg.Root)
		return NewOS(cfg.Root)
	default:
		return nil, fmt.Errorf("unsupported filestore driver %q", cfg.Driver)
	}
}

func clean(location string) (string, error) {
	p := path.Clean("/" + strings.TrimSpace(location))
	if p == "/" {
		return "", fmt.Errorf("invalid file location %q", location)
	}
	return p, nil
}

// Write replaces the file at location with the content of r.
func (s *FileStore) Write(ctx context.Context, location string, r io.Reader) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean(location)
	if err != nil {
		return err
	}
	if err := s.fs.MkdirAll(path.Dir(p), 0o755); err != nil {
		return fmt.Errorf("failed to create directory for %s: %w", p, err)
	}
	if err := afero.WriteReader(s.fs, p, r); err != nil {
		return fmt.Errorf("failed to write %s: %w", p, err)
	}
	return nil
}

// Read opens the file at location and returns its size.
func (s *FileStore) Read(ctx context.Context, location string) (io.ReadCloser, int64, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	p, err := clean(location)
	if err != nil {
		return nil, 0, err
	}
	f, err := s.fs.Open(p)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) || os.IsNotExist(err) {
			return nil, 0, fmt.Errorf("%w: %s", ErrNotFound, p)
		}
		return nil, 0, fmt.Errorf("failed to open %s: %w", p, err)
	}
	info, err := f.Stat()
	if err != nil {
		f.Close()
		return nil, 0, fmt.Errorf("failed to stat %s: %w", p, err)
	}
	if info.IsDir() {
		f.Close()
		return nil, 0, fmt.Errorf("%w: %s is a directory", ErrNotFound, p)
	}
	return f, info.Size(), nil
}

// ReadAll returns the whole content of the file at location.
func (s *FileStore) ReadAll(ctx context.Context, location string) ([]byte, error) {
	rc, _, err := s.Read(ctx, location)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	return io.ReadAll(rc)
}

// Delete removes the file at location. Missing files are ignored.
func (s *FileStore) Delete(ctx context.Context, location string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	p, err := clean(location)
	if err != nil {
		return err
	}
	if err := s.fs.Remove(p); err != nil && !errors.Is(err, fs.ErrNotExist) && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete %s: %w", p, err)
	}
	return nil
}

func (s *FileStore) Exists(ctx context.Context, location string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	p, err := clean(location)
	if err != nil {
		return false, err
	}
	return afero.Exists(s.fs, p)
}
