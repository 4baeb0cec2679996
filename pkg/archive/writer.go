package archive

import (
	"archive/tar"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
	"sync/atomic"
	"time"

	"github.com/compozy/conduit/pkg/logger"
)

// ErrorSink receives production failures. It may be called from a goroutine other than
// the one reading the stream.
type ErrorSink func(error)

// OnceSink wraps sink so that at most one error is ever delivered.
func OnceSink(sink ErrorSink) ErrorSink {
	var once sync.Once
	return func(err error) {
		if err == nil || sink == nil {
			return
		}
		once.Do(func() { sink(err) })
	}
}

// ChannelSink returns a sink and a channel receiving its first error.
func ChannelSink() (ErrorSink, <-chan error) {
	ch := make(chan error, 1)
	return OnceSink(func(err error) { ch <- err }), ch
}

type Option func(*writerOptions)

type writerOptions struct {
	modTime time.Time
}

// WithModTime sets the modification time stamped on every entry.
func WithModTime(t time.Time) Option {
	return func(o *writerOptions) {
		o.modTime = t
	}
}

// Stream is the consumer side of an archive being produced.
type Stream struct {
	*io.PipeReader
	cancel context.CancelFunc
	closed atomic.Bool
	done   chan struct{}
}

// Close abandons the stream. Production stops at the next entry boundary or blocked
// write and no error is reported for it.
func (s *Stream) Close() error {
	s.closed.Store(true)
	s.cancel()
	return s.PipeReader.Close()
}

// Abandoned reports whether the consumer closed the stream.
func (s *Stream) Abandoned() bool {
	return s.closed.Load()
}

// Done is closed once the producer goroutine has exited.
func (s *Stream) Done() <-chan struct{} {
	return s.done
}

// Write starts producing tree as a tar stream and returns immediately. Faults end the
// stream early and are reported once to sink only; the reader sees a short stream ending
// in io.EOF. Consumers wait on Done before treating a drained stream as complete.
func Write(ctx context.Context, tree *Tree, sink ErrorSink, opts ...Option) *Stream {
	options := &writerOptions{modTime: time.Now()}
	for _, opt := range opts {
		opt(options)
	}
	sink = OnceSink(sink)
	ctx, cancel := context.WithCancel(ctx)
	pr, pw := io.Pipe()
	stream := &Stream{PipeReader: pr, cancel: cancel, done: make(chan struct{})}
	entries := tree.Entries()
	go func() {
		defer close(stream.done)
		defer cancel()
		err := writeEntries(ctx, pw, entries, options)
		switch {
		case err == nil:
			pw.Close()
		case stream.closed.Load() || errors.Is(err, context.Canceled):
			logger.FromContext(ctx).Debug("Archive production abandoned", "error", err)
			pw.CloseWithError(err)
		default:
			sink(err)
			pw.Close()
		}
	}()
	return stream
}

// Failed returns a stream that reports err once to sink and ends without content.
func Failed(err error, sink ErrorSink) *Stream {
	pr, pw := io.Pipe()
	stream := &Stream{PipeReader: pr, cancel: func() {}, done: make(chan struct{})}
	sink = OnceSink(sink)
	go func() {
		defer close(stream.done)
		sink(err)
		pw.Close()
	}()
	return stream
}

func writeEntries(ctx context.Context, w io.Writer, entries []Entry, options *writerOptions) error {
	tw := tar.NewWriter(w)
	for i := range entries {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := writeEntry(ctx, tw, &entries[i], options); err != nil {
			return err
		}
	}
	if err := tw.Close(); err != nil {
		return fmt.Errorf("failed to finish archive: %w", err)
	}
	return nil
}

func writeEntry(ctx context.Context, tw *tar.Writer, entry *Entry, options *writerOptions) error {
	if entry.Dir {
		hdr := &tar.Header{
			Typeflag: tar.TypeDir,
			Name:     entry.Path + "/",
			Mode:     entry.Mode,
			ModTime:  options.modTime,
			Format:   tar.FormatPAX,
		}
		if err := tw.WriteHeader(hdr); err != nil {
			return fmt.Errorf("failed to write directory %s: %w", entry.Path, err)
		}
		return nil
	}
	rc, size, err := entry.Producer.Open(ctx)
	if err != nil {
		return fmt.Errorf("failed to produce %s: %w", entry.Path, err)
	}
	defer rc.Close()
	hdr := &tar.Header{
		Typeflag: tar.TypeReg,
		Name:     entry.Path,
		Mode:     entry.Mode,
		Size:     size,
		ModTime:  options.modTime,
		Format:   tar.FormatPAX,
	}
	if err := tw.WriteHeader(hdr); err != nil {
		return fmt.Errorf("failed to write header for %s: %w", entry.Path, err)
	}
	n, err := io.Copy(tw, rc)
	if err != nil {
		return fmt.Errorf("failed to write %s: %w", entry.Path, err)
	}
	if n != size {
		return fmt.Errorf("failed to write %s: produced %d bytes, declared %d", entry.Path, n, size)
	}
	return nil
}
