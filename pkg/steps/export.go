package steps

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"path"
	"slices"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/observability"
	"github.com/matzehuels/spritepipe/pkg/sheet"
	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

var (
	// ErrAlreadyStarted is returned by Begin on a sink that was already started.
	ErrAlreadyStarted = errors.New("sink already started")
	// ErrDisposed is returned by Begin on a disposed sink.
	ErrDisposed = errors.New("sink disposed")
	// ErrUnsupportedValue is recorded when a sink receives a value it cannot persist.
	ErrUnsupportedValue = errors.New("unsupported value")
)

// FileExport is a sink that persists every value delivered to its input.
//
// Sheets are stored as their image and atlas files, bitmaps as one encoded
// image, animations as one image per frame. A key whose content hash matches
// the last write of the same key is not written again. Failures, whether delivered as
// stream errors or raised while persisting, are logged and recorded in Err;
// they never escape the sink.
type FileExport struct {
	graph.Base
	store  storage.Store
	prefix string
	format string
	ttl    time.Duration
	logger *log.Logger

	mu       sync.Mutex
	started  bool
	disposed bool
	sub      stream.Subscription
	stop     func() bool
	errs     error
	exported []string
	digests  map[string]string

	finish sync.Once
	done   chan struct{}
}

// ExportOption configures a [FileExport].
type ExportOption func(*FileExport)

// WithPrefix stores every key below prefix.
func WithPrefix(prefix string) ExportOption {
	return func(f *FileExport) { f.prefix = prefix }
}

// WithFormat sets the image format for bitmaps and animation frames.
func WithFormat(format string) ExportOption {
	return func(f *FileExport) { f.format = format }
}

// WithTTL sets the storage TTL of every written entry.
func WithTTL(ttl time.Duration) ExportOption {
	return func(f *FileExport) { f.ttl = ttl }
}

// WithLogger sets the logger. A nil logger discards output.
func WithLogger(logger *log.Logger) ExportOption {
	return func(f *FileExport) { f.logger = logger }
}

// NewFileExport creates an export sink with input [LinkArtifact].
func NewFileExport(id graph.ID, name string, store storage.Store, opts ...ExportOption) *FileExport {
	f := &FileExport{
		store:  store,
		format:  sheet.FormatPNG,
		digests: make(map[string]string),
		done:    make(chan struct{}),
	}
	f.Base = graph.NewBase(f, id, name)
	f.AddInput(LinkArtifact,
		graph.TypeOf[*sheet.Artifact](),
		graph.TypeOf[*bitmap.Bitmap](),
		graph.TypeOf[*bitmap.Animation](),
	)
	for _, opt := range opts {
		opt(f)
	}
	if f.logger == nil {
		f.logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if f.store == nil {
		f.store = storage.NewNullStore()
	}
	return f
}

// Begin subscribes to every output connected to the sink's input. Cancelling
// ctx disposes the sink.
func (f *FileExport) Begin(ctx context.Context) error {
	f.mu.Lock()
	switch {
	case f.disposed:
		f.mu.Unlock()
		return ErrDisposed
	case f.started:
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.started = true
	f.mu.Unlock()

	in := f.Input(LinkArtifact)
	f.logger.Debug("export started", "node", f.ID(), "upstreams", len(in.Connections()))

	sub := stream.Merge(in.Streams()...).Subscribe(stream.Funcs[any]{
		Next:     func(v any) { f.persist(ctx, v) },
		Error:    func(err error) { f.fail(ctx, err) },
		Complete: f.complete,
	})

	f.mu.Lock()
	f.sub = sub
	disposed := f.disposed
	if !disposed {
		f.stop = context.AfterFunc(ctx, func() { _ = f.Dispose() })
	}
	f.mu.Unlock()
	if disposed {
		sub.Unsubscribe()
	}
	return nil
}

// Dispose releases the subscription. It is idempotent and safe to call without
// Begin.
func (f *FileExport) Dispose() error {
	f.mu.Lock()
	if f.disposed {
		f.mu.Unlock()
		return nil
	}
	f.disposed = true
	sub, stop := f.sub, f.stop
	f.mu.Unlock()

	if stop != nil {
		stop()
	}
	if sub != nil {
		sub.Unsubscribe()
	}
	f.close()
	return nil
}

// Done is closed once the upstreams completed or failed, or the sink was disposed.
func (f *FileExport) Done() <-chan struct{} { return f.done }

// Err returns every error recorded so far, combined.
func (f *FileExport) Err() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.errs
}

// Exported returns the keys written so far, in write order.
func (f *FileExport) Exported() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return slices.Clone(f.exported)
}

// Digests returns the content hash of the last write of every exported key.
func (f *FileExport) Digests() map[string]string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return maps.Clone(f.digests)
}

func (f *FileExport) persist(ctx context.Context, v any) {
	files, err := f.files(v)
	if err != nil {
		f.record(err)
		f.logger.Error("export failed", "node", f.ID(), "err", err)
		observability.Export().OnExport(ctx, string(f.ID()), "", 0, err)
		return
	}
	for _, file := range files {
		key := path.Join(f.prefix, file.key)
		digest := storage.Hash(file.data)
		f.mu.Lock()
		unchanged := f.digests[key] == digest
		f.mu.Unlock()
		if unchanged {
			f.logger.Debug("export unchanged", "node", f.ID(), "key", key)
			continue
		}
		err := f.store.Set(ctx, key, file.data, f.ttl)
		observability.Export().OnExport(ctx, string(f.ID()), key, len(file.data), err)
		if err != nil {
			f.record(fmt.Errorf("store %s: %w", key, err))
			f.logger.Error("export failed", "node", f.ID(), "key", key, "err", err)
			continue
		}
		f.mu.Lock()
		f.exported = append(f.exported, key)
		f.digests[key] = digest
		f.mu.Unlock()
		f.logger.Info("exported", "node", f.ID(), "key", key, "bytes", len(file.data), "sha256", digest[:12])
	}
}

type exportFile struct {
	key  string
	data []byte
}

func (f *FileExport) files(v any) ([]exportFile, error) {
	switch v := v.(type) {
	case *sheet.Artifact:
		files := v.Files()
		keys := make([]string, 0, len(files))
		for k := range files {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		out := make([]exportFile, len(keys))
		for i, k := range keys {
			out[i] = exportFile{key: k, data: files[k]}
		}
		return out, nil
	case *bitmap.Bitmap:
		data, err := sheet.EncodeBitmap(v, f.format)
		if err != nil {
			return nil, err
		}
		return []exportFile{{key: v.Name + "." + f.format, data: data}}, nil
	case *bitmap.Animation:
		out := make([]exportFile, 0, v.Len())
		for i, frame := range v.Frames {
			data, err := sheet.EncodeBitmap(frame, f.format)
			if err != nil {
				return nil, err
			}
			out = append(out, exportFile{key: fmt.Sprintf("%s/%03d.%s", v.Name, i, f.format), data: data})
		}
		return out, nil
	default:
		return nil, fmt.Errorf("%w: %T", ErrUnsupportedValue, v)
	}
}

func (f *FileExport) fail(ctx context.Context, err error) {
	f.record(err)
	f.logger.Error("export failed", "node", f.ID(), "err", err)
	observability.Export().OnStreamError(ctx, string(f.ID()), err)
	f.close()
}

func (f *FileExport) complete() {
	f.logger.Debug("export complete", "node", f.ID())
	f.close()
}

func (f *FileExport) record(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.errs = multierr.Append(f.errs, err)
}

func (f *FileExport) close() {
	f.finish.Do(func() { close(f.done) })
}

var _ graph.Sink = (*FileExport)(nil)
