package registry

import (
	"errors"
	"io"
	"io/fs"
	"path/filepath"

	"github.com/charmbracelet/log"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/sheet"
	"github.com/matzehuels/spritepipe/pkg/steps"
	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// Built-in kind tags.
const (
	KindImage           = "image"
	KindAnimation       = "animation"
	KindSettings        = "settings"
	KindFilter          = "filter"
	KindAnimationFilter = "animation-filter"
	KindJoiner          = "joiner"
	KindSheet           = "sheet"
	KindExport          = "export"
)

// Deps are the collaborators shared by the built-in kinds.
type Deps struct {
	Store    storage.Store   // export target, defaults to a NullStore
	Exporter sheet.Exporter  // sheet builder, defaults to a GridExporter
	Executor stream.Executor // where sheets are built, defaults to stream.Goroutine
	Logger   *log.Logger
	BaseDir  string // relative image paths are resolved against it
}

func (d *Deps) setDefaults() {
	if d.Logger == nil {
		d.Logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if d.Store == nil {
		d.Store = storage.NewNullStore()
	}
	if d.Exporter == nil {
		d.Exporter = sheet.NewGridExporter(d.Logger)
	}
	if d.Executor == nil {
		d.Executor = stream.Goroutine
	}
}

func (d *Deps) resolve(path string) (string, error) {
	if err := perrors.ValidatePath(path); err != nil {
		return "", err
	}
	if filepath.IsAbs(path) || d.BaseDir == "" {
		return path, nil
	}
	return filepath.Join(d.BaseDir, path), nil
}

// Default returns a registry with every built-in kind.
func Default(deps Deps) *Registry {
	deps.setDefaults()
	r := New()

	r.MustRegister(KindImage, "Loads a single image file (params: path)",
		func(id graph.ID, name string, p Params) (graph.Node, error) {
			path, err := p.RequiredString("path")
			if err != nil {
				return nil, err
			}
			if path, err = deps.resolve(path); err != nil {
				return nil, err
			}
			b, err := bitmap.Load(path)
			if err != nil {
				return nil, loadError(err, path)
			}
			return steps.NewSource(id, name, b), nil
		})

	r.MustRegister(KindAnimation, "Loads an animation from a GIF or a list of frames (params: paths, name, frame_duration)",
		func(id graph.ID, name string, p Params) (graph.Node, error) {
			paths, err := p.Strings("paths")
			if err != nil {
				return nil, err
			}
			if single, _ := p.String("path", ""); single != "" {
				paths = append(paths, single)
			}
			if len(paths) == 0 {
				return nil, perrors.New(perrors.ErrCodeInvalidInput, "animation needs path or paths")
			}
			for i := range paths {
				if paths[i], err = deps.resolve(paths[i]); err != nil {
					return nil, err
				}
			}
			duration, err := p.Duration("frame_duration", bitmap.DefaultFrameDuration)
			if err != nil {
				return nil, err
			}
			animName, err := p.String("name", string(id))
			if err != nil {
				return nil, err
			}
			a, err := bitmap.LoadAnimation(animName, duration, paths...)
			if err != nil {
				return nil, loadError(err, paths[0])
			}
			return steps.NewSource(id, name, a), nil
		})

	r.MustRegister(KindSettings, "Sprite sheet settings (params: name, columns, padding, format)",
		func(id graph.ID, name string, p Params) (graph.Node, error) {
			var s sheet.Settings
			var err error
			if s.Name, err = p.String("name", ""); err != nil {
				return nil, err
			}
			if s.Columns, err = p.Int("columns", 0); err != nil {
				return nil, err
			}
			if s.Padding, err = p.Int("padding", sheet.DefaultPadding); err != nil {
				return nil, err
			}
			if s.Format, err = p.String("format", sheet.DefaultFormat); err != nil {
				return nil, err
			}
			if s.Columns < 0 || s.Padding < 0 {
				return nil, perrors.New(perrors.ErrCodeInvalidInput, "columns and padding must not be negative")
			}
			if s.Format != "" {
				if err := sheet.ValidateFormat(s.Format); err != nil {
					return nil, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "settings")
				}
			}
			return steps.NewSource(id, name, s), nil
		})

	r.MustRegister(KindFilter, "Applies a filter to every bitmap (params: filter, e.g. \"grayscale,scale:2\")",
		func(id graph.ID, name string, p Params) (graph.Node, error) {
			f, err := parseFilter(p)
			if err != nil {
				return nil, err
			}
			return steps.NewFilterStep(id, name, f), nil
		})

	r.MustRegister(KindAnimationFilter, "Applies a filter to every frame of an animation (params: filter)",
		func(id graph.ID, name string, p Params) (graph.Node, error) {
			f, err := parseFilter(p)
			if err != nil {
				return nil, err
			}
			return steps.NewAnimationFilterStep(id, name, f), nil
		})

	r.MustRegister(KindJoiner, "Collects bitmaps from every connected output into one frame list",
		func(id graph.ID, name string, _ Params) (graph.Node, error) {
			return steps.NewJoiner[*bitmap.Bitmap](id, name), nil
		})

	r.MustRegister(KindSheet, "Packs the latest frames with the latest settings into a sprite sheet",
		func(id graph.ID, name string, _ Params) (graph.Node, error) {
			return steps.NewSheetStep(id, name, deps.Exporter, deps.Executor), nil
		})

	r.MustRegister(KindExport, "Stores sheets, bitmaps and animations (params: prefix, format, ttl)",
		func(id graph.ID, name string, p Params) (graph.Node, error) {
			prefix, err := p.String("prefix", "")
			if err != nil {
				return nil, err
			}
			format, err := p.String("format", sheet.FormatPNG)
			if err != nil {
				return nil, err
			}
			if err := sheet.ValidateFormat(format); err != nil {
				return nil, perrors.Wrap(perrors.ErrCodeInvalidFormat, err, "export")
			}
			ttl, err := p.Duration("ttl", 0)
			if err != nil {
				return nil, err
			}
			return steps.NewFileExport(id, name, deps.Store,
				steps.WithPrefix(prefix),
				steps.WithFormat(format),
				steps.WithTTL(ttl),
				steps.WithLogger(deps.Logger),
			), nil
		})

	return r
}

func parseFilter(p Params) (bitmap.Filter, error) {
	spec, err := p.RequiredString("filter")
	if err != nil {
		return nil, err
	}
	f, err := bitmap.ParseFilter(spec)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidFilter, err, "filter %q", spec)
	}
	return f, nil
}

func loadError(err error, path string) error {
	if errors.Is(err, fs.ErrNotExist) {
		return perrors.Wrap(perrors.ErrCodeFileNotFound, err, "%s", path)
	}
	return err
}
