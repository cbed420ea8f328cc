package steps

import (
	"context"
	"fmt"
	"time"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/sheet"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// SheetStep combines the latest frames with the latest settings and exports a
// sprite sheet for every combination. It fires only once both inputs have
// delivered. Exports run on the step's executor, so the goroutine that
// delivered the triggering value is never blocked; results keep input order.
//
// The frames input accepts *bitmap.Animation, []*bitmap.Bitmap and a single
// *bitmap.Bitmap.
type SheetStep struct {
	graph.Base
	exporter sheet.Exporter
	exec     stream.Executor
}

// NewSheetStep creates a sheet step. A nil executor runs exports on a new
// goroutine per subscription batch.
func NewSheetStep(id graph.ID, name string, exporter sheet.Exporter, exec stream.Executor) *SheetStep {
	if exec == nil {
		exec = stream.Goroutine
	}
	s := &SheetStep{exporter: exporter, exec: exec}
	s.Base = graph.NewBase(s, id, name)
	frames := s.AddInput(LinkFrames,
		graph.TypeOf[*bitmap.Animation](),
		graph.TypeOf[[]*bitmap.Bitmap](),
		graph.TypeOf[*bitmap.Bitmap](),
	)
	settings := s.AddInput(LinkSettings, graph.TypeOf[sheet.Settings]())
	s.AddOutput(LinkSheet, graph.TypeOf[*sheet.Artifact](), func() stream.Publisher[any] {
		latest := stream.CombineLatest([]stream.Publisher[any]{
			stream.Merge(frames.Streams()...),
			stream.Merge(settings.Streams()...),
		})
		return stream.MapAsync(latest, s.exec, s.export)
	})
	return s
}

func (s *SheetStep) export(ctx context.Context, values []any) (any, error) {
	job, err := newJob(values[0], values[1])
	if err != nil {
		return nil, err
	}
	return s.exporter.ExportSheet(ctx, job)
}

func newJob(frames, settings any) (sheet.Job, error) {
	cfg, ok := settings.(sheet.Settings)
	if !ok {
		return sheet.Job{}, fmt.Errorf("%w: settings %T", stream.ErrUnexpectedType, settings)
	}

	var (
		name     string
		sprites  []*bitmap.Bitmap
		duration time.Duration
	)
	switch v := frames.(type) {
	case *bitmap.Animation:
		name, sprites, duration = v.Name, v.Frames, v.FrameDuration
	case []*bitmap.Bitmap:
		sprites = v
	case *bitmap.Bitmap:
		name, sprites = v.Name, []*bitmap.Bitmap{v}
	default:
		return sheet.Job{}, fmt.Errorf("%w: frames %T", stream.ErrUnexpectedType, frames)
	}

	if cfg.Name == "" {
		cfg.Name = name
	}
	return sheet.Job{Sheet: cfg, Sprites: sprites, Duration: duration}, nil
}
