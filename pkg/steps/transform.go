package steps

import (
	"fmt"

	"github.com/matzehuels/spritepipe/pkg/bitmap"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// Transform applies fn to every value delivered by the outputs connected to its
// input and re-emits each result. Values arrive on whatever goroutine the
// upstream delivers on.
type Transform[In, Out any] struct {
	graph.Base
	fn func(In) (Out, error)
}

// NewTransform creates a transform with input [LinkIn] accepting In and output
// [LinkOut] producing Out.
func NewTransform[In, Out any](id graph.ID, name string, fn func(In) (Out, error)) *Transform[In, Out] {
	t := &Transform[In, Out]{fn: fn}
	t.Base = graph.NewBase(t, id, name)
	in := t.AddInput(LinkIn, graph.TypeOf[In]())
	t.AddOutput(LinkOut, graph.TypeOf[Out](), func() stream.Publisher[any] {
		values := stream.Typed[In](stream.Merge(in.Streams()...))
		return stream.Erase(stream.Map(values, t.fn))
	})
	return t
}

// NewFilterStep creates a transform that applies f to a clone of every
// incoming bitmap, leaving the upstream value untouched.
func NewFilterStep(id graph.ID, name string, f bitmap.Filter) *Transform[*bitmap.Bitmap, *bitmap.Bitmap] {
	t := NewTransform(id, name, func(b *bitmap.Bitmap) (*bitmap.Bitmap, error) {
		c := b.Clone()
		if err := f.ApplyTo(c); err != nil {
			return nil, fmt.Errorf("filter %s: %w", b.Name, err)
		}
		return c, nil
	})
	t.Meta()["filter"] = fmt.Sprint(f)
	return t
}

// NewAnimationFilterStep creates a transform that applies f to every frame of a
// clone of each incoming animation.
func NewAnimationFilterStep(id graph.ID, name string, f bitmap.Filter) *Transform[*bitmap.Animation, *bitmap.Animation] {
	t := NewTransform(id, name, func(a *bitmap.Animation) (*bitmap.Animation, error) {
		c := a.Clone()
		if err := bitmap.ApplyToAnimation(f, c); err != nil {
			return nil, fmt.Errorf("filter %s: %w", a.Name, err)
		}
		return c, nil
	})
	t.Meta()["filter"] = fmt.Sprint(f)
	return t
}
