package steps

import (
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// Joiner collects every value from all outputs connected to its input and
// delivers them as one slice once every upstream has completed. The slice is
// ordered by connection order, then by delivery order within one upstream.
type Joiner[T any] struct {
	graph.Base
}

// NewJoiner creates a joiner with input [LinkItems] accepting T and output
// [LinkJoined] producing []T.
func NewJoiner[T any](id graph.ID, name string) *Joiner[T] {
	j := &Joiner[T]{}
	j.Base = graph.NewBase(j, id, name)
	in := j.AddInput(LinkItems, graph.TypeOf[T]())
	j.AddOutput(LinkJoined, graph.TypeOf[[]T](), func() stream.Publisher[any] {
		upstreams := in.Streams()
		srcs := make([]stream.Publisher[T], len(upstreams))
		for i, p := range upstreams {
			srcs[i] = stream.Typed[T](p)
		}
		return stream.Erase(stream.Join(srcs))
	})
	return j
}
