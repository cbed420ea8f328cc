package steps

import (
	"sync"

	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// Source holds a value and delivers it to every subscriber of its output,
// followed by completion.
type Source[T any] struct {
	graph.Base
	mu    sync.RWMutex
	value T
}

// NewSource creates a source with output [LinkValue] of type T.
func NewSource[T any](id graph.ID, name string, value T) *Source[T] {
	s := &Source[T]{value: value}
	s.Base = graph.NewBase(s, id, name)
	s.AddOutput(LinkValue, graph.TypeOf[T](), func() stream.Publisher[any] {
		return stream.Just[any](s.Value())
	})
	return s
}

// Value returns the current value.
func (s *Source[T]) Value() T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.value
}

// Set replaces the value. Subscriptions made afterwards receive v.
func (s *Source[T]) Set(v T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.value = v
}
