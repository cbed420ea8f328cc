package graph

import (
	"errors"
	"fmt"
)

// Reasons reported by [DefaultValidator.Check].
var (
	ErrDetachedLink        = errors.New("link is not attached to a node")
	ErrSelfLoop            = errors.New("input and output belong to the same node")
	ErrDuplicateConnection = errors.New("input and output are already connected")
	ErrCycle               = errors.New("connection would close a cycle")
	ErrTypeMismatch        = errors.New("output type is not accepted by input")
)

// ConnectionValidator decides whether a proposed connection may be added to g.
// Implementations must not mutate the graph.
type ConnectionValidator interface {
	CanConnect(in *Input, out *Output, g *Graph) bool
}

// ValidatorFunc adapts a function to [ConnectionValidator].
type ValidatorFunc func(in *Input, out *Output, g *Graph) bool

func (f ValidatorFunc) CanConnect(in *Input, out *Output, g *Graph) bool { return f(in, out, g) }

// DefaultValidator enforces the structural rules of the graph. A connection is
// rejected when, checked in this order:
//
//  1. either link is nil or not owned by a node,
//  2. both links belong to the same node,
//  3. the pair is already connected in g,
//  4. the output's node is already reachable from the input's node through
//     existing connections, following either direction,
//  5. the output's type is not assignable to any type the input accepts.
type DefaultValidator struct{}

// CanConnect reports whether Check finds no violation.
func (v DefaultValidator) CanConnect(in *Input, out *Output, g *Graph) bool {
	return v.Check(in, out, g) == nil
}

// Check returns the first violated rule, or nil.
func (DefaultValidator) Check(in *Input, out *Output, g *Graph) error {
	if in == nil || out == nil || in.Node() == nil || out.Node() == nil {
		return ErrDetachedLink
	}
	if in.Node() == out.Node() {
		return fmt.Errorf("%w: %s", ErrSelfLoop, in.Node().ID())
	}
	if g != nil && g.AreConnected(in, out) {
		return fmt.Errorf("%w: %s -> %s", ErrDuplicateConnection, out, in)
	}
	if IsIndirectlyConnected(in.Node(), out.Node()) {
		return fmt.Errorf("%w: %s -> %s", ErrCycle, out, in)
	}
	if !in.AcceptsType(out.Type()) {
		return fmt.Errorf("%w: %s produces %v", ErrTypeMismatch, out, out.Type())
	}
	return nil
}

// TraverseInputs walks upstream from start breadth-first. For every input of a
// visited node it follows each connected output to that output's node. Each node
// is visited at most once and start itself is not passed to visit. The walk stops
// early when visit returns false.
func TraverseInputs(start Node, visit func(Node) bool) {
	if start == nil {
		return
	}
	seen := map[Node]bool{start: true}
	queue := []Node{start}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		for _, in := range n.Inputs() {
			for _, out := range in.connections {
				up := out.Node()
				if up == nil || seen[up] {
					continue
				}
				seen[up] = true
				if !visit(up) {
					return
				}
				queue = append(queue, up)
			}
		}
	}
}

// IsUpstream reports whether b is reachable from a by walking inputs.
func IsUpstream(a, b Node) bool {
	found := false
	TraverseInputs(a, func(n Node) bool {
		found = n == b
		return !found
	})
	return found
}

// IsIndirectlyConnected reports whether either node is upstream of the other.
func IsIndirectlyConnected(a, b Node) bool {
	return IsUpstream(a, b) || IsUpstream(b, a)
}
