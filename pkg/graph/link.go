package graph

import (
	"fmt"
	"reflect"
	"slices"

	"github.com/matzehuels/spritepipe/pkg/stream"
)

// Link is a named, typed connection point owned by one node.
type Link interface {
	Node() Node
	Name() string
	Type() reflect.Type
	String() string
}

// TypeOf returns the type descriptor used to declare links carrying T.
func TypeOf[T any]() reflect.Type {
	return reflect.TypeFor[T]()
}

// Compatible reports whether values of type produced can be delivered to a link
// accepting type accepted.
func Compatible(produced, accepted reflect.Type) bool {
	if produced == nil || accepted == nil {
		return false
	}
	return produced.AssignableTo(accepted)
}

// Input is a connection point that receives values. It accepts one or more types
// and holds the outputs connected to it in connection order.
//
// The connection list is owned by the [Graph]: it only changes through
// [Graph.AddConnection] and [Graph.RemoveConnection].
type Input struct {
	node        Node
	name        string
	accepts     []reflect.Type
	connections []*Output
}

func (i *Input) Node() Node   { return i.node }
func (i *Input) Name() string { return i.name }

// Type returns the primary accepted type (the first one declared).
func (i *Input) Type() reflect.Type { return i.accepts[0] }

// Accepts returns every accepted type.
func (i *Input) Accepts() []reflect.Type { return slices.Clone(i.accepts) }

// AcceptsType reports whether a value of type t may be delivered to i.
func (i *Input) AcceptsType(t reflect.Type) bool {
	for _, a := range i.accepts {
		if Compatible(t, a) {
			return true
		}
	}
	return false
}

// Connections returns the connected outputs in the order they were connected.
func (i *Input) Connections() []*Output { return slices.Clone(i.connections) }

// Streams returns the value streams of the connected outputs in connection order.
func (i *Input) Streams() []stream.Publisher[any] {
	pubs := make([]stream.Publisher[any], len(i.connections))
	for n, out := range i.connections {
		pubs[n] = out.Stream()
	}
	return pubs
}

func (i *Input) String() string { return linkString(i.node, i.name) }

func (i *Input) attach(out *Output) {
	i.connections = append(i.connections, out)
}

func (i *Input) detach(out *Output) {
	if idx := slices.Index(i.connections, out); idx >= 0 {
		i.connections = slices.Delete(i.connections, idx, idx+1)
	}
}

// Output is a connection point that produces values of exactly one type.
type Output struct {
	node   Node
	name   string
	typ    reflect.Type
	source func() stream.Publisher[any]
}

func (o *Output) Node() Node         { return o.node }
func (o *Output) Name() string       { return o.name }
func (o *Output) Type() reflect.Type { return o.typ }
func (o *Output) String() string     { return linkString(o.node, o.name) }

// Stream returns the output's value stream. The stream is built per
// subscription, so it reflects the connections present when a subscriber attaches.
func (o *Output) Stream() stream.Publisher[any] {
	if o.source == nil {
		return stream.Empty[any]()
	}
	return stream.Defer(o.source)
}

func linkString(n Node, name string) string {
	if n == nil {
		return "<detached>." + name
	}
	return fmt.Sprintf("%s.%s", n.ID(), name)
}
