package graph

import (
	"context"
	"fmt"
	"maps"
	"reflect"
	"slices"

	"github.com/matzehuels/spritepipe/pkg/stream"
)

// ID identifies a node. IDs are assigned by the caller at construction and must
// not be empty.
type ID string

// Metadata stores arbitrary key-value pairs attached to a node. Metadata maps are
// never nil on nodes built with [NewBase].
type Metadata map[string]any

// Flags is a set of named boolean flags.
type Flags map[string]struct{}

// Set turns the flag on.
func (f Flags) Set(name string) { f[name] = struct{}{} }

// Clear turns the flag off.
func (f Flags) Clear(name string) { delete(f, name) }

// Has reports whether the flag is on.
func (f Flags) Has(name string) bool {
	_, ok := f[name]
	return ok
}

// List returns the names of all set flags in sorted order.
func (f Flags) List() []string {
	return slices.Sorted(maps.Keys(f))
}

// Kind classifies a node by the shape of its links.
type Kind int

const (
	// KindSource nodes have outputs only.
	KindSource Kind = iota
	// KindTransform nodes have inputs and outputs.
	KindTransform
	// KindSink nodes have inputs only.
	KindSink
	// KindIsolated nodes have no links at all.
	KindIsolated
)

func (k Kind) String() string {
	switch k {
	case KindSource:
		return "source"
	case KindTransform:
		return "transform"
	case KindSink:
		return "sink"
	default:
		return "isolated"
	}
}

// Node is a unit of the pipeline graph.
//
// Implementations embed [Base], which provides every method, and are always used
// through a pointer so that node identity is well defined.
type Node interface {
	ID() ID
	Name() string
	Meta() Metadata
	Flags() Flags
	Inputs() []*Input
	Outputs() []*Output
	Input(name string) *Input
	Output(name string) *Output
}

// Sink is a node that consumes values. Begin subscribes to the outputs connected
// to the sink's inputs and activates consumption; Dispose releases the
// subscription. Dispose must be idempotent and safe to call without Begin.
type Sink interface {
	Node
	Begin(ctx context.Context) error
	Dispose() error
}

// KindOf classifies n by its links.
func KindOf(n Node) Kind {
	in, out := len(n.Inputs()), len(n.Outputs())
	switch {
	case in == 0 && out > 0:
		return KindSource
	case in > 0 && out > 0:
		return KindTransform
	case in > 0:
		return KindSink
	default:
		return KindIsolated
	}
}

// Base is the embeddable implementation of [Node].
//
//	type Doubler struct {
//	    graph.Base
//	}
//
//	func NewDoubler(id graph.ID) *Doubler {
//	    d := &Doubler{}
//	    d.Base = graph.NewBase(d, id, "Doubler")
//	    in := d.AddInput("in", graph.TypeOf[int]())
//	    d.AddOutput("out", graph.TypeOf[int](), func() stream.Publisher[any] { ... })
//	    return d
//	}
type Base struct {
	self    Node
	id      ID
	name    string
	meta    Metadata
	flags   Flags
	inputs  []*Input
	outputs []*Output
}

// NewBase returns a Base owned by self. self is the outer node that embeds the
// Base; links created through the Base report it as their node.
func NewBase(self Node, id ID, name string) Base {
	return Base{
		self:  self,
		id:    id,
		name:  name,
		meta:  Metadata{},
		flags: Flags{},
	}
}

func (b *Base) ID() ID         { return b.id }
func (b *Base) Name() string   { return b.name }
func (b *Base) Meta() Metadata { return b.meta }
func (b *Base) Flags() Flags   { return b.flags }

// SetName changes the display name.
func (b *Base) SetName(name string) { b.name = name }

// Inputs returns the node's inputs in declaration order.
func (b *Base) Inputs() []*Input { return slices.Clone(b.inputs) }

// Outputs returns the node's outputs in declaration order.
func (b *Base) Outputs() []*Output { return slices.Clone(b.outputs) }

// Input returns the named input, or nil.
func (b *Base) Input(name string) *Input {
	for _, in := range b.inputs {
		if in.name == name {
			return in
		}
	}
	return nil
}

// Output returns the named output, or nil.
func (b *Base) Output(name string) *Output {
	for _, out := range b.outputs {
		if out.name == name {
			return out
		}
	}
	return nil
}

// AddInput declares an input accepting the given types. It panics when the name
// is already used by another link of the node or when no type is given; both are
// programming errors in the node's constructor.
func (b *Base) AddInput(name string, accepts ...reflect.Type) *Input {
	b.mustBeFree(name)
	if len(accepts) == 0 {
		panic(fmt.Sprintf("graph: input %q must accept at least one type", name))
	}
	in := &Input{node: b.self, name: name, accepts: slices.Clone(accepts)}
	b.inputs = append(b.inputs, in)
	return in
}

// AddOutput declares an output producing typ. source is called on every
// subscription to build the output's value stream; a nil source produces an
// empty stream.
func (b *Base) AddOutput(name string, typ reflect.Type, source func() stream.Publisher[any]) *Output {
	b.mustBeFree(name)
	if typ == nil {
		panic(fmt.Sprintf("graph: output %q must declare a type", name))
	}
	out := &Output{node: b.self, name: name, typ: typ, source: source}
	b.outputs = append(b.outputs, out)
	return out
}

func (b *Base) mustBeFree(name string) {
	if b.Input(name) != nil || b.Output(name) != nil {
		panic(fmt.Sprintf("graph: node %q already has a link named %q", b.id, name))
	}
}
