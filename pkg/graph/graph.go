package graph

import (
	"errors"
	"fmt"
	"slices"
)

var (
	// ErrInvalidNode is returned when a nil node is added.
	ErrInvalidNode = errors.New("invalid node")
	// ErrInvalidIdentity is returned when a node has an empty ID.
	ErrInvalidIdentity = errors.New("node ID must not be empty")
	// ErrDuplicateIdentity is returned when another node already uses the ID.
	ErrDuplicateIdentity = errors.New("duplicate node ID")
	// ErrNodeNotFound is returned when removing a node that is not registered.
	ErrNodeNotFound = errors.New("node not found")
)

// Graph is the container of nodes and connections. The zero value is not usable;
// create graphs with [New].
type Graph struct {
	nodes       map[ID]Node
	order       []ID
	connections []*Connection
	validator   ConnectionValidator
	observers   []*observer
}

type observer struct{ Observer }

// Option configures a [Graph].
type Option func(*Graph)

// WithValidator replaces the [DefaultValidator].
func WithValidator(v ConnectionValidator) Option {
	return func(g *Graph) {
		if v != nil {
			g.validator = v
		}
	}
}

// WithObserver registers an observer at construction.
func WithObserver(o Observer) Option {
	return func(g *Graph) {
		if o != nil {
			g.observers = append(g.observers, &observer{o})
		}
	}
}

// New returns an empty graph.
func New(opts ...Option) *Graph {
	g := &Graph{
		nodes:     make(map[ID]Node),
		validator: DefaultValidator{},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Observe registers o and returns a function that unregisters it.
func (g *Graph) Observe(o Observer) (remove func()) {
	entry := &observer{o}
	g.observers = append(g.observers, entry)
	return func() {
		if i := slices.Index(g.observers, entry); i >= 0 {
			g.observers = slices.Delete(g.observers, i, i+1)
		}
	}
}

func (g *Graph) emit(e Event) {
	for _, o := range g.observers {
		o.OnGraphEvent(e)
	}
}

// Validator returns the validator consulted by AddConnection.
func (g *Graph) Validator() ConnectionValidator { return g.validator }

// AddNode registers n. Adding the same node instance again is a no-op.
func (g *Graph) AddNode(n Node) error {
	if n == nil {
		return ErrInvalidNode
	}
	id := n.ID()
	if id == "" {
		return ErrInvalidIdentity
	}
	if existing, ok := g.nodes[id]; ok {
		if existing == n {
			return nil
		}
		return fmt.Errorf("%w: %s", ErrDuplicateIdentity, id)
	}
	g.nodes[id] = n
	g.order = append(g.order, id)
	g.emit(Event{Kind: EventNodeAdded, Node: n})
	return nil
}

// RemoveNode unregisters n. Connections touching n's links are left in place;
// call [Graph.Disconnect] first to drop them.
func (g *Graph) RemoveNode(n Node) error {
	if n == nil {
		return ErrNodeNotFound
	}
	id := n.ID()
	if existing, ok := g.nodes[id]; !ok || existing != n {
		return fmt.Errorf("%w: %s", ErrNodeNotFound, id)
	}
	delete(g.nodes, id)
	if i := slices.Index(g.order, id); i >= 0 {
		g.order = slices.Delete(g.order, i, i+1)
	}
	g.emit(Event{Kind: EventNodeRemoved, Node: n})
	return nil
}

// AddConnection connects out to in if the validator accepts the pair. It returns
// nil when the connection is rejected; rejection leaves the graph unchanged.
// Detached links are rejected whatever the validator says.
func (g *Graph) AddConnection(in *Input, out *Output) *Connection {
	if in == nil || out == nil || in.Node() == nil || out.Node() == nil ||
		!g.validator.CanConnect(in, out, g) {
		g.emit(Event{Kind: EventConnectionRejected, Input: in, Output: out})
		return nil
	}
	c := &Connection{input: in, output: out}
	g.connections = append(g.connections, c)
	in.attach(out)
	g.emit(Event{Kind: EventConnectionAdded, Connection: c, Input: in, Output: out})
	return c
}

// RemoveConnection removes c. It reports false when c is not part of the graph.
func (g *Graph) RemoveConnection(c *Connection) bool {
	if c == nil {
		return false
	}
	i := slices.Index(g.connections, c)
	if i < 0 {
		return false
	}
	g.connections = slices.Delete(g.connections, i, i+1)
	c.input.detach(c.output)
	g.emit(Event{Kind: EventConnectionRemoved, Connection: c, Input: c.input, Output: c.output})
	return true
}

// Disconnect removes every connection touching a link of n and returns how many
// were removed.
func (g *Graph) Disconnect(n Node) int {
	var doomed []*Connection
	for _, c := range g.connections {
		if c.input.Node() == n || c.output.Node() == n {
			doomed = append(doomed, c)
		}
	}
	for _, c := range doomed {
		g.RemoveConnection(c)
	}
	return len(doomed)
}

// Node returns the registered node with the given ID.
func (g *Graph) Node(id ID) (Node, bool) {
	n, ok := g.nodes[id]
	return n, ok
}

// Nodes returns the registered nodes in registration order.
func (g *Graph) Nodes() []Node {
	out := make([]Node, 0, len(g.order))
	for _, id := range g.order {
		out = append(out, g.nodes[id])
	}
	return out
}

// Sinks returns the registered nodes implementing [Sink], in registration order.
func (g *Graph) Sinks() []Sink {
	var out []Sink
	for _, id := range g.order {
		if s, ok := g.nodes[id].(Sink); ok {
			out = append(out, s)
		}
	}
	return out
}

// Connections returns every connection in the order it was added.
func (g *Graph) Connections() []*Connection { return slices.Clone(g.connections) }

// ConnectionsFor returns the connections that have link as one end.
func (g *Graph) ConnectionsFor(link Link) []*Connection {
	var out []*Connection
	for _, c := range g.connections {
		if c.Touches(link) {
			out = append(out, c)
		}
	}
	return out
}

// AreConnected reports whether out is connected to in.
func (g *Graph) AreConnected(in *Input, out *Output) bool {
	for _, c := range g.connections {
		if c.input == in && c.output == out {
			return true
		}
	}
	return false
}

func (g *Graph) NodeCount() int       { return len(g.nodes) }
func (g *Graph) ConnectionCount() int { return len(g.connections) }
