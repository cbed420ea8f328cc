// Package graph implements the pipeline graph: processing nodes, their typed
// input and output links, and the connections between them.
//
// # Overview
//
// A [Node] exposes zero or more [Input] and [Output] links. Every link belongs to
// exactly one node, has a name unique within that node, and a type. An Output
// produces exactly one type and exposes its value stream; an Input accepts one or
// more types and may be fed by several outputs at once.
//
// The [Graph] owns the set of registered nodes and the set of connections. It
// mediates every structural change through a [ConnectionValidator], so the
// following invariants hold after every mutation:
//
//   - No two registered nodes share an identity.
//   - No connection joins an input and output of the same node.
//   - No connection closes a cycle.
//   - The output's type is assignable to one of the input's accepted types.
//   - A given (Input, Output) pair is connected at most once.
//
// # Building a Graph
//
//	g := graph.New()
//	_ = g.AddNode(src)
//	_ = g.AddNode(double)
//	if c := g.AddConnection(double.Input("in"), src.Output("value")); c == nil {
//	    // rejected: not an error, the pair simply cannot be connected
//	}
//
// A rejected connection is a normal outcome and is reported as a nil
// [*Connection]; use [DefaultValidator.Check] when the reason matters.
//
// # Node Variants
//
// Nodes are classified by shape with [KindOf]: sources have outputs only,
// transforms have both, sinks have inputs only. Sinks also implement [Sink], which
// adds the Begin/Dispose lifecycle that starts and stops value propagation.
//
// # Concurrency
//
// Graph is not safe for concurrent use. A single owner (typically the host's event
// loop or a request handler holding a lock) must serialize AddNode, RemoveNode,
// AddConnection and RemoveConnection. Value propagation through the streams of
// connected outputs may run on any goroutine and never mutates the graph.
package graph
