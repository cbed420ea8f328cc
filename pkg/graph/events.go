package graph

// EventKind identifies a structural change to a [Graph].
type EventKind int

const (
	EventNodeAdded EventKind = iota
	EventNodeRemoved
	EventConnectionAdded
	EventConnectionRemoved
	EventConnectionRejected
)

func (k EventKind) String() string {
	switch k {
	case EventNodeAdded:
		return "node-added"
	case EventNodeRemoved:
		return "node-removed"
	case EventConnectionAdded:
		return "connection-added"
	case EventConnectionRemoved:
		return "connection-removed"
	case EventConnectionRejected:
		return "connection-rejected"
	default:
		return "unknown"
	}
}

// Event describes a structural change. Node is set for node events; Connection
// for added and removed connections; Input and Output for every connection event,
// including rejections.
type Event struct {
	Kind       EventKind
	Node       Node
	Connection *Connection
	Input      *Input
	Output     *Output
}

// Observer receives graph events synchronously, on the goroutine that mutated the
// graph. Observers must not mutate the graph.
type Observer interface {
	OnGraphEvent(Event)
}

// ObserverFunc adapts a function to [Observer].
type ObserverFunc func(Event)

func (f ObserverFunc) OnGraphEvent(e Event) { f(e) }
