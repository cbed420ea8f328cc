package graph

import (
	"context"
	"errors"
	"reflect"
	"testing"

	"github.com/matzehuels/spritepipe/pkg/stream"
)

type valueNode[T any] struct {
	Base
	value T
}

func newValue[T any](id ID, v T) *valueNode[T] {
	n := &valueNode[T]{value: v}
	n.Base = NewBase(n, id, "Value")
	n.AddOutput("out", TypeOf[T](), func() stream.Publisher[any] {
		return stream.Erase(stream.Just(n.value))
	})
	return n
}

type doubleNode struct {
	Base
}

func newDouble(id ID) *doubleNode {
	n := &doubleNode{}
	n.Base = NewBase(n, id, "Double")
	in := n.AddInput("in", TypeOf[int]())
	n.AddOutput("out", TypeOf[int](), func() stream.Publisher[any] {
		ints := stream.Typed[int](stream.Merge(in.Streams()...))
		return stream.Erase(stream.Map(ints, func(v int) (int, error) { return v * 2, nil }))
	})
	return n
}

type anyNode struct {
	Base
}

func newAny(id ID) *anyNode {
	n := &anyNode{}
	n.Base = NewBase(n, id, "Any")
	n.AddInput("in", TypeOf[any]())
	return n
}

func mustAdd(t *testing.T, g *Graph, nodes ...Node) {
	t.Helper()
	for _, n := range nodes {
		if err := g.AddNode(n); err != nil {
			t.Fatalf("AddNode(%s): %v", n.ID(), err)
		}
	}
}

func TestAddNode(t *testing.T) {
	g := New()
	a := newDouble("a")
	mustAdd(t, g, a)

	tests := []struct {
		name string
		node Node
		want error
	}{
		{"Nil", nil, ErrInvalidNode},
		{"EmptyIdentity", newDouble(""), ErrInvalidIdentity},
		{"DuplicateIdentity", newDouble("a"), ErrDuplicateIdentity},
		{"SameInstance", a, nil},
		{"Fresh", newDouble("b"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := g.AddNode(tt.node)
			if !errors.Is(err, tt.want) {
				t.Errorf("AddNode() error = %v, want %v", err, tt.want)
			}
		})
	}

	if got := g.NodeCount(); got != 2 {
		t.Errorf("NodeCount() = %d, want 2", got)
	}
	if n, ok := g.Node("a"); !ok || n != a {
		t.Errorf("Node(a) = %v, %v", n, ok)
	}
}

func TestRemoveNode(t *testing.T) {
	g := New()
	a, b := newDouble("a"), newDouble("b")
	mustAdd(t, g, a, b)

	if err := g.RemoveNode(newDouble("a")); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("removing a different instance: err = %v, want %v", err, ErrNodeNotFound)
	}
	if err := g.RemoveNode(a); err != nil {
		t.Fatalf("RemoveNode: %v", err)
	}
	if err := g.RemoveNode(a); !errors.Is(err, ErrNodeNotFound) {
		t.Errorf("second RemoveNode: err = %v, want %v", err, ErrNodeNotFound)
	}
	if got := g.Nodes(); len(got) != 1 || got[0] != b {
		t.Errorf("Nodes() = %v, want [b]", got)
	}
}

func TestRemoveNodeKeepsConnections(t *testing.T) {
	g := New()
	a, b := newValue("a", 1), newDouble("b")
	mustAdd(t, g, a, b)
	g.AddConnection(b.Input("in"), a.Output("out"))

	if err := g.RemoveNode(a); err != nil {
		t.Fatal(err)
	}
	if got := g.ConnectionCount(); got != 1 {
		t.Errorf("ConnectionCount() = %d, want 1", got)
	}
	if removed := g.Disconnect(a); removed != 1 {
		t.Errorf("Disconnect() = %d, want 1", removed)
	}
	if got := len(b.Input("in").Connections()); got != 0 {
		t.Errorf("input still holds %d connections", got)
	}
}

func TestValidatorRules(t *testing.T) {
	g := New()
	a, b := newDouble("a"), newDouble("b")
	src := newValue("src", 1)
	words := newValue("words", "hello")
	sink := newAny("sink")
	mustAdd(t, g, a, b, src, words, sink)
	if g.AddConnection(b.Input("in"), a.Output("out")) == nil {
		t.Fatal("a -> b rejected")
	}

	detached := &doubleNode{}
	detached.Base = NewBase(nil, "detached", "Detached")
	detachedIn := detached.AddInput("in", TypeOf[int]())

	tests := []struct {
		name string
		in   *Input
		out  *Output
		want error
	}{
		{"NilInput", nil, src.Output("out"), ErrDetachedLink},
		{"DetachedInput", detachedIn, src.Output("out"), ErrDetachedLink},
		{"SelfLoop", a.Input("in"), a.Output("out"), ErrSelfLoop},
		{"Duplicate", b.Input("in"), a.Output("out"), ErrDuplicateConnection},
		{"ReversePath", a.Input("in"), b.Output("out"), ErrCycle},
		{"TypeMismatch", a.Input("in"), words.Output("out"), ErrTypeMismatch},
		{"AssignableToInterface", sink.Input("in"), words.Output("out"), nil},
		{"Accepted", a.Input("in"), src.Output("out"), nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := DefaultValidator{}.Check(tt.in, tt.out, g)
			if !errors.Is(err, tt.want) {
				t.Errorf("Check() = %v, want %v", err, tt.want)
			}
			if got := (DefaultValidator{}).CanConnect(tt.in, tt.out, g); got != (tt.want == nil) {
				t.Errorf("CanConnect() = %v, want %v", got, tt.want == nil)
			}
		})
	}
}

func TestAddConnectionRejectsReversePath(t *testing.T) {
	var events []EventKind
	g := New(WithObserver(ObserverFunc(func(e Event) { events = append(events, e.Kind) })))
	a, b, c := newDouble("a"), newDouble("b"), newDouble("c")
	mustAdd(t, g, a, b, c)

	g.AddConnection(b.Input("in"), a.Output("out"))
	g.AddConnection(c.Input("in"), b.Output("out"))
	before := g.ConnectionCount()

	if conn := g.AddConnection(a.Input("in"), c.Output("out")); conn != nil {
		t.Fatalf("AddConnection() = %v, want nil", conn)
	}
	if got := g.ConnectionCount(); got != before {
		t.Errorf("ConnectionCount() = %d, want %d", got, before)
	}
	if got := len(a.Input("in").Connections()); got != 0 {
		t.Errorf("rejected connection attached to input: %d", got)
	}

	want := []EventKind{
		EventNodeAdded, EventNodeAdded, EventNodeAdded,
		EventConnectionAdded, EventConnectionAdded, EventConnectionRejected,
	}
	if !reflect.DeepEqual(events, want) {
		t.Errorf("events = %v, want %v", events, want)
	}
}

func TestWithValidator(t *testing.T) {
	var calls int
	permissive := ValidatorFunc(func(*Input, *Output, *Graph) bool {
		calls++
		return true
	})
	g := New(WithValidator(permissive))
	if _, ok := g.Validator().(ValidatorFunc); !ok {
		t.Fatalf("Validator() = %T, want ValidatorFunc", g.Validator())
	}
	s, d := newValue("s", "text"), newDouble("d")
	mustAdd(t, g, s, d)

	if c := g.AddConnection(d.Input("in"), s.Output("out")); c == nil {
		t.Fatal("AddConnection() = nil with a permissive validator")
	}
	if calls != 1 {
		t.Errorf("validator calls = %d, want 1", calls)
	}

	strict := New(WithValidator(ValidatorFunc(func(*Input, *Output, *Graph) bool { return false })))
	x, y := newValue("x", 1), newDouble("y")
	mustAdd(t, strict, x, y)
	if c := strict.AddConnection(y.Input("in"), x.Output("out")); c != nil {
		t.Errorf("AddConnection() = %v, want nil", c)
	}
	if strict.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", strict.ConnectionCount())
	}
}

func TestAddConnectionDetachedLinks(t *testing.T) {
	var rejected int
	g := New(
		WithValidator(ValidatorFunc(func(*Input, *Output, *Graph) bool { return true })),
		WithObserver(ObserverFunc(func(e Event) {
			if e.Kind == EventConnectionRejected {
				rejected++
			}
		})),
	)
	src, d := newValue("src", 1), newDouble("d")
	mustAdd(t, g, src, d)
	loose := &Input{name: "loose", accepts: []reflect.Type{TypeOf[int]()}}

	tests := []struct {
		name string
		in   *Input
		out  *Output
	}{
		{"nil input", nil, src.Output("out")},
		{"nil output", d.Input("in"), nil},
		{"both nil", nil, nil},
		{"input without node", loose, src.Output("out")},
		{"output without node", d.Input("in"), &Output{name: "loose", typ: TypeOf[int]()}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if c := g.AddConnection(tt.in, tt.out); c != nil {
				t.Errorf("AddConnection() = %v, want nil", c)
			}
		})
	}
	if g.ConnectionCount() != 0 {
		t.Errorf("ConnectionCount() = %d, want 0", g.ConnectionCount())
	}
	if rejected != len(tests) {
		t.Errorf("rejected events = %d, want %d", rejected, len(tests))
	}
}

func TestObserve(t *testing.T) {
	g := New()
	var seen []EventKind
	remove := g.Observe(ObserverFunc(func(e Event) { seen = append(seen, e.Kind) }))

	mustAdd(t, g, newValue("a", 1))
	remove()
	mustAdd(t, g, newValue("b", 2))
	remove()

	if want := []EventKind{EventNodeAdded}; !reflect.DeepEqual(seen, want) {
		t.Errorf("events = %v, want %v", seen, want)
	}
}

func TestRemoveConnection(t *testing.T) {
	g := New()
	x, y, d := newValue("x", 1), newValue("y", 2), newDouble("d")
	mustAdd(t, g, x, y, d)

	in := d.Input("in")
	cx := g.AddConnection(in, x.Output("out"))
	cy := g.AddConnection(in, y.Output("out"))
	if cx == nil || cy == nil {
		t.Fatal("fan-in connection rejected")
	}

	if got := in.Connections(); !reflect.DeepEqual(got, []*Output{x.Output("out"), y.Output("out")}) {
		t.Errorf("Connections() = %v", got)
	}
	if got := g.ConnectionsFor(in); len(got) != 2 {
		t.Errorf("ConnectionsFor(input) = %d connections, want 2", len(got))
	}
	if got := g.ConnectionsFor(x.Output("out")); len(got) != 1 || got[0] != cx {
		t.Errorf("ConnectionsFor(output) = %v, want [%v]", got, cx)
	}

	if !g.RemoveConnection(cx) {
		t.Fatal("RemoveConnection() = false")
	}
	if g.RemoveConnection(cx) {
		t.Error("second RemoveConnection() = true")
	}
	if g.AreConnected(in, x.Output("out")) {
		t.Error("AreConnected() after removal")
	}
	if got := in.Connections(); !reflect.DeepEqual(got, []*Output{y.Output("out")}) {
		t.Errorf("Connections() after removal = %v", got)
	}
}

func TestTraverseInputs(t *testing.T) {
	g := New()
	src, a, b := newValue("src", 1), newDouble("a"), newDouble("b")
	mustAdd(t, g, src, a, b)
	g.AddConnection(a.Input("in"), src.Output("out"))
	g.AddConnection(b.Input("in"), a.Output("out"))

	var visited []ID
	TraverseInputs(b, func(n Node) bool {
		visited = append(visited, n.ID())
		return true
	})
	if !reflect.DeepEqual(visited, []ID{"a", "src"}) {
		t.Errorf("visited = %v, want [a src]", visited)
	}

	visited = nil
	TraverseInputs(b, func(n Node) bool {
		visited = append(visited, n.ID())
		return false
	})
	if !reflect.DeepEqual(visited, []ID{"a"}) {
		t.Errorf("visited = %v, want [a]", visited)
	}

	if !IsIndirectlyConnected(src, b) || !IsIndirectlyConnected(b, src) {
		t.Error("src and b should be indirectly connected")
	}
}

func TestSourceDoubledScenario(t *testing.T) {
	g := New()
	src, double := newValue("src", 5), newDouble("double")
	mustAdd(t, g, src, double)
	if g.AddConnection(double.Input("in"), src.Output("out")) == nil {
		t.Fatal("connection rejected")
	}

	got, err := stream.Collect(context.Background(), double.Output("out").Stream())
	if err != nil {
		t.Fatal(err)
	}
	if !reflect.DeepEqual(got, []any{10}) {
		t.Errorf("got %v, want [10]", got)
	}
}

func TestSourceReplays(t *testing.T) {
	src := newValue("src", 7)
	for i := 0; i < 2; i++ {
		got, err := stream.Collect(context.Background(), src.Output("out").Stream())
		if err != nil || !reflect.DeepEqual(got, []any{7}) {
			t.Errorf("subscription %d: got %v, %v", i, got, err)
		}
	}
}

func TestKindOf(t *testing.T) {
	isolated := &doubleNode{}
	isolated.Base = NewBase(isolated, "iso", "Isolated")

	tests := []struct {
		node Node
		want Kind
	}{
		{newValue("v", 1), KindSource},
		{newDouble("d"), KindTransform},
		{newAny("s"), KindSink},
		{isolated, KindIsolated},
	}
	for _, tt := range tests {
		if got := KindOf(tt.node); got != tt.want {
			t.Errorf("KindOf(%s) = %v, want %v", tt.node.ID(), got, tt.want)
		}
	}
}

func TestFlags(t *testing.T) {
	f := newDouble("d").Flags()
	f.Set("preview")
	f.Set("bypass")
	f.Clear("preview")
	if f.Has("preview") || !f.Has("bypass") {
		t.Errorf("flags = %v", f.List())
	}
}

func TestDuplicateLinkNamePanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("expected panic")
		}
	}()
	n := newDouble("d")
	n.AddOutput("in", TypeOf[int](), nil)
}
