package recipe

import (
	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/registry"
)

// Build creates every node through reg and connects them in declaration order.
// A connection the graph rejects fails the build with ErrCodeConnectionRejected
// and the validator's reason.
func (c *Config) Build(reg *registry.Registry, opts ...graph.Option) (*graph.Graph, error) {
	if err := c.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}

	g := graph.New(opts...)
	for _, spec := range c.Nodes {
		n, err := reg.CreateWithID(spec.Kind, graph.ID(spec.ID), spec.Name, registry.Params(spec.Params))
		if err != nil {
			return nil, perrors.Wrap(perrors.GetCode(err), err, "node %q", spec.ID)
		}
		if err := g.AddNode(n); err != nil {
			return nil, perrors.Wrap(perrors.ErrCodeInvalidRecipe, err, "node %q", spec.ID)
		}
	}

	for _, conn := range c.Connections {
		if _, err := Connect(g, conn.From, conn.To); err != nil {
			return nil, err
		}
	}
	return g, nil
}

// Connect resolves two "node.link" endpoints against g and connects them.
func Connect(g *graph.Graph, from, to string) (*graph.Connection, error) {
	out, err := resolveOutput(g, from)
	if err != nil {
		return nil, err
	}
	in, err := resolveInput(g, to)
	if err != nil {
		return nil, err
	}
	if c := g.AddConnection(in, out); c != nil {
		return c, nil
	}
	reason := graph.DefaultValidator{}.Check(in, out, g)
	if reason == nil {
		// A custom validator said no.
		return nil, perrors.New(perrors.ErrCodeConnectionRejected, "%s -> %s rejected", from, to)
	}
	return nil, perrors.Wrap(perrors.ErrCodeConnectionRejected, reason, "%s -> %s", from, to)
}

func resolveOutput(g *graph.Graph, endpoint string) (*graph.Output, error) {
	n, link, err := resolveNode(g, endpoint)
	if err != nil {
		return nil, err
	}
	out := n.Output(link)
	if out == nil {
		return nil, perrors.New(perrors.ErrCodeNotFound, "node %q has no output %q", n.ID(), link)
	}
	return out, nil
}

func resolveInput(g *graph.Graph, endpoint string) (*graph.Input, error) {
	n, link, err := resolveNode(g, endpoint)
	if err != nil {
		return nil, err
	}
	in := n.Input(link)
	if in == nil {
		return nil, perrors.New(perrors.ErrCodeNotFound, "node %q has no input %q", n.ID(), link)
	}
	return in, nil
}

func resolveNode(g *graph.Graph, endpoint string) (graph.Node, string, error) {
	id, link, err := ParseEndpoint(endpoint)
	if err != nil {
		return nil, "", perrors.Wrap(perrors.ErrCodeInvalidInput, err, "endpoint")
	}
	n, ok := g.Node(graph.ID(id))
	if !ok {
		return nil, "", perrors.New(perrors.ErrCodeNodeNotFound, "node %q not found", id)
	}
	return n, link, nil
}
