package server

import (
	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/graph"
)

type kindView struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
}

type linkView struct {
	Name  string   `json:"name"`
	Types []string `json:"types"`
}

type nodeView struct {
	ID      string     `json:"id"`
	Name    string     `json:"name"`
	Kind    string     `json:"kind,omitempty"`
	Shape   string     `json:"shape"`
	Flags   []string   `json:"flags,omitempty"`
	Inputs  []linkView `json:"inputs"`
	Outputs []linkView `json:"outputs"`
}

func newNodeView(n graph.Node) nodeView {
	v := nodeView{
		ID:      string(n.ID()),
		Name:    n.Name(),
		Shape:   graph.KindOf(n).String(),
		Flags:   n.Flags().List(),
		Inputs:  []linkView{},
		Outputs: []linkView{},
	}
	if kind, ok := n.Meta()["kind"].(string); ok {
		v.Kind = kind
	}
	for _, in := range n.Inputs() {
		lv := linkView{Name: in.Name()}
		for _, t := range in.Accepts() {
			lv.Types = append(lv.Types, t.String())
		}
		v.Inputs = append(v.Inputs, lv)
	}
	for _, out := range n.Outputs() {
		v.Outputs = append(v.Outputs, linkView{Name: out.Name(), Types: []string{out.Type().String()}})
	}
	return v
}

type connectionView struct {
	From string `json:"from"`
	To   string `json:"to"`
}

func newConnectionView(c *graph.Connection) connectionView {
	return connectionView{From: c.Output().String(), To: c.Input().String()}
}

type sinkView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Exported []string `json:"exported,omitempty"`
	Error    string   `json:"error,omitempty"`
}

type runView struct {
	Exported   []string   `json:"exported"`
	Sinks      []sinkView `json:"sinks"`
	DurationMS int64      `json:"duration_ms"`
	Error      *errorBody `json:"error,omitempty"`
}

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

func newErrorBody(err error) *errorBody {
	code := perrors.GetCode(err)
	if code == "" {
		code = perrors.ErrCodeInternal
	}
	return &errorBody{Code: string(code), Message: err.Error()}
}
