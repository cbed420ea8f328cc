// Package pipeline runs a built graph to completion.
//
// A run begins every sink of the graph, which subscribes each sink to its
// upstream outputs and lets values propagate, then waits until every sink has
// finished or the context ends, and finally disposes every sink. The graph is
// never mutated during a run.
//
// # Usage
//
//	cfg, _ := recipe.Load("sprites.toml")
//	g, _ := cfg.Build(registry.Default(registry.Deps{Store: store}))
//
//	runner := pipeline.NewRunner(logger)
//	runner.Timeout = cfg.Execution.Timeout
//	result, err := runner.Run(ctx, g)
//
// Timeouts are a property of the run, not of the graph: they are applied here
// with [context.WithTimeout] and reach the sinks through their Begin context.
package pipeline

import (
	"time"

	"github.com/matzehuels/spritepipe/pkg/graph"
)

// Result contains the outcome of a run.
type Result struct {
	// Sinks holds one entry per sink, in graph registration order.
	Sinks []SinkResult

	// Stats contains timing and size information.
	Stats Stats
}

// Exported returns every key written by the run's sinks.
func (r *Result) Exported() []string {
	var keys []string
	for _, s := range r.Sinks {
		keys = append(keys, s.Exported...)
	}
	return keys
}

// Failed returns the sinks that recorded an error.
func (r *Result) Failed() []SinkResult {
	var out []SinkResult
	for _, s := range r.Sinks {
		if s.Err != nil {
			out = append(out, s)
		}
	}
	return out
}

// SinkResult is the outcome of one sink.
type SinkResult struct {
	ID       graph.ID
	Name     string
	Exported []string // keys written, for sinks that report them
	Err      error    // errors the sink recorded while consuming
}

// Stats contains run statistics.
type Stats struct {
	Nodes       int
	Connections int
	Sources     int
	Transforms  int
	Sinks       int
	Duration    time.Duration
}

// Describe counts the nodes of g by kind.
func Describe(g *graph.Graph) Stats {
	s := Stats{Nodes: g.NodeCount(), Connections: g.ConnectionCount()}
	for _, n := range g.Nodes() {
		switch graph.KindOf(n) {
		case graph.KindSource:
			s.Sources++
		case graph.KindTransform:
			s.Transforms++
		case graph.KindSink:
			s.Sinks++
		}
	}
	return s
}
