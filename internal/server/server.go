// Package server exposes a pipeline graph over HTTP.
//
// The server owns one graph and serializes every mutation behind a mutex. Each
// node is recorded together with the kind and parameters it was created from,
// so a run builds a fresh copy of the graph and sinks never have to be begun
// twice. Runs therefore do not block editing.
//
// Routes:
//
//	GET    /healthz
//	GET    /kinds
//	GET    /nodes
//	POST   /nodes              {"id", "kind", "name", "params"}
//	GET    /nodes/{id}
//	DELETE /nodes/{id}         drops the node's connections too
//	GET    /connections
//	POST   /connections        {"from": "node.link", "to": "node.link"}
//	DELETE /connections?from=node.link&to=node.link
//	POST   /run
package server

import (
	"io"
	"net/http"
	"sync"

	"github.com/charmbracelet/log"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/pipeline"
	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/registry"
)

// Server serves the graph editing API.
type Server struct {
	reg    *registry.Registry
	runner *pipeline.Runner
	logger *log.Logger
	router chi.Router

	mu    sync.Mutex
	graph *graph.Graph
	specs map[graph.ID]recipe.Node
}

// New creates a server with an empty graph. reg builds nodes, both for editing
// and for every run; runner executes the runs.
func New(reg *registry.Registry, runner *pipeline.Runner, logger *log.Logger) *Server {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	if runner == nil {
		runner = pipeline.NewRunner(logger)
	}
	s := &Server{
		reg:    reg,
		runner: runner,
		logger: logger,
		specs:  make(map[graph.ID]recipe.Node),
	}
	s.graph = graph.New(graph.WithObserver(graph.ObserverFunc(s.onGraphEvent)))
	s.router = s.routes()
	return s
}

// Load replaces the graph with the nodes and connections of cfg.
func (s *Server) Load(cfg *recipe.Config) error {
	g, err := cfg.Build(s.reg, graph.WithObserver(graph.ObserverFunc(s.onGraphEvent)))
	if err != nil {
		return err
	}
	specs := make(map[graph.ID]recipe.Node, len(cfg.Nodes))
	for _, n := range cfg.Nodes {
		specs[graph.ID(n.ID)] = n
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.graph, s.specs = g, specs
	return nil
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequests)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	r.Get("/kinds", s.listKinds)
	r.Route("/nodes", func(r chi.Router) {
		r.Get("/", s.listNodes)
		r.Post("/", s.createNode)
		r.Get("/{id}", s.getNode)
		r.Delete("/{id}", s.deleteNode)
	})
	r.Route("/connections", func(r chi.Router) {
		r.Get("/", s.listConnections)
		r.Post("/", s.createConnection)
		r.Delete("/", s.deleteConnection)
	})
	r.Post("/run", s.run)
	return r
}

// snapshot returns the recipe that rebuilds the current graph.
func (s *Server) snapshot() *recipe.Config {
	s.mu.Lock()
	defer s.mu.Unlock()
	cfg := &recipe.Config{}
	for _, n := range s.graph.Nodes() {
		spec := s.specs[n.ID()]
		spec.Name = n.Name()
		cfg.Nodes = append(cfg.Nodes, spec)
	}
	for _, c := range s.graph.Connections() {
		cfg.Connections = append(cfg.Connections, recipe.Connection{
			From: c.Output().String(),
			To:   c.Input().String(),
		})
	}
	return cfg
}

func (s *Server) onGraphEvent(e graph.Event) {
	switch e.Kind {
	case graph.EventNodeAdded, graph.EventNodeRemoved:
		s.logger.Debug(e.Kind.String(), "node", e.Node.ID())
	case graph.EventConnectionAdded, graph.EventConnectionRemoved:
		s.logger.Debug(e.Kind.String(), "connection", e.Connection)
	case graph.EventConnectionRejected:
		s.logger.Debug(e.Kind.String(), "from", e.Output, "to", e.Input)
	}
}
