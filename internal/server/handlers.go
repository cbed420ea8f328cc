package server

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/registry"
)

// =============================================================================
// Kinds
// =============================================================================

func (s *Server) listKinds(w http.ResponseWriter, _ *http.Request) {
	kinds := s.reg.Kinds()
	out := make([]kindView, len(kinds))
	for i, k := range kinds {
		out[i] = kindView{Tag: k.Tag, Description: k.Description}
	}
	writeJSON(w, http.StatusOK, out)
}

// =============================================================================
// Nodes
// =============================================================================

type createNodeRequest struct {
	ID     string          `json:"id,omitempty"`
	Kind   string          `json:"kind"`
	Name   string          `json:"name,omitempty"`
	Params registry.Params `json:"params,omitempty"`
}

func (s *Server) listNodes(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	nodes := s.graph.Nodes()
	out := make([]nodeView, len(nodes))
	for i, n := range nodes {
		out[i] = newNodeView(n)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createNode(w http.ResponseWriter, r *http.Request) {
	var req createNodeRequest
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}

	var (
		n   graph.Node
		err error
	)
	if req.ID == "" {
		n, err = s.reg.Create(req.Kind, req.Name, req.Params)
	} else {
		n, err = s.reg.CreateWithID(req.Kind, graph.ID(req.ID), req.Name, req.Params)
	}
	if err != nil {
		writeError(w, err)
		return
	}

	s.mu.Lock()
	err = s.graph.AddNode(n)
	if err == nil {
		s.specs[n.ID()] = recipe.Node{ID: string(n.ID()), Kind: req.Kind, Name: n.Name(), Params: req.Params}
	}
	view := newNodeView(n)
	s.mu.Unlock()
	if err != nil {
		writeError(w, graphError(err))
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) getNode(w http.ResponseWriter, r *http.Request) {
	id := graph.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	n, ok := s.graph.Node(id)
	var view nodeView
	if ok {
		view = newNodeView(n)
	}
	s.mu.Unlock()
	if !ok {
		writeError(w, perrors.New(perrors.ErrCodeNodeNotFound, "node %q not found", id))
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) deleteNode(w http.ResponseWriter, r *http.Request) {
	id := graph.ID(chi.URLParam(r, "id"))
	s.mu.Lock()
	n, ok := s.graph.Node(id)
	var err error
	if ok {
		s.graph.Disconnect(n)
		err = s.graph.RemoveNode(n)
		delete(s.specs, id)
	}
	s.mu.Unlock()
	switch {
	case !ok:
		writeError(w, perrors.New(perrors.ErrCodeNodeNotFound, "node %q not found", id))
	case err != nil:
		writeError(w, graphError(err))
	default:
		w.WriteHeader(http.StatusNoContent)
	}
}

// =============================================================================
// Connections
// =============================================================================

func (s *Server) listConnections(w http.ResponseWriter, _ *http.Request) {
	s.mu.Lock()
	conns := s.graph.Connections()
	out := make([]connectionView, len(conns))
	for i, c := range conns {
		out[i] = newConnectionView(c)
	}
	s.mu.Unlock()
	writeJSON(w, http.StatusOK, out)
}

func (s *Server) createConnection(w http.ResponseWriter, r *http.Request) {
	var req connectionView
	if err := decodeJSON(r, &req); err != nil {
		writeError(w, err)
		return
	}
	s.mu.Lock()
	c, err := recipe.Connect(s.graph, req.From, req.To)
	s.mu.Unlock()
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, newConnectionView(c))
}

func (s *Server) deleteConnection(w http.ResponseWriter, r *http.Request) {
	from, to := r.URL.Query().Get("from"), r.URL.Query().Get("to")
	s.mu.Lock()
	removed := false
	for _, c := range s.graph.Connections() {
		if c.Output().String() == from && c.Input().String() == to {
			removed = s.graph.RemoveConnection(c)
			break
		}
	}
	s.mu.Unlock()
	if !removed {
		writeError(w, perrors.New(perrors.ErrCodeNotFound, "connection %s -> %s not found", from, to))
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// Runs
// =============================================================================

func (s *Server) run(w http.ResponseWriter, r *http.Request) {
	g, err := s.snapshot().Build(s.reg)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.runner.Run(r.Context(), g)
	view := runView{Exported: result.Exported(), DurationMS: result.Stats.Duration.Milliseconds()}
	if view.Exported == nil {
		view.Exported = []string{}
	}
	for _, sr := range result.Sinks {
		sv := sinkView{ID: string(sr.ID), Name: sr.Name, Exported: sr.Exported}
		if sr.Err != nil {
			sv.Error = sr.Err.Error()
		}
		view.Sinks = append(view.Sinks, sv)
	}
	if err != nil {
		view.Error = newErrorBody(err)
		writeJSON(w, perrors.HTTPStatus(err), view)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

// =============================================================================
// Helpers
// =============================================================================

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "decode request body")
	}
	return nil
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, err error) {
	writeJSON(w, perrors.HTTPStatus(err), map[string]*errorBody{"error": newErrorBody(err)})
}

// graphError assigns codes to the graph's sentinel errors.
func graphError(err error) error {
	switch {
	case errors.Is(err, graph.ErrDuplicateIdentity):
		return perrors.Wrap(perrors.ErrCodeConflict, err, "add node")
	case errors.Is(err, graph.ErrNodeNotFound):
		return perrors.Wrap(perrors.ErrCodeNodeNotFound, err, "remove node")
	default:
		return perrors.Wrap(perrors.ErrCodeInvalidInput, err, "graph")
	}
}
