// Package registry maps node kind tags to factories.
//
// Hosts never construct steps by type name at runtime; they look up a tag such
// as "filter" or "sheet" and the registered factory builds a detached node with
// a fresh identity:
//
//	reg := registry.Default(registry.Deps{Store: store})
//	node, err := reg.Create("filter", "Grayscale", registry.Params{"filter": "grayscale"})
package registry

import (
	"errors"
	"slices"
	"strings"
	"sync"

	"github.com/google/uuid"

	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/graph"
)

var (
	// ErrUnknownKind is returned for tags that were never registered.
	ErrUnknownKind = errors.New("unknown node kind")
	// ErrDuplicateKind is returned when a tag is registered twice.
	ErrDuplicateKind = errors.New("node kind already registered")
)

// Factory builds a detached node with the given identity.
type Factory func(id graph.ID, name string, p Params) (graph.Node, error)

// Kind describes a registered node kind.
type Kind struct {
	Tag         string
	Description string
	Factory     Factory
}

// Registry is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]Kind
}

// New returns an empty registry.
func New() *Registry {
	return &Registry{kinds: make(map[string]Kind)}
}

// Register adds a kind.
func (r *Registry) Register(tag, description string, f Factory) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if tag == "" || f == nil {
		return perrors.New(perrors.ErrCodeInvalidInput, "kind needs a tag and a factory")
	}
	if _, ok := r.kinds[tag]; ok {
		return perrors.Wrap(perrors.ErrCodeConflict, ErrDuplicateKind, "%q", tag)
	}
	r.kinds[tag] = Kind{Tag: tag, Description: description, Factory: f}
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(tag, description string, f Factory) {
	if err := r.Register(tag, description, f); err != nil {
		panic(err)
	}
}

// Lookup returns the kind registered under tag.
func (r *Registry) Lookup(tag string) (Kind, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	k, ok := r.kinds[tag]
	return k, ok
}

// Kinds returns every registered kind sorted by tag.
func (r *Registry) Kinds() []Kind {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Kind, 0, len(r.kinds))
	for _, k := range r.kinds {
		out = append(out, k)
	}
	slices.SortFunc(out, func(a, b Kind) int { return strings.Compare(a.Tag, b.Tag) })
	return out
}

// Create builds a node of the given kind with a random UUID identity.
func (r *Registry) Create(tag, name string, p Params) (graph.Node, error) {
	return r.CreateWithID(tag, graph.ID(uuid.NewString()), name, p)
}

// CreateWithID builds a node of the given kind with a caller-chosen identity.
// An empty name defaults to the tag.
func (r *Registry) CreateWithID(tag string, id graph.ID, name string, p Params) (graph.Node, error) {
	k, ok := r.Lookup(tag)
	if !ok {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidKind, ErrUnknownKind, "%q", tag)
	}
	if err := perrors.ValidateNodeID(string(id)); err != nil {
		return nil, err
	}
	if name == "" {
		name = tag
	}
	if p == nil {
		p = Params{}
	}
	n, err := k.Factory(id, name, p)
	if err != nil {
		code := perrors.GetCode(err)
		if code == "" {
			code = perrors.ErrCodeInvalidInput
		}
		return nil, perrors.Wrap(code, err, "create %s node %q", tag, id)
	}
	n.Meta()["kind"] = tag
	return n, nil
}
