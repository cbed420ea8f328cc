// Package recipe loads pipeline graphs from TOML build scripts.
//
// A recipe names the nodes to create, the connections between their links, where
// exported artifacts go and how the run is executed:
//
//	[output]
//	backend = "file"
//	dir = "out"
//
//	[execution]
//	workers = 4
//	timeout = "30s"
//
//	[[node]]
//	id = "hero"
//	kind = "image"
//	params = { path = "sprites/hero.png" }
//
//	[[node]]
//	id = "export"
//	kind = "export"
//
//	[[connection]]
//	from = "hero.value"
//	to = "export.artifact"
//
// Recipes are load-only: the graph is never written back.
package recipe

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/storage"
)

// =============================================================================
// Default Values
// =============================================================================

const (
	// DefaultWorkers bounds how many sheets are built at once.
	DefaultWorkers = 4
	// DefaultOutputDir is where the file backend writes when no dir is given.
	DefaultOutputDir = "out"
)

// =============================================================================
// Config
// =============================================================================

// Config is a decoded recipe.
type Config struct {
	Output      storage.Config `toml:"output"`
	Execution   Execution      `toml:"execution"`
	Nodes       []Node         `toml:"node"`
	Connections []Connection   `toml:"connection"`
}

// Execution controls how a run is scheduled.
type Execution struct {
	Workers int           `toml:"workers"`
	Timeout time.Duration `toml:"timeout"` // 0 means no limit
}

// Node declares one node of the graph.
type Node struct {
	ID     string         `toml:"id"`
	Kind   string         `toml:"kind"`
	Name   string         `toml:"name"`
	Params map[string]any `toml:"params"`
}

// Connection joins an output ("node.link") to an input ("node.link").
type Connection struct {
	From string `toml:"from"`
	To   string `toml:"to"`
}

func (c Connection) String() string { return c.From + " -> " + c.To }

// Load reads and validates a recipe file.
func Load(path string) (*Config, error) {
	if err := perrors.ValidatePath(path); err != nil {
		return nil, err
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, perrors.Wrap(perrors.ErrCodeFileNotFound, err, "recipe %s", path)
		}
		return nil, err
	}
	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes and validates a recipe.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	md, err := toml.Decode(string(data), &cfg)
	if err != nil {
		return nil, perrors.Wrap(perrors.ErrCodeInvalidRecipe, err, "decode recipe")
	}
	if undecoded := md.Undecoded(); len(undecoded) > 0 {
		keys := make([]string, len(undecoded))
		for i, k := range undecoded {
			keys[i] = k.String()
		}
		return nil, perrors.New(perrors.ErrCodeInvalidRecipe, "unknown keys: %s", strings.Join(keys, ", "))
	}
	if err := cfg.ValidateAndSetDefaults(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// ValidateAndSetDefaults checks the recipe and fills in defaults. It is
// idempotent.
func (c *Config) ValidateAndSetDefaults() error {
	if c.Output.Backend == "" {
		c.Output.Backend = storage.BackendFile
	}
	if c.Output.Backend == storage.BackendFile && c.Output.Dir == "" {
		c.Output.Dir = DefaultOutputDir
	}
	if c.Execution.Workers == 0 {
		c.Execution.Workers = DefaultWorkers
	}
	if c.Execution.Workers < 0 {
		return perrors.New(perrors.ErrCodeInvalidRecipe, "workers must be positive")
	}
	if c.Execution.Timeout < 0 {
		return perrors.New(perrors.ErrCodeInvalidRecipe, "timeout must not be negative")
	}

	ids := make(map[string]bool, len(c.Nodes))
	for i, n := range c.Nodes {
		if err := perrors.ValidateNodeID(n.ID); err != nil {
			return perrors.Wrap(perrors.ErrCodeInvalidRecipe, err, "node #%d", i+1)
		}
		if n.Kind == "" {
			return perrors.New(perrors.ErrCodeInvalidRecipe, "node %q has no kind", n.ID)
		}
		if ids[n.ID] {
			return perrors.New(perrors.ErrCodeInvalidRecipe, "node %q declared twice", n.ID)
		}
		ids[n.ID] = true
	}

	for _, conn := range c.Connections {
		for _, end := range []string{conn.From, conn.To} {
			id, _, err := ParseEndpoint(end)
			if err != nil {
				return perrors.Wrap(perrors.ErrCodeInvalidRecipe, err, "connection %s", conn)
			}
			if !ids[id] {
				return perrors.New(perrors.ErrCodeInvalidRecipe, "connection %s: unknown node %q", conn, id)
			}
		}
	}
	return nil
}

// ParseEndpoint splits "node.link" into its node ID and link name. Node IDs may
// contain dots; the link name is everything after the last one.
func ParseEndpoint(s string) (id, link string, err error) {
	i := strings.LastIndex(s, ".")
	if i <= 0 || i == len(s)-1 {
		return "", "", fmt.Errorf("endpoint %q must look like node.link", s)
	}
	return s[:i], s[i+1:], nil
}
