// Package cli implements the spritepipe command-line interface.
//
// # Commands
//
//   - run: build a recipe's graph and run it until every sink has finished
//   - validate: build a recipe's graph and print its nodes and connections
//   - kinds: list the node kinds a recipe may use
//   - serve: expose a graph editing API over HTTP
//   - store: list or clear exported artifacts
//   - version, completion
//
// All commands support --verbose (-v) for debug-level logging.
package cli

import (
	"io"
	"os"
	"path/filepath"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spritepipe/pkg/buildinfo"
	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/registry"
	"github.com/matzehuels/spritepipe/pkg/sheet"
	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// =============================================================================
// Constants
// =============================================================================

const appName = "spritepipe"

// Log levels exported for use in main.go.
const (
	LogDebug = log.DebugLevel
	LogInfo  = log.InfoLevel
)

// stdout receives command output. Tests replace it.
var stdout io.Writer = os.Stdout

// =============================================================================
// CLI - Central CLI State
// =============================================================================

// CLI holds shared state for all commands.
type CLI struct {
	Logger *log.Logger
}

// New creates a new CLI instance with a default logger.
func New(w io.Writer, level log.Level) *CLI {
	return &CLI{Logger: newLogger(w, level)}
}

// SetLogLevel updates the logger's level.
func (c *CLI) SetLogLevel(level log.Level) {
	c.Logger.SetLevel(level)
}

// RootCommand creates the root cobra command with all subcommands registered.
func (c *CLI) RootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Spritepipe runs sprite processing graphs",
		Long:         `Spritepipe builds graphs of image sources, filters, sheet packers and exporters from TOML recipes, and pushes values through them until every sink is done.`,
		Version:      buildinfo.Version,
		SilenceUsage: true,
	}

	root.SetVersionTemplate(buildinfo.Template())

	root.AddCommand(c.runCommand())
	root.AddCommand(c.validateCommand())
	root.AddCommand(c.kindsCommand())
	root.AddCommand(c.serveCommand())
	root.AddCommand(c.storeCommand())
	root.AddCommand(c.versionCommand())
	root.AddCommand(c.completionCommand())

	return root
}

// =============================================================================
// Recipe Helpers
// =============================================================================

// outputFlags override a recipe's [output] and [execution] tables.
type outputFlags struct {
	backend string
	dir     string
	workers int
}

func (f *outputFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.backend, "backend", "", "storage backend: file, memory, redis, mongo, null")
	cmd.Flags().StringVarP(&f.dir, "out", "o", "", "output directory for the file backend")
	cmd.Flags().IntVarP(&f.workers, "workers", "w", 0, "sheets built concurrently")
}

func (f *outputFlags) apply(cfg *recipe.Config) error {
	if f.backend != "" {
		cfg.Output.Backend = f.backend
	}
	if f.dir != "" {
		cfg.Output.Dir = f.dir
	}
	if f.workers > 0 {
		cfg.Execution.Workers = f.workers
	}
	return cfg.ValidateAndSetDefaults()
}

// newRegistry wires the built-in kinds to the given store. Relative image paths
// resolve against the recipe's directory.
func (c *CLI) newRegistry(recipePath string, store storage.Store, exec stream.Executor) *registry.Registry {
	return registry.Default(registry.Deps{
		Store:    store,
		Exporter: sheet.NewGridExporter(c.Logger),
		Executor: exec,
		Logger:   c.Logger,
		BaseDir:  filepath.Dir(recipePath),
	})
}
