package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/matzehuels/spritepipe/pkg/pipeline"
	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

// runOpts holds the command-line flags for the run command.
type runOpts struct {
	output  outputFlags
	timeout time.Duration // overrides [execution] timeout when set
}

// runCommand creates the run command, which executes a recipe end to end.
func (c *CLI) runCommand() *cobra.Command {
	var opts runOpts
	cmd := &cobra.Command{
		Use:   "run <recipe.toml>",
		Short: "Build a recipe's graph and run it",
		Long: `Build the graph described by a recipe, begin every sink and wait until all of
them have consumed their inputs. Exported artifacts go to the recipe's [output]
store unless overridden by flags.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runRecipe(cmd.Context(), args[0], opts)
		},
	}
	opts.output.register(cmd)
	cmd.Flags().DurationVarP(&opts.timeout, "timeout", "t", 0, "abort the run after this long")
	return cmd
}

func (c *CLI) runRecipe(ctx context.Context, path string, opts runOpts) error {
	cfg, err := recipe.Load(path)
	if err != nil {
		return err
	}
	if opts.timeout > 0 {
		cfg.Execution.Timeout = opts.timeout
	}
	if err := opts.output.apply(cfg); err != nil {
		return err
	}

	store, err := storage.Open(ctx, cfg.Output)
	if err != nil {
		return fmt.Errorf("open %s store: %w", cfg.Output.Backend, err)
	}
	defer store.Close()

	pool := stream.NewPool(cfg.Execution.Workers)
	g, err := cfg.Build(c.newRegistry(path, store, pool))
	if err != nil {
		return err
	}

	runner := pipeline.NewRunner(c.Logger)
	runner.Timeout = cfg.Execution.Timeout

	prog := newProgress(c.Logger)
	var spinner *Spinner
	if c.Logger.GetLevel() > log.DebugLevel {
		spinner = newSpinnerWithContext(ctx, "Running "+filepath.Base(path))
		spinner.Start()
	}
	result, runErr := runner.Run(ctx, g)
	if spinner != nil {
		spinner.Stop()
	}
	pool.Wait()

	exported := result.Exported()
	for _, key := range exported {
		printFile(key)
	}
	for _, sr := range result.Failed() {
		printWarning("%s: %v", sr.ID, sr.Err)
	}
	printStats(result.Stats)
	if runErr != nil {
		return runErr
	}

	prog.done(fmt.Sprintf("Exported %d files", len(exported)))
	printSuccess("Run complete")
	if cfg.Output.Backend == storage.BackendFile {
		printDetail("Directory: %s", cfg.Output.Dir)
	}
	return nil
}
