package cli

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/matzehuels/spritepipe/internal/server"
	"github.com/matzehuels/spritepipe/pkg/pipeline"
	"github.com/matzehuels/spritepipe/pkg/recipe"
	"github.com/matzehuels/spritepipe/pkg/storage"
	"github.com/matzehuels/spritepipe/pkg/stream"
)

const (
	defaultAddr     = "localhost:8080"
	shutdownTimeout = 5 * time.Second
)

// serveOpts holds the command-line flags for the serve command.
type serveOpts struct {
	output outputFlags
	addr   string
}

// serveCommand creates the serve command, which exposes the graph editing API.
func (c *CLI) serveCommand() *cobra.Command {
	var opts serveOpts
	cmd := &cobra.Command{
		Use:   "serve [recipe.toml]",
		Short: "Serve the graph editing API over HTTP",
		Long: `Serve an HTTP API for editing and running a graph. When a recipe is given,
the graph starts out with its nodes and connections.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.serve(cmd.Context(), args, opts)
		},
	}
	opts.output.register(cmd)
	cmd.Flags().StringVar(&opts.addr, "addr", defaultAddr, "listen address")
	return cmd
}

func (c *CLI) serve(ctx context.Context, args []string, opts serveOpts) error {
	cfg := &recipe.Config{}
	path := "."
	if len(args) == 1 {
		path = args[0]
		loaded, err := recipe.Load(path)
		if err != nil {
			return err
		}
		cfg = loaded
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
	defer pool.Wait()
	runner := pipeline.NewRunner(c.Logger)
	runner.Timeout = cfg.Execution.Timeout

	srv := server.New(c.newRegistry(path, store, pool), runner, c.Logger)
	if err := srv.Load(cfg); err != nil {
		return err
	}

	httpSrv := &http.Server{
		Addr:              opts.addr,
		Handler:           srv,
		ReadHeaderTimeout: 10 * time.Second,
	}

	eg, egctx := errgroup.WithContext(ctx)
	eg.Go(func() error {
		c.Logger.Info("listening", "addr", opts.addr)
		if err := httpSrv.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	eg.Go(func() error {
		<-egctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		c.Logger.Info("shutting down")
		return httpSrv.Shutdown(shutdownCtx)
	})
	if err := eg.Wait(); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}
