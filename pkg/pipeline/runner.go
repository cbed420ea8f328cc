package pipeline

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"
	"go.uber.org/multierr"
	"golang.org/x/sync/errgroup"

	perrors "github.com/matzehuels/spritepipe/pkg/errors"
	"github.com/matzehuels/spritepipe/pkg/graph"
	"github.com/matzehuels/spritepipe/pkg/observability"
)

// Finisher is implemented by sinks that signal when they have consumed
// everything. Sinks that do not implement it are considered finished as soon
// as Begin returns.
type Finisher interface {
	Done() <-chan struct{}
}

// Reporter is implemented by sinks that record errors while consuming.
type Reporter interface {
	Err() error
}

// Exporter is implemented by sinks that report the keys they wrote.
type Exporter interface {
	Exported() []string
}

// Runner executes graphs.
//
// The Runner keeps no state between runs; one Runner may execute several
// graphs concurrently.
type Runner struct {
	Logger  *log.Logger
	Timeout time.Duration // 0 means no limit
}

// NewRunner creates a runner. A nil logger discards output.
func NewRunner(logger *log.Logger) *Runner {
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}
	return &Runner{Logger: logger}
}

// Run begins every sink of g, waits for all of them to finish and disposes
// them. The returned error combines Begin and Dispose failures, errors recorded
// by the sinks, and context expiry; the Result is returned even when the error
// is non-nil.
func (r *Runner) Run(ctx context.Context, g *graph.Graph) (*Result, error) {
	logger := r.Logger
	if logger == nil {
		logger = log.NewWithOptions(io.Discard, log.Options{})
	}

	sinks := g.Sinks()
	result := &Result{Stats: Describe(g)}
	if len(sinks) == 0 {
		return result, perrors.New(perrors.ErrCodeInvalidInput, "graph has no sinks")
	}

	if r.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.Timeout)
		defer cancel()
	}

	start := time.Now()
	observability.Pipeline().OnRunStart(ctx, len(sinks))
	logger.Info("running pipeline",
		"nodes", result.Stats.Nodes,
		"connections", result.Stats.Connections,
		"sinks", len(sinks))

	eg, egctx := errgroup.WithContext(ctx)
	for _, s := range sinks {
		eg.Go(func() error {
			if err := s.Begin(egctx); err != nil {
				return fmt.Errorf("begin %s: %w", s.ID(), err)
			}
			logger.Debug("sink started", "node", s.ID())
			f, ok := s.(Finisher)
			if !ok {
				return nil
			}
			select {
			case <-f.Done():
			case <-egctx.Done():
			}
			return nil
		})
	}
	runErr := eg.Wait()

	for _, s := range sinks {
		if err := s.Dispose(); err != nil {
			runErr = multierr.Append(runErr, fmt.Errorf("dispose %s: %w", s.ID(), err))
		}
		sr := SinkResult{ID: s.ID(), Name: s.Name()}
		if rep, ok := s.(Reporter); ok {
			sr.Err = rep.Err()
		}
		if exp, ok := s.(Exporter); ok {
			sr.Exported = exp.Exported()
		}
		if sr.Err != nil {
			logger.Warn("sink failed", "node", s.ID(), "err", sr.Err)
			runErr = multierr.Append(runErr, fmt.Errorf("%s: %w", s.ID(), sr.Err))
		}
		result.Sinks = append(result.Sinks, sr)
	}

	if err := ctx.Err(); err != nil {
		runErr = multierr.Append(perrors.Wrap(perrors.GetCode(err), err, "run interrupted"), runErr)
	}

	result.Stats.Duration = time.Since(start)
	observability.Pipeline().OnRunComplete(ctx, result.Stats.Duration, runErr)
	if runErr != nil {
		logger.Error("pipeline failed", "duration", result.Stats.Duration, "err", runErr)
		return result, runErr
	}
	logger.Info("pipeline complete",
		"exported", len(result.Exported()),
		"duration", result.Stats.Duration)
	return result, nil
}
