// Package runner drives the examples end to end: compose, execute, report,
// and save the rendered files.
package runner

import (
	"context"
	"fmt"
	"io"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"qdeutsch/internal/algorithm"
	"qdeutsch/internal/backend"
	"qdeutsch/internal/circuit"
	"qdeutsch/internal/config"
	"qdeutsch/internal/logging"
	"qdeutsch/internal/oracle"
	"qdeutsch/internal/render"
)

// HardwareTolerance is the share of stray shots tolerated when classifying
// counts from real devices.
const HardwareTolerance = 0.1

// Outcome is the result of one example run.
type Outcome struct {
	Name    string
	Circuit *circuit.Circuit
	Result  *backend.Result
	Verdict algorithm.Verdict
	Files   render.Files
}

// Runner executes examples on a single backend.
type Runner struct {
	Backend     backend.Backend
	Shots       int
	OutDir      string // empty skips writing files
	Concurrency int
	Draw        bool // print each composed circuit before its counts

	Out    io.Writer
	Logger *zap.Logger
}

// New creates a runner from configuration.
func New(b backend.Backend, cfg *config.Config, out io.Writer, logger *zap.Logger) *Runner {
	logger = logging.OrNop(logger)
	return &Runner{
		Backend:     b,
		Shots:       cfg.Shots,
		OutDir:      cfg.OutDir,
		Concurrency: cfg.Concurrency,
		Out:         out,
		Logger:      logger,
	}
}

// Compose wraps the example's oracle in the matching template.
func Compose(ex oracle.Example) (*circuit.Circuit, error) {
	if ex.Inputs == 1 {
		return algorithm.Deutsch(ex.Oracle)
	}
	return algorithm.DeutschJozsa(ex.Oracle, ex.Inputs)
}

// Run composes and executes one example. Nothing is printed.
func (r *Runner) Run(ctx context.Context, ex oracle.Example) (*Outcome, error) {
	c, err := Compose(ex)
	if err != nil {
		return nil, err
	}
	o, err := r.execute(ctx, ex.Name, c)
	if err != nil {
		return nil, err
	}
	if r.Backend.IsSimulator() {
		o.Verdict = algorithm.Classify(o.Result.Counts, ex.Inputs)
	} else {
		o.Verdict = algorithm.ClassifyTolerant(o.Result.Counts, ex.Inputs, HardwareTolerance)
	}
	r.Logger.Info("example finished",
		zap.String("example", ex.Name),
		zap.String("verdict", o.Verdict.String()),
		zap.String("backend", o.Result.Backend),
		zap.String("job_id", o.Result.JobID),
		zap.Any("counts", o.Result.Counts))
	return o, nil
}

// RunCircuit executes an arbitrary circuit, prints it and its counts. It is
// used for circuits that are not oracle examples.
func (r *Runner) RunCircuit(ctx context.Context, name string, c *circuit.Circuit) (*Outcome, error) {
	o, err := r.execute(ctx, name, c)
	if err != nil {
		return nil, err
	}
	fmt.Fprint(r.out(), render.Diagram(c, render.Plain))
	fmt.Fprintln(r.out(), render.FormatCounts(o.Result.Counts))
	return o, nil
}

func (r *Runner) execute(ctx context.Context, name string, c *circuit.Circuit) (*Outcome, error) {
	start := time.Now()
	res, err := r.Backend.Run(ctx, c, r.Shots)
	if err != nil {
		return nil, fmt.Errorf("run on %s: %w", r.Backend.Name(), err)
	}
	r.Logger.Debug("job done",
		zap.String("name", name),
		zap.String("job_id", res.JobID),
		zap.Duration("elapsed", time.Since(start)))

	o := &Outcome{Name: name, Circuit: c, Result: res}
	if r.OutDir != "" {
		files, err := render.WriteFiles(r.OutDir, name, c, res.Counts)
		if err != nil {
			return nil, err
		}
		o.Files = files
		r.Logger.Debug("wrote files",
			zap.String("circuit", files.Circuit),
			zap.String("histogram", files.Histogram))
	}
	return o, nil
}

// Report prints one outcome.
func (r *Runner) Report(o *Outcome) {
	w := r.out()
	if r.Draw {
		fmt.Fprint(w, render.Diagram(o.Circuit, render.Plain))
	}
	fmt.Fprintf(w, "%s: %s\n", o.Name, render.FormatCounts(o.Result.Counts))
	fmt.Fprintf(w, "  verdict: %s\n", o.Verdict)
}

// RunAll runs the examples with at most Concurrency in flight. Reports are
// printed in example order as soon as each one and its predecessors finish.
// The first failure cancels the remaining runs.
func (r *Runner) RunAll(ctx context.Context, examples []oracle.Example) ([]*Outcome, error) {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(max(r.Concurrency, 1))

	outcomes := make([]*Outcome, len(examples))
	reported := make([]chan struct{}, len(examples))
	for i := range reported {
		reported[i] = make(chan struct{})
	}

	for i, ex := range examples {
		g.Go(func() error {
			defer close(reported[i])
			o, err := r.Run(gctx, ex)
			if i > 0 {
				<-reported[i-1]
			}
			if err != nil {
				return fmt.Errorf("%s: %w", ex.Name, err)
			}
			outcomes[i] = o
			r.Report(o)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return outcomes, err
	}
	return outcomes, nil
}

func (r *Runner) out() io.Writer {
	if r.Out == nil {
		return io.Discard
	}
	return r.Out
}
