package experiment

import (
	"context"
	"fmt"
	"time"

	"github.com/GoSim-25-26J-441/optengine/internal/dispatch"
	"github.com/GoSim-25-26J-441/optengine/internal/kpi"
	"github.com/GoSim-25-26J-441/optengine/internal/optimize"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

// QuickOptimizeConfig bundles the minimal inputs needed to go from a
// subprocess command to a finished optimization without constructing an
// Experiment by hand.
type QuickOptimizeConfig struct {
	Command       string
	ParamFormat   string
	OutputFormat  dispatch.OutputFormat
	Space         *paramspace.Space
	KPIColumn     string
	KPIOperation  kpi.Operation
	Maximize      bool
	Iterations    int
	Seed          int64
	Parallelism   int
	PerCallTimeout time.Duration
}

// QuickOptimize wires a subprocess Dispatcher, a single-KPI Aggregator, and
// a RandomOptimizer into one Experiment and runs it to completion — the
// fast path for a user who just wants to point an existing CLI model at a
// parameter space and get a best result back.
func QuickOptimize(ctx context.Context, cfg QuickOptimizeConfig) (*FinalResults, error) {
	agg := kpi.NewAggregator()
	const objectiveName = "objective"
	if err := agg.AddKPI(kpi.Spec{Name: objectiveName, Column: cfg.KPIColumn, Operation: cfg.KPIOperation}); err != nil {
		return nil, fmt.Errorf("quick optimize: %w", err)
	}
	if err := agg.SetObjective(objectiveName, cfg.Maximize); err != nil {
		return nil, fmt.Errorf("quick optimize: %w", err)
	}

	backend := dispatch.NewSubprocessBackend(dispatch.SubprocessConfig{
		Command:      cfg.Command,
		ParamFormat:  cfg.ParamFormat,
		OutputFormat: cfg.OutputFormat,
	})

	opt := optimize.NewRandomOptimizer(optimize.RandomConfig{
		Space:         cfg.Space,
		Maximize:      cfg.Maximize,
		NumIterations: cfg.Iterations,
		Seed:          cfg.Seed,
	})

	exp := New(cfg.Space, agg, backend, opt)
	return exp.Run(ctx, RunOptions{
		Parallelism:    cfg.Parallelism,
		PerCallTimeout: cfg.PerCallTimeout,
		Retry:          RetryPolicy{MaxAttempts: 1, OnError: Raise},
	})
}
