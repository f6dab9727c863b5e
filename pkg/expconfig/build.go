package expconfig

import (
	"fmt"

	"github.com/GoSim-25-26J-441/optengine/internal/dispatch"
	"github.com/GoSim-25-26J-441/optengine/internal/experiment"
	"github.com/GoSim-25-26J-441/optengine/internal/kpi"
	"github.com/GoSim-25-26J-441/optengine/internal/optimize"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

// BuildSpace constructs a paramspace.Space from the YAML parameter specs.
func BuildSpace(cfg *ExperimentConfig) (*paramspace.Space, error) {
	specs := make([]paramspace.Spec, 0, len(cfg.ParameterSpace))
	for _, s := range cfg.ParameterSpace {
		switch s.Kind {
		case "continuous":
			specs = append(specs, paramspace.ContinuousSpec(s.Name, s.Min, s.Max))
		case "integer":
			specs = append(specs, paramspace.IntegerSpec(s.Name, int(s.Min), int(s.Max)))
		case "categorical":
			specs = append(specs, paramspace.CategoricalSpec(s.Name, s.Categories...))
		}
	}
	return paramspace.New(specs...)
}

// BuildAggregator constructs a kpi.Aggregator with every declared KPI
// registered and the single objective set, returning the objective's name
// and direction for convenience.
func BuildAggregator(cfg *ExperimentConfig) (agg *kpi.Aggregator, objectiveName string, maximize bool, err error) {
	agg = kpi.NewAggregator()
	for _, k := range cfg.KPIs {
		if err := agg.AddKPI(kpi.Spec{Name: k.Name, Column: k.Column, Operation: kpi.Operation(k.Operation)}); err != nil {
			return nil, "", false, fmt.Errorf("expconfig: %w", err)
		}
		if k.Objective {
			objectiveName, maximize = k.Name, k.Maximize
		}
	}
	if err := agg.SetObjective(objectiveName, maximize); err != nil {
		return nil, "", false, fmt.Errorf("expconfig: %w", err)
	}
	return agg, objectiveName, maximize, nil
}

// BuildOptimizer constructs the configured optimizer family member.
func BuildOptimizer(cfg *ExperimentConfig, space *paramspace.Space, maximize bool) (optimize.Optimizer, error) {
	o := cfg.Optimizer
	switch o.Method {
	case "grid":
		return optimize.NewGridOptimizer(optimize.GridConfig{
			Space: space, Maximize: maximize, NumPoints: o.NumPoints,
		}), nil
	case "random":
		return optimize.NewRandomOptimizer(optimize.RandomConfig{
			Space: space, Maximize: maximize, NumIterations: o.Iterations, Seed: o.Seed,
		}), nil
	case "bayesian":
		return optimize.NewBayesianOptimizer(optimize.BayesianConfig{
			Space: space, Maximize: maximize, NumIterations: o.Iterations,
			NInitialPoints: o.InitialPoints, Seed: o.Seed, Acquisition: optimize.Acquisition(o.Acquisition),
		}), nil
	default:
		return nil, fmt.Errorf("expconfig: unknown optimizer method %q", o.Method)
	}
}

// BuildDispatcher constructs a subprocess Dispatcher from the YAML config.
// There is no in-process variant: a Model is a Go value, not configuration.
func BuildDispatcher(cfg *ExperimentConfig) (dispatch.Dispatcher, error) {
	d := cfg.Dispatcher
	if d.Backend != "subprocess" {
		return nil, fmt.Errorf("expconfig: dispatcher.backend must be subprocess to build from config, got %q", d.Backend)
	}
	return dispatch.NewSubprocessBackend(dispatch.SubprocessConfig{
		Command:      d.Command,
		ParamFormat:  d.ParamFormat,
		OutputFormat: dispatch.OutputFormat(d.OutputFormat),
		OutputFile:   d.OutputFile,
		WorkingDir:   d.WorkingDir,
		Env:          d.Env,
	}), nil
}

// BuildRetryPolicy converts the YAML retry policy into the Controller's
// RetryPolicy. FallbackResult is never populated here — YAML can't express
// a SimulationResult, so a fallback policy with no result supplied at the
// call site degrades to raise.
func BuildRetryPolicy(cfg *ExperimentConfig) experiment.RetryPolicy {
	return experiment.RetryPolicy{
		MaxAttempts: cfg.RetryPolicy.MaxAttempts,
		OnError:     experiment.OnError(cfg.RetryPolicy.OnError),
	}
}
