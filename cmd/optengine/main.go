package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/GoSim-25-26J-441/optengine/internal/dispatch"
	"github.com/GoSim-25-26J-441/optengine/internal/experiment"
	"github.com/GoSim-25-26J-441/optengine/internal/kpi"
	"github.com/GoSim-25-26J-441/optengine/internal/optimize"
	"github.com/GoSim-25-26J-441/optengine/pkg/expconfig"
	"github.com/GoSim-25-26J-441/optengine/pkg/logger"
	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// demoModel is a toy in-process model for exercising the engine without a
// config file: a simple bowl objective with a known optimum, perturbed by
// Gaussian measurement noise so it behaves like a noisy black-box simulator
// rather than a pure deterministic function.
type demoModel struct {
	space *paramspace.Space
	noise *utils.RandSource
}

func newDemoModel(seed int64) *demoModel {
	space, err := paramspace.New(
		paramspace.ContinuousSpec("x", -5, 5),
		paramspace.ContinuousSpec("y", -5, 5),
	)
	if err != nil {
		panic(err)
	}
	return &demoModel{space: space, noise: utils.NewRandSource(seed)}
}

func (m *demoModel) Run(ctx context.Context, params paramspace.Vector) (*simresult.Result, error) {
	x := params["x"].(float64)
	y := params["y"].(float64)
	distance := math.Hypot(x-1, y+2)
	observed := -distance + m.noise.NormFloat64(0, 0.05)
	kpis := map[string]float64{"negDistance": observed}
	return simresult.NewResult(simresult.NewTable(), kpis, nil, params), nil
}

func (m *demoModel) ParameterSpace() *paramspace.Space { return m.space }
func (m *demoModel) KPIDefinitions() map[string]kpi.Spec {
	return map[string]kpi.Spec{"negDistance": {Name: "negDistance"}}
}
func (m *demoModel) ValidateParameters(params paramspace.Vector) error {
	if problems := m.space.Validate(params); len(problems) > 0 {
		return problems[0]
	}
	return nil
}
func (m *demoModel) Metadata() map[string]any {
	return map[string]any{"name": "demoModel", "version": "0.1.0"}
}

func main() {
	var configPath string
	var logLevel string
	var iterations int
	var seed int64

	flag.StringVar(&configPath, "config", "", "path to an experiment YAML config; runs the built-in demo model if empty")
	flag.StringVar(&logLevel, "log-level", "info", "log level (debug, info, warn, error)")
	flag.IntVar(&iterations, "iterations", 30, "iterations for the demo run (ignored when -config is set)")
	flag.Int64Var(&seed, "seed", 1, "seed for the demo run (ignored when -config is set)")
	flag.Parse()

	logger.SetDefault(logger.NewText(logLevel, os.Stdout))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	var exp *experiment.Experiment
	var runOpts experiment.RunOptions

	if configPath != "" {
		cfg, err := expconfig.LoadExperimentConfig(configPath)
		if err != nil {
			logger.Error("failed to load config", "path", configPath, "error", err)
			os.Exit(1)
		}
		space, err := expconfig.BuildSpace(cfg)
		if err != nil {
			logger.Error("failed to build parameter space", "error", err)
			os.Exit(1)
		}
		agg, _, maximize, err := expconfig.BuildAggregator(cfg)
		if err != nil {
			logger.Error("failed to build kpi aggregator", "error", err)
			os.Exit(1)
		}
		opt, err := expconfig.BuildOptimizer(cfg, space, maximize)
		if err != nil {
			logger.Error("failed to build optimizer", "error", err)
			os.Exit(1)
		}
		backend, err := expconfig.BuildDispatcher(cfg)
		if err != nil {
			logger.Error("failed to build dispatcher", "error", err)
			os.Exit(1)
		}

		exp = experiment.New(space, agg, backend, opt)
		runOpts = experiment.RunOptions{
			Parallelism:    cfg.Parallelism,
			PerCallTimeout: time.Duration(cfg.PerCallTimeout * float64(time.Second)),
			Retry:          expconfig.BuildRetryPolicy(cfg),
			SaveBasePath:   cfg.SaveBasePath,
		}
	} else {
		model := newDemoModel(seed)
		agg := kpi.NewAggregator()
		if err := agg.AddKPI(kpi.Spec{Name: "negDistance", Column: "negDistance", Operation: kpi.OpFinal}); err != nil {
			logger.Error("failed to register demo kpi", "error", err)
			os.Exit(1)
		}
		if err := agg.SetObjective("negDistance", true); err != nil {
			logger.Error("failed to set demo objective", "error", err)
			os.Exit(1)
		}

		backend := dispatch.NewInProcessBackend(model)
		opt := optimize.NewRandomOptimizer(optimize.RandomConfig{
			Space: model.space, Maximize: true, NumIterations: iterations, Seed: seed,
		})
		exp = experiment.New(model.space, agg, backend, opt)
		runOpts = experiment.RunOptions{
			Parallelism: 1,
			Retry:       experiment.RetryPolicy{MaxAttempts: 1, OnError: experiment.Raise},
		}
	}

	go func() {
		for ev := range exp.Stream.Events() {
			if ev.Type == "step" {
				logger.Debug("progress", logger.StepAttrs(ev.Step, string(ev.Status), ev.ObjectiveValue, ev.ElapsedMs)...)
				continue
			}
			logger.Debug("progress", "type", ev.Type)
		}
	}()

	result, err := exp.Run(ctx, runOpts)
	if err != nil {
		logger.Error("experiment failed", "error", err)
		os.Exit(1)
	}
	logger.Info("run complete",
		"elapsed", utils.FormatDuration(time.Duration(result.ElapsedSeconds*float64(time.Second))),
		"iterations", result.Iterations)

	output, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		logger.Error("failed to marshal results", "error", err)
		os.Exit(1)
	}
	fmt.Println(string(output))
}
