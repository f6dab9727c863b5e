// Package expconfig loads the YAML configuration recognized by the
// Experiment constructor — parameter space, KPI specs, optimizer choice,
// and run options — outside the core optimization engine itself.
package expconfig

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// ParameterSpecConfig is one entry in the YAML parameterSpace list.
type ParameterSpecConfig struct {
	Name        string   `yaml:"name"`
	Kind        string   `yaml:"kind"` // continuous | integer | categorical
	Min         float64  `yaml:"min"`
	Max         float64  `yaml:"max"`
	Categories  []any    `yaml:"categories"`
	Description string   `yaml:"description"`
}

// KPIConfig is one entry in the YAML kpis list.
type KPIConfig struct {
	Name      string `yaml:"name"`
	Column    string `yaml:"column"`
	Operation string `yaml:"operation"` // max | min | mean | sum | std | final
	Objective bool   `yaml:"objective"`
	Maximize  bool   `yaml:"maximize"`
}

// OptimizerConfig mirrors the `optimizer` key of spec §6's configuration
// table.
type OptimizerConfig struct {
	Method        string  `yaml:"method"` // grid | random | bayesian
	Iterations    int     `yaml:"iterations"`
	InitialPoints int     `yaml:"initialPoints"`
	NumPoints     int     `yaml:"numPoints"`
	Seed          int64   `yaml:"seed"`
	Acquisition   string  `yaml:"acquisition"`
}

// RetryPolicyConfig mirrors the `retryPolicy` key. fallbackResult is
// intentionally not representable in YAML — a SimulationResult is a runtime
// object the caller constructs in code, not configuration data.
type RetryPolicyConfig struct {
	MaxAttempts int    `yaml:"maxAttempts"`
	OnError     string `yaml:"onError"` // raise | retry | fallback
}

// DispatcherConfig mirrors the `dispatcher` key. Only the subprocess backend
// is representable in YAML; an in-process Model is a Go value the caller
// wires in code, so `backend: inprocess` is rejected at validation time.
type DispatcherConfig struct {
	Backend      string   `yaml:"backend"` // subprocess
	Command      string   `yaml:"command"`
	ParamFormat  string   `yaml:"paramFormat"`
	OutputFormat string   `yaml:"outputFormat"` // csv | json
	OutputFile   string   `yaml:"outputFile"`
	WorkingDir   string   `yaml:"workingDir"`
	Env          []string `yaml:"env"`
}

// ExperimentConfig is the full set of keys the Experiment constructor
// recognizes, per spec §6.
type ExperimentConfig struct {
	ParameterSpace []ParameterSpecConfig `yaml:"parameterSpace"`
	KPIs           []KPIConfig           `yaml:"kpis"`
	Optimizer      OptimizerConfig       `yaml:"optimizer"`
	Dispatcher     DispatcherConfig      `yaml:"dispatcher"`
	Parallelism    int                   `yaml:"parallelism"`
	PerCallTimeout float64               `yaml:"perCallTimeout"` // seconds
	RetryPolicy    RetryPolicyConfig     `yaml:"retryPolicy"`
	SaveBasePath   string                `yaml:"saveBasePath"`
}

// LoadExperimentConfig reads and parses path.
func LoadExperimentConfig(path string) (*ExperimentConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("expconfig: reading %s: %w", path, err)
	}
	return ParseExperimentConfigYAML(data)
}

// ParseExperimentConfigYAML parses and validates a raw YAML document.
func ParseExperimentConfigYAML(data []byte) (*ExperimentConfig, error) {
	var cfg ExperimentConfig
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("expconfig: parsing yaml: %w", err)
	}
	if err := validate(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func validate(cfg *ExperimentConfig) error {
	if err := validateParameterSpace(cfg.ParameterSpace); err != nil {
		return err
	}
	if err := validateKPIs(cfg.KPIs); err != nil {
		return err
	}
	if err := validateOptimizer(cfg.Optimizer); err != nil {
		return err
	}
	if err := validateDispatcher(cfg.Dispatcher); err != nil {
		return err
	}
	if cfg.Parallelism < 0 {
		return fmt.Errorf("expconfig: parallelism must be >= 0, got %d", cfg.Parallelism)
	}
	if cfg.PerCallTimeout < 0 {
		return fmt.Errorf("expconfig: perCallTimeout must be >= 0, got %v", cfg.PerCallTimeout)
	}
	return validateRetryPolicy(cfg.RetryPolicy)
}

func validateParameterSpace(specs []ParameterSpecConfig) error {
	if len(specs) == 0 {
		return fmt.Errorf("expconfig: parameterSpace must declare at least one parameter")
	}
	seen := make(map[string]bool, len(specs))
	for _, s := range specs {
		if s.Name == "" {
			return fmt.Errorf("expconfig: parameter spec missing name")
		}
		if seen[s.Name] {
			return fmt.Errorf("expconfig: duplicate parameter name %q", s.Name)
		}
		seen[s.Name] = true
		switch s.Kind {
		case "continuous", "integer":
			if !(s.Min < s.Max) {
				return fmt.Errorf("expconfig: parameter %q: min must be less than max", s.Name)
			}
		case "categorical":
			if len(s.Categories) == 0 {
				return fmt.Errorf("expconfig: parameter %q: categorical spec needs at least one category", s.Name)
			}
		default:
			return fmt.Errorf("expconfig: parameter %q: unknown kind %q", s.Name, s.Kind)
		}
	}
	return nil
}

func validateKPIs(kpis []KPIConfig) error {
	if len(kpis) == 0 {
		return fmt.Errorf("expconfig: kpis must declare at least one kpi")
	}
	seen := make(map[string]bool, len(kpis))
	objectiveCount := 0
	for _, k := range kpis {
		if k.Name == "" {
			return fmt.Errorf("expconfig: kpi spec missing name")
		}
		if seen[k.Name] {
			return fmt.Errorf("expconfig: duplicate kpi name %q", k.Name)
		}
		seen[k.Name] = true
		if k.Column == "" {
			return fmt.Errorf("expconfig: kpi %q: column is required (custom reducers aren't representable in YAML)", k.Name)
		}
		switch k.Operation {
		case "max", "min", "mean", "sum", "std", "final":
		default:
			return fmt.Errorf("expconfig: kpi %q: unknown operation %q", k.Name, k.Operation)
		}
		if k.Objective {
			objectiveCount++
		}
	}
	if objectiveCount != 1 {
		return fmt.Errorf("expconfig: exactly one kpi must have objective: true, found %d", objectiveCount)
	}
	return nil
}

func validateOptimizer(cfg OptimizerConfig) error {
	switch cfg.Method {
	case "grid", "random", "bayesian":
	default:
		return fmt.Errorf("expconfig: optimizer.method must be grid, random, or bayesian, got %q", cfg.Method)
	}
	if cfg.Iterations <= 0 && cfg.Method != "grid" {
		return fmt.Errorf("expconfig: optimizer.iterations must be > 0 for method %q", cfg.Method)
	}
	if cfg.Acquisition != "" {
		switch cfg.Acquisition {
		case "EI", "LCB", "PI":
		default:
			return fmt.Errorf("expconfig: optimizer.acquisition must be EI, LCB, or PI, got %q", cfg.Acquisition)
		}
	}
	return nil
}

func validateDispatcher(cfg DispatcherConfig) error {
	switch cfg.Backend {
	case "":
		return nil
	case "subprocess":
		if cfg.Command == "" {
			return fmt.Errorf("expconfig: dispatcher.command is required for backend %q", cfg.Backend)
		}
		switch cfg.OutputFormat {
		case "", "csv", "json":
		default:
			return fmt.Errorf("expconfig: dispatcher.outputFormat must be csv or json, got %q", cfg.OutputFormat)
		}
	case "inprocess":
		return fmt.Errorf("expconfig: dispatcher.backend %q is not representable in YAML; wire an in-process Model in code instead", cfg.Backend)
	default:
		return fmt.Errorf("expconfig: dispatcher.backend must be subprocess, got %q", cfg.Backend)
	}
	return nil
}

func validateRetryPolicy(cfg RetryPolicyConfig) error {
	if cfg.MaxAttempts < 0 {
		return fmt.Errorf("expconfig: retryPolicy.maxAttempts must be >= 0")
	}
	switch cfg.OnError {
	case "", "raise", "retry", "fallback":
	default:
		return fmt.Errorf("expconfig: retryPolicy.onError must be raise, retry, or fallback, got %q", cfg.OnError)
	}
	return nil
}
