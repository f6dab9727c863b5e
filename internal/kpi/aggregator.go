// Package kpi implements the named-reducer and custom-reducer KPI
// computation the reference module's psuu ancestor calls a KPICalculator.
package kpi

import (
	"fmt"
	"math"
	"sync"

	"github.com/GoSim-25-26J-441/optengine/internal/errs"
	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// Operation names a built-in column reducer.
type Operation string

const (
	OpMax   Operation = "max"
	OpMin   Operation = "min"
	OpMean  Operation = "mean"
	OpSum   Operation = "sum"
	OpStd   Operation = "std"
	OpFinal Operation = "final"
)

// Spec is one KPI definition: either a column reducer (Column+Operation,
// optionally Filter) or a custom reducer (Custom). Exactly one of Custom or
// Column should be set.
type Spec struct {
	Name      string
	Column    string
	Operation Operation
	Filter    func(row int) bool
	Custom    func(*simresult.Table) float64
}

// Aggregator holds a registered set of KPI specs and at most one objective.
type Aggregator struct {
	mu           sync.Mutex
	specs        map[string]Spec
	order        []string
	objective    string
	objectiveSet bool
	maximize     bool
}

// NewAggregator returns an Aggregator with no registered KPIs.
func NewAggregator() *Aggregator {
	return &Aggregator{specs: make(map[string]Spec)}
}

// AddKPI registers a KPI. A duplicate name is an error.
func (a *Aggregator) AddKPI(spec Spec) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if spec.Name == "" {
		return fmt.Errorf("kpi spec has empty name")
	}
	if _, exists := a.specs[spec.Name]; exists {
		return fmt.Errorf("duplicate kpi name %q", spec.Name)
	}
	if spec.Custom == nil && spec.Column == "" {
		return fmt.Errorf("kpi %q: must provide either Custom or Column/Operation", spec.Name)
	}
	a.specs[spec.Name] = spec
	a.order = append(a.order, spec.Name)
	return nil
}

// SetObjective marks name as the scalar target. Only one call is allowed per
// Aggregator; the referenced KPI must already be registered.
func (a *Aggregator) SetObjective(name string, maximize bool) error {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.objectiveSet {
		return fmt.Errorf("objective already set to %q", a.objective)
	}
	if _, exists := a.specs[name]; !exists {
		return fmt.Errorf("objective kpi %q is not registered", name)
	}
	a.objective = name
	a.maximize = maximize
	a.objectiveSet = true
	return nil
}

// Objective returns the objective KPI name and maximize flag.
func (a *Aggregator) Objective() (name string, maximize bool, ok bool) {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.objective, a.maximize, a.objectiveSet
}

// Apply runs every registered reducer against result.TimeSeries and merges
// the output with any KPIs the Result already carries. Model-reported KPIs
// win on name collision — reducers never overwrite a key already present in
// result.KPIs.
func (a *Aggregator) Apply(result *simresult.Result) map[string]float64 {
	a.mu.Lock()
	specs := make([]Spec, len(a.order))
	for i, name := range a.order {
		specs[i] = a.specs[name]
	}
	a.mu.Unlock()

	out := make(map[string]float64, len(specs)+len(result.KPIs))
	for _, spec := range specs {
		out[spec.Name] = reduce(spec, result.TimeSeries)
	}
	for name, v := range result.KPIs {
		out[name] = v
	}
	return out
}

func reduce(spec Spec, table *simresult.Table) float64 {
	if spec.Custom != nil {
		return spec.Custom(table)
	}
	col := table.NumericColumn(spec.Column, spec.Filter)
	if len(col) == 0 {
		return math.NaN()
	}
	switch spec.Operation {
	case OpMax:
		return utils.MaxSlice(col)
	case OpMin:
		return utils.MinSlice(col)
	case OpMean:
		return utils.Mean(col)
	case OpSum:
		return utils.Sum(col)
	case OpStd:
		return sampleStdDev(col)
	case OpFinal:
		return col[len(col)-1]
	default:
		return math.NaN()
	}
}

func sampleStdDev(values []float64) float64 {
	return utils.SampleStdDev(values)
}

// ObjectiveValue extracts the scalar objective from a computed KPI map. If
// the objective KPI is missing or NaN, the iteration is treated as failed
// with a kpi-unavailable error.
func (a *Aggregator) ObjectiveValue(kpis map[string]float64) (float64, bool, error) {
	name, maximize, ok := a.Objective()
	if !ok {
		return 0, false, fmt.Errorf("no objective kpi configured")
	}
	v, present := kpis[name]
	if !present || math.IsNaN(v) {
		return 0, maximize, errs.New(errs.KPIUnavailable, fmt.Sprintf("objective kpi %q missing or NaN", name))
	}
	return v, maximize, nil
}
