package kpi

import (
	"math"
	"testing"

	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
)

func tableWithColumn(name string, values []float64) *simresult.Table {
	t := simresult.NewTable()
	t.AddNumericColumn(name, values)
	return t
}

func TestApplyScenarioFPeakAndTotal(t *testing.T) {
	table := tableWithColumn("I", []float64{10, 50, 30, 0})

	agg := NewAggregator()
	if err := agg.AddKPI(Spec{Name: "peak", Column: "I", Operation: OpMax}); err != nil {
		t.Fatalf("AddKPI(peak): %v", err)
	}
	if err := agg.AddKPI(Spec{Name: "total", Column: "I", Operation: OpSum}); err != nil {
		t.Fatalf("AddKPI(total): %v", err)
	}

	result := simresult.NewResult(table, nil, nil, nil)

	first := agg.Apply(result)
	if first["peak"] != 50 {
		t.Fatalf("peak = %v, want 50", first["peak"])
	}
	if first["total"] != 90 {
		t.Fatalf("total = %v, want 90", first["total"])
	}

	second := agg.Apply(result)
	if first["peak"] != second["peak"] || first["total"] != second["total"] {
		t.Fatalf("Apply is not idempotent: %v vs %v", first, second)
	}
}

func TestApplyModelReportedKPIWinsOverReducer(t *testing.T) {
	table := tableWithColumn("I", []float64{1, 2, 3})

	agg := NewAggregator()
	if err := agg.AddKPI(Spec{Name: "peak", Column: "I", Operation: OpMax}); err != nil {
		t.Fatalf("AddKPI: %v", err)
	}

	result := simresult.NewResult(table, map[string]float64{"peak": 999}, nil, nil)
	kpis := agg.Apply(result)
	if kpis["peak"] != 999 {
		t.Fatalf("peak = %v, want model-reported 999 to win over reducer", kpis["peak"])
	}
}

func TestReduceEmptyColumnIsNaN(t *testing.T) {
	table := simresult.NewTable()
	spec := Spec{Name: "missing", Column: "nope", Operation: OpMean}
	v := reduce(spec, table)
	if !math.IsNaN(v) {
		t.Fatalf("reduce on empty column = %v, want NaN", v)
	}
}

func TestStdDevUndefinedBelowTwoObservations(t *testing.T) {
	if v := sampleStdDev([]float64{1}); !math.IsNaN(v) {
		t.Fatalf("sampleStdDev([1]) = %v, want NaN", v)
	}
	if v := sampleStdDev(nil); !math.IsNaN(v) {
		t.Fatalf("sampleStdDev(nil) = %v, want NaN", v)
	}
}

func TestAddKPIRejectsDuplicateName(t *testing.T) {
	agg := NewAggregator()
	if err := agg.AddKPI(Spec{Name: "score", Column: "x", Operation: OpFinal}); err != nil {
		t.Fatalf("AddKPI: %v", err)
	}
	if err := agg.AddKPI(Spec{Name: "score", Column: "y", Operation: OpFinal}); err == nil {
		t.Fatal("expected error on duplicate kpi name")
	}
}

func TestSetObjectiveOnlyOncePerAggregator(t *testing.T) {
	agg := NewAggregator()
	if err := agg.AddKPI(Spec{Name: "score", Column: "x", Operation: OpFinal}); err != nil {
		t.Fatalf("AddKPI: %v", err)
	}
	if err := agg.SetObjective("score", true); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}
	if err := agg.SetObjective("score", false); err == nil {
		t.Fatal("expected error when setting objective a second time")
	}
}

func TestSetObjectiveRejectsUnregisteredKPI(t *testing.T) {
	agg := NewAggregator()
	if err := agg.SetObjective("ghost", true); err == nil {
		t.Fatal("expected error when objective kpi is not registered")
	}
}

func TestObjectiveValueMissingOrNaNIsKPIUnavailable(t *testing.T) {
	agg := NewAggregator()
	if err := agg.AddKPI(Spec{Name: "score", Column: "x", Operation: OpFinal}); err != nil {
		t.Fatalf("AddKPI: %v", err)
	}
	if err := agg.SetObjective("score", true); err != nil {
		t.Fatalf("SetObjective: %v", err)
	}

	if _, _, err := agg.ObjectiveValue(map[string]float64{}); err == nil {
		t.Fatal("expected error when objective kpi is missing")
	}
	if _, _, err := agg.ObjectiveValue(map[string]float64{"score": math.NaN()}); err == nil {
		t.Fatal("expected error when objective kpi is NaN")
	}

	v, maximize, err := agg.ObjectiveValue(map[string]float64{"score": 3.5})
	if err != nil {
		t.Fatalf("ObjectiveValue: %v", err)
	}
	if v != 3.5 || !maximize {
		t.Fatalf("ObjectiveValue = (%v, %v), want (3.5, true)", v, maximize)
	}
}

func TestCustomReducer(t *testing.T) {
	table := tableWithColumn("I", []float64{1, 2, 3, 4})
	agg := NewAggregator()
	err := agg.AddKPI(Spec{Name: "range", Custom: func(tbl *simresult.Table) float64 {
		col := tbl.NumericColumn("I", nil)
		if len(col) == 0 {
			return math.NaN()
		}
		min, max := col[0], col[0]
		for _, v := range col {
			if v < min {
				min = v
			}
			if v > max {
				max = v
			}
		}
		return max - min
	}})
	if err != nil {
		t.Fatalf("AddKPI: %v", err)
	}

	result := simresult.NewResult(table, nil, nil, nil)
	kpis := agg.Apply(result)
	if kpis["range"] != 3 {
		t.Fatalf("range = %v, want 3", kpis["range"])
	}
}
