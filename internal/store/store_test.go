package store

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

func TestAllOrdersByStepEvenIfAppendedOutOfOrder(t *testing.T) {
	s := New()
	s.Append(IterationRecord{Step: 3, Status: StatusOK})
	s.Append(IterationRecord{Step: 1, Status: StatusOK})
	s.Append(IterationRecord{Step: 2, Status: StatusOK})

	records := s.All()
	for i, want := range []int64{1, 2, 3} {
		if records[i].Step != want {
			t.Fatalf("records[%d].Step = %d, want %d", i, records[i].Step, want)
		}
	}
}

func TestBestExcludesNaNAndFailedAndBreaksTiesByEarliestStep(t *testing.T) {
	s := New()
	s.Append(IterationRecord{Step: 1, Status: StatusOK, KPIs: map[string]float64{"score": math.NaN()}})
	s.Append(IterationRecord{Step: 2, Status: StatusFailed, KPIs: map[string]float64{"score": 100}})
	s.Append(IterationRecord{Step: 3, Status: StatusOK, KPIs: map[string]float64{"score": 5}})
	s.Append(IterationRecord{Step: 4, Status: StatusOK, KPIs: map[string]float64{"score": 5}})
	s.Append(IterationRecord{Step: 5, Status: StatusOK, KPIs: map[string]float64{"score": 2}})

	best, ok := s.Best("score", true)
	if !ok {
		t.Fatal("expected a best record")
	}
	if best.Step != 3 {
		t.Fatalf("Best().Step = %d, want 3 (earliest among tied max)", best.Step)
	}
}

func TestBestReturnsNotFoundWhenNoEligibleRecords(t *testing.T) {
	s := New()
	s.Append(IterationRecord{Step: 1, Status: StatusFailed})
	if _, ok := s.Best("score", true); ok {
		t.Fatal("expected no best when every record is failed")
	}
}

func TestBestMinimizeDirection(t *testing.T) {
	s := New()
	s.Append(IterationRecord{Step: 1, Status: StatusOK, KPIs: map[string]float64{"cost": 10}})
	s.Append(IterationRecord{Step: 2, Status: StatusOK, KPIs: map[string]float64{"cost": 3}})
	s.Append(IterationRecord{Step: 3, Status: StatusOK, KPIs: map[string]float64{"cost": 7}})

	best, ok := s.Best("cost", false)
	if !ok || best.Step != 2 {
		t.Fatalf("Best(minimize).Step = %d (ok=%v), want 2", best.Step, ok)
	}
}

func TestSummarizeSkipsNaNPerKPI(t *testing.T) {
	s := New()
	s.Append(IterationRecord{Step: 1, Status: StatusOK, KPIs: map[string]float64{"a": 1, "b": math.NaN()}})
	s.Append(IterationRecord{Step: 2, Status: StatusOK, KPIs: map[string]float64{"a": 3, "b": 10}})

	summary := s.Summarize()
	if summary["a"].Mean != 2 {
		t.Fatalf("summary[a].Mean = %v, want 2", summary["a"].Mean)
	}
	if summary["b"].Count != 1 || summary["b"].Mean != 10 {
		t.Fatalf("summary[b] = %+v, want Count=1 Mean=10", summary["b"])
	}
}

func TestSaveAllWritesThreeNamedFiles(t *testing.T) {
	dir := t.TempDir()
	base := filepath.Join(dir, "run1")

	s := New()
	s.Append(IterationRecord{
		Step: 1, Status: StatusOK,
		Parameters: paramspace.Vector{"a": 0.5},
		KPIs:       map[string]float64{"score": 1.5},
	})

	if err := s.SaveAll(base, "score", true, 3.2); err != nil {
		t.Fatalf("SaveAll error = %v", err)
	}

	for _, suffix := range []string{"_iterations.csv", "_best.json", "_summary.json"} {
		if _, err := os.Stat(base + suffix); err != nil {
			t.Fatalf("expected file %s to exist: %v", base+suffix, err)
		}
	}
}
