// Package store implements the append-only Results Store: one
// IterationRecord per proposal, indexed by monotone step, plus best-tracking
// and export.
package store

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sort"
	"strconv"
	"sync"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
	"github.com/GoSim-25-26J-441/optengine/pkg/utils"
)

// Status classifies the outcome of one iteration.
type Status string

const (
	StatusOK        Status = "ok"
	StatusFailed    Status = "failed"
	StatusCancelled Status = "cancelled"
)

// IterationRecord is one row in the store.
type IterationRecord struct {
	Step           int64
	Parameters     paramspace.Vector
	KPIs           map[string]float64
	ObjectiveValue float64
	Status         Status
	ElapsedMs      int64
	Error          string
	Attempts       int
}

// Store is the append-only, single-writer/many-readers iteration log.
type Store struct {
	mu      sync.RWMutex
	records []IterationRecord
}

// New returns an empty Store.
func New() *Store {
	return &Store{}
}

// Append adds a record. Callers are responsible for assigning strictly
// increasing Step values (the Controller assigns them at proposal time);
// Append does not reorder or validate monotonicity itself since records may
// legitimately be appended out of proposal order when completions
// interleave under parallelism.
func (s *Store) Append(rec IterationRecord) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.records = append(s.records, rec)
}

// All returns a snapshot of every record, ordered by Step ascending.
func (s *Store) All() []IterationRecord {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]IterationRecord, len(s.records))
	copy(out, s.records)
	sort.Slice(out, func(i, j int) bool { return out[i].Step < out[j].Step })
	return out
}

// Best returns the ok record with the extremal objectiveName KPI value,
// excluding missing/NaN values, ties broken by earliest step. ok is false
// if no eligible record exists.
func (s *Store) Best(objectiveName string, maximize bool) (rec IterationRecord, ok bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	found := false
	for _, r := range s.records {
		if r.Status != StatusOK {
			continue
		}
		v, present := r.KPIs[objectiveName]
		if !present || math.IsNaN(v) {
			continue
		}
		if !found {
			rec, found = r, true
			continue
		}
		better := v > rec.KPIs[objectiveName]
		if !maximize {
			better = v < rec.KPIs[objectiveName]
		}
		tie := v == rec.KPIs[objectiveName]
		if better || (tie && r.Step < rec.Step) {
			rec = r
		}
	}
	return rec, found
}

// ExportCSV writes one row per record, flattening parameters and KPIs into
// prefixed columns (param.<name>, kpi.<name>), to path.
func (s *Store) ExportCSV(path string) error {
	records := s.All()

	paramNames := collectKeys(records, func(r IterationRecord) map[string]any {
		out := make(map[string]any, len(r.Parameters))
		for k, v := range r.Parameters {
			out[k] = v
		}
		return out
	})
	kpiNames := collectKeys(records, func(r IterationRecord) map[string]any {
		out := make(map[string]any, len(r.KPIs))
		for k, v := range r.KPIs {
			out[k] = v
		}
		return out
	})

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	header := []string{"step", "status", "objectiveValue", "elapsedMs", "error"}
	for _, p := range paramNames {
		header = append(header, "param."+p)
	}
	for _, k := range kpiNames {
		header = append(header, "kpi."+k)
	}
	if err := w.Write(header); err != nil {
		return err
	}

	for _, r := range records {
		row := []string{
			strconv.FormatInt(r.Step, 10),
			string(r.Status),
			strconv.FormatFloat(r.ObjectiveValue, 'g', -1, 64),
			strconv.FormatInt(r.ElapsedMs, 10),
			r.Error,
		}
		for _, p := range paramNames {
			row = append(row, fmt.Sprintf("%v", r.Parameters[p]))
		}
		for _, k := range kpiNames {
			row = append(row, strconv.FormatFloat(r.KPIs[k], 'g', -1, 64))
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	return w.Error()
}

// ExportJSON writes every record as a JSON array to path.
func (s *Store) ExportJSON(path string) error {
	records := s.All()
	data, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}

// Summary is the per-KPI aggregate over all ok iterations.
type Summary struct {
	Min, Max, Mean, Std float64
	Count               int
}

// Summarize computes min/max/mean/std per KPI across ok records, skipping
// NaN values per KPI independently.
func (s *Store) Summarize() map[string]Summary {
	records := s.All()
	byKPI := make(map[string][]float64)
	for _, r := range records {
		if r.Status != StatusOK {
			continue
		}
		for name, v := range r.KPIs {
			if math.IsNaN(v) {
				continue
			}
			byKPI[name] = append(byKPI[name], v)
		}
	}

	out := make(map[string]Summary, len(byKPI))
	for name, values := range byKPI {
		out[name] = summarize(values)
	}
	return out
}

func summarize(values []float64) Summary {
	n := len(values)
	if n == 0 {
		return Summary{Min: math.NaN(), Max: math.NaN(), Mean: math.NaN(), Std: math.NaN()}
	}
	return Summary{
		Min:   utils.MinSlice(values),
		Max:   utils.MaxSlice(values),
		Mean:  utils.Mean(values),
		Std:   utils.SampleStdDev(values),
		Count: n,
	}
}

// SaveAll writes the three result files the spec names:
// "<base>_iterations.csv", "<base>_best.json", "<base>_summary.json".
func (s *Store) SaveAll(basePath, objectiveName string, maximize bool, elapsedSeconds float64) error {
	if err := s.ExportCSV(basePath + "_iterations.csv"); err != nil {
		return err
	}

	best, found := s.Best(objectiveName, maximize)
	bestPayload := map[string]any{
		"iterations":     len(s.All()),
		"elapsedSeconds": elapsedSeconds,
	}
	if found {
		bestPayload["bestParameters"] = best.Parameters
		bestPayload["bestKPIs"] = best.KPIs
	} else {
		bestPayload["bestParameters"] = nil
		bestPayload["bestKPIs"] = nil
	}
	bestData, err := json.MarshalIndent(bestPayload, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(basePath+"_best.json", bestData, 0o644); err != nil {
		return err
	}

	// JSON has no NaN, so statistics that are undefined (Std below two
	// observations) are written as null.
	nullIfNaN := func(v float64) any {
		if math.IsNaN(v) {
			return nil
		}
		return v
	}
	summary := make(map[string]map[string]any)
	for name, sm := range s.Summarize() {
		summary[name] = map[string]any{
			"Min": nullIfNaN(sm.Min), "Max": nullIfNaN(sm.Max),
			"Mean": nullIfNaN(sm.Mean), "Std": nullIfNaN(sm.Std), "Count": sm.Count,
		}
	}
	summaryData, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(basePath+"_summary.json", summaryData, 0o644)
}

func collectKeys(records []IterationRecord, extract func(IterationRecord) map[string]any) []string {
	seen := make(map[string]bool)
	var names []string
	for _, r := range records {
		for k := range extract(r) {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	sort.Strings(names)
	return names
}
