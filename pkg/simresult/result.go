// Package simresult provides the standard container the Dispatcher produces
// and the KPI Aggregator consumes: a tabular time series plus a KPI map,
// metadata, and the parameters that produced it.
package simresult

import (
	"math"

	"github.com/GoSim-25-26J-441/optengine/pkg/paramspace"
)

// Table is the tabular form of a simulation's time-series output: named
// columns of equal length. Values are float64 for numeric columns or string
// for categorical/text columns; a column is one or the other, never mixed.
type Table struct {
	Columns      []string
	NumericCols  map[string][]float64
	StringCols   map[string][]string
	NumRows      int
}

// NewTable builds an empty table ready to receive columns.
func NewTable() *Table {
	return &Table{
		NumericCols: make(map[string][]float64),
		StringCols:  make(map[string][]string),
	}
}

// AddNumericColumn appends a numeric column. If the name already exists, its
// values are replaced and it keeps its position in Columns.
func (t *Table) AddNumericColumn(name string, values []float64) {
	if _, exists := t.NumericCols[name]; !exists {
		if _, exists := t.StringCols[name]; !exists {
			t.Columns = append(t.Columns, name)
		}
	}
	t.NumericCols[name] = values
	if len(values) > t.NumRows {
		t.NumRows = len(values)
	}
}

// AddStringColumn appends a string column.
func (t *Table) AddStringColumn(name string, values []string) {
	if _, exists := t.NumericCols[name]; !exists {
		if _, exists := t.StringCols[name]; !exists {
			t.Columns = append(t.Columns, name)
		}
	}
	t.StringCols[name] = values
	if len(values) > t.NumRows {
		t.NumRows = len(values)
	}
}

// Empty reports whether the table has no rows.
func (t *Table) Empty() bool {
	return t == nil || t.NumRows == 0
}

// NumericColumn returns the named numeric column, applying filter (if
// non-nil) by row index and returning only the rows for which it is true.
// Missing columns return an empty slice.
func (t *Table) NumericColumn(name string, filter func(row int) bool) []float64 {
	col, ok := t.NumericCols[name]
	if !ok {
		return nil
	}
	if filter == nil {
		return col
	}
	out := make([]float64, 0, len(col))
	for i, v := range col {
		if filter(i) {
			out = append(out, v)
		}
	}
	return out
}

// Result is the immutable record produced by a Dispatcher call.
type Result struct {
	TimeSeries *Table
	KPIs       map[string]float64
	Metadata   map[string]any
	Parameters paramspace.Vector
}

// NewResult builds a Result, defaulting nil maps/tables to empty ones so
// callers never need a nil check.
func NewResult(ts *Table, kpis map[string]float64, metadata map[string]any, params paramspace.Vector) *Result {
	if ts == nil {
		ts = NewTable()
	}
	if kpis == nil {
		kpis = make(map[string]float64)
	}
	if metadata == nil {
		metadata = make(map[string]any)
	}
	return &Result{TimeSeries: ts, KPIs: kpis, Metadata: metadata, Parameters: params}
}

// KPI returns a KPI value and whether it is present and not NaN.
func (r *Result) KPI(name string) (float64, bool) {
	v, ok := r.KPIs[name]
	if !ok || math.IsNaN(v) {
		return 0, false
	}
	return v, true
}
