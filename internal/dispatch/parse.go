package dispatch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/GoSim-25-26J-441/optengine/pkg/simresult"
)

// parseOutput turns raw subprocess output into the standard tabular form
// plus any KPIs the model reported directly (JSON object form only).
func parseOutput(format OutputFormat, raw []byte) (*simresult.Table, map[string]float64, error) {
	switch format {
	case FormatCSV:
		table, err := parseCSV(raw)
		return table, nil, err
	case FormatJSON:
		return parseJSON(raw)
	default:
		return nil, nil, fmt.Errorf("unsupported output format %q", format)
	}
}

func parseCSV(raw []byte) (*simresult.Table, error) {
	r := csv.NewReader(strings.NewReader(string(raw)))
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("csv parse error: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("csv output has no header row")
	}
	header := records[0]
	rows := records[1:]

	table := simresult.NewTable()
	for col, name := range header {
		numeric := make([]float64, 0, len(rows))
		allNumeric := true
		for _, row := range rows {
			if col >= len(row) {
				allNumeric = false
				break
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(row[col]), 64)
			if err != nil {
				allNumeric = false
				break
			}
			numeric = append(numeric, f)
		}
		if allNumeric {
			table.AddNumericColumn(name, numeric)
			continue
		}
		strs := make([]string, 0, len(rows))
		for _, row := range rows {
			if col < len(row) {
				strs = append(strs, row[col])
			} else {
				strs = append(strs, "")
			}
		}
		table.AddStringColumn(name, strs)
	}
	return table, nil
}

// jsonShape is either a bare array of row objects, or an object carrying
// "time_series" and optional "kpis".
func parseJSON(raw []byte) (*simresult.Table, map[string]float64, error) {
	trimmed := strings.TrimSpace(string(raw))
	if strings.HasPrefix(trimmed, "[") {
		var rows []map[string]any
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, nil, fmt.Errorf("json parse error: %w", err)
		}
		return rowsToTable(rows), nil, nil
	}

	var obj struct {
		TimeSeries []map[string]any  `json:"time_series"`
		KPIs       map[string]float64 `json:"kpis"`
	}
	if err := json.Unmarshal(raw, &obj); err != nil {
		return nil, nil, fmt.Errorf("json parse error: %w", err)
	}
	return rowsToTable(obj.TimeSeries), obj.KPIs, nil
}

func rowsToTable(rows []map[string]any) *simresult.Table {
	table := simresult.NewTable()
	if len(rows) == 0 {
		return table
	}

	colNames := make([]string, 0)
	seen := make(map[string]bool)
	for _, row := range rows {
		for name := range row {
			if !seen[name] {
				seen[name] = true
				colNames = append(colNames, name)
			}
		}
	}

	for _, name := range colNames {
		numeric := make([]float64, 0, len(rows))
		allNumeric := true
		for _, row := range rows {
			v, ok := row[name]
			if !ok {
				allNumeric = false
				break
			}
			f, ok := v.(float64)
			if !ok {
				allNumeric = false
				break
			}
			numeric = append(numeric, f)
		}
		if allNumeric {
			table.AddNumericColumn(name, numeric)
			continue
		}
		strs := make([]string, 0, len(rows))
		for _, row := range rows {
			strs = append(strs, fmt.Sprintf("%v", row[name]))
		}
		table.AddStringColumn(name, strs)
	}
	return table
}
