// Package schema infers the semantic shape of tabular data from a sample of rows.
//
// Column types are classified in priority order: date, number, boolean, string.
// Only the first SampleSize rows are inspected; RowCount is always the full count.
// Min and Max for numeric columns are computed over the sample only and are
// therefore approximations for larger inputs.
package schema

import (
	"fmt"
	"sort"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// SampleSize is the number of leading rows used for type inference.
const SampleSize = 100

// maxSamples is how many example values are kept per column.
const maxSamples = 5

// ColumnType is the semantic type of a column.
type ColumnType string

// Column types, in classification priority order.
const (
	TypeDate    ColumnType = "date"
	TypeNumber  ColumnType = "number"
	TypeBoolean ColumnType = "boolean"
	TypeString  ColumnType = "string"
)

// Column describes one inferred column.
type Column struct {
	Name        string     `json:"name" yaml:"name"`
	Type        ColumnType `json:"type" yaml:"type"`
	Cardinality int        `json:"cardinality" yaml:"cardinality"`
	Min         *float64   `json:"min,omitempty" yaml:"min,omitempty"`
	Max         *float64   `json:"max,omitempty" yaml:"max,omitempty"`
	Sample      []any      `json:"sample,omitempty" yaml:"sample,omitempty"`
}

// Range returns Max-Min for numeric columns, or 0 when bounds are unknown.
func (c Column) Range() float64 {
	if c.Min == nil || c.Max == nil {
		return 0
	}
	return *c.Max - *c.Min
}

// Schema is the inferred description of a dataset.
type Schema struct {
	Columns  []Column `json:"columns" yaml:"columns"`
	RowCount int      `json:"rowCount" yaml:"rowCount"`
}

// Column returns the column with the given name.
func (s *Schema) Column(name string) (Column, bool) {
	for _, c := range s.Columns {
		if c.Name == name {
			return c, true
		}
	}
	return Column{}, false
}

// ColumnsOfType returns all columns of type t, preserving schema order.
func (s *Schema) ColumnsOfType(t ColumnType) []Column {
	var out []Column
	for _, c := range s.Columns {
		if c.Type == t {
			out = append(out, c)
		}
	}
	return out
}

// Analyze infers a schema from rows. Column order follows first appearance,
// with keys of a single row visited in lexical order.
func Analyze(rows []core.Row) *Schema {
	return AnalyzeColumns(rows, nil)
}

// AnalyzeColumns is Analyze with a preferred column order. Columns named in
// order come first; any other keys found in the sample follow in first-seen order.
func AnalyzeColumns(rows []core.Row, order []string) *Schema {
	if len(rows) == 0 {
		return &Schema{Columns: []Column{}, RowCount: 0}
	}

	sample := rows
	if len(sample) > SampleSize {
		sample = sample[:SampleSize]
	}

	names := columnNames(sample, order)
	columns := make([]Column, 0, len(names))
	for _, name := range names {
		columns = append(columns, analyzeColumn(name, sample))
	}

	return &Schema{Columns: columns, RowCount: len(rows)}
}

func columnNames(sample []core.Row, order []string) []string {
	seen := make(map[string]bool)
	var names []string
	present := make(map[string]bool)
	for _, row := range sample {
		for k := range row {
			present[k] = true
		}
	}
	for _, name := range order {
		if present[name] && !seen[name] {
			seen[name] = true
			names = append(names, name)
		}
	}
	for _, row := range sample {
		for _, k := range core.SortedKeys(row) {
			if !seen[k] {
				seen[k] = true
				names = append(names, k)
			}
		}
	}
	return names
}

func analyzeColumn(name string, sample []core.Row) Column {
	var values []any
	distinct := make(map[string]struct{})
	for _, row := range sample {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		values = append(values, v)
		distinct[valueKey(v)] = struct{}{}
	}

	col := Column{
		Name:        name,
		Type:        classify(values),
		Cardinality: len(distinct),
	}

	n := min(len(values), maxSamples)
	if n > 0 {
		col.Sample = append([]any(nil), values[:n]...)
	}

	if col.Type == TypeNumber {
		lo, hi := numericBounds(values)
		col.Min, col.Max = &lo, &hi
	}

	return col
}

func classify(values []any) ColumnType {
	if len(values) == 0 {
		return TypeString
	}
	switch {
	case all(values, IsDate):
		return TypeDate
	case all(values, isNumeric):
		return TypeNumber
	case all(values, IsBoolean):
		return TypeBoolean
	default:
		return TypeString
	}
}

func all(values []any, pred func(any) bool) bool {
	for _, v := range values {
		if !pred(v) {
			return false
		}
	}
	return true
}

func isNumeric(v any) bool {
	_, ok := NumericValue(v)
	return ok
}

func numericBounds(values []any) (lo, hi float64) {
	first := true
	for _, v := range values {
		f, ok := NumericValue(v)
		if !ok {
			continue
		}
		if first {
			lo, hi = f, f
			first = false
			continue
		}
		lo = min(lo, f)
		hi = max(hi, f)
	}
	return lo, hi
}

// valueKey distinguishes values by dynamic type as well as value, so 1 and "1"
// count as two distinct entries.
func valueKey(v any) string {
	return fmt.Sprintf("%T:%v", v, v)
}

// DistinctValues returns the distinct values of a column across all rows,
// in first-seen order.
func DistinctValues(rows []core.Row, name string) []any {
	seen := make(map[string]struct{})
	var out []any
	for _, row := range rows {
		v, ok := row[name]
		if !ok || v == nil {
			continue
		}
		k := valueKey(v)
		if _, dup := seen[k]; dup {
			continue
		}
		seen[k] = struct{}{}
		out = append(out, v)
	}
	return out
}

// SortColumnsByRange orders numeric columns by descending value range.
// The sort is stable so ties keep schema order.
func SortColumnsByRange(cols []Column) []Column {
	out := append([]Column(nil), cols...)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].Range() > out[j].Range()
	})
	return out
}
