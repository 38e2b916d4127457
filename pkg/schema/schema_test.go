package schema

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAnalyze_Empty(t *testing.T) {
	s := Analyze(nil)
	require.NotNil(t, s)
	assert.Empty(t, s.Columns)
	assert.NotNil(t, s.Columns)
	assert.Equal(t, 0, s.RowCount)
}

func TestAnalyze_TypePriority(t *testing.T) {
	tests := []struct {
		name string
		rows []core.Row
		want ColumnType
	}{
		{
			name: "iso date beats number",
			rows: []core.Row{{"d": "2024-01-01"}, {"d": "2024-02-01"}},
			want: TypeDate,
		},
		{
			name: "us date",
			rows: []core.Row{{"d": "01/31/2024"}, {"d": "02/28/2024"}},
			want: TypeDate,
		},
		{
			name: "day first date",
			rows: []core.Row{{"d": "31-01-2024"}},
			want: TypeDate,
		},
		{
			name: "time values",
			rows: []core.Row{{"d": time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}},
			want: TypeDate,
		},
		{
			name: "numeric strings",
			rows: []core.Row{{"d": "12.5"}, {"d": "7"}},
			want: TypeNumber,
		},
		{
			name: "go numbers",
			rows: []core.Row{{"d": 3}, {"d": 4.5}},
			want: TypeNumber,
		},
		{
			name: "zero and one are numbers first",
			rows: []core.Row{{"d": "1"}, {"d": "0"}},
			want: TypeNumber,
		},
		{
			name: "yes no",
			rows: []core.Row{{"d": "Yes"}, {"d": "no"}, {"d": "TRUE"}},
			want: TypeBoolean,
		},
		{
			name: "go bools",
			rows: []core.Row{{"d": true}, {"d": false}},
			want: TypeBoolean,
		},
		{
			name: "mixed falls back to string",
			rows: []core.Row{{"d": "12"}, {"d": "apple"}},
			want: TypeString,
		},
		{
			name: "all null",
			rows: []core.Row{{"d": nil}},
			want: TypeString,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := Analyze(tt.rows)
			col, ok := s.Column("d")
			require.True(t, ok)
			assert.Equal(t, tt.want, col.Type)
		})
	}
}

func TestAnalyze_Deterministic(t *testing.T) {
	rows := []core.Row{
		{"region": "north", "sales": 10, "date": "2024-01-01"},
		{"region": "south", "sales": 20, "date": "2024-01-02"},
		{"region": "north", "sales": 5, "date": "2024-01-03", "extra": "x"},
	}
	assert.Equal(t, Analyze(rows), Analyze(rows))
}

func TestAnalyze_SamplesFirstHundredRows(t *testing.T) {
	rows := make([]core.Row, 0, 250)
	for i := 0; i < 250; i++ {
		rows = append(rows, core.Row{"n": i, "label": fmt.Sprintf("row-%d", i)})
	}

	s := Analyze(rows)
	assert.Equal(t, 250, s.RowCount)

	n, ok := s.Column("n")
	require.True(t, ok)
	assert.Equal(t, TypeNumber, n.Type)
	assert.Equal(t, 100, n.Cardinality)
	require.NotNil(t, n.Min)
	require.NotNil(t, n.Max)
	assert.Equal(t, 0.0, *n.Min)
	assert.Equal(t, 99.0, *n.Max, "max is computed over the sample only")
	assert.Len(t, n.Sample, 5)
}

func TestAnalyze_CardinalityAndOrder(t *testing.T) {
	rows := []core.Row{
		{"b": "x", "a": 1},
		{"b": "y", "a": 1},
		{"b": "x", "a": "1", "c": true},
	}

	s := Analyze(rows)
	names := make([]string, 0, len(s.Columns))
	for _, c := range s.Columns {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"a", "b", "c"}, names)

	b, _ := s.Column("b")
	assert.Equal(t, 2, b.Cardinality)

	a, _ := s.Column("a")
	assert.Equal(t, 2, a.Cardinality, "1 and \"1\" are distinct values")
	assert.Equal(t, TypeNumber, a.Type)
}

func TestAnalyzeColumns_PreferredOrder(t *testing.T) {
	rows := []core.Row{{"month": "2024-01-01", "revenue": 10, "cost": 4}}
	s := AnalyzeColumns(rows, []string{"month", "revenue", "missing"})

	require.Len(t, s.Columns, 3)
	assert.Equal(t, "month", s.Columns[0].Name)
	assert.Equal(t, "revenue", s.Columns[1].Name)
	assert.Equal(t, "cost", s.Columns[2].Name)
}

func TestSortColumnsByRange(t *testing.T) {
	rows := []core.Row{
		{"small": 1, "big": 0, "mid": 5},
		{"small": 2, "big": 1000, "mid": 50},
	}
	s := Analyze(rows)
	sorted := SortColumnsByRange(s.ColumnsOfType(TypeNumber))
	require.Len(t, sorted, 3)
	assert.Equal(t, "big", sorted[0].Name)
	assert.Equal(t, "mid", sorted[1].Name)
	assert.Equal(t, "small", sorted[2].Name)
}

func TestNumericValue(t *testing.T) {
	tests := []struct {
		in   any
		want float64
		ok   bool
	}{
		{42, 42, true},
		{int64(-3), -3, true},
		{" 3.25 ", 3.25, true},
		{"", 0, false},
		{"abc", 0, false},
		{true, 0, false},
		{"NaN", 0, false},
		{"Inf", 0, false},
		{"-infinity", 0, false},
		{math.NaN(), 0, false},
		{math.Inf(1), 0, false},
		{json.Number("NaN"), 0, false},
	}
	for _, tt := range tests {
		t.Run(fmt.Sprintf("%v", tt.in), func(t *testing.T) {
			got, ok := NumericValue(tt.in)
			assert.Equal(t, tt.ok, ok)
			if ok {
				assert.Equal(t, tt.want, got)
			}
		})
	}
}

func TestParseDate(t *testing.T) {
	ts, ok := ParseDate("2024-03-15")
	require.True(t, ok)
	assert.Equal(t, time.March, ts.Month())

	ts, ok = ParseDate("2024-03-15T10:00:00Z")
	require.True(t, ok)
	assert.Equal(t, 15, ts.Day())

	_, ok = ParseDate("not a date")
	assert.False(t, ok)
}

func TestDistinctValues(t *testing.T) {
	rows := []core.Row{{"c": "a"}, {"c": "b"}, {"c": "a"}, {"c": nil}}
	assert.Equal(t, []any{"a", "b"}, DistinctValues(rows, "c"))
}
