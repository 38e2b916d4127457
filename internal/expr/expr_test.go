package expr

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.starlark.net/starlark"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

func TestCompile_Invalid(t *testing.T) {
	_, err := Compile("bad", "revenue -")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid expression")
}

func TestProgram_Eval(t *testing.T) {
	tests := []struct {
		name string
		src  string
		row  core.Row
		want any
	}{
		{"arithmetic", "revenue - cost", core.Row{"revenue": 100, "cost": 40}, int64(60)},
		{"float arithmetic", "revenue / 4", core.Row{"revenue": 10.0}, 2.5},
		{"month bucket", "month(date)", core.Row{"date": "2024-03-15"}, "2024-03"},
		{"year", "year(date)", core.Row{"date": "2024-03-15"}, int64(2024)},
		{"row dict for odd names", `row["ad spend"] * 2`, core.Row{"ad spend": 3}, int64(6)},
		{"numeric string", `num(amount) + 1`, core.Row{"amount": "1.5"}, 2.5},
		{"round", "round(ratio, 2)", core.Row{"ratio": 0.12345}, 0.12},
		{"comparison", "orders > 10", core.Row{"orders": 12}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Compile(tt.name, tt.src)
			require.NoError(t, err)
			res := p.EvalRows([]core.Row{tt.row}, 1)
			require.Len(t, res, 1)
			require.NoError(t, res[0].Err)
			assert.Equal(t, tt.want, res[0].Value)
		})
	}
}

func TestProgram_EvalUnknownColumn(t *testing.T) {
	p, err := Compile("missing", "nope + 1")
	require.NoError(t, err)
	res := p.EvalRows([]core.Row{{"revenue": 1}}, 1)
	assert.Error(t, res[0].Err)
}

func TestProgram_EvalRows(t *testing.T) {
	p, err := Compile("double", "n * 2")
	require.NoError(t, err)

	rows := make([]core.Row, 50)
	for i := range rows {
		rows[i] = core.Row{"n": i}
	}
	results := p.EvalRows(rows, 8)
	require.Len(t, results, 50)
	for i, r := range results {
		require.NoError(t, r.Err)
		assert.Equal(t, i, r.Index)
		assert.Equal(t, int64(i*2), r.Value)
	}
}

func TestCellConversion(t *testing.T) {
	in := map[string]any{
		"s":    "x",
		"i":    int64(3),
		"f":    1.5,
		"b":    true,
		"list": []any{"a", int64(1)},
		"obj":  map[string]any{"k": "v"},
		"nil":  nil,
	}
	d, err := rowDict(in)
	require.NoError(t, err)
	out, err := goValue(d)
	require.NoError(t, err)
	assert.Equal(t, in, out)

	tests := []struct {
		name string
		cell any
		want any
	}{
		{"int stays int", 7, int64(7)},
		{"float32 widens", float32(0.5), 0.5},
		{"uint8 becomes float", uint8(4), 4.0},
		{"midnight is a date", time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), "2024-03-01"},
		{"timestamp", time.Date(2024, 3, 1, 9, 30, 0, 0, time.UTC), "2024-03-01T09:30:00Z"},
		{"numeric string is not coerced", "42", "42"},
		{"string slice", []string{"a", "b"}, []any{"a", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sv, err := cellValue(tt.cell)
			require.NoError(t, err)
			got, err := goValue(sv)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err = cellValue(struct{}{})
	assert.ErrorContains(t, err, "unsupported cell type")

	v, err := goValue(starlark.Tuple{starlark.String("a")})
	require.NoError(t, err)
	assert.Equal(t, []any{"a"}, v)

	_, err = goValue(starlark.NewDict(0))
	require.NoError(t, err)
}
