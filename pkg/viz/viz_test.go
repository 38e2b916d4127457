package viz

import (
	"encoding/json"
	"fmt"
	"math"
	"testing"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func salesRows(n int) []core.Row {
	products := []string{"shirts", "hats", "shoes"}
	rows := make([]core.Row, 0, n)
	for i := 0; i < n; i++ {
		rows = append(rows, core.Row{
			"date":    fmt.Sprintf("2024-01-%02d", i%28+1),
			"product": products[i%len(products)],
			"revenue": float64(100 + i*10),
			"orders":  i + 1,
		})
	}
	return rows
}

func types(recs []Config) []core.VizType {
	out := make([]core.VizType, 0, len(recs))
	for _, r := range recs {
		out = append(out, r.Type)
	}
	return out
}

func TestRecommend_EmissionOrder(t *testing.T) {
	recs := Recommend(salesRows(30), "")

	assert.Equal(t, []core.VizType{
		core.VizLineChart,
		core.VizAreaChart,
		core.VizBarChart,
		core.VizPieChart,
		core.VizScatterPlot,
		core.VizHistogram,
		core.VizKPICard,
		core.VizDataTable,
	}, types(recs))
}

func TestRecommend_BarChoices(t *testing.T) {
	recs := Recommend(salesRows(30), "")

	var bar *Config
	for i := range recs {
		if recs[i].Type == core.VizBarChart {
			bar = &recs[i]
		}
	}
	require.NotNil(t, bar)
	assert.Equal(t, "product", bar.Category)
	assert.Equal(t, "revenue", bar.Value, "revenue has the widest range")
	assert.Equal(t, Vertical, bar.Orientation)
}

func TestRecommend_HorizontalBarsAndNoPie(t *testing.T) {
	rows := make([]core.Row, 0, 40)
	for i := 0; i < 40; i++ {
		rows = append(rows, core.Row{"team": fmt.Sprintf("team-%d", i%10), "score": i})
	}
	recs := Recommend(rows, "")

	got := types(recs)
	assert.Contains(t, got, core.VizBarChart)
	assert.NotContains(t, got, core.VizPieChart, "ten categories is too many for a pie")
	for _, r := range recs {
		if r.Type == core.VizBarChart {
			assert.Equal(t, Horizontal, r.Orientation)
		}
	}
}

func TestRecommend_SmallDatasetSkipsHistogram(t *testing.T) {
	recs := Recommend(salesRows(5), "")
	assert.NotContains(t, types(recs), core.VizHistogram)
}

func TestRecommend_TablePagination(t *testing.T) {
	recs := Recommend(salesRows(60), "")
	table := recs[len(recs)-1]
	assert.Equal(t, core.VizDataTable, table.Type)
	assert.True(t, table.Paginated)

	recs = Recommend(salesRows(10), "")
	assert.False(t, recs[len(recs)-1].Paginated)
}

func TestRecommend_OnlyTableForText(t *testing.T) {
	rows := []core.Row{{"note": "a"}, {"note": "b"}}
	assert.Equal(t, []core.VizType{core.VizDataTable}, types(Recommend(rows, "")))
}

func TestRecommend_MapChart(t *testing.T) {
	rows := []core.Row{
		{"country": "US", "visits": 10},
		{"country": "DE", "visits": 4},
		{"country": "US", "visits": 3},
		{"country": "FR", "visits": 8},
		{"country": "DE", "visits": 1},
	}
	recs := Recommend(rows, "")
	assert.Contains(t, types(recs), core.VizMapChart)
}

func TestFilterByIntent(t *testing.T) {
	recs := Recommend(salesRows(30), "")

	tests := []struct {
		intent string
		want   []core.VizType
	}{
		{"show the trend", []core.VizType{core.VizLineChart, core.VizAreaChart}},
		{"compare products", []core.VizType{core.VizBarChart, core.VizScatterPlot}},
		{"distribution of revenue", []core.VizType{core.VizPieChart, core.VizHistogram}},
		{"give me the details", []core.VizType{core.VizDataTable}},
		{"something else entirely", types(recs)},
	}
	for _, tt := range tests {
		t.Run(tt.intent, func(t *testing.T) {
			assert.Equal(t, tt.want, types(FilterByIntent(recs, tt.intent)))
		})
	}
}

func TestCreate_KPICardChange(t *testing.T) {
	rows := []core.Row{
		{"revenue": 100, "cost": 0},
		{"revenue": 150, "cost": 0},
	}
	v, err := Create(rows, core.VizKPICard, &Config{Metrics: []string{"revenue", "cost"}})
	require.NoError(t, err)

	metrics, ok := v.Data["metrics"].([]Metric)
	require.True(t, ok)
	require.Len(t, metrics, 2)
	assert.Equal(t, 150.0, metrics[0].Value)
	assert.InDelta(t, 50.0, metrics[0].Change, 1e-9)
	assert.Equal(t, 0.0, metrics[1].Change, "zero previous value yields zero change")
}

func TestCreate_BarAggregates(t *testing.T) {
	v, err := Create(salesRows(6), core.VizBarChart, nil)
	require.NoError(t, err)

	assert.Equal(t, []string{"shirts", "hats", "shoes"}, v.Data["categories"])
	assert.Equal(t, []float64{100 + 130, 110 + 140, 120 + 150}, v.Data["values"])
	assert.NotEmpty(t, v.Style["colors"])
	assert.Equal(t, "revenue", v.Config.Value)
}

func TestCreate_ScatterTrendline(t *testing.T) {
	rows := []core.Row{{"x": 1, "y": 2}, {"x": 2, "y": 4}, {"x": 3, "y": 6}}
	v, err := Create(rows, core.VizScatterPlot, &Config{XAxis: "x", YAxis: []string{"y"}, Trendline: true})
	require.NoError(t, err)

	tl, ok := v.Data["trendline"].(Trendline)
	require.True(t, ok)
	assert.InDelta(t, 2.0, tl.Slope, 1e-9)
	assert.InDelta(t, 0.0, tl.Intercept, 1e-9)
}

func TestCreate_Histogram(t *testing.T) {
	rows := make([]core.Row, 0, 100)
	for i := 0; i < 100; i++ {
		rows = append(rows, core.Row{"v": i})
	}
	v, err := Create(rows, core.VizHistogram, &Config{Value: "v", Bins: 10})
	require.NoError(t, err)

	bins := v.Data["bins"].([]Bin)
	require.Len(t, bins, 10)
	total := 0
	for _, b := range bins {
		total += b.Count
	}
	assert.Equal(t, 100, total)
}

func TestCreate_NonFiniteCells(t *testing.T) {
	tests := []struct {
		name string
		bad  any
	}{
		{"nan string", "NaN"},
		{"inf string", "Inf"},
		{"negative inf string", "-Inf"},
		{"nan float", math.NaN()},
		{"inf float", math.Inf(1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rows := make([]core.Row, 0, 30)
			for i := 0; i < 30; i++ {
				rows = append(rows, core.Row{"v": i})
			}
			rows[7]["v"] = tt.bad
			rows[29]["v"] = tt.bad

			v, err := Create(rows, core.VizHistogram, &Config{Value: "v", Bins: 5})
			require.NoError(t, err)
			total := 0
			for _, b := range v.Data["bins"].([]Bin) {
				total += b.Count
			}
			assert.Equal(t, 28, total)

			kpi, err := Create(rows, core.VizKPICard, &Config{Metrics: []string{"v"}})
			require.NoError(t, err)
			metrics := kpi.Data["metrics"].([]Metric)
			assert.Equal(t, 28.0, metrics[0].Value)
			_, err = json.Marshal(kpi)
			assert.NoError(t, err)
		})
	}
}

func TestCreate_UnknownType(t *testing.T) {
	_, err := Create(nil, core.VizType("radar"), nil)
	assert.ErrorIs(t, err, ErrUnknownType)
}

func TestHumanize(t *testing.T) {
	assert.Equal(t, "Total Revenue", Humanize("total_revenue"))
	assert.Equal(t, "Ad Spend", Humanize("ad-spend"))
}
