package builder

import (
	"context"
	"errors"
	"testing"

	"github.com/leapstack-labs/leapdash/internal/testutil"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/templates"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestBuilder(t *testing.T, opts ...Option) *Builder {
	t.Helper()
	reg := templates.NewRegistry()
	templates.RegisterBuiltins(reg)
	return New(reg, append([]Option{WithLogger(testutil.NewTestLogger(t))}, opts...)...)
}

func TestParseIntent(t *testing.T) {
	tests := []struct {
		name string
		text string
		want Intent
	}{
		{
			name: "ads report",
			text: "Show me monthly revenue and costs from Google Ads as a line chart report",
			want: Intent{
				DataSources:    []core.SourceType{core.SourceGoogleAds},
				Metrics:        []string{"revenue", "cost"},
				Timeframe:      Monthly,
				Visualizations: []core.VizType{core.VizLineChart},
				Layout:         layout.ArchetypeReport,
			},
		},
		{
			name: "comparison of two providers",
			text: "Compare Shopify sales vs. Stripe revenue",
			want: Intent{
				DataSources:    []core.SourceType{core.SourceShopify, core.SourceStripe},
				Metrics:        []string{"revenue"},
				Visualizations: []core.VizType{core.VizBarChart},
				Layout:         layout.ArchetypeComparison,
			},
		},
		{
			name: "spreadsheet matches sheets once",
			text: "weekly users from my spreadsheet, as a table",
			want: Intent{
				DataSources:    []core.SourceType{core.SourceSheets},
				Metrics:        []string{"users"},
				Timeframe:      Weekly,
				Visualizations: []core.VizType{core.VizDataTable},
				Layout:         layout.ArchetypeDashboard,
			},
		},
		{
			name: "words match on boundaries only",
			text: "sitemap barometer",
			want: Intent{Layout: layout.ArchetypeDashboard},
		},
		{
			name: "empty",
			text: "",
			want: Intent{Layout: layout.ArchetypeDashboard},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.want.Text = tt.text
			assert.Equal(t, tt.want, ParseIntent(tt.text))
		})
	}
}

func TestBuildFromDescription_ShopifyOrdersByProduct(t *testing.T) {
	b := newTestBuilder(t)
	state, err := b.BuildFromDescription(context.Background(), "Show me Shopify orders by product", Context{Store: "test.myshopify.com"})
	require.NoError(t, err)

	bars := state.ItemsOfType(core.VizBarChart)
	require.NotEmpty(t, bars)
	assert.NotEmpty(t, bars[0].Data["categories"])
	assert.NotEmpty(t, bars[0].Data["values"])
	assert.NotEmpty(t, bars[0].Style)

	require.Len(t, state.DataTables, 1)
	assert.Equal(t, core.SourceShopify, state.DataTables[0].SourceType)
	assert.Equal(t, "test.myshopify.com", state.DataTables[0].Config["store"])
}

func TestBuild_ReportsTemplateAndPipeline(t *testing.T) {
	b := newTestBuilder(t)
	res, err := b.Build(context.Background(), "google ads monthly performance", Context{CustomerID: "123", Theme: "dark"})
	require.NoError(t, err)

	assert.Equal(t, "google-ads-performance", res.Template)
	assert.True(t, res.Validation.Valid, res.Validation.Errors)
	assert.NotEmpty(t, res.Pipeline.Nodes)
	assert.Equal(t, "dark", res.State.Theme)
}

func TestBuild_CustomFallback(t *testing.T) {
	b := newTestBuilder(t)
	res, err := b.Build(context.Background(), "profit per region", Context{})
	require.NoError(t, err)

	assert.Empty(t, res.Template)
	assert.Empty(t, res.State.DataTables)
	assert.False(t, res.Validation.Valid, "no sources were wired")

	texts := res.State.ItemsOfType(core.VizText)
	require.Len(t, texts, 1)
	assert.Equal(t, "Profit Dashboard", texts[0].Title)

	charts := len(res.State.CanvasItems) - 1
	assert.Positive(t, charts)
	assert.LessOrEqual(t, charts, MaxRecommendations)
}

func TestBuild_CustomSkipsSourcesWithoutParameters(t *testing.T) {
	b := newTestBuilder(t)
	res, err := b.Build(context.Background(), "csv of profit", Context{})
	require.NoError(t, err)
	assert.Equal(t, []core.SourceType{core.SourceCSV}, res.Intent.DataSources)
	assert.Empty(t, res.State.DataTables)
}

type stubLoader struct {
	rows []core.Row
	err  error
	path string
}

func (s *stubLoader) Load(_ context.Context, path string, _ int) ([]core.Row, error) {
	s.path = path
	return s.rows, s.err
}

func TestBuild_CustomWithCSVLoader(t *testing.T) {
	loader := &stubLoader{rows: []core.Row{
		{"date": "2024-01-01", "region": "North", "profit": 10.0},
		{"date": "2024-01-08", "region": "South", "profit": 12.0},
		{"date": "2024-01-15", "region": "North", "profit": 9.0},
		{"date": "2024-01-22", "region": "East", "profit": 14.0},
	}}
	b := newTestBuilder(t, WithRowLoader(loader))

	res, err := b.Build(context.Background(), "csv of profit", Context{FilePath: "profit.csv"})
	require.NoError(t, err)
	assert.Equal(t, "profit.csv", loader.path)

	require.Len(t, res.State.DataTables, 1)
	ds := res.State.DataTables[0]
	assert.Equal(t, core.SourceCSV, ds.SourceType)
	assert.Equal(t, "profit.csv", ds.Config["path"])
	assert.Len(t, res.State.Connections, len(res.State.CanvasItems)-1)
	assert.True(t, res.Validation.Valid, res.Validation.Errors)

	loader.err = errors.New("boom")
	_, err = b.Build(context.Background(), "csv of profit", Context{FilePath: "profit.csv"})
	require.Error(t, err)
}

func TestBuild_Deterministic(t *testing.T) {
	b := newTestBuilder(t)
	strip := func(s dashboard.State) []dashboard.CanvasItem {
		items := s.CanvasItems
		for i := range items {
			items[i].ID = ""
		}
		return items
	}

	a, err := b.BuildFromDescription(context.Background(), "profit per region", Context{})
	require.NoError(t, err)
	c, err := b.BuildFromDescription(context.Background(), "profit per region", Context{})
	require.NoError(t, err)
	assert.Equal(t, strip(a), strip(c))
}

func TestBuild_CanceledContext(t *testing.T) {
	b := newTestBuilder(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := b.Build(ctx, "anything", Context{})
	require.ErrorIs(t, err, context.Canceled)
}

func TestSampleRows(t *testing.T) {
	rows := SampleRows([]string{"date", "product", "orders", "revenue"}, 5, 42)
	require.Len(t, rows, 5)
	assert.Equal(t, "2024-01-01", rows[0]["date"])
	assert.Equal(t, "2024-01-08", rows[1]["date"])
	assert.IsType(t, 0, rows[0]["orders"])
	assert.IsType(t, 0.0, rows[0]["revenue"])
	assert.IsType(t, "", rows[0]["product"])

	assert.Equal(t, rows, SampleRows([]string{"date", "product", "orders", "revenue"}, 5, 42))
	assert.NotEqual(t, rows, SampleRows([]string{"date", "product", "orders", "revenue"}, 5, 43))
}
