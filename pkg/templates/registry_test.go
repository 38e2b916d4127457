package templates

import (
	"testing"

	"github.com/leapstack-labs/leapdash/internal/testutil"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestRegistry(t *testing.T) *Registry {
	t.Helper()
	r := NewRegistry(WithLogger(testutil.NewTestLogger(t)))
	RegisterBuiltins(r)
	return r
}

func TestFind_Ranking(t *testing.T) {
	r := newTestRegistry(t)

	tests := []struct {
		query string
		top   string
	}{
		{"google ads monthly performance", "google-ads-performance"},
		{"Show me Shopify orders by product", "ecommerce-sales"},
		{"stripe MRR and churn", "stripe-revenue"},
		{"marketing funnel by channel", "marketing-funnel"},
		{"weekly report from my spreadsheet", "sheets-report"},
		{"ecommerce sales overview", "ecommerce-sales"},
	}
	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			got := r.Find(tt.query)
			require.NotEmpty(t, got)
			assert.Equal(t, tt.top, got[0].Template.Name)
			for i := 1; i < len(got); i++ {
				assert.GreaterOrEqual(t, got[i-1].Score, got[i].Score)
			}
		})
	}
}

func TestFind_NameScoresWithDashesAsSpaces(t *testing.T) {
	r := newTestRegistry(t)
	got := r.Find("ecommerce sales")
	require.NotEmpty(t, got)
	assert.GreaterOrEqual(t, got[0].Score, 10)
}

func TestFind_NoMatch(t *testing.T) {
	r := newTestRegistry(t)
	assert.Empty(t, r.Find("weather in lisbon"))
	assert.Empty(t, r.Find("   "))
}

func TestFind_TiesKeepRegistrationOrder(t *testing.T) {
	r := NewRegistry()
	r.Register(&Template{Name: "b", Keywords: []string{"revenue"}})
	r.Register(&Template{Name: "a", Keywords: []string{"revenue"}})

	got := r.Find("revenue")
	require.Len(t, got, 2)
	assert.Equal(t, "b", got[0].Template.Name)
	assert.Equal(t, "a", got[1].Template.Name)
}

func TestRegister_Overwrites(t *testing.T) {
	r := newTestRegistry(t)
	n := len(r.List())
	r.Register(&Template{Name: "ecommerce-sales", Description: "replacement"})

	got, ok := r.Get("ecommerce-sales")
	require.True(t, ok)
	assert.Equal(t, "replacement", got.Description)
	assert.Len(t, r.List(), n)
	assert.Equal(t, "ecommerce-sales", r.List()[1].Name)
}

func TestBuiltins_Definitions(t *testing.T) {
	for _, tmpl := range Builtins() {
		t.Run(tmpl.Name, func(t *testing.T) {
			def := tmpl.Build(Params{})
			assert.NotEmpty(t, def.Title)
			assert.NotEmpty(t, def.Visualizations)
			report := pipeline.Validate(def.Pipeline)
			assert.True(t, report.Valid, "pipeline errors: %v", report.Errors)
			for _, v := range def.Visualizations {
				assert.True(t, v.Type.IsKnown(), v.Type)
			}
		})
	}
}

func TestBuildDashboard_Unknown(t *testing.T) {
	r := newTestRegistry(t)
	o := dashboard.New()
	assert.False(t, r.BuildDashboard("no-such-template", nil, o, layout.New(layout.DefaultConstraints())))
	assert.Equal(t, 0, o.HistoryLen(), "unknown template leaves the orchestrator alone")
}

func TestBuildDashboard_GoogleAds(t *testing.T) {
	r := newTestRegistry(t)
	o := dashboard.New()
	engine := layout.New(layout.DefaultConstraints())

	ok := r.BuildDashboard("google-ads-performance", Params{"customerId": "123-456"}, o, engine)
	require.True(t, ok)

	s := o.State()
	texts := s.ItemsOfType(core.VizText)
	require.Len(t, texts, 1)
	assert.Equal(t, "Google Ads Performance", texts[0].Title)

	kpis := s.ItemsOfType(core.VizKPICard)
	assert.Len(t, kpis, 4)
	for _, item := range s.CanvasItems {
		if item.Type == core.VizText {
			continue
		}
		assert.GreaterOrEqual(t, item.Y, TitleOffset+engine.Constraints().Padding, "%s sits below the title row", item.Title)
		assert.Contains(t, item.Data, "config")
	}

	require.Len(t, s.DataTables, 1)
	assert.Equal(t, core.SourceGoogleAds, s.DataTables[0].SourceType)
	assert.Equal(t, "123-456", s.DataTables[0].Config["customerId"])
	assert.Len(t, s.Connections, len(s.CanvasItems)-1)
}

func TestBuildDashboard_WithSampleRows(t *testing.T) {
	r := newTestRegistry(t)
	o := dashboard.New()
	rows := []core.Row{
		{"date": "2024-01-01", "product": "Mug", "orders": 3, "revenue": 30.0},
		{"date": "2024-02-01", "product": "Cap", "orders": 1, "revenue": 15.0},
		{"date": "2024-03-01", "product": "Mug", "orders": 2, "revenue": 20.0},
	}

	require.True(t, r.BuildDashboard("ecommerce-sales", Params{"store": "s.myshopify.com"}, o,
		layout.New(layout.DefaultConstraints()), WithSampleRows(rows)))

	bars := o.State().ItemsOfType(core.VizBarChart)
	require.Len(t, bars, 1)
	assert.Contains(t, bars[0].Data, "categories")
	assert.NotEmpty(t, bars[0].Style)
}

func TestLayoutType(t *testing.T) {
	assert.Equal(t, layout.TypeKPI, layoutType(core.VizKPICard))
	assert.Equal(t, layout.TypeTable, layoutType(core.VizDataTable))
	assert.Equal(t, layout.TypeChart, layoutType(core.VizPieChart))
}
