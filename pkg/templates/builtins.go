package templates

import (
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// RegisterBuiltins seeds r with the stock templates.
func RegisterBuiltins(r *Registry) {
	for _, t := range Builtins() {
		r.Register(t)
	}
}

// Builtins returns fresh copies of the stock templates.
func Builtins() []*Template {
	return []*Template{
		googleAdsPerformance(),
		ecommerceSales(),
		stripeRevenue(),
		marketingFunnel(),
		sheetsReport(),
	}
}

func sum(column, as string) pipeline.Aggregate {
	return pipeline.Aggregate{Column: column, Function: "sum", As: as}
}

func kpi(title string, metrics ...string) viz.Config {
	return viz.Config{Type: core.VizKPICard, Title: title, Metrics: metrics}
}

func googleAdsPerformance() *Template {
	return &Template{
		Name:        "google-ads-performance",
		Description: "Google Ads campaign performance with spend, clicks and conversions over time",
		Keywords: []string{
			"google ads", "adwords", "ads", "campaign", "ppc", "cpc",
			"impressions", "clicks", "conversions", "performance",
		},
		RequiredDataSources: []core.SourceType{core.SourceGoogleAds},
		Build: func(p Params) Definition {
			b := pipeline.NewBuilder()
			src := b.AddGoogleAdsSource(p.String("customerId", ""),
				[]string{"impressions", "clicks", "cost", "conversions"},
				p.String("dateRange", "LAST_30_DAYS"))
			monthly := b.AddMonthlyAggregation(src, "date", []pipeline.Aggregate{
				sum("impressions", ""), sum("clicks", ""), sum("cost", ""), sum("conversions", ""),
			})
			b.AddOutput(monthly, pipeline.Output{Visualization: core.VizLineChart, Title: "Monthly Performance"})
			byCampaign := b.AddAggregation(src, []string{"campaign"}, []pipeline.Aggregate{sum("cost", ""), sum("conversions", "")})
			b.AddOutput(byCampaign, pipeline.Output{Visualization: core.VizBarChart, Title: "Cost by Campaign"})

			return Definition{
				Title:    "Google Ads Performance",
				Layout:   layout.ArchetypeDashboard,
				Pipeline: b.Pipeline(),
				Visualizations: []viz.Config{
					kpi("Impressions", "impressions"),
					kpi("Clicks", "clicks"),
					kpi("Cost", "cost"),
					kpi("Conversions", "conversions"),
					{Type: core.VizLineChart, Title: "Monthly Performance", XAxis: "date", YAxis: []string{"clicks", "conversions"}},
					{Type: core.VizBarChart, Title: "Cost by Campaign", Category: "campaign", Value: "cost", Orientation: viz.Vertical},
					{Type: core.VizDataTable, Title: "Campaign Details", Columns: []string{"date", "campaign", "impressions", "clicks", "cost", "conversions"}, Paginated: true, PageSize: 10},
				},
			}
		},
	}
}

func ecommerceSales() *Template {
	return &Template{
		Name:        "ecommerce-sales",
		Description: "Online store sales by product with order volume and revenue trend",
		Keywords: []string{
			"shopify", "ecommerce", "e-commerce", "store", "shop",
			"orders", "sales", "product", "products",
		},
		RequiredDataSources: []core.SourceType{core.SourceShopify},
		Build: func(p Params) Definition {
			b := pipeline.NewBuilder()
			src := b.AddShopifySource(p.String("store", ""), "orders")
			byProduct := b.AddAggregation(src, []string{"product"}, []pipeline.Aggregate{
				sum("revenue", ""),
				{Column: "orders", Function: "sum"},
			})
			sorted := b.AddSort(byProduct, []pipeline.SortKey{{Column: "revenue", Desc: true}})
			b.AddOutput(sorted, pipeline.Output{Visualization: core.VizBarChart, Title: "Revenue by Product"})
			monthly := b.AddMonthlyAggregation(src, "date", []pipeline.Aggregate{sum("revenue", "")})
			b.AddOutput(monthly, pipeline.Output{Visualization: core.VizLineChart, Title: "Revenue Trend"})

			return Definition{
				Title:    "E-commerce Sales",
				Layout:   layout.ArchetypeDashboard,
				Pipeline: b.Pipeline(),
				Visualizations: []viz.Config{
					kpi("Revenue", "revenue"),
					kpi("Orders", "orders"),
					{Type: core.VizBarChart, Title: "Revenue by Product", Category: "product", Value: "revenue", Orientation: viz.Vertical},
					{Type: core.VizLineChart, Title: "Revenue Trend", XAxis: "date", YAxis: []string{"revenue"}},
					{Type: core.VizDataTable, Title: "Orders", Columns: []string{"date", "product", "orders", "revenue"}, Paginated: true, PageSize: 10},
				},
			}
		},
	}
}

func stripeRevenue() *Template {
	return &Template{
		Name:        "stripe-revenue",
		Description: "Stripe payments and recurring revenue by plan",
		Keywords: []string{
			"stripe", "mrr", "arr", "subscription", "subscriptions",
			"churn", "payments", "charges", "recurring", "billing",
		},
		RequiredDataSources: []core.SourceType{core.SourceStripe},
		Build: func(p Params) Definition {
			b := pipeline.NewBuilder()
			src := b.AddStripeSource(p.String("apiKeyRef", ""), "charges")
			monthly := b.AddMonthlyAggregation(src, "date", []pipeline.Aggregate{sum("amount", "revenue")})
			b.AddOutput(monthly, pipeline.Output{Visualization: core.VizAreaChart, Title: "Revenue"})
			byPlan := b.AddAggregation(src, []string{"plan"}, []pipeline.Aggregate{sum("amount", "revenue")})
			b.AddOutput(byPlan, pipeline.Output{Visualization: core.VizPieChart, Title: "Revenue by Plan"})

			return Definition{
				Title:    "Stripe Revenue",
				Layout:   layout.ArchetypeDashboard,
				Pipeline: b.Pipeline(),
				Visualizations: []viz.Config{
					kpi("Revenue", "amount"),
					kpi("Customers", "customers"),
					{Type: core.VizAreaChart, Title: "Revenue", XAxis: "date", YAxis: []string{"amount"}},
					{Type: core.VizPieChart, Title: "Revenue by Plan", Category: "plan", Value: "amount"},
					{Type: core.VizDataTable, Title: "Charges", Columns: []string{"date", "plan", "customers", "amount"}, Paginated: true, PageSize: 10},
				},
			}
		},
	}
}

func marketingFunnel() *Template {
	return &Template{
		Name:        "marketing-funnel",
		Description: "Marketing funnel from sessions to signups to purchases by channel",
		Keywords: []string{
			"funnel", "marketing", "channel", "acquisition", "traffic",
			"sessions", "signups", "attribution",
		},
		OptionalDataSources: []core.SourceType{core.SourceGoogleAds, core.SourceSheets},
		Build: func(p Params) Definition {
			b := pipeline.NewBuilder()
			src := b.AddSheetsSource(p.String("spreadsheetId", ""), p.String("sheet", "Funnel"))
			byChannel := b.AddAggregation(src, []string{"channel"}, []pipeline.Aggregate{
				sum("sessions", ""), sum("signups", ""), sum("purchases", ""),
			})
			b.AddOutput(byChannel, pipeline.Output{Visualization: core.VizBarChart, Title: "Sessions by Channel"})

			return Definition{
				Title:    "Marketing Funnel",
				Layout:   layout.ArchetypeComparison,
				Pipeline: b.Pipeline(),
				Visualizations: []viz.Config{
					kpi("Sessions", "sessions"),
					kpi("Signups", "signups"),
					kpi("Purchases", "purchases"),
					{Type: core.VizBarChart, Title: "Sessions by Channel", Category: "channel", Value: "sessions", Orientation: viz.Horizontal},
					{Type: core.VizPieChart, Title: "Signups by Channel", Category: "channel", Value: "signups"},
					{Type: core.VizLineChart, Title: "Funnel Trend", XAxis: "date", YAxis: []string{"sessions", "signups", "purchases"}},
				},
			}
		},
	}
}

func sheetsReport() *Template {
	return &Template{
		Name:        "sheets-report",
		Description: "Report built from a Google Sheets spreadsheet",
		Keywords: []string{
			"google sheets", "sheets", "spreadsheet", "excel", "report",
		},
		RequiredDataSources: []core.SourceType{core.SourceSheets},
		Build: func(p Params) Definition {
			b := pipeline.NewBuilder()
			src := b.AddSheetsSource(p.String("spreadsheetId", ""), p.String("sheet", "Sheet1"))
			b.AddOutput(src, pipeline.Output{Visualization: core.VizDataTable, Title: "Sheet Data"})

			return Definition{
				Title:    "Spreadsheet Report",
				Layout:   layout.ArchetypeReport,
				Pipeline: b.Pipeline(),
				Visualizations: []viz.Config{
					{Type: core.VizLineChart, Title: "Trend", XAxis: "date", YAxis: []string{"value"}},
					{Type: core.VizBarChart, Title: "By Category", Category: "category", Value: "value", Orientation: viz.Vertical},
					{Type: core.VizDataTable, Title: "Sheet Data", Columns: []string{"date", "category", "value"}, Paginated: true, PageSize: 10},
				},
			}
		},
	}
}
