package pipeline

import (
	"strings"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// FromDescription pre-populates a builder from a handful of recognized
// phrasings. It is a keyword heuristic, not a language parser: text that
// matches none of the patterns yields an empty builder.
//
// Recognized patterns:
//   - "google ads" (+ "monthly"): ads source, optional monthly aggregation, line chart
//   - "shopify" (+ "product"): orders source, optional per-product aggregation, bar chart
//   - "stripe" (+ "monthly"): charges source, optional monthly aggregation, line chart
//   - "sheet" or "spreadsheet": sheets source feeding a table
func FromDescription(text string, opts ...Option) *Builder {
	b := NewBuilder(opts...)
	lower := strings.ToLower(text)
	monthly := strings.Contains(lower, "monthly")

	switch {
	case strings.Contains(lower, "google ads"):
		src := b.AddGoogleAdsSource("", []string{"impressions", "clicks", "cost", "conversions"}, "LAST_30_DAYS")
		last := src
		if monthly {
			last = b.AddMonthlyAggregation(src, "date", []Aggregate{
				{Column: "impressions", Function: "sum"},
				{Column: "clicks", Function: "sum"},
				{Column: "cost", Function: "sum"},
				{Column: "conversions", Function: "sum"},
			})
		}
		b.AddOutput(last, Output{Visualization: core.VizLineChart, Title: "Google Ads performance"})

	case strings.Contains(lower, "shopify"):
		src := b.AddShopifySource("", "orders")
		last := src
		if strings.Contains(lower, "product") {
			last = b.AddAggregation(src, []string{"product"}, []Aggregate{
				{Column: "total", Function: "sum", As: "revenue"},
				{Column: "id", Function: "count", As: "orders"},
			})
			last = b.AddSort(last, []SortKey{{Column: "revenue", Desc: true}})
		}
		b.AddOutput(last, Output{Visualization: core.VizBarChart, Title: "Shopify orders"})

	case strings.Contains(lower, "stripe"):
		src := b.AddStripeSource("", "charges")
		last := src
		if monthly {
			last = b.AddMonthlyAggregation(src, "created", []Aggregate{{Column: "amount", Function: "sum", As: "revenue"}})
		}
		b.AddOutput(last, Output{Visualization: core.VizLineChart, Title: "Stripe revenue"})

	case strings.Contains(lower, "spreadsheet") || strings.Contains(lower, "sheet"):
		src := b.AddSheetsSource("", "Sheet1")
		b.AddOutput(src, Output{Visualization: core.VizDataTable, Title: "Sheet data"})
	}

	return b
}
