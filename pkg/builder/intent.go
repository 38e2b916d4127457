package builder

import (
	"strings"
	"unicode"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/layout"
)

// Timeframe is a reporting granularity mentioned in a description.
type Timeframe string

// Timeframes.
const (
	Daily     Timeframe = "daily"
	Weekly    Timeframe = "weekly"
	Monthly   Timeframe = "monthly"
	Quarterly Timeframe = "quarterly"
	Yearly    Timeframe = "yearly"
)

// Intent is what ParseIntent extracted from a description. Unmatched parts
// stay empty; Layout defaults to the dashboard archetype.
type Intent struct {
	Text           string            `json:"text" yaml:"text"`
	DataSources    []core.SourceType `json:"dataSources" yaml:"dataSources"`
	Metrics        []string          `json:"metrics" yaml:"metrics"`
	Timeframe      Timeframe         `json:"timeframe,omitempty" yaml:"timeframe,omitempty"`
	Visualizations []core.VizType    `json:"visualizations" yaml:"visualizations"`
	Layout         layout.Archetype  `json:"layout" yaml:"layout"`
}

type phrases[T any] struct {
	value T
	words []string
}

var sourcePhrases = []phrases[core.SourceType]{
	{core.SourceGoogleAds, []string{"google ads", "adwords", "ppc"}},
	{core.SourceShopify, []string{"shopify"}},
	{core.SourceStripe, []string{"stripe"}},
	{core.SourceSheets, []string{"google sheets", "sheets", "sheet", "spreadsheet"}},
	{core.SourceCSV, []string{"csv"}},
}

// metricPhrases maps a canonical metric to its synonyms.
var metricPhrases = []phrases[string]{
	{"revenue", []string{"revenue", "sales", "income", "earnings"}},
	{"cost", []string{"cost", "costs", "spend", "spending", "expense", "expenses"}},
	{"profit", []string{"profit", "profits", "margin"}},
	{"conversions", []string{"conversion", "conversions", "signup", "signups", "purchases"}},
	{"traffic", []string{"traffic", "visits", "sessions", "pageviews"}},
	{"users", []string{"users", "customers", "visitors"}},
	{"orders", []string{"order", "orders"}},
}

var timeframePhrases = []phrases[Timeframe]{
	{Monthly, []string{"monthly", "per month", "by month", "month over month"}},
	{Weekly, []string{"weekly", "per week", "by week"}},
	{Daily, []string{"daily", "per day", "by day"}},
	{Quarterly, []string{"quarterly", "per quarter", "by quarter"}},
	{Yearly, []string{"yearly", "annual", "annually", "per year", "by year"}},
}

var vizPhrases = []phrases[core.VizType]{
	{core.VizLineChart, []string{"line", "trend", "trends", "over time"}},
	{core.VizAreaChart, []string{"area"}},
	{core.VizBarChart, []string{"bar", "bars", "compare", "ranking"}},
	{core.VizPieChart, []string{"pie", "share", "breakdown"}},
	{core.VizMapChart, []string{"map", "geographic", "geography"}},
	{core.VizScatterPlot, []string{"scatter", "correlation"}},
	{core.VizHistogram, []string{"histogram", "distribution"}},
	{core.VizKPICard, []string{"kpi", "kpis", "metric card", "summary"}},
	{core.VizDataTable, []string{"table", "details", "list"}},
}

var layoutPhrases = []phrases[layout.Archetype]{
	{layout.ArchetypeReport, []string{"report"}},
	{layout.ArchetypeComparison, []string{"comparison", "compare", "versus", "vs"}},
	{layout.ArchetypeAnalytics, []string{"analytics", "analysis", "explore"}},
}

// ParseIntent classifies a free-text description by matching whole words
// and phrases against fixed keyword tables. It is deliberately shallow:
// anything it does not recognise is simply absent from the result.
func ParseIntent(text string) Intent {
	norm := normalize(text)
	in := Intent{
		Text:           text,
		DataSources:    matchAll(norm, sourcePhrases),
		Metrics:        matchAll(norm, metricPhrases),
		Visualizations: matchAll(norm, vizPhrases),
		Layout:         layout.ArchetypeDashboard,
	}
	if tf := matchAll(norm, timeframePhrases); len(tf) > 0 {
		in.Timeframe = tf[0]
	}
	if l := matchAll(norm, layoutPhrases); len(l) > 0 {
		in.Layout = l[0]
	}
	return in
}

// normalize lowercases text and turns every run of non-alphanumerics into a
// single space, with a space on each side, so phrases match on word
// boundaries via " phrase ".
func normalize(text string) string {
	var b strings.Builder
	b.WriteByte(' ')
	space := true
	for _, r := range strings.ToLower(text) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			b.WriteRune(r)
			space = false
			continue
		}
		if !space {
			b.WriteByte(' ')
			space = true
		}
	}
	if !space {
		b.WriteByte(' ')
	}
	return b.String()
}

func matchAll[T any](norm string, table []phrases[T]) []T {
	var out []T
	for _, p := range table {
		for _, w := range p.words {
			if strings.Contains(norm, " "+w+" ") {
				out = append(out, p.value)
				break
			}
		}
	}
	return out
}
