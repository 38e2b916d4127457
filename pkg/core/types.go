package core

import (
	"sort"
	"strings"
)

// Row is a single record of tabular input: column name to raw value.
type Row = map[string]any

// VizType names a visualization kind understood by the rendering layer.
type VizType string

// Visualization kinds.
const (
	VizLineChart   VizType = "lineChart"
	VizAreaChart   VizType = "areaChart"
	VizBarChart    VizType = "barChart"
	VizPieChart    VizType = "pieChart"
	VizScatterPlot VizType = "scatterPlot"
	VizHistogram   VizType = "histogram"
	VizKPICard     VizType = "kpiCard"
	VizDataTable   VizType = "dataTable"
	VizMapChart    VizType = "mapChart"
	VizText        VizType = "text"
)

// AllVizTypes returns every visualization kind in a stable order.
func AllVizTypes() []VizType {
	return []VizType{
		VizLineChart, VizAreaChart, VizBarChart, VizPieChart, VizScatterPlot,
		VizHistogram, VizKPICard, VizDataTable, VizMapChart, VizText,
	}
}

// IsKnown reports whether t is one of the built-in visualization kinds.
func (t VizType) IsKnown() bool {
	for _, k := range AllVizTypes() {
		if k == t {
			return true
		}
	}
	return false
}

// SourceType names an external data provider.
type SourceType string

// Data source kinds.
const (
	SourceGoogleAds SourceType = "googleAds"
	SourceShopify   SourceType = "shopify"
	SourceStripe    SourceType = "stripe"
	SourceSheets    SourceType = "googleSheets"
	SourceCSV       SourceType = "csv"
	SourceAPI       SourceType = "api"
)

// Position is a placed rectangle in canvas pixels.
type Position struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Right returns the x coordinate of the right edge.
func (p Position) Right() float64 { return p.X + p.Width }

// Bottom returns the y coordinate of the bottom edge.
func (p Position) Bottom() float64 { return p.Y + p.Height }

// Overlaps reports whether two rectangles share any interior area.
func (p Position) Overlaps(o Position) bool {
	return p.X < o.Right() && o.X < p.Right() && p.Y < o.Bottom() && o.Y < p.Bottom()
}

// SortedKeys returns the keys of a row in lexical order.
func SortedKeys(r Row) []string {
	keys := make([]string, 0, len(r))
	for k := range r {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// ContainsAny reports whether s contains any of the given substrings.
func ContainsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
