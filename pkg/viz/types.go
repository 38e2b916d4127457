// Package viz recommends and instantiates visualizations for tabular data.
//
// Recommend inspects a dataset through the schema analyzer and emits chart,
// KPI and table configurations following fixed heuristics. Create turns one
// configuration into a renderable payload for the canvas.
package viz

import (
	"errors"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// ErrUnknownType is returned by Create for visualization kinds it cannot build.
var ErrUnknownType = errors.New("unknown visualization type")

// Orientation of a bar chart.
type Orientation string

// Bar orientations.
const (
	Vertical   Orientation = "vertical"
	Horizontal Orientation = "horizontal"
)

// Config describes one visualization independent of the data values.
// Fields not meaningful for a type are left empty.
type Config struct {
	Type        core.VizType `json:"type" yaml:"type"`
	Title       string       `json:"title" yaml:"title"`
	Reason      string       `json:"reason,omitempty" yaml:"reason,omitempty"`
	XAxis       string       `json:"xAxis,omitempty" yaml:"xAxis,omitempty"`
	YAxis       []string     `json:"yAxis,omitempty" yaml:"yAxis,omitempty"`
	Category    string       `json:"category,omitempty" yaml:"category,omitempty"`
	Value       string       `json:"value,omitempty" yaml:"value,omitempty"`
	Location    string       `json:"location,omitempty" yaml:"location,omitempty"`
	Orientation Orientation  `json:"orientation,omitempty" yaml:"orientation,omitempty"`
	Stacked     bool         `json:"stacked,omitempty" yaml:"stacked,omitempty"`
	Trendline   bool         `json:"trendline,omitempty" yaml:"trendline,omitempty"`
	Bins        int          `json:"bins,omitempty" yaml:"bins,omitempty"`
	Metrics     []string     `json:"metrics,omitempty" yaml:"metrics,omitempty"`
	Columns     []string     `json:"columns,omitempty" yaml:"columns,omitempty"`
	Paginated   bool         `json:"paginated,omitempty" yaml:"paginated,omitempty"`
	PageSize    int          `json:"pageSize,omitempty" yaml:"pageSize,omitempty"`
	Content     string       `json:"content,omitempty" yaml:"content,omitempty"`
}

// Visualization is a renderable visualization: configuration, computed data
// payload and default style.
type Visualization struct {
	Type   core.VizType   `json:"type"`
	Title  string         `json:"title"`
	Config Config         `json:"config"`
	Data   map[string]any `json:"data"`
	Style  map[string]any `json:"style"`
}

// ItemData returns the payload stored on a canvas item: the computed data plus
// the configuration it was computed from.
func (v *Visualization) ItemData() map[string]any {
	out := make(map[string]any, len(v.Data)+1)
	for k, val := range v.Data {
		out[k] = val
	}
	out["config"] = v.Config
	return out
}

// Metric is one KPI entry with its period-over-period change.
type Metric struct {
	Name     string  `json:"name"`
	Value    float64 `json:"value"`
	Previous float64 `json:"previous"`
	Change   float64 `json:"change"`
}

// Point is an x/y pair.
type Point struct {
	X any     `json:"x"`
	Y float64 `json:"y"`
}

// Series is a named sequence of points.
type Series struct {
	Name   string  `json:"name"`
	Points []Point `json:"points"`
}

// Bin is one histogram bucket covering [Start, End).
type Bin struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Count int     `json:"count"`
}

// Trendline is a least-squares fit y = Slope*x + Intercept.
type Trendline struct {
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
}
