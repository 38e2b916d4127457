// Package layout computes pixel positions for abstract dashboard elements.
//
// The engine is pure: it never mutates its inputs and always returns a fresh
// Positions map. Items it cannot place are absent from the result; callers
// must treat absence as "could not place".
package layout

import (
	"maps"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// ItemType is the role of an element on the dashboard.
type ItemType string

// Item types.
const (
	TypeChart  ItemType = "chart"
	TypeTable  ItemType = "table"
	TypeKPI    ItemType = "kpi"
	TypeFilter ItemType = "filter"
	TypeTitle  ItemType = "title"
	TypeText   ItemType = "text"
)

// Item is an un-positioned element. Zero Min/Max bounds mean "unbounded".
// Priority ranges from 1 (least) to 10 (most important).
type Item struct {
	ID        string   `json:"id" yaml:"id"`
	Type      ItemType `json:"type" yaml:"type"`
	Priority  float64  `json:"priority" yaml:"priority"`
	Width     float64  `json:"width" yaml:"width"`
	Height    float64  `json:"height" yaml:"height"`
	MinWidth  float64  `json:"minWidth,omitempty" yaml:"minWidth,omitempty"`
	MinHeight float64  `json:"minHeight,omitempty" yaml:"minHeight,omitempty"`
	MaxWidth  float64  `json:"maxWidth,omitempty" yaml:"maxWidth,omitempty"`
	MaxHeight float64  `json:"maxHeight,omitempty" yaml:"maxHeight,omitempty"`
}

// clampedSize applies the item's bounds to its preferred size.
func (it Item) clampedSize() (w, h float64) {
	return clamp(it.Width, it.MinWidth, it.MaxWidth), clamp(it.Height, it.MinHeight, it.MaxHeight)
}

func clamp(v, lo, hi float64) float64 {
	if lo > 0 && v < lo {
		v = lo
	}
	if hi > 0 && v > hi {
		v = hi
	}
	return v
}

// Constraints configure the canvas the engine lays out onto.
type Constraints struct {
	CanvasWidth  float64 `json:"canvasWidth" koanf:"width"`
	CanvasHeight float64 `json:"canvasHeight" koanf:"height"`
	Padding      float64 `json:"padding" koanf:"padding"`
	Gap          float64 `json:"gap" koanf:"gap"`
	Columns      int     `json:"columns" koanf:"columns"`
	// Responsive enables MakeResponsive scaling. Nil means enabled.
	Responsive *bool `json:"responsive,omitempty" koanf:"responsive"`
}

// IsResponsive reports whether MakeResponsive scales positions.
func (c Constraints) IsResponsive() bool {
	return c.Responsive == nil || *c.Responsive
}

// DefaultConstraints returns the standard 1600x900 canvas.
func DefaultConstraints() Constraints {
	return Constraints{
		CanvasWidth:  1600,
		CanvasHeight: 900,
		Padding:      20,
		Gap:          16,
		Columns:      12,
		Responsive:   ptr(true),
	}
}

// withDefaults fills zero fields from DefaultConstraints.
func (c Constraints) withDefaults() Constraints {
	d := DefaultConstraints()
	if c.CanvasWidth <= 0 {
		c.CanvasWidth = d.CanvasWidth
	}
	if c.CanvasHeight <= 0 {
		c.CanvasHeight = d.CanvasHeight
	}
	if c.Columns <= 0 {
		c.Columns = d.Columns
	}
	if c.Responsive == nil {
		c.Responsive = d.Responsive
	}
	if c.Padding < 0 {
		c.Padding = 0
	}
	if c.Gap < 0 {
		c.Gap = 0
	}
	return c
}

func ptr[T any](v T) *T { return &v }

// ContentWidth is the canvas width minus horizontal padding.
func (c Constraints) ContentWidth() float64 {
	return c.CanvasWidth - 2*c.Padding
}

// Positions maps item ids to placed rectangles.
type Positions map[string]core.Position

// Clone returns a copy of p.
func (p Positions) Clone() Positions {
	return maps.Clone(p)
}

// Bounds returns the bounding box of all positions.
func (p Positions) Bounds() core.Position {
	first := true
	var minX, minY, maxX, maxY float64
	for _, pos := range p {
		if first {
			minX, minY, maxX, maxY = pos.X, pos.Y, pos.Right(), pos.Bottom()
			first = false
			continue
		}
		minX = min(minX, pos.X)
		minY = min(minY, pos.Y)
		maxX = max(maxX, pos.Right())
		maxY = max(maxY, pos.Bottom())
	}
	return core.Position{X: minX, Y: minY, Width: maxX - minX, Height: maxY - minY}
}
