package layout

import (
	"math"
	"sort"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// Goal selects an OptimizeFor pass.
type Goal string

// Optimization goals.
const (
	GoalDensity     Goal = "density"
	GoalReadability Goal = "readability"
	GoalFlow        Goal = "flow"
)

// MakeResponsive scales every position uniformly by viewportWidth/CanvasWidth.
// It returns a new map; with Responsive explicitly false the copy is unscaled.
func (e *Engine) MakeResponsive(positions Positions, viewportWidth float64) Positions {
	out := make(Positions, len(positions))
	scale := 1.0
	if e.c.IsResponsive() && viewportWidth > 0 {
		scale = viewportWidth / e.c.CanvasWidth
	}
	for id, p := range positions {
		out[id] = core.Position{
			X:      p.X * scale,
			Y:      p.Y * scale,
			Width:  p.Width * scale,
			Height: p.Height * scale,
		}
	}
	return out
}

// OptimizeFor post-processes an arrangement:
//   - density re-packs items row-major with a small fixed gap, keeping sizes
//   - readability spreads items out by scaling x by 1.1 and y by 1.2; a blunt
//     heuristic that may push items past the canvas edge
//   - flow lays items out in bands of equal (floored) priority, highest first
//
// Items missing from positions are ignored. An unknown goal returns a copy.
func (e *Engine) OptimizeFor(positions Positions, items []Item, goal Goal) Positions {
	switch goal {
	case GoalDensity:
		return Pack(e.sized(positions, items), e.c.Padding, e.c.Padding, e.c.ContentWidth(), densityGap)
	case GoalReadability:
		out := make(Positions, len(positions))
		for id, p := range positions {
			out[id] = core.Position{X: p.X * 1.1, Y: p.Y * 1.2, Width: p.Width, Height: p.Height}
		}
		return out
	case GoalFlow:
		return e.flow(e.sized(positions, items))
	default:
		return positions.Clone()
	}
}

// sized returns the placed items with their current sizes, in items order.
func (e *Engine) sized(positions Positions, items []Item) []Item {
	out := make([]Item, 0, len(items))
	for _, it := range items {
		p, ok := positions[it.ID]
		if !ok {
			continue
		}
		it.Width, it.Height = p.Width, p.Height
		it.MinWidth, it.MinHeight, it.MaxWidth, it.MaxHeight = 0, 0, 0, 0
		out = append(out, it)
	}
	return out
}

func (e *Engine) flow(items []Item) Positions {
	bands := make(map[int][]Item)
	var keys []int
	for _, it := range items {
		k := int(math.Floor(it.Priority))
		if _, ok := bands[k]; !ok {
			keys = append(keys, k)
		}
		bands[k] = append(bands[k], it)
	}
	sort.Sort(sort.Reverse(sort.IntSlice(keys)))

	out := make(Positions, len(items))
	y := e.c.Padding
	for _, k := range keys {
		band := Pack(bands[k], e.c.Padding, y, e.c.ContentWidth(), e.c.Gap)
		bottom := y
		for id, p := range band {
			out[id] = p
			bottom = max(bottom, p.Bottom())
		}
		y = bottom + e.c.Gap*flowBandGapMult
	}
	return out
}
