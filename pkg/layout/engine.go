package layout

import (
	"log/slog"
	"math"
	"slices"
	"sort"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// Fixed geometry used by the strategies.
const (
	gridRowHeight   = 100.0
	filterWidth     = 240.0
	defaultTitleH   = 60.0
	defaultKPIH     = 120.0
	defaultFilterH  = 80.0
	densityGap      = 8.0
	flowBandGapMult = 2.0
)

// Engine arranges layout items onto a canvas.
type Engine struct {
	c      Constraints
	logger *slog.Logger
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine's logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) {
		if l != nil {
			e.logger = l
		}
	}
}

// New creates an engine for c. Zero-valued fields of c take their defaults.
func New(c Constraints, opts ...Option) *Engine {
	e := &Engine{c: c.withDefaults(), logger: slog.New(slog.DiscardHandler)}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Constraints returns the engine's effective constraints.
func (e *Engine) Constraints() Constraints { return e.c }

// Arrange positions items. If any item is a kpi, filter or title the
// dashboard strategy is used; otherwise items go onto the occupancy grid.
func (e *Engine) Arrange(items []Item) Positions {
	for _, it := range items {
		switch it.Type {
		case TypeKPI, TypeFilter, TypeTitle:
			e.logger.Debug("arranging items", "strategy", "dashboard", "items", len(items))
			return e.dashboardLayout(items)
		}
	}
	e.logger.Debug("arranging items", "strategy", "grid", "items", len(items))
	return e.gridLayout(items)
}

// byPriority returns a copy of items ordered by descending priority; ties keep
// their input order.
func byPriority(items []Item) []Item {
	out := slices.Clone(items)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Priority > out[j].Priority })
	return out
}

// dashboardLayout places titles full-width at the top, KPIs in one equal-width
// row below, filters in a left column and shelf-packs everything else into
// the remaining rectangle.
func (e *Engine) dashboardLayout(items []Item) Positions {
	pos := make(Positions, len(items))
	x0 := e.c.Padding
	width := e.c.ContentWidth()
	y := e.c.Padding

	var titles, kpis, filters, rest []Item
	for _, it := range items {
		switch it.Type {
		case TypeTitle:
			titles = append(titles, it)
		case TypeKPI:
			kpis = append(kpis, it)
		case TypeFilter:
			filters = append(filters, it)
		default:
			rest = append(rest, it)
		}
	}

	for _, t := range titles {
		_, h := t.clampedSize()
		if h <= 0 {
			h = defaultTitleH
		}
		pos[t.ID] = core.Position{X: x0, Y: y, Width: width, Height: h}
		y += h + e.c.Gap
	}

	if n := len(kpis); n > 0 {
		w := (width - e.c.Gap*float64(n-1)) / float64(n)
		h := 0.0
		for _, k := range kpis {
			_, kh := k.clampedSize()
			h = max(h, kh)
		}
		if h <= 0 {
			h = defaultKPIH
		}
		for i, k := range kpis {
			pos[k.ID] = core.Position{X: x0 + float64(i)*(w+e.c.Gap), Y: y, Width: w, Height: h}
		}
		y += h + e.c.Gap
	}

	restX, restW := x0, width
	if len(filters) > 0 {
		fy, colW := y, 0.0
		for _, f := range filters {
			_, fh := f.clampedSize()
			fw := clamp(filterWidth, f.MinWidth, f.MaxWidth)
			if fh <= 0 {
				fh = defaultFilterH
			}
			pos[f.ID] = core.Position{X: x0, Y: fy, Width: fw, Height: fh}
			fy += fh + e.c.Gap
			colW = max(colW, fw)
		}
		restX = x0 + colW + e.c.Gap
		restW = width - colW - e.c.Gap
	}

	for id, p := range Pack(byPriority(rest), restX, y, restW, e.c.Gap) {
		pos[id] = p
	}
	return pos
}

// Pack shelf-packs items left to right starting at (x0, y0). When the next
// item would cross x0+maxWidth a new row starts below the tallest item of the
// current row plus gap. Widths larger than maxWidth are capped.
func Pack(items []Item, x0, y0, maxWidth, gap float64) Positions {
	pos := make(Positions, len(items))
	x, y, rowH := x0, y0, 0.0
	for _, it := range items {
		w, h := it.clampedSize()
		w = min(w, maxWidth)
		if x > x0 && x+w > x0+maxWidth {
			y += rowH + gap
			x = x0
			rowH = 0
		}
		pos[it.ID] = core.Position{X: x, Y: y, Width: w, Height: h}
		x += w + gap
		rowH = max(rowH, h)
	}
	return pos
}

// gridLayout snaps items onto a coarse occupancy grid of 100px rows and
// Columns equal columns. Each item claims the smallest span covering its size
// at the first free cell found scanning row-major.
func (e *Engine) gridLayout(items []Item) Positions {
	pos := make(Positions, len(items))
	cols := e.c.Columns
	colW := e.c.ContentWidth() / float64(cols)
	rows := max(1, int(math.Floor((e.c.CanvasHeight-2*e.c.Padding)/gridRowHeight)))

	g := newGrid(rows, cols)
	for _, it := range byPriority(items) {
		w, h := it.clampedSize()
		colSpan := min(cols, max(1, int(math.Ceil(w/colW))))
		rowSpan := max(1, int(math.Ceil(h/gridRowHeight)))

		r, c, ok := g.findBestPosition(rowSpan, colSpan)
		if !ok {
			e.logger.Debug("item does not fit grid", "id", it.ID, "rows", rowSpan, "cols", colSpan)
			continue
		}
		g.occupy(r, c, rowSpan, colSpan)
		pos[it.ID] = core.Position{
			X:      e.c.Padding + float64(c)*colW,
			Y:      e.c.Padding + float64(r)*gridRowHeight,
			Width:  float64(colSpan)*colW - e.c.Gap,
			Height: float64(rowSpan)*gridRowHeight - e.c.Gap,
		}
	}
	return pos
}

type grid struct {
	cells [][]bool
	cols  int
}

func newGrid(rows, cols int) *grid {
	cells := make([][]bool, rows)
	for i := range cells {
		cells[i] = make([]bool, cols)
	}
	return &grid{cells: cells, cols: cols}
}

// findBestPosition returns the first free region of the given span in
// row-major order. It is first-fit, not best-fit.
func (g *grid) findBestPosition(rowSpan, colSpan int) (int, int, bool) {
	for r := 0; r+rowSpan <= len(g.cells); r++ {
		for c := 0; c+colSpan <= g.cols; c++ {
			if g.free(r, c, rowSpan, colSpan) {
				return r, c, true
			}
		}
	}
	return 0, 0, false
}

func (g *grid) free(r, c, rowSpan, colSpan int) bool {
	for i := r; i < r+rowSpan; i++ {
		for j := c; j < c+colSpan; j++ {
			if g.cells[i][j] {
				return false
			}
		}
	}
	return true
}

func (g *grid) occupy(r, c, rowSpan, colSpan int) {
	for i := r; i < r+rowSpan; i++ {
		for j := c; j < c+colSpan; j++ {
			g.cells[i][j] = true
		}
	}
}
