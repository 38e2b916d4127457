package viz

import (
	"fmt"
	"math"
	"slices"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/schema"
)

// DefaultPalette is the series color cycle applied to new visualizations.
var DefaultPalette = []string{
	"#4F46E5", "#10B981", "#F59E0B", "#EF4444", "#8B5CF6", "#06B6D4",
}

// Create builds a renderable visualization of kind t over rows. A nil cfg is
// filled from the data: the matching recommendation when there is one, or
// sensible column choices otherwise.
func Create(rows []core.Row, t core.VizType, cfg *Config) (*Visualization, error) {
	if !t.IsKnown() {
		return nil, fmt.Errorf("%w: %s", ErrUnknownType, t)
	}

	var c Config
	if cfg != nil {
		c = *cfg
	} else {
		c = defaultConfig(schema.Analyze(rows), t)
	}
	c.Type = t
	if c.Title == "" {
		c.Title = Humanize(string(t))
	}

	v := &Visualization{
		Type:   t,
		Title:  c.Title,
		Config: c,
		Style:  DefaultStyle(t),
	}

	switch t {
	case core.VizLineChart, core.VizAreaChart:
		v.Data = map[string]any{"xAxis": c.XAxis, "series": buildSeries(rows, c.XAxis, c.YAxis)}
	case core.VizBarChart, core.VizPieChart:
		cats, vals := aggregateBy(rows, c.Category, c.Value)
		v.Data = map[string]any{"categories": cats, "values": vals}
	case core.VizMapChart:
		locs, vals := aggregateBy(rows, c.Location, c.Value)
		v.Data = map[string]any{"locations": locs, "values": vals}
	case core.VizScatterPlot:
		y := ""
		if len(c.YAxis) > 0 {
			y = c.YAxis[0]
		}
		points, xs, ys := scatterPoints(rows, c.XAxis, y)
		data := map[string]any{"points": points}
		if c.Trendline {
			data["trendline"] = fitLine(xs, ys)
		}
		v.Data = data
	case core.VizHistogram:
		bins := c.Bins
		if bins <= 0 {
			bins = histogramBins
		}
		v.Data = map[string]any{"bins": histogram(rows, c.Value, bins)}
	case core.VizKPICard:
		v.Data = map[string]any{"metrics": KPIMetrics(rows, c.Metrics)}
	case core.VizDataTable:
		page := rows
		if c.Paginated && c.PageSize > 0 && len(page) > c.PageSize {
			page = page[:c.PageSize]
		}
		v.Data = map[string]any{"columns": c.Columns, "rows": page, "totalRows": len(rows)}
	case core.VizText:
		v.Data = map[string]any{"content": c.Content}
	}

	return v, nil
}

// DefaultStyle returns the base style for a visualization kind.
func DefaultStyle(t core.VizType) map[string]any {
	style := map[string]any{
		"backgroundColor": "#FFFFFF",
		"borderRadius":    8,
		"padding":         16,
	}
	switch t {
	case core.VizText:
		style["backgroundColor"] = "transparent"
		style["fontSize"] = 24
		style["fontWeight"] = "bold"
	case core.VizKPICard:
		style["fontSize"] = 32
	default:
		style["colors"] = slices.Clone(DefaultPalette)
	}
	return style
}

func defaultConfig(s *schema.Schema, t core.VizType) Config {
	for _, r := range RecommendFor(s, "") {
		if r.Type == t {
			return r
		}
	}

	p := NewProfile(s)
	c := Config{Type: t, Columns: names(s.Columns)}
	if len(p.Dates) > 0 {
		c.XAxis = p.Dates[0].Name
	} else if len(s.Columns) > 0 {
		c.XAxis = s.Columns[0].Name
	}
	c.YAxis = names(p.Numbers)
	if strs := s.ColumnsOfType(schema.TypeString); len(strs) > 0 {
		c.Category = strs[0].Name
	} else if len(s.Columns) > 0 {
		c.Category = s.Columns[0].Name
	}
	c.Location = c.Category
	if best, ok := p.bestNumeric(); ok {
		c.Value = best.Name
	}
	c.Metrics = c.YAxis
	if len(c.Metrics) > maxKPIMetrics {
		c.Metrics = c.Metrics[:maxKPIMetrics]
	}
	return c
}

func buildSeries(rows []core.Row, x string, ys []string) []Series {
	out := make([]Series, 0, len(ys))
	for _, y := range ys {
		s := Series{Name: y, Points: []Point{}}
		for _, row := range rows {
			f, ok := schema.NumericValue(row[y])
			if !ok {
				continue
			}
			s.Points = append(s.Points, Point{X: row[x], Y: f})
		}
		out = append(out, s)
	}
	return out
}

// aggregateBy sums value per distinct key, keeping keys in first-seen order.
// An empty value column counts rows instead.
func aggregateBy(rows []core.Row, key, value string) ([]string, []float64) {
	index := make(map[string]int)
	var keys []string
	var sums []float64
	for _, row := range rows {
		raw, ok := row[key]
		if !ok || raw == nil {
			continue
		}
		k := fmt.Sprint(raw)
		i, seen := index[k]
		if !seen {
			i = len(keys)
			index[k] = i
			keys = append(keys, k)
			sums = append(sums, 0)
		}
		if value == "" {
			sums[i]++
			continue
		}
		if f, ok := schema.NumericValue(row[value]); ok {
			sums[i] += f
		}
	}
	if keys == nil {
		return []string{}, []float64{}
	}
	return keys, sums
}

func scatterPoints(rows []core.Row, x, y string) ([]Point, []float64, []float64) {
	points := []Point{}
	var xs, ys []float64
	for _, row := range rows {
		fx, okX := schema.NumericValue(row[x])
		fy, okY := schema.NumericValue(row[y])
		if !okX || !okY {
			continue
		}
		points = append(points, Point{X: fx, Y: fy})
		xs = append(xs, fx)
		ys = append(ys, fy)
	}
	return points, xs, ys
}

func fitLine(xs, ys []float64) Trendline {
	n := float64(len(xs))
	if n < 2 {
		return Trendline{}
	}
	var sx, sy, sxy, sxx float64
	for i := range xs {
		sx += xs[i]
		sy += ys[i]
		sxy += xs[i] * ys[i]
		sxx += xs[i] * xs[i]
	}
	denom := n*sxx - sx*sx
	if denom == 0 {
		return Trendline{Intercept: sy / n}
	}
	slope := (n*sxy - sx*sy) / denom
	return Trendline{Slope: slope, Intercept: (sy - slope*sx) / n}
}

func histogram(rows []core.Row, column string, bins int) []Bin {
	var vals []float64
	for _, row := range rows {
		if f, ok := schema.NumericValue(row[column]); ok {
			vals = append(vals, f)
		}
	}
	if len(vals) == 0 {
		return []Bin{}
	}
	lo, hi := slices.Min(vals), slices.Max(vals)
	width := (hi - lo) / float64(bins)
	if math.IsInf(width, 0) || math.IsNaN(width) {
		return []Bin{}
	}
	if width == 0 {
		return []Bin{{Start: lo, End: hi, Count: len(vals)}}
	}

	out := make([]Bin, bins)
	for i := range out {
		out[i] = Bin{Start: lo + float64(i)*width, End: lo + float64(i+1)*width}
	}
	for _, v := range vals {
		i := int((v - lo) / width)
		if i < 0 || math.IsNaN(v) {
			continue
		}
		if i >= bins {
			i = bins - 1
		}
		out[i].Count++
	}
	return out
}

// KPIMetrics computes the latest value of each metric column together with
// the percent change from the value before it, in data order. A previous value
// of zero yields a change of 0.
func KPIMetrics(rows []core.Row, metrics []string) []Metric {
	out := make([]Metric, 0, len(metrics))
	for _, name := range metrics {
		var vals []float64
		for _, row := range rows {
			if f, ok := schema.NumericValue(row[name]); ok {
				vals = append(vals, f)
			}
		}
		m := Metric{Name: name}
		switch len(vals) {
		case 0:
		case 1:
			m.Value = vals[0]
		default:
			m.Value = vals[len(vals)-1]
			m.Previous = vals[len(vals)-2]
			m.Change = finite((m.Value - m.Previous) / m.Previous * 100)
		}
		out = append(out, m)
	}
	return out
}

func finite(f float64) float64 {
	if math.IsInf(f, 0) || math.IsNaN(f) {
		return 0
	}
	return f
}
