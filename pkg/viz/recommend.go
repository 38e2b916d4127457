package viz

import (
	"fmt"
	"strings"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/schema"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Heuristic limits used by Recommend.
const (
	maxBarCategories  = 20
	maxPieCategories  = 8
	horizontalBarsMin = 5
	histogramMinRows  = 20
	histogramBins     = 20
	maxKPIMetrics     = 4
	paginateAbove     = 50
	defaultPageSize   = 25
)

// geoKeywords mark a column as geographical when they appear in its name.
var geoKeywords = []string{
	"country", "state", "city", "region", "zip", "postal",
	"latitude", "longitude", "lat", "lng", "location", "address",
}

var titleCaser = cases.Title(language.English)

// Humanize turns a column name such as "total_revenue" into "Total Revenue".
func Humanize(name string) string {
	return titleCaser.String(strings.NewReplacer("_", " ", "-", " ").Replace(name))
}

// Profile is the set of predicates Recommend evaluates against a schema.
type Profile struct {
	Schema         *schema.Schema
	Dates          []schema.Column
	Numbers        []schema.Column
	Categories     []schema.Column
	Geographies    []schema.Column
	HasTimeSeries  bool
	HasCategorical bool
	HasNumerical   bool
	HasGeographic  bool
}

// NewProfile evaluates the recommendation predicates for s.
func NewProfile(s *schema.Schema) Profile {
	p := Profile{
		Schema:  s,
		Dates:   s.ColumnsOfType(schema.TypeDate),
		Numbers: s.ColumnsOfType(schema.TypeNumber),
	}
	half := float64(s.RowCount) * 0.5
	for _, c := range s.ColumnsOfType(schema.TypeString) {
		if c.Cardinality > 1 && float64(c.Cardinality) < half {
			p.Categories = append(p.Categories, c)
		}
	}
	for _, c := range s.Columns {
		if isGeographic(c.Name) {
			p.Geographies = append(p.Geographies, c)
		}
	}
	p.HasTimeSeries = len(p.Dates) > 0
	p.HasCategorical = len(p.Categories) > 0
	p.HasNumerical = len(p.Numbers) > 0
	p.HasGeographic = len(p.Geographies) > 0
	return p
}

func isGeographic(name string) bool {
	lower := strings.ToLower(name)
	for _, kw := range geoKeywords {
		if lower == kw || (len(kw) > 3 && strings.Contains(lower, kw)) {
			return true
		}
	}
	return false
}

// bestNumeric returns the numeric column with the widest observed range.
func (p Profile) bestNumeric() (schema.Column, bool) {
	if len(p.Numbers) == 0 {
		return schema.Column{}, false
	}
	return schema.SortColumnsByRange(p.Numbers)[0], true
}

// barCategory picks the lowest-cardinality categorical column that has at
// least two and at most maxBarCategories distinct values.
func (p Profile) barCategory() (schema.Column, bool) {
	var best schema.Column
	found := false
	for _, c := range p.Categories {
		if c.Cardinality < 2 || c.Cardinality > maxBarCategories {
			continue
		}
		if !found || c.Cardinality < best.Cardinality {
			best, found = c, true
		}
	}
	return best, found
}

func names(cols []schema.Column) []string {
	out := make([]string, 0, len(cols))
	for _, c := range cols {
		out = append(out, c.Name)
	}
	return out
}

// Recommend analyzes rows and returns visualization configurations. When
// intent is non-empty the list is narrowed by keyword; an intent without any
// recognized keyword leaves the list unfiltered.
func Recommend(rows []core.Row, intent string) []Config {
	return RecommendFor(schema.Analyze(rows), intent)
}

// RecommendFor is Recommend over an already analyzed schema.
func RecommendFor(s *schema.Schema, intent string) []Config {
	p := NewProfile(s)
	var recs []Config

	if p.HasTimeSeries && p.HasNumerical {
		x := p.Dates[0].Name
		ys := names(p.Numbers)
		recs = append(recs, Config{
			Type:   core.VizLineChart,
			Title:  fmt.Sprintf("%s over time", strings.Join(humanizeAll(ys), ", ")),
			Reason: "time series with numeric measures",
			XAxis:  x,
			YAxis:  ys,
		})
		if len(ys) > 1 {
			recs = append(recs, Config{
				Type:    core.VizAreaChart,
				Title:   "Composition over time",
				Reason:  "several measures over time",
				XAxis:   x,
				YAxis:   ys,
				Stacked: true,
			})
		}
	}

	if p.HasCategorical && p.HasNumerical {
		cat, okCat := p.barCategory()
		val, okVal := p.bestNumeric()
		if okCat && okVal {
			orientation := Vertical
			if cat.Cardinality > horizontalBarsMin {
				orientation = Horizontal
			}
			recs = append(recs, Config{
				Type:        core.VizBarChart,
				Title:       fmt.Sprintf("%s by %s", Humanize(val.Name), Humanize(cat.Name)),
				Reason:      "categorical breakdown of a numeric measure",
				Category:    cat.Name,
				Value:       val.Name,
				Orientation: orientation,
			})
			if cat.Cardinality <= maxPieCategories {
				recs = append(recs, Config{
					Type:     core.VizPieChart,
					Title:    fmt.Sprintf("%s share by %s", Humanize(val.Name), Humanize(cat.Name)),
					Reason:   "few categories, proportion view",
					Category: cat.Name,
					Value:    val.Name,
				})
			}
		}
	}

	if p.HasGeographic && p.HasNumerical {
		val, _ := p.bestNumeric()
		loc := p.Geographies[0].Name
		recs = append(recs, Config{
			Type:     core.VizMapChart,
			Title:    fmt.Sprintf("%s by %s", Humanize(val.Name), Humanize(loc)),
			Reason:   "geographic dimension present",
			Location: loc,
			Value:    val.Name,
		})
	}

	if len(p.Numbers) >= 2 {
		x, y := p.Numbers[0].Name, p.Numbers[1].Name
		recs = append(recs, Config{
			Type:      core.VizScatterPlot,
			Title:     fmt.Sprintf("%s vs %s", Humanize(y), Humanize(x)),
			Reason:    "correlation between two measures",
			XAxis:     x,
			YAxis:     []string{y},
			Trendline: true,
		})
	}

	if p.HasNumerical && s.RowCount > histogramMinRows {
		val, _ := p.bestNumeric()
		recs = append(recs, Config{
			Type:   core.VizHistogram,
			Title:  fmt.Sprintf("Distribution of %s", Humanize(val.Name)),
			Reason: "enough rows for a distribution",
			Value:  val.Name,
			Bins:   histogramBins,
		})
	}

	if p.HasNumerical {
		metrics := names(p.Numbers)
		if len(metrics) > maxKPIMetrics {
			metrics = metrics[:maxKPIMetrics]
		}
		recs = append(recs, Config{
			Type:    core.VizKPICard,
			Title:   "Key metrics",
			Reason:  "headline numbers",
			Metrics: metrics,
		})
	}

	table := Config{
		Type:    core.VizDataTable,
		Title:   "Data table",
		Reason:  "raw records",
		Columns: names(s.Columns),
	}
	if s.RowCount > paginateAbove {
		table.Paginated = true
		table.PageSize = defaultPageSize
	}
	recs = append(recs, table)

	return FilterByIntent(recs, intent)
}

func humanizeAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = Humanize(s)
	}
	return out
}

// intentRules maps intent keywords to the visualization kinds they select.
var intentRules = []struct {
	keywords []string
	types    []core.VizType
}{
	{[]string{"trend", "time"}, []core.VizType{core.VizLineChart, core.VizAreaChart}},
	{[]string{"compare", "versus"}, []core.VizType{core.VizBarChart, core.VizScatterPlot}},
	{[]string{"distribution", "proportion"}, []core.VizType{core.VizPieChart, core.VizHistogram}},
	{[]string{"table", "details"}, []core.VizType{core.VizDataTable}},
}

// FilterByIntent keeps the recommendations whose type is selected by a keyword
// in intent. Without a recognized keyword, or when nothing would survive the
// filter, recs is returned unchanged.
func FilterByIntent(recs []Config, intent string) []Config {
	lower := strings.ToLower(strings.TrimSpace(intent))
	if lower == "" {
		return recs
	}

	allowed := make(map[core.VizType]bool)
	for _, rule := range intentRules {
		if core.ContainsAny(lower, rule.keywords...) {
			for _, t := range rule.types {
				allowed[t] = true
			}
		}
	}
	if len(allowed) == 0 {
		return recs
	}

	var out []Config
	for _, r := range recs {
		if allowed[r.Type] {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return recs
	}
	return out
}
