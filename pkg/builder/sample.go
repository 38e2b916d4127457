package builder

import (
	"hash/fnv"
	"math"
	"math/rand/v2"
	"slices"
	"strings"
	"time"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// DefaultSampleSize is the number of illustrative rows generated per build.
const DefaultSampleSize = 48

// Illustrative rows start here and advance one week per row.
var sampleStart = time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC)

var dateColumns = []string{"date", "month", "day", "week", "created", "timestamp"}

// categoryValues supplies labels for well-known categorical columns. Columns
// not listed here but named like a category use the generic list.
var categoryValues = map[string][]string{
	"product":  {"T-Shirt", "Hoodie", "Mug", "Cap", "Sticker Pack", "Tote Bag"},
	"campaign": {"Brand Search", "Generic Search", "Retargeting", "Display", "Shopping"},
	"plan":     {"Starter", "Pro", "Business", "Enterprise"},
	"channel":  {"Organic", "Paid Search", "Social", "Email", "Referral"},
	"country":  {"United States", "Germany", "France", "Brazil", "Japan"},
	"region":   {"North", "South", "East", "West"},
	"city":     {"New York", "Berlin", "Paris", "São Paulo", "Tokyo"},
	"state":    {"CA", "NY", "TX", "WA", "FL"},
	"category": {"Alpha", "Beta", "Gamma", "Delta", "Epsilon"},
}

type metricRange struct {
	lo, hi  float64
	integer bool
}

var metricRanges = map[string]metricRange{
	"revenue":     {1000, 5000, false},
	"amount":      {50, 500, false},
	"cost":        {100, 1000, false},
	"profit":      {200, 2000, false},
	"clicks":      {100, 2000, true},
	"impressions": {1000, 50000, true},
	"conversions": {5, 100, true},
	"orders":      {10, 200, true},
	"users":       {100, 5000, true},
	"customers":   {10, 200, true},
	"traffic":     {500, 20000, true},
	"sessions":    {500, 20000, true},
	"signups":     {10, 300, true},
	"purchases":   {5, 100, true},
}

func isDateColumn(name string) bool {
	return slices.Contains(dateColumns, strings.ToLower(name))
}

func categoryFor(name string) ([]string, bool) {
	v, ok := categoryValues[strings.ToLower(name)]
	return v, ok
}

// SampleRows generates n deterministic rows with the given columns. Date
// columns get weekly ISO dates, known categorical columns cycle through a
// fixed label set with a random offset, everything else is numeric within a
// per-metric range. The same seed always yields the same rows.
func SampleRows(columns []string, n int, seed uint64) []core.Row {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	rows := make([]core.Row, n)
	for i := range rows {
		row := make(core.Row, len(columns))
		for _, col := range columns {
			switch {
			case isDateColumn(col):
				row[col] = sampleStart.AddDate(0, 0, 7*i).Format(time.DateOnly)
			default:
				if labels, ok := categoryFor(col); ok {
					row[col] = labels[(i+r.IntN(2))%len(labels)]
					continue
				}
				row[col] = metricValue(r, col, i, n)
			}
		}
		rows[i] = row
	}
	return rows
}

// metricValue draws a value with a mild upward trend across the sample so
// line charts look like something.
func metricValue(r *rand.Rand, col string, i, n int) any {
	mr, ok := metricRanges[strings.ToLower(col)]
	if !ok {
		mr = metricRange{10, 1000, false}
	}
	trend := 1.0
	if n > 1 {
		trend = 0.8 + 0.4*float64(i)/float64(n-1)
	}
	v := (mr.lo + r.Float64()*(mr.hi-mr.lo)) * trend
	if mr.integer {
		return int(math.Round(v))
	}
	return math.Round(v*100) / 100
}

// ColumnsFor lists, in first-reference order, every column the configs read.
func ColumnsFor(cfgs []viz.Config) []string {
	var out []string
	add := func(names ...string) {
		for _, n := range names {
			if n != "" && !slices.Contains(out, n) {
				out = append(out, n)
			}
		}
	}
	for _, c := range cfgs {
		add(c.XAxis)
		add(c.YAxis...)
		add(c.Category, c.Location, c.Value)
		add(c.Metrics...)
		add(c.Columns...)
	}
	return out
}

// seedFor derives a stable seed from a description.
func seedFor(text string) uint64 {
	h := fnv.New64a()
	_, _ = h.Write([]byte(text))
	return h.Sum64()
}
