// Package builder turns a free-text dashboard description into a populated
// dashboard.
//
// A description is first matched against the template registry; the best
// ranked template wins. Otherwise a custom dashboard is assembled from the
// parsed intent: one pipeline source per mentioned provider whose connection
// parameter is present in the Context, illustrative sample rows, the
// visualization recommendations for those rows and a computed layout.
//
// Sample rows are generated, not fetched. They are deterministic for a given
// description so repeated builds produce identical dashboards.
package builder

import (
	"context"
	"fmt"
	"log/slog"
	"maps"
	"strings"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/leapstack-labs/leapdash/pkg/templates"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// MaxRecommendations caps how many recommended visualizations a custom build
// places.
const MaxRecommendations = 6

// Context is the optional information supplied with a description.
type Context struct {
	CustomerID    string `json:"customerId,omitempty" yaml:"customerId,omitempty"`
	Store         string `json:"store,omitempty" yaml:"store,omitempty"`
	APIKeyRef     string `json:"apiKeyRef,omitempty" yaml:"apiKeyRef,omitempty"`
	SpreadsheetID string `json:"spreadsheetId,omitempty" yaml:"spreadsheetId,omitempty"`
	FilePath      string `json:"filePath,omitempty" yaml:"filePath,omitempty"`
	Theme         string `json:"theme,omitempty" yaml:"theme,omitempty"`
	DateRange     string `json:"dateRange,omitempty" yaml:"dateRange,omitempty"`
}

func (c Context) params() templates.Params {
	p := templates.Params{}
	for k, v := range map[string]string{
		"customerId":    c.CustomerID,
		"store":         c.Store,
		"apiKeyRef":     c.APIKeyRef,
		"spreadsheetId": c.SpreadsheetID,
		"path":          c.FilePath,
		"dateRange":     c.DateRange,
	} {
		if v != "" {
			p[k] = v
		}
	}
	return p
}

// RowLoader reads up to limit rows from a local data file.
type RowLoader interface {
	Load(ctx context.Context, path string, limit int) ([]core.Row, error)
}

// Builder builds dashboards from descriptions. It holds no per-build state
// and may be shared.
type Builder struct {
	registry    *templates.Registry
	constraints layout.Constraints
	sampleSize  int
	loader      RowLoader
	orchOpts    []dashboard.Option
	logger      *slog.Logger
}

// Option configures a Builder.
type Option func(*Builder)

// WithLogger sets the builder's logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Builder) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithConstraints sets the canvas the layouts are computed for.
func WithConstraints(c layout.Constraints) Option {
	return func(b *Builder) { b.constraints = c }
}

// WithSampleSize sets how many sample rows a build generates.
func WithSampleSize(n int) Option {
	return func(b *Builder) {
		if n > 0 {
			b.sampleSize = n
		}
	}
}

// WithRowLoader lets CSV sources read real rows from Context.FilePath.
func WithRowLoader(l RowLoader) Option {
	return func(b *Builder) { b.loader = l }
}

// WithOrchestratorOptions passes options to every orchestrator the builder
// creates.
func WithOrchestratorOptions(opts ...dashboard.Option) Option {
	return func(b *Builder) { b.orchOpts = append(b.orchOpts, opts...) }
}

// New creates a builder that matches descriptions against reg.
func New(reg *templates.Registry, opts ...Option) *Builder {
	b := &Builder{
		registry:    reg,
		constraints: layout.DefaultConstraints(),
		sampleSize:  DefaultSampleSize,
		logger:      slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Result is a finished build.
type Result struct {
	State      dashboard.State   `json:"state" yaml:"state"`
	Intent     Intent            `json:"intent" yaml:"intent"`
	Template   string            `json:"template,omitempty" yaml:"template,omitempty"`
	Pipeline   pipeline.Pipeline `json:"pipeline" yaml:"pipeline"`
	Validation pipeline.Report   `json:"validation" yaml:"validation"`
}

// BuildFromDescription builds a dashboard for text and returns its state.
func (b *Builder) BuildFromDescription(ctx context.Context, text string, c Context) (dashboard.State, error) {
	res, err := b.Build(ctx, text, c)
	if err != nil {
		return dashboard.State{}, err
	}
	return res.State, nil
}

// Build is BuildFromDescription returning the intent, matched template and
// pipeline alongside the state.
func (b *Builder) Build(ctx context.Context, text string, c Context) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("build dashboard: %w", err)
	}

	res := &Result{Intent: ParseIntent(text)}
	orch := dashboard.New(append([]dashboard.Option{dashboard.WithLogger(b.logger)}, b.orchOpts...)...)
	engine := layout.New(b.constraints, layout.WithLogger(b.logger))

	if matches := b.registry.Find(text); len(matches) > 0 {
		top := matches[0].Template
		b.logger.Info("description matched template", "template", top.Name, "score", matches[0].Score)

		params := c.params()
		def := top.Build(params)
		rows := SampleRows(ColumnsFor(def.Visualizations), b.sampleSize, seedFor(text))
		b.registry.BuildDashboard(top.Name, params, orch, engine, templates.WithSampleRows(rows))

		res.Template = top.Name
		res.Pipeline = def.Pipeline
	} else {
		p, err := b.buildCustom(ctx, orch, engine, res.Intent, c)
		if err != nil {
			return nil, err
		}
		res.Pipeline = p
	}

	if c.Theme != "" {
		orch.SetTheme(c.Theme)
	}
	res.Validation = pipeline.Validate(res.Pipeline)
	res.State = orch.State()
	return res, nil
}

type sourceRef struct {
	id   string
	kind core.SourceType
}

// buildCustom assembles a dashboard from intent when no template matched.
func (b *Builder) buildCustom(ctx context.Context, orch *dashboard.Orchestrator, engine *layout.Engine, in Intent, c Context) (pipeline.Pipeline, error) {
	metrics := in.Metrics
	if len(metrics) == 0 {
		metrics = []string{"revenue"}
	}

	pb := pipeline.NewBuilder(pipeline.WithLogger(b.logger))
	var sources []sourceRef
	for _, kind := range in.DataSources {
		id, ok := b.addSource(pb, kind, metrics, c)
		if !ok {
			b.logger.Debug("skipping data source without connection parameter", "source_type", kind)
			continue
		}
		sources = append(sources, sourceRef{id: id, kind: kind})
	}

	outputType := core.VizLineChart
	if len(in.Visualizations) > 0 {
		outputType = in.Visualizations[0]
	}
	for _, src := range sources {
		last := src.id
		if in.Timeframe == Monthly {
			aggs := make([]pipeline.Aggregate, len(metrics))
			for i, m := range metrics {
				aggs[i] = pipeline.Aggregate{Column: m, Function: "sum"}
			}
			last = pb.AddMonthlyAggregation(last, "date", aggs)
		}
		pb.AddOutput(last, pipeline.Output{Visualization: outputType, Title: viz.Humanize(string(src.kind))})
	}

	rows, err := b.rows(ctx, in, metrics, c, sources)
	if err != nil {
		return pipeline.Pipeline{}, err
	}

	recs := viz.Recommend(rows, in.Text)
	if len(recs) > MaxRecommendations {
		recs = recs[:MaxRecommendations]
	}

	cs := engine.Constraints()
	title := titleFor(metrics)
	orch.AddVisualization(core.VizText, dashboard.VizOptions{
		Title:    title,
		Position: &core.Position{X: cs.Padding, Y: cs.Padding, Width: cs.ContentWidth(), Height: 60},
		Data:     map[string]any{"content": title},
		Style:    viz.DefaultStyle(core.VizText),
	})

	items := templates.LayoutItems(recs)
	positions := engine.Arrange(items)
	var vizIDs []string
	for i, rec := range recs {
		pos, ok := positions[items[i].ID]
		if !ok {
			continue
		}
		v, err := viz.Create(rows, rec.Type, &rec)
		if err != nil {
			b.logger.Warn("skipping recommendation", "type", rec.Type, "error", err)
			continue
		}
		pos.Y += templates.TitleOffset
		vizIDs = append(vizIDs, orch.AddVisualization(v.Type, dashboard.VizOptions{
			Title:    v.Title,
			Position: &pos,
			Data:     v.ItemData(),
			Style:    v.Style,
		}))
	}

	p := pb.Pipeline()
	for _, src := range sources {
		node, _ := pb.Node(src.id)
		cfg := maps.Clone(node.Config)
		delete(cfg, "sourceType")
		dsID := orch.AddDataSource(src.kind, dashboard.SourceOptions{Config: cfg})
		for _, id := range vizIDs {
			if _, err := orch.ConnectNodes(dsID, id, dashboard.ConnectOptions{Animated: true}); err != nil {
				return pipeline.Pipeline{}, fmt.Errorf("connect data source: %w", err)
			}
		}
	}

	b.logger.Info("custom dashboard built",
		"sources", len(sources), "metrics", metrics, "visualizations", len(vizIDs))
	return p, nil
}

// addSource adds a pipeline source for kind when c holds the parameter the
// provider needs.
func (b *Builder) addSource(pb *pipeline.Builder, kind core.SourceType, metrics []string, c Context) (string, bool) {
	switch kind {
	case core.SourceGoogleAds:
		if c.CustomerID == "" {
			return "", false
		}
		dr := c.DateRange
		if dr == "" {
			dr = "LAST_30_DAYS"
		}
		return pb.AddGoogleAdsSource(c.CustomerID, metrics, dr), true
	case core.SourceShopify:
		if c.Store == "" {
			return "", false
		}
		return pb.AddShopifySource(c.Store, "orders"), true
	case core.SourceStripe:
		if c.APIKeyRef == "" {
			return "", false
		}
		return pb.AddStripeSource(c.APIKeyRef, "charges"), true
	case core.SourceSheets:
		if c.SpreadsheetID == "" {
			return "", false
		}
		return pb.AddSheetsSource(c.SpreadsheetID, "Sheet1"), true
	case core.SourceCSV:
		if c.FilePath == "" {
			return "", false
		}
		return pb.AddCSVSource(c.FilePath), true
	}
	return "", false
}

// rows returns the data the recommendations are computed from: the CSV file
// when one is wired and a loader is configured, generated sample rows
// otherwise.
func (b *Builder) rows(ctx context.Context, in Intent, metrics []string, c Context, sources []sourceRef) ([]core.Row, error) {
	for _, src := range sources {
		if src.kind != core.SourceCSV || b.loader == nil {
			continue
		}
		rows, err := b.loader.Load(ctx, c.FilePath, b.sampleSize)
		if err != nil {
			return nil, fmt.Errorf("load %s: %w", c.FilePath, err)
		}
		return rows, nil
	}
	columns := append([]string{"date", "category"}, metrics...)
	return SampleRows(columns, b.sampleSize, seedFor(in.Text)), nil
}

func titleFor(metrics []string) string {
	names := make([]string, len(metrics))
	for i, m := range metrics {
		names[i] = viz.Humanize(m)
	}
	return strings.Join(names, " & ") + " Dashboard"
}
