package templates

import (
	"fmt"
	"maps"
	"strings"

	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// TitleOffset is the vertical space reserved above laid-out visualizations
// for the title row.
const TitleOffset = 100.0

// BuildOption customises BuildDashboard.
type BuildOption func(*buildOptions)

type buildOptions struct {
	rows []core.Row
}

// WithSampleRows computes every visualization's data payload from rows.
// Without it items carry only their configuration.
func WithSampleRows(rows []core.Row) BuildOption {
	return func(o *buildOptions) { o.rows = rows }
}

// layoutType maps a visualization type onto a layout item type by name:
// "...Card" is a KPI, "...able" a table, anything else a chart.
func layoutType(t core.VizType) layout.ItemType {
	s := string(t)
	switch {
	case strings.Contains(s, "Card"):
		return layout.TypeKPI
	case strings.Contains(s, "able"):
		return layout.TypeTable
	default:
		return layout.TypeChart
	}
}

// LayoutItems converts visualization configs into layout items with ids
// "item-<index>". Sizes and priorities follow the inferred item type; charts
// lose priority the later they appear.
func LayoutItems(cfgs []viz.Config) []layout.Item {
	items := make([]layout.Item, len(cfgs))
	for i, cfg := range cfgs {
		items[i] = layoutItem(i, cfg)
	}
	return items
}

func layoutItem(i int, cfg viz.Config) layout.Item {
	it := layout.Item{ID: fmt.Sprintf("item-%d", i), Type: layoutType(cfg.Type)}
	switch it.Type {
	case layout.TypeKPI:
		it.Priority, it.Width, it.Height = 9, 300, 120
	case layout.TypeTable:
		it.Priority, it.Width, it.Height = 4, 1560, 300
	default:
		it.Priority, it.Width, it.Height = float64(max(5, 8-i/2)), 772, 380
		it.MinWidth = 400
	}
	return it
}

// goalFor picks a post-layout optimisation for an archetype hint.
func goalFor(a layout.Archetype) (layout.Goal, bool) {
	switch a {
	case layout.ArchetypeAnalytics:
		return layout.GoalFlow, true
	case layout.ArchetypeReport:
		return layout.GoalReadability, true
	}
	return "", false
}

// BuildDashboard instantiates the named template into orch, replacing its
// contents. It reports false only when no template has that name; params are
// not checked against the template's required data sources.
func (r *Registry) BuildDashboard(name string, params Params, orch *dashboard.Orchestrator, engine *layout.Engine, opts ...BuildOption) bool {
	t, ok := r.Get(name)
	if !ok {
		r.logger.Debug("template not found", "name", name)
		return false
	}
	var bo buildOptions
	for _, opt := range opts {
		opt(&bo)
	}

	def := t.Build(params)
	orch.Clear()
	if def.Theme != "" {
		orch.SetTheme(def.Theme)
	}

	c := engine.Constraints()
	if def.Title != "" {
		orch.AddVisualization(core.VizText, dashboard.VizOptions{
			Title:    def.Title,
			Position: &core.Position{X: c.Padding, Y: c.Padding, Width: c.ContentWidth(), Height: 60},
			Data:     map[string]any{"content": def.Title},
			Style:    viz.DefaultStyle(core.VizText),
		})
	}

	items := LayoutItems(def.Visualizations)
	positions := engine.Arrange(items)
	if goal, ok := goalFor(def.Layout); ok {
		positions = engine.OptimizeFor(positions, items, goal)
	}

	var vizIDs []string
	for i, cfg := range def.Visualizations {
		pos, ok := positions[items[i].ID]
		if !ok {
			r.logger.Debug("visualization not placed", "template", name, "title", cfg.Title)
			continue
		}
		pos.Y += TitleOffset
		data, style := payload(bo.rows, cfg)
		id := orch.AddVisualization(cfg.Type, dashboard.VizOptions{
			Title:    cfg.Title,
			Position: &pos,
			Data:     data,
			Style:    style,
		})
		vizIDs = append(vizIDs, id)
	}

	addSources(orch, def.Pipeline, vizIDs)
	r.logger.Info("dashboard built from template", "template", name, "visualizations", len(vizIDs))
	return true
}

// payload computes an item's data and style. Without rows, or when the
// configuration cannot be rendered from them, only the configuration is
// stored.
func payload(rows []core.Row, cfg viz.Config) (map[string]any, map[string]any) {
	if len(rows) > 0 {
		if v, err := viz.Create(rows, cfg.Type, &cfg); err == nil {
			return v.ItemData(), v.Style
		}
	}
	return map[string]any{"config": cfg}, viz.DefaultStyle(cfg.Type)
}

// addSources declares one data table per pipeline source node and connects
// it to every visualization.
func addSources(orch *dashboard.Orchestrator, p pipeline.Pipeline, vizIDs []string) {
	for _, n := range p.Nodes {
		if n.Type != pipeline.NodeSource {
			continue
		}
		cfg := maps.Clone(n.Config)
		st := core.SourceType(n.Operation)
		delete(cfg, "sourceType")
		dsID := orch.AddDataSource(st, dashboard.SourceOptions{Config: cfg})
		for _, id := range vizIDs {
			// Both ids were just created, so this cannot fail.
			_, _ = orch.ConnectNodes(dsID, id, dashboard.ConnectOptions{Animated: true})
		}
	}
}
