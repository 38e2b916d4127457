package layout

// Archetype names a canned layout.
type Archetype string

// Layout archetypes.
const (
	ArchetypeDashboard  Archetype = "dashboard"
	ArchetypeReport     Archetype = "report"
	ArchetypeComparison Archetype = "comparison"
	ArchetypeAnalytics  Archetype = "analytics"
)

// Archetypes lists the known archetypes.
func Archetypes() []Archetype {
	return []Archetype{ArchetypeDashboard, ArchetypeReport, ArchetypeComparison, ArchetypeAnalytics}
}

// Template returns a fixed starting set of items for an archetype. These are
// fixtures, not computed layouts.
func Template(kind Archetype) ([]Item, bool) {
	switch kind {
	case ArchetypeDashboard:
		return []Item{
			{ID: "title", Type: TypeTitle, Priority: 10, Width: 1560, Height: 60},
			{ID: "kpi-1", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "kpi-2", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "kpi-3", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "kpi-4", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "main-chart", Type: TypeChart, Priority: 8, Width: 960, Height: 400, MinWidth: 480},
			{ID: "side-chart", Type: TypeChart, Priority: 7, Width: 560, Height: 400},
			{ID: "table", Type: TypeTable, Priority: 5, Width: 1560, Height: 300},
		}, true
	case ArchetypeReport:
		return []Item{
			{ID: "title", Type: TypeTitle, Priority: 10, Width: 1560, Height: 60},
			{ID: "summary", Type: TypeText, Priority: 9, Width: 1560, Height: 120},
			{ID: "chart-1", Type: TypeChart, Priority: 8, Width: 1560, Height: 400},
			{ID: "table", Type: TypeTable, Priority: 7, Width: 1560, Height: 320},
			{ID: "chart-2", Type: TypeChart, Priority: 6, Width: 1560, Height: 400},
		}, true
	case ArchetypeComparison:
		return []Item{
			{ID: "title", Type: TypeTitle, Priority: 10, Width: 1560, Height: 60},
			{ID: "left", Type: TypeChart, Priority: 8, Width: 772, Height: 420},
			{ID: "right", Type: TypeChart, Priority: 8, Width: 772, Height: 420},
			{ID: "table", Type: TypeTable, Priority: 6, Width: 1560, Height: 300},
		}, true
	case ArchetypeAnalytics:
		return []Item{
			{ID: "title", Type: TypeTitle, Priority: 10, Width: 1560, Height: 60},
			{ID: "filters", Type: TypeFilter, Priority: 9, Width: 240, Height: 400},
			{ID: "kpi-1", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "kpi-2", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "kpi-3", Type: TypeKPI, Priority: 9, Width: 300, Height: 120},
			{ID: "trend", Type: TypeChart, Priority: 8, Width: 1304, Height: 380},
			{ID: "breakdown", Type: TypeChart, Priority: 7, Width: 644, Height: 320},
			{ID: "distribution", Type: TypeChart, Priority: 7, Width: 644, Height: 320},
			{ID: "details", Type: TypeTable, Priority: 5, Width: 1304, Height: 300},
		}, true
	}
	return nil, false
}
