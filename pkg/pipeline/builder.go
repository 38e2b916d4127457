package pipeline

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

// Layout spacing for node positions on the pipeline editor canvas.
const (
	columnSpacing = 250.0
	rowSpacing    = 120.0
)

// Builder assembles a pipeline one node at a time. Every Add method returns
// the new node's id so calls can be chained by passing ids forward.
//
// Ids have the form "<prefix>_<n>" where n comes from a single counter shared
// by all node kinds. They are unique within one builder only.
type Builder struct {
	nodes   []Node
	edges   []Edge
	counter int
	depth   map[string]int
	rows    map[int]int
	logger  *slog.Logger
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

// NewBuilder creates an empty builder.
func NewBuilder(opts ...Option) *Builder {
	b := &Builder{
		depth:  make(map[string]int),
		rows:   make(map[int]int),
		logger: slog.New(slog.DiscardHandler),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Builder) nextID(prefix string) string {
	b.counter++
	return fmt.Sprintf("%s_%d", prefix, b.counter)
}

// link is the only place nodes and edges are written. It records the node
// and one edge per input.
func (b *Builder) link(prefix string, typ NodeType, op string, cfg map[string]any, inputs ...string) string {
	id := b.nextID(prefix)

	d := 0
	for _, in := range inputs {
		d = max(d, b.depth[in]+1)
	}
	b.depth[id] = d
	row := b.rows[d]
	b.rows[d]++

	if cfg == nil {
		cfg = map[string]any{}
	}
	b.nodes = append(b.nodes, Node{
		ID:        id,
		Type:      typ,
		Operation: op,
		Config:    cfg,
		Position:  Point{X: float64(d) * columnSpacing, Y: float64(row) * rowSpacing},
	})
	for _, in := range inputs {
		b.edges = append(b.edges, Edge{Source: in, Target: id})
	}

	b.logger.Debug("pipeline node added", "id", id, "operation", op, "inputs", inputs)
	return id
}

// AddSource adds a data source node of the given kind.
func (b *Builder) AddSource(kind core.SourceType, cfg map[string]any) string {
	c := maps.Clone(cfg)
	if c == nil {
		c = map[string]any{}
	}
	c["sourceType"] = kind
	return b.link("source", NodeSource, string(kind), c)
}

// AddGoogleAdsSource adds a Google Ads source for the given customer account.
func (b *Builder) AddGoogleAdsSource(customerID string, metrics []string, dateRange string) string {
	return b.AddSource(core.SourceGoogleAds, map[string]any{
		"customerId": customerID,
		"metrics":    slices.Clone(metrics),
		"dateRange":  dateRange,
	})
}

// AddShopifySource adds a Shopify source reading resource ("orders", "products", ...).
func (b *Builder) AddShopifySource(store, resource string) string {
	return b.AddSource(core.SourceShopify, map[string]any{"store": store, "resource": resource})
}

// AddStripeSource adds a Stripe source reading resource ("charges", "subscriptions", ...).
func (b *Builder) AddStripeSource(accountRef, resource string) string {
	return b.AddSource(core.SourceStripe, map[string]any{"account": accountRef, "resource": resource})
}

// AddSheetsSource adds a Google Sheets source.
func (b *Builder) AddSheetsSource(spreadsheetID, sheet string) string {
	return b.AddSource(core.SourceSheets, map[string]any{"spreadsheetId": spreadsheetID, "sheet": sheet})
}

// AddCSVSource adds a CSV file source.
func (b *Builder) AddCSVSource(path string) string {
	return b.AddSource(core.SourceCSV, map[string]any{"path": path})
}

// AddFilter keeps rows of input matching cond.
func (b *Builder) AddFilter(input string, cond Condition) string {
	return b.link(OpFilter, NodeTransform, OpFilter, map[string]any{"condition": cond}, input)
}

// AddAggregation groups input by groupBy and computes aggs.
func (b *Builder) AddAggregation(input string, groupBy []string, aggs []Aggregate) string {
	return b.link(OpAggregate, NodeTransform, OpAggregate, map[string]any{
		"groupBy":      slices.Clone(groupBy),
		"aggregations": slices.Clone(aggs),
	}, input)
}

// AddJoin joins left and right.
func (b *Builder) AddJoin(left, right string, spec JoinSpec) string {
	if spec.Kind == "" {
		spec.Kind = "inner"
	}
	return b.link(OpJoin, NodeTransform, OpJoin, map[string]any{"join": spec}, left, right)
}

// AddPivot pivots input.
func (b *Builder) AddPivot(input string, spec PivotSpec) string {
	if spec.Function == "" {
		spec.Function = "sum"
	}
	return b.link(OpPivot, NodeTransform, OpPivot, map[string]any{"pivot": spec}, input)
}

// AddSelect projects input onto columns.
func (b *Builder) AddSelect(input string, columns []string) string {
	return b.link(OpSelect, NodeTransform, OpSelect, map[string]any{"columns": slices.Clone(columns)}, input)
}

// AddSort orders input by keys.
func (b *Builder) AddSort(input string, keys []SortKey) string {
	return b.link(OpSort, NodeTransform, OpSort, map[string]any{"keys": slices.Clone(keys)}, input)
}

// AddUnion concatenates the rows of all inputs.
func (b *Builder) AddUnion(inputs ...string) string {
	return b.link(OpUnion, NodeTransform, OpUnion, nil, inputs...)
}

// AddTransform adds an arbitrary transform operation over inputs.
func (b *Builder) AddTransform(inputs []string, operation string, cfg map[string]any) string {
	return b.link("transform", NodeTransform, operation, maps.Clone(cfg), inputs...)
}

// AddCustom derives column from a Starlark expression evaluated per row.
// The expression is checked by Validate.
func (b *Builder) AddCustom(input, column, expression string) string {
	return b.link(OpCustom, NodeTransform, OpCustom, map[string]any{
		"column":     column,
		"expression": expression,
	}, input)
}

// AddOutput feeds input into a visualization.
func (b *Builder) AddOutput(input string, out Output) string {
	return b.link("output", NodeOutput, OpVisualize, map[string]any{
		"visualization": out.Visualization,
		"title":         out.Title,
	}, input)
}

// AddMonthlyAggregation buckets dateColumn into months and aggregates by the
// synthesized "month" column. It returns the aggregation node id.
func (b *Builder) AddMonthlyAggregation(input, dateColumn string, aggs []Aggregate) string {
	month := b.AddTransform([]string{input}, OpExtractMonth, map[string]any{
		"column":     "month",
		"source":     dateColumn,
		"expression": fmt.Sprintf("month(%s)", dateColumn),
	})
	return b.AddAggregation(month, []string{"month"}, aggs)
}

// AppendNode appends n as-is without recording any edges. n.Inputs is
// ignored since wiring lives only in edges. Importers and tests use it to
// inject nodes built elsewhere.
func (b *Builder) AppendNode(n Node) {
	n.Inputs = nil
	n.Config = maps.Clone(n.Config)
	b.nodes = append(b.nodes, n)
}

// Len returns the number of nodes.
func (b *Builder) Len() int { return len(b.nodes) }

// Pipeline returns a copy of the graph with node inputs derived from edges.
func (b *Builder) Pipeline() Pipeline {
	inputs := make(map[string][]string)
	for _, e := range b.edges {
		inputs[e.Target] = append(inputs[e.Target], e.Source)
	}

	nodes := make([]Node, len(b.nodes))
	for i, n := range b.nodes {
		n.Config = maps.Clone(n.Config)
		n.Inputs = inputs[n.ID]
		nodes[i] = n
	}
	edges := make([]Edge, len(b.edges))
	copy(edges, b.edges)
	return Pipeline{Nodes: nodes, Edges: edges}
}

// Node returns the node with the given id.
func (b *Builder) Node(id string) (Node, bool) {
	for _, n := range b.Pipeline().Nodes {
		if n.ID == id {
			return n, true
		}
	}
	return Node{}, false
}
