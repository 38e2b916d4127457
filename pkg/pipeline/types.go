// Package pipeline builds source → transform → output graphs describing how raw
// data becomes visualization-ready results.
//
// Edges are the only stored wiring. Node inputs are derived from the edge list
// whenever a Pipeline snapshot is taken, so the two views cannot drift apart:
// for every node, Inputs lists the sources of its incoming edges in edge order,
// and len(Edges) equals the sum of len(Inputs) across nodes.
package pipeline

import "github.com/leapstack-labs/leapdash/pkg/core"

// NodeType classifies a pipeline node.
type NodeType string

// Node types.
const (
	NodeSource    NodeType = "source"
	NodeTransform NodeType = "transform"
	NodeOutput    NodeType = "output"
)

// Operation names used by the builder.
const (
	OpFilter       = "filter"
	OpAggregate    = "aggregate"
	OpJoin         = "join"
	OpPivot        = "pivot"
	OpSelect       = "select"
	OpSort         = "sort"
	OpUnion        = "union"
	OpCustom       = "custom"
	OpExtractMonth = "extractMonth"
	OpVisualize    = "visualize"
)

// Point is a node's position on the pipeline editor canvas.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Node is one step of a pipeline.
type Node struct {
	ID        string         `json:"id"`
	Type      NodeType       `json:"type"`
	Operation string         `json:"operation"`
	Config    map[string]any `json:"config"`
	Inputs    []string       `json:"inputs,omitempty"`
	Position  Point          `json:"position"`
}

// Edge is a directed data-flow connection.
type Edge struct {
	Source string `json:"source"`
	Target string `json:"target"`
}

// Pipeline is a snapshot of a builder's graph.
type Pipeline struct {
	Nodes []Node `json:"nodes"`
	Edges []Edge `json:"edges"`
}

// Condition is a filter predicate.
type Condition struct {
	Column   string `json:"column"`
	Operator string `json:"operator"` // eq, neq, gt, gte, lt, lte, contains, in
	Value    any    `json:"value"`
}

// Aggregate is one aggregation output column.
type Aggregate struct {
	Column   string `json:"column"`
	Function string `json:"function"` // sum, avg, count, min, max
	As       string `json:"as,omitempty"`
}

// Name returns the output column name of the aggregate.
func (a Aggregate) Name() string {
	if a.As != "" {
		return a.As
	}
	return a.Column
}

// JoinSpec describes how two inputs are joined.
type JoinSpec struct {
	LeftKey  string `json:"leftKey"`
	RightKey string `json:"rightKey"`
	Kind     string `json:"kind"` // inner, left, right, full
}

// PivotSpec describes a pivot.
type PivotSpec struct {
	Index    string `json:"index"`
	Columns  string `json:"columns"`
	Values   string `json:"values"`
	Function string `json:"function"`
}

// SortKey is one ordering term.
type SortKey struct {
	Column string `json:"column"`
	Desc   bool   `json:"desc,omitempty"`
}

// Output describes what an output node feeds.
type Output struct {
	Visualization core.VizType `json:"visualization"`
	Title         string       `json:"title,omitempty"`
}
