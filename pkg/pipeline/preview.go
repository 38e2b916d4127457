package pipeline

import (
	"fmt"
	"maps"
	"slices"

	"github.com/leapstack-labs/leapdash/internal/expr"
	"github.com/leapstack-labs/leapdash/pkg/core"
)

// ColumnPreview is the column one expression node derives from sample rows.
type ColumnPreview struct {
	Node       string   `json:"node"`
	Level      int      `json:"level"`
	Column     string   `json:"column"`
	Expression string   `json:"expression"`
	Values     []any    `json:"values"`
	Errors     []string `json:"errors,omitempty"`
}

// Preview evaluates every node that carries an expression (custom and
// extractMonth transforms) against rows. Nodes run level by level, and a node
// sees the columns derived by its upstream nodes, so `month(date)` can feed a
// later custom expression. A row that fails leaves a nil value and an error
// line; the preview itself fails only on a cyclic pipeline.
func Preview(p Pipeline, rows []core.Row, workers int) ([]ColumnPreview, error) {
	g := NewGraph(p)
	levels, err := g.Levels()
	if err != nil {
		return nil, err
	}
	nodes := make(map[string]Node, len(p.Nodes))
	for _, n := range p.Nodes {
		nodes[n.ID] = n
	}

	derived := make(map[string]ColumnPreview)
	out := []ColumnPreview{}
	for depth, ids := range levels {
		for _, id := range ids {
			src, ok := nodes[id].Config["expression"].(string)
			if !ok {
				continue
			}
			col, _ := nodes[id].Config["column"].(string)
			if col == "" {
				col = id
			}
			cp := ColumnPreview{Node: id, Level: depth, Column: col, Expression: src, Values: make([]any, len(rows))}

			prog, err := expr.Compile(id, src)
			if err != nil {
				cp.Errors = append(cp.Errors, err.Error())
				out = append(out, cp)
				continue
			}
			for _, res := range prog.EvalRows(sampleFor(g, id, rows, derived), workers) {
				if res.Err != nil {
					cp.Errors = append(cp.Errors, fmt.Sprintf("row %d: %v", res.Index, res.Err))
					continue
				}
				cp.Values[res.Index] = res.Value
			}
			derived[id] = cp
			out = append(out, cp)
		}
	}
	return out, nil
}

// sampleFor copies rows and adds the columns derived upstream of id. Nearer
// nodes win when two derive the same column name.
func sampleFor(g *Graph, id string, rows []core.Row, derived map[string]ColumnPreview) []core.Row {
	up := g.Upstream(id)
	slices.Reverse(up)
	out := make([]core.Row, len(rows))
	for i, row := range rows {
		r := maps.Clone(row)
		if r == nil {
			r = core.Row{}
		}
		for _, u := range up {
			if cp, ok := derived[u]; ok {
				r[cp.Column] = cp.Values[i]
			}
		}
		out[i] = r
	}
	return out
}

// Preview evaluates the builder's expression nodes against rows.
func (b *Builder) Preview(rows []core.Row, workers int) ([]ColumnPreview, error) {
	return Preview(b.Pipeline(), rows, workers)
}
