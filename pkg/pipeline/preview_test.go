package pipeline

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/pkg/core"
)

func TestPreview_DerivedColumnsFlowDownstream(t *testing.T) {
	b := NewBuilder()
	src := b.AddCSVSource("sales.csv")
	month := b.AddTransform([]string{src}, OpExtractMonth, map[string]any{
		"column":     "month",
		"expression": "month(date)",
	})
	margin := b.AddCustom(month, "margin", "revenue - cost")
	label := b.AddCustom(margin, "label", `month + ":" + str(margin)`)
	b.AddOutput(label, Output{Visualization: core.VizDataTable})

	rows := []core.Row{
		{"date": "2024-01-15", "revenue": 100, "cost": 40},
		{"date": "2024-02-03", "revenue": 80, "cost": 90},
	}
	got, err := b.Preview(rows, 2)
	require.NoError(t, err)
	require.Len(t, got, 3)

	assert.Equal(t, month, got[0].Node)
	assert.Equal(t, []any{"2024-01", "2024-02"}, got[0].Values)
	assert.Equal(t, "margin", got[1].Column)
	assert.Equal(t, []any{int64(60), int64(-10)}, got[1].Values)
	assert.Equal(t, []any{"2024-01:60", "2024-02:-10"}, got[2].Values)
	assert.Less(t, got[0].Level, got[2].Level)
	for _, cp := range got {
		assert.Empty(t, cp.Errors, cp.Node)
	}
	assert.NotContains(t, rows[0], "month", "sample rows are not modified")
}

func TestPreview_RowAndCompileErrors(t *testing.T) {
	b := NewBuilder()
	src := b.AddCSVSource("sales.csv")
	bad := b.AddCustom(src, "ratio", "revenue / cost")
	broken := b.AddCustom(src, "oops", "revenue +")
	b.AddOutput(bad, Output{Visualization: core.VizDataTable})
	b.AddOutput(broken, Output{Visualization: core.VizDataTable})

	got, err := b.Preview([]core.Row{{"revenue": 10, "cost": 4}, {"revenue": 1, "cost": 0}}, 1)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, 2.5, got[0].Values[0])
	assert.Nil(t, got[0].Values[1])
	require.Len(t, got[0].Errors, 1)
	assert.Contains(t, got[0].Errors[0], "row 1")

	require.Len(t, got[1].Errors, 1)
	assert.Contains(t, got[1].Errors[0], "invalid expression")
}

func TestPreview_Cycle(t *testing.T) {
	p := Pipeline{
		Nodes: []Node{
			{ID: "a", Type: NodeTransform, Operation: OpCustom, Config: map[string]any{"expression": "1"}},
			{ID: "b", Type: NodeTransform, Operation: OpCustom, Config: map[string]any{"expression": "2"}},
		},
		Edges: []Edge{{Source: "a", Target: "b"}, {Source: "b", Target: "a"}},
	}
	_, err := Preview(p, nil, 1)
	assert.ErrorContains(t, err, "cycle")
}
