package cli

import (
	"bytes"
	"encoding/json"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/leapstack-labs/leapdash/internal/cli/testutil"
	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/pkg/builder"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/pipeline"
	"github.com/leapstack-labs/leapdash/pkg/schema"
)

// run executes the root command with a private state database.
func run(t *testing.T, statePath string, args ...string) (string, error) {
	t.Helper()
	cmd := NewRootCmd()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs(append([]string{"--state", statePath}, args...))
	err := cmd.Execute()
	return out.String(), err
}

func newStatePath(t *testing.T) string {
	t.Helper()
	return filepath.Join(t.TempDir(), "state.db")
}

func TestRoot_Subcommands(t *testing.T) {
	cmd := NewRootCmd()
	want := []string{"version", "build", "analyze", "recommend", "templates", "pipeline", "layout", "serve", "saved", "repl", "completion"}
	for _, name := range want {
		sub, _, err := cmd.Find([]string{name})
		require.NoError(t, err, name)
		assert.Equal(t, name, sub.Name())
	}
	for _, flag := range []string{"config", "output", "verbose", "state", "log-level", "log-format"} {
		assert.NotNil(t, cmd.PersistentFlags().Lookup(flag), flag)
	}
}

func TestVersion(t *testing.T) {
	out, err := run(t, newStatePath(t), "version")
	require.NoError(t, err)
	assert.Contains(t, out, "LeapDash v"+Version)
}

func TestTemplatesCommands(t *testing.T) {
	sp := newStatePath(t)

	tests := []struct {
		name  string
		args  []string
		check func(t *testing.T, out string)
	}{
		{
			name: "list markdown",
			args: []string{"templates", "list", "-o", "markdown"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "# Templates")
				assert.Contains(t, out, "ecommerce-sales")
				testutil.AssertNoANSI(t, out)
				testutil.AssertValidMarkdown(t, out)
			},
		},
		{
			name: "find json",
			args: []string{"templates", "find", "shopify", "orders", "-o", "json"},
			check: func(t *testing.T, out string) {
				var rows []map[string]any
				require.NoError(t, json.Unmarshal([]byte(out), &rows))
				require.NotEmpty(t, rows)
				assert.Equal(t, "ecommerce-sales", rows[0]["name"])
			},
		},
		{
			name: "show yaml",
			args: []string{"templates", "show", "google-ads-performance", "-p", "customerId=123", "-o", "yaml"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "visualizations:")
				assert.Contains(t, out, "123")
			},
		},
		{
			name: "show markdown",
			args: []string{"templates", "show", "stripe-revenue"},
			check: func(t *testing.T, out string) {
				assert.Contains(t, out, "## Pipeline")
				assert.Contains(t, out, "## Visualizations")
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := run(t, sp, tt.args...)
			require.NoError(t, err)
			tt.check(t, out)
		})
	}
}

func TestBuild_JSON(t *testing.T) {
	out, err := run(t, newStatePath(t), "build", "Show me my Shopify orders by product", "--store", "acme", "-o", "json")
	require.NoError(t, err)

	var res builder.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Equal(t, "ecommerce-sales", res.Template)
	assert.NotEmpty(t, res.State.CanvasItems)
	require.NotEmpty(t, res.State.DataTables)
	assert.Equal(t, "acme", res.State.DataTables[0].Config["store"])
}

func TestBuild_SaveThenManage(t *testing.T) {
	sp := newStatePath(t)

	out, err := run(t, sp, "build", "stripe mrr and churn", "--save", "Revenue", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "Saved as")

	out, err = run(t, sp, "saved", "list", "-o", "json")
	require.NoError(t, err)
	var list []state.Summary
	require.NoError(t, json.Unmarshal([]byte(out), &list))
	require.Len(t, list, 1)
	assert.Equal(t, "Revenue", list[0].Name)
	assert.Equal(t, "stripe-revenue", list[0].Template)

	out, err = run(t, sp, "saved", "show", list[0].ID)
	require.NoError(t, err)
	assert.Contains(t, out, "# Revenue")

	_, err = run(t, sp, "saved", "delete", list[0].ID)
	require.NoError(t, err)

	_, err = run(t, sp, "saved", "show", list[0].ID)
	assert.ErrorIs(t, err, state.ErrNotFound)
}

func TestBuild_Errors(t *testing.T) {
	sp := newStatePath(t)

	_, err := run(t, sp, "build")
	assert.ErrorContains(t, err, "description is required")

	_, err = run(t, sp, "build", "--watch", "x")
	assert.ErrorContains(t, err, "--watch requires --file")

	_, err = run(t, sp, "-o", "xml", "version")
	assert.ErrorContains(t, err, "unknown output format")
}

func TestBuild_FromFileAndExport(t *testing.T) {
	sp := newStatePath(t)
	brief := testutil.WriteFile(t, "brief.txt", "google ads monthly performance\n")
	export := filepath.Join(t.TempDir(), "dash.json")

	_, err := run(t, sp, "build", "-f", brief, "--customer-id", "42", "--export", export, "-o", "json")
	require.NoError(t, err)

	out, err := run(t, sp, "repl", "--help")
	require.NoError(t, err)
	assert.Contains(t, out, "batch commands")
	assert.FileExists(t, export)
}

func TestDataCommands(t *testing.T) {
	sp := newStatePath(t)
	csv := testutil.WriteFile(t, "sales.csv", testutil.SalesCSV)

	out, err := run(t, sp, "analyze", csv, "-o", "json")
	require.NoError(t, err)
	var s schema.Schema
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	col, ok := s.Column("date")
	require.True(t, ok)
	assert.Equal(t, schema.TypeDate, col.Type)

	out, err = run(t, sp, "analyze", csv, "--distinct", "product", "-o", "json")
	require.NoError(t, err)
	var distinct []any
	require.NoError(t, json.Unmarshal([]byte(out), &distinct))
	assert.Equal(t, []any{"Widget", "Gadget", "Gizmo"}, distinct)

	out, err = run(t, sp, "recommend", csv, "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "lineChart")

	out, err = run(t, sp, "build", "revenue trend from my csv file", "--data", csv, "-o", "json")
	require.NoError(t, err)
	var res builder.Result
	require.NoError(t, json.Unmarshal([]byte(out), &res))
	assert.Empty(t, res.Template)
	assert.NotEmpty(t, res.State.CanvasItems)
	require.Len(t, res.State.DataTables, 1)
	assert.Equal(t, core.SourceCSV, res.State.DataTables[0].SourceType)
}

func TestPipelineAndLayout(t *testing.T) {
	sp := newStatePath(t)

	out, err := run(t, sp, "pipeline", "monthly", "shopify", "revenue", "-o", "markdown")
	require.NoError(t, err)
	assert.Contains(t, out, "# Pipeline")
	assert.Contains(t, out, "Level")

	charges := testutil.WriteFile(t, "charges.csv", "created,amount\n2024-01-05,10\n2024-02-07,20\n")
	out, err = run(t, sp, "pipeline", "monthly stripe revenue", "--data", charges, "-o", "json")
	require.NoError(t, err)
	var doc struct {
		Levels  [][]string               `json:"levels"`
		Preview []pipeline.ColumnPreview `json:"preview"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &doc))
	assert.NotEmpty(t, doc.Levels)
	require.Len(t, doc.Preview, 1)
	assert.Equal(t, []any{"2024-01", "2024-02"}, doc.Preview[0].Values)
	assert.Empty(t, doc.Preview[0].Errors)

	out, err = run(t, sp, "layout", "dashboard", "-o", "json")
	require.NoError(t, err)
	var pos map[string]map[string]float64
	require.NoError(t, json.Unmarshal([]byte(out), &pos))
	assert.NotEmpty(t, pos)

	_, err = run(t, sp, "layout", "mystery")
	assert.ErrorContains(t, err, "unknown archetype")
}

func TestCompletion(t *testing.T) {
	out, err := run(t, newStatePath(t), "completion", "bash")
	require.NoError(t, err)
	assert.Contains(t, out, "leapdash")
}
