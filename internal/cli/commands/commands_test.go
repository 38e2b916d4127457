package commands

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/leapstack-labs/leapdash/internal/cli/output"
	"github.com/leapstack-labs/leapdash/internal/cli/testutil"
	"github.com/leapstack-labs/leapdash/internal/config"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
)

func newTestContext(t *testing.T) (*CommandContext, *testutil.TestRenderer) {
	t.Helper()
	cfg := config.Default()
	cfg.StatePath = filepath.Join(t.TempDir(), "state.db")
	tr := testutil.NewTestRenderer(output.ModeText, false)
	return &CommandContext{Cfg: cfg, Logger: config.GetLogger(context.Background()), Renderer: tr.Renderer}, tr
}

func TestParseBatchLine(t *testing.T) {
	tests := []struct {
		name    string
		line    string
		want    []dashboard.RawCommand
		wantErr string
	}{
		{
			name: "shorthand",
			line: `addVisualization type=barChart title="Sales by Region"`,
			want: []dashboard.RawCommand{{
				Action: "addVisualization",
				Params: map[string]any{"type": "barChart", "title": "Sales by Region"},
			}},
		},
		{
			name: "shorthand with json value",
			line: `updateItem id=viz-1 updates={"title":"New"}`,
			want: []dashboard.RawCommand{{
				Action: "updateItem",
				Params: map[string]any{"id": "viz-1", "updates": map[string]any{"title": "New"}},
			}},
		},
		{
			name: "json object",
			line: `{"action":"setTheme","params":{"theme":"dark"}}`,
			want: []dashboard.RawCommand{{Action: "setTheme", Params: map[string]any{"theme": "dark"}}},
		},
		{
			name: "json array",
			line: `[{"action":"setTheme","params":{"theme":"dark"}},{"action":"arrangeGrid","params":{}}]`,
			want: []dashboard.RawCommand{
				{Action: "setTheme", Params: map[string]any{"theme": "dark"}},
				{Action: "arrangeGrid", Params: map[string]any{}},
			},
		},
		{name: "bad json", line: `{"action":`, wantErr: "invalid command JSON"},
		{name: "bad batch", line: `[1,`, wantErr: "invalid batch JSON"},
		{name: "missing equals", line: `removeItem viz-1`, wantErr: "want key=value"},
		{name: "unterminated quote", line: `setTheme theme="dark`, wantErr: "unterminated quote"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parseBatchLine(tt.line)
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSplitFields(t *testing.T) {
	got, err := splitFields(`  a  b="c d"   e `)
	require.NoError(t, err)
	assert.Equal(t, []string{"a", "b=c d", "e"}, got)

	got, err = splitFields(`title=""`)
	require.NoError(t, err)
	assert.Equal(t, []string{"title="}, got)
}

func TestParseParams(t *testing.T) {
	p, err := parseParams([]string{"store=acme", " customerId = 123 ", "empty="})
	require.NoError(t, err)
	assert.Equal(t, "acme", p["store"])
	assert.Equal(t, "123", p["customerId"])
	assert.Equal(t, "", p["empty"])

	_, err = parseParams([]string{"=x"})
	require.Error(t, err)
	_, err = parseParams([]string{"novalue"})
	require.Error(t, err)
}

func TestConsoleExec(t *testing.T) {
	c, _ := newTestContext(t)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	con := newConsole(c, out, errOut)
	ctx := context.Background()

	assert.False(t, con.exec(ctx, ""))
	assert.False(t, con.exec(ctx, `addVisualization type=kpi title="Revenue"`))
	assert.Contains(t, out.String(), "ok addVisualization")
	require.Len(t, con.orch.State().CanvasItems, 1)

	assert.False(t, con.exec(ctx, "dropTable id=x"))
	assert.Contains(t, errOut.String(), "unknown command")

	assert.False(t, con.exec(ctx, ".undo"))
	assert.Empty(t, con.orch.State().CanvasItems)

	errOut.Reset()
	assert.False(t, con.exec(ctx, ".undo"))
	assert.Contains(t, errOut.String(), "nothing to undo")

	errOut.Reset()
	assert.False(t, con.exec(ctx, ".nope"))
	assert.Contains(t, errOut.String(), "unknown command .nope")

	out.Reset()
	assert.False(t, con.exec(ctx, ".help"))
	assert.Contains(t, out.String(), ".build")

	assert.True(t, con.exec(ctx, ".quit"))
}

func TestConsoleImportExportSave(t *testing.T) {
	c, _ := newTestContext(t)
	out, errOut := &bytes.Buffer{}, &bytes.Buffer{}
	con := newConsole(c, out, errOut)
	ctx := context.Background()

	con.exec(ctx, ".build revenue per region")
	require.Empty(t, errOut.String())
	require.NotEmpty(t, con.orch.State().CanvasItems)
	want := len(con.orch.State().CanvasItems)

	path := filepath.Join(t.TempDir(), "board.json")
	con.exec(ctx, ".export "+path)
	require.Empty(t, errOut.String())
	require.FileExists(t, path)

	con.exec(ctx, ".clear")
	assert.Empty(t, con.orch.State().CanvasItems)

	con.exec(ctx, ".import "+path)
	require.Empty(t, errOut.String())
	assert.Len(t, con.orch.State().CanvasItems, want)

	bad := testutil.WriteFile(t, "bad.json", `{"canvasItems": 3}`)
	con.exec(ctx, ".import "+bad)
	assert.Contains(t, errOut.String(), "not a valid dashboard state")
	assert.Len(t, con.orch.State().CanvasItems, want, "failed import leaves state untouched")

	out.Reset()
	errOut.Reset()
	con.exec(ctx, ".save Regional")
	require.Empty(t, errOut.String())
	assert.Contains(t, out.String(), "saved ")

	st, err := c.OpenStore(ctx)
	require.NoError(t, err)
	defer func() { _ = st.Close() }()
	list, err := st.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, "Regional", list[0].Name)

	fresh := newConsole(c, out, errOut)
	require.NoError(t, fresh.loadSaved(ctx, list[0].ID))
	assert.Len(t, fresh.orch.State().CanvasItems, want)
}

func TestLimitedLoader(t *testing.T) {
	path := testutil.WriteFile(t, "sales.csv", testutil.SalesCSV)
	c, _ := newTestContext(t)
	ds, err := c.OpenDataset(context.Background())
	require.NoError(t, err)
	defer func() { _ = ds.Close() }()

	rows, err := limitedLoader{inner: ds, limit: 2}.Load(context.Background(), path, 100)
	require.NoError(t, err)
	assert.Len(t, rows, 2)
	assert.IsType(t, core.Row{}, rows[0])
}

func TestWatchBuild(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())
	c, tr := newTestContext(t)
	path := testutil.WriteFile(t, "desc.txt", "revenue per region")

	var builds atomic.Int32
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- watchBuild(ctx, c, &BuildOptions{File: path, Debounce: 20 * time.Millisecond}, func() error {
			builds.Add(1)
			return nil
		})
	}()

	require.Eventually(t, func() bool { return builds.Load() == 1 }, time.Second, 10*time.Millisecond)
	// Give the watcher a moment to register before writing.
	time.Sleep(50 * time.Millisecond)
	require.NoError(t, os.WriteFile(path, []byte("profit per region"), 0o600))
	require.Eventually(t, func() bool { return builds.Load() >= 2 }, 2*time.Second, 10*time.Millisecond)

	cancel()
	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(time.Second):
		t.Fatal("watchBuild did not stop")
	}
	assert.Contains(t, tr.Output(), "watching")
}
