package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/pkg/builder"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
)

const replPrompt = "leapdash> "

// NewReplCommand creates the repl command.
func NewReplCommand() *cobra.Command {
	var load string

	cmd := &cobra.Command{
		Use:   "repl",
		Short: "Edit a dashboard interactively with batch commands",
		Long: `Start an interactive console over a dashboard orchestrator.

Each line is either a batch command written as
  <action> key=value ...
or a JSON object / array of {"action": ..., "params": {...}} entries.
Values that look like JSON objects or arrays are decoded. Lines starting
with a dot are console commands; type .help to list them.`,
		Example: `  leapdash repl
  leapdash> addVisualization type=kpiCard title=Revenue
  leapdash> setTheme theme=dark
  leapdash> .undo
  leapdash> .save "Weekly KPIs"`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runRepl(cmd, load)
		},
	}
	cmd.Flags().StringVar(&load, "load", "", "start from a saved dashboard id")
	return cmd
}

func runRepl(cmd *cobra.Command, load string) error {
	ctx := cmd.Context()
	c := NewCommandContext(cmd)
	con := newConsole(c, cmd.OutOrStdout(), cmd.ErrOrStderr())

	if load != "" {
		if err := con.loadSaved(ctx, load); err != nil {
			return err
		}
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(c.Cfg.StatePath), "repl_history"),
		AutoComplete:    replCompleter(),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
		Stdout:          cmd.OutOrStdout(),
		Stderr:          cmd.ErrOrStderr(),
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	_, _ = fmt.Fprintln(con.out, "LeapDash console. Type .help for commands, .quit to exit")
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return err
		}
		if con.exec(ctx, line) {
			return nil
		}
	}
}

func replCompleter() readline.AutoCompleter {
	items := []readline.PrefixCompleterInterface{}
	for _, a := range []string{
		dashboard.ActionAddVisualization, dashboard.ActionAddDataSource, dashboard.ActionConnectNodes,
		dashboard.ActionUpdateItem, dashboard.ActionRemoveItem, dashboard.ActionArrangeGrid, dashboard.ActionSetTheme,
	} {
		items = append(items, readline.PcItem(a))
	}
	for _, d := range []string{".help", ".state", ".json", ".undo", ".clear", ".center", ".build", ".import", ".export", ".save", ".quit"} {
		items = append(items, readline.PcItem(d))
	}
	return readline.NewPrefixCompleter(items...)
}

// console executes REPL lines against one orchestrator.
type console struct {
	c      *CommandContext
	orch   *dashboard.Orchestrator
	out    io.Writer
	errOut io.Writer
}

func newConsole(c *CommandContext, out, errOut io.Writer) *console {
	return &console{c: c, orch: dashboard.New(c.OrchestratorOptions()...), out: out, errOut: errOut}
}

// exec runs one line and reports whether the console should exit.
func (con *console) exec(ctx context.Context, line string) bool {
	line = strings.TrimSpace(line)
	switch {
	case line == "":
		return false
	case strings.HasPrefix(line, "."):
		quit, err := con.dot(ctx, line)
		if err != nil {
			con.errorf("%v", err)
		}
		return quit
	}

	raw, err := parseBatchLine(line)
	if err != nil {
		con.errorf("%v", err)
		return false
	}
	for i, res := range con.orch.ExecuteRaw(raw) {
		if !res.Success {
			con.errorf("%s: %s", raw[i].Action, res.Error)
			continue
		}
		_, _ = fmt.Fprintf(con.out, "ok %s %v\n", raw[i].Action, res.Result)
	}
	return false
}

func (con *console) errorf(format string, a ...any) {
	_, _ = fmt.Fprintf(con.errOut, "Error: "+format+"\n", a...)
}

func (con *console) dot(ctx context.Context, line string) (bool, error) {
	name, arg, _ := strings.Cut(line, " ")
	arg = strings.Trim(strings.TrimSpace(arg), `"`)

	switch strings.ToLower(name) {
	case ".quit", ".exit":
		return true, nil
	case ".help":
		printReplHelp(con.out)
	case ".state":
		con.printState()
	case ".json":
		data, err := con.orch.ExportState()
		if err != nil {
			return false, err
		}
		_, _ = fmt.Fprintln(con.out, string(data))
	case ".undo":
		if !con.orch.Undo() {
			return false, errors.New("nothing to undo")
		}
		_, _ = fmt.Fprintf(con.out, "undone (%d left)\n", con.orch.HistoryLen())
	case ".clear":
		con.orch.Clear()
	case ".center":
		con.orch.CenterItems()
	case ".build":
		if arg == "" {
			return false, errors.New("usage: .build <description>")
		}
		res, err := con.c.Builder(nil).Build(ctx, arg, builder.Context{})
		if err != nil {
			return false, err
		}
		con.orch.SetState(res.State)
		_, _ = fmt.Fprintf(con.out, "built %d items\n", len(res.State.CanvasItems))
	case ".import":
		if arg == "" {
			return false, errors.New("usage: .import <file>")
		}
		data, err := os.ReadFile(arg)
		if err != nil {
			return false, err
		}
		if !con.orch.ImportState(data) {
			return false, fmt.Errorf("%s is not a valid dashboard state", arg)
		}
	case ".export":
		if arg == "" {
			return false, errors.New("usage: .export <file>")
		}
		data, err := con.orch.ExportState()
		if err != nil {
			return false, err
		}
		if err := os.WriteFile(arg, data, 0o600); err != nil {
			return false, err
		}
	case ".save":
		if arg == "" {
			return false, errors.New("usage: .save <name>")
		}
		st, err := con.c.OpenStore(ctx)
		if err != nil {
			return false, err
		}
		defer func() { _ = st.Close() }()
		d := &state.SavedDashboard{Name: arg, State: con.orch.State()}
		if err := st.Save(ctx, d); err != nil {
			return false, err
		}
		_, _ = fmt.Fprintf(con.out, "saved %s\n", d.ID)
	default:
		return false, fmt.Errorf("unknown command %s (type .help for commands)", name)
	}
	return false, nil
}

func (con *console) loadSaved(ctx context.Context, id string) error {
	st, err := con.c.OpenStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = st.Close() }()
	d, err := st.Get(ctx, id)
	if err != nil {
		return err
	}
	con.orch.SetState(d.State)
	return nil
}

func (con *console) printState() {
	s := con.orch.State()
	_, _ = fmt.Fprintf(con.out, "theme=%s items=%d sources=%d connections=%d history=%d\n",
		s.Theme, len(s.CanvasItems), len(s.DataTables), len(s.Connections), con.orch.HistoryLen())
	for _, it := range s.CanvasItems {
		_, _ = fmt.Fprintf(con.out, "  %-16s %-12s %-24q at (%s,%s) %sx%s\n",
			it.ID, it.Type, it.Title, num(it.X), num(it.Y), num(it.Width), num(it.Height))
	}
	for _, dt := range s.DataTables {
		_, _ = fmt.Fprintf(con.out, "  %-16s %-12s %q\n", dt.ID, dt.SourceType, dt.Name)
	}
}

// parseBatchLine accepts a JSON command, a JSON array of commands, or the
// shorthand "action key=value ...".
func parseBatchLine(line string) ([]dashboard.RawCommand, error) {
	switch line[0] {
	case '{':
		var rc dashboard.RawCommand
		if err := json.Unmarshal([]byte(line), &rc); err != nil {
			return nil, fmt.Errorf("invalid command JSON: %w", err)
		}
		return []dashboard.RawCommand{rc}, nil
	case '[':
		var rcs []dashboard.RawCommand
		if err := json.Unmarshal([]byte(line), &rcs); err != nil {
			return nil, fmt.Errorf("invalid batch JSON: %w", err)
		}
		return rcs, nil
	}

	fields, err := splitFields(line)
	if err != nil {
		return nil, err
	}
	rc := dashboard.RawCommand{Action: fields[0], Params: map[string]any{}}
	for _, f := range fields[1:] {
		k, v, ok := strings.Cut(f, "=")
		if !ok {
			return nil, fmt.Errorf("invalid argument %q (want key=value)", f)
		}
		rc.Params[k] = parseValue(v)
	}
	return []dashboard.RawCommand{rc}, nil
}

func parseValue(v string) any {
	if strings.HasPrefix(v, "{") || strings.HasPrefix(v, "[") {
		var out any
		if err := json.Unmarshal([]byte(v), &out); err == nil {
			return out
		}
	}
	return v
}

// splitFields splits on spaces outside double quotes and strips the quotes.
func splitFields(line string) ([]string, error) {
	var (
		fields  []string
		cur     strings.Builder
		quoted  bool
		started bool
	)
	for _, r := range line {
		switch {
		case r == '"':
			quoted = !quoted
			started = true
		case r == ' ' && !quoted:
			if started {
				fields = append(fields, cur.String())
				cur.Reset()
				started = false
			}
		default:
			cur.WriteRune(r)
			started = true
		}
	}
	if quoted {
		return nil, errors.New("unterminated quote")
	}
	if started {
		fields = append(fields, cur.String())
	}
	return fields, nil
}

func printReplHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, `Batch commands:
  addVisualization type=<vizType> [title=..] [x= y= width= height=] [data={..}] [style={..}]
  addDataSource sourceType=<source> [name=..] [config={..}]
  connectNodes source=<id> target=<id> [type=..] [animated=true]
  updateItem id=<id> updates={"title": ".."}
  removeItem id=<id>
  arrangeGrid [columns=3] [gap=20]
  setTheme theme=<name>
  or JSON: {"action": "setTheme", "params": {"theme": "dark"}}

Console commands:
  .state            summary of the canvas
  .json             print the state as JSON
  .undo             revert the last change
  .clear            remove all items, keep the theme
  .center           center items on the canvas
  .build <text>     replace the canvas with a built dashboard
  .import <file>    load a state JSON file
  .export <file>    write the state JSON to a file
  .save <name>      save to the state database
  .quit             exit
`)
}
