package commands

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/cli/output"
	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/pkg/builder"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
)

// BuildOptions are the flags of the build command.
type BuildOptions struct {
	File     string
	Watch    bool
	Save     string
	Export   string
	Context  builder.Context
	Debounce time.Duration
}

// NewBuildCommand creates the build command.
func NewBuildCommand() *cobra.Command {
	opts := &BuildOptions{Debounce: 150 * time.Millisecond}

	cmd := &cobra.Command{
		Use:   "build [description]",
		Short: "Build a dashboard from a natural-language description",
		Long: `Build a dashboard from a description such as
"Show me my Shopify orders by product".

The description is matched against the template library first; when no
template fits, a custom dashboard is assembled from the detected data
sources, metrics and visualization hints.`,
		Example: `  # Build from a description
  leapdash build "google ads monthly performance" --customer-id 123-456

  # Use a local CSV as the data sample
  leapdash build "revenue per region" --data sales.csv

  # Rebuild whenever the description file changes
  leapdash build -f brief.txt --watch

  # Save the result and print it as YAML
  leapdash build "stripe mrr and churn" --save "Revenue" -o yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, args, opts)
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.File, "file", "f", "", "read the description from a file")
	f.BoolVar(&opts.Watch, "watch", false, "rebuild when --file changes")
	f.StringVar(&opts.Save, "save", "", "save the dashboard under this name")
	f.StringVar(&opts.Export, "export", "", "write the dashboard state JSON to this path")
	f.StringVar(&opts.Context.FilePath, "data", "", "local data file (csv, json, parquet) used as the sample")
	f.StringVar(&opts.Context.CustomerID, "customer-id", "", "Google Ads customer id")
	f.StringVar(&opts.Context.Store, "store", "", "Shopify store")
	f.StringVar(&opts.Context.APIKeyRef, "api-key-ref", "", "Stripe API key reference")
	f.StringVar(&opts.Context.SpreadsheetID, "spreadsheet-id", "", "Google Sheets spreadsheet id")
	f.StringVar(&opts.Context.Theme, "theme", "", "dashboard theme")
	f.StringVar(&opts.Context.DateRange, "date-range", "", "date range hint, e.g. LAST_30_DAYS")

	return cmd
}

func runBuild(cmd *cobra.Command, args []string, opts *BuildOptions) error {
	if opts.Watch && opts.File == "" {
		return errors.New("--watch requires --file")
	}
	c := NewCommandContext(cmd)

	if !opts.Watch {
		return buildOnce(cmd.Context(), c, args, opts)
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	return watchBuild(ctx, c, opts, func() error {
		return buildOnce(ctx, c, args, opts)
	})
}

func readDescription(args []string, file string) (string, error) {
	if file != "" {
		data, err := os.ReadFile(file)
		if err != nil {
			return "", fmt.Errorf("failed to read description: %w", err)
		}
		return strings.TrimSpace(string(data)), nil
	}
	text := strings.TrimSpace(strings.Join(args, " "))
	if text == "" {
		return "", errors.New("a description is required (argument or --file)")
	}
	return text, nil
}

func buildOnce(ctx context.Context, c *CommandContext, args []string, opts *BuildOptions) error {
	text, err := readDescription(args, opts.File)
	if err != nil {
		return err
	}

	var loader builder.RowLoader
	if opts.Context.FilePath != "" {
		ds, err := c.OpenDataset(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = ds.Close() }()
		loader = limitedLoader{inner: ds, limit: c.Cfg.Data.SampleLimit}
	}

	res, err := c.Builder(loader).Build(ctx, text, opts.Context)
	if err != nil {
		return err
	}

	if opts.Export != "" {
		if err := exportState(res.State, opts.Export, c); err != nil {
			return err
		}
	}

	var saved *state.SavedDashboard
	if opts.Save != "" {
		st, err := c.OpenStore(ctx)
		if err != nil {
			return err
		}
		defer func() { _ = st.Close() }()
		saved = &state.SavedDashboard{Name: opts.Save, Description: text, Template: res.Template, State: res.State}
		if err := st.Save(ctx, saved); err != nil {
			return err
		}
	}

	return renderBuild(c.Renderer, res, saved)
}

func exportState(st dashboard.State, path string, c *CommandContext) error {
	o := dashboard.New(c.OrchestratorOptions()...)
	o.SetState(st)
	data, err := o.ExportState()
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func renderBuild(r *output.Renderer, res *builder.Result, saved *state.SavedDashboard) error {
	if ok, err := r.Structured(res); ok {
		return err
	}

	title := "Custom dashboard"
	if res.Template != "" {
		title = "Dashboard from template " + res.Template
	}
	r.Header(1, title)
	r.KeyValue("Theme", res.State.Theme)
	if len(res.Intent.DataSources) > 0 {
		names := make([]string, len(res.Intent.DataSources))
		for i, s := range res.Intent.DataSources {
			names[i] = string(s)
		}
		r.KeyValue("Data sources", strings.Join(names, ", "))
	}
	if len(res.Intent.Metrics) > 0 {
		r.KeyValue("Metrics", strings.Join(res.Intent.Metrics, ", "))
	}
	r.KeyValue("Timeframe", string(res.Intent.Timeframe))
	if saved != nil {
		r.KeyValue("Saved as", saved.ID)
	}
	r.Println()

	r.Header(2, fmt.Sprintf("Canvas (%d items)", len(res.State.CanvasItems)))
	rows := make([][]string, 0, len(res.State.CanvasItems))
	for _, it := range res.State.CanvasItems {
		rows = append(rows, []string{it.ID, string(it.Type), it.Title, num(it.X), num(it.Y), num(it.Width), num(it.Height)})
	}
	r.Table([]string{"ID", "Type", "Title", "X", "Y", "Width", "Height"}, rows)

	if len(res.State.DataTables) > 0 {
		r.Header(2, "Data sources")
		rows = rows[:0]
		for _, dt := range res.State.DataTables {
			rows = append(rows, []string{dt.ID, string(dt.SourceType), dt.Name, strconv.FormatBool(dt.Connected)})
		}
		r.Table([]string{"ID", "Source", "Name", "Connected"}, rows)
	}
	r.KeyValue("Connections", strconv.Itoa(len(res.State.Connections)))
	r.KeyValue("Pipeline nodes", strconv.Itoa(len(res.Pipeline.Nodes)))

	if res.Validation.Valid {
		r.StatusLine("pipeline valid", "success", "")
	} else {
		for _, e := range res.Validation.Errors {
			r.StatusLine(e, "warning", "")
		}
	}
	return nil
}

func num(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}

// watchBuild runs build once, then again on every write to opts.File until
// ctx ends. Build errors are reported and watching continues.
func watchBuild(ctx context.Context, c *CommandContext, opts *BuildOptions, build func() error) error {
	report := func() {
		if err := build(); err != nil {
			c.Renderer.Error(err.Error())
		}
	}
	report()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	target, err := filepath.Abs(opts.File)
	if err != nil {
		return err
	}
	// Editors often replace files on save, so watch the directory.
	if err := watcher.Add(filepath.Dir(target)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", opts.File, err)
	}
	c.Renderer.Muted(fmt.Sprintf("watching %s (Ctrl+C to stop)", opts.File))

	var timer *time.Timer
	fire := make(chan struct{}, 1)
	for {
		select {
		case <-ctx.Done():
			if timer != nil {
				timer.Stop()
			}
			return nil
		case ev, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != target || ev.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			if timer != nil {
				timer.Stop()
			}
			timer = time.AfterFunc(opts.Debounce, func() {
				select {
				case fire <- struct{}{}:
				default:
				}
			})
		case <-fire:
			c.Logger.Debug("description changed, rebuilding", "file", opts.File)
			report()
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			c.Logger.Warn("watcher error", "error", err)
		}
	}
}
