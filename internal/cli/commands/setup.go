// Package commands implements the leapdash subcommands.
package commands

import (
	"context"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/cli/output"
	"github.com/leapstack-labs/leapdash/internal/config"
	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/internal/state"
	"github.com/leapstack-labs/leapdash/pkg/builder"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/dashboard"
	"github.com/leapstack-labs/leapdash/pkg/layout"
	"github.com/leapstack-labs/leapdash/pkg/templates"
)

// CommandContext holds the dependencies shared by commands.
type CommandContext struct {
	Cfg      *config.Config
	Logger   *slog.Logger
	Renderer *output.Renderer

	registry *templates.Registry
}

// NewCommandContext builds the context from the config and logger that the
// root command stored on cmd.
func NewCommandContext(cmd *cobra.Command) *CommandContext {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cfg := config.GetConfig(ctx)
	return &CommandContext{
		Cfg:      cfg,
		Logger:   config.GetLogger(ctx),
		Renderer: output.NewRenderer(cmd.OutOrStdout(), cmd.ErrOrStderr(), output.Mode(cfg.OutputFormat)),
	}
}

// Registry returns the registry holding the built-in templates.
func (c *CommandContext) Registry() *templates.Registry {
	if c.registry == nil {
		c.registry = templates.NewRegistry(templates.WithLogger(c.Logger))
		templates.RegisterBuiltins(c.registry)
	}
	return c.registry
}

// OrchestratorOptions applies history and batch settings.
func (c *CommandContext) OrchestratorOptions() []dashboard.Option {
	return []dashboard.Option{
		dashboard.WithLogger(c.Logger),
		dashboard.WithHistoryCapacity(c.Cfg.HistoryCapacity),
		dashboard.WithBatchSnapshot(c.Cfg.BatchSnapshot),
	}
}

// Engine returns a layout engine for the configured canvas.
func (c *CommandContext) Engine() *layout.Engine {
	return layout.New(c.Cfg.Canvas, layout.WithLogger(c.Logger))
}

// Builder returns a dashboard builder. When loader is non-nil CSV sources
// read real rows through it.
func (c *CommandContext) Builder(loader builder.RowLoader) *builder.Builder {
	opts := []builder.Option{
		builder.WithLogger(c.Logger),
		builder.WithConstraints(c.Cfg.Canvas),
		builder.WithSampleSize(c.Cfg.Data.SampleSize),
		builder.WithOrchestratorOptions(c.OrchestratorOptions()...),
	}
	if loader != nil {
		opts = append(opts, builder.WithRowLoader(loader))
	}
	return builder.New(c.Registry(), opts...)
}

// OpenDataset starts a DuckDB reader. The caller closes it.
func (c *CommandContext) OpenDataset(ctx context.Context) (*dataset.Loader, error) {
	return dataset.Open(ctx, dataset.WithLogger(c.Logger))
}

// OpenStore opens the saved-dashboard database. The caller closes it.
func (c *CommandContext) OpenStore(ctx context.Context) (*state.SQLiteStore, error) {
	st, err := state.Open(ctx, c.Cfg.StatePath, state.WithLogger(c.Logger))
	if err != nil {
		return nil, fmt.Errorf("failed to open state at %s: %w", c.Cfg.StatePath, err)
	}
	return st, nil
}

// parseParams turns key=value pairs into template parameters.
func parseParams(pairs []string) (templates.Params, error) {
	p := templates.Params{}
	for _, kv := range pairs {
		k, v, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(k) == "" {
			return nil, fmt.Errorf("invalid parameter %q (want key=value)", kv)
		}
		p[strings.TrimSpace(k)] = strings.TrimSpace(v)
	}
	return p, nil
}

// limitedLoader reads with the configured row cap instead of the builder's
// sample size.
type limitedLoader struct {
	inner builder.RowLoader
	limit int
}

func (l limitedLoader) Load(ctx context.Context, path string, _ int) ([]core.Row, error) {
	return l.inner.Load(ctx, path, l.limit)
}
