package commands

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/server"
	"github.com/leapstack-labs/leapdash/internal/state"
)

// NewServeCommand creates the serve command.
func NewServeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard builder over HTTP",
		Long: `Start the JSON API: template search, dashboard builds, schema analysis,
recommendations, layout and saved dashboards (with a live event stream).`,
		Example: `  leapdash serve --port 8787
  curl -s localhost:8787/api/templates/search?q=stripe`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			var store state.Store
			if st, err := c.OpenStore(ctx); err != nil {
				c.Logger.Warn("saved dashboards disabled", "error", err)
			} else {
				defer func() { _ = st.Close() }()
				store = st
			}

			reg := c.Registry()
			srv := server.New(server.Config{
				Addr:              c.Cfg.Server.Addr(),
				ReadHeaderTimeout: c.Cfg.Server.ReadHeaderTimeout,
				ShutdownTimeout:   c.Cfg.Server.ShutdownTimeout,
				Builder:           c.Builder(nil),
				Registry:          reg,
				Constraints:       c.Cfg.Canvas,
				Store:             store,
				Logger:            c.Logger,
			})
			c.Renderer.Success("listening on http://" + c.Cfg.Server.Addr())
			return srv.Serve(ctx)
		},
	}
	cmd.Flags().Int("port", 0, "listen port (default from config, 8787)")
	cmd.Flags().String("host", "", "listen host (default from config, 127.0.0.1)")
	return cmd
}
