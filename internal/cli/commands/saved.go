package commands

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"
)

// NewSavedCommand creates the saved command group.
func NewSavedCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "saved",
		Short: "Manage saved dashboards",
	}
	cmd.AddCommand(newSavedListCommand(), newSavedShowCommand(), newSavedDeleteCommand())
	return cmd
}

func newSavedListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List saved dashboards",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx := cmd.Context()
			c := NewCommandContext(cmd)
			st, err := c.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			list, err := st.List(ctx)
			if err != nil {
				return err
			}
			r := c.Renderer
			if ok, err := r.Structured(list); ok {
				return err
			}
			if len(list) == 0 {
				r.Muted("no saved dashboards")
				return nil
			}
			r.Header(1, fmt.Sprintf("Saved dashboards (%d)", len(list)))
			rows := make([][]string, 0, len(list))
			for _, s := range list {
				rows = append(rows, []string{s.ID, s.Name, s.Template, strconv.Itoa(s.Items), s.UpdatedAt.Local().Format("2006-01-02 15:04")})
			}
			r.Table([]string{"ID", "Name", "Template", "Items", "Updated"}, rows)
			return nil
		},
	}
}

func newSavedShowCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Print a saved dashboard",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := NewCommandContext(cmd)
			st, err := c.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			d, err := st.Get(ctx, args[0])
			if err != nil {
				return err
			}
			r := c.Renderer
			if ok, err := r.Structured(d); ok {
				return err
			}
			r.Header(1, d.Name)
			r.KeyValue("ID", d.ID)
			if d.Template != "" {
				r.KeyValue("Template", d.Template)
			}
			if d.Description != "" {
				r.KeyValue("Description", d.Description)
			}
			r.KeyValue("Theme", d.State.Theme)
			r.KeyValue("Updated", d.UpdatedAt.Local().Format("2006-01-02 15:04"))
			r.Println()
			rows := make([][]string, 0, len(d.State.CanvasItems))
			for _, it := range d.State.CanvasItems {
				rows = append(rows, []string{it.ID, string(it.Type), it.Title, num(it.X), num(it.Y), num(it.Width), num(it.Height)})
			}
			r.Table([]string{"ID", "Type", "Title", "X", "Y", "Width", "Height"}, rows)
			return nil
		},
	}
}

func newSavedDeleteCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "delete <id>",
		Aliases: []string{"rm"},
		Short:   "Delete a saved dashboard",
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			c := NewCommandContext(cmd)
			st, err := c.OpenStore(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = st.Close() }()

			if err := st.Delete(ctx, args[0]); err != nil {
				return err
			}
			c.Renderer.Success("deleted " + args[0])
			return nil
		},
	}
}
