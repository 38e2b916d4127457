package commands

import (
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/pkg/layout"
)

// NewLayoutCommand creates the layout command.
func NewLayoutCommand() *cobra.Command {
	var (
		goal     string
		viewport float64
	)

	cmd := &cobra.Command{
		Use:       "layout <archetype>",
		Short:     "Arrange a layout archetype on the configured canvas",
		Example:   `  leapdash layout dashboard --goal density --viewport 1024`,
		Args:      cobra.ExactArgs(1),
		ValidArgs: archetypeNames(),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			items, ok := layout.Template(layout.Archetype(args[0]))
			if !ok {
				return fmt.Errorf("unknown archetype %q (want one of %s)", args[0], strings.Join(archetypeNames(), ", "))
			}

			eng := c.Engine()
			pos := eng.Arrange(items)
			if goal != "" {
				pos = eng.OptimizeFor(pos, items, layout.Goal(goal))
			}
			if viewport > 0 {
				pos = eng.MakeResponsive(pos, viewport)
			}

			r := c.Renderer
			if ok, err := r.Structured(pos); ok {
				return err
			}
			cons := eng.Constraints()
			r.Header(1, fmt.Sprintf("Layout %s on %sx%s", args[0], num(cons.CanvasWidth), num(cons.CanvasHeight)))

			ids := make([]string, 0, len(pos))
			for id := range pos {
				ids = append(ids, id)
			}
			sort.Slice(ids, func(i, j int) bool {
				a, b := pos[ids[i]], pos[ids[j]]
				if a.Y != b.Y {
					return a.Y < b.Y
				}
				return a.X < b.X
			})
			rows := make([][]string, 0, len(ids))
			for _, id := range ids {
				p := pos[id]
				rows = append(rows, []string{id, num(p.X), num(p.Y), num(p.Width), num(p.Height)})
			}
			r.Table([]string{"Item", "X", "Y", "Width", "Height"}, rows)

			for _, it := range items {
				if _, ok := pos[it.ID]; !ok {
					r.StatusLine(it.ID+" could not be placed", "warning", "")
				}
			}
			b := pos.Bounds()
			r.KeyValue("Bounds", fmt.Sprintf("%sx%s", num(b.Width), num(b.Height)))
			return nil
		},
	}
	cmd.Flags().StringVar(&goal, "goal", "", "optimize for density, readability or flow")
	cmd.Flags().Float64Var(&viewport, "viewport", 0, "scale to this viewport width")
	return cmd
}

func archetypeNames() []string {
	var out []string
	for _, a := range layout.Archetypes() {
		out = append(out, string(a))
	}
	return out
}
