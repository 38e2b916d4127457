package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/cli/output"
	"github.com/leapstack-labs/leapdash/pkg/core"
	"github.com/leapstack-labs/leapdash/pkg/templates"
)

// NewTemplatesCommand creates the templates command group.
func NewTemplatesCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "templates",
		Aliases: []string{"tpl"},
		Short:   "Browse the dashboard template library",
	}
	cmd.AddCommand(newTemplatesListCommand(), newTemplatesFindCommand(), newTemplatesShowCommand())
	return cmd
}

type templateRow struct {
	Name        string            `json:"name"`
	Description string            `json:"description"`
	Required    []core.SourceType `json:"requiredDataSources"`
	Keywords    []string          `json:"keywords"`
	Score       int               `json:"score,omitempty"`
}

func rowOf(t *templates.Template, score int) templateRow {
	return templateRow{Name: t.Name, Description: t.Description, Required: t.RequiredDataSources, Keywords: t.Keywords, Score: score}
}

func newTemplatesListCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all templates",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			c := NewCommandContext(cmd)
			var rows []templateRow
			for _, t := range c.Registry().List() {
				rows = append(rows, rowOf(t, 0))
			}
			return renderTemplates(c.Renderer, "Templates", rows, false)
		},
	}
}

func newTemplatesFindCommand() *cobra.Command {
	return &cobra.Command{
		Use:     "find <query>",
		Short:   "Rank templates against a description",
		Example: `  leapdash templates find "shopify orders by product"`,
		Args:    cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			q := strings.Join(args, " ")
			var rows []templateRow
			for _, m := range c.Registry().Find(q) {
				rows = append(rows, rowOf(m.Template, m.Score))
			}
			if len(rows) == 0 && !c.Renderer.EffectiveMode().Structured() {
				c.Renderer.Warning(fmt.Sprintf("no template matches %q", q))
				return nil
			}
			return renderTemplates(c.Renderer, fmt.Sprintf("Matches for %q", q), rows, true)
		},
	}
}

func renderTemplates(r *output.Renderer, title string, rows []templateRow, scored bool) error {
	if rows == nil {
		rows = []templateRow{}
	}
	if ok, err := r.Structured(rows); ok {
		return err
	}
	r.Header(1, title)
	headers := []string{"Name", "Sources", "Description"}
	if scored {
		headers = append([]string{"Score"}, headers...)
	}
	table := make([][]string, 0, len(rows))
	for _, t := range rows {
		srcs := make([]string, len(t.Required))
		for i, s := range t.Required {
			srcs[i] = string(s)
		}
		row := []string{t.Name, strings.Join(srcs, ", "), t.Description}
		if scored {
			row = append([]string{strconv.Itoa(t.Score)}, row...)
		}
		table = append(table, row)
	}
	r.Table(headers, table)
	return nil
}

func newTemplatesShowCommand() *cobra.Command {
	var params []string

	cmd := &cobra.Command{
		Use:   "show <name>",
		Short: "Show the pipeline and visualizations a template produces",
		Example: `  leapdash templates show google-ads-performance --param customerId=123-456
  leapdash templates show ecommerce-sales -o yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			t, ok := c.Registry().Get(args[0])
			if !ok {
				return fmt.Errorf("template %q not found", args[0])
			}
			p, err := parseParams(params)
			if err != nil {
				return err
			}
			def := t.Build(p)

			r := c.Renderer
			if ok, err := r.Structured(def); ok {
				return err
			}
			r.Header(1, t.Name)
			r.Println(t.Description)
			r.Println()
			r.KeyValue("Title", def.Title)
			r.KeyValue("Layout", string(def.Layout))
			if def.Theme != "" {
				r.KeyValue("Theme", def.Theme)
			}
			r.Println()

			r.Header(2, "Pipeline")
			rows := make([][]string, 0, len(def.Pipeline.Nodes))
			for _, n := range def.Pipeline.Nodes {
				rows = append(rows, []string{n.ID, string(n.Type), n.Operation, strings.Join(n.Inputs, ", ")})
			}
			r.Table([]string{"ID", "Type", "Operation", "Inputs"}, rows)

			r.Header(2, "Visualizations")
			rows = rows[:0]
			for _, v := range def.Visualizations {
				rows = append(rows, []string{string(v.Type), v.Title, v.Reason})
			}
			r.Table([]string{"Type", "Title", "Reason"}, rows)
			return nil
		},
	}
	cmd.Flags().StringArrayVarP(&params, "param", "p", nil, "template parameter as key=value (repeatable)")
	return cmd
}
