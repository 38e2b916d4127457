package commands

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/pkg/pipeline"
)

// NewPipelineCommand creates the pipeline command.
func NewPipelineCommand() *cobra.Command {
	var dataFile string

	cmd := &cobra.Command{
		Use:   "pipeline <description>",
		Short: "Show the data pipeline inferred from a description",
		Long: `Infer sources, transforms and outputs from a description, validate the
resulting graph and print the nodes in execution order.

With --data, the expression nodes (month buckets and custom columns) are
evaluated against a sample of the file and the derived values are shown.`,
		Example: `  leapdash pipeline "monthly shopify revenue"
  leapdash pipeline "monthly stripe revenue" --data charges.csv`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			b := pipeline.FromDescription(strings.Join(args, " "), pipeline.WithLogger(c.Logger))
			p := b.Pipeline()
			report := b.Validate()

			doc := struct {
				pipeline.Pipeline
				Validation pipeline.Report          `json:"validation"`
				Levels     [][]string               `json:"levels,omitempty"`
				Preview    []pipeline.ColumnPreview `json:"preview,omitempty"`
			}{Pipeline: p, Validation: report}

			level := map[string]int{}
			if levels, err := pipeline.NewGraph(p).Levels(); err == nil {
				doc.Levels = levels
				for i, ids := range levels {
					for _, id := range ids {
						level[id] = i
					}
				}
			}
			if dataFile != "" {
				tbl, err := readTable(cmd.Context(), c, dataFile)
				if err != nil {
					return err
				}
				if doc.Preview, err = b.Preview(tbl.Rows, 0); err != nil {
					return fmt.Errorf("preview: %w", err)
				}
			}

			r := c.Renderer
			if ok, err := r.Structured(doc); ok {
				return err
			}

			r.Header(1, fmt.Sprintf("Pipeline (%d nodes, %d edges)", len(p.Nodes), len(p.Edges)))
			order, err := b.TopologicalOrder()
			if err != nil {
				order = nil
				for _, n := range p.Nodes {
					order = append(order, n.ID)
				}
			}
			rows := make([][]string, 0, len(order))
			for _, id := range order {
				n, ok := b.Node(id)
				if !ok {
					continue
				}
				lvl := ""
				if l, ok := level[id]; ok {
					lvl = strconv.Itoa(l)
				}
				rows = append(rows, []string{n.ID, lvl, string(n.Type), n.Operation, strings.Join(n.Inputs, ", ")})
			}
			r.Table([]string{"ID", "Level", "Type", "Operation", "Inputs"}, rows)

			for _, cp := range doc.Preview {
				r.Header(2, fmt.Sprintf("%s = %s", cp.Column, cp.Expression))
				vals := make([][]string, 0, len(cp.Values))
				for i, v := range cp.Values {
					vals = append(vals, []string{strconv.Itoa(i), fmt.Sprint(v)})
				}
				r.Table([]string{"Row", cp.Column}, vals)
				for _, e := range cp.Errors {
					r.StatusLine(e, "error", "")
				}
			}

			if report.Valid {
				r.StatusLine("valid", "success", "")
				return nil
			}
			for _, e := range report.Errors {
				r.StatusLine(e, "error", "")
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&dataFile, "data", "", "Preview expression nodes against a CSV, JSON or Parquet file")
	return cmd
}
