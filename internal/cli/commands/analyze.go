package commands

import (
	"context"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/leapstack-labs/leapdash/internal/dataset"
	"github.com/leapstack-labs/leapdash/pkg/schema"
	"github.com/leapstack-labs/leapdash/pkg/viz"
)

// NewAnalyzeCommand creates the analyze command.
func NewAnalyzeCommand() *cobra.Command {
	var distinct string

	cmd := &cobra.Command{
		Use:   "analyze <file>",
		Short: "Classify the columns of a data file",
		Long: `Read a sample of a CSV, JSON or Parquet file and report each column's
semantic type (date, number, boolean, string), cardinality and range.

With --distinct, list the distinct values of one column instead.`,
		Example: `  leapdash analyze sales.csv
  leapdash analyze events.parquet -o json
  leapdash analyze sales.csv --distinct region`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			tbl, err := readTable(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			r := c.Renderer
			if distinct != "" {
				return renderDistinct(c, tbl, distinct)
			}
			s := schema.AnalyzeColumns(tbl.Rows, tbl.Columns)

			if ok, err := r.Structured(s); ok {
				return err
			}
			r.Header(1, fmt.Sprintf("Schema of %s (%d rows sampled)", args[0], s.RowCount))
			rows := make([][]string, 0, len(s.Columns))
			for _, col := range s.Columns {
				rng := ""
				if col.Min != nil && col.Max != nil {
					rng = num(*col.Min) + " .. " + num(*col.Max)
				}
				rows = append(rows, []string{col.Name, string(col.Type), strconv.Itoa(col.Cardinality), rng})
			}
			r.Table([]string{"Column", "Type", "Distinct", "Range"}, rows)
			return nil
		},
	}

	cmd.Flags().StringVar(&distinct, "distinct", "", "List the distinct values of this column")
	return cmd
}

func renderDistinct(c *CommandContext, tbl *dataset.Table, column string) error {
	if !slices.Contains(tbl.Columns, column) {
		return fmt.Errorf("unknown column %q (have %s)", column, strings.Join(tbl.Columns, ", "))
	}
	vals := schema.DistinctValues(tbl.Rows, column)
	if vals == nil {
		vals = []any{}
	}
	r := c.Renderer
	if ok, err := r.Structured(vals); ok {
		return err
	}
	r.Header(1, fmt.Sprintf("%d distinct values of %s", len(vals), column))
	rows := make([][]string, 0, len(vals))
	for _, v := range vals {
		rows = append(rows, []string{fmt.Sprint(v)})
	}
	r.Table([]string{column}, rows)
	return nil
}

// NewRecommendCommand creates the recommend command.
func NewRecommendCommand() *cobra.Command {
	var intent string

	cmd := &cobra.Command{
		Use:   "recommend <file>",
		Short: "Suggest visualizations for a data file",
		Example: `  leapdash recommend sales.csv
  leapdash recommend sales.csv --intent "trend over time"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			c := NewCommandContext(cmd)
			tbl, err := readTable(cmd.Context(), c, args[0])
			if err != nil {
				return err
			}
			recs := viz.RecommendFor(schema.AnalyzeColumns(tbl.Rows, tbl.Columns), intent)
			if recs == nil {
				recs = []viz.Config{}
			}

			r := c.Renderer
			if ok, err := r.Structured(recs); ok {
				return err
			}
			if len(recs) == 0 {
				r.Warning("no visualization fits this data")
				return nil
			}
			r.Header(1, fmt.Sprintf("Recommended visualizations for %s", args[0]))
			rows := make([][]string, 0, len(recs))
			for _, v := range recs {
				rows = append(rows, []string{string(v.Type), v.Title, fields(v), v.Reason})
			}
			r.Table([]string{"Type", "Title", "Fields", "Reason"}, rows)
			return nil
		},
	}
	cmd.Flags().StringVar(&intent, "intent", "", "narrow suggestions by keywords such as trend, compare, distribution")
	return cmd
}

func readTable(ctx context.Context, c *CommandContext, path string) (*dataset.Table, error) {
	ds, err := c.OpenDataset(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = ds.Close() }()
	return ds.Read(ctx, path, c.Cfg.Data.SampleLimit)
}

func fields(v viz.Config) string {
	var parts []string
	if v.XAxis != "" {
		parts = append(parts, "x="+v.XAxis)
	}
	if len(v.YAxis) > 0 {
		parts = append(parts, "y="+strings.Join(v.YAxis, ","))
	}
	if v.Category != "" {
		parts = append(parts, "category="+v.Category)
	}
	if v.Value != "" {
		parts = append(parts, "value="+v.Value)
	}
	if v.Location != "" {
		parts = append(parts, "location="+v.Location)
	}
	if len(v.Metrics) > 0 {
		parts = append(parts, "metrics="+strings.Join(v.Metrics, ","))
	}
	return strings.Join(parts, " ")
}
