package cli

import (
	"io"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/pkg/semantic"
)

func newMetricsCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "metrics",
		Short: "List the metrics defined in the semantic model",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), version, false)
			if err != nil {
				return err
			}
			defer a.close()

			renderMetrics(cmd.OutOrStdout(), a.catalog)
			return nil
		},
	}
}

func newDimensionsCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "dimensions",
		Short: "List the dimensions defined in the semantic model",
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), version, false)
			if err != nil {
				return err
			}
			defer a.close()

			renderDimensions(cmd.OutOrStdout(), a.catalog)
			return nil
		},
	}
}

func renderMetrics(w io.Writer, catalog *semantic.Catalog) {
	headerColor.Fprintln(w, "Available Metrics")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Metric", "Description", "Aggregation"})
	table.SetAutoFormatHeaders(false)
	for _, m := range catalog.Metrics() {
		table.Append([]string{m.Name, m.Description, m.Aggregation})
	}
	table.Render()
}

func renderDimensions(w io.Writer, catalog *semantic.Catalog) {
	headerColor.Fprintln(w, "Available Dimensions")
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Dimension", "Table", "Attributes"})
	table.SetAutoFormatHeaders(false)
	for _, d := range catalog.Dimensions() {
		names := make([]string, 0, len(d.Attributes))
		for _, attr := range d.Attributes {
			names = append(names, attr.Name)
		}
		table.Append([]string{d.Name, d.Table, strings.Join(names, ", ")})
	}
	table.Render()
}
