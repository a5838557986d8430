package cli

import (
	"context"
	"fmt"
	"io"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
)

func newTablesCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "tables",
		Short: "List the tables of the connected warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, version, true)
			if err != nil {
				return err
			}
			defer a.close()

			return renderTables(ctx, cmd.OutOrStdout(), a.connector)
		},
	}
}

func renderTables(ctx context.Context, w io.Writer, connector datasource.Connector) error {
	tables, err := connector.ListTables(ctx)
	if err != nil {
		return err
	}

	headerColor.Fprintln(w, "Warehouse Tables")
	out := tablewriter.NewWriter(w)
	out.SetHeader([]string{"Table", "Rows"})
	out.SetAutoFormatHeaders(false)
	for _, name := range tables {
		info, err := connector.DescribeTable(ctx, name)
		if err != nil {
			return err
		}
		out.Append([]string{name, fmt.Sprintf("%d", info.RowCount)})
	}
	out.Render()
	return nil
}
