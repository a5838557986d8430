package cli

import (
	"fmt"
	"io"

	"github.com/fatih/color"
	"github.com/olekukonko/tablewriter"

	"github.com/finsight-ai/finsight/pkg/adapters/datasource"
	"github.com/finsight-ai/finsight/pkg/services"
)

// maxDisplayRows bounds terminal output; full results stay in the result set.
const maxDisplayRows = 20

var (
	headerColor = color.New(color.FgCyan, color.Bold)
	dimColor    = color.New(color.Faint)
	sqlColor    = color.New(color.FgBlue)
	warnColor   = color.New(color.FgYellow)
)

// renderAskResult prints one completed turn: SQL, stats, rows and the answer.
func renderAskResult(w io.Writer, res *services.AskResult) {
	if res.FollowUp {
		warnColor.Fprintln(w, "Follow-up query (using previous context)")
	}

	headerColor.Fprintln(w, "\nGenerated SQL:")
	sqlColor.Fprintln(w, res.SQL)
	dimColor.Fprintf(w, "\n%s\n", res.Explanation)
	dimColor.Fprintf(w, "Execution time: %.2fms | Rows: %d\n\n", res.Result.ElapsedMS, res.Result.RowCount)

	renderRows(w, res.Result)

	headerColor.Fprintln(w, "\nAnswer:")
	fmt.Fprintln(w, res.Response)
}

// renderRows prints the first rows of a result set as a table.
func renderRows(w io.Writer, result *datasource.QueryResult) {
	if len(result.Rows) == 0 {
		warnColor.Fprintln(w, "No data returned")
		return
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader(result.Columns)
	table.SetAutoFormatHeaders(false)

	shown := result.Rows
	if len(shown) > maxDisplayRows {
		shown = shown[:maxDisplayRows]
	}
	for _, row := range shown {
		cells := make([]string, len(result.Columns))
		for i, col := range result.Columns {
			cells[i] = fmt.Sprintf("%v", row[col])
		}
		table.Append(cells)
	}
	table.Render()

	if result.RowCount > maxDisplayRows {
		dimColor.Fprintf(w, "Showing first %d of %d rows\n", maxDisplayRows, result.RowCount)
	}
}
