package cli

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/finsight-ai/finsight/pkg/logging"
)

const chatHelp = `Ask analytic questions in plain language, then refine them with follow-ups:

  What is the total transaction volume?
  Show me by month
  What about last year?
  Filter for Premium customers

Commands:
  help        show this help
  metrics     list available metrics
  dimensions  list available dimensions
  tables      list warehouse tables
  sql         show the last generated SQL
  history     show conversation history
  clear       clear conversation memory
  quit        exit`

func newChatCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "chat",
		Short: "Start an interactive conversation with the warehouse",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, version, true)
			if err != nil {
				return err
			}
			defer a.close()

			out := cmd.OutOrStdout()
			headerColor.Fprintf(out, "finsight %s - conversational analytics\n", version)
			dimColor.Fprintln(out, `Type "help" for commands, "quit" to exit.`)
			if turns := len(a.chat.Memory().History()); turns > 0 {
				dimColor.Fprintf(out, "Restored %d previous turns.\n", turns)
			}

			scanner := bufio.NewScanner(os.Stdin)
			for {
				if last := a.chat.Memory().Context().LastQuestion; last != "" {
					dimColor.Fprintf(out, "\nLast: %s\n", truncate(last, 50))
				}
				color.New(color.FgGreen, color.Bold).Fprint(out, "\nAsk a question: ")

				if !scanner.Scan() {
					fmt.Fprintln(out, "\nGoodbye!")
					return scanner.Err()
				}
				question := strings.TrimSpace(scanner.Text())
				if question == "" {
					continue
				}

				switch strings.ToLower(question) {
				case "quit", "exit", "q":
					fmt.Fprintln(out, "Goodbye!")
					return nil
				case "help":
					fmt.Fprintln(out, chatHelp)
				case "metrics":
					renderMetrics(out, a.catalog)
				case "dimensions":
					renderDimensions(out, a.catalog)
				case "tables":
					if err := renderTables(ctx, out, a.connector); err != nil {
						warnColor.Fprintf(out, "Error: %s\n", logging.SanitizeError(err))
					}
				case "sql":
					if last := a.chat.Memory().Context().LastSQL; last != "" {
						sqlColor.Fprintln(out, last)
					} else {
						dimColor.Fprintln(out, "No query has run yet.")
					}
				case "history":
					fmt.Fprintln(out, a.chat.Memory().Summary())
				case "clear":
					a.chat.Memory().Clear()
					fmt.Fprintln(out, "Conversation history cleared.")
				default:
					res, err := a.chat.Ask(ctx, question)
					if err != nil {
						warnColor.Fprintf(out, "Error: %s\n", logging.SanitizeError(err))
						continue
					}
					renderAskResult(out, res)
				}
			}
		},
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
