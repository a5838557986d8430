package cli

import (
	"github.com/spf13/cobra"
)

func newAskCommand(version string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Ask a single question and print the answer",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			a, err := newApp(ctx, version, true)
			if err != nil {
				return err
			}
			defer a.close()

			question := joinArgs(args)
			res, err := a.chat.Ask(ctx, question)
			if err != nil {
				return err
			}
			renderAskResult(cmd.OutOrStdout(), res)
			return nil
		},
	}
}

func joinArgs(args []string) string {
	out := args[0]
	for _, a := range args[1:] {
		out += " " + a
	}
	return out
}
