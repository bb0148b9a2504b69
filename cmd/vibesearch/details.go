package main

import (
	"github.com/spf13/cobra"
)

func newDetailsCommand(env *string) *cobra.Command {
	var (
		query   string
		preview bool
	)

	cmd := &cobra.Command{
		Use:   "details <id>",
		Short: "Print an apartment record, photos ranked against --query",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(cmd.Context(), *env)
			if err != nil {
				return err
			}
			defer a.close()

			if preview {
				p, err := a.listings.Preview(cmd.Context(), args[0], query)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{"apartment": p})
			}
			l, err := a.listings.Details(cmd.Context(), args[0], query)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"apartment": l})
		},
	}
	cmd.Flags().StringVarP(&query, "query", "q", "", "search text used to order photos")
	cmd.Flags().BoolVar(&preview, "preview", false, "print the short preview instead of the full record")
	return cmd
}
