package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/nse-market-bot/services/retrieval"
)

func newSearchCommand() *cobra.Command {
	var (
		count  int
		asJSON bool
	)

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Print the passages closest to a query",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(ctx) }()

			result := deps.Retrieval.Search(ctx, strings.Join(args, " "), count)
			if result.Outcome == retrieval.OutcomeError {
				return result.Err
			}

			out := cmd.OutOrStdout()
			if asJSON {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(result.Passages)
			}

			if result.Outcome == retrieval.OutcomeEmpty {
				fmt.Fprintln(out, result.Context())
				return nil
			}
			for i, p := range result.Passages {
				fmt.Fprintf(out, "%d. [%.4f] %s\n", i+1, p.Similarity, p.Content)
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&count, "count", "n", retrieval.DefaultCount, "number of passages to return")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}
