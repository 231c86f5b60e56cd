package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
	loader "github.com/upb/nse-market-bot/internal/ingest"
)

func newIngestCommand() *cobra.Command {
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Embed and store passages from a YAML or JSON file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			docs, err := loader.LoadFile(args[0])
			if err != nil {
				return err
			}
			if dryRun {
				fmt.Fprintf(cmd.OutOrStdout(), "%d documents parsed from %s\n", len(docs), args[0])
				return nil
			}

			ctx := cmd.Context()
			deps, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(ctx) }()

			summary, err := deps.Ingest.Ingest(ctx, docs)
			if err != nil {
				return err
			}

			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(summary)
		},
	}

	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "parse the file without embedding or storing anything")
	return cmd
}
