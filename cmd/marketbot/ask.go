package main

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/upb/nse-market-bot/services/providers"
)

func newAskCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a single question from the command line",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			deps, err := bootstrap(ctx)
			if err != nil {
				return err
			}
			defer func() { _ = deps.Close(ctx) }()

			if deps.Chat == nil {
				return errors.New("chat is not configured: set OPENAI_API_KEY")
			}

			answer, err := deps.Chat.Complete(ctx, []providers.Message{
				{Role: providers.RoleUser, Content: strings.Join(args, " ")},
			})
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), answer)
			return nil
		},
	}
}
