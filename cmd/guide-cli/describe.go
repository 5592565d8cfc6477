package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/raine/telegram-recycling-bot/internal/guide"
)

func newDescribeCmd() *cobra.Command {
	var flags itemFlags
	cmd := &cobra.Command{
		Use:   "describe",
		Short: "Print the item description without asking a provider",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			acts, err := flags.actions()
			if err != nil {
				return err
			}
			return runDescribe(cmd, walk(guide.NewState(), acts))
		},
	}
	flags.register(cmd)
	return cmd
}

func runDescribe(cmd *cobra.Command, s guide.State) error {
	if err := guide.CanSubmit(s.Item); err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintln(out, guide.BuildDescription(s.Item))
	if m, ok := guide.MapQuery(s.Item.UserLocation); ok {
		fmt.Fprintf(out, "\nMap: %s\n", m.SearchURL())
	}
	return nil
}
