package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

func newNewCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "new",
		Short: "Create a new session and print its id",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := opts.client().NewSession(cmd.Context())
			if err != nil {
				return fmt.Errorf("failed to create session: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), id)
			return nil
		},
	}
}

func newSendCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "send <session-id> <message>",
		Short: "Send a message and print the reply",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			reply, err := opts.client().Send(cmd.Context(), args[0], strings.Join(args[1:], " "))
			if err != nil {
				return fmt.Errorf("failed to send message: %w", err)
			}
			renderReply(cmd.OutOrStdout(), reply)
			return nil
		},
	}
}

func newHistoryCmd(opts *rootOptions) *cobra.Command {
	var format string

	cmd := &cobra.Command{
		Use:   "history <session-id>",
		Short: "Show the messages of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			history, err := opts.client().History(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to fetch history: %w", err)
			}
			return renderHistory(cmd.OutOrStdout(), history, format)
		},
	}
	cmd.Flags().StringVarP(&format, "format", "f", formatText, "Output format: text, json or yaml")
	return cmd
}

func newClearCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "clear <session-id>",
		Short: "Delete the history of a session",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			msg, err := opts.client().Clear(cmd.Context(), args[0])
			if err != nil {
				return fmt.Errorf("failed to clear history: %w", err)
			}
			fmt.Fprintln(cmd.OutOrStdout(), msg)
			return nil
		},
	}
}
