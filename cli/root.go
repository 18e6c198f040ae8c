package main

import (
	"time"

	"github.com/spf13/cobra"
)

type rootOptions struct {
	server  string
	prefix  string
	timeout time.Duration
}

func (o *rootOptions) client() *Client {
	return NewClient(o.server, o.prefix, o.timeout)
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:   "chat-cli",
		Short: "Command-line client for the chat server",
		Long: `A command-line client for the chat server.

Quick Start:
  chat-cli new                         # Create a session
  chat-cli send <session-id> "hello"   # Send one message
  chat-cli history <session-id>        # Show the conversation
  chat-cli chat                        # Interactive chat over WebSocket`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.server, "server", "http://localhost:5000", "Chat server base URL")
	cmd.PersistentFlags().StringVar(&opts.prefix, "prefix", "/api/chat", "Route prefix of the chat API")
	cmd.PersistentFlags().DurationVar(&opts.timeout, "timeout", 2*time.Minute, "Request timeout")

	cmd.AddCommand(
		newNewCmd(opts),
		newSendCmd(opts),
		newHistoryCmd(opts),
		newClearCmd(opts),
		newChatCmd(opts),
	)
	return cmd
}
