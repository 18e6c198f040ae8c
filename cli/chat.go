package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/chat/internal/domain"
	"github.com/xiaot623/gogo/chat/internal/protocol"
)

func newChatCmd(opts *rootOptions) *cobra.Command {
	var sessionID string

	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat interactively over WebSocket",
		Long: `Open an interactive chat over WebSocket.

Type a message and press Enter to send.
Commands: /history, /clear, /quit`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runChat(cmd.Context(), opts.client().WebSocketURL(), sessionID, opts.timeout, cmd.InOrStdin(), cmd.OutOrStdout())
		},
	}
	cmd.Flags().StringVarP(&sessionID, "session", "s", "", "Resume an existing session")
	return cmd
}

// WSClient is an interactive WebSocket chat connection.
type WSClient struct {
	conn      *websocket.Conn
	sessionID string
	out       io.Writer
	outMu     sync.Mutex
	responses chan string
	done      chan struct{}
}

// DialWS connects to the chat socket.
func DialWS(ctx context.Context, addr string, out io.Writer) (*WSClient, error) {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, addr, nil)
	if err != nil {
		return nil, fmt.Errorf("dial: %w", err)
	}

	return &WSClient{
		conn:      conn,
		out:       out,
		responses: make(chan string, 16),
		done:      make(chan struct{}),
	}, nil
}

// Close closes the client connection.
func (c *WSClient) Close() error {
	_ = c.conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	return c.conn.Close()
}

// Hello binds the connection to sessionID, or to a new session when empty,
// and returns the current log.
func (c *WSClient) Hello(sessionID string) ([]domain.Message, error) {
	msg := protocol.HelloMessage{BaseMessage: protocol.NewBase(protocol.TypeHello, sessionID, "")}
	if err := c.conn.WriteJSON(msg); err != nil {
		return nil, fmt.Errorf("write hello: %w", err)
	}

	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, fmt.Errorf("read hello_ack: %w", err)
	}

	var base protocol.BaseMessage
	if err := json.Unmarshal(data, &base); err != nil {
		return nil, fmt.Errorf("unmarshal hello_ack: %w", err)
	}

	if base.Type == protocol.TypeError {
		var errMsg protocol.ErrorMessage
		_ = json.Unmarshal(data, &errMsg)
		return nil, fmt.Errorf("hello failed: %s - %s", errMsg.Code, errMsg.Message)
	}
	if base.Type != protocol.TypeHelloAck {
		return nil, fmt.Errorf("expected hello_ack, got: %s", base.Type)
	}

	var ack protocol.HelloAckMessage
	if err := json.Unmarshal(data, &ack); err != nil {
		return nil, fmt.Errorf("unmarshal hello_ack: %w", err)
	}
	c.sessionID = ack.SessionID
	return ack.Messages, nil
}

// Request sends a client message and returns its request id.
func (c *WSClient) Request(typ, content string) (string, error) {
	requestID := uuid.NewString()
	base := protocol.NewBase(typ, c.sessionID, requestID)

	var msg interface{} = base
	if typ == protocol.TypeMessage {
		msg = protocol.ChatMessage{BaseMessage: base, Content: content}
	}
	if err := c.conn.WriteJSON(msg); err != nil {
		return "", err
	}
	return requestID, nil
}

// Wait blocks until the response to requestID has been printed.
func (c *WSClient) Wait(requestID string, timeout time.Duration) error {
	timer := time.NewTimer(timeout)
	defer timer.Stop()

	for {
		select {
		case id := <-c.responses:
			if id == requestID {
				return nil
			}
		case <-c.done:
			return errors.New("connection closed")
		case <-timer.C:
			return errors.New("timed out waiting for response")
		}
	}
}

// ReadMessages prints server messages until the connection closes.
func (c *WSClient) ReadMessages() {
	defer close(c.done)

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			return
		}

		var base protocol.BaseMessage
		if err := json.Unmarshal(data, &base); err != nil {
			continue
		}

		c.outMu.Lock()
		switch base.Type {
		case protocol.TypeReply:
			var msg protocol.ReplyMessage
			if json.Unmarshal(data, &msg) == nil {
				renderReply(c.out, &domain.Reply{Message: msg.Message, Timestamp: msg.Timestamp, Code: msg.Code})
			}
		case protocol.TypeHistory:
			var msg protocol.HistoryMessage
			if json.Unmarshal(data, &msg) == nil {
				_ = renderHistory(c.out, &domain.HistoryResponse{SessionID: msg.SessionID, Messages: msg.Messages}, formatText)
			}
		case protocol.TypeCleared:
			fmt.Fprintln(c.out, "Chat history cleared")
		case protocol.TypeError:
			var msg protocol.ErrorMessage
			if json.Unmarshal(data, &msg) == nil {
				fmt.Fprintln(c.out, warningStyle.Render(fmt.Sprintf("error: %s - %s", msg.Code, msg.Message)))
			}
		}
		c.outMu.Unlock()

		if base.RequestID != "" {
			select {
			case c.responses <- base.RequestID:
			default:
			}
		}
	}
}

func runChat(ctx context.Context, addr, sessionID string, timeout time.Duration, in io.Reader, out io.Writer) error {
	client, err := DialWS(ctx, addr, out)
	if err != nil {
		return fmt.Errorf("failed to connect: %w", err)
	}
	defer client.Close()

	history, err := client.Hello(sessionID)
	if err != nil {
		return err
	}

	fmt.Fprintf(out, "Session established: %s\n", client.sessionID)
	for _, m := range history {
		renderMessage(out, m.Role, m.Content, m.Timestamp)
	}
	fmt.Fprintln(out, "Type a message and press Enter to send. Commands: /history, /clear, /quit")

	go client.ReadMessages()

	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		input := strings.TrimSpace(scanner.Text())
		if input == "" {
			continue
		}

		var requestID string
		switch input {
		case "/quit":
			client.outMu.Lock()
			fmt.Fprintln(out, "Bye!")
			client.outMu.Unlock()
			return nil
		case "/history":
			requestID, err = client.Request(protocol.TypeHistory, "")
		case "/clear":
			requestID, err = client.Request(protocol.TypeClear, "")
		default:
			requestID, err = client.Request(protocol.TypeMessage, input)
		}
		if err != nil {
			return fmt.Errorf("send: %w", err)
		}

		if err := client.Wait(requestID, timeout); err != nil {
			return err
		}
	}
	return scanner.Err()
}
