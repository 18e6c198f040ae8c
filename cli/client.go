package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/xiaot623/gogo/chat/internal/domain"
)

// Client is a minimal HTTP client for the chat API.
type Client struct {
	baseURL    string
	prefix     string
	httpClient *http.Client
}

// NewClient creates a client for the server at baseURL.
func NewClient(baseURL, prefix string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		prefix:  "/" + strings.Trim(prefix, "/"),
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// NewSession requests a fresh session id.
func (c *Client) NewSession(ctx context.Context) (string, error) {
	var resp domain.SessionResponse
	if err := c.do(ctx, http.MethodGet, "/session", nil, &resp); err != nil {
		return "", err
	}
	return resp.SessionID, nil
}

// Send runs one turn.
func (c *Client) Send(ctx context.Context, sessionID, message string) (*domain.Reply, error) {
	var reply domain.Reply
	req := domain.SendMessageRequest{SessionID: sessionID, Message: message}
	if err := c.do(ctx, http.MethodPost, "/message", req, &reply); err != nil {
		return nil, err
	}
	return &reply, nil
}

// History fetches the session log.
func (c *Client) History(ctx context.Context, sessionID string) (*domain.HistoryResponse, error) {
	var resp domain.HistoryResponse
	if err := c.do(ctx, http.MethodGet, "/history/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Clear deletes the session log.
func (c *Client) Clear(ctx context.Context, sessionID string) (string, error) {
	var resp domain.StatusResponse
	if err := c.do(ctx, http.MethodDelete, "/history/"+url.PathEscape(sessionID), nil, &resp); err != nil {
		return "", err
	}
	return resp.Message, nil
}

// WebSocketURL returns the ws:// or wss:// address of the chat socket.
func (c *Client) WebSocketURL() string {
	u := c.baseURL + c.prefix + "/ws"
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

func (c *Client) do(ctx context.Context, method, path string, body, out interface{}) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+c.prefix+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("server returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}
