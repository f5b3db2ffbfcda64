package chat

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"eventplanner/internal/model"
)

// DefaultEndpoint is where the assistant listens by default.
const DefaultEndpoint = "http://127.0.0.1:8000/chat"

// Request is the body sent to the chat endpoint.
type Request struct {
	Message string        `json:"message"`
	Events  []model.Event `json:"events"`
}

// Response is the body expected back.
type Response struct {
	Reply string `json:"reply"`
}

// Client posts questions to a chat endpoint.
type Client struct {
	endpoint string
	http     *http.Client
}

// NewClient builds a Client. A zero timeout means requests never time out
// on their own; they still end when ctx does.
func NewClient(endpoint string, timeout time.Duration) *Client {
	if endpoint == "" {
		endpoint = DefaultEndpoint
	}
	return &Client{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// Endpoint returns the configured URL.
func (c *Client) Endpoint() string {
	return c.endpoint
}

// Ask sends message together with events and returns the reply text.
func (c *Client) Ask(ctx context.Context, message string, events []model.Event) (string, error) {
	if events == nil {
		events = []model.Event{}
	}
	body, err := json.Marshal(Request{Message: message, Events: events})
	if err != nil {
		return "", fmt.Errorf("chat: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("chat: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat: post: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("chat: endpoint returned %s: %s", resp.Status, bytes.TrimSpace(snippet))
	}

	var out Response
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("chat: decode response: %w", err)
	}
	if out.Reply == "" {
		return "", errors.New("chat: response has no reply")
	}
	return out.Reply, nil
}
