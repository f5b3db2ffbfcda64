// Package assistant answers questions about an event list by asking an
// OpenAI-compatible chat-completions API.
package assistant

import (
	"context"
	"errors"
	"fmt"
	"math"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"

	"eventplanner/internal/model"
)

var (
	// ErrNoAPIKey is returned when no API key is configured.
	ErrNoAPIKey = errors.New("assistant: API key not configured")
	// ErrNoChoices is returned when the API answers without a completion.
	ErrNoChoices = errors.New("assistant: response has no choices")
)

// Config configures a Completer.
type Config struct {
	BaseURL     string
	Model       string
	APIKey      string
	Temperature float64
	Timeout     time.Duration
}

// Completer asks an OpenAI-compatible API for chat completions.
type Completer struct {
	cfg    Config
	client *openai.Client
}

func NewCompleter(cfg Config) *Completer {
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")

	oc := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		oc.BaseURL = cfg.BaseURL
	}
	oc.HTTPClient = &http.Client{Timeout: cfg.Timeout}

	return &Completer{cfg: cfg, client: openai.NewClientWithConfig(oc)}
}

// Model returns the configured model name.
func (c *Completer) Model() string {
	return c.cfg.Model
}

// Complete sends prompt as a single user message and returns the reply.
func (c *Completer) Complete(ctx context.Context, prompt string) (string, error) {
	if c.cfg.APIKey == "" {
		return "", ErrNoAPIKey
	}

	resp, err := c.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.cfg.Model,
		Messages:    []openai.ChatCompletionMessage{{Role: openai.ChatMessageRoleUser, Content: prompt}},
		Temperature: temperature(c.cfg.Temperature),
	})
	if err != nil {
		return "", fmt.Errorf("assistant: completion: %w", err)
	}
	if len(resp.Choices) == 0 {
		return "", ErrNoChoices
	}
	return resp.Choices[0].Message.Content, nil
}

// temperature maps t onto the request field. The field is omitted when zero,
// so an explicit 0 is sent as the smallest positive float32.
func temperature(t float64) float32 {
	if t <= 0 {
		return math.SmallestNonzeroFloat32
	}
	return float32(t)
}

// BuildPrompt renders the events and question into the assistant prompt.
func BuildPrompt(message string, events []model.Event) string {
	lines := make([]string, 0, len(events))
	for _, e := range events {
		lines = append(lines, fmt.Sprintf("- Title: %s, Date: %s, Location: %s, Status: %s, Description: %s",
			e.Title, e.Date, e.Location, e.Status, e.Description))
	}
	eventData := strings.Join(lines, "\n")
	if eventData == "" {
		eventData = "No events provided."
	}

	var b strings.Builder
	b.WriteString("You are an assistant for an event planner app.\n")
	b.WriteString("Based on the following events, answer the user's question.\n\n")
	b.WriteString("Events:\n")
	b.WriteString(eventData)
	b.WriteString("\n\nUser question: ")
	b.WriteString(message)
	b.WriteString("\n\nAnswer:")
	return b.String()
}
