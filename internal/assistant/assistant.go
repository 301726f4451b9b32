// Package assistant answers marketplace help questions through an
// OpenAI-compatible chat completion API.
package assistant

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"
)

const (
	// MaxMessageLength is the longest question accepted, in characters.
	MaxMessageLength = 2000

	// FallbackAnswer is returned when the model produces no text.
	FallbackAnswer = "Sorry, I didn't get that."

	maxResponseBytes = 1 << 20
)

var (
	ErrEmptyMessage   = errors.New("message is required")
	ErrMessageTooLong = fmt.Errorf("message must be at most %d characters", MaxMessageLength)
	ErrUpstream       = errors.New("assistant is unavailable")
	ErrNotConfigured  = errors.New("assistant is not configured")
)

const systemPrompt = `You are the CampusKart assistant, built only for CampusKart, a student-to-student campus marketplace.

Help with CampusKart topics: buying and selling, which items are allowed or banned, creating listings (books, electronics, clothing, furniture and so on), the one free listing and the unlock for further listings, account questions, writing better descriptions, negotiating, and meeting safely on campus.

If a question is not about CampusKart, reply: "Sorry! I can only help with CampusKart stuff. Ask me anything about using the platform."

Sound like a friendly, sharp college student. Keep answers short and practical.`

// Config configures the chat completion endpoint.
type Config struct {
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// Client asks the chat model marketplace questions.
type Client struct {
	cfg    Config
	http   *http.Client
	logger *slog.Logger
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// New creates a Client.
func New(cfg Config, logger *slog.Logger) *Client {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 20 * time.Second
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	return &Client{
		cfg:    cfg,
		http:   &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "assistant"),
	}
}

// Ask returns the model's answer to message. Upstream failures are logged and
// reported as ErrUpstream so provider details never reach callers.
func (c *Client) Ask(ctx context.Context, message string) (string, error) {
	message = strings.TrimSpace(message)
	if message == "" {
		return "", ErrEmptyMessage
	}
	if utf8.RuneCountInString(message) > MaxMessageLength {
		return "", ErrMessageTooLong
	}
	if c.cfg.APIKey == "" {
		return "", ErrNotConfigured
	}

	start := time.Now()
	answer, err := c.complete(ctx, message)
	if err != nil {
		c.logger.Error("chat completion failed",
			slog.String("model", c.cfg.Model),
			slog.Duration("elapsed", time.Since(start)),
			slog.String("error", err.Error()),
		)
		return "", ErrUpstream
	}

	if answer == "" {
		return FallbackAnswer, nil
	}
	return answer, nil
}

func (c *Client) complete(ctx context.Context, message string) (string, error) {
	payload, err := json.Marshal(chatRequest{
		Model: c.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: message},
		},
		MaxTokens:   512,
		Temperature: 0.4,
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.BaseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("status %d", resp.StatusCode)
	}

	var out chatResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return "", fmt.Errorf("parse response: %w", err)
	}
	if out.Error != nil {
		return "", fmt.Errorf("api error: %s", out.Error.Message)
	}
	if len(out.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(out.Choices[0].Message.Content), nil
}
