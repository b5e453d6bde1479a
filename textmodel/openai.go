// Package textmodel adapts OpenAI-compatible chat completion APIs to the
// SchemaSynthesizer interface.
package textmodel

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
)

const (
	DefaultModel   = "gpt-4o-mini"
	DefaultBaseURL = "https://api.openai.com/v1"
)

// OpenAIClient sends single-turn prompts to a chat completions endpoint.
type OpenAIClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
	log        *slog.Logger
}

// Option configures an OpenAIClient.
type Option func(*OpenAIClient)

// WithBaseURL points the client at another OpenAI-compatible server.
func WithBaseURL(baseURL string) Option {
	return func(c *OpenAIClient) {
		if baseURL != "" {
			c.baseURL = strings.TrimRight(baseURL, "/")
		}
	}
}

// WithHTTPClient replaces the default client with a 60 second timeout.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *OpenAIClient) {
		if httpClient != nil {
			c.httpClient = httpClient
		}
	}
}

// WithLogger sets the logger.
func WithLogger(log *slog.Logger) Option {
	return func(c *OpenAIClient) {
		if log != nil {
			c.log = log
		}
	}
}

func NewOpenAIClient(apiKey, model string, opts ...Option) *OpenAIClient {
	if model == "" {
		model = DefaultModel
	}
	c := &OpenAIClient{
		apiKey:     apiKey,
		model:      model,
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: 60 * time.Second},
		log:        slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

// Infer sends prompt as a user message at temperature 0 and returns the raw
// content of the first choice.
func (c *OpenAIClient) Infer(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", errors.New("openai: api key is not configured")
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.model,
		Messages:    []chatMessage{{Role: "user", Content: prompt}},
		Temperature: 0,
	})
	if err != nil {
		return "", fmt.Errorf("openai: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("openai: create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("openai: request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4*1024*1024))
	if err != nil {
		return "", fmt.Errorf("openai: read response: %w", err)
	}
	c.log.Debug("text model responded",
		slog.String("model", c.model),
		slog.Int("status", resp.StatusCode),
		slog.Duration("duration", time.Since(start)))

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil && resp.StatusCode == http.StatusOK {
		return "", fmt.Errorf("openai: parse response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		if parsed.Error != nil && parsed.Error.Message != "" {
			return "", fmt.Errorf("openai error %d: %s", resp.StatusCode, parsed.Error.Message)
		}
		return "", fmt.Errorf("openai error: %d", resp.StatusCode)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai: empty choices in response")
	}
	return parsed.Choices[0].Message.Content, nil
}
