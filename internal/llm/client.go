// Package llm wraps the Ollama API client used by the "ask" built-in
// handler. It keeps a short rolling conversation so follow-up
// questions ("what about tomorrow?") resolve against the previous
// exchange.
package llm

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/ollama/ollama/api"
)

// Config holds the connection and conversation settings for a Client.
type Config struct {
	Host         string // Ollama base URL, e.g. "http://localhost:11434"
	Model        string // model name, e.g. "gemma3:1b"
	SystemPrompt string
	MaxHistory   int // retained exchanges (question/answer pairs)
}

// Client talks to a local Ollama server. Not safe for concurrent use;
// the dispatcher invokes at most one handler at a time, which is the
// only caller.
type Client struct {
	api          *api.Client
	model        string
	systemPrompt string
	maxTurns     int
	turns        []api.Message
}

// NewClient validates the host URL and builds a client with a pooled
// transport, since every instruction that reaches the "ask" handler
// issues a fresh request to the same local server.
func NewClient(cfg *Config) (*Client, error) {
	base, err := url.Parse(strings.TrimSuffix(cfg.Host, "/"))
	if err != nil {
		return nil, fmt.Errorf("llm: invalid host %q: %w", cfg.Host, err)
	}

	maxTurns := cfg.MaxHistory
	if maxTurns <= 0 {
		maxTurns = 10
	}

	httpClient := &http.Client{
		Timeout: 60 * time.Second,
		Transport: &http.Transport{
			MaxIdleConns:        10,
			MaxIdleConnsPerHost: 10,
			IdleConnTimeout:     90 * time.Second,
		},
	}

	return &Client{
		api:          api.NewClient(base, httpClient),
		model:        cfg.Model,
		systemPrompt: cfg.SystemPrompt,
		maxTurns:     maxTurns,
	}, nil
}

// Chat sends question with the system prompt and retained history
// prepended, records the exchange, and returns the model's reply.
func (c *Client) Chat(ctx context.Context, question string) (string, error) {
	messages := make([]api.Message, 0, len(c.turns)+2)
	messages = append(messages, api.Message{Role: "system", Content: c.systemPrompt})
	messages = append(messages, c.turns...)
	messages = append(messages, api.Message{Role: "user", Content: question})

	noStream := false
	var last api.ChatResponse
	err := c.api.Chat(ctx, &api.ChatRequest{
		Model:    c.model,
		Messages: messages,
		Stream:   &noStream,
		Options: map[string]any{
			"temperature": 0.7,
			// Replies are read aloud; a long answer is worse than a
			// truncated one.
			"num_predict": 150,
			"num_ctx":     1024,
		},
	}, func(resp api.ChatResponse) error {
		last = resp
		return nil
	})
	if err != nil {
		return "", fmt.Errorf("llm: chat: %w", err)
	}

	reply := strings.TrimSpace(last.Message.Content)
	c.remember(question, reply)
	return reply, nil
}

// remember appends the exchange and drops the oldest turns beyond the
// configured window.
func (c *Client) remember(question, reply string) {
	c.turns = append(c.turns,
		api.Message{Role: "user", Content: question},
		api.Message{Role: "assistant", Content: reply},
	)
	if excess := len(c.turns) - c.maxTurns*2; excess > 0 {
		c.turns = c.turns[excess:]
	}
}

// ClearHistory forgets the retained conversation.
func (c *Client) ClearHistory() {
	c.turns = nil
}

// HealthCheck reports whether the Ollama server is reachable. Called
// once at handler construction so a dead server is diagnosed at
// startup, not on the first spoken question.
func (c *Client) HealthCheck(ctx context.Context) error {
	if err := c.api.Heartbeat(ctx); err != nil {
		return fmt.Errorf("llm: cannot reach Ollama at startup: %w", err)
	}
	return nil
}
