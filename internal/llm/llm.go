// Package llm provides chat clients for the remote models backing the
// pipeline's module providers. All clients implement Client; those that
// support server-sent-event streaming also implement StreamingClient.
package llm

import (
	"context"
	"time"
)

// Message is one turn in a chat conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Options carries per-call generation parameters. Zero values mean
// "use the client default".
type Options struct {
	Temperature float64
	MaxTokens   int
}

// Client is the minimal chat interface consumed by module providers.
type Client interface {
	// Chat sends the conversation and returns the full completion text.
	Chat(ctx context.Context, messages []Message, opts Options) (string, error)
}

// StreamingClient is implemented by clients that can stream completions.
// The content channel delivers chunks in emission order and is closed
// when the stream ends; the error channel delivers at most one error.
type StreamingClient interface {
	Client
	ChatStream(ctx context.Context, messages []Message, opts Options) (<-chan string, <-chan error)
}

// Config holds connection parameters for a chat client.
type Config struct {
	Provider   string        `yaml:"provider" json:"provider"`
	APIKey     string        `yaml:"api_key" json:"api_key"`
	BaseURL    string        `yaml:"base_url" json:"base_url"`
	Model      string        `yaml:"model" json:"model"`
	Timeout    time.Duration `yaml:"timeout" json:"timeout"`
	MaxRetries int           `yaml:"max_retries" json:"max_retries"`
}

const (
	defaultTimeout    = 60 * time.Second
	defaultMaxRetries = 3
	rateLimitDelay    = 100 * time.Millisecond
)

func (c Config) withDefaults() Config {
	if c.Timeout <= 0 {
		c.Timeout = defaultTimeout
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	return c
}

// UserMessage is a convenience constructor for a single-turn conversation.
func UserMessage(content string) []Message {
	return []Message{{Role: "user", Content: content}}
}

// WithSystem prepends a system message when systemPrompt is non-empty.
func WithSystem(systemPrompt, userPrompt string) []Message {
	if systemPrompt == "" {
		return UserMessage(userPrompt)
	}
	return []Message{
		{Role: "system", Content: systemPrompt},
		{Role: "user", Content: userPrompt},
	}
}
