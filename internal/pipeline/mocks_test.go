package pipeline

import (
	"context"
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/llm"
	"cogniflow/internal/memory"
	"cogniflow/internal/prompt"
)

// fnClient scripts the non-streaming model call.
type fnClient struct {
	chatFn func(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error)
}

func (c *fnClient) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	return c.chatFn(ctx, messages, opts)
}

// staticClient answers every call with the same text.
func staticClient(response string) *fnClient {
	return &fnClient{chatFn: func(context.Context, []llm.Message, llm.Options) (string, error) {
		return response, nil
	}}
}

// failingClient errors on every call.
func failingClient(err error) *fnClient {
	return &fnClient{chatFn: func(context.Context, []llm.Message, llm.Options) (string, error) {
		return "", err
	}}
}

// fnStreamClient additionally scripts the streaming call.
type fnStreamClient struct {
	fnClient
	chunks    []string
	streamErr error
}

func (c *fnStreamClient) ChatStream(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan string, <-chan error) {
	contentCh := make(chan string)
	errCh := make(chan error, 1)
	go func() {
		defer close(contentCh)
		defer close(errCh)
		for _, chunk := range c.chunks {
			select {
			case contentCh <- chunk:
			case <-ctx.Done():
				errCh <- ctx.Err()
				return
			}
		}
		if c.streamErr != nil {
			errCh <- c.streamErr
		}
	}()
	return contentCh, errCh
}

// fnMemory scripts the external memory store.
type fnMemory struct {
	searchFn func(ctx context.Context, q memory.Query) (memory.Result, error)
}

func (m *fnMemory) SearchMemories(ctx context.Context, q memory.Query) (memory.Result, error) {
	return m.searchFn(ctx, q)
}

func (m *fnMemory) GetUserMemories(ctx context.Context, userID string, limit int) (memory.Result, error) {
	return memory.Result{}, nil
}

func (m *fnMemory) AddMemory(ctx context.Context, entry memory.Entry) (string, error) {
	return entry.ID, nil
}

func testDeps(client llm.Client) Deps {
	return Deps{
		Client:      client,
		Templates:   prompt.NewStore(zap.NewNop()),
		Temperature: 0.7,
		MaxTokens:   256,
		Timeout:     5 * time.Second,
		Logger:      zap.NewNop(),
	}
}
