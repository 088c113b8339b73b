package module

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cogniflow/internal/llm"
	"cogniflow/internal/prompt"
)

// scriptedClient returns canned responses or errors.
type scriptedClient struct {
	response string
	err      error
	delay    time.Duration
}

func (s *scriptedClient) Chat(ctx context.Context, messages []llm.Message, opts llm.Options) (string, error) {
	if s.delay > 0 {
		select {
		case <-time.After(s.delay):
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	return s.response, s.err
}

// streamingScriptedClient additionally streams the response in fixed chunks.
type streamingScriptedClient struct {
	scriptedClient
	chunks []string
}

func (s *streamingScriptedClient) ChatStream(ctx context.Context, messages []llm.Message, opts llm.Options) (<-chan string, <-chan error) {
	contentCh := make(chan string, len(s.chunks))
	errCh := make(chan error, 1)
	go func() {
		defer close(contentCh)
		defer close(errCh)
		for _, c := range s.chunks {
			contentCh <- c
		}
		if s.err != nil {
			errCh <- s.err
		}
	}()
	return contentCh, errCh
}

func testStore(t *testing.T) *prompt.Store {
	t.Helper()
	s := prompt.NewStore(zap.NewNop())
	s.Register(&prompt.Template{Name: "echo", Version: "1.0", Body: "analyze: {query}"})
	return s
}

func newTestBase(t *testing.T, client llm.Client) *Base {
	return NewBase("test", LLMConfig{
		Client:       client,
		Templates:    testStore(t),
		TemplateName: "echo",
	})
}

func TestBaseInitialize(t *testing.T) {
	tests := []struct {
		name string
		base *Base
		want bool
	}{
		{
			name: "configured",
			base: NewBase("p", LLMConfig{Client: &scriptedClient{}, Templates: prompt.NewStore(nil), TemplateName: "context_analysis"}),
			want: true,
		},
		{
			name: "no client",
			base: NewBase("p", LLMConfig{Templates: prompt.NewStore(nil), TemplateName: "context_analysis"}),
			want: false,
		},
		{
			name: "unknown template",
			base: NewBase("p", LLMConfig{Client: &scriptedClient{}, Templates: prompt.NewStore(nil), TemplateName: "nope"}),
			want: false,
		},
		{
			name: "no template store",
			base: NewBase("p", LLMConfig{Client: &scriptedClient{}, TemplateName: "context_analysis"}),
			want: false,
		},
		{
			name: "no template name",
			base: NewBase("p", LLMConfig{Client: &scriptedClient{}, Templates: prompt.NewStore(nil)}),
			want: false,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.base.Initialize(context.Background())
			assert.Equal(t, tt.want, got)
			assert.Equal(t, tt.want, tt.base.Ready())
		})
	}
}

func TestBaseCompleteRequiresInitialize(t *testing.T) {
	b := newTestBase(t, &scriptedClient{response: `{}`})
	_, _, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestBaseWithoutTemplatesNeverCrashes(t *testing.T) {
	b := NewBase("p", LLMConfig{Client: &scriptedClient{response: `{}`}, TemplateName: "echo"})
	require.False(t, b.Initialize(context.Background()))

	_, _, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	assert.True(t, errors.Is(err, ErrNotInitialized))
}

func TestBaseCompleteNonStreaming(t *testing.T) {
	b := newTestBase(t, &scriptedClient{response: `{"score": 0.7}`})
	require.True(t, b.Initialize(context.Background()))

	parsed, raw, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, 0.7, parsed["score"])
	assert.Contains(t, raw, "score")
	assert.Equal(t, int64(1), b.CallCount())
}

func TestBaseCompletePrefersStreaming(t *testing.T) {
	client := &streamingScriptedClient{
		scriptedClient: scriptedClient{response: "should not be used"},
		chunks:         []string{`{"sc`, `ore":`, ` 0.4}`},
	}
	b := newTestBase(t, client)
	require.True(t, b.Initialize(context.Background()))

	parsed, _, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, 0.4, parsed["score"])
}

func TestBaseCompleteModelError(t *testing.T) {
	b := newTestBase(t, &scriptedClient{err: fmt.Errorf("connection refused")})
	require.True(t, b.Initialize(context.Background()))

	_, _, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotInitialized))
}

func TestBaseCompleteTimeout(t *testing.T) {
	b := NewBase("slow", LLMConfig{
		Client:       &scriptedClient{response: `{}`, delay: time.Second},
		Templates:    testStore(t),
		TemplateName: "echo",
		Timeout:      10 * time.Millisecond,
	})
	require.True(t, b.Initialize(context.Background()))

	_, _, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	require.Error(t, err)
	assert.False(t, errors.Is(err, ErrNotInitialized))
}

func TestBaseCompleteRecoversWrappedJSON(t *testing.T) {
	b := newTestBase(t, &scriptedClient{response: "Sure, here you go: {\"score\": 1} done"})
	require.True(t, b.Initialize(context.Background()))

	parsed, _, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	require.NoError(t, err)
	assert.Equal(t, float64(1), parsed["score"])
}

func TestBaseCompleteUnparseable(t *testing.T) {
	b := newTestBase(t, &scriptedClient{response: "no structure here at all"})
	require.True(t, b.Initialize(context.Background()))

	_, raw, err := b.Complete(context.Background(), map[string]any{"query": "q"})
	require.Error(t, err)
	assert.Equal(t, "no structure here at all", raw)
}

func TestFieldHelpers(t *testing.T) {
	m := map[string]any{
		"score":     1.7,
		"neg":       -0.2,
		"mode":      "creative",
		"bad_mode":  "telepathic",
		"list":      []any{"a", "b"},
		"scores":    []any{0.5, 2.0, -1.0},
		"objs":      []any{map[string]any{"k": "v"}, "not an object"},
		"level":     "high",
		"num_level": 0.35,
	}

	assert.Equal(t, 1.0, ScoreField(m, "score", 0))
	assert.Equal(t, 0.0, ScoreField(m, "neg", 0.5))
	assert.Equal(t, 0.5, ScoreField(m, "absent", 0.5))

	allowed := []string{"linear", "creative", "analytical"}
	assert.Equal(t, "creative", EnumField(m, "mode", allowed, "linear"))
	assert.Equal(t, "linear", EnumField(m, "bad_mode", allowed, "linear"))
	assert.Equal(t, "linear", EnumField(m, "absent", allowed, "linear"))

	assert.Equal(t, []string{"a", "b"}, StringsField(m, "list"))
	assert.Equal(t, []float64{0.5, 1, 0}, ScoresField(m, "scores"))
	assert.Len(t, ObjectsField(m, "objs"), 1)

	assert.Equal(t, 0.8, LevelToScore(m["level"], 0.5))
	assert.Equal(t, 0.35, LevelToScore(m["num_level"], 0.5))
	assert.Equal(t, 0.5, LevelToScore("sideways", 0.5))
}
