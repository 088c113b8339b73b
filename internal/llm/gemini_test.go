package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGeminiTestClient(url string) *GeminiClient {
	return NewGeminiClient(Config{
		APIKey:  "test-key",
		BaseURL: url,
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, nil)
}

func TestGeminiChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:generateContent", r.URL.Path)
		assert.Equal(t, "test-key", r.Header.Get("x-goog-api-key"))

		var req geminiRequest
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		require.NotNil(t, req.SystemInstruction)
		assert.Equal(t, "sys", req.SystemInstruction.Parts[0].Text)
		require.Len(t, req.Contents, 2)
		assert.Equal(t, "user", req.Contents[0].Role)
		assert.Equal(t, "model", req.Contents[1].Role)

		fmt.Fprint(w, `{"candidates":[{"content":{"role":"model","parts":[{"text":"  hello  "}]}}]}`)
	}))
	defer srv.Close()

	c := newGeminiTestClient(srv.URL)
	messages := []Message{
		{Role: "system", Content: "sys"},
		{Role: "user", Content: "hi"},
		{Role: "assistant", Content: "earlier"},
	}
	out, err := c.Chat(context.Background(), messages, Options{})
	require.NoError(t, err)
	assert.Equal(t, "hello", out)
}

func TestGeminiChatAPIError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		fmt.Fprint(w, `{"error":{"code":400,"message":"invalid model"}}`)
	}))
	defer srv.Close()

	c := newGeminiTestClient(srv.URL)
	_, err := c.Chat(context.Background(), UserMessage("hi"), Options{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid model")
}

func TestGeminiChatStream(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/models/test-model:streamGenerateContent", r.URL.Path)
		assert.Equal(t, "sse", r.URL.Query().Get("alt"))

		w.Header().Set("Content-Type", "text/event-stream")
		chunks := []string{
			`data: {"candidates":[{"content":{"parts":[{"text":"Hel"}]}}]}`,
			``,
			`data: {"candidates":[{"content":{"parts":[{"text":"lo "}]}}]}`,
			`data: {"candidates":[{"content":{"parts":[{"text":"world"}]}}]}`,
		}
		for _, c := range chunks {
			fmt.Fprintf(w, "%s\n", c)
		}
	}))
	defer srv.Close()

	c := newGeminiTestClient(srv.URL)
	contentCh, errCh := c.ChatStream(context.Background(), UserMessage("hi"), Options{})

	var got strings.Builder
	for chunk := range contentCh {
		got.WriteString(chunk)
	}
	require.NoError(t, <-errCh)
	assert.Equal(t, "Hello world", got.String())
}
