package module

import (
	"context"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/extract"
	"cogniflow/internal/llm"
	"cogniflow/internal/prompt"
)

// FallbackConfidence is the ceiling for confidence scores on fallback
// results produced after a remote-call or parse failure.
const FallbackConfidence = 0.3

// LLMConfig wires one LLM-backed provider to its model and template.
type LLMConfig struct {
	Client          llm.Client
	Templates       *prompt.Store
	TemplateName    string
	TemplateVersion string
	Temperature     float64
	MaxTokens       int
	Timeout         time.Duration
	Logger          *zap.Logger
}

// Base carries the shared plumbing for LLM-backed providers: lifecycle
// state, the render/call/extract sequence, and diagnostic counters.
// Concrete providers embed it and add their variable mapping and result
// typing.
type Base struct {
	name        string
	cfg         LLMConfig
	initialized bool
	callCount   atomic.Int64
	logger      *zap.Logger
}

// NewBase constructs the shared provider state. Lifecycle starts
// uninitialized.
func NewBase(name string, cfg LLMConfig) *Base {
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Base{name: name, cfg: cfg, logger: logger.With(zap.String("provider", name))}
}

// Name returns the provider name.
func (b *Base) Name() string { return b.name }

// Ready reports whether Initialize succeeded.
func (b *Base) Ready() bool { return b.initialized }

// CallCount returns how many model calls this provider has made. Used
// for diagnostics only.
func (b *Base) CallCount() int64 { return b.callCount.Load() }

// Initialize validates the model and template configuration. It never
// errors; a missing client or template leaves the provider uninitialized
// with the reason logged.
func (b *Base) Initialize(ctx context.Context) bool {
	if b.cfg.Client == nil {
		b.logger.Warn("no model client configured")
		return false
	}
	if b.cfg.Templates == nil || b.cfg.TemplateName == "" {
		b.logger.Warn("no template assigned")
		return false
	}
	if _, err := b.cfg.Templates.Get(b.cfg.TemplateName, b.cfg.TemplateVersion); err != nil {
		b.logger.Warn("assigned template unavailable", zap.Error(err))
		return false
	}
	b.initialized = true
	return true
}

// Cleanup returns the provider to the uninitialized state.
func (b *Base) Cleanup(ctx context.Context) error {
	b.initialized = false
	return nil
}

// Complete renders the assigned template against vars, calls the model
// (streaming when the client supports it, reassembling chunks in order),
// and extracts a JSON object from the response. The raw response text is
// always returned for diagnostics. ErrNotInitialized is the only error
// callers should propagate; everything else signals that the provider's
// fallback result applies.
func (b *Base) Complete(ctx context.Context, vars map[string]any) (map[string]any, string, error) {
	if !b.initialized {
		return nil, "", fmt.Errorf("%s: %w", b.name, ErrNotInitialized)
	}

	rendered, err := b.cfg.Templates.Render(b.cfg.TemplateName, vars, b.cfg.TemplateVersion)
	if err != nil {
		return nil, "", fmt.Errorf("template render failed: %w", err)
	}

	if b.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, b.cfg.Timeout)
		defer cancel()
	}

	b.callCount.Add(1)
	raw, err := b.call(ctx, rendered)
	if err != nil {
		return nil, raw, fmt.Errorf("model call failed: %w", err)
	}

	parsed, fail := extract.JSON(raw)
	if fail != nil {
		b.logger.Debug("structured extraction failed",
			zap.String("reason", fail.Error),
			zap.String("parse_error", fail.ParseError))
		if obj, ok := extract.FirstObject(raw); ok {
			return obj, raw, nil
		}
		return nil, raw, fmt.Errorf("extraction failed: %s", fail.Error)
	}
	return parsed, raw, nil
}

// call prefers the streaming interface, concatenating all chunks into
// one string; clients without streaming fall back to a blocking chat.
func (b *Base) call(ctx context.Context, renderedPrompt string) (string, error) {
	opts := llm.Options{Temperature: b.cfg.Temperature, MaxTokens: b.cfg.MaxTokens}
	messages := llm.UserMessage(renderedPrompt)

	if sc, ok := b.cfg.Client.(llm.StreamingClient); ok {
		contentCh, errCh := sc.ChatStream(ctx, messages, opts)
		var sb strings.Builder
		for chunk := range contentCh {
			sb.WriteString(chunk)
		}
		if err := <-errCh; err != nil {
			return sb.String(), err
		}
		return sb.String(), nil
	}
	return b.cfg.Client.Chat(ctx, messages, opts)
}
