// Package pipeline implements the four-layer cognitive pipeline and its
// orchestrator. Layers run strictly in order (perception, cognition,
// behavior, collaboration) and communicate only through the typed
// records in internal/types. Each layer delegates analytic sub-tasks to
// LLM-backed providers through the internal/module registry; when no
// model is configured the layers degrade to built-in heuristics.
package pipeline

import (
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/llm"
	"cogniflow/internal/module"
	"cogniflow/internal/prompt"
)

// Deps wires a layer to its backing services. Client may be nil; the
// layer then runs heuristics only.
type Deps struct {
	Client      llm.Client
	Templates   *prompt.Store
	Temperature float64
	MaxTokens   int
	Timeout     time.Duration
	Logger      *zap.Logger
}

func (d Deps) logger() *zap.Logger {
	if d.Logger == nil {
		return zap.NewNop()
	}
	return d.Logger
}

// llmConfig builds provider plumbing for one template. The template's
// own temperature and token settings win over the layer defaults.
func (d Deps) llmConfig(templateName string) module.LLMConfig {
	cfg := module.LLMConfig{
		Client:       d.Client,
		Templates:    d.Templates,
		TemplateName: templateName,
		Temperature:  d.Temperature,
		MaxTokens:    d.MaxTokens,
		Timeout:      d.Timeout,
		Logger:       d.Logger,
	}
	if d.Templates != nil {
		if t, err := d.Templates.Get(templateName, ""); err == nil {
			if t.Temperature > 0 {
				cfg.Temperature = t.Temperature
			}
			if t.MaxTokens > 0 {
				cfg.MaxTokens = t.MaxTokens
			}
		}
	}
	return cfg
}
