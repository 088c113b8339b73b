package llm

import (
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"
)

// Provider identifiers accepted by the factory.
const (
	ProviderOpenAI     = "openai"
	ProviderAnthropic  = "anthropic"
	ProviderGemini     = "gemini"
	ProviderZAI        = "zai"
	ProviderOpenRouter = "openrouter"
	ProviderOllama     = "ollama"
)

// NewClient builds a chat client from config. Unknown providers are an
// error; callers degrade to heuristic-only operation when they get one.
func NewClient(cfg Config, logger *zap.Logger) (StreamingClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case ProviderAnthropic:
		return NewAnthropicClient(cfg, logger), nil
	case ProviderGemini:
		return NewGeminiClient(cfg, logger), nil
	case ProviderOpenAI, "":
		return NewOpenAIClient(cfg, logger), nil
	case ProviderZAI:
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://api.z.ai/api/paas/v4"
		}
		return NewOpenAIClient(cfg, logger), nil
	case ProviderOpenRouter:
		if cfg.BaseURL == "" {
			cfg.BaseURL = "https://openrouter.ai/api/v1"
		}
		return NewOpenAIClient(cfg, logger), nil
	case ProviderOllama:
		if cfg.BaseURL == "" {
			cfg.BaseURL = "http://localhost:11434/v1"
		}
		return NewOpenAIClient(cfg, logger), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s", cfg.Provider)
	}
}

// DetectConfig resolves a client config from the environment when the
// config file does not name a provider. Priority order matches the env
// vars checked below; Ollama needs no key and is the final fallback.
func DetectConfig() Config {
	checks := []struct {
		provider string
		keyVar   string
		modelVar string
		fallback string
	}{
		{ProviderAnthropic, "ANTHROPIC_API_KEY", "ANTHROPIC_MODEL", "claude-sonnet-4-5"},
		{ProviderOpenAI, "OPENAI_API_KEY", "OPENAI_MODEL", "gpt-4o-mini"},
		{ProviderGemini, "GEMINI_API_KEY", "GEMINI_MODEL", "gemini-2.0-flash"},
		{ProviderZAI, "ZAI_API_KEY", "ZAI_MODEL", "glm-4.6"},
		{ProviderOpenRouter, "OPENROUTER_API_KEY", "OPENROUTER_MODEL", "openrouter/auto"},
	}
	for _, c := range checks {
		if key := os.Getenv(c.keyVar); key != "" {
			model := os.Getenv(c.modelVar)
			if model == "" {
				model = c.fallback
			}
			return Config{Provider: c.provider, APIKey: key, Model: model}
		}
	}
	model := os.Getenv("OLLAMA_MODEL")
	if model == "" {
		model = "llama3.1"
	}
	return Config{Provider: ProviderOllama, Model: model}
}
