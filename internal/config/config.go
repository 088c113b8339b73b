// Package config loads the cogniflow configuration file and resolves
// environment fallbacks. The pipeline core receives plain config structs
// from here and never reads files or environment variables itself.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"

	"cogniflow/internal/llm"
	"cogniflow/internal/logging"
)

// Duration parses YAML values like "30s" or bare second counts.
type Duration time.Duration

// UnmarshalYAML implements yaml.Unmarshaler.
func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var secs float64
	if err := value.Decode(&secs); err == nil {
		*d = Duration(time.Duration(secs * float64(time.Second)))
		return nil
	}
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("invalid duration value: %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Std returns the wrapped time.Duration.
func (d Duration) Std() time.Duration { return time.Duration(d) }

// Config is the top-level configuration.
type Config struct {
	LLM      LLMConfig      `yaml:"llm"`
	Pipeline PipelineConfig `yaml:"pipeline"`
	Memory   MemoryConfig   `yaml:"memory"`
	Logging  logging.Config `yaml:"logging"`
}

// LLMConfig is the file-facing shape of the model connection.
type LLMConfig struct {
	Provider   string   `yaml:"provider"`
	APIKey     string   `yaml:"api_key"`
	BaseURL    string   `yaml:"base_url"`
	Model      string   `yaml:"model"`
	Timeout    Duration `yaml:"timeout"`
	MaxRetries int      `yaml:"max_retries"`
}

// ClientConfig converts to the client package's config struct.
func (c LLMConfig) ClientConfig() llm.Config {
	return llm.Config{
		Provider:   c.Provider,
		APIKey:     c.APIKey,
		BaseURL:    c.BaseURL,
		Model:      c.Model,
		Timeout:    c.Timeout.Std(),
		MaxRetries: c.MaxRetries,
	}
}

// PipelineConfig controls layer behavior.
type PipelineConfig struct {
	EnableCollaboration bool     `yaml:"enable_collaboration"`
	TemplateDir         string   `yaml:"template_dir"`
	Temperature         float64  `yaml:"temperature"`
	MaxTokens           int      `yaml:"max_tokens"`
	ProviderTimeout     Duration `yaml:"provider_timeout"`
}

// MemoryConfig selects and tunes the memory store.
type MemoryConfig struct {
	Backend             string  `yaml:"backend"` // "none", "inmem", "sqlite"
	Path                string  `yaml:"path"`
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	RetrievalLimit      int     `yaml:"retrieval_limit"`
	EmbeddingAPIKey     string  `yaml:"embedding_api_key"`
	EmbeddingModel      string  `yaml:"embedding_model"`
}

// Default returns the configuration used when no file is present. The
// LLM connection is detected from the environment.
func Default() Config {
	detected := llm.DetectConfig()
	return Config{
		LLM: LLMConfig{
			Provider: detected.Provider,
			APIKey:   detected.APIKey,
			Model:    detected.Model,
		},
		Pipeline: PipelineConfig{
			EnableCollaboration: true,
			Temperature:         0.7,
			MaxTokens:           800,
			ProviderTimeout:     Duration(30 * time.Second),
		},
		Memory: MemoryConfig{
			Backend:             "inmem",
			SimilarityThreshold: 0.6,
			RetrievalLimit:      20,
		},
		Logging: logging.Config{Level: "info"},
	}
}

// Load reads the YAML file at path, layering it over defaults. A missing
// file is not an error; defaults apply.
func Load(path string) (Config, error) {
	cfg := Default()
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return cfg, fmt.Errorf("failed to read config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse config %s: %w", path, err)
	}
	if cfg.LLM.APIKey == "" && cfg.LLM.Provider == "" {
		detected := llm.DetectConfig()
		cfg.LLM.Provider = detected.Provider
		cfg.LLM.APIKey = detected.APIKey
		cfg.LLM.Model = detected.Model
	}
	return cfg, nil
}
