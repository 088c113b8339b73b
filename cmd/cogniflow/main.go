package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cogniflow/internal/config"
	"cogniflow/internal/llm"
	"cogniflow/internal/logging"
	"cogniflow/internal/memory"
	"cogniflow/internal/pipeline"
	"cogniflow/internal/prompt"
)

var (
	// Global flags
	configPath string
	userID     string
	verbose    bool
	timeout    time.Duration

	logger *zap.Logger
	cfg    config.Config
)

// rootCmd represents the base command
var rootCmd = &cobra.Command{
	Use:   "cogniflow",
	Short: "cogniflow - personalized cognitive pipeline",
	Long: `cogniflow answers queries through a four-layer cognitive pipeline:
perception models the user and task, cognition activates memory and
reasoning, behavior adapts and generates content, and collaboration
adds perspectives and challenges.

Configure a model provider via a config file or environment variables
(ANTHROPIC_API_KEY, OPENAI_API_KEY, ZAI_API_KEY, OPENROUTER_API_KEY);
without one the pipeline runs on built-in heuristics.`,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		cfg, err = config.Load(configPath)
		if err != nil {
			return err
		}
		if verbose {
			cfg.Logging.Level = "debug"
			cfg.Logging.Development = true
		}
		logger, err = logging.New(cfg.Logging)
		if err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if logger != nil {
			_ = logger.Sync()
		}
	},
}

var askCmd = &cobra.Command{
	Use:   "ask [query]",
	Short: "Answer a single query through the pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runAsk,
}

var streamCmd = &cobra.Command{
	Use:   "stream [query]",
	Short: "Answer a query, printing output as it is generated",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runStream,
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show pipeline layer status and processing statistics",
	RunE:  showStatus,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "cogniflow.yaml", "Config file path")
	rootCmd.PersistentFlags().StringVarP(&userID, "user", "u", "default", "User id for profile modeling")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")
	rootCmd.PersistentFlags().DurationVar(&timeout, "timeout", 2*time.Minute, "Overall operation timeout")

	rootCmd.AddCommand(askCmd)
	rootCmd.AddCommand(streamCmd)
	rootCmd.AddCommand(statusCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// buildPipeline assembles the full stack from config: model client,
// template store (with optional YAML overrides and hot reload), memory
// backend, and the four layers.
func buildPipeline(ctx context.Context) (*pipeline.Pipeline, func(), error) {
	var client llm.Client
	if c, err := llm.NewClient(cfg.LLM.ClientConfig(), logger); err != nil {
		logger.Warn("model client unavailable, running heuristics only", zap.Error(err))
	} else {
		client = c
	}

	templates := prompt.NewStore(logger)
	var watcher *prompt.Watcher
	if dir := cfg.Pipeline.TemplateDir; dir != "" {
		if n, err := templates.LoadDir(dir); err != nil {
			logger.Warn("template dir load failed", zap.String("dir", dir), zap.Error(err))
		} else if n > 0 {
			logger.Info("loaded template overrides", zap.String("dir", dir), zap.Int("count", n))
		}
		w, err := prompt.NewWatcher(templates, dir, logger)
		if err != nil {
			logger.Warn("template watcher unavailable", zap.Error(err))
		} else if err := w.Start(ctx); err == nil {
			watcher = w
		}
	}

	store, closeStore, err := buildMemory()
	if err != nil {
		return nil, nil, err
	}

	p := pipeline.New(pipeline.Config{
		Deps: pipeline.Deps{
			Client:      client,
			Templates:   templates,
			Temperature: cfg.Pipeline.Temperature,
			MaxTokens:   cfg.Pipeline.MaxTokens,
			Timeout:     cfg.Pipeline.ProviderTimeout.Std(),
			Logger:      logger,
		},
		Memory:              store,
		EnableCollaboration: cfg.Pipeline.EnableCollaboration,
		RetrievalLimit:      cfg.Memory.RetrievalLimit,
		SimilarityThreshold: cfg.Memory.SimilarityThreshold,
	})
	if !p.InitializeLayers(ctx) {
		logger.Warn("some layers failed to initialize")
	}

	cleanup := func() {
		p.CleanupAllLayers(context.Background())
		if watcher != nil {
			watcher.Stop()
		}
		if closeStore != nil {
			closeStore()
		}
	}
	return p, cleanup, nil
}

func buildMemory() (memory.System, func(), error) {
	var embedder memory.Embedder
	if cfg.Memory.EmbeddingAPIKey != "" {
		e, err := memory.NewGenAIEmbedder(cfg.Memory.EmbeddingAPIKey, cfg.Memory.EmbeddingModel)
		if err != nil {
			logger.Warn("embedding client unavailable, using hash embedder", zap.Error(err))
		} else {
			embedder = e
		}
	}
	if embedder == nil {
		embedder = memory.NewHashEmbedder(0)
	}

	switch cfg.Memory.Backend {
	case "", "none":
		return nil, nil, nil
	case "inmem":
		return memory.NewInMemoryStore(embedder), nil, nil
	case "sqlite":
		path := cfg.Memory.Path
		if path == "" {
			path = "cogniflow.db"
		}
		s, err := memory.NewSQLiteStore(path, embedder)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open memory store: %w", err)
		}
		return s, func() { _ = s.Close() }, nil
	default:
		return nil, nil, fmt.Errorf("unknown memory backend %q", cfg.Memory.Backend)
	}
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.Join(args, " ")
	resp, err := p.ProcessThroughLayers(ctx, userID, query, nil)
	if err != nil {
		return err
	}

	fmt.Println(resp.Content)

	if verbose {
		fmt.Fprintf(os.Stderr, "\n--- pipeline ---\n")
		fmt.Fprintf(os.Stderr, "perception:    %s (%.0fms)\n",
			resp.PerceptionOutput.Status, resp.PerceptionOutput.ProcessingTime*1000)
		fmt.Fprintf(os.Stderr, "cognition:     %s (%.0fms)\n",
			resp.CognitionOutput.Status, resp.CognitionOutput.ProcessingTime*1000)
		fmt.Fprintf(os.Stderr, "behavior:      %s (%.0fms)\n",
			resp.BehaviorOutput.Status, resp.BehaviorOutput.ProcessingTime*1000)
		if resp.CollaborationOutput != nil {
			fmt.Fprintf(os.Stderr, "collaboration: %s (%.0fms)\n",
				resp.CollaborationOutput.Status, resp.CollaborationOutput.ProcessingTime*1000)
		}
	}
	return nil
}

func runStream(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	query := strings.Join(args, " ")
	events, result := p.ProcessStream(ctx, userID, query, nil)

	for e := range events {
		fmt.Print(e)
	}
	fmt.Println()

	if resp := <-result; resp == nil {
		return fmt.Errorf("pipeline run did not complete")
	}
	return nil
}

func showStatus(cmd *cobra.Command, args []string) error {
	ctx, cancel := signalContext()
	defer cancel()

	p, cleanup, err := buildPipeline(ctx)
	if err != nil {
		return err
	}
	defer cleanup()

	status := p.GetSystemStatus()
	out, err := json.MarshalIndent(status, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}

// signalContext derives a context cancelled by SIGINT/SIGTERM or the
// overall timeout.
func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigCh:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(sigCh)
	}()

	return ctx, cancel
}
