package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// CognitionLayer runs the reasoning chain: memory activation, semantic
// enhancement, then analogy reasoning. Each capability feeds the next,
// so they run sequentially.
type CognitionLayer struct {
	deps   Deps
	logger *zap.Logger

	activationMgr *module.Manager[types.CognitionInput, types.MemoryActivationResult]
	semanticMgr   *module.Manager[types.CognitionInput, types.SemanticEnhancementResult]
	analogyMgr    *module.Manager[types.CognitionInput, types.AnalogyReasoningResult]

	cache       *activationCache
	initialized bool
}

const activationCacheBound = 100

// NewCognitionLayer constructs the layer; call Initialize before Process.
func NewCognitionLayer(deps Deps) *CognitionLayer {
	return &CognitionLayer{
		deps:   deps,
		logger: deps.logger().With(zap.String("layer", "cognition")),
		cache:  newActivationCache(activationCacheBound),
	}
}

// Initialize builds the capability managers; always returns true.
func (l *CognitionLayer) Initialize(ctx context.Context) bool {
	l.activationMgr = module.NewManager[types.CognitionInput, types.MemoryActivationResult](l.logger)
	l.semanticMgr = module.NewManager[types.CognitionInput, types.SemanticEnhancementResult](l.logger)
	l.analogyMgr = module.NewManager[types.CognitionInput, types.AnalogyReasoningResult](l.logger)

	if l.deps.Client != nil {
		l.activationMgr.Register(ctx, "memory_activation", newMemoryActivationProvider(l.deps))
		l.semanticMgr.Register(ctx, "semantic_enhancement", newSemanticEnhancementProvider(l.deps))
		l.analogyMgr.Register(ctx, "analogy_reasoning", newAnalogyReasoningProvider(l.deps))
	}

	l.initialized = true
	l.logger.Info("layer initialized",
		zap.Bool("llm_backed", l.activationMgr.HasProviders()))
	return true
}

// Process runs the cognition chain. Capability-level failures degrade to
// fallback results; the output is fully populated even on error.
func (l *CognitionLayer) Process(ctx context.Context, input types.CognitionInput) *types.CognitionOutput {
	start := time.Now()
	out := &types.CognitionOutput{LayerOutput: types.NewLayerOutput("cognition")}
	out.CognitiveInsights = map[string]any{}

	if !l.initialized {
		out.Fail(start, fmt.Errorf("cognition layer not initialized"))
		return out
	}
	if input.UserProfile == nil {
		out.Fail(start, fmt.Errorf("cognition input missing user profile"))
		return out
	}
	// A configured model whose providers failed to register is a stage
	// failure, not the heuristic degraded mode.
	if l.deps.Client != nil && !l.activationMgr.HasProviders() {
		out.Fail(start, fmt.Errorf("cognition providers unavailable"))
		return out
	}

	out.AddStep("memory_activation")
	activation, err := l.activate(ctx, input)
	if err != nil {
		out.Fail(start, err)
		return out
	}
	out.MemoryActivation = activation

	out.AddStep("semantic_enhancement")
	enhancement, err := l.enhance(ctx, input, activation)
	if err != nil {
		out.Fail(start, err)
		return out
	}
	out.SemanticEnhancement = enhancement

	out.AddStep("analogy_reasoning")
	analogy, err := l.reason(ctx, input, enhancement)
	if err != nil {
		out.Fail(start, err)
		return out
	}
	out.AnalogyReasoning = analogy

	out.AddStep("derive_insights")
	out.CognitiveInsights = cognitiveInsights(input, activation, enhancement, analogy)

	out.Complete(start)
	return out
}

// Cleanup tears down the managers and drops cached activations.
func (l *CognitionLayer) Cleanup(ctx context.Context) {
	if l.activationMgr != nil {
		l.activationMgr.Cleanup(ctx)
	}
	if l.semanticMgr != nil {
		l.semanticMgr.Cleanup(ctx)
	}
	if l.analogyMgr != nil {
		l.analogyMgr.Cleanup(ctx)
	}
	l.cache.clear()
	l.initialized = false
}

// CacheSize reports the number of memoized activation results.
func (l *CognitionLayer) CacheSize() int {
	return l.cache.len()
}

func (l *CognitionLayer) activate(ctx context.Context, input types.CognitionInput) (types.MemoryActivationResult, error) {
	key := activationKey(input.Query, input.UserProfile)
	if cached, ok := l.cache.get(key); ok {
		l.logger.Debug("activation cache hit", zap.String("key", key))
		return cached, nil
	}

	result, err := l.activationMgr.Process(ctx, input, "", nil)
	if err != nil {
		if !errors.Is(err, module.ErrProviderNotFound) {
			return types.MemoryActivationResult{}, err
		}
		// No provider registered: use the externally retrieved fragments.
		result = types.MemoryActivationResult{
			ActivatedFragments:   input.ExternalMemories,
			ActivationConfidence: module.FallbackConfidence,
			ActivationMetadata:   map[string]any{"fallback": true},
		}
	}

	l.cache.put(key, result)
	return result, nil
}

func (l *CognitionLayer) enhance(ctx context.Context, input types.CognitionInput, activation types.MemoryActivationResult) (types.SemanticEnhancementResult, error) {
	pctx := map[string]any{"activation": activation}
	result, err := l.semanticMgr.Process(ctx, input, "", pctx)
	if err != nil {
		if !errors.Is(err, module.ErrProviderNotFound) {
			return types.SemanticEnhancementResult{}, err
		}
		result = types.SemanticEnhancementResult{
			EnhancedContent:       input.Query,
			EnhancementConfidence: module.FallbackConfidence,
		}
	}
	return result, nil
}

func (l *CognitionLayer) reason(ctx context.Context, input types.CognitionInput, enhancement types.SemanticEnhancementResult) (types.AnalogyReasoningResult, error) {
	pctx := map[string]any{"enhanced_content": enhancement.EnhancedContent}
	result, err := l.analogyMgr.Process(ctx, input, "", pctx)
	if err != nil {
		if !errors.Is(err, module.ErrProviderNotFound) {
			return types.AnalogyReasoningResult{}, err
		}
		result = types.AnalogyReasoningResult{}
	}
	return result, nil
}

// cognitiveInsights scores the run along four axes. cognitive_load
// relates demand (task complexity, fragment volume, gaps filled) to the
// user's capacity.
func cognitiveInsights(input types.CognitionInput, activation types.MemoryActivationResult, enhancement types.SemanticEnhancementResult, analogy types.AnalogyReasoningResult) map[string]any {
	fragments := float64(len(activation.ActivatedFragments))
	gaps := float64(len(enhancement.SemanticGapsFilled))
	analogies := float64(len(analogy.Analogies))

	demand := (input.ContextProfile.ComplexityLevel +
		math.Min(1.0, fragments/20.0) +
		math.Min(1.0, gaps/10.0)) / 3.0
	load := math.Min(1.0, demand/math.Max(0.1, input.UserProfile.CognitiveComplexity()))

	var chainLen float64
	for _, chain := range analogy.ReasoningChains {
		chainLen += float64(len(chain))
	}
	avgChainLen := 0.0
	if n := len(analogy.ReasoningChains); n > 0 {
		avgChainLen = chainLen / float64(n)
	}
	avgConf := 0.0
	if n := len(analogy.ConfidenceScores); n > 0 {
		for _, c := range analogy.ConfidenceScores {
			avgConf += c
		}
		avgConf /= float64(n)
	}

	return map[string]any{
		"cognitive_load":       load,
		"reasoning_complexity": math.Min(1.0, (avgChainLen/10.0)*(1.0-avgConf)),
		"memory_utilization":   math.Min(1.0, (fragments/50.0)*activation.ActivationConfidence),
		"creative_potential":   math.Min(1.0, (analogies/10.0)*input.UserProfile.CreativityTendency()*avgConf),
	}
}
