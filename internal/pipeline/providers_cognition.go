package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// =============================================================================
// MEMORY ACTIVATION PROVIDER
// =============================================================================

type memoryActivationProvider struct {
	*module.Base
}

func newMemoryActivationProvider(d Deps) *memoryActivationProvider {
	return &memoryActivationProvider{Base: module.NewBase("memory_activation", d.llmConfig("memory_activation"))}
}

func (p *memoryActivationProvider) Process(ctx context.Context, input types.CognitionInput, pctx map[string]any) (types.MemoryActivationResult, error) {
	vars := map[string]any{
		"query":    input.Query,
		"memories": formatFragments(input.ExternalMemories),
	}

	parsed, raw, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return types.MemoryActivationResult{}, err
		}
		// Degrade to the externally retrieved fragments unranked.
		return types.MemoryActivationResult{
			ActivatedFragments:   input.ExternalMemories,
			ActivationConfidence: module.FallbackConfidence,
			ActivationMetadata: map[string]any{
				"fallback": true,
				"raw":      raw,
			},
		}, nil
	}

	byID := map[string]types.MemoryFragment{}
	for _, f := range input.ExternalMemories {
		byID[f.ID] = f
	}

	var fragments []types.MemoryFragment
	for _, obj := range module.ObjectsField(parsed, "activated_fragments") {
		f := types.MemoryFragment{
			ID:        module.StringField(obj, "id", ""),
			Content:   module.StringField(obj, "content", ""),
			Relevance: module.ScoreField(obj, "relevance", 0.5),
			Source:    "model",
		}
		// Prefer the store's record when the model references a known ID.
		if known, ok := byID[f.ID]; ok {
			known.Relevance = f.Relevance
			f = known
		}
		if f.Content == "" {
			continue
		}
		fragments = append(fragments, f)
	}

	return types.MemoryActivationResult{
		ActivatedFragments:   fragments,
		ActivationConfidence: module.ScoreField(parsed, "activation_confidence", 0.5),
		ActivationMetadata: map[string]any{
			"candidates": len(input.ExternalMemories),
			"selected":   len(fragments),
		},
	}, nil
}

func formatFragments(fragments []types.MemoryFragment) string {
	if len(fragments) == 0 {
		return "(none)"
	}
	var sb strings.Builder
	for _, f := range fragments {
		fmt.Fprintf(&sb, "- [%s] %s\n", f.ID, f.Content)
	}
	return sb.String()
}

// =============================================================================
// SEMANTIC ENHANCEMENT PROVIDER
// =============================================================================

type semanticEnhancementProvider struct {
	*module.Base
}

func newSemanticEnhancementProvider(d Deps) *semanticEnhancementProvider {
	return &semanticEnhancementProvider{Base: module.NewBase("semantic_enhancement", d.llmConfig("semantic_enhancement"))}
}

func (p *semanticEnhancementProvider) Process(ctx context.Context, input types.CognitionInput, pctx map[string]any) (types.SemanticEnhancementResult, error) {
	var fragments []types.MemoryFragment
	if act, ok := pctx["activation"].(types.MemoryActivationResult); ok {
		fragments = act.ActivatedFragments
	}
	vars := map[string]any{
		"query":     input.Query,
		"fragments": formatFragments(fragments),
	}

	parsed, _, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return types.SemanticEnhancementResult{}, err
		}
		return types.SemanticEnhancementResult{
			EnhancedContent:       input.Query,
			EnhancementConfidence: module.FallbackConfidence,
		}, nil
	}

	return types.SemanticEnhancementResult{
		EnhancedContent:       module.StringField(parsed, "enhanced_content", input.Query),
		SemanticGapsFilled:    module.StringsField(parsed, "semantic_gaps_filled"),
		EnhancementConfidence: module.ScoreField(parsed, "enhancement_confidence", 0.5),
	}, nil
}

// =============================================================================
// ANALOGY REASONING PROVIDER
// =============================================================================

type analogyReasoningProvider struct {
	*module.Base
}

func newAnalogyReasoningProvider(d Deps) *analogyReasoningProvider {
	return &analogyReasoningProvider{Base: module.NewBase("analogy_reasoning", d.llmConfig("analogy_reasoning"))}
}

func (p *analogyReasoningProvider) Process(ctx context.Context, input types.CognitionInput, pctx map[string]any) (types.AnalogyReasoningResult, error) {
	enhanced := input.Query
	if e, ok := pctx["enhanced_content"].(string); ok && e != "" {
		enhanced = e
	}
	vars := map[string]any{
		"query":            input.Query,
		"enhanced_content": enhanced,
	}

	parsed, _, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return types.AnalogyReasoningResult{}, err
		}
		return types.AnalogyReasoningResult{}, nil
	}

	result := types.AnalogyReasoningResult{
		Analogies:        module.StringsField(parsed, "analogies"),
		ReasoningChains:  module.ChainsField(parsed, "reasoning_chains"),
		ConfidenceScores: module.ScoresField(parsed, "confidence_scores"),
	}
	// Pad confidence scores so each analogy has one.
	for len(result.ConfidenceScores) < len(result.Analogies) {
		result.ConfidenceScores = append(result.ConfidenceScores, module.FallbackConfidence)
	}
	return result, nil
}
