package pipeline

import (
	"context"
	"errors"
	"fmt"

	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// =============================================================================
// PERSPECTIVE GENERATION PROVIDER
// =============================================================================

type perspectiveProvider struct {
	*module.Base
}

func newPerspectiveProvider(d Deps) *perspectiveProvider {
	return &perspectiveProvider{Base: module.NewBase("perspective_generation", d.llmConfig("perspective_generation"))}
}

func (p *perspectiveProvider) Process(ctx context.Context, input types.CollaborationInput, pctx map[string]any) (types.PerspectiveGenerationResult, error) {
	content := ""
	if input.BehaviorOutput != nil {
		content = input.BehaviorOutput.AdaptedContent.Content
	}
	vars := map[string]any{
		"query":   input.Query,
		"content": content,
	}

	parsed, raw, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return types.PerspectiveGenerationResult{}, err
		}
		return types.PerspectiveGenerationResult{
			GenerationMetadata: map[string]any{"fallback": true, "raw": raw},
		}, nil
	}

	var perspectives []types.Perspective
	for _, obj := range module.ObjectsField(parsed, "perspectives") {
		pv := types.Perspective{
			Stance:    module.StringField(obj, "stance", ""),
			Content:   module.StringField(obj, "content", ""),
			Rationale: module.StringField(obj, "rationale", ""),
			Weight:    module.ScoreField(obj, "weight", 0.5),
		}
		if pv.Content == "" {
			continue
		}
		if pv.Stance == "" {
			pv.Stance = fmt.Sprintf("perspective_%d", len(perspectives)+1)
		}
		perspectives = append(perspectives, pv)
	}

	return types.PerspectiveGenerationResult{
		Perspectives:         perspectives,
		PerspectiveDiversity: perspectiveDiversity(perspectives),
		GenerationMetadata: map[string]any{
			"model_confidence": module.ScoreField(parsed, "confidence", 0.5),
		},
	}, nil
}

// perspectiveDiversity scores distinct stances against a five-way spread.
func perspectiveDiversity(perspectives []types.Perspective) float64 {
	stances := map[string]bool{}
	for _, p := range perspectives {
		stances[p.Stance] = true
	}
	return module.Clamp01(float64(len(stances)) / 5.0)
}

// =============================================================================
// COGNITIVE CHALLENGE PROVIDER
// =============================================================================

type challengeProvider struct {
	*module.Base
}

func newChallengeProvider(d Deps) *challengeProvider {
	return &challengeProvider{Base: module.NewBase("cognitive_challenge", d.llmConfig("cognitive_challenge"))}
}

func (p *challengeProvider) Process(ctx context.Context, input types.CollaborationInput, pctx map[string]any) (types.CognitiveChallengeResult, error) {
	content := ""
	if input.BehaviorOutput != nil {
		content = input.BehaviorOutput.AdaptedContent.Content
	}
	vars := map[string]any{
		"query":      input.Query,
		"content":    content,
		"user_level": fmt.Sprintf("%.1f", input.UserProfile.CognitiveComplexity()),
	}

	parsed, _, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return types.CognitiveChallengeResult{}, err
		}
		return types.CognitiveChallengeResult{}, nil
	}

	return types.CognitiveChallengeResult{
		Challenges:         module.StringsField(parsed, "challenges"),
		ChallengeIntensity: module.ScoreField(parsed, "challenge_intensity", 0.5),
		EducationalValue:   module.ScoreField(parsed, "educational_value", 0.5),
	}, nil
}
