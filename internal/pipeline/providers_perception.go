package pipeline

import (
	"context"
	"errors"
	"strings"

	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// Task type variants recognized by context analysis. Anything else the
// model returns collapses to the analytical sentinel.
var taskTypes = []string{"exploratory", "analytical", "creative", "retrieval"}

const defaultTaskType = "analytical"

// BaseDomains is the closed set used for domain inference.
var BaseDomains = []string{
	"technology", "science", "education", "business", "art",
	"health", "finance", "legal", "engineering", "mathematics",
	"language", "history", "philosophy", "psychology", "social_science",
}

// ContextAnalysisResult classifies the task a query represents.
type ContextAnalysisResult struct {
	TaskType        string   `json:"task_type"`
	ComplexityLevel float64  `json:"complexity_level"`
	UrgencyLevel    float64  `json:"urgency_level"`
	KeyRequirements []string `json:"key_requirements,omitempty"`
	Confidence      float64  `json:"confidence"`
	Raw             string   `json:"-"`
}

// CognitiveStyleResult estimates the user's cognitive characteristics.
type CognitiveStyleResult struct {
	ThinkingMode        string  `json:"thinking_mode"`
	CognitiveComplexity float64 `json:"cognitive_complexity"`
	AbstractionLevel    float64 `json:"abstraction_level"`
	CreativityTendency  float64 `json:"creativity_tendency"`
	Confidence          float64 `json:"confidence"`
	Raw                 string  `json:"-"`
}

// DomainInferenceResult names the knowledge domains a query touches.
type DomainInferenceResult struct {
	Domains       []string `json:"domains"`
	PrimaryDomain string   `json:"primary_domain"`
	Confidence    float64  `json:"confidence"`
	Raw           string   `json:"-"`
}

var thinkingModes = []string{"linear", "associative", "creative", "analytical"}

// =============================================================================
// CONTEXT ANALYSIS PROVIDER
// =============================================================================

type contextAnalysisProvider struct {
	*module.Base
}

func newContextAnalysisProvider(d Deps) *contextAnalysisProvider {
	return &contextAnalysisProvider{Base: module.NewBase("context_analysis", d.llmConfig("context_analysis"))}
}

func (p *contextAnalysisProvider) Process(ctx context.Context, input types.PerceptionInput, pctx map[string]any) (ContextAnalysisResult, error) {
	vars := map[string]any{"query": input.Query}
	if c, ok := pctx["context"]; ok {
		vars["context"] = c
	}

	parsed, raw, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return ContextAnalysisResult{}, err
		}
		return ContextAnalysisResult{
			TaskType:        defaultTaskType,
			ComplexityLevel: 0.5,
			UrgencyLevel:    0.2,
			Confidence:      module.FallbackConfidence,
			Raw:             raw,
		}, nil
	}

	return ContextAnalysisResult{
		TaskType:        module.EnumField(parsed, "task_type", taskTypes, defaultTaskType),
		ComplexityLevel: module.LevelToScore(parsed["complexity_level"], 0.5),
		UrgencyLevel:    module.LevelToScore(parsed["urgency_level"], 0.2),
		KeyRequirements: module.StringsField(parsed, "key_requirements"),
		Confidence:      module.ScoreField(parsed, "confidence", 0.5),
	}, nil
}

// =============================================================================
// COGNITIVE STYLE PROVIDER
// =============================================================================

type cognitiveStyleProvider struct {
	*module.Base
}

func newCognitiveStyleProvider(d Deps) *cognitiveStyleProvider {
	return &cognitiveStyleProvider{Base: module.NewBase("cognitive_style", d.llmConfig("cognitive_analysis"))}
}

func (p *cognitiveStyleProvider) Process(ctx context.Context, input types.PerceptionInput, pctx map[string]any) (CognitiveStyleResult, error) {
	history := ""
	if h, ok := pctx["interaction_history"].(string); ok {
		history = h
	}
	vars := map[string]any{
		"query":               input.Query,
		"interaction_history": history,
	}

	parsed, raw, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return CognitiveStyleResult{}, err
		}
		return CognitiveStyleResult{
			ThinkingMode:        "linear",
			CognitiveComplexity: 0.5,
			AbstractionLevel:    0.5,
			CreativityTendency:  0.5,
			Confidence:          module.FallbackConfidence,
			Raw:                 raw,
		}, nil
	}

	return CognitiveStyleResult{
		ThinkingMode:        module.EnumField(parsed, "thinking_mode", thinkingModes, "linear"),
		CognitiveComplexity: module.ScoreField(parsed, "cognitive_complexity", 0.5),
		AbstractionLevel:    module.ScoreField(parsed, "abstraction_level", 0.5),
		CreativityTendency:  module.ScoreField(parsed, "creativity_tendency", 0.5),
		Confidence:          module.ScoreField(parsed, "confidence", 0.5),
	}, nil
}

// =============================================================================
// DOMAIN INFERENCE PROVIDER
// =============================================================================

type domainInferenceProvider struct {
	*module.Base
}

func newDomainInferenceProvider(d Deps) *domainInferenceProvider {
	return &domainInferenceProvider{Base: module.NewBase("domain_inference", d.llmConfig("domain_inference_basic"))}
}

func (p *domainInferenceProvider) Process(ctx context.Context, input types.PerceptionInput, pctx map[string]any) (DomainInferenceResult, error) {
	vars := map[string]any{
		"query":   input.Query,
		"domains": strings.Join(BaseDomains, ", "),
	}
	if c, ok := pctx["context"]; ok {
		vars["context"] = c
	}

	parsed, raw, err := p.Complete(ctx, vars)
	if err != nil {
		if errors.Is(err, module.ErrNotInitialized) {
			return DomainInferenceResult{}, err
		}
		return DomainInferenceResult{
			Domains:       []string{"technology"},
			PrimaryDomain: "technology",
			Confidence:    module.FallbackConfidence,
			Raw:           raw,
		}, nil
	}

	domains := filterKnownDomains(module.StringsField(parsed, "domains"))
	if len(domains) == 0 {
		domains = []string{"technology"}
	}
	primary := module.StringField(parsed, "primary_domain", domains[0])
	if !isKnownDomain(primary) {
		primary = domains[0]
	}
	return DomainInferenceResult{
		Domains:       domains,
		PrimaryDomain: primary,
		Confidence:    module.ScoreField(parsed, "confidence", 0.5),
	}, nil
}

func isKnownDomain(d string) bool {
	for _, known := range BaseDomains {
		if d == known {
			return true
		}
	}
	return false
}

func filterKnownDomains(in []string) []string {
	var out []string
	for _, d := range in {
		if isKnownDomain(d) {
			out = append(out, d)
		}
	}
	return out
}
