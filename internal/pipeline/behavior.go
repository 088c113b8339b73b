package pipeline

import (
	"context"
	"fmt"
	"math"
	"strings"
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/llm"
	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// BehaviorLayer adapts and generates the response content. Unlike the
// other layers it calls the model directly rather than through a
// provider manager: generation is free-text, not structured extraction.
type BehaviorLayer struct {
	deps   Deps
	logger *zap.Logger

	initialized bool
}

// NewBehaviorLayer constructs the layer; call Initialize before Process.
func NewBehaviorLayer(deps Deps) *BehaviorLayer {
	return &BehaviorLayer{
		deps:   deps,
		logger: deps.logger().With(zap.String("layer", "behavior")),
	}
}

// Initialize always succeeds; without a client the layer serves adapted
// cognition content instead of generated text.
func (l *BehaviorLayer) Initialize(ctx context.Context) bool {
	l.initialized = true
	l.logger.Info("layer initialized", zap.Bool("llm_backed", l.deps.Client != nil))
	return true
}

// Process adapts presentation to the user, generates content, and scores
// the result. Generation failure degrades to cognition-derived content;
// the output still completes.
func (l *BehaviorLayer) Process(ctx context.Context, input types.BehaviorInput) *types.BehaviorOutput {
	start := time.Now()
	out := &types.BehaviorOutput{LayerOutput: types.NewLayerOutput("behavior")}
	out.GenerationMetadata = map[string]any{}
	out.QualityMetrics = map[string]float64{}

	if !l.initialized {
		out.Fail(start, fmt.Errorf("behavior layer not initialized"))
		return out
	}
	if input.UserProfile == nil {
		out.Fail(start, fmt.Errorf("behavior input missing user profile"))
		return out
	}

	out.AddStep("adapt_strategy")
	adapted := adaptContent(input)

	out.AddStep("generate_content")
	content, meta := l.generate(ctx, input, adapted)
	adapted.Content = content
	out.AdaptedContent = adapted
	out.GenerationMetadata = meta

	out.AddStep("score_quality")
	out.QualityMetrics = qualityMetrics(adapted, input.UserProfile)

	out.Complete(start)
	return out
}

// ProcessStream behaves like Process but emits generated content
// incrementally. The returned channel closes when generation ends; the
// final BehaviorOutput is delivered on the second channel.
func (l *BehaviorLayer) ProcessStream(ctx context.Context, input types.BehaviorInput) (<-chan string, <-chan *types.BehaviorOutput) {
	chunks := make(chan string)
	done := make(chan *types.BehaviorOutput, 1)

	go func() {
		defer close(chunks)
		defer close(done)

		start := time.Now()
		out := &types.BehaviorOutput{LayerOutput: types.NewLayerOutput("behavior")}
		out.GenerationMetadata = map[string]any{}
		out.QualityMetrics = map[string]float64{}

		if !l.initialized || input.UserProfile == nil {
			out.Fail(start, fmt.Errorf("behavior layer not ready for streaming"))
			done <- out
			return
		}

		out.AddStep("adapt_strategy")
		adapted := adaptContent(input)

		out.AddStep("generate_content")
		var sb strings.Builder
		emit := func(chunk string) bool {
			sb.WriteString(chunk)
			select {
			case chunks <- chunk:
				return true
			case <-ctx.Done():
				return false
			}
		}

		meta := map[string]any{"mode": "stream"}
		sc, streaming := l.deps.Client.(llm.StreamingClient)
		if streaming {
			contentCh, errCh := sc.ChatStream(ctx, l.buildMessages(input, adapted), llm.Options{
				Temperature: l.deps.Temperature,
				MaxTokens:   l.deps.MaxTokens,
			})
			for chunk := range contentCh {
				if !emit(chunk) {
					out.Fail(start, ctx.Err())
					done <- out
					return
				}
			}
			if err := <-errCh; err != nil {
				l.logger.Warn("streaming generation failed, using fallback", zap.Error(err))
				meta["fallback"] = true
				sb.Reset()
				if !emit(fallbackContent(input)) {
					out.Fail(start, ctx.Err())
					done <- out
					return
				}
			}
		} else {
			content, m := l.generate(ctx, input, adapted)
			meta = m
			if !emit(content) {
				out.Fail(start, ctx.Err())
				done <- out
				return
			}
		}

		adapted.Content = sb.String()
		out.AdaptedContent = adapted
		out.GenerationMetadata = meta

		out.AddStep("score_quality")
		out.QualityMetrics = qualityMetrics(adapted, input.UserProfile)
		out.Complete(start)
		done <- out
	}()

	return chunks, done
}

func (l *BehaviorLayer) Cleanup(ctx context.Context) {
	l.initialized = false
}

func (l *BehaviorLayer) generate(ctx context.Context, input types.BehaviorInput, adapted types.AdaptedContent) (string, map[string]any) {
	if l.deps.Client == nil {
		return fallbackContent(input), map[string]any{"fallback": true, "reason": "no client"}
	}

	callCtx := ctx
	if l.deps.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, l.deps.Timeout)
		defer cancel()
	}

	content, err := l.deps.Client.Chat(callCtx, l.buildMessages(input, adapted), llm.Options{
		Temperature: l.deps.Temperature,
		MaxTokens:   l.deps.MaxTokens,
	})
	if err != nil || strings.TrimSpace(content) == "" {
		l.logger.Warn("generation failed, using fallback", zap.Error(err))
		return fallbackContent(input), map[string]any{"fallback": true, "raw_error": fmt.Sprint(err)}
	}
	return content, map[string]any{"mode": "chat", "model_generated": true}
}

// buildMessages derives a system prompt from the adaptation decisions
// and the user's profile, then attaches cognition context.
func (l *BehaviorLayer) buildMessages(input types.BehaviorInput, adapted types.AdaptedContent) []llm.Message {
	var sys strings.Builder
	fmt.Fprintf(&sys, "You are a personalized assistant. Adapt your answer to the user:\n")
	fmt.Fprintf(&sys, "- information density: %s\n", adapted.InformationDensity)
	fmt.Fprintf(&sys, "- structure: %s\n", adapted.StructureType)
	fmt.Fprintf(&sys, "- thinking mode: %s\n", input.UserProfile.ThinkingMode())
	fmt.Fprintf(&sys, "- abstraction level: %.1f (0=concrete, 1=abstract)\n", input.UserProfile.AbstractionLevel())
	if input.GenerationPrompt != "" {
		sys.WriteString(input.GenerationPrompt)
		sys.WriteString("\n")
	}

	var user strings.Builder
	user.WriteString(input.Query)
	if c := input.CognitionOutput; c != nil {
		if e := c.SemanticEnhancement.EnhancedContent; e != "" && e != input.Query {
			fmt.Fprintf(&user, "\n\nRelevant context:\n%s", e)
		}
		if len(c.AnalogyReasoning.Analogies) > 0 {
			fmt.Fprintf(&user, "\n\nUseful analogies: %s",
				strings.Join(c.AnalogyReasoning.Analogies, "; "))
		}
	}

	return llm.WithSystem(sys.String(), user.String())
}

// fallbackContent serves the cognition layer's enhanced content when
// generation is unavailable, or the query itself as a last resort.
func fallbackContent(input types.BehaviorInput) string {
	if c := input.CognitionOutput; c != nil && c.SemanticEnhancement.EnhancedContent != "" {
		return c.SemanticEnhancement.EnhancedContent
	}
	return input.Query
}

// adaptContent picks density, target load, and structure from the task
// complexity and the user's thinking mode.
func adaptContent(input types.BehaviorInput) types.AdaptedContent {
	complexity := input.ContextProfile.ComplexityLevel

	density := "medium"
	load := 0.5
	switch {
	case complexity > 0.7:
		density = "high"
		load = 0.6
	case complexity < 0.3:
		density = "low"
		load = 0.3
	}

	structure := "linear"
	switch input.UserProfile.ThinkingMode() {
	case "creative":
		structure = "associative"
	case "analytical":
		structure = "hierarchical"
	}

	strategy := fmt.Sprintf("%s_density_%s", density, structure)

	return types.AdaptedContent{
		AdaptationStrategy:   strategy,
		CognitiveLoad:        load,
		InformationDensity:   density,
		StructureType:        structure,
		PersonalizationLevel: module.Clamp01(0.5 + 0.5*input.UserProfile.CognitiveComplexity()),
	}
}

var densityValues = map[string]float64{"low": 0.2, "medium": 0.5, "high": 0.8}

var structureCompatibility = map[string][]string{
	"structured": {"hierarchical", "linear"},
	"flexible":   {"associative", "hierarchical"},
	"creative":   {"associative", "creative"},
}

// qualityMetrics scores the adapted content on length, cognitive load
// balance, density fit, and structural fit, then averages them.
func qualityMetrics(adapted types.AdaptedContent, profile *types.UserProfile) map[string]float64 {
	n := len(adapted.Content)
	var lengthScore float64
	switch {
	case n >= 100 && n <= 1000:
		lengthScore = 1.0
	case n >= 50 && n <= 2000:
		lengthScore = 0.8
	case n < 50:
		lengthScore = 0.3
	default:
		lengthScore = 0.6
	}

	ratio := adapted.CognitiveLoad / math.Max(0.1, profile.CognitiveComplexity())
	loadBalance := math.Max(0, 1.0-2.0*math.Abs(ratio-0.8))

	preferred, _ := profile.InteractionPreferences["information_density"].(string)
	pv, ok := densityValues[preferred]
	if !ok {
		pv = 0.5
	}
	densityMatch := 1.0 - math.Abs(densityValues[adapted.InformationDensity]-pv)

	style, _ := profile.CognitiveCharacteristics["cognitive_style"].(string)
	structureScore := 0.5
	for _, s := range structureCompatibility[style] {
		if s == adapted.StructureType {
			structureScore = 1.0
			break
		}
	}

	overall := (lengthScore + loadBalance + densityMatch + structureScore) / 4.0

	return map[string]float64{
		"content_length":         lengthScore,
		"cognitive_load_balance": loadBalance,
		"density_match":          densityMatch,
		"structure_compat":       structureScore,
		"overall":                overall,
	}
}
