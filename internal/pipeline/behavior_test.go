package pipeline

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogniflow/internal/llm"
	"cogniflow/internal/types"
)

func behaviorInput(complexity float64, thinkingMode string) types.BehaviorInput {
	return types.BehaviorInput{
		Query: "how do neural networks learn",
		UserProfile: &types.UserProfile{
			CognitiveCharacteristics: map[string]any{
				"thinking_mode":        thinkingMode,
				"cognitive_complexity": 0.5,
			},
			InteractionPreferences: map[string]any{},
		},
		ContextProfile: types.ContextProfile{ComplexityLevel: complexity},
	}
}

func TestAdaptContent(t *testing.T) {
	tests := []struct {
		name          string
		complexity    float64
		thinkingMode  string
		wantDensity   string
		wantLoad      float64
		wantStructure string
	}{
		{"complex task", 0.8, "linear", "high", 0.6, "linear"},
		{"simple task", 0.2, "linear", "low", 0.3, "linear"},
		{"middling task", 0.5, "linear", "medium", 0.5, "linear"},
		{"creative thinker", 0.5, "creative", "medium", 0.5, "associative"},
		{"analytical thinker", 0.5, "analytical", "medium", 0.5, "hierarchical"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := adaptContent(behaviorInput(tt.complexity, tt.thinkingMode))
			assert.Equal(t, tt.wantDensity, got.InformationDensity)
			assert.InDelta(t, tt.wantLoad, got.CognitiveLoad, 1e-9)
			assert.Equal(t, tt.wantStructure, got.StructureType)
		})
	}
}

func TestQualityMetrics(t *testing.T) {
	profile := &types.UserProfile{
		CognitiveCharacteristics: map[string]any{
			"cognitive_complexity": 0.625,
			"cognitive_style":      "structured",
		},
		InteractionPreferences: map[string]any{"information_density": "medium"},
	}
	adapted := types.AdaptedContent{
		Content:            strings.Repeat("x", 500),
		CognitiveLoad:      0.5,
		InformationDensity: "medium",
		StructureType:      "hierarchical",
	}

	m := qualityMetrics(adapted, profile)

	assert.InDelta(t, 1.0, m["content_length"], 1e-9)
	// 0.5/0.625 = 0.8, exactly the optimal load ratio.
	assert.InDelta(t, 1.0, m["cognitive_load_balance"], 1e-9)
	assert.InDelta(t, 1.0, m["density_match"], 1e-9)
	assert.InDelta(t, 1.0, m["structure_compat"], 1e-9)
	assert.InDelta(t, 1.0, m["overall"], 1e-9)
}

func TestQualityMetricsPenalties(t *testing.T) {
	profile := &types.UserProfile{
		CognitiveCharacteristics: map[string]any{
			"cognitive_complexity": 1.0,
			"cognitive_style":      "creative",
		},
		InteractionPreferences: map[string]any{"information_density": "high"},
	}
	adapted := types.AdaptedContent{
		Content:            "short",
		CognitiveLoad:      0.3,
		InformationDensity: "low",
		StructureType:      "linear",
	}

	m := qualityMetrics(adapted, profile)

	assert.InDelta(t, 0.3, m["content_length"], 1e-9)
	// ratio 0.3, deviation 0.5, penalty 2x drives the score to zero.
	assert.InDelta(t, 0.0, m["cognitive_load_balance"], 1e-9)
	assert.InDelta(t, 0.4, m["density_match"], 1e-9)
	assert.InDelta(t, 0.5, m["structure_compat"], 1e-9)
}

func TestBehaviorFallbackWithoutClient(t *testing.T) {
	l := NewBehaviorLayer(testDeps(nil))
	require.True(t, l.Initialize(context.Background()))

	input := behaviorInput(0.5, "linear")
	input.CognitionOutput = &types.CognitionOutput{
		SemanticEnhancement: types.SemanticEnhancementResult{
			EnhancedContent: "plants convert sunlight into energy",
		},
	}

	out := l.Process(context.Background(), input)

	require.Equal(t, types.StatusCompleted, out.Status)
	assert.Equal(t, "plants convert sunlight into energy", out.AdaptedContent.Content)
	assert.Equal(t, true, out.GenerationMetadata["fallback"])
	assert.NotEmpty(t, out.QualityMetrics)
}

func TestBehaviorGeneratesWithClient(t *testing.T) {
	var gotMessages []llm.Message
	client := &fnClient{chatFn: func(_ context.Context, messages []llm.Message, _ llm.Options) (string, error) {
		gotMessages = messages
		return "Neural networks learn by adjusting weights through backpropagation.", nil
	}}

	l := NewBehaviorLayer(testDeps(client))
	require.True(t, l.Initialize(context.Background()))

	out := l.Process(context.Background(), behaviorInput(0.8, "analytical"))

	require.Equal(t, types.StatusCompleted, out.Status)
	assert.Contains(t, out.AdaptedContent.Content, "backpropagation")
	assert.Equal(t, true, out.GenerationMetadata["model_generated"])

	require.Len(t, gotMessages, 2)
	assert.Equal(t, "system", gotMessages[0].Role)
	assert.Contains(t, gotMessages[0].Content, "information density: high")
	assert.Contains(t, gotMessages[0].Content, "structure: hierarchical")
}

func TestBehaviorGenerationErrorFallsBack(t *testing.T) {
	l := NewBehaviorLayer(testDeps(failingClient(errors.New("model down"))))
	require.True(t, l.Initialize(context.Background()))

	input := behaviorInput(0.5, "linear")
	out := l.Process(context.Background(), input)

	require.Equal(t, types.StatusCompleted, out.Status)
	assert.Equal(t, input.Query, out.AdaptedContent.Content)
	assert.Equal(t, true, out.GenerationMetadata["fallback"])
}

func TestBehaviorStream(t *testing.T) {
	client := &fnStreamClient{
		chunks: []string{"Neural networks ", "learn by ", "gradient descent."},
	}

	l := NewBehaviorLayer(testDeps(client))
	require.True(t, l.Initialize(context.Background()))

	chunks, done := l.ProcessStream(context.Background(), behaviorInput(0.5, "linear"))

	var got []string
	for c := range chunks {
		got = append(got, c)
	}
	out := <-done

	assert.Equal(t, []string{"Neural networks ", "learn by ", "gradient descent."}, got)
	require.Equal(t, types.StatusCompleted, out.Status)
	assert.Equal(t, "Neural networks learn by gradient descent.", out.AdaptedContent.Content)
}

func TestBehaviorStreamErrorFallsBack(t *testing.T) {
	client := &fnStreamClient{
		chunks:    []string{"partial"},
		streamErr: errors.New("stream broke"),
	}

	l := NewBehaviorLayer(testDeps(client))
	require.True(t, l.Initialize(context.Background()))

	input := behaviorInput(0.5, "linear")
	chunks, done := l.ProcessStream(context.Background(), input)

	var all strings.Builder
	for c := range chunks {
		all.WriteString(c)
	}
	out := <-done

	require.Equal(t, types.StatusCompleted, out.Status)
	assert.Equal(t, true, out.GenerationMetadata["fallback"])
	assert.Equal(t, input.Query, out.AdaptedContent.Content)
}
