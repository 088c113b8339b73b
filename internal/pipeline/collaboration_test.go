package pipeline

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogniflow/internal/types"
)

func collaborationInput() types.CollaborationInput {
	return types.CollaborationInput{
		Query:       "should cities ban cars",
		UserProfile: testProfile(0.3),
		BehaviorOutput: &types.BehaviorOutput{
			AdaptedContent: types.AdaptedContent{Content: "base answer"},
		},
	}
}

func TestCognitiveStretch(t *testing.T) {
	tests := []struct {
		name      string
		intensity float64
		userLevel float64
		want      float64
	}{
		{"sweet spot", 0.5, 0.3, 1.0},
		{"sweet spot lower edge", 0.4, 0.3, 1.0},
		{"sweet spot upper edge", 0.6, 0.3, 1.0},
		{"slightly too easy", 0.35, 0.3, 0.5},
		{"no stretch at all", 0.3, 0.3, 0.0},
		{"below user level", 0.1, 0.3, 0.0},
		{"slightly too hard", 0.75, 0.3, 0.5},
		{"far too hard", 0.95, 0.3, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, cognitiveStretch(tt.intensity, tt.userLevel), 1e-9)
		})
	}
}

func TestCollaborationHeuristicRun(t *testing.T) {
	l := NewCollaborationLayer(testDeps(nil))
	require.True(t, l.Initialize(context.Background()))

	out := l.Process(context.Background(), collaborationInput())

	require.Equal(t, types.StatusCompleted, out.Status)
	assert.Empty(t, out.PerspectiveGeneration.Perspectives)
	assert.Equal(t, "base answer", out.EnhancedContent)

	// Without providers the orchestration term is 0.2 and the other
	// terms are zero.
	eff := out.CollaborationInsights["collaboration_effectiveness"].(float64)
	assert.InDelta(t, 0.2/3.0, eff, 1e-9)

	assert.Equal(t, 1, l.HistorySize())
}

func TestCollaborationModelBackedRun(t *testing.T) {
	client := staticClient(`{
		"perspectives": [
			{"stance": "pro", "content": "fewer emissions", "rationale": "health"},
			{"stance": "con", "content": "hurts commuters", "rationale": "access"},
			{"stance": "neutral", "content": "depends on transit", "rationale": "context"},
			{"stance": "economic", "content": "shifts retail patterns", "rationale": "trade"}
		],
		"challenges": ["What about emergency vehicles?", "Who funds transit expansion?"],
		"challenge_intensity": 0.5,
		"educational_value": 0.7
	}`)

	l := NewCollaborationLayer(testDeps(client))
	require.True(t, l.Initialize(context.Background()))

	out := l.Process(context.Background(), collaborationInput())

	require.Equal(t, types.StatusCompleted, out.Status)
	require.Len(t, out.PerspectiveGeneration.Perspectives, 4)
	// Four distinct stances out of five possible.
	assert.InDelta(t, 0.8, out.PerspectiveGeneration.PerspectiveDiversity, 1e-9)

	// Intensity 0.5 against user level 0.3 lands in the stretch sweet spot.
	assert.InDelta(t, 1.0, out.CollaborationInsights["cognitive_stretch"].(float64), 1e-9)

	// Diversity 0.8 > 0.6 triggers content enhancement.
	assert.Contains(t, out.EnhancedContent, "base answer")
	assert.Contains(t, out.EnhancedContent, "Alternative perspectives:")
	assert.Contains(t, out.EnhancedContent, "fewer emissions")
}

func TestChallengeAppropriateness(t *testing.T) {
	// Ideal intensity is userLevel + 0.1.
	insights := collaborationInsights(testProfile(0.4),
		types.PerspectiveGenerationResult{},
		types.CognitiveChallengeResult{ChallengeIntensity: 0.5},
		false)
	assert.InDelta(t, 1.0, insights["challenge_appropriateness"].(float64), 1e-9)

	insights = collaborationInsights(testProfile(0.4),
		types.PerspectiveGenerationResult{},
		types.CognitiveChallengeResult{ChallengeIntensity: 0.9},
		false)
	assert.InDelta(t, 0.6, insights["challenge_appropriateness"].(float64), 1e-9)
}

func TestEnhanceContentThresholds(t *testing.T) {
	input := collaborationInput()

	quiet := enhanceContent(input,
		types.PerspectiveGenerationResult{PerspectiveDiversity: 0.5},
		types.CognitiveChallengeResult{ChallengeIntensity: 0.5})
	assert.Equal(t, "base answer", quiet)

	challenged := enhanceContent(input,
		types.PerspectiveGenerationResult{PerspectiveDiversity: 0.2},
		types.CognitiveChallengeResult{
			Challenges:         []string{"consider the opposite"},
			ChallengeIntensity: 0.7,
		})
	assert.Contains(t, challenged, "Things to think about:")
	assert.Contains(t, challenged, "consider the opposite")
	assert.NotContains(t, challenged, "Alternative perspectives:")
}

func TestCollaborationHistoryBound(t *testing.T) {
	l := NewCollaborationLayer(testDeps(nil))
	require.True(t, l.Initialize(context.Background()))

	for i := 0; i < 150; i++ {
		l.record(fmt.Sprintf("q%d", i), 0.5)
	}
	assert.Equal(t, collaborationHistoryBound, l.HistorySize())
}
