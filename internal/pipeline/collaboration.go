package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// CollaborationLayer generates alternative perspectives and cognitive
// challenges on top of the behavior layer's content. It is optional;
// the orchestrator skips it entirely when disabled.
type CollaborationLayer struct {
	deps   Deps
	logger *zap.Logger

	perspectiveMgr *module.Manager[types.CollaborationInput, types.PerspectiveGenerationResult]
	challengeMgr   *module.Manager[types.CollaborationInput, types.CognitiveChallengeResult]

	mu      sync.Mutex
	history []collaborationRecord

	initialized bool
}

const collaborationHistoryBound = 100

type collaborationRecord struct {
	Query         string
	Effectiveness float64
	Timestamp     time.Time
}

// NewCollaborationLayer constructs the layer; call Initialize before Process.
func NewCollaborationLayer(deps Deps) *CollaborationLayer {
	return &CollaborationLayer{
		deps:   deps,
		logger: deps.logger().With(zap.String("layer", "collaboration")),
	}
}

// Initialize builds the capability managers; always returns true.
func (l *CollaborationLayer) Initialize(ctx context.Context) bool {
	l.perspectiveMgr = module.NewManager[types.CollaborationInput, types.PerspectiveGenerationResult](l.logger)
	l.challengeMgr = module.NewManager[types.CollaborationInput, types.CognitiveChallengeResult](l.logger)

	if l.deps.Client != nil {
		l.perspectiveMgr.Register(ctx, "perspective_generation", newPerspectiveProvider(l.deps))
		l.challengeMgr.Register(ctx, "cognitive_challenge", newChallengeProvider(l.deps))
	}

	l.initialized = true
	l.logger.Info("layer initialized",
		zap.Bool("llm_backed", l.perspectiveMgr.HasProviders()))
	return true
}

// Process generates perspectives and challenges, scores the interaction,
// and enhances the content when the result is rich enough to warrant it.
func (l *CollaborationLayer) Process(ctx context.Context, input types.CollaborationInput) *types.CollaborationOutput {
	start := time.Now()
	out := &types.CollaborationOutput{LayerOutput: types.NewLayerOutput("collaboration")}
	out.CollaborationInsights = map[string]any{}

	if !l.initialized {
		out.Fail(start, fmt.Errorf("collaboration layer not initialized"))
		return out
	}
	if input.UserProfile == nil {
		out.Fail(start, fmt.Errorf("collaboration input missing user profile"))
		return out
	}

	out.AddStep("generate_perspectives")
	perspectives, err := l.perspectiveMgr.Process(ctx, input, "", nil)
	if err != nil {
		if !errors.Is(err, module.ErrProviderNotFound) {
			out.Fail(start, err)
			return out
		}
		perspectives = types.PerspectiveGenerationResult{
			GenerationMetadata: map[string]any{"fallback": true},
		}
	}
	out.PerspectiveGeneration = perspectives

	out.AddStep("generate_challenges")
	challenges, err := l.challengeMgr.Process(ctx, input, "", nil)
	if err != nil {
		if !errors.Is(err, module.ErrProviderNotFound) {
			out.Fail(start, err)
			return out
		}
		challenges = types.CognitiveChallengeResult{}
	}
	out.CognitiveChallenge = challenges

	out.AddStep("derive_insights")
	orchestrated := l.perspectiveMgr.HasProviders() && l.challengeMgr.HasProviders()
	out.CollaborationInsights = collaborationInsights(input.UserProfile, perspectives, challenges, orchestrated)

	out.AddStep("enhance_content")
	out.EnhancedContent = enhanceContent(input, perspectives, challenges)

	effectiveness, _ := out.CollaborationInsights["collaboration_effectiveness"].(float64)
	l.record(input.Query, effectiveness)

	out.Complete(start)
	return out
}

// Cleanup tears down the managers. History survives cleanup so stats
// remain queryable after shutdown.
func (l *CollaborationLayer) Cleanup(ctx context.Context) {
	if l.perspectiveMgr != nil {
		l.perspectiveMgr.Cleanup(ctx)
	}
	if l.challengeMgr != nil {
		l.challengeMgr.Cleanup(ctx)
	}
	l.initialized = false
}

// HistorySize reports recorded collaboration interactions.
func (l *CollaborationLayer) HistorySize() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.history)
}

func (l *CollaborationLayer) record(query string, effectiveness float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.history = append(l.history, collaborationRecord{
		Query:         query,
		Effectiveness: effectiveness,
		Timestamp:     time.Now().UTC(),
	})
	if len(l.history) > collaborationHistoryBound {
		l.history = l.history[len(l.history)-collaborationHistoryBound:]
	}
}

// collaborationInsights scores how well the challenge stretches the user
// and how effective the interaction was overall.
func collaborationInsights(profile *types.UserProfile, perspectives types.PerspectiveGenerationResult, challenges types.CognitiveChallengeResult, orchestrated bool) map[string]any {
	stretch := cognitiveStretch(challenges.ChallengeIntensity, profile.CognitiveComplexity())

	appropriateness := module.Clamp01(
		1.0 - math.Abs(challenges.ChallengeIntensity-(profile.CognitiveComplexity()+0.1)))

	diversityTerm := math.Min(1.0,
		perspectives.PerspectiveDiversity*float64(len(perspectives.Perspectives))/5.0)
	orchestrationTerm := 0.2
	if orchestrated {
		orchestrationTerm = 0.8
	}
	effectiveness := (diversityTerm + challenges.EducationalValue + orchestrationTerm) / 3.0

	return map[string]any{
		"cognitive_stretch":           stretch,
		"challenge_appropriateness":   appropriateness,
		"collaboration_effectiveness": effectiveness,
		"perspective_count":           len(perspectives.Perspectives),
	}
}

// cognitiveStretch peaks when the challenge sits slightly above the
// user's level. The sweet spot is a gap of 0.1 to 0.3; smaller gaps
// ramp up linearly and larger gaps decay to zero by 0.6.
func cognitiveStretch(intensity, userLevel float64) float64 {
	gap := intensity - userLevel
	switch {
	case gap < 0.1:
		return math.Max(0, gap/0.1)
	case gap <= 0.3:
		return 1.0
	default:
		return math.Max(0, 1.0-(gap-0.3)/0.3)
	}
}

// enhanceContent appends perspectives and challenges to the behavior
// content when the interaction produced enough substance.
func enhanceContent(input types.CollaborationInput, perspectives types.PerspectiveGenerationResult, challenges types.CognitiveChallengeResult) string {
	base := ""
	if input.BehaviorOutput != nil {
		base = input.BehaviorOutput.AdaptedContent.Content
	}

	if perspectives.PerspectiveDiversity <= 0.6 && challenges.ChallengeIntensity <= 0.6 {
		return base
	}

	var sb strings.Builder
	sb.WriteString(base)
	if perspectives.PerspectiveDiversity > 0.6 && len(perspectives.Perspectives) > 0 {
		sb.WriteString("\n\nAlternative perspectives:\n")
		for _, p := range perspectives.Perspectives {
			fmt.Fprintf(&sb, "- (%s) %s\n", p.Stance, p.Content)
		}
	}
	if challenges.ChallengeIntensity > 0.6 && len(challenges.Challenges) > 0 {
		sb.WriteString("\nThings to think about:\n")
		for _, c := range challenges.Challenges {
			fmt.Fprintf(&sb, "- %s\n", c)
		}
	}
	return sb.String()
}
