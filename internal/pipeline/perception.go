package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"cogniflow/internal/module"
	"cogniflow/internal/types"
)

// PerceptionLayer models the user and the task context. It owns the
// process-wide user-profile store; concurrent updates to the same user
// resolve last-writer-wins.
type PerceptionLayer struct {
	deps   Deps
	logger *zap.Logger

	mu       sync.RWMutex
	profiles map[string]*types.UserProfile

	contextMgr *module.Manager[types.PerceptionInput, ContextAnalysisResult]
	styleMgr   *module.Manager[types.PerceptionInput, CognitiveStyleResult]
	domainMgr  *module.Manager[types.PerceptionInput, DomainInferenceResult]

	initialized bool
}

// NewPerceptionLayer constructs the layer; call Initialize before Process.
func NewPerceptionLayer(deps Deps) *PerceptionLayer {
	return &PerceptionLayer{
		deps:     deps,
		logger:   deps.logger().With(zap.String("layer", "perception")),
		profiles: map[string]*types.UserProfile{},
	}
}

// Initialize builds the capability managers. Provider registration
// failures degrade the layer rather than failing it, so this always
// returns true.
func (l *PerceptionLayer) Initialize(ctx context.Context) bool {
	l.contextMgr = module.NewManager[types.PerceptionInput, ContextAnalysisResult](l.logger)
	l.styleMgr = module.NewManager[types.PerceptionInput, CognitiveStyleResult](l.logger)
	l.domainMgr = module.NewManager[types.PerceptionInput, DomainInferenceResult](l.logger)

	if l.deps.Client != nil {
		l.contextMgr.Register(ctx, "context_analysis", newContextAnalysisProvider(l.deps))
		l.styleMgr.Register(ctx, "cognitive_style", newCognitiveStyleProvider(l.deps))
		l.domainMgr.Register(ctx, "domain_inference", newDomainInferenceProvider(l.deps))
	}

	l.initialized = true
	l.logger.Info("layer initialized",
		zap.Bool("llm_backed", l.contextMgr.HasProviders()))
	return true
}

// Process analyzes the query and user, returning a fully populated
// output even on internal failure.
func (l *PerceptionLayer) Process(ctx context.Context, input types.PerceptionInput) *types.PerceptionOutput {
	start := time.Now()
	out := &types.PerceptionOutput{LayerOutput: types.NewLayerOutput("perception")}
	out.PerceptionInsights = map[string]any{}
	out.ContextProfile = types.ContextProfile{
		TaskType:              defaultTaskType,
		ComplexityLevel:       0.5,
		DomainCharacteristics: map[string]any{},
		EnvironmentalFactors:  map[string]any{},
	}

	if !l.initialized {
		out.Fail(start, fmt.Errorf("perception layer not initialized"))
		return out
	}

	out.AddStep("load_profile")
	profile := l.getOrCreateProfile(input.UserID)
	out.UserProfile = profile

	pctx := map[string]any{}
	if c, ok := input.Context["context"]; ok {
		pctx["context"] = c
	}

	// The three analyses are independent; run them together. A manager
	// with no providers is the normal degraded mode and falls back to
	// its heuristic without disturbing the other analyses. Anything
	// else is a stage-internal failure.
	var (
		ctxResult    ContextAnalysisResult
		styleResult  CognitiveStyleResult
		domainResult DomainInferenceResult
		degraded     atomic.Bool
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		r, err := l.contextMgr.Process(gctx, input, "", pctx)
		if errors.Is(err, module.ErrProviderNotFound) {
			degraded.Store(true)
			ctxResult = heuristicContextAnalysis(input.Query)
			return nil
		}
		ctxResult = r
		return err
	})
	g.Go(func() error {
		r, err := l.styleMgr.Process(gctx, input, "", pctx)
		if errors.Is(err, module.ErrProviderNotFound) {
			degraded.Store(true)
			styleResult = heuristicStyle(profile)
			return nil
		}
		styleResult = r
		return err
	})
	g.Go(func() error {
		r, err := l.domainMgr.Process(gctx, input, "", pctx)
		if errors.Is(err, module.ErrProviderNotFound) {
			degraded.Store(true)
			domainResult = heuristicDomains(input.Query)
			return nil
		}
		domainResult = r
		return err
	})

	if err := g.Wait(); err != nil {
		out.Fail(start, err)
		return out
	}
	if degraded.Load() {
		out.AddStep("heuristic_analysis")
	} else {
		out.AddStep("model_analysis")
	}

	out.ContextProfile = types.ContextProfile{
		TaskType:        ctxResult.TaskType,
		ComplexityLevel: ctxResult.ComplexityLevel,
		DomainCharacteristics: map[string]any{
			"domains":        domainResult.Domains,
			"primary_domain": domainResult.PrimaryDomain,
			"confidence":     domainResult.Confidence,
		},
		EnvironmentalFactors: map[string]any{
			"urgency":          ctxResult.UrgencyLevel,
			"key_requirements": ctxResult.KeyRequirements,
		},
	}

	out.AddStep("refine_profile")
	l.absorbStyle(profile, styleResult)

	out.AddStep("derive_insights")
	out.PerceptionInsights = perceptionInsights(profile, out.ContextProfile)

	out.Complete(start)
	return out
}

// Cleanup clears the capability managers and returns the layer to the
// uninitialized state. The profile store survives cleanup.
func (l *PerceptionLayer) Cleanup(ctx context.Context) {
	if l.contextMgr != nil {
		l.contextMgr.Cleanup(ctx)
	}
	if l.styleMgr != nil {
		l.styleMgr.Cleanup(ctx)
	}
	if l.domainMgr != nil {
		l.domainMgr.Cleanup(ctx)
	}
	l.initialized = false
}

// GetUserProfile is a pure lookup; nil when the user is unknown.
func (l *PerceptionLayer) GetUserProfile(userID string) *types.UserProfile {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return l.profiles[userID]
}

// UpdateUserProfile merges interaction observations into the stored
// profile, creating it first when absent.
func (l *PerceptionLayer) UpdateUserProfile(userID string, interaction map[string]any) bool {
	profile := l.getOrCreateProfile(userID)

	l.mu.Lock()
	defer l.mu.Unlock()
	for k, v := range interaction {
		switch k {
		case "thinking_mode":
			if s, ok := v.(string); ok && s != "" {
				profile.CognitiveCharacteristics["thinking_mode"] = s
			}
		case "cognitive_complexity", "abstraction_level", "creativity_tendency":
			if f, ok := types.ToFloat(v); ok {
				profile.CognitiveCharacteristics[k] = module.Clamp01(f)
			}
		case "domains":
			for _, d := range types.ToStrings(v) {
				profile.KnowledgeProfile["core_domains"] = appendUnique(
					types.ToStrings(profile.KnowledgeProfile["core_domains"]), d)
			}
		default:
			profile.InteractionPreferences[k] = v
		}
	}
	profile.UpdatedAt = time.Now().UTC()
	return true
}

func (l *PerceptionLayer) getOrCreateProfile(userID string) *types.UserProfile {
	l.mu.Lock()
	defer l.mu.Unlock()
	if p, ok := l.profiles[userID]; ok {
		return p
	}
	now := time.Now().UTC()
	p := &types.UserProfile{
		UserID: userID,
		CognitiveCharacteristics: map[string]any{
			"thinking_mode":        "linear",
			"cognitive_complexity": 0.5,
			"abstraction_level":    0.5,
			"creativity_tendency":  0.5,
			"cognitive_style":      "structured",
		},
		KnowledgeProfile: map[string]any{
			"core_domains":    []string{"general"},
			"edge_domains":    []string{},
			"knowledge_depth": 0.5,
		},
		InteractionPreferences: map[string]any{
			"information_density": "medium",
		},
		CreatedAt: now,
		UpdatedAt: now,
	}
	l.profiles[userID] = p
	l.logger.Debug("created user profile", zap.String("user_id", userID))
	return p
}

// absorbStyle blends a style estimate into the profile when the model is
// reasonably confident in it.
func (l *PerceptionLayer) absorbStyle(profile *types.UserProfile, style CognitiveStyleResult) {
	if style.Confidence <= module.FallbackConfidence {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	profile.CognitiveCharacteristics["thinking_mode"] = style.ThinkingMode
	profile.CognitiveCharacteristics["cognitive_complexity"] = style.CognitiveComplexity
	profile.CognitiveCharacteristics["abstraction_level"] = style.AbstractionLevel
	profile.CognitiveCharacteristics["creativity_tendency"] = style.CreativityTendency
	profile.UpdatedAt = time.Now().UTC()
}

// perceptionInsights derives readiness and fit scores from the profile
// and task context.
func perceptionInsights(profile *types.UserProfile, cp types.ContextProfile) map[string]any {
	taskComplexity := cp.ComplexityLevel
	userComplexity := profile.CognitiveComplexity()

	readiness := math.Min(1.0, userComplexity/math.Max(0.1, taskComplexity))

	match := 0.7
	switch cp.TaskType {
	case "creative":
		if profile.CreativityTendency() > 0.6 {
			match = 0.9
		}
	case "analytical":
		if profile.ThinkingMode() == "analytical" {
			match = 0.9
		}
	}

	var suggestions []string
	if delta := taskComplexity - userComplexity; delta > 0.2 {
		suggestions = append(suggestions, "simplify_presentation")
	} else if delta < -0.2 {
		suggestions = append(suggestions, "increase_depth")
	}

	return map[string]any{
		"user_readiness":          readiness,
		"cognitive_match":         match,
		"adaptation_suggestions":  suggestions,
		"domain_familiarity":      domainFamiliarity(profile, cp),
		"recommended_interaction": profile.InteractionPreferences["information_density"],
	}
}

func domainFamiliarity(profile *types.UserProfile, cp types.ContextProfile) float64 {
	primary, _ := cp.DomainCharacteristics["primary_domain"].(string)
	if primary == "" {
		return 0.5
	}
	for _, d := range profile.CoreDomains() {
		if d == primary || d == "general" {
			return 0.8
		}
	}
	for _, d := range profile.EdgeDomains() {
		if d == primary {
			return 0.5
		}
	}
	return 0.2
}

// =============================================================================
// HEURISTIC FALLBACKS
// =============================================================================

func heuristicContextAnalysis(query string) ContextAnalysisResult {
	q := strings.ToLower(query)

	taskType := "exploratory"
	switch {
	case containsAny(q, "create", "design", "imagine", "invent", "write a"):
		taskType = "creative"
	case containsAny(q, "analyze", "compare", "evaluate", "why", "explain"):
		taskType = "analytical"
	case containsAny(q, "what is", "define", "who is", "when did", "list"):
		taskType = "retrieval"
	}

	// Longer, multi-clause queries read as more complex.
	words := len(strings.Fields(query))
	complexity := module.Clamp01(0.3 + float64(words)/50.0 + 0.1*float64(strings.Count(query, ",")))

	return ContextAnalysisResult{
		TaskType:        taskType,
		ComplexityLevel: complexity,
		UrgencyLevel:    0.2,
		Confidence:      0.5,
	}
}

func heuristicStyle(profile *types.UserProfile) CognitiveStyleResult {
	return CognitiveStyleResult{
		ThinkingMode:        profile.ThinkingMode(),
		CognitiveComplexity: profile.CognitiveComplexity(),
		AbstractionLevel:    profile.AbstractionLevel(),
		CreativityTendency:  profile.CreativityTendency(),
		Confidence:          module.FallbackConfidence,
	}
}

var domainKeywords = map[string][]string{
	"technology":  {"software", "computer", "code", "program", "api", "network", "database", "ai"},
	"science":     {"physics", "chemistry", "biology", "experiment", "theory", "quantum"},
	"education":   {"learn", "teach", "study", "course", "student"},
	"business":    {"market", "company", "startup", "revenue", "strategy", "customer"},
	"art":         {"paint", "music", "design", "aesthetic", "compose"},
	"health":      {"medical", "disease", "therapy", "diet", "exercise"},
	"finance":     {"invest", "stock", "budget", "tax", "loan", "currency"},
	"legal":       {"law", "contract", "court", "regulation", "liability"},
	"engineering": {"build", "mechanical", "circuit", "structural", "manufacture"},
	"mathematics": {"equation", "proof", "algebra", "geometry", "calculus", "statistics"},
	"philosophy":  {"ethics", "consciousness", "metaphysics", "moral", "existence"},
	"psychology":  {"behavior", "cognitive", "emotion", "memory", "motivation"},
	"history":     {"ancient", "war", "empire", "century", "revolution"},
}

func heuristicDomains(query string) DomainInferenceResult {
	q := strings.ToLower(query)
	var domains []string
	for _, domain := range BaseDomains {
		for _, kw := range domainKeywords[domain] {
			if strings.Contains(q, kw) {
				domains = append(domains, domain)
				break
			}
		}
	}
	if len(domains) == 0 {
		domains = []string{"technology"}
	}
	return DomainInferenceResult{
		Domains:       domains,
		PrimaryDomain: domains[0],
		Confidence:    0.4,
	}
}

func containsAny(s string, subs ...string) bool {
	for _, sub := range subs {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}

func appendUnique(list []string, v string) []string {
	for _, e := range list {
		if e == v {
			return list
		}
	}
	return append(list, v)
}
