package types

// Per-layer input and output records. Data flows strictly forward:
// perception -> cognition -> behavior -> collaboration. Layers communicate
// only through these records, never by reaching into each other's state.

// =============================================================================
// PERCEPTION
// =============================================================================

// PerceptionInput carries the raw user query into the perception layer.
type PerceptionInput struct {
	UserID  string         `json:"user_id"`
	Query   string         `json:"query"`
	Context map[string]any `json:"context,omitempty"`
}

// PerceptionOutput is the perception layer's typed result.
type PerceptionOutput struct {
	LayerOutput
	UserProfile        *UserProfile   `json:"user_profile"`
	ContextProfile     ContextProfile `json:"context_profile"`
	PerceptionInsights map[string]any `json:"perception_insights"`
}

// =============================================================================
// COGNITION
// =============================================================================

// CognitionInput feeds the perception result, plus any externally
// retrieved memories, into the cognition layer.
type CognitionInput struct {
	Query             string           `json:"query"`
	UserProfile       *UserProfile     `json:"user_profile"`
	ContextProfile    ContextProfile   `json:"context_profile"`
	ExternalMemories  []MemoryFragment `json:"external_memories,omitempty"`
	PerceptionContext map[string]any   `json:"perception_context,omitempty"`
}

// MemoryActivationResult holds the fragments surfaced for a query.
type MemoryActivationResult struct {
	ActivatedFragments   []MemoryFragment `json:"activated_fragments"`
	ActivationConfidence float64          `json:"activation_confidence"`
	ActivationMetadata   map[string]any   `json:"activation_metadata,omitempty"`
}

// SemanticEnhancementResult holds gap-filling output.
type SemanticEnhancementResult struct {
	EnhancedContent       string   `json:"enhanced_content"`
	SemanticGapsFilled    []string `json:"semantic_gaps_filled"`
	EnhancementConfidence float64  `json:"enhancement_confidence"`
}

// AnalogyReasoningResult holds analogy output. All analogy providers
// produce exactly this shape; callers never probe for alternates.
type AnalogyReasoningResult struct {
	Analogies        []string  `json:"analogies"`
	ReasoningChains  [][]string `json:"reasoning_chains"`
	ConfidenceScores []float64 `json:"confidence_scores"`
}

// CognitionOutput is the cognition layer's typed result.
type CognitionOutput struct {
	LayerOutput
	MemoryActivation    MemoryActivationResult    `json:"memory_activation"`
	SemanticEnhancement SemanticEnhancementResult `json:"semantic_enhancement"`
	AnalogyReasoning    AnalogyReasoningResult    `json:"analogy_reasoning"`
	CognitiveInsights   map[string]any            `json:"cognitive_insights"`
}

// =============================================================================
// BEHAVIOR
// =============================================================================

// BehaviorInput feeds perception and cognition results into the behavior
// layer for content adaptation and generation.
type BehaviorInput struct {
	Query            string          `json:"query"`
	UserProfile      *UserProfile    `json:"user_profile"`
	ContextProfile   ContextProfile  `json:"context_profile"`
	CognitionOutput  *CognitionOutput `json:"cognition_output"`
	GenerationPrompt string          `json:"generation_prompt,omitempty"`
}

// AdaptedContent describes how generated content was shaped for the user.
type AdaptedContent struct {
	Content              string  `json:"content"`
	AdaptationStrategy   string  `json:"adaptation_strategy"`
	CognitiveLoad        float64 `json:"cognitive_load"`
	InformationDensity   string  `json:"information_density"`
	StructureType        string  `json:"structure_type"`
	PersonalizationLevel float64 `json:"personalization_level"`
}

// BehaviorOutput is the behavior layer's typed result.
type BehaviorOutput struct {
	LayerOutput
	AdaptedContent     AdaptedContent     `json:"adapted_content"`
	GenerationMetadata map[string]any     `json:"generation_metadata"`
	QualityMetrics     map[string]float64 `json:"quality_metrics"`
}

// =============================================================================
// COLLABORATION
// =============================================================================

// CollaborationInput feeds the behavior result into the optional
// collaboration layer.
type CollaborationInput struct {
	Query          string         `json:"query"`
	UserProfile    *UserProfile   `json:"user_profile"`
	ContextProfile ContextProfile `json:"context_profile"`
	BehaviorOutput *BehaviorOutput `json:"behavior_output"`
}

// Perspective is one generated viewpoint on the query.
type Perspective struct {
	Stance    string  `json:"stance"`
	Content   string  `json:"content"`
	Rationale string  `json:"rationale,omitempty"`
	Weight    float64 `json:"weight,omitempty"`
}

// PerspectiveGenerationResult holds multi-perspective output.
type PerspectiveGenerationResult struct {
	Perspectives         []Perspective  `json:"perspectives"`
	PerspectiveDiversity float64        `json:"perspective_diversity"`
	GenerationMetadata   map[string]any `json:"generation_metadata,omitempty"`
}

// CognitiveChallengeResult holds generated challenges to stretch the user.
type CognitiveChallengeResult struct {
	Challenges         []string `json:"challenges"`
	ChallengeIntensity float64  `json:"challenge_intensity"`
	EducationalValue   float64  `json:"educational_value"`
}

// CollaborationOutput is the collaboration layer's typed result.
type CollaborationOutput struct {
	LayerOutput
	PerspectiveGeneration PerspectiveGenerationResult `json:"perspective_generation"`
	CognitiveChallenge    CognitiveChallengeResult    `json:"cognitive_challenge"`
	CollaborationInsights map[string]any              `json:"collaboration_insights"`
	EnhancedContent       string                      `json:"enhanced_content"`
}

// =============================================================================
// SYSTEM RESPONSE
// =============================================================================

// SystemResponse aggregates the complete pipeline result for one query.
// CollaborationOutput is nil when the collaboration layer is disabled.
type SystemResponse struct {
	Content             string               `json:"content"`
	PerceptionOutput    *PerceptionOutput    `json:"perception_output"`
	CognitionOutput     *CognitionOutput     `json:"cognition_output"`
	BehaviorOutput      *BehaviorOutput      `json:"behavior_output"`
	CollaborationOutput *CollaborationOutput `json:"collaboration_output,omitempty"`
	ProcessingMetadata  map[string]any       `json:"processing_metadata"`
}
