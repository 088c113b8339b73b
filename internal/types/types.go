// Package types provides shared type definitions used across cogniflow
// packages. This package exists to break import cycles between the layer
// implementations and the orchestrator. Types here should be foundational
// data structures with no complex dependencies.
package types

import (
	"time"
)

// =============================================================================
// PROCESSING STATUS
// =============================================================================

// ProcessingStatus tracks the lifecycle of a layer invocation.
// A returned layer output carries either StatusCompleted or StatusError,
// never one of the transient states.
type ProcessingStatus string

const (
	StatusPending    ProcessingStatus = "pending"
	StatusProcessing ProcessingStatus = "processing"
	StatusCompleted  ProcessingStatus = "completed"
	StatusError      ProcessingStatus = "error"
)

// =============================================================================
// LAYER OUTPUT BASE
// =============================================================================

// LayerOutput is the base shape embedded in every layer's output record.
// If Status is StatusError, Metadata contains an "error" entry and
// ErrorMessage is set; the embedding output is still fully populated with
// neutral defaults.
type LayerOutput struct {
	LayerName      string           `json:"layer_name"`
	Status         ProcessingStatus `json:"status"`
	Metadata       map[string]any   `json:"metadata"`
	Timestamp      string           `json:"timestamp"`
	ProcessingTime float64          `json:"processing_time"`
	ErrorMessage   string           `json:"error_message,omitempty"`
}

// NewLayerOutput returns a base output stamped with the current time.
func NewLayerOutput(layerName string) LayerOutput {
	return LayerOutput{
		LayerName: layerName,
		Status:    StatusProcessing,
		Metadata:  map[string]any{},
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
}

// Complete marks the output finished and records elapsed time.
func (o *LayerOutput) Complete(start time.Time) {
	o.Status = StatusCompleted
	o.ProcessingTime = time.Since(start).Seconds()
}

// Fail marks the output errored, recording the message in both the
// metadata map and ErrorMessage.
func (o *LayerOutput) Fail(start time.Time, err error) {
	o.Status = StatusError
	o.ProcessingTime = time.Since(start).Seconds()
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	o.ErrorMessage = msg
	if o.Metadata == nil {
		o.Metadata = map[string]any{}
	}
	o.Metadata["error"] = msg
	o.AddStep("error")
}

// AddStep appends a step label to the metadata "steps" list.
func (o *LayerOutput) AddStep(step string) {
	if o.Metadata == nil {
		o.Metadata = map[string]any{}
	}
	steps, _ := o.Metadata["steps"].([]string)
	o.Metadata["steps"] = append(steps, step)
}

// =============================================================================
// USER AND CONTEXT PROFILES
// =============================================================================

// UserProfile models a user's cognitive characteristics, built up by the
// perception layer across interactions. Profiles live in a process-wide
// in-memory store keyed by user ID; concurrent updates to the same user
// resolve last-writer-wins.
type UserProfile struct {
	UserID                   string         `json:"user_id"`
	CognitiveCharacteristics map[string]any `json:"cognitive_characteristics"`
	KnowledgeProfile         map[string]any `json:"knowledge_profile"`
	InteractionPreferences   map[string]any `json:"interaction_preferences"`
	CreatedAt                time.Time      `json:"created_at"`
	UpdatedAt                time.Time      `json:"updated_at"`
}

// ThinkingMode returns the profile's thinking mode, defaulting to "linear".
func (p *UserProfile) ThinkingMode() string {
	if p == nil {
		return "linear"
	}
	if v, ok := p.CognitiveCharacteristics["thinking_mode"].(string); ok && v != "" {
		return v
	}
	return "linear"
}

// CognitiveComplexity returns the modeled complexity score in [0,1].
func (p *UserProfile) CognitiveComplexity() float64 {
	return p.characteristic("cognitive_complexity")
}

// CreativityTendency returns the modeled creativity score in [0,1].
func (p *UserProfile) CreativityTendency() float64 {
	return p.characteristic("creativity_tendency")
}

// AbstractionLevel returns the modeled abstraction score in [0,1].
func (p *UserProfile) AbstractionLevel() float64 {
	return p.characteristic("abstraction_level")
}

func (p *UserProfile) characteristic(key string) float64 {
	if p == nil {
		return 0.5
	}
	if v, ok := ToFloat(p.CognitiveCharacteristics[key]); ok {
		return v
	}
	return 0.5
}

// CoreDomains returns the knowledge profile's core domain list.
func (p *UserProfile) CoreDomains() []string {
	if p == nil {
		return nil
	}
	return ToStrings(p.KnowledgeProfile["core_domains"])
}

// EdgeDomains returns the knowledge profile's edge domain list.
func (p *UserProfile) EdgeDomains() []string {
	if p == nil {
		return nil
	}
	return ToStrings(p.KnowledgeProfile["edge_domains"])
}

// ToFloat coerces the loosely typed values that show up in metadata maps
// and parsed JSON into a float64.
func ToFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}

// ToStrings coerces a value into a string slice, tolerating the []any
// shape produced by JSON decoding.
func ToStrings(v any) []string {
	switch s := v.(type) {
	case []string:
		return s
	case []any:
		out := make([]string, 0, len(s))
		for _, e := range s {
			if str, ok := e.(string); ok {
				out = append(out, str)
			}
		}
		return out
	}
	return nil
}

// ContextProfile describes the task context derived for a single query.
// Created fresh per query, never persisted.
type ContextProfile struct {
	TaskType              string         `json:"task_type"`
	ComplexityLevel       float64        `json:"complexity_level"`
	DomainCharacteristics map[string]any `json:"domain_characteristics"`
	EnvironmentalFactors  map[string]any `json:"environmental_factors"`
}

// =============================================================================
// INFORMATION FLOW
// =============================================================================

// FlowType classifies an information-flow record.
type FlowType string

const (
	FlowInput    FlowType = "input"
	FlowOutput   FlowType = "output"
	FlowFeedback FlowType = "feedback"
)

// InformationFlow records one data hand-off between layers. The
// orchestrator appends these to a bounded ordered log for auditing.
type InformationFlow struct {
	FromLayer string    `json:"from_layer"`
	ToLayer   string    `json:"to_layer"`
	Payload   any       `json:"payload"`
	FlowType  FlowType  `json:"flow_type"`
	Timestamp time.Time `json:"timestamp"`
}

// MemoryFragment is an activated piece of external memory mapped into a
// stable shape at the memory-store boundary.
type MemoryFragment struct {
	ID         string         `json:"id"`
	Content    string         `json:"content"`
	Source     string         `json:"source"`
	Relevance  float64        `json:"relevance"`
	MemoryType string         `json:"memory_type,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
}
