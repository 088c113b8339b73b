package pipeline

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"cogniflow/internal/memory"
	"cogniflow/internal/types"
)

const (
	flowHistoryBound = 1000

	memoryRetrievalLimit     = 20
	memoryRetrievalThreshold = 0.6
)

// Config assembles a pipeline. Zero retrieval settings take the
// defaults above.
type Config struct {
	Deps                Deps
	Memory              memory.System
	EnableCollaboration bool
	RetrievalLimit      int
	SimilarityThreshold float64
}

// Pipeline orchestrates the four layers for one process. It owns the
// information-flow log and processing statistics; the layers own their
// internal state.
type Pipeline struct {
	cfg    Config
	logger *zap.Logger

	perception    *PerceptionLayer
	cognition     *CognitionLayer
	behavior      *BehaviorLayer
	collaboration *CollaborationLayer

	mu    sync.Mutex
	flows []types.InformationFlow
	stats processingStats

	initialized bool
}

type processingStats struct {
	TotalQueries   int64
	ErrorCount     int64
	AvgProcessTime time.Duration
}

// New builds a pipeline from cfg. Call InitializeLayers before Process.
func New(cfg Config) *Pipeline {
	logger := cfg.Deps.logger().With(zap.String("component", "pipeline"))
	return &Pipeline{
		cfg:           cfg,
		logger:        logger,
		perception:    NewPerceptionLayer(cfg.Deps),
		cognition:     NewCognitionLayer(cfg.Deps),
		behavior:      NewBehaviorLayer(cfg.Deps),
		collaboration: NewCollaborationLayer(cfg.Deps),
	}
}

// InitializeLayers initializes every layer in processing order and
// reports whether all succeeded.
func (p *Pipeline) InitializeLayers(ctx context.Context) bool {
	ok := p.perception.Initialize(ctx)
	ok = p.cognition.Initialize(ctx) && ok
	ok = p.behavior.Initialize(ctx) && ok
	if p.collaborationEnabled() {
		ok = p.collaboration.Initialize(ctx) && ok
	}
	p.initialized = ok
	p.logger.Info("pipeline initialized",
		zap.Bool("ok", ok),
		zap.Bool("collaboration", p.collaborationEnabled()))
	return ok
}

func (p *Pipeline) collaborationEnabled() bool {
	return p.cfg.EnableCollaboration && p.cfg.Deps.Client != nil
}

// ProcessThroughLayers runs one query through the full pipeline. A layer
// finishing with Error status does not stop the run; downstream layers
// receive its defaulted output and the response records per-layer status.
func (p *Pipeline) ProcessThroughLayers(ctx context.Context, userID, query string, extra map[string]any) (*types.SystemResponse, error) {
	start := time.Now()

	if !p.initialized {
		p.bumpStats(time.Since(start), true)
		return nil, fmt.Errorf("pipeline not initialized")
	}

	perceptionOut := p.perception.Process(ctx, types.PerceptionInput{
		UserID:  userID,
		Query:   query,
		Context: extra,
	})

	cognitionIn := types.CognitionInput{
		Query:             query,
		UserProfile:       perceptionOut.UserProfile,
		ContextProfile:    perceptionOut.ContextProfile,
		ExternalMemories:  p.retrieveMemories(ctx, userID, query),
		PerceptionContext: perceptionOut.PerceptionInsights,
	}
	p.recordFlow("perception", "cognition", cognitionIn)
	cognitionOut := p.cognition.Process(ctx, cognitionIn)

	behaviorIn := types.BehaviorInput{
		Query:           query,
		UserProfile:     perceptionOut.UserProfile,
		ContextProfile:  perceptionOut.ContextProfile,
		CognitionOutput: cognitionOut,
	}
	p.recordFlow("cognition", "behavior", behaviorIn)
	behaviorOut := p.behavior.Process(ctx, behaviorIn)

	content := behaviorOut.AdaptedContent.Content

	var collaborationOut *types.CollaborationOutput
	if p.collaborationEnabled() {
		collaborationIn := types.CollaborationInput{
			Query:          query,
			UserProfile:    perceptionOut.UserProfile,
			ContextProfile: perceptionOut.ContextProfile,
			BehaviorOutput: behaviorOut,
		}
		p.recordFlow("behavior", "collaboration", collaborationIn)
		collaborationOut = p.collaboration.Process(ctx, collaborationIn)
		if collaborationOut.Status == types.StatusCompleted && collaborationOut.EnhancedContent != "" {
			content = collaborationOut.EnhancedContent
		}
	}

	p.perception.UpdateUserProfile(userID, map[string]any{
		"last_query":     query,
		"last_task_type": perceptionOut.ContextProfile.TaskType,
	})

	hadError := perceptionOut.Status == types.StatusError ||
		cognitionOut.Status == types.StatusError ||
		behaviorOut.Status == types.StatusError ||
		(collaborationOut != nil && collaborationOut.Status == types.StatusError)

	elapsed := time.Since(start)
	p.bumpStats(elapsed, hadError)

	meta := map[string]any{
		"total_time_ms": elapsed.Milliseconds(),
		"had_error":     hadError,
		"collaboration": collaborationOut != nil,
	}
	allFailed := perceptionOut.Status == types.StatusError &&
		cognitionOut.Status == types.StatusError &&
		behaviorOut.Status == types.StatusError
	if allFailed {
		meta["error"] = "all layers failed"
	}

	resp := &types.SystemResponse{
		Content:             content,
		PerceptionOutput:    perceptionOut,
		CognitionOutput:     cognitionOut,
		BehaviorOutput:      behaviorOut,
		CollaborationOutput: collaborationOut,
		ProcessingMetadata:  meta,
	}
	return resp, nil
}

// ProcessStream runs the pipeline emitting progress markers and behavior
// content incrementally. The channel closes when the run ends; the final
// response arrives on the second channel. Collaboration enhancement is
// skipped in streaming mode since the content has already been emitted.
func (p *Pipeline) ProcessStream(ctx context.Context, userID, query string, extra map[string]any) (<-chan string, <-chan *types.SystemResponse) {
	events := make(chan string)
	result := make(chan *types.SystemResponse, 1)

	emit := func(s string) bool {
		select {
		case events <- s:
			return true
		case <-ctx.Done():
			return false
		}
	}

	go func() {
		defer close(events)
		defer close(result)

		start := time.Now()
		if !p.initialized {
			p.bumpStats(time.Since(start), true)
			return
		}

		if !emit("[perception]\n") {
			return
		}
		perceptionOut := p.perception.Process(ctx, types.PerceptionInput{
			UserID: userID, Query: query, Context: extra,
		})

		if !emit("[cognition]\n") {
			return
		}
		cognitionIn := types.CognitionInput{
			Query:             query,
			UserProfile:       perceptionOut.UserProfile,
			ContextProfile:    perceptionOut.ContextProfile,
			ExternalMemories:  p.retrieveMemories(ctx, userID, query),
			PerceptionContext: perceptionOut.PerceptionInsights,
		}
		p.recordFlow("perception", "cognition", cognitionIn)
		cognitionOut := p.cognition.Process(ctx, cognitionIn)

		if !emit("[behavior]\n") {
			return
		}
		behaviorIn := types.BehaviorInput{
			Query:           query,
			UserProfile:     perceptionOut.UserProfile,
			ContextProfile:  perceptionOut.ContextProfile,
			CognitionOutput: cognitionOut,
		}
		p.recordFlow("cognition", "behavior", behaviorIn)
		chunks, behaviorDone := p.behavior.ProcessStream(ctx, behaviorIn)
		for chunk := range chunks {
			if !emit(chunk) {
				<-behaviorDone
				return
			}
		}
		behaviorOut := <-behaviorDone

		var collaborationOut *types.CollaborationOutput
		if p.collaborationEnabled() {
			if !emit("\n[collaboration]\n") {
				return
			}
			collaborationIn := types.CollaborationInput{
				Query:          query,
				UserProfile:    perceptionOut.UserProfile,
				ContextProfile: perceptionOut.ContextProfile,
				BehaviorOutput: behaviorOut,
			}
			p.recordFlow("behavior", "collaboration", collaborationIn)
			collaborationOut = p.collaboration.Process(ctx, collaborationIn)
		}

		p.perception.UpdateUserProfile(userID, map[string]any{
			"last_query":     query,
			"last_task_type": perceptionOut.ContextProfile.TaskType,
		})

		hadError := perceptionOut.Status == types.StatusError ||
			cognitionOut.Status == types.StatusError ||
			behaviorOut.Status == types.StatusError ||
			(collaborationOut != nil && collaborationOut.Status == types.StatusError)
		elapsed := time.Since(start)
		p.bumpStats(elapsed, hadError)

		result <- &types.SystemResponse{
			Content:             behaviorOut.AdaptedContent.Content,
			PerceptionOutput:    perceptionOut,
			CognitionOutput:     cognitionOut,
			BehaviorOutput:      behaviorOut,
			CollaborationOutput: collaborationOut,
			ProcessingMetadata: map[string]any{
				"total_time_ms": elapsed.Milliseconds(),
				"had_error":     hadError,
				"streamed":      true,
			},
		}
	}()

	return events, result
}

// retrieveMemories queries the external memory store for fragments
// relevant to the query. A nil store or a store error yields none.
func (p *Pipeline) retrieveMemories(ctx context.Context, userID, query string) []types.MemoryFragment {
	if p.cfg.Memory == nil {
		return nil
	}
	limit := p.cfg.RetrievalLimit
	if limit <= 0 {
		limit = memoryRetrievalLimit
	}
	threshold := p.cfg.SimilarityThreshold
	if threshold <= 0 {
		threshold = memoryRetrievalThreshold
	}
	result, err := p.cfg.Memory.SearchMemories(ctx, memory.Query{
		Query:               query,
		UserID:              userID,
		Limit:               limit,
		SimilarityThreshold: threshold,
	})
	if err != nil {
		p.logger.Warn("memory retrieval failed", zap.Error(err))
		return nil
	}
	fragments := make([]types.MemoryFragment, 0, len(result.Memories))
	for _, e := range result.Memories {
		fragments = append(fragments, types.MemoryFragment{
			ID:         e.ID,
			Content:    e.Content,
			Source:     "external_memory",
			Relevance:  e.Similarity,
			MemoryType: string(e.MemoryType),
			Metadata:   e.Metadata,
		})
	}
	return fragments
}

func (p *Pipeline) recordFlow(from, to string, payload any) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flows = append(p.flows, types.InformationFlow{
		FromLayer: from,
		ToLayer:   to,
		Payload:   payload,
		FlowType:  types.FlowInput,
		Timestamp: time.Now().UTC(),
	})
	if len(p.flows) > flowHistoryBound {
		p.flows = p.flows[len(p.flows)-flowHistoryBound:]
	}
}

func (p *Pipeline) bumpStats(elapsed time.Duration, hadError bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	prev := p.stats.TotalQueries
	p.stats.TotalQueries++
	p.stats.AvgProcessTime = time.Duration(
		(int64(p.stats.AvgProcessTime)*prev + int64(elapsed)) / p.stats.TotalQueries)
	if hadError {
		p.stats.ErrorCount++
	}
}

// GetInformationFlows returns a copy of the flow log, oldest first.
func (p *Pipeline) GetInformationFlows() []types.InformationFlow {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]types.InformationFlow, len(p.flows))
	copy(out, p.flows)
	return out
}

// GetLayerStatus returns a status snapshot for one layer, or nil for an
// unknown name.
func (p *Pipeline) GetLayerStatus(layerName string) map[string]any {
	switch layerName {
	case "perception":
		return map[string]any{
			"initialized": p.perception.initialized,
		}
	case "cognition":
		return map[string]any{
			"initialized": p.cognition.initialized,
			"cache_size":  p.cognition.CacheSize(),
		}
	case "behavior":
		return map[string]any{
			"initialized": p.behavior.initialized,
		}
	case "collaboration":
		if !p.collaborationEnabled() {
			return nil
		}
		return map[string]any{
			"initialized":  p.collaboration.initialized,
			"history_size": p.collaboration.HistorySize(),
		}
	default:
		return nil
	}
}

func (p *Pipeline) allLayerStatus() map[string]any {
	status := map[string]any{
		"perception": p.perception.initialized,
		"cognition":  p.cognition.initialized,
		"behavior":   p.behavior.initialized,
	}
	if p.collaborationEnabled() {
		status["collaboration"] = p.collaboration.initialized
	}
	return status
}

// GetSystemStatus aggregates readiness and processing statistics.
func (p *Pipeline) GetSystemStatus() map[string]any {
	p.mu.Lock()
	stats := p.stats
	flowCount := len(p.flows)
	p.mu.Unlock()

	return map[string]any{
		"initialized":     p.initialized,
		"layers":          p.allLayerStatus(),
		"total_queries":   stats.TotalQueries,
		"error_count":     stats.ErrorCount,
		"avg_process_ms":  stats.AvgProcessTime.Milliseconds(),
		"flow_log_length": flowCount,
		"cache_size":      p.cognition.CacheSize(),
	}
}

// GetUserProfile exposes the perception layer's profile store.
func (p *Pipeline) GetUserProfile(userID string) *types.UserProfile {
	return p.perception.GetUserProfile(userID)
}

// CleanupAllLayers tears layers down in reverse processing order.
func (p *Pipeline) CleanupAllLayers(ctx context.Context) {
	if p.collaborationEnabled() {
		p.collaboration.Cleanup(ctx)
	}
	p.behavior.Cleanup(ctx)
	p.cognition.Cleanup(ctx)
	p.perception.Cleanup(ctx)
	p.initialized = false
	p.logger.Info("pipeline cleaned up")
}
