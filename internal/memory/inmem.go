package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// InMemoryStore keeps memories in process. Suitable for tests and for
// single-process deployments without persistence requirements.
type InMemoryStore struct {
	mu       sync.RWMutex
	entries  []Entry
	vectors  map[string][]float32
	embedder Embedder
}

// NewInMemoryStore creates an empty store. A nil embedder defaults to
// the deterministic hash embedder.
func NewInMemoryStore(embedder Embedder) *InMemoryStore {
	if embedder == nil {
		embedder = NewHashEmbedder(0)
	}
	return &InMemoryStore{
		vectors:  map[string][]float32{},
		embedder: embedder,
	}
}

// AddMemory stores an entry and its embedding.
func (s *InMemoryStore) AddMemory(ctx context.Context, e Entry) (string, error) {
	if e.ID == "" {
		e.ID = uuid.NewString()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}

	vec, err := s.embedder.Embed(ctx, e.Content)
	if err != nil {
		return "", fmt.Errorf("failed to embed memory: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.entries = append(s.entries, e)
	s.vectors[e.ID] = vec
	return e.ID, nil
}

// SearchMemories returns entries above the similarity threshold, best
// first, up to the query limit.
func (s *InMemoryStore) SearchMemories(ctx context.Context, q Query) (Result, error) {
	start := time.Now()
	q = q.withDefaults()

	qvec, err := s.embedder.Embed(ctx, q.Query)
	if err != nil {
		return Result{}, fmt.Errorf("failed to embed query: %w", err)
	}

	s.mu.RLock()
	var matched []Entry
	for _, e := range s.entries {
		if q.UserID != "" && e.UserID != q.UserID {
			continue
		}
		sim := Cosine(qvec, s.vectors[e.ID])
		if sim < q.SimilarityThreshold {
			continue
		}
		e.Similarity = sim
		matched = append(matched, e)
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].Similarity > matched[j].Similarity })
	total := len(matched)
	if len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}
	return Result{Memories: matched, TotalCount: total, QueryTime: time.Since(start)}, nil
}

// GetUserMemories returns the user's most recent entries.
func (s *InMemoryStore) GetUserMemories(ctx context.Context, userID string, limit int) (Result, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 10
	}

	s.mu.RLock()
	var matched []Entry
	for _, e := range s.entries {
		if e.UserID == userID {
			matched = append(matched, e)
		}
	}
	s.mu.RUnlock()

	sort.Slice(matched, func(i, j int) bool { return matched[i].CreatedAt.After(matched[j].CreatedAt) })
	total := len(matched)
	if len(matched) > limit {
		matched = matched[:limit]
	}
	return Result{Memories: matched, TotalCount: total, QueryTime: time.Since(start)}, nil
}
