// Package memory defines the external memory-store interface the
// cognition layer consumes, plus two implementations: an in-process
// store and a SQLite-backed one. A nil store is a valid degraded mode;
// the pipeline then runs with empty activation results.
package memory

import (
	"context"
	"time"
)

// Type classifies a stored memory.
type Type string

const (
	TypeCore       Type = "core"
	TypeEpisodic   Type = "episodic"
	TypeSemantic   Type = "semantic"
	TypeProcedural Type = "procedural"
	TypeResource   Type = "resource"
	TypeKnowledge  Type = "knowledge"
)

// Entry is one stored memory.
type Entry struct {
	ID         string         `json:"id"`
	UserID     string         `json:"user_id"`
	Content    string         `json:"content"`
	MemoryType Type           `json:"memory_type"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	Similarity float64        `json:"similarity,omitempty"`
}

// Query describes a similarity search.
type Query struct {
	Query               string
	UserID              string
	Limit               int
	SimilarityThreshold float64
}

// Result is the shape returned by searches.
type Result struct {
	Memories   []Entry       `json:"memories"`
	TotalCount int           `json:"total_count"`
	QueryTime  time.Duration `json:"query_time"`
}

// System is the consumed memory-store interface.
type System interface {
	// SearchMemories returns entries similar to the query text, best first.
	SearchMemories(ctx context.Context, q Query) (Result, error)

	// GetUserMemories returns a user's most recent entries.
	GetUserMemories(ctx context.Context, userID string, limit int) (Result, error)

	// AddMemory stores an entry, assigning an ID when absent, and returns
	// the stored ID.
	AddMemory(ctx context.Context, e Entry) (string, error)
}

func (q Query) withDefaults() Query {
	if q.Limit <= 0 {
		q.Limit = 10
	}
	if q.SimilarityThreshold <= 0 {
		q.SimilarityThreshold = 0.7
	}
	return q
}
