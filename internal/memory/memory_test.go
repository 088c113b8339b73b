package memory

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedderDeterministic(t *testing.T) {
	e := NewHashEmbedder(64)
	ctx := context.Background()

	a1, err := e.Embed(ctx, "goroutines and channels")
	require.NoError(t, err)
	a2, err := e.Embed(ctx, "goroutines and channels")
	require.NoError(t, err)
	assert.Equal(t, a1, a2)
	assert.Len(t, a1, 64)

	b, err := e.Embed(ctx, "completely different subject matter")
	require.NoError(t, err)

	assert.InDelta(t, 1.0, Cosine(a1, a2), 1e-9)
	assert.Less(t, Cosine(a1, b), 0.5)
}

func TestCosineEdgeCases(t *testing.T) {
	assert.Zero(t, Cosine(nil, nil))
	assert.Zero(t, Cosine([]float32{1, 0}, []float32{0}))
	assert.Zero(t, Cosine([]float32{0, 0}, []float32{1, 1}))
}

// storeUnderTest runs the same contract checks against both System
// implementations.
func storeUnderTest(t *testing.T, name string, s System) {
	ctx := context.Background()

	t.Run(name+"/add and search", func(t *testing.T) {
		id, err := s.AddMemory(ctx, Entry{
			UserID:     "u1",
			Content:    "goroutine scheduling and channel contention",
			MemoryType: TypeSemantic,
			Metadata:   map[string]any{"source": "notes"},
		})
		require.NoError(t, err)
		assert.NotEmpty(t, id)

		_, err = s.AddMemory(ctx, Entry{
			UserID:     "u1",
			Content:    "sourdough starter hydration ratios",
			MemoryType: TypeEpisodic,
		})
		require.NoError(t, err)

		_, err = s.AddMemory(ctx, Entry{
			UserID:     "u2",
			Content:    "goroutine scheduling and channel contention",
			MemoryType: TypeSemantic,
		})
		require.NoError(t, err)

		res, err := s.SearchMemories(ctx, Query{
			Query:               "goroutine channel scheduling",
			UserID:              "u1",
			Limit:               5,
			SimilarityThreshold: 0.3,
		})
		require.NoError(t, err)
		require.NotEmpty(t, res.Memories)
		assert.Equal(t, "u1", res.Memories[0].UserID)
		assert.Contains(t, res.Memories[0].Content, "goroutine")
		assert.Greater(t, res.Memories[0].Similarity, 0.3)
		for _, m := range res.Memories {
			assert.NotContains(t, m.Content, "sourdough")
		}
	})

	t.Run(name+"/threshold filters", func(t *testing.T) {
		res, err := s.SearchMemories(ctx, Query{
			Query:               "quantum chromodynamics lattice",
			UserID:              "u1",
			SimilarityThreshold: 0.9,
		})
		require.NoError(t, err)
		assert.Empty(t, res.Memories)
	})

	t.Run(name+"/user memories", func(t *testing.T) {
		res, err := s.GetUserMemories(ctx, "u1", 10)
		require.NoError(t, err)
		assert.Equal(t, 2, res.TotalCount)
		for _, m := range res.Memories {
			assert.Equal(t, "u1", m.UserID)
		}

		res, err = s.GetUserMemories(ctx, "u1", 1)
		require.NoError(t, err)
		assert.Len(t, res.Memories, 1)
		assert.Equal(t, 2, res.TotalCount)
	})
}

func TestInMemoryStore(t *testing.T) {
	storeUnderTest(t, "inmem", NewInMemoryStore(nil))
}

func TestSQLiteStore(t *testing.T) {
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "mem.db"), nil)
	require.NoError(t, err)
	defer s.Close()
	storeUnderTest(t, "sqlite", s)
}

func TestSQLiteStoreMetadataRoundTrip(t *testing.T) {
	ctx := context.Background()
	s, err := NewSQLiteStore(filepath.Join(t.TempDir(), "mem.db"), nil)
	require.NoError(t, err)
	defer s.Close()

	_, err = s.AddMemory(ctx, Entry{
		UserID:     "u1",
		Content:    "remembered fact",
		MemoryType: TypeCore,
		Metadata:   map[string]any{"weight": 0.9, "tag": "profile"},
	})
	require.NoError(t, err)

	res, err := s.GetUserMemories(ctx, "u1", 10)
	require.NoError(t, err)
	require.Len(t, res.Memories, 1)
	assert.Equal(t, "profile", res.Memories[0].Metadata["tag"])
	assert.Equal(t, 0.9, res.Memories[0].Metadata["weight"])
}
