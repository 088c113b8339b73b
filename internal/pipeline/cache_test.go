package pipeline

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cogniflow/internal/types"
)

func TestActivationCacheBound(t *testing.T) {
	c := newActivationCache(100)

	for i := 0; i < 101; i++ {
		c.put(fmt.Sprintf("k%03d", i), types.MemoryActivationResult{ActivationConfidence: float64(i)})
		assert.LessOrEqual(t, c.len(), 100)
	}

	// The 101st insertion evicts the first-inserted entry.
	_, ok := c.get("k000")
	assert.False(t, ok)
	_, ok = c.get("k001")
	assert.True(t, ok)
	_, ok = c.get("k100")
	assert.True(t, ok)
}

func TestActivationCacheHitDoesNotRefresh(t *testing.T) {
	c := newActivationCache(100)

	for i := 0; i < 100; i++ {
		c.put(fmt.Sprintf("k%03d", i), types.MemoryActivationResult{})
	}

	// A hit must not move the entry to the back of the eviction queue.
	_, ok := c.get("k000")
	require.True(t, ok)

	c.put("k100", types.MemoryActivationResult{})
	_, ok = c.get("k000")
	assert.False(t, ok, "insertion order decides eviction, not access order")
}

func TestActivationCacheOverwriteKeepsPosition(t *testing.T) {
	c := newActivationCache(2)

	c.put("a", types.MemoryActivationResult{ActivationConfidence: 1})
	c.put("b", types.MemoryActivationResult{})
	c.put("a", types.MemoryActivationResult{ActivationConfidence: 2})
	c.put("c", types.MemoryActivationResult{})

	// "a" keeps its original slot, so it is the one evicted.
	_, ok := c.get("a")
	assert.False(t, ok)
	_, ok = c.get("b")
	assert.True(t, ok)
	_, ok = c.get("c")
	assert.True(t, ok)
}

func TestActivationKeyProfileSensitivity(t *testing.T) {
	p1 := &types.UserProfile{CognitiveCharacteristics: map[string]any{"thinking_mode": "linear"}}
	p2 := &types.UserProfile{CognitiveCharacteristics: map[string]any{"thinking_mode": "creative"}}

	assert.Equal(t, activationKey("q", p1), activationKey("q", p1))
	assert.NotEqual(t, activationKey("q", p1), activationKey("q", p2))
	assert.NotEqual(t, activationKey("q", p1), activationKey("other", p1))
}
