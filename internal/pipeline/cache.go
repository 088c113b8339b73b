package pipeline

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"cogniflow/internal/types"
)

// activationCache memoizes memory-activation results per query and
// profile snapshot. Eviction is FIFO by insertion order, not LRU: hits
// do not refresh an entry's position. Downstream behavior depends on
// that eviction order, so keep it when touching this code.
type activationCache struct {
	mu      sync.Mutex
	entries map[string]types.MemoryActivationResult
	order   []string
	bound   int
}

func newActivationCache(bound int) *activationCache {
	if bound <= 0 {
		bound = 100
	}
	return &activationCache{
		entries: map[string]types.MemoryActivationResult{},
		bound:   bound,
	}
}

func (c *activationCache) get(key string) (types.MemoryActivationResult, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.entries[key]
	return v, ok
}

func (c *activationCache) put(key string, v types.MemoryActivationResult) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, exists := c.entries[key]; !exists {
		c.order = append(c.order, key)
	}
	c.entries[key] = v
	for len(c.entries) > c.bound {
		oldest := c.order[0]
		c.order = c.order[1:]
		delete(c.entries, oldest)
	}
}

func (c *activationCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *activationCache) clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = map[string]types.MemoryActivationResult{}
	c.order = nil
}

// activationKey derives the cache key from the query and a snapshot of
// the profile fields that influence activation.
func activationKey(query string, profile *types.UserProfile) string {
	snapshot := fmt.Sprintf("%s|%s|%.3f|%.3f",
		query,
		profile.ThinkingMode(),
		profile.CognitiveComplexity(),
		profile.CreativityTendency())
	sum := sha256.Sum256([]byte(snapshot))
	return hex.EncodeToString(sum[:16])
}
