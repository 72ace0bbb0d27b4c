package inference

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
)

// PromptCache remembers which system prompts have already had their KV
// state produced, keyed by SHA-256 of the prompt text, the way
// vllm_mlx_engine.py's PromptCache keys on `hashlib.sha256(prompt).hexdigest()
// [:32]`. Go cannot hold a real MLX KV tensor, so the cached value is
// opaque (a backend-specific token); what matters for the spec's hit-rate
// invariant is the key scheme and the hit/miss counters, which are wired
// into real calls below.
type PromptCache struct {
	mu      sync.RWMutex
	entries map[string][]byte
	hits    int64
	misses  int64
}

// NewPromptCache returns an empty cache.
func NewPromptCache() *PromptCache {
	return &PromptCache{entries: make(map[string][]byte)}
}

// Key derives the cache key for a prompt.
func Key(prompt string) string {
	sum := sha256.Sum256([]byte(prompt))
	return hex.EncodeToString(sum[:])[:32]
}

// Get returns the cached KV state for prompt, if any, and records a
// hit/miss.
func (c *PromptCache) Get(prompt string) ([]byte, bool) {
	key := Key(prompt)
	c.mu.RLock()
	v, ok := c.entries[key]
	c.mu.RUnlock()

	c.mu.Lock()
	if ok {
		c.hits++
	} else {
		c.misses++
	}
	c.mu.Unlock()
	return v, ok
}

// Put stores kvState under prompt's key.
func (c *PromptCache) Put(prompt string, kvState []byte) {
	key := Key(prompt)
	c.mu.Lock()
	c.entries[key] = kvState
	c.mu.Unlock()
}

// Invalidate removes a cached entry.
func (c *PromptCache) Invalidate(prompt string) {
	key := Key(prompt)
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// Clear empties the cache and resets counters.
func (c *PromptCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string][]byte)
	c.hits, c.misses = 0, 0
}

// Stats reports hit rate and raw counts (spec.md §4.7: "Hit rate and
// hit/miss counts are exposed").
type Stats struct {
	Hits    int64
	Misses  int64
	HitRate float64
	Size    int
}

func (c *PromptCache) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()
	total := c.hits + c.misses
	rate := 0.0
	if total > 0 {
		rate = float64(c.hits) / float64(total)
	}
	return Stats{Hits: c.hits, Misses: c.misses, HitRate: rate, Size: len(c.entries)}
}
