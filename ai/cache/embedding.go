package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"sync/atomic"
	"time"
)

// EmbeddingService defines the interface for generating vector embeddings.
// This is a local interface to avoid circular dependencies.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	Model() string
}

// EmbeddingCacheConfig configures the caching embedder.
type EmbeddingCacheConfig struct {
	// MaxEntries is the maximum number of cached vectors.
	MaxEntries int

	// TTL is the time-to-live for cached vectors.
	TTL time.Duration
}

// DefaultEmbeddingCacheConfig returns the default configuration.
func DefaultEmbeddingCacheConfig() EmbeddingCacheConfig {
	return EmbeddingCacheConfig{
		MaxEntries: 2048,
		TTL:        time.Hour,
	}
}

// CachingEmbedder wraps an EmbeddingService with an exact-match LRU cache
// keyed by SHA256(model + text). Within one ranking call every vector comes
// from the same cache instance, so "embed fresh" and "reuse stored" can never
// disagree on a score inside a single request.
type CachingEmbedder struct {
	upstream EmbeddingService
	cache    *LRUCache[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCachingEmbedder creates a caching decorator around upstream.
func NewCachingEmbedder(upstream EmbeddingService, cfg EmbeddingCacheConfig) *CachingEmbedder {
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultEmbeddingCacheConfig().MaxEntries
	}
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultEmbeddingCacheConfig().TTL
	}

	return &CachingEmbedder{
		upstream: upstream,
		cache:    NewLRUCache[string, []float32](cfg.MaxEntries, cfg.TTL),
	}
}

func (c *CachingEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := c.hashKey(text)
	if vec, ok := c.cache.Get(key); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	vec, err := c.upstream.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Set(key, vec)
	return vec, nil
}

func (c *CachingEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	missing := make([]int, 0, len(texts))
	for i, text := range texts {
		if vec, ok := c.cache.Get(c.hashKey(text)); ok {
			c.hits.Add(1)
			result[i] = vec
		} else {
			c.misses.Add(1)
			missing = append(missing, i)
		}
	}
	if len(missing) == 0 {
		return result, nil
	}

	uncached := make([]string, len(missing))
	for i, idx := range missing {
		uncached[i] = texts[idx]
	}
	vectors, err := c.upstream.EmbedBatch(ctx, uncached)
	if err != nil {
		return nil, err
	}
	for i, idx := range missing {
		result[idx] = vectors[i]
		c.cache.Set(c.hashKey(texts[idx]), vectors[i])
	}
	return result, nil
}

func (c *CachingEmbedder) Dimensions() int {
	return c.upstream.Dimensions()
}

func (c *CachingEmbedder) Model() string {
	return c.upstream.Model()
}

// Stats returns cumulative hit and miss counts.
func (c *CachingEmbedder) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}

// hashKey includes the model identifier so vectors from different models can
// never be served for each other.
func (c *CachingEmbedder) hashKey(text string) string {
	hash := sha256.Sum256([]byte(c.upstream.Model() + "\x00" + text))
	return hex.EncodeToString(hash[:16])
}
