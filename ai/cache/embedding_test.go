package cache

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbeddingService counts upstream calls and returns deterministic vectors.
type mockEmbeddingService struct {
	calls int
	model string
}

func (m *mockEmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	m.calls++
	vec := make([]float32, 4)
	for i := range vec {
		vec[i] = float32(len(text) + i)
	}
	return vec, nil
}

func (m *mockEmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	result := make([][]float32, len(texts))
	for i, text := range texts {
		vec, err := m.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		result[i] = vec
	}
	return result, nil
}

func (m *mockEmbeddingService) Dimensions() int { return 4 }

func (m *mockEmbeddingService) Model() string {
	if m.model != "" {
		return m.model
	}
	return "mock-model"
}

func TestCachingEmbedderReusesVectors(t *testing.T) {
	ctx := context.Background()
	mock := &mockEmbeddingService{}
	embedder := NewCachingEmbedder(mock, DefaultEmbeddingCacheConfig())

	first, err := embedder.Embed(ctx, "golang")
	require.NoError(t, err)
	second, err := embedder.Embed(ctx, "golang")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	assert.Equal(t, 1, mock.calls)

	hits, misses := embedder.Stats()
	assert.Equal(t, int64(1), hits)
	assert.Equal(t, int64(1), misses)
}

func TestCachingEmbedderBatchPartialHit(t *testing.T) {
	ctx := context.Background()
	mock := &mockEmbeddingService{}
	embedder := NewCachingEmbedder(mock, DefaultEmbeddingCacheConfig())

	_, err := embedder.Embed(ctx, "python")
	require.NoError(t, err)

	vectors, err := embedder.EmbedBatch(ctx, []string{"python", "django"})
	require.NoError(t, err)
	require.Len(t, vectors, 2)
	assert.Equal(t, 2, mock.calls, "only the uncached text goes upstream")
}

func TestCachingEmbedderKeysByModel(t *testing.T) {
	ctx := context.Background()

	a := NewCachingEmbedder(&mockEmbeddingService{model: "model-a"}, DefaultEmbeddingCacheConfig())
	b := NewCachingEmbedder(&mockEmbeddingService{model: "model-b"}, DefaultEmbeddingCacheConfig())

	keyA := a.hashKey("same text")
	keyB := b.hashKey("same text")
	assert.NotEqual(t, keyA, keyB)

	_, err := a.Embed(ctx, "same text")
	require.NoError(t, err)
	_, err = b.Embed(ctx, "same text")
	require.NoError(t, err)
}

func TestLRUCacheEviction(t *testing.T) {
	lru := NewLRUCache[string, int](2, time.Hour)

	lru.Set("a", 1)
	lru.Set("b", 2)
	lru.Set("c", 3) // evicts "a"

	_, ok := lru.Get("a")
	assert.False(t, ok)
	v, ok := lru.Get("b")
	assert.True(t, ok)
	assert.Equal(t, 2, v)
	assert.Equal(t, 2, lru.Len())
}

func TestLRUCacheTTL(t *testing.T) {
	lru := NewLRUCache[string, int](10, time.Millisecond)

	lru.Set("a", 1)
	time.Sleep(5 * time.Millisecond)

	_, ok := lru.Get("a")
	assert.False(t, ok)
}
