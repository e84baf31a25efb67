package profile

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfileDefaults(t *testing.T) {
	for _, key := range []string{
		"ORBITVIEW_EMBEDDING_PROVIDER",
		"ORBITVIEW_EMBEDDING_API_KEY",
		"ORBITVIEW_EMBEDDING_BASE_URL",
		"ORBITVIEW_EMBEDDING_MODEL",
		"ORBITVIEW_EMBEDDING_DIMENSIONS",
		"ORBITVIEW_MATCH_MIN_SCORE",
		"ORBITVIEW_RELEVANCE_TOP_K",
	} {
		t.Setenv(key, "")
	}

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "openai", p.EmbeddingProvider)
	assert.Equal(t, "https://api.openai.com/v1", p.EmbeddingBaseURL)
	assert.Equal(t, "text-embedding-3-small", p.EmbeddingModel)
	assert.Equal(t, 1536, p.EmbeddingDimensions)
	assert.Equal(t, 0.7, p.MatchMinScore)
	assert.Equal(t, 5, p.RelevanceTopK)
	assert.False(t, p.IsEmbeddingEnabled())
}

func TestProfileFromEnv(t *testing.T) {
	t.Setenv("ORBITVIEW_EMBEDDING_PROVIDER", "siliconflow")
	t.Setenv("ORBITVIEW_EMBEDDING_API_KEY", "test-key")
	t.Setenv("ORBITVIEW_MATCH_MIN_SCORE", "0.65")
	t.Setenv("ORBITVIEW_RELEVANCE_TOP_K", "3")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "siliconflow", p.EmbeddingProvider)
	assert.Equal(t, "https://api.siliconflow.cn/v1", p.EmbeddingBaseURL)
	assert.Equal(t, "BAAI/bge-m3", p.EmbeddingModel)
	assert.Equal(t, 1024, p.EmbeddingDimensions)
	assert.Equal(t, 0.65, p.MatchMinScore)
	assert.Equal(t, 3, p.RelevanceTopK)
	assert.True(t, p.IsEmbeddingEnabled())
}

func TestProfileUnknownProviderFallsBack(t *testing.T) {
	t.Setenv("ORBITVIEW_EMBEDDING_PROVIDER", "nonsense")

	p := &Profile{}
	p.FromEnv()

	assert.Equal(t, "openai", p.EmbeddingProvider)
}

func TestProfileValidate(t *testing.T) {
	dir := t.TempDir()

	p := &Profile{
		Mode:          "dev",
		Driver:        "sqlite",
		Data:          dir,
		MatchMinScore: 0.7,
		RelevanceTopK: 5,
	}
	require.NoError(t, p.Validate())
	assert.Contains(t, p.DSN, "orbitview_dev.db")

	p = &Profile{Mode: "dev", Driver: "postgres", MatchMinScore: 0.7, RelevanceTopK: 5}
	require.Error(t, p.Validate(), "postgres without dsn must fail")

	p = &Profile{Mode: "dev", Driver: "mysql", MatchMinScore: 0.7, RelevanceTopK: 5}
	require.Error(t, p.Validate(), "unsupported driver must fail")

	p = &Profile{Mode: "dev", Driver: "sqlite", Data: dir, MatchMinScore: 1.5, RelevanceTopK: 5}
	require.Error(t, p.Validate(), "out of range min score must fail")
}
