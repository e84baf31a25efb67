package ai

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type embeddingRequestBody struct {
	Input []string `json:"input"`
	Model string   `json:"model"`
}

// newEmbeddingServer returns an OpenAI-compatible test server that produces
// dims-dimensional vectors and records received inputs.
func newEmbeddingServer(t *testing.T, dims int, received *[]embeddingRequestBody) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body embeddingRequestBody
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		if received != nil {
			*received = append(*received, body)
		}

		data := make([]map[string]any, len(body.Input))
		for i := range body.Input {
			vec := make([]float32, dims)
			vec[0] = 1
			data[i] = map[string]any{"object": "embedding", "index": i, "embedding": vec}
		}
		w.Header().Set("Content-Type", "application/json")
		require.NoError(t, json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   data,
			"model":  body.Model,
		}))
	}))
}

func newTestService(t *testing.T, baseURL string, dims int) EmbeddingService {
	t.Helper()
	svc, err := NewEmbeddingService(&EmbeddingConfig{
		APIKey:     "test-key",
		BaseURL:    baseURL,
		Model:      "test-embedding-model",
		Dimensions: dims,
		Timeout:    5 * time.Second,
	})
	require.NoError(t, err)
	return svc
}

func TestEmbeddingServiceEmbed(t *testing.T) {
	srv := newEmbeddingServer(t, 8, nil)
	defer srv.Close()

	svc := newTestService(t, srv.URL, 8)

	vec, err := svc.Embed(context.Background(), "backend architecture")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 8, svc.Dimensions())
	assert.Equal(t, "test-embedding-model", svc.Model())
}

func TestEmbeddingServiceRejectsEmptyInput(t *testing.T) {
	srv := newEmbeddingServer(t, 8, nil)
	defer srv.Close()

	svc := newTestService(t, srv.URL, 8)

	_, err := svc.Embed(context.Background(), "   \t\n")
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.EmbedBatch(context.Background(), nil)
	require.ErrorIs(t, err, ErrInvalidInput)

	_, err = svc.EmbedBatch(context.Background(), []string{"ok", ""})
	require.ErrorIs(t, err, ErrInvalidInput)
}

func TestEmbeddingServiceTruncatesLongInput(t *testing.T) {
	var received []embeddingRequestBody
	srv := newEmbeddingServer(t, 8, &received)
	defer srv.Close()

	svc := newTestService(t, srv.URL, 8)

	long := strings.Repeat("a", MaxInputRunes+500)
	_, err := svc.Embed(context.Background(), long)
	require.NoError(t, err)

	require.Len(t, received, 1)
	require.Len(t, received[0].Input, 1)
	assert.Len(t, received[0].Input[0], MaxInputRunes, "input must be truncated deterministically")
}

func TestEmbeddingServiceDimensionMismatchIsUpstreamError(t *testing.T) {
	// Server produces 4-dim vectors; the client expects 8.
	srv := newEmbeddingServer(t, 4, nil)
	defer srv.Close()

	svc := newTestService(t, srv.URL, 8)

	_, err := svc.Embed(context.Background(), "anything")
	require.ErrorIs(t, err, ErrUpstream)
}

func TestEmbeddingServiceRetriesRateLimit(t *testing.T) {
	attempts := 0
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts++
		if attempts == 1 {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusTooManyRequests)
			_, _ = w.Write([]byte(`{"error":{"message":"rate limited","type":"rate_limit_error"}}`))
			return
		}
		vec := make([]float32, 8)
		vec[0] = 1
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"data":   []map[string]any{{"object": "embedding", "index": 0, "embedding": vec}},
			"model":  "test-embedding-model",
		})
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL, 8)

	vec, err := svc.Embed(context.Background(), "retry me")
	require.NoError(t, err)
	assert.Len(t, vec, 8)
	assert.Equal(t, 2, attempts)
}

func TestEmbeddingServiceMapsClientFault(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"bad request","type":"invalid_request_error"}}`))
	}))
	defer srv.Close()

	svc := newTestService(t, srv.URL, 8)

	_, err := svc.Embed(context.Background(), "anything")
	require.ErrorIs(t, err, ErrUpstream)
	assert.False(t, IsTransient(err))
}

func TestEmbeddingServiceUnreachableHostIsTransient(t *testing.T) {
	svc := newTestService(t, "http://127.0.0.1:1", 8)

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	_, err := svc.Embed(ctx, "anything")
	require.Error(t, err)
	if !IsTransient(err) {
		require.ErrorIs(t, err, ErrTimeout)
	}
}

func TestNewEmbeddingServiceValidatesConfig(t *testing.T) {
	_, err := NewEmbeddingService(&EmbeddingConfig{Dimensions: 8})
	require.Error(t, err)

	_, err = NewEmbeddingService(&EmbeddingConfig{Model: "m"})
	require.Error(t, err)
}
