package ai

import (
	"context"
	"strings"
	"time"

	"github.com/pkg/errors"
	"github.com/sashabaranov/go-openai"

	"github.com/orbitview/orbitview/ai/metrics"
)

// MaxInputRunes is the deterministic truncation bound applied to every input
// before it is sent to the provider. Inputs longer than this are cut at the
// rune boundary, never rejected, so scores on long documents stay explainable:
// only the first MaxInputRunes runes contribute to the embedding.
const MaxInputRunes = 8000

// EmbeddingService is the vector embedding service interface.
type EmbeddingService interface {
	// Embed generates a vector for a single text.
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates vectors for multiple texts.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the vector dimension.
	Dimensions() int

	// Model returns the embedding model identifier. Vectors from different
	// models must never be compared; the vector index keys entries by model.
	Model() string
}

type embeddingService struct {
	client     *openai.Client
	model      string
	dimensions int
	timeout    time.Duration
	retry      retryOptions
}

// NewEmbeddingService creates a new EmbeddingService for any OpenAI-compatible
// provider (openai, siliconflow, ollama, dashscope, etc.). Credentials and
// model are explicit construction parameters; nothing is read from globals.
func NewEmbeddingService(cfg *EmbeddingConfig) (EmbeddingService, error) {
	if cfg.Model == "" {
		return nil, errors.New("embedding model required")
	}
	if cfg.Dimensions <= 0 {
		return nil, errors.New("embedding dimensions required")
	}

	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	return &embeddingService{
		client:     openai.NewClientWithConfig(clientConfig),
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		timeout:    timeout,
		retry:      defaultRetryOptions(),
	}, nil
}

func (s *embeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	vectors, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vectors[0], nil
}

func (s *embeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, errors.Wrap(ErrInvalidInput, "no texts provided for embedding")
	}

	input := make([]string, len(texts))
	for i, text := range texts {
		if strings.TrimSpace(text) == "" {
			return nil, errors.Wrap(ErrInvalidInput, "empty text cannot be embedded")
		}
		input[i] = truncateText(text, MaxInputRunes)
	}

	req := openai.EmbeddingRequest{
		Input:      input,
		Model:      openai.EmbeddingModel(s.model),
		Dimensions: s.dimensions,
	}

	var resp openai.EmbeddingResponse
	start := time.Now()
	err := withRetry(ctx, s.retry, func(ctx context.Context) error {
		callCtx, cancel := context.WithTimeout(ctx, s.timeout)
		defer cancel()

		var callErr error
		resp, callErr = s.client.CreateEmbeddings(callCtx, req)
		return classifyProviderError(callErr)
	})
	metrics.ObserveEmbedding(s.model, time.Since(start), err)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(input) {
		return nil, errors.Wrapf(ErrUpstream, "embedding response size mismatch: got %d, want %d", len(resp.Data), len(input))
	}

	vectors := make([][]float32, len(resp.Data))
	for i, data := range resp.Data {
		if len(data.Embedding) != s.dimensions {
			return nil, errors.Wrapf(ErrUpstream, "embedding dimension mismatch: got %d, want %d", len(data.Embedding), s.dimensions)
		}
		vectors[i] = data.Embedding
	}

	return vectors, nil
}

func (s *embeddingService) Dimensions() int {
	return s.dimensions
}

func (s *embeddingService) Model() string {
	return s.model
}

// truncateText cuts text at the given rune bound. UTF-8 safe.
func truncateText(text string, maxRunes int) string {
	runes := []rune(text)
	if len(runes) <= maxRunes {
		return text
	}
	return string(runes[:maxRunes])
}
