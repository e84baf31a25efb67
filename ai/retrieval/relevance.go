// Package retrieval resolves the content items of one user most relevant to a
// natural-language query, and snapshots them onto newly created questions.
package retrieval

import (
	"context"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/ai"
	"github.com/orbitview/orbitview/store"
)

// DefaultTopK is the default number of content items attached to a question.
const DefaultTopK = 5

// EmbeddingService is the subset of the embedding client used here.
// Local interface to keep the resolver mockable in tests.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ContentStore is the subset of the store used by the resolver.
type ContentStore interface {
	ContentVectorSearch(ctx context.Context, opts *store.ContentVectorSearchOptions) ([]*store.ContentMatch, error)
	ListContentItems(ctx context.Context, find *store.FindContentItem) ([]*store.ContentItem, error)
	CreateQuestion(ctx context.Context, create *store.Question) (*store.Question, error)
}

// Resolver finds content relevant to a query within one owner's namespace.
type Resolver struct {
	store    ContentStore
	embedder EmbeddingService
}

// NewResolver creates a content relevance resolver.
func NewResolver(st ContentStore, embedder EmbeddingService) *Resolver {
	return &Resolver{
		store:    st,
		embedder: embedder,
	}
}

// FindRelevant returns the owner's content items most relevant to queryText,
// ordered by descending similarity. Items whose records were deleted between
// index write and lookup are silently dropped. Deterministic given a frozen
// index and embedding model.
func (r *Resolver) FindRelevant(ctx context.Context, queryText string, ownerID string, topK int) ([]*store.ContentItem, error) {
	if strings.TrimSpace(queryText) == "" {
		return nil, errors.Wrap(ai.ErrInvalidInput, "query text cannot be empty")
	}
	if topK < 1 {
		return nil, errors.Wrapf(ai.ErrInvalidArgument, "topK must be >= 1, got %d", topK)
	}

	queryVector, err := r.embedder.Embed(ctx, queryText)
	if err != nil {
		return nil, errors.Wrap(err, "failed to embed query")
	}

	matches, err := r.store.ContentVectorSearch(ctx, &store.ContentVectorSearchOptions{
		OwnerID: ownerID,
		Vector:  queryVector,
		Model:   r.embedder.Model(),
		Limit:   topK,
	})
	if err != nil {
		return nil, errors.Wrap(err, "content vector search failed")
	}
	if len(matches) == 0 {
		return []*store.ContentItem{}, nil
	}

	contentIDs := make([]string, len(matches))
	for i, match := range matches {
		contentIDs[i] = match.ContentID
	}

	items, err := r.store.ListContentItems(ctx, &store.FindContentItem{IDs: contentIDs})
	if err != nil {
		return nil, errors.Wrap(err, "failed to resolve content records")
	}
	byID := make(map[string]*store.ContentItem, len(items))
	for _, item := range items {
		byID[item.ID] = item
	}

	// Preserve search order; drop ids whose records no longer exist.
	result := make([]*store.ContentItem, 0, len(matches))
	for _, id := range contentIDs {
		if item, ok := byID[id]; ok {
			result = append(result, item)
		}
	}
	return result, nil
}

// CreateQuestion creates a question addressed to targetUserID and attaches
// the relevant-content snapshot. The resolver runs exactly once here; later
// content changes never rewrite the snapshot.
func (r *Resolver) CreateQuestion(ctx context.Context, askerID, targetUserID, questionText string) (*store.Question, error) {
	relevant, err := r.FindRelevant(ctx, questionText, targetUserID, DefaultTopK)
	if err != nil {
		return nil, err
	}

	contentIDs := make([]string, len(relevant))
	for i, item := range relevant {
		contentIDs[i] = item.ID
	}

	return r.store.CreateQuestion(ctx, &store.Question{
		ID:                 uuid.NewString(),
		AskerID:            askerID,
		TargetUserID:       targetUserID,
		Question:           questionText,
		RelevantContentIDs: contentIDs,
		CreatedTs:          time.Now().Unix(),
	})
}
