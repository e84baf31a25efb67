package store

import (
	"context"

	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/ai/metrics"
)

// ErrInvalidArgument means a bad search parameter (limit < 1, empty vector).
var ErrInvalidArgument = errors.New("invalid argument")

// Metadata keys required on every vector index entry.
const (
	MetadataKeyContentID   = "content_id"
	MetadataKeyContentType = "content_type"
	MetadataKeyTitle       = "title"
)

// ContentEmbedding represents the vector index entry of a content item.
// Entries are namespaced by OwnerID; searches never cross namespaces.
type ContentEmbedding struct {
	ID        int64
	ContentID string
	OwnerID   string
	Model     string
	Embedding []float32
	Metadata  map[string]string
	CreatedTs int64
	UpdatedTs int64
}

// ContentMatch represents a vector search result with similarity score.
type ContentMatch struct {
	ContentID string
	Score     float32 // Cosine similarity in [-1, 1]
	Metadata  map[string]string
}

// ContentVectorSearchOptions represents the options for content vector search.
type ContentVectorSearchOptions struct {
	OwnerID string
	Vector  []float32
	Model   string
	Limit   int

	// MetadataFilter requires exact matches on entry metadata, e.g.
	// {"content_type": "experience"}.
	MetadataFilter map[string]string
}

// Validate validates the ContentVectorSearchOptions.
func (o *ContentVectorSearchOptions) Validate() error {
	if o.OwnerID == "" {
		return errors.Wrap(ErrInvalidArgument, "owner id cannot be empty")
	}
	if len(o.Vector) == 0 {
		return errors.Wrap(ErrInvalidArgument, "vector cannot be empty")
	}
	if o.Model == "" {
		return errors.Wrap(ErrInvalidArgument, "embedding model cannot be empty")
	}
	if o.Limit < 1 {
		return errors.Wrapf(ErrInvalidArgument, "limit must be >= 1, got %d", o.Limit)
	}
	if o.Limit > 1000 {
		return errors.Wrapf(ErrInvalidArgument, "limit too large (max 1000): %d", o.Limit)
	}
	return nil
}

// UpsertContentEmbedding inserts or replaces the embedding of a content item.
// The replace is a single upsert statement: readers either see the old entry
// or the new one, never a half-updated row.
func (s *Store) UpsertContentEmbedding(ctx context.Context, embedding *ContentEmbedding) (*ContentEmbedding, error) {
	if embedding.ContentID == "" || embedding.OwnerID == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "content id and owner id required")
	}
	if embedding.Model == "" {
		return nil, errors.Wrap(ErrInvalidArgument, "embedding model required")
	}
	if len(embedding.Embedding) == 0 {
		return nil, errors.Wrap(ErrInvalidArgument, "embedding vector required")
	}
	if embedding.Metadata == nil {
		embedding.Metadata = map[string]string{}
	}
	embedding.Metadata[MetadataKeyContentID] = embedding.ContentID
	return s.driver.UpsertContentEmbedding(ctx, embedding)
}

// GetContentEmbedding gets the stored embedding of a content item for the
// given model. Returns nil when no entry exists.
func (s *Store) GetContentEmbedding(ctx context.Context, contentID string, model string) (*ContentEmbedding, error) {
	return s.driver.GetContentEmbedding(ctx, contentID, model)
}

// DeleteContentEmbedding removes the vector index entry of a content item.
// Deleting a non-existent entry is a no-op.
func (s *Store) DeleteContentEmbedding(ctx context.Context, contentID string) error {
	return s.driver.DeleteContentEmbedding(ctx, contentID)
}

// ContentVectorSearch performs similarity search restricted to one owner's
// namespace. Results are ordered by descending cosine similarity, ties broken
// by most-recent insertion. An empty namespace yields an empty slice.
func (s *Store) ContentVectorSearch(ctx context.Context, opts *ContentVectorSearchOptions) ([]*ContentMatch, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	matches, err := s.driver.ContentVectorSearch(ctx, opts)
	metrics.ObserveVectorSearch(err)
	return matches, err
}
