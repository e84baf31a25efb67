// Package indexer keeps the vector index in sync with published content.
// Embeddings are derived data: computed after creation, recomputed after text
// changes, removed with the record. The indexer is the async half of that
// lifecycle.
package indexer

import (
	"context"
	"log/slog"
	"time"

	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/store"
)

// EmbeddingService is the subset of the embedding client used here.
type EmbeddingService interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Model() string
}

// ContentStore is the subset of the store used by the indexer.
type ContentStore interface {
	FindContentItemsWithoutEmbedding(ctx context.Context, find *store.FindContentItemsWithoutEmbedding) ([]*store.ContentItem, error)
	UpsertContentEmbedding(ctx context.Context, embedding *store.ContentEmbedding) (*store.ContentEmbedding, error)
}

// Indexer backfills embeddings for content items that have none, or whose
// text changed after the last embedding was written.
type Indexer struct {
	store    ContentStore
	embedder EmbeddingService
	limit    int
	logger   *slog.Logger
}

// New creates an indexer. limit caps items embedded per pass.
func New(st ContentStore, embedder EmbeddingService, limit int) *Indexer {
	if limit <= 0 {
		limit = 100
	}
	return &Indexer{
		store:    st,
		embedder: embedder,
		limit:    limit,
		logger:   slog.Default(),
	}
}

// RunOnce embeds one batch of pending content items. A single item's
// embedding failure is logged and skipped; the pass continues. Returns the
// number of items indexed.
func (ix *Indexer) RunOnce(ctx context.Context) (int, error) {
	items, err := ix.store.FindContentItemsWithoutEmbedding(ctx, &store.FindContentItemsWithoutEmbedding{
		Model: ix.embedder.Model(),
		Limit: ix.limit,
	})
	if err != nil {
		return 0, errors.Wrap(err, "failed to find content items without embedding")
	}

	indexed := 0
	for _, item := range items {
		if err := ix.indexItem(ctx, item); err != nil {
			if ctx.Err() != nil {
				return indexed, ctx.Err()
			}
			ix.logger.Error("failed to index content item", "content_id", item.ID, "error", err)
			continue
		}
		indexed++
	}
	return indexed, nil
}

// Run backfills on every tick until the context is canceled.
func (ix *Indexer) Run(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		indexed, err := ix.RunOnce(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			ix.logger.Error("indexer pass failed", "error", err)
		} else if indexed > 0 {
			ix.logger.Info("indexed content items", "count", indexed)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}

// indexItem embeds the item's text and upserts the vector index entry. Title
// and description embed together so questions can match either.
func (ix *Indexer) indexItem(ctx context.Context, item *store.ContentItem) error {
	text := item.Title + "\n" + item.Description
	vector, err := ix.embedder.Embed(ctx, text)
	if err != nil {
		return err
	}

	now := time.Now().Unix()
	_, err = ix.store.UpsertContentEmbedding(ctx, &store.ContentEmbedding{
		ContentID: item.ID,
		OwnerID:   item.OwnerID,
		Model:     ix.embedder.Model(),
		Embedding: vector,
		Metadata: map[string]string{
			store.MetadataKeyContentID:   item.ID,
			store.MetadataKeyContentType: string(item.ContentType),
			store.MetadataKeyTitle:       item.Title,
		},
		CreatedTs: now,
		UpdatedTs: now,
	})
	return err
}
