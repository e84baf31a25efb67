package store

import (
	"context"
)

// ContentType classifies a published content item.
type ContentType string

const (
	ContentTypeExperience  ContentType = "experience"
	ContentTypeProject     ContentType = "project"
	ContentTypeDocument    ContentType = "document"
	ContentTypeTemplate    ContentType = "template"
	ContentTypeAchievement ContentType = "achievement"
)

// ContentItem represents a piece of profile content published by a user.
// Its embedding is derived data: computed asynchronously after creation,
// recomputed when the description changes, and rebuildable from the text at
// any time. The text here is the source of truth, never the vector.
type ContentItem struct {
	ID          string
	OwnerID     string
	Title       string
	ContentType ContentType
	Description string
	Metadata    map[string]string
	CreatedTs   int64
	UpdatedTs   int64
}

// FindContentItem is the find condition for content items.
type FindContentItem struct {
	ID      *string
	OwnerID *string
	IDs     []string
	Limit   int
}

// UpdateContentItem is the update payload for a content item.
// A non-nil Description marks the embedding stale; the indexer recomputes it.
type UpdateContentItem struct {
	ID          string
	Title       *string
	Description *string
	Metadata    map[string]string
	UpdatedTs   int64
}

// FindContentItemsWithoutEmbedding is the find condition for content items
// missing (or carrying a stale) embedding for the given model.
type FindContentItemsWithoutEmbedding struct {
	Model string // Embedding model to check
	Limit int    // Maximum number of items to return
}

// CreateContentItem creates a content item. The embedding is not computed
// here; the indexer picks the item up on its next pass.
func (s *Store) CreateContentItem(ctx context.Context, create *ContentItem) (*ContentItem, error) {
	return s.driver.CreateContentItem(ctx, create)
}

// GetContentItem gets a content item by id. Returns nil when not found.
func (s *Store) GetContentItem(ctx context.Context, id string) (*ContentItem, error) {
	list, err := s.driver.ListContentItems(ctx, &FindContentItem{ID: &id})
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return list[0], nil
}

// ListContentItems lists content items.
func (s *Store) ListContentItems(ctx context.Context, find *FindContentItem) ([]*ContentItem, error) {
	return s.driver.ListContentItems(ctx, find)
}

// UpdateContentItem updates a content item.
func (s *Store) UpdateContentItem(ctx context.Context, update *UpdateContentItem) (*ContentItem, error) {
	return s.driver.UpdateContentItem(ctx, update)
}

// DeleteContentItem deletes a content item and its vector index entry, so the
// item can never surface again in relevance results.
func (s *Store) DeleteContentItem(ctx context.Context, id string) error {
	if err := s.driver.DeleteContentEmbedding(ctx, id); err != nil {
		return err
	}
	return s.driver.DeleteContentItem(ctx, id)
}

// FindContentItemsWithoutEmbedding finds content items that don't have an
// up-to-date embedding for the specified model.
func (s *Store) FindContentItemsWithoutEmbedding(ctx context.Context, find *FindContentItemsWithoutEmbedding) ([]*ContentItem, error) {
	return s.driver.FindContentItemsWithoutEmbedding(ctx, find)
}
