package sqlite

import (
	"context"
	"encoding/json"
	"strings"

	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/store"
)

// CreateContentItem creates a content item.
func (d *DB) CreateContentItem(ctx context.Context, create *store.ContentItem) (*store.ContentItem, error) {
	metadataJSON, err := json.Marshal(orEmptyMap(create.Metadata))
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal content metadata")
	}

	stmt := `
		INSERT INTO content_item (id, owner_id, title, content_type, description, metadata, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	if _, err := d.db.ExecContext(ctx, stmt,
		create.ID,
		create.OwnerID,
		create.Title,
		string(create.ContentType),
		create.Description,
		string(metadataJSON),
		create.CreatedTs,
		create.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to create content item")
	}

	return create, nil
}

// ListContentItems lists content items.
func (d *DB) ListContentItems(ctx context.Context, find *store.FindContentItem) ([]*store.ContentItem, error) {
	where, args := []string{"1 = 1"}, []any{}

	if find.ID != nil {
		where, args = append(where, "id = ?"), append(args, *find.ID)
	}
	if find.OwnerID != nil {
		where, args = append(where, "owner_id = ?"), append(args, *find.OwnerID)
	}
	if len(find.IDs) > 0 {
		placeholders := make([]string, len(find.IDs))
		for i, id := range find.IDs {
			placeholders[i] = "?"
			args = append(args, id)
		}
		where = append(where, "id IN ("+strings.Join(placeholders, ", ")+")")
	}

	query := `
		SELECT id, owner_id, title, content_type, description, metadata, created_ts, updated_ts
		FROM content_item
		WHERE ` + strings.Join(where, " AND ") + `
		ORDER BY created_ts DESC
	`
	if find.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, find.Limit)
	}

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to list content items")
	}
	defer rows.Close()

	list := []*store.ContentItem{}
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func scanContentItem(row rowScanner) (*store.ContentItem, error) {
	var item store.ContentItem
	var contentType string
	var metadataJSON string

	if err := row.Scan(
		&item.ID,
		&item.OwnerID,
		&item.Title,
		&contentType,
		&item.Description,
		&metadataJSON,
		&item.CreatedTs,
		&item.UpdatedTs,
	); err != nil {
		return nil, errors.Wrap(err, "failed to scan content item")
	}

	item.ContentType = store.ContentType(contentType)
	if err := json.Unmarshal([]byte(metadataJSON), &item.Metadata); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal content metadata")
	}
	return &item, nil
}

// UpdateContentItem updates a content item. Bumping updated_ts marks the
// embedding stale for the indexer.
func (d *DB) UpdateContentItem(ctx context.Context, update *store.UpdateContentItem) (*store.ContentItem, error) {
	set, args := []string{"updated_ts = ?"}, []any{update.UpdatedTs}

	if update.Title != nil {
		set, args = append(set, "title = ?"), append(args, *update.Title)
	}
	if update.Description != nil {
		set, args = append(set, "description = ?"), append(args, *update.Description)
	}
	if update.Metadata != nil {
		metadataJSON, err := json.Marshal(update.Metadata)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal content metadata")
		}
		set, args = append(set, "metadata = ?"), append(args, string(metadataJSON))
	}
	args = append(args, update.ID)

	stmt := `
		UPDATE content_item SET ` + strings.Join(set, ", ") + `
		WHERE id = ?
		RETURNING id, owner_id, title, content_type, description, metadata, created_ts, updated_ts
	`
	return scanContentItem(d.db.QueryRowContext(ctx, stmt, args...))
}

// DeleteContentItem deletes a content item. Deleting a non-existent item is a
// no-op.
func (d *DB) DeleteContentItem(ctx context.Context, id string) error {
	if _, err := d.db.ExecContext(ctx, `DELETE FROM content_item WHERE id = ?`, id); err != nil {
		return errors.Wrap(err, "failed to delete content item")
	}
	return nil
}

// FindContentItemsWithoutEmbedding finds content items with no embedding for
// the model, or whose text changed after the embedding was written.
func (d *DB) FindContentItemsWithoutEmbedding(ctx context.Context, find *store.FindContentItemsWithoutEmbedding) ([]*store.ContentItem, error) {
	limit := find.Limit
	if limit <= 0 {
		limit = 100
	}

	query := `
		SELECT c.id, c.owner_id, c.title, c.content_type, c.description, c.metadata, c.created_ts, c.updated_ts
		FROM content_item c
		LEFT JOIN content_embedding e ON c.id = e.content_id AND e.model = ?
		WHERE e.id IS NULL OR e.updated_ts < c.updated_ts
		ORDER BY c.created_ts ASC
		LIMIT ?
	`

	rows, err := d.db.QueryContext(ctx, query, find.Model, limit)
	if err != nil {
		return nil, errors.Wrap(err, "failed to find content items without embedding")
	}
	defer rows.Close()

	list := []*store.ContentItem{}
	for rows.Next() {
		item, err := scanContentItem(rows)
		if err != nil {
			return nil, err
		}
		list = append(list, item)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return list, nil
}

func orEmptyMap(m map[string]string) map[string]string {
	if m == nil {
		return map[string]string{}
	}
	return m
}
