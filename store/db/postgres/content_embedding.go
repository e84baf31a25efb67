package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/pgvector/pgvector-go"
	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/store"
)

// UpsertContentEmbedding inserts or replaces a content embedding. The single
// ON CONFLICT upsert keeps the replace atomic for concurrent readers.
func (d *DB) UpsertContentEmbedding(ctx context.Context, embedding *store.ContentEmbedding) (*store.ContentEmbedding, error) {
	metadataJSON, err := json.Marshal(embedding.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding metadata")
	}

	stmt := `
		INSERT INTO content_embedding (content_id, owner_id, model, embedding, metadata, created_ts, updated_ts)
		VALUES (` + placeholders(7) + `)
		ON CONFLICT (content_id, model)
		DO UPDATE SET
			owner_id = EXCLUDED.owner_id,
			embedding = EXCLUDED.embedding,
			metadata = EXCLUDED.metadata,
			updated_ts = EXCLUDED.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	vector := pgvector.NewVector(embedding.Embedding)
	err = d.db.QueryRowContext(ctx, stmt,
		embedding.ContentID,
		embedding.OwnerID,
		embedding.Model,
		vector,
		metadataJSON,
		embedding.CreatedTs,
		embedding.UpdatedTs,
	).Scan(&embedding.ID, &embedding.CreatedTs, &embedding.UpdatedTs)
	if err != nil {
		return nil, errors.Wrap(err, "failed to upsert content embedding")
	}

	return embedding, nil
}

// GetContentEmbedding gets the embedding of a content item for a model.
func (d *DB) GetContentEmbedding(ctx context.Context, contentID string, model string) (*store.ContentEmbedding, error) {
	query := `
		SELECT id, content_id, owner_id, model, embedding, metadata, created_ts, updated_ts
		FROM content_embedding
		WHERE content_id = ` + placeholder(1) + ` AND model = ` + placeholder(2)

	var embedding store.ContentEmbedding
	var vector pgvector.Vector
	var metadataJSON []byte

	err := d.db.QueryRowContext(ctx, query, contentID, model).Scan(
		&embedding.ID,
		&embedding.ContentID,
		&embedding.OwnerID,
		&embedding.Model,
		&vector,
		&metadataJSON,
		&embedding.CreatedTs,
		&embedding.UpdatedTs,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, errors.Wrap(err, "failed to get content embedding")
	}

	embedding.Embedding = vector.Slice()
	if err := json.Unmarshal(metadataJSON, &embedding.Metadata); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal embedding metadata")
	}
	return &embedding, nil
}

// DeleteContentEmbedding deletes a content embedding. Deleting a non-existent
// entry is a no-op.
func (d *DB) DeleteContentEmbedding(ctx context.Context, contentID string) error {
	stmt := `DELETE FROM content_embedding WHERE content_id = ` + placeholder(1)
	if _, err := d.db.ExecContext(ctx, stmt, contentID); err != nil {
		return errors.Wrap(err, "failed to delete content embedding")
	}
	return nil
}

// ContentVectorSearch performs similarity search inside the database with the
// pgvector cosine distance operator. similarity = 1 - distance; ordering is
// descending similarity with most-recent insertion breaking ties.
func (d *DB) ContentVectorSearch(ctx context.Context, opts *store.ContentVectorSearchOptions) ([]*store.ContentMatch, error) {
	where := []string{
		"owner_id = " + placeholder(2),
		"model = " + placeholder(3),
	}
	args := []any{pgvector.NewVector(opts.Vector), opts.OwnerID, opts.Model}

	if len(opts.MetadataFilter) > 0 {
		filterJSON, err := json.Marshal(opts.MetadataFilter)
		if err != nil {
			return nil, errors.Wrap(err, "failed to marshal metadata filter")
		}
		where = append(where, "metadata @> "+placeholder(len(args)+1))
		args = append(args, filterJSON)
	}

	query := `
		SELECT content_id, 1 - (embedding <=> $1) AS score, metadata
		FROM content_embedding
		WHERE ` + where[0] + " AND " + where[1]
	if len(where) > 2 {
		query += " AND " + where[2]
	}
	query += `
		ORDER BY embedding <=> $1 ASC, updated_ts DESC, id DESC
		LIMIT ` + placeholder(len(args)+1)
	args = append(args, opts.Limit)

	rows, err := d.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "failed to run content vector search")
	}
	defer rows.Close()

	matches := []*store.ContentMatch{}
	for rows.Next() {
		var match store.ContentMatch
		var metadataJSON []byte
		if err := rows.Scan(&match.ContentID, &match.Score, &metadataJSON); err != nil {
			return nil, errors.Wrap(err, "failed to scan content match")
		}
		if err := json.Unmarshal(metadataJSON, &match.Metadata); err != nil {
			return nil, errors.Wrap(err, "failed to unmarshal match metadata")
		}
		matches = append(matches, &match)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	return matches, nil
}
