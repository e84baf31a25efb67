package sqlite

import (
	"context"
	"database/sql"
	"encoding/binary"
	"encoding/json"
	"math"
	"sort"

	"github.com/pkg/errors"

	"github.com/orbitview/orbitview/ai/similarity"
	"github.com/orbitview/orbitview/store"
)

// float32ArrayToBLOB encodes a vector as a little-endian float32 BLOB.
func float32ArrayToBLOB(vec []float32) []byte {
	buf := make([]byte, len(vec)*4)
	for i, v := range vec {
		binary.LittleEndian.PutUint32(buf[i*4:i*4+4], math.Float32bits(v))
	}
	return buf
}

// blobToFloat32Array is the inverse of float32ArrayToBLOB.
func blobToFloat32Array(blob []byte) ([]float32, error) {
	if len(blob)%4 != 0 {
		return nil, errors.Errorf("invalid embedding BLOB length: %d", len(blob))
	}
	vec := make([]float32, len(blob)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(blob[i*4 : i*4+4]))
	}
	return vec, nil
}

// UpsertContentEmbedding inserts or replaces a content embedding. A single
// upsert statement keeps the replace atomic for concurrent readers.
func (d *DB) UpsertContentEmbedding(ctx context.Context, embedding *store.ContentEmbedding) (*store.ContentEmbedding, error) {
	metadataJSON, err := json.Marshal(embedding.Metadata)
	if err != nil {
		return nil, errors.Wrap(err, "failed to marshal embedding metadata")
	}

	stmt := `
		INSERT INTO content_embedding (content_id, owner_id, model, embedding, metadata, created_ts, updated_ts)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (content_id, model) DO UPDATE SET
			owner_id = excluded.owner_id,
			embedding = excluded.embedding,
			metadata = excluded.metadata,
			updated_ts = excluded.updated_ts
		RETURNING id, created_ts, updated_ts
	`

	err = d.db.QueryRowContext(ctx, stmt,
		embedding.ContentID,
		embedding.OwnerID,
		embedding.Model,
		float32ArrayToBLOB(embedding.Embedding),
		string(metadataJSON),
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
		WHERE content_id = ? AND model = ?
	`

	embedding, err := scanContentEmbedding(d.db.QueryRowContext(ctx, query, contentID, model))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return embedding, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanContentEmbedding(row rowScanner) (*store.ContentEmbedding, error) {
	var embedding store.ContentEmbedding
	var blob []byte
	var metadataJSON string

	if err := row.Scan(
		&embedding.ID,
		&embedding.ContentID,
		&embedding.OwnerID,
		&embedding.Model,
		&blob,
		&metadataJSON,
		&embedding.CreatedTs,
		&embedding.UpdatedTs,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, errors.Wrap(err, "failed to scan content embedding")
	}

	vec, err := blobToFloat32Array(blob)
	if err != nil {
		return nil, err
	}
	embedding.Embedding = vec

	if err := json.Unmarshal([]byte(metadataJSON), &embedding.Metadata); err != nil {
		return nil, errors.Wrap(err, "failed to unmarshal embedding metadata")
	}
	return &embedding, nil
}

// DeleteContentEmbedding deletes a content embedding. Deleting a non-existent
// entry is a no-op.
func (d *DB) DeleteContentEmbedding(ctx context.Context, contentID string) error {
	stmt := `DELETE FROM content_embedding WHERE content_id = ?`
	if _, err := d.db.ExecContext(ctx, stmt, contentID); err != nil {
		return errors.Wrap(err, "failed to delete content embedding")
	}
	return nil
}

// ContentVectorSearch performs similarity search with Go-based cosine
// computation. All vectors of the owner namespace are loaded and scored in
// the application layer; ordering is descending similarity with most-recent
// insertion breaking ties.
func (d *DB) ContentVectorSearch(ctx context.Context, opts *store.ContentVectorSearchOptions) ([]*store.ContentMatch, error) {
	query := `
		SELECT id, content_id, owner_id, model, embedding, metadata, created_ts, updated_ts
		FROM content_embedding
		WHERE owner_id = ? AND model = ?
	`

	rows, err := d.db.QueryContext(ctx, query, opts.OwnerID, opts.Model)
	if err != nil {
		return nil, errors.Wrap(err, "failed to query content embeddings")
	}
	defer rows.Close()

	type scored struct {
		match     *store.ContentMatch
		updatedTs int64
		id        int64
	}

	candidates := []scored{}
	for rows.Next() {
		embedding, err := scanContentEmbedding(rows)
		if err != nil {
			return nil, err
		}

		if !metadataMatches(embedding.Metadata, opts.MetadataFilter) {
			continue
		}

		// Corrupted embeddings (dimension mismatch, zero vector) abort the
		// search; masking them would silently skew results.
		score, err := similarity.Cosine(embedding.Embedding, opts.Vector)
		if err != nil {
			return nil, errors.Wrapf(err, "content %s", embedding.ContentID)
		}

		candidates = append(candidates, scored{
			match: &store.ContentMatch{
				ContentID: embedding.ContentID,
				Score:     score,
				Metadata:  embedding.Metadata,
			},
			updatedTs: embedding.UpdatedTs,
			id:        embedding.ID,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	sort.SliceStable(candidates, func(i, j int) bool {
		if candidates[i].match.Score != candidates[j].match.Score {
			return candidates[i].match.Score > candidates[j].match.Score
		}
		if candidates[i].updatedTs != candidates[j].updatedTs {
			return candidates[i].updatedTs > candidates[j].updatedTs
		}
		return candidates[i].id > candidates[j].id
	})

	if len(candidates) > opts.Limit {
		candidates = candidates[:opts.Limit]
	}

	matches := make([]*store.ContentMatch, len(candidates))
	for i, c := range candidates {
		matches[i] = c.match
	}
	return matches, nil
}

func metadataMatches(metadata, filter map[string]string) bool {
	for k, v := range filter {
		if metadata[k] != v {
			return false
		}
	}
	return true
}
