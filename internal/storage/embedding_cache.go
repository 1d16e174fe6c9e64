package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	errs "github.com/researchhub/research-hub/internal/core/errors"
)

// GetEmbedding returns a cached embedding by content hash. Expired entries
// read as misses.
func (db *DB) GetEmbedding(ctx context.Context, hash string) ([]float32, error) {
	var vec pgvector.Vector

	err := db.Pool.QueryRow(ctx, `
		SELECT embedding
		FROM embedding_cache
		WHERE content_hash = $1 AND expires_at > now()
	`, hash).Scan(&vec)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrCacheNotFound
		}

		return nil, fmt.Errorf("get cached embedding: %w", err)
	}

	return vec.Slice(), nil
}

// SetEmbedding stores an embedding under its content hash.
func (db *DB) SetEmbedding(ctx context.Context, hash string, vector []float32, ttl time.Duration) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO embedding_cache (content_hash, embedding, expires_at)
		VALUES ($1, $2, now() + $3)
		ON CONFLICT (content_hash)
		DO UPDATE SET embedding = EXCLUDED.embedding, expires_at = EXCLUDED.expires_at
	`, hash, pgvector.NewVector(vector), ttl)
	if err != nil {
		return fmt.Errorf("set cached embedding: %w", err)
	}

	return nil
}

// PurgeExpiredEmbeddings deletes expired cache rows and returns how many
// were removed.
func (db *DB) PurgeExpiredEmbeddings(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM embedding_cache
		WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("purge expired embeddings: %w", err)
	}

	return tag.RowsAffected(), nil
}
