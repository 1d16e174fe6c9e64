package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/researchhub/research-hub/internal/core/domain"
)

// ReplaceChunks atomically replaces all chunks of the given type for an
// item. Old rows are deleted first so a re-run never leaves stale indices
// behind.
func (db *DB) ReplaceChunks(ctx context.Context, itemID string, chunkType domain.ChunkType, texts []string) error {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin replace chunks: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	_, err = tx.Exec(ctx, `
		DELETE FROM research_chunks
		WHERE item_id = $1 AND chunk_type = $2
	`, toUUID(itemID), string(chunkType))
	if err != nil {
		return fmt.Errorf("delete chunks: %w", err)
	}

	for i, text := range texts {
		_, err = tx.Exec(ctx, `
			INSERT INTO research_chunks (item_id, chunk_index, chunk_type, chunk_text)
			VALUES ($1, $2, $3, $4)
		`, toUUID(itemID), i, string(chunkType), SanitizeUTF8(text))
		if err != nil {
			return fmt.Errorf("insert chunk %d: %w", i, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit replace chunks: %w", err)
	}

	return nil
}

// ListChunks returns an item's chunks of one type ordered by index.
func (db *DB) ListChunks(ctx context.Context, itemID string, chunkType domain.ChunkType) ([]domain.Chunk, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, item_id, chunk_index, chunk_type, chunk_text, created_at
		FROM research_chunks
		WHERE item_id = $1 AND chunk_type = $2
		ORDER BY chunk_index
	`, toUUID(itemID), string(chunkType))
	if err != nil {
		return nil, fmt.Errorf("list chunks: %w", err)
	}
	defer rows.Close()

	chunks := []domain.Chunk{}

	for rows.Next() {
		var (
			chunk   domain.Chunk
			id      uuid.UUID
			itemUID uuid.UUID
		)

		if err := rows.Scan(&id, &itemUID, &chunk.Index, &chunk.Type, &chunk.Text, &chunk.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}

		chunk.ID = id.String()
		chunk.ItemID = itemUID.String()

		chunks = append(chunks, chunk)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate chunks: %w", rows.Err())
	}

	return chunks, nil
}
