package db

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/researchhub/research-hub/internal/core/domain"
)

// UpsertSummary writes a summary for one (item, scope, length) slot,
// overwriting any previous text.
func (db *DB) UpsertSummary(ctx context.Context, summary domain.Summary) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO research_summaries (item_id, scope, length_bucket, summary_text)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (item_id, scope, length_bucket)
		DO UPDATE SET summary_text = EXCLUDED.summary_text, created_at = now()
	`,
		toUUID(summary.ItemID),
		string(summary.Scope),
		string(summary.Length),
		SanitizeUTF8(summary.Text),
	)
	if err != nil {
		return fmt.Errorf("upsert summary: %w", err)
	}

	return nil
}

// ListSummaries returns all summaries stored for an item.
func (db *DB) ListSummaries(ctx context.Context, itemID string) ([]domain.Summary, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, item_id, scope, length_bucket, summary_text, created_at
		FROM research_summaries
		WHERE item_id = $1
		ORDER BY scope, length_bucket
	`, toUUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	summaries := []domain.Summary{}

	for rows.Next() {
		var (
			summary domain.Summary
			id      uuid.UUID
			itemUID uuid.UUID
		)

		if err := rows.Scan(&id, &itemUID, &summary.Scope, &summary.Length, &summary.Text, &summary.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan summary: %w", err)
		}

		summary.ID = id.String()
		summary.ItemID = itemUID.String()

		summaries = append(summaries, summary)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate summaries: %w", rows.Err())
	}

	return summaries, nil
}
