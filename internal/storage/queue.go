package db

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

// EnrichmentQueueEntry is one claimed unit of enrichment work.
type EnrichmentQueueEntry struct {
	ID           string
	ItemID       string
	AttemptCount int
}

// ClaimNextEnrichment atomically claims the oldest pending queue entry,
// marking it processing and bumping its attempt count. Returns nil when the
// queue is empty.
func (db *DB) ClaimNextEnrichment(ctx context.Context) (*EnrichmentQueueEntry, error) {
	var (
		entry    EnrichmentQueueEntry
		queueID  uuid.UUID
		itemUUID uuid.UUID
	)

	err := db.Pool.QueryRow(ctx, `
		WITH picked AS (
			SELECT id
			FROM enrichment_queue
			WHERE status = $1
			  AND (next_retry_at IS NULL OR next_retry_at <= now())
			ORDER BY created_at
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		UPDATE enrichment_queue eq
		SET status = $2,
			attempt_count = eq.attempt_count + 1,
			updated_at = now()
		FROM picked
		WHERE eq.id = picked.id
		RETURNING eq.id, eq.item_id, eq.attempt_count
	`, EnrichmentStatusPending, EnrichmentStatusProcessing).Scan(
		&queueID,
		&itemUUID,
		&entry.AttemptCount,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil //nolint:nilnil // nil,nil indicates an empty queue
		}

		return nil, fmt.Errorf("claim next enrichment: %w", err)
	}

	entry.ID = queueID.String()
	entry.ItemID = itemUUID.String()

	return &entry, nil
}

// UpdateEnrichmentStatus records the outcome of a claimed entry. A non-nil
// retryAt puts an errored entry back into pending rotation at that time.
func (db *DB) UpdateEnrichmentStatus(ctx context.Context, queueID, status, errMsg string, retryAt *time.Time) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE enrichment_queue
		SET status = $2,
			error_message = $3,
			next_retry_at = $4,
			updated_at = now()
		WHERE id = $1
	`, toUUID(queueID), status, toText(errMsg), retryAt)
	if err != nil {
		return fmt.Errorf("update enrichment status: %w", err)
	}

	return nil
}

// CountPendingEnrichments returns the current pending backlog size.
func (db *DB) CountPendingEnrichments(ctx context.Context) (int, error) {
	var count int

	err := db.Pool.QueryRow(ctx, `
		SELECT COUNT(*)
		FROM enrichment_queue
		WHERE status = $1
	`, EnrichmentStatusPending).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count pending enrichments: %w", err)
	}

	return count, nil
}
