package db

import (
	"context"
	"fmt"

	"github.com/researchhub/research-hub/internal/core/domain"
)

// IncrementDomainPairs bumps the co-occurrence count of each domain pair by
// one. The item carries a processed marker that is flipped in the same
// transaction, so re-running enrichment for an item never double-counts.
// Returns false when the item was already counted.
func (db *DB) IncrementDomainPairs(ctx context.Context, itemID string, pairs []domain.DomainPair) (bool, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return false, fmt.Errorf("begin increment domain pairs: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	tag, err := tx.Exec(ctx, `
		UPDATE research_items
		SET domains_processed = true
		WHERE id = $1 AND NOT domains_processed
	`, toUUID(itemID))
	if err != nil {
		return false, fmt.Errorf("mark domains processed: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return false, nil
	}

	for _, pair := range pairs {
		_, err = tx.Exec(ctx, `
			INSERT INTO domain_cooccurrences (domain_a, domain_b, count)
			VALUES ($1, $2, 1)
			ON CONFLICT (domain_a, domain_b)
			DO UPDATE SET count = domain_cooccurrences.count + 1, updated_at = now()
		`, pair.A, pair.B)
		if err != nil {
			return false, fmt.Errorf("increment domain pair %s/%s: %w", pair.A, pair.B, err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return false, fmt.Errorf("commit increment domain pairs: %w", err)
	}

	return true, nil
}

// GetDomainPairCount returns the current co-occurrence count for a pair.
func (db *DB) GetDomainPairCount(ctx context.Context, pair domain.DomainPair) (int64, error) {
	var count int64

	err := db.Pool.QueryRow(ctx, `
		SELECT count
		FROM domain_cooccurrences
		WHERE domain_a = $1 AND domain_b = $2
	`, pair.A, pair.B).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("get domain pair count: %w", err)
	}

	return count, nil
}
