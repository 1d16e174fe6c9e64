package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"
	"github.com/pgvector/pgvector-go"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
)

// CompleteJobParams carries everything needed to materialize a completed
// job into a research item.
type CompleteJobParams struct {
	JobID       string
	UserID      string
	OrgID       string
	Visibility  domain.Visibility
	Title       string
	PromptText  string
	FinalReport string
	ModelName   string
	ModelParams map[string]any
	Sources     []domain.Source
}

// CompleteJob creates the research item, its sources, links it to the job,
// marks the job completed, and enqueues enrichment. All in one transaction
// so a crash can never leave a completed job without its item or its queue
// entry.
func (db *DB) CompleteJob(ctx context.Context, params CompleteJobParams) (string, error) {
	tx, err := db.Pool.Begin(ctx)
	if err != nil {
		return "", fmt.Errorf("begin complete job: %w", err)
	}

	defer func() {
		_ = tx.Rollback(ctx)
	}()

	var itemID uuid.UUID

	err = tx.QueryRow(ctx, `
		INSERT INTO research_items (user_id, org_id, visibility, title, prompt_text, final_report, model_name, model_params, source_count)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id
	`,
		toUUID(params.UserID),
		toUUID(params.OrgID),
		string(params.Visibility),
		SanitizeUTF8(params.Title),
		SanitizeUTF8(params.PromptText),
		SanitizeUTF8(params.FinalReport),
		params.ModelName,
		params.ModelParams,
		len(params.Sources),
	).Scan(&itemID)
	if err != nil {
		return "", fmt.Errorf("insert item: %w", err)
	}

	for _, src := range params.Sources {
		_, err = tx.Exec(ctx, `
			INSERT INTO research_sources (item_id, url, title, excerpt, domain, source_type)
			VALUES ($1, $2, $3, $4, $5, $6)
		`,
			itemID,
			src.URL,
			toText(src.Title),
			toText(src.Excerpt),
			toText(src.Domain),
			src.SourceType,
		)
		if err != nil {
			return "", fmt.Errorf("insert source: %w", err)
		}
	}

	tag, err := tx.Exec(ctx, `
		UPDATE research_jobs
		SET status = $2, item_id = $3, updated_at = now()
		WHERE id = $1
	`, toUUID(params.JobID), string(domain.StatusCompleted), itemID)
	if err != nil {
		return "", fmt.Errorf("link job to item: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return "", errs.ErrNotFound
	}

	_, err = tx.Exec(ctx, `
		INSERT INTO enrichment_queue (item_id)
		VALUES ($1)
		ON CONFLICT (item_id) DO NOTHING
	`, itemID)
	if err != nil {
		return "", fmt.Errorf("enqueue enrichment: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return "", fmt.Errorf("commit complete job: %w", err)
	}

	return itemID.String(), nil
}

// GetItem returns a research item by id.
func (db *DB) GetItem(ctx context.Context, id string) (*domain.Item, error) {
	var (
		item      domain.Item
		itemID    uuid.UUID
		userID    uuid.UUID
		orgID     pgtype.UUID
		title     pgtype.Text
		modelName pgtype.Text
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT id, user_id, org_id, visibility, title, prompt_text, final_report, model_name, model_params, source_count, created_at
		FROM research_items
		WHERE id = $1
	`, toUUID(id)).Scan(
		&itemID,
		&userID,
		&orgID,
		&item.Visibility,
		&title,
		&item.PromptText,
		&item.FinalReport,
		&modelName,
		&item.ModelParams,
		&item.SourceCount,
		&item.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}

		return nil, fmt.Errorf("get item: %w", err)
	}

	item.ID = itemID.String()
	item.UserID = userID.String()
	item.Title = fromText(title)
	item.ModelName = fromText(modelName)

	if orgID.Valid {
		item.OrgID = uuid.UUID(orgID.Bytes).String()
	}

	return &item, nil
}

// GetItemSources returns the sources of an item in insertion order.
func (db *DB) GetItemSources(ctx context.Context, itemID string) ([]domain.Source, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, item_id, url, title, excerpt, domain, source_type, created_at
		FROM research_sources
		WHERE item_id = $1
		ORDER BY created_at, id
	`, toUUID(itemID))
	if err != nil {
		return nil, fmt.Errorf("get item sources: %w", err)
	}
	defer rows.Close()

	sources := []domain.Source{}

	for rows.Next() {
		var (
			src     domain.Source
			id      uuid.UUID
			itemUID uuid.UUID
			title   pgtype.Text
			excerpt pgtype.Text
			dom     pgtype.Text
		)

		err := rows.Scan(&id, &itemUID, &src.URL, &title, &excerpt, &dom, &src.SourceType, &src.CreatedAt)
		if err != nil {
			return nil, fmt.Errorf("scan source: %w", err)
		}

		src.ID = id.String()
		src.ItemID = itemUID.String()
		src.Title = fromText(title)
		src.Excerpt = fromText(excerpt)
		src.Domain = fromText(dom)

		sources = append(sources, src)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate sources: %w", rows.Err())
	}

	return sources, nil
}

// UpdateItemEmbeddings stores whole-document embeddings and refreshes the
// full-text search vectors from the item's own texts.
func (db *DB) UpdateItemEmbeddings(ctx context.Context, itemID string, promptVec, reportVec []float32) error {
	_, err := db.Pool.Exec(ctx, `
		UPDATE research_items
		SET prompt_embedding = $2,
			report_embedding = $3,
			prompt_search = to_tsvector('english', coalesce(prompt_text, '')),
			report_search = to_tsvector('english', coalesce(final_report, '')),
			updated_at = now()
		WHERE id = $1
	`, toUUID(itemID), pgvector.NewVector(promptVec), pgvector.NewVector(reportVec))
	if err != nil {
		return fmt.Errorf("update item embeddings: %w", err)
	}

	return nil
}
