package db

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
)

// CreateJob inserts a new research job and returns its internal id.
func (db *DB) CreateJob(ctx context.Context, job *domain.Job) (string, error) {
	var id uuid.UUID

	err := db.Pool.QueryRow(ctx, `
		INSERT INTO research_jobs (provider_job_id, user_id, org_id, service, status, model_name, model_params, visibility)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id
	`,
		job.JobID,
		toUUID(job.UserID),
		toUUID(job.OrgID),
		job.Service,
		string(job.Status),
		job.ModelName,
		job.ModelParams,
		string(job.Visibility),
	).Scan(&id)
	if err != nil {
		return "", fmt.Errorf("create job: %w", err)
	}

	return id.String(), nil
}

// GetJob returns a job owned by the given user.
func (db *DB) GetJob(ctx context.Context, id, userID string) (*domain.Job, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, provider_job_id, user_id, org_id, service, status, model_name, model_params, visibility, item_id, created_at, updated_at
		FROM research_jobs
		WHERE id = $1 AND user_id = $2
	`, toUUID(id), toUUID(userID))

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}

		return nil, fmt.Errorf("get job: %w", err)
	}

	return job, nil
}

// GetJobByProviderID returns a job matched by the provider-assigned job id,
// owner, and service.
func (db *DB) GetJobByProviderID(ctx context.Context, providerJobID, userID, service string) (*domain.Job, error) {
	row := db.Pool.QueryRow(ctx, `
		SELECT id, provider_job_id, user_id, org_id, service, status, model_name, model_params, visibility, item_id, created_at, updated_at
		FROM research_jobs
		WHERE provider_job_id = $1 AND user_id = $2 AND service = $3
	`, providerJobID, toUUID(userID), service)

	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrNotFound
		}

		return nil, fmt.Errorf("get job by provider id: %w", err)
	}

	return job, nil
}

// ListJobs returns all jobs owned by the user, newest first.
func (db *DB) ListJobs(ctx context.Context, userID string) ([]domain.Job, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT id, provider_job_id, user_id, org_id, service, status, model_name, model_params, visibility, item_id, created_at, updated_at
		FROM research_jobs
		WHERE user_id = $1
		ORDER BY created_at DESC
	`, toUUID(userID))
	if err != nil {
		return nil, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	jobs := []domain.Job{}

	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}

		jobs = append(jobs, *job)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate jobs: %w", rows.Err())
	}

	return jobs, nil
}

// CountJobsByStatus returns the number of jobs in each status.
func (db *DB) CountJobsByStatus(ctx context.Context) (map[string]int, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT status, COUNT(*)
		FROM research_jobs
		GROUP BY status
	`)
	if err != nil {
		return nil, fmt.Errorf("count jobs by status: %w", err)
	}
	defer rows.Close()

	counts := map[string]int{}

	for rows.Next() {
		var (
			status string
			count  int
		)

		if err := rows.Scan(&status, &count); err != nil {
			return nil, fmt.Errorf("scan job status count: %w", err)
		}

		counts[status] = count
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate job status counts: %w", rows.Err())
	}

	return counts, nil
}

// UpdateJobStatus sets a job's status.
func (db *DB) UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus) error {
	tag, err := db.Pool.Exec(ctx, `
		UPDATE research_jobs
		SET status = $2, updated_at = now()
		WHERE id = $1
	`, toUUID(id), string(status))
	if err != nil {
		return fmt.Errorf("update job status: %w", err)
	}

	if tag.RowsAffected() == 0 {
		return errs.ErrNotFound
	}

	return nil
}

func scanJob(row pgx.Row) (*domain.Job, error) {
	var (
		job       domain.Job
		id        uuid.UUID
		userID    uuid.UUID
		orgID     pgtype.UUID
		itemID    pgtype.UUID
		status    string
		modelName pgtype.Text
	)

	err := row.Scan(
		&id,
		&job.JobID,
		&userID,
		&orgID,
		&job.Service,
		&status,
		&modelName,
		&job.ModelParams,
		&job.Visibility,
		&itemID,
		&job.CreatedAt,
		&job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	job.ID = id.String()
	job.UserID = userID.String()
	job.Status = domain.JobStatus(status)
	job.ModelName = fromText(modelName)

	if orgID.Valid {
		job.OrgID = uuid.UUID(orgID.Bytes).String()
	}

	if itemID.Valid {
		job.ItemID = uuid.UUID(itemID.Bytes).String()
	}

	return &job, nil
}
