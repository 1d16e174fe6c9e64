package db

import (
	"context"
	"fmt"
	"time"
)

// TryAcquireLock attempts to take a named lease for ttl. It succeeds when no
// lease exists or the existing lease has expired. Returns false when the
// lease is currently held.
func (db *DB) TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error) {
	tag, err := db.Pool.Exec(ctx, `
		INSERT INTO processing_locks (lock_key, acquired_at, expires_at)
		VALUES ($1, now(), now() + $2)
		ON CONFLICT (lock_key)
		DO UPDATE SET acquired_at = now(), expires_at = now() + $2
		WHERE processing_locks.expires_at <= now()
	`, key, ttl)
	if err != nil {
		return false, fmt.Errorf("try acquire lock: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// ReleaseLock drops a named lease. Releasing a lease that is not held is a
// no-op.
func (db *DB) ReleaseLock(ctx context.Context, key string) error {
	if _, err := db.Pool.Exec(ctx, `
		DELETE FROM processing_locks
		WHERE lock_key = $1
	`, key); err != nil {
		return fmt.Errorf("release lock: %w", err)
	}

	return nil
}

// SetTaskStatus records a short-lived, observable status string for a task
// run, expiring after ttl.
func (db *DB) SetTaskStatus(ctx context.Context, key, status string, ttl time.Duration) error {
	_, err := db.Pool.Exec(ctx, `
		INSERT INTO task_status (task_key, status, expires_at)
		VALUES ($1, $2, now() + $3)
		ON CONFLICT (task_key)
		DO UPDATE SET status = EXCLUDED.status, expires_at = EXCLUDED.expires_at, updated_at = now()
	`, key, status, ttl)
	if err != nil {
		return fmt.Errorf("set task status: %w", err)
	}

	return nil
}

// PurgeExpiredLocks removes expired leases and expired task status records.
// Expired leases are already stealable, so this only keeps the tables small.
func (db *DB) PurgeExpiredLocks(ctx context.Context) (int64, error) {
	tag, err := db.Pool.Exec(ctx, `
		DELETE FROM processing_locks
		WHERE expires_at <= now()
	`)
	if err != nil {
		return 0, fmt.Errorf("purge expired locks: %w", err)
	}

	deleted := tag.RowsAffected()

	tag, err = db.Pool.Exec(ctx, `
		DELETE FROM task_status
		WHERE expires_at <= now()
	`)
	if err != nil {
		return deleted, fmt.Errorf("purge expired task status: %w", err)
	}

	return deleted + tag.RowsAffected(), nil
}
