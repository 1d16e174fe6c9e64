package enrichment

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/platform/observability"
	"github.com/researchhub/research-hub/internal/platform/worker"
	db "github.com/researchhub/research-hub/internal/storage"
)

const (
	maxEnrichmentAttempts = 3
	retryDelay            = 10 * time.Minute
	contentionRetryDelay  = time.Minute

	defaultPollInterval = 5 * time.Second
	defaultConcurrency  = 4

	itemTimeout = 5 * time.Minute

	backlogGaugeInterval = 30 * time.Second
	cachePurgeInterval   = 6 * time.Hour
)

// Worker consumes the enrichment queue and drives the orchestrator.
type Worker struct {
	repo         Repository
	orchestrator *Orchestrator
	concurrency  int
	pollInterval time.Duration
	logger       *zerolog.Logger
}

// WorkerConfig configures queue consumption.
type WorkerConfig struct {
	Concurrency  int
	PollInterval time.Duration
}

// NewWorker creates a queue worker.
func NewWorker(repo Repository, orchestrator *Orchestrator, cfg WorkerConfig, logger *zerolog.Logger) *Worker {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = defaultConcurrency
	}

	if cfg.PollInterval <= 0 {
		cfg.PollInterval = defaultPollInterval
	}

	return &Worker{
		repo:         repo,
		orchestrator: orchestrator,
		concurrency:  cfg.Concurrency,
		pollInterval: cfg.PollInterval,
		logger:       logger,
	}
}

// Run consumes the queue with the configured concurrency until the context
// is canceled.
func (w *Worker) Run(ctx context.Context) error {
	var wg sync.WaitGroup

	for i := 0; i < w.concurrency; i++ {
		wg.Add(1)

		go func(n int) {
			defer wg.Done()
			defer worker.RecoverPanic(w.logger, "enrichment worker")

			w.runLoop(ctx, n)
		}(i)
	}

	wg.Wait()

	return fmt.Errorf("enrichment worker: %w", ctx.Err())
}

func (w *Worker) runLoop(ctx context.Context, n int) {
	cfg := worker.Config{
		Name:         fmt.Sprintf("enrichment-%d", n),
		PollInterval: w.pollInterval,
		Process:      w.processNext,
		Logger:       w.logger,
	}

	// Only one loop carries the maintenance tasks.
	if n == 0 {
		cfg.PeriodicTasks = []worker.PeriodicTask{
			{Name: "queue-backlog-gauge", Interval: backlogGaugeInterval, Run: w.updateBacklogGauge},
			{Name: "embedding-cache-purge", Interval: cachePurgeInterval, Run: w.purgeExpiredEmbeddings},
			{Name: "lease-purge", Interval: cachePurgeInterval, Run: w.purgeExpiredLocks},
		}
	}

	if err := worker.Loop(ctx, cfg); err != nil && ctx.Err() == nil {
		w.logger.Error().Err(err).Msg("enrichment loop exited")
	}
}

// processNext claims and processes one queue entry. An empty queue is not
// an error.
func (w *Worker) processNext(ctx context.Context) error {
	entry, err := w.repo.ClaimNextEnrichment(ctx)
	if err != nil {
		return fmt.Errorf("claim enrichment: %w", err)
	}

	if entry == nil {
		return nil
	}

	err = worker.RunWithTimeout(ctx, itemTimeout, func(ctx context.Context) error {
		return w.orchestrator.Process(ctx, entry.ItemID)
	})
	if err != nil {
		w.handleError(ctx, entry, err)

		return nil
	}

	w.updateStatus(ctx, entry.ID, db.EnrichmentStatusDone, "", nil)

	return nil
}

func (w *Worker) handleError(ctx context.Context, entry *db.EnrichmentQueueEntry, err error) {
	// Lock contention means another worker has the item; put the entry back
	// without burning an attempt's worth of delay.
	if errs.Is(err, errs.ErrAlreadyProcessing) {
		retryAt := time.Now().Add(contentionRetryDelay)
		w.updateStatus(ctx, entry.ID, db.EnrichmentStatusPending, "", &retryAt)

		return
	}

	if entry.AttemptCount >= maxEnrichmentAttempts {
		w.logger.Error().Err(err).Str(logKeyItemID, entry.ItemID).Int("attempts", entry.AttemptCount).Msg("enrichment failed permanently")
		w.updateStatus(ctx, entry.ID, db.EnrichmentStatusError, err.Error(), nil)

		return
	}

	observability.EnrichmentRetries.Inc()

	retryAt := time.Now().Add(retryDelay)
	w.updateStatus(ctx, entry.ID, db.EnrichmentStatusPending, err.Error(), &retryAt)
}

func (w *Worker) updateStatus(ctx context.Context, queueID, status, errMsg string, retryAt *time.Time) {
	if err := w.repo.UpdateEnrichmentStatus(ctx, queueID, status, errMsg, retryAt); err != nil {
		w.logger.Error().Err(err).Str("queue_id", queueID).Msg("failed to update enrichment status")
	}
}

func (w *Worker) updateBacklogGauge(ctx context.Context) {
	count, err := w.repo.CountPendingEnrichments(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to count pending enrichments")

		return
	}

	observability.EnrichmentQueueBacklog.Set(float64(count))

	statusCounts, err := w.repo.CountJobsByStatus(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to count jobs by status")

		return
	}

	for status, n := range statusCounts {
		observability.JobsByStatus.WithLabelValues(status).Set(float64(n))
	}
}

func (w *Worker) purgeExpiredEmbeddings(ctx context.Context) {
	deleted, err := w.repo.PurgeExpiredEmbeddings(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to purge expired embeddings")

		return
	}

	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Msg("purged expired embedding cache entries")
	}
}

func (w *Worker) purgeExpiredLocks(ctx context.Context) {
	deleted, err := w.repo.PurgeExpiredLocks(ctx)
	if err != nil {
		w.logger.Warn().Err(err).Msg("failed to purge expired leases")

		return
	}

	if deleted > 0 {
		w.logger.Info().Int64("deleted", deleted).Msg("purged expired leases")
	}
}
