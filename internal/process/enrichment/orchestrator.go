// Package enrichment derives artifacts from completed research items:
// chunks, embeddings, summaries, and domain co-occurrence statistics. Work
// arrives through a durable queue and fans out into five independent tasks
// per item.
package enrichment

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/chunker"
	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/core/llm"
	"github.com/researchhub/research-hub/internal/core/vectorindex"
	"github.com/researchhub/research-hub/internal/platform/observability"
	db "github.com/researchhub/research-hub/internal/storage"
)

const (
	lockKeyPrefix  = "enrichment:"
	defaultLockTTL = 60 * time.Second

	taskStatusTTL     = 24 * time.Hour
	taskStatusStarted = "started"
	taskStatusDone    = "done"
	taskStatusError   = "error"

	logKeyItemID = "item_id"
	logKeyTask   = "task"
)

// Repository is the persistence surface enrichment needs.
type Repository interface {
	ClaimNextEnrichment(ctx context.Context) (*db.EnrichmentQueueEntry, error)
	UpdateEnrichmentStatus(ctx context.Context, queueID, status, errMsg string, retryAt *time.Time) error
	CountPendingEnrichments(ctx context.Context) (int, error)
	GetItem(ctx context.Context, id string) (*domain.Item, error)
	GetItemSources(ctx context.Context, itemID string) ([]domain.Source, error)
	ReplaceChunks(ctx context.Context, itemID string, chunkType domain.ChunkType, texts []string) error
	UpdateItemEmbeddings(ctx context.Context, itemID string, promptVec, reportVec []float32) error
	UpsertSummary(ctx context.Context, summary domain.Summary) error
	IncrementDomainPairs(ctx context.Context, itemID string, pairs []domain.DomainPair) (bool, error)
	TryAcquireLock(ctx context.Context, key string, ttl time.Duration) (bool, error)
	ReleaseLock(ctx context.Context, key string) error
	SetTaskStatus(ctx context.Context, key, status string, ttl time.Duration) error
	PurgeExpiredEmbeddings(ctx context.Context) (int64, error)
	PurgeExpiredLocks(ctx context.Context) (int64, error)
	CountJobsByStatus(ctx context.Context) (map[string]int, error)
}

// Embedder produces fixed-dimension embeddings with absorbed failures.
type Embedder interface {
	Embed(ctx context.Context, text string) []float32
	Dimensions() int
}

// Orchestrator fans a completed item out into the five enrichment tasks
// under a per-item advisory lock.
type Orchestrator struct {
	repo     Repository
	embedder Embedder
	llm      llm.Client
	index    vectorindex.Index
	chunker  *chunker.Chunker
	lockTTL  time.Duration
	logger   *zerolog.Logger
}

// NewOrchestrator creates an orchestrator with default chunking and lock
// settings.
func NewOrchestrator(repo Repository, embedder Embedder, llmClient llm.Client, index vectorindex.Index, logger *zerolog.Logger) *Orchestrator {
	return &Orchestrator{
		repo:     repo,
		embedder: embedder,
		llm:      llmClient,
		index:    index,
		chunker:  chunker.New(chunker.DefaultMaxWords, chunker.DefaultOverlapWords),
		lockTTL:  defaultLockTTL,
		logger:   logger,
	}
}

// SetLockTTL overrides the per-item lock lease duration.
func (o *Orchestrator) SetLockTTL(ttl time.Duration) {
	if ttl > 0 {
		o.lockTTL = ttl
	}
}

// SetChunking overrides the chunk window sizing.
func (o *Orchestrator) SetChunking(maxWords, overlapWords int) {
	o.chunker = chunker.New(maxWords, overlapWords)
}

// Process enriches one completed item. At most one run per item is in
// flight at a time; a concurrent duplicate returns ErrAlreadyProcessing and
// performs no writes. The lock is advisory, idempotent task writes make a
// rare duplicate run harmless.
func (o *Orchestrator) Process(ctx context.Context, itemID string) error {
	lockKey := lockKeyPrefix + itemID

	acquired, err := o.repo.TryAcquireLock(ctx, lockKey, o.lockTTL)
	if err != nil {
		return fmt.Errorf("acquire enrichment lock: %w", err)
	}

	if !acquired {
		observability.LockContention.Inc()

		return fmt.Errorf("%w: item %s", errs.ErrAlreadyProcessing, itemID)
	}

	defer func() {
		if err := o.repo.ReleaseLock(ctx, lockKey); err != nil {
			o.logger.Warn().Err(err).Str(logKeyItemID, itemID).Msg("failed to release enrichment lock")
		}
	}()

	o.setStatus(ctx, itemID, taskStatusStarted)

	item, err := o.repo.GetItem(ctx, itemID)
	if err != nil {
		o.setStatus(ctx, itemID, taskStatusError)

		return fmt.Errorf("load item for enrichment: %w", err)
	}

	if err := o.fanOut(ctx, item); err != nil {
		o.setStatus(ctx, itemID, taskStatusError)

		return err
	}

	o.setStatus(ctx, itemID, taskStatusDone)
	o.logger.Info().Str(logKeyItemID, itemID).Msg("enrichment completed")

	return nil
}

// fanOut runs the five tasks concurrently. They write to disjoint rows, so
// ordering is immaterial and one failure does not block the others.
func (o *Orchestrator) fanOut(ctx context.Context, item *domain.Item) error {
	tasks := []struct {
		name string
		run  func(context.Context, *domain.Item) error
	}{
		{"chunk_prompt", o.chunkPrompt},
		{"chunk_report", o.chunkReport},
		{"generate_document_embeddings", o.documentEmbeddings},
		{"create_summaries", o.createSummaries},
		{"process_domain_cooccurrences", o.domainCooccurrences},
	}

	var (
		wg       sync.WaitGroup
		mu       sync.Mutex
		taskErrs []error
	)

	for _, task := range tasks {
		wg.Add(1)

		go func(name string, run func(context.Context, *domain.Item) error) {
			defer wg.Done()

			if err := o.runTask(ctx, name, item, run); err != nil {
				mu.Lock()
				taskErrs = append(taskErrs, err)
				mu.Unlock()
			}
		}(task.name, task.run)
	}

	wg.Wait()

	return errors.Join(taskErrs...)
}

func (o *Orchestrator) runTask(ctx context.Context, name string, item *domain.Item, run func(context.Context, *domain.Item) error) error {
	o.setTaskStatus(ctx, item.ID, name, taskStatusStarted)

	start := time.Now()

	err := run(ctx, item)

	observability.EnrichmentDuration.WithLabelValues(name).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.EnrichmentTasks.WithLabelValues(name, "error").Inc()
		o.setTaskStatus(ctx, item.ID, name, taskStatusError)
		o.logger.Error().Err(err).Str(logKeyTask, name).Str(logKeyItemID, item.ID).Msg("enrichment task failed")

		return fmt.Errorf("%s: %w", name, err)
	}

	observability.EnrichmentTasks.WithLabelValues(name, "success").Inc()
	o.setTaskStatus(ctx, item.ID, name, taskStatusDone)

	return nil
}

func (o *Orchestrator) setStatus(ctx context.Context, itemID, status string) {
	if err := o.repo.SetTaskStatus(ctx, lockKeyPrefix+itemID, status, taskStatusTTL); err != nil {
		o.logger.Warn().Err(err).Str(logKeyItemID, itemID).Msg("failed to record task status")
	}
}

// setTaskStatus records one task's state under its own ledger key, alongside
// the item-level key setStatus maintains.
func (o *Orchestrator) setTaskStatus(ctx context.Context, itemID, task, status string) {
	key := fmt.Sprintf("%s%s:task:%s", lockKeyPrefix, itemID, task)
	if err := o.repo.SetTaskStatus(ctx, key, status, taskStatusTTL); err != nil {
		o.logger.Warn().Err(err).Str(logKeyItemID, itemID).Str(logKeyTask, task).Msg("failed to record task status")
	}
}
