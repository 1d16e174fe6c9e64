package enrichment

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/domain"
	db "github.com/researchhub/research-hub/internal/storage"
)

func newTestWorker(repo *fakeRepo) *Worker {
	logger := zerolog.Nop()
	o := newTestOrchestrator(repo, newFakeIndex(), &fakeSummarizer{})

	return NewWorker(repo, o, WorkerConfig{Concurrency: 1, PollInterval: time.Millisecond}, &logger)
}

func TestProcessNext_EmptyQueue(t *testing.T) {
	repo := newFakeRepo()
	w := newTestWorker(repo)

	if err := w.processNext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.updates) != 0 {
		t.Errorf("expected no status updates, got %v", repo.updates)
	}
}

func TestProcessNext_Success(t *testing.T) {
	repo := newFakeRepo()
	repo.items["item-1"] = &domain.Item{ID: "item-1", PromptText: "p", FinalReport: "r."}
	repo.queue = []*db.EnrichmentQueueEntry{{ID: "q1", ItemID: "item-1"}}

	w := newTestWorker(repo)

	if err := w.processNext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.updates) != 1 || repo.updates[0] != "q1:"+db.EnrichmentStatusDone {
		t.Errorf("expected done status update, got %v", repo.updates)
	}
}

func TestProcessNext_MissingItemSchedulesRetry(t *testing.T) {
	repo := newFakeRepo()
	repo.queue = []*db.EnrichmentQueueEntry{{ID: "q1", ItemID: "ghost"}}

	w := newTestWorker(repo)

	if err := w.processNext(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(repo.updates) != 1 || !strings.HasSuffix(repo.updates[0], db.EnrichmentStatusPending) {
		t.Errorf("expected pending requeue, got %v", repo.updates)
	}
}

func TestHandleError_ExhaustedAttempts(t *testing.T) {
	repo := newFakeRepo()
	w := newTestWorker(repo)

	entry := &db.EnrichmentQueueEntry{ID: "q1", ItemID: "item-1", AttemptCount: maxEnrichmentAttempts}
	w.handleError(context.Background(), entry, context.DeadlineExceeded)

	if len(repo.updates) != 1 || repo.updates[0] != "q1:"+db.EnrichmentStatusError {
		t.Errorf("expected permanent error status, got %v", repo.updates)
	}
}
