package research

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
	db "github.com/researchhub/research-hub/internal/storage"
)

type fakeRepo struct {
	configs   map[string]*domain.ServiceConfig
	jobs      map[string]*domain.Job
	completed []db.CompleteJobParams
	nextID    int
}

func newFakeRepo() *fakeRepo {
	return &fakeRepo{
		configs: map[string]*domain.ServiceConfig{},
		jobs:    map[string]*domain.Job{},
	}
}

func (r *fakeRepo) GetServiceConfig(_ context.Context, key string) (*domain.ServiceConfig, error) {
	cfg, ok := r.configs[key]
	if !ok {
		return nil, errs.ErrUnsupportedService
	}

	return cfg, nil
}

func (r *fakeRepo) ListServiceKeys(_ context.Context) ([]string, error) {
	keys := []string{}
	for k := range r.configs {
		keys = append(keys, k)
	}

	return keys, nil
}

func (r *fakeRepo) CreateJob(_ context.Context, job *domain.Job) (string, error) {
	r.nextID++
	id := fmt.Sprintf("job-%d", r.nextID)

	stored := *job
	stored.ID = id
	r.jobs[id] = &stored

	return id, nil
}

func (r *fakeRepo) GetJob(_ context.Context, id, userID string) (*domain.Job, error) {
	job, ok := r.jobs[id]
	if !ok || job.UserID != userID {
		return nil, errs.ErrNotFound
	}

	copied := *job

	return &copied, nil
}

func (r *fakeRepo) GetJobByProviderID(_ context.Context, providerJobID, userID, service string) (*domain.Job, error) {
	for _, job := range r.jobs {
		if job.JobID == providerJobID && job.UserID == userID && job.Service == service {
			copied := *job
			return &copied, nil
		}
	}

	return nil, errs.ErrNotFound
}

func (r *fakeRepo) ListJobs(_ context.Context, userID string) ([]domain.Job, error) {
	jobs := []domain.Job{}

	for _, job := range r.jobs {
		if job.UserID == userID {
			jobs = append(jobs, *job)
		}
	}

	return jobs, nil
}

func (r *fakeRepo) UpdateJobStatus(_ context.Context, id string, status domain.JobStatus) error {
	job, ok := r.jobs[id]
	if !ok {
		return errs.ErrNotFound
	}

	job.Status = status

	return nil
}

func (r *fakeRepo) CompleteJob(_ context.Context, params db.CompleteJobParams) (string, error) {
	r.completed = append(r.completed, params)

	job, ok := r.jobs[params.JobID]
	if !ok {
		return "", errs.ErrNotFound
	}

	itemID := "item-" + params.JobID
	job.Status = domain.StatusCompleted
	job.ItemID = itemID

	return itemID, nil
}

type fakeProvider struct {
	startResp   *StartResponse
	statusResp  *StatusResponse
	answerResp  *AnswerResponse
	err         error
	startCalls  int
	statusCalls int
	cancelCalls int
}

func (p *fakeProvider) Start(_ context.Context, _ string, _ StartRequest) (*StartResponse, error) {
	p.startCalls++

	if p.err != nil {
		return nil, p.err
	}

	return p.startResp, nil
}

func (p *fakeProvider) Answer(_ context.Context, _ string, _ AnswerRequest) (*AnswerResponse, error) {
	if p.err != nil {
		return nil, p.err
	}

	return p.answerResp, nil
}

func (p *fakeProvider) Status(_ context.Context, _, _, _ string) (*StatusResponse, error) {
	p.statusCalls++

	if p.err != nil {
		return nil, p.err
	}

	return p.statusResp, nil
}

func (p *fakeProvider) Cancel(_ context.Context, _, _, _ string) error {
	p.cancelCalls++

	return p.err
}

type fakeLLM struct {
	title string
	err   error
}

func (l *fakeLLM) Summarize(_ context.Context, text string, targetWords int, _ string) (string, error) {
	if l.err != nil {
		return "", l.err
	}

	words := strings.Fields(text)
	if len(words) > targetWords {
		words = words[:targetWords]
	}

	return strings.Join(words, " "), nil
}

func (l *fakeLLM) GenerateTitle(_ context.Context, _ string) (string, error) {
	return l.title, l.err
}

func newTestService(repo *fakeRepo, provider *fakeProvider, titler *fakeLLM) *Service {
	logger := zerolog.Nop()
	return New(repo, provider, titler, &logger)
}

func acmeConfig() *domain.ServiceConfig {
	return &domain.ServiceConfig{
		Key:           "acme",
		BaseURL:       "http://acme.test",
		DefaultModel:  "gpt-x",
		DefaultParams: map[string]any{"temperature": 0.5},
		Models: map[string]map[string]any{
			"gpt-x":   {},
			"o4-mini": {},
		},
	}
}

func TestStartJob_DefaultModelAndParams(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	provider := &fakeProvider{startResp: &StartResponse{
		JobID:     "j1",
		Status:    "pending_answers",
		Questions: []string{"Which region?"},
	}}

	svc := newTestService(repo, provider, &fakeLLM{title: "t"})

	job, questions, err := svc.StartJob(context.Background(), StartJobParams{
		Service: "acme",
		UserID:  "11111111-1111-1111-1111-111111111111",
		Prompt:  "Impact of AI on healthcare",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != domain.StatusPendingAnswers {
		t.Errorf("expected pending_answers, got %s", job.Status)
	}

	if job.ModelName != "gpt-x" {
		t.Errorf("expected default model gpt-x, got %s", job.ModelName)
	}

	if temp, ok := job.ModelParams["temperature"]; !ok || temp != 0.5 {
		t.Errorf("expected default params to carry temperature 0.5, got %v", job.ModelParams)
	}

	if len(questions) != 1 || questions[0] != "Which region?" {
		t.Errorf("expected follow-up questions, got %v", questions)
	}
}

func TestStartJob_InvalidModel(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	svc := newTestService(repo, &fakeProvider{}, &fakeLLM{})

	_, _, err := svc.StartJob(context.Background(), StartJobParams{
		Service: "acme",
		UserID:  "u",
		Prompt:  "p",
		Model:   "nonexistent",
	})
	if !errors.Is(err, errs.ErrInvalidModel) {
		t.Errorf("expected ErrInvalidModel, got %v", err)
	}
}

func TestStartJob_UnsupportedService(t *testing.T) {
	svc := newTestService(newFakeRepo(), &fakeProvider{}, &fakeLLM{})

	_, _, err := svc.StartJob(context.Background(), StartJobParams{Service: "unknown", UserID: "u", Prompt: "p"})
	if !errors.Is(err, errs.ErrUnsupportedService) {
		t.Errorf("expected ErrUnsupportedService, got %v", err)
	}
}

func TestStartJob_MissingProviderJobID(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	provider := &fakeProvider{startResp: &StartResponse{Status: "pending_answers"}}
	svc := newTestService(repo, provider, &fakeLLM{})

	job, _, err := svc.StartJob(context.Background(), StartJobParams{
		Service: "acme",
		UserID:  "u1",
		Prompt:  "p",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.JobID == "" {
		t.Fatal("expected a generated job id when the provider omits one")
	}

	if _, err := uuid.Parse(job.JobID); err != nil {
		t.Errorf("generated job id %q is not a uuid: %v", job.JobID, err)
	}

	// The job must stay reachable through provider-id lookups.
	if _, err := repo.GetJobByProviderID(context.Background(), job.JobID, "u1", "acme"); err != nil {
		t.Errorf("job not addressable by generated id: %v", err)
	}
}

func TestStartJob_OrgVisibilityRequiresOrg(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	provider := &fakeProvider{startResp: &StartResponse{JobID: "j1"}}
	svc := newTestService(repo, provider, &fakeLLM{})

	_, _, err := svc.StartJob(context.Background(), StartJobParams{
		Service:    "acme",
		UserID:     "u1",
		Prompt:     "p",
		Visibility: domain.VisibilityOrg,
	})
	if !errors.Is(err, errs.ErrOrgRequired) {
		t.Fatalf("expected ErrOrgRequired, got %v", err)
	}

	if provider.startCalls != 0 {
		t.Errorf("expected provider untouched, got %d start calls", provider.startCalls)
	}

	if len(repo.jobs) != 0 {
		t.Errorf("expected no job persisted, got %d", len(repo.jobs))
	}
}

func TestMergeModelParams_ReasoningEffortInjection(t *testing.T) {
	cfg := acmeConfig()

	params := mergeModelParams(cfg, "o4-mini", nil)
	if params[reasoningEffortKey] != "medium" {
		t.Errorf("expected injected reasoning_effort=medium, got %v", params[reasoningEffortKey])
	}

	params = mergeModelParams(cfg, "o4-mini", map[string]any{reasoningEffortKey: "high"})
	if params[reasoningEffortKey] != "high" {
		t.Errorf("expected caller override to win, got %v", params[reasoningEffortKey])
	}

	params = mergeModelParams(cfg, "gpt-x", nil)
	if _, ok := params[reasoningEffortKey]; ok {
		t.Error("expected no reasoning_effort for non-o model")
	}
}

func TestPoll_TerminalShortCircuit(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	provider := &fakeProvider{}
	svc := newTestService(repo, provider, &fakeLLM{title: "t"})

	repo.jobs["job-1"] = &domain.Job{
		ID:      "job-1",
		JobID:   "j1",
		UserID:  "u1",
		Service: "acme",
		Status:  domain.StatusCompleted,
		ItemID:  "item-1",
	}

	job, err := svc.PollJob(context.Background(), "u1", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.statusCalls != 0 {
		t.Errorf("expected no provider call for terminal job, got %d", provider.statusCalls)
	}

	if job.Status != domain.StatusCompleted || job.ItemID != "item-1" {
		t.Errorf("expected stored state unchanged, got %+v", job)
	}

	if len(repo.completed) != 0 {
		t.Errorf("expected no duplicate item creation, got %d", len(repo.completed))
	}
}

func TestPoll_CompletionCreatesItem(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	repo.jobs["job-1"] = &domain.Job{
		ID:      "job-1",
		JobID:   "j1",
		UserID:  "u1",
		Service: "acme",
		Status:  domain.StatusRunning,
	}

	provider := &fakeProvider{statusResp: &StatusResponse{
		Status: "complete",
		Results: &StatusResults{
			Prompt:      "Impact of AI on healthcare",
			FinalReport: "final report text",
			Sources: []ProviderSource{
				{URL: "http://a.com/x"},
				{URL: "http://b.com/y"},
			},
		},
	}}

	svc := newTestService(repo, provider, &fakeLLM{title: "AI in Healthcare"})

	job, err := svc.PollJob(context.Background(), "u1", "job-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != domain.StatusCompleted {
		t.Errorf("expected completed, got %s", job.Status)
	}

	if job.ItemID == "" {
		t.Error("expected job linked to an item")
	}

	if len(repo.completed) != 1 {
		t.Fatalf("expected one completion, got %d", len(repo.completed))
	}

	params := repo.completed[0]
	if params.Title != "AI in Healthcare" {
		t.Errorf("expected generated title, got %q", params.Title)
	}

	if len(params.Sources) != 2 {
		t.Fatalf("expected two sources, got %d", len(params.Sources))
	}

	if params.Sources[0].Domain != "a.com" || params.Sources[1].Domain != "b.com" {
		t.Errorf("expected parsed domains a.com/b.com, got %q/%q", params.Sources[0].Domain, params.Sources[1].Domain)
	}

	// Second poll is a terminal no-op.
	provider.statusCalls = 0

	if _, err := svc.PollJob(context.Background(), "u1", "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.statusCalls != 0 || len(repo.completed) != 1 {
		t.Errorf("second poll must not re-trigger completion: calls=%d completions=%d", provider.statusCalls, len(repo.completed))
	}
}

func TestPoll_TitleFallbackOnLLMFailure(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	longPrompt := strings.Repeat("word ", 100)

	repo.jobs["job-1"] = &domain.Job{ID: "job-1", JobID: "j1", UserID: "u1", Service: "acme", Status: domain.StatusRunning}

	provider := &fakeProvider{statusResp: &StatusResponse{
		Status:  "completed",
		Results: &StatusResults{Prompt: longPrompt, FinalReport: "r"},
	}}

	svc := newTestService(repo, provider, &fakeLLM{err: errors.New("llm down")})

	if _, err := svc.PollJob(context.Background(), "u1", "job-1"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	title := repo.completed[0].Title
	if len([]rune(title)) > maxTitleLength {
		t.Errorf("fallback title exceeds %d chars: %d", maxTitleLength, len([]rune(title)))
	}

	if !strings.HasSuffix(title, titleEllipsis) {
		t.Errorf("expected truncated title with ellipsis, got %q", title)
	}
}

func TestCancelJob(t *testing.T) {
	repo := newFakeRepo()
	repo.configs["acme"] = acmeConfig()

	provider := &fakeProvider{}
	svc := newTestService(repo, provider, &fakeLLM{})

	repo.jobs["job-1"] = &domain.Job{ID: "job-1", JobID: "j1", UserID: "u1", Service: "acme", Status: domain.StatusRunning}

	job, err := svc.CancelJob(context.Background(), "acme", "u1", "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if job.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled, got %s", job.Status)
	}

	if provider.cancelCalls != 1 {
		t.Errorf("expected one provider cancel call, got %d", provider.cancelCalls)
	}

	// Cancelling a terminal job is a no-op returning current state.
	job, err = svc.CancelJob(context.Background(), "acme", "u1", "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if provider.cancelCalls != 1 {
		t.Errorf("expected no second provider call, got %d", provider.cancelCalls)
	}

	if job.Status != domain.StatusCancelled {
		t.Errorf("expected cancelled unchanged, got %s", job.Status)
	}
}

func TestParseDomain(t *testing.T) {
	tests := []struct {
		raw  string
		want string
	}{
		{"http://a.com/x", "a.com"},
		{"https://sub.b.org/path?q=1", "sub.b.org"},
		{"://not a url", ""},
		{"relative/path", ""},
	}

	for _, tt := range tests {
		if got := parseDomain(tt.raw); got != tt.want {
			t.Errorf("parseDomain(%q) = %q, want %q", tt.raw, got, tt.want)
		}
	}
}
