package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/research"
	db "github.com/researchhub/research-hub/internal/storage"
)

type stubRepo struct {
	config *domain.ServiceConfig
	job    *domain.Job
}

func (r *stubRepo) GetServiceConfig(_ context.Context, key string) (*domain.ServiceConfig, error) {
	if r.config == nil || r.config.Key != key {
		return nil, errs.ErrUnsupportedService
	}

	return r.config, nil
}

func (r *stubRepo) ListServiceKeys(_ context.Context) ([]string, error) {
	if r.config == nil {
		return []string{}, nil
	}

	return []string{r.config.Key}, nil
}

func (r *stubRepo) CreateJob(_ context.Context, job *domain.Job) (string, error) {
	stored := *job
	stored.ID = "job-1"
	r.job = &stored

	return "job-1", nil
}

func (r *stubRepo) GetJob(_ context.Context, id, userID string) (*domain.Job, error) {
	if r.job == nil || r.job.ID != id || r.job.UserID != userID {
		return nil, errs.ErrNotFound
	}

	copied := *r.job

	return &copied, nil
}

func (r *stubRepo) GetJobByProviderID(_ context.Context, providerJobID, userID, service string) (*domain.Job, error) {
	if r.job == nil || r.job.JobID != providerJobID || r.job.UserID != userID || r.job.Service != service {
		return nil, errs.ErrNotFound
	}

	copied := *r.job

	return &copied, nil
}

func (r *stubRepo) ListJobs(_ context.Context, _ string) ([]domain.Job, error) {
	if r.job == nil {
		return []domain.Job{}, nil
	}

	return []domain.Job{*r.job}, nil
}

func (r *stubRepo) UpdateJobStatus(_ context.Context, _ string, status domain.JobStatus) error {
	r.job.Status = status

	return nil
}

func (r *stubRepo) CompleteJob(_ context.Context, _ db.CompleteJobParams) (string, error) {
	return "item-1", nil
}

type stubProvider struct {
	startResp *research.StartResponse
	err       error
}

func (p *stubProvider) Start(_ context.Context, _ string, _ research.StartRequest) (*research.StartResponse, error) {
	return p.startResp, p.err
}

func (p *stubProvider) Answer(_ context.Context, _ string, _ research.AnswerRequest) (*research.AnswerResponse, error) {
	return &research.AnswerResponse{Status: "running"}, p.err
}

func (p *stubProvider) Status(_ context.Context, _, _, _ string) (*research.StatusResponse, error) {
	if p.err != nil {
		return nil, p.err
	}

	return &research.StatusResponse{Status: "running"}, nil
}

func (p *stubProvider) Cancel(_ context.Context, _, _, _ string) error {
	return p.err
}

type stubLLM struct{}

func (stubLLM) Summarize(_ context.Context, text string, _ int, _ string) (string, error) {
	return text, nil
}

func (stubLLM) GenerateTitle(_ context.Context, prompt string) (string, error) {
	return prompt, nil
}

func newTestHandler(repo *stubRepo, provider *stubProvider) http.Handler {
	logger := zerolog.Nop()
	svc := research.New(repo, provider, stubLLM{}, &logger)
	handler := NewHandler(svc, &logger)

	mux := http.NewServeMux()
	handler.Register(mux)

	return mux
}

func TestStartJob_RequiresUserHeader(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubProvider{})

	req := httptest.NewRequest(http.MethodPost, "/research-jobs", strings.NewReader(`{"service":"acme","prompt":"p"}`))
	rec := httptest.NewRecorder()

	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("expected 401, got %d", rec.Code)
	}
}

func TestStartJob_Created(t *testing.T) {
	repo := &stubRepo{config: &domain.ServiceConfig{
		Key:          "acme",
		BaseURL:      "http://acme.test",
		DefaultModel: "gpt-x",
		Models:       map[string]map[string]any{"gpt-x": {}},
	}}

	provider := &stubProvider{startResp: &research.StartResponse{
		JobID:     "j1",
		Status:    "pending_answers",
		Questions: []string{"Which region?"},
	}}

	h := newTestHandler(repo, provider)

	req := httptest.NewRequest(http.MethodPost, "/research-jobs", strings.NewReader(`{"service":"acme","prompt":"Impact of AI"}`))
	req.Header.Set(headerUserID, "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp startJobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Job.Status != "pending_answers" || resp.Job.ModelName != "gpt-x" {
		t.Errorf("unexpected job: %+v", resp.Job)
	}

	if len(resp.Questions) != 1 {
		t.Errorf("expected follow-up questions, got %v", resp.Questions)
	}
}

func TestStartJob_UnsupportedService(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubProvider{})

	req := httptest.NewRequest(http.MethodPost, "/research-jobs", strings.NewReader(`{"service":"nope","prompt":"p"}`))
	req.Header.Set(headerUserID, "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400, got %d", rec.Code)
	}

	var resp errorResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode error response: %v", err)
	}

	if resp.Error.Kind != kindUnsupportedService {
		t.Errorf("expected kind %s, got %s", kindUnsupportedService, resp.Error.Kind)
	}
}

func TestPollJob_NotFound(t *testing.T) {
	h := newTestHandler(&stubRepo{}, &stubProvider{})

	req := httptest.NewRequest(http.MethodGet, "/research-jobs/nope", nil)
	req.Header.Set(headerUserID, "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestPollJob_ProviderErrorMapsToBadGateway(t *testing.T) {
	repo := &stubRepo{
		config: &domain.ServiceConfig{Key: "acme", BaseURL: "http://acme.test"},
		job:    &domain.Job{ID: "job-1", JobID: "j1", UserID: "u1", Service: "acme", Status: domain.StatusRunning},
	}

	provider := &stubProvider{err: &errs.ProviderError{StatusCode: 503, Body: "down"}}

	h := newTestHandler(repo, provider)

	req := httptest.NewRequest(http.MethodGet, "/research-jobs/job-1", nil)
	req.Header.Set(headerUserID, "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadGateway {
		t.Errorf("expected 502, got %d", rec.Code)
	}
}

func TestCancelJob(t *testing.T) {
	repo := &stubRepo{
		config: &domain.ServiceConfig{Key: "acme", BaseURL: "http://acme.test"},
		job:    &domain.Job{ID: "job-1", JobID: "j1", UserID: "u1", Service: "acme", Status: domain.StatusRunning},
	}

	h := newTestHandler(repo, &stubProvider{})

	req := httptest.NewRequest(http.MethodPost, "/research-jobs/cancel", strings.NewReader(`{"service":"acme","job_id":"j1"}`))
	req.Header.Set(headerUserID, "u1")

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var resp jobResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	if resp.Status != string(domain.StatusCancelled) {
		t.Errorf("expected cancelled, got %s", resp.Status)
	}
}
