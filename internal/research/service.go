// Package research implements the research job lifecycle: starting jobs
// against external research providers, answering follow-up questions,
// polling status, and materializing completed jobs into research items.
package research

import (
	"context"
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/core/llm"
	"github.com/researchhub/research-hub/internal/platform/observability"
	db "github.com/researchhub/research-hub/internal/storage"
)

const (
	maxTitleLength     = 255
	titleEllipsis      = "..."
	defaultSourceType  = "website"
	reasoningEffortKey = "reasoning_effort"
)

// Repository is the persistence surface the lifecycle service needs.
type Repository interface {
	GetServiceConfig(ctx context.Context, key string) (*domain.ServiceConfig, error)
	ListServiceKeys(ctx context.Context) ([]string, error)
	CreateJob(ctx context.Context, job *domain.Job) (string, error)
	GetJob(ctx context.Context, id, userID string) (*domain.Job, error)
	GetJobByProviderID(ctx context.Context, providerJobID, userID, service string) (*domain.Job, error)
	ListJobs(ctx context.Context, userID string) ([]domain.Job, error)
	UpdateJobStatus(ctx context.Context, id string, status domain.JobStatus) error
	CompleteJob(ctx context.Context, params db.CompleteJobParams) (string, error)
}

// Service coordinates job lifecycle operations against the provider and the
// relational store.
type Service struct {
	repo     Repository
	provider Provider
	llm      llm.Client
	configs  *configCache
	logger   *zerolog.Logger
}

// New creates a lifecycle service.
func New(repo Repository, provider Provider, llmClient llm.Client, logger *zerolog.Logger) *Service {
	return &Service{
		repo:     repo,
		provider: provider,
		llm:      llmClient,
		configs:  newConfigCache(repo.GetServiceConfig),
		logger:   logger,
	}
}

// SetConfigCacheTTL overrides how long service configurations are memoized.
func (s *Service) SetConfigCacheTTL(ttl time.Duration) {
	s.configs.setTTL(ttl)
}

// StartJobParams carries the caller's request to start a research job.
type StartJobParams struct {
	Service     string
	UserID      string
	OrgID       string
	Prompt      string
	Model       string
	ModelParams map[string]any
	Breadth     int
	Depth       int
	Visibility  domain.Visibility
}

// StartJob validates the service and model, resolves effective model
// parameters, starts the job at the provider, and persists it. Returns the
// job and any follow-up questions the provider wants answered.
func (s *Service) StartJob(ctx context.Context, params StartJobParams) (*domain.Job, []string, error) {
	visibility := params.Visibility
	if visibility == "" {
		visibility = domain.VisibilityPrivate
	}

	if visibility == domain.VisibilityOrg && params.OrgID == "" {
		return nil, nil, errs.ErrOrgRequired
	}

	cfg, err := s.configs.Get(ctx, params.Service)
	if err != nil {
		return nil, nil, err
	}

	model, err := resolveModel(cfg, params.Model)
	if err != nil {
		return nil, nil, err
	}

	modelParams := mergeModelParams(cfg, model, params.ModelParams)

	resp, err := s.provider.Start(ctx, cfg.BaseURL, StartRequest{
		UserID:      params.UserID,
		Prompt:      params.Prompt,
		Breadth:     params.Breadth,
		Depth:       params.Depth,
		Model:       model,
		ModelParams: modelParams,
	})
	if err != nil {
		observability.JobOperations.WithLabelValues("start", "error").Inc()

		return nil, nil, err
	}

	status := domain.StatusPendingAnswers
	if resp.Status != "" {
		status = domain.NormalizeStatus(resp.Status)
	}

	// Some providers omit the job id from the start response; generate one so
	// the job stays addressable through the answer/poll/cancel paths.
	jobID := resp.JobID
	if jobID == "" {
		jobID = uuid.NewString()
	}

	job := &domain.Job{
		JobID:       jobID,
		UserID:      params.UserID,
		OrgID:       params.OrgID,
		Service:     params.Service,
		Status:      status,
		ModelName:   model,
		ModelParams: modelParams,
		Visibility:  visibility,
	}

	id, err := s.repo.CreateJob(ctx, job)
	if err != nil {
		return nil, nil, err
	}

	job.ID = id

	observability.JobOperations.WithLabelValues("start", "success").Inc()
	s.logger.Info().Str("job_id", id).Str("service", params.Service).Str("model", model).Msg("research job started")

	return job, resp.Questions, nil
}

// AnswerQuestions forwards follow-up answers for a job and updates its
// status from the provider response.
func (s *Service) AnswerQuestions(ctx context.Context, service, userID, providerJobID string, answers []string) (*domain.Job, error) {
	job, err := s.repo.GetJobByProviderID(ctx, providerJobID, userID, service)
	if err != nil {
		return nil, err
	}

	cfg, err := s.configs.Get(ctx, service)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Answer(ctx, cfg.BaseURL, AnswerRequest{
		UserID:  userID,
		JobID:   providerJobID,
		Answers: answers,
	})
	if err != nil {
		observability.JobOperations.WithLabelValues("answer", "error").Inc()

		return nil, err
	}

	if resp.Status != "" {
		status := domain.NormalizeStatus(resp.Status)
		if status != job.Status {
			if err := s.repo.UpdateJobStatus(ctx, job.ID, status); err != nil {
				return nil, err
			}

			job.Status = status
		}
	}

	observability.JobOperations.WithLabelValues("answer", "success").Inc()

	return job, nil
}

// PollJob polls a job by its internal id.
func (s *Service) PollJob(ctx context.Context, userID, id string) (*domain.Job, error) {
	job, err := s.repo.GetJob(ctx, id, userID)
	if err != nil {
		return nil, err
	}

	return s.poll(ctx, job)
}

// PollProviderJob polls a job by its provider-assigned id and service.
func (s *Service) PollProviderJob(ctx context.Context, userID, service, providerJobID string) (*domain.Job, error) {
	job, err := s.repo.GetJobByProviderID(ctx, providerJobID, userID, service)
	if err != nil {
		return nil, err
	}

	return s.poll(ctx, job)
}

// poll refreshes a job's status from the provider. Terminal jobs are
// returned unchanged without contacting the provider, which keeps polling
// idempotent and guarantees enrichment triggers only at the transition into
// completed.
func (s *Service) poll(ctx context.Context, job *domain.Job) (*domain.Job, error) {
	if job.Status.Terminal() {
		return job, nil
	}

	cfg, err := s.configs.Get(ctx, job.Service)
	if err != nil {
		return nil, err
	}

	resp, err := s.provider.Status(ctx, cfg.BaseURL, job.UserID, job.JobID)
	if err != nil {
		observability.JobOperations.WithLabelValues("poll", "error").Inc()

		return nil, err
	}

	status := domain.NormalizeStatus(resp.Status)

	if status == domain.StatusCompleted {
		if resp.Results == nil {
			return nil, fmt.Errorf("provider reported completion without results: %w", errs.ErrEmptyResponse)
		}

		return s.complete(ctx, job, resp.Results)
	}

	if status != job.Status {
		if err := s.repo.UpdateJobStatus(ctx, job.ID, status); err != nil {
			return nil, err
		}

		job.Status = status
	}

	observability.JobOperations.WithLabelValues("poll", "success").Inc()

	return job, nil
}

// complete materializes a finished job into a research item, its sources,
// and an enrichment queue entry, all in one transaction.
func (s *Service) complete(ctx context.Context, job *domain.Job, results *StatusResults) (*domain.Job, error) {
	prompt := results.Prompt
	if prompt == "" {
		prompt = results.Answers
	}

	title := s.generateTitle(ctx, prompt)

	sources := make([]domain.Source, 0, len(results.Sources))
	for _, src := range results.Sources {
		sources = append(sources, domain.Source{
			URL:        src.URL,
			Title:      src.Title,
			Excerpt:    src.Description,
			Domain:     parseDomain(src.URL),
			SourceType: defaultSourceType,
		})
	}

	itemID, err := s.repo.CompleteJob(ctx, db.CompleteJobParams{
		JobID:       job.ID,
		UserID:      job.UserID,
		OrgID:       job.OrgID,
		Visibility:  job.Visibility,
		Title:       title,
		PromptText:  results.Prompt,
		FinalReport: results.FinalReport,
		ModelName:   job.ModelName,
		ModelParams: job.ModelParams,
		Sources:     sources,
	})
	if err != nil {
		observability.JobOperations.WithLabelValues("poll", "error").Inc()

		return nil, err
	}

	job.Status = domain.StatusCompleted
	job.ItemID = itemID

	observability.JobOperations.WithLabelValues("poll", "completed").Inc()
	s.logger.Info().Str("job_id", job.ID).Str("item_id", itemID).Int("sources", len(sources)).Msg("research job completed")

	return job, nil
}

// CancelJob cancels a job at the provider and force-sets its status to
// cancelled. Cancelling an already-terminal job returns it unchanged.
func (s *Service) CancelJob(ctx context.Context, service, userID, providerJobID string) (*domain.Job, error) {
	job, err := s.repo.GetJobByProviderID(ctx, providerJobID, userID, service)
	if err != nil {
		return nil, err
	}

	if job.Status.Terminal() {
		return job, nil
	}

	cfg, err := s.configs.Get(ctx, service)
	if err != nil {
		return nil, err
	}

	if err := s.provider.Cancel(ctx, cfg.BaseURL, userID, providerJobID); err != nil {
		observability.JobOperations.WithLabelValues("cancel", "error").Inc()

		return nil, err
	}

	// Cancellation is a client-driven override, not negotiated with the
	// provider's response body.
	if err := s.repo.UpdateJobStatus(ctx, job.ID, domain.StatusCancelled); err != nil {
		return nil, err
	}

	job.Status = domain.StatusCancelled

	observability.JobOperations.WithLabelValues("cancel", "success").Inc()

	return job, nil
}

// ListJobs returns the caller's jobs, newest first.
func (s *Service) ListJobs(ctx context.Context, userID string) ([]domain.Job, error) {
	return s.repo.ListJobs(ctx, userID)
}

// ListServices returns the keys of all configured research services.
func (s *Service) ListServices(ctx context.Context) ([]string, error) {
	return s.repo.ListServiceKeys(ctx)
}

// generateTitle asks the LLM for a title and falls back to a truncated
// prompt prefix. Title generation never fails the poll operation.
func (s *Service) generateTitle(ctx context.Context, prompt string) string {
	title, err := s.llm.GenerateTitle(ctx, prompt)
	if err != nil || title == "" {
		if err != nil {
			s.logger.Warn().Err(err).Msg("title generation failed, using prompt prefix")
		}

		return truncateTitle(prompt)
	}

	if len([]rune(title)) > maxTitleLength {
		return truncateTitle(title)
	}

	return title
}

func truncateTitle(s string) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= maxTitleLength {
		return string(runes)
	}

	return string(runes[:maxTitleLength-len(titleEllipsis)]) + titleEllipsis
}

// resolveModel validates an explicit model against the service catalog or
// falls back to the configured default.
func resolveModel(cfg *domain.ServiceConfig, requested string) (string, error) {
	if requested == "" {
		return cfg.DefaultModel, nil
	}

	if !cfg.HasModel(requested) {
		return "", fmt.Errorf("%w: %s", errs.ErrInvalidModel, requested)
	}

	return requested, nil
}

// mergeModelParams layers service defaults, model defaults, and caller
// overrides, caller winning on conflicts. Models with an "o" name prefix
// get a medium reasoning effort unless the caller set one, a quirk of that
// provider family.
func mergeModelParams(cfg *domain.ServiceConfig, model string, overrides map[string]any) map[string]any {
	merged := map[string]any{}

	for k, v := range cfg.DefaultParams {
		merged[k] = v
	}

	for k, v := range cfg.Models[model] {
		merged[k] = v
	}

	for k, v := range overrides {
		merged[k] = v
	}

	if strings.HasPrefix(model, "o") {
		if _, ok := merged[reasoningEffortKey]; !ok {
			merged[reasoningEffortKey] = "medium"
		}
	}

	return merged
}

// parseDomain extracts the host from a source URL. Malformed URLs yield an
// empty domain rather than failing item creation.
func parseDomain(raw string) string {
	u, err := url.Parse(raw)
	if err != nil {
		return ""
	}

	return u.Hostname()
}
