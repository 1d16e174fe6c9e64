// Package api exposes the research job lifecycle over HTTP. Authentication
// is delegated to the gateway in front of this service, which injects the
// caller's identity via the X-User-ID header.
package api

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/research"
)

const (
	headerContentType = "Content-Type"
	headerUserID      = "X-User-ID"

	contentTypeJSON = "application/json"
)

// Error kinds surfaced to clients.
const (
	kindUnsupportedService = "unsupported_service"
	kindInvalidModel       = "invalid_model"
	kindNotFound           = "not_found"
	kindProviderError      = "provider_error"
	kindBadRequest         = "bad_request"
	kindUnauthorized       = "unauthorized"
	kindInternal           = "internal"
)

// Handler routes lifecycle requests to the research service.
type Handler struct {
	service *research.Service
	logger  *zerolog.Logger
}

// NewHandler creates the API handler.
func NewHandler(service *research.Service, logger *zerolog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts all routes on the mux.
func (h *Handler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /research-jobs", h.startJob)
	mux.HandleFunc("GET /research-jobs", h.listJobs)
	mux.HandleFunc("GET /research-jobs/{id}", h.pollJob)
	mux.HandleFunc("GET /research-jobs/status", h.pollProviderJob)
	mux.HandleFunc("POST /research-jobs/answers", h.answerQuestions)
	mux.HandleFunc("POST /research-jobs/cancel", h.cancelJob)
	mux.HandleFunc("GET /services", h.listServices)
}

type jobResponse struct {
	ID          string         `json:"id"`
	JobID       string         `json:"job_id"`
	Service     string         `json:"service"`
	Status      string         `json:"status"`
	ModelName   string         `json:"model_name"`
	ModelParams map[string]any `json:"model_params,omitempty"`
	Visibility  string         `json:"visibility"`
	ItemID      string         `json:"item_id,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

type startJobResponse struct {
	Job       jobResponse `json:"job"`
	Questions []string    `json:"questions,omitempty"`
}

type errorResponse struct {
	Error errorDetail `json:"error"`
}

type errorDetail struct {
	Kind   string `json:"kind"`
	Detail string `json:"detail"`
}

type startJobRequest struct {
	Service     string         `json:"service"`
	Prompt      string         `json:"prompt"`
	Model       string         `json:"model,omitempty"`
	ModelParams map[string]any `json:"model_params,omitempty"`
	Breadth     int            `json:"breadth,omitempty"`
	Depth       int            `json:"depth,omitempty"`
	Visibility  string         `json:"visibility,omitempty"`
	OrgID       string         `json:"org_id,omitempty"`
}

type jobActionRequest struct {
	Service string   `json:"service"`
	JobID   string   `json:"job_id"`
	Answers []string `json:"answers,omitempty"`
}

func (h *Handler) startJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req startJobRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")

		return
	}

	if req.Service == "" || req.Prompt == "" {
		h.writeError(w, http.StatusBadRequest, kindBadRequest, "service and prompt are required")

		return
	}

	job, questions, err := h.service.StartJob(r.Context(), research.StartJobParams{
		Service:     req.Service,
		UserID:      userID,
		OrgID:       req.OrgID,
		Prompt:      req.Prompt,
		Model:       req.Model,
		ModelParams: req.ModelParams,
		Breadth:     req.Breadth,
		Depth:       req.Depth,
		Visibility:  domain.Visibility(req.Visibility),
	})
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusCreated, startJobResponse{Job: toJobResponse(job), Questions: questions})
}

func (h *Handler) listJobs(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	jobs, err := h.service.ListJobs(r.Context(), userID)
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	resp := make([]jobResponse, 0, len(jobs))
	for i := range jobs {
		resp = append(resp, toJobResponse(&jobs[i]))
	}

	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) pollJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	job, err := h.service.PollJob(r.Context(), userID, r.PathValue("id"))
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (h *Handler) pollProviderJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	service := r.URL.Query().Get("service")
	jobID := r.URL.Query().Get("job_id")

	if service == "" || jobID == "" {
		h.writeError(w, http.StatusBadRequest, kindBadRequest, "service and job_id are required")

		return
	}

	job, err := h.service.PollProviderJob(r.Context(), userID, service, jobID)
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (h *Handler) answerQuestions(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req jobActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")

		return
	}

	job, err := h.service.AnswerQuestions(r.Context(), req.Service, userID, req.JobID, req.Answers)
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (h *Handler) cancelJob(w http.ResponseWriter, r *http.Request) {
	userID, ok := h.userID(w, r)
	if !ok {
		return
	}

	var req jobActionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, kindBadRequest, "invalid request body")

		return
	}

	job, err := h.service.CancelJob(r.Context(), req.Service, userID, req.JobID)
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, toJobResponse(job))
}

func (h *Handler) listServices(w http.ResponseWriter, r *http.Request) {
	keys, err := h.service.ListServices(r.Context())
	if err != nil {
		h.writeServiceError(w, err)

		return
	}

	h.writeJSON(w, http.StatusOK, map[string][]string{"services": keys})
}

func (h *Handler) userID(w http.ResponseWriter, r *http.Request) (string, bool) {
	userID := r.Header.Get(headerUserID)
	if userID == "" {
		h.writeError(w, http.StatusUnauthorized, kindUnauthorized, "missing "+headerUserID+" header")

		return "", false
	}

	return userID, true
}

func (h *Handler) writeServiceError(w http.ResponseWriter, err error) {
	var provErr *errs.ProviderError

	switch {
	case errs.Is(err, errs.ErrUnsupportedService):
		h.writeError(w, http.StatusBadRequest, kindUnsupportedService, err.Error())
	case errs.Is(err, errs.ErrInvalidModel):
		h.writeError(w, http.StatusBadRequest, kindInvalidModel, err.Error())
	case errs.Is(err, errs.ErrOrgRequired):
		h.writeError(w, http.StatusBadRequest, kindBadRequest, err.Error())
	case errs.Is(err, errs.ErrNotFound):
		h.writeError(w, http.StatusNotFound, kindNotFound, "job not found")
	case errs.As(err, &provErr):
		h.writeError(w, http.StatusBadGateway, kindProviderError, provErr.Error())
	default:
		h.logger.Error().Err(err).Msg("request failed")
		h.writeError(w, http.StatusInternalServerError, kindInternal, "internal error")
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, kind, detail string) {
	h.writeJSON(w, status, errorResponse{Error: errorDetail{Kind: kind, Detail: detail}})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set(headerContentType, contentTypeJSON)
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Error().Err(err).Msg("failed to encode response")
	}
}

func toJobResponse(job *domain.Job) jobResponse {
	return jobResponse{
		ID:          job.ID,
		JobID:       job.JobID,
		Service:     job.Service,
		Status:      string(job.Status),
		ModelName:   job.ModelName,
		ModelParams: job.ModelParams,
		Visibility:  string(job.Visibility),
		ItemID:      job.ItemID,
		CreatedAt:   job.CreatedAt,
		UpdatedAt:   job.UpdatedAt,
	}
}
