package research

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/platform/observability"
)

const (
	defaultProviderTimeout = 30 * time.Second
	startCallTimeout       = 8 * time.Second

	endpointStart  = "/research/start"
	endpointAnswer = "/research/answer"
	endpointStatus = "/research/status"
	endpointCancel = "/research/cancel"

	// Upstream error bodies are preserved for the client but bounded.
	maxErrorBodyBytes = 4096
)

// StartRequest is the body of a provider start call.
type StartRequest struct {
	UserID      string         `json:"user_id"`
	Prompt      string         `json:"prompt"`
	Breadth     int            `json:"breadth,omitempty"`
	Depth       int            `json:"depth,omitempty"`
	Model       string         `json:"model"`
	ModelParams map[string]any `json:"model_params,omitempty"`
}

// StartResponse is the provider's reply to a start call.
type StartResponse struct {
	JobID     string   `json:"job_id"`
	Status    string   `json:"status"`
	Questions []string `json:"questions,omitempty"`
}

// AnswerRequest forwards follow-up answers to the provider.
type AnswerRequest struct {
	UserID  string   `json:"user_id"`
	JobID   string   `json:"job_id"`
	Answers []string `json:"answers"`
}

// AnswerResponse is the provider's reply to an answer call.
type AnswerResponse struct {
	Status string `json:"status"`
}

// ProviderSource is one citation in a completed results object.
type ProviderSource struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
}

// StatusResults is the payload returned once a job is complete.
type StatusResults struct {
	Prompt      string           `json:"prompt"`
	Answers     string           `json:"answers,omitempty"`
	FinalReport string           `json:"final_report"`
	Sources     []ProviderSource `json:"sources"`
}

// StatusResponse is the provider's reply to a status call.
type StatusResponse struct {
	Status  string         `json:"status"`
	Results *StatusResults `json:"results,omitempty"`
}

// Provider is the client surface for an external research service.
type Provider interface {
	Start(ctx context.Context, baseURL string, req StartRequest) (*StartResponse, error)
	Answer(ctx context.Context, baseURL string, req AnswerRequest) (*AnswerResponse, error)
	Status(ctx context.Context, baseURL, userID, jobID string) (*StatusResponse, error)
	Cancel(ctx context.Context, baseURL, userID, jobID string) error
}

type httpProvider struct {
	client *http.Client
}

// NewHTTPProvider creates a Provider speaking the research provider HTTP
// protocol. All calls carry bounded timeouts.
func NewHTTPProvider() Provider {
	return &httpProvider{
		client: &http.Client{Timeout: defaultProviderTimeout},
	}
}

func (p *httpProvider) Start(ctx context.Context, baseURL string, req StartRequest) (*StartResponse, error) {
	ctx, cancel := context.WithTimeout(ctx, startCallTimeout)
	defer cancel()

	var resp StartResponse
	if err := p.postJSON(ctx, baseURL, endpointStart, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (p *httpProvider) Answer(ctx context.Context, baseURL string, req AnswerRequest) (*AnswerResponse, error) {
	var resp AnswerResponse
	if err := p.postJSON(ctx, baseURL, endpointAnswer, req, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (p *httpProvider) Status(ctx context.Context, baseURL, userID, jobID string) (*StatusResponse, error) {
	var resp StatusResponse
	if err := p.getJSON(ctx, baseURL, endpointStatus, userID, jobID, &resp); err != nil {
		return nil, err
	}

	return &resp, nil
}

func (p *httpProvider) Cancel(ctx context.Context, baseURL, userID, jobID string) error {
	var ack map[string]any

	return p.getJSON(ctx, baseURL, endpointCancel, userID, jobID, &ack)
}

func (p *httpProvider) postJSON(ctx context.Context, baseURL, endpoint string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal provider request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, baseURL+endpoint, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create provider request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")

	return p.do(req, endpoint, out)
}

func (p *httpProvider) getJSON(ctx context.Context, baseURL, endpoint, userID, jobID string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, baseURL+endpoint, nil)
	if err != nil {
		return fmt.Errorf("create provider request: %w", err)
	}

	query := url.Values{}
	query.Set("user_id", userID)
	query.Set("job_id", jobID)
	req.URL.RawQuery = query.Encode()

	return p.do(req, endpoint, out)
}

func (p *httpProvider) do(req *http.Request, endpoint string, out any) error {
	start := time.Now()

	resp, err := p.client.Do(req)

	observability.ProviderRequestDuration.WithLabelValues(req.URL.Host, endpoint).Observe(time.Since(start).Seconds())

	if err != nil {
		observability.ProviderRequests.WithLabelValues(req.URL.Host, endpoint, "error").Inc()

		return fmt.Errorf("provider request %s: %w", endpoint, err)
	}

	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		observability.ProviderRequests.WithLabelValues(req.URL.Host, endpoint, "upstream_error").Inc()

		return &errors.ProviderError{StatusCode: resp.StatusCode, Body: string(body)}
	}

	observability.ProviderRequests.WithLabelValues(req.URL.Host, endpoint, "success").Inc()

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode provider response: %w", err)
	}

	return nil
}
