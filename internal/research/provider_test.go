package research

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	errs "github.com/researchhub/research-hub/internal/core/errors"
)

func TestHTTPProvider_Start(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != endpointStart {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}

		var req StartRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		if req.Prompt != "test prompt" || req.Model != "gpt-x" {
			t.Errorf("unexpected request body: %+v", req)
		}

		_ = json.NewEncoder(w).Encode(StartResponse{
			JobID:     "j1",
			Status:    "pending_answers",
			Questions: []string{"Which region?"},
		})
	}))
	defer srv.Close()

	provider := NewHTTPProvider()

	resp, err := provider.Start(context.Background(), srv.URL, StartRequest{
		UserID: "u1",
		Prompt: "test prompt",
		Model:  "gpt-x",
	})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.JobID != "j1" || len(resp.Questions) != 1 {
		t.Errorf("unexpected response: %+v", resp)
	}
}

func TestHTTPProvider_StatusQueryParams(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("user_id") != "u1" || r.URL.Query().Get("job_id") != "j1" {
			t.Errorf("missing query params: %s", r.URL.RawQuery)
		}

		_ = json.NewEncoder(w).Encode(StatusResponse{Status: "running"})
	}))
	defer srv.Close()

	provider := NewHTTPProvider()

	resp, err := provider.Status(context.Background(), srv.URL, "u1", "j1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if resp.Status != "running" {
		t.Errorf("expected running, got %s", resp.Status)
	}
}

func TestHTTPProvider_NonSuccessSurfacesProviderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream exploded"))
	}))
	defer srv.Close()

	provider := NewHTTPProvider()

	_, err := provider.Status(context.Background(), srv.URL, "u1", "j1")
	if err == nil {
		t.Fatal("expected an error")
	}

	var provErr *errs.ProviderError
	if !errs.As(err, &provErr) {
		t.Fatalf("expected ProviderError, got %T: %v", err, err)
	}

	if provErr.StatusCode != http.StatusBadGateway || provErr.Body != "upstream exploded" {
		t.Errorf("unexpected provider error: %+v", provErr)
	}
}
