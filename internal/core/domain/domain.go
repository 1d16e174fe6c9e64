package domain

import "time"

// JobStatus is the canonical lifecycle status of a research job.
type JobStatus string

// Canonical job statuses. Providers may report their own vocabulary;
// NormalizeStatus maps it into this set at the boundary.
const (
	StatusPendingAnswers JobStatus = "pending_answers"
	StatusRunning        JobStatus = "running"
	StatusCompleted      JobStatus = "completed"
	StatusFailed         JobStatus = "failed"
	StatusCancelled      JobStatus = "cancelled"
)

// Terminal reports whether the status admits no further transitions.
func (s JobStatus) Terminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// NormalizeStatus maps a provider-reported status string into the canonical
// set. Unknown values pass through unchanged so they can at least be stored
// and observed.
func NormalizeStatus(raw string) JobStatus {
	switch raw {
	case "complete", "completed", "done", "finished":
		return StatusCompleted
	case "pending", "pending_answers", "awaiting_answers":
		return StatusPendingAnswers
	case "running", "in_progress", "processing":
		return StatusRunning
	case "failed", "error":
		return StatusFailed
	case "cancelled", "canceled":
		return StatusCancelled
	default:
		return JobStatus(raw)
	}
}

// Visibility controls who can see a job or item.
type Visibility string

const (
	VisibilityPrivate Visibility = "private"
	VisibilityPublic  Visibility = "public"
	VisibilityOrg     Visibility = "org"
)

// ChunkType distinguishes prompt chunks from report chunks.
type ChunkType string

const (
	ChunkTypePrompt ChunkType = "prompt"
	ChunkTypeReport ChunkType = "report"
)

// SummaryScope mirrors ChunkType for summaries.
type SummaryScope string

const (
	SummaryScopePrompt SummaryScope = "prompt"
	SummaryScopeReport SummaryScope = "report"
)

// SummaryLength is the target-length bucket of a summary.
type SummaryLength string

const (
	SummaryVeryShort SummaryLength = "veryshort"
	SummaryShort     SummaryLength = "short"
	SummaryMedium    SummaryLength = "medium"
	SummaryLong      SummaryLength = "long"
	SummaryVeryLong  SummaryLength = "verylong"
)

// Job tracks one request to an external research provider.
type Job struct {
	ID          string
	JobID       string
	UserID      string
	OrgID       string
	Service     string
	Status      JobStatus
	ModelName   string
	ModelParams map[string]any
	Visibility  Visibility
	ItemID      string
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// Item is a completed research artifact: the report plus everything derived
// from it.
type Item struct {
	ID          string
	UserID      string
	OrgID       string
	Visibility  Visibility
	Title       string
	PromptText  string
	FinalReport string
	ModelName   string
	ModelParams map[string]any
	SourceCount int
	CreatedAt   time.Time
}

// Source is one citation returned by the provider.
type Source struct {
	ID         string
	ItemID     string
	URL        string
	Title      string
	Excerpt    string
	Domain     string // empty when the URL host could not be parsed
	SourceType string
	CreatedAt  time.Time
}

// Chunk is an ordered, sentence-aligned segment of an item's prompt or report.
type Chunk struct {
	ID        string
	ItemID    string
	Index     int
	Type      ChunkType
	Text      string
	CreatedAt time.Time
}

// Summary is one word-budgeted abstractive summary for a (scope, length) pair.
type Summary struct {
	ID        string
	ItemID    string
	Scope     SummaryScope
	Length    SummaryLength
	Text      string
	CreatedAt time.Time
}

// DomainPair is an unordered pair of source domains in canonical order (A <= B).
type DomainPair struct {
	A string
	B string
}

// NewDomainPair canonicalizes the ordering of two domains.
func NewDomainPair(a, b string) DomainPair {
	if b < a {
		a, b = b, a
	}

	return DomainPair{A: a, B: b}
}

// ServiceConfig is a plain value snapshot of a research service's
// configuration, safe to cache and share across goroutines.
type ServiceConfig struct {
	Key           string
	BaseURL       string
	DefaultModel  string
	DefaultParams map[string]any
	// Models maps a model key to its default parameters.
	Models map[string]map[string]any
}

// HasModel reports whether the service is configured with the given model.
func (c *ServiceConfig) HasModel(model string) bool {
	_, ok := c.Models[model]
	return ok
}
