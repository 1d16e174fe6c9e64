package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Research job lifecycle metrics
	JobOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_job_operations_total",
		Help: "Total number of research job lifecycle operations",
	}, []string{"operation", "status"})

	JobsByStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "research_jobs_by_status",
		Help: "Current number of research jobs by status",
	}, []string{"status"})

	ProviderRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_provider_request_duration_seconds",
		Help:    "Duration of upstream research provider requests",
		Buckets: prometheus.DefBuckets,
	}, []string{"service", "endpoint"})

	ProviderRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_provider_requests_total",
		Help: "Total number of upstream research provider requests",
	}, []string{"service", "endpoint", "status"})

	// Enrichment pipeline metrics
	EnrichmentTasks = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_enrichment_tasks_total",
		Help: "Total number of enrichment tasks by outcome",
	}, []string{"task", "status"})

	EnrichmentDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_enrichment_duration_seconds",
		Help:    "Duration of enrichment tasks",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120, 300},
	}, []string{"task"})

	EnrichmentQueueBacklog = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "research_enrichment_queue_backlog",
		Help: "Number of pending entries in the enrichment queue",
	})

	EnrichmentRetries = promauto.NewCounter(prometheus.CounterOpts{
		Name: "research_enrichment_retries_total",
		Help: "Total number of enrichment queue entries scheduled for retry",
	})

	LockContention = promauto.NewCounter(prometheus.CounterOpts{
		Name: "research_enrichment_lock_contention_total",
		Help: "Total number of enrichment runs skipped due to a held processing lock",
	})

	// Embedding metrics
	EmbeddingRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_embedding_requests_total",
		Help: "Total number of embedding requests",
	}, []string{"provider", "status"})

	EmbeddingLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_embedding_latency_seconds",
		Help:    "Latency of embedding requests by provider",
		Buckets: []float64{0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"provider"})

	EmbeddingCacheLookups = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_embedding_cache_lookups_total",
		Help: "Total number of embedding cache lookups by result",
	}, []string{"result"})

	// LLM metrics
	LLMRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_llm_requests_total",
		Help: "Total number of LLM requests",
	}, []string{"model", "task", "status"})

	LLMRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "research_llm_request_duration_seconds",
		Help:    "Duration of LLM requests",
		Buckets: []float64{0.5, 1, 2, 5, 10, 20, 30, 60, 120},
	}, []string{"model", "task"})

	SummariesGenerated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_summaries_generated_total",
		Help: "Total number of summaries generated",
	}, []string{"scope", "length", "status"})

	// Vector index metrics
	VectorUpserts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "research_vector_upserts_total",
		Help: "Total number of vector index upserts",
	}, []string{"kind", "status"})
)
