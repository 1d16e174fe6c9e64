// Package embeddings provides text embedding generation for the enrichment
// pipeline.
//
// A Generator wraps a Provider with a content-addressed cache and a
// zero-vector fallback: enrichment must never fail solely because the
// embedding provider is down, so provider errors are absorbed here and an
// all-zero vector of the configured dimensionality is returned instead.
package embeddings

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/core/errors"
	"github.com/researchhub/research-hub/internal/platform/observability"
)

// DefaultCacheTTL is the multi-day expiry for cached embeddings.
const DefaultCacheTTL = 7 * 24 * time.Hour

// Cache is the content-addressed embedding cache, keyed by text hash.
// Entries are immutable once written.
type Cache interface {
	GetEmbedding(ctx context.Context, hash string) ([]float32, error)
	SetEmbedding(ctx context.Context, hash string, vector []float32, ttl time.Duration) error
}

// Generator produces fixed-dimension embeddings with caching and a defined
// failure fallback. No retries are performed; failure is absorbed, not
// propagated.
type Generator struct {
	provider Provider
	cache    Cache
	circuit  *CircuitBreaker
	dims     int
	cacheTTL time.Duration
	logger   *zerolog.Logger
}

// GeneratorConfig configures a Generator.
type GeneratorConfig struct {
	Dimensions int
	CacheTTL   time.Duration
	Circuit    CircuitBreakerConfig
}

// NewGenerator creates a Generator over the given provider and cache.
// A nil cache disables caching.
func NewGenerator(provider Provider, cache Cache, cfg GeneratorConfig, logger *zerolog.Logger) *Generator {
	if cfg.Dimensions == 0 {
		cfg.Dimensions = DefaultDimensions
	}

	if cfg.CacheTTL == 0 {
		cfg.CacheTTL = DefaultCacheTTL
	}

	if cfg.Circuit.Threshold == 0 {
		cfg.Circuit = DefaultCircuitBreakerConfig()
	}

	return &Generator{
		provider: provider,
		cache:    cache,
		circuit:  NewCircuitBreaker(cfg.Circuit, logger),
		dims:     cfg.Dimensions,
		cacheTTL: cfg.CacheTTL,
		logger:   logger,
	}
}

// Dimensions returns the configured output dimensionality.
func (g *Generator) Dimensions() int {
	return g.dims
}

// Embed returns an embedding of the configured dimensionality for the text.
// Cache hits skip the provider entirely. On provider failure a zero vector
// is returned and the error is only logged.
func (g *Generator) Embed(ctx context.Context, text string) []float32 {
	hash := HashText(text)

	if g.cache != nil {
		cached, err := g.cache.GetEmbedding(ctx, hash)
		if err == nil {
			observability.EmbeddingCacheLookups.WithLabelValues("hit").Inc()

			return PadToTargetDimensions(cached, g.dims)
		}

		if !errors.Is(err, errors.ErrCacheNotFound) {
			g.logger.Warn().Err(err).Msg("embedding cache lookup failed")
		}

		observability.EmbeddingCacheLookups.WithLabelValues("miss").Inc()
	}

	if !g.circuit.CanAttempt() {
		observability.EmbeddingRequests.WithLabelValues(string(g.provider.Name()), "circuit_open").Inc()

		return ZeroVector(g.dims)
	}

	start := time.Now()

	result, err := g.provider.GetEmbedding(ctx, text)

	observability.EmbeddingLatency.WithLabelValues(string(g.provider.Name())).Observe(time.Since(start).Seconds())

	if err != nil {
		g.circuit.RecordFailure(string(g.provider.Name()))
		observability.EmbeddingRequests.WithLabelValues(string(g.provider.Name()), "error").Inc()
		g.logger.Error().Err(err).Str("provider", string(g.provider.Name())).Msg("embedding generation failed, returning zero vector")

		return ZeroVector(g.dims)
	}

	g.circuit.RecordSuccess()
	observability.EmbeddingRequests.WithLabelValues(string(g.provider.Name()), "success").Inc()

	vec := PadToTargetDimensions(result.Vector, g.dims)

	if g.cache != nil {
		if err := g.cache.SetEmbedding(ctx, hash, vec, g.cacheTTL); err != nil {
			g.logger.Warn().Err(err).Msg("embedding cache store failed")
		}
	}

	return vec
}

// HashText returns the hex-encoded SHA-256 digest of the text, the cache key
// for its embedding.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
