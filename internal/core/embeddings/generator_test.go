package embeddings

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/rs/zerolog"

	errs "github.com/researchhub/research-hub/internal/core/errors"
)

type stubProvider struct {
	vector []float32
	err    error
	calls  int
}

func (p *stubProvider) Name() ProviderName { return "stub" }
func (p *stubProvider) Dimensions() int    { return len(p.vector) }
func (p *stubProvider) IsAvailable() bool  { return p.err == nil }

func (p *stubProvider) GetEmbedding(_ context.Context, _ string) (EmbeddingResult, error) {
	p.calls++
	if p.err != nil {
		return EmbeddingResult{}, p.err
	}

	return EmbeddingResult{Vector: p.vector, Dimensions: len(p.vector), Provider: p.Name()}, nil
}

type memCache struct {
	entries map[string][]float32
	sets    int
}

func newMemCache() *memCache {
	return &memCache{entries: map[string][]float32{}}
}

func (c *memCache) GetEmbedding(_ context.Context, hash string) ([]float32, error) {
	vec, ok := c.entries[hash]
	if !ok {
		return nil, errs.ErrCacheNotFound
	}

	return vec, nil
}

func (c *memCache) SetEmbedding(_ context.Context, hash string, vec []float32, _ time.Duration) error {
	c.entries[hash] = vec
	c.sets++

	return nil
}

func newTestGenerator(p Provider, cache Cache, dims int) *Generator {
	logger := zerolog.Nop()
	return NewGenerator(p, cache, GeneratorConfig{Dimensions: dims}, &logger)
}

func TestGenerator_Embed_Success(t *testing.T) {
	provider := &stubProvider{vector: []float32{1, 2, 3}}
	cache := newMemCache()
	gen := newTestGenerator(provider, cache, 4)

	vec := gen.Embed(context.Background(), "hello world")

	if len(vec) != 4 {
		t.Fatalf("expected 4 dimensions, got %d", len(vec))
	}

	if vec[0] != 1 || vec[3] != 0 {
		t.Errorf("expected padded vector [1 2 3 0], got %v", vec)
	}

	if cache.sets != 1 {
		t.Errorf("expected one cache store, got %d", cache.sets)
	}
}

func TestGenerator_Embed_CacheHitSkipsProvider(t *testing.T) {
	provider := &stubProvider{vector: []float32{1, 2, 3}}
	cache := newMemCache()
	cache.entries[HashText("cached text")] = []float32{9, 9, 9, 9}

	gen := newTestGenerator(provider, cache, 4)

	vec := gen.Embed(context.Background(), "cached text")

	if provider.calls != 0 {
		t.Errorf("expected provider not to be called, got %d calls", provider.calls)
	}

	if vec[0] != 9 {
		t.Errorf("expected cached vector, got %v", vec)
	}
}

func TestGenerator_Embed_ProviderFailureReturnsZeroVector(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream unavailable")}
	gen := newTestGenerator(provider, nil, 8)

	vec := gen.Embed(context.Background(), "some text")

	if len(vec) != 8 {
		t.Fatalf("expected 8 dimensions, got %d", len(vec))
	}

	if !IsZero(vec) {
		t.Errorf("expected zero vector on provider failure, got %v", vec)
	}
}

func TestGenerator_Embed_OpenCircuitShortCircuits(t *testing.T) {
	provider := &stubProvider{err: errors.New("upstream unavailable")}
	gen := newTestGenerator(provider, nil, 4)

	for i := 0; i < defaultCircuitThreshold; i++ {
		gen.Embed(context.Background(), "text")
	}

	before := provider.calls

	vec := gen.Embed(context.Background(), "text")

	if provider.calls != before {
		t.Errorf("expected no provider call while circuit open, got %d extra", provider.calls-before)
	}

	if !IsZero(vec) {
		t.Errorf("expected zero vector while circuit open, got %v", vec)
	}
}

func TestHashText_Deterministic(t *testing.T) {
	a := HashText("same input")
	b := HashText("same input")
	c := HashText("different input")

	if a != b {
		t.Errorf("expected identical hashes, got %s and %s", a, b)
	}

	if a == c {
		t.Error("expected different inputs to hash differently")
	}

	if len(a) != 64 {
		t.Errorf("expected 64 hex chars, got %d", len(a))
	}
}
