// Package app provides the main application bootstrap and runtime orchestration.
//
// The App type wires together all dependencies and exposes methods to run
// different operational modes:
//
//   - Server mode: HTTP API for job submission and polling
//   - Worker mode: Enrichment pipeline for completed research items
//   - All mode: Both in a single process
//
// Each mode can be run independently or combined based on deployment needs.
package app

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/api"
	"github.com/researchhub/research-hub/internal/core/embeddings"
	"github.com/researchhub/research-hub/internal/core/llm"
	"github.com/researchhub/research-hub/internal/core/vectorindex"
	"github.com/researchhub/research-hub/internal/platform/config"
	"github.com/researchhub/research-hub/internal/platform/observability"
	"github.com/researchhub/research-hub/internal/process/enrichment"
	"github.com/researchhub/research-hub/internal/research"
	db "github.com/researchhub/research-hub/internal/storage"
)

const (
	llmAPIKeyMock              = "mock"
	msgEnrichmentWorkerStopped = "enrichment worker stopped"
)

// App holds the application dependencies and provides methods to run different modes.
type App struct {
	cfg      *config.Config
	database *db.DB
	logger   *zerolog.Logger
}

// New creates a new App instance with the given dependencies.
func New(cfg *config.Config, database *db.DB, logger *zerolog.Logger) *App {
	return &App{
		cfg:      cfg,
		database: database,
		logger:   logger,
	}
}

// Run starts the configured mode and blocks until the context is cancelled.
func (a *App) Run(ctx context.Context) error {
	switch a.cfg.Mode {
	case config.ModeServer:
		return a.RunServer(ctx)
	case config.ModeWorker:
		return a.RunWorker(ctx)
	case config.ModeAll:
		var wg sync.WaitGroup

		wg.Add(1)

		go func() {
			defer wg.Done()

			a.runEnrichmentWorker(ctx)
		}()

		err := a.RunServer(ctx)

		// The database is closed by the caller once Run returns, so wait
		// for in-flight enrichment work to drain first.
		wg.Wait()

		return err
	default:
		return fmt.Errorf("unknown mode %q", a.cfg.Mode)
	}
}

// RunServer runs the HTTP API together with health and metrics endpoints.
func (a *App) RunServer(ctx context.Context) error {
	a.logger.Info().Msg("Starting server mode")

	svc := research.New(a.database, research.NewHTTPProvider(), a.newLLMClient(), a.logger)
	svc.SetConfigCacheTTL(a.cfg.ServiceConfigTTL)

	handler := api.NewHandler(svc, a.logger)

	srv := observability.NewServerWithAPI(a.database, a.cfg.HTTPAddr, handler, a.logger)

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server start: %w", err)
	}

	return nil
}

// RunWorker runs the enrichment worker mode.
func (a *App) RunWorker(ctx context.Context) error {
	a.logger.Info().Msg("Starting worker mode")

	a.runEnrichmentWorker(ctx)

	return nil
}

func (a *App) runEnrichmentWorker(ctx context.Context) {
	index, err := a.newVectorIndex(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("vector index unavailable, continuing without it")

		index = vectorindex.NewNoop()
	}

	defer func() {
		if err := index.Close(); err != nil {
			a.logger.Warn().Err(err).Msg("vector index close failed")
		}
	}()

	orchestrator := enrichment.NewOrchestrator(
		a.database,
		a.newEmbeddingGenerator(),
		a.newLLMClient(),
		index,
		a.logger,
	)
	orchestrator.SetLockTTL(a.cfg.LockTTL)
	orchestrator.SetChunking(a.cfg.ChunkMaxWords, a.cfg.ChunkOverlapWords)

	worker := enrichment.NewWorker(a.database, orchestrator, enrichment.WorkerConfig{
		Concurrency:  a.cfg.WorkerConcurrency,
		PollInterval: a.cfg.WorkerPollInterval,
	}, a.logger)

	if err := worker.Run(ctx); err != nil {
		if errors.Is(err, context.Canceled) {
			a.logger.Info().Msg(msgEnrichmentWorkerStopped)

			return
		}

		a.logger.Warn().Err(err).Msg(msgEnrichmentWorkerStopped)
	}
}

func (a *App) newLLMClient() llm.Client {
	if a.cfg.LLMAPIKey == llmAPIKeyMock {
		return llm.NewMock()
	}

	return llm.NewOpenAI(a.cfg.LLMAPIKey, a.cfg.LLMRPS, a.logger)
}

func (a *App) newEmbeddingGenerator() *embeddings.Generator {
	logger := a.logger.With().Str("component", "embeddings").Logger()

	var provider embeddings.Provider
	if a.cfg.LLMAPIKey == llmAPIKeyMock {
		provider = embeddings.NewMockProviderWithDimensions(a.cfg.EmbeddingDimensions)
	} else {
		provider = embeddings.NewOpenAIProvider(embeddings.OpenAIConfig{
			APIKey:     a.cfg.LLMAPIKey,
			Dimensions: a.cfg.EmbeddingDimensions,
		})
	}

	return embeddings.NewGenerator(provider, a.database, embeddings.GeneratorConfig{
		Dimensions: a.cfg.EmbeddingDimensions,
		CacheTTL:   a.cfg.EmbeddingCacheTTL,
	}, &logger)
}

func (a *App) newVectorIndex(ctx context.Context) (vectorindex.Index, error) {
	if !a.cfg.QdrantEnabled {
		return vectorindex.NewNoop(), nil
	}

	index, err := vectorindex.NewQdrant(ctx, vectorindex.Config{
		Host:       a.cfg.QdrantHost,
		Port:       a.cfg.QdrantPort,
		Collection: a.cfg.QdrantCollection,
		VectorSize: uint64(a.cfg.EmbeddingDimensions),
		APIKey:     a.cfg.QdrantAPIKey,
		UseTLS:     a.cfg.QdrantUseTLS,
	}, a.logger)
	if err != nil {
		return nil, fmt.Errorf("qdrant init: %w", err)
	}

	return index, nil
}
