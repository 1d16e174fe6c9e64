package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Run modes.
const (
	ModeServer = "server"
	ModeWorker = "worker"
	ModeAll    = "all"
)

type Config struct {
	AppEnv      string `env:"APP_ENV" envDefault:"local"`
	Mode        string `env:"MODE" envDefault:"all"`
	PostgresDSN string `env:"POSTGRES_DSN,required"`
	HTTPAddr    string `env:"HTTP_ADDR" envDefault:":8080"`

	LLMAPIKey string  `env:"LLM_API_KEY,required"`
	LLMRPS    float64 `env:"LLM_RPS" envDefault:"1"`

	EmbeddingDimensions int           `env:"EMBEDDING_DIMENSIONS" envDefault:"3072"`
	EmbeddingCacheTTL   time.Duration `env:"EMBEDDING_CACHE_TTL" envDefault:"168h"`

	QdrantEnabled    bool   `env:"QDRANT_ENABLED" envDefault:"false"`
	QdrantHost       string `env:"QDRANT_HOST" envDefault:"localhost"`
	QdrantPort       int    `env:"QDRANT_PORT" envDefault:"6334"`
	QdrantCollection string `env:"QDRANT_COLLECTION" envDefault:"research_items"`
	QdrantAPIKey     string `env:"QDRANT_API_KEY"`
	QdrantUseTLS     bool   `env:"QDRANT_USE_TLS" envDefault:"false"`

	WorkerConcurrency  int           `env:"WORKER_CONCURRENCY" envDefault:"4"`
	WorkerPollInterval time.Duration `env:"WORKER_POLL_INTERVAL" envDefault:"5s"`

	ChunkMaxWords     int           `env:"CHUNK_MAX_WORDS" envDefault:"1000"`
	ChunkOverlapWords int           `env:"CHUNK_OVERLAP_WORDS" envDefault:"50"`
	ServiceConfigTTL  time.Duration `env:"SERVICE_CONFIG_TTL" envDefault:"5m"`
	LockTTL           time.Duration `env:"LOCK_TTL" envDefault:"60s"`
}

func Load() (*Config, error) {
	_ = godotenv.Load() //nolint:errcheck // .env file is optional, error is expected when not present

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing environment config: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

func (c *Config) validate() error {
	switch c.Mode {
	case ModeServer, ModeWorker, ModeAll:
	default:
		return fmt.Errorf("invalid MODE %q: must be one of %s, %s, %s", c.Mode, ModeServer, ModeWorker, ModeAll)
	}

	if c.WorkerConcurrency < 1 {
		return fmt.Errorf("WORKER_CONCURRENCY must be at least 1, got %d", c.WorkerConcurrency)
	}

	if c.EmbeddingDimensions < 1 {
		return fmt.Errorf("EMBEDDING_DIMENSIONS must be at least 1, got %d", c.EmbeddingDimensions)
	}

	return nil
}
