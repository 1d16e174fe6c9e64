// Package vectorindex stores enrichment vectors in an external similarity
// index, keyed by deterministic point ids so upserts are idempotent.
package vectorindex

import (
	"context"
	"fmt"

	"github.com/qdrant/go-client/qdrant"
	"github.com/rs/zerolog"

	"github.com/researchhub/research-hub/internal/platform/observability"
)

// Index is the write-side interface the enrichment tasks use.
type Index interface {
	// Upsert stores a vector under the given logical key with a payload of
	// filterable attributes. Re-upserting a key overwrites the point.
	Upsert(ctx context.Context, kind string, key string, vector []float32, payload map[string]any) error

	Close() error
}

// Config holds connection parameters for the Qdrant index.
type Config struct {
	Host       string
	Port       int
	Collection string
	VectorSize uint64
	APIKey     string
	UseTLS     bool
}

type qdrantIndex struct {
	client     *qdrant.Client
	collection string
	logger     *zerolog.Logger
}

// NewQdrant connects to Qdrant and ensures the collection exists.
func NewQdrant(ctx context.Context, cfg Config, logger *zerolog.Logger) (Index, error) {
	if cfg.Host == "" {
		cfg.Host = "localhost"
	}

	if cfg.Port == 0 {
		cfg.Port = 6334
	}

	client, err := qdrant.NewClient(&qdrant.Config{
		Host:   cfg.Host,
		Port:   cfg.Port,
		APIKey: cfg.APIKey,
		UseTLS: cfg.UseTLS,
	})
	if err != nil {
		return nil, fmt.Errorf("create qdrant client: %w", err)
	}

	idx := &qdrantIndex{client: client, collection: cfg.Collection, logger: logger}

	if err := idx.ensureCollection(ctx, cfg.VectorSize); err != nil {
		return nil, err
	}

	return idx, nil
}

func (q *qdrantIndex) ensureCollection(ctx context.Context, vectorSize uint64) error {
	exists, err := q.client.CollectionExists(ctx, q.collection)
	if err != nil {
		return fmt.Errorf("check qdrant collection: %w", err)
	}

	if exists {
		return nil
	}

	err = q.client.CreateCollection(ctx, &qdrant.CreateCollection{
		CollectionName: q.collection,
		VectorsConfig: qdrant.NewVectorsConfig(&qdrant.VectorParams{
			Size:     vectorSize,
			Distance: qdrant.Distance_Cosine,
		}),
	})
	if err != nil {
		return fmt.Errorf("create qdrant collection %q: %w", q.collection, err)
	}

	q.logger.Info().Str("collection", q.collection).Uint64("vector_size", vectorSize).Msg("created vector collection")

	return nil
}

func (q *qdrantIndex) Upsert(ctx context.Context, kind string, key string, vector []float32, payload map[string]any) error {
	_, err := q.client.Upsert(ctx, &qdrant.UpsertPoints{
		CollectionName: q.collection,
		Points: []*qdrant.PointStruct{
			{
				Id:      qdrant.NewIDUUID(PointID(key)),
				Vectors: qdrant.NewVectors(vector...),
				Payload: qdrant.NewValueMap(payload),
			},
		},
	})
	if err != nil {
		observability.VectorUpserts.WithLabelValues(kind, "error").Inc()

		return fmt.Errorf("qdrant upsert: %w", err)
	}

	observability.VectorUpserts.WithLabelValues(kind, "success").Inc()

	return nil
}

func (q *qdrantIndex) Close() error {
	return q.client.Close()
}
