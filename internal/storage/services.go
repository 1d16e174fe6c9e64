package db

import (
	"context"
	"errors"
	"fmt"
	"os"
	"regexp"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/researchhub/research-hub/internal/core/domain"
	errs "github.com/researchhub/research-hub/internal/core/errors"
)

var baseURLPlaceholder = regexp.MustCompile(`\{\{(.*?)\}\}`)

// expandBaseURL replaces {{VAR}} placeholders in a stored base URL with the
// value of the environment variable VAR. Unknown placeholders are kept as-is.
func expandBaseURL(raw string) string {
	return baseURLPlaceholder.ReplaceAllStringFunc(raw, func(match string) string {
		name := baseURLPlaceholder.FindStringSubmatch(match)[1]
		if val, ok := os.LookupEnv(name); ok {
			return val
		}

		return match
	})
}

// GetServiceConfig loads one research service and its model catalog.
func (db *DB) GetServiceConfig(ctx context.Context, key string) (*domain.ServiceConfig, error) {
	var (
		cfg          domain.ServiceConfig
		defaultModel pgtype.Text
	)

	err := db.Pool.QueryRow(ctx, `
		SELECT service_key, base_url, default_model, default_params
		FROM research_services
		WHERE service_key = $1 AND enabled
	`, key).Scan(&cfg.Key, &cfg.BaseURL, &defaultModel, &cfg.DefaultParams)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, errs.ErrUnsupportedService
		}

		return nil, fmt.Errorf("get service config: %w", err)
	}

	cfg.BaseURL = expandBaseURL(cfg.BaseURL)
	cfg.DefaultModel = fromText(defaultModel)

	models, err := db.getServiceModels(ctx, key)
	if err != nil {
		return nil, err
	}

	cfg.Models = models

	return &cfg, nil
}

func (db *DB) getServiceModels(ctx context.Context, key string) (map[string]map[string]any, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT model_key, default_params
		FROM service_models
		WHERE service_key = $1
	`, key)
	if err != nil {
		return nil, fmt.Errorf("get service models: %w", err)
	}
	defer rows.Close()

	models := map[string]map[string]any{}

	for rows.Next() {
		var (
			modelKey string
			params   map[string]any
		)

		if err := rows.Scan(&modelKey, &params); err != nil {
			return nil, fmt.Errorf("scan service model: %w", err)
		}

		models[modelKey] = params
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate service models: %w", rows.Err())
	}

	return models, nil
}

// ListServiceKeys returns the keys of all enabled research services.
func (db *DB) ListServiceKeys(ctx context.Context) ([]string, error) {
	rows, err := db.Pool.Query(ctx, `
		SELECT service_key
		FROM research_services
		WHERE enabled
		ORDER BY service_key
	`)
	if err != nil {
		return nil, fmt.Errorf("list service keys: %w", err)
	}
	defer rows.Close()

	keys := []string{}

	for rows.Next() {
		var key string

		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan service key: %w", err)
		}

		keys = append(keys, key)
	}

	if rows.Err() != nil {
		return nil, fmt.Errorf("iterate service keys: %w", rows.Err())
	}

	return keys, nil
}
