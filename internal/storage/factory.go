package storage

import (
	"context"
	"fmt"

	"github.com/oleg-kozlyuk-grafana/go-understory/internal/config"
)

// NewFromConfig builds the storage backend selected by the configuration.
func NewFromConfig(ctx context.Context, cfg *config.CoverageConfig) (Storage, error) {
	switch cfg.Backend {
	case config.BackendGCS:
		return NewGCSStorage(ctx, cfg.Bucket)
	case config.BackendS3, "":
		return NewS3Storage(S3Config{
			Endpoint: cfg.Endpoint,
			Region:   cfg.Region,
			UseSSL:   cfg.UseSSL,
			Bucket:   cfg.Bucket,
		})
	default:
		return nil, fmt.Errorf("unsupported storage backend: %s", cfg.Backend)
	}
}
