package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/vvka-141/parquet2pg/internal/config"
	"github.com/vvka-141/parquet2pg/pkg/parquet2pg"
)

// NewObjectStore builds the backend selected by cfg.Backend.
func NewObjectStore(ctx context.Context, cfg config.SourceConfig) (parquet2pg.ObjectStore, error) {
	switch strings.ToLower(cfg.Backend) {
	case config.BackendS3, "":
		client, err := NewS3Client(ctx, S3Options{
			Region:          cfg.Region,
			Endpoint:        cfg.Endpoint,
			UsePathStyle:    cfg.PathStyle,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
		})
		if err != nil {
			return nil, err
		}
		return NewS3Store(client, cfg.PageSize), nil
	case config.BackendMinIO:
		return NewMinIOStore(MinIOOptions{
			Endpoint:        cfg.Endpoint,
			Region:          cfg.Region,
			AccessKeyID:     cfg.AccessKeyID,
			SecretAccessKey: cfg.SecretAccessKey,
			PageSize:        int(cfg.PageSize),
		})
	case config.BackendLocal:
		return NewDirStore(cfg.Dir, int(cfg.PageSize)), nil
	default:
		return nil, fmt.Errorf("unknown storage backend %q: %w", cfg.Backend, parquet2pg.ErrInvalidConfig)
	}
}
