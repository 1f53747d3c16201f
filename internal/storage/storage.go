// Package storage keeps uploaded space pictures either on local disk or in a
// Google Cloud Storage bucket.
package storage

import (
	"context"
	"fmt"

	"arenapanel/internal/config"
	"arenapanel/internal/domain"

	"github.com/rs/zerolog"
)

// New builds the file store selected by cfg.Backend.
func New(ctx context.Context, cfg config.UploadsConfig, credentialsFile string, logger *zerolog.Logger) (domain.FileStore, error) {
	switch cfg.Backend {
	case "", "local":
		store, err := NewLocalStore(cfg.Dir, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("dir", cfg.Dir).Msg("using local upload storage")
		return store, nil
	case "gcs":
		store, err := NewGCSStore(ctx, credentialsFile, cfg.Bucket, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		logger.Info().Str("bucket", cfg.Bucket).Msg("using gcs upload storage")
		return store, nil
	default:
		return nil, fmt.Errorf("unknown upload backend %q", cfg.Backend)
	}
}

func joinURL(base, name string) string {
	for len(base) > 0 && base[len(base)-1] == '/' {
		base = base[:len(base)-1]
	}
	return base + "/" + name
}
