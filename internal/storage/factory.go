package storage

import (
	"context"
	"fmt"

	"github.com/spf13/afero"
)

func NewBackend(ctx context.Context, fs afero.Fs, config *Config) (Backend, error) {
	switch config.Type {
	case "local":
		if config.Local == nil {
			return nil, fmt.Errorf("local configuration is required")
		}
		return NewLocalStorage(fs, config.Local)

	case "gcs":
		if config.GCS == nil {
			return nil, fmt.Errorf("GCS configuration is required")
		}
		return NewGCSStorage(ctx, config.GCS)

	case "s3":
		if config.S3 == nil {
			return nil, fmt.Errorf("S3 configuration is required")
		}
		return NewS3Storage(ctx, fs, config.S3)

	case "":
		return nil, fmt.Errorf("no archive storage configured, set storage.type to local, s3 or gcs")

	default:
		return nil, fmt.Errorf("unsupported storage type: %s", config.Type)
	}
}
