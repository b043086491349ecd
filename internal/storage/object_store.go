package storage

import (
	"context"
	"fmt"
	"io"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
)

// ObjectStore stores uploaded video files.
type ObjectStore interface {
	// Upload writes size bytes from r under key. size is -1 when unknown.
	Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error
	// BaseURL is the public prefix of every stored object.
	BaseURL() string
	Ping(ctx context.Context) error
}

// NewObjectStore creates the store for the configured backend.
func NewObjectStore(ctx context.Context, cfg config.StorageConfig) (ObjectStore, error) {
	switch cfg.Backend {
	case config.BackendMinio:
		return NewMinioStore(ctx, cfg)
	case config.BackendS3:
		return NewS3Store(ctx, cfg)
	default:
		return nil, fmt.Errorf("unsupported storage backend %q", cfg.Backend)
	}
}
