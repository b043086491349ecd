package storage

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/ohs25-2-misoten/agaru-up-api/internal/config"
)

// part size for streams of unknown length; without it minio-go sizes the
// buffer for a 5 TiB object
const unknownSizePartSize = 16 << 20

// MinioStore talks to any S3 compatible endpoint (R2, MinIO) through
// minio-go.
type MinioStore struct {
	client  *minio.Client
	bucket  string
	baseURL string
}

// NewMinioStore creates the client and, when configured, the bucket.
func NewMinioStore(ctx context.Context, cfg config.StorageConfig) (*MinioStore, error) {
	host, secure := cfg.EndpointHost()
	if host == "" {
		return nil, errors.New("storage endpoint is required")
	}

	client, err := minio.New(host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	if cfg.CreateBucket {
		exists, err := client.BucketExists(ctx, cfg.Bucket)
		if err != nil {
			return nil, fmt.Errorf("check bucket: %w", err)
		}
		if !exists {
			if err := client.MakeBucket(ctx, cfg.Bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
				return nil, fmt.Errorf("create bucket: %w", err)
			}
		}
	}

	return &MinioStore{
		client:  client,
		bucket:  cfg.Bucket,
		baseURL: cfg.PublicBaseURL(),
	}, nil
}

// Upload streams r into the bucket.
func (s *MinioStore) Upload(ctx context.Context, key string, r io.Reader, size int64, contentType string) error {
	_, err := s.client.PutObject(ctx, s.bucket, key, r, size, putObjectOptions(size, contentType))
	if err != nil {
		return fmt.Errorf("put object %s: %w", key, err)
	}
	return nil
}

func putObjectOptions(size int64, contentType string) minio.PutObjectOptions {
	opts := minio.PutObjectOptions{ContentType: contentType}
	if size < 0 {
		opts.PartSize = unknownSizePartSize
	}
	return opts
}

// BaseURL implements ObjectStore.
func (s *MinioStore) BaseURL() string {
	return s.baseURL
}

// Ping checks that the bucket is reachable.
func (s *MinioStore) Ping(ctx context.Context) error {
	exists, err := s.client.BucketExists(ctx, s.bucket)
	if err != nil {
		return err
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", s.bucket)
	}
	return nil
}
