// Package blob stores uploaded blueprints in S3-compatible object storage.
// The core pipeline receives bytes; only the orchestration layer touches
// the store.
package blob

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"heatload_backend/platform/apperr"
	"heatload_backend/platform/config"
)

// Store is a minio-backed blob store.
type Store struct {
	client *minio.Client
	bucket string
}

// New connects to MinIO and ensures the blueprints bucket exists.
func New(ctx context.Context, cfg config.MinIOConfig) (*Store, error) {
	client, err := minio.New(cfg.GetMinIOEndpoint(), &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.GetMinIOAccessKey(), cfg.GetMinIOSecretKey(), ""),
		Secure: cfg.GetMinIOUseSSL(),
	})
	if err != nil {
		return nil, fmt.Errorf("connect minio: %w", err)
	}

	bucket := cfg.GetMinioBucketBlueprints()
	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", bucket, err)
	}
	if !exists {
		if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", bucket, err)
		}
	}

	return &Store{client: client, bucket: bucket}, nil
}

// Put stores a blueprint under the given ref.
func (s *Store) Put(ctx context.Context, ref string, data []byte) error {
	_, err := s.client.PutObject(ctx, s.bucket, ref, bytes.NewReader(data), int64(len(data)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	if err != nil {
		return fmt.Errorf("store blob %s: %w", ref, err)
	}
	return nil
}

// Get fetches a blueprint by ref.
func (s *Store) Get(ctx context.Context, ref string) ([]byte, error) {
	obj, err := s.client.GetObject(ctx, s.bucket, ref, minio.GetObjectOptions{})
	if err != nil {
		return nil, fmt.Errorf("fetch blob %s: %w", ref, err)
	}
	defer obj.Close()

	data, err := io.ReadAll(obj)
	if err != nil {
		resp := minio.ToErrorResponse(err)
		if resp.Code == "NoSuchKey" {
			return nil, apperr.NotFound(fmt.Sprintf("blob %s not found", ref))
		}
		return nil, fmt.Errorf("read blob %s: %w", ref, err)
	}
	return data, nil
}
