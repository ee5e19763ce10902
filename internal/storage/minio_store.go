package storage

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// MinIOConfig holds MinIO configuration
type MinIOConfig struct {
	Endpoint      string // host:port
	AccessKey     string
	SecretKey     string
	Bucket        string
	Region        string
	Secure        bool
	Prefix        string
	PublicBaseURL string // defaults to the endpoint
}

// MinIOStore writes reports to a MinIO bucket.
type MinIOStore struct {
	client  *minio.Client
	config  MinIOConfig
	baseURL string
	now     func() time.Time
}

// NewMinIOStore creates a new MinIO-backed store
func NewMinIOStore(cfg MinIOConfig) (*MinIOStore, error) {
	if cfg.Endpoint == "" {
		return nil, fmt.Errorf("endpoint is required")
	}
	if cfg.Bucket == "" {
		return nil, fmt.Errorf("bucket is required")
	}
	if cfg.AccessKey == "" || cfg.SecretKey == "" {
		return nil, fmt.Errorf("access key and secret key are required")
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.Secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client: %w", err)
	}

	base := cfg.PublicBaseURL
	if base == "" {
		scheme := "http"
		if cfg.Secure {
			scheme = "https"
		}
		base = scheme + "://" + cfg.Endpoint
	}

	return &MinIOStore{client: client, config: cfg, baseURL: base, now: time.Now}, nil
}

func (s *MinIOStore) Provider() string {
	return "minio"
}

// EnsureBucket creates the bucket when it does not exist yet.
func (s *MinIOStore) EnsureBucket(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	exists, err := s.client.BucketExists(ctx, s.config.Bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if exists {
		return nil
	}
	if err := s.client.MakeBucket(ctx, s.config.Bucket, minio.MakeBucketOptions{Region: s.config.Region}); err != nil {
		return fmt.Errorf("failed to create bucket: %w", err)
	}
	return nil
}

// UploadDocument stores an HTML document under a generated key.
func (s *MinIOStore) UploadDocument(ctx context.Context, data []byte, name string) (*UploadResult, error) {
	key := ObjectName(s.config.Prefix, name, s.now())

	info, err := s.client.PutObject(ctx, s.config.Bucket, key, bytes.NewReader(data), int64(len(data)), minio.PutObjectOptions{
		ContentType: HTMLContentType,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to put object: %w", err)
	}

	return &UploadResult{
		Key:  key,
		URL:  PublicURL(s.baseURL, s.config.Bucket, key),
		Size: info.Size,
		ETag: info.ETag,
	}, nil
}
