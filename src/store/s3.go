package store

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

// Credential environment variables, injected by the release environment.
const (
	EnvS3AccessKey = "S3_ACCESS_KEY_ID"
	EnvS3SecretKey = "S3_SECRET_KEY"
)

// S3 fetches release binaries from an S3-compatible object store.
type S3 struct {
	client *minio.Client
	bucket string
}

// S3Config locates the bucket. Credentials are not part of the config; they
// come from the environment at runtime.
type S3Config struct {
	Endpoint string
	Bucket   string
	// Insecure disables TLS, for test deployments only.
	Insecure bool
}

// NewS3 builds a store client from config and the credential environment.
// Missing credentials fail here, before any fetch is attempted.
func NewS3(cfg S3Config) (*S3, error) {
	if cfg.Endpoint == "" || cfg.Bucket == "" {
		return nil, errors.New("store: s3 endpoint and bucket are required")
	}
	accessKey := os.Getenv(EnvS3AccessKey)
	secretKey := os.Getenv(EnvS3SecretKey)
	if accessKey == "" || secretKey == "" {
		return nil, fmt.Errorf("%w: %s and %s must be set", ErrCredentials, EnvS3AccessKey, EnvS3SecretKey)
	}

	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(accessKey, secretKey, ""),
		Secure: !cfg.Insecure,
	})
	if err != nil {
		return nil, err
	}
	return &S3{client: client, bucket: cfg.Bucket}, nil
}

func (s *S3) Fetch(ctx context.Context, key string) (io.ReadCloser, error) {
	// Stat first so a bad key or bad credentials fail loudly here instead of
	// on the first read of the object body.
	if _, err := s.client.StatObject(ctx, s.bucket, key, minio.StatObjectOptions{}); err != nil {
		return nil, s.classify(key, err)
	}
	obj, err := s.client.GetObject(ctx, s.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, s.classify(key, err)
	}
	return obj, nil
}

func (s *S3) classify(key string, err error) error {
	resp := minio.ToErrorResponse(err)
	switch resp.Code {
	case "NoSuchKey", "NoSuchBucket":
		return fmt.Errorf("%w: %s", ErrArtifactMissing, key)
	case "AccessDenied", "InvalidAccessKeyId", "SignatureDoesNotMatch":
		return fmt.Errorf("%w: %s", ErrCredentials, resp.Code)
	}
	return fmt.Errorf("store: fetch %s: %w", key, err)
}
