package store

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewS3RequiresCredentials(t *testing.T) {
	t.Setenv(EnvS3AccessKey, "")
	t.Setenv(EnvS3SecretKey, "")

	_, err := NewS3(S3Config{Endpoint: "s3.amazonaws.com", Bucket: "iroh-artifacts"})
	require.ErrorIs(t, err, ErrCredentials)
}

func TestNewS3RequiresLocation(t *testing.T) {
	t.Setenv(EnvS3AccessKey, "key")
	t.Setenv(EnvS3SecretKey, "secret")

	_, err := NewS3(S3Config{Bucket: "iroh-artifacts"})
	require.Error(t, err)
	_, err = NewS3(S3Config{Endpoint: "s3.amazonaws.com"})
	require.Error(t, err)
}

func TestNewS3WithCredentials(t *testing.T) {
	t.Setenv(EnvS3AccessKey, "key")
	t.Setenv(EnvS3SecretKey, "secret")

	s, err := NewS3(S3Config{Endpoint: "s3.amazonaws.com", Bucket: "iroh-artifacts"})
	require.NoError(t, err)
	require.NotNil(t, s)
}
