package s3

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tendant/clinic-content/internal/storage"
)

func TestNew_Configuration(t *testing.T) {
	ctx := context.Background()

	t.Run("EmptyBucket", func(t *testing.T) {
		_, err := New(ctx, Config{Region: "us-east-1"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "bucket name is required")
	})

	t.Run("KMSWithoutKey", func(t *testing.T) {
		_, err := New(ctx, Config{Bucket: "b", EnableSSE: true, SSEAlgorithm: "aws:kms"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "KMS key ID is required")
	})

	t.Run("Defaults", func(t *testing.T) {
		backend, err := New(ctx, Config{
			Bucket:          "test-bucket",
			AccessKeyID:     "test-key",
			SecretAccessKey: "test-secret",
			EnableSSE:       true,
		})
		require.NoError(t, err)
		assert.Equal(t, "us-east-1", backend.config.Region)
		assert.Equal(t, "AES256", backend.config.SSEAlgorithm)
		assert.Equal(t, "test-bucket", backend.bucket)
	})
}

func TestBackend_Integration(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}

	endpoint := os.Getenv("AWS_S3_ENDPOINT")
	accessKey := os.Getenv("AWS_ACCESS_KEY_ID")
	secretKey := os.Getenv("AWS_SECRET_ACCESS_KEY")
	bucket := os.Getenv("AWS_S3_BUCKET")

	if endpoint == "" || accessKey == "" || secretKey == "" || bucket == "" {
		t.Skip("Skipping integration test: S3/MinIO environment variables not set")
	}

	ctx := context.Background()
	backend, err := New(ctx, Config{
		Bucket:                 bucket,
		Region:                 "us-east-1",
		AccessKeyID:            accessKey,
		SecretAccessKey:        secretKey,
		Endpoint:               endpoint,
		UsePathStyle:           true,
		CreateBucketIfNotExist: true,
	})
	require.NoError(t, err)

	objectKey := fmt.Sprintf("test/integration/%d/cover.jpg", time.Now().UnixNano())
	data := []byte("not really a jpeg")

	require.NoError(t, backend.Upload(ctx, objectKey, bytes.NewReader(data), "image/jpeg"))

	reader, err := backend.Download(ctx, objectKey)
	require.NoError(t, err)
	got, err := io.ReadAll(reader)
	reader.Close()
	require.NoError(t, err)
	assert.Equal(t, data, got)

	require.NoError(t, backend.Delete(ctx, objectKey))

	_, err = backend.Download(ctx, objectKey)
	assert.ErrorIs(t, err, storage.ErrObjectNotFound)
}
