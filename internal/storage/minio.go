package storage

import (
	"context"
	"fmt"
	"time"

	"docrepo/internal/config"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
)

const bucketSetupTimeout = 5 * time.Second

// NewMinIOClient connects to the object store holding document content.
func NewMinIOClient(cfg config.MinIOConfig) (*minio.Client, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	return client, nil
}

// EnsureBucket creates the documents bucket on first boot. Several API
// instances may start against the same store at once, so losing the
// creation race to another instance is treated as success.
func EnsureBucket(ctx context.Context, client *minio.Client, bucket, region string) error {
	ctx, cancel := context.WithTimeout(ctx, bucketSetupTimeout)
	defer cancel()

	exists, err := client.BucketExists(ctx, bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", bucket, err)
	}
	if exists {
		return nil
	}

	if err := client.MakeBucket(ctx, bucket, minio.MakeBucketOptions{Region: region}); err != nil {
		if exists, checkErr := client.BucketExists(ctx, bucket); checkErr == nil && exists {
			return nil
		}
		return fmt.Errorf("create bucket %q: %w", bucket, err)
	}

	return nil
}
