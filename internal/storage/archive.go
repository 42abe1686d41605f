// Package storage archives original contract uploads in an S3-compatible bucket.
package storage

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/joseph-ayodele/contract-tracker/constants"
	"github.com/joseph-ayodele/contract-tracker/internal/common"
)

// Archive stores uploads under contracts/YYYY/MM/DD/.
type Archive struct {
	client *minio.Client
	bucket string
	expiry time.Duration
	logger *slog.Logger
	now    func() time.Time
}

// NewArchive builds the client; nothing is contacted until first use.
func NewArchive(cfg common.StorageConfig, logger *slog.Logger) (*Archive, error) {
	client, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create minio client: %w", err)
	}
	if logger == nil {
		logger = slog.Default()
	}
	days := cfg.ExpireDays
	if days <= 0 {
		days = 7
	}
	return &Archive{
		client: client,
		bucket: cfg.Bucket,
		expiry: time.Duration(days) * 24 * time.Hour,
		logger: logger,
		now:    time.Now,
	}, nil
}

// EnsureBucket creates the bucket if it doesn't exist
func (a *Archive) EnsureBucket(ctx context.Context) error {
	exists, err := a.client.BucketExists(ctx, a.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket: %w", err)
	}
	if !exists {
		if err := a.client.MakeBucket(ctx, a.bucket, minio.MakeBucketOptions{}); err != nil {
			return fmt.Errorf("failed to create bucket: %w", err)
		}
		a.logger.Info("storage.bucket_created", "bucket", a.bucket)
	}
	return nil
}

// ObjectKey places a stored file name under its upload date.
func ObjectKey(at time.Time, storedName string) string {
	return fmt.Sprintf("contracts/%s/%s", at.UTC().Format("2006/01/02"), filepath.Base(storedName))
}

// Store uploads the file at localPath and returns its key and a presigned
// download URL. originalName is kept as object metadata.
func (a *Archive) Store(ctx context.Context, localPath, originalName string) (string, string, error) {
	f, err := os.Open(localPath)
	if err != nil {
		return "", "", fmt.Errorf("open archive source: %w", err)
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return "", "", fmt.Errorf("stat archive source: %w", err)
	}

	key := ObjectKey(a.now(), localPath)
	_, err = a.client.PutObject(ctx, a.bucket, key, f, info.Size(), minio.PutObjectOptions{
		ContentType:  constants.MIMEType(filepath.Ext(localPath)),
		UserMetadata: map[string]string{"original-name": url.QueryEscape(originalName)},
	})
	if err != nil {
		return "", "", fmt.Errorf("failed to upload file: %w", err)
	}

	u, err := a.PresignedURL(ctx, key, originalName)
	if err != nil {
		return key, "", err
	}
	a.logger.Info("storage.archived", "key", key, "bytes", info.Size())
	return key, u, nil
}

// PresignedURL signs a GET for key. A non-empty downloadName sets the
// attachment file name.
func (a *Archive) PresignedURL(ctx context.Context, key, downloadName string) (string, error) {
	params := url.Values{}
	if downloadName != "" {
		params.Set("response-content-disposition", "attachment; filename*=UTF-8''"+url.PathEscape(downloadName))
	}
	u, err := a.client.PresignedGetObject(ctx, a.bucket, key, a.expiry, params)
	if err != nil {
		return "", fmt.Errorf("failed to generate presigned URL: %w", err)
	}
	return u.String(), nil
}

// Delete removes an archived object.
func (a *Archive) Delete(ctx context.Context, key string) error {
	if err := a.client.RemoveObject(ctx, a.bucket, key, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("failed to delete file: %w", err)
	}
	return nil
}
