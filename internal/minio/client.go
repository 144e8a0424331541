// Package minio mirrors job snapshots to and from MinIO object storage so
// download and ingest runs can happen on different hosts.
package minio

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"os"
	"path/filepath"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/rossigee/job-search-server/internal/config"
	"github.com/sirupsen/logrus"
)

// snapshotContentType is the content type of uploaded snapshots
const snapshotContentType = "application/json; charset=utf-8"

// objectStore is the subset of the MinIO API used for snapshots
type objectStore interface {
	FPutObject(ctx context.Context, bucketName, objectName, filePath string, opts minio.PutObjectOptions) (minio.UploadInfo, error)
	GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error)
	BucketExists(ctx context.Context, bucketName string) (bool, error)
}

// minioStore adapts *minio.Client to objectStore
type minioStore struct {
	*minio.Client
}

func (s minioStore) GetObject(ctx context.Context, bucketName, objectName string) (io.ReadCloser, error) {
	return s.Client.GetObject(ctx, bucketName, objectName, minio.GetObjectOptions{})
}

// Client handles snapshot transfers to MinIO.
type Client struct {
	store  objectStore
	bucket string
	object string
}

// NewClient creates a new MinIO client from the snapshot mirror configuration.
func NewClient(cfg config.MinIOConfig) (*Client, error) {
	logrus.WithFields(logrus.Fields{
		"endpoint":        cfg.Endpoint,
		"bucket":          cfg.Bucket,
		"accessKey_found": cfg.AccessKey != "",
		"secretKey_found": cfg.SecretKey != "",
	}).Debug("MinIO snapshot mirror configuration")

	if cfg.AccessKey == "" {
		return nil, fmt.Errorf(
			"MINIO_ACCESS_KEY or MINIO_ACCESS_KEY_ID environment variable is required")
	}

	if cfg.SecretKey == "" {
		return nil, fmt.Errorf(
			"MINIO_SECRET_KEY or MINIO_SECRET_ACCESS_KEY environment variable is required")
	}

	if cfg.Bucket == "" {
		return nil, fmt.Errorf("SNAPSHOT_BUCKET environment variable is required")
	}

	// Parse endpoint URL
	u, err := url.Parse(cfg.Endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT '%s': %w (expected format: https://hostname:port)", cfg.Endpoint, err)
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT scheme '%s': must be http or https", u.Scheme)
	}

	if u.Host == "" {
		return nil, fmt.Errorf("invalid MINIO_ENDPOINT '%s': missing hostname", cfg.Endpoint)
	}

	minioClient, err := minio.New(u.Host, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: u.Scheme == "https",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create MinIO client for %s: %w", u.Host, err)
	}

	return &Client{
		store:  minioStore{Client: minioClient},
		bucket: cfg.Bucket,
		object: cfg.Object,
	}, nil
}

// ObjectURL returns the location snapshots are mirrored to
func (c *Client) ObjectURL() string {
	return fmt.Sprintf("s3://%s/%s", c.bucket, c.object)
}

// UploadSnapshot copies the local snapshot file to the configured object
func (c *Client) UploadSnapshot(ctx context.Context, localPath string) error {
	exists, err := c.store.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("failed to check bucket %s: %w", c.bucket, err)
	}
	if !exists {
		return fmt.Errorf("bucket %s does not exist", c.bucket)
	}

	info, err := c.store.FPutObject(ctx, c.bucket, c.object, localPath, minio.PutObjectOptions{
		ContentType: snapshotContentType,
	})
	if err != nil {
		return fmt.Errorf("failed to upload snapshot: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"object": c.ObjectURL(),
		"bytes":  info.Size,
	}).Info("Uploaded job snapshot")
	return nil
}

// DownloadSnapshot copies the configured object to localPath
func (c *Client) DownloadSnapshot(ctx context.Context, localPath string) error {
	object, err := c.store.GetObject(ctx, c.bucket, c.object)
	if err != nil {
		return fmt.Errorf("failed to get object: %w", err)
	}
	defer func() {
		_ = object.Close() // Close errors are not critical
	}()

	tempFile, err := os.CreateTemp(filepath.Dir(localPath), ".snapshot-download-*")
	if err != nil {
		return fmt.Errorf("failed to create temp file: %w", err)
	}
	tempPath := tempFile.Name()

	written, err := io.Copy(tempFile, object)
	if closeErr := tempFile.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		_ = os.Remove(tempPath) // Cleanup errors are not critical
		if minio.ToErrorResponse(err).Code == "NoSuchKey" {
			return fmt.Errorf("snapshot %s not found in object storage", c.ObjectURL())
		}
		return fmt.Errorf("failed to read from MinIO: %w", err)
	}

	if err := os.Rename(tempPath, localPath); err != nil {
		_ = os.Remove(tempPath) // Cleanup errors are not critical
		return fmt.Errorf("failed to move snapshot into place: %w", err)
	}

	logrus.WithFields(logrus.Fields{
		"object": c.ObjectURL(),
		"path":   localPath,
		"bytes":  written,
	}).Info("Downloaded job snapshot")
	return nil
}
