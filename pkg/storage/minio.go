package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"go.uber.org/zap"

	"github.com/oumizumi/Kairo-sub002/config"
)

// ErrObjectNotFound the bucket has no object under that key
var ErrObjectNotFound = errors.New("object not found")

// Client is a thin bucket-scoped MinIO client. Curricula and scraped term
// data are published to the bucket by the catalogue scraper.
type Client struct {
	mc     *minio.Client
	bucket string
	logger *zap.Logger
}

// NewClient connects to the object store and checks the bucket exists.
func NewClient(ctx context.Context, cfg *config.StorageConfig, logger *zap.Logger) (*Client, error) {
	mc, err := minio.New(cfg.Endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKey, cfg.SecretKey, ""),
		Secure: cfg.UseSSL,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	exists, err := mc.BucketExists(ctx, cfg.Bucket)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.Bucket, err)
	}
	if !exists {
		return nil, fmt.Errorf("bucket %s does not exist", cfg.Bucket)
	}

	logger.Info("object storage connected",
		zap.String("endpoint", cfg.Endpoint),
		zap.String("bucket", cfg.Bucket),
	)

	return &Client{mc: mc, bucket: cfg.Bucket, logger: logger}, nil
}

// Get reads a whole object and returns it with its ETag.
func (c *Client) Get(ctx context.Context, key string) ([]byte, string, error) {
	obj, err := c.mc.GetObject(ctx, c.bucket, key, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", translate(err)
	}
	defer obj.Close()

	info, err := obj.Stat()
	if err != nil {
		return nil, "", translate(err)
	}

	body, err := io.ReadAll(obj)
	if err != nil {
		return nil, "", fmt.Errorf("read object %s: %w", key, err)
	}
	return body, info.ETag, nil
}

// ETag returns the current version tag of an object without downloading it.
func (c *Client) ETag(ctx context.Context, key string) (string, error) {
	info, err := c.mc.StatObject(ctx, c.bucket, key, minio.StatObjectOptions{})
	if err != nil {
		return "", translate(err)
	}
	return info.ETag, nil
}

// List returns object keys under prefix.
func (c *Client) List(ctx context.Context, prefix string) ([]string, error) {
	var keys []string
	for obj := range c.mc.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{Prefix: prefix, Recursive: true}) {
		if obj.Err != nil {
			return nil, obj.Err
		}
		keys = append(keys, obj.Key)
	}
	return keys, nil
}

func translate(err error) error {
	resp := minio.ToErrorResponse(err)
	if resp.StatusCode == http.StatusNotFound || resp.Code == "NoSuchKey" {
		return ErrObjectNotFound
	}
	return err
}
