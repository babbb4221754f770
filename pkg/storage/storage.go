package storage

import (
	"context"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/rs/zerolog"
)

// Client wraps the MinIO client with the few operations the pipeline
// needs: upload, download (avatar templates), presign and delete.
type Client struct {
	client *minio.Client
	bucket string
}

func New(client *minio.Client, bucket string) *Client {
	return &Client{client: client, bucket: bucket}
}

func (c *Client) Upload(ctx context.Context, localPath, key string) (string, error) {
	_, err := c.client.FPutObject(ctx, c.bucket, key, localPath, minio.PutObjectOptions{})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to upload object")
		return "", err
	}
	return key, nil
}

func (c *Client) Download(ctx context.Context, key, localPath string) error {
	err := c.client.FGetObject(ctx, c.bucket, key, localPath, minio.GetObjectOptions{})
	if err != nil {
		zerolog.Ctx(ctx).Error().Err(err).Str("key", key).Msg("failed to download object")
	}
	return err
}

func (c *Client) SignURL(ctx context.Context, key string, ttl time.Duration) (string, error) {
	u, err := c.client.PresignedGetObject(ctx, c.bucket, key, ttl, nil)
	if err != nil {
		return "", err
	}
	return u.String(), nil
}

func (c *Client) Delete(ctx context.Context, key string) error {
	return c.client.RemoveObject(ctx, c.bucket, key, minio.RemoveObjectOptions{})
}
