// Package s3 基于 MinIO 客户端实现对象存储，供媒体上传与账本对账使用.
package s3

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"time"

	minio "github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	nlog "github.com/yeisme/studiovault/pkg/log"
)

// Client 包装 MinIO 客户端，所有操作都落在同一个 bucket.
type Client struct {
	*minio.Client
	bucket string
}

var _ object.Store = (*Client)(nil)

// New 初始化 MinIO 客户端；开启 AutoCreateBucket 时若 bucket 不存在则创建.
func New(ctx context.Context, cfg *configs.S3Config) (*Client, error) {
	endpoint := cfg.Endpoint
	secure := cfg.UseSSL
	// 允许用户传完整 schema endpoint（http:// 或 https://）
	if u, err := url.Parse(endpoint); err == nil && u.Host != "" {
		endpoint = u.Host
		if u.Scheme == "https" {
			secure = true
		}
	}

	cli, err := minio.New(endpoint, &minio.Options{
		Creds:  credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure: secure,
		Region: cfg.Region,
	})
	if err != nil {
		return nil, fmt.Errorf("create minio client: %w", err)
	}

	cli.SetAppInfo("studiovault", configs.AppVersion)

	exists, err := cli.BucketExists(ctx, cfg.BucketName)
	if err != nil {
		return nil, fmt.Errorf("check bucket %s: %w", cfg.BucketName, err)
	}

	if !exists {
		if !cfg.AutoCreateBucket {
			return nil, fmt.Errorf("bucket %s does not exist", cfg.BucketName)
		}

		if err := cli.MakeBucket(ctx, cfg.BucketName, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
			return nil, fmt.Errorf("create bucket %s: %w", cfg.BucketName, err)
		}

		nlog.Logger().Info().Str("bucket", cfg.BucketName).Msg("bucket created")
	}

	nlog.Logger().Info().Str("endpoint", cfg.Endpoint).Str("bucket", cfg.BucketName).Msg("s3 connected")

	return &Client{Client: cli, bucket: cfg.BucketName}, nil
}

// Bucket 返回当前使用的 bucket.
func (c *Client) Bucket() string {
	return c.bucket
}

// PutObject 上传对象，size 未知时传 -1.
func (c *Client) PutObject(ctx context.Context, path string, r io.Reader, size int64, contentType string) (object.Ref, error) {
	info, err := c.Client.PutObject(ctx, c.bucket, path, r, size, minio.PutObjectOptions{ContentType: contentType})
	if err != nil {
		return object.Ref{}, fmt.Errorf("put object %s: %w", path, err)
	}

	return object.Ref{Path: path, SizeBytes: info.Size, ETag: info.ETag}, nil
}

func (c *Client) StatObject(ctx context.Context, path string) (object.Info, error) {
	info, err := c.Client.StatObject(ctx, c.bucket, path, minio.StatObjectOptions{})
	if err != nil {
		if isNotFound(err) {
			return object.Info{}, fmt.Errorf("%w: %s", object.ErrNotFound, path)
		}

		return object.Info{}, fmt.Errorf("stat object %s: %w", path, err)
	}

	return object.Info{Path: info.Key, SizeBytes: info.Size}, nil
}

// RemoveObject 删除对象；S3 对不存在的键同样返回成功.
func (c *Client) RemoveObject(ctx context.Context, path string) error {
	if err := c.Client.RemoveObject(ctx, c.bucket, path, minio.RemoveObjectOptions{}); err != nil {
		return fmt.Errorf("remove object %s: %w", path, err)
	}

	return nil
}

// ListObjects 从 pageToken（上一页最后一个键）之后列出至多 pageSize 个对象.
// 满页时 NextPageToken 为本页最后一个键，否则为空.
func (c *Client) ListObjects(ctx context.Context, prefix, pageToken string, pageSize int) (object.Page, error) {
	if pageSize <= 0 {
		pageSize = 1000
	}

	// 满页后取消，让 minio 停止后续的 ListObjectsV2 请求
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	ch := c.Client.ListObjects(ctx, c.bucket, minio.ListObjectsOptions{
		Prefix:     prefix,
		Recursive:  true,
		StartAfter: pageToken,
		MaxKeys:    pageSize,
	})

	page := object.Page{Items: make([]object.Info, 0, pageSize)}

	for obj := range ch {
		if obj.Err != nil {
			return object.Page{}, fmt.Errorf("list objects: %w", obj.Err)
		}

		page.Items = append(page.Items, object.Info{Path: obj.Key, SizeBytes: obj.Size})
		if len(page.Items) == pageSize {
			page.NextPageToken = obj.Key

			cancel()

			break
		}
	}

	// 排空通道，避免列举协程阻塞
	for range ch { //nolint:revive
	}

	return page, nil
}

// ReadURL 生成预签名的 GET 链接.
func (c *Client) ReadURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	u, err := c.PresignedGetObject(ctx, c.bucket, path, expiry, nil)
	if err != nil {
		return "", fmt.Errorf("presign object %s: %w", path, err)
	}

	return u.String(), nil
}

// HealthCheck 检查 bucket 是否可访问.
func (c *Client) HealthCheck(ctx context.Context) error {
	_, err := c.BucketExists(ctx, c.bucket)

	return err
}

// Close 关闭 S3 客户端连接（无实际操作，接口兼容）.
func (c *Client) Close() error {
	return nil
}

func isNotFound(err error) bool {
	resp := minio.ToErrorResponse(err)

	return resp.Code == minio.NoSuchKey || resp.StatusCode == 404
}
