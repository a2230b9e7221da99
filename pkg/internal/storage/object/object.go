// Package object 定义对象存储适配器的最小契约：写入、读取元数据、删除、按前缀分页列举、生成读取链接.
//
// 生产环境由 s3 包基于 MinIO 实现；本包自带的 MemoryStore 用于测试与本地开发.
package object

import (
	"context"
	"errors"
	"io"
	"time"
)

// ErrNotFound 对象不存在.
var ErrNotFound = errors.New("object not found")

// Info 对象元数据.
type Info struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Ref 写入成功后的对象引用.
type Ref struct {
	Path      string `json:"path"`
	SizeBytes int64  `json:"sizeBytes"`
	ETag      string `json:"etag,omitempty"`
}

// Page 一页列举结果；NextPageToken 为空表示已到末尾.
type Page struct {
	Items         []Info `json:"items"`
	NextPageToken string `json:"nextPageToken,omitempty"`
}

// Lister 分页列举对象.
type Lister interface {
	ListObjects(ctx context.Context, prefix, pageToken string, pageSize int) (Page, error)
}

// Store 上传/删除流水线依赖的对象存储能力.
type Store interface {
	Lister
	PutObject(ctx context.Context, path string, r io.Reader, size int64, contentType string) (Ref, error)
	StatObject(ctx context.Context, path string) (Info, error)
	RemoveObject(ctx context.Context, path string) error
	ReadURL(ctx context.Context, path string, expiry time.Duration) (string, error)
}
