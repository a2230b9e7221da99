package object

import (
	"bytes"
	"context"
	"crypto/md5" //nolint:gosec // 与 S3 ETag 语义一致
	"encoding/hex"
	"fmt"
	"io"
	"net/url"
	"sort"
	"strings"
	"sync"
	"time"
)

// MemoryStore 进程内对象存储，按键字典序列举，页令牌为上一页最后一个键.
type MemoryStore struct {
	mu      sync.RWMutex
	objects map[string][]byte
	baseURL string
}

// NewMemoryStore 创建内存对象存储；baseURL 用于拼接读取链接.
func NewMemoryStore(baseURL string) *MemoryStore {
	return &MemoryStore{objects: make(map[string][]byte), baseURL: strings.TrimRight(baseURL, "/")}
}

// PutObject 写入对象，size 为 -1 时读取到 EOF.
func (m *MemoryStore) PutObject(ctx context.Context, path string, r io.Reader, size int64, _ string) (Ref, error) {
	if path == "" {
		return Ref{}, fmt.Errorf("empty object path")
	}

	var buf bytes.Buffer

	var err error
	if size >= 0 {
		_, err = io.CopyN(&buf, r, size)
	} else {
		_, err = io.Copy(&buf, r)
	}

	if err != nil {
		return Ref{}, fmt.Errorf("failed to read object body: %w", err)
	}

	// 传输完成后再检查取消，模拟网络写入中途被取消的情况
	if err := ctx.Err(); err != nil {
		return Ref{}, err
	}

	data := buf.Bytes()
	sum := md5.Sum(data) //nolint:gosec

	m.mu.Lock()
	m.objects[path] = data
	m.mu.Unlock()

	return Ref{Path: path, SizeBytes: int64(len(data)), ETag: hex.EncodeToString(sum[:])}, nil
}

// StatObject 返回对象大小.
func (m *MemoryStore) StatObject(ctx context.Context, path string) (Info, error) {
	if err := ctx.Err(); err != nil {
		return Info{}, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()

	data, ok := m.objects[path]
	if !ok {
		return Info{}, fmt.Errorf("%w: %s", ErrNotFound, path)
	}

	return Info{Path: path, SizeBytes: int64(len(data))}, nil
}

// RemoveObject 删除对象，不存在时不报错（与 S3 语义一致）.
func (m *MemoryStore) RemoveObject(ctx context.Context, path string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	delete(m.objects, path)
	m.mu.Unlock()

	return nil
}

// ListObjects 按前缀分页列举.
func (m *MemoryStore) ListObjects(ctx context.Context, prefix, pageToken string, pageSize int) (Page, error) {
	if err := ctx.Err(); err != nil {
		return Page{}, err
	}

	if pageSize <= 0 {
		pageSize = 1000
	}

	m.mu.RLock()
	keys := make([]string, 0, len(m.objects))

	for k := range m.objects {
		if strings.HasPrefix(k, prefix) && k > pageToken {
			keys = append(keys, k)
		}
	}

	sort.Strings(keys)

	var page Page
	for i, k := range keys {
		if i == pageSize {
			page.NextPageToken = page.Items[len(page.Items)-1].Path

			break
		}

		page.Items = append(page.Items, Info{Path: k, SizeBytes: int64(len(m.objects[k]))})
	}
	m.mu.RUnlock()

	return page, nil
}

// ReadURL 返回带过期时间参数的伪链接.
func (m *MemoryStore) ReadURL(ctx context.Context, path string, expiry time.Duration) (string, error) {
	if _, err := m.StatObject(ctx, path); err != nil {
		return "", err
	}

	q := url.Values{}
	q.Set("expires", time.Now().Add(expiry).UTC().Format(time.RFC3339))

	return fmt.Sprintf("%s/%s?%s", m.baseURL, url.PathEscape(path), q.Encode()), nil
}

// Len 返回对象数量.
func (m *MemoryStore) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.objects)
}
