package middleware

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/gin-gonic/gin"

	appcache "github.com/yeisme/studiovault/pkg/cache"
	"github.com/yeisme/studiovault/pkg/log"
)

const (
	DefaultMaxBodyBytes = 1 << 20 // 1MB
	defaultBypassHeader = "X-Cache-Bypass"
	purgeTimeout        = 2 * time.Second
)

// CacheConfig 响应缓存配置.
type CacheConfig struct {
	Cache *appcache.Cache // 必须，建议使用独立前缀以便 Purge 只清理响应缓存
	TTL   time.Duration

	KeyFunc      func(*gin.Context) string // 默认: 方法 + 路由 + 排序后的 query
	Skipper      func(*gin.Context) bool   // 返回 true 跳过缓存
	BypassHeader string                    // 请求带该头时跳过缓存
	MaxBodyBytes int                       // 超过该大小的响应不缓存，0 表示不限制
}

// responseCacheEntry 序列化存储结构.
type responseCacheEntry struct {
	Status      int    `json:"s"`
	ContentType string `json:"c,omitempty"`
	Body        []byte `json:"b,omitempty"`
	ETag        string `json:"e"`
	StoredAt    int64  `json:"t"`
}

// CacheMiddleware 缓存 GET/HEAD 的 200 响应，支持 ETag / If-None-Match.
// 命中时设置 X-Cache: HIT 与 Age；缓存读写失败只降级为直接处理请求.
//
//	c := cache.NewCache(kvClient, cache.WithPrefix("rc:"))
//	g.GET("/storage/status", middleware.CacheMiddleware(middleware.CacheConfig{Cache: c, TTL: 5 * time.Second}), handle.StorageStatus)
func CacheMiddleware(cfg CacheConfig) gin.HandlerFunc {
	if cfg.Cache == nil {
		panic("CacheMiddleware: Cache cannot be nil")
	}

	if cfg.KeyFunc == nil {
		cfg.KeyFunc = defaultCacheKey
	}

	if cfg.BypassHeader == "" {
		cfg.BypassHeader = defaultBypassHeader
	}

	return func(c *gin.Context) {
		if cfg.TTL <= 0 || !cacheable(c, cfg) {
			c.Next()
			return
		}

		key := cfg.KeyFunc(c)
		if entry, err := appcache.Get[responseCacheEntry](c.Request.Context(), cfg.Cache, key); err == nil {
			serveEntry(c, entry)
			return
		}

		bw := &bodyCaptureWriter{ResponseWriter: c.Writer, max: cfg.MaxBodyBytes}
		c.Writer = bw
		c.Next()

		if c.Writer.Status() != http.StatusOK || bw.truncated {
			return
		}

		body := bytes.Clone(bw.buf.Bytes())
		entry := responseCacheEntry{
			Status:      http.StatusOK,
			ContentType: c.Writer.Header().Get("Content-Type"),
			Body:        body,
			ETag:        fmt.Sprintf("%q", strconv.FormatUint(xxhash.Sum64(body), 16)),
			StoredAt:    time.Now().UnixNano(),
		}

		if err := appcache.Set(c.Request.Context(), cfg.Cache, key, entry, cfg.TTL); err != nil {
			log.Logger().Debug().Err(err).Str("key", key).Msg("response cache store failed")
		}
	}
}

// PurgeCacheMiddleware 在写操作成功（非 4xx/5xx）后清空响应缓存.
func PurgeCacheMiddleware(c *appcache.Cache) gin.HandlerFunc {
	return func(ctx *gin.Context) {
		ctx.Next()

		if c == nil || ctx.Writer.Status() >= http.StatusBadRequest {
			return
		}

		pctx, cancel := context.WithTimeout(context.WithoutCancel(ctx.Request.Context()), purgeTimeout)
		defer cancel()

		if _, err := c.Clear(pctx); err != nil {
			log.Logger().Warn().Err(err).Msg("response cache purge failed")
		}
	}
}

func cacheable(c *gin.Context, cfg CacheConfig) bool {
	if c.Request.Method != http.MethodGet && c.Request.Method != http.MethodHead {
		return false
	}

	if cfg.Skipper != nil && cfg.Skipper(c) {
		return false
	}

	return c.GetHeader(cfg.BypassHeader) == ""
}

func serveEntry(c *gin.Context, entry responseCacheEntry) {
	h := c.Writer.Header()
	h.Set("ETag", entry.ETag)
	h.Set("Age", strconv.FormatInt(int64(time.Since(time.Unix(0, entry.StoredAt)).Seconds()), 10))
	h.Set("X-Cache", "HIT")

	if c.GetHeader("If-None-Match") == entry.ETag {
		c.AbortWithStatus(http.StatusNotModified)
		return
	}

	if entry.ContentType != "" {
		h.Set("Content-Type", entry.ContentType)
	}

	c.Status(entry.Status)

	if c.Request.Method != http.MethodHead {
		_, _ = c.Writer.Write(entry.Body)
	}

	c.Abort()
}

// defaultCacheKey 方法 + 路由 + 排序 query，经 xxhash 压缩.
func defaultCacheKey(c *gin.Context) string {
	var b strings.Builder

	b.WriteString(c.Request.Method)
	b.WriteByte(':')

	route := c.FullPath()
	if route == "" {
		route = c.Request.URL.Path
	}

	b.WriteString(route)

	if q := c.Request.URL.Query(); len(q) > 0 {
		keys := make([]string, 0, len(q))
		for k := range q {
			keys = append(keys, k)
		}

		sort.Strings(keys)

		for i, k := range keys {
			if i == 0 {
				b.WriteByte('?')
			} else {
				b.WriteByte('&')
			}

			b.WriteString(k)
			b.WriteByte('=')
			b.WriteString(strings.Join(q[k], ","))
		}
	}

	return strconv.FormatUint(xxhash.Sum64String(b.String()), 16)
}

// bodyCaptureWriter 同时写出并捕获响应体.
type bodyCaptureWriter struct {
	gin.ResponseWriter

	buf       bytes.Buffer
	max       int
	truncated bool
}

func (w *bodyCaptureWriter) Write(b []byte) (int, error) {
	if !w.truncated {
		if w.max > 0 && w.buf.Len()+len(b) > w.max {
			w.truncated = true
		} else {
			w.buf.Write(b)
		}
	}

	return w.ResponseWriter.Write(b)
}

func (w *bodyCaptureWriter) WriteString(s string) (int, error) {
	return w.Write([]byte(s))
}
