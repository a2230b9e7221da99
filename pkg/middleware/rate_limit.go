package middleware

import (
	"net"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"golang.org/x/time/rate"

	"github.com/yeisme/studiovault/pkg/configs"
)

const (
	limiterIdleTTL         = 10 * time.Minute
	limiterCleanupInterval = time.Minute
)

// RateLimitMiddleware 请求频率限制，维度由 rate_limit.key 决定: global、ip、user 或 header:<Name>.
// 这是 HTTP 层的突发保护，与账本的每日上传次数配额互不相关.
func RateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return newRateLimiter(cfg.RPS, cfg.Burst, cfg.Key)
}

// UploadRateLimitMiddleware 上传路由的额外限流，按 rate_limit.key 的维度单独计数.
func UploadRateLimitMiddleware(cfg configs.RateLimitConfig) gin.HandlerFunc {
	if !cfg.Enabled {
		return passThrough
	}

	return newRateLimiter(cfg.Upload.RPS, cfg.Upload.Burst, cfg.Key)
}

func passThrough(c *gin.Context) { c.Next() }

func newRateLimiter(rps float64, burst int, key string) gin.HandlerFunc {
	if rps <= 0 {
		return passThrough
	}

	if burst <= 0 {
		burst = 1
	}

	keyMode := strings.ToLower(strings.TrimSpace(key))
	if keyMode == configs.RateLimitKeyGlobal || keyMode == "" {
		limiter := rate.NewLimiter(rate.Limit(rps), burst)

		return func(c *gin.Context) {
			if !limiter.Allow() {
				abortRateLimited(c)
				return
			}

			c.Next()
		}
	}

	pool := newLimiterPool(rate.Limit(rps), burst)
	go pool.cleanupLoop()

	header, byHeader := strings.CutPrefix(keyMode, "header:")

	return func(c *gin.Context) {
		k := clientIP(c)

		switch {
		case byHeader:
			if v := c.GetHeader(header); v != "" {
				k = v
			}
		case keyMode == configs.RateLimitKeyUser:
			if u := c.GetString("user"); u != "" {
				k = "user:" + u
			}
		}

		if !pool.get(k).Allow() {
			abortRateLimited(c)
			return
		}

		c.Next()
	}
}

func abortRateLimited(c *gin.Context) {
	c.Header("Retry-After", "1")
	c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded, please try again later"})
}

type limiterEntry struct {
	limiter  *rate.Limiter
	lastSeen time.Time
}

// limiterPool 按 key 维护 limiter，闲置超过 limiterIdleTTL 的条目被回收.
type limiterPool struct {
	mu      sync.Mutex
	entries map[string]*limiterEntry
	limit   rate.Limit
	burst   int
}

func newLimiterPool(limit rate.Limit, burst int) *limiterPool {
	return &limiterPool{entries: make(map[string]*limiterEntry), limit: limit, burst: burst}
}

func (p *limiterPool) get(key string) *rate.Limiter {
	p.mu.Lock()
	defer p.mu.Unlock()

	e, ok := p.entries[key]
	if !ok {
		e = &limiterEntry{limiter: rate.NewLimiter(p.limit, p.burst)}
		p.entries[key] = e
	}

	e.lastSeen = time.Now()

	return e.limiter
}

func (p *limiterPool) cleanupLoop() {
	ticker := time.NewTicker(limiterCleanupInterval)
	defer ticker.Stop()

	for now := range ticker.C {
		p.mu.Lock()

		for k, e := range p.entries {
			if now.Sub(e.lastSeen) > limiterIdleTTL {
				delete(p.entries, k)
			}
		}

		p.mu.Unlock()
	}
}

func clientIP(c *gin.Context) string {
	if ip := c.ClientIP(); ip != "" {
		return ip
	}

	if host, _, err := net.SplitHostPort(c.Request.RemoteAddr); err == nil {
		return host
	}

	if c.Request.RemoteAddr != "" {
		return c.Request.RemoteAddr
	}

	return "unknown"
}
