package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func serve(r *gin.Engine, method, target string, header http.Header) int {
	req := httptest.NewRequest(method, target, nil)
	for k, v := range header {
		req.Header[k] = v
	}

	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	return w.Code
}

func TestUploadRateLimitOnlyOnUploadRoute(t *testing.T) {
	cfg := configs.RateLimitConfig{
		Enabled: true,
		Key:     configs.RateLimitKeyGlobal,
		Upload:  configs.UploadRateLimitConfig{RPS: 0.001, Burst: 2},
	}

	r := gin.New()
	r.POST("/media/upload", middleware.UploadRateLimitMiddleware(cfg), func(c *gin.Context) { c.Status(http.StatusCreated) })
	r.GET("/media/url", func(c *gin.Context) { c.Status(http.StatusOK) })

	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/media/upload", nil))
	assert.Equal(t, http.StatusCreated, serve(r, http.MethodPost, "/media/upload", nil))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodPost, "/media/upload", nil))

	for range 5 {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/media/url", nil))
	}
}

func TestRateLimitByUser(t *testing.T) {
	cfg := configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: configs.RateLimitKeyUser}

	r := gin.New()
	r.Use(func(c *gin.Context) {
		if u := c.GetHeader("X-Test-User"); u != "" {
			c.Set("user", u)
		}
	}, middleware.RateLimitMiddleware(cfg))
	r.GET("/storage/status", func(c *gin.Context) { c.Status(http.StatusOK) })

	alice := http.Header{"X-Test-User": {"alice@studio.test"}}
	bob := http.Header{"X-Test-User": {"bob@studio.test"}}

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/storage/status", alice))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/storage/status", alice))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/storage/status", bob))
}

func TestRateLimitByHeader(t *testing.T) {
	cfg := configs.RateLimitConfig{Enabled: true, RPS: 0.001, Burst: 1, Key: "header:X-Studio-ID"}

	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	a := http.Header{"X-Studio-Id": {"a"}}
	b := http.Header{"X-Studio-Id": {"b"}}

	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", a))
	assert.Equal(t, http.StatusTooManyRequests, serve(r, http.MethodGet, "/ping", a))
	assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", b))
}

func TestRateLimitDisabled(t *testing.T) {
	cfg := configs.RateLimitConfig{RPS: 0.001, Burst: 1, Upload: configs.UploadRateLimitConfig{RPS: 0.001, Burst: 1}}

	r := gin.New()
	r.Use(middleware.RateLimitMiddleware(cfg), middleware.UploadRateLimitMiddleware(cfg))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })

	for range 3 {
		assert.Equal(t, http.StatusOK, serve(r, http.MethodGet, "/ping", nil))
	}
}
