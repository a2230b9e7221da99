package middleware_test

import (
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/middleware"
)

func breakerConfig() configs.CircuitBreakerConfig {
	return configs.CircuitBreakerConfig{
		Enabled:          true,
		FailureRate:      0.5,
		MinRequests:      2,
		Interval:         time.Minute,
		OpenTimeout:      time.Minute,
		HalfOpenRequests: 1,
	}
}

func TestBreakerOpensOnServerErrors(t *testing.T) {
	r := gin.New()
	r.POST("/media/upload", middleware.CircuitBreakerMiddleware(breakerConfig()), func(c *gin.Context) {
		c.Status(http.StatusBadGateway)
	})

	assert.Equal(t, http.StatusBadGateway, serve(r, http.MethodPost, "/media/upload", nil))
	assert.Equal(t, http.StatusBadGateway, serve(r, http.MethodPost, "/media/upload", nil))
	assert.Equal(t, http.StatusServiceUnavailable, serve(r, http.MethodPost, "/media/upload", nil))
}

func TestBreakerIgnoresQuotaRejections(t *testing.T) {
	codes := []int{http.StatusInsufficientStorage, http.StatusTooManyRequests, http.StatusInsufficientStorage}
	i := 0

	r := gin.New()
	r.POST("/media/upload", middleware.CircuitBreakerMiddleware(breakerConfig()), func(c *gin.Context) {
		c.Status(codes[i%len(codes)])
		i++
	})

	for range 6 {
		code := serve(r, http.MethodPost, "/media/upload", nil)
		assert.NotEqual(t, http.StatusServiceUnavailable, code)
	}
}

func TestBreakerDisabledPassesThrough(t *testing.T) {
	cfg := breakerConfig()
	cfg.Enabled = false

	r := gin.New()
	r.POST("/media/upload", middleware.CircuitBreakerMiddleware(cfg), func(c *gin.Context) {
		c.Status(http.StatusInternalServerError)
	})

	for range 4 {
		assert.Equal(t, http.StatusInternalServerError, serve(r, http.MethodPost, "/media/upload", nil))
	}
}

func TestBreakerNameDefaults(t *testing.T) {
	assert.Equal(t, configs.DefaultCBName, configs.CircuitBreakerConfig{}.BreakerName())
	assert.Equal(t, "uploads", configs.CircuitBreakerConfig{Name: "uploads"}.BreakerName())
}
