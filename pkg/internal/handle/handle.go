// Package handle 提供 HTTP 请求处理器.
package handle

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/service"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	"github.com/yeisme/studiovault/pkg/internal/types"
	"github.com/yeisme/studiovault/pkg/log"
	"github.com/yeisme/studiovault/pkg/middleware"
	"github.com/yeisme/studiovault/pkg/rule"
)

// gin 的绑定校验与 rule 共用同一个 validator，初始化时切换为 rule 标签.
func init() {
	rule.Engine()
}

// bind 绑定 query/form 参数并按 rule 标签校验，失败时直接写出响应.
func bind(c *gin.Context, req any) bool {
	err := c.ShouldBind(req)
	if err == nil {
		err = rule.ValidateStruct(req)
	}

	if err == nil {
		return true
	}

	switch fields := rule.Errors(err); {
	case middleware.IsBodyTooLarge(err):
		respondError(c, err)
	case fields != nil:
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request", "fields": fields})
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	}

	return false
}

// respondError 把领域错误映射为 HTTP 状态码:
//   - 存储配额 507，每日上传次数 429，响应体带 kind 便于前端区分
//   - 对象不存在 404
//   - 参数与媒体类型问题 400，超出单文件大小 413
//   - 其余 500
func respondError(c *gin.Context, err error) {
	var limitErr *ledger.LimitError

	switch {
	case errors.As(err, &limitErr):
		status := http.StatusInsufficientStorage
		if errors.Is(err, ledger.ErrUploadOpsLimitExceeded) {
			status = http.StatusTooManyRequests
		}

		c.JSON(status, types.QuotaErrorResponse{
			Error:     limitErr.Kind.Error(),
			Kind:      ledger.LimitKind(err),
			Current:   limitErr.Current,
			Requested: limitErr.Requested,
			Limit:     limitErr.Limit,
		})
	case errors.Is(err, ledger.ErrStorageLimitExceeded):
		c.JSON(http.StatusInsufficientStorage, gin.H{"error": err.Error(), "kind": ledger.LimitKind(err)})
	case errors.Is(err, ledger.ErrUploadOpsLimitExceeded):
		c.JSON(http.StatusTooManyRequests, gin.H{"error": err.Error(), "kind": ledger.LimitKind(err)})
	case errors.Is(err, object.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrFileTooLarge), middleware.IsBodyTooLarge(err):
		c.JSON(http.StatusRequestEntityTooLarge, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrInvalidKind),
		errors.Is(err, service.ErrInvalidPath),
		errors.Is(err, service.ErrUnsupportedMedia),
		errors.Is(err, service.ErrEmptyFile),
		errors.Is(err, ledger.ErrInvalidAmount):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, service.ErrNotConfigured):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
	default:
		log.Logger().Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	}
}
