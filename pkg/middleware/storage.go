package middleware

import (
	"github.com/gin-gonic/gin"

	"github.com/yeisme/studiovault/pkg/context"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/storage"
	"github.com/yeisme/studiovault/pkg/queue"
)

// StorageMiddleware 注入存储管理器.
func StorageMiddleware(manager *storage.Manager) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithStorageManager(c.Request.Context(), manager)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}

// LedgerMiddleware 注入用量账本与事件通知器，notifier 可以为 nil.
func LedgerMiddleware(led *ledger.Ledger, notifier *queue.Notifier) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := context.WithLedger(c.Request.Context(), led)
		ctx = context.WithNotifier(ctx, notifier)
		c.Request = c.Request.WithContext(ctx)
		c.Next()
	}
}
