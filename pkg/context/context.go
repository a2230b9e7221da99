// Package context 拓展上下文功能，将日志、服务等集成到上下文中，方便在应用程序各处传递和使用.
package context

import (
	"context"

	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel/trace"

	"github.com/yeisme/studiovault/pkg/internal/ledger"
	"github.com/yeisme/studiovault/pkg/internal/storage"
	dbc "github.com/yeisme/studiovault/pkg/internal/storage/db"
	kvc "github.com/yeisme/studiovault/pkg/internal/storage/kv"
	mqc "github.com/yeisme/studiovault/pkg/internal/storage/mq"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	"github.com/yeisme/studiovault/pkg/queue"
)

type ContextKey string

const (
	StorageManagerKey ContextKey = "storageManager"
	LedgerKey         ContextKey = "ledger"
	NotifierKey       ContextKey = "notifier"
)

// WithStorageManager 将 Manager 存储到 context 中.
func WithStorageManager(ctx context.Context, mgr *storage.Manager) context.Context {
	return context.WithValue(ctx, StorageManagerKey, mgr)
}

// GetManager 从 context 中获取 Manager.
func GetManager(ctx context.Context) *storage.Manager {
	if mgr, ok := ctx.Value(StorageManagerKey).(*storage.Manager); ok {
		return mgr
	}

	return nil
}

// WithLedger 将账本存储到 context 中.
func WithLedger(ctx context.Context, l *ledger.Ledger) context.Context {
	return context.WithValue(ctx, LedgerKey, l)
}

// GetLedger 从 context 中获取账本.
func GetLedger(ctx context.Context) *ledger.Ledger {
	if l, ok := ctx.Value(LedgerKey).(*ledger.Ledger); ok {
		return l
	}

	return nil
}

// WithNotifier 将事件通知器存储到 context 中.
func WithNotifier(ctx context.Context, n *queue.Notifier) context.Context {
	return context.WithValue(ctx, NotifierKey, n)
}

// GetNotifier 从 context 中获取事件通知器，未注入时返回 nil（nil 通知器的方法均为空操作）.
func GetNotifier(ctx context.Context) *queue.Notifier {
	if n, ok := ctx.Value(NotifierKey).(*queue.Notifier); ok {
		return n
	}

	return nil
}

// GetObjectStore 从 context 中获取对象存储.
func GetObjectStore(ctx context.Context) object.Store {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetObjectStore()
	}

	return nil
}

// GetDBClient 从 context 中获取 DB 客户端.
func GetDBClient(ctx context.Context) *dbc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetDBClient()
	}

	return nil
}

// GetMQClient 从 context 中获取 MQ 客户端.
func GetMQClient(ctx context.Context) *mqc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetMQClient()
	}

	return nil
}

// GetKVClient 从 context 中获取 KV 客户端.
func GetKVClient(ctx context.Context) *kvc.Client {
	if mgr := GetManager(ctx); mgr != nil {
		return mgr.GetKVClient()
	}

	return nil
}

// WithTraceContext 创建带有追踪上下文的logger.
func WithTraceContext(ctx context.Context, logger zerolog.Logger) zerolog.Logger {
	span := trace.SpanFromContext(ctx)
	if span.IsRecording() {
		return logger.With().
			Str("trace_id", span.SpanContext().TraceID().String()).
			Str("span_id", span.SpanContext().SpanID().String()).
			Logger()
	}

	return logger
}
