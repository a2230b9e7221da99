// Package ledgerstore 提供账本快照的持久化后端：关系型数据库、Redis、NATS JetStream KV 与内存.
//
// 各后端都用自身的并发控制原语实现比较并交换：
//
//	db     UPDATE ... WHERE id = ? AND version = ?，影响行数为 0 视为冲突
//	redis  WATCH key + MULTI/EXEC，事务失败视为冲突
//	nats   KeyValue.Update(key, value, lastRevision)，修订号不符视为冲突
//
// 冲突按指数退避重试，次数由 ledger.max_retries 控制.
package ledgerstore

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/bytedance/sonic"
	"github.com/cenkalti/backoff/v5"
	"gorm.io/gorm"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
)

// Deps 构建后端时可复用的已有连接.
type Deps struct {
	DB *gorm.DB
}

// Factory 根据配置创建快照存储.
type Factory func(ctx context.Context, cfg *configs.LedgerConfig, deps Deps) (ledger.Store, error)

var (
	factories = map[configs.LedgerStoreType]Factory{}
	mu        sync.RWMutex
)

// RegisterFactory 注册后端工厂.
func RegisterFactory(t configs.LedgerStoreType, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	factories[t] = f
}

// GetRegisteredTypes 返回已注册的后端类型.
func GetRegisteredTypes() []configs.LedgerStoreType {
	mu.RLock()
	defer mu.RUnlock()

	types := make([]configs.LedgerStoreType, 0, len(factories))
	for t := range factories {
		types = append(types, t)
	}

	sort.Slice(types, func(i, j int) bool { return types[i] < types[j] })

	return types
}

// New 按 cfg.Store 创建快照存储.
func New(ctx context.Context, cfg *configs.LedgerConfig, deps Deps) (ledger.Store, error) {
	mu.RLock()
	f, ok := factories[cfg.Store]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unsupported ledger store type: %s", cfg.Store)
	}

	return f(ctx, cfg, deps)
}

func init() {
	RegisterFactory(configs.LedgerStoreMemory, func(context.Context, *configs.LedgerConfig, Deps) (ledger.Store, error) {
		return ledger.NewMemoryStore(), nil
	})
}

const (
	initialRetryInterval = 5 * time.Millisecond
	maxRetryInterval     = 200 * time.Millisecond
)

// retryOnConflict 执行一次 CAS 尝试；只有 ledger.ErrConflict 会重试，其余错误立即返回.
func retryOnConflict(ctx context.Context, maxTries uint, attempt func() (ledger.Snapshot, error)) (ledger.Snapshot, error) {
	if maxTries == 0 {
		maxTries = configs.DefaultLedgerMaxRetries
	}

	eb := backoff.NewExponentialBackOff()
	eb.InitialInterval = initialRetryInterval
	eb.MaxInterval = maxRetryInterval

	snap, err := backoff.Retry(ctx, func() (ledger.Snapshot, error) {
		snap, err := attempt()
		if err == nil || errors.Is(err, ledger.ErrConflict) {
			return snap, err
		}

		return ledger.Snapshot{}, backoff.Permanent(err)
	}, backoff.WithBackOff(eb), backoff.WithMaxTries(maxTries), backoff.WithMaxElapsedTime(0))
	if errors.Is(err, ledger.ErrConflict) {
		return ledger.Snapshot{}, fmt.Errorf("%w after %d attempts", err, maxTries)
	}

	return snap, err
}

func decodeSnapshot(raw []byte) (ledger.Snapshot, error) {
	var snap ledger.Snapshot
	if err := sonic.Unmarshal(raw, &snap); err != nil {
		return ledger.Snapshot{}, fmt.Errorf("decode ledger snapshot: %w", err)
	}

	return snap, nil
}
