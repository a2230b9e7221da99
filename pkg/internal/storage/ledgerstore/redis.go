//go:build !no_redis

package ledgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/redis/go-redis/v9"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
)

// RedisStore 把快照以 JSON 存在单个 Redis 键中，用 WATCH + MULTI/EXEC 做比较并交换.
type RedisStore struct {
	client   redis.UniversalClient
	key      string
	maxTries uint
}

// NewRedisStore 基于已有客户端创建快照存储.
func NewRedisStore(client redis.UniversalClient, key string, maxTries uint) *RedisStore {
	return &RedisStore{client: client, key: key, maxTries: maxTries}
}

func init() {
	RegisterFactory(configs.LedgerStoreRedis, func(ctx context.Context, cfg *configs.LedgerConfig, _ Deps) (ledger.Store, error) {
		rdb := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})

		if err := rdb.Ping(ctx).Err(); err != nil {
			_ = rdb.Close()

			return nil, fmt.Errorf("failed to connect to Redis: %w", err)
		}

		key := cfg.Redis.Key
		if cfg.RecordID != "" {
			key += ":" + cfg.RecordID
		}

		return NewRedisStore(rdb, key, cfg.MaxRetries), nil
	})
}

func (s *RedisStore) Load(ctx context.Context) (ledger.Snapshot, error) {
	raw, err := s.client.Get(ctx, s.key).Bytes()
	if errors.Is(err, redis.Nil) {
		return ledger.Snapshot{}, ledger.ErrSnapshotNotFound
	}

	if err != nil {
		return ledger.Snapshot{}, fmt.Errorf("failed to get ledger key: %w", err)
	}

	return decodeSnapshot(raw)
}

// Update 在 WATCH 下读取快照，EXEC 时键已被改动则事务失败并重试.
func (s *RedisStore) Update(ctx context.Context, fn ledger.UpdateFunc) (ledger.Snapshot, error) {
	return retryOnConflict(ctx, s.maxTries, func() (ledger.Snapshot, error) {
		var next ledger.Snapshot

		err := s.client.Watch(ctx, func(tx *redis.Tx) error {
			raw, err := tx.Get(ctx, s.key).Bytes()
			if errors.Is(err, redis.Nil) {
				return ledger.ErrSnapshotNotFound
			}

			if err != nil {
				return fmt.Errorf("failed to get ledger key: %w", err)
			}

			cur, err := decodeSnapshot(raw)
			if err != nil {
				return err
			}

			next, err = fn(cur)
			if err != nil {
				return err
			}

			encoded, err := sonic.Marshal(next)
			if err != nil {
				return fmt.Errorf("encode ledger snapshot: %w", err)
			}

			_, err = tx.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
				pipe.Set(ctx, s.key, encoded, 0)

				return nil
			})

			return err
		}, s.key)
		if errors.Is(err, redis.TxFailedErr) {
			return ledger.Snapshot{}, ledger.ErrConflict
		}

		if err != nil {
			return ledger.Snapshot{}, err
		}

		return next, nil
	})
}

// Replace 直接覆盖键；SET 会使其他客户端的 WATCH 失效.
func (s *RedisStore) Replace(ctx context.Context, snap ledger.Snapshot) error {
	encoded, err := sonic.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ledger snapshot: %w", err)
	}

	if err := s.client.Set(ctx, s.key, encoded, 0).Err(); err != nil {
		return fmt.Errorf("failed to set ledger key: %w", err)
	}

	return nil
}

// Close 关闭 Redis 连接.
func (s *RedisStore) Close() error {
	return s.client.Close()
}
