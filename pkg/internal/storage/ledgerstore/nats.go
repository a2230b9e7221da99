package ledgerstore

import (
	"context"
	"errors"
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/nats-io/nats.go"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
)

// NATSStore 把快照存在 JetStream KV bucket 中，用条目修订号做比较并交换.
type NATSStore struct {
	kv       nats.KeyValue
	key      string
	maxTries uint
	conn     *nats.Conn
}

// NewNATSStore 基于已有 KV bucket 创建快照存储.
func NewNATSStore(kv nats.KeyValue, key string, maxTries uint) *NATSStore {
	return &NATSStore{kv: kv, key: key, maxTries: maxTries}
}

func init() {
	RegisterFactory(configs.LedgerStoreNATS, func(_ context.Context, cfg *configs.LedgerConfig, _ Deps) (ledger.Store, error) {
		opts := []nats.Option{nats.Name("studiovault-ledger")}
		if cfg.NATS.User != "" {
			opts = append(opts, nats.UserInfo(cfg.NATS.User, cfg.NATS.Password))
		}

		nc, err := nats.Connect(cfg.NATS.URL, opts...)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to NATS: %w", err)
		}

		js, err := nc.JetStream()
		if err != nil {
			nc.Close()

			return nil, fmt.Errorf("failed to create JetStream context: %w", err)
		}

		kv, err := js.KeyValue(cfg.NATS.Bucket)
		if errors.Is(err, nats.ErrBucketNotFound) {
			kv, err = js.CreateKeyValue(&nats.KeyValueConfig{
				Bucket:      cfg.NATS.Bucket,
				Description: "studiovault storage ledger",
				History:     1,
			})
		}

		if err != nil {
			nc.Close()

			return nil, fmt.Errorf("failed to create/get KV bucket: %w", err)
		}

		store := NewNATSStore(kv, cfg.RecordID, cfg.MaxRetries)
		store.conn = nc

		return store, nil
	})
}

func (s *NATSStore) get() (ledger.Snapshot, uint64, error) {
	entry, err := s.kv.Get(s.key)
	if errors.Is(err, nats.ErrKeyNotFound) {
		return ledger.Snapshot{}, 0, ledger.ErrSnapshotNotFound
	}

	if err != nil {
		return ledger.Snapshot{}, 0, fmt.Errorf("failed to get ledger key: %w", err)
	}

	snap, err := decodeSnapshot(entry.Value())
	if err != nil {
		return ledger.Snapshot{}, 0, err
	}

	return snap, entry.Revision(), nil
}

func (s *NATSStore) Load(ctx context.Context) (ledger.Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return ledger.Snapshot{}, err
	}

	snap, _, err := s.get()

	return snap, err
}

// Update 以读取时的修订号调用 KeyValue.Update，修订号已变化时服务端拒绝写入.
func (s *NATSStore) Update(ctx context.Context, fn ledger.UpdateFunc) (ledger.Snapshot, error) {
	return retryOnConflict(ctx, s.maxTries, func() (ledger.Snapshot, error) {
		if err := ctx.Err(); err != nil {
			return ledger.Snapshot{}, err
		}

		cur, rev, err := s.get()
		if err != nil {
			return ledger.Snapshot{}, err
		}

		next, err := fn(cur)
		if err != nil {
			return ledger.Snapshot{}, err
		}

		encoded, err := sonic.Marshal(next)
		if err != nil {
			return ledger.Snapshot{}, fmt.Errorf("encode ledger snapshot: %w", err)
		}

		if _, err := s.kv.Update(s.key, encoded, rev); err != nil {
			if isWrongRevision(err) {
				return ledger.Snapshot{}, ledger.ErrConflict
			}

			return ledger.Snapshot{}, fmt.Errorf("failed to update ledger key: %w", err)
		}

		return next, nil
	})
}

func (s *NATSStore) Replace(ctx context.Context, snap ledger.Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := sonic.Marshal(snap)
	if err != nil {
		return fmt.Errorf("encode ledger snapshot: %w", err)
	}

	if _, err := s.kv.Put(s.key, encoded); err != nil {
		return fmt.Errorf("failed to put ledger key: %w", err)
	}

	return nil
}

// Close 关闭自建的 NATS 连接.
func (s *NATSStore) Close() error {
	if s.conn != nil {
		s.conn.Close()
	}

	return nil
}

func isWrongRevision(err error) bool {
	if errors.Is(err, nats.ErrKeyExists) {
		return true
	}

	var apiErr *nats.APIError

	return errors.As(err, &apiErr) && apiErr.ErrorCode == nats.JSErrCodeStreamWrongLastSequence
}
