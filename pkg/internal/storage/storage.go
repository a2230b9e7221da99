// Package storage 聚合应用使用的全部存储资源：对象存储、数据库、KV、消息队列与账本快照存储.
//
// Example:
//
//	mgr, err := storage.Init(ctx)
//	if err != nil {
//		// 处理错误
//	}
//	defer mgr.Close()
//
//	objects := mgr.GetObjectStore()
//	dbClient := mgr.GetDBClient()
package storage

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sync"

	"github.com/yeisme/studiovault/pkg/configs"
	"github.com/yeisme/studiovault/pkg/internal/ledger"
	dbc "github.com/yeisme/studiovault/pkg/internal/storage/db"
	"github.com/yeisme/studiovault/pkg/internal/storage/kv"
	"github.com/yeisme/studiovault/pkg/internal/storage/ledgerstore"
	"github.com/yeisme/studiovault/pkg/internal/storage/mq"
	"github.com/yeisme/studiovault/pkg/internal/storage/object"
	s3c "github.com/yeisme/studiovault/pkg/internal/storage/s3"
	nlog "github.com/yeisme/studiovault/pkg/log"
)

// Manager 聚合所有存储资源.
type Manager struct {
	Objects object.Store
	S3      *s3c.Client // 仅 minio 驱动时非空
	DB      *dbc.Client
	KV      *kv.Client
	MQ      *mq.Client
	Ledger  ledger.Store
}

var (
	mgr     *Manager
	mgrErr  error
	mgrOnce sync.Once
)

// Init 使用全局配置初始化默认存储，重复调用只返回已初始化实例.
func Init(ctx context.Context) (*Manager, error) {
	mgrOnce.Do(func() {
		mgr, mgrErr = New(ctx, configs.GetConfig())
	})

	return mgr, mgrErr
}

// New 按配置创建存储资源；任一步失败时关闭已创建的资源.
func New(ctx context.Context, cfg *configs.AppConfig) (_ *Manager, err error) {
	m := &Manager{}

	defer func() {
		if err != nil {
			_ = m.Close()
		}
	}()

	if m.DB, err = dbc.New(ctx, &cfg.DB); err != nil {
		return nil, fmt.Errorf("init db: %w", err)
	}

	if cfg.DB.AutoMigrate {
		if err = m.DB.Migrate(ctx); err != nil {
			return nil, err
		}
	}

	if err = m.initObjects(ctx, &cfg.S3); err != nil {
		return nil, err
	}

	if m.KV, err = kv.NewKVClient(ctx, &cfg.KV); err != nil {
		return nil, fmt.Errorf("init kv: %w", err)
	}

	if m.MQ, err = mq.New(ctx, &cfg.MQ); err != nil {
		return nil, fmt.Errorf("init mq: %w", err)
	}

	if m.Ledger, err = ledgerstore.New(ctx, &cfg.Ledger, ledgerstore.Deps{DB: m.DB.DB}); err != nil {
		return nil, fmt.Errorf("init ledger store: %w", err)
	}

	nlog.Logger().Info().
		Str("s3_driver", string(cfg.S3.Driver)).
		Str("db", string(cfg.DB.Type)).
		Str("kv", string(cfg.KV.Type)).
		Str("mq", string(cfg.MQ.Type)).
		Str("ledger_store", string(cfg.Ledger.Store)).
		Msg("storage manager initialized")

	return m, nil
}

func (m *Manager) initObjects(ctx context.Context, cfg *configs.S3Config) error {
	switch cfg.Driver {
	case configs.S3DriverMemory:
		m.Objects = object.NewMemoryStore(cfg.GetEndpointURL() + "/" + cfg.BucketName)

		nlog.Logger().Warn().Msg("using in-memory object store, data is lost on restart")
	default:
		s3i, err := s3c.New(ctx, cfg)
		if err != nil {
			return fmt.Errorf("init s3: %w", err)
		}

		m.S3 = s3i
		m.Objects = s3i
	}

	return nil
}

// GetObjectStore 获取对象存储.
func (m *Manager) GetObjectStore() object.Store {
	return m.Objects
}

// GetS3Client 获取 S3 客户端，memory 驱动时为 nil.
func (m *Manager) GetS3Client() *s3c.Client {
	return m.S3
}

// GetDBClient 获取 DB 客户端.
func (m *Manager) GetDBClient() *dbc.Client {
	return m.DB
}

// GetKVClient 获取 KV 客户端.
func (m *Manager) GetKVClient() *kv.Client {
	return m.KV
}

// GetMQClient 获取 MQ 客户端.
func (m *Manager) GetMQClient() *mq.Client {
	return m.MQ
}

// GetLedgerStore 获取账本快照存储.
func (m *Manager) GetLedgerStore() ledger.Store {
	return m.Ledger
}

// Close 按创建的逆序释放资源.
func (m *Manager) Close() error {
	var errs []error

	if c, ok := m.Ledger.(io.Closer); ok {
		errs = append(errs, c.Close())
	}

	if m.MQ != nil {
		errs = append(errs, m.MQ.Close())
	}

	if m.KV != nil {
		errs = append(errs, m.KV.Close())
	}

	if m.S3 != nil {
		errs = append(errs, m.S3.Close())
	}

	if m.DB != nil {
		errs = append(errs, m.DB.Close())
	}

	return errors.Join(errs...)
}
