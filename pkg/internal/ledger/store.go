package ledger

import (
	"context"
	"sync"
)

// UpdateFunc 根据当前快照计算下一个快照；返回错误时放弃本次写入.
// 发生写冲突时 Store 会用新读到的快照重新调用它，因此必须没有副作用.
type UpdateFunc func(current Snapshot) (Snapshot, error)

// Store 账本快照的持久化.
//
// Update 必须是原子的读-改-写：只有在读取后没有其他写者修改过记录时才写入，
// 否则重新读取并重试（有上限），绝不能丢失更新.
// Replace 整体覆盖快照（对账使用），不做冲突检测，但要让并发的 Update 感知到版本变化.
type Store interface {
	Load(ctx context.Context) (Snapshot, error)
	Update(ctx context.Context, fn UpdateFunc) (Snapshot, error)
	Replace(ctx context.Context, snap Snapshot) error
}

// MemoryStore 进程内快照存储，互斥锁串行化 Update；多副本部署时不能使用.
type MemoryStore struct {
	mu     sync.Mutex
	snap   Snapshot
	exists bool
}

// NewMemoryStore 创建空的内存存储.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

// NewMemoryStoreWith 创建带初始快照的内存存储.
func NewMemoryStoreWith(snap Snapshot) *MemoryStore {
	return &MemoryStore{snap: snap, exists: true}
}

func (m *MemoryStore) Load(ctx context.Context) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return Snapshot{}, ErrSnapshotNotFound
	}

	return m.snap, nil
}

func (m *MemoryStore) Update(ctx context.Context, fn UpdateFunc) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return Snapshot{}, err
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.exists {
		return Snapshot{}, ErrSnapshotNotFound
	}

	next, err := fn(m.snap)
	if err != nil {
		return Snapshot{}, err
	}

	m.snap = next

	return next, nil
}

func (m *MemoryStore) Replace(ctx context.Context, snap Snapshot) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	m.mu.Lock()
	m.snap = snap
	m.exists = true
	m.mu.Unlock()

	return nil
}
