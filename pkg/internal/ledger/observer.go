package ledger

// Drift 对账结果与旧快照的差值（新值减旧值）.
type Drift struct {
	Bytes int64 `json:"bytes"`
	Files int64 `json:"files"`
}

// IsZero 无偏差.
func (d Drift) IsZero() bool {
	return d.Bytes == 0 && d.Files == 0
}

// Observer 接收账本事件，用于指标与消息通知；实现不能阻塞调用方.
type Observer interface {
	// SnapshotChanged 每次成功写入后调用，op 为 upload / deletion / reconcile.
	SnapshotChanged(op string, snap Snapshot, limits Limits)
	// LimitExceeded 预检（guard）或事务复检（record）拒绝时调用.
	LimitExceeded(stage string, err *LimitError)
	// Reconciled 对账完成后调用；prev 为 nil 表示首次播种.
	Reconciled(prev *Snapshot, next Snapshot, drift Drift)
}

// Observers 组合多个 Observer.
type Observers []Observer

func (o Observers) SnapshotChanged(op string, snap Snapshot, limits Limits) {
	for _, ob := range o {
		ob.SnapshotChanged(op, snap, limits)
	}
}

func (o Observers) LimitExceeded(stage string, err *LimitError) {
	for _, ob := range o {
		ob.LimitExceeded(stage, err)
	}
}

func (o Observers) Reconciled(prev *Snapshot, next Snapshot, drift Drift) {
	for _, ob := range o {
		ob.Reconciled(prev, next, drift)
	}
}
