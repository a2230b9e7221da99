package jobs

// 任务名称常量.
const (
	JobLedgerReconcile = "ledger-reconcile"
)
