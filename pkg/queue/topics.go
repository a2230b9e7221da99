// Package queue 定义消息主题常量与通配模式，供发布/订阅使用.
package queue

// 主题命名规范：sv.<域>.<动作>[.<状态>]，尽量稳定且向后兼容.
// 域：media(媒体对象)、ledger(存储账本)
// 动作：stored/deleted、limit/reconciled/drift

const (
	// 媒体对象领域.
	TopicMediaStored  = "sv.media.stored"  // 对象已写入并计入账本
	TopicMediaDeleted = "sv.media.deleted" // 对象已删除（账本扣减可能失败，见 payload.ledger_updated）

	// 存储账本领域.
	TopicLedgerLimitExceeded = "sv.ledger.limit.exceeded" // 上传被配额拒绝（预检或记账复检）
	TopicLedgerReconciled    = "sv.ledger.reconciled"     // 全量对账完成
	TopicLedgerDriftDetected = "sv.ledger.drift.detected" // 对账发现账本与实际存储的偏差超过阈值
)

// 主题分组，用于批量订阅或权限控制.
var (
	MediaTopics = []string{TopicMediaStored, TopicMediaDeleted}

	LedgerTopics = []string{
		TopicLedgerLimitExceeded, TopicLedgerReconciled, TopicLedgerDriftDetected,
	}

	AllTopics = append(append([]string{}, MediaTopics...), LedgerTopics...)
)
