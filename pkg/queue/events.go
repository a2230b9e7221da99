package queue

import "github.com/ThreeDotsLabs/watermill/message"

// -------------------------- 基于业务封装 events --------------------------

func publish[T any](pub message.Publisher, topic string, payload T, opts ...func(*EventHeader)) error {
	msg, err := NewWatermillMessage(topic, payload, opts...)
	if err != nil {
		return err
	}

	return pub.Publish(topic, msg)
}

// PublishMediaStored 发布 sv.media.stored 事件.
// 对象落盘、账本记账与元数据入库都成功后才发布.
func PublishMediaStored(pub message.Publisher, payload MediaStoredPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicMediaStored, payload, opts...)
}

// PublishMediaDeleted 发布 sv.media.deleted 事件.
func PublishMediaDeleted(pub message.Publisher, payload MediaDeletedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicMediaDeleted, payload, opts...)
}

// PublishLimitExceeded 发布 sv.ledger.limit.exceeded 事件.
func PublishLimitExceeded(pub message.Publisher, payload LimitExceededPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicLedgerLimitExceeded, payload, opts...)
}

// PublishLedgerReconciled 发布 sv.ledger.reconciled 事件.
func PublishLedgerReconciled(pub message.Publisher, payload LedgerReconciledPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicLedgerReconciled, payload, opts...)
}

// PublishDriftDetected 发布 sv.ledger.drift.detected 事件.
func PublishDriftDetected(pub message.Publisher, payload DriftDetectedPayload, opts ...func(*EventHeader)) error {
	return publish(pub, TopicLedgerDriftDetected, payload, opts...)
}

// ParseMediaStored 将 Watermill 消息解析为强类型 Envelope.
func ParseMediaStored(msg *message.Message) (Message[MediaStoredPayload], error) {
	return ParseWatermillMessage[MediaStoredPayload](msg)
}

// ParseDriftDetected 将 Watermill 消息解析为强类型 Envelope.
func ParseDriftDetected(msg *message.Message) (Message[DriftDetectedPayload], error) {
	return ParseWatermillMessage[DriftDetectedPayload](msg)
}

// ParseLimitExceeded 将 Watermill 消息解析为强类型 Envelope.
func ParseLimitExceeded(msg *message.Message) (Message[LimitExceededPayload], error) {
	return ParseWatermillMessage[LimitExceededPayload](msg)
}
