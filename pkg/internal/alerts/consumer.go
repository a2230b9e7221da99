// Package alerts 订阅账本告警事件并交给处理函数.
//
// 默认处理函数把配额拒绝与对账偏差写入告警日志；部署了外部告警系统时可以替换.
//
//	c := alerts.NewConsumer(mgr.GetMQClient(), log.Logger())
//	alerts.RegisterAlertHandlers(c, log.Logger())
//	if err := c.Start(ctx); err != nil { ... }
//	defer c.Wait()
package alerts

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/rs/zerolog"

	"github.com/yeisme/studiovault/pkg/queue"
)

// Subscriber 订阅主题，storage/mq.Client 实现了它.
type Subscriber interface {
	Subscribe(ctx context.Context, topic string) (<-chan *message.Message, error)
}

// Handler 处理一条消息；返回的错误只记录日志，消息照常确认，避免毒消息反复投递.
type Handler func(ctx context.Context, msg *message.Message) error

// Consumer 每个主题一个 goroutine 顺序消费.
type Consumer struct {
	sub      Subscriber
	logger   *zerolog.Logger
	handlers map[string]Handler
	wg       sync.WaitGroup
}

// NewConsumer 创建消费者，需注册处理函数后调用 Start.
func NewConsumer(sub Subscriber, logger *zerolog.Logger) *Consumer {
	return &Consumer{sub: sub, logger: logger, handlers: make(map[string]Handler)}
}

// Handle 注册主题处理函数，同一主题后注册的覆盖先注册的.
func (c *Consumer) Handle(topic string, h Handler) *Consumer {
	c.handlers[topic] = h

	return c
}

// Start 订阅全部已注册主题；ctx 取消后消费 goroutine 退出.
func (c *Consumer) Start(ctx context.Context) error {
	if c.sub == nil {
		return errors.New("mq subscriber not initialized")
	}

	for topic, h := range c.handlers {
		ch, err := c.sub.Subscribe(ctx, topic)
		if err != nil {
			return fmt.Errorf("subscribe %s: %w", topic, err)
		}

		c.wg.Add(1)

		go c.consume(ctx, topic, ch, h)
	}

	c.logger.Info().Int("topics", len(c.handlers)).Msg("event consumer started")

	return nil
}

// Wait 等待全部消费 goroutine 退出.
func (c *Consumer) Wait() {
	c.wg.Wait()
}

func (c *Consumer) consume(ctx context.Context, topic string, ch <-chan *message.Message, h Handler) {
	defer c.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}

			if err := h(ctx, msg); err != nil {
				c.logger.Warn().Err(err).Str("topic", topic).Str("uuid", msg.UUID).Msg("event handler failed")
			}

			msg.Ack()
		}
	}
}

// RegisterAlertHandlers 注册配额拒绝与对账偏差的告警日志处理函数.
func RegisterAlertHandlers(c *Consumer, logger *zerolog.Logger) *Consumer {
	c.Handle(queue.TopicLedgerLimitExceeded, func(_ context.Context, msg *message.Message) error {
		env, err := queue.ParseLimitExceeded(msg)
		if err != nil {
			return err
		}

		p := env.Payload
		logger.Warn().
			Str("event", queue.TopicLedgerLimitExceeded).
			Str("kind", p.Kind).
			Str("stage", p.Stage).
			Int64("current", p.Current).
			Int64("requested", p.Requested).
			Int64("limit", p.Limit).
			Msg("upload rejected by quota")

		return nil
	})

	c.Handle(queue.TopicLedgerDriftDetected, func(_ context.Context, msg *message.Message) error {
		env, err := queue.ParseDriftDetected(msg)
		if err != nil {
			return err
		}

		p := env.Payload
		logger.Error().
			Str("event", queue.TopicLedgerDriftDetected).
			Int64("drift_bytes", p.DriftBytes).
			Int64("drift_files", p.DriftFiles).
			Int64("threshold_bytes", p.ThresholdBytes).
			Int64("ledger_bytes", p.Previous.TotalBytes).
			Int64("scanned_bytes", p.Scanned.TotalBytes).
			Msg("ledger drift exceeds threshold")

		return nil
	})

	return c
}
