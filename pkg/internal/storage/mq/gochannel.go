package mq

import (
	"context"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/yeisme/studiovault/pkg/configs"
)

// DefaultGoChannelBuffer 每个订阅者的输出缓冲.
const DefaultGoChannelBuffer = 256

func init() {
	RegisterFactory(configs.MQTypeGoChannel, goChannelFactory)
}

// goChannelFactory 进程内 pub/sub，Publisher 与 Subscriber 是同一个实例.
// 没有订阅者时消息直接丢弃，不会阻塞发布方.
func goChannelFactory(_ context.Context, _ *configs.MQConfig, logger watermill.LoggerAdapter) (message.Publisher, message.Subscriber, error) {
	ch := gochannel.NewGoChannel(gochannel.Config{
		OutputChannelBuffer: DefaultGoChannelBuffer,
	}, logger)

	return ch, ch, nil
}
