// 包 领域事件的 Kafka 发布实现
package messaging

import (
	"context"

	"github.com/wyfcoding/riskscoring/pkg/mq"
)

// KafkaEventPublisher 基于 Kafka 的领域事件发布器
type KafkaEventPublisher struct {
	producer *mq.KafkaProducer
}

// NewKafkaEventPublisher 创建 Kafka 事件发布器
func NewKafkaEventPublisher(producer *mq.KafkaProducer) *KafkaEventPublisher {
	return &KafkaEventPublisher{producer: producer}
}

// Publish 发布领域事件，value 以 JSON 编码
func (p *KafkaEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return p.producer.SendMessage(ctx, topic, key, event)
}

// NopEventPublisher 空实现，用于未配置消息队列的部署
type NopEventPublisher struct{}

// Publish 丢弃事件
func (NopEventPublisher) Publish(ctx context.Context, topic string, key string, event any) error {
	return nil
}
