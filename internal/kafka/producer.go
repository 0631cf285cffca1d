package kafka

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"

	"github.com/lvdashuaibi/rankvote/config"
	"github.com/lvdashuaibi/rankvote/internal/model"
)

// Producer 把房间广播发布到Kafka，供其他实例转发给各自的本地连接
type Producer struct {
	writer *kafka.Writer
}

func NewProducer() (*Producer, error) {
	// 使用基于消息Key的Hash分区器，同一投票的广播进入同一分区，保证每投票有序
	writer := &kafka.Writer{
		Addr:     kafka.TCP(config.AppConfig.Kafka.Brokers...),
		Topic:    config.AppConfig.Kafka.Topic,
		Balancer: &kafka.Hash{},
	}

	return &Producer{writer: writer}, nil
}

// Publish 发布一条跨实例广播事件，以pollID作为分区Key
func (p *Producer) Publish(ctx context.Context, event *model.BroadcastEvent) error {
	data, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("序列化广播事件失败: %w", err)
	}

	msg := kafka.Message{
		Key:   []byte(event.PollID),
		Value: data,
		Time:  time.Now(),
	}

	if err := p.writer.WriteMessages(ctx, msg); err != nil {
		return fmt.Errorf("发送广播事件失败: %w", err)
	}

	return nil
}

// Close 关闭Kafka生产者
func (p *Producer) Close() error {
	return p.writer.Close()
}
