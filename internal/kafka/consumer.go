package kafka

import (
	"context"
	"encoding/json"
	"log"
	"sync"

	"github.com/segmentio/kafka-go"

	"github.com/lvdashuaibi/rankvote/config"
	"github.com/lvdashuaibi/rankvote/internal/model"
)

// MessageHandler 广播事件处理函数（网关的Relay）
type MessageHandler func(event *model.BroadcastEvent) error

// Consumer 跨实例广播消费者。不使用消费组：每个实例都要看到
// 全部广播消息，因此为每个分区建立独立的reader从最新偏移开始读
type Consumer struct {
	readers []*kafka.Reader
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
}

func NewConsumer() (*Consumer, error) {
	ctx, cancel := context.WithCancel(context.Background())

	// 获取主题的分区列表
	conn, err := kafka.DialLeader(ctx, "tcp", config.AppConfig.Kafka.Brokers[0], config.AppConfig.Kafka.Topic, 0)
	if err != nil {
		cancel()
		return nil, err
	}
	defer conn.Close()

	partitions, err := conn.ReadPartitions()
	if err != nil {
		cancel()
		return nil, err
	}

	var topicPartitions []int
	for _, p := range partitions {
		if p.Topic == config.AppConfig.Kafka.Topic {
			topicPartitions = append(topicPartitions, p.ID)
		}
	}

	log.Printf("检测到Kafka主题 %s 有 %d 个分区", config.AppConfig.Kafka.Topic, len(topicPartitions))

	readers := make([]*kafka.Reader, 0, len(topicPartitions))
	for _, partition := range topicPartitions {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:   config.AppConfig.Kafka.Brokers,
			Topic:     config.AppConfig.Kafka.Topic,
			Partition: partition,
			MinBytes:  1,
			MaxBytes:  10e6, // 10MB
		})
		// 广播只关心实时消息，从最新偏移开始
		if err := reader.SetOffset(kafka.LastOffset); err != nil {
			log.Printf("设置分区 %d 偏移失败: %v", partition, err)
		}
		readers = append(readers, reader)
	}

	return &Consumer{
		readers: readers,
		ctx:     ctx,
		cancel:  cancel,
	}, nil
}

// StartConsuming 为每个分区启动一个消费协程
func (c *Consumer) StartConsuming(handler MessageHandler) {
	for _, reader := range c.readers {
		c.wg.Add(1)
		go func(r *kafka.Reader) {
			defer c.wg.Done()
			c.consumeLoop(r, handler)
		}(reader)
	}
}

func (c *Consumer) consumeLoop(reader *kafka.Reader, handler MessageHandler) {
	for {
		msg, err := reader.ReadMessage(c.ctx)
		if err != nil {
			if c.ctx.Err() != nil {
				return
			}
			log.Printf("读取广播消息失败: %v", err)
			continue
		}

		var event model.BroadcastEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			log.Printf("解析广播事件失败: %v", err)
			continue
		}

		if err := handler(&event); err != nil {
			log.Printf("转发广播事件失败: %v", err)
		}
	}
}

// Stop 停止全部消费协程并关闭reader
func (c *Consumer) Stop() {
	c.cancel()
	c.wg.Wait()
	for _, reader := range c.readers {
		if err := reader.Close(); err != nil {
			log.Printf("关闭Kafka reader失败: %v", err)
		}
	}
}
