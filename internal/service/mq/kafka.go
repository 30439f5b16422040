package mq

import (
	"context"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"settlement-core/pkg/logger"
)

// KafkaProducer 结算事件的 Kafka 生产者
type KafkaProducer struct {
	writer *kafka.Writer
}

func NewKafkaProducer(brokers []string) *KafkaProducer {
	writer := &kafka.Writer{
		Addr:                   kafka.TCP(brokers...),
		Balancer:               &kafka.Hash{}, // 按 Key 哈希, 同一用户的事件有序
		AllowAutoTopicCreation: true,
		RequiredAcks:           kafka.RequireAll,
		BatchSize:              100,
		BatchTimeout:           10 * time.Millisecond,
	}
	return &KafkaProducer{writer: writer}
}

func (p *KafkaProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.writer.WriteMessages(ctx, kafka.Message{
		Topic: topic,
		Key:   []byte(key),
		Value: payload,
	})
	if err != nil {
		return fmt.Errorf("kafka write error: %w", err)
	}
	return nil
}

func (p *KafkaProducer) Close() error {
	return p.writer.Close()
}

// KafkaConsumer 消费结算事件
type KafkaConsumer struct {
	brokers []string
	group   string
	reader  *kafka.Reader
}

func NewKafkaConsumer(brokers []string, group string) *KafkaConsumer {
	return &KafkaConsumer{brokers: brokers, group: group}
}

func (c *KafkaConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	c.reader = kafka.NewReader(kafka.ReaderConfig{
		Brokers:  c.brokers,
		GroupID:  c.group,
		Topic:    topic,
		MinBytes: 1,
		MaxBytes: 10e6,
	})
	logger.Info("开始消费", zap.String("topic", topic), zap.String("group", c.group))

	for {
		m, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("kafka 读取失败", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}
		msg := &Message{
			ID:      fmt.Sprintf("%d-%d", m.Partition, m.Offset),
			Topic:   m.Topic,
			Key:     string(m.Key),
			Payload: m.Value,
		}
		if err := handler(msg); err != nil {
			// 不提交 offset, 等重投
			logger.Error("消息处理失败", zap.String("topic", topic), zap.Error(err))
			continue
		}
		if err := c.reader.CommitMessages(ctx, m); err != nil {
			logger.Error("提交 offset 失败", zap.Error(err))
		}
	}
}

func (c *KafkaConsumer) Close() error {
	if c.reader != nil {
		return c.reader.Close()
	}
	return nil
}
