package mq

import "context"

// Message 一条结算事件消息
type Message struct {
	ID      string // 消息 ID (Redis Stream ID / Kafka offset)
	Topic   string
	Key     string // 分区键, 一般是 user_id, 保证同一用户的事件有序
	Payload []byte // JSON
}

type Producer interface {
	// Publish 发消息。key 为空则随机分区。
	Publish(ctx context.Context, topic string, key string, payload []byte) error
	Close() error
}

type Consumer interface {
	// Subscribe 阻塞消费。handler 返回 error 时不 ACK, 消息会被重投。
	Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error
	Close() error
}
