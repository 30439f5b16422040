package mq

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"settlement-core/pkg/logger"
)

// RedisProducer 单机部署时用 Redis Stream 代替 Kafka
type RedisProducer struct {
	client *redis.Client
}

func NewRedisProducer(client *redis.Client) *RedisProducer {
	return &RedisProducer{client: client}
}

func (p *RedisProducer) Publish(ctx context.Context, topic string, key string, payload []byte) error {
	err := p.client.XAdd(ctx, &redis.XAddArgs{
		Stream: topic,
		Values: map[string]interface{}{
			"key":     key,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		return fmt.Errorf("redis xadd error: %w", err)
	}
	return nil
}

func (p *RedisProducer) Close() error {
	return nil
}

// RedisConsumer 消费者组模式消费 Redis Stream
type RedisConsumer struct {
	client *redis.Client
	group  string
	name   string
}

func NewRedisConsumer(client *redis.Client, group, name string) *RedisConsumer {
	return &RedisConsumer{client: client, group: group, name: name}
}

func (c *RedisConsumer) Subscribe(ctx context.Context, topic string, handler func(msg *Message) error) error {
	err := c.client.XGroupCreateMkStream(ctx, topic, c.group, "$").Err()
	if err != nil && !strings.Contains(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("创建消费者组失败: %w", err)
	}
	logger.Info("开始消费", zap.String("topic", topic), zap.String("group", c.group))

	for {
		select {
		case <-ctx.Done():
			return nil
		default:
		}
		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.group,
			Consumer: c.name,
			Streams:  []string{topic, ">"},
			Count:    10,
			Block:    2 * time.Second,
		}).Result()
		if err == redis.Nil {
			continue
		}
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			logger.Error("redis stream 读取失败", zap.Error(err))
			time.Sleep(time.Second)
			continue
		}

		for _, stream := range streams {
			for _, xm := range stream.Messages {
				payload, ok := xm.Values["payload"].(string)
				if !ok {
					// 坏消息直接 ACK 掉, 不堵队列
					c.client.XAck(ctx, topic, c.group, xm.ID)
					continue
				}
				key, _ := xm.Values["key"].(string)
				msg := &Message{ID: xm.ID, Topic: topic, Key: key, Payload: []byte(payload)}
				if err := handler(msg); err != nil {
					logger.Error("消息处理失败", zap.String("topic", topic), zap.Error(err))
					continue
				}
				c.client.XAck(ctx, topic, c.group, xm.ID)
			}
		}
	}
}

func (c *RedisConsumer) Close() error {
	return nil
}
