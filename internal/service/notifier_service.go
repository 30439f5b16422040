package service

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"settlement-core/internal/service/mq"
	"settlement-core/internal/service/observer"
	"settlement-core/pkg/logger"
)

// NotifierService 消费 Outbox 投递出来的事件, 作为下游通知的扇出点。
// 目前只做结构化日志落地; 接 webhook / 站内信时在 handler 里扩展。
// 一个 Consumer 实例只能挂一个 topic, 所以这里拿工厂按 topic 建
type NotifierService struct {
	newConsumer func() mq.Consumer
}

func NewNotifierService(newConsumer func() mq.Consumer) *NotifierService {
	return &NotifierService{newConsumer: newConsumer}
}

// Start 消费两个事件流, 每个 topic 一个 goroutine
func (s *NotifierService) Start(ctx context.Context) {
	go s.consume(ctx, s.newConsumer(), TopicSettlementCompleted)
	go s.consume(ctx, s.newConsumer(), observer.TopicDepositConfirmed)
}

func (s *NotifierService) consume(ctx context.Context, consumer mq.Consumer, topic string) {
	defer consumer.Close()
	err := consumer.Subscribe(ctx, topic, func(msg *mq.Message) error {
		var event map[string]interface{}
		if err := json.Unmarshal(msg.Payload, &event); err != nil {
			// 脏消息记日志后 ACK, 重投也修不好
			logger.Warn("事件 payload 解析失败", zap.String("topic", topic), zap.Error(err))
			return nil
		}
		logger.Info("结算事件",
			zap.String("topic", topic),
			zap.String("key", msg.Key),
			zap.Any("event", event))
		return nil
	})
	if err != nil && ctx.Err() == nil {
		logger.Error("事件消费退出", zap.String("topic", topic), zap.Error(err))
	}
}
