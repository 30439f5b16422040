package service

import (
	"context"
	"encoding/json"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core/internal/model"
	"settlement-core/internal/service/mq"
	"settlement-core/pkg/logger"
)

// RelayService 把 Outbox 表里的事件搬运到 MQ。
// 至少一次投递: 发送成功才标 SENT, 消费端自己做幂等。
type RelayService struct {
	db       *gorm.DB
	producer mq.Producer
	interval time.Duration
}

func NewRelayService(db *gorm.DB, producer mq.Producer) *RelayService {
	return &RelayService{
		db:       db,
		producer: producer,
		interval: 500 * time.Millisecond,
	}
}

func (s *RelayService) Start(ctx context.Context) {
	logger.Info("Outbox 中继已启动")
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("Outbox 中继已停止")
			return
		case <-ticker.C:
			s.drain(ctx)
		}
	}
}

func (s *RelayService) drain(ctx context.Context) {
	var messages []model.OutboxMessage
	if err := s.db.Where("status = ?", "PENDING").Limit(50).Find(&messages).Error; err != nil {
		logger.Error("Outbox 查询失败", zap.Error(err))
		return
	}
	for _, msg := range messages {
		key := partitionKey(msg.Payload)
		if err := s.producer.Publish(ctx, msg.Topic, key, msg.Payload); err != nil {
			logger.Error("Outbox 投递失败", zap.Uint64("id", msg.ID), zap.Error(err))
			continue
		}
		if err := s.db.Model(&msg).Update("status", "SENT").Error; err != nil {
			logger.Error("Outbox 状态更新失败", zap.Uint64("id", msg.ID), zap.Error(err))
		}
	}
}

// partitionKey 从事件体里挑分区键, 同一用户的事件要有序
func partitionKey(payload []byte) string {
	var probe struct {
		UserID json.Number `json:"user_id"`
	}
	if err := json.Unmarshal(payload, &probe); err != nil {
		return ""
	}
	return probe.UserID.String()
}
