package model

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
)

// OutboxMessage 本地消息表 (Transactional Outbox)
// 结算/充值事件先和业务数据写进同一个事务，再由 Relay 搬运到 MQ
type OutboxMessage struct {
	ID        uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	Topic     string         `gorm:"type:varchar(255);not null" json:"topic"`
	Payload   []byte         `gorm:"type:text;not null" json:"payload"`
	Status    string         `gorm:"type:varchar(50);not null;default:'PENDING';index" json:"status"` // PENDING, SENT, FAILED
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
	DeletedAt gorm.DeletedAt `gorm:"index" json:"-"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// CreateOutboxMessage 在同一个事务中创建业务数据和 Outbox 消息
func CreateOutboxMessage(tx *gorm.DB, topic string, payload interface{}) error {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	msg := OutboxMessage{
		Topic:   topic,
		Payload: payloadBytes,
		Status:  "PENDING",
	}

	return tx.Create(&msg).Error
}
