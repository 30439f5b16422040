package request

import "github.com/shopspring/decimal"

// SplitRecipientItem 模板内的一个收款人
type SplitRecipientItem struct {
	Address string          `json:"address" binding:"required"`
	Amount  decimal.Decimal `json:"amount" binding:"required"`
}

// CreateSplitTemplateRequest 创建分账模板
type CreateSplitTemplateRequest struct {
	UserID     uint64               `json:"user_id" binding:"required"`
	Name       string               `json:"name" binding:"required,max=255"`
	Chain      string               `json:"chain" binding:"required,oneof=ethereum bitcoin solana starknet stellar polkadot"`
	Network    string               `json:"network"`
	Recipients []SplitRecipientItem `json:"recipients" binding:"required,min=1,dive"`
}

// ExecuteSplitRequest 执行分账模板
// IdempotencyKey 可选, 留空由服务端生成时间窗口 key
type ExecuteSplitRequest struct {
	UserID         uint64 `json:"user_id" binding:"required"`
	IdempotencyKey string `json:"idempotency_key" binding:"max=64"`
}
