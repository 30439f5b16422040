package request

import "github.com/shopspring/decimal"

// SettleRecipient 单个收款方
type SettleRecipient struct {
	Address   string          `json:"address" binding:"required"`
	AmountUSD decimal.Decimal `json:"amount_usd" binding:"required"`
}

// SettleRequest 发起一次结算 (单笔或批量)
type SettleRequest struct {
	UserID     uint64            `json:"user_id" binding:"required"`
	Chain      string            `json:"chain" binding:"required,oneof=ethereum bitcoin solana starknet stellar polkadot"`
	Network    string            `json:"network"` // 留空默认 mainnet
	Token      string            `json:"token"`   // 留空为原生币, 可选 USDT/USDC (仅 EVM)
	Recipients []SettleRecipient `json:"recipients" binding:"required,min=1,dive"`
}
