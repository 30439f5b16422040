package model

import (
	"time"

	"github.com/shopspring/decimal"
)

// 交易类型
const (
	TxTypeTransfer      = "transfer"       // 用户转账 (收款方出账)
	TxTypeFeeCollection = "fee_collection" // 平台手续费归集
)

// 交易状态
const (
	TxStatusPending   = "pending"
	TxStatusConfirmed = "confirmed"
	TxStatusFailed    = "failed"
)

// Transaction 链上交易记录表
// type = fee_collection 的行即手续费转账的生命周期记录:
// pending 行是后台补扫进程的重试信号，confirmed/failed 为终态。
// 状态只允许通过 FeeLedgerService 的三个操作变更。
type Transaction struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64          `gorm:"not null;index" json:"user_id"`
	Type        string          `gorm:"type:varchar(32);not null;index:idx_type_status" json:"type"`
	FromAddress string          `gorm:"type:varchar(255);not null" json:"from_address"`
	ToAddress   string          `gorm:"type:varchar(255);not null" json:"to_address"`
	Amount      decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	Chain       string          `gorm:"type:varchar(20);not null" json:"chain"`
	Network     string          `gorm:"type:varchar(20);not null;default:'mainnet'" json:"network"`
	Status      string          `gorm:"type:varchar(20);not null;index:idx_type_status" json:"status"`
	TxHash      string          `gorm:"type:varchar(255)" json:"tx_hash"`
	Error       string          `gorm:"type:text" json:"error,omitempty"`
	Details     []byte          `gorm:"type:jsonb" json:"details,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   time.Time       `json:"updated_at"`
}

// FeeRecord 手续费计费记录
// 在收款方转账确认之后创建 (绝不提前)，创建后不可变。
type FeeRecord struct {
	ID            uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID        uint64          `gorm:"not null;index" json:"user_id"`
	TransactionID uint64          `gorm:"not null;index" json:"transaction_id"` // 关联结算交易
	Amount        decimal.Decimal `gorm:"type:decimal(18,2);not null" json:"amount"` // USD
	Fee           decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"fee"`    // USD
	Total         decimal.Decimal `gorm:"type:decimal(18,6);not null" json:"total"`  // amount + fee
	Tier          string          `gorm:"type:varchar(32);not null" json:"tier"`
	FeePercentage decimal.Decimal `gorm:"type:decimal(10,6);not null" json:"fee_percentage"`
	FeeType       string          `gorm:"type:varchar(32);not null;default:'transfer'" json:"fee_type"`
	Chain         string          `gorm:"type:varchar(20);not null" json:"chain"`
	Network       string          `gorm:"type:varchar(20);not null;default:'mainnet'" json:"network"`
	Metadata      []byte          `gorm:"type:jsonb" json:"metadata,omitempty"`
	CreatedAt     time.Time       `json:"created_at"`
}

func (Transaction) TableName() string {
	return "transactions"
}

func (FeeRecord) TableName() string {
	return "fee_records"
}
