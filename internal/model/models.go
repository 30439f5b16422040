package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// WalletAddress 托管地址表
// EncryptedKey 是经 KeyVault 加密的签名材料 (私钥/助记词/种子)，永不明文落库
type WalletAddress struct {
	ID           uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID       uint64         `gorm:"not null;index" json:"user_id"`
	Chain        string         `gorm:"type:varchar(20);not null;uniqueIndex:idx_chain_address" json:"chain"`
	Network      string         `gorm:"type:varchar(20);not null;default:'mainnet'" json:"network"`
	Address      string         `gorm:"type:varchar(255);not null;uniqueIndex:idx_chain_address" json:"address"`
	PublicKey    string         `gorm:"type:varchar(255)" json:"public_key"`
	EncryptedKey string         `gorm:"type:text;not null" json:"-"` // 不对外返回
	CreatedAt    time.Time      `json:"created_at"`
	DeletedAt    gorm.DeletedAt `gorm:"index" json:"-"`
}

// Deposit 充值记录表 (由链上扫描器写入)
type Deposit struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64          `gorm:"not null;index" json:"user_id"`
	AddressID   uint64          `gorm:"not null;index" json:"address_id"`
	Chain       string          `gorm:"type:varchar(20);not null" json:"chain"`
	TxHash      string          `gorm:"type:varchar(255);not null;uniqueIndex:idx_deposit_tx" json:"tx_hash"`
	Amount      decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	BlockHeight uint64          `gorm:"not null" json:"block_height"`
	Status      string          `gorm:"type:varchar(20);not null" json:"status"` // pending, confirmed
	CreatedAt   time.Time       `json:"created_at"`
	ConfirmedAt *time.Time      `json:"confirmed_at,omitempty"`
}

func (WalletAddress) TableName() string {
	return "wallet_addresses"
}

func (Deposit) TableName() string {
	return "deposits"
}
