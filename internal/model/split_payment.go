package model

import (
	"time"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// SplitPaymentTemplate 可复用的分账模板
// 持有一条链上的出账地址和一组固定收款人，可重复执行
type SplitPaymentTemplate struct {
	ID          uint64         `gorm:"primaryKey;autoIncrement" json:"id"`
	UserID      uint64         `gorm:"not null;index" json:"user_id"`
	Name        string         `gorm:"type:varchar(255);not null" json:"name"`
	Chain       string         `gorm:"type:varchar(20);not null" json:"chain"`
	Network     string         `gorm:"type:varchar(20);not null;default:'mainnet'" json:"network"`
	FromAddress string         `gorm:"type:varchar(255);not null" json:"from_address"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
	DeletedAt   gorm.DeletedAt `gorm:"index" json:"-"`

	Recipients []SplitPaymentRecipient `gorm:"foreignKey:TemplateID" json:"recipients,omitempty"`
}

// SplitPaymentRecipient 模板内的收款人 (有序)
type SplitPaymentRecipient struct {
	ID         uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	TemplateID uint64          `gorm:"not null;index" json:"template_id"`
	Position   int             `gorm:"not null" json:"position"`
	Address    string          `gorm:"type:varchar(255);not null" json:"address"`
	Amount     decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	CreatedAt  time.Time       `json:"created_at"`
}

// SplitPaymentExecution 一次模板执行
// 统计字段在全部收款人处理完后回填; 行本身 append-only
type SplitPaymentExecution struct {
	ID                 uint64    `gorm:"primaryKey;autoIncrement" json:"id"`
	TemplateID         uint64    `gorm:"not null;index" json:"template_id"`
	IdempotencyKey     string    `gorm:"type:varchar(64);uniqueIndex" json:"idempotency_key"`
	Status             string    `gorm:"type:varchar(20);not null;default:'running'" json:"status"` // running, completed
	TotalRecipients    int       `gorm:"not null" json:"total_recipients"`
	SuccessfulPayments int       `gorm:"not null;default:0" json:"successful_payments"`
	FailedPayments     int       `gorm:"not null;default:0" json:"failed_payments"`
	CreatedAt          time.Time `json:"created_at"`
	CompletedAt        *time.Time `json:"completed_at,omitempty"`

	Results []SplitPaymentExecutionResult `gorm:"foreignKey:ExecutionID" json:"results,omitempty"`
}

// SplitPaymentExecutionResult 单个收款人的执行结果
// 1000 人的批次部分失败时，成功的 600 条记录也必须留痕
type SplitPaymentExecutionResult struct {
	ID          uint64          `gorm:"primaryKey;autoIncrement" json:"id"`
	ExecutionID uint64          `gorm:"not null;index" json:"execution_id"`
	Position    int             `gorm:"not null" json:"position"`
	Address     string          `gorm:"type:varchar(255);not null" json:"address"`
	Amount      decimal.Decimal `gorm:"type:decimal(32,18);not null" json:"amount"`
	Success     bool            `gorm:"not null" json:"success"`
	TxHash      string          `gorm:"type:varchar(255)" json:"tx_hash,omitempty"`
	Error       string          `gorm:"type:text" json:"error,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
}

func (SplitPaymentTemplate) TableName() string {
	return "split_payment_templates"
}

func (SplitPaymentRecipient) TableName() string {
	return "split_payment_recipients"
}

func (SplitPaymentExecution) TableName() string {
	return "split_payment_executions"
}

func (SplitPaymentExecutionResult) TableName() string {
	return "split_payment_execution_results"
}
