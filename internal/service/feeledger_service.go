package service

import (
	"context"
	"errors"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core/internal/model"
	"settlement-core/pkg/database"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
)

// FeeLedgerService 手续费转账的生命周期管理。
// fee_collection 交易行的状态机: pending -> confirmed / failed。
// 终态幂等: 对已终态的行再调 Complete/Fail 是无操作, 不报错。
type FeeLedgerService struct{}

var FeeLedger = &FeeLedgerService{}

// CreatePending 落一条 pending 的手续费转账记录。
// 补扫进程按 pending 行重试, 所以必须先落库再发链上交易。
func (s *FeeLedgerService) CreatePending(ctx context.Context, tx *gorm.DB, rec *model.Transaction) error {
	if tx == nil {
		tx = database.DB
	}
	rec.Type = model.TxTypeFeeCollection
	rec.Status = model.TxStatusPending
	return tx.WithContext(ctx).Create(rec).Error
}

// Complete 把 pending 行推进到 confirmed。
// WHERE status = 'pending' 保证并发下只有一个写者赢, 重复调用无效果。
func (s *FeeLedgerService) Complete(ctx context.Context, id uint64, txHash string) error {
	res := database.DB.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND type = ? AND status = ?", id, model.TxTypeFeeCollection, model.TxStatusPending).
		Updates(map[string]interface{}{
			"status":  model.TxStatusConfirmed,
			"tx_hash": txHash,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		logger.Info("手续费记录已是终态, 跳过", zap.Uint64("id", id))
	}
	return nil
}

// Fail 把 pending 行推进到 failed 并记录原因
func (s *FeeLedgerService) Fail(ctx context.Context, id uint64, chainTag, reason string) error {
	res := database.DB.WithContext(ctx).
		Model(&model.Transaction{}).
		Where("id = ? AND type = ? AND status = ?", id, model.TxTypeFeeCollection, model.TxStatusPending).
		Updates(map[string]interface{}{
			"status": model.TxStatusFailed,
			"error":  reason,
		})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected > 0 {
		monitor.Business.FeeTransfersFailed.WithLabelValues(chainTag).Inc()
	}
	return nil
}

// GetPending 取单条 pending 行。已终态或不存在时返回 nil, 不算错误。
func (s *FeeLedgerService) GetPending(ctx context.Context, id uint64) (*model.Transaction, error) {
	var row model.Transaction
	err := database.DB.WithContext(ctx).
		Where("id = ? AND type = ? AND status = ?", id, model.TxTypeFeeCollection, model.TxStatusPending).
		First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

// ListPending 给补扫进程用, 按创建时间升序
func (s *FeeLedgerService) ListPending(ctx context.Context, limit int) ([]model.Transaction, error) {
	var rows []model.Transaction
	err := database.DB.WithContext(ctx).
		Where("type = ? AND status = ?", model.TxTypeFeeCollection, model.TxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error
	return rows, err
}

// RecordFee 在收款方转账确认后写入计费记录。
// 这张表不可变, 也不等手续费归集完成: 计费和归集是两件事。
func (s *FeeLedgerService) RecordFee(ctx context.Context, tx *gorm.DB, rec *model.FeeRecord) error {
	if tx == nil {
		tx = database.DB
	}
	if err := tx.WithContext(ctx).Create(rec).Error; err != nil {
		return err
	}
	fee, _ := rec.Fee.Float64()
	monitor.Business.FeeRevenueUSD.WithLabelValues(rec.Chain).Add(fee)
	return nil
}

// SumRevenue 统计某条链已计费的手续费总额 (USD)
func (s *FeeLedgerService) SumRevenue(ctx context.Context, chainTag string) (decimal.Decimal, error) {
	var total decimal.NullDecimal
	err := database.DB.WithContext(ctx).
		Model(&model.FeeRecord{}).
		Select("SUM(fee)").
		Where("chain = ?", chainTag).
		Scan(&total).Error
	if err != nil {
		return decimal.Zero, err
	}
	if !total.Valid {
		return decimal.Zero, nil
	}
	return total.Decimal, nil
}
