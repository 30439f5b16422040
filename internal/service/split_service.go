package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core/internal/model"
	"settlement-core/pkg/cache"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/crypto_util"
	"settlement-core/pkg/database"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/logger"
)

// SplitService 分账模板: 一组固定收款人, 可重复执行。
// 执行靠幂等键防重放: 同一个键只会真正执行一次。
type SplitService struct {
	cache cache.Cache // 可空, 不配缓存就全走 DB
}

var Split = &SplitService{}

const splitTemplateTTL = 5 * time.Minute

// InitSplitCache 给模板读挂缓存 (本地 + Redis 两级)
func InitSplitCache(c cache.Cache) {
	Split.cache = c
}

func splitTemplateKey(userID, templateID uint64) string {
	return fmt.Sprintf("split:tpl:%d:%d", userID, templateID)
}

// CreateTemplate 建模板, 收款人按传入顺序编号
func (s *SplitService) CreateTemplate(ctx context.Context, tpl *model.SplitPaymentTemplate) error {
	if len(tpl.Recipients) == 0 {
		return errno.ErrNoRecipients
	}
	for i := range tpl.Recipients {
		if tpl.Recipients[i].Amount.IsNegative() {
			return errno.ErrInvalidAmount
		}
		tpl.Recipients[i].Position = i
	}
	return database.DB.WithContext(ctx).Create(tpl).Error
}

// GetTemplate 取模板和有序的收款人列表
func (s *SplitService) GetTemplate(ctx context.Context, userID, templateID uint64) (*model.SplitPaymentTemplate, error) {
	var tpl model.SplitPaymentTemplate
	if s.cache != nil {
		if err := s.cache.Get(ctx, splitTemplateKey(userID, templateID), &tpl); err == nil {
			return &tpl, nil
		}
	}

	err := database.DB.WithContext(ctx).
		Preload("Recipients", func(db *gorm.DB) *gorm.DB {
			return db.Order("position ASC")
		}).
		Where("id = ? AND user_id = ?", templateID, userID).
		First(&tpl).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, errno.ErrTemplateNotFound
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if cerr := s.cache.Set(ctx, splitTemplateKey(userID, templateID), &tpl, splitTemplateTTL); cerr != nil {
			logger.Warn("模板缓存写入失败", zap.Error(cerr))
		}
	}
	return &tpl, nil
}

// ListTemplates 用户的模板列表 (不带收款人)
func (s *SplitService) ListTemplates(ctx context.Context, userID uint64) ([]model.SplitPaymentTemplate, error) {
	var tpls []model.SplitPaymentTemplate
	err := database.DB.WithContext(ctx).
		Where("user_id = ?", userID).
		Order("created_at DESC").
		Find(&tpls).Error
	return tpls, err
}

func (s *SplitService) DeleteTemplate(ctx context.Context, userID, templateID uint64) error {
	res := database.DB.WithContext(ctx).
		Where("id = ? AND user_id = ?", templateID, userID).
		Delete(&model.SplitPaymentTemplate{})
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return errno.ErrTemplateNotFound
	}
	if s.cache != nil {
		_ = s.cache.Delete(ctx, splitTemplateKey(userID, templateID))
	}
	return nil
}

// Execute 执行一次分账。
// clientKey 是调用方的幂等键; 同键重放直接返回既有执行记录。
// 部分失败不回滚: 成功的照常留痕, 失败的逐条记错误。
func (s *SplitService) Execute(ctx context.Context, userID, templateID uint64, clientKey string) (*model.SplitPaymentExecution, error) {
	tpl, err := s.GetTemplate(ctx, userID, templateID)
	if err != nil {
		return nil, err
	}

	if clientKey == "" {
		// 没给键就按模板加时间窗生成, 至少挡住双击级别的重放
		clientKey = fmt.Sprintf("auto:%d:%d", templateID, time.Now().Unix()/10)
	}
	idemKey := crypto_util.CalculateBlake3([]byte(fmt.Sprintf("%d:%d:%s", userID, templateID, clientKey)))

	// 先占坑: 唯一索引兜底并发下的重复执行
	exec := &model.SplitPaymentExecution{
		TemplateID:      templateID,
		IdempotencyKey:  idemKey,
		Status:          "running",
		TotalRecipients: len(tpl.Recipients),
	}
	if err := database.DB.WithContext(ctx).Create(exec).Error; err != nil {
		var existing model.SplitPaymentExecution
		ferr := database.DB.WithContext(ctx).
			Preload("Results").
			Where("idempotency_key = ?", idemKey).
			First(&existing).Error
		if ferr == nil {
			logger.Info("分账重放, 返回既有执行记录",
				zap.Uint64("template_id", templateID),
				zap.Uint64("execution_id", existing.ID))
			return &existing, nil
		}
		return nil, err
	}

	recipients := make([]SettlementRecipient, 0, len(tpl.Recipients))
	for _, r := range tpl.Recipients {
		recipients = append(recipients, SettlementRecipient{
			Address:   r.Address,
			AmountUSD: r.Amount,
		})
	}
	outcome, err := Settlement.Settle(ctx, &SettlementRequest{
		UserID:     userID,
		Chain:      chain.Tag(tpl.Chain),
		Network:    chain.Network(tpl.Network),
		Recipients: recipients,
	})
	if err != nil {
		// 整体失败也要结单, 不留悬挂的 running 行
		now := time.Now()
		exec.Status = "completed"
		exec.FailedPayments = len(tpl.Recipients)
		exec.CompletedAt = &now
		_ = database.DB.WithContext(ctx).Save(exec).Error
		return exec, err
	}

	return exec, s.finish(ctx, exec, tpl, outcome)
}

func (s *SplitService) finish(ctx context.Context, exec *model.SplitPaymentExecution, tpl *model.SplitPaymentTemplate, outcome *SettlementOutcome) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for i, ro := range outcome.Recipients {
			res := model.SplitPaymentExecutionResult{
				ExecutionID: exec.ID,
				Position:    i,
				Address:     ro.Address,
				Amount:      ro.AmountUSD,
				Success:     ro.Success,
				TxHash:      ro.TxHash,
				Error:       ro.Error,
			}
			if err := tx.Create(&res).Error; err != nil {
				return err
			}
			exec.Results = append(exec.Results, res)
			if ro.Success {
				exec.SuccessfulPayments++
			} else {
				exec.FailedPayments++
			}
		}
		now := time.Now()
		exec.Status = "completed"
		exec.CompletedAt = &now
		return tx.Save(exec).Error
	})
}
