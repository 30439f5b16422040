package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core/internal/executor"
	"settlement-core/internal/model"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/database"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
)

// TopicSettlementCompleted 结算完成事件 (经 Outbox 投递)
const TopicSettlementCompleted = "settlement.completed"

// bundledFeeChains 支持把手续费腿和出账腿打进同一笔交易的链。
// 其余链的手续费走异步归集队列。
var bundledFeeChains = map[chain.Tag]bool{
	chain.Bitcoin:  true,
	chain.Solana:   true,
	chain.Starknet: true,
	chain.Stellar:  true,
}

// FeeCollector 异步手续费归集的入队口, 由 worker 客户端实现
type FeeCollector interface {
	EnqueueFeeTransfer(ctx context.Context, feeTxID uint64) error
}

type SettlementService struct {
	registry  *executor.Registry
	collector FeeCollector
}

var Settlement *SettlementService

func InitSettlementService(reg *executor.Registry, collector FeeCollector) {
	Settlement = &SettlementService{registry: reg, collector: collector}
}

// SettlementRecipient 单个收款方, 金额以 USD 计
type SettlementRecipient struct {
	Address   string          `json:"address"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
}

type SettlementRequest struct {
	UserID     uint64                `json:"user_id"`
	Chain      chain.Tag             `json:"chain"`
	Network    chain.Network         `json:"network"`
	Token      string                `json:"token"`
	Recipients []SettlementRecipient `json:"recipients"`
}

// RecipientOutcome 单个收款方的结算结果。
// 批量结算中一笔失败不影响其他笔, 调用方逐笔看结果。
type RecipientOutcome struct {
	Address   string          `json:"address"`
	AmountUSD decimal.Decimal `json:"amount_usd"`
	FeeUSD    decimal.Decimal `json:"fee_usd"`
	Tier      string          `json:"tier"`
	Success   bool            `json:"success"`
	TxHash    string          `json:"tx_hash,omitempty"`
	Confirmed bool            `json:"confirmed"`
	Error     string          `json:"error,omitempty"`
}

type SettlementOutcome struct {
	Chain       chain.Tag          `json:"chain"`
	TxHash      string             `json:"tx_hash,omitempty"`
	Recipients  []RecipientOutcome `json:"recipients"`
	TotalFeeUSD decimal.Decimal    `json:"total_fee_usd"`
	// FeeCollection: bundled / async / deferred / none
	FeeCollection string `json:"fee_collection"`
}

// Settle 执行一次结算: 收款方拿全额, 手续费另行归集。
// 确认超时不算失败, tx_hash 照常返回。
func (s *SettlementService) Settle(ctx context.Context, req *SettlementRequest) (*SettlementOutcome, error) {
	if len(req.Recipients) == 0 {
		return nil, errno.ErrNoRecipients
	}
	// 金额必须为正, 在碰任何链和外部服务之前挡掉
	for _, r := range req.Recipients {
		if !r.AmountUSD.IsPositive() {
			return nil, fmt.Errorf("%w: %s", errno.ErrInvalidAmount, r.AmountUSD)
		}
	}
	kind := "single"
	if len(req.Recipients) > 1 {
		kind = "batch"
	}
	start := time.Now()
	defer func() {
		monitor.Business.SettlementDuration.
			WithLabelValues(string(req.Chain), kind).
			Observe(time.Since(start).Seconds())
	}()

	wallet, err := KeyWallet.GetWallet(ctx, req.UserID, req.Chain, req.Network)
	if err != nil {
		return nil, err
	}

	price, err := Price.USDPrice(ctx, req.Chain)
	if err != nil {
		return nil, err
	}

	amounts := make([]decimal.Decimal, 0, len(req.Recipients))
	for _, r := range req.Recipients {
		amounts = append(amounts, r.AmountUSD)
	}
	quotes, totalFeeUSD, err := Fee.CalculateBatch(amounts)
	if err != nil {
		return nil, err
	}

	decimals := req.Chain.NativeDecimals()

	outputs := make([]executor.Output, 0, len(req.Recipients)+1)
	for _, r := range req.Recipients {
		// 出账金额向下取整, 不多付
		native := usdToNative(r.AmountUSD, price, decimals, false)
		if native.Sign() <= 0 {
			return nil, fmt.Errorf("%w: %s 折算后不足一个最小单位", errno.ErrInvalidAmount, r.AmountUSD)
		}
		outputs = append(outputs, executor.Output{
			To:     r.Address,
			Amount: native,
			Kind:   executor.KindPayout,
		})
	}

	outcome := &SettlementOutcome{
		Chain:         req.Chain,
		TotalFeeUSD:   totalFeeUSD,
		FeeCollection: "none",
	}

	// 手续费腿: 先落 pending 行, 再决定打包还是异步
	var feeTx *model.Transaction
	if totalFeeUSD.IsPositive() {
		// 手续费向上取整, 平台不少收
		feeNative := usdToNative(totalFeeUSD, price, decimals, true)
		treasury, terr := Treasury.Resolve(req.Chain, req.Network)
		switch {
		case errors.Is(terr, errno.ErrTreasuryNotConfigured):
			// 不挡出账: 留 pending 行给补扫进程, 等配置补上
			monitor.Business.FeeTransfersDeferred.
				WithLabelValues(string(req.Chain), "treasury_not_configured").Inc()
			feeTx = s.newFeeTx(req, wallet.Address, "", totalFeeUSD, price)
			if err := FeeLedger.CreatePending(ctx, nil, feeTx); err != nil {
				return nil, err
			}
			outcome.FeeCollection = "deferred"
		case terr != nil:
			return nil, terr
		case bundledFeeChains[req.Chain]:
			feeTx = s.newFeeTx(req, wallet.Address, treasury, totalFeeUSD, price)
			if err := FeeLedger.CreatePending(ctx, nil, feeTx); err != nil {
				return nil, err
			}
			outputs = append(outputs, executor.Output{
				To:     treasury,
				Amount: feeNative,
				Kind:   executor.KindFee,
			})
			outcome.FeeCollection = "bundled"
		default:
			feeTx = s.newFeeTx(req, wallet.Address, treasury, totalFeeUSD, price)
			if err := FeeLedger.CreatePending(ctx, nil, feeTx); err != nil {
				return nil, err
			}
			outcome.FeeCollection = "async"
		}
	}

	material, err := KeyWallet.SigningMaterial(wallet)
	if err != nil {
		return nil, err
	}
	defer wipe(material)

	exec, err := s.registry.Get(req.Chain)
	if err != nil {
		return nil, err
	}
	receipt, err := exec.Transfer(ctx, &executor.Request{
		From:            wallet.Address,
		SigningMaterial: material,
		Outputs:         outputs,
		Token:           req.Token,
	})
	if err != nil {
		if feeTx != nil {
			_ = FeeLedger.Fail(ctx, feeTx.ID, string(req.Chain), err.Error())
		}
		return nil, err
	}
	outcome.TxHash = receipt.TxHash

	if err := s.recordResults(ctx, req, wallet.Address, quotes, receipt, feeTx, outcome); err != nil {
		return nil, err
	}

	// 异步归集在出账结果落库之后入队
	if outcome.FeeCollection == "async" && s.anySuccess(outcome) {
		if s.collector == nil {
			logger.Warn("未配置归集队列, 手续费留给补扫进程", zap.Uint64("fee_tx_id", feeTx.ID))
		} else if err := s.collector.EnqueueFeeTransfer(ctx, feeTx.ID); err != nil {
			// 入队失败不致命, pending 行兜底
			logger.Error("手续费归集入队失败", zap.Uint64("fee_tx_id", feeTx.ID), zap.Error(err))
		}
	}
	return outcome, nil
}

// recordResults 把链上结果落库: 逐笔交易行、计费行、手续费状态、Outbox 事件
func (s *SettlementService) recordResults(ctx context.Context, req *SettlementRequest, from string, quotes []*FeeQuote, receipt *executor.Receipt, feeTx *model.Transaction, outcome *SettlementOutcome) error {
	return database.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		payoutIdx := 0
		for _, res := range receipt.Outputs {
			if res.Kind == executor.KindFee {
				if feeTx == nil {
					continue
				}
				switch {
				case res.Success:
					if err := completeFeeIn(tx, feeTx.ID, res.TxHash); err != nil {
						return err
					}
				case res.Deferred:
					monitor.Business.FeeTransfersDeferred.
						WithLabelValues(string(req.Chain), res.Err).Inc()
					outcome.FeeCollection = "deferred"
				default:
					if err := failFeeIn(tx, feeTx.ID, res.Err); err != nil {
						return err
					}
					monitor.Business.FeeTransfersFailed.WithLabelValues(string(req.Chain)).Inc()
				}
				continue
			}
			if payoutIdx >= len(req.Recipients) {
				break
			}
			r := req.Recipients[payoutIdx]
			q := quotes[payoutIdx]
			payoutIdx++

			ro := RecipientOutcome{
				Address:   r.Address,
				AmountUSD: r.AmountUSD,
				FeeUSD:    q.Fee,
				Tier:      q.Tier,
				Success:   res.Success,
				TxHash:    res.TxHash,
				Confirmed: res.Confirmed,
				Error:     res.Err,
			}
			outcome.Recipients = append(outcome.Recipients, ro)

			status := model.TxStatusFailed
			result := "failed"
			if res.Success {
				result = "success"
				status = model.TxStatusPending
				if res.Confirmed {
					status = model.TxStatusConfirmed
				}
			}
			monitor.Business.PayoutTotal.WithLabelValues(string(req.Chain), result).Inc()

			row := &model.Transaction{
				UserID:      req.UserID,
				Type:        model.TxTypeTransfer,
				FromAddress: from,
				ToAddress:   r.Address,
				Amount:      r.AmountUSD,
				Chain:       string(req.Chain),
				Network:     string(req.Network),
				Status:      status,
				TxHash:      res.TxHash,
				Error:       res.Err,
			}
			if err := tx.Create(row).Error; err != nil {
				return err
			}

			if res.Success {
				usd, _ := r.AmountUSD.Float64()
				monitor.Business.PayoutAmountUSD.WithLabelValues(string(req.Chain)).Add(usd)
			}
			if billable(res) {
				fee := &model.FeeRecord{
					UserID:        req.UserID,
					TransactionID: row.ID,
					Amount:        q.Amount,
					Fee:           q.Fee,
					Total:         q.Total,
					Tier:          q.Tier,
					FeePercentage: q.FeePercentage,
					FeeType:       "transfer",
					Chain:         string(req.Chain),
					Network:       string(req.Network),
				}
				if err := tx.Create(fee).Error; err != nil {
					return err
				}
				feeUSD, _ := q.Fee.Float64()
				monitor.Business.FeeRevenueUSD.WithLabelValues(string(req.Chain)).Add(feeUSD)
			}
		}

		payload, _ := json.Marshal(outcome)
		var event map[string]interface{}
		_ = json.Unmarshal(payload, &event)
		return model.CreateOutboxMessage(tx, TopicSettlementCompleted, event)
	})
}

func (s *SettlementService) newFeeTx(req *SettlementRequest, from, treasury string, feeUSD decimal.Decimal, price decimal.Decimal) *model.Transaction {
	details, _ := json.Marshal(map[string]string{
		"price_usd": price.String(),
		"token":     req.Token,
	})
	return &model.Transaction{
		UserID:      req.UserID,
		FromAddress: from,
		ToAddress:   treasury,
		Amount:      feeUSD,
		Chain:       string(req.Chain),
		Network:     string(req.Network),
		Details:     details,
	}
}

// billable 计费行只记给确认落块的出账。
// 发了没确认的那笔留在 pending 交易行里, 不提前开票。
func billable(res executor.OutputResult) bool {
	return res.Success && res.Confirmed
}

func (s *SettlementService) anySuccess(outcome *SettlementOutcome) bool {
	for _, r := range outcome.Recipients {
		if r.Success {
			return true
		}
	}
	return false
}

// completeFeeIn / failFeeIn 在外层事务里推进手续费状态
func completeFeeIn(tx *gorm.DB, id uint64, txHash string) error {
	return tx.Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TxStatusPending).
		Updates(map[string]interface{}{
			"status":  model.TxStatusConfirmed,
			"tx_hash": txHash,
		}).Error
}

func failFeeIn(tx *gorm.DB, id uint64, reason string) error {
	return tx.Model(&model.Transaction{}).
		Where("id = ? AND status = ?", id, model.TxStatusPending).
		Updates(map[string]interface{}{
			"status": model.TxStatusFailed,
			"error":  reason,
		}).Error
}

// usdToNative 把 USD 金额折算成链上最小单位
func usdToNative(usd, price decimal.Decimal, decimals int32, roundUp bool) *big.Int {
	native := usd.Div(price).Mul(decimal.New(1, decimals))
	if roundUp {
		return native.Ceil().BigInt()
	}
	return native.Floor().BigInt()
}

// wipe 覆写签名材料, 降低驻留内存被 dump 的窗口
func wipe(b []byte) {
	for i := range b {
		b[i] = 0
	}
}

