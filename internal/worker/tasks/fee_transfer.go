package tasks

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"settlement-core/internal/executor"
	"settlement-core/internal/service"
	"settlement-core/pkg/logger"
)

const TypeFeeTransfer = "fee:transfer"

// FeeTransferPayload 手续费归集任务参数, 只传行 ID。
// 金额、地址等都从 pending 行里读, 避免任务和库里数据打架。
type FeeTransferPayload struct {
	FeeTxID uint64 `json:"fee_tx_id"`
}

// NewFeeTransferTask 创建手续费归集任务。
// 重试耗尽后行还是 pending, 定时补扫会接着捞。
func NewFeeTransferTask(feeTxID uint64) (*asynq.Task, error) {
	payload, err := json.Marshal(FeeTransferPayload{FeeTxID: feeTxID})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeFeeTransfer, payload,
		asynq.MaxRetry(5),
		asynq.Timeout(5*time.Minute),
		asynq.Queue("critical")), nil
}

// FeeTransferHandler 持有执行器表, 由 worker 进程注入
type FeeTransferHandler struct {
	Registry *executor.Registry
}

func (h *FeeTransferHandler) Handle(ctx context.Context, t *asynq.Task) error {
	var p FeeTransferPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return fmt.Errorf("json.Unmarshal failed: %v: %w", err, asynq.SkipRetry)
	}

	logger.Info("处理手续费归集任务", zap.Uint64("fee_tx_id", p.FeeTxID))
	if err := service.CollectFee(ctx, h.Registry, p.FeeTxID); err != nil {
		logger.Warn("手续费归集失败, 等待重试",
			zap.Uint64("fee_tx_id", p.FeeTxID), zap.Error(err))
		return err
	}
	return nil
}
