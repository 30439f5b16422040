package service

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"settlement-core/internal/executor"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/errno"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
	"settlement-core/pkg/utils/lock"
)

const sweepLockKey = "cron:lock:fee_sweep"

// SweeperService 定时补扫 pending 的手续费转账。
// 覆盖三种掉队场景: 归集任务耗尽重试、国库地址后补配置、进程中途挂掉。
// 多实例部署靠分布式锁保证同一时刻只有一个在扫。
type SweeperService struct {
	cron     *cron.Cron
	redis    *redis.Client
	registry *executor.Registry
}

func NewSweeperService(rdb *redis.Client, registry *executor.Registry) *SweeperService {
	return &SweeperService{
		cron:     cron.New(),
		redis:    rdb,
		registry: registry,
	}
}

func (s *SweeperService) Start() {
	spec := config.Global.Worker.SweepCron
	if spec == "" {
		spec = "@every 5m"
	}
	_, _ = s.cron.AddFunc(spec, s.SweepPendingFees)
	s.cron.Start()
	logger.Info("手续费补扫已启动", zap.String("schedule", spec))
}

func (s *SweeperService) Stop() {
	s.cron.Stop()
	logger.Info("手续费补扫已停止")
}

// SweepPendingFees 重推所有 pending 的手续费转账
func (s *SweeperService) SweepPendingFees() {
	ctx, cancel := context.WithTimeout(context.Background(), 4*time.Minute)
	defer cancel()

	locker := lock.NewRedisLock(s.redis)
	locked, err := locker.Acquire(ctx, sweepLockKey, 5*time.Minute)
	if err != nil || !locked {
		return
	}
	defer locker.Release(ctx, sweepLockKey)

	rows, err := FeeLedger.ListPending(ctx, 100)
	if err != nil {
		logger.Error("补扫查询失败", zap.Error(err))
		return
	}
	for i := range rows {
		row := &rows[i]
		start := time.Now()
		if err := s.sweepOne(ctx, row.ID); err != nil {
			logger.Warn("手续费补扫一笔失败",
				zap.Uint64("fee_tx_id", row.ID),
				zap.String("chain", row.Chain),
				zap.Error(err))
		}
		monitor.Business.SweeperJobDuration.
			WithLabelValues(row.Chain).
			Observe(time.Since(start).Seconds())
	}
}

// sweepOne 重推单笔。导出给 worker 任务复用同一套逻辑。
func (s *SweeperService) sweepOne(ctx context.Context, feeTxID uint64) error {
	return CollectFee(ctx, s.registry, feeTxID)
}

// CollectFee 执行一笔 pending 手续费的链上归集。
// 幂等: 行已是终态时无操作。
func CollectFee(ctx context.Context, registry *executor.Registry, feeTxID uint64) error {
	row, err := FeeLedger.GetPending(ctx, feeTxID)
	if err != nil {
		return err
	}
	if row == nil {
		return nil // 已终态
	}
	tag := chain.Tag(row.Chain)
	network := chain.Network(row.Network)

	treasury := row.ToAddress
	if treasury == "" {
		// 落 pending 时国库没配置, 每次补扫重新解析
		treasury, err = Treasury.Resolve(tag, network)
		if errors.Is(err, errno.ErrTreasuryNotConfigured) {
			monitor.Business.FeeTransfersDeferred.
				WithLabelValues(row.Chain, "treasury_not_configured").Inc()
			return nil // 留到下一轮
		}
		if err != nil {
			return err
		}
	}

	wallet, err := KeyWallet.GetWalletByAddress(ctx, tag, row.FromAddress)
	if err != nil {
		return err
	}
	price, err := Price.USDPrice(ctx, tag)
	if err != nil {
		return err
	}
	feeNative := usdToNative(row.Amount, price, tag.NativeDecimals(), true)

	material, err := KeyWallet.SigningMaterial(wallet)
	if err != nil {
		return err
	}
	defer wipe(material)

	exec, err := registry.Get(tag)
	if err != nil {
		return err
	}
	receipt, err := exec.Transfer(ctx, &executor.Request{
		From:            wallet.Address,
		SigningMaterial: material,
		Outputs: []executor.Output{{
			To:     treasury,
			Amount: feeNative,
			Kind:   executor.KindFee,
		}},
	})
	if err != nil {
		return err
	}
	if len(receipt.Outputs) == 0 {
		return nil
	}
	res := receipt.Outputs[0]
	switch {
	case res.Success:
		return FeeLedger.Complete(ctx, feeTxID, res.TxHash)
	case res.Deferred:
		monitor.Business.FeeTransfersDeferred.
			WithLabelValues(row.Chain, res.Err).Inc()
		return nil
	default:
		return FeeLedger.Fail(ctx, feeTxID, row.Chain, res.Err)
	}
}
