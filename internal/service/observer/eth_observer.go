package observer

import (
	"context"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"settlement-core/internal/model"
	"settlement-core/internal/service/mq"
	"settlement-core/pkg/logger"
	"settlement-core/pkg/monitor"
)

// TopicDepositConfirmed 充值事件 (经 Outbox 投递)
const TopicDepositConfirmed = "deposit.confirmed"

var weiPerEth = decimal.New(1, 18)

// EthObserver 以太坊充值扫描器。
// Fetcher 单线程按高度顺序拉区块, Worker 池并行扫块内交易。
// 通道有界, 处理不过来时 Fetcher 被背压拖住, 不会爆内存。
type EthObserver struct {
	db       *gorm.DB
	client   *ethclient.Client
	producer mq.Producer

	startHeight   uint64
	workerCount   int
	currentHeight uint64

	blocksChan chan *types.Block
	wg         sync.WaitGroup
}

func NewEthObserver(db *gorm.DB, client *ethclient.Client, producer mq.Producer, startHeight uint64, workerCount int) *EthObserver {
	if workerCount <= 0 {
		workerCount = 4
	}
	return &EthObserver{
		db:          db,
		client:      client,
		producer:    producer,
		startHeight: startHeight,
		workerCount: workerCount,
		blocksChan:  make(chan *types.Block, workerCount*2),
	}
}

func (o *EthObserver) Start(ctx context.Context) {
	logger.Info("以太坊充值扫描器启动",
		zap.Uint64("start_height", o.startHeight),
		zap.Int("workers", o.workerCount))
	o.currentHeight = o.startHeight

	for i := 0; i < o.workerCount; i++ {
		o.wg.Add(1)
		go o.worker(ctx, i)
	}
	o.wg.Add(1)
	go o.fetcher(ctx)
}

func (o *EthObserver) Wait() {
	o.wg.Wait()
}

// fetcher 顺序拉块。追上链头后等下一个块。
func (o *EthObserver) fetcher(ctx context.Context) {
	defer o.wg.Done()
	defer close(o.blocksChan)

	ticker := time.NewTicker(3 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}

		head, err := o.client.BlockNumber(ctx)
		if err != nil {
			logger.Error("查询链头失败", zap.Error(err))
			continue
		}
		for o.currentHeight <= head {
			block, err := o.client.BlockByNumber(ctx, new(big.Int).SetUint64(o.currentHeight))
			if err != nil {
				logger.Error("拉取区块失败",
					zap.Uint64("height", o.currentHeight), zap.Error(err))
				break
			}
			select {
			case o.blocksChan <- block:
				o.currentHeight++
			case <-ctx.Done():
				return
			}
		}
	}
}

func (o *EthObserver) worker(ctx context.Context, id int) {
	defer o.wg.Done()

	for block := range o.blocksChan {
		for _, tx := range block.Transactions() {
			if tx.To() == nil || tx.Value().Sign() == 0 {
				continue
			}
			o.processTransaction(ctx, block.NumberU64(), tx)
		}
	}
	logger.Info("扫描 worker 退出", zap.Int("worker", id))
}

// processTransaction 命中托管地址的交易落 Deposit + Outbox (同一个事务)
func (o *EthObserver) processTransaction(ctx context.Context, height uint64, tx *types.Transaction) {
	to := tx.To().Hex()

	var addr model.WalletAddress
	err := o.db.WithContext(ctx).
		Where("address = ? AND chain = ?", to, "ethereum").
		First(&addr).Error
	if err != nil {
		return // 不是我们的地址
	}

	amount := decimal.NewFromBigInt(tx.Value(), 0).Div(weiPerEth)
	logger.Info("发现充值",
		zap.String("tx_hash", tx.Hash().Hex()),
		zap.String("to", to),
		zap.String("amount", amount.String()))

	err = o.db.WithContext(ctx).Transaction(func(dbTx *gorm.DB) error {
		deposit := model.Deposit{
			UserID:      addr.UserID,
			AddressID:   addr.ID,
			Chain:       "ethereum",
			TxHash:      tx.Hash().Hex(),
			Amount:      amount,
			BlockHeight: height,
			Status:      "confirmed",
		}
		if err := dbTx.Create(&deposit).Error; err != nil {
			return err
		}
		return model.CreateOutboxMessage(dbTx, TopicDepositConfirmed, map[string]interface{}{
			"user_id": deposit.UserID,
			"chain":   "ethereum",
			"tx_hash": deposit.TxHash,
			"amount":  deposit.Amount.String(),
			"height":  height,
		})
	})
	if err != nil {
		// 唯一索引挡住重复 tx_hash, 重扫同一个块不会重复入账
		logger.Warn("充值入账失败", zap.String("tx_hash", tx.Hash().Hex()), zap.Error(err))
		return
	}
	f, _ := amount.Float64()
	monitor.Business.DepositAmountTotal.WithLabelValues("ethereum").Add(f)
}
