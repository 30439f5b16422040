package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gagliardetto/solana-go"
	"github.com/gagliardetto/solana-go/programs/system"
	"github.com/gagliardetto/solana-go/rpc"
	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
)

// maxTransfersPerTx 单笔交易打包的 transfer 指令上限，留出签名和账户表的空间
const maxTransfersPerTx = 8

// lamportsPerSignature 基础签名费，每笔交易一个签名
const lamportsPerSignature = 5000

// SolanaExecutor Solana 执行器。
// 多个出账打包成一笔交易的多条 transfer 指令; 超出上限则分批，
// 批间强制延迟，避免公共 RPC 的限流。
type SolanaExecutor struct {
	pool       *EndpointPool
	batchDelay time.Duration
}

func NewSolanaExecutor(pool *EndpointPool, batchDelay time.Duration) *SolanaExecutor {
	if batchDelay <= 0 {
		batchDelay = 500 * time.Millisecond
	}
	return &SolanaExecutor{pool: pool, batchDelay: batchDelay}
}

func (e *SolanaExecutor) Chain() chain.Tag {
	return chain.Solana
}

func (e *SolanaExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	privKey, err := solana.PrivateKeyFromBase58(strings.TrimSpace(string(req.SigningMaterial)))
	if err != nil {
		return nil, fmt.Errorf("%w: 解析私钥失败", ErrSubmissionFailed)
	}
	payer := privKey.PublicKey()

	receipt := &Receipt{Outputs: make([]OutputResult, 0, len(req.Outputs))}

	err = e.pool.Do(ctx, func(ctx context.Context, endpoint string) error {
		client := rpc.New(endpoint)
		defer client.Close()

		// 租金豁免预检: 给未初始化账户转入低于豁免线的金额会被链上拒绝
		rentMin, err := client.GetMinimumBalanceForRentExemption(ctx, 0, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}

		// 出账账户预检: 总额加上每批一个签名的费用
		senderBal, err := client.GetBalance(ctx, payer, rpc.CommitmentFinalized)
		if err != nil {
			return err
		}
		need, ok := requiredLamports(req.Outputs)
		if ok && senderBal.Value < need {
			return fmt.Errorf("%w: 余额 %d 不足以覆盖出账总额和签名费 %d", ErrInsufficientFunds, senderBal.Value, need)
		}

		receipt.Outputs = receipt.Outputs[:0]
		receipt.TxHash = ""

		batch := make([]Output, 0, maxTransfersPerTx)
		flush := func() error {
			if len(batch) == 0 {
				return nil
			}
			results := e.sendBatch(ctx, client, privKey, payer, batch)
			receipt.Outputs = append(receipt.Outputs, results...)
			if receipt.TxHash == "" {
				for _, r := range results {
					if r.TxHash != "" {
						receipt.TxHash = r.TxHash
						break
					}
				}
			}
			batch = batch[:0]
			return nil
		}

		for _, out := range req.Outputs {
			if skip, reason := e.preflight(ctx, client, out, rentMin); skip {
				receipt.Outputs = append(receipt.Outputs, failResult(out, fmt.Errorf("%s", reason)))
				continue
			}
			batch = append(batch, out)
			if len(batch) == maxTransfersPerTx {
				if err := flush(); err != nil {
					return err
				}
				select {
				case <-ctx.Done():
					return ctx.Err()
				case <-time.After(e.batchDelay):
				}
			}
		}
		return flush()
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// requiredLamports 出账总额加上按批次数计的签名费。
// 任一金额超出 uint64 时返回 ok=false，交给逐笔预检去拦。
func requiredLamports(outputs []Output) (uint64, bool) {
	var total uint64
	for _, out := range outputs {
		if !out.Amount.IsUint64() {
			return 0, false
		}
		total += out.Amount.Uint64()
	}
	numTxs := (len(outputs) + maxTransfersPerTx - 1) / maxTransfersPerTx
	return total + uint64(numTxs)*lamportsPerSignature, true
}

// preflight 检查收款账户转入后是否达到租金豁免线
func (e *SolanaExecutor) preflight(ctx context.Context, client *rpc.Client, out Output, rentMin uint64) (bool, string) {
	to, err := solana.PublicKeyFromBase58(out.To)
	if err != nil {
		return true, fmt.Sprintf("无效的收款地址 %s", out.To)
	}
	if !out.Amount.IsUint64() {
		return true, "出账金额超出范围"
	}
	bal, err := client.GetBalance(ctx, to, rpc.CommitmentFinalized)
	if err != nil {
		// 查询失败不拦截，留给链上判定
		return false, ""
	}
	if bal.Value+out.Amount.Uint64() < rentMin {
		return true, fmt.Sprintf("转入后余额 %d 低于租金豁免线 %d", bal.Value+out.Amount.Uint64(), rentMin)
	}
	return false, ""
}

// sendBatch 把一批出账打包成一笔交易提交并轮询确认
func (e *SolanaExecutor) sendBatch(ctx context.Context, client *rpc.Client, privKey solana.PrivateKey, payer solana.PublicKey, batch []Output) []OutputResult {
	failAll := func(err error) []OutputResult {
		results := make([]OutputResult, 0, len(batch))
		for _, out := range batch {
			results = append(results, failResult(out, err))
		}
		return results
	}

	instructions := make([]solana.Instruction, 0, len(batch))
	for _, out := range batch {
		to := solana.MustPublicKeyFromBase58(out.To)
		instructions = append(instructions,
			system.NewTransferInstruction(out.Amount.Uint64(), payer, to).Build())
	}

	blockhash, err := client.GetLatestBlockhash(ctx, rpc.CommitmentFinalized)
	if err != nil {
		return failAll(fmt.Errorf("获取区块哈希失败: %v", err))
	}

	tx, err := solana.NewTransaction(instructions,
		blockhash.Value.Blockhash,
		solana.TransactionPayer(payer))
	if err != nil {
		return failAll(fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}
	_, err = tx.Sign(func(key solana.PublicKey) *solana.PrivateKey {
		if key.Equals(payer) {
			return &privKey
		}
		return nil
	})
	if err != nil {
		return failAll(fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	sig, err := client.SendTransaction(ctx, tx)
	if err != nil {
		if strings.Contains(err.Error(), "insufficient") {
			return failAll(ErrInsufficientFunds)
		}
		return failAll(fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	confirmed := e.waitFinalized(ctx, client, sig)
	if !confirmed {
		logger.Warn("交易已发送但确认超时",
			zap.String("chain", "solana"),
			zap.String("tx_hash", sig.String()))
	}

	results := make([]OutputResult, 0, len(batch))
	for _, out := range batch {
		results = append(results, okResult(out, sig.String(), confirmed))
	}
	return results
}

func (e *SolanaExecutor) waitFinalized(ctx context.Context, client *rpc.Client, sig solana.Signature) bool {
	for i := 0; i < 10; i++ {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(3 * time.Second):
		}
		status, err := client.GetSignatureStatuses(ctx, false, sig)
		if err != nil || len(status.Value) == 0 || status.Value[0] == nil {
			continue
		}
		cs := status.Value[0].ConfirmationStatus
		if cs == rpc.ConfirmationStatusFinalized || cs == rpc.ConfirmationStatusConfirmed {
			return true
		}
	}
	return false
}
