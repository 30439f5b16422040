package executor

import (
	"context"
	"fmt"
	"math/big"
	"strings"
	"time"

	"github.com/NethermindEth/juno/core/felt"
	"github.com/NethermindEth/starknet.go/account"
	"github.com/NethermindEth/starknet.go/curve"
	"github.com/NethermindEth/starknet.go/rpc"
	"github.com/NethermindEth/starknet.go/utils"
	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
)

// Starknet 主网代币合约
var (
	strkToken = mustFelt("0x04718f5a0fc34cc1af16a1cdee98ffb20c31f5cd61d6ab07201858f4287c938d")
	ethToken  = mustFelt("0x049d36570d4e46f48e99674bd3fcc84644ddd6b96f7c741b1562b82f9e004dc7")
	usdcToken = mustFelt("0x053c91253bc9682c04929ca02ed00b3e423f6710d2ee7e0d5ebb06f3ecf368a8")

	// openzeppelinClassHash 账户合约的 class hash，部署新账户时用
	openzeppelinClassHash = mustFelt("0x061dac032f228abef9c6626f995015233097ae253a7f72d68552db02f2971b8f")
)

// starknetTokens 代币符号到 (合约, 精度) 的映射。
// STRK/ETH 18 位，USDC 6 位。
var starknetTokens = map[string]struct {
	contract *felt.Felt
	decimals int
}{
	"STRK": {strkToken, 18},
	"ETH":  {ethToken, 18},
	"USDC": {usdcToken, 6},
}

// StarknetExecutor Starknet 执行器。
// 账户是合约: 首次出账前要先确认账户已部署，没部署就先部署。
// 手续费优先用 STRK 支付，STRK 不足再看 ETH。
type StarknetExecutor struct {
	pool        *EndpointPool
	confirmWait time.Duration
}

func NewStarknetExecutor(pool *EndpointPool, confirmWait time.Duration) *StarknetExecutor {
	if confirmWait <= 0 {
		confirmWait = 60 * time.Second
	}
	return &StarknetExecutor{pool: pool, confirmWait: confirmWait}
}

func (e *StarknetExecutor) Chain() chain.Tag {
	return chain.Starknet
}

func (e *StarknetExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	privKey, ok := new(big.Int).SetString(strings.TrimPrefix(string(req.SigningMaterial), "0x"), 16)
	if !ok {
		return nil, fmt.Errorf("%w: 解析私钥失败", ErrSubmissionFailed)
	}
	pubX, _, err := curve.Curve.PrivateToPoint(privKey)
	if err != nil {
		return nil, fmt.Errorf("%w: 推导公钥失败", ErrSubmissionFailed)
	}
	pubKeyHex := "0x" + pubX.Text(16)

	accountAddr, err := utils.HexToFelt(req.From)
	if err != nil {
		return nil, fmt.Errorf("%w: 无效的账户地址", ErrSubmissionFailed)
	}

	token := strings.ToUpper(req.Token)
	if token == "" {
		token = "ETH"
	}
	tokenInfo, ok := starknetTokens[token]
	if !ok {
		return nil, fmt.Errorf("%w: 未知代币 %s", ErrSubmissionFailed, token)
	}

	receipt := &Receipt{Outputs: make([]OutputResult, 0, len(req.Outputs))}

	err = e.pool.Do(ctx, func(ctx context.Context, endpoint string) error {
		provider, err := rpc.NewProvider(endpoint)
		if err != nil {
			return err
		}

		ks := account.NewMemKeystore()
		ks.Put(pubKeyHex, privKey)
		acc, err := account.NewAccount(provider, accountAddr, pubKeyHex, ks, 2)
		if err != nil {
			return err
		}

		if err := e.ensureDeployed(ctx, provider, acc, accountAddr, pubKeyHex); err != nil {
			return err
		}
		if err := e.checkFeeBalance(ctx, provider, accountAddr); err != nil {
			return err
		}

		calls := make([]rpc.InvokeFunctionCall, 0, len(req.Outputs))
		for _, out := range req.Outputs {
			to, err := utils.HexToFelt(out.To)
			if err != nil {
				return fmt.Errorf("%w: 无效的收款地址 %s", ErrSubmissionFailed, out.To)
			}
			low, high := u256Split(out.Amount)
			calls = append(calls, rpc.InvokeFunctionCall{
				ContractAddress: tokenInfo.contract,
				FunctionName:    "transfer",
				CallData:        []*felt.Felt{to, low, high},
			})
		}

		// 所有 transfer 打进一笔 multicall，整批原子
		resp, err := acc.BuildAndSendInvokeTxn(ctx, calls, 1.5)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}
		txHash := resp.TransactionHash.String()

		confirmed := e.waitAccepted(ctx, provider, resp.TransactionHash)
		if !confirmed {
			logger.Warn("交易已发送但确认超时",
				zap.String("chain", "starknet"),
				zap.String("tx_hash", txHash))
		}

		receipt.TxHash = txHash
		receipt.Outputs = receipt.Outputs[:0]
		for _, out := range req.Outputs {
			receipt.Outputs = append(receipt.Outputs, okResult(out, txHash, confirmed))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// ensureDeployed 查 class hash 判断账户是否已部署，未部署则先部署
func (e *StarknetExecutor) ensureDeployed(ctx context.Context, provider *rpc.Provider, acc *account.Account, addr *felt.Felt, pubKeyHex string) error {
	_, err := provider.ClassHashAt(ctx, rpc.WithBlockTag("latest"), addr)
	if err == nil {
		return nil
	}
	if !strings.Contains(err.Error(), "Contract not found") {
		return err
	}

	logger.Info("Starknet 账户未部署，先部署账户合约", zap.String("address", addr.String()))
	pubFelt, err := utils.HexToFelt(pubKeyHex)
	if err != nil {
		return err
	}
	deployTxn, precomputed, err := acc.BuildAndEstimateDeployAccountTxn(
		ctx, pubFelt, openzeppelinClassHash, []*felt.Felt{pubFelt}, 1.5)
	if err != nil {
		return fmt.Errorf("%w: 构造部署交易失败: %v", ErrSubmissionFailed, err)
	}
	if precomputed.String() != addr.String() {
		return fmt.Errorf("%w: 部署地址 %s 与账户地址不一致", ErrSubmissionFailed, precomputed)
	}
	resp, err := provider.AddDeployAccountTransaction(ctx, deployTxn)
	if err != nil {
		return fmt.Errorf("%w: 部署账户失败: %v", ErrSubmissionFailed, err)
	}
	if !e.waitAccepted(ctx, provider, resp.TransactionHash) {
		return fmt.Errorf("%w: 账户部署交易未确认", ErrSubmissionFailed)
	}
	return nil
}

// checkFeeBalance 先查 STRK 再查 ETH，两边都是零就没法付手续费
func (e *StarknetExecutor) checkFeeBalance(ctx context.Context, provider *rpc.Provider, addr *felt.Felt) error {
	for _, token := range []*felt.Felt{strkToken, ethToken} {
		bal, err := e.balanceOf(ctx, provider, token, addr)
		if err != nil {
			continue
		}
		if bal.Sign() > 0 {
			return nil
		}
	}
	return fmt.Errorf("%w: 账户无 STRK 也无 ETH 支付手续费", ErrInsufficientFunds)
}

func (e *StarknetExecutor) balanceOf(ctx context.Context, provider *rpc.Provider, token, addr *felt.Felt) (*big.Int, error) {
	res, err := provider.Call(ctx, rpc.FunctionCall{
		ContractAddress:    token,
		EntryPointSelector: utils.GetSelectorFromNameFelt("balanceOf"),
		Calldata:           []*felt.Felt{addr},
	}, rpc.WithBlockTag("latest"))
	if err != nil {
		return nil, err
	}
	if len(res) < 2 {
		return nil, fmt.Errorf("balanceOf 返回异常")
	}
	low := res[0].BigInt(new(big.Int))
	high := res[1].BigInt(new(big.Int))
	return new(big.Int).Add(low, new(big.Int).Lsh(high, 128)), nil
}

func (e *StarknetExecutor) waitAccepted(ctx context.Context, provider *rpc.Provider, txHash *felt.Felt) bool {
	deadline := time.Now().Add(e.confirmWait)
	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-time.After(3 * time.Second):
		}
		receipt, err := provider.TransactionReceipt(ctx, txHash)
		if err != nil {
			continue
		}
		if receipt.ExecutionStatus == rpc.TxnExecutionStatusSUCCEEDED {
			return true
		}
		if receipt.ExecutionStatus == rpc.TxnExecutionStatusREVERTED {
			return false
		}
	}
	return false
}

// u256Split 把金额拆成 Cairo u256 的 low/high 两个 felt
func u256Split(amount *big.Int) (*felt.Felt, *felt.Felt) {
	mask := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	low := new(big.Int).And(amount, mask)
	high := new(big.Int).Rsh(amount, 128)
	return utils.BigIntToFelt(low), utils.BigIntToFelt(high)
}

func mustFelt(s string) *felt.Felt {
	f, err := utils.HexToFelt(s)
	if err != nil {
		panic(err)
	}
	return f
}
