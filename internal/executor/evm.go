package executor

import (
	"context"
	"crypto/ecdsa"
	"fmt"
	"math/big"
	"strings"
	"time"

	ethereum "github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/core/types"
	"github.com/ethereum/go-ethereum/crypto"
	"github.com/ethereum/go-ethereum/ethclient"
	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
)

// erc20TransferSelector = keccak256("transfer(address,uint256)")[:4]
var erc20TransferSelector = crypto.Keccak256([]byte("transfer(address,uint256)"))[:4]

// evmTokens 常用 ERC-20 合约地址 (mainnet)
var evmTokens = map[string]common.Address{
	"USDT": common.HexToAddress("0xdAC17F958D2ee523a2206206994597C13D831ec7"),
	"USDC": common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48"),
}

// EVMExecutor 以太坊系执行器。
// 每个 Output 是一笔独立签名的交易，按 nonce 顺序串行提交。
// 这里的 "多出账原子性" 只是尽力的顺序提交: 中途失败要逐笔上报，不存在回滚。
type EVMExecutor struct {
	pool        *EndpointPool
	chainID     *big.Int
	confirmWait time.Duration
}

func NewEVMExecutor(pool *EndpointPool, chainID int64, confirmWait time.Duration) *EVMExecutor {
	if chainID == 0 {
		chainID = 1
	}
	if confirmWait <= 0 {
		confirmWait = 30 * time.Second
	}
	return &EVMExecutor{pool: pool, chainID: big.NewInt(chainID), confirmWait: confirmWait}
}

func (e *EVMExecutor) Chain() chain.Tag {
	return chain.Ethereum
}

func (e *EVMExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	privKey, err := crypto.HexToECDSA(strings.TrimPrefix(string(req.SigningMaterial), "0x"))
	if err != nil {
		return nil, fmt.Errorf("%w: 解析私钥失败", ErrSubmissionFailed)
	}
	from := crypto.PubkeyToAddress(privKey.PublicKey)

	receipt := &Receipt{Outputs: make([]OutputResult, 0, len(req.Outputs))}

	err = e.pool.Do(ctx, func(ctx context.Context, endpoint string) error {
		client, err := ethclient.DialContext(ctx, endpoint)
		if err != nil {
			return err
		}
		defer client.Close()

		nonce, err := client.PendingNonceAt(ctx, from)
		if err != nil {
			return err
		}
		gasPrice, err := client.SuggestGasPrice(ctx)
		if err != nil {
			return err
		}

		// 逐笔构造并提交。从这里开始节点故障不再整体重试:
		// 已广播的交易重发会遇到 nonce 冲突，剩余失败逐笔记录即可。
		receipt.Outputs = receipt.Outputs[:0]
		for _, out := range req.Outputs {
			res := e.sendOne(ctx, client, privKey, from, nonce, gasPrice, req.Token, out)
			receipt.Outputs = append(receipt.Outputs, res)
			if res.TxHash != "" {
				nonce++
				if receipt.TxHash == "" {
					receipt.TxHash = res.TxHash
				}
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

// sendOne 构造、签名、广播并等待一笔交易。
// 广播成功后确认失败只降级为 "已发送未确认"。
func (e *EVMExecutor) sendOne(ctx context.Context, client *ethclient.Client, privKey *ecdsa.PrivateKey, from common.Address, nonce uint64, gasPrice *big.Int, token string, out Output) OutputResult {
	var (
		to       common.Address
		value    *big.Int
		data     []byte
		gasLimit uint64
	)

	if token == "" {
		to = common.HexToAddress(out.To)
		value = out.Amount
		gasLimit = 21000
	} else {
		contract, ok := evmTokens[strings.ToUpper(token)]
		if !ok {
			return failResult(out, fmt.Errorf("未知代币 %s", token))
		}
		to = contract
		value = big.NewInt(0)
		data = packERC20Transfer(common.HexToAddress(out.To), out.Amount)
		gas, err := client.EstimateGas(ctx, ethereum.CallMsg{From: from, To: &contract, Data: data})
		if err != nil {
			gas = 90000 // 估算失败就用保守上限
		}
		gasLimit = gas
	}

	// 余额预检: value + gas
	balance, err := client.BalanceAt(ctx, from, nil)
	if err == nil {
		need := new(big.Int).Add(value, new(big.Int).Mul(gasPrice, new(big.Int).SetUint64(gasLimit)))
		if balance.Cmp(need) < 0 {
			return failResult(out, ErrInsufficientFunds)
		}
	}

	tx := types.NewTransaction(nonce, to, value, gasLimit, gasPrice, data)
	signedTx, err := types.SignTx(tx, types.NewEIP155Signer(e.chainID), privKey)
	if err != nil {
		return failResult(out, fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	if err := client.SendTransaction(ctx, signedTx); err != nil {
		return failResult(out, fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}
	txHash := signedTx.Hash().Hex()

	confirmed := e.waitConfirmed(ctx, client, signedTx.Hash())
	if !confirmed {
		logger.Warn("交易已发送但确认超时",
			zap.String("chain", "ethereum"),
			zap.String("tx_hash", txHash))
	}
	return okResult(out, txHash, confirmed)
}

// waitConfirmed 轮询回执直到超时。超时不是失败。
func (e *EVMExecutor) waitConfirmed(ctx context.Context, client *ethclient.Client, hash common.Hash) bool {
	deadline := time.Now().Add(e.confirmWait)
	ticker := time.NewTicker(2 * time.Second)
	defer ticker.Stop()

	for time.Now().Before(deadline) {
		select {
		case <-ctx.Done():
			return false
		case <-ticker.C:
			if r, err := client.TransactionReceipt(ctx, hash); err == nil && r != nil {
				return r.Status == types.ReceiptStatusSuccessful
			}
		}
	}
	return false
}

// packERC20Transfer ABI 编码 transfer(address,uint256)
func packERC20Transfer(to common.Address, amount *big.Int) []byte {
	data := make([]byte, 0, 4+32+32)
	data = append(data, erc20TransferSelector...)
	data = append(data, common.LeftPadBytes(to.Bytes(), 32)...)
	data = append(data, common.LeftPadBytes(amount.Bytes(), 32)...)
	return data
}
