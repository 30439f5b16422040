package executor

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	gsrpc "github.com/centrifuge/go-substrate-rpc-client/v4"
	"github.com/centrifuge/go-substrate-rpc-client/v4/signature"
	"github.com/centrifuge/go-substrate-rpc-client/v4/types"
	"github.com/vedhavyas/go-subkey/v2"
	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
)

// existentialDeposit Polkadot 的存在性押金: 1 DOT (1e10 planck)。
// 余额低于它的账户会被链上回收。
var existentialDeposit = big.NewInt(10_000_000_000)

// estimatedExtrinsicFee 单笔 transfer_keep_alive 的保守费用上界 (0.02 DOT)。
// 实际费用在 0.015 DOT 量级, 预检宁可多留不能少留。
var estimatedExtrinsicFee = big.NewInt(200_000_000)

// PolkadotExecutor Polkadot 执行器。
// 用 transfer_keep_alive 防止把出账账户转到被回收;
// 收款方是新账户时预检金额是否够存在性押金。
type PolkadotExecutor struct {
	pool       *EndpointPool
	ss58Prefix uint16
}

func NewPolkadotExecutor(pool *EndpointPool, ss58Prefix uint16) *PolkadotExecutor {
	return &PolkadotExecutor{pool: pool, ss58Prefix: ss58Prefix}
}

func (e *PolkadotExecutor) Chain() chain.Tag {
	return chain.Polkadot
}

func (e *PolkadotExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	secret := strings.TrimSpace(string(req.SigningMaterial))
	// polkadot-js 导出的 JSON keystore 是 PKCS8+scrypt 容器, 这里不解
	if strings.HasPrefix(secret, "{") {
		return nil, fmt.Errorf("%w: 不支持 JSON keystore 格式的密钥, 请导入助记词或十六进制种子", ErrSubmissionFailed)
	}
	keyring, err := signature.KeyringPairFromSecret(secret, e.ss58Prefix)
	if err != nil {
		return nil, fmt.Errorf("%w: 解析密钥失败", ErrSubmissionFailed)
	}

	receipt := &Receipt{Outputs: make([]OutputResult, 0, len(req.Outputs))}

	err = e.pool.Do(ctx, func(ctx context.Context, endpoint string) error {
		api, err := gsrpc.NewSubstrateAPI(endpoint)
		if err != nil {
			return err
		}
		meta, err := api.RPC.State.GetMetadataLatest()
		if err != nil {
			return err
		}
		genesisHash, err := api.RPC.Chain.GetBlockHash(0)
		if err != nil {
			return err
		}
		rv, err := api.RPC.State.GetRuntimeVersionLatest()
		if err != nil {
			return err
		}

		senderInfo, err := e.accountInfo(api, meta, keyring.PublicKey)
		if err != nil {
			return err
		}
		nonce := uint64(senderInfo.Nonce)

		if err := checkSpendable(senderInfo.Data.Free.Int, req.Outputs); err != nil {
			return err
		}

		receipt.Outputs = receipt.Outputs[:0]
		receipt.TxHash = ""

		// Balances pallet 没有批量转账，逐笔提交，nonce 递增
		for _, out := range req.Outputs {
			res := e.sendOne(api, meta, genesisHash, rv, keyring, nonce, out)
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

// checkSpendable 余额预检: 出完账、扣掉每笔 extrinsic 的预估费用之后,
// 出账账户自己也要留在存在性押金之上, 否则整批拒绝。
func checkSpendable(free *big.Int, outputs []Output) error {
	var totalOut big.Int
	for _, out := range outputs {
		totalOut.Add(&totalOut, out.Amount)
	}
	fees := new(big.Int).Mul(estimatedExtrinsicFee, big.NewInt(int64(len(outputs))))
	remain := new(big.Int).Sub(free, &totalOut)
	remain.Sub(remain, fees)
	if remain.Cmp(existentialDeposit) < 0 {
		return fmt.Errorf("%w: 出账和预估手续费后余额 %s 低于存在性押金", ErrInsufficientFunds, remain)
	}
	return nil
}

func (e *PolkadotExecutor) sendOne(api *gsrpc.SubstrateAPI, meta *types.Metadata, genesisHash types.Hash, rv *types.RuntimeVersion, keyring signature.KeyringPair, nonce uint64, out Output) OutputResult {
	prefix, pubKey, err := subkey.SS58Decode(out.To)
	if err != nil {
		return failResult(out, fmt.Errorf("无效的收款地址 %s", out.To))
	}
	if prefix != e.ss58Prefix {
		return failResult(out, fmt.Errorf("收款地址 %s 的网络前缀不匹配", out.To))
	}

	// 新账户收款金额低于存在性押金会直接被回收, 白白烧掉
	recvInfo, err := e.accountInfo(api, meta, pubKey)
	if err == nil && recvInfo.Data.Free.Int.Sign() == 0 && out.Amount.Cmp(existentialDeposit) < 0 {
		return failResult(out, fmt.Errorf("金额 %s 低于新账户的存在性押金", out.Amount))
	}

	dest, err := types.NewMultiAddressFromAccountID(pubKey)
	if err != nil {
		return failResult(out, err)
	}
	call, err := types.NewCall(meta, "Balances.transfer_keep_alive",
		dest, types.NewUCompact(out.Amount))
	if err != nil {
		return failResult(out, fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	ext := types.NewExtrinsic(call)
	opts := types.SignatureOptions{
		BlockHash:          genesisHash,
		Era:                types.ExtrinsicEra{IsMortalEra: false},
		GenesisHash:        genesisHash,
		Nonce:              types.NewUCompactFromUInt(nonce),
		SpecVersion:        rv.SpecVersion,
		Tip:                types.NewUCompactFromUInt(0),
		TransactionVersion: rv.TransactionVersion,
	}
	if err := ext.Sign(keyring, opts); err != nil {
		return failResult(out, fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	hash, err := api.RPC.Author.SubmitExtrinsic(ext)
	if err != nil {
		if strings.Contains(err.Error(), "balance") {
			return failResult(out, ErrInsufficientFunds)
		}
		return failResult(out, fmt.Errorf("%w: %v", ErrSubmissionFailed, err))
	}

	txHash := hash.Hex()
	logger.Info("Polkadot 交易已提交",
		zap.String("tx_hash", txHash),
		zap.String("to", out.To))
	// SubmitExtrinsic 只保证进了交易池，不在这里等落块
	return okResult(out, txHash, false)
}

func (e *PolkadotExecutor) accountInfo(api *gsrpc.SubstrateAPI, meta *types.Metadata, pubKey []byte) (*types.AccountInfo, error) {
	key, err := types.CreateStorageKey(meta, "System", "Account", pubKey)
	if err != nil {
		return nil, err
	}
	var info types.AccountInfo
	ok, err := api.RPC.State.GetStorageLatest(key, &info)
	if err != nil {
		return nil, err
	}
	if !ok {
		// 账户不存在, 零值即 "全空账户"
		return &types.AccountInfo{}, nil
	}
	return &info, nil
}
