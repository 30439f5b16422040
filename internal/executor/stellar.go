package executor

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/stellar/go/amount"
	"github.com/stellar/go/clients/horizonclient"
	"github.com/stellar/go/keypair"
	"github.com/stellar/go/network"
	"github.com/stellar/go/txnbuild"
	"go.uber.org/zap"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/logger"
)

// stellarMinReserve 新账户的最低初始余额 (1 XLM = 1e7 stroop)
const stellarMinReserve int64 = 10_000_000

// StellarExecutor Stellar 执行器。
// 收款账户不存在时用 CreateAccount 代替 Payment;
// 国库账户不存在时手续费腿一律延后，由清扫任务等账户激活后重试。
type StellarExecutor struct {
	pool       *EndpointPool
	passphrase string
	timeout    time.Duration
}

func NewStellarExecutor(pool *EndpointPool, net chain.Network, timeout time.Duration) *StellarExecutor {
	passphrase := network.PublicNetworkPassphrase
	if net == chain.Testnet {
		passphrase = network.TestNetworkPassphrase
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &StellarExecutor{pool: pool, passphrase: passphrase, timeout: timeout}
}

func (e *StellarExecutor) Chain() chain.Tag {
	return chain.Stellar
}

func (e *StellarExecutor) Transfer(ctx context.Context, req *Request) (*Receipt, error) {
	kp, err := keypair.ParseFull(strings.TrimSpace(string(req.SigningMaterial)))
	if err != nil {
		return nil, fmt.Errorf("%w: 解析密钥失败", ErrSubmissionFailed)
	}

	receipt := &Receipt{Outputs: make([]OutputResult, 0, len(req.Outputs))}

	err = e.pool.Do(ctx, func(ctx context.Context, endpoint string) error {
		client := &horizonclient.Client{
			HorizonURL: strings.TrimRight(endpoint, "/") + "/",
		}

		sourceAccount, err := client.AccountDetail(horizonclient.AccountRequest{AccountID: kp.Address()})
		if err != nil {
			if horizonclient.IsNotFoundError(err) {
				return fmt.Errorf("%w: 出账账户未激活", ErrInsufficientFunds)
			}
			return err
		}

		receipt.Outputs = receipt.Outputs[:0]
		receipt.TxHash = ""

		var (
			ops       []txnbuild.Operation
			opOutputs []Output
		)
		for _, out := range req.Outputs {
			if !out.Amount.IsInt64() {
				receipt.Outputs = append(receipt.Outputs, failResult(out, fmt.Errorf("出账金额超出范围")))
				continue
			}
			stroops := out.Amount.Int64()
			xlm := amount.StringFromInt64(stroops)

			exists, err := e.accountExists(client, out.To)
			if err != nil {
				return err
			}
			switch classifyStellarLeg(out, exists, stroops) {
			case legPayment:
				ops = append(ops, &txnbuild.Payment{
					Destination: out.To,
					Amount:      xlm,
					Asset:       txnbuild.NativeAsset{},
				})
				opOutputs = append(opOutputs, out)
			case legCreateAccount:
				ops = append(ops, &txnbuild.CreateAccount{
					Destination: out.To,
					Amount:      xlm,
				})
				opOutputs = append(opOutputs, out)
			case legDeferred:
				logger.Warn("国库账户未激活，手续费腿延后",
					zap.String("chain", "stellar"),
					zap.String("treasury", out.To))
				receipt.Outputs = append(receipt.Outputs, deferredResult(out, "treasury account not funded"))
			case legFailed:
				receipt.Outputs = append(receipt.Outputs,
					failResult(out, fmt.Errorf("收款账户未激活且金额不足开户保证金")))
			}
		}

		if len(ops) == 0 {
			return nil
		}

		tx, err := txnbuild.NewTransaction(txnbuild.TransactionParams{
			SourceAccount:        &sourceAccount,
			IncrementSequenceNum: true,
			Operations:           ops,
			BaseFee:              txnbuild.MinBaseFee,
			Preconditions: txnbuild.Preconditions{
				TimeBounds: txnbuild.NewTimeout(int64(e.timeout.Seconds()) + 60),
			},
		})
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}
		tx, err = tx.Sign(e.passphrase, kp)
		if err != nil {
			return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}

		resp, err := client.SubmitTransaction(tx)
		if err != nil {
			if strings.Contains(err.Error(), "underfunded") {
				return fmt.Errorf("%w: %v", ErrInsufficientFunds, err)
			}
			return fmt.Errorf("%w: %v", ErrSubmissionFailed, err)
		}

		// Horizon 提交成功即已上账 (同步确认)
		receipt.TxHash = resp.Hash
		for _, out := range opOutputs {
			receipt.Outputs = append(receipt.Outputs, okResult(out, resp.Hash, resp.Successful))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return receipt, nil
}

type stellarLeg int

const (
	legPayment stellarLeg = iota
	legCreateAccount
	legDeferred
	legFailed
)

// classifyStellarLeg 决定一条出账腿的处理方式。
// 手续费不该替国库垫开户保证金, 账户不存在时无论金额多少都延后;
// 收款腿只有金额够开户保证金才代为开户, 否则直接失败。
func classifyStellarLeg(out Output, exists bool, stroops int64) stellarLeg {
	if exists {
		return legPayment
	}
	if out.Kind == KindFee {
		return legDeferred
	}
	if stroops >= stellarMinReserve {
		return legCreateAccount
	}
	return legFailed
}

func (e *StellarExecutor) accountExists(client *horizonclient.Client, address string) (bool, error) {
	_, err := client.AccountDetail(horizonclient.AccountRequest{AccountID: address})
	if err == nil {
		return true, nil
	}
	if horizonclient.IsNotFoundError(err) {
		return false, nil
	}
	return false, err
}
