package service

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"settlement-core/internal/executor"
	"settlement-core/pkg/chain"
	"settlement-core/pkg/errno"
)

func TestUsdToNativeRounding(t *testing.T) {
	price := decimal.NewFromInt(2500) // 1 ETH = $2500

	// $100 = 0.04 ETH = 4e16 wei, 整除无舍入
	exact := usdToNative(decimal.NewFromInt(100), price, 18, false)
	assert.Equal(t, "40000000000000000", exact.String())

	// $0.10 / $2500 = 4e-5 ETH; 九位精度的 SOL 场景会出现不整除
	solPrice := decimal.NewFromInt(150)
	down := usdToNative(decimal.RequireFromString("0.10"), solPrice, 9, false)
	up := usdToNative(decimal.RequireFromString("0.10"), solPrice, 9, true)
	// 0.1/150 = 0.000666... SOL
	assert.Equal(t, "666666", down.String())
	assert.Equal(t, "666667", up.String())
}

func TestUsdToNativeTakesChainDecimals(t *testing.T) {
	// 位数直接来自 chain.Tag, 两边类型必须咬合
	price := decimal.NewFromInt(60000)
	sats := usdToNative(decimal.NewFromInt(600), price, chain.Bitcoin.NativeDecimals(), false)
	assert.Equal(t, "1000000", sats.String())

	planck := usdToNative(decimal.NewFromInt(5), decimal.NewFromInt(5), chain.Polkadot.NativeDecimals(), true)
	assert.Equal(t, "10000000000", planck.String())
}

func TestSettleRejectsNonPositiveAmounts(t *testing.T) {
	// 校验在取钱包/询价之前: 全局服务都没初始化, 走到外部交互就会炸
	s := &SettlementService{}

	_, err := s.Settle(context.Background(), &SettlementRequest{
		UserID: 1,
		Chain:  chain.Solana,
		Recipients: []SettlementRecipient{
			{Address: "dst", AmountUSD: decimal.Zero},
		},
	})
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	_, err = s.Settle(context.Background(), &SettlementRequest{
		UserID: 1,
		Chain:  chain.Solana,
		Recipients: []SettlementRecipient{
			{Address: "a", AmountUSD: decimal.NewFromInt(10)},
			{Address: "b", AmountUSD: decimal.NewFromInt(-5)},
		},
	})
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)

	_, err = s.Settle(context.Background(), &SettlementRequest{UserID: 1, Chain: chain.Solana})
	assert.ErrorIs(t, err, errno.ErrNoRecipients)
}

func TestBillableRequiresConfirmation(t *testing.T) {
	// 计费行只跟确认落块的出账走, 发了没确认的等落块后再说
	assert.True(t, billable(executor.OutputResult{Success: true, Confirmed: true, TxHash: "0xabc"}))
	assert.False(t, billable(executor.OutputResult{Success: true, Confirmed: false, TxHash: "0xabc"}))
	assert.False(t, billable(executor.OutputResult{Success: false, Err: "broadcast failed"}))
}

func TestBundledFeeChains(t *testing.T) {
	// 支持原子多出账的链打包收手续费, 其余走异步归集
	assert.True(t, bundledFeeChains[chain.Bitcoin])
	assert.True(t, bundledFeeChains[chain.Solana])
	assert.True(t, bundledFeeChains[chain.Starknet])
	assert.True(t, bundledFeeChains[chain.Stellar])
	assert.False(t, bundledFeeChains[chain.Ethereum])
	assert.False(t, bundledFeeChains[chain.Polkadot])
}
