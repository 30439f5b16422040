package executor

import (
	"context"
	"errors"
	"math/big"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-core/pkg/chain"
)

func dot(n int64) *big.Int {
	return new(big.Int).Mul(big.NewInt(n), big.NewInt(10_000_000_000))
}

func TestCheckSpendable(t *testing.T) {
	outputs := []Output{
		{To: "a", Amount: dot(3), Kind: KindPayout},
		{To: "b", Amount: dot(2), Kind: KindFee},
	}

	// 10 DOT 余额, 出 5 DOT, 两笔手续费 0.04 DOT, 剩 4.96 DOT >= ED
	assert.NoError(t, checkSpendable(dot(10), outputs))

	// 6 DOT 余额, 出完剩 1 DOT, 但扣掉手续费后低于 ED
	err := checkSpendable(dot(6), outputs)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))

	// 余额根本不够出账
	err = checkSpendable(dot(4), outputs)
	assert.True(t, errors.Is(err, ErrInsufficientFunds))
}

func TestCheckSpendableFeeScalesWithOutputs(t *testing.T) {
	out := Output{To: "a", Amount: big.NewInt(1), Kind: KindPayout}
	many := make([]Output, 100)
	for i := range many {
		many[i] = out
	}

	// ED + 100 笔出账 + 99 笔手续费: 差一笔费用, 应当拒绝
	free := new(big.Int).Set(existentialDeposit)
	free.Add(free, big.NewInt(100))
	free.Add(free, new(big.Int).Mul(estimatedExtrinsicFee, big.NewInt(99)))
	assert.True(t, errors.Is(checkSpendable(free, many), ErrInsufficientFunds))

	// 补上最后一笔费用正好通过
	free.Add(free, estimatedExtrinsicFee)
	assert.NoError(t, checkSpendable(free, many))
}

func TestPolkadotRejectsJSONKeystore(t *testing.T) {
	pool, err := NewEndpointPool(chain.Polkadot, []string{"ws://127.0.0.1:1"}, time.Second)
	require.NoError(t, err)
	exec := NewPolkadotExecutor(pool, 0)

	_, err = exec.Transfer(context.Background(), &Request{
		SigningMaterial: []byte(`{"encoded":"...","encoding":{"type":["scrypt","xsalsa20-poly1305"]}}`),
		Outputs:         []Output{{To: "addr", Amount: dot(1), Kind: KindPayout}},
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrSubmissionFailed))
	assert.Contains(t, err.Error(), "keystore")
}
