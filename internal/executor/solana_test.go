package executor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRequiredLamports(t *testing.T) {
	lamports := func(n int64) Output {
		return Output{To: "addr", Amount: big.NewInt(n), Kind: KindPayout}
	}

	// 3 笔出账装进一笔交易: 一个签名的费用
	need, ok := requiredLamports([]Output{lamports(100), lamports(200), lamports(300)})
	require.True(t, ok)
	assert.Equal(t, uint64(600+lamportsPerSignature), need)

	// 9 笔超过单笔交易上限, 分成两批两个签名
	outputs := make([]Output, 9)
	for i := range outputs {
		outputs[i] = lamports(1)
	}
	need, ok = requiredLamports(outputs)
	require.True(t, ok)
	assert.Equal(t, uint64(9+2*lamportsPerSignature), need)
}

func TestRequiredLamportsOverflowAmount(t *testing.T) {
	huge := new(big.Int).Lsh(big.NewInt(1), 70)
	_, ok := requiredLamports([]Output{{To: "addr", Amount: huge, Kind: KindPayout}})
	assert.False(t, ok)
}
