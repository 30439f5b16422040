package executor

import (
	"encoding/hex"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPackERC20Transfer(t *testing.T) {
	to := common.HexToAddress("0x1111111111111111111111111111111111111111")
	data := packERC20Transfer(to, big.NewInt(1_000_000))

	require.Len(t, data, 68)
	assert.Equal(t, "a9059cbb", hex.EncodeToString(data[:4]))
	assert.Equal(t, to.Bytes(), data[4+12:4+32])
	assert.Equal(t, big.NewInt(1_000_000), new(big.Int).SetBytes(data[36:]))
}
