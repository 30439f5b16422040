package executor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestU256Split(t *testing.T) {
	tests := []struct {
		name     string
		amount   *big.Int
		wantLow  string
		wantHigh string
	}{
		{"small", big.NewInt(1000), "1000", "0"},
		{"zero", big.NewInt(0), "0", "0"},
		{
			"above 128 bits",
			new(big.Int).Lsh(big.NewInt(3), 128),
			"0", "3",
		},
		{
			"straddles boundary",
			new(big.Int).Add(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(7)),
			"7", "1",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			low, high := u256Split(tt.amount)
			assert.Equal(t, tt.wantLow, low.BigInt(new(big.Int)).String())
			assert.Equal(t, tt.wantHigh, high.BigInt(new(big.Int)).String())
		})
	}
}
