package service

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-core/pkg/chain"
	"settlement-core/pkg/config"
	"settlement-core/pkg/errno"
)

func TestTreasuryEnvBeatsConfig(t *testing.T) {
	t.Setenv("TREASURY_ETHEREUM_MAINNET", "0x36Ef586D3235Ae4BEb846E25d7ad3AC44f55bDc5")
	config.Global.Treasury.Addresses = map[string]map[string]string{
		"ethereum": {"mainnet": "0x1111111111111111111111111111111111111111"},
	}
	t.Cleanup(func() { config.Global.Treasury.Addresses = nil })

	addr, err := Treasury.Resolve(chain.Ethereum, chain.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, "0x36Ef586D3235Ae4BEb846E25d7ad3AC44f55bDc5", addr)
}

func TestTreasuryConfigBeatsDefault(t *testing.T) {
	config.Global.Treasury.Addresses = map[string]map[string]string{
		"bitcoin": {"testnet": "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7"},
	}
	t.Cleanup(func() { config.Global.Treasury.Addresses = nil })

	addr, err := Treasury.Resolve(chain.Bitcoin, chain.Testnet)
	require.NoError(t, err)
	assert.Equal(t, "tb1qrp33g0q5c5txsp9arysrx4k6zdkfs4nce4xj0gdcccefvpysxf3q0sl5k7", addr)
}

func TestTreasuryFallsBackToDefault(t *testing.T) {
	addr, err := Treasury.Resolve(chain.Solana, chain.Testnet)
	require.NoError(t, err)
	assert.NotEmpty(t, addr)
}

func TestTreasuryNotConfigured(t *testing.T) {
	_, err := Treasury.Resolve(chain.Stellar, chain.Mainnet)
	assert.ErrorIs(t, err, errno.ErrTreasuryNotConfigured)
}

func TestTreasuryBadAddressOnlyWarns(t *testing.T) {
	t.Setenv("TREASURY_ETHEREUM_MAINNET", "not-an-address")

	// 格式错误不拦截出账
	addr, err := Treasury.Resolve(chain.Ethereum, chain.Mainnet)
	require.NoError(t, err)
	assert.Equal(t, "not-an-address", addr)
}

func TestValidateAddress(t *testing.T) {
	assert.True(t, Treasury.ValidateAddress(chain.Ethereum, "0x36Ef586D3235Ae4BEb846E25d7ad3AC44f55bDc5"))
	assert.False(t, Treasury.ValidateAddress(chain.Ethereum, "0x123"))
	assert.True(t, Treasury.ValidateAddress(chain.Stellar, "GA5ZSEJYB37JRC5AVCIA5MOP4RHTM335X2KGX3IHOJAPP5RE34K4KZVN"))
	assert.False(t, Treasury.ValidateAddress(chain.Stellar, "MA5ZSE"))
}