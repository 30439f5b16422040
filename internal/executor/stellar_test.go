package executor

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestClassifyStellarLeg(t *testing.T) {
	payout := Output{To: "G...", Amount: big.NewInt(5_000_000), Kind: KindPayout}
	fee := Output{To: "G...", Amount: big.NewInt(5_000_000), Kind: KindFee}

	// 账户已激活: 普通 Payment
	assert.Equal(t, legPayment, classifyStellarLeg(payout, true, 5_000_000))
	assert.Equal(t, legPayment, classifyStellarLeg(fee, true, 5_000_000))

	// 国库未激活: 手续费腿无论金额够不够开户都延后
	assert.Equal(t, legDeferred, classifyStellarLeg(fee, false, 5_000_000))
	assert.Equal(t, legDeferred, classifyStellarLeg(fee, false, stellarMinReserve*2))

	// 收款账户未激活: 够保证金代为开户, 不够则失败
	assert.Equal(t, legCreateAccount, classifyStellarLeg(payout, false, stellarMinReserve))
	assert.Equal(t, legFailed, classifyStellarLeg(payout, false, stellarMinReserve-1))
}
