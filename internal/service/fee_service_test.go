package service

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"settlement-core/pkg/errno"
)

func TestFeeCalculateTiers(t *testing.T) {
	tests := []struct {
		amount  string
		wantFee string
		tier    string
	}{
		{"0", "0", "$0"},
		{"5", "0", "$0-$10"},
		{"10", "0", "$0-$10"},
		{"10.01", "0.1", "$10.01-$50"},
		{"50", "0.1", "$10.01-$50"},
		{"75", "0.25", "$51-$100"},
		{"100", "0.25", "$51-$100"},
		{"100.01", "1", "$101-$500"},
		{"500", "1", "$101-$500"},
		{"1000", "2", "$501-$1000"},
		{"1000.01", "5", "$1001+"},  // 0.5% = 5.00005 -> 5.00
		{"2000", "10", "$1001+"},
		{"1234.56", "6.17", "$1001+"}, // 6.1728 -> 6.17
	}
	for _, tt := range tests {
		t.Run(tt.amount, func(t *testing.T) {
			q, err := Fee.Calculate(decimal.RequireFromString(tt.amount))
			require.NoError(t, err)
			assert.True(t, q.Fee.Equal(decimal.RequireFromString(tt.wantFee)),
				"fee = %s, want %s", q.Fee, tt.wantFee)
			assert.Equal(t, tt.tier, q.Tier)
		})
	}
}

func TestFeeIsAdditive(t *testing.T) {
	amount := decimal.RequireFromString("75")
	q, err := Fee.Calculate(amount)
	require.NoError(t, err)

	// 收款方拿全额, 出账方承担 amount+fee
	assert.True(t, q.RecipientReceives.Equal(amount))
	assert.True(t, q.Total.Equal(decimal.RequireFromString("75.25")))
	// 费率以百分数报告: 0.25/75*100
	assert.True(t, q.FeePercentage.Equal(decimal.RequireFromString("0.333333")),
		"fee percentage = %s", q.FeePercentage)
}

func TestFeePercentageIsPercent(t *testing.T) {
	// $2000 收 $10, 报 0.5 而不是 0.005
	q, err := Fee.Calculate(decimal.NewFromInt(2000))
	require.NoError(t, err)
	assert.True(t, q.FeePercentage.Equal(decimal.RequireFromString("0.5")),
		"fee percentage = %s", q.FeePercentage)
}

func TestFeeNegativeAmountRejected(t *testing.T) {
	_, err := Fee.Calculate(decimal.NewFromInt(-1))
	assert.ErrorIs(t, err, errno.ErrInvalidAmount)
}

func TestFeeBatchPerRecipient(t *testing.T) {
	amounts := []decimal.Decimal{
		decimal.NewFromInt(5),
		decimal.NewFromInt(75),
		decimal.NewFromInt(2000),
	}
	quotes, totalFee, err := Fee.CalculateBatch(amounts)
	require.NoError(t, err)
	require.Len(t, quotes, 3)

	// 逐笔独立套档: 0 + 0.25 + 10, 而不是按 2080 合计收 0.5%
	assert.True(t, totalFee.Equal(decimal.RequireFromString("10.25")))
}
