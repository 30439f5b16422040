package service

import (
	"github.com/shopspring/decimal"

	"settlement-core/pkg/errno"
)

// 手续费是加在出账金额之上的: 收款方总是收到全额，
// 手续费由出账钱包另行承担。

type FeeService struct{}

var Fee = &FeeService{}

// FeeQuote 一笔出账的手续费报价 (单位 USD)
type FeeQuote struct {
	Amount            decimal.Decimal `json:"amount"`
	Fee               decimal.Decimal `json:"fee"`
	Total             decimal.Decimal `json:"total"`
	RecipientReceives decimal.Decimal `json:"recipient_receives"`
	FeePercentage     decimal.Decimal `json:"fee_percentage"`
	Tier              string          `json:"tier"`
}

var (
	tier10   = decimal.NewFromInt(10)
	tier50   = decimal.NewFromInt(50)
	tier100  = decimal.NewFromInt(100)
	tier500  = decimal.NewFromInt(500)
	tier1000 = decimal.NewFromInt(1000)

	fee010     = decimal.RequireFromString("0.10")
	fee025     = decimal.RequireFromString("0.25")
	fee100     = decimal.NewFromInt(1)
	fee200     = decimal.NewFromInt(2)
	feePct0005 = decimal.RequireFromString("0.005")
)

// Calculate 按金额档位计算手续费。
// 1000 美元以上按 0.5% 收，四舍五入到分。
func (s *FeeService) Calculate(amount decimal.Decimal) (*FeeQuote, error) {
	if amount.IsNegative() {
		return nil, errno.ErrInvalidAmount
	}

	var (
		fee  decimal.Decimal
		tier string
	)
	switch {
	case amount.IsZero():
		fee, tier = decimal.Zero, "$0"
	case amount.LessThanOrEqual(tier10):
		fee, tier = decimal.Zero, "$0-$10"
	case amount.LessThanOrEqual(tier50):
		fee, tier = fee010, "$10.01-$50"
	case amount.LessThanOrEqual(tier100):
		fee, tier = fee025, "$51-$100"
	case amount.LessThanOrEqual(tier500):
		fee, tier = fee100, "$101-$500"
	case amount.LessThanOrEqual(tier1000):
		fee, tier = fee200, "$501-$1000"
	default:
		fee, tier = amount.Mul(feePct0005).Round(2), "$1001+"
	}

	quote := &FeeQuote{
		Amount:            amount,
		Fee:               fee,
		Total:             amount.Add(fee),
		RecipientReceives: amount,
		Tier:              tier,
	}
	if amount.IsPositive() {
		// 报价里的费率是百分数: $75 收 $0.25 报 0.3333(%)
		quote.FeePercentage = fee.Div(amount).Mul(decimal.NewFromInt(100)).Round(6)
	}
	return quote, nil
}

// CalculateBatch 批量出账逐笔独立计费，不按合计金额套档
func (s *FeeService) CalculateBatch(amounts []decimal.Decimal) ([]*FeeQuote, decimal.Decimal, error) {
	quotes := make([]*FeeQuote, 0, len(amounts))
	totalFee := decimal.Zero
	for _, amt := range amounts {
		q, err := s.Calculate(amt)
		if err != nil {
			return nil, decimal.Zero, err
		}
		quotes = append(quotes, q)
		totalFee = totalFee.Add(q.Fee)
	}
	return quotes, totalFee, nil
}
