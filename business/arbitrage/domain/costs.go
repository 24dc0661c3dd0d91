// Package domain contains the core domain types for the arbitrage context.
package domain

import (
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ProfitBreakdown itemises a round trip's result in quote-token units.
type ProfitBreakdown struct {
	GrossProfit        decimal.Decimal `json:"grossProfit"`
	GrossProfitPercent decimal.Decimal `json:"grossProfitPercent"`
	TradingFees        decimal.Decimal `json:"tradingFees"`
	GasFee             decimal.Decimal `json:"gasFee"`
	PlatformFee        decimal.Decimal `json:"platformFee"`
	NetProfit          decimal.Decimal `json:"netProfit"`
	NetProfitPercent   decimal.Decimal `json:"netProfitPercent"`
}

// NewProfitBreakdown derives net profit and the percentages from the cost
// legs. Percentages are relative to investment.
func NewProfitBreakdown(investment, gross, fees, gas, platform decimal.Decimal) ProfitBreakdown {
	net := gross.Sub(fees).Sub(gas).Sub(platform)

	b := ProfitBreakdown{
		GrossProfit: gross,
		TradingFees: fees,
		GasFee:      gas,
		PlatformFee: platform,
		NetProfit:   net,
	}
	if investment.IsPositive() {
		b.GrossProfitPercent = gross.Div(investment).Mul(hundred)
		b.NetProfitPercent = net.Div(investment).Mul(hundred)
	}
	return b
}

// TotalCosts is fees + gas + platform.
func (b ProfitBreakdown) TotalCosts() decimal.Decimal {
	return b.TradingFees.Add(b.GasFee).Add(b.PlatformFee)
}

// IsProfitable reports a strictly positive net result.
func (b ProfitBreakdown) IsProfitable() bool {
	return b.NetProfit.IsPositive()
}
