package domain

import "github.com/shopspring/decimal"

// LiquidityAssessment is the price-impact estimate for one trade against
// one venue's liquidity.
type LiquidityAssessment struct {
	AvailableLiquidityUSD decimal.Decimal `json:"availableLiquidityUsd"`
	PriceImpactPercent    decimal.Decimal `json:"priceImpactPercent"`
	MaxSafeTradeSizeUSD   decimal.Decimal `json:"maxSafeTradeSizeUsd"`
	IsValid               bool            `json:"isValid"`
}
