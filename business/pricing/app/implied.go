package app

import "github.com/shopspring/decimal"

// DefaultImpactScale is the multiplier of the square-root impact model,
// impact% = sqrt(trade/liquidity) * scale.
var DefaultImpactScale = decimal.NewFromInt(100)

var maxImpliedFactor = decimal.NewFromInt(1_000_000)

// ImpliedLiquidityUSD inverts the square-root impact model: a venue that
// reports impactPercent for a trade of tradeUSD behaves like a pool of
// tradeUSD * (scale / impactPercent)^2. A non-positive scale means
// DefaultImpactScale. A zero impact is capped at a million times the
// trade. Unknown trade sizes yield zero (unknown).
func ImpliedLiquidityUSD(tradeUSD, impactPercent, scale decimal.Decimal) decimal.Decimal {
	if !tradeUSD.IsPositive() || impactPercent.IsNegative() {
		return decimal.Zero
	}
	limit := tradeUSD.Mul(maxImpliedFactor)
	if impactPercent.IsZero() {
		return limit
	}
	if !scale.IsPositive() {
		scale = DefaultImpactScale
	}
	ratio := scale.Div(impactPercent)
	if liq := tradeUSD.Mul(ratio).Mul(ratio); liq.LessThan(limit) {
		return liq
	}
	return limit
}
