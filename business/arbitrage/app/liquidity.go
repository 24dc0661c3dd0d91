package app

import (
	"math"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// LiquidityParams are the constants of the square-root impact heuristic.
type LiquidityParams struct {
	ImpactScale            decimal.Decimal
	ImpactCap              decimal.Decimal
	ValidImpactMax         decimal.Decimal
	SafeTradeFraction      decimal.Decimal
	MissingLiquidityImpact decimal.Decimal
}

// DefaultLiquidityParams returns scale 100, cap 10%, valid up to 3%, safe
// size 3% of liquidity and 5% impact when liquidity is unknown.
// With these defaults a trade above 0.09% of a venue's liquidity is
// rejected: 1000 against 1M of depth is 3.16% impact and yields no
// opportunity. Lower ImpactScale to accept such trades.
func DefaultLiquidityParams() LiquidityParams {
	return LiquidityParams{
		ImpactScale:            pricingApp.DefaultImpactScale,
		ImpactCap:              decimal.NewFromInt(10),
		ValidImpactMax:         decimal.NewFromInt(3),
		SafeTradeFraction:      decimal.RequireFromString("0.03"),
		MissingLiquidityImpact: decimal.NewFromInt(5),
	}
}

// LiquidityParamsFromConfig converts config values, keeping defaults for
// unset fields.
func LiquidityParamsFromConfig(c config.LiquidityConfig) LiquidityParams {
	p := DefaultLiquidityParams()
	set := func(dst *decimal.Decimal, v float64) {
		if v > 0 {
			*dst = decimal.NewFromFloat(v)
		}
	}
	set(&p.ImpactScale, c.ImpactScale)
	set(&p.ImpactCap, c.ImpactCap)
	set(&p.ValidImpactMax, c.ValidImpactMax)
	set(&p.SafeTradeFraction, c.SafeTradeFraction)
	set(&p.MissingLiquidityImpact, c.MissingLiquidityImpact)
	return p
}

// LiquidityModel estimates price impact from pool depth.
type LiquidityModel struct {
	params LiquidityParams
}

// NewLiquidityModel creates a model with params.
func NewLiquidityModel(params LiquidityParams) *LiquidityModel {
	return &LiquidityModel{params: params}
}

// Params returns the model constants.
func (m *LiquidityModel) Params() LiquidityParams {
	return m.params
}

// Assess estimates the impact of trading tradeUSD against liquidityUSD:
// min(sqrt(trade/liquidity) x scale, cap). Unknown liquidity (<= 0) is
// assigned the missing-liquidity impact.
func (m *LiquidityModel) Assess(liquidityUSD, tradeUSD decimal.Decimal) domain.LiquidityAssessment {
	p := m.params

	var impact decimal.Decimal
	switch {
	case !liquidityUSD.IsPositive():
		impact = p.MissingLiquidityImpact
		liquidityUSD = decimal.Zero
	case !tradeUSD.IsPositive():
		impact = decimal.Zero
	default:
		ratio, _ := tradeUSD.Div(liquidityUSD).Float64()
		impact = decimal.NewFromFloat(math.Sqrt(ratio)).Mul(p.ImpactScale)
		if impact.GreaterThan(p.ImpactCap) {
			impact = p.ImpactCap
		}
	}

	return domain.LiquidityAssessment{
		AvailableLiquidityUSD: liquidityUSD,
		PriceImpactPercent:    impact,
		MaxSafeTradeSizeUSD:   liquidityUSD.Mul(p.SafeTradeFraction),
		IsValid:               impact.LessThanOrEqual(p.ValidImpactMax),
	}
}

// EffectiveBuyPrice is price x (1 + impact/100).
func EffectiveBuyPrice(price, impactPercent decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Add(impactPercent.Div(hundred)))
}

// EffectiveSellPrice is price x (1 - impact/100).
func EffectiveSellPrice(price, impactPercent decimal.Decimal) decimal.Decimal {
	return price.Mul(decimal.NewFromInt(1).Sub(impactPercent.Div(hundred)))
}
