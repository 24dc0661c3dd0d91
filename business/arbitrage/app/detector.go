// Package app contains application services and port definitions for the arbitrage context.
package app

import (
	"sort"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/shopspring/decimal"
)

// DetectorParams are the detection thresholds that do not vary per call.
type DetectorParams struct {
	MaxPriceImpactPercent decimal.Decimal
	LiquidityCoverage     decimal.Decimal
	PlatformFeeRate       decimal.Decimal
	FreshnessWindow       time.Duration
	IncludeFallback       bool
}

// DefaultDetectorParams returns a 5% impact ceiling, 3x liquidity
// coverage, a 0.5% platform fee and a five minute freshness window.
func DefaultDetectorParams() DetectorParams {
	return DetectorParams{
		MaxPriceImpactPercent: decimal.NewFromInt(5),
		LiquidityCoverage:     decimal.NewFromInt(3),
		PlatformFeeRate:       decimal.RequireFromString("0.005"),
		FreshnessWindow:       pricingDomain.DefaultFreshnessWindow,
		IncludeFallback:       true,
	}
}

// DetectorParamsFromConfig converts engine config. Zero thresholds keep
// their defaults; the platform fee and fallback flag are taken as given.
func DetectorParamsFromConfig(c config.EngineConfig) DetectorParams {
	p := DefaultDetectorParams()
	if c.MaxPriceImpactPercent > 0 {
		p.MaxPriceImpactPercent = decimal.NewFromFloat(c.MaxPriceImpactPercent)
	}
	if c.LiquidityCoverage > 0 {
		p.LiquidityCoverage = decimal.NewFromFloat(c.LiquidityCoverage)
	}
	p.PlatformFeeRate = decimal.NewFromFloat(c.PlatformFeeRate)
	if c.FreshnessWindow > 0 {
		p.FreshnessWindow = c.FreshnessWindow
	}
	p.IncludeFallback = c.IncludeFallback
	return p
}

// Detector compares every pair of source quotes and prices the round trip.
// It does no I/O.
type Detector struct {
	liquidity *LiquidityModel
	params    DetectorParams
	now       func() time.Time
	newID     func() string
}

// DetectorOption configures a Detector.
type DetectorOption func(*Detector)

// WithDetectorClock overrides the time source used for staleness and
// timestamps.
func WithDetectorClock(now func() time.Time) DetectorOption {
	return func(d *Detector) { d.now = now }
}

// WithIDGenerator overrides opportunity id generation.
func WithIDGenerator(newID func() string) DetectorOption {
	return func(d *Detector) { d.newID = newID }
}

// NewDetector creates a detector.
func NewDetector(liquidity *LiquidityModel, params DetectorParams, opts ...DetectorOption) *Detector {
	d := &Detector{
		liquidity: liquidity,
		params:    params,
		now:       time.Now,
		newID:     domain.NewOpportunityID,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Params returns the detector thresholds.
func (d *Detector) Params() DetectorParams {
	return d.params
}

// Eligible filters quotes down to the ones that may be compared: usable,
// fresh, and not fallback-derived unless fallbacks are included.
func (d *Detector) Eligible(quotes map[string]pricingDomain.Quote) map[string]pricingDomain.Quote {
	now := d.now()
	out := make(map[string]pricingDomain.Quote, len(quotes))
	for slug, q := range quotes {
		if !q.IsUsable() || q.IsStale(now, d.params.FreshnessWindow) {
			continue
		}
		if q.IsFallback && !d.params.IncludeFallback {
			continue
		}
		out[slug] = q
	}
	return out
}

// Detect returns every profitable round trip among quotes for base/quote.
// investment is in quote-token units; minProfitPercent bounds the raw price
// difference. Output order is unspecified.
func (d *Detector) Detect(quotes map[string]pricingDomain.Quote, base, quote *asset.Asset, investment, minProfitPercent decimal.Decimal) []domain.Opportunity {
	eligible := d.Eligible(quotes)

	slugs := make([]string, 0, len(eligible))
	for slug := range eligible {
		slugs = append(slugs, slug)
	}
	sort.Strings(slugs)

	ordered := make([]pricingDomain.Quote, len(slugs))
	for i, slug := range slugs {
		ordered[i] = eligible[slug]
		ordered[i].Source = slug
	}

	var out []domain.Opportunity
	for i := 0; i < len(ordered); i++ {
		for j := i + 1; j < len(ordered); j++ {
			if opp, ok := d.evaluate(ordered[i], ordered[j], base, quote, investment, minProfitPercent); ok {
				out = append(out, opp)
			}
		}
	}
	return out
}

func (d *Detector) evaluate(a, b pricingDomain.Quote, base, quote *asset.Asset, investment, minProfitPercent decimal.Decimal) (domain.Opportunity, bool) {
	if a.Price.Equal(b.Price) {
		return domain.Opportunity{}, false
	}
	buy, sell := a, b
	if b.Price.LessThan(a.Price) {
		buy, sell = b, a
	}

	avg := buy.Price.Add(sell.Price).Div(decimal.NewFromInt(2))
	diffPercent := sell.Price.Sub(buy.Price).Div(avg).Mul(hundred)
	if diffPercent.LessThan(minProfitPercent) {
		return domain.Opportunity{}, false
	}

	buyLiq := d.liquidity.Assess(buy.LiquidityUSD, investment)
	sellLiq := d.liquidity.Assess(sell.LiquidityUSD, investment)
	if !buyLiq.IsValid || !sellLiq.IsValid {
		return domain.Opportunity{}, false
	}
	if buyLiq.PriceImpactPercent.GreaterThan(d.params.MaxPriceImpactPercent) ||
		sellLiq.PriceImpactPercent.GreaterThan(d.params.MaxPriceImpactPercent) {
		return domain.Opportunity{}, false
	}
	minLiq := decimal.Min(buy.LiquidityUSD, sell.LiquidityUSD)
	if minLiq.LessThan(investment.Mul(d.params.LiquidityCoverage)) {
		return domain.Opportunity{}, false
	}

	buyFee := investment.Mul(buy.FeeRate)
	fees := buyFee.Add(investment.Sub(buyFee).Mul(sell.FeeRate))

	effBuy := EffectiveBuyPrice(buy.Price, buyLiq.PriceImpactPercent)
	effSell := EffectiveSellPrice(sell.Price, sellLiq.PriceImpactPercent)
	tokens := investment.Div(effBuy)
	gross := tokens.Mul(effSell).Sub(investment)

	platform := investment.Mul(d.params.PlatformFeeRate)
	gas := buy.GasEstimateUSD.Add(sell.GasEstimateUSD)

	profit := domain.NewProfitBreakdown(investment, gross, fees, gas, platform)
	if !profit.IsProfitable() {
		return domain.Opportunity{}, false
	}

	return domain.Opportunity{
		ID:                     d.newID(),
		TokenPair:              asset.PairLabel(base, quote),
		ChainID:                base.ChainID(),
		Network:                asset.ChainName(base.ChainID()),
		BuySource:              buy.Source,
		SellSource:             sell.Source,
		BuyPrice:               buy.Price,
		SellPrice:              sell.Price,
		PriceDifferencePercent: diffPercent,
		BuyImpactPercent:       buyLiq.PriceImpactPercent,
		SellImpactPercent:      sellLiq.PriceImpactPercent,
		LiquidityUSD:           minLiq,
		ProfitBreakdown:        profit,
		InvestmentAmount:       investment,
		UsesFallback:           buy.IsFallback || sell.IsFallback,
		Timestamp:              d.now(),
	}, true
}

// SortByNetProfitPercent orders opportunities best first. Ties keep their
// input order.
func SortByNetProfitPercent(opps []domain.Opportunity) {
	sort.SliceStable(opps, func(i, j int) bool {
		return opps[i].NetProfitPercent.GreaterThan(opps[j].NetProfitPercent)
	})
}
