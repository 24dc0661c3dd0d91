package app

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

const fallbackStoreTimeout = 2 * time.Second

// FallbackChain produces a best-effort quote when a live fetch fails:
// the latest stored quote with jitter, then the static USD table.
type FallbackChain struct {
	store  QuoteStore
	static *domain.StaticPrices
	jitter decimal.Decimal
	log    logger.LoggerInterface

	rand func() float64
	now  func() time.Time
}

// FallbackOption configures a FallbackChain.
type FallbackOption func(*FallbackChain)

// WithJitterSource overrides the uniform [0,1) source used for jitter.
func WithJitterSource(f func() float64) FallbackOption {
	return func(fc *FallbackChain) { fc.rand = f }
}

// WithFallbackClock overrides the time source.
func WithFallbackClock(now func() time.Time) FallbackOption {
	return func(fc *FallbackChain) { fc.now = now }
}

// NewFallbackChain creates a fallback chain. jitter is the maximum relative
// deviation applied to stored prices, e.g. 0.001 for +/-0.1%.
func NewFallbackChain(store QuoteStore, static *domain.StaticPrices, jitter float64, log logger.LoggerInterface, opts ...FallbackOption) *FallbackChain {
	fc := &FallbackChain{
		store:  store,
		static: static,
		jitter: decimal.NewFromFloat(jitter),
		log:    log,
		rand:   rand.Float64,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(fc)
	}
	return fc
}

// Resolve returns a fallback quote for cfg and pair. gasUSD is the current
// gas estimate for the source.
func (f *FallbackChain) Resolve(ctx context.Context, cfg domain.SourceConfig, pair domain.Pair, gasUSD decimal.Decimal) domain.QuoteResult {
	// The live fetch may have died on its own deadline; the store still gets a chance.
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackStoreTimeout)
	defer cancel()

	if f.store != nil {
		cached, ok, err := f.store.LatestQuote(storeCtx, domain.NewQuoteKey(cfg.Slug, pair))
		if err != nil {
			f.log.Warn(ctx, "fallback store lookup failed", "source", cfg.Slug, "pair", pair.String(), "error", err)
		}
		if ok && cached.Price.IsPositive() {
			return domain.Some(domain.Quote{
				Source:         cfg.Slug,
				Price:          cached.Price.Mul(f.jitterFactor()),
				FeeRate:        cached.FeeRate,
				LiquidityUSD:   cached.LiquidityUSD,
				GasEstimateUSD: gasUSD,
				Timestamp:      f.now(),
				IsFallback:     true,
			})
		}
	}

	if f.static != nil {
		if rate, ok := f.static.Rate(pair.Base, pair.Quote); ok {
			return domain.Some(domain.Quote{
				Source:         cfg.Slug,
				Price:          rate,
				FeeRate:        cfg.FeeRate(),
				LiquidityUSD:   decimal.Zero,
				GasEstimateUSD: gasUSD,
				Timestamp:      f.now(),
				IsFallback:     true,
			})
		}
	}

	return domain.None(domain.ReasonNoFallback)
}

// jitterFactor returns 1 + u*jitter with u uniform in [-1, 1).
func (f *FallbackChain) jitterFactor() decimal.Decimal {
	u := decimal.NewFromFloat(f.rand()*2 - 1)
	return decimal.NewFromInt(1).Add(u.Mul(f.jitter))
}
