// Package app contains the price-source adapters, their registry and the
// aggregation service.
package app

import (
	"context"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

// Adapter is one price source as seen by the registry and aggregator.
type Adapter interface {
	Config() domain.SourceConfig
	Slug() string
	SupportedChains() domain.ChainSet
	IsEnabled() bool
	SetEnabled(enabled bool)
	// FetchQuote prices amount of base in quote. It never fails: errors are
	// absorbed into a fallback quote or reported as a None result.
	FetchQuote(ctx context.Context, base, quote *asset.Asset, amount decimal.Decimal) domain.QuoteResult
}

// QuoteRequest is a single live venue request.
type QuoteRequest struct {
	Pair     domain.Pair
	AmountIn asset.Amount
	// TradeUSD is the approximate USD size of AmountIn, zero when unknown.
	TradeUSD decimal.Decimal
}

// VenueQuote is a venue's raw answer. Swap venues set AmountOut; spot
// venues set Price instead.
type VenueQuote struct {
	AmountOut    asset.Amount
	Price        decimal.Decimal
	LiquidityUSD decimal.Decimal
	FeeRate      decimal.NullDecimal
}

// Quoter performs the venue-specific request for a source.
type Quoter interface {
	Quote(ctx context.Context, req QuoteRequest) (VenueQuote, error)
}

// RateLimiter gates outbound calls per source.
type RateLimiter interface {
	Acquire(ctx context.Context, source string) error
	ReportFailure(source string)
	ReportSuccess(source string)
}

// QuoteStore is the durable store for quotes and source flags.
type QuoteStore interface {
	LatestQuote(ctx context.Context, key domain.QuoteKey) (domain.Quote, bool, error)
	AppendQuote(ctx context.Context, key domain.QuoteKey, q domain.Quote) error
	SourceFlags(ctx context.Context) (map[string]bool, error)
	SetSourceFlag(ctx context.Context, slug string, enabled bool) error
	Ping(ctx context.Context) error
}

// GasPriceProvider supplies live gas prices in gwei.
type GasPriceProvider interface {
	GasPriceGwei(ctx context.Context, chainID uint64) (decimal.Decimal, error)
}
