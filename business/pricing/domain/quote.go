// Package domain contains the core domain types for the pricing context.
package domain

import (
	"fmt"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

// DefaultFreshnessWindow is how long a quote counts as live data.
const DefaultFreshnessWindow = 5 * time.Minute

// Pair is a base/quote token pair on a single chain.
type Pair struct {
	Base  *asset.Asset
	Quote *asset.Asset
}

// NewPair validates that both tokens exist and share a chain.
func NewPair(base, quote *asset.Asset) (Pair, error) {
	if base == nil || quote == nil {
		return Pair{}, fmt.Errorf("pricing: nil token in pair")
	}
	if base.ChainID() != quote.ChainID() {
		return Pair{}, fmt.Errorf("pricing: %s and %s are on different chains", base.ID(), quote.ID())
	}
	if base.Equals(quote) {
		return Pair{}, fmt.Errorf("pricing: base and quote are the same token %s", base.ID())
	}
	return Pair{Base: base, Quote: quote}, nil
}

// ChainID returns the chain both tokens live on.
func (p Pair) ChainID() uint64 {
	return p.Base.ChainID()
}

// String returns "BASE/QUOTE".
func (p Pair) String() string {
	return asset.PairLabel(p.Base, p.Quote)
}

// Key identifies the pair by token identity, not symbol.
func (p Pair) Key() string {
	return fmt.Sprintf("%d:%s:%s", p.ChainID(), p.Base.Address(), p.Quote.Address())
}

// QuoteKey addresses one source's quotes for a pair in the durable store.
type QuoteKey struct {
	Source  string
	ChainID uint64
	Base    string
	Quote   string
}

// NewQuoteKey builds the store key for source and pair.
func NewQuoteKey(source string, p Pair) QuoteKey {
	return QuoteKey{Source: source, ChainID: p.ChainID(), Base: p.Base.Address(), Quote: p.Quote.Address()}
}

func (k QuoteKey) String() string {
	return fmt.Sprintf("%s:%d:%s:%s", k.Source, k.ChainID, k.Base, k.Quote)
}

// Quote is one source's price for a pair at a point in time.
// Price is quote-token units per base-token unit, FeeRate a fraction.
// LiquidityUSD of zero means the source did not report liquidity.
type Quote struct {
	Source         string          `json:"source"`
	Price          decimal.Decimal `json:"price"`
	FeeRate        decimal.Decimal `json:"feeRate"`
	LiquidityUSD   decimal.Decimal `json:"liquidityUsd"`
	GasEstimateUSD decimal.Decimal `json:"gasEstimateUsd"`
	Timestamp      time.Time       `json:"timestamp"`
	IsFallback     bool            `json:"isFallback"`
}

// IsUsable reports whether the quote can take part in a comparison.
func (q Quote) IsUsable() bool {
	return q.Price.IsPositive() && !q.LiquidityUSD.IsNegative()
}

// HasLiquidity reports whether the source reported pool depth.
func (q Quote) HasLiquidity() bool {
	return q.LiquidityUSD.IsPositive()
}

// IsStale reports whether the quote is older than window at now.
func (q Quote) IsStale(now time.Time, window time.Duration) bool {
	return now.Sub(q.Timestamp) > window
}

// Reason explains why an adapter produced no quote.
type Reason string

const (
	ReasonNone             Reason = ""
	ReasonChainUnsupported Reason = "chain_unsupported"
	ReasonNoFallback       Reason = "no_fallback"
	ReasonInvalidRequest   Reason = "invalid_request"
)

// QuoteResult is the outcome of one adapter call: a quote or a reason
// for having none.
type QuoteResult struct {
	quote  Quote
	ok     bool
	reason Reason
}

// Some wraps a quote.
func Some(q Quote) QuoteResult {
	return QuoteResult{quote: q, ok: true}
}

// None records that no quote is available.
func None(reason Reason) QuoteResult {
	return QuoteResult{reason: reason}
}

// Get returns the quote and whether one is present.
func (r QuoteResult) Get() (Quote, bool) {
	return r.quote, r.ok
}

// Reason returns why no quote is present, or ReasonNone.
func (r QuoteResult) Reason() Reason {
	return r.reason
}

// OK reports whether a quote is present.
func (r QuoteResult) OK() bool {
	return r.ok
}
