package domain

import (
	"strings"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

// StaticPrices is a table of approximate USD prices keyed by symbol.
// It prices a pair when no live or cached quote exists.
type StaticPrices struct {
	usd map[string]decimal.Decimal
}

// NewStaticPrices builds a table from symbol -> USD.
func NewStaticPrices(table map[string]float64) *StaticPrices {
	usd := make(map[string]decimal.Decimal, len(table))
	for sym, p := range table {
		if p > 0 {
			usd[strings.ToUpper(sym)] = decimal.NewFromFloat(p)
		}
	}
	return &StaticPrices{usd: usd}
}

// USD returns the approximate USD price of token.
func (s *StaticPrices) USD(token *asset.Asset) (decimal.Decimal, bool) {
	p, ok := s.usd[strings.ToUpper(token.Symbol())]
	return p, ok
}

// Rate returns the approximate price of base in quote units.
func (s *StaticPrices) Rate(base, quote *asset.Asset) (decimal.Decimal, bool) {
	b, ok := s.USD(base)
	if !ok {
		return decimal.Zero, false
	}
	q, ok := s.USD(quote)
	if !ok {
		return decimal.Zero, false
	}
	return b.Div(q), true
}
