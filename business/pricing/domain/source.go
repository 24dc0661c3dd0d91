package domain

import (
	"sort"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

// Venue classifies how a source prices trades.
type Venue string

const (
	VenueAggregator Venue = "aggregator"
	VenueAMM        Venue = "amm"
)

// ChainSet is an immutable set of chain ids.
type ChainSet struct {
	ids map[uint64]struct{}
}

// NewChainSet builds a set from ids.
func NewChainSet(ids ...uint64) ChainSet {
	m := make(map[uint64]struct{}, len(ids))
	for _, id := range ids {
		m[id] = struct{}{}
	}
	return ChainSet{ids: m}
}

// Contains reports membership.
func (s ChainSet) Contains(id uint64) bool {
	_, ok := s.ids[id]
	return ok
}

// IDs returns the chain ids in ascending order.
func (s ChainSet) IDs() []uint64 {
	out := make([]uint64, 0, len(s.ids))
	for id := range s.ids {
		out = append(out, id)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// SourceConfig describes a price source. Only Enabled changes after
// construction, and only through the registry.
type SourceConfig struct {
	Name           string          `json:"name"`
	Slug           string          `json:"slug"`
	Kind           string          `json:"kind"`
	Venue          Venue           `json:"venue"`
	Family         asset.Family    `json:"family"`
	Chains         ChainSet        `json:"-"`
	FeeRatePercent decimal.Decimal `json:"feeRatePercent"`
	GasMultiplier  decimal.Decimal `json:"gasMultiplier"`
	Enabled        bool            `json:"enabled"`
}

// FeeRate returns the fee as a fraction.
func (c SourceConfig) FeeRate() decimal.Decimal {
	return c.FeeRatePercent.Div(decimal.NewFromInt(100))
}

// ChainIDs is a JSON-friendly view of Chains.
func (c SourceConfig) ChainIDs() []uint64 {
	return c.Chains.IDs()
}
