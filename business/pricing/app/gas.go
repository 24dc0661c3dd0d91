package app

import (
	"context"

	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/shopspring/decimal"
)

var gweiToNative = decimal.New(1, -9)

// ChainGas holds the constants used to price a swap's gas on one chain.
type ChainGas struct {
	BaseGasUnits   decimal.Decimal
	GasPriceGwei   decimal.Decimal
	NativePriceUSD decimal.Decimal
}

// GasModel estimates the USD gas cost of a single swap leg.
type GasModel struct {
	chains map[uint64]ChainGas
	live   GasPriceProvider
}

// NewGasModel builds a model from chain configs. live may be nil.
func NewGasModel(chains []config.ChainConfig, live GasPriceProvider) *GasModel {
	m := &GasModel{chains: make(map[uint64]ChainGas, len(chains)), live: live}
	for _, c := range chains {
		m.chains[c.ID] = ChainGas{
			BaseGasUnits:   decimal.NewFromInt(int64(c.BaseGasUnits)),
			GasPriceGwei:   decimal.NewFromFloat(c.GasPriceGwei),
			NativePriceUSD: decimal.NewFromFloat(c.NativePriceUSD),
		}
	}
	return m
}

// EstimateUSD returns units x multiplier x gwei x 1e-9 x native USD. A live
// gas price replaces the configured one when available. Unknown chains cost
// zero.
func (m *GasModel) EstimateUSD(ctx context.Context, chainID uint64, multiplier decimal.Decimal) decimal.Decimal {
	c, ok := m.chains[chainID]
	if !ok {
		return decimal.Zero
	}

	gwei := c.GasPriceGwei
	if m.live != nil {
		if g, err := m.live.GasPriceGwei(ctx, chainID); err == nil && g.IsPositive() {
			gwei = g
		}
	}

	if multiplier.IsZero() {
		multiplier = decimal.NewFromInt(1)
	}

	return c.BaseGasUnits.
		Mul(multiplier).
		Mul(gwei).
		Mul(gweiToNative).
		Mul(c.NativePriceUSD)
}
