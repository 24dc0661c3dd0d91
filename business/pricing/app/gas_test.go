package app

import (
	"context"
	"errors"
	"testing"

	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/shopspring/decimal"
)

type fixedGas struct {
	gwei decimal.Decimal
	err  error
}

func (f fixedGas) GasPriceGwei(ctx context.Context, chainID uint64) (decimal.Decimal, error) {
	return f.gwei, f.err
}

func TestGasModel_EstimateUSD(t *testing.T) {
	chains := config.DefaultChains()

	tests := []struct {
		name       string
		live       GasPriceProvider
		chainID    uint64
		multiplier string
		want       string
	}{
		{"ethereum aggregator", nil, 1, "1.5", "20.25"},
		{"ethereum amm", nil, 1, "1", "13.5"},
		{"zero multiplier means one", nil, 1, "0", "13.5"},
		{"polygon", nil, 137, "1", "0.00525"},
		{"unknown chain", nil, 999, "1", "0"},
		{"live price", fixedGas{gwei: decimal.NewFromInt(10)}, 1, "1", "4.5"},
		{"live error keeps config", fixedGas{err: errors.New("rpc down")}, 1, "1", "13.5"},
		{"live zero keeps config", fixedGas{gwei: decimal.Zero}, 1, "1", "13.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewGasModel(chains, tt.live)
			got := m.EstimateUSD(context.Background(), tt.chainID, decimal.RequireFromString(tt.multiplier))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("EstimateUSD() = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestImpliedLiquidityUSD(t *testing.T) {
	tests := []struct {
		name   string
		trade  string
		impact string
		scale  string
		want   string
	}{
		{"one percent", "1000", "1", "100", "10000000"},
		{"ten percent", "1000", "10", "100", "100000"},
		{"tuned scale", "1000", "10", "50", "25000"},
		{"unit scale", "1000", "0.1", "1", "100000"},
		{"unset scale uses default", "1000", "10", "0", "100000"},
		{"zero impact is capped", "1000", "0", "100", "1000000000"},
		{"tiny impact is capped", "1000", "0.0001", "100", "1000000000"},
		{"unknown trade", "0", "1", "100", "0"},
		{"negative impact", "1000", "-1", "100", "0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ImpliedLiquidityUSD(decimal.RequireFromString(tt.trade), decimal.RequireFromString(tt.impact), decimal.RequireFromString(tt.scale))
			if !got.Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("ImpliedLiquidityUSD() = %s, want %s", got, tt.want)
			}
		})
	}
}
