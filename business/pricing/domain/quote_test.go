package domain

import (
	"testing"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

func TestQuote_IsUsable(t *testing.T) {
	tests := []struct {
		name      string
		price     string
		liquidity string
		want      bool
	}{
		{"priced with liquidity", "100", "1000000", true},
		{"priced without liquidity", "100", "0", true},
		{"zero price", "0", "1000000", false},
		{"negative liquidity", "100", "-1", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			q := Quote{Price: decimal.RequireFromString(tt.price), LiquidityUSD: decimal.RequireFromString(tt.liquidity)}
			if got := q.IsUsable(); got != tt.want {
				t.Errorf("IsUsable = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestQuote_IsStale(t *testing.T) {
	now := time.Now()
	q := Quote{Timestamp: now.Add(-DefaultFreshnessWindow)}
	if q.IsStale(now, DefaultFreshnessWindow) {
		t.Error("quote exactly at the window edge should still be fresh")
	}
	q.Timestamp = q.Timestamp.Add(-time.Second)
	if !q.IsStale(now, DefaultFreshnessWindow) {
		t.Error("quote past the window should be stale")
	}
}

func TestNewPair(t *testing.T) {
	if _, err := NewPair(asset.WETH, asset.SolanaUSDC); err == nil {
		t.Error("expected cross-chain pair to be rejected")
	}
	if _, err := NewPair(asset.WETH, asset.WETH); err == nil {
		t.Error("expected identical tokens to be rejected")
	}
	p, err := NewPair(asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("NewPair: %v", err)
	}
	if p.String() != "WETH/USDC" || p.ChainID() != asset.ChainIDEthereum {
		t.Errorf("pair = %s on %d", p, p.ChainID())
	}
}

func TestQuoteResult(t *testing.T) {
	r := None(ReasonChainUnsupported)
	if _, ok := r.Get(); ok || r.Reason() != ReasonChainUnsupported {
		t.Errorf("None result = %+v", r)
	}

	q := Quote{Source: "0x", Price: decimal.NewFromInt(1)}
	r = Some(q)
	got, ok := r.Get()
	if !ok || got.Source != "0x" || r.Reason() != ReasonNone {
		t.Errorf("Some result = %+v", r)
	}
}

func TestStaticPrices_Rate(t *testing.T) {
	sp := NewStaticPrices(map[string]float64{"weth": 3000, "USDC": 1})

	rate, ok := sp.Rate(asset.WETH, asset.USDC)
	if !ok || !rate.Equal(decimal.NewFromInt(3000)) {
		t.Errorf("Rate = %s, %v, want 3000", rate, ok)
	}
	if _, ok := sp.Rate(asset.WBTC, asset.USDC); ok {
		t.Error("unknown symbol must not be priced")
	}
}
