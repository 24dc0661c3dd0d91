package app

import (
	"context"
	"testing"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

func newTestAggregator(t *testing.T, fetchTimeout time.Duration, adapters ...*stubAdapter) (*Aggregator, *QuoteCache) {
	t.Helper()

	r := NewRegistry()
	for _, a := range adapters {
		if err := r.Register(a); err != nil {
			t.Fatalf("Register() error = %v", err)
		}
	}
	c := NewQuoteCache()
	t.Cleanup(c.Close)

	agg, err := NewAggregator(r, c, time.Minute, fetchTimeout, &mockLogger{})
	if err != nil {
		t.Fatalf("NewAggregator() error = %v", err)
	}
	return agg, c
}

func TestAggregator_MergesSources(t *testing.T) {
	evm := []uint64{1}
	agg, _ := newTestAggregator(t, time.Second,
		newStub("0x", asset.FamilyEVM, evm, priced("0x", "3000", "0")),
		newStub("uniswap-v3", asset.FamilyEVM, evm, priced("uniswap-v3", "3010", "2000000")),
		newStub("broken", asset.FamilyEVM, evm, priced("broken", "0", "100")),
		newStub("negative", asset.FamilyEVM, evm, priced("negative", "3000", "-1")),
		newStub("empty", asset.FamilyEVM, evm, func(context.Context) domain.QuoteResult {
			return domain.None(domain.ReasonNoFallback)
		}),
	)

	quotes, err := agg.Aggregate(context.Background(), asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(quotes) != 2 {
		t.Fatalf("Aggregate() returned %d quotes, want 2: %v", len(quotes), quotes)
	}
	if !quotes["uniswap-v3"].Price.Equal(decimal.NewFromInt(3010)) {
		t.Errorf("uniswap-v3 price = %s, want 3010", quotes["uniswap-v3"].Price)
	}
	if _, ok := quotes["0x"]; !ok {
		t.Error("0x quote missing")
	}
}

func TestAggregator_CachesResults(t *testing.T) {
	a := newStub("0x", asset.FamilyEVM, []uint64{1}, priced("0x", "3000", "1000"))
	agg, _ := newTestAggregator(t, time.Second, a)
	ctx := context.Background()

	first, err := agg.Aggregate(ctx, asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	delete(first, "0x")

	second, err := agg.Aggregate(ctx, asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(second) != 1 {
		t.Errorf("cached result mutated by caller: got %d quotes, want 1", len(second))
	}
	if got := a.calls.Load(); got != 1 {
		t.Errorf("adapter calls = %d, want 1", got)
	}

	if _, err := agg.Aggregate(ctx, asset.WETH, asset.USDC, WithForceRefresh()); err != nil {
		t.Fatalf("Aggregate(force) error = %v", err)
	}
	if got := a.calls.Load(); got != 2 {
		t.Errorf("adapter calls after force refresh = %d, want 2", got)
	}

	agg.Purge(ctx)
	if _, err := agg.Aggregate(ctx, asset.WETH, asset.USDC); err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if got := a.calls.Load(); got != 3 {
		t.Errorf("adapter calls after purge = %d, want 3", got)
	}
}

func TestAggregator_NoSourcesIsEmpty(t *testing.T) {
	agg, _ := newTestAggregator(t, time.Second,
		newStub("0x", asset.FamilyEVM, []uint64{1}, priced("0x", "3000", "1000")),
	)

	quotes, err := agg.Aggregate(context.Background(), asset.SOL, asset.SolanaUSDC)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(quotes) != 0 {
		t.Errorf("Aggregate() returned %d quotes, want 0", len(quotes))
	}
}

func TestAggregator_ChainMismatch(t *testing.T) {
	agg, _ := newTestAggregator(t, time.Second)

	_, err := agg.Aggregate(context.Background(), asset.WETH, asset.PolygonUSDC)
	if !apperror.IsCode(err, apperror.CodeChainMismatch) {
		t.Errorf("Aggregate() error = %v, want %s", err, apperror.CodeChainMismatch)
	}
}

func TestAggregator_PerFetchTimeout(t *testing.T) {
	slow := newStub("slow", asset.FamilyEVM, []uint64{1}, func(ctx context.Context) domain.QuoteResult {
		<-ctx.Done()
		return domain.None(domain.ReasonNoFallback)
	})
	fast := newStub("fast", asset.FamilyEVM, []uint64{1}, priced("fast", "3000", "1000"))
	agg, c := newTestAggregator(t, 20*time.Millisecond, slow, fast)

	quotes, err := agg.Aggregate(context.Background(), asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if len(quotes) != 1 {
		t.Errorf("Aggregate() returned %d quotes, want 1", len(quotes))
	}
	if c.Len() != 1 {
		t.Errorf("cache entries = %d, want 1", c.Len())
	}
}

func TestAggregator_CancelledReturnsPartial(t *testing.T) {
	release := make(chan struct{})
	defer close(release)

	stuck := newStub("stuck", asset.FamilyEVM, []uint64{1}, func(context.Context) domain.QuoteResult {
		<-release
		return domain.None(domain.ReasonNoFallback)
	})
	fast := newStub("fast", asset.FamilyEVM, []uint64{1}, priced("fast", "3000", "1000"))
	agg, c := newTestAggregator(t, time.Minute, stuck, fast)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()

	quotes, err := agg.Aggregate(ctx, asset.WETH, asset.USDC)
	if err != nil {
		t.Fatalf("Aggregate() error = %v", err)
	}
	if _, ok := quotes["fast"]; !ok || len(quotes) != 1 {
		t.Errorf("Aggregate() = %v, want only the fast quote", quotes)
	}
	if c.Len() != 0 {
		t.Errorf("cache entries = %d, want 0 after partial aggregation", c.Len())
	}
}
