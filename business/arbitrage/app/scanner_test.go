package app

import (
	"context"
	"strings"
	"testing"
	"time"

	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

func newTestScanner(t *testing.T, agg *fakeAggregator, reg *fakeRegistry, flags FlagStore) *ScanService {
	t.Helper()
	static := pricingDomain.NewStaticPrices(map[string]float64{"WETH": 2000, "USDC": 1})
	s, err := NewScanService(agg, reg, flags, static, unitScaleDetector(), time.Second, logger.NewNop())
	if err != nil {
		t.Fatalf("NewScanService() error = %v", err)
	}
	return s
}

func twoSourceQuotes() map[string]pricingDomain.Quote {
	return map[string]pricingDomain.Quote{
		"uniswap-v3": quoteAt("100", "1000000", "0.003"),
		"sushiswap":  quoteAt("102", "1000000", "0.003"),
	}
}

func TestScanService_Validation(t *testing.T) {
	s := newTestScanner(t, &fakeAggregator{}, &fakeRegistry{}, nil)
	ctx := context.Background()

	tests := []struct {
		name       string
		base       *asset.Asset
		quote      *asset.Asset
		investment string
		minProfit  string
		code       apperror.Code
	}{
		{"missing base", nil, asset.USDC, "1000", "0.5", apperror.CodeInvalidInput},
		{"missing quote", asset.WETH, nil, "1000", "0.5", apperror.CodeInvalidInput},
		{"cross chain", asset.WETH, asset.PolygonUSDC, "1000", "0.5", apperror.CodeChainMismatch},
		{"zero investment", asset.WETH, asset.USDC, "0", "0.5", apperror.CodeInvalidTradeSize},
		{"negative investment", asset.WETH, asset.USDC, "-10", "0.5", apperror.CodeInvalidTradeSize},
		{"negative threshold", asset.WETH, asset.USDC, "1000", "-1", apperror.CodeInvalidProfitThreshold},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Scan(ctx, tt.base, tt.quote, d(tt.investment), d(tt.minProfit))
			if !apperror.IsCode(err, tt.code) {
				t.Errorf("Scan() error = %v, want code %s", err, tt.code)
			}
		})
	}
}

func TestScanService_Scan(t *testing.T) {
	agg := &fakeAggregator{quotes: twoSourceQuotes()}
	s := newTestScanner(t, agg, &fakeRegistry{}, nil)

	res, err := s.Scan(context.Background(), asset.WETH, asset.USDC, d("1000"), d("0.5"), WithRefresh())
	if err != nil {
		t.Fatalf("Scan() error = %v", err)
	}
	if res.Pair != "WETH/USDC" {
		t.Errorf("Pair = %s, want WETH/USDC", res.Pair)
	}
	if res.Network != "ethereum" {
		t.Errorf("Network = %s, want ethereum", res.Network)
	}
	if len(res.Quotes) != 2 {
		t.Errorf("Quotes = %d, want 2", len(res.Quotes))
	}
	if len(res.Opportunities) != 1 {
		t.Fatalf("Opportunities = %d, want 1", len(res.Opportunities))
	}
	if res.Message != "" {
		t.Errorf("Message = %q, want empty", res.Message)
	}

	best, ok := res.Best()
	if !ok {
		t.Fatal("Best() found nothing")
	}
	if best.BuySource != "uniswap-v3" || best.SellSource != "sushiswap" {
		t.Errorf("route = %s -> %s, want uniswap-v3 -> sushiswap", best.BuySource, best.SellSource)
	}
	if agg.calls != 1 {
		t.Errorf("aggregator calls = %d, want 1", agg.calls)
	}
}

func TestScanService_EmptyResults(t *testing.T) {
	tests := []struct {
		name      string
		quotes    map[string]pricingDomain.Quote
		minProfit string
		message   string
	}{
		{
			name:      "no quotes",
			quotes:    map[string]pricingDomain.Quote{},
			minProfit: "0.5",
			message:   "insufficient price data: 0 usable",
		},
		{
			name:      "one quote",
			quotes:    map[string]pricingDomain.Quote{"uniswap-v3": quoteAt("100", "1000000", "0.003")},
			minProfit: "0.5",
			message:   "insufficient price data: 1 usable",
		},
		{
			name:      "threshold too high",
			quotes:    twoSourceQuotes(),
			minProfit: "5",
			message:   "no profitable opportunities above 5%",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestScanner(t, &fakeAggregator{quotes: tt.quotes}, &fakeRegistry{}, nil)

			res, err := s.Scan(context.Background(), asset.WETH, asset.USDC, d("1000"), d(tt.minProfit))
			if err != nil {
				t.Fatalf("Scan() error = %v", err)
			}
			if res.Opportunities == nil || len(res.Opportunities) != 0 {
				t.Errorf("Opportunities = %v, want empty non-nil slice", res.Opportunities)
			}
			if !strings.HasPrefix(res.Message, tt.message) {
				t.Errorf("Message = %q, want prefix %q", res.Message, tt.message)
			}
			if _, ok := res.Best(); ok {
				t.Error("Best() found an opportunity in an empty result")
			}
		})
	}
}

func TestScanService_AggregatorError(t *testing.T) {
	s := newTestScanner(t, &fakeAggregator{err: errUpstream}, &fakeRegistry{}, nil)

	if _, err := s.Scan(context.Background(), asset.WETH, asset.USDC, d("1000"), d("0.5")); err != errUpstream {
		t.Errorf("Scan() error = %v, want %v", err, errUpstream)
	}
}

func TestScanService_SetSourceEnabled(t *testing.T) {
	newRegistry := func() *fakeRegistry {
		return &fakeRegistry{configs: []pricingDomain.SourceConfig{
			{Slug: "uniswap-v3", Enabled: true},
			{Slug: "sushiswap", Enabled: true},
		}}
	}

	t.Run("persists and purges", func(t *testing.T) {
		agg := &fakeAggregator{}
		reg := newRegistry()
		flags := &fakeFlags{flags: map[string]bool{}}
		s := newTestScanner(t, agg, reg, flags)

		if err := s.SetSourceEnabled(context.Background(), "sushiswap", false); err != nil {
			t.Fatalf("SetSourceEnabled() error = %v", err)
		}
		if reg.configs[1].Enabled {
			t.Error("sushiswap still enabled in registry")
		}
		if enabled, ok := flags.flags["sushiswap"]; !ok || enabled {
			t.Errorf("persisted flag = %v (present %v), want false", enabled, ok)
		}
		if agg.purges != 1 {
			t.Errorf("purges = %d, want 1", agg.purges)
		}
	})

	t.Run("unknown source", func(t *testing.T) {
		agg := &fakeAggregator{}
		s := newTestScanner(t, agg, newRegistry(), nil)

		err := s.SetSourceEnabled(context.Background(), "curve", true)
		if !apperror.IsCode(err, apperror.CodeSourceNotFound) {
			t.Errorf("SetSourceEnabled() error = %v, want %s", err, apperror.CodeSourceNotFound)
		}
		if agg.purges != 0 {
			t.Errorf("purges = %d, want 0", agg.purges)
		}
	})

	t.Run("store failure is not fatal", func(t *testing.T) {
		agg := &fakeAggregator{}
		reg := newRegistry()
		s := newTestScanner(t, agg, reg, &fakeFlags{err: errUpstream})

		if err := s.SetSourceEnabled(context.Background(), "uniswap-v3", false); err != nil {
			t.Fatalf("SetSourceEnabled() error = %v", err)
		}
		if reg.configs[0].Enabled {
			t.Error("uniswap-v3 still enabled in registry")
		}
		if agg.purges != 1 {
			t.Errorf("purges = %d, want 1", agg.purges)
		}
	})
}

func TestScanService_Sources(t *testing.T) {
	reg := &fakeRegistry{configs: []pricingDomain.SourceConfig{
		{Slug: "uniswap-v3", Enabled: true, Chains: pricingDomain.NewChainSet(1, 137)},
		{Slug: "jupiter", Enabled: false, Chains: pricingDomain.NewChainSet(asset.ChainIDSolana)},
	}}
	s := newTestScanner(t, &fakeAggregator{}, reg, nil)

	got := s.Sources()
	if len(got) != 2 {
		t.Fatalf("Sources() = %d entries, want 2", len(got))
	}
	if got[0].Slug != "uniswap-v3" || len(got[0].ChainIDs) != 2 {
		t.Errorf("Sources()[0] = %s on %v", got[0].Slug, got[0].ChainIDs)
	}
	if got[1].Enabled {
		t.Error("jupiter reported enabled")
	}
	if got[0].Breaker != "n/a" {
		t.Errorf("Breaker = %s, want n/a for a non-breaker adapter", got[0].Breaker)
	}
}
