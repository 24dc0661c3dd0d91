package app

import (
	"fmt"
	"testing"
	"time"

	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

var testNow = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func quoteAt(price, liquidity, fee string) pricingDomain.Quote {
	return pricingDomain.Quote{
		Price:        d(price),
		FeeRate:      d(fee),
		LiquidityUSD: d(liquidity),
		Timestamp:    testNow.Add(-10 * time.Second),
	}
}

// unitScaleDetector uses an impact scale of 1 so a 1000 trade against 1M of
// liquidity stays well inside the valid impact range.
func unitScaleDetector() *Detector {
	lp := DefaultLiquidityParams()
	lp.ImpactScale = decimal.NewFromInt(1)

	seq := 0
	return NewDetector(NewLiquidityModel(lp), DefaultDetectorParams(),
		WithDetectorClock(func() time.Time { return testNow }),
		WithIDGenerator(func() string { seq++; return fmt.Sprintf("opp-%d", seq) }),
	)
}

func TestDetector_TwoSourceRoundTrip(t *testing.T) {
	det := unitScaleDetector()
	quotes := map[string]pricingDomain.Quote{
		"sell-venue": quoteAt("102", "1000000", "0.003"),
		"buy-venue":  quoteAt("100", "1000000", "0.003"),
	}

	opps := det.Detect(quotes, asset.WETH, asset.USDC, d("1000"), d("0.5"))
	if len(opps) != 1 {
		t.Fatalf("Detect() returned %d opportunities, want 1", len(opps))
	}
	opp := opps[0]

	if opp.BuySource != "buy-venue" || opp.SellSource != "sell-venue" {
		t.Errorf("route = %s -> %s, want buy-venue -> sell-venue", opp.BuySource, opp.SellSource)
	}
	if opp.ID != "opp-1" {
		t.Errorf("ID = %s, want opp-1", opp.ID)
	}
	if opp.TokenPair != "WETH/USDC" {
		t.Errorf("TokenPair = %s, want WETH/USDC", opp.TokenPair)
	}
	if opp.ChainID != asset.ChainIDEthereum {
		t.Errorf("ChainID = %d, want %d", opp.ChainID, asset.ChainIDEthereum)
	}
	if !opp.Timestamp.Equal(testNow) {
		t.Errorf("Timestamp = %s, want %s", opp.Timestamp, testNow)
	}

	between(t, "PriceDifferencePercent", opp.PriceDifferencePercent, "1.9", "2.0")
	between(t, "BuyImpactPercent", opp.BuyImpactPercent, "0.0316", "0.0317")
	between(t, "SellImpactPercent", opp.SellImpactPercent, "0.0316", "0.0317")
	if !opp.TradingFees.Equal(d("5.991")) {
		t.Errorf("TradingFees = %s, want 5.991", opp.TradingFees)
	}
	if !opp.PlatformFee.Equal(d("5")) {
		t.Errorf("PlatformFee = %s, want 5", opp.PlatformFee)
	}
	if !opp.GasFee.IsZero() {
		t.Errorf("GasFee = %s, want 0", opp.GasFee)
	}
	between(t, "GrossProfit", opp.GrossProfit, "19.35", "19.36")
	between(t, "NetProfit", opp.NetProfit, "8.36", "8.37")
	between(t, "NetProfitPercent", opp.NetProfitPercent, "0.836", "0.837")
	if !opp.LiquidityUSD.Equal(d("1000000")) {
		t.Errorf("LiquidityUSD = %s, want 1000000", opp.LiquidityUSD)
	}
}

func TestDetector_DefaultScaleRejectsThinVenues(t *testing.T) {
	det := NewDetector(NewLiquidityModel(DefaultLiquidityParams()), DefaultDetectorParams(),
		WithDetectorClock(func() time.Time { return testNow }))
	quotes := map[string]pricingDomain.Quote{
		"sell-venue": quoteAt("102", "1000000", "0.003"),
		"buy-venue":  quoteAt("100", "1000000", "0.003"),
	}

	if opps := det.Detect(quotes, asset.WETH, asset.USDC, d("1000"), d("0.5")); len(opps) != 0 {
		t.Errorf("Detect() returned %d opportunities, want 0 at 3.16%% impact", len(opps))
	}

	a := NewLiquidityModel(DefaultLiquidityParams()).Assess(d("1000000"), d("1000"))
	between(t, "PriceImpactPercent", a.PriceImpactPercent, "3.1622", "3.1623")
	if a.IsValid {
		t.Errorf("Assess() IsValid = true, want false above the 3%% ceiling")
	}
}

func TestDetector_Rejections(t *testing.T) {
	tests := []struct {
		name      string
		det       *Detector
		quotes    map[string]pricingDomain.Quote
		minProfit string
	}{
		{
			name: "shallow sell venue",
			det:  unitScaleDetector(),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "1000000", "0.003"),
				"y": quoteAt("102", "2000", "0.003"),
			},
			minProfit: "0.5",
		},
		{
			name: "threshold above spread",
			det:  unitScaleDetector(),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "1000000", "0.003"),
				"y": quoteAt("102", "1000000", "0.003"),
			},
			minProfit: "5",
		},
		{
			name: "default impact scale exceeds valid range",
			det: NewDetector(NewLiquidityModel(DefaultLiquidityParams()), DefaultDetectorParams(),
				WithDetectorClock(func() time.Time { return testNow })),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "1000000", "0.003"),
				"y": quoteAt("102", "1000000", "0.003"),
			},
			minProfit: "0.5",
		},
		{
			name: "unknown liquidity",
			det:  unitScaleDetector(),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "0", "0.003"),
				"y": quoteAt("102", "1000000", "0.003"),
			},
			minProfit: "0.5",
		},
		{
			name: "equal prices",
			det:  unitScaleDetector(),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "1000000", "0.003"),
				"y": quoteAt("100", "1000000", "0.003"),
			},
			minProfit: "0",
		},
		{
			name: "fees exceed spread",
			det:  unitScaleDetector(),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "1000000", "0.003"),
				"y": quoteAt("100.5", "1000000", "0.003"),
			},
			minProfit: "0",
		},
		{
			name: "single source",
			det:  unitScaleDetector(),
			quotes: map[string]pricingDomain.Quote{
				"x": quoteAt("100", "1000000", "0.003"),
			},
			minProfit: "0",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			opps := tt.det.Detect(tt.quotes, asset.WETH, asset.USDC, d("1000"), d(tt.minProfit))
			if len(opps) != 0 {
				t.Errorf("Detect() = %d opportunities, want none (first: %s -> %s net %s)",
					len(opps), opps[0].BuySource, opps[0].SellSource, opps[0].NetProfit)
			}
		})
	}
}

func TestDetector_GasReducesNet(t *testing.T) {
	det := unitScaleDetector()
	buy := quoteAt("100", "1000000", "0.003")
	buy.GasEstimateUSD = d("3")
	sell := quoteAt("102", "1000000", "0.003")
	sell.GasEstimateUSD = d("4")

	opps := det.Detect(map[string]pricingDomain.Quote{"a": buy, "b": sell}, asset.WETH, asset.USDC, d("1000"), d("0"))
	if len(opps) != 1 {
		t.Fatalf("Detect() returned %d opportunities, want 1", len(opps))
	}
	if !opps[0].GasFee.Equal(d("7")) {
		t.Errorf("GasFee = %s, want 7", opps[0].GasFee)
	}
	between(t, "NetProfit", opps[0].NetProfit, "1.36", "1.37")

	buy.GasEstimateUSD = d("5")
	sell.GasEstimateUSD = d("5")
	opps = det.Detect(map[string]pricingDomain.Quote{"a": buy, "b": sell}, asset.WETH, asset.USDC, d("1000"), d("0"))
	if len(opps) != 0 {
		t.Errorf("Detect() with 10 gas returned %d opportunities, want none", len(opps))
	}
}

func TestDetector_Invariants(t *testing.T) {
	det := unitScaleDetector()
	quotes := map[string]pricingDomain.Quote{
		"a": quoteAt("99", "5000000", "0.003"),
		"b": quoteAt("100", "2000000", "0.0005"),
		"c": quoteAt("101.5", "1000000", "0.001"),
		"d": quoteAt("103", "8000000", "0.003"),
	}

	opps := det.Detect(quotes, asset.WETH, asset.USDC, d("1000"), d("0"))
	if len(opps) == 0 {
		t.Fatal("Detect() returned no opportunities")
	}

	for _, o := range opps {
		name := o.BuySource + "->" + o.SellSource
		if !o.BuyPrice.LessThan(o.SellPrice) {
			t.Errorf("%s: buy %s not below sell %s", name, o.BuyPrice, o.SellPrice)
		}
		if !o.NetProfit.IsPositive() {
			t.Errorf("%s: NetProfit = %s, want > 0", name, o.NetProfit)
		}
		sum := o.NetProfit.Add(o.TradingFees).Add(o.GasFee).Add(o.PlatformFee)
		if !sum.Equal(o.GrossProfit) {
			t.Errorf("%s: net + costs = %s, want gross %s", name, sum, o.GrossProfit)
		}
		if o.PriceDifferencePercent.IsNegative() {
			t.Errorf("%s: PriceDifferencePercent = %s, want >= 0", name, o.PriceDifferencePercent)
		}
		between(t, name+" BuyImpactPercent", o.BuyImpactPercent, "0", "10")
		between(t, name+" SellImpactPercent", o.SellImpactPercent, "0", "10")
	}
}

func TestDetector_Eligible(t *testing.T) {
	fresh := quoteAt("100", "1000000", "0.003")
	stale := quoteAt("101", "1000000", "0.003")
	stale.Timestamp = testNow.Add(-6 * time.Minute)
	fallback := quoteAt("102", "1000000", "0.003")
	fallback.IsFallback = true
	zero := quoteAt("0", "1000000", "0.003")

	quotes := map[string]pricingDomain.Quote{
		"fresh": fresh, "stale": stale, "fallback": fallback, "zero": zero,
	}

	tests := []struct {
		name            string
		includeFallback bool
		want            []string
	}{
		{"with fallbacks", true, []string{"fresh", "fallback"}},
		{"live only", false, []string{"fresh"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			params := DefaultDetectorParams()
			params.IncludeFallback = tt.includeFallback
			det := NewDetector(NewLiquidityModel(DefaultLiquidityParams()), params,
				WithDetectorClock(func() time.Time { return testNow }))

			got := det.Eligible(quotes)
			if len(got) != len(tt.want) {
				t.Fatalf("Eligible() = %d quotes, want %d", len(got), len(tt.want))
			}
			for _, slug := range tt.want {
				if _, ok := got[slug]; !ok {
					t.Errorf("Eligible() missing %s", slug)
				}
			}
		})
	}
}

func TestDetector_FallbackFlagPropagates(t *testing.T) {
	det := unitScaleDetector()
	sell := quoteAt("102", "1000000", "0.003")
	sell.IsFallback = true

	opps := det.Detect(map[string]pricingDomain.Quote{
		"live": quoteAt("100", "1000000", "0.003"),
		"est":  sell,
	}, asset.WETH, asset.USDC, d("1000"), d("0.5"))
	if len(opps) != 1 {
		t.Fatalf("Detect() returned %d opportunities, want 1", len(opps))
	}
	if !opps[0].UsesFallback {
		t.Error("UsesFallback = false, want true")
	}
}

func TestSortByNetProfitPercent(t *testing.T) {
	det := unitScaleDetector()
	opps := det.Detect(map[string]pricingDomain.Quote{
		"a": quoteAt("100", "1000000", "0.003"),
		"b": quoteAt("101.5", "1000000", "0.003"),
		"c": quoteAt("103", "1000000", "0.003"),
	}, asset.WETH, asset.USDC, d("1000"), d("0"))
	if len(opps) < 2 {
		t.Fatalf("Detect() returned %d opportunities, want at least 2", len(opps))
	}

	SortByNetProfitPercent(opps)
	for i := 1; i < len(opps); i++ {
		if opps[i].NetProfitPercent.GreaterThan(opps[i-1].NetProfitPercent) {
			t.Errorf("opps[%d] net %s above opps[%d] net %s", i, opps[i].NetProfitPercent, i-1, opps[i-1].NetProfitPercent)
		}
	}
	if opps[0].BuySource != "a" || opps[0].SellSource != "c" {
		t.Errorf("best route = %s -> %s, want a -> c", opps[0].BuySource, opps[0].SellSource)
	}
}
