package asset_test

import (
	"errors"
	"math/big"
	"testing"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

func TestAmount_ToDecimal(t *testing.T) {
	oneETH, err := asset.NewAmount(asset.WETH, big.NewInt(1e18))
	if err != nil {
		t.Fatalf("NewAmount: %v", err)
	}

	if d := oneETH.ToDecimal(); !d.Equal(decimal.NewFromInt(1)) {
		t.Errorf("ToDecimal = %s, want 1", d)
	}
	if oneETH.String() != "1 WETH" {
		t.Errorf("String = %q, want '1 WETH'", oneETH.String())
	}
}

func TestFromDecimal_RoundsDownToPrecision(t *testing.T) {
	amt, err := asset.FromDecimal(asset.USDC, decimal.RequireFromString("1000.1234567"))
	if err != nil {
		t.Fatalf("FromDecimal: %v", err)
	}
	if got := amt.Raw().String(); got != "1000123456" {
		t.Errorf("Raw = %s, want 1000123456", got)
	}

	if _, err := asset.FromDecimal(asset.USDC, decimal.NewFromInt(-1)); !errors.Is(err, asset.ErrNegativeAmount) {
		t.Errorf("err = %v, want ErrNegativeAmount", err)
	}
}

func TestRate(t *testing.T) {
	tests := []struct {
		name    string
		in      *asset.Asset
		inRaw   string
		out     *asset.Asset
		outRaw  string
		want    string
		wantErr bool
	}{
		{"weth to usdc", asset.WETH, "1000000000000000000", asset.USDC, "3012500000", "3012.5", false},
		{"usdc to weth", asset.USDC, "3000000000", asset.WETH, "1000000000000000000", "0.0003333333333333", false},
		{"wbtc to usdc", asset.WBTC, "50000000", asset.USDC, "30000000000", "60000", false},
		{"zero input", asset.WETH, "0", asset.USDC, "1", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in, err := asset.ParseRaw(tt.in, tt.inRaw)
			if err != nil {
				t.Fatalf("ParseRaw in: %v", err)
			}
			out, err := asset.ParseRaw(tt.out, tt.outRaw)
			if err != nil {
				t.Fatalf("ParseRaw out: %v", err)
			}

			got, err := asset.Rate(in, out)
			if tt.wantErr {
				if err == nil {
					t.Error("expected error")
				}
				return
			}
			if err != nil {
				t.Fatalf("Rate: %v", err)
			}
			if !got.Truncate(16).Equal(decimal.RequireFromString(tt.want)) {
				t.Errorf("Rate = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestParseRaw_Invalid(t *testing.T) {
	if _, err := asset.ParseRaw(asset.USDC, "12.5"); !errors.Is(err, asset.ErrInvalidRaw) {
		t.Errorf("err = %v, want ErrInvalidRaw", err)
	}
}
