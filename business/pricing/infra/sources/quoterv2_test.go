package sources

import (
	"context"
	"errors"
	"math/big"
	"strings"
	"testing"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"

	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

const quoterAddress = "0x61fFE014bA17989E743c5F6cB21bF9697530B21e"

type quoteAnswer struct {
	amountOut *big.Int
	sqrtAfter *big.Int
	err       error
}

// scriptedCaller answers successive CallContract calls in order.
type scriptedCaller struct {
	t       *testing.T
	abi     abi.ABI
	answers []quoteAnswer
	calls   int
}

func (c *scriptedCaller) CallContract(ctx context.Context, msg ethereum.CallMsg, block *big.Int) ([]byte, error) {
	if msg.To == nil || !strings.EqualFold(msg.To.Hex(), quoterAddress) {
		c.t.Errorf("call to %v, want quoter", msg.To)
	}
	i := c.calls
	c.calls++
	if i >= len(c.answers) {
		return nil, errors.New("execution reverted")
	}
	a := c.answers[i]
	if a.err != nil {
		return nil, a.err
	}
	return c.abi.Methods["quoteExactInputSingle"].Outputs.Pack(a.amountOut, a.sqrtAfter, uint32(2), big.NewInt(95_000))
}

// sqrtPriceX96For encodes a WETH price in USDC for the USDC/WETH pool,
// where token0 is USDC.
func sqrtPriceX96For(wethInUSDC float64) *big.Int {
	// raw token1 per raw token0 = 1e18 / (price * 1e6)
	ratio := new(big.Float).SetPrec(256).Quo(big.NewFloat(1e12), big.NewFloat(wethInUSDC))
	ratio.Sqrt(ratio)
	ratio.Mul(ratio, q96)
	out, _ := ratio.Int(nil)
	return out
}

func newScriptedCaller(t *testing.T, answers ...quoteAnswer) *scriptedCaller {
	t.Helper()
	parsed, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		t.Fatalf("abi.JSON() error = %v", err)
	}
	return &scriptedCaller{t: t, abi: parsed, answers: answers}
}

func TestQuoterV2_BestFeeTier(t *testing.T) {
	caller := newScriptedCaller(t,
		quoteAnswer{amountOut: big.NewInt(2_990_000_000), sqrtAfter: sqrtPriceX96For(2960)},
		quoteAnswer{amountOut: big.NewInt(3_000_000_000), sqrtAfter: sqrtPriceX96For(2970)},
		quoteAnswer{err: errors.New("execution reverted")},
	)

	q, err := NewQuoterV2("uniswap-v3-quoter", quoterAddress, FeeTier030, map[uint64]ethereum.ContractCaller{1: caller}, &mockLogger{})
	if err != nil {
		t.Fatalf("NewQuoterV2() error = %v", err)
	}

	vq, err := q.Quote(context.Background(), quoteRequest(t, asset.WETH, asset.USDC, "1", "3000"))
	if err != nil {
		t.Fatalf("Quote() error = %v", err)
	}

	if caller.calls != 3 {
		t.Errorf("calls = %d, want one per fee tier", caller.calls)
	}
	if !vq.AmountOut.ToDecimal().Equal(decimal.NewFromInt(3000)) {
		t.Errorf("AmountOut = %s, want 3000", vq.AmountOut.ToDecimal())
	}
	// Tiers are tried 3000, 500, 10000; the second answer wins.
	if !vq.FeeRate.Valid || !vq.FeeRate.Decimal.Equal(decimal.RequireFromString("0.0005")) {
		t.Errorf("FeeRate = %v, want 0.0005", vq.FeeRate)
	}

	// 1% between execution and post-trade price implies ~30M of depth.
	lo, hi := decimal.NewFromInt(29_000_000), decimal.NewFromInt(31_000_000)
	if vq.LiquidityUSD.LessThan(lo) || vq.LiquidityUSD.GreaterThan(hi) {
		t.Errorf("LiquidityUSD = %s, want about 30000000", vq.LiquidityUSD)
	}
}

func TestQuoterV2_NoPool(t *testing.T) {
	caller := newScriptedCaller(t)
	q, _ := NewQuoterV2("q", quoterAddress, 0, map[uint64]ethereum.ContractCaller{1: caller}, &mockLogger{})

	_, err := q.Quote(context.Background(), quoteRequest(t, asset.WETH, asset.USDC, "1", "3000"))
	if err == nil {
		t.Fatal("Quote() error = nil, want no pool error")
	}
	if caller.calls != 3 {
		t.Errorf("calls = %d, want one per fee tier", caller.calls)
	}
}

func TestQuoterV2_UnknownChain(t *testing.T) {
	q, _ := NewQuoterV2("q", quoterAddress, 0, map[uint64]ethereum.ContractCaller{}, &mockLogger{})
	if _, err := q.Quote(context.Background(), quoteRequest(t, asset.WETH, asset.USDC, "1", "3000")); err == nil {
		t.Error("Quote() error = nil, want missing client error")
	}
}

func TestNewQuoterV2_InvalidAddress(t *testing.T) {
	if _, err := NewQuoterV2("q", "not-an-address", 0, nil, &mockLogger{}); err == nil {
		t.Error("NewQuoterV2() error = nil, want invalid address error")
	}
}

func TestSpotPrice(t *testing.T) {
	sqrt := sqrtPriceX96For(3000)

	got, ok := spotPrice(sqrt, asset.WETH, asset.USDC)
	if !ok {
		t.Fatal("spotPrice() ok = false")
	}
	if got.Sub(decimal.NewFromInt(3000)).Abs().GreaterThan(decimal.RequireFromString("0.001")) {
		t.Errorf("spotPrice(WETH/USDC) = %s, want 3000", got)
	}

	inv, ok := spotPrice(sqrt, asset.USDC, asset.WETH)
	if !ok {
		t.Fatal("spotPrice() ok = false")
	}
	want := decimal.NewFromInt(1).Div(decimal.NewFromInt(3000))
	if inv.Sub(want).Abs().GreaterThan(decimal.RequireFromString("0.0000001")) {
		t.Errorf("spotPrice(USDC/WETH) = %s, want %s", inv, want)
	}

	if _, ok := spotPrice(big.NewInt(0), asset.WETH, asset.USDC); ok {
		t.Error("spotPrice(0) ok = true, want false")
	}
}
