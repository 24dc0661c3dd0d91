package sources

import (
	"context"
	"fmt"
	"math/big"
	"strings"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/accounts/abi"
	"github.com/ethereum/go-ethereum/common"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

const tracerName = "pricing.sources"

var (
	q96     = new(big.Float).SetInt(new(big.Int).Lsh(big.NewInt(1), 96))
	hundred = decimal.NewFromInt(100)
)

var _ app.Quoter = (*QuoterV2)(nil)

// QuoterV2 prices a pair by simulating quoteExactInputSingle against the
// Uniswap V3 QuoterV2 contract on each configured chain.
type QuoterV2 struct {
	slug     string
	callers  map[uint64]ethereum.ContractCaller
	contract common.Address
	abi      abi.ABI
	feeTiers []int
	scale    decimal.Decimal
	log      logger.LoggerInterface
	tracer   trace.Tracer
}

// NewQuoterV2 creates an on-chain quoter. The preferred fee tier is tried
// first, then the standard tiers; the best output wins.
func NewQuoterV2(slug string, contract string, feeTier int, callers map[uint64]ethereum.ContractCaller, log logger.LoggerInterface, opts ...QuoterOption) (*QuoterV2, error) {
	if !common.IsHexAddress(contract) {
		return nil, fmt.Errorf("source %s: invalid quoter address %q", slug, contract)
	}
	parsed, err := abi.JSON(strings.NewReader(quoterV2ABI))
	if err != nil {
		return nil, fmt.Errorf("parse quoter ABI: %w", err)
	}

	tiers := []int{FeeTier005, FeeTier030, FeeTier100}
	if feeTier > 0 {
		tiers = append([]int{feeTier}, tiers...)
	}

	return &QuoterV2{
		slug:     slug,
		callers:  callers,
		contract: common.HexToAddress(contract),
		abi:      parsed,
		feeTiers: dedupe(tiers),
		scale:    newQuoterOptions(opts).impactScale,
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}, nil
}

func dedupe(tiers []int) []int {
	seen := make(map[int]bool, len(tiers))
	out := tiers[:0]
	for _, t := range tiers {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}

// Quote implements app.Quoter.
func (q *QuoterV2) Quote(ctx context.Context, req app.QuoteRequest) (app.VenueQuote, error) {
	ctx, span := q.tracer.Start(ctx, "QuoterV2.Quote",
		trace.WithAttributes(
			attribute.String("pair", req.Pair.String()),
			attribute.String("amount_in", req.AmountIn.Raw().String()),
		),
	)
	defer span.End()

	caller, ok := q.callers[req.Pair.ChainID()]
	if !ok {
		return app.VenueQuote{}, fmt.Errorf("no rpc client for chain %d", req.Pair.ChainID())
	}

	var (
		best     *exactInputSingleResult
		bestTier int
		lastErr  error
	)
	for _, tier := range q.feeTiers {
		res, err := q.quoteTier(ctx, caller, req, tier)
		if err != nil {
			span.AddEvent("fee_tier_failed", trace.WithAttributes(
				attribute.Int("fee_tier", tier),
				attribute.String("error", err.Error()),
			))
			lastErr = err
			if ctx.Err() != nil {
				break
			}
			continue
		}
		if best == nil || res.AmountOut.Cmp(best.AmountOut) > 0 {
			best, bestTier = res, tier
		}
	}
	if best == nil {
		return app.VenueQuote{}, apperror.New(apperror.CodeContractCallFailed,
			apperror.WithCause(lastErr), apperror.WithContext("no pool for "+req.Pair.String()))
	}

	amountOut, err := asset.NewAmount(req.Pair.Quote, best.AmountOut)
	if err != nil {
		return app.VenueQuote{}, err
	}

	vq := app.VenueQuote{
		AmountOut: amountOut,
		FeeRate:   decimal.NewNullDecimal(decimal.NewFromInt(int64(bestTier)).Div(feeTierScale)),
	}

	execPrice, err := asset.Rate(req.AmountIn, amountOut)
	if err == nil && execPrice.IsPositive() {
		if after, ok := spotPrice(best.SqrtPriceX96After, req.Pair.Base, req.Pair.Quote); ok {
			impact := after.Sub(execPrice).Abs().Div(execPrice).Mul(hundred)
			vq.LiquidityUSD = app.ImpliedLiquidityUSD(req.TradeUSD, impact, q.scale)
		}
	}

	q.log.Debug(ctx, "quoter v2 quote",
		"source", q.slug,
		"pair", req.Pair.String(),
		"amount_out", best.AmountOut.String(),
		"fee_tier", bestTier,
		"ticks_crossed", best.TicksCrossed,
	)
	return vq, nil
}

func (q *QuoterV2) quoteTier(ctx context.Context, caller ethereum.ContractCaller, req app.QuoteRequest, tier int) (*exactInputSingleResult, error) {
	callData, err := q.abi.Pack("quoteExactInputSingle", exactInputSingleParams{
		TokenIn:           common.HexToAddress(req.Pair.Base.Address()),
		TokenOut:          common.HexToAddress(req.Pair.Quote.Address()),
		AmountIn:          req.AmountIn.Raw(),
		Fee:               big.NewInt(int64(tier)),
		SqrtPriceLimitX96: big.NewInt(0),
	})
	if err != nil {
		return nil, fmt.Errorf("encode call: %w", err)
	}

	raw, err := caller.CallContract(ctx, ethereum.CallMsg{To: &q.contract, Data: callData}, nil)
	if err != nil {
		return nil, fmt.Errorf("fee tier %d: %w", tier, err)
	}

	outputs, err := q.abi.Unpack("quoteExactInputSingle", raw)
	if err != nil {
		return nil, fmt.Errorf("decode result: %w", err)
	}
	if len(outputs) < 4 {
		return nil, fmt.Errorf("unexpected output length: %d", len(outputs))
	}

	return &exactInputSingleResult{
		AmountOut:         outputs[0].(*big.Int),
		SqrtPriceX96After: outputs[1].(*big.Int),
		TicksCrossed:      outputs[2].(uint32),
		GasEstimate:       outputs[3].(*big.Int),
	}, nil
}

// spotPrice converts a pool's sqrtPriceX96 into quote units per base unit.
func spotPrice(sqrtPriceX96 *big.Int, base, quote *asset.Asset) (decimal.Decimal, bool) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() <= 0 {
		return decimal.Zero, false
	}

	token0, token1 := base, quote
	if strings.ToLower(quote.Address()) < strings.ToLower(base.Address()) {
		token0, token1 = quote, base
	}

	// (sqrtP / 2^96)^2 is raw token1 per raw token0.
	r := new(big.Float).SetPrec(256).SetInt(sqrtPriceX96)
	r.Quo(r, q96)
	r.Mul(r, r)

	shift := int(token0.Decimals()) - int(token1.Decimals())
	scale := new(big.Float).SetPrec(256).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(int64(abs(shift))), nil))
	if shift >= 0 {
		r.Mul(r, scale)
	} else {
		r.Quo(r, scale)
	}

	price, err := decimal.NewFromString(r.Text('e', 30))
	if err != nil || !price.IsPositive() {
		return decimal.Zero, false
	}
	if token0 != base {
		price = decimal.NewFromInt(1).Div(price)
	}
	return price, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
