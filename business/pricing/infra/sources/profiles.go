package sources

import (
	"net/url"
	"strconv"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/shopspring/decimal"
)

// Keys accepted in a source's paths override.
const (
	PathAmountOut = "amount_out"
	PathImpact    = "impact"
	PathLiquidity = "liquidity"
	PathFee       = "fee"
	PathError     = "error"
)

// responsePaths are gjson paths into a venue's quote response. Empty paths
// are skipped.
type responsePaths struct {
	AmountOut string
	Impact    string
	Liquidity string
	Fee       string
	Error     string
}

func (p responsePaths) override(m map[string]string) responsePaths {
	set := func(dst *string, key string) {
		if v, ok := m[key]; ok {
			*dst = v
		}
	}
	set(&p.AmountOut, PathAmountOut)
	set(&p.Impact, PathImpact)
	set(&p.Liquidity, PathLiquidity)
	set(&p.Fee, PathFee)
	set(&p.Error, PathError)
	return p
}

// restProfile is how one HTTP venue is asked for an exact-in quote.
type restProfile struct {
	// path may contain {chainId}.
	path    string
	query   func(req app.QuoteRequest) url.Values
	headers func(apiKey string) map[string]string
	paths   responsePaths
	// impactScale converts the reported impact to percent.
	impactScale decimal.Decimal
}

var profiles = map[string]restProfile{
	config.KindZeroEx: {
		path: "/swap/permit2/price",
		query: func(req app.QuoteRequest) url.Values {
			return url.Values{
				"chainId":    {strconv.FormatUint(req.Pair.ChainID(), 10)},
				"sellToken":  {req.Pair.Base.Address()},
				"buyToken":   {req.Pair.Quote.Address()},
				"sellAmount": {req.AmountIn.Raw().String()},
			}
		},
		headers: func(key string) map[string]string {
			return map[string]string{"0x-api-key": key, "0x-version": "v2"}
		},
		paths: responsePaths{
			AmountOut: "buyAmount",
			Impact:    "estimatedPriceImpact",
			Error:     "reason",
		},
		impactScale: decimal.NewFromInt(1),
	},
	config.KindOneInch: {
		path: "/swap/v6.0/{chainId}/quote",
		query: func(req app.QuoteRequest) url.Values {
			return url.Values{
				"src":    {req.Pair.Base.Address()},
				"dst":    {req.Pair.Quote.Address()},
				"amount": {req.AmountIn.Raw().String()},
			}
		},
		headers: func(key string) map[string]string {
			return map[string]string{"Authorization": "Bearer " + key}
		},
		paths: responsePaths{
			AmountOut: "dstAmount",
			Error:     "description",
		},
	},
	config.KindParaSwap: {
		path: "/prices",
		query: func(req app.QuoteRequest) url.Values {
			return url.Values{
				"srcToken":     {req.Pair.Base.Address()},
				"destToken":    {req.Pair.Quote.Address()},
				"srcDecimals":  {strconv.Itoa(int(req.Pair.Base.Decimals()))},
				"destDecimals": {strconv.Itoa(int(req.Pair.Quote.Decimals()))},
				"amount":       {req.AmountIn.Raw().String()},
				"side":         {"SELL"},
				"network":      {strconv.FormatUint(req.Pair.ChainID(), 10)},
				"version":      {"6.2"},
			}
		},
		paths: responsePaths{
			AmountOut: "priceRoute.destAmount",
			Error:     "error",
		},
	},
	config.KindJupiter: {
		path: "/swap/v1/quote",
		query: func(req app.QuoteRequest) url.Values {
			return url.Values{
				"inputMint":   {req.Pair.Base.Address()},
				"outputMint":  {req.Pair.Quote.Address()},
				"amount":      {req.AmountIn.Raw().String()},
				"slippageBps": {"50"},
			}
		},
		paths: responsePaths{
			AmountOut: "outAmount",
			Impact:    "priceImpactPct",
			Error:     "error",
		},
		// Jupiter reports impact as a fraction.
		impactScale: decimal.NewFromInt(100),
	},
	config.KindRaydium: {
		path: "/compute/swap-base-in",
		query: func(req app.QuoteRequest) url.Values {
			return url.Values{
				"inputMint":   {req.Pair.Base.Address()},
				"outputMint":  {req.Pair.Quote.Address()},
				"amount":      {req.AmountIn.Raw().String()},
				"slippageBps": {"50"},
				"txVersion":   {"V0"},
			}
		},
		paths: responsePaths{
			AmountOut: "data.outputAmount",
			Impact:    "data.priceImpactPct",
			Error:     "msg",
		},
		impactScale: decimal.NewFromInt(1),
	},
}
