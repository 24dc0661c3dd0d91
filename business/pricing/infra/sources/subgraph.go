package sources

import (
	"context"
	"fmt"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/internal/httpclient"
	"github.com/shopspring/decimal"
)

const (
	poolsQueryV3 = `query Pools($token0: String!, $token1: String!) {
  pools(first: 1, orderBy: totalValueLockedUSD, orderDirection: desc, where: {token0: $token0, token1: $token1}) {
    feeTier
    token0Price
    token1Price
    liquidityUSD: totalValueLockedUSD
  }
}`

	pairsQueryV2 = `query Pairs($token0: String!, $token1: String!) {
  pairs(first: 1, orderBy: reserveUSD, orderDirection: desc, where: {token0: $token0, token1: $token1}) {
    token0Price
    token1Price
    liquidityUSD: reserveUSD
  }
}`
)

var feeTierScale = decimal.NewFromInt(1_000_000)

var _ app.Quoter = (*SubgraphQuoter)(nil)

// SubgraphQuoter reads the deepest pool for a pair from a Uniswap-style
// subgraph. V3 subgraphs report the pool fee tier, V2 ones do not.
type SubgraphQuoter struct {
	slug      string
	v3        bool
	client    httpclient.Client
	endpoints map[uint64]string
}

// NewSubgraphQuoter creates a subgraph quoter. endpoints maps chain id to
// GraphQL URL.
func NewSubgraphQuoter(slug string, v3 bool, endpoints map[uint64]string, client httpclient.Client) *SubgraphQuoter {
	return &SubgraphQuoter{slug: slug, v3: v3, client: client, endpoints: endpoints}
}

// Quote implements app.Quoter.
func (q *SubgraphQuoter) Quote(ctx context.Context, req app.QuoteRequest) (app.VenueQuote, error) {
	endpoint, ok := q.endpoints[req.Pair.ChainID()]
	if !ok {
		return app.VenueQuote{}, fmt.Errorf("no subgraph endpoint for chain %d", req.Pair.ChainID())
	}

	// Subgraphs store lowercase addresses with token0 < token1.
	base := strings.ToLower(req.Pair.Base.Address())
	quote := strings.ToLower(req.Pair.Quote.Address())
	token0, token1 := base, quote
	if token1 < token0 {
		token0, token1 = token1, token0
	}

	query, root := pairsQueryV2, "data.pairs.0"
	if q.v3 {
		query, root = poolsQueryV3, "data.pools.0"
	}

	resp, err := q.client.NewRequest(
		httpclient.WithResponseErrorHandler(httpclient.ErrorForStatus),
		httpclient.WithLabels(httpclient.NewLabel("chain", fmt.Sprint(req.Pair.ChainID()))),
	).SetJSON(map[string]any{
		"query":     query,
		"variables": map[string]string{"token0": token0, "token1": token1},
	}).Post(ctx, endpoint)
	if err != nil {
		return app.VenueQuote{}, err
	}

	body := resp.Body()
	if msg := gjson.GetBytes(body, "errors.0.message").String(); msg != "" {
		return app.VenueQuote{}, fmt.Errorf("subgraph: %s", msg)
	}
	pool := gjson.GetBytes(body, root)
	if !pool.Exists() {
		return app.VenueQuote{}, fmt.Errorf("subgraph: no pool for %s", req.Pair)
	}

	// tokenNPrice is the amount of tokenN per unit of the other token.
	pricePath := "token1Price"
	if base != token0 {
		pricePath = "token0Price"
	}
	price, err := decimal.NewFromString(pool.Get(pricePath).String())
	if err != nil {
		return app.VenueQuote{}, fmt.Errorf("subgraph: parse %s: %w", pricePath, err)
	}

	vq := app.VenueQuote{Price: price}
	if liq, err := decimal.NewFromString(pool.Get("liquidityUSD").String()); err == nil && liq.IsPositive() {
		vq.LiquidityUSD = liq
	}
	if q.v3 {
		if tier := pool.Get("feeTier"); tier.Exists() {
			if fee, err := decimal.NewFromString(tier.String()); err == nil {
				vq.FeeRate = decimal.NewNullDecimal(fee.Div(feeTierScale))
			}
		}
	}
	return vq, nil
}
