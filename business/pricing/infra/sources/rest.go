package sources

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/tidwall/gjson"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/httpclient"
	"github.com/shopspring/decimal"
)

var _ app.Quoter = (*RESTQuoter)(nil)

// RESTQuoter asks an HTTP swap API for an exact-in quote and reads the
// answer through gjson paths.
type RESTQuoter struct {
	slug    string
	client  httpclient.Client
	profile restProfile
	paths   responsePaths
	apiKey  string
	scale   decimal.Decimal
}

// NewRESTQuoter creates a quoter for one of the built-in REST kinds.
func NewRESTQuoter(slug, kind, apiKey string, paths map[string]string, client httpclient.Client, opts ...QuoterOption) (*RESTQuoter, error) {
	p, ok := profiles[kind]
	if !ok {
		return nil, fmt.Errorf("source %s: no REST profile for kind %q", slug, kind)
	}
	return &RESTQuoter{
		slug:    slug,
		client:  client,
		profile: p,
		paths:   p.paths.override(paths),
		apiKey:  apiKey,
		scale:   newQuoterOptions(opts).impactScale,
	}, nil
}

// Quote implements app.Quoter.
func (q *RESTQuoter) Quote(ctx context.Context, req app.QuoteRequest) (app.VenueQuote, error) {
	r := q.client.NewRequest(
		httpclient.WithResponseErrorHandler(httpclient.ErrorForStatus),
		httpclient.WithLabels(httpclient.NewLabel("chain", strconv.FormatUint(req.Pair.ChainID(), 10))),
	)
	if q.profile.headers != nil && q.apiKey != "" {
		r.SetHeaders(q.profile.headers(q.apiKey))
	}
	for k, vs := range q.profile.query(req) {
		if len(vs) > 0 {
			r.SetQueryParam(k, vs[0])
		}
	}

	path := strings.ReplaceAll(q.profile.path, "{chainId}", strconv.FormatUint(req.Pair.ChainID(), 10))
	resp, err := r.Get(ctx, path)
	if err != nil {
		var statusErr *httpclient.StatusError
		if errors.As(err, &statusErr) && q.paths.Error != "" {
			if msg := gjson.Get(statusErr.Body, q.paths.Error).String(); msg != "" {
				return app.VenueQuote{}, fmt.Errorf("%w: %s", err, msg)
			}
		}
		return app.VenueQuote{}, err
	}

	return q.parse(resp.Body(), req)
}

func (q *RESTQuoter) parse(body []byte, req app.QuoteRequest) (app.VenueQuote, error) {
	if !gjson.ValidBytes(body) {
		return app.VenueQuote{}, fmt.Errorf("invalid JSON response")
	}

	out := gjson.GetBytes(body, q.paths.AmountOut)
	if !out.Exists() {
		if q.paths.Error != "" {
			if msg := gjson.GetBytes(body, q.paths.Error).String(); msg != "" {
				return app.VenueQuote{}, fmt.Errorf("venue error: %s", msg)
			}
		}
		return app.VenueQuote{}, fmt.Errorf("response has no %s", q.paths.AmountOut)
	}

	amountOut, err := asset.ParseRaw(req.Pair.Quote, out.String())
	if err != nil {
		return app.VenueQuote{}, fmt.Errorf("parse %s: %w", q.paths.AmountOut, err)
	}

	vq := app.VenueQuote{AmountOut: amountOut}

	if liq, ok := decimalAt(body, q.paths.Liquidity); ok {
		vq.LiquidityUSD = liq
	} else if impact, ok := decimalAt(body, q.paths.Impact); ok {
		unit := q.profile.impactScale
		if unit.IsZero() {
			unit = decimal.NewFromInt(1)
		}
		vq.LiquidityUSD = app.ImpliedLiquidityUSD(req.TradeUSD, impact.Abs().Mul(unit), q.scale)
	}

	if fee, ok := decimalAt(body, q.paths.Fee); ok && !fee.IsNegative() {
		vq.FeeRate = decimal.NewNullDecimal(fee)
	}
	return vq, nil
}

// decimalAt reads a number or numeric string at path.
func decimalAt(body []byte, path string) (decimal.Decimal, bool) {
	if path == "" {
		return decimal.Zero, false
	}
	r := gjson.GetBytes(body, path)
	if !r.Exists() || r.Type == gjson.Null {
		return decimal.Zero, false
	}
	d, err := decimal.NewFromString(r.String())
	if err != nil {
		return decimal.Zero, false
	}
	return d, true
}
