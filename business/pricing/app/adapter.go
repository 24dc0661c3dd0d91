package app

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/circuitbreaker"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	tracerName = "pricing"
	meterName  = "pricing"
)

var _ Adapter = (*SourceAdapter)(nil)

type adapterMetrics struct {
	quotes    metric.Int64Counter
	fallbacks metric.Int64Counter
	errors    metric.Int64Counter
	latency   metric.Float64Histogram
	attrs     metric.MeasurementOption
}

// AdapterDeps are the collaborators shared by every source adapter.
type AdapterDeps struct {
	Limiter  RateLimiter
	Gas      *GasModel
	Fallback *FallbackChain
	// Store receives every live quote. Nil disables write-through.
	Store  QuoteStore
	Static *domain.StaticPrices
	Logger logger.LoggerInterface
}

// SourceAdapter runs the common fetch pipeline around a venue Quoter:
// chain check, rate-limit slot, breaker-guarded call, normalisation, gas
// estimate, and the fallback chain on any failure.
type SourceAdapter struct {
	cfg     domain.SourceConfig
	quoter  Quoter
	deps    AdapterDeps
	enabled atomic.Bool
	cb      *circuitbreaker.CircuitBreaker[VenueQuote]

	tracer  trace.Tracer
	metrics *adapterMetrics
	now     func() time.Time
}

// NewSourceAdapter creates an adapter for cfg backed by quoter.
func NewSourceAdapter(cfg domain.SourceConfig, quoter Quoter, deps AdapterDeps) (*SourceAdapter, error) {
	if quoter == nil {
		return nil, fmt.Errorf("source %s: nil quoter", cfg.Slug)
	}
	if deps.Limiter == nil || deps.Gas == nil || deps.Fallback == nil || deps.Logger == nil {
		return nil, fmt.Errorf("source %s: limiter, gas model, fallback and logger are required", cfg.Slug)
	}

	a := &SourceAdapter{
		cfg:    cfg,
		quoter: quoter,
		deps:   deps,
		tracer: otel.Tracer(tracerName),
		now:    time.Now,
	}
	a.enabled.Store(cfg.Enabled)

	cbCfg := circuitbreaker.DefaultConfig("source-" + cfg.Slug)
	cbCfg.IsSuccessful = func(err error) bool {
		return err == nil || errors.Is(err, context.Canceled)
	}
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		deps.Logger.Warn(context.Background(), "source breaker state changed",
			"source", cfg.Slug, "from", from.String(), "to", to.String())
	}
	a.cb = circuitbreaker.New[VenueQuote](cbCfg)

	if err := a.initMetrics(); err != nil {
		return nil, fmt.Errorf("source %s: init metrics: %w", cfg.Slug, err)
	}
	return a, nil
}

func (a *SourceAdapter) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	a.metrics = &adapterMetrics{
		attrs: metric.WithAttributes(attribute.String("source", a.cfg.Slug)),
	}

	a.metrics.quotes, err = meter.Int64Counter(
		"source_quotes_total",
		metric.WithDescription("Live quotes returned by a price source"),
	)
	if err != nil {
		return err
	}

	a.metrics.fallbacks, err = meter.Int64Counter(
		"source_fallbacks_total",
		metric.WithDescription("Quotes served from the fallback chain"),
	)
	if err != nil {
		return err
	}

	a.metrics.errors, err = meter.Int64Counter(
		"source_errors_total",
		metric.WithDescription("Failed live fetches"),
	)
	if err != nil {
		return err
	}

	a.metrics.latency, err = meter.Float64Histogram(
		"source_fetch_latency_ms",
		metric.WithDescription("Live fetch latency in milliseconds"),
		metric.WithUnit("ms"),
	)
	return err
}

// Config returns a snapshot of the source configuration.
func (a *SourceAdapter) Config() domain.SourceConfig {
	cfg := a.cfg
	cfg.Enabled = a.enabled.Load()
	return cfg
}

func (a *SourceAdapter) Slug() string { return a.cfg.Slug }
func (a *SourceAdapter) SupportedChains() domain.ChainSet { return a.cfg.Chains }
func (a *SourceAdapter) IsEnabled() bool { return a.enabled.Load() }
func (a *SourceAdapter) SetEnabled(enabled bool) { a.enabled.Store(enabled) }

// BreakerState exposes the venue breaker for status displays.
func (a *SourceAdapter) BreakerState() gobreaker.State {
	return a.cb.State()
}

// FetchQuote implements Adapter.
func (a *SourceAdapter) FetchQuote(ctx context.Context, base, quote *asset.Asset, amount decimal.Decimal) domain.QuoteResult {
	ctx, span := a.tracer.Start(ctx, "SourceAdapter.FetchQuote",
		trace.WithAttributes(attribute.String("source", a.cfg.Slug)),
	)
	defer span.End()

	if base == nil || quote == nil {
		return domain.None(domain.ReasonInvalidRequest)
	}
	if base.ChainID() != quote.ChainID() || !a.cfg.Chains.Contains(base.ChainID()) || base.Family() != a.cfg.Family {
		return domain.None(domain.ReasonChainUnsupported)
	}

	pair, err := domain.NewPair(base, quote)
	if err != nil {
		return domain.None(domain.ReasonInvalidRequest)
	}
	span.SetAttributes(attribute.String("pair", pair.String()))

	gasUSD := a.deps.Gas.EstimateUSD(ctx, pair.ChainID(), a.cfg.GasMultiplier)

	q, err := a.fetchLive(ctx, pair, amount, gasUSD)
	if err == nil {
		a.metrics.quotes.Add(ctx, 1, a.metrics.attrs)
		a.persist(ctx, pair, q)
		return domain.Some(q)
	}

	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	a.metrics.errors.Add(ctx, 1, a.metrics.attrs)
	a.deps.Logger.Debug(ctx, "live quote failed, using fallback",
		"source", a.cfg.Slug, "pair", pair.String(), "error", err)

	res := a.deps.Fallback.Resolve(ctx, a.cfg, pair, gasUSD)
	if res.OK() {
		a.metrics.fallbacks.Add(ctx, 1, a.metrics.attrs)
	}
	return res
}

func (a *SourceAdapter) fetchLive(ctx context.Context, pair domain.Pair, amount decimal.Decimal, gasUSD decimal.Decimal) (domain.Quote, error) {
	if !amount.IsPositive() {
		amount = decimal.NewFromInt(1)
	}
	amountIn, err := asset.FromDecimal(pair.Base, amount)
	if err != nil || !amountIn.IsPositive() {
		return domain.Quote{}, apperror.Validation(apperror.CodeInvalidInput, "amount "+amount.String())
	}

	if err := a.deps.Limiter.Acquire(ctx, a.cfg.Slug); err != nil {
		return domain.Quote{}, apperror.New(apperror.CodeRateLimitExceeded,
			apperror.WithCause(err), apperror.WithContext(a.cfg.Slug))
	}

	req := QuoteRequest{Pair: pair, AmountIn: amountIn}
	if a.deps.Static != nil {
		if usd, ok := a.deps.Static.USD(pair.Base); ok {
			req.TradeUSD = usd.Mul(amount)
		}
	}

	start := a.now()
	vq, err := a.cb.Execute(func() (VenueQuote, error) {
		return a.quoter.Quote(ctx, req)
	})
	a.metrics.latency.Record(ctx, float64(a.now().Sub(start).Milliseconds()), a.metrics.attrs)

	if err != nil {
		if !errors.Is(err, gobreaker.ErrOpenState) && !errors.Is(err, gobreaker.ErrTooManyRequests) {
			a.deps.Limiter.ReportFailure(a.cfg.Slug)
		}
		return domain.Quote{}, apperror.External(apperror.CodeSourceFetchFailed, a.cfg.Slug, err)
	}

	price, err := a.normalise(amountIn, vq)
	if err != nil {
		a.deps.Limiter.ReportFailure(a.cfg.Slug)
		return domain.Quote{}, err
	}
	a.deps.Limiter.ReportSuccess(a.cfg.Slug)

	fee := a.cfg.FeeRate()
	if vq.FeeRate.Valid {
		fee = vq.FeeRate.Decimal
	}

	return domain.Quote{
		Source:         a.cfg.Slug,
		Price:          price,
		FeeRate:        fee,
		LiquidityUSD:   vq.LiquidityUSD,
		GasEstimateUSD: gasUSD,
		Timestamp:      a.now(),
	}, nil
}

// normalise turns a venue answer into quote units per base unit.
func (a *SourceAdapter) normalise(amountIn asset.Amount, vq VenueQuote) (decimal.Decimal, error) {
	price := vq.Price
	if vq.AmountOut.Asset() != nil {
		r, err := asset.Rate(amountIn, vq.AmountOut)
		if err != nil {
			return decimal.Zero, apperror.New(apperror.CodeInvalidQuote, apperror.WithCause(err), apperror.WithContext(a.cfg.Slug))
		}
		price = r
	}
	if !price.IsPositive() {
		return decimal.Zero, apperror.New(apperror.CodeInvalidQuote, apperror.WithContext(a.cfg.Slug+": non-positive price"))
	}
	if vq.LiquidityUSD.IsNegative() {
		return decimal.Zero, apperror.New(apperror.CodeInvalidQuote, apperror.WithContext(a.cfg.Slug+": negative liquidity"))
	}
	return price, nil
}

func (a *SourceAdapter) persist(ctx context.Context, pair domain.Pair, q domain.Quote) {
	if a.deps.Store == nil {
		return
	}
	storeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), fallbackStoreTimeout)
	defer cancel()

	if err := a.deps.Store.AppendQuote(storeCtx, domain.NewQuoteKey(a.cfg.Slug, pair), q); err != nil {
		a.deps.Logger.Warn(ctx, "failed to persist quote", "source", a.cfg.Slug, "error", err)
	}
}
