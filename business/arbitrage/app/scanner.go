package app

import (
	"context"
	"fmt"
	"time"

	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

const (
	tracerName = "arbitrage"
	meterName  = "arbitrage"

	// DefaultScanTimeout bounds one aggregation plus detection pass.
	DefaultScanTimeout = 10 * time.Second
)

// ScanResult is the outcome of one scan of a pair.
type ScanResult struct {
	Pair             string                         `json:"pair"`
	ChainID          uint64                         `json:"chainId"`
	Network          string                         `json:"network"`
	Investment       decimal.Decimal                `json:"investment"`
	MinProfitPercent decimal.Decimal                `json:"minProfitPercent"`
	Quotes           map[string]pricingDomain.Quote `json:"quotes"`
	Opportunities    []domain.Opportunity           `json:"opportunities"`
	// Message explains an empty result.
	Message     string        `json:"message,omitempty"`
	BlockNumber uint64        `json:"blockNumber,omitempty"`
	ScannedAt   time.Time     `json:"scannedAt"`
	Duration    time.Duration `json:"durationNs"`
}

// Best returns the most profitable opportunity.
func (r *ScanResult) Best() (domain.Opportunity, bool) {
	if r == nil || len(r.Opportunities) == 0 {
		return domain.Opportunity{}, false
	}
	return r.Opportunities[0], true
}

// SourceStatus is a source's configuration plus its breaker state.
type SourceStatus struct {
	pricingDomain.SourceConfig
	ChainIDs []uint64 `json:"chains"`
	Breaker  string   `json:"breaker"`
}

type scanOptions struct {
	refresh bool
}

// ScanOption tunes a single scan.
type ScanOption func(*scanOptions)

// WithRefresh bypasses the aggregation cache.
func WithRefresh() ScanOption {
	return func(o *scanOptions) { o.refresh = true }
}

type scanMetrics struct {
	scans         metric.Int64Counter
	failures      metric.Int64Counter
	opportunities metric.Int64Counter
	duration      metric.Float64Histogram
}

// ScanService aggregates quotes for a pair and runs detection on them.
type ScanService struct {
	quotes   QuoteAggregator
	sources  SourceRegistry
	flags    FlagStore
	static   *pricingDomain.StaticPrices
	detector *Detector
	timeout  time.Duration
	log      logger.LoggerInterface

	tracer  trace.Tracer
	metrics *scanMetrics
}

// NewScanService creates a scan service. flags may be nil, in which case
// source toggles are not persisted.
func NewScanService(
	quotes QuoteAggregator,
	sources SourceRegistry,
	flags FlagStore,
	static *pricingDomain.StaticPrices,
	detector *Detector,
	timeout time.Duration,
	log logger.LoggerInterface,
) (*ScanService, error) {
	if quotes == nil || sources == nil || detector == nil || log == nil {
		return nil, fmt.Errorf("scan service: aggregator, registry, detector and logger are required")
	}
	if timeout <= 0 {
		timeout = DefaultScanTimeout
	}

	s := &ScanService{
		quotes:   quotes,
		sources:  sources,
		flags:    flags,
		static:   static,
		detector: detector,
		timeout:  timeout,
		log:      log,
		tracer:   otel.Tracer(tracerName),
	}
	if err := s.initMetrics(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *ScanService) initMetrics() error {
	meter := otel.Meter(meterName)
	m := &scanMetrics{}
	var err error

	if m.scans, err = meter.Int64Counter("arbitrage_scans_total",
		metric.WithDescription("Completed scans")); err != nil {
		return err
	}
	if m.failures, err = meter.Int64Counter("arbitrage_scan_failures_total",
		metric.WithDescription("Scans that returned an error")); err != nil {
		return err
	}
	if m.opportunities, err = meter.Int64Counter("arbitrage_opportunities_total",
		metric.WithDescription("Profitable opportunities detected")); err != nil {
		return err
	}
	if m.duration, err = meter.Float64Histogram("arbitrage_scan_duration_seconds",
		metric.WithDescription("Scan latency"),
		metric.WithUnit("s")); err != nil {
		return err
	}

	s.metrics = m
	return nil
}

// Scan prices base/quote on every enabled source and returns the
// profitable round trips sorted by net profit percent. investment is in
// quote-token units and minProfitPercent bounds the raw price difference.
func (s *ScanService) Scan(ctx context.Context, base, quote *asset.Asset, investment, minProfitPercent decimal.Decimal, opts ...ScanOption) (*ScanResult, error) {
	if err := validateScan(base, quote, investment, minProfitPercent); err != nil {
		return nil, err
	}

	var o scanOptions
	for _, opt := range opts {
		opt(&o)
	}

	pair := asset.PairLabel(base, quote)
	attrs := metric.WithAttributes(attribute.String("pair", pair))

	ctx, span := s.tracer.Start(ctx, "ScanService.Scan",
		trace.WithAttributes(
			attribute.String("pair", pair),
			attribute.String("investment", investment.String()),
			attribute.String("min_profit_percent", minProfitPercent.String()),
		),
	)
	defer span.End()

	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	start := time.Now()

	aggOpts := []pricingApp.AggregateOption{pricingApp.WithAmount(s.probeAmount(base, quote, investment))}
	if o.refresh {
		aggOpts = append(aggOpts, pricingApp.WithForceRefresh())
	}

	quotes, err := s.quotes.Aggregate(ctx, base, quote, aggOpts...)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		s.metrics.failures.Add(ctx, 1, attrs)
		return nil, err
	}

	result := &ScanResult{
		Pair:             pair,
		ChainID:          base.ChainID(),
		Network:          asset.ChainName(base.ChainID()),
		Investment:       investment,
		MinProfitPercent: minProfitPercent,
		Quotes:           quotes,
		Opportunities:    []domain.Opportunity{},
		ScannedAt:        start,
	}

	if eligible := s.detector.Eligible(quotes); len(eligible) < 2 {
		result.Message = fmt.Sprintf("insufficient price data: %d usable quote(s), need at least 2", len(eligible))
	} else {
		opps := s.detector.Detect(quotes, base, quote, investment, minProfitPercent)
		SortByNetProfitPercent(opps)
		if len(opps) > 0 {
			result.Opportunities = opps
		} else {
			result.Message = fmt.Sprintf("no profitable opportunities above %s%%", minProfitPercent.String())
		}
	}

	result.Duration = time.Since(start)

	s.metrics.scans.Add(ctx, 1, attrs)
	s.metrics.opportunities.Add(ctx, int64(len(result.Opportunities)), attrs)
	s.metrics.duration.Record(ctx, result.Duration.Seconds(), attrs)
	span.SetAttributes(
		attribute.Int("quotes", len(quotes)),
		attribute.Int("opportunities", len(result.Opportunities)),
	)

	s.log.Debug(ctx, "scan completed",
		"pair", pair,
		"quotes", len(quotes),
		"opportunities", len(result.Opportunities),
		"duration", result.Duration)

	return result, nil
}

func validateScan(base, quote *asset.Asset, investment, minProfitPercent decimal.Decimal) error {
	if base == nil || quote == nil {
		return apperror.Validation(apperror.CodeInvalidInput, "base and quote tokens are required")
	}
	if base.ChainID() != quote.ChainID() {
		return apperror.Validation(apperror.CodeChainMismatch,
			fmt.Sprintf("%s is on chain %d, %s is on chain %d", base, base.ChainID(), quote, quote.ChainID()))
	}
	if !investment.IsPositive() {
		return apperror.Validation(apperror.CodeInvalidTradeSize, "investment must be positive")
	}
	if minProfitPercent.IsNegative() {
		return apperror.Validation(apperror.CodeInvalidProfitThreshold, "minimum profit cannot be negative")
	}
	return nil
}

// probeAmount converts the investment into base-token units using the
// static reference rate, so sources are asked to price a realistic size.
func (s *ScanService) probeAmount(base, quote *asset.Asset, investment decimal.Decimal) decimal.Decimal {
	if s.static == nil {
		return decimal.NewFromInt(1)
	}
	rate, ok := s.static.Rate(base, quote)
	if !ok || !rate.IsPositive() {
		return decimal.NewFromInt(1)
	}
	return investment.DivRound(rate, int32(base.Decimals()))
}

// SetSourceEnabled toggles a source, persists the flag and drops cached
// aggregations so the next scan reflects the change.
func (s *ScanService) SetSourceEnabled(ctx context.Context, slug string, enabled bool) error {
	if err := s.sources.SetEnabled(slug, enabled); err != nil {
		return err
	}
	if s.flags != nil {
		if err := s.flags.SetSourceFlag(ctx, slug, enabled); err != nil {
			s.log.Warn(ctx, "source flag not persisted", "source", slug, "error", err)
		}
	}
	s.quotes.Purge(ctx)

	s.log.Info(ctx, "source toggled", "source", slug, "enabled", enabled)
	return nil
}

// Sources lists every configured source with its breaker state.
func (s *ScanService) Sources() []SourceStatus {
	cfgs := s.sources.AllConfigs()
	out := make([]SourceStatus, 0, len(cfgs))
	for _, c := range cfgs {
		st := SourceStatus{SourceConfig: c, ChainIDs: c.ChainIDs(), Breaker: "n/a"}
		if a, ok := s.sources.Adapter(c.Slug); ok {
			if b, ok := a.(interface{ BreakerState() gobreaker.State }); ok {
				st.Breaker = b.BreakerState().String()
			}
		}
		out = append(out, st)
	}
	return out
}
