package app

import (
	"context"
	"maps"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/cache"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

// Aggregation defaults.
const (
	DefaultCacheTTL     = 30 * time.Second
	DefaultFetchTimeout = 4 * time.Second
)

// AdapterSource resolves the adapters to query for a chain.
type AdapterSource interface {
	AdaptersForChain(chainID uint64) []Adapter
}

// QuoteCache is the short-lived per-pair result cache.
type QuoteCache = cache.Cache[string, map[string]domain.Quote]

// NewQuoteCache creates an aggregation cache.
func NewQuoteCache() *QuoteCache {
	return cache.New[string, map[string]domain.Quote](time.Minute)
}

type aggregateOptions struct {
	forceRefresh bool
	amount       decimal.Decimal
}

// AggregateOption tunes a single Aggregate call.
type AggregateOption func(*aggregateOptions)

// WithForceRefresh bypasses the cache.
func WithForceRefresh() AggregateOption {
	return func(o *aggregateOptions) { o.forceRefresh = true }
}

// WithAmount sets the base-token amount each source is asked to price.
func WithAmount(amount decimal.Decimal) AggregateOption {
	return func(o *aggregateOptions) { o.amount = amount }
}

// Aggregator fans a pair out to every applicable adapter and merges the
// answers into one map keyed by source slug.
type Aggregator struct {
	sources      AdapterSource
	cache        *QuoteCache
	ttl          time.Duration
	fetchTimeout time.Duration
	log          logger.LoggerInterface

	tracer trace.Tracer
	hits   metric.Int64Counter
	misses metric.Int64Counter
}

// NewAggregator creates an aggregator. The cache is owned by the caller.
func NewAggregator(sources AdapterSource, c *QuoteCache, ttl, fetchTimeout time.Duration, log logger.LoggerInterface) (*Aggregator, error) {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	if fetchTimeout <= 0 {
		fetchTimeout = DefaultFetchTimeout
	}

	a := &Aggregator{
		sources:      sources,
		cache:        c,
		ttl:          ttl,
		fetchTimeout: fetchTimeout,
		log:          log,
		tracer:       otel.Tracer(tracerName),
	}

	meter := otel.Meter(meterName)
	var err error
	if a.hits, err = meter.Int64Counter("aggregator_cache_hits_total"); err != nil {
		return nil, err
	}
	if a.misses, err = meter.Int64Counter("aggregator_cache_misses_total"); err != nil {
		return nil, err
	}
	return a, nil
}

func cacheKey(p domain.Pair) string {
	return p.Key()
}

type fetchResult struct {
	slug   string
	result domain.QuoteResult
}

// Aggregate returns the usable quotes for base/quote keyed by source slug.
// All fetches run concurrently, each under its own timeout, and the call
// waits for every one to settle. If ctx ends first the quotes gathered so
// far are returned and nothing is cached.
func (a *Aggregator) Aggregate(ctx context.Context, base, quote *asset.Asset, opts ...AggregateOption) (map[string]domain.Quote, error) {
	o := aggregateOptions{amount: decimal.NewFromInt(1)}
	for _, opt := range opts {
		opt(&o)
	}

	pair, err := domain.NewPair(base, quote)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeChainMismatch, err.Error())
	}

	ctx, span := a.tracer.Start(ctx, "Aggregator.Aggregate",
		trace.WithAttributes(attribute.String("pair", pair.String()), attribute.Int64("chain_id", int64(pair.ChainID()))),
	)
	defer span.End()

	key := cacheKey(pair)
	if !o.forceRefresh {
		if cached, ok := a.cache.Get(ctx, key); ok {
			a.hits.Add(ctx, 1)
			return maps.Clone(cached), nil
		}
	}
	a.misses.Add(ctx, 1)

	adapters := a.sources.AdaptersForChain(pair.ChainID())
	results := make(chan fetchResult, len(adapters))

	for _, ad := range adapters {
		go func(ad Adapter) {
			fctx, cancel := context.WithTimeout(ctx, a.fetchTimeout)
			defer cancel()
			results <- fetchResult{slug: ad.Slug(), result: ad.FetchQuote(fctx, base, quote, o.amount)}
		}(ad)
	}

	quotes := make(map[string]domain.Quote, len(adapters))
	partial := false

collect:
	for pending := len(adapters); pending > 0; pending-- {
		select {
		case r := <-results:
			q, ok := r.result.Get()
			if !ok {
				a.log.Debug(ctx, "source returned no quote", "source", r.slug, "reason", string(r.result.Reason()))
				continue
			}
			if !q.IsUsable() {
				a.log.Debug(ctx, "dropping unusable quote", "source", r.slug, "price", q.Price.String())
				continue
			}
			quotes[r.slug] = q
		case <-ctx.Done():
			partial = true
			a.log.Warn(ctx, "aggregation cancelled, returning partial quotes",
				"pair", pair.String(), "received", len(quotes), "pending", pending)
			break collect
		}
	}

	span.SetAttributes(attribute.Int("quotes", len(quotes)), attribute.Bool("partial", partial))

	if !partial {
		a.cache.Set(ctx, key, quotes, a.ttl)
	}
	return maps.Clone(quotes), nil
}

// Purge drops every cached result, e.g. after a source is toggled.
func (a *Aggregator) Purge(ctx context.Context) {
	a.cache.Clear(ctx)
}

// Close stops the cache janitor.
func (a *Aggregator) Close() {
	a.cache.Close()
}
