package ethereum

import (
	"context"
	"fmt"
	"math/big"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"
	"github.com/sony/gobreaker/v2"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"

	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/cache"
	"github.com/fd1az/dex-arbitrage-engine/internal/circuitbreaker"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

// GasOracleConfig holds configuration for the gas oracle.
type GasOracleConfig struct {
	RPCURLs     map[uint64]string // chain id -> RPC endpoint
	CacheTTL    time.Duration     // how long a fetched price is reused
	MaxGasPrice *big.Int          // prices above this are clamped
}

// DefaultGasOracleConfig builds the oracle config from the chain table.
// Chains without an rpc_url are left out.
func DefaultGasOracleConfig(chains []config.ChainConfig) GasOracleConfig {
	urls := make(map[uint64]string, len(chains))
	for _, c := range chains {
		if c.RPCURL != "" {
			urls[c.ID] = c.RPCURL
		}
	}
	return GasOracleConfig{
		RPCURLs:     urls,
		CacheTTL:    12 * time.Second, // ~1 block
		MaxGasPrice: big.NewInt(500_000_000_000),
	}
}

// GasDialFunc opens a gas price client for an RPC URL.
type GasDialFunc func(ctx context.Context, rawURL string) (ethereum.GasPricer, error)

func dialGasPricer(ctx context.Context, rawURL string) (ethereum.GasPricer, error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

type gasOracleMetrics struct {
	fetches     metric.Int64Counter
	gwei        metric.Float64Gauge
	cacheHits   metric.Int64Counter
	cacheMisses metric.Int64Counter
}

type chainPricer struct {
	pricer ethereum.GasPricer
	cb     *circuitbreaker.CircuitBreaker[*big.Int]
}

// GasOracle serves SuggestGasPrice per chain with a short cache and a
// breaker per endpoint.
type GasOracle struct {
	config GasOracleConfig
	logger logger.LoggerInterface
	dial   GasDialFunc
	now    func() time.Time

	mu      sync.Mutex
	pricers map[uint64]*chainPricer

	prices *cache.Cache[uint64, domain.GasPrice]

	tracer  trace.Tracer
	metrics *gasOracleMetrics
}

// GasOracleOption configures a GasOracle.
type GasOracleOption func(*GasOracle)

// WithGasDialer overrides how RPC clients are opened.
func WithGasDialer(dial GasDialFunc) GasOracleOption {
	return func(g *GasOracle) { g.dial = dial }
}

// NewGasOracle creates a new gas oracle instance. Clients are dialed on
// first use.
func NewGasOracle(cfg GasOracleConfig, log logger.LoggerInterface, opts ...GasOracleOption) (*GasOracle, error) {
	g := &GasOracle{
		config:  cfg,
		logger:  log,
		dial:    dialGasPricer,
		now:     time.Now,
		pricers: make(map[uint64]*chainPricer),
		prices:  cache.New[uint64, domain.GasPrice](time.Minute),
		tracer:  otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(g)
	}

	if err := g.initMetrics(); err != nil {
		return nil, fmt.Errorf("init metrics: %w", err)
	}
	return g, nil
}

func (g *GasOracle) initMetrics() error {
	meter := otel.Meter(meterName)
	var err error

	g.metrics = &gasOracleMetrics{}

	g.metrics.fetches, err = meter.Int64Counter(
		"gas_price_fetches_total",
		metric.WithDescription("Total gas price fetch attempts"),
		metric.WithUnit("{fetch}"),
	)
	if err != nil {
		return err
	}

	g.metrics.gwei, err = meter.Float64Gauge(
		"gas_price_gwei",
		metric.WithDescription("Current gas price in gwei"),
		metric.WithUnit("gwei"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheHits, err = meter.Int64Counter(
		"gas_cache_hits_total",
		metric.WithDescription("Gas price cache hits"),
		metric.WithUnit("{hit}"),
	)
	if err != nil {
		return err
	}

	g.metrics.cacheMisses, err = meter.Int64Counter(
		"gas_cache_misses_total",
		metric.WithDescription("Gas price cache misses"),
		metric.WithUnit("{miss}"),
	)
	return err
}

// Chains returns the chain ids with a configured endpoint.
func (g *GasOracle) Chains() []uint64 {
	ids := make([]uint64, 0, len(g.config.RPCURLs))
	for id := range g.config.RPCURLs {
		ids = append(ids, id)
	}
	return ids
}

func (g *GasOracle) pricer(ctx context.Context, chainID uint64) (*chainPricer, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if p, ok := g.pricers[chainID]; ok {
		return p, nil
	}
	url, ok := g.config.RPCURLs[chainID]
	if !ok {
		return nil, apperror.New(apperror.CodeChainUnsupported,
			apperror.WithContext(fmt.Sprintf("no rpc endpoint for chain %d", chainID)))
	}

	client, err := g.dial(ctx, url)
	if err != nil {
		return nil, apperror.New(apperror.CodeEthereumConnectionFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("dial chain %d", chainID)))
	}

	cbCfg := circuitbreaker.DefaultConfig(fmt.Sprintf("gas-oracle-%d", chainID))
	cbCfg.OnStateChange = func(name string, from, to gobreaker.State) {
		g.logger.Warn(context.Background(), "circuit breaker state change",
			"breaker", name, "from", from.String(), "to", to.String())
	}
	p := &chainPricer{pricer: client, cb: circuitbreaker.New[*big.Int](cbCfg)}
	g.pricers[chainID] = p
	return p, nil
}

// GasPrice retrieves the current gas price for chainID.
func (g *GasOracle) GasPrice(ctx context.Context, chainID uint64) (domain.GasPrice, error) {
	ctx, span := g.tracer.Start(ctx, "gas.get_price",
		trace.WithAttributes(attribute.Int64("chain_id", int64(chainID))))
	defer span.End()

	chainAttr := metric.WithAttributes(attribute.Int64("chain_id", int64(chainID)))

	if price, found := g.prices.Get(ctx, chainID); found {
		g.metrics.cacheHits.Add(ctx, 1, chainAttr)
		span.AddEvent("cache_hit")
		return price, nil
	}
	g.metrics.cacheMisses.Add(ctx, 1, chainAttr)

	p, err := g.pricer(ctx, chainID)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "no client")
		return domain.GasPrice{}, err
	}

	g.metrics.fetches.Add(ctx, 1, chainAttr)
	wei, err := p.cb.Execute(func() (*big.Int, error) {
		return p.pricer.SuggestGasPrice(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "fetch failed")
		return domain.GasPrice{}, apperror.New(apperror.CodeGasEstimationFailed,
			apperror.WithCause(err),
			apperror.WithContext(fmt.Sprintf("suggest gas price on chain %d", chainID)))
	}

	if g.config.MaxGasPrice != nil && wei.Cmp(g.config.MaxGasPrice) > 0 {
		g.logger.Warn(ctx, "gas price exceeds max", "chain_id", chainID, "wei", wei.String())
		wei = g.config.MaxGasPrice
	}

	price := domain.NewGasPrice(chainID, wei, g.now())
	g.prices.Set(ctx, chainID, price, g.config.CacheTTL)

	gwei, _ := price.Gwei().Float64()
	g.metrics.gwei.Record(ctx, gwei, chainAttr)
	span.SetAttributes(attribute.Float64("gwei", gwei))
	span.SetStatus(codes.Ok, "fetched")

	return price, nil
}

// Close releases cached state. Clients that expose Close are closed too.
func (g *GasOracle) Close() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	for id, p := range g.pricers {
		if c, ok := p.pricer.(interface{ Close() }); ok {
			c.Close()
		}
		delete(g.pricers, id)
	}
	g.prices.Close()
	return nil
}
