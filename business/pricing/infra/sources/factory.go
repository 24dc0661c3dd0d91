// Package sources implements the venue quoters behind pricing adapters:
// HTTP swap aggregators, Uniswap-style subgraphs and the on-chain QuoterV2.
package sources

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum"
	"github.com/ethereum/go-ethereum/ethclient"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/httpclient"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

// DialFunc opens a contract caller for an RPC URL.
type DialFunc func(ctx context.Context, rawURL string) (ethereum.ContractCaller, error)

func dialEthclient(ctx context.Context, rawURL string) (ethereum.ContractCaller, error) {
	c, err := ethclient.DialContext(ctx, rawURL)
	if err != nil {
		return nil, err
	}
	return c, nil
}

// Factory builds a Quoter for each configured source.
type Factory struct {
	chains  map[uint64]config.ChainConfig
	timeout time.Duration
	dial    DialFunc
	log     logger.LoggerInterface
	scale   decimal.Decimal

	mu      sync.Mutex
	callers map[uint64]ethereum.ContractCaller
}

// FactoryOption configures a Factory.
type FactoryOption func(*Factory)

// WithDialer overrides how RPC clients are opened.
func WithDialer(dial DialFunc) FactoryOption {
	return func(f *Factory) { f.dial = dial }
}

// WithLiquidityImpactScale sets the impact scale quoters use to infer
// liquidity from a reported price impact. Keep it equal to the detector's.
func WithLiquidityImpactScale(scale decimal.Decimal) FactoryOption {
	return func(f *Factory) { f.scale = scale }
}

// QuoterOption configures a venue quoter.
type QuoterOption func(*quoterOptions)

type quoterOptions struct {
	impactScale decimal.Decimal
}

// WithImpactScale sets the scale of the square-root impact model used to
// turn a reported price impact back into liquidity.
func WithImpactScale(scale decimal.Decimal) QuoterOption {
	return func(o *quoterOptions) {
		if scale.IsPositive() {
			o.impactScale = scale
		}
	}
}

func newQuoterOptions(opts []QuoterOption) quoterOptions {
	o := quoterOptions{impactScale: app.DefaultImpactScale}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// NewFactory creates a factory. timeout bounds each HTTP request.
func NewFactory(chains []config.ChainConfig, timeout time.Duration, log logger.LoggerInterface, opts ...FactoryOption) *Factory {
	f := &Factory{
		chains:  make(map[uint64]config.ChainConfig, len(chains)),
		timeout: timeout,
		dial:    dialEthclient,
		log:     log,
		scale:   app.DefaultImpactScale,
		callers: make(map[uint64]ethereum.ContractCaller),
	}
	for _, c := range chains {
		f.chains[c.ID] = c
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// Quoter builds the venue client for cfg.
func (f *Factory) Quoter(ctx context.Context, cfg config.SourceConfig) (app.Quoter, error) {
	switch cfg.Kind {
	case config.KindZeroEx, config.KindOneInch, config.KindParaSwap, config.KindJupiter, config.KindRaydium:
		if cfg.BaseURL == "" {
			return nil, fmt.Errorf("source %s: base_url is required", cfg.Slug)
		}
		client, err := f.httpClient(cfg.Slug, cfg.BaseURL)
		if err != nil {
			return nil, err
		}
		return NewRESTQuoter(cfg.Slug, cfg.Kind, cfg.APIKey, cfg.Paths, client, WithImpactScale(f.scale))

	case config.KindSubgraphV3, config.KindSubgraphV2:
		endpoints, err := subgraphEndpoints(cfg)
		if err != nil {
			return nil, err
		}
		client, err := f.httpClient(cfg.Slug, "")
		if err != nil {
			return nil, err
		}
		return NewSubgraphQuoter(cfg.Slug, cfg.Kind == config.KindSubgraphV3, endpoints, client), nil

	case config.KindQuoterV2:
		callers := make(map[uint64]ethereum.ContractCaller, len(cfg.Chains))
		for _, id := range cfg.Chains {
			c, err := f.caller(ctx, id)
			if err != nil {
				return nil, fmt.Errorf("source %s: %w", cfg.Slug, err)
			}
			callers[id] = c
		}
		return NewQuoterV2(cfg.Slug, cfg.QuoterAddress, cfg.FeeTier, callers, f.log, WithImpactScale(f.scale))

	default:
		return nil, fmt.Errorf("source %s: unknown kind %q", cfg.Slug, cfg.Kind)
	}
}

func (f *Factory) httpClient(slug, baseURL string) (httpclient.Client, error) {
	opts := []httpclient.ClientOption{httpclient.WithProviderName(slug)}
	if baseURL != "" {
		opts = append(opts, httpclient.WithBaseURL(baseURL))
	}
	if f.timeout > 0 {
		opts = append(opts, httpclient.WithRequestTimeout(f.timeout))
	}
	return httpclient.New(opts...)
}

// caller returns a shared RPC client for chainID.
func (f *Factory) caller(ctx context.Context, chainID uint64) (ethereum.ContractCaller, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	if c, ok := f.callers[chainID]; ok {
		return c, nil
	}
	chain, ok := f.chains[chainID]
	if !ok || chain.RPCURL == "" {
		return nil, fmt.Errorf("chain %d has no rpc_url", chainID)
	}
	c, err := f.dial(ctx, chain.RPCURL)
	if err != nil {
		return nil, fmt.Errorf("dial chain %d: %w", chainID, err)
	}
	f.callers[chainID] = c
	return c, nil
}

func subgraphEndpoints(cfg config.SourceConfig) (map[uint64]string, error) {
	out := make(map[uint64]string, len(cfg.Endpoints))
	for key, u := range cfg.Endpoints {
		id, ok := asset.ParseChain(key)
		if !ok {
			return nil, fmt.Errorf("source %s: unknown chain %q in endpoints", cfg.Slug, key)
		}
		out[id] = strings.ReplaceAll(u, "{apiKey}", cfg.APIKey)
	}
	if cfg.BaseURL != "" {
		for _, id := range cfg.Chains {
			if _, ok := out[id]; !ok {
				out[id] = strings.ReplaceAll(cfg.BaseURL, "{apiKey}", cfg.APIKey)
			}
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("source %s: no subgraph endpoints", cfg.Slug)
	}
	return out, nil
}

// DomainConfig converts a configured source into its domain description.
// All chains of a source must belong to one family.
func DomainConfig(cfg config.SourceConfig) (domain.SourceConfig, error) {
	if len(cfg.Chains) == 0 {
		return domain.SourceConfig{}, fmt.Errorf("source %s: no chains", cfg.Slug)
	}
	family := asset.FamilyOf(cfg.Chains[0])
	for _, id := range cfg.Chains[1:] {
		if asset.FamilyOf(id) != family {
			return domain.SourceConfig{}, fmt.Errorf("source %s: chains span more than one family", cfg.Slug)
		}
	}

	venue := domain.VenueAggregator
	switch cfg.Kind {
	case config.KindSubgraphV3, config.KindSubgraphV2, config.KindQuoterV2, config.KindRaydium:
		venue = domain.VenueAMM
	}

	return domain.SourceConfig{
		Name:           cfg.Name,
		Slug:           cfg.Slug,
		Kind:           cfg.Kind,
		Venue:          venue,
		Family:         family,
		Chains:         domain.NewChainSet(cfg.Chains...),
		FeeRatePercent: decimal.NewFromFloat(cfg.FeeRatePercent),
		GasMultiplier:  decimal.NewFromFloat(cfg.GasMultiplier),
		Enabled:        cfg.Enabled,
	}, nil
}
