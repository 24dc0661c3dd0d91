// Package pricing implements the pricing bounded context: price-source
// adapters, their registry and the aggregation service.
package pricing

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	blockchainDI "github.com/fd1az/dex-arbitrage-engine/business/blockchain/di"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDI "github.com/fd1az/dex-arbitrage-engine/business/pricing/di"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/infra/sources"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/infra/store/memory"
	pgstore "github.com/fd1az/dex-arbitrage-engine/business/pricing/infra/store/postgres"
	redisstore "github.com/fd1az/dex-arbitrage-engine/business/pricing/infra/store/redis"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/fd1az/dex-arbitrage-engine/internal/monolith"
	"github.com/fd1az/dex-arbitrage-engine/internal/ratelimit"
)

const storeOpenTimeout = 10 * time.Second

// Module implements the pricing bounded context.
type Module struct{}

// RegisterServices registers all pricing services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, pricingDI.Store, func(sr di.ServiceRegistry) app.QuoteStore {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		store, err := openStore(sr, cfg)
		if err != nil {
			log.Error(context.Background(), "durable store unavailable, using memory store",
				"driver", cfg.Store.Driver, "error", err)
			store, err = memory.New(cfg.Store.Memory.Size)
			if err != nil {
				panic("failed to create memory store: " + err.Error())
			}
		}
		return store
	})

	di.RegisterToken(c, pricingDI.StaticPrices, func(sr di.ServiceRegistry) *domain.StaticPrices {
		cfg := sr.Get("config").(*config.Config)
		return domain.NewStaticPrices(cfg.StaticPrices)
	})

	di.RegisterToken(c, pricingDI.RateController, func(sr di.ServiceRegistry) *ratelimit.Controller {
		cfg := sr.Get("config").(*config.Config)

		ctrl := ratelimit.NewController(ratelimit.Policy{})
		for _, s := range cfg.Sources {
			ctrl.Configure(s.Slug, ratelimit.Policy{MaxRequests: s.MaxRequests, Window: s.Window})
		}
		return ctrl
	})

	di.RegisterToken(c, pricingDI.GasModel, func(sr di.ServiceRegistry) *app.GasModel {
		cfg := sr.Get("config").(*config.Config)
		return app.NewGasModel(cfg.Chains, blockchainDI.GetBlockchainService(sr))
	})

	di.RegisterToken(c, pricingDI.Fallback, func(sr di.ServiceRegistry) *app.FallbackChain {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return app.NewFallbackChain(pricingDI.GetStore(sr), pricingDI.GetStaticPrices(sr), cfg.Engine.FallbackJitter, log)
	})

	di.RegisterToken(c, pricingDI.SourceFactory, func(sr di.ServiceRegistry) *sources.Factory {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		return sources.NewFactory(cfg.Chains, cfg.Engine.FetchTimeout, log,
			sources.WithLiquidityImpactScale(decimal.NewFromFloat(cfg.Engine.Liquidity.ImpactScale)))
	})

	di.RegisterToken(c, pricingDI.Registry, func(sr di.ServiceRegistry) *app.Registry {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		deps := app.AdapterDeps{
			Limiter:  pricingDI.GetRateController(sr),
			Gas:      pricingDI.GetGasModel(sr),
			Fallback: pricingDI.GetFallback(sr),
			Store:    pricingDI.GetStore(sr),
			Static:   pricingDI.GetStaticPrices(sr),
			Logger:   log,
		}
		factory := pricingDI.GetSourceFactory(sr)

		registry := app.NewRegistry()
		for _, sc := range cfg.Sources {
			adapter, err := buildAdapter(factory, sc, deps)
			if err != nil {
				log.Error(context.Background(), "skipping source", "source", sc.Slug, "error", err)
				continue
			}
			if err := registry.Register(adapter); err != nil {
				panic("failed to register source: " + err.Error())
			}
		}
		return registry
	})

	di.RegisterToken(c, pricingDI.Aggregator, func(sr di.ServiceRegistry) *app.Aggregator {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		agg, err := app.NewAggregator(pricingDI.GetRegistry(sr), app.NewQuoteCache(),
			cfg.Engine.CacheTTL, cfg.Engine.FetchTimeout, log)
		if err != nil {
			panic("failed to create aggregator: " + err.Error())
		}
		return agg
	})

	return nil
}

func buildAdapter(factory *sources.Factory, sc config.SourceConfig, deps app.AdapterDeps) (*app.SourceAdapter, error) {
	domainCfg, err := sources.DomainConfig(sc)
	if err != nil {
		return nil, err
	}

	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	quoter, err := factory.Quoter(ctx, sc)
	if err != nil {
		return nil, err
	}
	return app.NewSourceAdapter(domainCfg, quoter, deps)
}

func openStore(sr di.ServiceRegistry, cfg *config.Config) (app.QuoteStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), storeOpenTimeout)
	defer cancel()

	switch cfg.Store.Driver {
	case "", "memory":
		return memory.New(cfg.Store.Memory.Size)
	case "redis":
		return redisstore.Open(ctx, cfg.Store.Redis)
	case "postgres":
		db := sr.Get(monolith.PostgresKey).(*sqlx.DB)
		if db == nil {
			return nil, fmt.Errorf("postgres is not reachable")
		}
		store := pgstore.New(db, cfg.Store.Postgres.QueryTimeout)
		if err := store.Migrate(ctx); err != nil {
			return nil, err
		}
		return store, nil
	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Store.Driver)
	}
}

// Startup restores persisted source flags and registers cleanups.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	store := pricingDI.GetStore(mono.Services())
	registry := pricingDI.GetRegistry(mono.Services())
	agg := pricingDI.GetAggregator(mono.Services())

	if closer, ok := store.(interface{ Close() error }); ok {
		mono.OnClose(closer.Close)
	}
	mono.OnClose(func() error {
		agg.Close()
		return nil
	})

	flags, err := store.SourceFlags(ctx)
	if err != nil {
		log.Warn(ctx, "could not restore source flags", "error", err)
	}
	for slug, enabled := range flags {
		if err := registry.SetEnabled(slug, enabled); err != nil {
			log.Warn(ctx, "ignoring flag for unknown source", "source", slug)
		}
	}

	log.Info(ctx, "pricing module started",
		"sources", len(registry.AllConfigs()),
		"restored_flags", len(flags))
	return nil
}
