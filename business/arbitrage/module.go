// Package arbitrage implements the arbitrage bounded context: detection,
// the scan service, the continuous runner and its outer surfaces.
package arbitrage

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	arbitrageDI "github.com/fd1az/dex-arbitrage-engine/business/arbitrage/di"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/infra"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/infra/api"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/infra/history"
	blockchainDI "github.com/fd1az/dex-arbitrage-engine/business/blockchain/di"
	"github.com/fd1az/dex-arbitrage-engine/business/execution/infra/paper"
	pricingDI "github.com/fd1az/dex-arbitrage-engine/business/pricing/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/fd1az/dex-arbitrage-engine/internal/monolith"
)

const shutdownTimeout = 5 * time.Second

// Module implements the arbitrage bounded context.
type Module struct{}

// RegisterServices registers all arbitrage services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, arbitrageDI.LiquidityModel, func(sr di.ServiceRegistry) *app.LiquidityModel {
		cfg := sr.Get("config").(*config.Config)
		return app.NewLiquidityModel(app.LiquidityParamsFromConfig(cfg.Engine.Liquidity))
	})

	di.RegisterToken(c, arbitrageDI.Detector, func(sr di.ServiceRegistry) *app.Detector {
		cfg := sr.Get("config").(*config.Config)
		return app.NewDetector(arbitrageDI.GetLiquidityModel(sr), app.DetectorParamsFromConfig(cfg.Engine))
	})

	di.RegisterToken(c, arbitrageDI.ScanService, func(sr di.ServiceRegistry) *app.ScanService {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		svc, err := app.NewScanService(
			pricingDI.GetAggregator(sr),
			pricingDI.GetRegistry(sr),
			pricingDI.GetStore(sr),
			pricingDI.GetStaticPrices(sr),
			arbitrageDI.GetDetector(sr),
			cfg.Engine.ScanTimeout,
			log,
		)
		if err != nil {
			panic("failed to create scan service: " + err.Error())
		}
		return svc
	})

	di.RegisterToken(c, arbitrageDI.Reporter, func(sr di.ServiceRegistry) app.Reporter {
		cfg := sr.Get("config").(*config.Config)
		if cfg.App.TUIMode {
			return infra.NewTUIReporter()
		}
		return infra.NewConsoleReporter(false)
	})

	di.RegisterToken(c, arbitrageDI.History, func(sr di.ServiceRegistry) app.History {
		cfg := sr.Get("config").(*config.Config)
		if !cfg.Store.Postgres.History {
			return nil
		}
		db := sr.Get(monolith.PostgresKey).(*sqlx.DB)
		if db == nil {
			return nil
		}
		return history.New(db, cfg.Store.Postgres.QueryTimeout)
	})

	di.RegisterToken(c, arbitrageDI.Executor, func(sr di.ServiceRegistry) app.Executor {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		if !cfg.Execution.Enabled {
			return nil
		}
		return paper.New(paper.Config{
			ApprovedFunding:   cfg.Execution.ApprovedFunding,
			MaxOpportunityAge: cfg.Execution.MaxOpportunityAge,
		}, log)
	})

	di.RegisterToken(c, arbitrageDI.Runner, func(sr di.ServiceRegistry) *app.Runner {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		assets := sr.Get("assetRegistry").(*asset.Registry)

		targets, err := app.ResolveTargets(assets, cfg.Engine.Pairs)
		if err != nil {
			panic("failed to resolve engine pairs: " + err.Error())
		}

		opts := []app.RunnerOption{}
		if chain := blockchainDI.GetBlockchainService(sr); chain.HasBlockFeed() {
			opts = append(opts, app.WithBlockFeed(chain))
		}
		if h := arbitrageDI.GetHistory(sr); h != nil {
			opts = append(opts, app.WithHistory(h))
		}
		exec := arbitrageDI.GetExecutor(sr)
		if exec != nil {
			opts = append(opts, app.WithExecutor(exec))
		}

		return app.NewRunner(arbitrageDI.GetScanService(sr), arbitrageDI.GetReporter(sr), app.RunnerConfig{
			Targets:          targets,
			Investment:       cfg.Engine.InvestmentDecimal(),
			MinProfitPercent: cfg.Engine.MinProfitDecimal(),
			Interval:         cfg.Engine.ScanInterval,
			Execute:          exec != nil,
			FundingAddress:   cfg.Execution.FundingAddress,
		}, log, opts...)
	})

	di.RegisterToken(c, arbitrageDI.APIServer, func(sr di.ServiceRegistry) *api.Server {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)
		if !cfg.API.Enabled {
			return nil
		}

		opts := []api.Option{api.WithQuotes(pricingDI.GetAggregator(sr))}
		if h := arbitrageDI.GetHistory(sr); h != nil {
			opts = append(opts, api.WithJournal(h))
		}
		return api.NewServer(api.Config{
			Port:             cfg.API.Port,
			Investment:       cfg.Engine.InvestmentDecimal(),
			MinProfitPercent: cfg.Engine.MinProfitDecimal(),
			RequestTimeout:   cfg.Engine.ScanTimeout + time.Second,
		}, arbitrageDI.GetScanService(sr), sr.Get("assetRegistry").(*asset.Registry), log, opts...)
	})

	return nil
}

// Startup migrates the journal and starts the HTTP API. The runner is
// started by the caller so one-shot scans can skip it.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()
	sr := mono.Services()

	if j, ok := arbitrageDI.GetHistory(sr).(*history.Journal); ok {
		if err := j.Migrate(ctx); err != nil {
			log.Warn(ctx, "opportunity journal unavailable", "error", err)
		}
	}

	runner := arbitrageDI.GetRunner(sr)
	mono.OnClose(runner.Stop)

	if srv := arbitrageDI.GetAPIServer(sr); srv != nil {
		if err := srv.Start(); err != nil {
			log.Warn(ctx, "api server not started", "error", err)
		} else {
			mono.OnClose(func() error {
				ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
				defer cancel()
				return srv.Shutdown(ctx)
			})
		}
	}

	log.Info(ctx, "arbitrage module started",
		"pairs", len(mono.Config().Engine.Pairs),
		"history", arbitrageDI.GetHistory(sr) != nil,
		"execution", arbitrageDI.GetExecutor(sr) != nil)
	return nil
}
