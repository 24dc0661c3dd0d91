// Package blockchain implements the blockchain bounded context: the block
// feed that triggers scans and live gas prices.
package blockchain

import (
	"context"

	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/app"
	blockchainDI "github.com/fd1az/dex-arbitrage-engine/business/blockchain/di"
	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/fd1az/dex-arbitrage-engine/internal/monolith"
)

// Module implements the blockchain bounded context.
type Module struct{}

// RegisterServices registers all blockchain services with the DI container.
func (m *Module) RegisterServices(c di.Container) error {
	di.RegisterToken(c, blockchainDI.BlockSubscriber, func(sr di.ServiceRegistry) *ethereum.Subscriber {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		if cfg.Ethereum.WebSocketURL == "" && cfg.Ethereum.HTTPURL == "" {
			return nil
		}
		sub, err := ethereum.NewSubscriber(ethereum.DefaultSubscriberConfig(cfg.Ethereum), log)
		if err != nil {
			panic("failed to create subscriber: " + err.Error())
		}
		return sub
	})

	di.RegisterToken(c, blockchainDI.GasOracle, func(sr di.ServiceRegistry) *ethereum.GasOracle {
		cfg := sr.Get("config").(*config.Config)
		log := sr.Get("logger").(logger.LoggerInterface)

		oracle, err := ethereum.NewGasOracle(ethereum.DefaultGasOracleConfig(cfg.Chains), log)
		if err != nil {
			panic("failed to create gas oracle: " + err.Error())
		}
		return oracle
	})

	di.RegisterToken(c, blockchainDI.BlockchainService, func(sr di.ServiceRegistry) *app.BlockchainService {
		oracle := blockchainDI.GetGasOracle(sr)
		if sub := blockchainDI.GetBlockSubscriber(sr); sub != nil {
			return app.NewBlockchainService(sub, oracle)
		}
		return app.NewBlockchainService(nil, oracle)
	})

	return nil
}

// Startup initializes the blockchain module.
func (m *Module) Startup(ctx context.Context, mono monolith.Monolith) error {
	log := mono.Logger()

	oracle := blockchainDI.GetGasOracle(mono.Services())
	svc := blockchainDI.GetBlockchainService(mono.Services())
	mono.OnClose(oracle.Close)

	log.Info(ctx, "blockchain module started",
		"gas_chains", len(oracle.Chains()),
		"block_feed", svc.HasBlockFeed())
	return nil
}
