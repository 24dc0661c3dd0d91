// Package di contains dependency injection tokens for the blockchain context.
package di

import (
	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/app"
	"github.com/fd1az/dex-arbitrage-engine/business/blockchain/infra/ethereum"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	BlockchainService = di.NewToken[*app.BlockchainService]("blockchain.BlockchainService")
)

// Private dependency tokens - internal to blockchain module
var (
	// BlockSubscriber resolves to nil when no node endpoint is configured.
	BlockSubscriber = di.NewToken[*ethereum.Subscriber]("blockchain:blockSubscriber")
	GasOracle       = di.NewToken[*ethereum.GasOracle]("blockchain:gasOracle")
)

// Helper functions for type-safe access
func GetBlockchainService(c di.ServiceRegistry) *app.BlockchainService {
	return di.GetToken(c, BlockchainService)
}

func GetBlockSubscriber(c di.ServiceRegistry) *ethereum.Subscriber {
	return di.GetToken(c, BlockSubscriber)
}

func GetGasOracle(c di.ServiceRegistry) *ethereum.GasOracle {
	return di.GetToken(c, GasOracle)
}
