// Package di contains dependency injection tokens for the arbitrage context.
package di

import (
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/infra/api"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
)

// Public service tokens - exposed to other modules
var (
	ScanService = di.NewToken[*app.ScanService]("arbitrage.ScanService")
	Runner      = di.NewToken[*app.Runner]("arbitrage.Runner")
)

// Private dependency tokens - internal to arbitrage module
var (
	LiquidityModel = di.NewToken[*app.LiquidityModel]("arbitrage:liquidityModel")
	Detector       = di.NewToken[*app.Detector]("arbitrage:detector")
	Reporter       = di.NewToken[app.Reporter]("arbitrage:reporter")
	// History and Executor resolve to nil when disabled.
	History  = di.NewToken[app.History]("arbitrage:history")
	Executor = di.NewToken[app.Executor]("arbitrage:executor")
	// APIServer resolves to nil when the API is disabled.
	APIServer = di.NewToken[*api.Server]("arbitrage:apiServer")
)

// Helper functions for type-safe access
func GetScanService(c di.ServiceRegistry) *app.ScanService {
	return di.GetToken(c, ScanService)
}

func GetRunner(c di.ServiceRegistry) *app.Runner {
	return di.GetToken(c, Runner)
}

func GetLiquidityModel(c di.ServiceRegistry) *app.LiquidityModel {
	return di.GetToken(c, LiquidityModel)
}

func GetDetector(c di.ServiceRegistry) *app.Detector {
	return di.GetToken(c, Detector)
}

func GetReporter(c di.ServiceRegistry) app.Reporter {
	return di.GetToken(c, Reporter)
}

// GetHistory returns nil when no journal is configured.
func GetHistory(c di.ServiceRegistry) app.History {
	h, _ := c.Get(History.Key()).(app.History)
	return h
}

// GetExecutor returns nil when execution is disabled.
func GetExecutor(c di.ServiceRegistry) app.Executor {
	e, _ := c.Get(Executor.Key()).(app.Executor)
	return e
}

func GetAPIServer(c di.ServiceRegistry) *api.Server {
	return di.GetToken(c, APIServer)
}
