// Package di contains dependency injection tokens for the pricing context.
package di

import (
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/infra/sources"
	"github.com/fd1az/dex-arbitrage-engine/internal/di"
	"github.com/fd1az/dex-arbitrage-engine/internal/ratelimit"
)

// Public service tokens - exposed to other modules
var (
	Aggregator     = di.NewToken[*app.Aggregator]("pricing.Aggregator")
	Registry       = di.NewToken[*app.Registry]("pricing.Registry")
	Store          = di.NewToken[app.QuoteStore]("pricing.Store")
	StaticPrices   = di.NewToken[*domain.StaticPrices]("pricing.StaticPrices")
	RateController = di.NewToken[*ratelimit.Controller]("pricing.RateController")
)

// Private dependency tokens - internal to pricing module
var (
	GasModel      = di.NewToken[*app.GasModel]("pricing:gasModel")
	Fallback      = di.NewToken[*app.FallbackChain]("pricing:fallback")
	SourceFactory = di.NewToken[*sources.Factory]("pricing:sourceFactory")
)

// Helper functions for type-safe access
func GetAggregator(c di.ServiceRegistry) *app.Aggregator {
	return di.GetToken(c, Aggregator)
}

func GetRegistry(c di.ServiceRegistry) *app.Registry {
	return di.GetToken(c, Registry)
}

func GetStore(c di.ServiceRegistry) app.QuoteStore {
	return di.GetToken(c, Store)
}

func GetStaticPrices(c di.ServiceRegistry) *domain.StaticPrices {
	return di.GetToken(c, StaticPrices)
}

func GetRateController(c di.ServiceRegistry) *ratelimit.Controller {
	return di.GetToken(c, RateController)
}

func GetGasModel(c di.ServiceRegistry) *app.GasModel {
	return di.GetToken(c, GasModel)
}

func GetFallback(c di.ServiceRegistry) *app.FallbackChain {
	return di.GetToken(c, Fallback)
}

func GetSourceFactory(c di.ServiceRegistry) *sources.Factory {
	return di.GetToken(c, SourceFactory)
}
