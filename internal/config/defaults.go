package config

import "time"

// Source kinds understood by the source factory.
const (
	KindZeroEx     = "0x"
	KindOneInch    = "1inch"
	KindParaSwap   = "paraswap"
	KindJupiter    = "jupiter"
	KindRaydium    = "raydium"
	KindSubgraphV3 = "subgraph-v3"
	KindSubgraphV2 = "subgraph-v2"
	KindQuoterV2   = "quoterv2"
)

// DefaultChains returns gas parameters for the supported networks.
// Solana gas is expressed in lamports per compute budget, 1e-9 SOL each.
func DefaultChains() []ChainConfig {
	return []ChainConfig{
		{ID: 1, Name: "ethereum", BaseGasUnits: 150_000, GasPriceGwei: 30, NativePriceUSD: 3000},
		{ID: 10, Name: "optimism", BaseGasUnits: 150_000, GasPriceGwei: 0.05, NativePriceUSD: 3000},
		{ID: 56, Name: "bsc", BaseGasUnits: 150_000, GasPriceGwei: 3, NativePriceUSD: 550},
		{ID: 137, Name: "polygon", BaseGasUnits: 150_000, GasPriceGwei: 50, NativePriceUSD: 0.7},
		{ID: 8453, Name: "base", BaseGasUnits: 150_000, GasPriceGwei: 0.05, NativePriceUSD: 3000},
		{ID: 42161, Name: "arbitrum", BaseGasUnits: 150_000, GasPriceGwei: 0.1, NativePriceUSD: 3000},
		{ID: 1151111081099710, Name: "solana", BaseGasUnits: 5_000, GasPriceGwei: 1, NativePriceUSD: 150},
	}
}

// DefaultSources returns the built-in venue set. Aggregators are budgeted at
// 30 requests per minute, subgraphs at 60 and on-chain quoters at 100.
func DefaultSources() []SourceConfig {
	evm := []uint64{1, 10, 56, 137, 8453, 42161}
	return []SourceConfig{
		{
			Name: "0x", Slug: "0x", Kind: KindZeroEx, Enabled: true,
			BaseURL: "https://api.0x.org", Chains: evm,
			FeeRatePercent: 0.1, MaxRequests: 30, Window: time.Minute, GasMultiplier: 1.5,
		},
		{
			Name: "1inch", Slug: "1inch", Kind: KindOneInch, Enabled: true,
			BaseURL: "https://api.1inch.dev", Chains: evm,
			FeeRatePercent: 0.1, MaxRequests: 30, Window: time.Minute, GasMultiplier: 1.5,
		},
		{
			Name: "ParaSwap", Slug: "paraswap", Kind: KindParaSwap, Enabled: true,
			BaseURL: "https://api.paraswap.io", Chains: evm,
			FeeRatePercent: 0.1, MaxRequests: 30, Window: time.Minute, GasMultiplier: 1.5,
		},
		{
			Name: "Uniswap V3", Slug: "uniswap-v3", Kind: KindSubgraphV3, Enabled: true,
			Chains:         []uint64{1},
			FeeRatePercent: 0.3, MaxRequests: 60, Window: time.Minute, GasMultiplier: 1,
			Endpoints: map[string]string{
				"1": "https://gateway.thegraph.com/api/{apiKey}/subgraphs/id/5zvR82QoaXYFyDEKLZ9t6v9adgnptxYpKpSbxtgVENFV",
			},
		},
		{
			Name: "SushiSwap", Slug: "sushiswap", Kind: KindSubgraphV2, Enabled: true,
			Chains:         []uint64{1},
			FeeRatePercent: 0.3, MaxRequests: 60, Window: time.Minute, GasMultiplier: 1,
			Endpoints: map[string]string{
				"1": "https://gateway.thegraph.com/api/{apiKey}/subgraphs/id/6NUtT5mGjZ1tSshKLf5Q3uEEJtjBZJo1TpL6MXsUBqrT",
			},
		},
		{
			Name: "Uniswap V3 Quoter", Slug: "uniswap-v3-quoter", Kind: KindQuoterV2, Enabled: false,
			Chains:         []uint64{1, 10, 137, 42161},
			FeeRatePercent: 0.3, MaxRequests: 100, Window: time.Minute, GasMultiplier: 1,
			QuoterAddress: "0x61fFE014bA17989E743c5F6cB21bF9697530B21e", FeeTier: 3000,
		},
		{
			Name: "Jupiter", Slug: "jupiter", Kind: KindJupiter, Enabled: true,
			BaseURL: "https://lite-api.jup.ag", Chains: []uint64{1151111081099710},
			FeeRatePercent: 0.1, MaxRequests: 60, Window: time.Minute, GasMultiplier: 1.2,
		},
		{
			Name: "Raydium", Slug: "raydium", Kind: KindRaydium, Enabled: true,
			BaseURL: "https://transaction-v1.raydium.io", Chains: []uint64{1151111081099710},
			FeeRatePercent: 0.25, MaxRequests: 60, Window: time.Minute, GasMultiplier: 1,
		},
	}
}

// DefaultStaticPrices is the last-resort USD price table keyed by symbol.
func DefaultStaticPrices() map[string]float64 {
	return map[string]float64{
		"ETH":    3000,
		"WETH":   3000,
		"BTC":    60000,
		"WBTC":   60000,
		"USDC":   1,
		"USDT":   1,
		"DAI":    1,
		"SOL":    150,
		"WSOL":   150,
		"MATIC":  0.7,
		"WMATIC": 0.7,
		"BNB":    550,
		"WBNB":   550,
	}
}
