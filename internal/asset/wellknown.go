package asset

// Well-known tokens.
var (
	WETH = MustToken(ChainIDEthereum, "0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2", "WETH", "Wrapped Ether", 18)
	USDC = MustToken(ChainIDEthereum, "0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48", "USDC", "USD Coin", 6)
	USDT = MustToken(ChainIDEthereum, "0xdAC17F958D2ee523a2206206994597C13D831ec7", "USDT", "Tether USD", 6)
	DAI  = MustToken(ChainIDEthereum, "0x6B175474E89094C44Da98b954EedeAC495271d0F", "DAI", "Dai Stablecoin", 18)
	WBTC = MustToken(ChainIDEthereum, "0x2260FAC5E5542a773Aa44fBCfeDf7C193bc2C599", "WBTC", "Wrapped Bitcoin", 8)

	PolygonWETH   = MustToken(ChainIDPolygon, "0x7ceB23fD6bC0adD59E62ac25578270cFf1b9f619", "WETH", "Wrapped Ether", 18)
	PolygonUSDC   = MustToken(ChainIDPolygon, "0x3c499c542cEF5E3811e1192ce70d8cC03d5c3359", "USDC", "USD Coin", 6)
	PolygonWMATIC = MustToken(ChainIDPolygon, "0x0d500B1d8E8eF31E21C99d1Db9A6444d3ADf1270", "WMATIC", "Wrapped Matic", 18)

	ArbitrumWETH = MustToken(ChainIDArbitrum, "0x82aF49447D8a07e3bd95BD0d56f35241523fBab1", "WETH", "Wrapped Ether", 18)
	ArbitrumUSDC = MustToken(ChainIDArbitrum, "0xaf88d065e77c8cC2239327C5EDb3A432268e5831", "USDC", "USD Coin", 6)

	OptimismWETH = MustToken(ChainIDOptimism, "0x4200000000000000000000000000000000000006", "WETH", "Wrapped Ether", 18)
	OptimismUSDC = MustToken(ChainIDOptimism, "0x0b2C639c533813f4Aa9D7837CAf62653d097Ff85", "USDC", "USD Coin", 6)

	BaseWETH = MustToken(ChainIDBase, "0x4200000000000000000000000000000000000006", "WETH", "Wrapped Ether", 18)
	BaseUSDC = MustToken(ChainIDBase, "0x833589fCD6eDb6E08f4c7C32D4f71b54bdA02913", "USDC", "USD Coin", 6)

	BSCWBNB = MustToken(ChainIDBSC, "0xbb4CdB9CBd36B01bD1cBaEBF2De08d9173bc095c", "WBNB", "Wrapped BNB", 18)
	BSCUSDT = MustToken(ChainIDBSC, "0x55d398326f99059fF775485246999027B3197955", "USDT", "Tether USD", 18)

	SOL        = MustToken(ChainIDSolana, "So11111111111111111111111111111111111111112", "SOL", "Wrapped SOL", 9)
	SolanaUSDC = MustToken(ChainIDSolana, "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", "USDC", "USD Coin", 6)
	SolanaUSDT = MustToken(ChainIDSolana, "Es9vMFrzaCERmJfrF4H2FYD4KCoNkY11McCe8BenwNYB", "USDT", "Tether USD", 6)
)

// DefaultRegistry returns a registry pre-populated with well-known tokens.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, a := range []*Asset{
		WETH, USDC, USDT, DAI, WBTC,
		PolygonWETH, PolygonUSDC, PolygonWMATIC,
		ArbitrumWETH, ArbitrumUSDC,
		OptimismWETH, OptimismUSDC,
		BaseWETH, BaseUSDC,
		BSCWBNB, BSCUSDT,
		SOL, SolanaUSDC, SolanaUSDT,
	} {
		if err := r.Register(a); err != nil {
			panic(err)
		}
	}
	return r
}
