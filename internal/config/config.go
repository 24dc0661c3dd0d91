// Package config provides configuration loading and validation.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

// Config holds all application configuration.
type Config struct {
	App          AppConfig          `mapstructure:"app"`
	Engine       EngineConfig       `mapstructure:"engine"`
	Chains       []ChainConfig      `mapstructure:"chains"`
	Sources      []SourceConfig     `mapstructure:"sources"`
	Tokens       []TokenConfig      `mapstructure:"tokens"`
	StaticPrices map[string]float64 `mapstructure:"static_prices"`
	Store        StoreConfig        `mapstructure:"store"`
	Ethereum     EthereumConfig     `mapstructure:"ethereum"`
	Execution    ExecutionConfig    `mapstructure:"execution"`
	API          APIConfig          `mapstructure:"api"`
	Telemetry    TelemetryConfig    `mapstructure:"telemetry"`
}

// AppConfig holds general application settings.
type AppConfig struct {
	Name        string `mapstructure:"name"`
	Environment string `mapstructure:"environment"`
	LogLevel    string `mapstructure:"log_level"`
	HealthPort  int    `mapstructure:"health_port"`
	TUIMode     bool   `mapstructure:"-"` // Set at runtime, not from config file
}

// EngineConfig tunes aggregation and detection.
type EngineConfig struct {
	Pairs                 []string        `mapstructure:"pairs"`
	InvestmentUSD         float64         `mapstructure:"investment_usd"`
	MinProfitPercent      float64         `mapstructure:"min_profit_percent"`
	MaxPriceImpactPercent float64         `mapstructure:"max_price_impact_percent"`
	LiquidityCoverage     float64         `mapstructure:"liquidity_coverage"`
	PlatformFeeRate       float64         `mapstructure:"platform_fee_rate"`
	IncludeFallback       bool            `mapstructure:"include_fallback"`
	FallbackJitter        float64         `mapstructure:"fallback_jitter"`
	CacheTTL              time.Duration   `mapstructure:"cache_ttl"`
	FetchTimeout          time.Duration   `mapstructure:"fetch_timeout"`
	ScanTimeout           time.Duration   `mapstructure:"scan_timeout"`
	ScanInterval          time.Duration   `mapstructure:"scan_interval"`
	FreshnessWindow       time.Duration   `mapstructure:"freshness_window"`
	Liquidity             LiquidityConfig `mapstructure:"liquidity"`
}

// LiquidityConfig holds the price-impact heuristic constants.
type LiquidityConfig struct {
	ImpactScale            float64 `mapstructure:"impact_scale"`
	ImpactCap              float64 `mapstructure:"impact_cap"`
	ValidImpactMax         float64 `mapstructure:"valid_impact_max"`
	SafeTradeFraction      float64 `mapstructure:"safe_trade_fraction"`
	MissingLiquidityImpact float64 `mapstructure:"missing_liquidity_impact"`
}

// InvestmentDecimal returns the default investment as decimal.Decimal.
func (c *EngineConfig) InvestmentDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.InvestmentUSD)
}

// MinProfitDecimal returns the default minimum spread as decimal.Decimal.
func (c *EngineConfig) MinProfitDecimal() decimal.Decimal {
	return decimal.NewFromFloat(c.MinProfitPercent)
}

// ChainConfig holds per-chain gas parameters and RPC endpoints.
type ChainConfig struct {
	ID             uint64  `mapstructure:"id"`
	Name           string  `mapstructure:"name"`
	BaseGasUnits   uint64  `mapstructure:"base_gas_units"`
	GasPriceGwei   float64 `mapstructure:"gas_price_gwei"`
	NativePriceUSD float64 `mapstructure:"native_price_usd"`
	RPCURL         string  `mapstructure:"rpc_url"`
}

// SourceConfig describes one price source.
type SourceConfig struct {
	Name           string        `mapstructure:"name"`
	Slug           string        `mapstructure:"slug"`
	Kind           string        `mapstructure:"kind"`
	Enabled        bool          `mapstructure:"enabled"`
	BaseURL        string        `mapstructure:"base_url"`
	APIKey         string        `mapstructure:"api_key"`
	Chains         []uint64      `mapstructure:"chains"`
	FeeRatePercent float64       `mapstructure:"fee_rate_percent"`
	MaxRequests    int           `mapstructure:"max_requests"`
	Window         time.Duration `mapstructure:"window"`
	GasMultiplier  float64       `mapstructure:"gas_multiplier"`
	// Endpoints overrides BaseURL per chain id, e.g. one subgraph per network.
	Endpoints map[string]string `mapstructure:"endpoints"`
	// Paths overrides the response JSON paths of the source kind.
	Paths         map[string]string `mapstructure:"paths"`
	QuoterAddress string            `mapstructure:"quoter_address"`
	FeeTier       int               `mapstructure:"fee_tier"`
}

// TokenConfig registers an extra token.
type TokenConfig struct {
	Chain    uint64 `mapstructure:"chain"`
	Address  string `mapstructure:"address"`
	Symbol   string `mapstructure:"symbol"`
	Name     string `mapstructure:"name"`
	Decimals uint8  `mapstructure:"decimals"`
}

// StoreConfig selects the durable quote store.
type StoreConfig struct {
	Driver   string         `mapstructure:"driver"` // memory, redis, postgres
	Memory   MemoryConfig   `mapstructure:"memory"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// MemoryConfig sizes the in-process store.
type MemoryConfig struct {
	Size int `mapstructure:"size"`
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	Prefix   string        `mapstructure:"prefix"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// PostgresConfig holds Postgres connection settings.
type PostgresConfig struct {
	DSN          string        `mapstructure:"dsn"`
	MaxOpenConns int           `mapstructure:"max_open_conns"`
	QueryTimeout time.Duration `mapstructure:"query_timeout"`
	History      bool          `mapstructure:"history"`
}

// EthereumConfig holds the node used for block-driven scanning and gas prices.
type EthereumConfig struct {
	WebSocketURL   string        `mapstructure:"websocket_url"`
	HTTPURL        string        `mapstructure:"http_url"`
	InitialBackoff time.Duration `mapstructure:"initial_backoff"`
	MaxBackoff     time.Duration `mapstructure:"max_backoff"`
}

// ExecutionConfig controls the trade hand-off.
type ExecutionConfig struct {
	Enabled           bool          `mapstructure:"enabled"`
	FundingAddress    string        `mapstructure:"funding_address"`
	ApprovedFunding   []string      `mapstructure:"approved_funding"`
	MaxOpportunityAge time.Duration `mapstructure:"max_opportunity_age"`
}

// APIConfig holds the HTTP API settings.
type APIConfig struct {
	Enabled bool `mapstructure:"enabled"`
	Port    int  `mapstructure:"port"`
}

// TelemetryConfig holds observability configuration.
type TelemetryConfig struct {
	Enabled        bool   `mapstructure:"enabled"`
	ServiceName    string `mapstructure:"service_name"`
	TraceProvider  string `mapstructure:"trace_provider"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	OTLPHeaders    string `mapstructure:"otlp_headers"`
	OTLPProtocol   string `mapstructure:"otlp_protocol"`
	PrometheusPort int    `mapstructure:"prometheus_port"`
}

// Chain returns the configuration for chainID.
func (c *Config) Chain(chainID uint64) (ChainConfig, bool) {
	for _, ch := range c.Chains {
		if ch.ID == chainID {
			return ch, true
		}
	}
	return ChainConfig{}, false
}

// Load loads configuration from file and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("./config")
	}

	v.SetEnvPrefix("DEXARB")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	bindEnvVars(v)
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg.applyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return &cfg, nil
}

func bindEnvVars(v *viper.Viper) {
	// App
	v.BindEnv("app.name", "DEXARB_APP_NAME", "SERVICE_NAME")
	v.BindEnv("app.environment", "DEXARB_ENVIRONMENT", "ENVIRONMENT")
	v.BindEnv("app.log_level", "DEXARB_LOG_LEVEL", "LOG_LEVEL")

	// Engine
	v.BindEnv("engine.pairs", "DEXARB_PAIRS")
	v.BindEnv("engine.investment_usd", "DEXARB_INVESTMENT_USD")
	v.BindEnv("engine.min_profit_percent", "DEXARB_MIN_PROFIT_PERCENT")

	// Store
	v.BindEnv("store.driver", "DEXARB_STORE_DRIVER")
	v.BindEnv("store.redis.addr", "DEXARB_REDIS_ADDR", "REDIS_ADDR")
	v.BindEnv("store.redis.password", "DEXARB_REDIS_PASSWORD", "REDIS_PASSWORD")
	v.BindEnv("store.postgres.dsn", "DEXARB_POSTGRES_DSN", "DATABASE_URL")

	// Ethereum
	v.BindEnv("ethereum.websocket_url", "DEXARB_ETH_WS_URL", "ETH_WS_URL")
	v.BindEnv("ethereum.http_url", "DEXARB_ETH_HTTP_URL", "ETH_HTTP_URL")

	// Execution
	v.BindEnv("execution.funding_address", "DEXARB_FUNDING_ADDRESS")

	// Telemetry
	v.BindEnv("telemetry.enabled", "DEXARB_OTEL_ENABLED", "OTEL_ENABLED")
	v.BindEnv("telemetry.service_name", "DEXARB_OTEL_SERVICE_NAME", "OTEL_SERVICE_NAME")
	v.BindEnv("telemetry.otlp_endpoint", "DEXARB_OTEL_ENDPOINT", "OTEL_EXPORTER_OTLP_ENDPOINT")
	v.BindEnv("telemetry.otlp_headers", "DEXARB_OTEL_HEADERS", "OTEL_EXPORTER_OTLP_HEADERS")
	v.BindEnv("telemetry.otlp_protocol", "DEXARB_OTEL_PROTOCOL", "OTEL_EXPORTER_OTLP_PROTOCOL")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "dex-arbitrage-engine")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.log_level", "info")
	v.SetDefault("app.health_port", 8081)

	v.SetDefault("engine.pairs", []string{"WETH/USDC@ethereum"})
	v.SetDefault("engine.investment_usd", 1000)
	v.SetDefault("engine.min_profit_percent", 0.5)
	v.SetDefault("engine.max_price_impact_percent", 5)
	v.SetDefault("engine.liquidity_coverage", 3)
	v.SetDefault("engine.platform_fee_rate", 0.005)
	v.SetDefault("engine.include_fallback", true)
	v.SetDefault("engine.fallback_jitter", 0.001)
	v.SetDefault("engine.cache_ttl", "30s")
	v.SetDefault("engine.fetch_timeout", "4s")
	v.SetDefault("engine.scan_timeout", "10s")
	v.SetDefault("engine.scan_interval", "15s")
	v.SetDefault("engine.freshness_window", "5m")
	v.SetDefault("engine.liquidity.impact_scale", 100)
	v.SetDefault("engine.liquidity.impact_cap", 10)
	v.SetDefault("engine.liquidity.valid_impact_max", 3)
	v.SetDefault("engine.liquidity.safe_trade_fraction", 0.03)
	v.SetDefault("engine.liquidity.missing_liquidity_impact", 5)

	v.SetDefault("store.driver", "memory")
	v.SetDefault("store.memory.size", 4096)
	v.SetDefault("store.redis.addr", "localhost:6379")
	v.SetDefault("store.redis.prefix", "dexarb")
	v.SetDefault("store.redis.ttl", "24h")
	v.SetDefault("store.postgres.max_open_conns", 10)
	v.SetDefault("store.postgres.query_timeout", "2s")

	v.SetDefault("ethereum.initial_backoff", "1s")
	v.SetDefault("ethereum.max_backoff", "30s")

	v.SetDefault("execution.enabled", false)
	v.SetDefault("execution.max_opportunity_age", "30s")

	v.SetDefault("api.enabled", true)
	v.SetDefault("api.port", 8080)

	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.service_name", "dex-arbitrage-engine")
	v.SetDefault("telemetry.trace_provider", "zipkin")
	v.SetDefault("telemetry.prometheus_port", 9090)
}

// applyDefaults fills list sections that viper cannot default per element.
func (c *Config) applyDefaults() {
	if len(c.Chains) == 0 {
		c.Chains = DefaultChains()
	}
	if len(c.Sources) == 0 {
		c.Sources = DefaultSources()
	}
	if len(c.StaticPrices) == 0 {
		c.StaticPrices = DefaultStaticPrices()
	}
	for i := range c.Sources {
		s := &c.Sources[i]
		if s.Window == 0 {
			s.Window = time.Minute
		}
		if s.GasMultiplier == 0 {
			s.GasMultiplier = 1
		}
	}
}

// Validate validates the configuration.
func (c *Config) Validate() error {
	if c.Engine.InvestmentUSD <= 0 {
		return fmt.Errorf("engine.investment_usd must be positive")
	}
	if c.Engine.MinProfitPercent < 0 {
		return fmt.Errorf("engine.min_profit_percent cannot be negative")
	}
	if c.Engine.CacheTTL <= 0 || c.Engine.FetchTimeout <= 0 {
		return fmt.Errorf("engine.cache_ttl and engine.fetch_timeout must be positive")
	}
	if c.Engine.Liquidity.ImpactScale <= 0 || c.Engine.Liquidity.ImpactCap <= 0 {
		return fmt.Errorf("engine.liquidity.impact_scale and impact_cap must be positive")
	}

	seen := make(map[string]struct{}, len(c.Sources))
	for _, s := range c.Sources {
		if s.Slug == "" {
			return fmt.Errorf("source %q: slug is required", s.Name)
		}
		if _, dup := seen[s.Slug]; dup {
			return fmt.Errorf("source %q: duplicate slug", s.Slug)
		}
		seen[s.Slug] = struct{}{}

		if len(s.Chains) == 0 {
			return fmt.Errorf("source %q: at least one chain is required", s.Slug)
		}
		if s.QuoterAddress != "" && !common.IsHexAddress(s.QuoterAddress) {
			return fmt.Errorf("source %q: invalid quoter_address %s", s.Slug, s.QuoterAddress)
		}
		if s.FeeRatePercent < 0 || s.FeeRatePercent >= 100 {
			return fmt.Errorf("source %q: fee_rate_percent out of range", s.Slug)
		}
	}

	switch c.Store.Driver {
	case "memory":
	case "redis":
		if c.Store.Redis.Addr == "" {
			return fmt.Errorf("store.redis.addr is required")
		}
	case "postgres":
		if c.Store.Postgres.DSN == "" {
			return fmt.Errorf("store.postgres.dsn is required")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}

	if c.Execution.Enabled && !common.IsHexAddress(c.Execution.FundingAddress) {
		return fmt.Errorf("execution.funding_address must be a valid address when execution is enabled")
	}
	return nil
}
