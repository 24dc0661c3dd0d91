package app

import (
	"context"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
)

// QuoteAggregator supplies merged per-source quotes for a pair.
type QuoteAggregator interface {
	Aggregate(ctx context.Context, base, quote *asset.Asset, opts ...pricingApp.AggregateOption) (map[string]pricingDomain.Quote, error)
	Purge(ctx context.Context)
}

// SourceRegistry is the view of the adapter registry the scanner needs.
type SourceRegistry interface {
	SetEnabled(slug string, enabled bool) error
	AllConfigs() []pricingDomain.SourceConfig
	Adapter(slug string) (pricingApp.Adapter, bool)
}

// FlagStore persists source enabled flags.
type FlagStore interface {
	SetSourceFlag(ctx context.Context, slug string, enabled bool) error
}

// Reporter displays scan results.
type Reporter interface {
	// Start initializes the reporter.
	Start(ctx context.Context) error

	// Report publishes one scan's quotes and opportunities.
	Report(result *ScanResult)

	// UpdateSources refreshes the per-source status display.
	UpdateSources(sources []SourceStatus)

	// UpdateConnectionStatus updates a connection status display.
	UpdateConnectionStatus(name string, connected bool, latency time.Duration)

	// Stop gracefully shuts down the reporter.
	Stop() error
}

// Executor hands an opportunity to the wallet/execution layer.
type Executor interface {
	Execute(ctx context.Context, opp domain.Opportunity, fundingAddress string) (domain.ExecutionResult, error)
}

// History journals detected opportunities.
type History interface {
	Record(ctx context.Context, opps []domain.Opportunity) error
	Recent(ctx context.Context, limit int) ([]domain.Opportunity, error)
}

// BlockFeed triggers scans on new chain heads.
type BlockFeed interface {
	HasBlockFeed() bool
	SubscribeBlocks(ctx context.Context) (<-chan blockchainDomain.Block, error)
}
