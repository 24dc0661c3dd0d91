package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

// DefaultScanInterval is used when no block feed is available.
const DefaultScanInterval = 15 * time.Second

// Scanner is the scan surface the runner drives.
type Scanner interface {
	Scan(ctx context.Context, base, quote *asset.Asset, investment, minProfitPercent decimal.Decimal, opts ...ScanOption) (*ScanResult, error)
	Sources() []SourceStatus
}

// Target is one pair the runner scans.
type Target struct {
	Base  *asset.Asset
	Quote *asset.Asset
}

// Label returns "BASE/QUOTE".
func (t Target) Label() string {
	return asset.PairLabel(t.Base, t.Quote)
}

// ResolveTargets parses pair specs such as "WETH/USDC@ethereum".
func ResolveTargets(reg *asset.Registry, specs []string) ([]Target, error) {
	targets := make([]Target, 0, len(specs))
	for _, spec := range specs {
		base, quote, err := reg.ResolvePair(spec)
		if err != nil {
			return nil, err
		}
		targets = append(targets, Target{Base: base, Quote: quote})
	}
	return targets, nil
}

// RunnerConfig holds the continuous scan settings.
type RunnerConfig struct {
	Targets          []Target
	Investment       decimal.Decimal
	MinProfitPercent decimal.Decimal
	Interval         time.Duration
	// Execute hands the best opportunity of each scan to the executor.
	Execute        bool
	FundingAddress string
}

// Runner scans its targets on every new block, or on a fixed interval
// when no block feed is available, and reports the results.
type Runner struct {
	scanner  Scanner
	reporter Reporter
	blocks   BlockFeed
	history  History
	executor Executor
	cfg      RunnerConfig
	log      logger.LoggerInterface

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

// RunnerOption configures a Runner.
type RunnerOption func(*Runner)

// WithBlockFeed triggers scans on new blocks.
func WithBlockFeed(b BlockFeed) RunnerOption {
	return func(r *Runner) { r.blocks = b }
}

// WithHistory journals every detected opportunity.
func WithHistory(h History) RunnerOption {
	return func(r *Runner) { r.history = h }
}

// WithExecutor sets the execution hand-off.
func WithExecutor(e Executor) RunnerOption {
	return func(r *Runner) { r.executor = e }
}

// NewRunner creates a runner.
func NewRunner(scanner Scanner, reporter Reporter, cfg RunnerConfig, log logger.LoggerInterface, opts ...RunnerOption) *Runner {
	if cfg.Interval <= 0 {
		cfg.Interval = DefaultScanInterval
	}
	r := &Runner{
		scanner:  scanner,
		reporter: reporter,
		cfg:      cfg,
		log:      log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start starts the reporter and the scan loop.
func (r *Runner) Start(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.done != nil {
		return errors.New("runner already started")
	}

	if err := r.reporter.Start(ctx); err != nil {
		return err
	}

	runCtx, cancel := context.WithCancel(ctx)
	blocks := r.subscribe(runCtx)

	r.cancel = cancel
	r.done = make(chan struct{})
	go r.run(runCtx, blocks)

	r.log.Info(ctx, "runner started",
		"targets", len(r.cfg.Targets),
		"block_driven", blocks != nil,
		"interval", r.cfg.Interval)
	return nil
}

func (r *Runner) subscribe(ctx context.Context) <-chan blockchainDomain.Block {
	if r.blocks == nil || !r.blocks.HasBlockFeed() {
		return nil
	}
	blocks, err := r.blocks.SubscribeBlocks(ctx)
	if err != nil {
		r.log.Warn(ctx, "block feed unavailable, scanning on interval", "error", err)
		return nil
	}
	return blocks
}

func (r *Runner) run(ctx context.Context, blocks <-chan blockchainDomain.Block) {
	defer close(r.done)

	var ticker *time.Ticker
	defer func() {
		if ticker != nil {
			ticker.Stop()
		}
	}()
	var tick <-chan time.Time
	if blocks == nil {
		ticker = time.NewTicker(r.cfg.Interval)
		tick = ticker.C
	}

	r.ScanAll(ctx, 0)

	for {
		select {
		case <-ctx.Done():
			r.log.Info(context.Background(), "runner stopping", "reason", ctx.Err())
			return
		case b, ok := <-blocks:
			if !ok {
				r.log.Warn(ctx, "block feed closed, scanning on interval")
				blocks = nil
				ticker = time.NewTicker(r.cfg.Interval)
				tick = ticker.C
				continue
			}
			r.ScanAll(ctx, b.Number)
		case <-tick:
			r.ScanAll(ctx, 0)
		}
	}
}

// ScanAll scans every target once and reports the results. block is the
// triggering block number, zero for timed scans.
func (r *Runner) ScanAll(ctx context.Context, block uint64) []*ScanResult {
	results := make([]*ScanResult, 0, len(r.cfg.Targets))
	for _, t := range r.cfg.Targets {
		if ctx.Err() != nil {
			break
		}

		res, err := r.scanner.Scan(ctx, t.Base, t.Quote, r.cfg.Investment, r.cfg.MinProfitPercent)
		if err != nil {
			r.log.Error(ctx, "scan failed", "pair", t.Label(), "error", err)
			r.reporter.UpdateConnectionStatus(t.Label(), false, 0)
			continue
		}
		res.BlockNumber = block

		r.reporter.Report(res)
		r.reporter.UpdateConnectionStatus(res.Pair, true, res.Duration)

		if len(res.Opportunities) > 0 {
			r.record(ctx, res.Opportunities)
			r.execute(ctx, res)
		}
		results = append(results, res)
	}

	r.reporter.UpdateSources(r.scanner.Sources())
	return results
}

func (r *Runner) record(ctx context.Context, opps []domain.Opportunity) {
	if r.history == nil {
		return
	}
	if err := r.history.Record(ctx, opps); err != nil {
		r.log.Warn(ctx, "failed to journal opportunities", "count", len(opps), "error", err)
	}
}

func (r *Runner) execute(ctx context.Context, res *ScanResult) {
	if !r.cfg.Execute || r.executor == nil {
		return
	}
	best, ok := res.Best()
	if !ok {
		return
	}

	out, err := r.executor.Execute(ctx, best, r.cfg.FundingAddress)
	if err != nil {
		r.log.Error(ctx, "execution failed", "opportunity", best.ID, "error", err)
		return
	}
	r.log.Info(ctx, "execution submitted",
		"opportunity", best.ID,
		"status", string(out.Status),
		"tx", out.TxRef,
		"message", out.Message)
}

// Stop cancels the scan loop, waits for it and stops the reporter.
func (r *Runner) Stop() error {
	r.mu.Lock()
	cancel, done := r.cancel, r.done
	r.cancel, r.done = nil, nil
	r.mu.Unlock()

	if cancel == nil {
		return nil
	}
	cancel()
	<-done
	return r.reporter.Stop()
}
