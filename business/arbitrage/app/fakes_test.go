package app

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	blockchainDomain "github.com/fd1az/dex-arbitrage-engine/business/blockchain/domain"
	pricingApp "github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	pricingDomain "github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/shopspring/decimal"
)

type fakeAggregator struct {
	mu     sync.Mutex
	quotes map[string]pricingDomain.Quote
	err    error
	calls  int
	purges int
}

func (f *fakeAggregator) Aggregate(context.Context, *asset.Asset, *asset.Asset, ...pricingApp.AggregateOption) (map[string]pricingDomain.Quote, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	out := make(map[string]pricingDomain.Quote, len(f.quotes))
	for k, v := range f.quotes {
		out[k] = v
	}
	return out, nil
}

func (f *fakeAggregator) Purge(context.Context) {
	f.mu.Lock()
	f.purges++
	f.mu.Unlock()
}

type fakeRegistry struct {
	configs []pricingDomain.SourceConfig
}

func (r *fakeRegistry) SetEnabled(slug string, enabled bool) error {
	for i := range r.configs {
		if r.configs[i].Slug == slug {
			r.configs[i].Enabled = enabled
			return nil
		}
	}
	return apperror.NotFound(apperror.CodeSourceNotFound, slug)
}

func (r *fakeRegistry) AllConfigs() []pricingDomain.SourceConfig {
	return append([]pricingDomain.SourceConfig(nil), r.configs...)
}

func (r *fakeRegistry) Adapter(string) (pricingApp.Adapter, bool) {
	return nil, false
}

type fakeFlags struct {
	flags map[string]bool
	err   error
}

func (f *fakeFlags) SetSourceFlag(_ context.Context, slug string, enabled bool) error {
	if f.err != nil {
		return f.err
	}
	f.flags[slug] = enabled
	return nil
}

type fakeReporter struct {
	mu       sync.Mutex
	started  bool
	stopped  bool
	results  []*ScanResult
	sources  [][]SourceStatus
	statuses map[string]bool
	reported chan *ScanResult
}

func newFakeReporter() *fakeReporter {
	return &fakeReporter{statuses: map[string]bool{}, reported: make(chan *ScanResult, 64)}
}

func (r *fakeReporter) Start(context.Context) error {
	r.mu.Lock()
	r.started = true
	r.mu.Unlock()
	return nil
}

func (r *fakeReporter) Report(res *ScanResult) {
	r.mu.Lock()
	r.results = append(r.results, res)
	r.mu.Unlock()
	select {
	case r.reported <- res:
	default:
	}
}

func (r *fakeReporter) UpdateSources(s []SourceStatus) {
	r.mu.Lock()
	r.sources = append(r.sources, s)
	r.mu.Unlock()
}

func (r *fakeReporter) UpdateConnectionStatus(name string, connected bool, _ time.Duration) {
	r.mu.Lock()
	r.statuses[name] = connected
	r.mu.Unlock()
}

func (r *fakeReporter) Stop() error {
	r.mu.Lock()
	r.stopped = true
	r.mu.Unlock()
	return nil
}

type fakeScanner struct {
	mu     sync.Mutex
	result ScanResult
	err    error
	calls  int
}

func (s *fakeScanner) Scan(_ context.Context, base, quote *asset.Asset, _, _ decimal.Decimal, _ ...ScanOption) (*ScanResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	res := s.result
	res.Pair = asset.PairLabel(base, quote)
	return &res, nil
}

func (s *fakeScanner) Sources() []SourceStatus {
	return []SourceStatus{{SourceConfig: pricingDomain.SourceConfig{Slug: "uniswap-v3"}, Breaker: "closed"}}
}

type fakeHistory struct {
	mu       sync.Mutex
	recorded []domain.Opportunity
	err      error
}

func (h *fakeHistory) Record(_ context.Context, opps []domain.Opportunity) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.recorded = append(h.recorded, opps...)
	return h.err
}

func (h *fakeHistory) Recent(context.Context, int) ([]domain.Opportunity, error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]domain.Opportunity(nil), h.recorded...), nil
}

type fakeExecutor struct {
	mu      sync.Mutex
	calls   []domain.Opportunity
	funding string
}

func (e *fakeExecutor) Execute(_ context.Context, opp domain.Opportunity, funding string) (domain.ExecutionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls = append(e.calls, opp)
	e.funding = funding
	return domain.ExecutionResult{OpportunityID: opp.ID, Status: domain.ExecutionPending, TxRef: "paper-1"}, nil
}

type fakeBlockFeed struct {
	ch  chan blockchainDomain.Block
	err error
}

func (f *fakeBlockFeed) HasBlockFeed() bool { return true }

func (f *fakeBlockFeed) SubscribeBlocks(context.Context) (<-chan blockchainDomain.Block, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.ch, nil
}

var errUpstream = errors.New("upstream down")
