package app

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
	"github.com/shopspring/decimal"
)

// mockLogger implements logger.LoggerInterface for testing.
type mockLogger struct{}

func (m *mockLogger) Debug(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Info(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Warn(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Error(ctx context.Context, msg string, args ...any) {}
func (m *mockLogger) Debugc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Infoc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Warnc(ctx context.Context, caller int, msg string, args ...any) {}
func (m *mockLogger) Errorc(ctx context.Context, caller int, msg string, args ...any) {}

var _ logger.LoggerInterface = (*mockLogger)(nil)

type quoterFunc func(ctx context.Context, req QuoteRequest) (VenueQuote, error)

func (f quoterFunc) Quote(ctx context.Context, req QuoteRequest) (VenueQuote, error) {
	return f(ctx, req)
}

type fakeLimiter struct {
	mu        sync.Mutex
	acquired  int
	failures  int
	successes int
	err       error
}

func (l *fakeLimiter) Acquire(ctx context.Context, source string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.acquired++
	return l.err
}

func (l *fakeLimiter) ReportFailure(string) {
	l.mu.Lock()
	l.failures++
	l.mu.Unlock()
}

func (l *fakeLimiter) ReportSuccess(string) {
	l.mu.Lock()
	l.successes++
	l.mu.Unlock()
}

type memStore struct {
	mu     sync.Mutex
	quotes map[domain.QuoteKey][]domain.Quote
	flags  map[string]bool
	err    error
}

func newMemStore() *memStore {
	return &memStore{quotes: map[domain.QuoteKey][]domain.Quote{}, flags: map[string]bool{}}
}

func (s *memStore) LatestQuote(ctx context.Context, key domain.QuoteKey) (domain.Quote, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return domain.Quote{}, false, s.err
	}
	qs := s.quotes[key]
	if len(qs) == 0 {
		return domain.Quote{}, false, nil
	}
	return qs[len(qs)-1], true, nil
}

func (s *memStore) AppendQuote(ctx context.Context, key domain.QuoteKey, q domain.Quote) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.quotes[key] = append(s.quotes[key], q)
	return s.err
}

func (s *memStore) SourceFlags(ctx context.Context) (map[string]bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out, s.err
}

func (s *memStore) SetSourceFlag(ctx context.Context, slug string, enabled bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[slug] = enabled
	return s.err
}

func (s *memStore) Ping(ctx context.Context) error { return s.err }

// stubAdapter is a minimal Adapter for registry and aggregator tests.
type stubAdapter struct {
	cfg     domain.SourceConfig
	enabled atomic.Bool
	calls   atomic.Int32
	fetch   func(ctx context.Context) domain.QuoteResult
}

func newStub(slug string, family asset.Family, chains []uint64, fetch func(ctx context.Context) domain.QuoteResult) *stubAdapter {
	s := &stubAdapter{
		cfg:   domain.SourceConfig{Name: slug, Slug: slug, Family: family, Chains: domain.NewChainSet(chains...)},
		fetch: fetch,
	}
	s.enabled.Store(true)
	return s
}

func (s *stubAdapter) Config() domain.SourceConfig {
	c := s.cfg
	c.Enabled = s.enabled.Load()
	return c
}
func (s *stubAdapter) Slug() string { return s.cfg.Slug }
func (s *stubAdapter) SupportedChains() domain.ChainSet { return s.cfg.Chains }
func (s *stubAdapter) IsEnabled() bool { return s.enabled.Load() }
func (s *stubAdapter) SetEnabled(v bool) { s.enabled.Store(v) }
func (s *stubAdapter) FetchQuote(ctx context.Context, base, quote *asset.Asset, amount decimal.Decimal) domain.QuoteResult {
	s.calls.Add(1)
	return s.fetch(ctx)
}

func priced(source, price, liquidity string) func(context.Context) domain.QuoteResult {
	return func(context.Context) domain.QuoteResult {
		return domain.Some(domain.Quote{
			Source:       source,
			Price:        decimal.RequireFromString(price),
			LiquidityUSD: decimal.RequireFromString(liquidity),
		})
	}
}
