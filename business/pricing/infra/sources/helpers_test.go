package sources

import (
	"context"
	"testing"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/httpclient"
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

func quoteRequest(t *testing.T, base, quote *asset.Asset, amount, tradeUSD string) app.QuoteRequest {
	t.Helper()
	pair, err := domain.NewPair(base, quote)
	if err != nil {
		t.Fatalf("NewPair() error = %v", err)
	}
	in, err := asset.FromDecimal(base, decimal.RequireFromString(amount))
	if err != nil {
		t.Fatalf("FromDecimal() error = %v", err)
	}
	return app.QuoteRequest{Pair: pair, AmountIn: in, TradeUSD: decimal.RequireFromString(tradeUSD)}
}

func testClient(t *testing.T, baseURL string) httpclient.Client {
	t.Helper()
	opts := []httpclient.ClientOption{httpclient.WithProviderName("test")}
	if baseURL != "" {
		opts = append(opts, httpclient.WithBaseURL(baseURL))
	}
	c, err := httpclient.New(opts...)
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	return c
}
