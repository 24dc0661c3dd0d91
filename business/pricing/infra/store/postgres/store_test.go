package postgres

import (
	"context"
	"errors"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
)

var (
	testKey      = domain.QuoteKey{Source: "uniswap-v3", ChainID: 1, Base: "0xweth", Quote: "0xusdc"}
	quoteColumns = []string{"source", "price", "fee_rate", "liquidity_usd", "gas_usd", "is_fallback", "quoted_at"}
)

func newMockStore(t *testing.T) (*Store, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.MonitorPingsOption(true))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return New(sqlx.NewDb(db, "postgres"), time.Second), mock
}

func TestStore_LatestQuote(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	rows := sqlmock.NewRows(quoteColumns).
		AddRow("uniswap-v3", "3001.5", "0.003", "2500000", "13.5", false, ts)
	mock.ExpectQuery(regexp.QuoteMeta("FROM price_quotes")).
		WithArgs("uniswap-v3", int64(1), "0xweth", "0xusdc").
		WillReturnRows(rows)

	q, ok, err := s.LatestQuote(context.Background(), testKey)
	require.NoError(t, err)
	require.True(t, ok)
	assert.True(t, q.Price.Equal(decimal.RequireFromString("3001.5")))
	assert.True(t, q.LiquidityUSD.Equal(decimal.NewFromInt(2_500_000)))
	assert.True(t, q.GasEstimateUSD.Equal(decimal.RequireFromString("13.5")))
	assert.Equal(t, ts, q.Timestamp)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_LatestQuoteMiss(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectQuery(regexp.QuoteMeta("FROM price_quotes")).
		WillReturnRows(sqlmock.NewRows(quoteColumns))

	_, ok, err := s.LatestQuote(context.Background(), testKey)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestStore_AppendQuote(t *testing.T) {
	s, mock := newMockStore(t)
	ts := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_quotes")).
		WithArgs("uniswap-v3", int64(1), "0xweth", "0xusdc", "3001.5", "0.003", "2500000", "13.5", true, ts).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err := s.AppendQuote(context.Background(), testKey, domain.Quote{
		Source:         "uniswap-v3",
		Price:          decimal.RequireFromString("3001.5"),
		FeeRate:        decimal.RequireFromString("0.003"),
		LiquidityUSD:   decimal.NewFromInt(2_500_000),
		GasEstimateUSD: decimal.RequireFromString("13.5"),
		IsFallback:     true,
		Timestamp:      ts,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_AppendQuoteError(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO price_quotes")).
		WillReturnError(errors.New("connection reset"))

	err := s.AppendQuote(context.Background(), testKey, domain.Quote{})
	assert.True(t, apperror.IsCode(err, apperror.CodeStoreUnavailable), "got %v", err)
}

func TestStore_SourceFlags(t *testing.T) {
	s, mock := newMockStore(t)
	ctx := context.Background()

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO source_flags")).
		WithArgs("1inch", false).
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, s.SetSourceFlag(ctx, "1inch", false))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT slug, enabled FROM source_flags")).
		WillReturnRows(sqlmock.NewRows([]string{"slug", "enabled"}).
			AddRow("1inch", false).
			AddRow("0x", true))
	flags, err := s.SourceFlags(ctx)
	require.NoError(t, err)
	assert.Equal(t, map[string]bool{"1inch": false, "0x": true}, flags)

	mock.ExpectPing()
	assert.NoError(t, s.Ping(ctx))

	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestStore_Migrate(t *testing.T) {
	s, mock := newMockStore(t)

	mock.ExpectExec(regexp.QuoteMeta("CREATE TABLE IF NOT EXISTS price_quotes")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.Migrate(context.Background()))
	assert.NoError(t, mock.ExpectationsWereMet())
}
