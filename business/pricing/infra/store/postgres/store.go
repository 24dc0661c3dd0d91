// Package postgres is a QuoteStore backed by Postgres. Every quote is
// appended to a log table; the latest row per key answers lookups.
package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
)

const defaultQueryTimeout = 2 * time.Second

// Schema creates the tables used by Store.
const Schema = `
CREATE TABLE IF NOT EXISTS price_quotes (
	id             BIGSERIAL PRIMARY KEY,
	source         TEXT        NOT NULL,
	chain_id       BIGINT      NOT NULL,
	base_token     TEXT        NOT NULL,
	quote_token    TEXT        NOT NULL,
	price          NUMERIC     NOT NULL,
	fee_rate       NUMERIC     NOT NULL,
	liquidity_usd  NUMERIC     NOT NULL,
	gas_usd        NUMERIC     NOT NULL,
	is_fallback    BOOLEAN     NOT NULL DEFAULT FALSE,
	quoted_at      TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS price_quotes_lookup
	ON price_quotes (source, chain_id, base_token, quote_token, quoted_at DESC);
CREATE TABLE IF NOT EXISTS source_flags (
	slug       TEXT PRIMARY KEY,
	enabled    BOOLEAN     NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
);`

var _ app.QuoteStore = (*Store)(nil)

type quoteRow struct {
	Source       string          `db:"source"`
	Price        decimal.Decimal `db:"price"`
	FeeRate      decimal.Decimal `db:"fee_rate"`
	LiquidityUSD decimal.Decimal `db:"liquidity_usd"`
	GasUSD       decimal.Decimal `db:"gas_usd"`
	IsFallback   bool            `db:"is_fallback"`
	QuotedAt     time.Time       `db:"quoted_at"`
}

type flagRow struct {
	Slug    string `db:"slug"`
	Enabled bool   `db:"enabled"`
}

// Store implements app.QuoteStore on Postgres.
type Store struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New wraps an open pool. timeout bounds each query.
func New(db *sqlx.DB, timeout time.Duration) *Store {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Store{db: db, timeout: timeout}
}

// Migrate creates the schema if it does not exist.
func (s *Store) Migrate(ctx context.Context) error {
	if _, err := s.db.ExecContext(ctx, Schema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

func (s *Store) LatestQuote(ctx context.Context, key domain.QuoteKey) (domain.Quote, bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		SELECT source, price, fee_rate, liquidity_usd, gas_usd, is_fallback, quoted_at
		FROM price_quotes
		WHERE source = $1 AND chain_id = $2 AND base_token = $3 AND quote_token = $4
		ORDER BY quoted_at DESC
		LIMIT 1`

	var row quoteRow
	err := s.db.QueryRowxContext(ctx, query, key.Source, int64(key.ChainID), key.Base, key.Quote).StructScan(&row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return domain.Quote{}, false, nil
		}
		return domain.Quote{}, false, unavailable("latest quote", err)
	}

	return domain.Quote{
		Source:         row.Source,
		Price:          row.Price,
		FeeRate:        row.FeeRate,
		LiquidityUSD:   row.LiquidityUSD,
		GasEstimateUSD: row.GasUSD,
		Timestamp:      row.QuotedAt,
		IsFallback:     row.IsFallback,
	}, true, nil
}

func (s *Store) AppendQuote(ctx context.Context, key domain.QuoteKey, q domain.Quote) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO price_quotes
			(source, chain_id, base_token, quote_token, price, fee_rate, liquidity_usd, gas_usd, is_fallback, quoted_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`

	_, err := s.db.ExecContext(ctx, query,
		key.Source, int64(key.ChainID), key.Base, key.Quote,
		q.Price, q.FeeRate, q.LiquidityUSD, q.GasEstimateUSD, q.IsFallback, q.Timestamp)
	if err != nil {
		return unavailable("append quote", err)
	}
	return nil
}

func (s *Store) SourceFlags(ctx context.Context) (map[string]bool, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	var rows []flagRow
	if err := s.db.SelectContext(ctx, &rows, `SELECT slug, enabled FROM source_flags`); err != nil {
		return nil, unavailable("source flags", err)
	}
	flags := make(map[string]bool, len(rows))
	for _, r := range rows {
		flags[r.Slug] = r.Enabled
	}
	return flags, nil
}

func (s *Store) SetSourceFlag(ctx context.Context, slug string, enabled bool) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	query := `
		INSERT INTO source_flags (slug, enabled, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (slug) DO UPDATE SET enabled = EXCLUDED.enabled, updated_at = NOW()`

	if _, err := s.db.ExecContext(ctx, query, slug, enabled); err != nil {
		return unavailable("set source flag", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

func unavailable(op string, err error) error {
	return apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err), apperror.WithContext("postgres "+op))
}
