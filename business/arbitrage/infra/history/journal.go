// Package history journals detected opportunities to Postgres.
package history

import (
	"context"
	"encoding/json"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
)

const defaultQueryTimeout = 2 * time.Second

// Schema creates the journal table.
const Schema = `
CREATE TABLE IF NOT EXISTS arbitrage_opportunities (
	id                 TEXT PRIMARY KEY,
	token_pair         TEXT        NOT NULL,
	chain_id           BIGINT      NOT NULL,
	buy_source         TEXT        NOT NULL,
	sell_source        TEXT        NOT NULL,
	net_profit         NUMERIC     NOT NULL,
	net_profit_percent NUMERIC     NOT NULL,
	uses_fallback      BOOLEAN     NOT NULL DEFAULT FALSE,
	payload            JSONB       NOT NULL,
	detected_at        TIMESTAMPTZ NOT NULL
);
CREATE INDEX IF NOT EXISTS arbitrage_opportunities_detected
	ON arbitrage_opportunities (detected_at DESC);`

var _ app.History = (*Journal)(nil)

// Journal implements app.History.
type Journal struct {
	db      *sqlx.DB
	timeout time.Duration
}

// New wraps an open pool. timeout bounds each statement.
func New(db *sqlx.DB, timeout time.Duration) *Journal {
	if timeout <= 0 {
		timeout = defaultQueryTimeout
	}
	return &Journal{db: db, timeout: timeout}
}

// Migrate creates the schema if it does not exist.
func (j *Journal) Migrate(ctx context.Context) error {
	if _, err := j.db.ExecContext(ctx, Schema); err != nil {
		return unavailable("migrate", err)
	}
	return nil
}

// Record inserts opps in one transaction. Ids already journaled are skipped.
func (j *Journal) Record(ctx context.Context, opps []domain.Opportunity) error {
	if len(opps) == 0 {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	tx, err := j.db.BeginTxx(ctx, nil)
	if err != nil {
		return unavailable("begin", err)
	}
	defer tx.Rollback() //nolint:errcheck

	query := `
		INSERT INTO arbitrage_opportunities
			(id, token_pair, chain_id, buy_source, sell_source, net_profit, net_profit_percent, uses_fallback, payload, detected_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		ON CONFLICT (id) DO NOTHING`

	for _, o := range opps {
		payload, err := json.Marshal(o)
		if err != nil {
			return apperror.Internal(apperror.CodeInternalError, "encode opportunity "+o.ID, err)
		}
		if _, err := tx.ExecContext(ctx, query,
			o.ID, o.TokenPair, int64(o.ChainID), o.BuySource, o.SellSource,
			o.NetProfit, o.NetProfitPercent, o.UsesFallback, payload, o.Timestamp); err != nil {
			return unavailable("record", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return unavailable("commit", err)
	}
	return nil
}

// Recent returns up to limit opportunities, newest first.
func (j *Journal) Recent(ctx context.Context, limit int) ([]domain.Opportunity, error) {
	ctx, cancel := context.WithTimeout(ctx, j.timeout)
	defer cancel()

	var payloads [][]byte
	err := j.db.SelectContext(ctx, &payloads, `
		SELECT payload FROM arbitrage_opportunities
		ORDER BY detected_at DESC
		LIMIT $1`, limit)
	if err != nil {
		return nil, unavailable("recent", err)
	}

	out := make([]domain.Opportunity, 0, len(payloads))
	for _, p := range payloads {
		var o domain.Opportunity
		if err := json.Unmarshal(p, &o); err != nil {
			return nil, apperror.New(apperror.CodeStoreCorrupt, apperror.WithCause(err), apperror.WithContext("arbitrage_opportunities"))
		}
		out = append(out, o)
	}
	return out, nil
}

func unavailable(op string, err error) error {
	return apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err), apperror.WithContext("history "+op))
}
