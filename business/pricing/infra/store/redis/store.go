// Package redis is a QuoteStore backed by Redis. It keeps the latest quote
// per key with a TTL and the source flags in one hash.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	goredis "github.com/go-redis/redis/v8"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/config"
)

const defaultPrefix = "dexarb"

var _ app.QuoteStore = (*Store)(nil)

// Store implements app.QuoteStore on Redis.
type Store struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// Open connects to Redis and verifies the connection.
func Open(ctx context.Context, cfg config.RedisConfig) (*Store, error) {
	rdb := goredis.NewClient(&goredis.Options{
		Addr:         cfg.Addr,
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     10,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, apperror.New(apperror.CodeStoreUnavailable,
			apperror.WithCause(err), apperror.WithContext("redis "+cfg.Addr))
	}
	return New(rdb, cfg.Prefix, cfg.TTL), nil
}

// New wraps an existing client. A zero ttl keeps quotes forever.
func New(client *goredis.Client, prefix string, ttl time.Duration) *Store {
	if prefix == "" {
		prefix = defaultPrefix
	}
	return &Store{client: client, prefix: prefix, ttl: ttl}
}

func (s *Store) quoteKey(k domain.QuoteKey) string {
	return s.prefix + ":quote:" + k.String()
}

func (s *Store) flagsKey() string {
	return s.prefix + ":sources"
}

func (s *Store) LatestQuote(ctx context.Context, key domain.QuoteKey) (domain.Quote, bool, error) {
	val, err := s.client.Get(ctx, s.quoteKey(key)).Result()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return domain.Quote{}, false, nil
		}
		return domain.Quote{}, false, unavailable("get quote", err)
	}

	var q domain.Quote
	if err := json.Unmarshal([]byte(val), &q); err != nil {
		return domain.Quote{}, false, apperror.New(apperror.CodeStoreCorrupt,
			apperror.WithCause(err), apperror.WithContext(key.String()))
	}
	return q, true, nil
}

func (s *Store) AppendQuote(ctx context.Context, key domain.QuoteKey, q domain.Quote) error {
	payload, err := json.Marshal(q)
	if err != nil {
		return fmt.Errorf("encode quote: %w", err)
	}
	if err := s.client.Set(ctx, s.quoteKey(key), string(payload), s.ttl).Err(); err != nil {
		return unavailable("set quote", err)
	}
	return nil
}

func (s *Store) SourceFlags(ctx context.Context) (map[string]bool, error) {
	raw, err := s.client.HGetAll(ctx, s.flagsKey()).Result()
	if err != nil {
		return nil, unavailable("read source flags", err)
	}
	flags := make(map[string]bool, len(raw))
	for slug, v := range raw {
		flags[slug] = v == "1"
	}
	return flags, nil
}

func (s *Store) SetSourceFlag(ctx context.Context, slug string, enabled bool) error {
	v := "0"
	if enabled {
		v = "1"
	}
	if err := s.client.HSet(ctx, s.flagsKey(), slug, v).Err(); err != nil {
		return unavailable("write source flag", err)
	}
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.client.Ping(ctx).Err(); err != nil {
		return unavailable("ping", err)
	}
	return nil
}

// Close releases the connection pool.
func (s *Store) Close() error {
	return s.client.Close()
}

func unavailable(op string, err error) error {
	return apperror.New(apperror.CodeStoreUnavailable, apperror.WithCause(err), apperror.WithContext("redis "+op))
}
