// Package memory is an in-process QuoteStore bounded by an LRU.
package memory

import (
	"context"
	"fmt"
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fd1az/dex-arbitrage-engine/business/pricing/app"
	"github.com/fd1az/dex-arbitrage-engine/business/pricing/domain"
)

// DefaultSize is the number of pair/source keys kept when none is configured.
const DefaultSize = 4096

var _ app.QuoteStore = (*Store)(nil)

// Store keeps the latest quote per key. The least recently written keys are
// evicted first. Source flags are never evicted.
type Store struct {
	quotes *lru.Cache[domain.QuoteKey, domain.Quote]

	mu    sync.RWMutex
	flags map[string]bool
}

// New creates a store holding up to size keys.
func New(size int) (*Store, error) {
	if size <= 0 {
		size = DefaultSize
	}
	c, err := lru.New[domain.QuoteKey, domain.Quote](size)
	if err != nil {
		return nil, fmt.Errorf("memory store: %w", err)
	}
	return &Store{quotes: c, flags: make(map[string]bool)}, nil
}

func (s *Store) LatestQuote(_ context.Context, key domain.QuoteKey) (domain.Quote, bool, error) {
	q, ok := s.quotes.Get(key)
	return q, ok, nil
}

func (s *Store) AppendQuote(_ context.Context, key domain.QuoteKey, q domain.Quote) error {
	s.quotes.Add(key, q)
	return nil
}

func (s *Store) SourceFlags(_ context.Context) (map[string]bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]bool, len(s.flags))
	for k, v := range s.flags {
		out[k] = v
	}
	return out, nil
}

func (s *Store) SetSourceFlag(_ context.Context, slug string, enabled bool) error {
	s.mu.Lock()
	s.flags[slug] = enabled
	s.mu.Unlock()
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

// Len returns the number of stored keys.
func (s *Store) Len() int {
	return s.quotes.Len()
}
