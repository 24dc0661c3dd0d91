package asset

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
)

// Registry resolves token descriptors by id, symbol or address.
type Registry struct {
	mu       sync.RWMutex
	byID     map[AssetID]*Asset
	bySymbol map[string][]*Asset // upper-cased symbol, one per chain
}

// NewRegistry creates a new empty registry.
func NewRegistry() *Registry {
	return &Registry{
		byID:     make(map[AssetID]*Asset),
		bySymbol: make(map[string][]*Asset),
	}
}

// Register adds a token. A token already registered under the same id is
// replaced, which lets configuration override built-in metadata.
func (r *Registry) Register(a *Asset) error {
	if a == nil {
		return ErrNilAsset
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	sym := strings.ToUpper(a.symbol)
	if old, ok := r.byID[a.id]; ok {
		r.removeSymbolLocked(old)
	}
	for _, other := range r.bySymbol[sym] {
		if other.ChainID() == a.ChainID() && other.id != a.id {
			return fmt.Errorf("asset: symbol %s already bound to %s", a.symbol, other.id)
		}
	}

	r.byID[a.id] = a
	r.bySymbol[sym] = append(r.bySymbol[sym], a)
	return nil
}

func (r *Registry) removeSymbolLocked(a *Asset) {
	sym := strings.ToUpper(a.symbol)
	list := r.bySymbol[sym]
	for i, x := range list {
		if x.id == a.id {
			r.bySymbol[sym] = append(list[:i:i], list[i+1:]...)
			return
		}
	}
}

// Get retrieves a token by id.
func (r *Registry) Get(id AssetID) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.byID[id]
	return a, ok
}

// GetBySymbolAndChain retrieves a token by case-insensitive symbol and chain.
func (r *Registry) GetBySymbolAndChain(symbol string, chainID uint64) (*Asset, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.bySymbol[strings.ToUpper(symbol)] {
		if a.ChainID() == chainID {
			return a, true
		}
	}
	return nil, false
}

// Resolve looks up ref on chainID, where ref is a symbol or an address.
func (r *Registry) Resolve(ref string, chainID uint64) (*Asset, error) {
	ref = strings.TrimSpace(ref)
	if a, ok := r.GetBySymbolAndChain(ref, chainID); ok {
		return a, nil
	}
	if id, err := NewAssetID(chainID, ref); err == nil {
		if a, ok := r.Get(id); ok {
			return a, nil
		}
	}
	return nil, apperror.NotFound(apperror.CodeTokenNotFound, fmt.Sprintf("%s on %s", ref, ChainName(chainID)))
}

// ResolvePair parses "BASE/QUOTE@CHAIN" and resolves both tokens.
func (r *Registry) ResolvePair(spec string) (base, quote *Asset, err error) {
	pair, chain, ok := strings.Cut(spec, "@")
	if !ok {
		return nil, nil, apperror.Validation(apperror.CodeInvalidPairFormat, spec)
	}
	b, q, ok := strings.Cut(pair, "/")
	if !ok || b == "" || q == "" {
		return nil, nil, apperror.Validation(apperror.CodeInvalidPairFormat, spec)
	}
	chainID, ok := ParseChain(chain)
	if !ok {
		return nil, nil, apperror.Validation(apperror.CodeChainUnsupported, chain)
	}

	if base, err = r.Resolve(b, chainID); err != nil {
		return nil, nil, err
	}
	if quote, err = r.Resolve(q, chainID); err != nil {
		return nil, nil, err
	}
	return base, quote, nil
}

// All returns every registered token ordered by chain then symbol.
func (r *Registry) All() []*Asset {
	r.mu.RLock()
	result := make([]*Asset, 0, len(r.byID))
	for _, a := range r.byID {
		result = append(result, a)
	}
	r.mu.RUnlock()

	sort.Slice(result, func(i, j int) bool {
		if result[i].ChainID() != result[j].ChainID() {
			return result[i].ChainID() < result[j].ChainID()
		}
		return result[i].symbol < result[j].symbol
	})
	return result
}

// Count returns the number of registered tokens.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byID)
}
