package asset

import "fmt"

// Asset is a token descriptor. Identity is the AssetID.
type Asset struct {
	id       AssetID
	symbol   string
	name     string
	decimals uint8
}

// NewAsset creates a token descriptor.
func NewAsset(id AssetID, symbol, name string, decimals uint8) (*Asset, error) {
	if id.IsZero() {
		return nil, fmt.Errorf("asset: empty id for %q", symbol)
	}
	if symbol == "" {
		return nil, fmt.Errorf("asset: empty symbol for %s", id)
	}
	if decimals > 36 {
		return nil, fmt.Errorf("asset: suspicious decimals %d for %s", decimals, symbol)
	}
	return &Asset{id: id, symbol: symbol, name: name, decimals: decimals}, nil
}

// MustToken builds a descriptor from literals; it panics on invalid input.
func MustToken(chainID uint64, address, symbol, name string, decimals uint8) *Asset {
	a, err := NewAsset(MustAssetID(chainID, address), symbol, name, decimals)
	if err != nil {
		panic(err)
	}
	return a
}

func (a *Asset) ID() AssetID { return a.id }
func (a *Asset) Symbol() string { return a.symbol }
func (a *Asset) Decimals() uint8 { return a.decimals }
func (a *Asset) ChainID() uint64 { return a.id.chainID }
func (a *Asset) Address() string { return a.id.address }
func (a *Asset) Family() Family { return a.id.Family() }
func (a *Asset) String() string { return a.symbol }

// Name returns the human-readable name, falling back to the symbol.
func (a *Asset) Name() string {
	if a.name == "" {
		return a.symbol
	}
	return a.name
}

// Equals compares two Assets by their ID.
func (a *Asset) Equals(other *Asset) bool {
	if a == nil || other == nil {
		return a == other
	}
	return a.id == other.id
}

// PairLabel formats base/quote as "BASE/QUOTE".
func PairLabel(base, quote *Asset) string {
	return base.symbol + "/" + quote.symbol
}
