// Package asset models tokens across EVM and Solana chains.
// A token's identity is its (chain, address) pair; the symbol is display only.
package asset

import (
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"
)

// AssetID uniquely identifies a token by chain and address.
// EVM addresses are stored checksummed, Solana mints as base58.
type AssetID struct {
	chainID uint64
	address string
}

// NewAssetID validates address for the chain's family and returns its id.
func NewAssetID(chainID uint64, address string) (AssetID, error) {
	address = strings.TrimSpace(address)

	switch FamilyOf(chainID) {
	case FamilySolana:
		raw, err := base58.Decode(address)
		if err != nil || len(raw) != 32 {
			return AssetID{}, fmt.Errorf("asset: invalid solana mint %q", address)
		}
	default:
		if !common.IsHexAddress(address) {
			return AssetID{}, fmt.Errorf("asset: invalid evm address %q", address)
		}
		addr := common.HexToAddress(address)
		if addr == (common.Address{}) {
			return AssetID{}, fmt.Errorf("asset: zero address on chain %d", chainID)
		}
		address = addr.Hex()
	}

	return AssetID{chainID: chainID, address: address}, nil
}

// MustAssetID is NewAssetID for static tables.
func MustAssetID(chainID uint64, address string) AssetID {
	id, err := NewAssetID(chainID, address)
	if err != nil {
		panic(err)
	}
	return id
}

// ChainID returns the chain ID.
func (id AssetID) ChainID() uint64 {
	return id.chainID
}

// Address returns the normalised address.
func (id AssetID) Address() string {
	return id.address
}

// EVMAddress returns the address as a go-ethereum type. It is the zero
// address for non-EVM ids.
func (id AssetID) EVMAddress() common.Address {
	if FamilyOf(id.chainID) != FamilyEVM {
		return common.Address{}
	}
	return common.HexToAddress(id.address)
}

// Family returns the chain family of the id.
func (id AssetID) Family() Family {
	return FamilyOf(id.chainID)
}

// IsZero reports whether id is unset.
func (id AssetID) IsZero() bool {
	return id.address == ""
}

func (id AssetID) String() string {
	return fmt.Sprintf("%s:%s", ChainName(id.chainID), id.address)
}

// Equals compares two AssetIDs for equality.
func (id AssetID) Equals(other AssetID) bool {
	return id == other
}
