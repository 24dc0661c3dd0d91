package asset

import (
	"strconv"
	"strings"
)

// Chain IDs. Solana has no EVM chain id; the LI.FI convention is used.
const (
	ChainIDEthereum uint64 = 1
	ChainIDOptimism uint64 = 10
	ChainIDBSC      uint64 = 56
	ChainIDPolygon  uint64 = 137
	ChainIDBase     uint64 = 8453
	ChainIDArbitrum uint64 = 42161
	ChainIDSolana   uint64 = 1151111081099710
)

// Family groups chains that share an address format and execution model.
type Family string

const (
	FamilyEVM    Family = "evm"
	FamilySolana Family = "solana"
)

// FamilyOf returns the family of chainID. Unknown ids are treated as EVM.
func FamilyOf(chainID uint64) Family {
	if chainID == ChainIDSolana {
		return FamilySolana
	}
	return FamilyEVM
}

var chainNames = map[uint64]string{
	ChainIDEthereum: "ethereum",
	ChainIDOptimism: "optimism",
	ChainIDBSC:      "bsc",
	ChainIDPolygon:  "polygon",
	ChainIDBase:     "base",
	ChainIDArbitrum: "arbitrum",
	ChainIDSolana:   "solana",
}

// ChainName returns a lowercase network name, or the numeric id when unknown.
func ChainName(chainID uint64) string {
	if n, ok := chainNames[chainID]; ok {
		return n
	}
	return strconv.FormatUint(chainID, 10)
}

// ParseChain accepts either a numeric chain id or a known network name.
func ParseChain(s string) (uint64, bool) {
	s = strings.ToLower(strings.TrimSpace(s))
	if id, err := strconv.ParseUint(s, 10, 64); err == nil {
		return id, true
	}
	for id, name := range chainNames {
		if name == s {
			return id, true
		}
	}
	if s == "mainnet" || s == "eth" {
		return ChainIDEthereum, true
	}
	return 0, false
}
