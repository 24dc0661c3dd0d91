package domain

import (
	"math/big"
	"time"

	"github.com/shopspring/decimal"
)

var weiPerGwei = decimal.New(1, 9)

// GasPrice is a chain's suggested gas price at a point in time.
type GasPrice struct {
	ChainID   uint64
	Wei       *big.Int
	Timestamp time.Time
}

// NewGasPrice creates a GasPrice from wei.
func NewGasPrice(chainID uint64, wei *big.Int, at time.Time) GasPrice {
	return GasPrice{ChainID: chainID, Wei: new(big.Int).Set(wei), Timestamp: at}
}

// Gwei returns the price in gwei.
func (g GasPrice) Gwei() decimal.Decimal {
	if g.Wei == nil {
		return decimal.Zero
	}
	return decimal.NewFromBigInt(g.Wei, 0).Div(weiPerGwei)
}
