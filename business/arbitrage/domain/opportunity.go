package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Opportunity is a profitable buy-low/sell-high round trip between two
// sources. It is not modified after detection.
type Opportunity struct {
	ID        string `json:"id"`
	TokenPair string `json:"tokenPair"`
	ChainID   uint64 `json:"chainId"`
	Network   string `json:"network"`

	BuySource              string          `json:"buySource"`
	SellSource             string          `json:"sellSource"`
	BuyPrice               decimal.Decimal `json:"buyPrice"`
	SellPrice              decimal.Decimal `json:"sellPrice"`
	PriceDifferencePercent decimal.Decimal `json:"priceDifferencePercent"`
	BuyImpactPercent       decimal.Decimal `json:"buyImpactPercent"`
	SellImpactPercent      decimal.Decimal `json:"sellImpactPercent"`
	// LiquidityUSD is the shallower of the two venues.
	LiquidityUSD decimal.Decimal `json:"liquidityUsd"`

	ProfitBreakdown

	InvestmentAmount decimal.Decimal `json:"investmentAmount"`
	UsesFallback     bool            `json:"usesFallback"`
	Timestamp        time.Time       `json:"timestamp"`
}

// NewOpportunityID returns a fresh random id.
func NewOpportunityID() string {
	return uuid.NewString()
}

// Age returns how long ago the opportunity was detected.
func (o Opportunity) Age(now time.Time) time.Duration {
	return now.Sub(o.Timestamp)
}
