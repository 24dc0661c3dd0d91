// Package paper is a simulated execution layer. It checks an opportunity
// the way a live executor would before signing, then records it as a
// pending trade instead of broadcasting anything.
package paper

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/google/uuid"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/domain"
	"github.com/fd1az/dex-arbitrage-engine/internal/apperror"
	"github.com/fd1az/dex-arbitrage-engine/internal/asset"
	"github.com/fd1az/dex-arbitrage-engine/internal/logger"
)

// DefaultMaxOpportunityAge is how old an opportunity may be when handed off.
const DefaultMaxOpportunityAge = 30 * time.Second

var _ app.Executor = (*Executor)(nil)

// Config holds the executor's guard rails.
type Config struct {
	ApprovedFunding   []string
	MaxOpportunityAge time.Duration
}

// Executor implements app.Executor without touching a chain.
type Executor struct {
	approved map[string]struct{}
	maxAge   time.Duration
	log      logger.LoggerInterface
	now      func() time.Time

	mu     sync.Mutex
	trades []domain.ExecutionResult
}

// Option configures an Executor.
type Option func(*Executor)

// WithClock overrides the time source used for the age check.
func WithClock(now func() time.Time) Option {
	return func(e *Executor) { e.now = now }
}

// New creates a paper executor.
func New(cfg Config, log logger.LoggerInterface, opts ...Option) *Executor {
	e := &Executor{
		approved: make(map[string]struct{}, len(cfg.ApprovedFunding)),
		maxAge:   cfg.MaxOpportunityAge,
		log:      log,
		now:      time.Now,
	}
	if e.maxAge <= 0 {
		e.maxAge = DefaultMaxOpportunityAge
	}
	for _, addr := range cfg.ApprovedFunding {
		e.approved[normalize(addr)] = struct{}{}
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Execute validates opp and records a simulated trade. Rejections are
// reported through the result status; only malformed input is an error.
func (e *Executor) Execute(ctx context.Context, opp domain.Opportunity, fundingAddress string) (domain.ExecutionResult, error) {
	if opp.ID == "" {
		return domain.ExecutionResult{}, apperror.Validation(apperror.CodeInvalidInput, "opportunity id")
	}
	if fundingAddress == "" {
		return domain.ExecutionResult{}, apperror.Validation(apperror.CodeRequiredField, "funding address")
	}
	if asset.FamilyOf(opp.ChainID) == asset.FamilyEVM && !common.IsHexAddress(fundingAddress) {
		return domain.ExecutionResult{}, apperror.Validation(apperror.CodeInvalidInput, "funding address "+fundingAddress)
	}

	res := domain.ExecutionResult{OpportunityID: opp.ID}

	switch age := opp.Age(e.now()); {
	case opp.UsesFallback:
		res.Status = domain.ExecutionError
		res.Message = "opportunity priced from fallback data"
	case age > e.maxAge:
		res.Status = domain.ExecutionError
		res.Message = fmt.Sprintf("opportunity is %s old, limit %s", age.Truncate(time.Millisecond), e.maxAge)
	case !e.isApproved(fundingAddress):
		res.Status = domain.ExecutionNeedsApproval
		res.Message = "funding address is not approved for " + opp.Network
	default:
		res.Status = domain.ExecutionPending
		res.TxRef = "paper-" + uuid.NewString()
	}

	e.mu.Lock()
	e.trades = append(e.trades, res)
	e.mu.Unlock()

	e.log.Info(ctx, "paper execution",
		"opportunity", opp.ID,
		"pair", opp.TokenPair,
		"route", opp.BuySource+"->"+opp.SellSource,
		"status", res.Status,
		"net_profit", opp.NetProfit.StringFixed(2))

	return res, nil
}

// Trades returns every result produced so far, oldest first.
func (e *Executor) Trades() []domain.ExecutionResult {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]domain.ExecutionResult, len(e.trades))
	copy(out, e.trades)
	return out
}

func (e *Executor) isApproved(addr string) bool {
	_, ok := e.approved[normalize(addr)]
	return ok
}

func normalize(addr string) string {
	addr = strings.TrimSpace(addr)
	if common.IsHexAddress(addr) {
		return strings.ToLower(addr)
	}
	return addr
}
