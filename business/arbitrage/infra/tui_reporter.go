package infra

import (
	"context"
	"sort"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/fd1az/dex-arbitrage-engine/business/arbitrage/app"
	"github.com/fd1az/dex-arbitrage-engine/pkg/ui"
	"github.com/fd1az/dex-arbitrage-engine/pkg/ui/components"
	"github.com/shopspring/decimal"
)

var _ app.Reporter = (*TUIReporter)(nil)

// TUIReporter implements Reporter for the Bubble Tea dashboard.
type TUIReporter struct {
	send func(tea.Msg)
}

// NewTUIReporter creates a reporter that forwards to the running program.
func NewTUIReporter() *TUIReporter {
	return &TUIReporter{send: ui.Send}
}

// Start is a no-op; the program is started by main.
func (r *TUIReporter) Start(ctx context.Context) error {
	return nil
}

// Report sends a scan to the TUI.
func (r *TUIReporter) Report(result *app.ScanResult) {
	if result == nil {
		return
	}
	if result.BlockNumber > 0 {
		r.send(ui.BlockMsg{Number: result.BlockNumber, Timestamp: result.ScannedAt})
	}
	r.send(ScanResultMsg(result))
}

// UpdateSources sends the source panel rows.
func (r *TUIReporter) UpdateSources(sources []app.SourceStatus) {
	r.send(SourcesMsg(sources))
}

// UpdateConnectionStatus sends connection status to the TUI.
func (r *TUIReporter) UpdateConnectionStatus(name string, connected bool, latency time.Duration) {
	r.send(ui.ConnectionStatusMsg{Name: name, Connected: connected, Latency: latency})
}

// Stop is a no-op; the program exits on its own quit key or context cancel.
func (r *TUIReporter) Stop() error {
	return nil
}

// ScanResultMsg formats a scan for the dashboard. Quotes are ordered by
// price, opportunities keep their best-first order.
func ScanResultMsg(result *app.ScanResult) ui.ScanResultMsg {
	msg := ui.ScanResultMsg{
		Pair:        result.Pair,
		Network:     result.Network,
		BlockNumber: result.BlockNumber,
		Message:     result.Message,
		Duration:    result.Duration,
		Quotes:      make([]components.QuoteRow, 0, len(result.Quotes)),
	}

	for slug, q := range result.Quotes {
		msg.Quotes = append(msg.Quotes, components.QuoteRow{
			Source:       slug,
			Price:        q.Price,
			FeePercent:   q.FeeRate.Mul(decimal.NewFromInt(100)),
			LiquidityUSD: q.LiquidityUSD,
			GasUSD:       q.GasEstimateUSD,
			Fallback:     q.IsFallback,
		})
	}
	sort.Slice(msg.Quotes, func(i, j int) bool {
		if msg.Quotes[i].Price.Equal(msg.Quotes[j].Price) {
			return msg.Quotes[i].Source < msg.Quotes[j].Source
		}
		return msg.Quotes[i].Price.LessThan(msg.Quotes[j].Price)
	})

	for _, o := range result.Opportunities {
		msg.Opportunities = append(msg.Opportunities, components.OpportunityRow{
			Time:        o.Timestamp.Format("15:04:05"),
			BlockNumber: result.BlockNumber,
			Pair:        o.TokenPair,
			Route:       o.BuySource + " → " + o.SellSource,
			DiffPercent: o.PriceDifferencePercent,
			NetProfit:   o.NetProfit,
			NetPercent:  o.NetProfitPercent,
			Fallback:    o.UsesFallback,
		})
	}
	return msg
}

// SourcesMsg formats source statuses for the dashboard.
func SourcesMsg(sources []app.SourceStatus) ui.SourcesMsg {
	rows := make([]components.SourceRow, 0, len(sources))
	for _, s := range sources {
		chains := make([]string, 0, len(s.ChainIDs))
		for _, id := range s.ChainIDs {
			chains = append(chains, chainLabel(id))
		}
		rows = append(rows, components.SourceRow{
			Slug:    s.Slug,
			Name:    s.Name,
			Kind:    s.Kind,
			Chains:  strings.Join(chains, ","),
			Enabled: s.Enabled,
			Breaker: s.Breaker,
		})
	}
	return ui.SourcesMsg{Sources: rows}
}
