// Package components provides reusable TUI components.
package components

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// QuoteRow is one source's latest price for the displayed pair.
type QuoteRow struct {
	Source       string
	Price        decimal.Decimal
	FeePercent   decimal.Decimal
	LiquidityUSD decimal.Decimal
	GasUSD       decimal.Decimal
	Fallback     bool
}

// QuotesComponent renders the per-source price table of the latest scan.
type QuotesComponent struct {
	pair    string
	network string
	block   uint64
	rows    []QuoteRow
	message string
}

// NewQuotesComponent creates an empty quotes table.
func NewQuotesComponent() *QuotesComponent {
	return &QuotesComponent{}
}

// Update replaces the table contents.
func (q *QuotesComponent) Update(pair, network string, block uint64, rows []QuoteRow, message string) {
	q.pair = pair
	q.network = network
	q.block = block
	q.rows = rows
	q.message = message
}

// Len returns the number of quotes shown.
func (q *QuotesComponent) Len() int {
	return len(q.rows)
}

// View renders the quotes component.
func (q *QuotesComponent) View() string {
	if q.pair == "" {
		return "Waiting for price data..."
	}

	var sb strings.Builder
	title := fmt.Sprintf("QUOTES %s on %s", q.pair, q.network)
	if q.block > 0 {
		title += fmt.Sprintf(" @ #%d", q.block)
	}
	sb.WriteString(HeaderStyle.Render(title))
	sb.WriteString("\n\n")

	sb.WriteString(fmt.Sprintf("  %-16s  %14s  %7s  %14s  %8s\n", "Source", "Price", "Fee", "Liquidity", "Gas"))
	sb.WriteString(DimStyle.Render("  "+strings.Repeat("─", 67)) + "\n")

	lo, hi := q.priceRange()
	for _, r := range q.rows {
		liq := "n/a"
		if r.LiquidityUSD.IsPositive() {
			liq = "$" + humanUSD(r.LiquidityUSD)
		}
		line := fmt.Sprintf("  %-16s  %14s  %6s%%  %14s  %8s",
			truncate(r.Source, 16),
			r.Price.StringFixed(4),
			r.FeePercent.StringFixed(2),
			liq,
			"$"+r.GasUSD.StringFixed(2),
		)
		switch {
		case r.Fallback:
			line = FallbackStyle.Render(line + " ~")
		case len(q.rows) > 1 && (r.Price.Equal(lo) || r.Price.Equal(hi)):
			line = ProfitStyle.Render(line)
		}
		sb.WriteString(line + "\n")
	}

	if q.message != "" {
		sb.WriteString("\n")
		sb.WriteString(DimStyle.Render("  " + q.message))
		sb.WriteString("\n")
	}
	return sb.String()
}

func (q *QuotesComponent) priceRange() (lo, hi decimal.Decimal) {
	for i, r := range q.rows {
		if i == 0 || r.Price.LessThan(lo) {
			lo = r.Price
		}
		if i == 0 || r.Price.GreaterThan(hi) {
			hi = r.Price
		}
	}
	return lo, hi
}

func humanUSD(v decimal.Decimal) string {
	f := v.InexactFloat64()
	switch {
	case f >= 1e9:
		return fmt.Sprintf("%.2fB", f/1e9)
	case f >= 1e6:
		return fmt.Sprintf("%.2fM", f/1e6)
	case f >= 1e3:
		return fmt.Sprintf("%.1fK", f/1e3)
	default:
		return fmt.Sprintf("%.0f", f)
	}
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n-1] + "…"
}
