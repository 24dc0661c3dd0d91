package components

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// OpportunityRow represents an opportunity in the list.
type OpportunityRow struct {
	Time        string
	BlockNumber uint64
	Pair        string
	Route       string
	DiffPercent decimal.Decimal
	NetProfit   decimal.Decimal
	NetPercent  decimal.Decimal
	Fallback    bool
}

// OpportunitiesComponent renders the most recent opportunities, newest first.
type OpportunitiesComponent struct {
	rows    []OpportunityRow
	maxRows int
	visible int
	offset  int
}

// NewOpportunitiesComponent keeps up to maxRows rows and shows visible of them.
func NewOpportunitiesComponent(maxRows, visible int) *OpportunitiesComponent {
	return &OpportunitiesComponent{
		rows:    make([]OpportunityRow, 0, maxRows),
		maxRows: maxRows,
		visible: visible,
	}
}

// Add prepends a row.
func (o *OpportunitiesComponent) Add(row OpportunityRow) {
	o.rows = append([]OpportunityRow{row}, o.rows...)
	if len(o.rows) > o.maxRows {
		o.rows = o.rows[:o.maxRows]
	}
}

// Clear clears all opportunities.
func (o *OpportunitiesComponent) Clear() {
	o.rows = o.rows[:0]
	o.offset = 0
}

// Len returns the number of stored rows.
func (o *OpportunitiesComponent) Len() int {
	return len(o.rows)
}

// Offset returns the scroll position.
func (o *OpportunitiesComponent) Offset() int {
	return o.offset
}

// ScrollUp moves towards newer rows.
func (o *OpportunitiesComponent) ScrollUp() {
	if o.offset > 0 {
		o.offset--
	}
}

// ScrollDown moves towards older rows.
func (o *OpportunitiesComponent) ScrollDown() {
	if o.offset < len(o.rows)-o.visible {
		o.offset++
	}
}

// View renders the opportunities component.
func (o *OpportunitiesComponent) View() string {
	if len(o.rows) == 0 {
		return HeaderStyle.Render("OPPORTUNITIES") + "\n\nNo opportunities detected yet..."
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("OPPORTUNITIES (%d)", len(o.rows))))
	sb.WriteString("\n\n")
	sb.WriteString(fmt.Sprintf("  %-8s  %-10s  %-28s  %7s  %10s  %7s\n", "Time", "Pair", "Route", "Diff", "Net", "Net%"))
	sb.WriteString(DimStyle.Render("  "+strings.Repeat("─", 80)) + "\n")

	end := o.offset + o.visible
	if end > len(o.rows) {
		end = len(o.rows)
	}
	for _, r := range o.rows[o.offset:end] {
		line := fmt.Sprintf("  %-8s  %-10s  %-28s  %6s%%  %10s  %6s%%",
			r.Time,
			truncate(r.Pair, 10),
			truncate(r.Route, 28),
			r.DiffPercent.StringFixed(2),
			r.NetProfit.StringFixed(2),
			r.NetPercent.StringFixed(2),
		)
		if r.Fallback {
			sb.WriteString(FallbackStyle.Render(line+" ~") + "\n")
		} else {
			sb.WriteString(ProfitStyle.Render(line) + "\n")
		}
	}

	if len(o.rows) > o.visible {
		sb.WriteString(DimStyle.Render(fmt.Sprintf("  showing %d-%d of %d", o.offset+1, end, len(o.rows))))
		sb.WriteString("\n")
	}
	return sb.String()
}
