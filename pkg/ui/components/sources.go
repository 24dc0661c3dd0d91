package components

import (
	"fmt"
	"strings"
)

// SourceRow is one price source's status.
type SourceRow struct {
	Slug    string
	Name    string
	Kind    string
	Chains  string
	Enabled bool
	Breaker string
}

// SourcesComponent renders the source status panel.
type SourcesComponent struct {
	rows []SourceRow
}

// NewSourcesComponent creates an empty panel.
func NewSourcesComponent() *SourcesComponent {
	return &SourcesComponent{}
}

// Update replaces the rows.
func (s *SourcesComponent) Update(rows []SourceRow) {
	s.rows = rows
}

// Enabled counts enabled sources.
func (s *SourcesComponent) Enabled() int {
	n := 0
	for _, r := range s.rows {
		if r.Enabled {
			n++
		}
	}
	return n
}

// View renders the source panel.
func (s *SourcesComponent) View() string {
	if len(s.rows) == 0 {
		return HeaderStyle.Render("SOURCES") + "\n\nNo sources configured"
	}

	var sb strings.Builder
	sb.WriteString(HeaderStyle.Render(fmt.Sprintf("SOURCES (%d/%d enabled)", s.Enabled(), len(s.rows))))
	sb.WriteString("\n\n")

	for _, r := range s.rows {
		icon, style := "●", ProfitStyle
		if !r.Enabled {
			icon, style = "○", DimStyle
		}
		line := fmt.Sprintf("%s %-14s %-10s %s", icon, truncate(r.Slug, 14), r.Kind, r.Chains)
		sb.WriteString(style.Render(line))
		switch r.Breaker {
		case "open":
			sb.WriteString(" " + LossStyle.Render("breaker open"))
		case "half-open":
			sb.WriteString(" " + DimStyle.Render("half-open"))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}
