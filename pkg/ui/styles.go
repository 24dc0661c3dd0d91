package ui

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dex-arbitrage-engine/pkg/ui/components"
)

// Dashboard chrome. Panel text styles live in components.
var (
	BoxStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(components.ColorBorder).
			Padding(0, 1)

	TitleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("#FFFFFF")).
			Background(components.ColorAccent).
			Padding(0, 2)

	HelpStyle = components.DimStyle.Padding(0, 1)

	sourceUp   = components.ProfitStyle.Bold(true)
	sourceDown = components.LossStyle
	mutedText  = components.DimStyle
)
