package components

import "github.com/charmbracelet/lipgloss"

// Palette shared by every dashboard panel.
var (
	ColorAccent   = lipgloss.Color("#7C3AED")
	ColorProfit   = lipgloss.Color("#10B981")
	ColorLoss     = lipgloss.Color("#EF4444")
	ColorFallback = lipgloss.Color("#F59E0B")
	ColorDim      = lipgloss.Color("#6B7280")
	ColorBorder   = lipgloss.Color("#374151")
)

var (
	HeaderStyle   = lipgloss.NewStyle().Bold(true).Foreground(ColorAccent)
	ProfitStyle   = lipgloss.NewStyle().Foreground(ColorProfit)
	LossStyle     = lipgloss.NewStyle().Foreground(ColorLoss).Bold(true)
	FallbackStyle = lipgloss.NewStyle().Foreground(ColorFallback)
	DimStyle      = lipgloss.NewStyle().Foreground(ColorDim)
	ValueStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#FFFFFF")).Bold(true)
)
