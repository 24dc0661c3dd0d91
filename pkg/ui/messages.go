// Package ui provides the Bubble Tea dashboard for the arbitrage engine.
package ui

import (
	"time"

	"github.com/fd1az/dex-arbitrage-engine/pkg/ui/components"
)

// ScanResultMsg carries one scan, already formatted for display.
type ScanResultMsg struct {
	Pair          string
	Network       string
	BlockNumber   uint64
	Quotes        []components.QuoteRow
	Opportunities []components.OpportunityRow
	Message       string
	Duration      time.Duration
}

// SourcesMsg replaces the source status panel.
type SourcesMsg struct {
	Sources []components.SourceRow
}

// ConnectionStatusMsg is sent when connection status changes.
type ConnectionStatusMsg struct {
	Name      string
	Connected bool
	Latency   time.Duration
}

// BlockMsg is sent when a new block is received.
type BlockMsg struct {
	Number    uint64
	Timestamp time.Time
}

// ErrorMsg is sent when an error occurs.
type ErrorMsg struct {
	Error error
}

// TickMsg is sent periodically for UI updates.
type TickMsg struct{}

// StartModulesMsg signals that modules should start loading.
type StartModulesMsg struct{}

// LogMsg is sent to display a log message in the UI.
type LogMsg struct {
	Level   string // "info", "warn", "error"
	Message string
}
