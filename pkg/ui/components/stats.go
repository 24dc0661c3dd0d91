package components

import (
	"fmt"
	"time"
)

// Stats holds running totals for display.
type Stats struct {
	Scans         int64
	Opportunities int64
	Fallbacks     int64
	Errors        int64
	LastLatency   time.Duration
	totalLatency  time.Duration
}

// Observe folds one scan into the totals.
func (s *Stats) Observe(opportunities, fallbacks int, latency time.Duration) {
	s.Scans++
	s.Opportunities += int64(opportunities)
	s.Fallbacks += int64(fallbacks)
	s.LastLatency = latency
	s.totalLatency += latency
}

// AvgLatency is the mean scan latency.
func (s Stats) AvgLatency() time.Duration {
	if s.Scans == 0 {
		return 0
	}
	return s.totalLatency / time.Duration(s.Scans)
}

// StatsComponent renders statistics.
type StatsComponent struct {
	stats Stats
}

// NewStatsComponent creates a new stats component.
func NewStatsComponent() *StatsComponent {
	return &StatsComponent{}
}

// Update replaces the statistics.
func (s *StatsComponent) Update(stats Stats) {
	s.stats = stats
}

// View renders the stats component.
func (s *StatsComponent) View() string {
	errorsDisplay := ValueStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	if s.stats.Errors > 0 {
		errorsDisplay = LossStyle.Render(fmt.Sprintf("%d", s.stats.Errors))
	}

	return DimStyle.Render("STATS") + "\n" +
		fmt.Sprintf("Scans: %s  │  Opportunities: %s  │  Fallback quotes: %s  │  Avg latency: %s  │  Errors: %s",
			ValueStyle.Render(fmt.Sprintf("%d", s.stats.Scans)),
			ValueStyle.Render(fmt.Sprintf("%d", s.stats.Opportunities)),
			ValueStyle.Render(fmt.Sprintf("%d", s.stats.Fallbacks)),
			ValueStyle.Render(fmt.Sprintf("%dms", s.stats.AvgLatency().Milliseconds())),
			errorsDisplay,
		)
}
