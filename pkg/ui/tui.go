package ui

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/fd1az/dex-arbitrage-engine/pkg/ui/components"
)

// ConnectionInfo holds connection state and latency.
type ConnectionInfo struct {
	Connected bool
	Latency   time.Duration
	LastSeen  time.Time
}

// Phase represents the current UI phase.
type Phase string

const (
	PhaseWelcome   Phase = "welcome"
	PhaseStartup   Phase = "startup"
	PhaseDashboard Phase = "dashboard"
)

// WelcomeDuration is how long the welcome screen shows before auto-advancing.
const WelcomeDuration = 2 * time.Second

const (
	maxErrors   = 3
	maxActivity = 6
)

// ErrorEntry represents an error with timestamp.
type ErrorEntry struct {
	Message   string
	Timestamp time.Time
}

// Model is the main Bubble Tea model for the TUI.
type Model struct {
	quotes        *components.QuotesComponent
	opportunities *components.OpportunitiesComponent
	sources       *components.SourcesComponent
	stats         *components.StatsComponent
	keys          KeyMap
	help          help.Model

	phase        Phase
	welcomeStart time.Time
	startupTime  time.Time

	quitting        bool
	paused          bool
	showSources     bool
	width           int
	height          int
	currentBlock    uint64
	connectionState map[string]*ConnectionInfo
	lastUpdate      time.Time
	lastScanTime    time.Time
	errors          []ErrorEntry
	activityFeed    []string
	totals          components.Stats
}

// New creates a new TUI model.
func New() Model {
	now := time.Now()
	return Model{
		quotes:          components.NewQuotesComponent(),
		opportunities:   components.NewOpportunitiesComponent(100, 10),
		sources:         components.NewSourcesComponent(),
		stats:           components.NewStatsComponent(),
		keys:            DefaultKeyMap(),
		help:            help.New(),
		phase:           PhaseWelcome,
		welcomeStart:    now,
		startupTime:     now,
		showSources:     true,
		connectionState: make(map[string]*ConnectionInfo),
		errors:          make([]ErrorEntry, 0, maxErrors),
		activityFeed:    make([]string, 0, maxActivity),
	}
}

// Init initializes the TUI model.
func (m Model) Init() tea.Cmd {
	return tickCmd()
}

func tickCmd() tea.Cmd {
	return tea.Tick(100*time.Millisecond, func(time.Time) tea.Msg {
		return TickMsg{}
	})
}

func (m *Model) enterStartup() {
	m.phase = PhaseStartup
	m.startupTime = time.Now()
	// Update must not block on Send, so the callback runs on its own goroutine.
	if OnStartModules != nil {
		go OnStartModules()
	}
}

// Update handles messages and updates the model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		if key.Matches(msg, m.keys.Quit) {
			m.quitting = true
			return m, tea.Quit
		}
		if m.phase == PhaseWelcome {
			m.enterStartup()
			return m, tickCmd()
		}
		switch {
		case key.Matches(msg, m.keys.Clear):
			m.opportunities.Clear()
		case key.Matches(msg, m.keys.Pause):
			m.paused = !m.paused
		case key.Matches(msg, m.keys.Up):
			m.opportunities.ScrollUp()
		case key.Matches(msg, m.keys.Down):
			m.opportunities.ScrollDown()
		case key.Matches(msg, m.keys.Errors):
			m.errors = m.errors[:0]
		case key.Matches(msg, m.keys.Sources):
			m.showSources = !m.showSources
		case key.Matches(msg, m.keys.Help):
			m.help.ShowAll = !m.help.ShowAll
		}
		return m, nil

	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width

	case TickMsg:
		if m.phase == PhaseWelcome && time.Since(m.welcomeStart) >= WelcomeDuration {
			m.enterStartup()
		}
		return m, tickCmd()

	case ScanResultMsg:
		m.applyScan(msg)

	case SourcesMsg:
		m.sources.Update(msg.Sources)
		m.lastUpdate = time.Now()

	case ConnectionStatusMsg:
		m.connectionState[msg.Name] = &ConnectionInfo{
			Connected: msg.Connected,
			Latency:   msg.Latency,
			LastSeen:  time.Now(),
		}
		if !msg.Connected {
			m.totals.Errors++
			m.stats.Update(m.totals)
		}
		m.lastUpdate = time.Now()

	case BlockMsg:
		m.currentBlock = msg.Number
		m.activityFeed = addActivity(m.activityFeed, fmt.Sprintf("Block #%d received", msg.Number))
		m.lastUpdate = time.Now()

	case ErrorMsg:
		m.errors = append(m.errors, ErrorEntry{Message: msg.Error.Error(), Timestamp: time.Now()})
		if len(m.errors) > maxErrors {
			m.errors = m.errors[len(m.errors)-maxErrors:]
		}

	case LogMsg:
		m.activityFeed = addActivity(m.activityFeed, msg.Level+": "+msg.Message)
	}

	return m, nil
}

func (m *Model) applyScan(msg ScanResultMsg) {
	fallbacks := 0
	for _, q := range msg.Quotes {
		if q.Fallback {
			fallbacks++
		}
	}
	m.totals.Observe(len(msg.Opportunities), fallbacks, msg.Duration)
	m.stats.Update(m.totals)

	if msg.BlockNumber > m.currentBlock {
		m.currentBlock = msg.BlockNumber
	}
	m.lastScanTime = time.Now()
	m.lastUpdate = m.lastScanTime
	if m.phase == PhaseStartup {
		m.phase = PhaseDashboard
	}

	if m.paused {
		return
	}

	m.quotes.Update(msg.Pair, msg.Network, msg.BlockNumber, msg.Quotes, msg.Message)
	// Rows arrive best first; adding in reverse keeps the best on top.
	for i := len(msg.Opportunities) - 1; i >= 0; i-- {
		m.opportunities.Add(msg.Opportunities[i])
	}

	activity := fmt.Sprintf("%s: %d quotes, %d opportunities in %dms",
		msg.Pair, len(msg.Quotes), len(msg.Opportunities), msg.Duration.Milliseconds())
	m.activityFeed = addActivity(m.activityFeed, activity)
}

func addActivity(feed []string, message string) []string {
	line := fmt.Sprintf("[%s] %s", time.Now().Format("15:04:05"), message)
	feed = append(feed, line)
	if len(feed) > maxActivity {
		feed = feed[len(feed)-maxActivity:]
	}
	return feed
}

// Phase returns the current phase.
func (m Model) Phase() Phase {
	return m.phase
}

// Paused reports whether display updates are paused.
func (m Model) Paused() bool {
	return m.paused
}

// Totals returns the running scan statistics.
func (m Model) Totals() components.Stats {
	return m.totals
}

// View renders the TUI.
func (m Model) View() string {
	if m.quitting {
		return "\n  Goodbye!\n\n"
	}

	switch m.phase {
	case PhaseWelcome:
		return m.renderWelcomeScreen()
	case PhaseStartup:
		return m.renderStartupScreen()
	}

	var b strings.Builder

	b.WriteString(TitleStyle.Render(" DEX Arbitrage Engine "))
	b.WriteString("\n\n")
	b.WriteString(m.renderStatusBar())
	b.WriteString("\n\n")

	left := m.quotes.View()
	if m.showSources {
		left += "\n" + m.sources.View()
	}
	right := m.renderActivityFeed() + "\n\n" + m.opportunities.View()

	if m.width > 120 {
		l := BoxStyle.Width(m.width/2 - 2).Render(left)
		r := BoxStyle.Width(m.width/2 - 2).Render(right)
		b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, l, r))
	} else {
		w := m.width - 4
		if w < 40 {
			w = 80
		}
		b.WriteString(BoxStyle.Width(w).Render(left))
		b.WriteString("\n")
		b.WriteString(BoxStyle.Width(w).Render(right))
	}
	b.WriteString("\n\n")
	b.WriteString(m.stats.View())
	b.WriteString("\n\n")

	if len(m.errors) > 0 {
		errorStyle := lipgloss.NewStyle().Foreground(components.ColorLoss)
		errorHeader := lipgloss.NewStyle().Bold(true).Foreground(components.ColorLoss)

		b.WriteString(errorHeader.Render("ERRORS"))
		b.WriteString(mutedText.Render(" (e: clear)"))
		b.WriteString("\n")
		for _, e := range m.errors {
			ago := time.Since(e.Timestamp).Round(time.Second)
			b.WriteString(errorStyle.Render(fmt.Sprintf("  • %s ", e.Message)))
			b.WriteString(mutedText.Render(fmt.Sprintf("(%s ago)", ago)))
			b.WriteString("\n")
		}
		b.WriteString("\n")
	}

	if m.paused {
		b.WriteString(lipgloss.NewStyle().Bold(true).Foreground(components.ColorFallback).Render("⏸ PAUSED"))
		b.WriteString(" • ")
	}
	b.WriteString(HelpStyle.Render(m.help.View(m.keys)))

	return b.String()
}

func (m Model) renderActivityFeed() string {
	headerStyle := lipgloss.NewStyle().Bold(true).Foreground(components.ColorAccent)
	blockStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("#60A5FA"))

	var sb strings.Builder
	sb.WriteString(headerStyle.Render("LIVE ACTIVITY"))
	sb.WriteString("\n\n")

	if len(m.activityFeed) == 0 {
		sb.WriteString(mutedText.Render("  Waiting for the first scan..."))
		return sb.String()
	}
	for _, activity := range m.activityFeed {
		if strings.Contains(activity, "Block #") {
			sb.WriteString(blockStyle.Render("  " + activity))
		} else {
			sb.WriteString(mutedText.Render("  " + activity))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func (m Model) renderWelcomeScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(components.ColorAccent)
	greenStyle := lipgloss.NewStyle().Foreground(components.ColorProfit)

	dots := strings.Repeat(".", int(time.Since(m.welcomeStart).Milliseconds()/300)%4)

	logo := `
    ██████╗ ███████╗██╗  ██╗
    ██╔══██╗██╔════╝╚██╗██╔╝
    ██║  ██║█████╗   ╚███╔╝
    ██║  ██║██╔══╝   ██╔██╗
    ██████╔╝███████╗██╔╝ ██╗
    ╚═════╝ ╚══════╝╚═╝  ╚═╝
`
	var sb strings.Builder
	sb.WriteString("\n\n\n\n")
	sb.WriteString(titleStyle.Render(logo))
	sb.WriteString("\n")
	sb.WriteString(mutedText.Render("    A R B I T R A G E   E N G I N E"))
	sb.WriteString("\n\n\n")
	sb.WriteString(greenStyle.Render(fmt.Sprintf("    Initializing%s", dots)))
	sb.WriteString("\n\n")
	sb.WriteString(mutedText.Render("    Press any key to skip, or wait..."))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) renderStartupScreen() string {
	titleStyle := lipgloss.NewStyle().Bold(true).Foreground(components.ColorAccent).MarginBottom(1)
	connectingStyle := lipgloss.NewStyle().Foreground(components.ColorFallback)

	spinners := []string{"◐", "◓", "◑", "◒"}
	spinner := spinners[int(time.Since(m.startupTime).Milliseconds()/200)%len(spinners)]

	var sb strings.Builder
	sb.WriteString("\n\n")
	sb.WriteString(titleStyle.Render("  DEX Arbitrage Engine"))
	sb.WriteString("\n\n")
	sb.WriteString(connectingStyle.Render("  " + spinner + " Starting modules and running the first scan"))
	sb.WriteString("\n\n")

	for _, name := range m.connectionNames() {
		info := m.connectionState[name]
		if info.Connected {
			sb.WriteString(sourceUp.Render("  ✓ " + name))
		} else {
			sb.WriteString(sourceDown.Render("  ✗ " + name))
		}
		sb.WriteString("\n")
	}
	if n := m.sources.Enabled(); n > 0 {
		sb.WriteString(mutedText.Render(fmt.Sprintf("  %d sources enabled", n)))
		sb.WriteString("\n")
	}

	sb.WriteString("\n")
	sb.WriteString(mutedText.Render(fmt.Sprintf("  Elapsed: %s", time.Since(m.startupTime).Round(time.Second))))
	sb.WriteString("\n")
	return sb.String()
}

func (m Model) connectionNames() []string {
	names := make([]string, 0, len(m.connectionState))
	for name := range m.connectionState {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func (m Model) renderStatusBar() string {
	var parts []string

	if time.Since(m.lastScanTime) < 500*time.Millisecond {
		spinners := []string{"⟳", "◐", "◓", "◑", "◒"}
		idx := int(time.Now().UnixMilli()/100) % len(spinners)
		parts = append(parts, sourceUp.Render(spinners[idx]+" Scanning"))
	}

	if m.currentBlock > 0 {
		parts = append(parts, fmt.Sprintf("Block: #%d", m.currentBlock))
	}
	parts = append(parts, components.ProfitStyle.Render(fmt.Sprintf("Scans: %d", m.totals.Scans)))

	for _, name := range m.connectionNames() {
		info := m.connectionState[name]
		if info.Connected {
			label := name
			if info.Latency > 0 {
				label = fmt.Sprintf("%s (%dms)", name, info.Latency.Milliseconds())
			}
			parts = append(parts, sourceUp.Render("● "+label))
		} else {
			parts = append(parts, sourceDown.Render("○ "+name))
		}
	}

	if !m.lastUpdate.IsZero() {
		ago := time.Since(m.lastUpdate).Round(time.Second)
		parts = append(parts, mutedText.Render(fmt.Sprintf("Updated: %s ago", ago)))
	}

	return strings.Join(parts, "  │  ")
}

// Program holds the Bubble Tea program instance for external access.
var Program *tea.Program

// OnStartModules is called when the welcome screen completes and modules
// should start. Set by main before the program runs.
var OnStartModules func()

// Send sends a message to the running program.
func Send(msg tea.Msg) {
	if Program != nil {
		Program.Send(msg)
	}
}
