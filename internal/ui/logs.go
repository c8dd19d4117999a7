package ui

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/logtail"
)

// logState holds all log-related state.
type logState struct {
	lines   []string
	follow  bool
	lastErr error

	// Search
	searchActive   bool
	searchQuery    string
	searchRegex    *regexp.Regexp
	searchInput    textinput.Model
	searchMatches  []int // Line indices that match
	searchMatchIdx int   // Current match index

	// Content caching - skip re-render when unchanged
	contentVersion uint64
	lastRendered   uint64
	renderedWidth  int
}

// initLogState initializes the log state.
func (m *Model) initLogState() {
	ti := textinput.New()
	ti.Placeholder = "Search logs..."
	ti.CharLimit = 100

	m.logState = logState{
		follow:         true,
		contentVersion: 1,
	}
	m.logState.searchInput = ti
}

// initLogViewport initializes the log viewport.
func (m *Model) initLogViewport() {
	m.logViewport = viewport.New(m.width-4, m.height-5)
	m.logViewport.Style = lipgloss.NewStyle()
}

// updateLogViewport updates the log viewport with current content.
func (m *Model) updateLogViewport() {
	if m.logViewport.Width == 0 {
		m.initLogViewport()
	}

	// Update dimensions
	// Box height = m.height - 3 (header, cmdbar, status bar below)
	// Box inner = box height - 2 (top and bottom borders) = m.height - 5
	m.logViewport.Width = m.width - 4
	m.logViewport.Height = m.height - 5

	// Ensure viewport has focus background
	m.logViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.FocusBg))

	// Only re-render content if it changed
	if m.logState.contentVersion != m.logState.lastRendered || m.logViewport.Width != m.logState.renderedWidth {
		content := m.renderLogContent()
		m.logViewport.SetContent(content)
		m.logState.lastRendered = m.logState.contentVersion
		m.logState.renderedWidth = m.logViewport.Width
	}

	// Auto-scroll if following
	if m.logState.follow {
		m.logViewport.GotoBottom()
	}
}

// handleLogLines installs freshly read log lines.
func (m *Model) handleLogLines(msg logLinesMsg) {
	lines := []string(msg)
	if m.logState.lastErr == nil && linesEqual(m.logState.lines, lines) {
		return
	}

	m.logState.lines = lines
	m.logState.lastErr = nil
	m.logState.contentVersion++

	// The match list indexes into lines, so it must follow them
	if m.logState.searchRegex != nil {
		m.findSearchMatches()
		if m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
			m.logState.searchMatchIdx = 0
		}
	}

	m.updateLogViewport()
}

func linesEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// renderLogs renders the log view.
func (m Model) renderLogs() string {
	// Logs view is always focused when shown, so use FocusBg
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	contentHeight := m.height - 3 // Account for header + cmdbar + status bar below

	content := m.logViewport.View()
	box := m.renderTitledBox("Event Log", content, m.width, contentHeight, true)

	// Status bar below the box
	status := m.renderLogStatus(styles, bg)
	return box + "\n" + status
}

// renderLogStatus renders the log status bar.
func (m Model) renderLogStatus(styles Styles, bg BgStyle) string {
	// Search input mode takes over the whole bar
	if m.logState.searchActive {
		return bg.Render("search: ", styles.AccentText) + m.logState.searchInput.View()
	}

	// Active search with matches shows search status instead
	if m.logState.searchRegex != nil && len(m.logState.searchMatches) > 0 {
		matchNum := m.logState.searchMatchIdx + 1
		totalMatches := len(m.logState.searchMatches)
		return bg.Render(fmt.Sprintf("/%s", m.logState.searchQuery), styles.AccentText) +
			bg.Render(" - ", styles.FaintText) +
			bg.Render(fmt.Sprintf("%d/%d", matchNum, totalMatches), styles.WarningText) +
			bg.Render(" - Press ", styles.FaintText) +
			bg.Render("n", styles.AccentText) +
			bg.Render(" for next, ", styles.FaintText) +
			bg.Render("N", styles.AccentText) +
			bg.Render(" for previous, ", styles.FaintText) +
			bg.Render("Esc", styles.AccentText) +
			bg.Render(" to clear", styles.FaintText)
	}

	// Search regex exists but no matches
	if m.logState.searchRegex != nil && len(m.logState.searchMatches) == 0 {
		return bg.Render("Pattern not found: "+m.logState.searchQuery, styles.DangerText)
	}

	autoTail := "off"
	if m.logState.follow {
		autoTail = "on"
	}
	status := fmt.Sprintf("hotend log %d lines auto-tail %s", len(m.logState.lines), autoTail)

	var parts []string
	parts = append(parts, bg.Render(status, styles.FaintText))

	if m.logState.lastErr != nil {
		parts = append(parts, bg.Render("read failed: "+m.logState.lastErr.Error(), styles.DangerText))
	}

	if m.logPath != "" {
		parts = append(parts, bg.Render(truncateMiddle(m.logPath, 50), styles.MutedText))
	}

	// Join with styled bullet separator
	sep := bg.Space() + bg.Render("•", styles.FaintText) + bg.Space()
	return strings.Join(parts, sep)
}

// renderLogContent renders the colorized log lines.
func (m Model) renderLogContent() string {
	// Logs view is always focused when shown, so use FocusBg
	bg := NewBgStyle(m.theme.FocusBg)
	styles := m.theme.Styles()
	width := m.logViewport.Width

	if len(m.logState.lines) == 0 {
		return bg.FillLine(bg.Render("No log entries", styles.MutedText), width)
	}

	// Build a set of matching line indices for quick lookup
	matchSet := make(map[int]bool)
	for _, idx := range m.logState.searchMatches {
		matchSet[idx] = true
	}
	activeMatchLine := -1
	if len(m.logState.searchMatches) > 0 && m.logState.searchMatchIdx < len(m.logState.searchMatches) {
		activeMatchLine = m.logState.searchMatches[m.logState.searchMatchIdx]
	}

	var b strings.Builder

	for i, line := range m.logState.lines {
		lineNum := i + 1

		isActiveMatch := i == activeMatchLine
		isPassiveMatch := matchSet[i] && !isActiveMatch

		// Build line content: line number + colorized text
		var lineContent string
		switch {
		case isActiveMatch:
			// Active match: highlighted background
			highlightBg := NewBgStyle(m.theme.Warning)
			matchStyle := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.Background))
			lineContent = highlightBg.Render(fmt.Sprintf("%4d │ ", lineNum), matchStyle) +
				highlightBg.Render(line, matchStyle)
			lineContent = lipgloss.NewStyle().Background(lipgloss.Color(m.theme.Warning)).Width(width).Render(lineContent)
		case isPassiveMatch:
			// Passive match: accent foreground
			lineContent = bg.Render(fmt.Sprintf("%4d │ ", lineNum), styles.AccentText) +
				bg.Render(line, styles.AccentText)
			lineContent = bg.FillLine(lineContent, width)
		default:
			lineContent = bg.Render(fmt.Sprintf("%4d │ ", lineNum), styles.FaintText) +
				logtail.ColorizeLineOn(line, lipgloss.Color(m.theme.FocusBg))
			lineContent = bg.FillLine(lineContent, width)
		}

		b.WriteString(lineContent)
		if i < len(m.logState.lines)-1 {
			b.WriteString("\n")
		}
	}

	return b.String()
}

// handleLogsKey processes keyboard input for logs view.
func (m Model) handleLogsKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Handle search input mode
	if m.logState.searchActive {
		return m.handleLogSearchInput(msg)
	}

	switch {
	case key.Matches(msg, m.keys.ToggleFollow):
		m.logState.follow = !m.logState.follow
		if m.logState.follow {
			m.logViewport.GotoBottom()
		}
		return m, nil

	case key.Matches(msg, m.keys.Search):
		m.logState.searchActive = true
		m.logState.searchInput.Focus()
		m.logState.searchInput.SetValue("")
		return m, nil

	case key.Matches(msg, m.keys.NextMatch):
		m.nextSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.PrevMatch):
		m.previousSearchMatch()
		return m, nil

	case key.Matches(msg, m.keys.Top):
		m.logViewport.GotoTop()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Bottom):
		m.logViewport.GotoBottom()
		m.logState.follow = true
		return m, nil

	case key.Matches(msg, m.keys.Down):
		m.logViewport.LineDown(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.Up):
		m.logViewport.LineUp(1)
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageDown):
		m.logViewport.HalfViewDown()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.HalfPageUp):
		m.logViewport.HalfViewUp()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.PageDown):
		m.logViewport.ViewDown()
		m.logState.follow = false
		return m, nil

	case key.Matches(msg, m.keys.PageUp):
		m.logViewport.ViewUp()
		m.logState.follow = false
		return m, nil
	}

	return m, nil
}

// handleLogSearchInput handles keyboard input during log search.
func (m Model) handleLogSearchInput(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		// Apply search
		query := m.logState.searchInput.Value()
		if query == "" {
			m.logState.searchActive = false
			m.logState.searchInput.Blur()
			return m, nil
		}

		re, err := regexp.Compile("(?i)" + query)
		if err != nil {
			// Invalid regex - stay in search mode
			return m, nil
		}

		m.logState.searchRegex = re
		m.logState.searchQuery = query
		m.logState.searchActive = false
		m.logState.searchInput.Blur()

		// Find all matches
		m.findSearchMatches()

		// If matches found, scroll to first one
		if len(m.logState.searchMatches) > 0 {
			m.logState.searchMatchIdx = 0
			m.scrollToSearchMatch()
		}

		m.updateLogViewport()
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		// Cancel search input
		m.logState.searchActive = false
		m.logState.searchInput.Blur()
		m.logState.searchInput.SetValue("")
		return m, nil
	}

	// Let the text input handle the key
	var cmd tea.Cmd
	m.logState.searchInput, cmd = m.logState.searchInput.Update(msg)
	return m, cmd
}

// clearLogSearch clears the search state.
func (m *Model) clearLogSearch() {
	m.logState.searchRegex = nil
	m.logState.searchQuery = ""
	m.logState.searchMatches = nil
	m.logState.searchMatchIdx = 0
	m.logState.contentVersion++ // Search highlighting changed
}

// findSearchMatches finds all lines matching the current search regex.
func (m *Model) findSearchMatches() {
	m.logState.searchMatches = nil
	if m.logState.searchRegex == nil {
		return
	}

	for i, line := range m.logState.lines {
		if m.logState.searchRegex.MatchString(line) {
			m.logState.searchMatches = append(m.logState.searchMatches, i)
		}
	}
	m.logState.contentVersion++ // Search highlighting changed
}

// nextSearchMatch moves to the next search match.
func (m *Model) nextSearchMatch() {
	if len(m.logState.searchMatches) == 0 {
		return
	}

	m.logState.searchMatchIdx = (m.logState.searchMatchIdx + 1) % len(m.logState.searchMatches)
	m.logState.contentVersion++ // Active match changed
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// previousSearchMatch moves to the previous search match.
func (m *Model) previousSearchMatch() {
	if len(m.logState.searchMatches) == 0 {
		return
	}

	m.logState.searchMatchIdx = (m.logState.searchMatchIdx - 1 + len(m.logState.searchMatches)) % len(m.logState.searchMatches)
	m.logState.contentVersion++ // Active match changed
	m.scrollToSearchMatch()
	m.updateLogViewport()
}

// scrollToSearchMatch scrolls the viewport to show the current match.
func (m *Model) scrollToSearchMatch() {
	if len(m.logState.searchMatches) == 0 || m.logState.searchMatchIdx >= len(m.logState.searchMatches) {
		return
	}

	targetLine := m.logState.searchMatches[m.logState.searchMatchIdx]
	m.logState.follow = false

	// Center the match in the viewport if possible
	viewportHeight := m.logViewport.Height
	scrollTo := max(targetLine-viewportHeight/2, 0)
	m.logViewport.SetYOffset(scrollTo)
}
