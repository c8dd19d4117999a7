package ui

import (
	"fmt"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/state"
	"github.com/five82/hotend/internal/ultimaker"
)

// statusKey classifies a fleet entry into one of the theme's status color
// keys. Synthetic keys (offline, pairing, connecting) take precedence over
// the printer's own status because they describe the connection, not the
// machine.
func statusKey(ps state.PrinterState) string {
	switch {
	case ps.IsOffline():
		return "offline"
	case ps.NeedsPairing:
		return "pairing"
	case !ps.HasSnapshot:
		return "connecting"
	}
	if job := ps.Snapshot.Job; job != nil {
		switch job.State {
		case ultimaker.JobPaused, ultimaker.JobPausing:
			return "paused"
		}
	}
	return string(ps.Snapshot.Status)
}

// displayName returns the best known name for a fleet entry.
func displayName(ps state.PrinterState) string {
	if ps.HasSnapshot && ps.Snapshot.SystemName != "" {
		return ps.Snapshot.SystemName
	}
	if ps.Name != "" {
		return ps.Name
	}
	return ps.Key
}

// visibleFleet returns the fleet entries matching the current filter.
func (m Model) visibleFleet() []state.PrinterState {
	if m.filterMode == FilterAll {
		return m.fleet
	}

	printers := make([]state.PrinterState, 0, len(m.fleet))
	for _, ps := range m.fleet {
		switch m.filterMode {
		case FilterPrinting:
			key := statusKey(ps)
			if key != "printing" && key != "paused" {
				continue
			}
		case FilterAttention:
			if !fleetAttention(ps) {
				continue
			}
		}
		printers = append(printers, ps)
	}
	return printers
}

// updateFleetSelection updates selection bounds when the fleet changes.
// Preserves selection by printer key when possible.
func (m *Model) updateFleetSelection() {
	printers := m.visibleFleet()
	count := len(printers)

	if count == 0 {
		m.selectedRow = 0
		m.selectedKey = ""
		return
	}

	// Try to find the previously selected printer by key
	if m.selectedKey != "" {
		for i, ps := range printers {
			if ps.Key == m.selectedKey {
				m.selectedRow = i
				return
			}
		}
	}

	// Printer not found - clamp to valid range
	if m.selectedRow >= count {
		m.selectedRow = count - 1
	}
	m.selectedKey = printers[m.selectedRow].Key
}

// selectedPrinter returns the currently selected fleet entry, or nil when
// the visible fleet is empty.
func (m Model) selectedPrinter() *state.PrinterState {
	printers := m.visibleFleet()
	if len(printers) == 0 || m.selectedRow < 0 || m.selectedRow >= len(printers) {
		return nil
	}
	ps := printers[m.selectedRow]
	return &ps
}

// renderFleet renders the fleet view with split layout (table + detail).
func (m Model) renderFleet() string {
	styles := m.theme.Styles()
	contentHeight := m.height - 2 // Account for header + cmdbar

	if len(m.fleet) == 0 {
		emptyMsg := styles.MutedText.Render("No printers found yet")
		return lipgloss.Place(m.width, contentHeight, lipgloss.Center, lipgloss.Center, emptyMsg)
	}

	// Calculate pane dimensions
	// Extra wide (>= 160): 30% table, 70% detail
	// Default: 40% table, 60% detail
	var tableWidth, detailWidth int
	if m.width >= LayoutExtraWideWidth {
		tableWidth = m.width * 30 / 100
	} else {
		tableWidth = m.width * 40 / 100
	}
	detailWidth = m.width - tableWidth

	// === Table Pane ===
	tableTitle := m.getFleetTitle()
	tableFocused := m.focusedPane == 0
	tableBg := m.theme.SurfaceAlt
	if tableFocused {
		tableBg = m.theme.FocusBg
	}
	tableContent := m.renderFleetTable(tableWidth-2, tableBg) // -2 for borders
	tablePane := m.renderTitledBox(tableTitle, tableContent, tableWidth, contentHeight, tableFocused)

	// === Detail Pane ===
	detailTitle := "Details"
	if ps := m.selectedPrinter(); ps != nil {
		detailTitle = truncate(displayName(*ps), 24)
	}
	detailFocused := m.focusedPane == 1
	detailPane := m.renderTitledBox(detailTitle, m.detailViewport.View(), detailWidth, contentHeight, detailFocused)

	// Join side-by-side
	return lipgloss.JoinHorizontal(lipgloss.Top, tablePane, detailPane)
}

// renderFleetTable renders the fleet as styled rows.
func (m Model) renderFleetTable(width int, bgColor string) string {
	printers := m.visibleFleet()
	if len(printers) == 0 {
		bg := NewBgStyle(bgColor)
		return bg.Render("No printers match this filter", m.theme.Styles().MutedText)
	}

	var lines []string
	for i, ps := range printers {
		if i == m.selectedRow {
			// Selected row: use selection background and text color
			content := m.formatFleetRowContent(ps, width, m.theme.SelectionBg, true)
			line := lipgloss.NewStyle().
				Background(lipgloss.Color(m.theme.SelectionBg)).
				Width(width).
				Render(content)
			lines = append(lines, line)
		} else {
			// Non-selected row: use pane background with themed colors
			content := m.formatFleetRowContent(ps, width, bgColor, false)
			line := lipgloss.NewStyle().
				Background(lipgloss.Color(bgColor)).
				Width(width).
				Render(content)
			lines = append(lines, line)
		}
	}

	return strings.Join(lines, "\n")
}

// formatFleetRowContent formats a fleet row with inline colors.
// Format: "Name · Status Progress%"
// When selected is true, uses SelectionText color for all text to ensure contrast.
func (m Model) formatFleetRowContent(ps state.PrinterState, width int, bgColor string, selected bool) string {
	bg := NewBgStyle(bgColor)

	name := displayName(ps)
	key := statusKey(ps)

	// Build status parts
	statusParts := []string{titleCase(key)}
	if job := ps.Snapshot.Job; job != nil && (key == "printing" || key == "paused") {
		statusParts = append(statusParts, fmt.Sprintf("%.0f%%", min(job.Progress*100, 100)))
	}
	if ps.LastError != nil && !ps.NeedsPairing {
		statusParts = append(statusParts, "!")
	}
	statusStr := strings.Join(statusParts, " ")

	// Calculate available name width
	separatorLen := 3 // " · "
	nameWidth := max(width-len(statusStr)-separatorLen-2, 10)

	// For selected rows, use SelectionText for all parts to ensure contrast
	// For non-selected rows, use themed colors
	var nameStyle, sepStyle, statusStyle lipgloss.Style
	if selected {
		selText := lipgloss.NewStyle().Foreground(lipgloss.Color(m.theme.SelectionText))
		nameStyle = selText
		sepStyle = selText
		statusStyle = selText
	} else {
		styles := m.theme.Styles()
		nameStyle = styles.Text
		sepStyle = styles.FaintText
		statusStyle = lipgloss.NewStyle().Foreground(lipgloss.Color(m.colorForStatusKey(key)))
	}

	namePart := bg.Render(truncate(name, nameWidth), nameStyle)
	sepPart := bg.Render(" · ", sepStyle)
	statusPart := bg.Render(statusStr, statusStyle)

	return namePart + sepPart + statusPart
}

// colorForStatusKey returns the theme color for a status key.
func (m Model) colorForStatusKey(key string) string {
	if color, ok := m.theme.StatusColors[key]; ok {
		return color
	}
	return m.theme.Text
}

// getFleetTitle returns the fleet pane title with optional filter indicator.
func (m Model) getFleetTitle() string {
	total := len(m.fleet)

	if m.filterMode == FilterAll {
		return fmt.Sprintf("Printers (%d)", total)
	}

	visible := len(m.visibleFleet())
	return fmt.Sprintf("Printers (%d/%d) %s", visible, total, m.filterLabel())
}

// handleFleetKey processes keyboard input for the fleet view.
func (m Model) handleFleetKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	// Detail pane focused: navigation scrolls the detail viewport
	if m.focusedPane == 1 {
		return m.handleDetailKey(msg)
	}

	printers := m.visibleFleet()
	count := len(printers)

	switch msg.String() {
	case "j", "down":
		if m.selectedRow < count-1 {
			m.selectedRow++
		}
	case "k", "up":
		if m.selectedRow > 0 {
			m.selectedRow--
		}
	case "g", "home":
		m.selectedRow = 0
	case "G", "end":
		if count > 0 {
			m.selectedRow = count - 1
		}
	case "b":
		return m.beepSelected()
	case "m":
		return m.openMessageModal()
	default:
		return m, nil
	}

	if count > 0 {
		m.selectedKey = printers[m.selectedRow].Key
	}
	m.updateDetailViewport()
	return m, nil
}

// beepSelected asks the selected printer's worker to play an
// identification tone.
func (m Model) beepSelected() (tea.Model, tea.Cmd) {
	ps := m.selectedPrinter()
	if ps == nil || m.manager == nil {
		return m, nil
	}
	if err := m.manager.Beep(ps.Key, beepFrequencyHz, beepDuration); err != nil {
		m.setFlash("beep failed: "+err.Error(), true)
		return m, nil
	}
	m.setFlash("beep queued for "+displayName(*ps), false)
	return m, nil
}

// openMessageModal opens the display-message input for the selected printer.
func (m Model) openMessageModal() (tea.Model, tea.Cmd) {
	ps := m.selectedPrinter()
	if ps == nil || m.manager == nil {
		return m, nil
	}
	m.messageKey = ps.Key
	m.messageName = displayName(*ps)
	m.messageInput.SetValue("")
	m.messageInput.Focus()
	m.showMessage = true
	return m, nil
}
