package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/five82/hotend/internal/state"
	"github.com/five82/hotend/internal/ultimaker"
)

// renderHeader renders the status bar with fleet-wide counts.
func (m Model) renderHeader() string {
	// Header uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	if len(m.fleet) == 0 {
		return m.renderSearchingHeader(styles, bg)
	}

	content := m.buildStatusContent(styles, bg)

	return lipgloss.NewStyle().
		Background(lipgloss.Color(m.theme.Surface)).
		Foreground(lipgloss.Color(m.theme.Text)).
		Width(m.width).
		Render(content)
}

// renderSearchingHeader shows the empty-fleet state.
func (m Model) renderSearchingHeader(styles Styles, bg BgStyle) string {
	sep := bg.Spaces(2)

	if m.rescan == nil {
		return styles.Header.Width(m.width).Render(
			bg.Render("hotend", styles.Logo) + sep +
				bg.Render("No printers configured", styles.WarningText.Bold(true)) + sep +
				bg.Render("add printers to the config file", styles.MutedText),
		)
	}

	return styles.Header.Width(m.width).Render(
		bg.Render("hotend", styles.Logo) + sep +
			bg.Render("Searching for printers...", styles.WarningText.Bold(true)) + sep +
			bg.Render("r to rescan", styles.MutedText),
	)
}

// buildStatusContent builds the status bar content string.
func (m Model) buildStatusContent(styles Styles, bg BgStyle) string {
	compact := m.width < LayoutCompactWidth
	sep := bg.Spaces(2)

	printing, pairing, offline := m.countFleet()

	var parts []string

	// Logo
	parts = append(parts, bg.Render("hotend", styles.Logo))

	// Fleet size
	parts = append(parts,
		bg.Render("Fleet:", styles.MutedText)+bg.Space()+
			bg.Render(fmt.Sprintf("%d", len(m.fleet)), styles.Text),
	)

	// Active print count (only if non-zero)
	if printing > 0 {
		color := lipgloss.Color(m.theme.StatusColors["printing"])
		activeStyle := lipgloss.NewStyle().Foreground(color)
		parts = append(parts,
			bg.Render("Printing:", styles.MutedText)+bg.Space()+
				bg.Render(fmt.Sprintf("%d", printing), activeStyle),
		)
	}

	// Pairing and offline counts
	pairingStyle := styles.MutedText
	if pairing > 0 {
		pairingStyle = styles.WarningText
	}
	offlineStyle := styles.MutedText
	if offline > 0 {
		offlineStyle = styles.DangerText
	}

	if compact {
		parts = append(parts,
			bg.Render("P:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", pairing), pairingStyle)+
				sep+bg.Render("•", styles.FaintText)+sep+
				bg.Render("O:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", offline), offlineStyle),
		)
	} else {
		parts = append(parts,
			bg.Render("Pairing:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", pairing), pairingStyle)+
				sep+bg.Render("•", styles.FaintText)+sep+
				bg.Render("Offline:", styles.MutedText)+bg.Space()+bg.Render(fmt.Sprintf("%d", offline), offlineStyle),
		)
	}

	// Timestamp with relative time
	timeStr := m.formatTimestamp()
	if timeStr != "" {
		parts = append(parts, bg.Render(timeStr, styles.MutedText))
	}

	return bg.Join(parts, "  ")
}

// countFleet returns the number of printers printing, waiting on pairing
// approval, and offline.
func (m Model) countFleet() (printing, pairing, offline int) {
	for _, ps := range m.fleet {
		switch {
		case ps.IsOffline():
			offline++
		case ps.NeedsPairing:
			pairing++
		case ps.HasSnapshot && ps.Snapshot.Status == ultimaker.StatusPrinting:
			printing++
		}
	}
	return
}

// formatTimestamp formats the last update time with relative indicator.
func (m Model) formatTimestamp() string {
	if m.lastUpdated.IsZero() {
		return ""
	}

	timeSince := time.Since(m.lastUpdated)
	timeStr := m.lastUpdated.Format("15:04:05")

	if timeSince < time.Minute {
		timeStr += " (now)"
	} else if timeSince < time.Hour {
		timeStr += fmt.Sprintf(" (%dm ago)", int(timeSince.Minutes()))
	} else if timeSince < 24*time.Hour {
		timeStr += fmt.Sprintf(" (%dh ago)", int(timeSince.Hours()))
	}

	return timeStr
}

// renderCommandBar renders the command hints bar.
func (m Model) renderCommandBar() string {
	// Command bar uses Surface background
	styles := m.theme.Styles().WithBackground(m.theme.Surface)
	bg := NewBgStyle(m.theme.Surface)

	type cmd struct{ key, desc string }
	var commands []cmd

	switch m.currentView {
	case ViewLogs:
		followLabel := "Pause"
		if !m.logState.follow {
			followLabel = "Follow"
		}
		commands = []cmd{
			{"Space", followLabel},
			{"/", "Search"},
			{"n/N", "Next/Prev"},
			{"p", "Printers"},
			{"Tab", "Focus"},
			{"?", "More"},
		}
	default: // ViewFleet
		commands = []cmd{
			{"f", m.filterLabel()}, // Shows current filter state
			{"j/k", "Navigate"},
			{"b", "Beep"},
			{"m", "Message"},
			{"r", "Rescan"},
			{"l", "Logs"},
			{"Tab", "Focus"},
			{"?", "More"},
		}
	}

	colon := bg.Sep(":")
	sep := bg.Spaces(2)

	segments := make([]string, 0, len(commands))
	for _, c := range commands {
		segments = append(segments,
			bg.Render(c.key, styles.AccentText)+colon+bg.Render(c.desc, styles.MutedText))
	}

	// Show active log search pattern
	if m.currentView == ViewLogs && m.logState.searchQuery != "" {
		pattern := truncate(m.logState.searchQuery, 18)
		segments = append(segments,
			bg.Render("/"+pattern, styles.AccentText))
	}

	// Transient feedback from beep/message/rescan
	if flash, isError := m.activeFlash(); flash != "" {
		flashStyle := styles.SuccessText
		if isError {
			flashStyle = styles.DangerText
		}
		segments = append(segments, bg.Render(truncate(flash, 60), flashStyle))
	}

	// Add theme indicator
	segments = append(segments,
		bg.Render("T", styles.AccentText)+colon+bg.Render(m.theme.Name, styles.FaintText))

	return styles.Header.Width(m.width).Render(strings.Join(segments, sep))
}

// fleetAttention reports whether a printer needs operator attention.
func fleetAttention(ps state.PrinterState) bool {
	return ps.NeedsPairing || ps.IsOffline() || ps.LastError != nil
}
