package ui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	"github.com/five82/hotend/internal/state"
	"github.com/five82/hotend/internal/ultimaker"
)

// detailPaneWidth returns the width of the detail pane for the current
// terminal size. Kept in one place so the fleet layout and the viewport
// agree.
func (m Model) detailPaneWidth() int {
	var tableWidth int
	if m.width >= LayoutExtraWideWidth {
		tableWidth = m.width * 30 / 100
	} else {
		tableWidth = m.width * 40 / 100
	}
	return m.width - tableWidth
}

// initDetailViewport initializes the detail viewport.
func (m *Model) initDetailViewport() {
	m.detailViewport = viewport.New(m.detailPaneWidth()-4, m.height-4)
	m.detailViewport.Style = lipgloss.NewStyle()
}

// updateDetailViewport refreshes the detail pane for the current selection.
func (m *Model) updateDetailViewport() {
	if m.detailViewport.Width == 0 {
		m.initDetailViewport()
	}

	// Box height = m.height - 2 (header, cmdbar)
	// Box inner = box height - 2 (top and bottom borders) = m.height - 4
	m.detailViewport.Width = m.detailPaneWidth() - 4
	m.detailViewport.Height = m.height - 4

	bgColor := m.theme.SurfaceAlt
	if m.focusedPane == 1 {
		bgColor = m.theme.FocusBg
	}
	m.detailViewport.Style = lipgloss.NewStyle().Background(lipgloss.Color(bgColor))

	ps := m.selectedPrinter()
	if ps == nil {
		bg := NewBgStyle(bgColor)
		m.detailViewport.SetContent(bg.Render("Select a printer", m.theme.Styles().MutedText))
		return
	}
	m.detailViewport.SetContent(m.renderDetailContent(*ps, m.detailViewport.Width, bgColor))
}

// handleDetailKey scrolls the detail viewport while it has focus. Beep and
// message still work so the operator does not have to tab back first.
func (m Model) handleDetailKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "j", "down":
		m.detailViewport.LineDown(1)
	case "k", "up":
		m.detailViewport.LineUp(1)
	case "g", "home":
		m.detailViewport.GotoTop()
	case "G", "end":
		m.detailViewport.GotoBottom()
	case "pgdown":
		m.detailViewport.ViewDown()
	case "pgup":
		m.detailViewport.ViewUp()
	case "ctrl+d":
		m.detailViewport.HalfViewDown()
	case "ctrl+u":
		m.detailViewport.HalfViewUp()
	case "b":
		return m.beepSelected()
	case "m":
		return m.openMessageModal()
	}
	return m, nil
}

// renderDetailContent renders the full detail text for one printer.
func (m Model) renderDetailContent(ps state.PrinterState, width int, bgColor string) string {
	bg := NewBgStyle(bgColor)
	styles := m.theme.Styles()

	var b strings.Builder

	writeSection := func(title string) {
		b.WriteString("\n")
		b.WriteString(bg.Render(strings.ToUpper(title), styles.AccentText.Bold(true)))
		b.WriteString("\n")
		b.WriteString(bg.Render(strings.Repeat("─", min(width, 38)), styles.FaintText))
		b.WriteString("\n")
	}
	writeField := func(label, value string, style lipgloss.Style) {
		if value == "" {
			return
		}
		b.WriteString(bg.Render(padRight(label+":", 11), styles.MutedText))
		b.WriteString(bg.Render(value, style))
		b.WriteString("\n")
	}

	// -- HEADER --
	b.WriteString(bg.Render(displayName(ps), styles.Text.Bold(true)))
	b.WriteString("\n")

	key := statusKey(ps)
	chip := styles.StatusStyle(key).Render(strings.ToUpper(titleCase(key)))
	b.WriteString(chip)
	if ps.Machine != "" {
		b.WriteString(bg.Space())
		b.WriteString(bg.Render(ps.Machine, styles.MutedText))
	}
	b.WriteString("\n")

	// -- IDENTITY --
	writeSection("Printer")
	writeField("Address", fmt.Sprintf("%s:%d", ps.Address, ps.Port), styles.Text)
	writeField("Source", string(ps.Source), styles.Text)
	writeField("Firmware", ps.Firmware, styles.Text)
	writeField("Auth", titleCase(ps.AuthState.String()), styles.Text)

	// -- PAIRING --
	if ps.NeedsPairing {
		writeSection("Pairing")
		b.WriteString(bg.Render("Waiting for approval on the printer.", styles.WarningText.Bold(true)))
		b.WriteString("\n")
		b.WriteString(bg.Render("Confirm the pairing request on the", styles.Text))
		b.WriteString("\n")
		b.WriteString(bg.Render("printer's touchscreen to continue.", styles.Text))
		b.WriteString("\n")
	}

	// -- PRINT JOB --
	if job := ps.Snapshot.Job; ps.HasSnapshot && job != nil {
		m.renderJobSection(&b, writeSection, writeField, job, styles, bg)
	}

	// -- CAMERA --
	if ps.HasSnapshot && ps.Snapshot.Camera != "" {
		if desc := describeCameraCache(ps.Snapshot.Camera); desc != "" {
			writeSection("Camera")
			writeField("Cached", desc, styles.Text)
		}
	}

	// -- ATTENTION --
	if ps.LastError != nil || ps.IsOffline() {
		writeSection("Attention")
		if ps.IsOffline() {
			writeField("Offline", fmt.Sprintf("no contact for %d polls", ps.ConsecutiveFailures), styles.DangerText)
		}
		if ps.LastError != nil {
			writeField("Error", truncate(ps.LastError.Error(), max(width-12, 20)), styles.DangerText)
		}
	}

	// Footer: poll freshness
	if !ps.LastUpdated.IsZero() {
		b.WriteString("\n")
		updated := ps.LastUpdated.Format("15:04:05")
		if since := time.Since(ps.LastUpdated); since >= time.Second {
			updated += fmt.Sprintf(" (%s ago)", humanizeDuration(since))
		}
		writeField("Updated", updated, styles.FaintText)
	}

	return b.String()
}

// renderJobSection renders the active print job.
func (m Model) renderJobSection(
	b *strings.Builder,
	writeSection func(string),
	writeField func(string, string, lipgloss.Style),
	job *ultimaker.PrintJob,
	styles Styles,
	bg BgStyle,
) {
	writeSection("Print Job")
	writeField("Job", job.Name, styles.Text.Bold(true))

	// Progress bar with percent
	percent := clampPercent(job.Progress * 100)
	bar := m.renderProgressBar(percent, 30, styles, bg)
	b.WriteString(bg.Render(padRight("Progress:", 11), styles.MutedText))
	b.WriteString(bar)
	b.WriteString(bg.Space())
	b.WriteString(bg.Render(fmt.Sprintf("%3.0f%%", percent), styles.Text))
	b.WriteString("\n")

	// Elapsed / total / remaining
	if job.TimeTotal > 0 {
		elapsed := fmt.Sprintf("%s / %s", humanizeDuration(job.TimeElapsed), humanizeDuration(job.TimeTotal))
		writeField("Elapsed", elapsed, styles.Text)
		if remaining := job.TimeTotal - job.TimeElapsed; remaining > 0 {
			writeField("ETA", humanizeDuration(remaining), styles.AccentText)
		}
	} else if job.TimeElapsed > 0 {
		writeField("Elapsed", humanizeDuration(job.TimeElapsed), styles.Text)
	}

	writeField("State", titleCase(string(job.State)), styles.Text)
	if job.PauseSource != "" {
		writeField("Paused by", job.PauseSource, styles.WarningText)
	}
	if job.Result != "" {
		writeField("Result", titleCase(job.Result), styles.Text)
	}

	if !job.Started.IsZero() {
		writeField("Started", job.Started.Local().Format("Jan 2 15:04"), styles.MutedText)
	}

	// Who sent the job
	source := job.SourceApplication
	if job.SourceUser != "" {
		if source != "" {
			source += " / "
		}
		source += job.SourceUser
	}
	writeField("From", source, styles.MutedText)

	if job.UUID != uuid.Nil {
		writeField("UUID", job.UUID.String(), styles.FaintText)
	}
}

// renderProgressBar renders a text-based progress bar without percentage text.
// Callers are responsible for adding percentage display as needed.
func (m Model) renderProgressBar(percent float64, width int, styles Styles, bg BgStyle) string {
	percent = clampPercent(percent)
	filled := min(int(float64(width)*percent/100), width)
	bar := strings.Repeat("█", filled) + strings.Repeat("░", width-filled)
	return bg.Render(bar, styles.AccentText)
}

// clampPercent ensures percent is between 0 and 100.
func clampPercent(percent float64) float64 {
	if percent < 0 {
		return 0
	}
	if percent > 100 {
		return 100
	}
	return percent
}

// describeCameraCache summarizes a cached camera frame data URI as
// "image/jpeg, ~34 KiB". Returns "" for anything that is not a data URI.
func describeCameraCache(uri string) string {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return ""
	}
	contentType, payload, ok := strings.Cut(rest, ";base64,")
	if !ok || contentType == "" {
		return ""
	}
	// Base64 expands 3 bytes into 4 characters.
	return fmt.Sprintf("%s, ~%s", contentType, formatBytes(len(payload)*3/4))
}
