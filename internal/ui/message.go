package ui

import (
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// messageButton is the label on the acknowledge button the printer shows
// under the message.
const messageButton = "OK"

// newMessageInput builds the text input for the display-message modal.
func newMessageInput() textinput.Model {
	ti := textinput.New()
	ti.Placeholder = "Message for the printer screen..."
	ti.CharLimit = 80
	return ti
}

// handleMessageKey processes keyboard input while the message modal is open.
func (m Model) handleMessageKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Confirm):
		text := strings.TrimSpace(m.messageInput.Value())
		m.closeMessageModal()
		if text == "" {
			return m, nil
		}
		if err := m.manager.DisplayMessage(m.messageKey, text, messageButton); err != nil {
			m.setFlash("message failed: "+err.Error(), true)
			return m, nil
		}
		m.setFlash("message queued for "+m.messageName, false)
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		m.closeMessageModal()
		return m, nil
	}

	// Let the text input handle the key
	var cmd tea.Cmd
	m.messageInput, cmd = m.messageInput.Update(msg)
	return m, cmd
}

// closeMessageModal resets the modal state.
func (m *Model) closeMessageModal() {
	m.showMessage = false
	m.messageInput.Blur()
	m.messageInput.SetValue("")
}

// renderMessageModal renders the display-message dialog over the fleet.
func (m Model) renderMessageModal() string {
	styles := m.theme.Styles()

	var b strings.Builder
	b.WriteString(styles.Text.Bold(true).Render("Message " + m.messageName))
	b.WriteString("\n")
	b.WriteString(styles.FaintText.Render(strings.Repeat("─", 30)))
	b.WriteString("\n\n")
	b.WriteString(m.messageInput.View())
	b.WriteString("\n\n")
	b.WriteString(styles.MutedText.Render("enter to send, esc to cancel"))

	modal := lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(lipgloss.Color(m.theme.Accent)).
		Padding(1, 2).
		Width(44)

	return lipgloss.Place(
		m.width,
		m.height,
		lipgloss.Center,
		lipgloss.Center,
		modal.Render(b.String()),
		lipgloss.WithWhitespaceChars(" "),
		lipgloss.WithWhitespaceForeground(lipgloss.Color(m.theme.Background)),
	)
}
