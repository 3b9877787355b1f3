package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/vedran77/chronofeed/internal/session"
)

// --- Styles ---

var (
	primaryColor   = lipgloss.Color("#7C3AED")
	secondaryColor = lipgloss.Color("#10B981") // Green for self
	mutedColor     = lipgloss.Color("#9CA3AF")
	errorColor     = lipgloss.Color("#EF4444")
	activeBorder   = lipgloss.Color("#F59E0B")

	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(primaryColor).
			Padding(0, 1)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedColor)

	errorStyle = lipgloss.NewStyle().
			Foreground(errorColor).
			Bold(true)

	sidebarStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(primaryColor).
			Padding(0, 1).
			MarginRight(1)

	selectedItemStyle = lipgloss.NewStyle().
				Foreground(secondaryColor).
				Bold(true).
				PaddingLeft(1).
				Border(lipgloss.NormalBorder(), false, false, false, true).
				BorderForeground(secondaryColor)

	unselectedItemStyle = lipgloss.NewStyle().
				PaddingLeft(2)

	windowStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(mutedColor)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Border(lipgloss.NormalBorder(), false, false, true, false).
			BorderForeground(mutedColor).
			Padding(0, 1)

	ownMessageStyle   = lipgloss.NewStyle().Foreground(secondaryColor)
	otherMessageStyle = lipgloss.NewStyle().Foreground(primaryColor)
)

func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	layout := lipgloss.JoinHorizontal(lipgloss.Top, m.sidebarView(), m.windowsView())
	status := mutedStyle.Render("tab switch • enter open/send • esc sidebar • ctrl+c quit")
	if m.status != "" {
		status = errorStyle.Render(m.status)
	}
	return lipgloss.JoinVertical(lipgloss.Left, layout, status)
}

func (m Model) sidebarView() string {
	var s strings.Builder

	title := m.self.DisplayName
	if unread := m.inbox.UnreadCount(); unread > 0 {
		title += fmt.Sprintf(" (%d unread)", unread)
	}
	if m.notifications > 0 {
		title += fmt.Sprintf(" 🔔%d", m.notifications)
	}
	s.WriteString(titleStyle.Render(title))
	s.WriteString("\n\n")

	rows := m.inbox.Rows()
	if len(rows) == 0 {
		s.WriteString(mutedStyle.Render("No conversations yet."))
	}
	width := m.sidebarWidth - 6
	for i, row := range rows {
		dot := "  "
		if row.Unread {
			dot = errorStyle.Render("● ")
		}
		name := dot + row.Peer.Name()
		line := name + strings.Repeat(" ", max(width-lipgloss.Width(name)-len(row.Timestamp), 1)) + mutedStyle.Render(row.Timestamp)
		line += "\n" + mutedStyle.Render("  "+row.Preview)

		if i == m.cursor {
			s.WriteString(selectedItemStyle.Render(line) + "\n")
		} else {
			s.WriteString(unselectedItemStyle.Render(line) + "\n")
		}
	}

	border := mutedColor
	if m.focusedPane == paneSidebar {
		border = activeBorder
	}
	return sidebarStyle.
		Width(m.sidebarWidth - 2).
		Height(m.height - 3).
		BorderForeground(border).
		Render(s.String())
}

func (m Model) windowsView() string {
	windows := m.ctrl.Windows()
	width := m.width - m.sidebarWidth - 4
	if len(windows) == 0 {
		return windowStyle.Width(width).Height(m.height - 3).Render(
			lipgloss.Place(width, m.height-3, lipgloss.Center, lipgloss.Center,
				mutedStyle.Render("Select a conversation to start chatting")),
		)
	}

	var parts []string
	for _, w := range windows {
		if w.Minimized {
			parts = append(parts, windowStyle.Width(width).Render("▸ "+w.Peer.Name()+mutedStyle.Render("  (minimized)")))
			continue
		}
		if w.Peer.ID == m.focusedPeer {
			parts = append(parts, m.focusedWindowView(w, width))
			continue
		}
		parts = append(parts, windowStyle.Width(width).Render(
			headerStyle.Width(width-2).Render("💬 "+w.Peer.Name())+"\n"+m.tail(w, 3),
		))
	}
	return lipgloss.JoinVertical(lipgloss.Left, parts...)
}

func (m Model) focusedWindowView(w session.Window, width int) string {
	header := headerStyle.Width(width - 2).Render("💬 " + w.Peer.Name())

	footer := m.input.View()
	if d := composerState(w.Draft); d != "" {
		footer = mutedStyle.Render(d) + "\n" + footer
	}

	border := mutedColor
	if m.focusedPane == paneWindow {
		border = activeBorder
	}
	return windowStyle.Width(width).BorderForeground(border).Render(
		lipgloss.JoinVertical(lipgloss.Left, header, m.history.View(), footer),
	)
}

func composerState(d session.Draft) string {
	var parts []string
	if n := len(d.Images); n > 0 {
		parts = append(parts, fmt.Sprintf("📷 %d image(s)", n))
	}
	switch d.Voice {
	case session.VoiceRecording:
		parts = append(parts, "🔴 recording... /stop <url> or /discard")
	case session.VoicePending:
		parts = append(parts, "🎤 voice note ready, enter to send or /discard")
	}
	return strings.Join(parts, " • ")
}

func (m Model) renderHistory(w session.Window) string {
	var b strings.Builder
	for _, msg := range w.History {
		name := w.Peer.Name()
		style := otherMessageStyle
		if msg.SenderID == m.self.ID {
			name = "You"
			style = ownMessageStyle
		}
		body := msg.Content.Text
		for _, url := range msg.Content.Images() {
			body += "\n  📷 " + url
		}
		if url, ok := msg.Content.Audio(); ok {
			body += "\n  🎤 " + url
		}
		fmt.Fprintf(&b, "%s %s: %s\n",
			mutedStyle.Render(msg.CreatedAt.Local().Format("15:04")),
			style.Render(name),
			body,
		)
	}
	return b.String()
}

// tail renders the last n messages of an unfocused window.
func (m Model) tail(w session.Window, n int) string {
	if len(w.History) > n {
		w.History = w.History[len(w.History)-n:]
	}
	return strings.TrimRight(m.renderHistory(w), "\n")
}
