package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "loading..."
	}

	var body string
	switch m.activeTab {
	case TabSubscriptions:
		body = m.renderSubscriptions()
	case TabEvents:
		body = m.renderEvents()
	}

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), body, m.renderFooter())
}

func (m Model) renderHeader() string {
	tabs := []struct {
		label string
		tab   Tab
	}{
		{"1:Subscriptions", TabSubscriptions},
		{"2:Events", TabEvents},
	}

	var rendered []string
	for _, t := range tabs {
		style := lipgloss.NewStyle().Foreground(m.theme.FaintText)
		if t.tab == m.activeTab {
			style = lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true)
		}
		rendered = append(rendered, style.Render(t.label))
	}

	status := fmt.Sprintf("subs=%d events=%d", len(m.subscriptions), len(m.events))
	if !m.lastRefresh.IsZero() {
		status += fmt.Sprintf("  updated %s", m.lastRefresh.Format("15:04:05"))
	}
	statusStyle := lipgloss.NewStyle().Foreground(m.theme.FaintText)

	left := strings.Join(rendered, "  ")
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(status)
	if gap < 1 {
		gap = 1
	}

	return left + strings.Repeat(" ", gap) + statusStyle.Render(status)
}

func (m Model) renderFooter() string {
	if m.lastErr != nil {
		errStyle := lipgloss.NewStyle().Foreground(m.theme.ErrorText)
		return errStyle.Render(fmt.Sprintf("refresh failed: %v", m.lastErr))
	}
	help := "j/k move  1/2 tabs  r refresh  q quit"
	return lipgloss.NewStyle().Foreground(m.theme.HelpText).Render(help)
}

func (m Model) renderSubscriptions() string {
	if len(m.subscriptions) == 0 {
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("no subscriptions")
	}

	header := fmt.Sprintf("%-24s %-16s %-16s %-16s %6s %6s", "SUBSCRIPTION", "SUBSCRIBER", "MASTER", "STATE", "SEQ", "TRUST")
	lines := []string{lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true).Render(header)}

	start, end := m.visibleWindow(len(m.subscriptions))
	for i := start; i < end; i++ {
		lines = append(lines, m.renderSubscriptionRow(i))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderSubscriptionRow(index int) string {
	sub := m.subscriptions[index]
	score, known := trustFor(m.scores, sub.SubscriberID)
	trustText := "--"
	trustColor := m.theme.FaintText
	if known {
		trustText = fmt.Sprintf("%d", score)
		trustColor = m.theme.trustColor(score)
	}

	stateStyle := lipgloss.NewStyle().Foreground(m.theme.stateColor(sub.State))
	trustStyle := lipgloss.NewStyle().Foreground(trustColor)

	row := fmt.Sprintf("%-24s %-16s %-16s %-16s %6d %6s",
		truncate(sub.ID, 24), truncate(sub.SubscriberID, 16), truncate(sub.MasterID, 16),
		stateStyle.Render(padRight(string(sub.State), 16)), sub.LastAcceptedSequence, trustStyle.Render(trustText))

	if index == m.cursor {
		return lipgloss.NewStyle().
			Background(m.theme.SelectedBackground).
			Foreground(m.theme.SelectedForeground).
			Render(row)
	}
	return row
}

func (m Model) renderEvents() string {
	if len(m.events) == 0 {
		return lipgloss.NewStyle().Foreground(m.theme.FaintText).Render("no protection events")
	}

	header := fmt.Sprintf("%-9s %-24s %8s %-20s %10s", "TIME", "SUBSCRIPTION", "SEQ", "REASON", "STATE")
	lines := []string{lipgloss.NewStyle().Foreground(m.theme.HeaderForeground).Bold(true).Render(header)}

	start, end := m.visibleWindow(len(m.events))
	for i := start; i < end; i++ {
		lines = append(lines, m.renderEventRow(i))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderEventRow(index int) string {
	event := m.events[index]
	reasonStyle := lipgloss.NewStyle().Foreground(m.theme.ErrorText)
	stateStyle := lipgloss.NewStyle().Foreground(m.theme.stateColor(event.StateAtEvent))

	row := fmt.Sprintf("%-9s %-24s %8d %-20s %10s",
		event.EventTime.Format("15:04:05"), truncate(event.SubscriptionID, 24), event.SignalSequence,
		reasonStyle.Render(padRight(string(event.Reason), 20)), stateStyle.Render(string(event.StateAtEvent)))

	if index == m.cursor {
		return lipgloss.NewStyle().
			Background(m.theme.SelectedBackground).
			Foreground(m.theme.SelectedForeground).
			Render(row)
	}
	return row
}

// visibleWindow returns the [start, end) row range to render so the
// cursor stays on screen within visibleRows rows.
func (m Model) visibleWindow(total int) (int, int) {
	visible := m.visibleRows()
	if total <= visible {
		return 0, total
	}
	start := m.cursor - visible/2
	if start < 0 {
		start = 0
	}
	if start+visible > total {
		start = total - visible
	}
	return start, start + visible
}

func truncate(s string, width int) string {
	if len(s) <= width {
		return s
	}
	if width <= 1 {
		return s[:width]
	}
	return s[:width-1] + "…"
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return truncate(s, width)
	}
	return s + strings.Repeat(" ", width-len(s))
}
