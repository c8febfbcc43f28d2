// Package console renders the control registry for the terminal.
package console

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/f3xlab/fieldsync/internal/journal"
	"github.com/f3xlab/fieldsync/internal/task"
	"github.com/f3xlab/fieldsync/internal/ui"
)

var (
	panelBorder   = lipgloss.Color("#2D6A80")
	accentPrimary = lipgloss.Color("#50E3C2")
	mutedText     = lipgloss.Color("#8CA1AE")
	warningText   = lipgloss.Color("#FF6B6B")
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(accentPrimary)

	idStyle = lipgloss.NewStyle().
		Width(22)

	mutedStyle = lipgloss.NewStyle().
			Foreground(mutedText)

	warnStyle = lipgloss.NewStyle().
			Foreground(warningText).
			Bold(true)

	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(panelBorder).
			Padding(0, 1)
)

// Controls renders every control with its displayed value and the task state
func Controls(controls []ui.Control, state task.State, known bool) string {
	var b strings.Builder

	stateText := "unknown"
	if known {
		stateText = state.String()
	}
	b.WriteString(headerStyle.Render("task: " + stateText))

	for _, c := range controls {
		b.WriteString("\n")
		b.WriteString(idStyle.Render(c.ID))
		b.WriteString(" ")
		b.WriteString(Display(c))
	}
	return panelStyle.Render(b.String())
}

// Display returns the value a control shows on the page
func Display(c ui.Control) string {
	var s string
	switch c.Kind {
	case ui.KindRadio, ui.KindCheckbox:
		s = "[ ]"
		if c.Checked {
			s = "[x]"
		}
	case ui.KindButton:
		s = "enabled"
		if c.Disabled {
			s = mutedStyle.Render("disabled")
		}
		return s
	case ui.KindRange, ui.KindNumber:
		s = c.Value
		if c.Min != "" || c.Max != "" {
			s += mutedStyle.Render(fmt.Sprintf(" (%s..%s)", c.Min, c.Max))
		}
	case ui.KindPassword:
		s = strings.Repeat("*", len(c.Value))
	case ui.KindText, ui.KindSelect, ui.KindSelectOne:
		s = c.Value
	default:
		s = c.Text
	}
	if c.ReadOnly {
		s += mutedStyle.Render(" ro")
	}
	return s
}

// History renders journal entries newest first
func History(entries []journal.Entry) string {
	if len(entries) == 0 {
		return mutedStyle.Render("no recorded values")
	}
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		line := fmt.Sprintf("%s  %s %s",
			mutedStyle.Render(e.ReceivedAt.Local().Format("2006-01-02 15:04:05")),
			idStyle.Render(e.FieldID),
			e.Value)
		if e.Source != "http" {
			line += mutedStyle.Render(" via " + e.Source)
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

// Warning renders a user-facing error line
func Warning(msg string) string {
	return warnStyle.Render(msg)
}
