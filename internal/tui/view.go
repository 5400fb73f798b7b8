package tui

import (
	"fmt"
	"math"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/keisuke70/tasklazy/internal/models"
	"github.com/keisuke70/tasklazy/internal/scheduling"
)

const minBlockWidth = 24

// View implements tea.Model
func (m Model) View() string {
	if m.quitting {
		return ""
	}

	var b strings.Builder
	b.WriteString(styleHeader.Render("tasklazy"))
	b.WriteString("  ")
	b.WriteString(styleFg.Render(m.date.String()))
	b.WriteString("  ")
	b.WriteString(styleDim.Render("[/] day  j/k move  space select  r reset  q quit"))
	b.WriteString("\n")
	b.WriteString(m.statusLine())
	b.WriteString("\n")

	list := lipgloss.NewStyle().Width(listWidth).Render(m.renderList())
	sep := styleDim.Render(strings.TrimSuffix(strings.Repeat("│\n", max(m.timelineRows(), 1)), "\n"))
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, list, sep, m.renderTimeline()))
	b.WriteString("\n")
	b.WriteString(styleDim.Render(fmt.Sprintf("%d tasks planned, %s", len(m.day.Blocks), formatMinutes(m.day.TotalMinutes))))
	return b.String()
}

func (m Model) statusLine() string {
	switch {
	case m.err != nil:
		return styleError.Render("error: " + m.err.Error())
	case m.loading:
		return styleDim.Render("loading...")
	case len(m.day.Warnings) > 0:
		return styleError.Render("warning: " + strings.Join(m.day.Warnings, "; "))
	default:
		return styleDim.Render(m.status)
	}
}

func (m Model) renderList() string {
	if len(m.list) == 0 {
		return styleDim.Render("no tasks")
	}

	nameWidth := listWidth - 12
	lines := make([]string, 0, len(m.list))
	for i, t := range m.list {
		cursor := "  "
		if i == m.cursor {
			cursor = styleCursor.Render("> ")
		}

		marker := styleDim.Render("[ ]")
		if t.Priority != nil {
			marker = lipgloss.NewStyle().Foreground(priorityColor(*t.Priority)).Render(fmt.Sprintf("[%d]", *t.Priority))
		}

		name := truncate(t.Name, nameWidth)
		if t.StartOverride != nil {
			name = truncate("*"+t.Name, nameWidth)
		}
		lines = append(lines, fmt.Sprintf("%s%s %-*s %s", cursor, marker, nameWidth, name, styleDim.Render(formatMinutes(t.DurationMinutes))))
	}
	return strings.Join(lines, "\n")
}

func (m Model) renderTimeline() string {
	rows := m.timelineRows()
	if rows == 0 {
		return ""
	}

	width := minBlockWidth
	if m.width > timelineX+gutterWidth+minBlockWidth {
		width = m.width - timelineX - gutterWidth - 1
	}

	cells := make([]string, rows)
	dragged := ""
	if m.drag.State() == scheduling.Dragging {
		dragged = m.drag.TaskID().String()
	}

	for _, row := range m.displayRows() {
		top, height, ok := rowSpan(row)
		if !ok {
			continue
		}
		style := styleFixed
		if !row.Fixed {
			style = blockStyle(row.Priority)
		}
		if row.ID == dragged {
			style = style.Inherit(styleDragged)
		}
		for r := top; r < top+height && r < rows; r++ {
			text := ""
			if r == top {
				text = fmt.Sprintf("%s-%s %s", row.StartTime, row.EndTime, row.Label)
			}
			cells[r] = style.Width(width).MaxWidth(width).Render(truncate(text, width))
		}
	}

	lines := make([]string, rows)
	for i := range lines {
		lines[i] = styleDim.Render(m.gutterLabel(i)) + cells[i]
	}
	return strings.Join(lines, "\n")
}

// gutterLabel prints the hour on rows that begin one
func (m Model) gutterLabel(row int) string {
	w := m.day.Window
	minute := int(math.Round(float64(row) / w.PixelsPerMinute))
	at := w.Start.Add(minute)
	prev := w.Start.Add(int(math.Round(float64(row-1) / w.PixelsPerMinute)))
	if row == 0 || at.Hour() != prev.Hour() {
		return fmt.Sprintf("%-*s", gutterWidth, models.Clock(at.Hour(), 0).String())
	}
	return strings.Repeat(" ", gutterWidth)
}

func formatMinutes(minutes int) string {
	if minutes >= 60 && minutes%60 == 0 {
		return fmt.Sprintf("%dh", minutes/60)
	}
	if minutes > 60 {
		return fmt.Sprintf("%dh%02dm", minutes/60, minutes%60)
	}
	return fmt.Sprintf("%dm", minutes)
}

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	if width <= 1 {
		return string(r[:width])
	}
	return string(r[:width-1]) + "…"
}
