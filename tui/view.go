package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"fmeca-service/grid"
	"fmeca-service/session"
)

func (m Model) View() string {
	if m.quitting {
		return ""
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("FMECA"))
	b.WriteString(mutedStyle.Render(fmt.Sprintf("  risk threshold %g", m.sess.Threshold())))
	if m.sess.Dirty() {
		b.WriteString(warningStyle.Render("  [unsaved]"))
	}
	b.WriteString("\n\n")

	switch m.mode {
	case modeGrid, modeEditCell:
		b.WriteString(m.renderGrid())
	case modeComponents, modeSearch:
		b.WriteString(m.renderComponents())
	default:
		if m.prev == modeGrid || m.prev == modeEditCell {
			b.WriteString(m.renderGrid())
		} else {
			b.WriteString(m.renderComponents())
		}
	}
	b.WriteString("\n")

	switch m.mode {
	case modeEditCell:
		b.WriteString(promptStyle.Render("New value: " + m.input.View()))
	case modeThreshold:
		b.WriteString(promptStyle.Render("Risk threshold (1-1000): " + m.input.View()))
	case modeSearch:
		b.WriteString(promptStyle.Render("Search: " + m.input.View()))
	case modeDetectability:
		q := session.DetectabilityQuestions[len(m.answers)]
		b.WriteString(promptStyle.Render(q + " [y/n]"))
	case modeConfirmExit:
		b.WriteString(promptStyle.Render("Save changes before exiting? [y]es / [n]o / [c]ancel"))
	}
	b.WriteString("\n")

	if m.warning != "" {
		b.WriteString(warningStyle.Render(m.warning) + "\n")
	}
	if m.status != "" {
		b.WriteString(statusStyle.Render(m.status) + "\n")
	}
	b.WriteString(mutedStyle.Render(m.help()))
	return b.String()
}

func (m Model) help() string {
	if m.mode == modeGrid {
		return "arrows move • enter edit • n/p page • t threshold • s stats view • r reset • w save • d detectability • esc back • q quit"
	}
	return "j/k move • enter open • / search • t threshold • d detectability • q quit"
}

func (m Model) renderComponents() string {
	var b strings.Builder
	b.WriteString(headerStyle.Render("Components"))
	if m.filter != "" {
		b.WriteString(mutedStyle.Render(fmt.Sprintf("  matching %q", m.filter)))
	}
	b.WriteString("\n")
	if len(m.components) == 0 {
		b.WriteString(mutedStyle.Render("  no components"))
		return b.String()
	}
	for i, c := range m.components {
		if i == m.compIndex {
			b.WriteString(selectedStyle.Render("> " + c.Name))
		} else {
			b.WriteString("  " + c.Name)
		}
		b.WriteString("\n")
	}
	return b.String()
}

func (m Model) renderGrid() string {
	g := m.active()
	headers := g.Headers()
	rows := g.Rows()

	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = min(lipgloss.Width(h), cellLimit(i))
	}
	for _, r := range rows {
		for i, c := range r.Cells {
			widths[i] = min(max(widths[i], lipgloss.Width(c)), cellLimit(i))
		}
	}

	var b strings.Builder
	if m.showStats {
		b.WriteString(mutedStyle.Render("Statistics view (read-only)") + "\n")
	}
	cells := make([]string, len(headers))
	for i, h := range headers {
		cells[i] = headerStyle.Render(pad(h, widths[i]))
	}
	b.WriteString(strings.Join(cells, " ") + "\n")

	for ri, r := range rows {
		style := withinStyle
		if r.Level == session.AboveThreshold {
			style = aboveStyle
		}
		for ci, c := range r.Cells {
			s := style
			if ri == m.row && ci == m.col {
				s = cursorStyle
			}
			cells[ci] = s.Render(pad(c, widths[ci]))
		}
		b.WriteString(strings.Join(cells, style.Render(" ")) + "\n")
	}
	b.WriteString(m.pageLine(g))
	return b.String()
}

func (m Model) pageLine(g *grid.Grid) string {
	p := g.Page()
	if p.Total == 0 {
		return mutedStyle.Render("no failure modes")
	}
	last := min(p.Offset+p.PageSize, p.Total)
	return mutedStyle.Render(fmt.Sprintf("rows %d-%d of %d", p.Offset+1, last, p.Total))
}

func cellLimit(col int) int {
	if col == 0 {
		return maxDescriptionWidth
	}
	return maxCellWidth
}

func pad(s string, width int) string {
	r := []rune(s)
	if len(r) > width {
		s = string(r[:width-1]) + "…"
	}
	return s + strings.Repeat(" ", max(0, width-lipgloss.Width(s)))
}
