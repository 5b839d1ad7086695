package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	xansi "github.com/charmbracelet/x/ansi"

	"scaffold-planner/internal/calendar"
	"scaffold-planner/internal/model"
)

func (m appModel) View() string {
	header := m.viewHeader()
	grid, cursorLine := m.viewGrid()
	footer := m.viewFooter()

	body := grid
	if m.showDetail {
		if d := m.viewDetail(); d != "" {
			body += "\n\n" + d
		}
	}

	avail := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	lines := strings.Split(body, "\n")
	if avail > 0 && len(lines) > avail {
		off := 0
		if cursorLine >= avail {
			off = cursorLine - avail + 1
		}
		off = clampInt(off, 0, len(lines)-avail)
		lines = lines[off : off+avail]
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, strings.Join(lines, "\n"), footer)
}

func (m appModel) viewHeader() string {
	days := m.view.Days
	if len(days) == 0 {
		return ""
	}
	title := styleHeader().Render(fmt.Sprintf("Week %s – %s", days[0].Date, days[len(days)-1].Date))
	var meta []string
	if n := len(m.board.Pending()); n > 0 {
		meta = append(meta, fmt.Sprintf("%d saving", n))
	}
	if m.drag.State() == calendar.Dragging {
		meta = append(meta, "moving")
	}
	if len(meta) > 0 {
		title += "  " + styleMuted().Render(strings.Join(meta, " · "))
	}
	return title + "\n"
}

func (m appModel) cellWidth() int {
	n := len(m.view.Days)
	if n == 0 {
		return 10
	}
	w := (m.width - laneLabelWidth - n) / n
	return max(w, 8)
}

// viewGrid renders the lanes and returns the line index where the focused lane starts.
func (m appModel) viewGrid() (string, int) {
	cw := m.cellWidth()
	sep := styleMuted().Render("│")
	var out []string

	head := []string{pad("", laneLabelWidth)}
	for i, d := range m.view.Days {
		label := fmt.Sprintf("%s %s", d.Weekday.String()[:3], d.Date.String()[8:])
		st := styleHeader()
		if d.IsToday {
			st = styleToday()
		}
		if i == m.focus().Col {
			label = "▸" + label
		}
		head = append(head, st.Render(pad(truncate(label, cw), cw)))
	}
	out = append(out, strings.Join(head, sep))
	rule := styleMuted().Render(strings.Repeat("─", laneLabelWidth+len(m.view.Days)*(cw+1)))
	out = append(out, rule)

	cursorLine := 0
	for row, ln := range m.lanes {
		if row == m.focus().Row {
			cursorLine = len(out)
		}
		cells := make([][]string, len(m.view.Days))
		height := 1
		for col := range m.view.Days {
			cells[col] = m.cellLines(row, col, cw)
			height = max(height, len(cells[col]))
		}
		for i := 0; i < height; i++ {
			label := ""
			if i == 0 {
				label = ln.Name
			}
			st := lipgloss.NewStyle()
			if row == m.focus().Row {
				st = st.Bold(true)
			}
			parts := []string{st.Render(pad(truncate(label, laneLabelWidth-1), laneLabelWidth))}
			for col := range m.view.Days {
				line := ""
				if i < len(cells[col]) {
					line = cells[col][i]
				}
				parts = append(parts, pad(line, cw))
			}
			out = append(out, strings.Join(parts, sep))
		}
		out = append(out, rule)
	}
	return strings.Join(out, "\n"), cursorLine
}

// focus is the cell keys act on: the drop target while dragging, else the cursor.
func (m appModel) focus() cursor {
	if m.drag.State() == calendar.Dragging {
		return m.target
	}
	return m.cur
}

func (m appModel) cellLines(row, col, width int) []string {
	var lines []string
	if m.lanes[row].ID == model.Unassigned {
		load := m.view.Unassigned.Days[m.view.Days[col].Date]
		if load.Events > 0 {
			lines = append(lines, styleMuted().Render(truncate(fmt.Sprintf("%d jobs · %d ppl", load.Events, load.Headcount), width)))
		}
	}

	origin, dragging := m.drag.Origin()
	if !dragging {
		for i, ev := range m.cell(row, col) {
			lines = append(lines, m.eventLine(ev, width, row == m.cur.Row && col == m.cur.Col && i == m.cur.Item, false))
		}
		return lines
	}

	isTarget := row == m.target.Row && col == m.target.Col
	marker := styleDropMarker().Render(pad(truncate("▸ drop here", width), width))
	i := 0
	for _, ev := range m.cell(row, col) {
		if ev.ID == origin.EventID {
			if !isTarget {
				lines = append(lines, m.eventLine(ev, width, false, true))
			}
			continue
		}
		if isTarget && i == m.target.Item {
			lines = append(lines, marker)
		}
		lines = append(lines, m.eventLine(ev, width, false, false))
		i++
	}
	if isTarget && m.target.Item >= i {
		lines = append(lines, marker)
	}
	return lines
}

func (m appModel) eventLine(ev model.CalendarEvent, width int, selected, ghost bool) string {
	swatch := lipgloss.NewStyle().Foreground(lipgloss.Color(ev.Color)).Render("▌")
	text := ev.Title
	if ev.Phase == model.PhaseAssembly || ev.Phase == model.PhaseDemolition {
		text += " " + phaseTag(ev.Phase)
	}
	text = pad(truncate(text, width-1), width-1)
	switch {
	case selected:
		text = styleSelected().Render(text)
	case ghost:
		text = styleMuted().Render(text)
	}
	return swatch + text
}

func phaseTag(p model.Phase) string {
	switch p {
	case model.PhaseAssembly:
		return "▲"
	case model.PhaseDemolition:
		return "▼"
	}
	return ""
}

func (m appModel) viewDetail() string {
	ev, ok := m.selected()
	if !ok {
		return ""
	}
	p, ok := m.board.Project(ev.ProjectID)
	if !ok {
		return ""
	}
	var b strings.Builder
	b.WriteString(styleHeader().Render(p.Title))
	if p.Customer != "" {
		b.WriteString(styleMuted().Render("  " + p.Customer))
	}
	b.WriteString("\n")
	fmt.Fprintf(&b, "%s  %s → %s", ev.Phase, ev.Start, ev.End)
	if len(p.Workers) > 0 {
		fmt.Fprintf(&b, "  workers: %s", strings.Join(p.Workers, ", "))
	}
	if len(p.Trucks) > 0 {
		fmt.Fprintf(&b, "  trucks: %s", strings.Join(p.Trucks, ", "))
	}
	if p.Dispatch != nil && p.Dispatch.Confirmed {
		b.WriteString(styleStatus(false).Render("  dispatched"))
	}
	if md := renderMarkdown(p.Remarks, min(m.width, 100)); md != "" {
		b.WriteString("\n" + md)
	}
	return b.String()
}

func (m appModel) viewFooter() string {
	status := ""
	if m.status != "" {
		status = styleStatus(m.statusErr).Render(m.status)
	}
	var helpView string
	if m.drag.State() == calendar.Dragging {
		helpView = m.help.View(dragKeys(m.keys))
	} else {
		helpView = m.help.View(m.keys)
	}
	return status + "\n" + helpView
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	return xansi.Truncate(s, w, "…")
}

// pad right-fills s, which may carry ANSI styling, to visible width w.
func pad(s string, w int) string {
	if n := w - xansi.StringWidth(s); n > 0 {
		return s + strings.Repeat(" ", n)
	}
	return s
}
