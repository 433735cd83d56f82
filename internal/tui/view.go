package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"
	zone "github.com/lrstanley/bubblezone"
	"github.com/muesli/reflow/truncate"

	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/viewer"
)

const (
	caretMark    = "▶"
	selectedMark = "▌"
)

// View implements tea.Model.
func (m Model) View() string {
	if m.width == 0 {
		return "Loading..."
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteString("\n")
	if m.showHelp {
		b.WriteString(lipgloss.NewStyle().
			Width(m.width).
			Height(m.bodyHeight()).
			MaxHeight(m.bodyHeight()).
			Render(m.helpView))
	} else {
		b.WriteString(m.renderBody())
	}
	if m.logs.visible {
		b.WriteString("\n")
		b.WriteString(m.logs.view())
	}
	b.WriteString("\n")
	b.WriteString(m.renderFooter())
	return zone.Scan(b.String())
}

func (m Model) renderHeader() string {
	path := m.cfg.Info.Path
	if path == "" {
		path = "(untitled)"
	}
	left := titleStyle.Render("ncviewer") + " " + path
	right := mutedStyle.Render(m.cfg.Info.Endpoint)
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		return truncate.StringWithTail(left, uint(max(m.width, 1)), "…")
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m Model) renderBody() string {
	h := m.bodyHeight()
	caret := m.cfg.Doc.Line()
	selected := m.selectedLines()
	numWidth := len(fmt.Sprint(len(m.lines)))
	textWidth := max(m.width-numWidth-3, 1)

	rows := make([]string, 0, h)
	for i := m.offset; i < len(m.lines) && len(rows) < h; i++ {
		rows = append(rows, zone.Mark(lineZoneID(i), m.renderLine(i, caret, selected[i], numWidth, textWidth)))
	}
	for len(rows) < h {
		rows = append(rows, "")
	}
	return strings.Join(rows, "\n")
}

func (m Model) renderLine(i, caret int, selected bool, numWidth, textWidth int) string {
	mark := " "
	switch {
	case i == caret:
		mark = caretGutterStyle.Render(caretMark)
	case selected:
		mark = selectedMarkStyle.Render(selectedMark)
	}
	num := fmt.Sprintf("%*d", numWidth, i+1)
	if i == caret {
		num = caretGutterStyle.Render(num)
	} else {
		num = gutterStyle.Render(num)
	}
	text := truncate.StringWithTail(gcode.Highlight(m.lines[i]), uint(textWidth), "…")
	return mark + num + " " + text
}

// selectedLines maps 0-based line indexes covered by the engine's selection.
func (m Model) selectedLines() map[int]bool {
	if m.cfg.Engine == nil {
		return nil
	}
	out := map[int]bool{}
	for _, l := range m.cfg.Engine.Summary().Lines {
		out[int(l)-1] = true
	}
	return out
}

func (m Model) renderFooter() string {
	parts := []string{fmt.Sprintf("Ln %d/%d", m.cfg.Doc.Line()+1, m.cfg.Doc.LineCount())}
	if m.cfg.Engine != nil {
		parts = append(parts, m.engineStatus(m.cfg.Engine.Summary()))
	}
	if m.cfg.Session != nil {
		if m.cfg.Session.Ready() {
			parts = append(parts, readyStyle.Render("surface ready"))
		} else {
			parts = append(parts, pendingStyle.Render(fmt.Sprintf("waiting for surface (%d queued)", m.cfg.Session.Pending())))
		}
	}
	if m.activity != "" {
		parts = append(parts, mutedStyle.Render(m.activity))
	}
	if m.status != "" {
		st := mutedStyle
		if m.statusErr {
			st = errorStyle
		}
		parts = append(parts, st.Render(m.status))
	}
	info := truncate.StringWithTail(strings.Join(parts, mutedStyle.Render(" · ")), uint(m.width), "…")
	return info + "\n" + m.help.ShortHelpView(m.keys.ShortHelp())
}

func (m Model) engineStatus(s viewer.Summary) string {
	if s.State != viewer.Loaded {
		return mutedStyle.Render("no toolpath")
	}
	if !s.Selected {
		return fmt.Sprintf("%d segments", s.Segments)
	}
	return fmt.Sprintf("seg %d/%d  X %s Y %s Z %s", s.Scrubber+1, s.Segments, s.X, s.Y, s.Z)
}
