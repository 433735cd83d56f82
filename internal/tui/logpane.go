package tui

import (
	"strings"

	"github.com/charmbracelet/bubbles/viewport"
	"github.com/charmbracelet/x/ansi"

	"github.com/ncviewer/ncviewer/internal/log"
)

const (
	logPaneHeight = 8
	maxLogEntries = 500
)

// logPane follows log entries published by the log package.
type logPane struct {
	visible  bool
	minLevel log.Level
	entries  []string
	width    int
	viewport viewport.Model
}

func newLogPane() logPane {
	return logPane{minLevel: log.LevelInfo, viewport: viewport.New(0, logPaneHeight)}
}

// append stores entry, dropping the oldest beyond maxLogEntries.
func (p *logPane) append(entry string) {
	p.entries = append(p.entries, strings.TrimSuffix(entry, "\n"))
	if over := len(p.entries) - maxLogEntries; over > 0 {
		p.entries = append(p.entries[:0:0], p.entries[over:]...)
	}
	p.refresh()
}

func (p *logPane) setWidth(w int) {
	p.width = w
	p.viewport.Width = w
	p.refresh()
}

func (p *logPane) toggle() {
	p.visible = !p.visible
	p.refresh()
}

// cycleLevel steps DEBUG → INFO → WARN → ERROR → DEBUG.
func (p *logPane) cycleLevel() {
	p.minLevel = (p.minLevel + 1) % (log.LevelError + 1)
	p.refresh()
}

func (p logPane) filtered() []string {
	var out []string
	for _, e := range p.entries {
		if p.matches(e) {
			out = append(out, e)
		}
	}
	return out
}

// matches reports whether entry is at or above the minimum level. Entries
// without a level tag always match.
func (p logPane) matches(entry string) bool {
	tag := entryLevelTag(entry)
	if tag == "" {
		return true
	}
	return log.ParseLevel(tag) >= p.minLevel
}

func (p *logPane) refresh() {
	if !p.visible || p.width <= 0 {
		return
	}
	entries := p.filtered()
	if len(entries) == 0 {
		p.viewport.SetContent(mutedStyle.Italic(true).Render("No logs to display"))
		return
	}
	lines := make([]string, len(entries))
	for i, e := range entries {
		if ansi.StringWidth(e) > p.width {
			e = ansi.Truncate(e, p.width-1, "…")
		}
		lines[i] = levelStyle(e).Render(e)
	}
	p.viewport.SetContent(strings.Join(lines, "\n"))
	p.viewport.GotoBottom()
}

func (p logPane) height() int {
	if !p.visible {
		return 0
	}
	// title + viewport
	return 1 + logPaneHeight
}

func (p logPane) view() string {
	if !p.visible {
		return ""
	}
	title := dividerStyle.Render("── logs ") + mutedStyle.Render("≥"+p.minLevel.String())
	return title + "\n" + p.viewport.View()
}

// entryLevelTag extracts DEBUG, INFO, WARN or ERROR from a formatted entry.
func entryLevelTag(entry string) string {
	for _, tag := range []string{"ERROR", "WARN", "INFO", "DEBUG"} {
		if strings.Contains(entry, "["+tag+"]") {
			return tag
		}
	}
	return ""
}
