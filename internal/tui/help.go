package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/glamour"

	"github.com/ncviewer/ncviewer/internal/keys"
)

// noMarginStyle removes glamour's document margins.
const noMarginStyle = `{
	"document": {
		"margin": 0,
		"block_prefix": "",
		"block_suffix": ""
	}
}`

// helpMarkdown lists every binding in km as markdown tables.
func helpMarkdown(km keys.KeyMap) string {
	var b strings.Builder
	b.WriteString("# ncviewer\n\n")
	b.WriteString("The caret follows the toolpath selection in the viewer and the viewer follows the caret.\n")
	sections := []string{"Caret", "Toolpath", "General"}
	for i, group := range km.FullHelp() {
		fmt.Fprintf(&b, "\n## %s\n\n| Key | Action |\n|---|---|\n", sections[i])
		for _, binding := range group {
			h := binding.Help()
			fmt.Fprintf(&b, "| `%s` | %s |\n", h.Key, h.Desc)
		}
	}
	b.WriteString("\nClick a line to move the caret there.\n")
	return b.String()
}

// renderHelp renders the help page for width using the glamour style that
// matches theme. The raw markdown is returned if rendering fails.
func renderHelp(km keys.KeyMap, theme string, width int) string {
	md := helpMarkdown(km)
	style := "dark"
	if theme == "light" {
		style = "light"
	}
	r, err := glamour.NewTermRenderer(
		glamour.WithStandardStyle(style),
		glamour.WithStylesFromJSONBytes([]byte(noMarginStyle)),
		glamour.WithWordWrap(max(width, 20)),
	)
	if err != nil {
		return md
	}
	out, err := r.Render(md)
	if err != nil {
		return md
	}
	return strings.TrimRight(out, "\n")
}
