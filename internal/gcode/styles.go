package gcode

import "github.com/charmbracelet/lipgloss"

// Token colors. Light/dark pairs follow the terminal background.
var (
	CommentColor    = lipgloss.AdaptiveColor{Light: "#6A737D", Dark: "#6272A4"}
	CommandColor    = lipgloss.AdaptiveColor{Light: "#D73A49", Dark: "#FF79C6"}
	CoordinateColor = lipgloss.AdaptiveColor{Light: "#005CC5", Dark: "#8BE9FD"}
	NumberColor     = lipgloss.AdaptiveColor{Light: "#6F42C1", Dark: "#BD93F9"}
	WordColor       = lipgloss.AdaptiveColor{Light: "#24292E", Dark: "#F8F8F2"}
	BadColor        = lipgloss.AdaptiveColor{Light: "#B31D28", Dark: "#FF5555"}
)

// Token highlight styles.
var (
	CommentStyle = lipgloss.NewStyle().
			Foreground(CommentColor).
			Italic(true)

	// CommandStyle for G/M/T words.
	CommandStyle = lipgloss.NewStyle().
			Foreground(CommandColor).
			Bold(true)

	CoordinateStyle = lipgloss.NewStyle().
			Foreground(CoordinateColor)

	NumberStyle = lipgloss.NewStyle().
			Foreground(NumberColor)

	WordStyle = lipgloss.NewStyle().
			Foreground(WordColor)

	BadStyle = lipgloss.NewStyle().
			Foreground(BadColor).
			Underline(true)

	// DefaultStyle renders text unchanged.
	DefaultStyle = lipgloss.NewStyle()
)

// StyleFor returns the highlight style for a token kind.
func StyleFor(k Kind) lipgloss.Style {
	switch k {
	case KindComment:
		return CommentStyle
	case KindCommand:
		return CommandStyle
	case KindCoordinate:
		return CoordinateStyle
	case KindNumber:
		return NumberStyle
	case KindWord:
		return WordStyle
	case KindBad:
		return BadStyle
	default:
		return DefaultStyle
	}
}
