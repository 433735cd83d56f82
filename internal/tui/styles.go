package tui

import "github.com/charmbracelet/lipgloss"

var (
	textPrimaryColor = lipgloss.AdaptiveColor{Light: "#1F2328", Dark: "#CCCCCC"}
	textMutedColor   = lipgloss.AdaptiveColor{Light: "#8C8C8C", Dark: "#696969"}
	borderColor      = lipgloss.AdaptiveColor{Light: "#D9DCCF", Dark: "#8C8C8C"}
	caretColor       = lipgloss.AdaptiveColor{Light: "#1A5276", Dark: "#54A0FF"}
	selectedColor    = lipgloss.AdaptiveColor{Light: "#5F3DC4", Dark: "#FF79C6"}
	successColor     = lipgloss.AdaptiveColor{Light: "#43BF6D", Dark: "#73F59F"}
	warningColor     = lipgloss.AdaptiveColor{Light: "#FECA57", Dark: "#FECA57"}
	errorColor       = lipgloss.AdaptiveColor{Light: "#FF6B6B", Dark: "#FF8787"}
	infoColor        = lipgloss.AdaptiveColor{Light: "#54A0FF", Dark: "#54A0FF"}

	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(textPrimaryColor)
	mutedStyle = lipgloss.NewStyle().Foreground(textMutedColor)

	gutterStyle       = lipgloss.NewStyle().Foreground(textMutedColor)
	caretGutterStyle  = lipgloss.NewStyle().Bold(true).Foreground(caretColor)
	selectedMarkStyle = lipgloss.NewStyle().Foreground(selectedColor)

	readyStyle   = lipgloss.NewStyle().Foreground(successColor)
	pendingStyle = lipgloss.NewStyle().Foreground(warningColor)
	errorStyle   = lipgloss.NewStyle().Foreground(errorColor)

	dividerStyle = lipgloss.NewStyle().Foreground(borderColor)
)

// levelStyle colors a log entry by its level tag.
func levelStyle(entry string) lipgloss.Style {
	switch entryLevelTag(entry) {
	case "ERROR":
		return lipgloss.NewStyle().Foreground(errorColor)
	case "WARN":
		return lipgloss.NewStyle().Foreground(warningColor)
	case "INFO":
		return lipgloss.NewStyle().Foreground(infoColor)
	case "DEBUG":
		return mutedStyle
	default:
		return lipgloss.NewStyle().Foreground(textPrimaryColor)
	}
}
