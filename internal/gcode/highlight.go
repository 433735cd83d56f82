package gcode

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Highlight applies syntax highlighting to G-code text and returns it with
// ANSI color codes. Whitespace (including line breaks) is copied through
// unstyled so multi-line programs keep their layout.
func Highlight(text string) string {
	if text == "" {
		return ""
	}

	var b strings.Builder
	b.Grow(len(text) * 2)
	l := NewLexer(text)
	for tok, ok := l.Current(); ok; tok, ok = l.Current() {
		if tok.Kind == KindWhitespace {
			b.WriteString(tok.Text(text))
		} else {
			b.WriteString(StyleFor(tok.Kind).Render(tok.Text(text)))
		}
		l.Advance()
	}
	return b.String()
}

// SyntaxToken is a styled span within a single line. Start and End are byte
// offsets, End exclusive.
type SyntaxToken struct {
	Start int
	End   int
	Kind  Kind
	Style lipgloss.Style
}

// SyntaxTokens returns the styled spans of one line. Whitespace is not
// reported; callers render gaps as plain text.
func SyntaxTokens(line string) []SyntaxToken {
	if line == "" {
		return nil
	}
	var out []SyntaxToken
	l := NewLexer(line)
	for tok, ok := l.Current(); ok; tok, ok = l.Current() {
		if tok.Kind != KindWhitespace {
			out = append(out, SyntaxToken{
				Start: tok.Start,
				End:   tok.End,
				Kind:  tok.Kind,
				Style: StyleFor(tok.Kind),
			})
		}
		l.Advance()
	}
	return out
}

// RenderLine renders a single line from its syntax tokens, leaving the gaps
// between them unstyled.
func RenderLine(line string, toks []SyntaxToken) string {
	var b strings.Builder
	last := 0
	for _, t := range toks {
		if t.Start > last {
			b.WriteString(line[last:t.Start])
		}
		b.WriteString(t.Style.Render(line[t.Start:t.End]))
		last = t.End
	}
	if last < len(line) {
		b.WriteString(line[last:])
	}
	return b.String()
}
