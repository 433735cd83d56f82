// Package gcode tokenizes G-code (NC) program text. The same token stream
// drives editor highlighting and toolpath extraction.
package gcode

import "strings"

// Kind classifies a token.
type Kind int

const (
	KindComment    Kind = iota // (parenthesised comment)
	KindCommand                // G0, M30, T1
	KindCoordinate             // X-10.5, F100, I2
	KindNumber                 // bare numeric literal
	KindWord                   // anything unrecognised
	KindWhitespace             // spaces, tabs, CR, LF
	KindBad                    // reserved for host highlighters; the lexer never emits it
)

// String returns the debug name of the kind.
func (k Kind) String() string {
	switch k {
	case KindComment:
		return "COMMENT"
	case KindCommand:
		return "COMMAND"
	case KindCoordinate:
		return "COORDINATE"
	case KindNumber:
		return "NUMBER"
	case KindWord:
		return "WORD"
	case KindWhitespace:
		return "WHITESPACE"
	case KindBad:
		return "BAD"
	default:
		return "UNKNOWN"
	}
}

// Token is a classified span of the source, src[Start:End].
type Token struct {
	Kind  Kind
	Start int
	End   int
}

// Text returns the token's source text.
func (t Token) Text(src string) string {
	return src[t.Start:t.End]
}

// Len returns the token length in bytes.
func (t Token) Len() int {
	return t.End - t.Start
}

// Letter returns the upper-cased leading letter of a command or coordinate
// token, or 0 for other kinds.
func (t Token) Letter(src string) byte {
	if t.Kind != KindCommand && t.Kind != KindCoordinate || t.Len() == 0 {
		return 0
	}
	return upper(src[t.Start])
}

// Mnemonic returns the upper-cased text of a command token ("g1" -> "G1").
func (t Token) Mnemonic(src string) string {
	return strings.ToUpper(t.Text(src))
}

func upper(c byte) byte {
	if c >= 'a' && c <= 'z' {
		return c - ('a' - 'A')
	}
	return c
}

func isWhitespace(c byte) bool {
	return c == ' ' || c == '\t' || c == '\n' || c == '\r'
}

func isDigit(c byte) bool {
	return c >= '0' && c <= '9'
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isCommandLetter(c byte) bool {
	switch upper(c) {
	case 'G', 'M', 'T':
		return true
	}
	return false
}

func isCoordinateLetter(c byte) bool {
	switch upper(c) {
	case 'X', 'Y', 'Z', 'I', 'J', 'K', 'A', 'B', 'C', 'F', 'S', 'P', 'R', 'E':
		return true
	}
	return false
}
