package gcode

import "github.com/ncviewer/ncviewer/internal/log"

// Lexer is a restartable cursor over the tokens of src[start:end).
//
//	var lx gcode.Lexer
//	lx.Reset(src, 0, len(src))
//	for tok, ok := lx.Current(); ok; tok, ok = lx.Current() {
//	    ...
//	    lx.Advance()
//	}
//
// Every byte of the range lands in exactly one token; unknown input degrades
// to KindWord so the lexer never fails.
type Lexer struct {
	src   string
	end   int
	tok   Token
	valid bool
	trace bool
}

// NewLexer returns a lexer positioned on the first token of src.
func NewLexer(src string) *Lexer {
	l := &Lexer{}
	l.Reset(src, 0, len(src))
	return l
}

// SetTrace enables per-token debug logging.
func (l *Lexer) SetTrace(on bool) {
	l.trace = on
}

// Reset restarts scanning over src[start:end) and positions the lexer on the
// first token. Out-of-range bounds are clamped.
func (l *Lexer) Reset(src string, start, end int) {
	if end > len(src) {
		end = len(src)
	}
	if start < 0 {
		start = 0
	}
	if start > end {
		start = end
	}
	l.src = src
	l.end = end
	l.tok = Token{Start: start, End: start}
	l.valid = true
	if l.trace {
		log.Debug(log.CatLexer, "reset", "start", start, "end", end)
	}
	l.Advance()
}

// Current returns the token under the cursor. ok is false once the range is
// exhausted.
func (l *Lexer) Current() (Token, bool) {
	if !l.valid {
		return Token{}, false
	}
	return l.tok, true
}

// Src returns the buffer being scanned.
func (l *Lexer) Src() string {
	return l.src
}

// Advance moves to the next token.
func (l *Lexer) Advance() {
	if !l.valid {
		return
	}
	start := l.tok.End
	if start >= l.end {
		l.valid = false
		if l.trace {
			log.Debug(log.CatLexer, "end of range", "offset", start)
		}
		return
	}

	c := l.src[start]
	var kind Kind
	var end int
	switch {
	case c == '(':
		kind, end = KindComment, l.scanComment(start)
	case isWhitespace(c):
		kind, end = KindWhitespace, l.scanWhile(start+1, isWhitespace)
	case isCommandLetter(c):
		kind, end = KindCommand, l.scanWhile(start+1, func(b byte) bool { return isLetter(b) || isDigit(b) })
	case isCoordinateLetter(c):
		kind, end = KindCoordinate, l.scanWhile(start+1, func(b byte) bool {
			return isDigit(b) || b == '.' || b == '-' || b == '+'
		})
	case isDigit(c) || c == '-' || c == '+':
		kind, end = KindNumber, l.scanWhile(start+1, func(b byte) bool { return isDigit(b) || b == '.' })
	default:
		kind, end = KindWord, l.scanWhile(start+1, func(b byte) bool { return !isWhitespace(b) })
	}

	l.tok = Token{Kind: kind, Start: start, End: end}
	if l.trace {
		log.Debug(log.CatLexer, "token", "kind", kind, "start", start, "end", end, "text", l.src[start:end])
	}
}

// scanComment consumes through the closing ')' or stops before a line break.
func (l *Lexer) scanComment(start int) int {
	i := start + 1
	for i < l.end {
		switch l.src[i] {
		case ')':
			return i + 1
		case '\n', '\r':
			return i
		}
		i++
	}
	return i
}

func (l *Lexer) scanWhile(i int, pred func(byte) bool) int {
	for i < l.end && pred(l.src[i]) {
		i++
	}
	return i
}

// Tokens scans the whole of src eagerly.
func Tokens(src string) []Token {
	var out []Token
	l := NewLexer(src)
	for tok, ok := l.Current(); ok; tok, ok = l.Current() {
		out = append(out, tok)
		l.Advance()
	}
	return out
}
