package toolpath

import (
	"context"
	"strconv"
	"strings"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/tracing"
)

const (
	// DefaultMaxMovements caps a single extraction.
	DefaultMaxMovements = 2_000_000
	// DefaultArcSegments is the number of chords per interpolated arc.
	DefaultArcSegments = 64
)

// Options tunes an Extractor.
type Options struct {
	// MaxMovements bounds len(Result.Movements), origin included. Zero means
	// unlimited.
	MaxMovements int
	// ArcSegments is the chord count per G2/G3 arc. Values below 2 draw arcs
	// as straight lines.
	ArcSegments int
	// TraceLexer logs every token read during extraction.
	TraceLexer bool
}

// DefaultOptions returns the standard limits.
func DefaultOptions() Options {
	return Options{MaxMovements: DefaultMaxMovements, ArcSegments: DefaultArcSegments}
}

// TokenSource is a token cursor; *gcode.Lexer satisfies it.
type TokenSource interface {
	Current() (gcode.Token, bool)
	Advance()
}

// Extractor runs the modal state machine over a token stream. It holds no
// per-run state and is safe for concurrent use.
type Extractor struct {
	opts Options
}

// NewExtractor returns an extractor with opts.
func NewExtractor(opts Options) *Extractor {
	if opts.MaxMovements < 0 {
		opts.MaxMovements = 0
	}
	return &Extractor{opts: opts}
}

// Options returns the extractor's configuration.
func (e *Extractor) Options() Options {
	return e.opts
}

// Extract tokenizes text and folds it into movements with the default
// options.
func Extract(text string, exclude ExcludeSet) Result {
	return NewExtractor(DefaultOptions()).Extract(context.Background(), text, exclude)
}

// Extract tokenizes text and folds it into movements.
func (e *Extractor) Extract(ctx context.Context, text string, exclude ExcludeSet) Result {
	_, span := tracing.Start(ctx, tracing.SpanToolpathExtract,
		attribute.Int(tracing.AttrTextBytes, len(text)),
		attribute.Int(tracing.AttrExcludeCount, len(exclude)),
	)
	defer span.End()

	var lx gcode.Lexer
	lx.SetTrace(e.opts.TraceLexer)
	lx.Reset(text, 0, len(text))
	res := e.ExtractTokens(text, &lx, exclude)

	span.SetAttributes(
		attribute.Int(tracing.AttrMovementCount, len(res.Movements)),
		attribute.Int(tracing.AttrMovementDropped, res.Dropped),
	)
	return res
}

// ExtractTokens folds an existing token stream over src into movements.
func (e *Extractor) ExtractTokens(src string, toks TokenSource, exclude ExcludeSet) Result {
	st := &state{
		opts:      e.opts,
		exclude:   exclude,
		movements: []Movement{Origin},
		line:      lineWords{number: 1},
	}

	// A command glued to what follows ("G1X10Y5") is one compact block.
	blockStart, blockEnd := -1, -1
	flush := func() {
		if blockStart >= 0 {
			st.block(src[blockStart:blockEnd])
			blockStart = -1
		}
	}

	for tok, ok := toks.Current(); ok; tok, ok = toks.Current() {
		if blockStart >= 0 && tok.Start == blockEnd && tok.Kind != gcode.KindWhitespace && tok.Kind != gcode.KindComment {
			blockEnd = tok.End
			toks.Advance()
			continue
		}
		flush()
		switch tok.Kind {
		case gcode.KindWhitespace:
			if n := gcode.LineBreaks(tok.Text(src)); n > 0 {
				st.endLine()
				st.line = lineWords{number: st.line.number + uint32(n)}
			}
		case gcode.KindCommand:
			blockStart, blockEnd = tok.Start, tok.End
		case gcode.KindCoordinate:
			st.line.word(tok.Text(src))
		}
		toks.Advance()
	}
	flush()
	st.endLine()

	if st.dropped > 0 {
		log.Warn(log.CatToolpath, "toolpath truncated", "kept", len(st.movements), "dropped", st.dropped)
	}
	if st.skipped > 0 {
		log.Debug(log.CatToolpath, "skipped garbled lines", "count", st.skipped)
	}
	return Result{Movements: st.movements, Dropped: st.dropped}
}

// block splits a compact block into words at each letter and folds them
// into the current line.
func (s *state) block(text string) {
	if i := strings.IndexByte(text, '('); i >= 0 {
		text = text[:i]
	}
	if text == "" {
		return
	}
	start := 0
	for i := 1; i <= len(text); i++ {
		if i < len(text) && !isLetter(text[i]) {
			continue
		}
		w := text[start:i]
		start = i
		switch w[0] {
		case 'G', 'g', 'M', 'm', 'T', 't':
			s.line.commands = append(s.line.commands, NormalizeCode(w))
		default:
			s.line.word(w)
		}
	}
}

func isLetter(c byte) bool {
	return c >= 'a' && c <= 'z' || c >= 'A' && c <= 'Z'
}

// axis flags.
const (
	hasX = 1 << iota
	hasY
	hasZ
	hasI
	hasJ
	hasR
)

// lineWords collects the words of one source line.
type lineWords struct {
	number   uint32
	commands []string
	x, y, z  float64
	i, j, r  float64
	set      int
	garbled  bool
}

func (l *lineWords) word(text string) {
	letter := text[0]
	if letter >= 'a' && letter <= 'z' {
		letter -= 'a' - 'A'
	}
	var dst *float64
	var flag int
	switch letter {
	case 'X':
		dst, flag = &l.x, hasX
	case 'Y':
		dst, flag = &l.y, hasY
	case 'Z':
		dst, flag = &l.z, hasZ
	case 'I':
		dst, flag = &l.i, hasI
	case 'J':
		dst, flag = &l.j, hasJ
	case 'R':
		dst, flag = &l.r, hasR
	default:
		return
	}
	v, err := strconv.ParseFloat(text[1:], 64)
	if err != nil {
		l.garbled = true
		return
	}
	*dst = v
	l.set |= flag
}

func (l *lineWords) moves() bool {
	return l.set&(hasX|hasY|hasZ) != 0
}

func isMotion(code string) bool {
	switch code {
	case "G0", "G1", "G2", "G3":
		return true
	}
	return false
}

// state is the modal machine for one extraction.
type state struct {
	opts      Options
	exclude   ExcludeSet
	movements []Movement
	dropped   int
	skipped   int

	x, y, z float64
	active  string
	line    lineWords
}

func (s *state) endLine() {
	l := &s.line
	if len(l.commands) == 0 && l.set == 0 && !l.garbled {
		return
	}

	kept := 0
	for _, c := range l.commands {
		if s.exclude.Contains(c) {
			continue
		}
		kept++
		if isMotion(c) {
			s.active = c
		}
	}
	if len(l.commands) > 0 && kept == 0 {
		return
	}
	if !l.moves() || s.active == "" {
		return
	}
	if l.garbled {
		s.skipped++
		return
	}

	tx, ty, tz := s.x, s.y, s.z
	if l.set&hasX != 0 {
		tx = l.x
	}
	if l.set&hasY != 0 {
		ty = l.y
	}
	if l.set&hasZ != 0 {
		tz = l.z
	}

	if s.active == "G2" || s.active == "G3" {
		s.arc(tx, ty, tz)
	} else {
		s.emit(tx, ty, tz)
	}
	s.x, s.y, s.z = tx, ty, tz
}

func (s *state) emit(x, y, z float64) {
	if s.opts.MaxMovements > 0 && len(s.movements) >= s.opts.MaxMovements {
		s.dropped++
		return
	}
	s.movements = append(s.movements, Movement{
		X:          x,
		Y:          y,
		Z:          z,
		Command:    s.active,
		LineNumber: s.line.number,
	})
}
