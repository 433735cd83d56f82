package presentation

import (
	"time"

	"github.com/ncviewer/ncviewer/internal/diagnostics"
	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/toolpath"
)

// TokenDTO is one lexer token with its 1-based source line.
type TokenDTO struct {
	Kind  string `json:"kind"`
	Text  string `json:"text"`
	Line  int    `json:"line"`
	Start int    `json:"start"`
	End   int    `json:"end"`
}

// FromTokens converts toks over src, skipping whitespace unless keepSpace.
func FromTokens(src string, toks []gcode.Token, keepSpace bool) []TokenDTO {
	out := make([]TokenDTO, 0, len(toks))
	line := 1
	for _, t := range toks {
		text := t.Text(src)
		if keepSpace || t.Kind != gcode.KindWhitespace {
			out = append(out, TokenDTO{
				Kind:  t.Kind.String(),
				Text:  text,
				Line:  line,
				Start: t.Start,
				End:   t.End,
			})
		}
		for i := 0; i < len(text); i++ {
			if text[i] == '\n' {
				line++
			}
		}
	}
	return out
}

// ToolpathDTO is an extraction result.
type ToolpathDTO struct {
	Segments  int                 `json:"segments"`
	Dropped   int                 `json:"dropped"`
	Exclude   []string            `json:"exclude"`
	Movements []toolpath.Movement `json:"movements"`
}

// FromResult converts r. exclude is listed sorted.
func FromResult(r toolpath.Result, exclude toolpath.ExcludeSet) ToolpathDTO {
	movements := r.Movements
	if movements == nil {
		movements = []toolpath.Movement{}
	}
	return ToolpathDTO{
		Segments:  r.SegmentCount(),
		Dropped:   r.Dropped,
		Exclude:   exclude.Codes(),
		Movements: movements,
	}
}

// DebugEntryDTO is one persisted surface debug message.
type DebugEntryDTO struct {
	ID        int64     `json:"id"`
	SessionID string    `json:"session_id"`
	Source    string    `json:"source"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// FromEntries converts diagnostics entries.
func FromEntries(entries []diagnostics.Entry) []DebugEntryDTO {
	out := make([]DebugEntryDTO, len(entries))
	for i, e := range entries {
		out[i] = DebugEntryDTO{
			ID:        e.ID,
			SessionID: e.SessionID,
			Source:    e.Source,
			Message:   e.Message,
			CreatedAt: e.CreatedAt,
		}
	}
	return out
}
