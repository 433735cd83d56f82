// Package protocol defines the JSON messages exchanged between a host and a
// rendering surface over the bridge.
package protocol

import (
	"encoding/json"
	"errors"
	"fmt"
)

// Message types sent by the host.
const (
	TypeLoadGCode             = "loadGCode"
	TypeContentChanged        = "contentChanged"
	TypeCursorPositionChanged = "cursorPositionChanged"
)

// Message types sent by the rendering surface.
const (
	TypeWebviewReady  = "webviewReady"
	TypeHighlightLine = "highlightLine"
	TypeBridgeDebug   = "bridgeDebug"
)

var (
	// ErrMissingType is returned when a payload has no "type" field.
	ErrMissingType = errors.New("message has no type")
	// ErrUnknownType is returned for an unrecognised "type".
	ErrUnknownType = errors.New("unknown message type")
)

// Settings travel with every program load.
type Settings struct {
	ExcludeCodes []string `json:"excludeCodes"`
}

// Message is the union of every payload; Type selects which fields apply.
type Message struct {
	Type         string    `json:"type"`
	NCText       string    `json:"ncText,omitempty"`
	Settings     *Settings `json:"settings,omitempty"`
	LineNumber   *uint32   `json:"lineNumber,omitempty"`
	DebugMessage string    `json:"debugMessage,omitempty"`
}

// LoadGCode replaces the surface's program and re-frames the view.
func LoadGCode(text string, settings Settings) Message {
	return Message{Type: TypeLoadGCode, NCText: text, Settings: &settings}
}

// ContentChanged replaces the program without re-framing.
func ContentChanged(text string, settings Settings) Message {
	return Message{Type: TypeContentChanged, NCText: text, Settings: &settings}
}

// CursorPositionChanged reports the host caret's 1-based line.
func CursorPositionChanged(line uint32) Message {
	return Message{Type: TypeCursorPositionChanged, LineNumber: &line}
}

// WebviewReady announces the surface can receive messages.
func WebviewReady() Message {
	return Message{Type: TypeWebviewReady}
}

// HighlightLine asks the host to move its caret to a 1-based line.
func HighlightLine(line uint32) Message {
	return Message{Type: TypeHighlightLine, LineNumber: &line}
}

// BridgeDebug carries a diagnostic line from the surface.
func BridgeDebug(msg string) Message {
	return Message{Type: TypeBridgeDebug, DebugMessage: msg}
}

// Line returns the message's line number, or 0 when absent.
func (m Message) Line() uint32 {
	if m.LineNumber == nil {
		return 0
	}
	return *m.LineNumber
}

// ExcludeCodes returns the settings' exclude list, or nil.
func (m Message) ExcludeCodes() []string {
	if m.Settings == nil {
		return nil
	}
	return m.Settings.ExcludeCodes
}

// FromHost reports whether the type is one the host sends.
func (m Message) FromHost() bool {
	switch m.Type {
	case TypeLoadGCode, TypeContentChanged, TypeCursorPositionChanged:
		return true
	}
	return false
}

// FromSurface reports whether the type is one the surface sends.
func (m Message) FromSurface() bool {
	switch m.Type {
	case TypeWebviewReady, TypeHighlightLine, TypeBridgeDebug:
		return true
	}
	return false
}

// Encode marshals m to its wire form.
func Encode(m Message) (string, error) {
	b, err := json.Marshal(m)
	if err != nil {
		return "", fmt.Errorf("encode %s: %w", m.Type, err)
	}
	return string(b), nil
}

// MustEncode is Encode for messages built by the constructors above, which
// always marshal.
func MustEncode(m Message) string {
	s, err := Encode(m)
	if err != nil {
		panic(err)
	}
	return s
}

// Decode parses a wire payload. Unknown fields are ignored; a missing or
// unknown type is an error.
func Decode(payload string) (Message, error) {
	var m Message
	if err := json.Unmarshal([]byte(payload), &m); err != nil {
		return Message{}, fmt.Errorf("decode message: %w", err)
	}
	if m.Type == "" {
		return Message{}, ErrMissingType
	}
	if !m.FromHost() && !m.FromSurface() {
		return m, fmt.Errorf("%w: %q", ErrUnknownType, m.Type)
	}
	return m, nil
}
