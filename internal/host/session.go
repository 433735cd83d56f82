// Package host is the editor side of the bridge: it publishes a document
// and its caret to a rendering surface and applies the surface's requests.
package host

import (
	"context"
	"errors"
	"sync"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ncviewer/ncviewer/internal/bridge"
	"github.com/ncviewer/ncviewer/internal/diagnostics"
	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/pubsub"
	"github.com/ncviewer/ncviewer/internal/tracing"
)

// Document is the program buffer shown by the surface.
type Document interface {
	Text() string
	LineCount() int
}

// Caret is the host cursor. Lines are 0-based.
type Caret interface {
	Line() int
	MoveTo(line int)
}

// Channel is the part of a bridge.Channel a session uses.
type Channel interface {
	Publish(message string) (uint64, error)
	AddListener(fn bridge.Listener) (remove func())
}

// DebugStore persists surface debug messages.
type DebugStore interface {
	Append(ctx context.Context, source, message string) (diagnostics.Entry, error)
}

// Options configures a Session.
type Options struct {
	// Settings supplies the settings sent with every program. Nil sends
	// empty settings, which the surface treats as the default exclude list.
	Settings func() protocol.Settings
	Debug    DebugStore
	Flags    *flags.Registry
}

// Session binds one document and caret to a channel. Outbound messages
// wait in a ReadyGate until the surface reports webviewReady.
type Session struct {
	ch     Channel
	gate   *bridge.ReadyGate
	opts   Options
	remove func()
	events *pubsub.Broker[protocol.Message]

	mu    sync.Mutex
	doc   Document
	caret Caret
}

// NewSession registers a listener on ch. Call Close to remove it.
func NewSession(ch Channel, opts Options) *Session {
	s := &Session{
		ch:     ch,
		opts:   opts,
		events: pubsub.NewBroker[protocol.Message](),
	}
	s.gate = bridge.NewReadyGate(func(msg string) error {
		_, err := ch.Publish(msg)
		return err
	})
	s.remove = ch.AddListener(s.handle)
	return s
}

// Events reports outbound messages as PublishedEvent once handed to the
// gate, and surface messages as HandledEvent after they were applied.
func (s *Session) Events() pubsub.Subscriber[protocol.Message] {
	return s.events
}

// Ready reports whether the surface announced itself.
func (s *Session) Ready() bool {
	return s.gate.State() == bridge.Ready
}

// Pending returns the number of messages waiting for the surface.
func (s *Session) Pending() int {
	return s.gate.Pending()
}

// Attach shows doc. Attaching a different document drops messages still
// queued for the previous one; a surface that is already ready stays ready
// and receives the new program at once.
func (s *Session) Attach(doc Document, caret Caret) error {
	s.mu.Lock()
	changed := s.doc != doc
	s.doc, s.caret = doc, caret
	s.mu.Unlock()

	if changed {
		s.gate.Clear()
	}
	log.Debug(log.CatHost, "attach", "new_document", changed, "lines", doc.LineCount())
	return s.sendLoad()
}

// Reload resends the whole program, re-framing the surface's view.
func (s *Session) Reload() error {
	return s.sendLoad()
}

// DocumentChanged sends the edited program without re-framing.
func (s *Session) DocumentChanged() error {
	doc := s.document()
	if doc == nil {
		return nil
	}
	return s.send(protocol.ContentChanged(doc.Text(), s.settings()))
}

// CaretMoved reports a 0-based caret line; the wire carries it 1-based.
func (s *Session) CaretMoved(line int) error {
	if line < 0 {
		line = 0
	}
	return s.send(protocol.CursorPositionChanged(uint32(line) + 1))
}

// Close stops listening and drops queued messages.
func (s *Session) Close() {
	s.remove()
	s.gate.Reset()
	s.events.Close()
}

func (s *Session) sendLoad() error {
	doc := s.document()
	if doc == nil {
		return nil
	}
	return s.send(protocol.LoadGCode(doc.Text(), s.settings()))
}

func (s *Session) send(msg protocol.Message) error {
	payload, err := protocol.Encode(msg)
	if err != nil {
		return err
	}
	if err := s.gate.Send(payload); err != nil {
		return err
	}
	s.events.Publish(pubsub.PublishedEvent, msg)
	return nil
}

func (s *Session) settings() protocol.Settings {
	if s.opts.Settings == nil {
		return protocol.Settings{}
	}
	return s.opts.Settings()
}

func (s *Session) document() Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.doc
}

// handle applies one surface message. It runs on the channel's request
// goroutine.
func (s *Session) handle(payload string) error {
	ctx, span := tracing.Start(context.Background(), tracing.SpanHostIncoming)
	defer span.End()

	msg, err := protocol.Decode(payload)
	if err != nil {
		if errors.Is(err, protocol.ErrUnknownType) {
			log.Warn(log.CatHost, "unknown message type", "type", msg.Type)
			span.SetAttributes(attribute.String(tracing.AttrMessageType, msg.Type))
			return nil
		}
		span.SetStatus(codes.Error, err.Error())
		log.Warn(log.CatHost, "undecodable message", "error", err)
		return err
	}
	span.SetAttributes(attribute.String(tracing.AttrMessageType, msg.Type))

	switch msg.Type {
	case protocol.TypeWebviewReady:
		s.onReady()
	case protocol.TypeHighlightLine:
		s.onHighlight(msg.Line())
	case protocol.TypeBridgeDebug:
		s.onDebug(ctx, msg.DebugMessage)
	default:
		log.Warn(log.CatHost, "unexpected message from surface", "type", msg.Type)
		return nil
	}
	s.events.Publish(pubsub.HandledEvent, msg)
	return nil
}

func (s *Session) onReady() {
	flushed, err := s.gate.MarkReady()
	if err != nil {
		log.ErrorErr(log.CatHost, "flush after ready failed", err)
	}
	log.Info(log.CatHost, "surface ready", "flushed", flushed)
	if err := s.sendLoad(); err != nil {
		log.ErrorErr(log.CatHost, "resend after ready failed", err)
	}
}

func (s *Session) onHighlight(line uint32) {
	s.mu.Lock()
	doc, caret := s.doc, s.caret
	s.mu.Unlock()
	if doc == nil || caret == nil {
		return
	}
	target, ok := ClampLine(line, doc.LineCount())
	if !ok {
		return
	}
	caret.MoveTo(target)
}

// ClampLine converts a 1-based wire line to a 0-based caret line inside a
// document of count lines. ok is false for an empty document.
func ClampLine(line uint32, count int) (int, bool) {
	if count < 1 {
		return 0, false
	}
	target := int(line) - 1
	return min(max(target, 0), count-1), true
}

func (s *Session) onDebug(ctx context.Context, text string) {
	log.Info(log.CatHost, "surface debug", "message", text)
	if s.opts.Debug == nil || !s.opts.Flags.Enabled(flags.FlagPersistDebugLog) {
		return
	}
	if _, err := s.opts.Debug.Append(ctx, "surface", text); err != nil {
		log.ErrorErr(log.CatHost, "persist debug message failed", err)
	}
}
