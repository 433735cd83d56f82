// Package tui is the terminal host: it shows the program with its caret,
// follows the viewer's selection, and lets the user move the caret.
package tui

import (
	"context"
	"fmt"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	zone "github.com/lrstanley/bubblezone"

	"github.com/ncviewer/ncviewer/internal/bridge"
	"github.com/ncviewer/ncviewer/internal/gcode"
	"github.com/ncviewer/ncviewer/internal/host"
	"github.com/ncviewer/ncviewer/internal/keys"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/pubsub"
	"github.com/ncviewer/ncviewer/internal/viewer"
)

// Buffer is the document the model shows and moves the caret in.
type Buffer interface {
	host.Document
	host.Caret
}

// Info is shown in the header.
type Info struct {
	Path     string
	Endpoint string
	// Page is the patched viewer page, if one was written.
	Page string
}

// Config wires a Model. Only Doc is required.
type Config struct {
	Doc     Buffer
	Session *host.Session
	// Engine is an in-process surface's engine. It enables segment stepping,
	// theme switching and selection markers.
	Engine   *viewer.Engine
	Surface  pubsub.Subscriber[protocol.Message]
	Activity pubsub.Subscriber[bridge.Activity]
	// Reload re-reads the document from disk.
	Reload func() error
	Info   Info
	Theme  string
}

type (
	sessionMsg  struct{ pubsub.Event[protocol.Message] }
	surfaceMsg  struct{ pubsub.Event[protocol.Message] }
	activityMsg struct{ pubsub.Event[bridge.Activity] }
	logMsg      struct{ pubsub.Event[string] }
)

// Model is the Bubble Tea model for `ncviewer open`.
type Model struct {
	cfg    Config
	keys   keys.KeyMap
	help   help.Model
	width  int
	height int

	text   string
	lines  []string
	offset int

	theme    string
	showHelp bool
	helpView string

	status    string
	statusErr bool
	activity  string
	logs      logPane

	sessionL  *pubsub.ContinuousListener[protocol.Message]
	surfaceL  *pubsub.ContinuousListener[protocol.Message]
	activityL *pubsub.ContinuousListener[bridge.Activity]
	logL      *log.LogListener
}

// New returns a model for cfg. Listeners live until ctx ends.
func New(ctx context.Context, cfg Config) Model {
	theme := cfg.Theme
	if theme == "" {
		theme = viewer.DarkPalette.Name
	}
	m := Model{
		cfg:   cfg,
		keys:  keys.DefaultKeyMap(),
		help:  help.New(),
		theme: theme,
		logs:  newLogPane(),
		logL:  log.NewListener(ctx),
	}
	if cfg.Session != nil {
		m.sessionL = pubsub.NewContinuousListener(ctx, cfg.Session.Events())
	}
	if cfg.Surface != nil {
		m.surfaceL = pubsub.NewContinuousListener(ctx, cfg.Surface)
	}
	if cfg.Activity != nil {
		m.activityL = pubsub.NewContinuousListener(ctx, cfg.Activity)
	}
	m.syncText()
	return m
}

// listen re-issues l's command, wrapping its event with wrap.
func listen[T any](l *pubsub.ContinuousListener[T], wrap func(pubsub.Event[T]) tea.Msg) tea.Cmd {
	if l == nil {
		return nil
	}
	next := l.Listen()
	return func() tea.Msg {
		ev, ok := next().(pubsub.Event[T])
		if !ok {
			return nil
		}
		return wrap(ev)
	}
}

func (m Model) listenSession() tea.Cmd {
	return listen(m.sessionL, func(e pubsub.Event[protocol.Message]) tea.Msg { return sessionMsg{e} })
}

func (m Model) listenSurface() tea.Cmd {
	return listen(m.surfaceL, func(e pubsub.Event[protocol.Message]) tea.Msg { return surfaceMsg{e} })
}

func (m Model) listenActivity() tea.Cmd {
	return listen(m.activityL, func(e pubsub.Event[bridge.Activity]) tea.Msg { return activityMsg{e} })
}

func (m Model) listenLog() tea.Cmd {
	return listen(m.logL, func(e pubsub.Event[string]) tea.Msg { return logMsg{e} })
}

// Init implements tea.Model.
func (m Model) Init() tea.Cmd {
	return tea.Batch(m.listenSession(), m.listenSurface(), m.listenActivity(), m.listenLog())
}

// Update implements tea.Model.
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.help.Width = msg.Width
		m.logs.setWidth(msg.Width)
		if m.showHelp {
			m.helpView = renderHelp(m.keys, m.theme, m.width)
		}
		m.ensureCaretVisible()
		return m, nil

	case sessionMsg:
		m.syncText()
		m.describeSession(msg.Event)
		m.ensureCaretVisible()
		return m, m.listenSession()

	case surfaceMsg:
		if msg.Type == pubsub.ConnectedEvent {
			m.setStatus("surface connected", false)
		}
		return m, m.listenSurface()

	case activityMsg:
		m.describeActivity(msg.Event)
		return m, m.listenActivity()

	case logMsg:
		m.logs.append(msg.Payload)
		return m, m.listenLog()

	case tea.MouseMsg:
		return m.handleMouse(msg)

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.showHelp {
		switch {
		case key.Matches(msg, m.keys.Help), key.Matches(msg, m.keys.Escape):
			m.showHelp = false
		case key.Matches(msg, m.keys.Quit):
			return m, tea.Quit
		}
		return m, nil
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit
	case key.Matches(msg, m.keys.Help):
		m.showHelp = true
		m.helpView = renderHelp(m.keys, m.theme, m.width)
	case key.Matches(msg, m.keys.Up):
		m.moveCaret(m.cfg.Doc.Line() - 1)
	case key.Matches(msg, m.keys.Down):
		m.moveCaret(m.cfg.Doc.Line() + 1)
	case key.Matches(msg, m.keys.PageUp):
		m.moveCaret(m.cfg.Doc.Line() - m.bodyHeight())
	case key.Matches(msg, m.keys.PageDown):
		m.moveCaret(m.cfg.Doc.Line() + m.bodyHeight())
	case key.Matches(msg, m.keys.Top):
		m.moveCaret(0)
	case key.Matches(msg, m.keys.Bottom):
		m.moveCaret(m.cfg.Doc.LineCount() - 1)
	case key.Matches(msg, m.keys.PrevSegment):
		m.step(-1)
	case key.Matches(msg, m.keys.NextSegment):
		m.step(1)
	case key.Matches(msg, m.keys.Theme):
		m.toggleTheme()
	case key.Matches(msg, m.keys.Reload):
		m.reload()
	case key.Matches(msg, m.keys.Logs):
		m.logs.toggle()
		m.ensureCaretVisible()
	case key.Matches(msg, m.keys.LogFilter):
		if m.logs.visible {
			m.logs.cycleLevel()
		}
	}
	return m, nil
}

func (m Model) handleMouse(msg tea.MouseMsg) (tea.Model, tea.Cmd) {
	if m.showHelp || msg.Action != tea.MouseActionRelease || msg.Button != tea.MouseButtonLeft {
		return m, nil
	}
	end := min(m.offset+m.bodyHeight(), len(m.lines))
	for i := m.offset; i < end; i++ {
		if z := zone.Get(lineZoneID(i)); z != nil && z.InBounds(msg) {
			m.moveCaret(i)
			break
		}
	}
	return m, nil
}

// moveCaret moves the document caret, which clamps the line.
func (m *Model) moveCaret(line int) {
	m.cfg.Doc.MoveTo(line)
	m.ensureCaretVisible()
}

// step moves the local surface's scrubber by delta segments.
func (m *Model) step(delta int) {
	if m.cfg.Engine == nil {
		m.setStatus("no local surface", true)
		return
	}
	if !m.cfg.Engine.Scrub(m.cfg.Engine.Scrubber() + delta) {
		return
	}
	m.ensureCaretVisible()
}

func (m *Model) toggleTheme() {
	next := viewer.LightPalette.Name
	if m.theme == viewer.LightPalette.Name {
		next = viewer.DarkPalette.Name
	}
	m.theme = next
	if m.cfg.Engine != nil {
		m.cfg.Engine.SetTheme(next)
	}
	m.setStatus("theme: "+next, false)
}

func (m *Model) reload() {
	if m.cfg.Reload == nil {
		return
	}
	if err := m.cfg.Reload(); err != nil {
		log.ErrorErr(log.CatUI, "reload failed", err)
		m.setStatus("reload failed: "+err.Error(), true)
		return
	}
	m.syncText()
	m.ensureCaretVisible()
	m.setStatus("reloaded", false)
}

func (m *Model) setStatus(s string, isErr bool) {
	m.status, m.statusErr = s, isErr
}

func (m *Model) describeSession(ev pubsub.Event[protocol.Message]) {
	switch ev.Type {
	case pubsub.PublishedEvent:
		m.setStatus("sent "+ev.Payload.Type, false)
	case pubsub.HandledEvent:
		switch ev.Payload.Type {
		case protocol.TypeHighlightLine:
			m.setStatus(fmt.Sprintf("surface selected line %d", ev.Payload.Line()), false)
		case protocol.TypeWebviewReady:
			m.setStatus("surface ready", false)
		case protocol.TypeBridgeDebug:
			m.setStatus("surface: "+ev.Payload.DebugMessage, false)
		}
	}
}

func (m *Model) describeActivity(ev pubsub.Event[bridge.Activity]) {
	switch ev.Type {
	case pubsub.PublishedEvent:
		m.activity = fmt.Sprintf("v%d %dB", ev.Payload.Version, ev.Payload.Bytes)
	case pubsub.FailedEvent:
		m.setStatus("listener failed: "+ev.Payload.Err.Error(), true)
	case pubsub.StoppedEvent:
		m.setStatus("bridge stopped", true)
	}
}

// syncText re-splits the document when its text changed.
func (m *Model) syncText() {
	t := m.cfg.Doc.Text()
	if m.lines != nil && t == m.text {
		return
	}
	m.text = t
	m.lines = gcode.SplitLines(t)
}

func (m Model) bodyHeight() int {
	// header + two footer lines
	return max(m.height-3-m.logs.height(), 1)
}

// ensureCaretVisible scrolls so the caret line is inside the body.
func (m *Model) ensureCaretVisible() {
	m.syncText()
	h := m.bodyHeight()
	caret := m.cfg.Doc.Line()
	if caret < m.offset {
		m.offset = caret
	}
	if caret >= m.offset+h {
		m.offset = caret - h + 1
	}
	m.offset = max(min(m.offset, len(m.lines)-h), 0)
}

func lineZoneID(i int) string {
	return fmt.Sprintf("line-%d", i)
}
