// Package viewer is the sync/selection engine of a rendering surface. It
// turns program text into renderable segments, keeps the selection, the
// scrubber and the three-valued coloring consistent, and reports caret
// requests back to the host through a Poster.
package viewer

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"github.com/ncviewer/ncviewer/internal/cachemanager"
	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/log"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/toolpath"
	"github.com/ncviewer/ncviewer/internal/tracing"
)

// State is the engine's lifecycle state.
type State int

const (
	Empty State = iota
	Loaded
)

func (s State) String() string {
	if s == Loaded {
		return "loaded"
	}
	return "empty"
}

// Poster sends a message to the host.
type Poster interface {
	Post(msg protocol.Message) error
}

// PosterFunc adapts a function to Poster.
type PosterFunc func(protocol.Message) error

// Post implements Poster.
func (f PosterFunc) Post(msg protocol.Message) error { return f(msg) }

// Options configures an Engine.
type Options struct {
	// Extract configures extraction. Nil selects toolpath.DefaultOptions.
	Extract *toolpath.Options
	Theme   string
	Flags   *flags.Registry
	// CacheTTL bounds how long an extraction stays cached.
	CacheTTL time.Duration
}

type extractInput struct {
	text    string
	exclude toolpath.ExcludeSet
}

// Engine holds the state of one loaded document. All methods are safe for
// concurrent use.
type Engine struct {
	mu     sync.Mutex
	poster Poster

	extractor *toolpath.Extractor
	reader    *cachemanager.ReadThroughCache[string, toolpath.Result, extractInput]
	cacheTTL  time.Duration

	state     State
	movements []toolpath.Movement
	dropped   int
	geometry  Geometry
	bounds    Bounds
	colors    []Color
	sel       SelectionRange
	hasSel    bool
	scrubber  int
	palette   Palette
	camera    Camera
	aspect    float64
}

// New returns an Empty engine posting through poster.
func New(poster Poster, opts Options) *Engine {
	extract := toolpath.DefaultOptions()
	if opts.Extract != nil {
		extract = *opts.Extract
	}
	extract.TraceLexer = extract.TraceLexer || opts.Flags.Enabled(flags.FlagLexerDebug)
	if opts.CacheTTL <= 0 {
		opts.CacheTTL = cachemanager.DefaultExpiration
	}

	e := &Engine{
		poster:    poster,
		extractor: toolpath.NewExtractor(extract),
		cacheTTL:  opts.CacheTTL,
		palette:   PaletteFor(opts.Theme),
		aspect:    1,
		bounds:    emptyBounds,
	}
	e.camera = FrameCamera(e.bounds, e.aspect)

	cache := cachemanager.NewInMemoryCacheManager[string, toolpath.Result](
		"toolpath", cachemanager.DefaultExpiration, cachemanager.DefaultCleanupInterval)
	e.reader = cachemanager.NewReadThroughCache[string, toolpath.Result, extractInput](cache, e.extract, !opts.Flags.Enabled(flags.FlagExtractCache))
	return e
}

func (e *Engine) extract(ctx context.Context, in extractInput) (toolpath.Result, error) {
	return e.extractor.Extract(ctx, in.text, in.exclude), nil
}

// Handle dispatches a host message. Surface-bound types are ignored.
func (e *Engine) Handle(ctx context.Context, msg protocol.Message) error {
	switch msg.Type {
	case protocol.TypeLoadGCode:
		e.Load(ctx, msg.NCText, msg.ExcludeCodes(), true)
	case protocol.TypeContentChanged:
		e.Load(ctx, msg.NCText, msg.ExcludeCodes(), false)
	case protocol.TypeCursorPositionChanged:
		e.SelectLine(msg.Line())
	default:
		log.Debug(log.CatViewer, "ignoring message", "type", msg.Type)
	}
	return nil
}

// ExcludeSetFor builds the exclude set for a settings list: nil means the
// defaults, an explicit empty list excludes nothing.
func ExcludeSetFor(codes []string) toolpath.ExcludeSet {
	if codes == nil {
		return toolpath.DefaultExcludeSet()
	}
	return toolpath.NewExcludeSet(codes)
}

// Load replaces the document. initial re-frames the camera; edits keep the
// current view.
func (e *Engine) Load(ctx context.Context, text string, excludeCodes []string, initial bool) {
	ctx, span := tracing.Start(ctx, tracing.SpanViewerLoad,
		attribute.Bool(tracing.AttrLoadInitial, initial),
		attribute.Int(tracing.AttrTextBytes, len(text)),
	)
	defer span.End()

	exclude := ExcludeSetFor(excludeCodes)
	res, hit, _ := e.reader.Get(ctx, cacheKey(text, exclude), extractInput{text: text, exclude: exclude}, e.cacheTTL)
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))

	e.mu.Lock()
	defer e.mu.Unlock()

	e.state = Loaded
	e.movements = res.Movements
	e.dropped = res.Dropped
	e.geometry = BuildGeometry(e.movements, e.palette)
	e.bounds = BoundsOf(e.movements)
	e.scrubber = 0
	if e.geometry.SegmentCount() > 0 {
		e.selectLocked(SelectionRange{})
	} else {
		e.clearSelectionLocked()
	}
	if initial {
		e.camera = FrameCamera(e.bounds, e.aspect)
	}

	log.Debug(log.CatViewer, "loaded", "movements", len(e.movements), "dropped", e.dropped,
		"initial", initial, "cache_hit", hit)
}

func cacheKey(text string, exclude toolpath.ExcludeSet) string {
	h := sha256.New()
	h.Write([]byte(strings.Join(exclude.Codes(), ",")))
	h.Write([]byte{0})
	h.Write([]byte(text))
	return hex.EncodeToString(h.Sum(nil))
}

// SelectLine selects every segment produced by line and moves the
// scrubber to the last of them. Lines without segments change nothing.
func (e *Engine) SelectLine(line uint32) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	r, ok := SegmentRangeForLine(e.movements, line)
	if !ok {
		return false
	}
	e.scrubber = min(r.End, e.geometry.SegmentCount()-1)
	e.selectLocked(r)
	return true
}

// Scrub selects segment i and asks the host to show its line. Values
// outside the scrubber range are ignored.
func (e *Engine) Scrub(i int) bool {
	e.mu.Lock()
	if i < 0 || i >= e.geometry.SegmentCount() {
		e.mu.Unlock()
		return false
	}
	e.scrubber = i
	e.selectLocked(SelectionRange{Start: i, End: i})
	line := e.movements[i+1].LineNumber
	e.mu.Unlock()

	e.post(protocol.HighlightLine(line))
	return true
}

// Click resolves a click at normalised device coordinates. A hit selects
// the clicked line, moves the scrubber to the segment and posts
// highlightLine. A miss shows the whole path as machined by selecting the
// last segment.
func (e *Engine) Click(ndcX, ndcY float64) (int, bool) {
	e.mu.Lock()
	origin, dir := e.camera.Ray(ndcX, ndcY)
	threshold := PickThreshold(e.bounds.Size(), e.camera.Zoom)
	seg, hit := HitTest(e.geometry, origin, dir, threshold)
	e.mu.Unlock()

	if !hit {
		e.mu.Lock()
		if n := e.geometry.SegmentCount(); n > 0 {
			e.scrubber = n - 1
			e.selectLocked(SelectionRange{Start: n, End: n})
		}
		e.mu.Unlock()
		return -1, false
	}
	e.Pick(seg)
	return seg, true
}

// Pick applies a resolved hit on segment i.
func (e *Engine) Pick(i int) bool {
	e.mu.Lock()
	line, ok := LineForSegment(e.movements, i)
	if !ok {
		e.mu.Unlock()
		return false
	}
	if r, found := SegmentRangeForLine(e.movements, line); found {
		e.selectLocked(r)
	}
	e.scrubber = i
	e.mu.Unlock()

	e.post(protocol.HighlightLine(line))
	return true
}

// SetTheme switches palettes and recolors the path.
func (e *Engine) SetTheme(theme string) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.palette = PaletteFor(theme)
	e.geometry = BuildGeometry(e.movements, e.palette)
	e.recolorLocked()
}

// SetAspect resizes the camera for a new viewport aspect ratio.
func (e *Engine) SetAspect(aspect float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if aspect <= 0 {
		return
	}
	e.aspect = aspect
	e.camera.Resize(aspect)
}

// SetZoom changes the camera zoom, which also scales the pick threshold.
func (e *Engine) SetZoom(zoom float64) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if zoom > 0 {
		e.camera.Zoom = zoom
	}
}

// ResetCamera re-frames the current path.
func (e *Engine) ResetCamera() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.camera = FrameCamera(e.bounds, e.aspect)
}

func (e *Engine) post(msg protocol.Message) {
	if e.poster == nil {
		return
	}
	if err := e.poster.Post(msg); err != nil {
		log.ErrorErr(log.CatViewer, "post failed", err, "type", msg.Type)
	}
}

func (e *Engine) selectLocked(r SelectionRange) {
	clamped, ok := r.Clamp(e.geometry.SegmentCount())
	if !ok {
		e.clearSelectionLocked()
		return
	}
	e.sel = clamped
	e.hasSel = true
	e.recolorLocked()
}

func (e *Engine) clearSelectionLocked() {
	e.sel = SelectionRange{}
	e.hasSel = false
	e.recolorLocked()
}

func (e *Engine) recolorLocked() {
	n := e.geometry.SegmentCount()
	if cap(e.colors) < n {
		e.colors = make([]Color, n)
	}
	e.colors = e.colors[:n]
	for i := 0; i < n; i++ {
		base := e.geometry.BaseColors[i]
		if !e.hasSel {
			e.colors[i] = base
			continue
		}
		e.colors[i] = SegmentColor(i, e.sel, base, e.palette)
	}
}

// Snapshot is a consistent copy of the engine's view state.
type Snapshot struct {
	State     State
	Movements []toolpath.Movement
	Dropped   int
	Segments  int
	Selection SelectionRange
	Selected  bool
	Scrubber  int
	Colors    []Color
	Palette   Palette
	Camera    Camera
	Bounds    Bounds
	// StartMarker and EndMarker sit at movements[start] and
	// movements[end+1] when Selected.
	StartMarker Vec3
	EndMarker   Vec3
}

// Readout formats the end marker position to three decimals, or zeros when
// nothing is selected.
func (s Snapshot) Readout() (x, y, z string) {
	if !s.Selected {
		return "0.000", "0.000", "0.000"
	}
	return fmt.Sprintf("%.3f", s.EndMarker.X), fmt.Sprintf("%.3f", s.EndMarker.Y), fmt.Sprintf("%.3f", s.EndMarker.Z)
}

// Lines returns the distinct source lines of the selection.
func (s Snapshot) Lines() []uint32 {
	if !s.Selected {
		return nil
	}
	seen := map[uint32]bool{}
	var out []uint32
	for i := s.Selection.Start; i <= s.Selection.End; i++ {
		if l := s.Movements[i+1].LineNumber; !seen[l] {
			seen[l] = true
			out = append(out, l)
		}
	}
	sort.Slice(out, func(a, b int) bool { return out[a] < out[b] })
	return out
}

// Snapshot copies the current state.
func (e *Engine) Snapshot() Snapshot {
	e.mu.Lock()
	defer e.mu.Unlock()
	s := Snapshot{
		State:     e.state,
		Movements: e.movements,
		Dropped:   e.dropped,
		Segments:  e.geometry.SegmentCount(),
		Selection: e.sel,
		Selected:  e.hasSel,
		Scrubber:  e.scrubber,
		Colors:    append([]Color(nil), e.colors...),
		Palette:   e.palette,
		Camera:    e.camera,
		Bounds:    e.bounds,
	}
	if e.hasSel {
		s.StartMarker = At(e.movements[e.sel.Start])
		s.EndMarker = At(e.movements[e.sel.End+1])
	}
	return s
}

// State returns the lifecycle state.
func (e *Engine) State() State {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.state
}

// Selection returns the current selection.
func (e *Engine) Selection() (SelectionRange, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.sel, e.hasSel
}

// Scrubber returns the scrubber position.
func (e *Engine) Scrubber() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.scrubber
}

// Camera returns the current camera.
func (e *Engine) Camera() Camera {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.camera
}

// Summary is the part of the state a status line shows.
type Summary struct {
	State     State
	Theme     string
	Segments  int
	Selection SelectionRange
	Selected  bool
	Scrubber  int
	// Lines are the distinct 1-based source lines of the selection.
	Lines   []uint32
	X, Y, Z string
}

// Summary returns a Summary without copying the color buffer.
func (e *Engine) Summary() Summary {
	e.mu.Lock()
	defer e.mu.Unlock()
	snap := Snapshot{
		Movements: e.movements,
		Selection: e.sel,
		Selected:  e.hasSel,
	}
	if e.hasSel {
		snap.EndMarker = At(e.movements[e.sel.End+1])
	}
	s := Summary{
		State:     e.state,
		Theme:     e.palette.Name,
		Segments:  e.geometry.SegmentCount(),
		Selection: e.sel,
		Selected:  e.hasSel,
		Scrubber:  e.scrubber,
		Lines:     snap.Lines(),
	}
	s.X, s.Y, s.Z = snap.Readout()
	return s
}
