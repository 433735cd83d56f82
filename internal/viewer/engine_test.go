package viewer

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ncviewer/ncviewer/internal/flags"
	"github.com/ncviewer/ncviewer/internal/protocol"
	"github.com/ncviewer/ncviewer/internal/toolpath"
)

type recorder struct {
	mu   sync.Mutex
	msgs []protocol.Message
	err  error
}

func (r *recorder) Post(msg protocol.Message) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.msgs = append(r.msgs, msg)
	return r.err
}

func (r *recorder) lines() []uint32 {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []uint32
	for _, m := range r.msgs {
		if m.Type == protocol.TypeHighlightLine {
			out = append(out, m.Line())
		}
	}
	return out
}

const square = "G0 X10 Y0\nG1 X10 Y10\nG1 X0 Y10\nG1 X0 Y0\n"

func newEngine(t *testing.T, opts Options) (*Engine, *recorder) {
	t.Helper()
	rec := &recorder{}
	return New(rec, opts), rec
}

func TestEngine_StartsEmpty(t *testing.T) {
	e, _ := newEngine(t, Options{})
	s := e.Snapshot()

	assert.Equal(t, Empty, e.State())
	assert.Zero(t, s.Segments)
	assert.False(t, s.Selected)
	assert.Equal(t, emptyBounds, s.Bounds)

	x, y, z := s.Readout()
	assert.Equal(t, []string{"0.000", "0.000", "0.000"}, []string{x, y, z})
}

func TestEngine_LoadSelectsFirstSegment(t *testing.T) {
	e, rec := newEngine(t, Options{})
	require.NoError(t, e.Handle(t.Context(), protocol.LoadGCode(square, protocol.Settings{})))

	s := e.Snapshot()
	assert.Equal(t, Loaded, s.State)
	assert.Equal(t, 4, s.Segments)
	assert.True(t, s.Selected)
	assert.Equal(t, SelectionRange{Start: 0, End: 0}, s.Selection)
	assert.Equal(t, 0, s.Scrubber)
	assert.Equal(t, []Color{
		DarkPalette.Selected,
		DarkPalette.AfterSelected,
		DarkPalette.AfterSelected,
		DarkPalette.AfterSelected,
	}, s.Colors)
	assert.Equal(t, Vec3{5, 5, 0}, s.Camera.Target)
	assert.Equal(t, 1.0, s.Camera.Zoom)

	x, y, z := s.Readout()
	assert.Equal(t, []string{"10.000", "0.000", "0.000"}, []string{x, y, z})
	assert.Equal(t, []uint32{1}, s.Lines())
	assert.Empty(t, rec.lines(), "loading posts nothing")
}

func TestEngine_LoadWithoutSegments(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Load(t.Context(), "(nothing here)\nM30\n", nil, true)

	s := e.Snapshot()
	assert.Equal(t, Loaded, s.State)
	assert.Zero(t, s.Segments)
	assert.False(t, s.Selected)
	assert.Equal(t, emptyBounds, s.Bounds)
}

func TestEngine_ColorsBeforeSelectionUseMotionColor(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Load(t.Context(), square, nil, true)
	require.True(t, e.SelectLine(3))

	s := e.Snapshot()
	assert.Equal(t, []Color{
		DarkPalette.Rapid,
		DarkPalette.Feed,
		DarkPalette.Selected,
		DarkPalette.AfterSelected,
	}, s.Colors)
	assert.Equal(t, 2, s.Scrubber)
}

func TestEngine_CursorWithoutSegmentsKeepsSelection(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Load(t.Context(), square, nil, true)
	require.True(t, e.SelectLine(2))

	require.NoError(t, e.Handle(t.Context(), protocol.CursorPositionChanged(99)))
	require.NoError(t, e.Handle(t.Context(), protocol.CursorPositionChanged(0)))

	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, SelectionRange{Start: 1, End: 1}, sel)
	assert.Equal(t, 1, e.Scrubber())
}

func TestEngine_CursorSelectsWholeArc(t *testing.T) {
	e, _ := newEngine(t, Options{Extract: &toolpath.Options{ArcSegments: 8}})
	e.Load(t.Context(), "G0 X10\nG3 X-10 Y0 I-10 J0\n", nil, true)

	require.NoError(t, e.Handle(t.Context(), protocol.CursorPositionChanged(2)))
	sel, ok := e.Selection()
	require.True(t, ok)
	assert.Equal(t, SelectionRange{Start: 1, End: 8}, sel)
	assert.Equal(t, 8, e.Scrubber())
	assert.Equal(t, []uint32{2}, e.Snapshot().Lines())
}

func TestEngine_ExtractOptions(t *testing.T) {
	e, _ := newEngine(t, Options{})
	assert.Equal(t, toolpath.DefaultMaxMovements, e.extractor.Options().MaxMovements)
	assert.Equal(t, toolpath.DefaultArcSegments, e.extractor.Options().ArcSegments)

	// Zero values are a valid choice: unlimited movements, straight arcs.
	e, _ = newEngine(t, Options{Extract: &toolpath.Options{}})
	assert.Zero(t, e.extractor.Options().MaxMovements)
	assert.Zero(t, e.extractor.Options().ArcSegments)

	e.Load(t.Context(), "G0 X10\nG3 X-10 Y0 I-10 J0\n", nil, true)
	assert.Equal(t, 2, e.Summary().Segments)
}

func TestEngine_ScrubPostsHighlight(t *testing.T) {
	e, rec := newEngine(t, Options{})
	e.Load(t.Context(), square, nil, true)

	assert.True(t, e.Scrub(3))
	assert.False(t, e.Scrub(4))
	assert.False(t, e.Scrub(-1))

	assert.Equal(t, []uint32{4}, rec.lines())
	assert.Equal(t, 3, e.Scrubber())
	sel, _ := e.Selection()
	assert.Equal(t, SelectionRange{Start: 3, End: 3}, sel)
}

func TestEngine_PostErrorIsNotFatal(t *testing.T) {
	rec := &recorder{err: errors.New("gone")}
	e := New(rec, Options{})
	e.Load(t.Context(), square, nil, true)

	assert.True(t, e.Scrub(1))
	assert.Equal(t, 1, e.Scrubber())
}

func TestEngine_ContentChangedKeepsCamera(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Load(t.Context(), square, nil, true)
	e.SetZoom(3)
	before := e.Camera()

	require.NoError(t, e.Handle(t.Context(), protocol.ContentChanged("G1 X100 Y100\n", protocol.Settings{})))
	assert.Equal(t, before, e.Camera())
	assert.Equal(t, 0, e.Scrubber())

	require.NoError(t, e.Handle(t.Context(), protocol.LoadGCode("G1 X100 Y100\n", protocol.Settings{})))
	after := e.Camera()
	assert.Equal(t, 1.0, after.Zoom)
	assert.Equal(t, Vec3{50, 50, 0}, after.Target)
}

func TestEngine_ExcludeCodes(t *testing.T) {
	e, _ := newEngine(t, Options{})
	prog := "G28 X0 Y0\nG1 X5\n"

	e.Load(t.Context(), prog, nil, true)
	assert.Equal(t, 1, e.Snapshot().Segments, "G28 is excluded by default")

	e.Load(t.Context(), prog, []string{}, true)
	assert.Equal(t, 1, e.Snapshot().Segments, "G28 is not a motion command")

	e.Load(t.Context(), "G0 X1\nG1 X2\n", []string{"G1"}, true)
	assert.Equal(t, 1, e.Snapshot().Segments)
}

func TestExcludeSetFor(t *testing.T) {
	assert.Equal(t, toolpath.DefaultExcludeSet(), ExcludeSetFor(nil))
	assert.Empty(t, ExcludeSetFor([]string{}))
	assert.True(t, ExcludeSetFor([]string{"g01"}).Contains("G1"))
}

func TestEngine_ClickHit(t *testing.T) {
	e, rec := newEngine(t, Options{})
	e.Load(t.Context(), "G1 X10 Y10\n", nil, true)

	seg, ok := e.Click(0, 0)
	require.True(t, ok)
	assert.Equal(t, 0, seg)
	assert.Equal(t, []uint32{1}, rec.lines())
}

func TestEngine_ClickMissSelectsLastSegment(t *testing.T) {
	e, rec := newEngine(t, Options{})
	e.Load(t.Context(), "G1 X10\nG1 Y10\n", nil, true)

	_, ok := e.Click(0, 0)
	require.False(t, ok)

	sel, selected := e.Selection()
	require.True(t, selected)
	assert.Equal(t, SelectionRange{Start: 1, End: 1}, sel)
	assert.Equal(t, 1, e.Scrubber())
	assert.Empty(t, rec.lines())
}

func TestEngine_PickSelectsLine(t *testing.T) {
	e, rec := newEngine(t, Options{Extract: &toolpath.Options{ArcSegments: 4}})
	e.Load(t.Context(), "G0 X10\nG2 X-10 Y0 I-10 J0\n", nil, true)

	require.True(t, e.Pick(2))
	sel, _ := e.Selection()
	assert.Equal(t, SelectionRange{Start: 1, End: 4}, sel)
	assert.Equal(t, 2, e.Scrubber())
	assert.Equal(t, []uint32{2}, rec.lines())

	assert.False(t, e.Pick(9))
}

func TestEngine_SetThemeRecolorsSelection(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Load(t.Context(), square, nil, true)
	require.True(t, e.SelectLine(2))

	e.SetTheme("light")
	s := e.Snapshot()
	assert.Equal(t, "light", s.Palette.Name)
	assert.Equal(t, []Color{
		LightPalette.Rapid,
		LightPalette.Selected,
		LightPalette.AfterSelected,
		LightPalette.AfterSelected,
	}, s.Colors)
}

func TestEngine_SetAspect(t *testing.T) {
	e, _ := newEngine(t, Options{})
	e.Load(t.Context(), square, nil, true)
	c := e.Camera()

	e.SetAspect(2)
	resized := e.Camera()
	assert.Equal(t, c.Top, resized.Top)
	assert.InDelta(t, 2*(c.Right-c.Left), resized.Right-resized.Left, 1e-9)

	e.SetAspect(0)
	assert.Equal(t, resized, e.Camera())

	e.SetZoom(4)
	e.ResetCamera()
	assert.Equal(t, 1.0, e.Camera().Zoom)
}

func TestEngine_MaxMovements(t *testing.T) {
	e, _ := newEngine(t, Options{Extract: &toolpath.Options{MaxMovements: 3, ArcSegments: 2}})
	e.Load(t.Context(), square, nil, true)

	s := e.Snapshot()
	assert.Equal(t, 2, s.Segments)
	assert.Equal(t, 2, s.Dropped)
}

func TestEngine_ExtractCache(t *testing.T) {
	e, _ := newEngine(t, Options{Flags: flags.WithDefaults(nil)})
	e.Load(t.Context(), square, nil, true)
	first := e.Snapshot().Movements

	e.Load(t.Context(), square, nil, false)
	assert.Equal(t, first, e.Snapshot().Movements)

	assert.NotEqual(t, cacheKey(square, ExcludeSetFor(nil)), cacheKey(square, ExcludeSetFor([]string{})))
}

func TestEngine_IgnoresSurfaceMessages(t *testing.T) {
	e, rec := newEngine(t, Options{})
	require.NoError(t, e.Handle(t.Context(), protocol.HighlightLine(3)))
	require.NoError(t, e.Handle(t.Context(), protocol.WebviewReady()))
	assert.Equal(t, Empty, e.State())
	assert.Empty(t, rec.msgs)
}

func TestEngine_Summary(t *testing.T) {
	e, _ := newEngine(t, Options{Theme: "light"})
	empty := e.Summary()
	assert.Equal(t, Empty, empty.State)
	assert.Equal(t, "light", empty.Theme)
	assert.False(t, empty.Selected)
	assert.Nil(t, empty.Lines)
	assert.Equal(t, "0.000", empty.X)

	e.Load(t.Context(), square, nil, true)
	require.True(t, e.Scrub(2))

	s := e.Summary()
	assert.Equal(t, Loaded, s.State)
	assert.Equal(t, 4, s.Segments)
	assert.Equal(t, 2, s.Scrubber)
	assert.Equal(t, SelectionRange{Start: 2, End: 2}, s.Selection)
	assert.Equal(t, []uint32{3}, s.Lines)
	assert.Equal(t, []string{"0.000", "10.000", "0.000"}, []string{s.X, s.Y, s.Z})
}
