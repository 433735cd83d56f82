package toolpath

import (
	"context"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"github.com/ncviewer/ncviewer/internal/gcode"
)

func mv(x, y, z float64, cmd string, line uint32) Movement {
	return Movement{X: x, Y: y, Z: z, Command: cmd, LineNumber: line}
}

func TestExtract_LinearMoves(t *testing.T) {
	res := Extract("G0 X10 Y0\nG1 X10 Y10\n", nil)
	assert.Equal(t, []Movement{
		mv(0, 0, 0, "", 0),
		mv(10, 0, 0, "G0", 1),
		mv(10, 10, 0, "G1", 2),
	}, res.Movements)
	assert.Zero(t, res.Dropped)
	assert.Equal(t, 2, res.SegmentCount())
}

func TestExtract_Cases(t *testing.T) {
	tests := []struct {
		name    string
		text    string
		exclude []string
		want    []Movement
	}{
		{
			name:    "excluded command contributes nothing",
			text:    "G90\nG0 X5 Y0\n",
			exclude: []string{"G90"},
			want:    []Movement{Origin, mv(5, 0, 0, "G0", 2)},
		},
		{
			name: "modal coordinates persist",
			text: "G0 X10\nG0 Y5\n",
			want: []Movement{Origin, mv(10, 0, 0, "G0", 1), mv(10, 5, 0, "G0", 2)},
		},
		{
			name: "modal motion command persists",
			text: "G1 X1\nX2 Y3\n",
			want: []Movement{Origin, mv(1, 0, 0, "G1", 1), mv(2, 3, 0, "G1", 2)},
		},
		{
			name: "coordinates before any motion command are ignored",
			text: "X5 Y5\nG0 Z1\n",
			want: []Movement{Origin, mv(0, 0, 1, "G0", 2)},
		},
		{
			name: "comments are not commands",
			text: "(G0 X99)\nG0 X1 (move)\n",
			want: []Movement{Origin, mv(1, 0, 0, "G0", 2)},
		},
		{
			name:    "excluded motion command does not move",
			text:    "G28 X0 Y0\nG1 X4\n",
			exclude: DefaultExcludeCodes,
			want:    []Movement{Origin, mv(4, 0, 0, "G1", 2)},
		},
		{
			name:    "mixed excluded and motion commands still move",
			text:    "G90 G0 X3\n",
			exclude: DefaultExcludeCodes,
			want:    []Movement{Origin, mv(3, 0, 0, "G0", 1)},
		},
		{
			name: "compact block is split into words",
			text: "G1X10Y5\nG01 X3\n",
			want: []Movement{Origin, mv(10, 5, 0, "G1", 1), mv(3, 5, 0, "G1", 2)},
		},
		{
			name: "compact block with fractions and signs",
			text: "G01X1.5Y-2\n",
			want: []Movement{Origin, mv(1.5, -2, 0, "G1", 1)},
		},
		{
			name: "compact block ends at a comment",
			text: "G0X2(rapid)Y9\n",
			want: []Movement{Origin, mv(2, 9, 0, "G0", 1)},
		},
		{
			name: "compact block drops a glued comment",
			text: "G1X1.5(cut)\n",
			want: []Movement{Origin, mv(1.5, 0, 0, "G1", 1)},
		},
		{
			name:    "compact excluded block does not move",
			text:    "G28X0Y0\nG1X4\n",
			exclude: DefaultExcludeCodes,
			want:    []Movement{Origin, mv(4, 0, 0, "G1", 2)},
		},
		{
			name: "compact non-motion words are ignored",
			text: "M3S1000\nG0X1\n",
			want: []Movement{Origin, mv(1, 0, 0, "G0", 2)},
		},
		{
			name: "leading zeros are folded",
			text: "g00 x1\nG01 Y2\n",
			want: []Movement{Origin, mv(1, 0, 0, "G0", 1), mv(1, 2, 0, "G1", 2)},
		},
		{
			name: "non-motion command keeps the modal motion",
			text: "G1 X1\nG21 X2\n",
			want: []Movement{Origin, mv(1, 0, 0, "G1", 1), mv(2, 0, 0, "G1", 2)},
		},
		{
			name: "garbled line is skipped without moving",
			text: "G0 X1\nG1 X1.2.3 Y4\nG1 Y2\n",
			want: []Movement{Origin, mv(1, 0, 0, "G0", 1), mv(1, 2, 0, "G1", 3)},
		},
		{
			name: "blank lines and CRLF keep source line numbers",
			text: "\r\n\nG0 X1\r\nG0 X2",
			want: []Movement{Origin, mv(1, 0, 0, "G0", 3), mv(2, 0, 0, "G0", 4)},
		},
		{
			name: "feed words alone do not move",
			text: "G1 X1\nF200\n",
			want: []Movement{Origin, mv(1, 0, 0, "G1", 1)},
		},
		{
			name: "empty program is just the origin",
			text: "",
			want: []Movement{Origin},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			res := Extract(tt.text, NewExcludeSet(tt.exclude))
			assert.Equal(t, tt.want, res.Movements)
		})
	}
}

func TestExtract_CapKeepsPrefix(t *testing.T) {
	var b strings.Builder
	for i := 1; i <= 5; i++ {
		fmt.Fprintf(&b, "G1 X%d\n", i)
	}
	e := NewExtractor(Options{MaxMovements: 3, ArcSegments: DefaultArcSegments})
	res := e.Extract(context.Background(), b.String(), nil)

	require.Len(t, res.Movements, 3)
	assert.Equal(t, mv(2, 0, 0, "G1", 2), res.Movements[2])
	assert.Equal(t, 3, res.Dropped)
	assert.True(t, res.Truncated())
}

func TestExtract_UnlimitedWhenZero(t *testing.T) {
	e := NewExtractor(Options{MaxMovements: 0})
	res := e.Extract(context.Background(), "G1 X1\nG1 X2\nG1 X3\n", nil)
	assert.Len(t, res.Movements, 4)
	assert.False(t, res.Truncated())
}

func TestExtract_CounterClockwiseArc(t *testing.T) {
	e := NewExtractor(Options{ArcSegments: 4})
	res := e.Extract(context.Background(), "G0 X10 Y0\nG3 X0 Y10 I-10 J0\n", nil)

	require.Len(t, res.Movements, 6)
	for _, m := range res.Movements[2:] {
		assert.Equal(t, "G3", m.Command)
		assert.Equal(t, uint32(2), m.LineNumber)
		assert.InDelta(t, 10, math.Hypot(m.X, m.Y), 1e-9, "points stay on the circle")
	}
	mid := res.Movements[3]
	assert.InDelta(t, 10*math.Cos(math.Pi/4), mid.X, 1e-9)
	assert.InDelta(t, 10*math.Sin(math.Pi/4), mid.Y, 1e-9)
	assert.Equal(t, mv(0, 10, 0, "G3", 2), res.Movements[5])
}

func TestExtract_ClockwiseArc(t *testing.T) {
	e := NewExtractor(Options{ArcSegments: 4})
	res := e.Extract(context.Background(), "G0 X0 Y10\nG2 X10 Y0 I0 J-10\n", nil)

	require.Len(t, res.Movements, 6)
	mid := res.Movements[3]
	assert.InDelta(t, 10*math.Cos(math.Pi/4), mid.X, 1e-9)
	assert.InDelta(t, 10*math.Sin(math.Pi/4), mid.Y, 1e-9)
}

func TestExtract_RadiusArc(t *testing.T) {
	e := NewExtractor(Options{ArcSegments: 2})
	res := e.Extract(context.Background(), "G2 X1 Y1 R1\n", nil)

	require.Len(t, res.Movements, 3)
	mid := res.Movements[1]
	assert.InDelta(t, 1-math.Sqrt2/2, mid.X, 1e-9)
	assert.InDelta(t, math.Sqrt2/2, mid.Y, 1e-9)
	assert.Equal(t, mv(1, 1, 0, "G2", 1), res.Movements[2])
}

func TestExtract_FullCircle(t *testing.T) {
	e := NewExtractor(Options{ArcSegments: 4})
	res := e.Extract(context.Background(), "G0 X10\nG2 X10 Y0 I-10 J0\n", nil)

	require.Len(t, res.Movements, 6)
	assert.InDelta(t, 0, res.Movements[2].X, 1e-9)
	assert.InDelta(t, -10, res.Movements[2].Y, 1e-9)
	assert.InDelta(t, -10, res.Movements[3].X, 1e-9)
}

func TestExtract_HelixInterpolatesZ(t *testing.T) {
	e := NewExtractor(Options{ArcSegments: 4})
	res := e.Extract(context.Background(), "G0 X10\nG3 X0 Y10 Z4 I-10 J0\n", nil)

	require.Len(t, res.Movements, 6)
	assert.InDelta(t, 2, res.Movements[3].Z, 1e-9)
	assert.Equal(t, 4.0, res.Movements[5].Z)
}

func TestExtract_ArcWithoutCentreIsStraight(t *testing.T) {
	res := Extract("G2 X5 Y5\n", nil)
	assert.Equal(t, []Movement{Origin, mv(5, 5, 0, "G2", 1)}, res.Movements)
}

func TestExtract_ArcSegmentsBelowTwoIsStraight(t *testing.T) {
	e := NewExtractor(Options{ArcSegments: 1})
	res := e.Extract(context.Background(), "G3 X0 Y10 I-10 J0\n", nil)
	assert.Len(t, res.Movements, 2)
}

func TestExtractTokens_FromLexer(t *testing.T) {
	src := "G0 X1\nG1 Y1\n"
	res := NewExtractor(DefaultOptions()).ExtractTokens(src, gcode.NewLexer(src), nil)
	assert.Equal(t, Extract(src, nil).Movements, res.Movements)
}

func TestExtract_LineNumbersMonotonic(t *testing.T) {
	line := rapid.SampledFrom([]string{
		"G0 X1 Y2", "G1 Z-1", "X3", "G2 X0 Y0 I1 J0", "G3 X1 Y1 R2",
		"(comment)", "", "M30", "G90", "N10 G1 X5", "X1..2", "#5=1", "G1 F100",
	})
	rapid.Check(t, func(t *rapid.T) {
		lines := rapid.SliceOfN(line, 0, 30).Draw(t, "lines")
		res := NewExtractor(Options{ArcSegments: 8}).Extract(context.Background(), strings.Join(lines, "\n"), DefaultExcludeSet())

		if len(res.Movements) == 0 || res.Movements[0] != Origin {
			t.Fatalf("missing origin: %v", res.Movements)
		}
		prev := uint32(0)
		for i, m := range res.Movements[1:] {
			if m.LineNumber < 1 || int(m.LineNumber) > len(lines) {
				t.Fatalf("movement %d has line %d outside 1..%d", i+1, m.LineNumber, len(lines))
			}
			if m.LineNumber < prev {
				t.Fatalf("line numbers decrease at %d", i+1)
			}
			prev = m.LineNumber
		}
	})
}
