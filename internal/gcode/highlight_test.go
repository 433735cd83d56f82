package gcode

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
	"github.com/muesli/termenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	// Force ANSI color output in tests (lipgloss disables colors when no TTY)
	lipgloss.SetColorProfile(termenv.ANSI256)
}

func TestHighlight(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantANSI bool
	}{
		{name: "motion line", input: "G1 X10 Y-2.5 F300", wantANSI: true},
		{name: "comment", input: "(roughing pass)", wantANSI: true},
		{name: "multi-line program", input: "G21\nG90\nG0 X0 Y0\n", wantANSI: true},
		{name: "garbage", input: "#1=2", wantANSI: true},
		{name: "whitespace only", input: " \n\t", wantANSI: false},
		{name: "empty", input: "", wantANSI: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := Highlight(tt.input)
			assert.Equal(t, tt.input, ansi.Strip(out), "stripping styles restores the input")
			assert.Equal(t, tt.wantANSI, out != tt.input)
		})
	}
}

func TestHighlight_PreservesLineBreaks(t *testing.T) {
	src := "G0 X1\nG1 Y2\n"
	out := Highlight(src)
	assert.Equal(t, 2, strings.Count(out, "\n"))
}

func TestSyntaxTokens_SkipsWhitespace(t *testing.T) {
	line := "G0  X1 (c)"
	toks := SyntaxTokens(line)
	require.Len(t, toks, 3)

	assert.Equal(t, KindCommand, toks[0].Kind)
	assert.Equal(t, "G0", line[toks[0].Start:toks[0].End])
	assert.Equal(t, KindCoordinate, toks[1].Kind)
	assert.Equal(t, "X1", line[toks[1].Start:toks[1].End])
	assert.Equal(t, KindComment, toks[2].Kind)
	assert.Equal(t, "(c)", line[toks[2].Start:toks[2].End])
}

func TestSyntaxTokens_Empty(t *testing.T) {
	assert.Nil(t, SyntaxTokens(""))
	assert.Empty(t, SyntaxTokens("   "))
}

func TestRenderLine_RoundTrip(t *testing.T) {
	line := "  G2 X0 Y0 I10 J0  "
	out := RenderLine(line, SyntaxTokens(line))
	assert.Equal(t, line, ansi.Strip(out))
	assert.NotEqual(t, line, out)
}

func TestStyleFor(t *testing.T) {
	assert.Equal(t, CommandStyle.Render("G0"), StyleFor(KindCommand).Render("G0"))
	assert.Equal(t, "x", StyleFor(KindWhitespace).Render("x"))
}
