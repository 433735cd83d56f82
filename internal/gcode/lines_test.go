package gcode

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestSplitLines(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"empty", "", []string{""}},
		{"single", "G0 X1", []string{"G0 X1"}},
		{"lf", "G0\nG1\n", []string{"G0", "G1", ""}},
		{"crlf", "G0\r\nG1", []string{"G0", "G1"}},
		{"lone cr", "G0\rG1\rG2", []string{"G0", "G1", "G2"}},
		{"cr then crlf", "a\r\r\nb", []string{"a", "", "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, SplitLines(tt.in))
			assert.Equal(t, len(tt.want), CountLines(tt.in))
		})
	}
}

func TestSplitLines_CountAgrees(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		s := rapid.StringOf(rapid.SampledFrom([]rune{'a', 'G', '1', ' ', '\r', '\n'})).Draw(t, "s")
		lines := SplitLines(s)
		if len(lines) != CountLines(s) {
			t.Fatalf("split %d lines, counted %d", len(lines), CountLines(s))
		}
		for _, l := range lines {
			if strings.ContainsAny(l, "\r\n") {
				t.Fatalf("line %q keeps a terminator", l)
			}
		}
	})
}
