package toolpath

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNormalizeCode(t *testing.T) {
	tests := map[string]string{
		"G0":    "G0",
		"g00":   "G0",
		"G01":   "G1",
		"M00":   "M0",
		"m30":   "M30",
		" G28 ": "G28",
		"G28.1": "G28.1",
		"G00.5": "G0.5",
		"G0A":   "G0A",
		"T":     "T",
		"":      "",
	}
	for in, want := range tests {
		assert.Equal(t, want, NormalizeCode(in), "NormalizeCode(%q)", in)
	}
}

func TestExcludeSet(t *testing.T) {
	s := NewExcludeSet([]string{"m00", "G90", "  ", "G090"})
	assert.True(t, s.Contains("M0"))
	assert.True(t, s.Contains("M00"))
	assert.True(t, s.Contains("g90"))
	assert.False(t, s.Contains("G1"))
	assert.Equal(t, []string{"G90", "M0"}, s.Codes())
}

func TestExcludeSet_NilExcludesNothing(t *testing.T) {
	var s ExcludeSet
	assert.False(t, s.Contains("G0"))
	assert.Empty(t, s.Codes())
}

func TestDefaultExcludeSet(t *testing.T) {
	s := DefaultExcludeSet()
	for _, c := range DefaultExcludeCodes {
		assert.True(t, s.Contains(c), c)
	}
	assert.False(t, s.Contains("G0"))
}
