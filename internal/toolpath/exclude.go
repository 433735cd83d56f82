package toolpath

import (
	"sort"
	"strings"
)

// DefaultExcludeCodes are the housekeeping codes hidden from the toolpath
// when no configuration overrides them.
var DefaultExcludeCodes = []string{"G10", "G28", "G30", "G53", "G90", "M00", "M01", "M02", "M30"}

// ExcludeSet holds normalised command mnemonics that must not move the tool.
type ExcludeSet map[string]struct{}

// NewExcludeSet normalises codes into a set. Blank entries are ignored.
func NewExcludeSet(codes []string) ExcludeSet {
	s := make(ExcludeSet, len(codes))
	for _, c := range codes {
		if n := NormalizeCode(c); n != "" {
			s[n] = struct{}{}
		}
	}
	return s
}

// DefaultExcludeSet returns a fresh set built from DefaultExcludeCodes.
func DefaultExcludeSet() ExcludeSet {
	return NewExcludeSet(DefaultExcludeCodes)
}

// Contains reports whether code is excluded. A nil set excludes nothing.
func (s ExcludeSet) Contains(code string) bool {
	if len(s) == 0 {
		return false
	}
	_, ok := s[NormalizeCode(code)]
	return ok
}

// Codes returns the set's members sorted.
func (s ExcludeSet) Codes() []string {
	out := make([]string, 0, len(s))
	for c := range s {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// NormalizeCode upper-cases a mnemonic and folds leading zeros of its
// numeric part: "g00" and "G0" both become "G0", "m01" becomes "M1".
// Mnemonics whose tail is not numeric are only upper-cased.
func NormalizeCode(code string) string {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 2 {
		return code
	}
	tail := code[1:]
	for i := 0; i < len(tail); i++ {
		if (tail[i] < '0' || tail[i] > '9') && tail[i] != '.' {
			return code
		}
	}
	tail = strings.TrimLeft(tail, "0")
	if tail == "" || tail[0] == '.' {
		tail = "0" + tail
	}
	return code[:1] + tail
}
