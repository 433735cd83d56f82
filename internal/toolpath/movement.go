// Package toolpath turns G-code text into an ordered sequence of Cartesian
// movements, each attributable to the source line that produced it.
package toolpath

import "fmt"

// Movement is the tool position after one motion. Movement 0 of every
// extraction is the machine origin and carries line number 0; source lines
// are numbered from 1.
type Movement struct {
	X          float64 `json:"X"`
	Y          float64 `json:"Y"`
	Z          float64 `json:"Z"`
	Command    string  `json:"command"`
	LineNumber uint32  `json:"lineNumber"`
}

// Origin is the implicit first movement.
var Origin = Movement{}

func (m Movement) String() string {
	return fmt.Sprintf("%s@%d(%.3f, %.3f, %.3f)", m.Command, m.LineNumber, m.X, m.Y, m.Z)
}

// Result is the output of one extraction.
type Result struct {
	Movements []Movement
	// Dropped counts movements cut by the MaxMovements cap.
	Dropped int
}

// SegmentCount is len(Movements)-1, or 0 for an empty result.
func (r Result) SegmentCount() int {
	if len(r.Movements) < 2 {
		return 0
	}
	return len(r.Movements) - 1
}

// Truncated reports whether the cap cut the result.
func (r Result) Truncated() bool {
	return r.Dropped > 0
}
