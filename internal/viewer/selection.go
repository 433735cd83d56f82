package viewer

import "github.com/ncviewer/ncviewer/internal/toolpath"

// SelectionRange is an inclusive span of segment indices.
type SelectionRange struct {
	Start int
	End   int
}

// Contains reports whether segment i lies in the range.
func (r SelectionRange) Contains(i int) bool {
	return i >= r.Start && i <= r.End
}

// Clamp orders the range into [0, segments-1] with Start <= End. ok is
// false when there are no segments.
func (r SelectionRange) Clamp(segments int) (SelectionRange, bool) {
	if segments < 1 {
		return SelectionRange{}, false
	}
	last := segments - 1
	start := min(max(r.Start, 0), last)
	end := max(start, min(r.End, last))
	return SelectionRange{Start: start, End: end}, true
}

// SegmentRangeForLine returns the first and last segments whose end
// movement came from line. Segment i ends at movements[i+1].
func SegmentRangeForLine(movements []toolpath.Movement, line uint32) (SelectionRange, bool) {
	start, end := -1, -1
	for i := 1; i < len(movements); i++ {
		if movements[i].LineNumber != line {
			continue
		}
		if start < 0 {
			start = i - 1
		}
		end = i - 1
	}
	if start < 0 {
		return SelectionRange{}, false
	}
	return SelectionRange{Start: start, End: end}, true
}

// LineForSegment returns the source line of segment i.
func LineForSegment(movements []toolpath.Movement, segment int) (uint32, bool) {
	if segment < 0 || segment+1 >= len(movements) {
		return 0, false
	}
	return movements[segment+1].LineNumber, true
}

// SegmentColor is the three-valued selection color of segment i: its
// motion color before the selection, Selected inside it, AfterSelected
// past it.
func SegmentColor(i int, sel SelectionRange, base Color, p Palette) Color {
	switch {
	case i < sel.Start:
		return base
	case i <= sel.End:
		return p.Selected
	default:
		return p.AfterSelected
	}
}
