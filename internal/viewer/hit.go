package viewer

import "math"

// PickThreshold is the pick distance for a scene of the given size at zoom.
func PickThreshold(size, zoom float64) float64 {
	if zoom <= 0 {
		zoom = 1
	}
	return size / 100 / zoom
}

// HitTest returns the segment within threshold of the ray that is nearest
// along it.
func HitTest(g Geometry, origin, dir Vec3, threshold float64) (int, bool) {
	dir = dir.Norm()
	best, bestT := -1, math.Inf(1)
	for i := 0; i < g.SegmentCount(); i++ {
		a, b := g.Segment(i)
		dist, t := raySegment(origin, dir, a, b)
		if dist <= threshold && t < bestT {
			best, bestT = i, t
		}
	}
	return best, best >= 0
}

// raySegment returns the closest distance between the line origin+t*dir
// (dir unit length) and segment ab, with the ray parameter at that point.
func raySegment(origin, dir, a, b Vec3) (dist, t float64) {
	u := b.Sub(a)
	w := origin.Sub(a)
	bb := dir.Dot(u)
	c := u.Dot(u)
	d := dir.Dot(w)
	e := u.Dot(w)

	s := 0.0
	if denom := c - bb*bb; c > 1e-18 && denom > 1e-12 {
		s = (e - bb*d) / denom
	} else if c > 1e-18 {
		s = e / c
	}
	s = math.Max(0, math.Min(1, s))
	t = s*bb - d

	closest := w.Add(dir.Scale(t)).Sub(u.Scale(s))
	return closest.Len(), t
}
