package toolpath

import "math"

// arc interpolates a G2 (clockwise) or G3 (counter-clockwise) move in the XY
// plane from the current position to (tx, ty, tz). Z follows linearly. The
// centre comes from I/J offsets, else from R (negative R picks the major
// arc). Unusable geometry degrades to a straight move.
func (s *state) arc(tx, ty, tz float64) {
	n := s.opts.ArcSegments
	cx, cy, ok := s.arcCentre(tx, ty)
	if !ok || n < 2 {
		s.emit(tx, ty, tz)
		return
	}

	x0, y0, z0 := s.x, s.y, s.z
	radius := math.Hypot(x0-cx, y0-cy)
	if radius < 1e-9 {
		s.emit(tx, ty, tz)
		return
	}

	a0 := math.Atan2(y0-cy, x0-cx)
	a1 := math.Atan2(ty-cy, tx-cx)
	sweep := a1 - a0
	if s.active == "G2" {
		if sweep >= 0 {
			sweep -= 2 * math.Pi
		}
	} else if sweep <= 0 {
		sweep += 2 * math.Pi
	}

	for k := 1; k < n; k++ {
		f := float64(k) / float64(n)
		a := a0 + sweep*f
		s.emit(cx+radius*math.Cos(a), cy+radius*math.Sin(a), z0+(tz-z0)*f)
	}
	s.emit(tx, ty, tz)
}

func (s *state) arcCentre(tx, ty float64) (float64, float64, bool) {
	l := &s.line
	if l.set&(hasI|hasJ) != 0 {
		return s.x + l.i, s.y + l.j, true
	}
	if l.set&hasR == 0 || l.r == 0 {
		return 0, 0, false
	}

	dx, dy := tx-s.x, ty-s.y
	d := math.Hypot(dx, dy)
	if d < 1e-9 {
		return 0, 0, false
	}
	r := math.Abs(l.r)
	h2 := r*r - d*d/4
	if h2 < 0 {
		h2 = 0
	}
	h := math.Sqrt(h2)

	// (dy, -dx) points right of the chord; a clockwise minor arc has its
	// centre there.
	side := 1.0
	if s.active == "G3" {
		side = -side
	}
	if l.r < 0 {
		side = -side
	}
	mx, my := s.x+dx/2, s.y+dy/2
	return mx + side*h*dy/d, my - side*h*dx/d, true
}
