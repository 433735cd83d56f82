package viewer

// Camera is an orthographic camera looking at Target with Z up.
type Camera struct {
	Position Vec3
	Target   Vec3
	Up       Vec3
	// Left, Right, Top, Bottom are the frustum half-extents before zoom.
	Left, Right, Top, Bottom float64
	Zoom                     float64
}

// FrameCamera fits b into view for a viewport of the given aspect ratio.
func FrameCamera(b Bounds, aspect float64) Camera {
	if aspect <= 0 {
		aspect = 1
	}
	size := b.Size()
	center := b.Center()
	f := size * 1.1
	return Camera{
		Position: Vec3{center.X + f, center.Y - f, f},
		Target:   center,
		Up:       Vec3{0, 0, 1},
		Left:     -f * aspect / 2,
		Right:    f * aspect / 2,
		Top:      f / 2,
		Bottom:   -f / 2,
		Zoom:     1,
	}
}

// Resize adapts the horizontal extents to a new aspect ratio, keeping the
// vertical extent.
func (c *Camera) Resize(aspect float64) {
	if aspect <= 0 {
		return
	}
	h := c.Top - c.Bottom
	c.Left = -h * aspect / 2
	c.Right = h * aspect / 2
}

// Ray returns the pick ray through normalised device coordinates
// (x, y in [-1, 1], y up).
func (c Camera) Ray(ndcX, ndcY float64) (origin, dir Vec3) {
	dir = c.Target.Sub(c.Position).Norm()
	right := dir.Cross(c.Up).Norm()
	up := right.Cross(dir)

	zoom := c.Zoom
	if zoom <= 0 {
		zoom = 1
	}
	ox := (c.Left + (ndcX+1)/2*(c.Right-c.Left)) / zoom
	oy := (c.Bottom + (ndcY+1)/2*(c.Top-c.Bottom)) / zoom
	origin = c.Position.Add(right.Scale(ox)).Add(up.Scale(oy))
	return origin, dir
}
