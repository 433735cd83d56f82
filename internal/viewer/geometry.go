package viewer

import (
	"math"

	"github.com/ncviewer/ncviewer/internal/toolpath"
)

// Vec3 is a point or direction in toolpath space.
type Vec3 struct {
	X, Y, Z float64
}

func (a Vec3) Add(b Vec3) Vec3 { return Vec3{a.X + b.X, a.Y + b.Y, a.Z + b.Z} }
func (a Vec3) Sub(b Vec3) Vec3 { return Vec3{a.X - b.X, a.Y - b.Y, a.Z - b.Z} }
func (a Vec3) Scale(s float64) Vec3 { return Vec3{a.X * s, a.Y * s, a.Z * s} }
func (a Vec3) Dot(b Vec3) float64 { return a.X*b.X + a.Y*b.Y + a.Z*b.Z }
func (a Vec3) Len() float64 { return math.Sqrt(a.Dot(a)) }
func (a Vec3) Cross(b Vec3) Vec3 {
	return Vec3{a.Y*b.Z - a.Z*b.Y, a.Z*b.X - a.X*b.Z, a.X*b.Y - a.Y*b.X}
}

// Norm returns a unit vector, or the zero vector for zero input.
func (a Vec3) Norm() Vec3 {
	l := a.Len()
	if l == 0 {
		return Vec3{}
	}
	return a.Scale(1 / l)
}

// At converts a movement to a point.
func At(m toolpath.Movement) Vec3 {
	return Vec3{m.X, m.Y, m.Z}
}

// Bounds is an axis-aligned box.
type Bounds struct {
	Min, Max Vec3
}

// emptyBounds frames a program with no segments.
var emptyBounds = Bounds{Min: Vec3{-1, -1, -1}, Max: Vec3{1, 1, 1}}

// BoundsOf returns the box around every segment endpoint. A path with no
// segments gets the 2x2x2 box around the origin.
func BoundsOf(movements []toolpath.Movement) Bounds {
	if len(movements) < 2 {
		return emptyBounds
	}
	b := Bounds{Min: At(movements[0]), Max: At(movements[0])}
	for _, m := range movements[1:] {
		b.Min.X = math.Min(b.Min.X, m.X)
		b.Min.Y = math.Min(b.Min.Y, m.Y)
		b.Min.Z = math.Min(b.Min.Z, m.Z)
		b.Max.X = math.Max(b.Max.X, m.X)
		b.Max.Y = math.Max(b.Max.Y, m.Y)
		b.Max.Z = math.Max(b.Max.Z, m.Z)
	}
	return b
}

// Size is the length of the box diagonal.
func (b Bounds) Size() float64 {
	return b.Max.Sub(b.Min).Len()
}

// Center is the box midpoint.
func (b Bounds) Center() Vec3 {
	return b.Min.Add(b.Max).Scale(0.5)
}

// Geometry is the renderable form of a toolpath: two vertices per segment
// plus each segment's motion color.
type Geometry struct {
	Vertices   []Vec3
	BaseColors []Color
}

// BuildGeometry lays out segment i as Vertices[2i], Vertices[2i+1].
func BuildGeometry(movements []toolpath.Movement, p Palette) Geometry {
	n := len(movements) - 1
	if n < 1 {
		return Geometry{}
	}
	g := Geometry{
		Vertices:   make([]Vec3, 0, 2*n),
		BaseColors: make([]Color, 0, n),
	}
	for i := 1; i < len(movements); i++ {
		g.Vertices = append(g.Vertices, At(movements[i-1]), At(movements[i]))
		g.BaseColors = append(g.BaseColors, p.MotionColor(movements[i].Command))
	}
	return g
}

// SegmentCount returns the number of segments.
func (g Geometry) SegmentCount() int {
	return len(g.Vertices) / 2
}

// Segment returns the endpoints of segment i.
func (g Geometry) Segment(i int) (Vec3, Vec3) {
	return g.Vertices[2*i], g.Vertices[2*i+1]
}
