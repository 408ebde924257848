package geometry

import (
	"fmt"
	"strconv"

	"github.com/quasilyte/gmath"
)

// Point is an immutable 2-D coordinate.
type Point gmath.Vec

// Orientation is the turn direction of three ordered points.
type Orientation int

const (
	Clockwise        Orientation = -1
	Collinear        Orientation = 0
	CounterClockwise Orientation = 1
)

func (o Orientation) String() string {
	switch o {
	case Clockwise:
		return "clockwise"
	case CounterClockwise:
		return "counter-clockwise"
	default:
		return "collinear"
	}
}

// Orientation returns how `other` turns relative to the segment p -> mid.
// the determinant is (mid.y-p.y)*(other.x-p.x) - (mid.x-p.x)*(other.y-p.y): positive is Clockwise, negative
// CounterClockwise. Hull builders keep a vertex only on a strict CounterClockwise turn.
func (p Point) Orientation(mid, other Point) Orientation {
	det := (mid.Y-p.Y)*(other.X-p.X) - (mid.X-p.X)*(other.Y-p.Y)
	switch {
	case det > 0:
		return Clockwise
	case det < 0:
		return CounterClockwise
	}
	return Collinear
}

// Less orders points by x, then by y.
func Less(a, b Point) bool {
	return a.X < b.X || (a.X == b.X && a.Y < b.Y)
}

// Distance returns the euclidean distance between two points.
func Distance(a, b Point) float64 {
	return gmath.Vec(a).DistanceTo(gmath.Vec(b))
}

// String formats a point the way the line protocol reads it back, eg "1.5,-2".
func (p Point) String() string {
	return strconv.FormatFloat(p.X, 'g', -1, 64) + "," + strconv.FormatFloat(p.Y, 'g', -1, 64)
}

// GoString is used by debug dumps.
func (p Point) GoString() string {
	return fmt.Sprintf("geometry.Point{X: %g, Y: %g}", p.X, p.Y)
}
