package geometry

import (
	"math"
	"sort"

	"github.com/pkg/errors"
)

// Algorithm names a hull construction strategy, both yield the same polygon up to its starting vertex.
type Algorithm string

const (
	Monotone Algorithm = "monotone"
	Polar    Algorithm = "polar"
)

// ParseAlgorithm accepts "monotone" and "polar".
func ParseAlgorithm(name string) (Algorithm, error) {
	switch a := Algorithm(name); a {
	case Monotone, Polar:
		return a, nil
	}
	return "", errors.Errorf("unknown hull algorithm %q, must be one of %s, %s", name, Monotone, Polar)
}

// Hull dispatches to the builder named by `a`, unknown names fall back to Monotone.
func (a Algorithm) Hull(points []Point) []Point {
	if a == Polar {
		return PolarHull(points)
	}
	return Hull(points)
}

// Hull returns the strict vertices of the convex hull of `points` in counter-clockwise order, starting at the
// lowest-leftmost point. Collinear boundary points are dropped.
// With less than 3 points the hull is a copy of the input.
func Hull(points []Point) []Point {
	if len(points) < 3 {
		return clone(points)
	}
	sorted := clone(points)
	sort.Slice(sorted, func(i, j int) bool {
		return Less(sorted[i], sorted[j])
	})

	hull := make([]Point, 0, 2*len(sorted))
	// lower chain, left to right
	for _, p := range sorted {
		hull = push(hull, 0, p)
	}
	// upper chain, right to left; it may not pop into the lower chain
	lower := len(hull)
	for i := len(sorted) - 2; i >= 0; i-- {
		hull = push(hull, lower-1, sorted[i])
	}
	// the last vertex closes the polygon onto the first one
	return dedupe(hull[:len(hull)-1])
}

// PolarHull builds the same hull as Hull sweeping by polar angle around the lowest point (ties broken by x).
func PolarHull(points []Point) []Point {
	if len(points) < 3 {
		return clone(points)
	}
	origin := points[0]
	for _, p := range points[1:] {
		if p.Y < origin.Y || (p.Y == origin.Y && p.X < origin.X) {
			origin = p
		}
	}

	rest := make([]Point, 0, len(points))
	for _, p := range points {
		if p != origin {
			rest = append(rest, p)
		}
	}
	sort.Slice(rest, func(i, j int) bool {
		a, b := rest[i], rest[j]
		if c := cross(origin, a, b); c != 0 {
			return c > 0
		}
		return Distance(origin, a) < Distance(origin, b)
	})

	hull := make([]Point, 0, len(rest)+1)
	hull = append(hull, origin)
	for _, p := range rest {
		hull = push(hull, 0, p)
	}
	return hull
}

// Area is the shoelace area of a polygon given in traversal order, 0 for less than 3 vertices.
func Area(polygon []Point) float64 {
	n := len(polygon)
	if n < 3 {
		return 0
	}
	var sum float64
	for i, p := range polygon {
		next := polygon[(i+1)%n]
		sum += p.X*next.Y - next.X*p.Y
	}
	return math.Abs(sum) / 2
}

// push pops vertices above index `floor` while they don't make a strict left turn with `p`, then appends `p`
func push(hull []Point, floor int, p Point) []Point {
	for len(hull) >= floor+2 && hull[len(hull)-2].Orientation(hull[len(hull)-1], p) <= Collinear {
		hull = hull[:len(hull)-1]
	}
	return append(hull, p)
}

// z component of (a-o) x (b-o), positive when b is counter-clockwise from a
func cross(o, a, b Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// all input points equal collapse the chains onto the same vertex twice
func dedupe(hull []Point) []Point {
	if len(hull) == 2 && hull[0] == hull[1] {
		return hull[:1]
	}
	return hull
}

func clone(points []Point) []Point {
	return append(make([]Point, 0, len(points)), points...)
}
