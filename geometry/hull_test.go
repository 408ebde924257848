package geometry

import (
	"math/rand/v2"
	"sort"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func pts(xys ...float64) []Point {
	ret := make([]Point, 0, len(xys)/2)
	for i := 0; i+1 < len(xys); i += 2 {
		ret = append(ret, Point{X: xys[i], Y: xys[i+1]})
	}
	return ret
}

// sameVertices compares polygons as sets
func sameVertices(t *testing.T, expected, actual []Point) {
	t.Helper()
	e, a := clone(expected), clone(actual)
	sort.Slice(e, func(i, j int) bool { return Less(e[i], e[j]) })
	sort.Slice(a, func(i, j int) bool { return Less(a[i], a[j]) })
	assert.Equal(t, e, a)
}

func TestOrientation(t *testing.T) {
	o := Point{}
	assert.Equal(t, CounterClockwise, o.Orientation(Point{X: 1}, Point{X: 1, Y: 1}))
	assert.Equal(t, Clockwise, o.Orientation(Point{X: 1, Y: 1}, Point{X: 1}))
	assert.Equal(t, Collinear, o.Orientation(Point{X: 1, Y: 1}, Point{X: 3, Y: 3}))
	assert.Equal(t, Collinear, o.Orientation(o, o))
	assert.Equal(t, "counter-clockwise", CounterClockwise.String())
}

func TestLessAndDistance(t *testing.T) {
	assert.True(t, Less(Point{X: 0, Y: 5}, Point{X: 1, Y: 0}))
	assert.True(t, Less(Point{X: 1, Y: 0}, Point{X: 1, Y: 2}))
	assert.False(t, Less(Point{X: 1, Y: 2}, Point{X: 1, Y: 2}))
	assert.InDelta(t, 5.0, Distance(Point{}, Point{X: 3, Y: 4}), 1e-12)
	assert.Equal(t, "1.5,-2", Point{X: 1.5, Y: -2}.String())
}

func TestDegenerate(t *testing.T) {
	for _, algo := range []Algorithm{Monotone, Polar} {
		for _, in := range [][]Point{nil, pts(1, 1), pts(1, 1, 2, 2)} {
			hull := algo.Hull(in)
			assert.Equal(t, len(in), len(hull), string(algo))
			assert.Equal(t, 0.0, Area(hull))
		}
	}
}

func TestHullDoesNotModifyInput(t *testing.T) {
	in := pts(3, 3, 0, 0, 1, 1, 0, 3, 3, 0)
	cp := clone(in)
	Hull(in)
	PolarHull(in)
	assert.Equal(t, cp, in)
}

func TestUnitSquare(t *testing.T) {
	square := pts(0, 0, 1, 0, 1, 1, 0, 1)
	r := rand.New(rand.NewPCG(1, 2))
	for i := 0; i < 10; i++ {
		in := clone(square)
		r.Shuffle(len(in), func(i, j int) { in[i], in[j] = in[j], in[i] })
		for _, algo := range []Algorithm{Monotone, Polar} {
			hull := algo.Hull(in)
			sameVertices(t, square, hull)
			assert.Equal(t, 1.0, Area(hull))
		}
	}
}

func TestTriangle(t *testing.T) {
	hull := Hull(pts(0, 0, 4, 0, 0, 3))
	assert.Len(t, hull, 3)
	assert.Equal(t, 6.0, Area(hull))
}

func TestInteriorAndCollinearPointsExcluded(t *testing.T) {
	in := pts(0, 0, 2, 0, 4, 0, 4, 2, 4, 4, 2, 4, 0, 4, 0, 2, 1, 1, 2, 2, 3, 1, 2, 2)
	for _, algo := range []Algorithm{Monotone, Polar} {
		hull := algo.Hull(in)
		sameVertices(t, pts(0, 0, 4, 0, 4, 4, 0, 4), hull)
		assert.Equal(t, 16.0, Area(hull))
	}
}

func TestCollinearAndCoincident(t *testing.T) {
	for _, algo := range []Algorithm{Monotone, Polar} {
		line := algo.Hull(pts(2, 2, 0, 0, 1, 1, 3, 3))
		sameVertices(t, pts(0, 0, 3, 3), line)
		assert.Equal(t, 0.0, Area(line))

		same := algo.Hull(pts(1, 1, 1, 1, 1, 1))
		assert.Equal(t, pts(1, 1), same)
	}
}

func TestCounterClockwiseOrder(t *testing.T) {
	hull := Hull(pts(1, 1, 0, 0, 2, 0, 2, 2, 0, 2))
	require.Len(t, hull, 4)
	assert.Equal(t, Point{}, hull[0])
	for i := range hull {
		a, b, c := hull[i], hull[(i+1)%4], hull[(i+2)%4]
		assert.Equal(t, CounterClockwise, a.Orientation(b, c))
	}
}

func TestIdempotentOnConvexInput(t *testing.T) {
	hexagon := pts(2, 0, 4, 1, 4, 3, 2, 4, 0, 3, 0, 1)
	first := Hull(hexagon)
	sameVertices(t, hexagon, first)
	assert.Equal(t, first, Hull(first))
}

func TestAlgorithmsAgree(t *testing.T) {
	r := rand.New(rand.NewPCG(42, 42))
	for round := 0; round < 50; round++ {
		in := make([]Point, 3+r.IntN(200))
		for i := range in {
			// small integer grid to provoke duplicates and collinear runs
			in[i] = Point{X: float64(r.IntN(20)), Y: float64(r.IntN(20))}
		}
		mono, polar := Hull(in), PolarHull(in)
		sameVertices(t, mono, polar)
		assert.Equal(t, Area(mono), Area(polar))

		// no input point lies strictly outside the hull
		if len(mono) >= 3 {
			for _, p := range in {
				for i := range mono {
					assert.NotEqual(t, Clockwise, mono[i].Orientation(mono[(i+1)%len(mono)], p))
				}
			}
		}
	}
}

func TestParseAlgorithm(t *testing.T) {
	a, err := ParseAlgorithm("polar")
	assert.NoError(t, err)
	assert.Equal(t, Polar, a)
	_, err = ParseAlgorithm("gift")
	assert.Error(t, err)
}
