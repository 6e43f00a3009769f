package tileindex

import (
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/planar"
)

// Intersects reports whether poly and the rectangle b share at least one
// point. Touching along an edge or at a corner counts. A rectangle lying
// strictly inside a hole does not intersect.
func Intersects(poly orb.Polygon, b orb.Bound) bool {
	if len(poly) == 0 || len(poly[0]) == 0 || !poly.Bound().Intersects(b) {
		return false
	}
	outer := poly[0]
	corners := [4]orb.Point{b.Min, {b.Max[0], b.Min[1]}, b.Max, {b.Min[0], b.Max[1]}}

	if !ringMeetsBound(outer, b, corners) {
		return false
	}
	for _, hole := range poly[1:] {
		if insideHole(hole, corners) {
			return false
		}
	}
	return true
}

func ringMeetsBound(ring orb.Ring, b orb.Bound, corners [4]orb.Point) bool {
	for _, p := range ring {
		if b.Contains(p) {
			return true
		}
	}
	for _, c := range corners {
		if planar.RingContains(ring, c) {
			return true
		}
	}
	return crossesBound(ring, corners)
}

func crossesBound(ring orb.Ring, corners [4]orb.Point) bool {
	for i := 0; i+1 < len(ring); i++ {
		for j := 0; j < 4; j++ {
			if segmentsIntersect(ring[i], ring[i+1], corners[j], corners[(j+1)%4]) {
				return true
			}
		}
	}
	return false
}

// insideHole holds when every corner is within the hole and no hole edge
// touches the rectangle.
func insideHole(hole orb.Ring, corners [4]orb.Point) bool {
	if len(hole) < 4 {
		return false
	}
	for _, c := range corners {
		if !planar.RingContains(hole, c) {
			return false
		}
	}
	return !crossesBound(hole, corners)
}

func orient(a, b, c orb.Point) float64 {
	return (b[0]-a[0])*(c[1]-a[1]) - (b[1]-a[1])*(c[0]-a[0])
}

func onSegment(a, b, p orb.Point) bool {
	return min(a[0], b[0]) <= p[0] && p[0] <= max(a[0], b[0]) &&
		min(a[1], b[1]) <= p[1] && p[1] <= max(a[1], b[1])
}

// segmentsIntersect is inclusive of touching and collinear overlap.
func segmentsIntersect(p1, p2, q1, q2 orb.Point) bool {
	d1 := orient(q1, q2, p1)
	d2 := orient(q1, q2, p2)
	d3 := orient(p1, p2, q1)
	d4 := orient(p1, p2, q2)

	if ((d1 > 0 && d2 < 0) || (d1 < 0 && d2 > 0)) && ((d3 > 0 && d4 < 0) || (d3 < 0 && d4 > 0)) {
		return true
	}
	switch {
	case d1 == 0 && onSegment(q1, q2, p1):
		return true
	case d2 == 0 && onSegment(q1, q2, p2):
		return true
	case d3 == 0 && onSegment(p1, p2, q1):
		return true
	case d4 == 0 && onSegment(p1, p2, q2):
		return true
	}
	return false
}
