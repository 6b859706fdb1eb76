package intersect

import (
	"math"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
)

type indexed struct {
	p rtreego.Point
	i int
}

func (x *indexed) Bounds() rtreego.Rect { return x.p.ToRect(1e-9) }

func toPoint(v v3.Vec) rtreego.Point { return rtreego.Point{v.X, v.Y, v.Z} }

// FindClosestPair returns the indices of the closest points of a and b and
// their distance. ok is false when either set is empty.
func FindClosestPair(a, b []v3.Vec) (i, j int, d float64, ok bool) {
	if len(a) == 0 || len(b) == 0 {
		return 0, 0, 0, false
	}
	tree := rtreego.NewTree(3, 25, 50)
	for k, p := range b {
		tree.Insert(&indexed{p: toPoint(p), i: k})
	}
	d = math.Inf(1)
	for k, p := range a {
		nn, found := tree.NearestNeighbor(toPoint(p)).(*indexed)
		if !found {
			continue
		}
		if dd := p.Sub(b[nn.i]).Length(); dd < d {
			i, j, d = k, nn.i, dd
		}
	}
	return i, j, d, true
}

// End selects a polyline end point.
type End int

const (
	Front End = iota
	Back
)

// Extrapolate extends the polyline at the given end by distance along the
// direction of its last segment. Polylines shorter than two points are
// returned unchanged.
func Extrapolate(points []v3.Vec, end End, distance float64) []v3.Vec {
	n := len(points)
	if n < 2 {
		return append([]v3.Vec(nil), points...)
	}
	var tip, prev v3.Vec
	if end == Front {
		tip, prev = points[0], points[1]
	} else {
		tip, prev = points[n-1], points[n-2]
	}
	dir := tip.Sub(prev)
	if dir.Length() == 0 {
		return append([]v3.Vec(nil), points...)
	}
	ext := tip.Add(dir.Normalize().MulScalar(distance))

	out := make([]v3.Vec, 0, n+1)
	if end == Front {
		out = append(out, ext)
		return append(out, points...)
	}
	out = append(out, points...)
	return append(out, ext)
}
