package curve

import (
	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Geometry  = (*SplineC2)(nil)
	_ kernel.Colorable = (*SplineC2)(nil)
)

var bezierPolygonColor = kernel.Color{R: 0.9, G: 0.5, B: 0.1, A: 1}

// SplineC2 is a uniform cubic B-spline over de Boor control points.
// Every window of four consecutive de Boor points yields one Bezier segment.
type SplineC2 struct {
	adaptive
	// ShowDeBoor enables the de Boor polygon in Lines.
	ShowDeBoor bool
	// ShowBezier enables the derived Bezier polygon in Lines.
	ShowBezier bool
}

// NewSplineC2 returns an empty C2 spline.
func NewSplineC2() *SplineC2 {
	return &SplineC2{adaptive: newAdaptive(segments{size: 4, offset: 1, minWindow: 4})}
}

// Kind implements kernel.Geometry.
func (c *SplineC2) Kind() kernel.Kind { return kernel.KindSplineC2 }

// DeBoorToBezier converts four uniform de Boor points to the Bezier points
// of the segment they span.
func DeBoorToBezier(d [4]v3.Vec) [4]v3.Vec {
	w1 := kernel.Lerp(d[0], d[1], 2.0/3)
	w2 := kernel.Lerp(d[1], d[2], 1.0/3)
	w3 := kernel.Lerp(d[1], d[2], 2.0/3)
	w4 := kernel.Lerp(d[2], d[3], 1.0/3)
	return [4]v3.Vec{kernel.Mid(w1, w2), w2, w3, kernel.Mid(w3, w4)}
}

func convertWindow(w []v3.Vec) []v3.Vec {
	b := DeBoorToBezier([4]v3.Vec{w[0], w[1], w[2], w[3]})
	return b[:]
}

// Segments returns the Bezier segments of the spline.
func (c *SplineC2) Segments() [][]v3.Vec {
	return windows(c.points, c.seg, convertWindow)
}

// Mesh implements kernel.Geometry.
func (c *SplineC2) Mesh() ([]kernel.Vertex, []uint32) {
	return kernel.Buffers(c.Segments(), c.color)
}

// Lines implements kernel.Geometry.
func (c *SplineC2) Lines() []kernel.Line {
	var lines []kernel.Line
	if c.ShowDeBoor {
		lines = append(lines, polyline(c.points, polygonColor)...)
	}
	if c.ShowBezier {
		lines = append(lines, polyline(c.VirtualPoints(), bezierPolygonColor)...)
	}
	return lines
}

// VirtualPoints returns the Bezier chain of the spline: 3k+1 points for k
// segments, joints shared.
func (c *SplineC2) VirtualPoints() []v3.Vec {
	segs := c.Segments()
	if len(segs) == 0 {
		return nil
	}
	chain := make([]v3.Vec, 0, 3*len(segs)+1)
	chain = append(chain, segs[0][0])
	for _, s := range segs {
		chain = append(chain, s[1:]...)
	}
	return chain
}

// MoveVirtualPoint moves Bezier chain point index to pos by rewriting the
// single de Boor point that controls it. Out of range indices return the
// control points unchanged.
func (c *SplineC2) MoveVirtualPoint(index int, pos v3.Vec) []v3.Vec {
	d := c.ControlPoints()
	segs := len(d) - 3
	if segs < 1 || index < 0 || index > 3*segs {
		return d
	}
	i := index/3 + 1
	switch index % 3 {
	case 0:
		v1 := kernel.Mid(d[i-1], d[i+1])
		d[i] = v1.Add(pos.Sub(v1).MulScalar(1.5))
	case 1:
		d[i] = d[i+1].Add(pos.Sub(d[i+1]).MulScalar(1.5))
	case 2:
		d[i] = d[i+1].Add(pos.Sub(d[i+1]).MulScalar(3))
	}
	return d
}
