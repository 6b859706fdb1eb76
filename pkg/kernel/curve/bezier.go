package curve

import (
	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Compile-time interface checks.
var (
	_ kernel.Geometry  = (*BezierC0)(nil)
	_ kernel.Colorable = (*BezierC0)(nil)
)

// BezierC0 is a chain of cubic Bezier segments sharing end points.
// Control points 0..3 form the first segment, 3..6 the second and so on;
// a trailing segment of two or three points is degree-elevated.
type BezierC0 struct {
	adaptive
	// ShowPolygon enables the control polygon in Lines.
	ShowPolygon bool
}

// NewBezierC0 returns an empty C0 Bezier curve.
func NewBezierC0() *BezierC0 {
	return &BezierC0{adaptive: newAdaptive(segments{size: 4, offset: 3, minWindow: 2})}
}

// Kind implements kernel.Geometry.
func (c *BezierC0) Kind() kernel.Kind { return kernel.KindBezierC0 }

// Segments returns the cubic segments of the curve.
func (c *BezierC0) Segments() [][]v3.Vec {
	return windows(c.points, c.seg, nil)
}

// Mesh implements kernel.Geometry.
func (c *BezierC0) Mesh() ([]kernel.Vertex, []uint32) {
	return kernel.Buffers(c.Segments(), c.color)
}

// Lines implements kernel.Geometry.
func (c *BezierC0) Lines() []kernel.Line {
	if !c.ShowPolygon {
		return nil
	}
	return polyline(c.points, polygonColor)
}

// VirtualPoints implements kernel.Geometry. The control points of a C0
// curve are its Bezier points, so there is nothing to derive.
func (c *BezierC0) VirtualPoints() []v3.Vec { return nil }

// MoveVirtualPoint implements kernel.Geometry.
func (c *BezierC0) MoveVirtualPoint(int, v3.Vec) []v3.Vec {
	return c.ControlPoints()
}
