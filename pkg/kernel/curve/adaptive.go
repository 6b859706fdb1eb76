// Package curve implements the adaptive curve variants of the geometry
// kernel: piecewise cubic Bezier (C0), uniform cubic B-spline (C2) and
// natural cubic interpolation (C2). Every variant turns its control points
// into independent groups of four Bezier vertices for patch tessellation.
package curve

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// cubicPatch is the number of vertices per tessellation group.
const cubicPatch = 4

// polygonColor is used for debug polylines.
var polygonColor = kernel.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}

// segments describes how a processed point list is cut into windows.
type segments struct {
	size      int // points per window
	offset    int // window advance
	minWindow int // shorter windows are dropped
}

// adaptive holds the state shared by all curve variants.
type adaptive struct {
	points []v3.Vec
	color  kernel.Color
	seg    segments
}

func newAdaptive(seg segments) adaptive {
	if seg.size < 2 || seg.offset > seg.size || seg.offset < 1 {
		panic(fmt.Sprintf("curve: invalid segments %+v", seg))
	}
	return adaptive{color: kernel.White, seg: seg}
}

// SetControlPoints replaces the stored control points.
func (a *adaptive) SetControlPoints(points []v3.Vec) {
	a.points = kernel.CloneVecs(points)
}

// ControlPoints returns a copy of the stored control points.
func (a *adaptive) ControlPoints() []v3.Vec {
	return kernel.CloneVecs(a.points)
}

// SetColor sets the vertex colour.
func (a *adaptive) SetColor(c kernel.Color) { a.color = c }

// Color returns the vertex colour.
func (a *adaptive) Color() kernel.Color { return a.color }

// PatchSize returns the tessellation group size.
func (a *adaptive) PatchSize() int { return cubicPatch }

// SegmentSize is the number of processed points forming one window.
func (a *adaptive) SegmentSize() int { return a.seg.size }

// SegmentOffset is the window advance.
func (a *adaptive) SegmentOffset() int { return a.seg.offset }

// GeometryChanged always reports true; curves are re-derived every refresh.
func (a *adaptive) GeometryChanged() bool { return true }

// windows slides a window over points. convert, when non-nil, maps each
// full window before degree elevation.
func windows(points []v3.Vec, seg segments, convert func([]v3.Vec) []v3.Vec) [][]v3.Vec {
	var groups [][]v3.Vec
	for start := 0; start < len(points); start += seg.offset {
		end := min(start+seg.size, len(points))
		w := points[start:end]
		if len(w) >= seg.minWindow {
			if convert != nil {
				w = convert(w)
			}
			cubic, err := Elevate(w)
			if err == nil {
				groups = append(groups, cubic[:])
			}
		}
		if end == len(points) {
			break
		}
	}
	return groups
}

// Elevate raises a window of 2, 3 or 4 Bezier points to a cubic without
// changing its shape. A line becomes a quadratic first.
func Elevate(w []v3.Vec) ([4]v3.Vec, error) {
	switch len(w) {
	case 2:
		return elevateQuadratic([3]v3.Vec{w[0], kernel.Mid(w[0], w[1]), w[1]}), nil
	case 3:
		return elevateQuadratic([3]v3.Vec{w[0], w[1], w[2]}), nil
	case 4:
		return [4]v3.Vec{w[0], w[1], w[2], w[3]}, nil
	}
	return [4]v3.Vec{}, fmt.Errorf("curve: elevate %d points: %w", len(w), kernel.ErrInvalidOperation)
}

func elevateQuadratic(q [3]v3.Vec) [4]v3.Vec {
	return [4]v3.Vec{
		q[0],
		q[0].MulScalar(1.0 / 3).Add(q[1].MulScalar(2.0 / 3)),
		q[1].MulScalar(2.0 / 3).Add(q[2].MulScalar(1.0 / 3)),
		q[2],
	}
}

// polyline wraps points in a debug line when there is something to draw.
func polyline(points []v3.Vec, c kernel.Color) []kernel.Line {
	if len(points) < 2 {
		return nil
	}
	return []kernel.Line{{Points: kernel.CloneVecs(points), Color: c}}
}
