// Package kernel defines the parametric geometry kernel contracts.
// Curve, surface and Gregory geometries (in the curve, surface and gregory
// subpackages) implement Geometry; anything that can be sampled over a
// two-dimensional parameter domain implements Sampleable and can be handed
// to the intersection engine. The kernel holds positions only: control
// point identity and ownership live in the model layer.
package kernel

import (
	"errors"

	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrInvalidOperation is returned for bindings that can never be valid,
// such as pairing a geometry with a model of a different kind.
var ErrInvalidOperation = errors.New("kernel: invalid operation")

// ErrPointCount is returned by TrySetControlPoints when the number of
// supplied points does not match the geometry's topology.
var ErrPointCount = errors.New("kernel: control point count mismatch")

// Kind enumerates the closed set of geometry variants.
type Kind int

const (
	KindBezierC0        Kind = iota // piecewise cubic Bezier curve
	KindSplineC2                    // uniform cubic B-spline curve
	KindInterpolatingC2             // natural cubic interpolating curve
	KindSurfaceC0                   // bicubic Bezier surface
	KindSurfaceC2                   // bicubic B-spline surface
	KindGregory                     // Gregory hole fill
)

func (k Kind) String() string {
	switch k {
	case KindBezierC0:
		return "bezier-c0"
	case KindSplineC2:
		return "spline-c2"
	case KindInterpolatingC2:
		return "interp-c2"
	case KindSurfaceC0:
		return "surface-c0"
	case KindSurfaceC2:
		return "surface-c2"
	case KindGregory:
		return "gregory"
	default:
		return "unknown"
	}
}

// IsCurve reports whether the kind is one of the curve variants.
func (k Kind) IsCurve() bool {
	return k == KindBezierC0 || k == KindSplineC2 || k == KindInterpolatingC2
}

// IsSurface reports whether the kind is one of the tensor-product surfaces.
func (k Kind) IsSurface() bool {
	return k == KindSurfaceC0 || k == KindSurfaceC2
}

// Geometry is the contract shared by every curve and surface variant.
type Geometry interface {
	// Kind identifies the variant.
	Kind() Kind

	// SetControlPoints replaces the stored positions. Geometries with a
	// fixed topology silently ignore a mismatching count.
	SetControlPoints(points []v3.Vec)
	// ControlPoints returns a copy of the stored positions.
	ControlPoints() []v3.Vec

	// Mesh returns tessellation-ready vertex groups of PatchSize vertices
	// each and the matching index buffer.
	Mesh() ([]Vertex, []uint32)
	// PatchSize is the number of vertices the renderer groups into a patch.
	PatchSize() int
	// Lines returns optional debug polylines.
	Lines() []Line

	// VirtualPoints returns the derived, user-movable handles.
	VirtualPoints() []v3.Vec
	// MoveVirtualPoint maps a moved virtual point back onto a full, updated
	// control point list. The geometry itself is not modified.
	MoveVirtualPoint(index int, pos v3.Vec) []v3.Vec

	// GeometryChanged reports whether the mesh must be re-derived.
	GeometryChanged() bool
}

// Colorable is implemented by geometries whose vertices carry a colour.
type Colorable interface {
	SetColor(c Color)
	Color() Color
}

// Sampleable is a surface that can be evaluated over a rectangular
// parameter domain.
type Sampleable interface {
	Sample(u, v float64) v3.Vec
	DerivU(u, v float64) v3.Vec
	DerivV(u, v float64) v3.Vec
	WrapU() bool
	WrapV() bool
	RangeU() (min, max float64)
	RangeV() (min, max float64)
}

// Bounds returns the axis-aligned bounding box of a point set.
// An empty set yields the zero box.
func Bounds(points []v3.Vec) sdf.Box3 {
	if len(points) == 0 {
		return sdf.Box3{}
	}
	bb := sdf.Box3{Min: points[0], Max: points[0]}
	for _, p := range points[1:] {
		bb.Min = bb.Min.Min(p)
		bb.Max = bb.Max.Max(p)
	}
	return bb
}
