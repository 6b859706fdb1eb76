package surface

import (
	"math"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ Surface = (*BezierC0)(nil)

// BezierC0 is a grid of bicubic Bezier patches that share their border
// rows, giving a positionally continuous surface.
type BezierC0 struct {
	grid
}

// NewBezierC0 returns a surface with the given layout and all control
// points at the origin.
func NewBezierC0(t Topology) (*BezierC0, error) {
	g, err := newGrid(t, PatchSize-1, nil)
	if err != nil {
		return nil, err
	}
	return &BezierC0{grid: g}, nil
}

// Kind implements kernel.Geometry.
func (s *BezierC0) Kind() kernel.Kind { return kernel.KindSurfaceC0 }

// GenerateControlPoints returns a planar grid, or a cylinder of radius dimU
// and height dimV around Z when the surface wraps. Circle arcs between
// patch columns use the standard cubic approximation.
func (s *BezierC0) GenerateControlPoints(dimU, dimV float64) []v3.Vec {
	if !s.topo.Wrap {
		return s.planar(dimU, dimV)
	}
	n := s.topo.PatchesU
	step := 2 * math.Pi / float64(n)
	handle := 4.0 / 3 * math.Tan(math.Pi/(2*float64(n))) * dimU

	nu, nv := s.PointsU(), s.PointsV()
	out := make([]v3.Vec, 0, nu*nv)
	for j := range nv {
		z := s.height(j, dimV)
		for k := range n {
			a0, a1 := step*float64(k), step*float64(k+1)
			p0, p1 := ring(dimU, a0, z), ring(dimU, a1, z)
			t0 := v3.Vec{X: -math.Sin(a0), Y: math.Cos(a0)}
			t1 := v3.Vec{X: -math.Sin(a1), Y: math.Cos(a1)}
			out = append(out, p0, p0.Add(t0.MulScalar(handle)), p1.Sub(t1.MulScalar(handle)))
		}
	}
	return out
}
