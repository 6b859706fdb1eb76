package surface

import (
	"math"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/curve"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

var _ Surface = (*SplineC2)(nil)

// SplineC2 is a uniform bicubic B-spline surface. Each window of 4x4 de Boor
// points, advancing by one, yields one patch.
type SplineC2 struct {
	grid
}

// NewSplineC2 returns a surface with the given layout and all control points
// at the origin.
func NewSplineC2(t Topology) (*SplineC2, error) {
	g, err := newGrid(t, 1, deBoorToBezier)
	if err != nil {
		return nil, err
	}
	return &SplineC2{grid: g}, nil
}

// Kind implements kernel.Geometry.
func (s *SplineC2) Kind() kernel.Kind { return kernel.KindSurfaceC2 }

// deBoorToBezier converts a 4x4 de Boor window in place, rows then columns.
func deBoorToBezier(p *Patch) {
	for r := range PatchSize {
		p[r] = curve.DeBoorToBezier(p[r])
	}
	for c := range PatchSize {
		col := curve.DeBoorToBezier([4]v3.Vec{p[0][c], p[1][c], p[2][c], p[3][c]})
		for r := range PatchSize {
			p[r][c] = col[r]
		}
	}
}

// GenerateControlPoints returns a planar grid, or, when wrapped, a ring of
// de Boor points whose spline passes through radius dimU at every knot.
func (s *SplineC2) GenerateControlPoints(dimU, dimV float64) []v3.Vec {
	if !s.topo.Wrap {
		return s.planar(dimU, dimV)
	}
	n := s.PointsU()
	step := 2 * math.Pi / float64(n)
	radius := 3 * dimU / (2 + math.Cos(step))

	nv := s.PointsV()
	out := make([]v3.Vec, 0, n*nv)
	for j := range nv {
		z := s.height(j, dimV)
		for i := range n {
			out = append(out, ring(radius, step*float64(i), z))
		}
	}
	return out
}
