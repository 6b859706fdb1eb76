package gregory

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// ControlPointCount is the number of points a Patch is force-set with:
	// three boundary runs followed by three derivative runs.
	ControlPointCount = 24
	// SubPatchSize is the number of points of one Gregory sub-patch.
	SubPatchSize = 20

	weightEps = 1e-12
)

var vectorColor = kernel.Color{R: 0.2, G: 0.8, B: 0.9, A: 1}

// Compile-time interface checks.
var (
	_ kernel.Geometry  = (*Patch)(nil)
	_ kernel.Colorable = (*Patch)(nil)
)

// SubPatch is one of the three quadrilateral Gregory patches covering a
// triangular hole. Grid holds the sixteen Bezier points with the row-derived
// version of each interior point; Twin holds the column-derived versions of
// the interior points (1,1), (1,2), (2,1), (2,2).
type SubPatch struct {
	Grid [4][4]v3.Vec
	Twin [2][2]v3.Vec
}

// Points returns the twenty control points: the grid row by row followed by
// the four twins.
func (s *SubPatch) Points() []v3.Vec {
	out := make([]v3.Vec, 0, SubPatchSize)
	for r := range 4 {
		out = append(out, s.Grid[r][:]...)
	}
	for r := range 2 {
		out = append(out, s.Twin[r][:]...)
	}
	return out
}

func blend(a, b v3.Vec, wa, wb float64) v3.Vec {
	w := wa + wb
	if w < weightEps {
		return kernel.Mid(a, b)
	}
	return a.MulScalar(wa / w).Add(b.MulScalar(wb / w))
}

// Eval evaluates the sub-patch at (u, v) in [0,1]^2, blending the interior
// twins with the Gregory weights.
func (s *SubPatch) Eval(u, v float64) v3.Vec {
	g := s.Grid
	g[1][1] = blend(s.Grid[1][1], s.Twin[0][0], u, v)
	g[1][2] = blend(s.Grid[1][2], s.Twin[0][1], 1-u, v)
	g[2][1] = blend(s.Grid[2][1], s.Twin[1][0], u, 1-v)
	g[2][2] = blend(s.Grid[2][2], s.Twin[1][1], 1-u, 1-v)
	var col [4]v3.Vec
	for r := range 4 {
		col[r] = kernel.DeCasteljau(g[r][:], u)
	}
	return kernel.DeCasteljau(col[:], v)
}

// Patch fills a triangular hole with three Gregory sub-patches. Its control
// points are derived from the donor surfaces and can only be force-set.
type Patch struct {
	points []v3.Vec
	subs   [3]SubPatch
	color  kernel.Color

	// ShowVectors enables the twin handle lines in Lines.
	ShowVectors bool
}

// NewPatch returns an empty Gregory patch.
func NewPatch() *Patch {
	return &Patch{color: kernel.White}
}

// Kind implements kernel.Geometry.
func (p *Patch) Kind() kernel.Kind { return kernel.KindGregory }

// SetControlPoints is ignored; use ForceSetControlPoints.
func (p *Patch) SetControlPoints([]v3.Vec) {}

// ForceSetControlPoints replaces the boundary and derivative runs and
// rebuilds the sub-patches.
func (p *Patch) ForceSetControlPoints(points []v3.Vec) error {
	if len(points) != ControlPointCount {
		return fmt.Errorf("gregory: got %d points, want %d: %w", len(points), ControlPointCount, kernel.ErrPointCount)
	}
	var h Hole
	for i := range 3 {
		copy(h.Boundary[i][:], points[4*i:4*i+4])
		copy(h.Derivative[i][:], points[12+4*i:12+4*i+4])
	}
	p.points = kernel.CloneVecs(points)
	p.subs = Fill(h)
	return nil
}

// ControlPoints returns the force-set runs.
func (p *Patch) ControlPoints() []v3.Vec { return kernel.CloneVecs(p.points) }

// SubPatches returns the three sub-patches; sub-patch i sits at hole corner i.
func (p *Patch) SubPatches() [3]SubPatch { return p.subs }

// SetColor sets the vertex colour.
func (p *Patch) SetColor(c kernel.Color) { p.color = c }

// Color returns the vertex colour.
func (p *Patch) Color() kernel.Color { return p.color }

// PatchSize is the number of vertices of one sub-patch.
func (p *Patch) PatchSize() int { return SubPatchSize }

// GeometryChanged always reports true.
func (p *Patch) GeometryChanged() bool { return true }

// Mesh emits the twenty points of every sub-patch. An unset patch is empty.
func (p *Patch) Mesh() ([]kernel.Vertex, []uint32) {
	if p.points == nil {
		return nil, nil
	}
	groups := make([][]v3.Vec, 3)
	for i := range p.subs {
		groups[i] = p.subs[i].Points()
	}
	return kernel.Buffers(groups, p.color)
}

// Lines connects every interior twin to the border point it was derived
// from when ShowVectors is set.
func (p *Patch) Lines() []kernel.Line {
	if !p.ShowVectors || p.points == nil {
		return nil
	}
	var lines []kernel.Line
	seg := func(a, b v3.Vec) {
		lines = append(lines, kernel.Line{Points: []v3.Vec{a, b}, Color: vectorColor})
	}
	for _, s := range p.subs {
		g := s.Grid
		seg(g[0][1], g[1][1])
		seg(g[0][2], g[1][2])
		seg(g[1][0], s.Twin[0][0])
		seg(g[2][0], s.Twin[1][0])
		seg(g[3][1], g[2][1])
		seg(g[3][2], g[2][2])
		seg(g[1][3], s.Twin[0][1])
		seg(g[2][3], s.Twin[1][1])
	}
	return lines
}

// VirtualPoints returns nil; a Gregory patch has no user handles.
func (p *Patch) VirtualPoints() []v3.Vec { return nil }

// MoveVirtualPoint returns the control points unchanged.
func (p *Patch) MoveVirtualPoint(int, v3.Vec) []v3.Vec { return p.ControlPoints() }

func reflect(p, about v3.Vec) v3.Vec {
	return p.Add(p.Sub(about))
}

// Fill derives the three sub-patches of a hole. Every boundary run and its
// derivative run are split at the middle; the inner curves meet at a common
// centre P0.
func Fill(h Hole) [3]SubPatch {
	var left, right, dLeft, dRight [3][4]v3.Vec
	var mid, p1, p2 [3]v3.Vec
	var q [3]v3.Vec
	for i := range 3 {
		left[i], right[i] = kernel.SplitCubic(h.Boundary[i], 0.5)
		dLeft[i], dRight[i] = kernel.SplitCubic(h.Derivative[i], 0.5)
		mid[i] = left[i][3]
		p2[i] = reflect(mid[i], dLeft[i][3])
		q[i] = p2[i].MulScalar(3).Sub(mid[i]).DivScalar(2)
	}
	p0 := q[0].Add(q[1]).Add(q[2]).DivScalar(3)
	for i := range 3 {
		p1[i] = q[i].MulScalar(2).Add(p0).DivScalar(3)
	}

	var subs [3]SubPatch
	for j := range 3 {
		prev := (j + 2) % 3
		s := &subs[j]
		g := &s.Grid

		g[0] = left[j]
		g[1][0], g[2][0] = right[prev][2], right[prev][1]
		g[3] = [4]v3.Vec{mid[prev], p2[prev], p1[prev], p0}
		g[1][3], g[2][3] = p2[j], p1[j]

		// Cross-boundary vectors along the inner curves, interpolated
		// linearly from the edge midpoint to the centre.
		along := func(t float64) v3.Vec {
			return kernel.Lerp(left[j][2].Sub(mid[j]), p1[prev].Sub(p0), t)
		}
		across := func(t float64) v3.Vec {
			return kernel.Lerp(right[prev][1].Sub(mid[prev]), p1[j].Sub(p0), t)
		}

		g[1][1] = reflect(left[j][1], dLeft[j][1])
		g[1][2] = reflect(left[j][2], dLeft[j][2])
		g[2][1] = p2[prev].Add(across(1.0 / 3))
		g[2][2] = p1[prev].Add(across(2.0 / 3))

		s.Twin[0][0] = reflect(right[prev][2], dRight[prev][2])
		s.Twin[1][0] = reflect(right[prev][1], dRight[prev][1])
		s.Twin[0][1] = p2[j].Add(along(1.0 / 3))
		s.Twin[1][1] = p1[j].Add(along(2.0 / 3))
	}
	return subs
}
