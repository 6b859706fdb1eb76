// Package surface implements tensor-product bicubic surfaces over a grid of
// control points: a C0 Bezier variant whose patches share border rows and a
// C2 uniform B-spline variant. Both may wrap in U to form a closed tube.
package surface

import (
	"fmt"
	"math"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

const (
	// PatchSize is the number of control points along one patch side.
	PatchSize = 4
	// DefaultLevel is the tessellation level used when none is set.
	DefaultLevel = 8
	// derivStep is the finite difference step in parameter space.
	derivStep = 0.001
)

var netColor = kernel.Color{R: 0.6, G: 0.6, B: 0.6, A: 1}

// Topology describes the patch layout of a surface.
type Topology struct {
	PatchesU int  `json:"patchesU"`
	PatchesV int  `json:"patchesV"`
	Wrap     bool `json:"wrap"`
	Level    int  `json:"level"`
}

func (t Topology) validate() error {
	if t.PatchesU < 1 || t.PatchesV < 1 {
		return fmt.Errorf("surface: %dx%d patches: %w", t.PatchesU, t.PatchesV, kernel.ErrInvalidOperation)
	}
	if t.Wrap && t.PatchesU < 3 {
		return fmt.Errorf("surface: wrapped surface needs 3 patches in U, got %d: %w", t.PatchesU, kernel.ErrInvalidOperation)
	}
	return nil
}

// Surface is the contract shared by both surface variants.
type Surface interface {
	kernel.Geometry
	kernel.Colorable
	kernel.Sampleable

	Topology() Topology
	PointsU() int
	PointsV() int
	PointAt(i, j int) v3.Vec
	Patches() []Patch
	TrySetControlPoints(points []v3.Vec) error
	GenerateControlPoints(dimU, dimV float64) []v3.Vec
}

// grid holds the state shared by the surface variants. Points are stored
// row by row: index j*PointsU + i.
type grid struct {
	topo    Topology
	offset  int
	points  []v3.Vec
	color   kernel.Color
	convert func(*Patch)
	patches []Patch

	// ShowNet enables the control net in Lines.
	ShowNet bool
}

func newGrid(t Topology, offset int, convert func(*Patch)) (grid, error) {
	if err := t.validate(); err != nil {
		return grid{}, err
	}
	if t.Level <= 0 {
		t.Level = DefaultLevel
	}
	g := grid{topo: t, offset: offset, color: kernel.White, convert: convert}
	g.points = make([]v3.Vec, g.PointsU()*g.PointsV())
	return g, nil
}

// Topology returns the patch layout.
func (g *grid) Topology() Topology { return g.topo }

// PointsU is the number of stored control point columns.
func (g *grid) PointsU() int {
	if g.topo.Wrap {
		return g.offset * g.topo.PatchesU
	}
	return PatchSize + g.offset*(g.topo.PatchesU-1)
}

// PointsV is the number of control point rows.
func (g *grid) PointsV() int {
	return PatchSize + g.offset*(g.topo.PatchesV-1)
}

// PointAt returns control point (i, j). Column indices wrap when the surface
// is closed in U.
func (g *grid) PointAt(i, j int) v3.Vec {
	nu := g.PointsU()
	if g.topo.Wrap {
		i = ((i % nu) + nu) % nu
	}
	return g.points[j*nu+i]
}

// SetControlPoints stores points when the count matches the grid; any other
// count is ignored.
func (g *grid) SetControlPoints(points []v3.Vec) {
	_ = g.TrySetControlPoints(points)
}

// TrySetControlPoints stores points or reports a count mismatch.
func (g *grid) TrySetControlPoints(points []v3.Vec) error {
	if want := g.PointsU() * g.PointsV(); len(points) != want {
		return fmt.Errorf("surface: got %d points, want %d: %w", len(points), want, kernel.ErrPointCount)
	}
	g.points = kernel.CloneVecs(points)
	g.patches = nil
	return nil
}

// ControlPoints returns a copy of the grid.
func (g *grid) ControlPoints() []v3.Vec { return kernel.CloneVecs(g.points) }

// SetColor sets the vertex colour.
func (g *grid) SetColor(c kernel.Color) { g.color = c }

// Color returns the vertex colour.
func (g *grid) Color() kernel.Color { return g.color }

// PatchSize is the number of vertices per patch group.
func (g *grid) PatchSize() int { return PatchSize * PatchSize }

// GeometryChanged always reports true.
func (g *grid) GeometryChanged() bool { return true }

// VirtualPoints returns nil: surfaces are edited through their grid.
func (g *grid) VirtualPoints() []v3.Vec { return nil }

// MoveVirtualPoint returns the control points unchanged.
func (g *grid) MoveVirtualPoint(int, v3.Vec) []v3.Vec { return g.ControlPoints() }

// rawPatch gathers the 4x4 control window of patch (pu, pv).
func (g *grid) rawPatch(pu, pv int) Patch {
	var p Patch
	for r := range PatchSize {
		for c := range PatchSize {
			p[r][c] = g.PointAt(pu*g.offset+c, pv*g.offset+r)
		}
	}
	return p
}

// Patches returns every patch in Bezier form, U fastest.
func (g *grid) Patches() []Patch {
	if g.patches == nil {
		g.patches = make([]Patch, 0, g.topo.PatchesU*g.topo.PatchesV)
		for pv := range g.topo.PatchesV {
			for pu := range g.topo.PatchesU {
				p := g.rawPatch(pu, pv)
				if g.convert != nil {
					g.convert(&p)
				}
				g.patches = append(g.patches, p)
			}
		}
	}
	out := make([]Patch, len(g.patches))
	copy(out, g.patches)
	return out
}

// Mesh emits the sixteen Bezier points of every patch.
func (g *grid) Mesh() ([]kernel.Vertex, []uint32) {
	patches := g.Patches()
	groups := make([][]v3.Vec, len(patches))
	for k, p := range patches {
		group := make([]v3.Vec, 0, PatchSize*PatchSize)
		for r := range PatchSize {
			group = append(group, p[r][:]...)
		}
		groups[k] = group
	}
	return kernel.Buffers(groups, g.color)
}

// Lines draws the control net when ShowNet is set.
func (g *grid) Lines() []kernel.Line {
	if !g.ShowNet {
		return nil
	}
	nu, nv := g.PointsU(), g.PointsV()
	var lines []kernel.Line
	for j := range nv {
		row := make([]v3.Vec, 0, nu+1)
		for i := range nu {
			row = append(row, g.PointAt(i, j))
		}
		if g.topo.Wrap {
			row = append(row, g.PointAt(0, j))
		}
		lines = append(lines, kernel.Line{Points: row, Color: netColor})
	}
	for i := range nu {
		col := make([]v3.Vec, nv)
		for j := range nv {
			col[j] = g.PointAt(i, j)
		}
		lines = append(lines, kernel.Line{Points: col, Color: netColor})
	}
	return lines
}

// WrapU reports whether the surface is closed in U.
func (g *grid) WrapU() bool { return g.topo.Wrap }

// WrapV always reports false.
func (g *grid) WrapV() bool { return false }

// RangeU returns the U parameter domain.
func (g *grid) RangeU() (float64, float64) { return 0, 1 }

// RangeV returns the V parameter domain.
func (g *grid) RangeV() (float64, float64) { return 0, 1 }

// locate maps a global parameter onto a patch index and local parameter.
func locate(t float64, patches int, wrap bool) (int, float64) {
	if wrap {
		t -= math.Floor(t)
	} else {
		t = min(max(t, 0), 1)
	}
	s := t * float64(patches)
	k := min(int(s), patches-1)
	return k, s - float64(k)
}

// Sample evaluates the surface at (u, v) in [0,1]^2.
func (g *grid) Sample(u, v float64) v3.Vec {
	pu, lu := locate(u, g.topo.PatchesU, g.topo.Wrap)
	pv, lv := locate(v, g.topo.PatchesV, false)
	if g.patches == nil {
		g.Patches()
	}
	return g.patches[pv*g.topo.PatchesU+pu].Eval(lu, lv)
}

// DerivU approximates dS/du by a finite difference.
func (g *grid) DerivU(u, v float64) v3.Vec {
	if !g.topo.Wrap && u+derivStep > 1 {
		return g.Sample(u, v).Sub(g.Sample(u-derivStep, v)).DivScalar(derivStep)
	}
	return g.Sample(u+derivStep, v).Sub(g.Sample(u, v)).DivScalar(derivStep)
}

// DerivV approximates dS/dv by a finite difference.
func (g *grid) DerivV(u, v float64) v3.Vec {
	if v+derivStep > 1 {
		return g.Sample(u, v).Sub(g.Sample(u, v-derivStep)).DivScalar(derivStep)
	}
	return g.Sample(u, v+derivStep).Sub(g.Sample(u, v)).DivScalar(derivStep)
}

// planar lays out a PointsU x PointsV grid in the XY plane spanning
// [-dimU/2, dimU/2] x [-dimV/2, dimV/2].
func (g *grid) planar(dimU, dimV float64) []v3.Vec {
	nu, nv := g.PointsU(), g.PointsV()
	out := make([]v3.Vec, 0, nu*nv)
	for j := range nv {
		y := dimV * (float64(j)/float64(nv-1) - 0.5)
		for i := range nu {
			x := dimU * (float64(i)/float64(nu-1) - 0.5)
			out = append(out, v3.Vec{X: x, Y: y})
		}
	}
	return out
}

// height returns the Z coordinate of row j on a cylinder of height dimV.
func (g *grid) height(j int, dimV float64) float64 {
	return dimV * (float64(j)/float64(g.PointsV()-1) - 0.5)
}

func ring(radius, angle, z float64) v3.Vec {
	return v3.Vec{X: radius * math.Cos(angle), Y: radius * math.Sin(angle), Z: z}
}
