package curve

import (
	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

// Compile-time interface checks.
var (
	_ kernel.Geometry  = (*InterpolatingC2)(nil)
	_ kernel.Colorable = (*InterpolatingC2)(nil)
)

// duplicateEps is the distance below which consecutive nodes are merged.
const duplicateEps = 1e-9

// powerToBernstein maps power basis coefficients (a, b, c, d) of a cubic on
// [0,1] to its Bezier points.
var powerToBernstein = mat.NewDense(4, 4, []float64{
	1, 0, 0, 0,
	1, 1.0 / 3, 0, 0,
	1, 2.0 / 3, 1.0 / 3, 0,
	1, 1, 1, 1,
})

// InterpolatingC2 is a natural cubic spline through its control points,
// parameterised by chord length.
type InterpolatingC2 struct {
	adaptive
	// ShowPolygon enables the polyline through the nodes in Lines.
	ShowPolygon bool
}

// NewInterpolatingC2 returns an empty interpolating curve.
func NewInterpolatingC2() *InterpolatingC2 {
	return &InterpolatingC2{adaptive: newAdaptive(segments{size: 4, offset: 3, minWindow: 2})}
}

// Kind implements kernel.Geometry.
func (c *InterpolatingC2) Kind() kernel.Kind { return kernel.KindInterpolatingC2 }

// Segments returns the Bezier segments of the interpolant.
func (c *InterpolatingC2) Segments() [][]v3.Vec {
	return windows(Interpolate(c.points), c.seg, nil)
}

// Mesh implements kernel.Geometry.
func (c *InterpolatingC2) Mesh() ([]kernel.Vertex, []uint32) {
	return kernel.Buffers(c.Segments(), c.color)
}

// Lines implements kernel.Geometry.
func (c *InterpolatingC2) Lines() []kernel.Line {
	if !c.ShowPolygon {
		return nil
	}
	return polyline(c.points, polygonColor)
}

// VirtualPoints implements kernel.Geometry. Interpolated nodes are edited
// directly.
func (c *InterpolatingC2) VirtualPoints() []v3.Vec { return nil }

// MoveVirtualPoint implements kernel.Geometry.
func (c *InterpolatingC2) MoveVirtualPoint(int, v3.Vec) []v3.Vec {
	return c.ControlPoints()
}

// Dedupe drops consecutive nodes closer than duplicateEps.
func Dedupe(points []v3.Vec) []v3.Vec {
	out := make([]v3.Vec, 0, len(points))
	for _, p := range points {
		if len(out) > 0 && kernel.Dist(out[len(out)-1], p) < duplicateEps {
			continue
		}
		out = append(out, p)
	}
	return out
}

// Interpolate returns the Bezier chain (3n+1 points for n+1 nodes) of the
// natural cubic spline through points. With fewer than three distinct
// nodes the input is returned unchanged.
func Interpolate(points []v3.Vec) []v3.Vec {
	nodes := Dedupe(points)
	if len(nodes) < 3 {
		return kernel.CloneVecs(points)
	}
	n := len(nodes) - 1

	chord := make([]float64, n)
	for i := range n {
		chord[i] = kernel.Dist(nodes[i+1], nodes[i])
	}

	alpha := make([]float64, n)
	beta := make([]float64, n)
	rhs := make([]v3.Vec, n)
	for i := 1; i < n; i++ {
		s := chord[i-1] + chord[i]
		alpha[i] = chord[i-1] / s
		beta[i] = chord[i] / s
		next := nodes[i+1].Sub(nodes[i]).DivScalar(chord[i])
		prev := nodes[i].Sub(nodes[i-1]).DivScalar(chord[i-1])
		rhs[i] = next.Sub(prev).MulScalar(3 / s)
	}
	c := solveTridiagonal(alpha, beta, rhs)

	chain := make([]v3.Vec, 0, 3*n+1)
	chain = append(chain, nodes[0])
	for i := range n {
		h := chord[i]
		a := nodes[i]
		d := c[i+1].Sub(c[i]).DivScalar(3 * h)
		b := nodes[i+1].Sub(nodes[i]).DivScalar(h).Sub(c[i].MulScalar(2).Add(c[i+1]).MulScalar(h / 3))
		bez := toBernstein(a, b.MulScalar(h), c[i].MulScalar(h*h), d.MulScalar(h*h*h))
		bez[3] = nodes[i+1]
		chain = append(chain, bez[1:]...)
	}
	return chain
}

// solveTridiagonal solves alpha[i] c[i-1] + 2 c[i] + beta[i] c[i+1] = rhs[i]
// for i in 1..n-1 with c[0] = c[n] = 0 (Thomas algorithm).
func solveTridiagonal(alpha, beta []float64, rhs []v3.Vec) []v3.Vec {
	n := len(rhs)
	c := make([]v3.Vec, n+1)
	if n < 2 {
		return c
	}
	cp := make([]float64, n)
	dp := make([]v3.Vec, n)
	for i := 1; i < n; i++ {
		denom := 2.0
		d := rhs[i]
		if i > 1 {
			denom -= alpha[i] * cp[i-1]
			d = d.Sub(dp[i-1].MulScalar(alpha[i]))
		}
		cp[i] = beta[i] / denom
		dp[i] = d.DivScalar(denom)
	}
	c[n-1] = dp[n-1]
	for i := n - 2; i >= 1; i-- {
		c[i] = dp[i].Sub(c[i+1].MulScalar(cp[i]))
	}
	return c
}

// toBernstein converts a + b t + c t^2 + d t^3 on [0,1] to Bezier points,
// one spatial axis per column.
func toBernstein(a, b, c, d v3.Vec) [4]v3.Vec {
	coeff := mat.NewDense(4, 3, []float64{
		a.X, a.Y, a.Z,
		b.X, b.Y, b.Z,
		c.X, c.Y, c.Z,
		d.X, d.Y, d.Z,
	})
	var bern mat.Dense
	bern.Mul(powerToBernstein, coeff)
	var out [4]v3.Vec
	for r := range 4 {
		out[r] = v3.Vec{X: bern.At(r, 0), Y: bern.At(r, 1), Z: bern.At(r, 2)}
	}
	return out
}
