package intersect

import (
	"errors"
	"fmt"
	"math"
	"slices"

	v3 "github.com/deadsy/sdfx/vec/v3"
	"gonum.org/v1/gonum/mat"
)

const (
	tangentEps = 1e-12
	// halvings is how many times a failed step is retried at half length.
	halvings = 4
)

type node struct {
	s Solution
	p v3.Vec
}

// errBorder is returned by step when the curve reaches a parameter border
// but no point on both surfaces can be settled there.
var errBorder = errors.New("intersect: no settled border point")

// end tells how a march in one direction stopped.
type end int

const (
	endExit end = iota
	endClosed
)

// trace marches from start in both directions and assembles the curve.
func (e *engine) trace(start Solution) (*Curve, error) {
	first := node{s: start, p: e.point(start)}
	budget := e.opts.MaxSteps

	fwd, how, err := e.march(first, 1, &budget)
	if err != nil {
		return nil, err
	}
	nodes := append([]node{first}, fwd...)
	if how == endExit {
		back, _, err := e.march(first, -1, &budget)
		if err != nil {
			return nil, err
		}
		slices.Reverse(back)
		nodes = append(back, nodes...)
	}

	c := &Curve{A: e.a, B: e.b, Closed: how == endClosed}
	for _, n := range nodes {
		c.Points = append(c.Points, n.p)
		c.Solutions = append(c.Solutions, n.s)
	}
	return c, nil
}

// march steps along the intersection from first in direction dir until the
// curve closes or leaves a parameter domain. budget is shared by both
// directions.
func (e *engine) march(first node, dir float64, budget *int) ([]node, end, error) {
	var out []node
	cur := first
	for {
		if *budget <= 0 {
			return nil, 0, fmt.Errorf("%d steps: %w", e.opts.MaxSteps, ErrDiverged)
		}
		*budget--

		next, exited, err := e.step(cur, dir)
		if errors.Is(err, errBorder) {
			// Stop at the last converged node.
			return out, endExit, nil
		}
		if err != nil {
			return nil, 0, err
		}
		if len(out) >= 2 && next.p.Sub(first.p).Length() < e.opts.Step {
			return out, endClosed, nil
		}
		if exited && next.p.Sub(cur.p).Length() < e.opts.Tolerance {
			// Already on the border.
			return out, endExit, nil
		}
		out = append(out, next)
		if exited {
			return out, endExit, nil
		}
		cur = next
	}
}

// tangent returns the unit direction of the intersection at s.
func (e *engine) tangent(s Solution) (v3.Vec, bool) {
	na := e.a.DerivU(s.U1, s.V1).Cross(e.a.DerivV(s.U1, s.V1))
	nb := e.b.DerivU(s.U2, s.V2).Cross(e.b.DerivV(s.U2, s.V2))
	t := na.Cross(nb)
	if t.Length() < tangentEps {
		return v3.Vec{}, false
	}
	return t.Normalize(), true
}

// step advances by the configured distance, halving it when Newton fails.
// errBorder is returned when the last attempt failed on a parameter border.
func (e *engine) step(cur node, dir float64) (node, bool, error) {
	t, ok := e.tangent(cur.s)
	if !ok {
		return node{}, false, fmt.Errorf("tangent surfaces at %v: %w", cur.p, ErrDiverged)
	}
	t = t.MulScalar(dir)
	d := e.opts.Step
	var exited bool
	for range halvings + 1 {
		var s Solution
		if s, exited, ok = e.correct(cur, t, d); ok {
			return node{s: s, p: e.point(s)}, exited, nil
		}
		d /= 2
	}
	if exited {
		return node{}, false, fmt.Errorf("at %v: %w", cur.p, errBorder)
	}
	return node{}, false, fmt.Errorf("no convergence at %v: %w", cur.p, ErrDiverged)
}

// predict moves the parameters of one surface so that its point advances
// by delta, to first order.
func predict(su, sv, delta v3.Vec) (float64, float64) {
	m := mat.NewDense(2, 2, []float64{su.Dot(su), su.Dot(sv), sv.Dot(su), sv.Dot(sv)})
	var x mat.VecDense
	if err := x.SolveVec(m, mat.NewVecDense(2, []float64{su.Dot(delta), sv.Dot(delta)})); err != nil {
		return 0, 0
	}
	return x.AtVec(0), x.AtVec(1)
}

// correct solves A - B = 0, (A - P)·t = d by Newton iteration from a first
// order prediction. A step leaving an open parameter range is clamped to the
// border and reported as an exit.
func (e *engine) correct(cur node, t v3.Vec, d float64) (Solution, bool, bool) {
	s := cur.s
	delta := t.MulScalar(d)
	du1, dv1 := predict(e.a.DerivU(s.U1, s.V1), e.a.DerivV(s.U1, s.V1), delta)
	du2, dv2 := predict(e.b.DerivU(s.U2, s.V2), e.b.DerivV(s.U2, s.V2), delta)
	x := Solution{s.U1 + du1, s.V1 + dv1, s.U2 + du2, s.V2 + dv2}.Wrap(e.a, e.b)
	if c, held := x.bound(e.a, e.b); held != [4]bool{} {
		return e.border(c, held)
	}

	for range e.opts.NewtonIterations {
		a := e.a.Sample(x.U1, x.V1)
		f := a.Sub(e.b.Sample(x.U2, x.V2))
		g := a.Sub(cur.p).Dot(t) - d
		if f.Length() < e.opts.Tolerance && math.Abs(g) < e.opts.Tolerance {
			return x, false, true
		}
		au, av := e.a.DerivU(x.U1, x.V1), e.a.DerivV(x.U1, x.V1)
		bu, bv := e.b.DerivU(x.U2, x.V2), e.b.DerivV(x.U2, x.V2)
		j := mat.NewDense(4, 4, []float64{
			au.X, av.X, -bu.X, -bv.X,
			au.Y, av.Y, -bu.Y, -bv.Y,
			au.Z, av.Z, -bu.Z, -bv.Z,
			au.Dot(t), av.Dot(t), 0, 0,
		})
		var dx mat.VecDense
		if err := dx.SolveVec(j, mat.NewVecDense(4, []float64{f.X, f.Y, f.Z, g})); err != nil {
			return x, false, false
		}
		x = x.minus(&dx).Wrap(e.a, e.b)
		if c, held := x.bound(e.a, e.b); held != [4]bool{} {
			return e.border(c, held)
		}
	}
	return x, false, false
}

// border settles a clamped solution onto both surfaces. The held
// parameters stay on their bounds and Newton solves for the others; a
// parameter that reaches a bound on the way is held from then on.
func (e *engine) border(c Solution, held [4]bool) (Solution, bool, bool) {
	for range e.opts.NewtonIterations {
		f := e.residual(c)
		if f.Length() < e.opts.Tolerance {
			return c, true, true
		}
		free := make([]int, 0, 4)
		for i, h := range held {
			if !h {
				free = append(free, i)
			}
		}
		if len(free) == 0 {
			break
		}
		cols := [4]v3.Vec{
			e.a.DerivU(c.U1, c.V1),
			e.a.DerivV(c.U1, c.V1),
			e.b.DerivU(c.U2, c.V2).Neg(),
			e.b.DerivV(c.U2, c.V2).Neg(),
		}
		j := mat.NewDense(3, len(free), nil)
		for k, i := range free {
			j.Set(0, k, cols[i].X)
			j.Set(1, k, cols[i].Y)
			j.Set(2, k, cols[i].Z)
		}
		var dx mat.VecDense
		if err := dx.SolveVec(j, mat.NewVecDense(3, []float64{f.X, f.Y, f.Z})); err != nil {
			return c, true, false
		}
		full := mat.NewVecDense(4, nil)
		for k, i := range free {
			full.SetVec(i, dx.AtVec(k))
		}
		var more [4]bool
		c, more = c.minus(full).Wrap(e.a, e.b).bound(e.a, e.b)
		for i := range held {
			held[i] = held[i] || more[i]
		}
	}
	return c, true, e.residual(c).Length() < e.opts.Tolerance
}
