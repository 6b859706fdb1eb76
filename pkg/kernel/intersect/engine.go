// Package intersect traces the intersection curve of two parametric
// surfaces. A starting point is found by a seeded projection or a coarse
// global search, refined with Gauss-Newton and then marched along the
// intersection with a fixed step and Newton correction.
package intersect

import (
	"errors"
	"fmt"
	"math"
	"sort"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/dhconnelly/rtreego"
	"gonum.org/v1/gonum/mat"
)

var (
	// ErrNotFound is returned when no starting point on both surfaces is
	// found.
	ErrNotFound = errors.New("intersect: no intersection found")
	// ErrDiverged is returned when marching does not converge or exceeds
	// the step limit.
	ErrDiverged = errors.New("intersect: marching diverged")
)

// Options tunes the search and the marching loop.
type Options struct {
	Step             float64 // marching step in model space
	Tolerance        float64 // residual accepted as converged
	MaxSteps         int     // marching steps over the whole curve
	NewtonIterations int     // iterations per refinement
	SeedSamples      int     // samples per direction in grid searches
	Candidates       int     // coarse pairs tried without a seed
}

// DefaultOptions returns the settings used when none are configured.
func DefaultOptions() Options {
	return Options{
		Step:             0.01,
		Tolerance:        1e-7,
		MaxSteps:         10000,
		NewtonIterations: 30,
		SeedSamples:      24,
		Candidates:       16,
	}
}

// Validate reports settings the engine cannot work with.
func (o Options) Validate() error {
	switch {
	case o.Step <= 0:
		return fmt.Errorf("intersect: step %g must be positive", o.Step)
	case o.Tolerance <= 0:
		return fmt.Errorf("intersect: tolerance %g must be positive", o.Tolerance)
	case o.MaxSteps < 1:
		return fmt.Errorf("intersect: max steps %d must be positive", o.MaxSteps)
	case o.NewtonIterations < 1:
		return fmt.Errorf("intersect: newton iterations %d must be positive", o.NewtonIterations)
	case o.SeedSamples < 2:
		return fmt.Errorf("intersect: seed samples %d must be at least 2", o.SeedSamples)
	case o.Candidates < 1:
		return fmt.Errorf("intersect: candidates %d must be positive", o.Candidates)
	}
	return nil
}

// Curve is a traced intersection: ordered points with their parameters on
// both surfaces.
type Curve struct {
	A, B      kernel.Sampleable
	Points    []v3.Vec
	Solutions []Solution
	// Closed is set when the march came back to its start.
	Closed bool
}

// FindIntersection reports whether a and b intersect and returns the traced
// points and solutions.
func FindIntersection(a, b kernel.Sampleable, seed *v3.Vec, opts Options) (bool, []v3.Vec, []Solution) {
	c, err := TryFindIntersection(a, b, seed, opts)
	if err != nil {
		return false, nil, nil
	}
	return true, c.Points, c.Solutions
}

// TryFindIntersection traces the intersection of a and b. With a non-nil
// seed the trace starts from the intersection point closest to it.
func TryFindIntersection(a, b kernel.Sampleable, seed *v3.Vec, opts Options) (*Curve, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	e := &engine{a: a, b: b, opts: opts}
	start, err := e.start(seed)
	if err != nil {
		return nil, err
	}
	return e.trace(start)
}

type engine struct {
	a, b kernel.Sampleable
	opts Options
}

func (e *engine) residual(s Solution) v3.Vec {
	return e.a.Sample(s.U1, s.V1).Sub(e.b.Sample(s.U2, s.V2))
}

func (e *engine) point(s Solution) v3.Vec {
	return kernel.Mid(e.a.Sample(s.U1, s.V1), e.b.Sample(s.U2, s.V2))
}

func (e *engine) start(seed *v3.Vec) (Solution, error) {
	if seed != nil {
		u1, v1 := project(e.a, *seed, e.opts)
		u2, v2 := project(e.b, *seed, e.opts)
		if s, ok := e.refine(Solution{u1, v1, u2, v2}); ok {
			return s, nil
		}
		return Solution{}, ErrNotFound
	}
	for _, s := range e.coarse() {
		if s, ok := e.refine(s); ok {
			return s, nil
		}
	}
	return Solution{}, ErrNotFound
}

// refine drives A(u1,v1) - B(u2,v2) to zero with minimum-norm Gauss-Newton
// steps.
func (e *engine) refine(s Solution) (Solution, bool) {
	for range e.opts.NewtonIterations {
		f := e.residual(s)
		if f.Length() < e.opts.Tolerance {
			return s, true
		}
		au, av := e.a.DerivU(s.U1, s.V1), e.a.DerivV(s.U1, s.V1)
		bu, bv := e.b.DerivU(s.U2, s.V2), e.b.DerivV(s.U2, s.V2)
		j := mat.NewDense(3, 4, []float64{
			au.X, av.X, -bu.X, -bv.X,
			au.Y, av.Y, -bu.Y, -bv.Y,
			au.Z, av.Z, -bu.Z, -bv.Z,
		})
		var jjt mat.Dense
		jjt.Mul(j, j.T())
		var y mat.VecDense
		if err := y.SolveVec(&jjt, mat.NewVecDense(3, []float64{f.X, f.Y, f.Z})); err != nil {
			return s, false
		}
		var step mat.VecDense
		step.MulVec(j.T(), &y)
		s, _ = s.minus(&step).Wrap(e.a, e.b).Clamp(e.a, e.b)
	}
	return s, e.residual(s).Length() < e.opts.Tolerance
}

// grid returns n parameter samples over [lo, hi]; closed directions skip the
// upper bound.
func grid(lo, hi float64, n int, closed bool) []float64 {
	out := make([]float64, n)
	div := float64(n - 1)
	if closed {
		div = float64(n)
	}
	for i := range out {
		out[i] = lo + (hi-lo)*float64(i)/div
	}
	return out
}

// project finds the parameters of s closest to p: the best grid sample,
// improved by Newton iterations on the distance.
func project(s kernel.Sampleable, p v3.Vec, opts Options) (float64, float64) {
	ulo, uhi := s.RangeU()
	vlo, vhi := s.RangeV()
	best, bu, bv := math.Inf(1), ulo, vlo
	for _, u := range grid(ulo, uhi, opts.SeedSamples, s.WrapU()) {
		for _, v := range grid(vlo, vhi, opts.SeedSamples, s.WrapV()) {
			if d := kernel.Dist(s.Sample(u, v), p); d < best {
				best, bu, bv = d, u, v
			}
		}
	}
	for range opts.NewtonIterations {
		r := s.Sample(bu, bv).Sub(p)
		su, sv := s.DerivU(bu, bv), s.DerivV(bu, bv)
		m := mat.NewDense(2, 2, []float64{su.Dot(su), su.Dot(sv), sv.Dot(su), sv.Dot(sv)})
		var d mat.VecDense
		if err := d.SolveVec(m, mat.NewVecDense(2, []float64{su.Dot(r), sv.Dot(r)})); err != nil {
			break
		}
		bu, bv = bu-d.AtVec(0), bv-d.AtVec(1)
		if s.WrapU() {
			bu = wrap(bu, ulo, uhi)
		} else {
			clamp(&bu, ulo, uhi)
		}
		if s.WrapV() {
			bv = wrap(bv, vlo, vhi)
		} else {
			clamp(&bv, vlo, vhi)
		}
		if math.Hypot(d.AtVec(0), d.AtVec(1)) < opts.Tolerance {
			break
		}
	}
	return bu, bv
}

type sample struct {
	p    v3.Vec
	u, v float64
}

func treePoint(p v3.Vec) rtreego.Point { return rtreego.Point{p.X, p.Y, p.Z} }

func (s *sample) Bounds() rtreego.Rect { return treePoint(s.p).ToRect(1e-9) }

func samples(s kernel.Sampleable, n int) []*sample {
	ulo, uhi := s.RangeU()
	vlo, vhi := s.RangeV()
	out := make([]*sample, 0, n*n)
	for _, u := range grid(ulo, uhi, n, s.WrapU()) {
		for _, v := range grid(vlo, vhi, n, s.WrapV()) {
			out = append(out, &sample{p: s.Sample(u, v), u: u, v: v})
		}
	}
	return out
}

// coarse samples both surfaces and returns the closest sample pairs as
// starting guesses, nearest first.
func (e *engine) coarse() []Solution {
	sa := samples(e.a, e.opts.SeedSamples)
	sb := samples(e.b, e.opts.SeedSamples)
	tree := rtreego.NewTree(3, 25, 50)
	for _, s := range sb {
		tree.Insert(s)
	}
	type pair struct {
		s Solution
		d float64
	}
	pairs := make([]pair, 0, len(sa))
	for _, s := range sa {
		nn, ok := tree.NearestNeighbor(treePoint(s.p)).(*sample)
		if !ok {
			continue
		}
		pairs = append(pairs, pair{Solution{s.u, s.v, nn.u, nn.v}, kernel.Dist(s.p, nn.p)})
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].d < pairs[j].d })
	out := make([]Solution, 0, e.opts.Candidates)
	for _, p := range pairs[:min(len(pairs), e.opts.Candidates)] {
		out = append(out, p.s)
	}
	return out
}
