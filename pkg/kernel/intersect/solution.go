package intersect

import (
	"math"

	"github.com/chazu/bicubic/pkg/kernel"
	"gonum.org/v1/gonum/mat"
)

// Solution is a parameter pair (U1, V1) on the first surface and (U2, V2)
// on the second.
type Solution struct {
	U1, V1, U2, V2 float64
}

// Params returns the parameters on surface 0 or 1.
func (s Solution) Params(surface int) (u, v float64) {
	if surface == 0 {
		return s.U1, s.V1
	}
	return s.U2, s.V2
}

func (s Solution) minus(d *mat.VecDense) Solution {
	return Solution{
		U1: s.U1 - d.AtVec(0),
		V1: s.V1 - d.AtVec(1),
		U2: s.U2 - d.AtVec(2),
		V2: s.V2 - d.AtVec(3),
	}
}

func wrap(x, lo, hi float64) float64 {
	span := hi - lo
	x = math.Mod(x-lo, span)
	if x < 0 {
		x += span
	}
	return lo + x
}

// Wrap maps the parameters of every closed direction back into range.
func (s Solution) Wrap(a, b kernel.Sampleable) Solution {
	if a.WrapU() {
		lo, hi := a.RangeU()
		s.U1 = wrap(s.U1, lo, hi)
	}
	if a.WrapV() {
		lo, hi := a.RangeV()
		s.V1 = wrap(s.V1, lo, hi)
	}
	if b.WrapU() {
		lo, hi := b.RangeU()
		s.U2 = wrap(s.U2, lo, hi)
	}
	if b.WrapV() {
		lo, hi := b.RangeV()
		s.V2 = wrap(s.V2, lo, hi)
	}
	return s
}

func clamp(x *float64, lo, hi float64) bool {
	switch {
	case *x < lo:
		*x = lo
	case *x > hi:
		*x = hi
	default:
		return false
	}
	return true
}

// Clamp limits the parameters of every open direction to its range and
// reports whether any of them was outside.
func (s Solution) Clamp(a, b kernel.Sampleable) (Solution, bool) {
	c, held := s.bound(a, b)
	return c, held != [4]bool{}
}

// bound clamps like Clamp and reports which of U1, V1, U2, V2 were moved
// onto a bound.
func (s Solution) bound(a, b kernel.Sampleable) (Solution, [4]bool) {
	var held [4]bool
	if !a.WrapU() {
		lo, hi := a.RangeU()
		held[0] = clamp(&s.U1, lo, hi)
	}
	if !a.WrapV() {
		lo, hi := a.RangeV()
		held[1] = clamp(&s.V1, lo, hi)
	}
	if !b.WrapU() {
		lo, hi := b.RangeU()
		held[2] = clamp(&s.U2, lo, hi)
	}
	if !b.WrapV() {
		lo, hi := b.RangeV()
		held[3] = clamp(&s.V2, lo, hi)
	}
	return s, held
}
