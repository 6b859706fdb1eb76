package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Lerp returns a + t(b-a).
func Lerp(a, b v3.Vec, t float64) v3.Vec {
	return a.Add(b.Sub(a).MulScalar(t))
}

// Mid returns the midpoint of a and b.
func Mid(a, b v3.Vec) v3.Vec {
	return a.Add(b).MulScalar(0.5)
}

// Dist returns |a-b|.
func Dist(a, b v3.Vec) float64 {
	return a.Sub(b).Length()
}

// CloneVecs returns a copy of points.
func CloneVecs(points []v3.Vec) []v3.Vec {
	if points == nil {
		return nil
	}
	out := make([]v3.Vec, len(points))
	copy(out, points)
	return out
}

// EqualVecs reports whether a and b hold the same positions in order.
func EqualVecs(a, b []v3.Vec) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// DeCasteljau evaluates the Bezier curve with control points p at t.
func DeCasteljau(p []v3.Vec, t float64) v3.Vec {
	if len(p) == 0 {
		return v3.Vec{}
	}
	work := CloneVecs(p)
	for n := len(work) - 1; n > 0; n-- {
		for i := 0; i < n; i++ {
			work[i] = Lerp(work[i], work[i+1], t)
		}
	}
	return work[0]
}

// SplitCubic splits a cubic Bezier at t into its left and right halves.
func SplitCubic(p [4]v3.Vec, t float64) (left, right [4]v3.Vec) {
	a := Lerp(p[0], p[1], t)
	b := Lerp(p[1], p[2], t)
	c := Lerp(p[2], p[3], t)
	ab := Lerp(a, b, t)
	bc := Lerp(b, c, t)
	m := Lerp(ab, bc, t)
	left = [4]v3.Vec{p[0], a, ab, m}
	right = [4]v3.Vec{m, bc, c, p[3]}
	return left, right
}
