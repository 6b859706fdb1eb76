// Package gregory detects triangular holes framed by three bicubic patches
// and fills them with Gregory patches.
package gregory

import (
	"errors"
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel/surface"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

var (
	// ErrNoHole is returned when three patches do not frame a triangular hole.
	ErrNoHole = errors.New("gregory: patches do not frame a hole")
	// ErrNoClosure is returned when no orientation of the boundary runs
	// forms a closed loop.
	ErrNoClosure = errors.New("gregory: boundary runs do not close")
	// ErrAmbiguousOrientation is returned when more than one orientation
	// closes the loop.
	ErrAmbiguousOrientation = errors.New("gregory: ambiguous boundary orientation")
)

// Hole is a closed triangular loop of boundary runs with the matching
// cross-boundary rows. Boundary[i] runs from corner i to corner i+1.
type Hole struct {
	Donors     [3]int
	Boundary   [3][4]v3.Vec
	Derivative [3][4]v3.Vec
}

// Corners returns the three hole corners in loop order.
func (h Hole) Corners() [3]v3.Vec {
	return [3]v3.Vec{h.Boundary[0][0], h.Boundary[1][0], h.Boundary[2][0]}
}

// Points concatenates the boundary runs and then the derivative runs.
func (h Hole) Points() []v3.Vec {
	out := make([]v3.Vec, 0, ControlPointCount)
	for _, run := range h.Boundary {
		out = append(out, run[:]...)
	}
	for _, run := range h.Derivative {
		out = append(out, run[:]...)
	}
	return out
}

// sharedCorner returns the single corner two patches have in common.
func sharedCorner(a, b *surface.Patch) (v3.Vec, error) {
	ca, cb := a.Corners(), b.Corners()
	shared := lo.Uniq(lo.Intersect(ca[:], cb[:]))
	if len(shared) != 1 {
		return v3.Vec{}, fmt.Errorf("%d shared corners: %w", len(shared), ErrNoHole)
	}
	return shared[0], nil
}

// cycleOrder returns a and b in the order they appear in the patch's corner
// cycle, so the run is walked with the patch's own orientation.
func cycleOrder(p *surface.Patch, a, b v3.Vec) (v3.Vec, v3.Vec) {
	corners := p.Corners()
	ia, ib := lo.IndexOf(corners[:], a), lo.IndexOf(corners[:], b)
	if (ia+1)%4 == ib {
		return a, b
	}
	return b, a
}

func reversed(run [4]v3.Vec) [4]v3.Vec {
	return [4]v3.Vec{run[3], run[2], run[1], run[0]}
}

// TryBuild checks whether the three patches frame a hole and extracts its
// closed boundary.
func TryBuild(patches [3]surface.Patch) (Hole, error) {
	var shared [3]v3.Vec
	for i := range 3 {
		c, err := sharedCorner(&patches[i], &patches[(i+1)%3])
		if err != nil {
			return Hole{}, fmt.Errorf("patches %d and %d: %w", i, (i+1)%3, err)
		}
		shared[i] = c
	}
	if len(lo.Uniq(shared[:])) != 3 {
		return Hole{}, fmt.Errorf("shared corners coincide: %w", ErrNoHole)
	}

	// Patch i borders the hole between the corner it shares with patch i-1
	// and the one it shares with patch i+1.
	var runs, derivs [3][4]v3.Vec
	for i := range 3 {
		p := &patches[i]
		a, b := cycleOrder(p, shared[(i+2)%3], shared[i])
		run, err := p.TryGetValuesBetween(a, b)
		if err != nil {
			return Hole{}, fmt.Errorf("patch %d: %w: %w", i, ErrNoHole, err)
		}
		deriv, err := p.TryGetDerivativesBetween(a, b)
		if err != nil {
			return Hole{}, fmt.Errorf("patch %d: %w: %w", i, ErrNoHole, err)
		}
		runs[i], derivs[i] = run, deriv
	}

	// Bit i of a mask reverses run i. The loop is walked 0 -> 1 -> 2.
	var closing []uint8
	for mask := uint8(0); mask < 8; mask++ {
		if closes(orient(runs, mask)) {
			closing = append(closing, mask)
		}
	}
	switch len(closing) {
	case 0:
		return Hole{}, ErrNoClosure
	case 1:
	default:
		return Hole{}, fmt.Errorf("%d closing orientations: %w", len(closing), ErrAmbiguousOrientation)
	}
	return Hole{
		Boundary:   orient(runs, closing[0]),
		Derivative: orient(derivs, closing[0]),
	}, nil
}

// orient reverses run i when bit i of mask is set.
func orient(runs [3][4]v3.Vec, mask uint8) [3][4]v3.Vec {
	for i := range 3 {
		if mask&(1<<i) != 0 {
			runs[i] = reversed(runs[i])
		}
	}
	return runs
}

func closes(runs [3][4]v3.Vec) bool {
	for i := range 3 {
		if runs[i][3] != runs[(i+1)%3][0] {
			return false
		}
	}
	return true
}

// FindHoles tries every triple of patches and returns the holes found.
// Triples that do not frame a hole are skipped.
func FindHoles(patches []surface.Patch) []Hole {
	var holes []Hole
	for i := 0; i < len(patches); i++ {
		for j := i + 1; j < len(patches); j++ {
			for k := j + 1; k < len(patches); k++ {
				h, err := TryBuild([3]surface.Patch{patches[i], patches[j], patches[k]})
				if err != nil {
					continue
				}
				h.Donors = [3]int{i, j, k}
				holes = append(holes, h)
			}
		}
	}
	return holes
}
