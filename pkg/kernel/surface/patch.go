package surface

import (
	"errors"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// ErrNoEdge is returned when two positions are not adjacent corners of a
// patch.
var ErrNoEdge = errors.New("surface: points do not bound a patch edge")

// Patch is a bicubic Bezier patch indexed [row][column]; rows follow the V
// direction, columns follow U.
type Patch [4][4]v3.Vec

type cell struct{ r, c int }

// boundaryCycle walks the patch border starting at (0,0). Corners sit at
// every third entry.
var boundaryCycle = [12]cell{
	{0, 0}, {0, 1}, {0, 2}, {0, 3},
	{1, 3}, {2, 3}, {3, 3},
	{3, 2}, {3, 1}, {3, 0},
	{2, 0}, {1, 0},
}

// inward is the step from edge k towards the patch interior.
var inward = [4]cell{{1, 0}, {0, -1}, {-1, 0}, {0, 1}}

// Eval evaluates the patch at local parameters (u, v) in [0,1]^2.
func (p *Patch) Eval(u, v float64) v3.Vec {
	var col [4]v3.Vec
	for r := range 4 {
		col[r] = kernel.DeCasteljau(p[r][:], u)
	}
	return kernel.DeCasteljau(col[:], v)
}

// Corners returns the four corners in boundary-cycle order.
func (p *Patch) Corners() [4]v3.Vec {
	return [4]v3.Vec{p[0][0], p[0][3], p[3][3], p[3][0]}
}

// Boundary returns the twelve border points in cycle order.
func (p *Patch) Boundary() [12]v3.Vec {
	var out [12]v3.Vec
	for i, c := range boundaryCycle {
		out[i] = p[c.r][c.c]
	}
	return out
}

// edge finds the edge running from corner a to corner b. reversed is set
// when the edge is walked against the cycle.
func (p *Patch) edge(a, b v3.Vec) (k int, reversed bool, err error) {
	corners := p.Corners()
	for k := range 4 {
		next := (k + 1) % 4
		switch {
		case corners[k] == a && corners[next] == b:
			return k, false, nil
		case corners[k] == b && corners[next] == a:
			return k, true, nil
		}
	}
	return 0, false, ErrNoEdge
}

func (p *Patch) walk(k int, reversed bool, step cell) [4]v3.Vec {
	var out [4]v3.Vec
	for i := range 4 {
		c := boundaryCycle[(3*k+i)%12]
		out[i] = p[c.r+step.r][c.c+step.c]
	}
	if reversed {
		out[0], out[1], out[2], out[3] = out[3], out[2], out[1], out[0]
	}
	return out
}

// TryGetValuesBetween returns the four border control points running from
// corner a to corner b.
func (p *Patch) TryGetValuesBetween(a, b v3.Vec) ([4]v3.Vec, error) {
	k, reversed, err := p.edge(a, b)
	if err != nil {
		return [4]v3.Vec{}, err
	}
	return p.walk(k, reversed, cell{}), nil
}

// TryGetDerivativesBetween returns the row of control points next to the
// border from a to b, one step into the patch. Together with the border
// row they encode the cross-boundary derivative.
func (p *Patch) TryGetDerivativesBetween(a, b v3.Vec) ([4]v3.Vec, error) {
	k, reversed, err := p.edge(a, b)
	if err != nil {
		return [4]v3.Vec{}, err
	}
	return p.walk(k, reversed, inward[k]), nil
}
