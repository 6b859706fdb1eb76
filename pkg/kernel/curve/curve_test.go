package curve

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
)

const tol = 1e-9

var approx = cmpopts.EquateApprox(0, tol)

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

func randomPoints(r *rand.Rand, n int) []v3.Vec {
	pts := make([]v3.Vec, n)
	for i := range pts {
		pts[i] = vec(r.Float64()*10-5, r.Float64()*10-5, r.Float64()*10-5)
	}
	return pts
}

// --- Degree elevation ---

func TestElevateLinePreservesShape(t *testing.T) {
	a, b := vec(0, 0, 0), vec(3, -1, 2)
	cubic, err := Elevate([]v3.Vec{a, b})
	if err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if cubic[0] != a || cubic[3] != b {
		t.Fatalf("endpoints changed: %v %v", cubic[0], cubic[3])
	}
	for i := range 11 {
		s := float64(i) / 10
		got := kernel.DeCasteljau(cubic[:], s)
		want := kernel.Lerp(a, b, s)
		if d := kernel.Dist(got, want); d > tol {
			t.Errorf("t=%g: elevated cubic off the line by %g", s, d)
		}
	}
}

func TestElevateQuadraticPreservesShape(t *testing.T) {
	q := []v3.Vec{vec(0, 0, 0), vec(1, 2, 0), vec(2, 0, 1)}
	cubic, err := Elevate(q)
	if err != nil {
		t.Fatalf("Elevate: %v", err)
	}
	if cubic[0] != q[0] || cubic[3] != q[2] {
		t.Fatalf("endpoints changed: %v %v", cubic[0], cubic[3])
	}
	for i := range 11 {
		s := float64(i) / 10
		got := kernel.DeCasteljau(cubic[:], s)
		want := kernel.DeCasteljau(q, s)
		if d := kernel.Dist(got, want); d > tol {
			t.Errorf("t=%g: elevated cubic off the quadratic by %g", s, d)
		}
	}
}

func TestElevateRejectsMalformedWindow(t *testing.T) {
	for _, n := range []int{0, 1, 5} {
		_, err := Elevate(make([]v3.Vec, n))
		if !errors.Is(err, kernel.ErrInvalidOperation) {
			t.Errorf("Elevate(%d points) error = %v, want ErrInvalidOperation", n, err)
		}
	}
}

// --- Windowing ---

func TestBezierC0SegmentCounts(t *testing.T) {
	tests := []struct {
		points int
		want   int
	}{
		{0, 0}, {1, 0}, {2, 1}, {3, 1}, {4, 1}, {5, 2}, {7, 2}, {8, 3},
	}
	for _, tt := range tests {
		c := NewBezierC0()
		c.SetControlPoints(make([]v3.Vec, tt.points))
		if got := len(c.Segments()); got != tt.want {
			t.Errorf("%d points: %d segments, want %d", tt.points, got, tt.want)
		}
		vertices, indices := c.Mesh()
		if len(vertices) != 4*tt.want || len(indices) != 4*tt.want {
			t.Errorf("%d points: mesh %d/%d, want %d", tt.points, len(vertices), len(indices), 4*tt.want)
		}
	}
}

func TestBezierC0SharesJoints(t *testing.T) {
	c := NewBezierC0()
	pts := randomPoints(rand.New(rand.NewSource(1)), 7)
	c.SetControlPoints(pts)
	segs := c.Segments()
	if diff := cmp.Diff(pts[:4], segs[0], approx); diff != "" {
		t.Errorf("first segment mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(pts[3:7], segs[1], approx); diff != "" {
		t.Errorf("second segment mismatch (-want +got):\n%s", diff)
	}
}

func TestSplineC2SegmentCounts(t *testing.T) {
	for n, want := range map[int]int{0: 0, 3: 0, 4: 1, 6: 3} {
		c := NewSplineC2()
		c.SetControlPoints(make([]v3.Vec, n))
		if got := len(c.Segments()); got != want {
			t.Errorf("%d de Boor points: %d segments, want %d", n, got, want)
		}
		wantVirtual := 0
		if want > 0 {
			wantVirtual = 3*want + 1
		}
		if got := len(c.VirtualPoints()); got != wantVirtual {
			t.Errorf("%d de Boor points: %d virtual points, want %d", n, got, wantVirtual)
		}
	}
	if c := NewSplineC2(); c.SegmentSize() < c.SegmentOffset() {
		t.Errorf("segment size %d < offset %d", c.SegmentSize(), c.SegmentOffset())
	}
}

func TestSplineC2SegmentsAreContinuous(t *testing.T) {
	c := NewSplineC2()
	c.SetControlPoints(randomPoints(rand.New(rand.NewSource(2)), 8))
	segs := c.Segments()
	for i := 0; i+1 < len(segs); i++ {
		if d := kernel.Dist(segs[i][3], segs[i+1][0]); d > tol {
			t.Errorf("segments %d/%d gap %g", i, i+1, d)
		}
		// C1: matching tangents across the joint.
		left := segs[i][3].Sub(segs[i][2])
		right := segs[i+1][1].Sub(segs[i+1][0])
		if d := kernel.Dist(left, right); d > tol {
			t.Errorf("segments %d/%d tangent mismatch %g", i, i+1, d)
		}
	}
}

// --- de Boor <-> Bezier ---

func TestDeBoorRoundTrip(t *testing.T) {
	r := rand.New(rand.NewSource(3))
	for trial := range 20 {
		d := randomPoints(r, 4+r.Intn(5))
		c := NewSplineC2()
		c.SetControlPoints(d)
		chain := c.VirtualPoints()
		for index, b := range chain {
			got := c.MoveVirtualPoint(index, b)
			if diff := cmp.Diff(d, got, approx); diff != "" {
				t.Fatalf("trial %d index %d (case %d) not a round trip (-want +got):\n%s",
					trial, index, index%3, diff)
			}
		}
	}
}

func TestMoveVirtualPointHitsTarget(t *testing.T) {
	r := rand.New(rand.NewSource(4))
	d := randomPoints(r, 6)
	c := NewSplineC2()
	c.SetControlPoints(d)
	for index := range c.VirtualPoints() {
		target := vec(r.Float64(), r.Float64(), r.Float64())
		moved := c.MoveVirtualPoint(index, target)

		changed := 0
		for i := range d {
			if kernel.Dist(d[i], moved[i]) > tol {
				changed++
			}
		}
		if changed > 1 {
			t.Errorf("index %d: %d de Boor points changed, want at most 1", index, changed)
		}

		probe := NewSplineC2()
		probe.SetControlPoints(moved)
		if dist := kernel.Dist(probe.VirtualPoints()[index], target); dist > 1e-9 {
			t.Errorf("index %d: virtual point %g away from target", index, dist)
		}
	}
}

func TestMoveVirtualPointOutOfRange(t *testing.T) {
	c := NewSplineC2()
	d := randomPoints(rand.New(rand.NewSource(5)), 5)
	c.SetControlPoints(d)
	for _, index := range []int{-1, 7, 100} {
		if diff := cmp.Diff(d, c.MoveVirtualPoint(index, vec(9, 9, 9))); diff != "" {
			t.Errorf("index %d changed points:\n%s", index, diff)
		}
	}
}

// --- Natural cubic interpolation ---

func TestInterpolatePassesThroughNodes(t *testing.T) {
	nodes := randomPoints(rand.New(rand.NewSource(6)), 7)
	chain := Interpolate(nodes)
	if len(chain) != 3*(len(nodes)-1)+1 {
		t.Fatalf("chain length %d, want %d", len(chain), 3*(len(nodes)-1)+1)
	}
	for i, p := range nodes {
		if chain[3*i] != p {
			t.Errorf("knot %d: got %v, want %v", i, chain[3*i], p)
		}
	}
}

func TestInterpolateIsC2AcrossJoints(t *testing.T) {
	nodes := []v3.Vec{vec(0, 0, 0), vec(1, 2, 0), vec(3, 3, 1), vec(4, 0, 2), vec(6, 1, 0)}
	chain := Interpolate(nodes)
	for i := 1; i < len(nodes)-1; i++ {
		hPrev := kernel.Dist(nodes[i], nodes[i-1])
		hNext := kernel.Dist(nodes[i+1], nodes[i])
		j := 3 * i
		// first derivative w.r.t. chord parameter
		d1Prev := chain[j].Sub(chain[j-1]).MulScalar(3 / hPrev)
		d1Next := chain[j+1].Sub(chain[j]).MulScalar(3 / hNext)
		if d := kernel.Dist(d1Prev, d1Next); d > 1e-9 {
			t.Errorf("joint %d: first derivative mismatch %g", i, d)
		}
		// second derivative
		d2Prev := chain[j].Sub(chain[j-1].MulScalar(2)).Add(chain[j-2]).MulScalar(6 / (hPrev * hPrev))
		d2Next := chain[j+2].Sub(chain[j+1].MulScalar(2)).Add(chain[j]).MulScalar(6 / (hNext * hNext))
		if d := kernel.Dist(d2Prev, d2Next); d > 1e-8 {
			t.Errorf("joint %d: second derivative mismatch %g", i, d)
		}
	}
	// natural end conditions
	h0 := kernel.Dist(nodes[1], nodes[0])
	d2Start := chain[2].Sub(chain[1].MulScalar(2)).Add(chain[0]).MulScalar(6 / (h0 * h0))
	if d2Start.Length() > 1e-9 {
		t.Errorf("start second derivative %v, want 0", d2Start)
	}
}

func TestInterpolateRemovesDuplicates(t *testing.T) {
	nodes := []v3.Vec{vec(0, 0, 0), vec(0, 0, 0), vec(1, 1, 0), vec(1, 1, 0), vec(2, 0, 0)}
	chain := Interpolate(nodes)
	if len(chain) != 7 {
		t.Fatalf("chain length %d, want 7", len(chain))
	}
	for _, p := range chain {
		if math.IsNaN(p.X) || math.IsNaN(p.Y) || math.IsNaN(p.Z) {
			t.Fatalf("NaN in chain: %v", chain)
		}
	}
}

func TestInterpolateTooFewDistinctNodes(t *testing.T) {
	nodes := []v3.Vec{vec(0, 0, 0), vec(0, 0, 0), vec(1, 0, 0)}
	if diff := cmp.Diff(nodes, Interpolate(nodes)); diff != "" {
		t.Errorf("expected input back unchanged:\n%s", diff)
	}
	c := NewInterpolatingC2()
	c.SetControlPoints([]v3.Vec{vec(0, 0, 0), vec(2, 0, 0)})
	if got := len(c.Segments()); got != 1 {
		t.Errorf("two nodes: %d segments, want 1", got)
	}
}

// --- Lines ---

func TestLinesGatedByFlags(t *testing.T) {
	pts := randomPoints(rand.New(rand.NewSource(7)), 5)

	b := NewBezierC0()
	b.SetControlPoints(pts)
	if len(b.Lines()) != 0 {
		t.Error("C0 lines shown without flag")
	}
	b.ShowPolygon = true
	if len(b.Lines()) != 1 {
		t.Errorf("C0 lines = %d, want 1", len(b.Lines()))
	}

	s := NewSplineC2()
	s.SetControlPoints(pts)
	s.ShowDeBoor, s.ShowBezier = true, true
	lines := s.Lines()
	if len(lines) != 2 {
		t.Fatalf("C2 lines = %d, want 2", len(lines))
	}
	if len(lines[1].Points) != 3*2+1 {
		t.Errorf("Bezier polygon has %d points, want 7", len(lines[1].Points))
	}
}

func TestSetColorReachesVertices(t *testing.T) {
	c := NewBezierC0()
	c.SetColor(kernel.Color{G: 1, A: 1})
	c.SetControlPoints(randomPoints(rand.New(rand.NewSource(8)), 4))
	vertices, _ := c.Mesh()
	for _, v := range vertices {
		if v.G != 1 || v.R != 0 {
			t.Fatalf("vertex colour %+v, want green", v)
		}
	}
}
