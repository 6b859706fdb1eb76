package gregory

import (
	"testing"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func vec(x, y, z float64) v3.Vec { return v3.Vec{X: x, Y: y, Z: z} }

// quad builds a bilinear patch with corners q0..q3 in cycle order.
func quad(q0, q1, q2, q3 v3.Vec) surface.Patch {
	var p surface.Patch
	for r := range 4 {
		for c := range 4 {
			top := kernel.Lerp(q0, q1, float64(c)/3)
			bottom := kernel.Lerp(q3, q2, float64(c)/3)
			p[r][c] = kernel.Lerp(top, bottom, float64(r)/3)
		}
	}
	return p
}

var (
	cornerA = vec(1, 0, 0)
	cornerB = vec(0, 1, 0)
	cornerC = vec(0, 0, 1)
)

// cutCube returns three faces of a cube whose corner at the origin has been
// cut off, leaving the triangle ABC open.
func cutCube() [3]surface.Patch {
	return [3]surface.Patch{
		quad(cornerA, cornerB, vec(1, 2, 0), vec(2, 1, 0)),
		quad(cornerB, cornerC, vec(0, 1, 2), vec(0, 2, 1)),
		quad(cornerC, cornerA, vec(2, 0, 1), vec(1, 0, 2)),
	}
}

func assertVec(t *testing.T, want, got v3.Vec, msgAndArgs ...any) {
	t.Helper()
	assert.InDelta(t, want.X, got.X, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Y, got.Y, 1e-9, msgAndArgs...)
	assert.InDelta(t, want.Z, got.Z, 1e-9, msgAndArgs...)
}

func TestTryBuildClosesLoop(t *testing.T) {
	faces := cutCube()
	perms := [][3]int{{0, 1, 2}, {0, 2, 1}, {1, 0, 2}, {1, 2, 0}, {2, 0, 1}, {2, 1, 0}}
	for _, perm := range perms {
		h, err := TryBuild([3]surface.Patch{faces[perm[0]], faces[perm[1]], faces[perm[2]]})
		require.NoError(t, err, "perm %v", perm)

		corners := h.Corners()
		assert.ElementsMatch(t, []v3.Vec{cornerA, cornerB, cornerC}, corners[:], "perm %v", perm)
		for i := range 3 {
			assert.Equal(t, h.Boundary[i][3], h.Boundary[(i+1)%3][0], "perm %v run %d", perm, i)
		}
	}
}

func TestExactlyOneOrientationCloses(t *testing.T) {
	faces := cutCube()
	h, err := TryBuild(faces)
	require.NoError(t, err)

	var count int
	for mask := uint8(0); mask < 8; mask++ {
		if closes(orient(h.Boundary, mask)) {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestDerivativesFollowBoundary(t *testing.T) {
	h, err := TryBuild(cutCube())
	require.NoError(t, err)
	for i := range 3 {
		for k := range 4 {
			// Bilinear faces: the inner row sits a third of an edge away.
			d := kernel.Dist(h.Boundary[i][k], h.Derivative[i][k])
			assert.InDelta(t, 1.0/3*1.4142135623730951, d, 1e-9, "run %d point %d", i, k)
		}
	}
}

func TestTryBuildRejects(t *testing.T) {
	faces := cutCube()

	t.Run("fan around one corner", func(t *testing.T) {
		o := vec(0, 0, 0)
		fan := [3]surface.Patch{
			quad(o, vec(1, 0, 0), vec(1, 1, 0), vec(0, 1, 0)),
			quad(o, vec(0, 1, 0), vec(0, 1, 1), vec(0, 0, 1)),
			quad(o, vec(0, 0, 1), vec(1, 0, 1), vec(1, 0, 0)),
		}
		_, err := TryBuild(fan)
		assert.ErrorIs(t, err, ErrNoHole)
	})

	t.Run("disjoint patch", func(t *testing.T) {
		far := quad(vec(5, 5, 5), vec(6, 5, 5), vec(6, 6, 5), vec(5, 6, 5))
		_, err := TryBuild([3]surface.Patch{faces[0], faces[1], far})
		assert.ErrorIs(t, err, ErrNoHole)
	})

	t.Run("shared corners not adjacent", func(t *testing.T) {
		// A and B on the diagonal of the first face.
		diag := quad(cornerA, vec(1, 1, -1), cornerB, vec(2, 2, 0))
		_, err := TryBuild([3]surface.Patch{diag, faces[1], faces[2]})
		assert.ErrorIs(t, err, ErrNoHole)
	})
}

func TestFindHoles(t *testing.T) {
	faces := cutCube()
	far := quad(vec(5, 5, 5), vec(6, 5, 5), vec(6, 6, 5), vec(5, 6, 5))
	holes := FindHoles([]surface.Patch{far, faces[0], faces[1], faces[2]})
	require.Len(t, holes, 1)
	assert.Equal(t, [3]int{1, 2, 3}, holes[0].Donors)

	assert.Empty(t, FindHoles(faces[:2]))
}

func TestFillPlacesCorners(t *testing.T) {
	h, err := TryBuild(cutCube())
	require.NoError(t, err)
	subs := Fill(h)

	center := subs[0].Grid[3][3]
	for j, s := range subs {
		assert.Equal(t, h.Boundary[j][0], s.Grid[0][0], "sub-patch %d corner", j)
		assertVec(t, h.Boundary[j][0], s.Eval(0, 0), "sub-patch %d eval corner", j)
		assertVec(t, kernel.DeCasteljau(h.Boundary[j][:], 0.5), s.Grid[0][3], "sub-patch %d edge midpoint", j)
		assertVec(t, center, s.Eval(1, 1), "sub-patch %d centre", j)
	}
}

func TestCornersAppearOnce(t *testing.T) {
	h, err := TryBuild(cutCube())
	require.NoError(t, err)
	p := NewPatch()
	require.NoError(t, p.ForceSetControlPoints(h.Points()))
	vertices, _ := p.Mesh()
	require.Len(t, vertices, 3*SubPatchSize)

	for k, corner := range h.Corners() {
		var at []int
		for i, v := range vertices {
			if kernel.Dist(v.Position(), corner) < 1e-9 {
				at = append(at, i)
			}
		}
		// Corner k is the first point of the k-th twenty-point unit.
		assert.Equal(t, []int{k * SubPatchSize}, at, "corner %d", k)
	}
}

func TestFillMatchesBoundary(t *testing.T) {
	h, err := TryBuild(cutCube())
	require.NoError(t, err)
	subs := Fill(h)

	for j, s := range subs {
		prev := (j + 2) % 3
		next := subs[(j+1)%3]
		for i := range 11 {
			x := float64(i) / 10
			assertVec(t, kernel.DeCasteljau(h.Boundary[j][:], x/2), s.Eval(x, 0), "sub %d row 0 at %g", j, x)
			assertVec(t, kernel.DeCasteljau(h.Boundary[prev][:], 1-x/2), s.Eval(0, x), "sub %d column 0 at %g", j, x)
			// Neighbouring sub-patches share the inner curve.
			assertVec(t, s.Eval(1, x), next.Eval(x, 1), "sub %d inner curve at %g", j, x)
		}
	}
}

func TestFlatHoleStaysFlat(t *testing.T) {
	// Three coplanar faces around a triangle in z=0: the fill must stay in
	// the plane.
	a, b, c := vec(0, 0, 0), vec(2, 0, 0), vec(1, 2, 0)
	faces := [3]surface.Patch{
		quad(a, b, vec(2, -1, 0), vec(0, -1, 0)),
		quad(b, c, vec(2, 2.5, 0), vec(3, 0.5, 0)),
		quad(c, a, vec(-1, 0.5, 0), vec(0, 2.5, 0)),
	}
	h, err := TryBuild(faces)
	require.NoError(t, err)
	for _, s := range Fill(h) {
		for i := range 5 {
			for k := range 5 {
				p := s.Eval(float64(i)/4, float64(k)/4)
				assert.InDelta(t, 0, p.Z, 1e-9)
			}
		}
	}
}

func TestPatchGeometry(t *testing.T) {
	h, err := TryBuild(cutCube())
	require.NoError(t, err)

	p := NewPatch()
	assert.Equal(t, kernel.KindGregory, p.Kind())
	vertices, _ := p.Mesh()
	assert.Empty(t, vertices)

	assert.ErrorIs(t, p.ForceSetControlPoints(make([]v3.Vec, 23)), kernel.ErrPointCount)
	require.NoError(t, p.ForceSetControlPoints(h.Points()))
	assert.Equal(t, h.Points(), p.ControlPoints())

	p.SetControlPoints(make([]v3.Vec, ControlPointCount))
	assert.Equal(t, h.Points(), p.ControlPoints(), "SetControlPoints must be ignored")

	vertices, indices := p.Mesh()
	assert.Len(t, vertices, 3*SubPatchSize)
	assert.Len(t, indices, 3*SubPatchSize)
	assert.Equal(t, SubPatchSize, p.PatchSize())
	assert.Equal(t, Fill(h), p.SubPatches())

	assert.Nil(t, p.Lines())
	p.ShowVectors = true
	assert.Len(t, p.Lines(), 24)
}
