package preview

import (
	"errors"
	"math"
	"testing"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/surface"
)

func flatSurface(t *testing.T) surface.Surface {
	t.Helper()
	s, err := surface.NewBezierC0(surface.Topology{PatchesU: 2, PatchesV: 2})
	if err != nil {
		t.Fatalf("NewBezierC0: %v", err)
	}
	s.SetControlPoints(s.GenerateControlPoints(4, 4))
	return s
}

// leftHalf trims everything with u < 0.5.
type leftHalf struct{}

func (leftHalf) Visible(u, _ float64) bool { return u >= 0.5 }

func TestSurfaceMesh(t *testing.T) {
	s := flatSurface(t)
	mesh, err := SurfaceMesh("floor", s, 4)
	if err != nil {
		t.Fatalf("SurfaceMesh: %v", err)
	}
	if mesh.IsEmpty() {
		t.Fatal("mesh is empty")
	}
	if got := mesh.TriangleCount(); got != 32 {
		t.Fatalf("triangle count %d, want 32", got)
	}
	if len(mesh.Vertices) != len(mesh.Normals) {
		t.Fatalf("vertices length %d != normals length %d", len(mesh.Vertices), len(mesh.Normals))
	}
	if mesh.PartName != "floor" {
		t.Errorf("part name %q", mesh.PartName)
	}
	for i := 0; i < len(mesh.Normals); i += 3 {
		if math.Abs(float64(mesh.Normals[i+2])-1) > 1e-6 {
			t.Fatalf("normal %d = %v, want +Z", i/3, mesh.Normals[i:i+3])
		}
	}
	for i := 2; i < len(mesh.Vertices); i += 3 {
		if mesh.Vertices[i] != 0 {
			t.Fatalf("vertex %d off the plane: z=%g", i/3, mesh.Vertices[i])
		}
	}
}

func TestTrimDropsCells(t *testing.T) {
	s := flatSurface(t)
	full, err := Triangles(s, 8)
	if err != nil {
		t.Fatal(err)
	}
	half, err := Triangles(s, 8, leftHalf{})
	if err != nil {
		t.Fatal(err)
	}
	if len(half) != len(full)/2 {
		t.Fatalf("trimmed %d triangles, want %d", len(half), len(full)/2)
	}
	for _, tri := range half {
		for _, p := range tri {
			if p.X < -1e-9 {
				t.Fatalf("trimmed mesh reaches x=%g", p.X)
			}
		}
	}
}

func TestDegenerateTrianglesSkipped(t *testing.T) {
	// A C0 cylinder of zero radius collapses onto the Z axis.
	s, err := surface.NewBezierC0(surface.Topology{PatchesU: 3, PatchesV: 1, Wrap: true})
	if err != nil {
		t.Fatal(err)
	}
	s.SetControlPoints(s.GenerateControlPoints(0, 2))
	tris, err := Triangles(s, 4)
	if err != nil {
		t.Fatal(err)
	}
	if len(tris) != 0 {
		t.Fatalf("got %d triangles from a line", len(tris))
	}
}

func TestInvalidDivisions(t *testing.T) {
	_, err := SurfaceMesh("x", flatSurface(t), 0)
	if !errors.Is(err, kernel.ErrInvalidOperation) {
		t.Fatalf("error = %v, want ErrInvalidOperation", err)
	}
}
