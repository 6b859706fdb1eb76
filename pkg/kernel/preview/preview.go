// Package preview triangulates parametric surfaces on the CPU for previews
// and exports. Surfaces are sampled on a regular parameter grid; cells cut
// away by a trim are dropped.
package preview

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// DefaultDivisions is the grid resolution per parameter direction.
const DefaultDivisions = 32

// degenerateArea is the doubled area below which triangles are skipped.
const degenerateArea = 1e-14

// Trim hides parts of a surface's parameter domain.
type Trim interface {
	Visible(u, v float64) bool
}

func visible(trims []Trim, u, v float64) bool {
	for _, t := range trims {
		if !t.Visible(u, v) {
			return false
		}
	}
	return true
}

// Triangles samples s on a divisions x divisions grid and returns two
// triangles per visible cell.
func Triangles(s kernel.Sampleable, divisions int, trims ...Trim) ([]sdf.Triangle3, error) {
	if divisions < 1 {
		return nil, fmt.Errorf("preview: %d divisions: %w", divisions, kernel.ErrInvalidOperation)
	}
	ulo, uhi := s.RangeU()
	vlo, vhi := s.RangeV()
	du := (uhi - ulo) / float64(divisions)
	dv := (vhi - vlo) / float64(divisions)

	// Row j holds the samples at v = vlo + j*dv.
	rows := make([][]v3.Vec, divisions+1)
	for j := range rows {
		rows[j] = make([]v3.Vec, divisions+1)
		for i := range rows[j] {
			rows[j][i] = s.Sample(ulo+float64(i)*du, vlo+float64(j)*dv)
		}
	}

	var out []sdf.Triangle3
	for j := range divisions {
		for i := range divisions {
			if !visible(trims, ulo+(float64(i)+0.5)*du, vlo+(float64(j)+0.5)*dv) {
				continue
			}
			p00, p10 := rows[j][i], rows[j][i+1]
			p01, p11 := rows[j+1][i], rows[j+1][i+1]
			for _, tri := range []sdf.Triangle3{{p00, p10, p11}, {p00, p11, p01}} {
				if tri[1].Sub(tri[0]).Cross(tri[2].Sub(tri[0])).Length() < degenerateArea {
					continue
				}
				out = append(out, tri)
			}
		}
	}
	return out, nil
}

// SurfaceMesh triangulates s into a flat mesh with per-face normals.
func SurfaceMesh(name string, s kernel.Sampleable, divisions int, trims ...Trim) (*kernel.Mesh, error) {
	triangles, err := Triangles(s, divisions, trims...)
	if err != nil {
		return nil, err
	}
	numVerts := len(triangles) * 3

	vertices := make([]float32, 0, numVerts*3)
	normals := make([]float32, 0, numVerts*3)
	indices := make([]uint32, 0, numVerts)

	for i, tri := range triangles {
		n := tri.Normal()
		nx, ny, nz := float32(n.X), float32(n.Y), float32(n.Z)
		for j := 0; j < 3; j++ {
			v := tri[j]
			vertices = append(vertices, float32(v.X), float32(v.Y), float32(v.Z))
			normals = append(normals, nx, ny, nz)
			indices = append(indices, uint32(i*3+j))
		}
	}

	return &kernel.Mesh{
		Vertices: vertices,
		Normals:  normals,
		Indices:  indices,
		PartName: name,
	}, nil
}
