package tessellate

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/preview"
	"github.com/chazu/bicubic/pkg/scene"
	"github.com/deadsy/sdfx/render"
	"github.com/deadsy/sdfx/sdf"
)

// Triangles collects the trimmed preview triangles of every surface of s.
func Triangles(s *scene.Scene, divisions int) ([]*sdf.Triangle3, error) {
	var out []*sdf.Triangle3
	for _, m := range s.Models() {
		if !m.Kind().IsSurface() {
			continue
		}
		sm, ok := m.Geometry().(kernel.Sampleable)
		if !ok {
			continue
		}
		m.Refresh()
		masks := s.Trims(m)
		trims := make([]preview.Trim, len(masks))
		for i, mk := range masks {
			trims[i] = mk
		}
		tris, err := preview.Triangles(sm, divisions, trims...)
		if err != nil {
			return nil, fmt.Errorf("tessellate: triangles of %s: %w", m.Label(), err)
		}
		for i := range tris {
			out = append(out, &tris[i])
		}
	}
	return out, nil
}

// SaveSTL writes the trimmed surfaces of s to a binary STL file and returns
// the number of triangles written.
func SaveSTL(path string, s *scene.Scene, divisions int) (int, error) {
	tris, err := Triangles(s, divisions)
	if err != nil {
		return 0, err
	}
	if err := render.SaveSTL(path, tris); err != nil {
		return 0, fmt.Errorf("tessellate: %w", err)
	}
	return len(tris), nil
}
