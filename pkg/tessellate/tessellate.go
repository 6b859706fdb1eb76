// Package tessellate turns the models of a scene into render batches. One
// batch is produced per model; its vertices are grouped into patches of the
// geometry's patch size for hardware tessellation.
package tessellate

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/chazu/bicubic/pkg/model"
	"github.com/chazu/bicubic/pkg/scene"
	"github.com/deadsy/sdfx/sdf"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/samber/lo"
)

// Palette overrides vertex colours per geometry kind.
type Palette map[kernel.Kind]kernel.Color

// Batch holds the flattened buffers of one model.
type Batch struct {
	Name      string
	Kind      kernel.Kind
	PatchSize int
	Level     int // surface tessellation level, zero for other kinds

	Positions []float32 // xyz per vertex
	Colors    []float32 // rgba per vertex
	Indices   []uint32
	Lines     []kernel.Line
	Bounds    sdf.Box3
}

// VertexCount returns the number of vertices in the batch.
func (b *Batch) VertexCount() int {
	return len(b.Positions) / 3
}

// PatchCount returns the number of patches drawn from the index buffer.
func (b *Batch) PatchCount() int {
	if b.PatchSize == 0 {
		return 0
	}
	return len(b.Indices) / b.PatchSize
}

// IsEmpty reports whether the batch draws nothing.
func (b *Batch) IsEmpty() bool {
	return len(b.Indices) == 0 && len(b.Lines) == 0
}

// Tessellate produces one batch per model of s in scene order from the
// data of the last refresh. Models that draw nothing are skipped. The scene
// is not modified.
func Tessellate(s *scene.Scene, palette Palette) ([]*Batch, error) {
	if s == nil {
		return nil, nil
	}
	var batches []*Batch
	for _, m := range s.Models() {
		b, err := batch(m, palette)
		if err != nil {
			return nil, fmt.Errorf("tessellate: model %s: %w", m.Label(), err)
		}
		if b.IsEmpty() {
			continue
		}
		batches = append(batches, b)
	}
	return batches, nil
}

func batch(m *model.Model, palette Palette) (*Batch, error) {
	vertices, indices := m.Mesh()
	size := m.Geometry().PatchSize()
	if size < 1 || len(indices)%size != 0 {
		return nil, fmt.Errorf("%d indices do not form patches of %d", len(indices), size)
	}
	for _, i := range indices {
		if int(i) >= len(vertices) {
			return nil, fmt.Errorf("index %d out of %d vertices", i, len(vertices))
		}
	}

	b := &Batch{
		Name:      m.Label(),
		Kind:      m.Kind(),
		PatchSize: size,
		Indices:   append([]uint32(nil), indices...),
		Lines:     m.Lines(),
		Positions: make([]float32, 0, 3*len(vertices)),
		Colors:    make([]float32, 0, 4*len(vertices)),
	}
	if srf, ok := m.Geometry().(surface.Surface); ok {
		b.Level = srf.Topology().Level
	}
	override, recolor := palette[m.Kind()]
	for _, v := range vertices {
		c := kernel.Color{R: v.R, G: v.G, B: v.B, A: v.A}
		if recolor {
			c = override
		}
		b.Positions = append(b.Positions, v.X, v.Y, v.Z)
		b.Colors = append(b.Colors, c.R, c.G, c.B, c.A)
	}
	b.Bounds = kernel.Bounds(lo.Map(vertices, func(v kernel.Vertex, _ int) v3.Vec { return v.Position() }))
	return b, nil
}

// Previews triangulates every surface of s on the CPU with its trims
// applied, one mesh per surface.
func Previews(s *scene.Scene, divisions int) ([]*kernel.Mesh, error) {
	var meshes []*kernel.Mesh
	for _, m := range s.Models() {
		if !m.Kind().IsSurface() {
			continue
		}
		mesh, err := s.Preview(m, divisions)
		if err != nil {
			return nil, fmt.Errorf("tessellate: preview of %s: %w", m.Label(), err)
		}
		meshes = append(meshes, mesh)
	}
	return meshes, nil
}
