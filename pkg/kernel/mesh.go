package kernel

import v3 "github.com/deadsy/sdfx/vec/v3"

// Color is a linear RGBA colour.
type Color struct {
	R, G, B, A float32
}

// White is the default geometry colour.
var White = Color{R: 1, G: 1, B: 1, A: 1}

// Vertex is the interleaved position + colour format uploaded for
// patch tessellation.
type Vertex struct {
	X, Y, Z    float32
	R, G, B, A float32
}

// NewVertex builds a vertex from a position and colour.
func NewVertex(p v3.Vec, c Color) Vertex {
	return Vertex{
		X: float32(p.X), Y: float32(p.Y), Z: float32(p.Z),
		R: c.R, G: c.G, B: c.B, A: c.A,
	}
}

// Position returns the vertex position in double precision.
func (v Vertex) Position() v3.Vec {
	return v3.Vec{X: float64(v.X), Y: float64(v.Y), Z: float64(v.Z)}
}

// Line is a debug polyline.
type Line struct {
	Points []v3.Vec
	Color  Color
}

// Mesh is a triangle mesh suitable for rendering.
// All arrays are flat: vertices has 3 floats per vertex (x,y,z),
// normals has 3 floats per vertex, indices has 3 uint32s per triangle.
type Mesh struct {
	Vertices []float32 `json:"vertices"` // [x0,y0,z0, x1,y1,z1, ...]
	Normals  []float32 `json:"normals"`  // [nx0,ny0,nz0, ...]
	Indices  []uint32  `json:"indices"`  // [i0,i1,i2, ...] triangles
	PartName string    `json:"partName"` // which model this came from
}

// VertexCount returns the number of vertices.
func (m *Mesh) VertexCount() int {
	return len(m.Vertices) / 3
}

// TriangleCount returns the number of triangles.
func (m *Mesh) TriangleCount() int {
	return len(m.Indices) / 3
}

// IsEmpty returns true if the mesh has no geometry.
func (m *Mesh) IsEmpty() bool {
	return len(m.Vertices) == 0
}

// Buffers converts patch groups into interleaved vertices and sequential
// indices. Every group is emitted independently.
func Buffers(groups [][]v3.Vec, c Color) ([]Vertex, []uint32) {
	var n int
	for _, g := range groups {
		n += len(g)
	}
	vertices := make([]Vertex, 0, n)
	indices := make([]uint32, 0, n)
	for _, g := range groups {
		for _, p := range g {
			indices = append(indices, uint32(len(vertices)))
			vertices = append(vertices, NewVertex(p, c))
		}
	}
	return vertices, indices
}
