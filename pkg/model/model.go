// Package model binds kernel geometries to scene-owned control points.
// A Model holds its control points by reference, pushes their positions to
// the geometry on Refresh and maps edits of derived virtual points back onto
// the real points. Models are single-writer: callers serialise access.
package model

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// ControlPoint is a scene-owned position with a stable identity.
type ControlPoint struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name,omitempty"`
	Position v3.Vec    `json:"position"`
}

// NewControlPoint returns a point with a fresh identity.
func NewControlPoint(name string, pos v3.Vec) *ControlPoint {
	return &ControlPoint{ID: uuid.New(), Name: name, Position: pos}
}

// Short returns the first eight characters of the point's ID.
func (p *ControlPoint) Short() string {
	return p.ID.String()[:8]
}

type pointSetter interface {
	TrySetControlPoints(points []v3.Vec) error
}

// Model couples a geometry with the control points that drive it.
type Model struct {
	ID   uuid.UUID
	Name string

	kind   kernel.Kind
	geom   kernel.Geometry
	points []*ControlPoint

	snapshot []v3.Vec
	virtual  []v3.Vec
	vertices []kernel.Vertex
	indices  []uint32
	lines    []kernel.Line
}

// New binds geom to points. The geometry must be of the declared kind and,
// for fixed-topology geometries, accept the number of points given.
func New(name string, kind kernel.Kind, geom kernel.Geometry, points []*ControlPoint) (*Model, error) {
	if geom == nil {
		return nil, fmt.Errorf("model %q: nil geometry: %w", name, kernel.ErrInvalidOperation)
	}
	if geom.Kind() != kind {
		return nil, fmt.Errorf("model %q: %v geometry bound as %v: %w", name, geom.Kind(), kind, kernel.ErrInvalidOperation)
	}
	m := &Model{
		ID:     uuid.New(),
		Name:   name,
		kind:   kind,
		geom:   geom,
		points: append([]*ControlPoint(nil), points...),
	}
	m.snapshot = m.Positions()
	if s, ok := geom.(pointSetter); ok {
		if err := s.TrySetControlPoints(m.snapshot); err != nil {
			return nil, fmt.Errorf("model %q: %w", name, err)
		}
	} else {
		geom.SetControlPoints(m.snapshot)
	}
	m.regenerate()
	return m, nil
}

// Kind returns the declared geometry kind.
func (m *Model) Kind() kernel.Kind { return m.kind }

// Geometry returns the bound geometry.
func (m *Model) Geometry() kernel.Geometry { return m.geom }

// Label returns the model name, or its short ID when unnamed.
func (m *Model) Label() string {
	if m.Name != "" {
		return m.Name
	}
	return m.ID.String()[:8]
}

// Points returns the bound control points in order.
func (m *Model) Points() []*ControlPoint {
	return append([]*ControlPoint(nil), m.points...)
}

// Positions snapshots the current control point positions.
func (m *Model) Positions() []v3.Vec {
	out := make([]v3.Vec, len(m.points))
	for i, p := range m.points {
		out[i] = p.Position
	}
	return out
}

// References reports whether the model is driven by the point with id.
func (m *Model) References(id uuid.UUID) bool {
	for _, p := range m.points {
		if p.ID == id {
			return true
		}
	}
	return false
}

// ReplacePoint swaps every reference to old for repl and reports whether
// anything changed.
func (m *Model) ReplacePoint(old, repl *ControlPoint) bool {
	var changed bool
	for i, p := range m.points {
		if p == old {
			m.points[i] = repl
			changed = true
		}
	}
	return changed
}

// Refresh pushes the point positions to the geometry and regenerates the
// derived data when the positions changed or the geometry asks for it.
// It reports whether anything was regenerated.
func (m *Model) Refresh() bool {
	pos := m.Positions()
	if kernel.EqualVecs(pos, m.snapshot) && !m.geom.GeometryChanged() {
		return false
	}
	m.geom.SetControlPoints(pos)
	m.snapshot = pos
	m.regenerate()
	return true
}

func (m *Model) regenerate() {
	m.vertices, m.indices = m.geom.Mesh()
	m.lines = m.geom.Lines()

	derived := m.geom.VirtualPoints()
	if len(derived) != len(m.virtual) {
		m.virtual = kernel.CloneVecs(derived)
		return
	}
	copy(m.virtual, derived)
}

// Mesh returns the vertex and index buffers of the last refresh.
func (m *Model) Mesh() ([]kernel.Vertex, []uint32) { return m.vertices, m.indices }

// Lines returns the debug polylines of the last refresh.
func (m *Model) Lines() []kernel.Line { return m.lines }

// VirtualPoints returns the derived handles of the last refresh.
func (m *Model) VirtualPoints() []v3.Vec { return kernel.CloneVecs(m.virtual) }

// SetColor colours the geometry when it supports it.
func (m *Model) SetColor(c kernel.Color) {
	if col, ok := m.geom.(kernel.Colorable); ok {
		col.SetColor(c)
	}
}

// MoveVirtualPoint moves virtual point index to pos. The geometry's inverse
// mapping yields new control positions; the differences are applied to the
// bound points, once per distinct point, and the model is refreshed.
func (m *Model) MoveVirtualPoint(index int, pos v3.Vec) error {
	if index < 0 || index >= len(m.virtual) {
		return fmt.Errorf("model %q: virtual point %d of %d: %w", m.Label(), index, len(m.virtual), kernel.ErrInvalidOperation)
	}
	m.geom.SetControlPoints(m.Positions())
	updated := m.geom.MoveVirtualPoint(index, pos)
	if len(updated) != len(m.points) {
		return fmt.Errorf("model %q: inverse mapping returned %d points, want %d: %w",
			m.Label(), len(updated), len(m.points), kernel.ErrInvalidOperation)
	}
	before := m.Positions()
	moved := make(map[*ControlPoint]bool, len(m.points))
	for i, p := range m.points {
		if moved[p] {
			continue
		}
		delta := updated[i].Sub(before[i])
		if delta == (v3.Vec{}) {
			continue
		}
		p.Position = p.Position.Add(delta)
		moved[p] = true
	}
	m.Refresh()
	return nil
}
