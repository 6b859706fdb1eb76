package scene

import (
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/chazu/bicubic/pkg/model"
	"github.com/google/uuid"
	"github.com/samber/lo"
)

// ModelRef is the persistable description of a model: its kind, the
// ordered IDs of its control points and, for surfaces, the topology.
type ModelRef struct {
	ID       uuid.UUID         `json:"id"`
	Name     string            `json:"name,omitempty"`
	Kind     string            `json:"kind"`
	Points   []uuid.UUID       `json:"points"`
	Topology *surface.Topology `json:"topology,omitempty"`
	Donors   []uuid.UUID       `json:"donors,omitempty"`
}

// Ref describes m.
func (s *Scene) Ref(m *model.Model) ModelRef {
	ref := ModelRef{
		ID:     m.ID,
		Name:   m.Name,
		Kind:   m.Kind().String(),
		Points: lo.Map(m.Points(), func(p *model.ControlPoint, _ int) uuid.UUID { return p.ID }),
	}
	if srf, ok := m.Geometry().(surface.Surface); ok {
		t := srf.Topology()
		ref.Topology = &t
	}
	for _, f := range s.fills {
		if f.model == m {
			ref.Donors = lo.Map(f.donors[:], func(d donor, _ int) uuid.UUID { return d.model.ID })
		}
	}
	return ref
}

// Refs describes every model in insertion order.
func (s *Scene) Refs() []ModelRef {
	return lo.Map(s.models, func(m *model.Model, _ int) ModelRef { return s.Ref(m) })
}
