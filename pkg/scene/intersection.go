package scene

import (
	"fmt"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/intersect"
	"github.com/chazu/bicubic/pkg/kernel/preview"
	"github.com/chazu/bicubic/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
)

// Intersection records a traced curve between two surface models, the
// interpolating curve model built through it and the trim mask of each
// surface.
type Intersection struct {
	A, B  *model.Model
	Curve *intersect.Curve
	Model *model.Model
	Masks [2]*intersect.Mask
}

func sampleable(m *model.Model) (kernel.Sampleable, error) {
	s, ok := m.Geometry().(kernel.Sampleable)
	if !ok {
		return nil, fmt.Errorf("scene: %s (%v) cannot be intersected: %w", m.Label(), m.Kind(), kernel.ErrInvalidOperation)
	}
	return s, nil
}

// Intersect traces the intersection of surface models a and b, starting
// near seed when it is non-nil. The curve becomes an interpolating curve
// model named name, and both surfaces get a trim mask.
func (s *Scene) Intersect(name string, a, b *model.Model, seed *v3.Vec) (*Intersection, error) {
	if a == b {
		return nil, fmt.Errorf("scene: self-intersection of %s: %w", a.Label(), kernel.ErrInvalidOperation)
	}
	sa, err := sampleable(a)
	if err != nil {
		return nil, err
	}
	sb, err := sampleable(b)
	if err != nil {
		return nil, err
	}
	a.Refresh()
	b.Refresh()

	c, err := intersect.TryFindIntersection(sa, sb, seed, s.opts)
	if err != nil {
		return nil, fmt.Errorf("scene: intersect %s and %s: %w", a.Label(), b.Label(), err)
	}

	points := make([]*model.ControlPoint, 0, len(c.Points)+1)
	for _, p := range c.Points {
		points = append(points, s.AddPoint("", p))
	}
	if c.Closed && len(points) > 1 {
		points = append(points, points[0])
	}
	m, err := s.AddCurve(name, kernel.KindInterpolatingC2, points)
	if err != nil {
		return nil, err
	}

	x := &Intersection{A: a, B: b, Curve: c, Model: m}
	for i := range x.Masks {
		if x.Masks[i], err = c.Mask(i, s.textureSize); err != nil {
			return nil, err
		}
	}
	s.intersections = append(s.intersections, x)
	s.logger.Info("intersection traced",
		"a", a.Label(), "b", b.Label(), "points", len(c.Points), "closed", c.Closed)
	return x, nil
}

// Intersections returns the traced intersections in creation order.
func (s *Scene) Intersections() []*Intersection {
	return append([]*Intersection(nil), s.intersections...)
}

// Trims returns the masks trimming m.
func (s *Scene) Trims(m *model.Model) []*intersect.Mask {
	var out []*intersect.Mask
	for _, x := range s.intersections {
		if x.A == m {
			out = append(out, x.Masks[0])
		}
		if x.B == m {
			out = append(out, x.Masks[1])
		}
	}
	return out
}

// Preview triangulates surface model m on the CPU with its trims applied.
func (s *Scene) Preview(m *model.Model, divisions int) (*kernel.Mesh, error) {
	sm, err := sampleable(m)
	if err != nil {
		return nil, err
	}
	m.Refresh()
	masks := s.Trims(m)
	trims := make([]preview.Trim, len(masks))
	for i, mk := range masks {
		trims[i] = mk
	}
	return preview.SurfaceMesh(m.Label(), sm, divisions, trims...)
}
