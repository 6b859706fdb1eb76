// Package scene owns the control points and models of a modelling session.
// It is the single writer for everything it holds: models are refreshed in
// insertion order, then Gregory fills are rebuilt from their donor patches.
package scene

import (
	"fmt"
	"log/slog"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/curve"
	"github.com/chazu/bicubic/pkg/kernel/intersect"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/chazu/bicubic/pkg/model"
	v3 "github.com/deadsy/sdfx/vec/v3"
	"github.com/google/uuid"
)

// DefaultTextureSize is the side of generated trim masks.
const DefaultTextureSize = 256

// Scene holds points by ID and models in insertion order.
type Scene struct {
	Points    map[uuid.UUID]*model.ControlPoint
	NameIndex map[string]uuid.UUID

	models        []*model.Model
	fills         []*fill
	intersections []*Intersection

	logger      *slog.Logger
	opts        intersect.Options
	textureSize int
}

// Option configures a Scene.
type Option func(*Scene)

// WithLogger sets the logger used for refresh and fill diagnostics.
func WithLogger(l *slog.Logger) Option {
	return func(s *Scene) { s.logger = l }
}

// WithIntersectOptions sets the marching options used by Intersect.
func WithIntersectOptions(o intersect.Options) Option {
	return func(s *Scene) { s.opts = o }
}

// WithTextureSize sets the trim mask resolution.
func WithTextureSize(n int) Option {
	return func(s *Scene) { s.textureSize = n }
}

// New creates an empty scene.
func New(opts ...Option) *Scene {
	s := &Scene{
		Points:      make(map[uuid.UUID]*model.ControlPoint),
		NameIndex:   make(map[string]uuid.UUID),
		logger:      slog.Default(),
		opts:        intersect.DefaultOptions(),
		textureSize: DefaultTextureSize,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// AddPoint creates a control point owned by the scene.
func (s *Scene) AddPoint(name string, pos v3.Vec) *model.ControlPoint {
	p := model.NewControlPoint(name, pos)
	s.Points[p.ID] = p
	return p
}

// Point returns the point with the given ID, or nil.
func (s *Scene) Point(id uuid.UUID) *model.ControlPoint {
	return s.Points[id]
}

// Models returns the models in insertion order.
func (s *Scene) Models() []*model.Model {
	return append([]*model.Model(nil), s.models...)
}

// Model returns the model with the given ID, or nil.
func (s *Scene) Model(id uuid.UUID) *model.Model {
	for _, m := range s.models {
		if m.ID == id {
			return m
		}
	}
	return nil
}

// Lookup returns the model with the given name, or nil.
func (s *Scene) Lookup(name string) *model.Model {
	id, ok := s.NameIndex[name]
	if !ok {
		return nil
	}
	return s.Model(id)
}

// ModelCount returns the number of models.
func (s *Scene) ModelCount() int {
	return len(s.models)
}

func (s *Scene) owns(points []*model.ControlPoint) error {
	for i, p := range points {
		if p == nil || s.Points[p.ID] != p {
			return fmt.Errorf("scene: point %d is not owned by the scene: %w", i, kernel.ErrInvalidOperation)
		}
	}
	return nil
}

// add registers m. Names are unique within the scene.
func (s *Scene) add(m *model.Model) error {
	if m.Name != "" {
		if _, dup := s.NameIndex[m.Name]; dup {
			return fmt.Errorf("scene: duplicate model name %q: %w", m.Name, kernel.ErrInvalidOperation)
		}
		s.NameIndex[m.Name] = m.ID
	}
	s.models = append(s.models, m)
	return nil
}

// AddCurve binds a new curve of the given kind to points.
func (s *Scene) AddCurve(name string, kind kernel.Kind, points []*model.ControlPoint) (*model.Model, error) {
	var geom kernel.Geometry
	switch kind {
	case kernel.KindBezierC0:
		geom = curve.NewBezierC0()
	case kernel.KindSplineC2:
		geom = curve.NewSplineC2()
	case kernel.KindInterpolatingC2:
		geom = curve.NewInterpolatingC2()
	default:
		return nil, fmt.Errorf("scene: %v is not a curve: %w", kind, kernel.ErrInvalidOperation)
	}
	if err := s.owns(points); err != nil {
		return nil, err
	}
	m, err := model.New(name, kind, geom, points)
	if err != nil {
		return nil, err
	}
	if err := s.add(m); err != nil {
		return nil, err
	}
	return m, nil
}

func newSurface(kind kernel.Kind, t surface.Topology) (surface.Surface, error) {
	switch kind {
	case kernel.KindSurfaceC0:
		return surface.NewBezierC0(t)
	case kernel.KindSurfaceC2:
		return surface.NewSplineC2(t)
	}
	return nil, fmt.Errorf("scene: %v is not a surface: %w", kind, kernel.ErrInvalidOperation)
}

// AddSurface binds a new surface to points, which must match the topology.
func (s *Scene) AddSurface(name string, kind kernel.Kind, t surface.Topology, points []*model.ControlPoint) (*model.Model, error) {
	geom, err := newSurface(kind, t)
	if err != nil {
		return nil, err
	}
	if err := s.owns(points); err != nil {
		return nil, err
	}
	m, err := model.New(name, kind, geom, points)
	if err != nil {
		return nil, err
	}
	if err := s.add(m); err != nil {
		return nil, err
	}
	return m, nil
}

// GenerateSurface creates a surface with fresh control points laid out by
// the geometry: a plane of dimU x dimV, or a cylinder of radius dimU and
// height dimV when the topology wraps. The layout is moved to origin.
func (s *Scene) GenerateSurface(name string, kind kernel.Kind, t surface.Topology, dimU, dimV float64, origin v3.Vec) (*model.Model, error) {
	geom, err := newSurface(kind, t)
	if err != nil {
		return nil, err
	}
	layout := geom.GenerateControlPoints(dimU, dimV)
	points := make([]*model.ControlPoint, len(layout))
	for i, p := range layout {
		points[i] = s.AddPoint("", p.Add(origin))
	}
	return s.AddSurface(name, kind, t, points)
}

// MergePoints replaces every reference to drop with keep, moves keep to the
// midpoint of both and removes drop from the scene.
func (s *Scene) MergePoints(keep, drop *model.ControlPoint) error {
	if err := s.owns([]*model.ControlPoint{keep, drop}); err != nil {
		return err
	}
	if keep == drop {
		return nil
	}
	keep.Position = kernel.Mid(keep.Position, drop.Position)
	var touched int
	for _, m := range s.models {
		if m.ReplacePoint(drop, keep) {
			touched++
		}
	}
	delete(s.Points, drop.ID)
	s.logger.Debug("merged points", "keep", keep.Short(), "drop", drop.Short(), "models", touched)
	return nil
}

// MoveVirtualPoint moves a derived handle of m and refreshes the scene.
func (s *Scene) MoveVirtualPoint(m *model.Model, index int, pos v3.Vec) error {
	if err := m.MoveVirtualPoint(index, pos); err != nil {
		return err
	}
	s.Refresh()
	return nil
}

// Refresh brings every model up to date with its control points and
// rebuilds the Gregory fills from their donors. It returns the number of
// models that regenerated.
func (s *Scene) Refresh() int {
	var n int
	for _, m := range s.models {
		if m.Kind() == kernel.KindGregory {
			continue
		}
		if m.Refresh() {
			n++
		}
	}
	for _, f := range s.fills {
		if err := f.rebuild(); err != nil {
			s.logger.Warn("gregory fill no longer closes", "model", f.model.Label(), "err", err)
			continue
		}
		if f.model.Refresh() {
			n++
		}
	}
	return n
}
