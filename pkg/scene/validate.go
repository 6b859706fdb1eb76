package scene

import (
	"fmt"
	"slices"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/gregory"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/google/uuid"
)

// ValidationSeverity indicates whether a finding makes the scene unusable
// or is merely informational.
type ValidationSeverity int

const (
	SeverityError   ValidationSeverity = iota // scene cannot be rendered as is
	SeverityWarning                           // informational
)

func (s ValidationSeverity) String() string {
	switch s {
	case SeverityError:
		return "error"
	case SeverityWarning:
		return "warning"
	default:
		return fmt.Sprintf("ValidationSeverity(%d)", int(s))
	}
}

// ValidationError describes a single validation finding.
type ValidationError struct {
	ModelID  uuid.UUID          // zero for scene-level findings
	Message  string
	Severity ValidationSeverity
}

func (e ValidationError) Error() string {
	if e.ModelID == uuid.Nil {
		return fmt.Sprintf("[%s] %s", e.Severity, e.Message)
	}
	return fmt.Sprintf("[%s] model %s: %s", e.Severity, e.ModelID.String()[:8], e.Message)
}

// Validate checks the scene without mutating it. An empty result means the
// scene is consistent.
func (s *Scene) Validate() []ValidationError {
	var errs []ValidationError
	errs = append(errs, s.validateReferences()...)
	errs = append(errs, s.validateCurves()...)
	errs = append(errs, s.validateSurfaces()...)
	errs = append(errs, s.validateFills()...)
	errs = append(errs, s.validateOrphans()...)
	return errs
}

// HasErrors reports whether any finding is an error.
func HasErrors(findings []ValidationError) bool {
	return slices.ContainsFunc(findings, func(e ValidationError) bool {
		return e.Severity == SeverityError
	})
}

// validateReferences checks that every model point is owned by the scene.
func (s *Scene) validateReferences() []ValidationError {
	var errs []ValidationError
	for _, m := range s.models {
		for i, p := range m.Points() {
			if s.Points[p.ID] != p {
				errs = append(errs, ValidationError{
					ModelID:  m.ID,
					Message:  fmt.Sprintf("control point %d (%s) is not in the scene", i, p.Short()),
					Severity: SeverityError,
				})
			}
		}
	}
	return errs
}

// minPoints is the smallest point count that produces a segment.
var minPoints = map[kernel.Kind]int{
	kernel.KindBezierC0:        2,
	kernel.KindSplineC2:        4,
	kernel.KindInterpolatingC2: 2,
}

func (s *Scene) validateCurves() []ValidationError {
	var errs []ValidationError
	for _, m := range s.models {
		if !m.Kind().IsCurve() {
			continue
		}
		if n := len(m.Points()); n < minPoints[m.Kind()] {
			errs = append(errs, ValidationError{
				ModelID:  m.ID,
				Message:  fmt.Sprintf("%v with %d control points renders nothing", m.Kind(), n),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateSurfaces checks that surface point counts still match their
// topology.
func (s *Scene) validateSurfaces() []ValidationError {
	var errs []ValidationError
	for _, m := range s.models {
		srf, ok := m.Geometry().(surface.Surface)
		if !ok {
			continue
		}
		want := srf.PointsU() * srf.PointsV()
		if n := len(m.Points()); n != want {
			errs = append(errs, ValidationError{
				ModelID:  m.ID,
				Message:  fmt.Sprintf("%d control points, topology needs %d", n, want),
				Severity: SeverityError,
			})
		}
	}
	return errs
}

// validateFills checks that every Gregory fill's donors still frame a hole.
func (s *Scene) validateFills() []ValidationError {
	var errs []ValidationError
	for _, f := range s.fills {
		var ps [3]surface.Patch
		var err error
		for i, d := range f.donors {
			if ps[i], err = d.get(); err != nil {
				break
			}
		}
		if err == nil {
			_, err = gregory.TryBuild(ps)
		}
		if err != nil {
			errs = append(errs, ValidationError{
				ModelID:  f.model.ID,
				Message:  fmt.Sprintf("donors no longer frame a hole: %v", err),
				Severity: SeverityWarning,
			})
		}
	}
	return errs
}

// validateOrphans reports points no model refers to.
func (s *Scene) validateOrphans() []ValidationError {
	used := make(map[uuid.UUID]bool, len(s.Points))
	for _, m := range s.models {
		for _, p := range m.Points() {
			used[p.ID] = true
		}
	}
	var ids []uuid.UUID
	for id := range s.Points {
		if !used[id] {
			ids = append(ids, id)
		}
	}
	slices.SortFunc(ids, func(a, b uuid.UUID) int { return slices.Compare(a[:], b[:]) })

	errs := make([]ValidationError, 0, len(ids))
	for _, id := range ids {
		errs = append(errs, ValidationError{
			Message:  fmt.Sprintf("point %s is not used by any model", id.String()[:8]),
			Severity: SeverityWarning,
		})
	}
	return errs
}
