package scene

import (
	"fmt"
	"slices"
	"strings"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/gregory"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/chazu/bicubic/pkg/model"
	"github.com/samber/lo"
)

// donor names one patch of a surface model.
type donor struct {
	model *model.Model
	patch int
}

func (d donor) String() string {
	return fmt.Sprintf("%s#%d", d.model.ID, d.patch)
}

func (d donor) get() (surface.Patch, error) {
	srf, ok := d.model.Geometry().(surface.Surface)
	if !ok {
		return surface.Patch{}, fmt.Errorf("scene: donor %s is not a surface: %w", d.model.Label(), kernel.ErrInvalidOperation)
	}
	patches := srf.Patches()
	if d.patch >= len(patches) {
		return surface.Patch{}, fmt.Errorf("scene: donor %s has %d patches, want %d: %w",
			d.model.Label(), len(patches), d.patch+1, kernel.ErrInvalidOperation)
	}
	return patches[d.patch], nil
}

// fill is a Gregory patch kept in sync with three donor patches.
type fill struct {
	model  *model.Model
	patch  *gregory.Patch
	donors [3]donor
}

func donorKey(ds [3]donor) string {
	keys := lo.Map(ds[:], func(d donor, _ int) string { return d.String() })
	slices.Sort(keys)
	return strings.Join(keys, ",")
}

func (f *fill) rebuild() error {
	var ps [3]surface.Patch
	for i, d := range f.donors {
		p, err := d.get()
		if err != nil {
			return err
		}
		ps[i] = p
	}
	h, err := gregory.TryBuild(ps)
	if err != nil {
		return err
	}
	return f.patch.ForceSetControlPoints(h.Points())
}

// Fills returns the Gregory models with the models donating to each.
func (s *Scene) Fills() map[*model.Model][3]*model.Model {
	out := make(map[*model.Model][3]*model.Model, len(s.fills))
	for _, f := range s.fills {
		out[f.model] = [3]*model.Model{f.donors[0].model, f.donors[1].model, f.donors[2].model}
	}
	return out
}

// FillHoles searches the patches of the selected surface models for
// triangular holes and fills each new one with a Gregory patch. A nil
// selector selects every surface. Holes already filled are skipped.
func (s *Scene) FillHoles(selected func(*model.Model) bool) ([]*model.Model, error) {
	var (
		donors  []donor
		patches []surface.Patch
	)
	for _, m := range s.models {
		if !m.Kind().IsSurface() || (selected != nil && !selected(m)) {
			continue
		}
		m.Refresh()
		srf := m.Geometry().(surface.Surface)
		for i, p := range srf.Patches() {
			donors = append(donors, donor{model: m, patch: i})
			patches = append(patches, p)
		}
	}

	filled := make(map[string]bool, len(s.fills))
	for _, f := range s.fills {
		filled[donorKey(f.donors)] = true
	}

	var created []*model.Model
	for _, h := range gregory.FindHoles(patches) {
		ds := [3]donor{donors[h.Donors[0]], donors[h.Donors[1]], donors[h.Donors[2]]}
		key := donorKey(ds)
		if filled[key] {
			continue
		}
		g := gregory.NewPatch()
		if err := g.ForceSetControlPoints(h.Points()); err != nil {
			return created, err
		}
		m, err := model.New(fmt.Sprintf("gregory-%d", len(s.fills)+1), kernel.KindGregory, g, nil)
		if err != nil {
			return created, err
		}
		if err := s.add(m); err != nil {
			return created, err
		}
		s.fills = append(s.fills, &fill{model: m, patch: g, donors: ds})
		filled[key] = true
		created = append(created, m)
		s.logger.Info("filled hole", "model", m.Label(),
			"donors", lo.Map(ds[:], func(d donor, _ int) string { return d.model.Label() }))
	}
	return created, nil
}
