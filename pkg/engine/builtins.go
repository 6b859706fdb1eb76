package engine

import (
	"fmt"
	"strings"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/chazu/bicubic/pkg/model"
	"github.com/chazu/bicubic/pkg/scene"
	v3 "github.com/deadsy/sdfx/vec/v3"
	zygo "github.com/glycerine/zygomys/zygo"
	"github.com/samber/lo"
)

// ---------------------------------------------------------------------------
// Source preprocessing
// ---------------------------------------------------------------------------

// preprocessSource rewrites script source for zygomys:
//
//  1. :keyword becomes the string literal "__kw_keyword", so keywords need
//     no global symbols that could clash with user variables.
//  2. Kebab-case identifiers become snake case (spline-c2 -> spline_c2);
//     zygomys reads a hyphen as subtraction.
//  3. ; line comments become // comments.
//
// String literals are left untouched.
func preprocessSource(source string) string {
	out := make([]byte, 0, len(source)+len(source)/4)
	b := []byte(source)
	i := 0
	for i < len(b) {
		switch {
		case b[i] == '"':
			j := i + 1
			for j < len(b) && b[j] != '"' {
				if b[j] == '\\' && j+1 < len(b) {
					j++
				}
				j++
			}
			j = min(j+1, len(b))
			out = append(out, b[i:j]...)
			i = j

		case b[i] == '`':
			j := i + 1
			for j < len(b) && b[j] != '`' {
				j++
			}
			j = min(j+1, len(b))
			out = append(out, b[i:j]...)
			i = j

		case b[i] == ';':
			out = append(out, '/', '/')
			for i < len(b) && b[i] == ';' {
				i++
			}
			for i < len(b) && b[i] != '\n' {
				out = append(out, b[i])
				i++
			}

		case b[i] == ':' && i+1 < len(b) && b[i+1] == '=':
			out = append(out, ':', '=')
			i += 2

		case b[i] == ':' && i+1 < len(b) && isLetter(b[i+1]):
			j := i + 1
			for j < len(b) && isKWChar(b[j]) {
				j++
			}
			out = append(out, '"')
			out = append(out, kwPrefix...)
			out = append(out, b[i+1:j]...)
			out = append(out, '"')
			i = j

		case b[i] == '-' && i > 0 && i+1 < len(b) && isIdentChar(b[i-1]) && isLetter(b[i+1]):
			out = append(out, '_')
			i++

		default:
			out = append(out, b[i])
			i++
		}
	}
	return string(out)
}

func isLetter(c byte) bool {
	return (c >= 'a' && c <= 'z') || (c >= 'A' && c <= 'Z')
}

func isKWChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '-' || c == '_'
}

func isIdentChar(c byte) bool {
	return isLetter(c) || (c >= '0' && c <= '9') || c == '_'
}

// ---------------------------------------------------------------------------
// Custom Sexp types for passing Go values through the zygomys environment
// ---------------------------------------------------------------------------

type sexpVec3 struct {
	vec v3.Vec
}

func (v *sexpVec3) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(vec3 %g %g %g)", v.vec.X, v.vec.Y, v.vec.Z)
}
func (v *sexpVec3) Type() *zygo.RegisteredType { return nil }

// sexpPoint wraps a scene-owned control point.
type sexpPoint struct {
	point *model.ControlPoint
}

func (p *sexpPoint) SexpString(ps *zygo.PrintState) string {
	if p.point.Name != "" {
		return fmt.Sprintf("(point %q)", p.point.Name)
	}
	return fmt.Sprintf("(point %s)", p.point.Short())
}
func (p *sexpPoint) Type() *zygo.RegisteredType { return nil }

// sexpModel wraps a scene model.
type sexpModel struct {
	model *model.Model
}

func (m *sexpModel) SexpString(ps *zygo.PrintState) string {
	return fmt.Sprintf("(model %q)", m.model.Label())
}
func (m *sexpModel) Type() *zygo.RegisteredType { return nil }

// ---------------------------------------------------------------------------
// Keyword argument parsing
// ---------------------------------------------------------------------------

// kwPrefix is the marker prepended to keyword names by preprocessSource.
const kwPrefix = "__kw_"

// isKW returns the keyword name of a preprocessed keyword string.
func isKW(s zygo.Sexp) (string, bool) {
	str, ok := s.(*zygo.SexpStr)
	if !ok || !strings.HasPrefix(str.S, kwPrefix) {
		return "", false
	}
	return str.S[len(kwPrefix):], true
}

// kwArgs holds a parsed mixed positional and keyword argument list.
type kwArgs struct {
	kw         map[string]zygo.Sexp
	positional []zygo.Sexp
}

// parseArgs separates args into keyword and positional arguments.
func parseArgs(args []zygo.Sexp) kwArgs {
	result := kwArgs{kw: make(map[string]zygo.Sexp)}
	for i := 0; i < len(args); i++ {
		name, ok := isKW(args[i])
		if !ok {
			result.positional = append(result.positional, args[i])
			continue
		}
		if i+1 < len(args) {
			result.kw[name] = args[i+1]
			i++
		} else {
			result.kw[name] = zygo.SexpNull
		}
	}
	return result
}

// name pops a leading string positional argument.
func (a *kwArgs) name() string {
	if len(a.positional) == 0 {
		return ""
	}
	if str, ok := a.positional[0].(*zygo.SexpStr); ok {
		a.positional = a.positional[1:]
		return str.S
	}
	return ""
}

// ---------------------------------------------------------------------------
// Value extraction helpers
// ---------------------------------------------------------------------------

func toFloat64(s zygo.Sexp) (float64, error) {
	switch v := s.(type) {
	case *zygo.SexpInt:
		return float64(v.Val), nil
	case *zygo.SexpFloat:
		return v.Val, nil
	}
	return 0, fmt.Errorf("expected number, got %T (%s)", s, s.SexpString(nil))
}

func toInt(s zygo.Sexp) (int, error) {
	if v, ok := s.(*zygo.SexpInt); ok {
		return int(v.Val), nil
	}
	return 0, fmt.Errorf("expected integer, got %T (%s)", s, s.SexpString(nil))
}

func toBool(s zygo.Sexp) (bool, error) {
	if v, ok := s.(*zygo.SexpBool); ok {
		return v.Val, nil
	}
	return false, fmt.Errorf("expected boolean, got %T (%s)", s, s.SexpString(nil))
}

func toString(s zygo.Sexp) (string, error) {
	if str, ok := s.(*zygo.SexpStr); ok {
		return str.S, nil
	}
	return "", fmt.Errorf("expected string, got %T (%s)", s, s.SexpString(nil))
}

func toVec3(s zygo.Sexp) (v3.Vec, error) {
	switch v := s.(type) {
	case *sexpVec3:
		return v.vec, nil
	case *sexpPoint:
		return v.point.Position, nil
	}
	return v3.Vec{}, fmt.Errorf("expected vec3, got %T (%s)", s, s.SexpString(nil))
}

func toModel(s zygo.Sexp) (*model.Model, error) {
	if m, ok := s.(*sexpModel); ok {
		return m.model, nil
	}
	return nil, fmt.Errorf("expected model, got %T (%s)", s, s.SexpString(nil))
}

// sexpListToSlice converts a SexpPair (Lisp list) or SexpArray to a Go slice.
func sexpListToSlice(s zygo.Sexp) ([]zygo.Sexp, error) {
	switch v := s.(type) {
	case *zygo.SexpPair:
		return zygo.ListToArray(v)
	case *zygo.SexpArray:
		return v.Val, nil
	case *zygo.SexpSentinel:
		if v == zygo.SexpNull {
			return nil, nil
		}
	}
	return nil, fmt.Errorf("expected list or array, got %T", s)
}

// toPoints collects control points from arguments, flattening lists and
// arrays.
func toPoints(args []zygo.Sexp) ([]*model.ControlPoint, error) {
	var out []*model.ControlPoint
	for i, a := range args {
		switch v := a.(type) {
		case *sexpPoint:
			out = append(out, v.point)
		case *zygo.SexpPair, *zygo.SexpArray:
			items, err := sexpListToSlice(v)
			if err != nil {
				return nil, err
			}
			pts, err := toPoints(items)
			if err != nil {
				return nil, err
			}
			out = append(out, pts...)
		default:
			return nil, fmt.Errorf("argument %d: expected point, got %T (%s)", i, a, a.SexpString(nil))
		}
	}
	return out, nil
}

// ---------------------------------------------------------------------------
// Builtin registration
// ---------------------------------------------------------------------------

type builtin = func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error)

// registerBuiltins installs the modelling builtins. They populate s during
// evaluation. Surfaces without a :level use level.
//
// Source must be preprocessed with preprocessSource so that keywords and
// kebab-case names are recognised.
func registerBuiltins(env *zygo.Zlisp, s *scene.Scene, level int) {
	b := &builtins{scene: s, level: level}
	for name, fn := range map[string]builtin{
		"vec3":         b.vec3,
		"point":        b.point,
		"model":        b.model,
		"bezier_c0":    b.curve(kernel.KindBezierC0),
		"spline_c2":    b.curve(kernel.KindSplineC2),
		"interp_c2":    b.curve(kernel.KindInterpolatingC2),
		"surface_c0":   b.surface(kernel.KindSurfaceC0),
		"surface_c2":   b.surface(kernel.KindSurfaceC2),
		"merge_points": b.mergePoints,
		"fill_holes":   b.fillHoles,
		"intersect":    b.intersect,
		"move_virtual": b.moveVirtual,
	} {
		env.AddFunction(name, fn)
	}
}

type builtins struct {
	scene *scene.Scene
	level int
}

// (vec3 1 2 3)
func (b *builtins) vec3(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("vec3 requires exactly 3 arguments, got %d", len(args))
	}
	var c [3]float64
	for i, a := range args {
		f, err := toFloat64(a)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("vec3: %c: %w", "xyz"[i], err)
		}
		c[i] = f
	}
	return &sexpVec3{vec: v3.Vec{X: c[0], Y: c[1], Z: c[2]}}, nil
}

// (point 1 2 3), (point "name" 1 2 3) or (point "name" (vec3 1 2 3))
func (b *builtins) point(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	pointName := pa.name()
	var pos v3.Vec
	switch len(pa.positional) {
	case 1:
		v, err := toVec3(pa.positional[0])
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		pos = v
	case 3:
		v, err := b.vec3(env, name, pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("point: %w", err)
		}
		pos = v.(*sexpVec3).vec
	default:
		return zygo.SexpNull, fmt.Errorf("point requires a vec3 or three coordinates")
	}
	return &sexpPoint{point: b.scene.AddPoint(pointName, pos)}, nil
}

// (model "name")
func (b *builtins) model(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 1 {
		return zygo.SexpNull, fmt.Errorf("model requires a name argument")
	}
	modelName, err := toString(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("model: name: %w", err)
	}
	m := b.scene.Lookup(modelName)
	if m == nil {
		return zygo.SexpNull, fmt.Errorf("model: no model named %q", modelName)
	}
	return &sexpModel{model: m}, nil
}

// (bezier-c0 "name" p0 p1 p2 p3 ...) and friends. Points may also be given
// as a list or array.
func (b *builtins) curve(kind kernel.Kind) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		curveName := pa.name()
		points, err := toPoints(pa.positional)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%v: %w", kind, err)
		}
		m, err := b.scene.AddCurve(curveName, kind, points)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%v: %w", kind, err)
		}
		return &sexpModel{model: m}, nil
	}
}

// (surface-c0 "name" :patches-u 2 :patches-v 1 :wrap false :level 8
//
//	:width 4 :height 2 :at (vec3 0 0 0))
//
// (surface-c0 "name" :patches-u 1 :patches-v 1 :points (list p0 ... p15))
func (b *builtins) surface(kind kernel.Kind) builtin {
	return func(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
		pa := parseArgs(args)
		surfaceName := pa.name()
		t := surface.Topology{PatchesU: 1, PatchesV: 1, Level: b.level}
		dimU, dimV := 1.0, 1.0
		var origin v3.Vec

		for key, dst := range map[string]*int{"patches-u": &t.PatchesU, "patches-v": &t.PatchesV, "level": &t.Level} {
			if v, ok := pa.kw[key]; ok {
				n, err := toInt(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%v: %s: %w", kind, key, err)
				}
				*dst = n
			}
		}
		for key, dst := range map[string]*float64{"width": &dimU, "height": &dimV} {
			if v, ok := pa.kw[key]; ok {
				f, err := toFloat64(v)
				if err != nil {
					return zygo.SexpNull, fmt.Errorf("%v: %s: %w", kind, key, err)
				}
				*dst = f
			}
		}
		if v, ok := pa.kw["wrap"]; ok {
			w, err := toBool(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%v: wrap: %w", kind, err)
			}
			t.Wrap = w
		}
		if v, ok := pa.kw["at"]; ok {
			p, err := toVec3(v)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("%v: at: %w", kind, err)
			}
			origin = p
		}

		var (
			m   *model.Model
			err error
		)
		if v, ok := pa.kw["points"]; ok {
			items, lerr := sexpListToSlice(v)
			if lerr != nil {
				return zygo.SexpNull, fmt.Errorf("%v: points: %w", kind, lerr)
			}
			points, perr := toPoints(items)
			if perr != nil {
				return zygo.SexpNull, fmt.Errorf("%v: points: %w", kind, perr)
			}
			m, err = b.scene.AddSurface(surfaceName, kind, t, points)
		} else {
			m, err = b.scene.GenerateSurface(surfaceName, kind, t, dimU, dimV, origin)
		}
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("%v: %w", kind, err)
		}
		return &sexpModel{model: m}, nil
	}
}

// (merge-points keep drop)
func (b *builtins) mergePoints(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	points, err := toPoints(args)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("merge-points: %w", err)
	}
	if len(points) != 2 {
		return zygo.SexpNull, fmt.Errorf("merge-points requires two points, got %d", len(points))
	}
	if err := b.scene.MergePoints(points[0], points[1]); err != nil {
		return zygo.SexpNull, fmt.Errorf("merge-points: %w", err)
	}
	return &sexpPoint{point: points[0]}, nil
}

// (fill-holes) over every surface, or (fill-holes s1 s2 s3) over a
// selection. Returns the number of new fills.
func (b *builtins) fillHoles(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	var selected func(*model.Model) bool
	if len(args) > 0 {
		models := make([]*model.Model, len(args))
		for i, a := range args {
			m, err := toModel(a)
			if err != nil {
				return zygo.SexpNull, fmt.Errorf("fill-holes: argument %d: %w", i, err)
			}
			models[i] = m
		}
		selected = func(m *model.Model) bool { return lo.Contains(models, m) }
	}
	created, err := b.scene.FillHoles(selected)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("fill-holes: %w", err)
	}
	return &zygo.SexpInt{Val: int64(len(created))}, nil
}

// (intersect "name" a b :seed (vec3 0 0 0))
func (b *builtins) intersect(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	pa := parseArgs(args)
	curveName := pa.name()
	if len(pa.positional) != 2 {
		return zygo.SexpNull, fmt.Errorf("intersect requires two surfaces, got %d arguments", len(pa.positional))
	}
	a, err := toModel(pa.positional[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("intersect: first surface: %w", err)
	}
	c, err := toModel(pa.positional[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("intersect: second surface: %w", err)
	}
	var seed *v3.Vec
	if v, ok := pa.kw["seed"]; ok {
		p, err := toVec3(v)
		if err != nil {
			return zygo.SexpNull, fmt.Errorf("intersect: seed: %w", err)
		}
		seed = &p
	}
	x, err := b.scene.Intersect(curveName, a, c, seed)
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("intersect: %w", err)
	}
	return &sexpModel{model: x.Model}, nil
}

// (move-virtual m index (vec3 x y z))
func (b *builtins) moveVirtual(env *zygo.Zlisp, name string, args []zygo.Sexp) (zygo.Sexp, error) {
	if len(args) != 3 {
		return zygo.SexpNull, fmt.Errorf("move-virtual requires a model, an index and a position")
	}
	m, err := toModel(args[0])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("move-virtual: %w", err)
	}
	index, err := toInt(args[1])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("move-virtual: index: %w", err)
	}
	pos, err := toVec3(args[2])
	if err != nil {
		return zygo.SexpNull, fmt.Errorf("move-virtual: position: %w", err)
	}
	m.Refresh()
	if err := b.scene.MoveVirtualPoint(m, index, pos); err != nil {
		return zygo.SexpNull, fmt.Errorf("move-virtual: %w", err)
	}
	return &sexpModel{model: m}, nil
}
