// Package config loads the modeller settings from TOML.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/kernel/intersect"
	"github.com/chazu/bicubic/pkg/kernel/preview"
	"github.com/chazu/bicubic/pkg/kernel/surface"
	"github.com/pelletier/go-toml/v2"
)

// Config is the complete settings file.
type Config struct {
	Tessellation Tessellation         `toml:"tessellation"`
	Intersection Intersection         `toml:"intersection"`
	Engine       Engine               `toml:"engine"`
	Palette      map[string][]float64 `toml:"palette"`
}

// Tessellation controls surface subdivision.
type Tessellation struct {
	Level            int `toml:"level"`
	PreviewDivisions int `toml:"preview_divisions"`
}

// Intersection mirrors intersect.Options plus the trim mask size.
type Intersection struct {
	Step             float64 `toml:"step"`
	Tolerance        float64 `toml:"tolerance"`
	MaxSteps         int     `toml:"max_steps"`
	NewtonIterations int     `toml:"newton_iterations"`
	SeedSamples      int     `toml:"seed_samples"`
	Candidates       int     `toml:"candidates"`
	TextureSize      int     `toml:"texture_size"`
}

// Engine controls script evaluation.
type Engine struct {
	TimeoutMS int `toml:"timeout_ms"`
}

// Default returns the built-in settings.
func Default() Config {
	o := intersect.DefaultOptions()
	return Config{
		Tessellation: Tessellation{
			Level:            surface.DefaultLevel,
			PreviewDivisions: preview.DefaultDivisions,
		},
		Intersection: Intersection{
			Step:             o.Step,
			Tolerance:        o.Tolerance,
			MaxSteps:         o.MaxSteps,
			NewtonIterations: o.NewtonIterations,
			SeedSamples:      o.SeedSamples,
			Candidates:       o.Candidates,
			TextureSize:      256,
		},
		Engine: Engine{TimeoutMS: 5000},
		Palette: map[string][]float64{
			kernel.KindBezierC0.String():        {1, 0.8, 0.2, 1},
			kernel.KindSplineC2.String():        {0.3, 0.8, 1, 1},
			kernel.KindInterpolatingC2.String(): {1, 0.4, 0.4, 1},
			kernel.KindSurfaceC0.String():       {0.85, 0.85, 0.85, 1},
			kernel.KindSurfaceC2.String():       {0.7, 0.9, 0.7, 1},
			kernel.KindGregory.String():         {0.9, 0.6, 1, 1},
		},
	}
}

// Parse decodes data over the defaults. Unknown keys are rejected.
func Parse(data []byte) (Config, error) {
	c := Default()
	dec := toml.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&c); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Load reads and parses the file at path.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	return Parse(data)
}

// Marshal encodes c as TOML.
func (c Config) Marshal() ([]byte, error) {
	return toml.Marshal(c)
}

// Validate reports every invalid setting.
func (c Config) Validate() error {
	var errs []error
	if c.Tessellation.Level < 1 {
		errs = append(errs, fmt.Errorf("tessellation.level %d must be positive", c.Tessellation.Level))
	}
	if c.Tessellation.PreviewDivisions < 1 {
		errs = append(errs, fmt.Errorf("tessellation.preview_divisions %d must be positive", c.Tessellation.PreviewDivisions))
	}
	if err := c.IntersectOptions().Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Intersection.TextureSize < 2 {
		errs = append(errs, fmt.Errorf("intersection.texture_size %d must be at least 2", c.Intersection.TextureSize))
	}
	if c.Engine.TimeoutMS < 1 {
		errs = append(errs, fmt.Errorf("engine.timeout_ms %d must be positive", c.Engine.TimeoutMS))
	}
	if _, err := c.Colors(); err != nil {
		errs = append(errs, err)
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: %w", errors.Join(errs...))
	}
	return nil
}

// IntersectOptions returns the marching settings.
func (c Config) IntersectOptions() intersect.Options {
	i := c.Intersection
	return intersect.Options{
		Step:             i.Step,
		Tolerance:        i.Tolerance,
		MaxSteps:         i.MaxSteps,
		NewtonIterations: i.NewtonIterations,
		SeedSamples:      i.SeedSamples,
		Candidates:       i.Candidates,
	}
}

// Timeout returns the script evaluation limit.
func (c Config) Timeout() time.Duration {
	return time.Duration(c.Engine.TimeoutMS) * time.Millisecond
}

func parseKind(name string) (kernel.Kind, bool) {
	for k := kernel.KindBezierC0; k <= kernel.KindGregory; k++ {
		if k.String() == name {
			return k, true
		}
	}
	return 0, false
}

// Colors maps the palette onto geometry kinds. Entries are RGB or RGBA in
// [0, 1].
func (c Config) Colors() (map[kernel.Kind]kernel.Color, error) {
	out := make(map[kernel.Kind]kernel.Color, len(c.Palette))
	for name, rgba := range c.Palette {
		k, ok := parseKind(name)
		if !ok {
			return nil, fmt.Errorf("palette: unknown kind %q", name)
		}
		if len(rgba) != 3 && len(rgba) != 4 {
			return nil, fmt.Errorf("palette.%s: want 3 or 4 components, got %d", name, len(rgba))
		}
		for _, v := range rgba {
			if v < 0 || v > 1 {
				return nil, fmt.Errorf("palette.%s: component %g outside [0, 1]", name, v)
			}
		}
		col := kernel.Color{R: float32(rgba[0]), G: float32(rgba[1]), B: float32(rgba[2]), A: 1}
		if len(rgba) == 4 {
			col.A = float32(rgba[3])
		}
		out[k] = col
	}
	return out, nil
}
