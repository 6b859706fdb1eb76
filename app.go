package main

import (
	"fmt"
	"log/slog"

	"github.com/chazu/bicubic/pkg/config"
	"github.com/chazu/bicubic/pkg/engine"
	"github.com/chazu/bicubic/pkg/kernel"
	"github.com/chazu/bicubic/pkg/model"
	"github.com/chazu/bicubic/pkg/scene"
	"github.com/chazu/bicubic/pkg/tessellate"
	"github.com/samber/lo"
)

// App runs the modelling pipeline: script source to scene to render
// batches and trimmed previews.
type App struct {
	engine  *engine.Engine
	cfg     config.Config
	palette tessellate.Palette
	logger  *slog.Logger
}

// BatchData is the JSON-serializable render batch of one model.
type BatchData struct {
	Name      string    `json:"name"`
	Kind      string    `json:"kind"`
	PatchSize int       `json:"patchSize"`
	Level     int       `json:"level,omitempty"`
	Positions []float32 `json:"positions"`
	Colors    []float32 `json:"colors"`
	Indices   []uint32  `json:"indices"`
	Lines     []float32 `json:"lines"` // xyz pairs, one segment each
}

// MeshData is the JSON-serializable preview mesh of one surface.
type MeshData struct {
	Vertices []float32 `json:"vertices"`
	Normals  []float32 `json:"normals"`
	Indices  []uint32  `json:"indices"`
	PartName string    `json:"partName"`
	Color    string    `json:"color"`
}

// EvalErrorData is a JSON-serializable eval error or warning.
type EvalErrorData struct {
	Line    int    `json:"line"`
	Col     int    `json:"col"`
	Message string `json:"message"`
}

// EvalResult is the full result of one evaluation.
type EvalResult struct {
	Models   []scene.ModelRef `json:"models"`
	Batches  []BatchData      `json:"batches"`
	Meshes   []MeshData       `json:"meshes"`
	Errors   []EvalErrorData  `json:"errors"`
	Warnings []EvalErrorData  `json:"warnings"`

	scene     *scene.Scene
	divisions int
}

// Scene returns the evaluated scene, or nil when evaluation failed.
func (r EvalResult) Scene() *scene.Scene { return r.scene }

// NewApp creates an App configured by cfg. A nil logger uses slog.Default.
func NewApp(cfg config.Config, logger *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	colors, err := cfg.Colors()
	if err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	eng := engine.NewEngine(
		engine.WithLogger(logger),
		engine.WithTimeout(cfg.Timeout()),
		engine.WithLevel(cfg.Tessellation.Level),
		engine.WithSceneOptions(
			scene.WithIntersectOptions(cfg.IntersectOptions()),
			scene.WithTextureSize(cfg.Intersection.TextureSize),
		),
	)
	return &App{
		engine:  eng,
		cfg:     cfg,
		palette: tessellate.Palette(colors),
		logger:  logger,
	}, nil
}

// hexColor formats c as #RRGGBB.
func hexColor(c kernel.Color) string {
	byteOf := func(f float32) uint8 { return uint8(min(max(f, 0), 1)*255 + 0.5) }
	return fmt.Sprintf("#%02X%02X%02X", byteOf(c.R), byteOf(c.G), byteOf(c.B))
}

// flattenLines turns polylines into segment endpoint pairs.
func flattenLines(lines []kernel.Line) []float32 {
	out := []float32{}
	for _, l := range lines {
		for i := 0; i+1 < len(l.Points); i++ {
			a, b := l.Points[i], l.Points[i+1]
			out = append(out,
				float32(a.X), float32(a.Y), float32(a.Z),
				float32(b.X), float32(b.Y), float32(b.Z))
		}
	}
	return out
}

// Evaluate takes script source and returns render data, errors and
// validation warnings.
func (a *App) Evaluate(source string) EvalResult {
	result := EvalResult{
		Models:   []scene.ModelRef{},
		Batches:  []BatchData{},
		Meshes:   []MeshData{},
		Errors:   []EvalErrorData{},
		Warnings: []EvalErrorData{},
	}

	// Step 1: Evaluate the source into a refreshed scene.
	s, evalErrs, err := a.engine.Evaluate(source)
	if err != nil {
		a.logger.Error("evaluate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: err.Error()})
		return result
	}
	if len(evalErrs) > 0 {
		for _, e := range evalErrs {
			result.Errors = append(result.Errors, EvalErrorData{
				Line:    e.Line,
				Col:     e.Col,
				Message: e.Message,
			})
		}
		return result
	}
	result.scene = s
	result.divisions = a.cfg.Tessellation.PreviewDivisions
	result.Models = append(result.Models, s.Refs()...)

	// Step 2: Validation findings. Errors stop the pipeline.
	findings := s.Validate()
	for _, f := range findings {
		d := EvalErrorData{Message: f.Error()}
		if f.Severity == scene.SeverityError {
			result.Errors = append(result.Errors, d)
		} else {
			result.Warnings = append(result.Warnings, d)
		}
	}
	if scene.HasErrors(findings) {
		return result
	}

	// Step 3: Render batches.
	batches, err := tessellate.Tessellate(s, a.palette)
	if err != nil {
		a.logger.Error("tessellate failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "tessellation failed: " + err.Error()})
		return result
	}
	for _, b := range batches {
		result.Batches = append(result.Batches, BatchData{
			Name:      b.Name,
			Kind:      b.Kind.String(),
			PatchSize: b.PatchSize,
			Level:     b.Level,
			Positions: b.Positions,
			Colors:    b.Colors,
			Indices:   b.Indices,
			Lines:     flattenLines(b.Lines),
		})
	}

	// Step 4: Trimmed CPU previews of the surfaces, in scene order.
	meshes, err := tessellate.Previews(s, a.cfg.Tessellation.PreviewDivisions)
	if err != nil {
		a.logger.Error("preview failed", "error", err)
		result.Errors = append(result.Errors, EvalErrorData{Message: "preview failed: " + err.Error()})
		return result
	}
	surfaces := lo.Filter(s.Models(), func(m *model.Model, _ int) bool { return m.Kind().IsSurface() })
	for i, m := range meshes {
		result.Meshes = append(result.Meshes, MeshData{
			Vertices: m.Vertices,
			Normals:  m.Normals,
			Indices:  m.Indices,
			PartName: m.PartName,
			Color:    hexColor(a.palette[surfaces[i].Kind()]),
		})
	}

	a.logger.Debug("evaluated",
		"models", len(result.Models),
		"batches", len(result.Batches),
		"meshes", len(result.Meshes),
		"warnings", len(result.Warnings))
	return result
}
