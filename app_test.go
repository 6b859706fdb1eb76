package main

import (
	"io"
	"log/slog"
	"os"
	"strings"
	"testing"

	"github.com/chazu/bicubic/pkg/config"
)

func newTestApp(t *testing.T) *App {
	t.Helper()
	app, err := NewApp(config.Default(), slog.New(slog.NewTextHandler(io.Discard, nil)))
	if err != nil {
		t.Fatalf("NewApp: %v", err)
	}
	return app
}

func evaluateFile(t *testing.T, app *App, path string) EvalResult {
	t.Helper()
	source, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("failed to read %s: %v", path, err)
	}
	result := app.Evaluate(string(source))
	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error (line %d): %s", e.Line, e.Message)
		}
		t.FailNow()
	}
	return result
}

// TestE2ECubeFill exercises the full pipeline: script -> engine -> scene ->
// fill -> batches and previews.
func TestE2ECubeFill(t *testing.T) {
	app := newTestApp(t)
	result := evaluateFile(t, app, "examples/cube_fill.bicubic")

	if len(result.Warnings) != 0 {
		t.Errorf("unexpected warnings: %v", result.Warnings)
	}
	if len(result.Models) != 4 {
		t.Fatalf("expected 3 faces and 1 fill, got %d models", len(result.Models))
	}

	expected := map[string]string{
		"xy":        "surface-c0",
		"yz":        "surface-c0",
		"zx":        "surface-c0",
		"gregory-1": "gregory",
	}
	if len(result.Batches) != len(expected) {
		t.Fatalf("expected %d batches, got %d", len(expected), len(result.Batches))
	}
	for _, b := range result.Batches {
		kind, ok := expected[b.Name]
		if !ok {
			t.Errorf("unexpected batch %q", b.Name)
			continue
		}
		if b.Kind != kind {
			t.Errorf("batch %q: kind %q, want %q", b.Name, b.Kind, kind)
		}
		if len(b.Positions) == 0 || len(b.Indices) == 0 {
			t.Errorf("batch %q: empty buffers", b.Name)
		}
		if len(b.Colors)/4 != len(b.Positions)/3 {
			t.Errorf("batch %q: %d colours for %d vertices", b.Name, len(b.Colors)/4, len(b.Positions)/3)
		}
	}
	if g := result.Batches[3]; len(g.Positions)/3 != 60 {
		t.Errorf("fill has %d vertices, want 60", len(g.Positions)/3)
	}
	if len(result.Models[3].Donors) != 3 {
		t.Errorf("fill ref should name 3 donors, got %v", result.Models[3].Donors)
	}

	// Previews cover the three faces; the fill is not a sampled surface.
	if len(result.Meshes) != 3 {
		t.Fatalf("expected 3 preview meshes, got %d", len(result.Meshes))
	}
	for _, m := range result.Meshes {
		if len(m.Vertices) == 0 || len(m.Normals) != len(m.Vertices) || len(m.Indices) == 0 {
			t.Errorf("mesh %q: malformed buffers", m.PartName)
		}
		if m.Color != "#D9D9D9" {
			t.Errorf("mesh %q: colour %s, want #D9D9D9", m.PartName, m.Color)
		}
	}
}

func TestE2ECylinderCut(t *testing.T) {
	app := newTestApp(t)
	result := evaluateFile(t, app, "examples/cylinder_cut.bicubic")

	names := make([]string, len(result.Batches))
	for i, b := range result.Batches {
		names[i] = b.Name
	}
	if got := strings.Join(names, ","); got != "tube,ground,cut,arch" {
		t.Fatalf("batches = %s", got)
	}
	if result.Batches[2].Kind != "interp-c2" {
		t.Errorf("cut kind = %s, want interp-c2", result.Batches[2].Kind)
	}
	if !result.Scene().Intersections()[0].Curve.Closed {
		t.Error("the cut of a cylinder by a plane should be closed")
	}

	if len(result.Meshes) != 2 {
		t.Fatalf("expected 2 preview meshes, got %d", len(result.Meshes))
	}
	full := 2 * config.Default().Tessellation.PreviewDivisions * config.Default().Tessellation.PreviewDivisions
	for _, m := range result.Meshes {
		n := len(m.Indices) / 3
		if n == 0 || n >= full {
			t.Errorf("mesh %q: %d triangles, want a trimmed count below %d", m.PartName, n, full)
		}
	}
}

// TestE2EEmptySource ensures the pipeline handles empty input gracefully.
func TestE2EEmptySource(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate("")

	if len(result.Errors) > 0 {
		t.Errorf("unexpected errors for empty source: %v", result.Errors)
	}
	if len(result.Batches) != 0 || len(result.Meshes) != 0 {
		t.Errorf("expected no output for empty source, got %d batches %d meshes", len(result.Batches), len(result.Meshes))
	}
}

// TestE2ESyntaxError ensures eval errors are reported, not fatal errors.
func TestE2ESyntaxError(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(`(bezier-c0 "arc"`)

	if len(result.Errors) == 0 {
		t.Fatal("expected eval errors for syntax error")
	}
	if len(result.Batches) != 0 {
		t.Errorf("expected 0 batches on error, got %d", len(result.Batches))
	}
	if result.Scene() != nil {
		t.Error("no scene should be kept on error")
	}
}

// TestE2ESingleCurve ensures a minimal curve renders one batch.
func TestE2ESingleCurve(t *testing.T) {
	app := newTestApp(t)
	result := app.Evaluate(`(bezier-c0 "arc" (point 0 0 0) (point 1 1 0) (point 2 1 0) (point 3 0 0))`)

	if len(result.Errors) > 0 {
		for _, e := range result.Errors {
			t.Errorf("eval error: %s", e.Message)
		}
		t.FailNow()
	}
	if len(result.Batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(result.Batches))
	}
	b := result.Batches[0]
	if b.Name != "arc" || b.PatchSize != 4 {
		t.Errorf("batch = %q patch size %d, want arc with 4", b.Name, b.PatchSize)
	}
	if len(result.Meshes) != 0 {
		t.Errorf("curves have no preview, got %d meshes", len(result.Meshes))
	}
}
