package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/chazu/bicubic/pkg/config"
	"github.com/chazu/bicubic/pkg/scene"
	"github.com/chazu/bicubic/pkg/tessellate"
	"github.com/tdewolff/argp"
)

// Main is the root command; it only prints usage.
type Main struct{}

type Eval struct {
	Config  string `short:"c" desc:"TOML configuration file"`
	JSON    bool   `desc:"Print the result as JSON"`
	Verbose bool   `short:"v" desc:"Debug logging"`
	Input   string `index:"0" desc:"Scene script"`
}

type Masks struct {
	Config  string `short:"c" desc:"TOML configuration file"`
	Output  string `short:"o" default:"." desc:"Output directory"`
	Verbose bool   `short:"v" desc:"Debug logging"`
	Input   string `index:"0" desc:"Scene script"`
}

type STL struct {
	Config    string `short:"c" desc:"TOML configuration file"`
	Output    string `short:"o" default:"scene.stl" desc:"Output file"`
	Divisions int    `short:"d" desc:"Grid divisions per surface direction, 0 for the configured value"`
	Verbose   bool   `short:"v" desc:"Debug logging"`
	Input     string `index:"0" desc:"Scene script"`
}

func main() {
	root := argp.NewCmd(&Main{}, "Bicubic curve and surface modelling")
	root.AddCmd(&Eval{}, "eval", "Evaluate a scene script and print a summary")
	root.AddCmd(&Masks{}, "masks", "Write the trim masks of every intersection as PNG")
	root.AddCmd(&STL{}, "stl", "Export the trimmed surfaces as a binary STL mesh")
	root.Parse()
	root.PrintHelp()
}

func (cmd *Main) Run() error {
	return argp.ShowUsage
}

// errEvaluation is returned when a script produced errors; they have
// already been printed.
var errEvaluation = errors.New("evaluation failed")

// run loads the configuration and evaluates the script at input.
func run(input, configPath string, verbose bool) (EvalResult, error) {
	if input == "" {
		return EvalResult{}, argp.ShowUsage
	}
	cfg := config.Default()
	if configPath != "" {
		var err error
		if cfg, err = config.Load(configPath); err != nil {
			return EvalResult{}, err
		}
	}
	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	app, err := NewApp(cfg, logger)
	if err != nil {
		return EvalResult{}, err
	}
	source, err := os.ReadFile(input)
	if err != nil {
		return EvalResult{}, err
	}
	return app.Evaluate(string(source)), nil
}

func printDiagnostics(result EvalResult) {
	for _, w := range result.Warnings {
		fmt.Fprintf(os.Stderr, "warning: %s\n", w.Message)
	}
	for _, e := range result.Errors {
		if e.Line > 0 {
			fmt.Fprintf(os.Stderr, "error: line %d: %s\n", e.Line, e.Message)
		} else {
			fmt.Fprintf(os.Stderr, "error: %s\n", e.Message)
		}
	}
}

func (cmd *Eval) Run() error {
	result, err := run(cmd.Input, cmd.Config, cmd.Verbose)
	if err != nil {
		return err
	}
	printDiagnostics(result)
	if cmd.JSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		if err := enc.Encode(result); err != nil {
			return err
		}
	} else {
		for _, b := range result.Batches {
			fmt.Printf("%-16s %-10s %6d vertices %5d patches\n", b.Name, b.Kind, len(b.Positions)/3, len(b.Indices)/max(b.PatchSize, 1))
		}
		for _, m := range result.Meshes {
			fmt.Printf("%-16s preview    %6d triangles\n", m.PartName, len(m.Indices)/3)
		}
	}
	if len(result.Errors) > 0 {
		return errEvaluation
	}
	return nil
}

func (cmd *Masks) Run() error {
	result, err := run(cmd.Input, cmd.Config, cmd.Verbose)
	if err != nil {
		return err
	}
	printDiagnostics(result)
	if len(result.Errors) > 0 {
		return errEvaluation
	}
	if err := os.MkdirAll(cmd.Output, 0o755); err != nil {
		return err
	}
	for _, x := range result.scene.Intersections() {
		for i, m := range [2]string{x.A.Label(), x.B.Label()} {
			name := filepath.Join(cmd.Output, fmt.Sprintf("%s-%s.png", x.Model.Label(), m))
			if err := writeMask(name, x, i); err != nil {
				return err
			}
			fmt.Println(name)
		}
	}
	return nil
}

func (cmd *STL) Run() error {
	result, err := run(cmd.Input, cmd.Config, cmd.Verbose)
	if err != nil {
		return err
	}
	printDiagnostics(result)
	if len(result.Errors) > 0 {
		return errEvaluation
	}
	divisions := cmd.Divisions
	if divisions == 0 {
		divisions = result.divisions
	}
	n, err := tessellate.SaveSTL(cmd.Output, result.scene, divisions)
	if err != nil {
		return err
	}
	fmt.Printf("%s: %d triangles\n", cmd.Output, n)
	return nil
}

// writeMask encodes the trim mask of surface i of x to a PNG file.
func writeMask(name string, x *scene.Intersection, i int) error {
	f, err := os.Create(name)
	if err != nil {
		return err
	}
	if err := png.Encode(f, x.Masks[i].Image()); err != nil {
		f.Close()
		return fmt.Errorf("%s: %w", name, err)
	}
	return f.Close()
}
