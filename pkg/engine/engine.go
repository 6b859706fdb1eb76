// Package engine evaluates bicubic scene scripts. It wraps zygomys in a
// sandboxed environment with the modelling builtins installed and produces
// a refreshed scene.Scene from user source code.
package engine

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/bicubic/pkg/scene"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error or a failing builtin.
type EvalError struct {
	Line    int
	Col     int
	Message string
}

func (e EvalError) Error() string {
	if e.Line > 0 {
		return fmt.Sprintf("line %d: %s", e.Line, e.Message)
	}
	return e.Message
}

var (
	// ErrTimeout is returned when a script runs past the engine timeout.
	ErrTimeout = errors.New("evaluation timed out")
	// ErrSuperseded is returned when a newer evaluation started first.
	ErrSuperseded = errors.New("evaluation superseded by newer request")
)

// Engine evaluates scripts. Each call to Evaluate runs in a fresh sandbox
// and only the newest call's result is delivered.
type Engine struct {
	mu         sync.Mutex
	generation uint64

	timeout   time.Duration
	level     int
	logger    *slog.Logger
	sceneOpts []scene.Option
}

// Option configures an Engine.
type Option func(*Engine)

// WithLogger sets the engine logger. Scenes inherit it unless
// WithSceneOptions overrides it.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithTimeout sets the evaluation limit.
func WithTimeout(d time.Duration) Option {
	return func(e *Engine) { e.timeout = d }
}

// WithLevel sets the tessellation level of surfaces that do not give one.
func WithLevel(level int) Option {
	return func(e *Engine) { e.level = level }
}

// WithSceneOptions passes options to every scene the engine creates.
func WithSceneOptions(opts ...scene.Option) Option {
	return func(e *Engine) { e.sceneOpts = append(e.sceneOpts, opts...) }
}

// NewEngine creates a new Engine.
func NewEngine(opts ...Option) *Engine {
	e := &Engine{timeout: EvalTimeout, logger: slog.Default()}
	for _, o := range opts {
		o(e)
	}
	return e
}

func (e *Engine) newScene() *scene.Scene {
	opts := append([]scene.Option{scene.WithLogger(e.logger)}, e.sceneOpts...)
	return scene.New(opts...)
}

// Evaluate runs source and returns the resulting scene, refreshed.
//
// Return semantics:
//   - On success: scene + nil errors + nil error
//   - On parse/eval failure: nil scene + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): nil + nil + error
func (e *Engine) Evaluate(source string) (*scene.Scene, []EvalError, error) {
	e.mu.Lock()
	e.generation++
	gen := e.generation
	e.mu.Unlock()

	ch := make(chan evalResult, 1)

	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("panic during evaluation: %v", r)}
			}
		}()

		s, evalErrs, err := e.evaluate(source)
		ch <- evalResult{scene: s, errors: evalErrs, err: err}
	}()

	s, evalErrs, err := waitWithTimeout(ch, gen, e.timeout, &e.mu, &e.generation)
	switch {
	case err != nil:
		e.logger.Error("evaluation failed", "generation", gen, "err", err)
	case len(evalErrs) > 0:
		e.logger.Debug("evaluation errors", "generation", gen, "count", len(evalErrs))
	default:
		e.logger.Debug("evaluated", "generation", gen, "models", s.ModelCount())
	}
	return s, evalErrs, err
}

// sandboxMu serializes sandbox creation; zygomys shares global state
// while setting up an environment.
var sandboxMu sync.Mutex

// evaluate performs the zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*scene.Scene, []EvalError, error) {
	s := e.newScene()
	// Empty source is a valid program that produces an empty scene.
	if strings.TrimSpace(source) == "" {
		return s, nil, nil
	}

	// Sandbox mode keeps user code away from the filesystem and syscalls.
	sandboxMu.Lock()
	env := zygo.NewZlispSandbox()
	registerBuiltins(env, s, e.level)
	sandboxMu.Unlock()
	defer env.Stop()

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	s.Refresh()
	return s, nil, nil
}

// linePattern matches zygomys error messages that include "Error on line N: ..."
var linePattern = regexp.MustCompile(`(?i)(?:error )?on line (\d+):\s*(.*)`)

// linePatternShort matches simpler "line N: ..." patterns.
var linePatternShort = regexp.MustCompile(`(?i)^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalError values,
// extracting the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	for _, re := range []*regexp.Regexp{linePattern, linePatternShort} {
		if m := re.FindStringSubmatch(msg); m != nil {
			line, _ := strconv.Atoi(m[1])
			return []EvalError{{Line: line, Message: strings.TrimSpace(m[2])}}
		}
	}
	return []EvalError{{Message: strings.TrimSpace(msg)}}
}
