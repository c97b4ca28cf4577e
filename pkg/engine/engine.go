// Package engine evaluates weldscan model files. A model is a small Lisp
// program (zygomys, sandboxed) that builds a B-Rep shape from plates,
// boxes, prisms and cylinders and may override weld parameters.
package engine

import (
	"fmt"
	"log/slog"
	"regexp"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/chazu/weldscan/pkg/kernel/brep"
	"github.com/chazu/weldscan/pkg/weld"
	zygo "github.com/glycerine/zygomys/zygo"
)

// EvalError represents a non-fatal error encountered during evaluation,
// such as a parse error, a runtime error in user code or a shape that
// fails topology checks.
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

// Model is the output of a successful evaluation.
type Model struct {
	// Name is set by (shape "name"); empty otherwise.
	Name  string
	Shape *brep.Shape
	// Patch holds parameter overrides from (fillet ...), (noise-floor ...)
	// and friends. Apply it to the session parameters before analysis.
	Patch weld.ParameterPatch
}

// Engine evaluates model source in a fresh sandbox per call, so it is
// safe for concurrent use. Only the newest call's result is kept; an older
// call still running when a newer one finishes reports ErrSuperseded.
type Engine struct {
	// Timeout bounds one evaluation. Zero means DefaultTimeout.
	Timeout time.Duration

	mu         sync.Mutex
	generation uint64
}

// NewEngine creates an Engine with the default timeout.
func NewEngine() *Engine {
	return &Engine{}
}

// Evaluate runs model source and returns the model it builds.
//
// Return semantics:
//   - On success: returns model + nil errors + nil error
//   - On parse/eval/shape failure: returns nil model + eval errors + nil error
//   - On fatal failure (timeout, panic, superseded): returns nil + nil + error
func (e *Engine) Evaluate(source string) (*Model, []EvalError, error) {
	gen := e.next()
	start := time.Now()

	ch := make(chan evalResult, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				ch <- evalResult{err: fmt.Errorf("%w: %v", ErrPanic, r)}
			}
		}()
		m, evalErrs, err := e.evaluate(source)
		ch <- evalResult{model: m, errors: evalErrs, err: err}
	}()

	m, evalErrs, err := e.wait(ch, gen)
	attrs := []any{
		slog.Uint64("generation", gen),
		slog.Duration("elapsed", time.Since(start)),
		slog.Int("eval_errors", len(evalErrs)),
	}
	if m != nil {
		attrs = append(attrs, slog.Int("faces", len(m.Shape.Faces())), slog.String("name", m.Name))
	}
	if err != nil {
		attrs = append(attrs, slog.Any("error", err))
	}
	slog.Debug("model evaluated", attrs...)
	return m, evalErrs, err
}

// evaluate performs the actual zygomys evaluation in a fresh sandbox.
func (e *Engine) evaluate(source string) (*Model, []EvalError, error) {
	// Empty source is a valid program that produces an empty shape.
	if strings.TrimSpace(source) == "" {
		return &Model{Shape: brep.Empty()}, nil, nil
	}

	// Sandbox mode prevents user code from accessing the filesystem or syscalls.
	env := zygo.NewZlispSandbox()
	defer env.Stop()

	st := newModelState()
	registerBuiltins(env, st)

	if err := env.LoadString(preprocessSource(source)); err != nil {
		return nil, parseZygomysError(err), nil
	}
	if _, err := env.Run(); err != nil {
		return nil, parseZygomysError(err), nil
	}

	shape, err := st.builder.Build()
	if err != nil {
		return nil, []EvalError{{Message: "invalid shape: " + err.Error()}}, nil
	}
	return &Model{Name: st.name, Shape: shape, Patch: st.patch}, nil, nil
}

// lineRE matches "Error on line N: ..." and the shorter "line N: ...".
var lineRE = regexp.MustCompile(`(?i)(?:^|error )on line (\d+):\s*(.*)|^line (\d+):\s*(.*)`)

// parseZygomysError converts a zygomys error into EvalErrors, pulling out
// the line number when the message carries one.
func parseZygomysError(err error) []EvalError {
	msg := err.Error()
	m := lineRE.FindStringSubmatch(msg)
	if m == nil {
		return []EvalError{{Message: strings.TrimSpace(msg)}}
	}
	num, text := m[1], m[2]
	if num == "" {
		num, text = m[3], m[4]
	}
	line, _ := strconv.Atoi(num)
	return []EvalError{{Line: line, Message: strings.TrimSpace(text)}}
}
