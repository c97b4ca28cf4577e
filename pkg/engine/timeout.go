package engine

import (
	"errors"
	"fmt"
	"time"
)

// DefaultTimeout bounds one evaluation when Engine.Timeout is zero.
const DefaultTimeout = 5 * time.Second

var (
	// ErrTimeout means the model did not finish within the engine timeout.
	ErrTimeout = errors.New("engine: evaluation timed out")
	// ErrSuperseded means a newer Evaluate call started before this one finished.
	ErrSuperseded = errors.New("engine: evaluation superseded by newer request")
	// ErrPanic wraps a panic raised while evaluating.
	ErrPanic = errors.New("engine: panic during evaluation")
)

type evalResult struct {
	model  *Model
	errors []EvalError
	err    error
}

// next starts a new generation and returns it.
func (e *Engine) next() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.generation++
	return e.generation
}

func (e *Engine) current() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.generation
}

func (e *Engine) timeout() time.Duration {
	if e.Timeout > 0 {
		return e.Timeout
	}
	return DefaultTimeout
}

// wait returns the result for generation gen. On timeout the evaluating
// goroutine keeps running; its buffered send lands in a channel nobody reads.
func (e *Engine) wait(ch <-chan evalResult, gen uint64) (*Model, []EvalError, error) {
	d := e.timeout()
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case res := <-ch:
		if gen != e.current() {
			return nil, nil, ErrSuperseded
		}
		return res.model, res.errors, res.err
	case <-timer.C:
		return nil, nil, fmt.Errorf("%w after %s", ErrTimeout, d)
	}
}
