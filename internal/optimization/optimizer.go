// Package optimization implements the rigid-fragment optimization engine:
// the iterate-evaluate-aggregate-move-check state machine, the append-only
// optimization history, and the step-size strategies driving the rigid
// motion update.
package optimization

import (
	"context"

	"github.com/siegfriedkaidisch/ROMIS/internal/calculator"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// RunState is the state of the optimizer state machine.
type RunState string

const (
	// StateInit is the state before the initial evaluation.
	StateInit RunState = "init"
	// StateIterating is the running state.
	StateIterating RunState = "iterating"
	// StateConverged means the convergence criterion was satisfied.
	StateConverged RunState = "converged"
	// StateMaxIterations means the iteration cap was reached without
	// convergence.
	StateMaxIterations RunState = "max_iterations"
	// StateFailed means the external evaluator failed; the history keeps
	// every step completed before the failure.
	StateFailed RunState = "failed"
)

// Terminal reports whether the state ends the run.
func (s RunState) Terminal() bool {
	switch s {
	case StateConverged, StateMaxIterations, StateFailed:
		return true
	}
	return false
}

// Criterion is a pure, deterministic predicate over the optimization
// history deciding whether to terminate. Implementations live in the
// convergence subpackage and must not mutate the history.
type Criterion interface {
	Converged(h *History) bool
}

// CheckpointFunc is invoked after each completed step with the history so
// far, so the caller can persist progress incrementally. A checkpoint error
// aborts the run and is surfaced to the caller; completed steps stay in the
// history.
type CheckpointFunc func(h *History) error

// RunConfig configures one optimization run.
type RunConfig struct {
	// Structure is the start geometry with its fragment partition.
	Structure *structure.Structure
	// Calculator is the external force/energy oracle.
	Calculator calculator.Calculator
	// Criterion decides termination. Required.
	Criterion Criterion
	// Callback persists progress after each step. May be nil.
	Callback CheckpointFunc
	// MaxIterations caps the number of moves before giving up.
	MaxIterations int
}

// Result is the outcome of a run. The history is shared with the engine
// but append-only, so callers may keep reading it after the run ends.
type Result struct {
	History    *History
	State      RunState
	Iterations int
	Converged  bool
}

// Optimizer drives an optimization run to a terminal state. The three
// strategies differ only in how they choose step sizes per iteration; the
// state machine is shared.
type Optimizer interface {
	Run(ctx context.Context, cfg RunConfig) (*Result, error)
}

// optimizers holds the recognized strategy names.
var optimizers = registry.New[Optimizer]("optimizer")

func init() {
	optimizers.Register("gd", func(s registry.Settings) (Optimizer, error) {
		return NewGD(s)
	})
	optimizers.Register("gdwas", func(s registry.Settings) (Optimizer, error) {
		return NewGDWAS(s)
	})
	optimizers.Register("gpr", func(s registry.Settings) (Optimizer, error) {
		return NewGPR(s)
	})
}

// New constructs an optimizer from a recognized name ("gd" plain gradient
// descent, "gdwas" gradient descent with adaptive step, "gpr"
// surrogate-guided) and a settings mapping. An unrecognized name is a
// configuration error.
func New(name string, settings registry.Settings) (Optimizer, error) {
	return optimizers.Resolve(name, settings)
}

// Names returns the recognized optimizer names.
func Names() []string { return optimizers.Names() }
