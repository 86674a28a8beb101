// Package calculator adapts external force/energy evaluators to the
// optimization engine. A calculator is an opaque, blocking, non-retryable
// oracle: atom positions in, (energy, per-atom forces) out. Any failure,
// including malformed output, is fatal to the run.
package calculator

import (
	"context"
	"math"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// Result is one evaluation of the oracle: the total energy (eV) and one
// force vector (eV/Angstrom) per atom, in atom order.
type Result struct {
	Energy float64
	Forces []structure.Vec
}

// Calculator evaluates energy and forces for an atom set. Calculate blocks
// until the evaluation finishes or ctx is done. Implementations must not
// retry internally; errors surface immediately and end the run.
type Calculator interface {
	Calculate(ctx context.Context, atoms *structure.Atoms) (Result, error)
}

// Validate checks a calculator result against the evaluated atom set.
// A wrong force count or a non-finite value means the evaluator produced
// malformed output, which is a calculator failure like any other.
func Validate(res Result, natoms int) error {
	if len(res.Forces) != natoms {
		return errors.Newf("evaluator returned %d forces for %d atoms", len(res.Forces), natoms).
			WithKind(errors.KindCalculator).WithComponent("calculator")
	}
	if math.IsNaN(res.Energy) || math.IsInf(res.Energy, 0) {
		return errors.Newf("evaluator returned non-finite energy %v", res.Energy).
			WithKind(errors.KindCalculator).WithComponent("calculator")
	}
	for i, f := range res.Forces {
		for axis := 0; axis < 3; axis++ {
			if math.IsNaN(f[axis]) || math.IsInf(f[axis], 0) {
				return errors.Newf("evaluator returned non-finite force on atom %d", i).
					WithKind(errors.KindCalculator).WithComponent("calculator")
			}
		}
	}
	return nil
}

// Failure wraps err as a fatal calculator failure.
func Failure(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, "evaluator failed").
		WithKind(errors.KindCalculator).
		WithComponent("calculator").
		WithOperation(op)
}
