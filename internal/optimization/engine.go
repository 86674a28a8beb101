package optimization

import (
	"context"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/siegfriedkaidisch/ROMIS/internal/calculator"
	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/metrics"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// decision is a policy's choice for the next rigid motion update.
type decision struct {
	// step holds the translational and rotational step sizes.
	step structure.MotionStep
	// revert moves from the geometry before the last step instead of the
	// last one, undoing a move that raised the energy.
	revert bool
	// maxAtomMove caps the largest single-atom displacement of the update;
	// 0 disables the cap.
	maxAtomMove float64
}

// policy chooses the step sizes for each iteration from the history
// accumulated so far. The engine owns everything else: evaluation,
// aggregation, convergence, the history and the checkpoint callback.
type policy interface {
	decide(h *History) (decision, error)
}

// engine is the shared optimizer state machine. All three strategies run
// the same loop and differ only in the policy plugged into it.
type engine struct {
	name   string
	policy policy
	logger *zap.Logger
}

func newEngine(name string, p policy) *engine {
	// The numeric code logs through zap; the adapter routes it into the
	// same JSON stream as everything else.
	base := logging.New(logging.InfoLevel, os.Stderr)
	return &engine{
		name:   name,
		policy: p,
		logger: logging.NewZapLogger(base).Named("optimizer"),
	}
}

// Run drives the state machine to a terminal state. The returned result is
// non-nil whenever at least the run could start, so callers keep access to
// the partial history on failure.
func (e *engine) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	if cfg.Structure == nil {
		return nil, errors.Configuration("no structure configured")
	}
	if cfg.Calculator == nil {
		return nil, errors.Configuration("no calculator configured")
	}
	if cfg.Criterion == nil {
		return nil, errors.Configuration("no convergence criterion configured")
	}
	if cfg.MaxIterations <= 0 {
		cfg.MaxIterations = 1000
	}

	hist := NewHistory()
	result := &Result{History: hist, State: StateInit}
	// Completed iterations count on every exit path, failures included.
	defer func() {
		if n := hist.Len(); n > 0 {
			result.Iterations = n - 1
		}
	}()

	e.logger.Info("starting optimization",
		zap.String("strategy", e.name),
		zap.Int("atoms", cfg.Structure.Atoms().Len()),
		zap.Int("fragments", cfg.Structure.NumFragments()),
		zap.Int("max_iterations", cfg.MaxIterations),
	)

	// INIT -> ITERATING: evaluate the start geometry as step 0.
	cur := cfg.Structure
	// prev is the geometry the current one was moved from, paired with the
	// step evaluated there; a revert must reuse exactly those forces, no
	// matter how many rejected moves sit between them in the history.
	var prev *structure.Structure
	var prevStep *Step

	step, err := e.evaluate(ctx, cfg.Calculator, cur)
	if err != nil {
		result.State = StateFailed
		return result, err
	}
	hist.Append(step)
	result.State = StateIterating
	if err := e.checkpoint(cfg, hist); err != nil {
		result.State = StateFailed
		return result, err
	}

	for {
		if cfg.Criterion.Converged(hist) {
			result.State = StateConverged
			result.Converged = true
			break
		}
		if hist.Len() > cfg.MaxIterations {
			result.State = StateMaxIterations
			break
		}
		if err := ctx.Err(); err != nil {
			result.State = StateFailed
			return result, errors.Wrap(err, "run aborted").WithComponent("optimizer")
		}

		d, err := e.policy.decide(hist)
		if err != nil {
			result.State = StateFailed
			return result, err
		}

		// Move rigidly from the chosen base geometry using the force and
		// torque evaluated there.
		base, baseStep := cur, hist.Last()
		if d.revert && prev != nil {
			base, baseStep = prev, prevStep
			e.logger.Debug("reverting last move", zap.Int("step", hist.Len()-1))
		}
		moved, err := base.Move(baseStep.FragmentForces, d.step)
		if err != nil {
			result.State = StateFailed
			return result, errors.Wrap(err, "motion update failed").WithComponent("optimizer")
		}
		if d.maxAtomMove > 0 {
			disp, _, err := structure.MaxDisplacement(base.Atoms(), moved.Atoms())
			if err == nil && disp > d.maxAtomMove {
				scale := d.maxAtomMove / disp
				moved, err = base.Move(baseStep.FragmentForces, structure.MotionStep{
					Trans: d.step.Trans * scale,
					Rot:   d.step.Rot * scale,
				})
				if err != nil {
					result.State = StateFailed
					return result, errors.Wrap(err, "motion update failed").WithComponent("optimizer")
				}
			}
		}
		prev, prevStep, cur = base, baseStep, moved

		step, err := e.evaluate(ctx, cfg.Calculator, cur)
		if err != nil {
			// The run aborts; the history holds exactly the steps completed
			// before the failure.
			result.State = StateFailed
			return result, err
		}
		hist.Append(step)

		metrics.IterationsTotal.Inc()
		metrics.CurrentEnergy.Set(step.Energy)
		e.logger.Info("completed step",
			zap.Int("step", hist.Len()-1),
			zap.Float64("energy", step.Energy),
		)

		if err := e.checkpoint(cfg, hist); err != nil {
			result.State = StateFailed
			return result, err
		}
	}

	e.logger.Info("finished optimization",
		zap.String("state", string(result.State)),
		zap.Int("iterations", hist.Len()-1),
		zap.Float64("final_energy", hist.Last().Energy),
	)
	return result, nil
}

// evaluate calls the blocking oracle on the current geometry and aggregates
// the returned forces per fragment. Any evaluator error or malformed output
// is a fatal calculator failure; no partial step is ever produced.
func (e *engine) evaluate(ctx context.Context, calc calculator.Calculator, s *structure.Structure) (*Step, error) {
	start := time.Now()
	res, err := calc.Calculate(ctx, s.Atoms())
	metrics.CalculatorDuration.Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.CalculatorFailures.Inc()
		if errors.KindOf(err) == errors.KindUnknown && !errors.IsConfiguration(err) {
			err = calculator.Failure(err, "calculate")
		}
		return nil, err
	}
	if err := calculator.Validate(res, s.Atoms().Len()); err != nil {
		metrics.CalculatorFailures.Inc()
		return nil, err
	}
	ft, err := s.Aggregate(res.Forces)
	if err != nil {
		return nil, errors.Wrap(err, "force aggregation failed").WithComponent("optimizer")
	}
	return &Step{
		Energy:         res.Energy,
		ForcesOnAtoms:  res.Forces,
		FragmentForces: ft,
		Atoms:          s.Atoms(),
	}, nil
}

func (e *engine) checkpoint(cfg RunConfig, hist *History) error {
	if cfg.Callback == nil {
		return nil
	}
	if err := cfg.Callback(hist); err != nil {
		return errors.Wrap(err, "checkpoint failed").
			WithKind(errors.KindPersistence).
			WithComponent("optimizer")
	}
	return nil
}
