package optimization

import (
	"context"

	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// GDWAS is gradient descent with adaptive step, the default strategy.
// After every evaluation the step scale grows when the energy went down
// and shrinks when it went up; a move that raised the energy is undone and
// retried from the previous geometry with the smaller step. A per-atom
// displacement cap keeps a large net force from tearing the geometry apart
// early in the run.
type GDWAS struct {
	// TransStep and RotStep are the base step sizes multiplied by the
	// adaptive scale.
	TransStep float64
	RotStep   float64
	// Grow and Shrink are the scale factors applied after a good/bad step.
	Grow   float64
	Shrink float64
	// MaxAtomMove caps the largest single-atom displacement per step.
	MaxAtomMove float64
	// MinScale and MaxScale bound the adaptive scale.
	MinScale float64
	MaxScale float64
}

// NewGDWAS builds the adaptive strategy from settings (trans_step,
// rot_step, grow, shrink, max_atom_move, min_scale, max_scale).
func NewGDWAS(s registry.Settings) (*GDWAS, error) {
	g := &GDWAS{}
	var err error
	if g.TransStep, err = s.Float("trans_step", 0.01); err != nil {
		return nil, err
	}
	if g.RotStep, err = s.Float("rot_step", 0.01); err != nil {
		return nil, err
	}
	if g.Grow, err = s.Float("grow", 1.2); err != nil {
		return nil, err
	}
	if g.Shrink, err = s.Float("shrink", 0.2); err != nil {
		return nil, err
	}
	if g.MaxAtomMove, err = s.Float("max_atom_move", 0.1); err != nil {
		return nil, err
	}
	if g.MinScale, err = s.Float("min_scale", 1e-4); err != nil {
		return nil, err
	}
	if g.MaxScale, err = s.Float("max_scale", 100); err != nil {
		return nil, err
	}
	return g, nil
}

// Run executes the shared state machine with the adaptive policy. Each call
// starts from a fresh scale, so one GDWAS value can serve several runs.
func (g *GDWAS) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	p := &gdwasPolicy{cfg: g, scale: 1.0}
	return newEngine("gdwas", p).Run(ctx, cfg)
}

// gdwasPolicy carries the per-run adaptive state: the current scale and the
// energy of the geometry the last move started from.
type gdwasPolicy struct {
	cfg        *GDWAS
	scale      float64
	baseEnergy float64
}

func (p *gdwasPolicy) decide(h *History) (decision, error) {
	last := h.Last()
	if h.Len() == 1 {
		p.baseEnergy = last.Energy
		return p.decision(false), nil
	}

	if last.Energy < p.baseEnergy {
		// The move lowered the energy: accept it and speed up.
		p.baseEnergy = last.Energy
		p.scale *= p.cfg.Grow
		if p.scale > p.cfg.MaxScale {
			p.scale = p.cfg.MaxScale
		}
		return p.decision(false), nil
	}

	// The move did not lower the energy: undo it and retry smaller from
	// the previous geometry. Equality counts as a rejection; at large
	// scales the update can mirror the geometry through the minimum onto
	// an equal-energy point, and accepting that would oscillate forever.
	p.scale *= p.cfg.Shrink
	if p.scale < p.cfg.MinScale {
		p.scale = p.cfg.MinScale
	}
	return p.decision(true), nil
}

func (p *gdwasPolicy) decision(revert bool) decision {
	return decision{
		step: structure.MotionStep{
			Trans: p.cfg.TransStep * p.scale,
			Rot:   p.cfg.RotStep * p.scale,
		},
		revert:      revert,
		maxAtomMove: p.cfg.MaxAtomMove,
	}
}
