package optimization

import (
	"context"

	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// GD is plain gradient descent on rigid bodies: every iteration translates
// each fragment by TransStep times its allowed net force and rotates it by
// RotStep times its allowed net torque, with fixed step sizes.
type GD struct {
	// TransStep scales the translation (Angstrom per eV/Angstrom).
	TransStep float64
	// RotStep scales the rotation angle (radians per eV).
	RotStep float64
	// MaxAtomMove caps the largest single-atom displacement per step;
	// 0 disables the cap.
	MaxAtomMove float64
}

// NewGD builds plain gradient descent from settings
// (trans_step, rot_step, max_atom_move).
func NewGD(s registry.Settings) (*GD, error) {
	transStep, err := s.Float("trans_step", 0.01)
	if err != nil {
		return nil, err
	}
	rotStep, err := s.Float("rot_step", 0.01)
	if err != nil {
		return nil, err
	}
	maxMove, err := s.Float("max_atom_move", 0)
	if err != nil {
		return nil, err
	}
	return &GD{TransStep: transStep, RotStep: rotStep, MaxAtomMove: maxMove}, nil
}

// Run executes the shared state machine with fixed step sizes.
func (gd *GD) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	return newEngine("gd", gdPolicy{gd: gd}).Run(ctx, cfg)
}

type gdPolicy struct {
	gd *GD
}

func (p gdPolicy) decide(*History) (decision, error) {
	return decision{
		step:        structure.MotionStep{Trans: p.gd.TransStep, Rot: p.gd.RotStep},
		maxAtomMove: p.gd.MaxAtomMove,
	}, nil
}
