package convergence

import (
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
)

// ForceTorque converges when, for the most recent step, every fragment's
// allowed net force magnitude is below MaxForce and every fragment's
// allowed net torque magnitude is below MaxTorque. This is the default
// criterion: it looks at what can still move, not at what did move.
type ForceTorque struct {
	// MaxForce is the force bound (eV/Angstrom).
	MaxForce float64
	// MaxTorque is the torque bound (eV).
	MaxTorque float64
}

// NewForceTorque builds the criterion from settings (max_force, max_torque).
func NewForceTorque(s registry.Settings) (*ForceTorque, error) {
	maxForce, err := s.Float("max_force", 0.01)
	if err != nil {
		return nil, err
	}
	maxTorque, err := s.Float("max_torque", 0.01)
	if err != nil {
		return nil, err
	}
	return &ForceTorque{MaxForce: maxForce, MaxTorque: maxTorque}, nil
}

// Converged implements optimization.Criterion.
func (c *ForceTorque) Converged(h *optimization.History) bool {
	last := h.Last()
	if last == nil || last.FragmentForces == nil {
		return false
	}
	for _, f := range last.FragmentForces.ForcesAllowed {
		if f.Norm() >= c.MaxForce {
			return false
		}
	}
	for _, t := range last.FragmentForces.TorquesAllowed {
		if t.Norm() >= c.MaxTorque {
			return false
		}
	}
	return true
}
