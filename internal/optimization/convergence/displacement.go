package convergence

import (
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// Displacement converges when the maximum per-atom displacement between the
// two most recent steps drops below Threshold. It needs at least two steps;
// a shorter history never converges.
type Displacement struct {
	// Threshold is the displacement bound (Angstrom).
	Threshold float64
}

// NewDisplacement builds the criterion from settings (threshold).
func NewDisplacement(s registry.Settings) (*Displacement, error) {
	threshold, err := s.Float("threshold", 0.001)
	if err != nil {
		return nil, err
	}
	return &Displacement{Threshold: threshold}, nil
}

// Converged implements optimization.Criterion.
func (c *Displacement) Converged(h *optimization.History) bool {
	n := h.Len()
	if n < 2 {
		return false
	}
	maxDisp, _, err := structure.MaxDisplacement(h.At(n-2).Atoms, h.At(n-1).Atoms)
	if err != nil {
		return false
	}
	return maxDisp < c.Threshold
}
