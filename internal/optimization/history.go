package optimization

import (
	"sync"

	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// Step is one completed iteration of the run: the geometry that was
// evaluated, the energy and per-atom forces the evaluator returned for it,
// and the per-fragment aggregation. Steps are immutable once appended.
type Step struct {
	// Energy is the total energy (eV) at Atoms.
	Energy float64
	// ForcesOnAtoms holds one force vector per atom (eV/Angstrom).
	ForcesOnAtoms []structure.Vec
	// FragmentForces is the per-fragment raw/allowed force and torque
	// aggregation of ForcesOnAtoms.
	FragmentForces *structure.ForceTorque
	// Atoms is the geometry the evaluator was called on.
	Atoms *structure.Atoms
}

// History is the append-only ordered log of completed steps. Step 0 is the
// initial evaluation. There is exactly one writer (the running engine);
// readers only ever observe a fully constructed prefix, so the monitor
// server may read while the engine appends.
type History struct {
	mu    sync.RWMutex
	steps []*Step
}

// NewHistory returns an empty history.
func NewHistory() *History {
	return &History{}
}

// Append adds a fully constructed step. During a run the engine is the
// only writer; the history is never reordered or truncated.
func (h *History) Append(s *Step) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.steps = append(h.steps, s)
}

// Len returns the number of completed steps.
func (h *History) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.steps)
}

// At returns step i. Steps are immutable, so the returned pointer is safe
// to read concurrently with further appends.
func (h *History) At(i int) *Step {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.steps[i]
}

// Last returns the most recent step, or nil for an empty history.
func (h *History) Last() *Step {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if len(h.steps) == 0 {
		return nil
	}
	return h.steps[len(h.steps)-1]
}

// Steps returns a snapshot slice of all steps so far.
func (h *History) Steps() []*Step {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return append([]*Step(nil), h.steps...)
}

// Energies returns the energy of every step in order.
func (h *History) Energies() []float64 {
	h.mu.RLock()
	defer h.mu.RUnlock()
	energies := make([]float64, len(h.steps))
	for i, s := range h.steps {
		energies[i] = s.Energy
	}
	return energies
}

// FinalAtoms returns the geometry of the last step, or nil for an empty
// history.
func (h *History) FinalAtoms() *structure.Atoms {
	if s := h.Last(); s != nil {
		return s.Atoms
	}
	return nil
}
