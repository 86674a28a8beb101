package calculator

import (
	"context"

	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// LennardJones is a simple 12-6 pair potential over all atom pairs, with a
// single epsilon/sigma for every species. It exists so optimizations can be
// exercised end to end without an external DFT code; it ignores the
// periodic cell.
type LennardJones struct {
	// Epsilon is the well depth (eV).
	Epsilon float64
	// Sigma is the zero-crossing distance (Angstrom).
	Sigma float64
	// Cutoff truncates the interaction beyond this distance; 0 disables.
	Cutoff float64
}

// NewLennardJones builds the pair potential from settings
// (epsilon, sigma, cutoff).
func NewLennardJones(s registry.Settings) (*LennardJones, error) {
	eps, err := s.Float("epsilon", 1.0)
	if err != nil {
		return nil, err
	}
	sigma, err := s.Float("sigma", 1.0)
	if err != nil {
		return nil, err
	}
	cutoff, err := s.Float("cutoff", 0)
	if err != nil {
		return nil, err
	}
	return &LennardJones{Epsilon: eps, Sigma: sigma, Cutoff: cutoff}, nil
}

// Calculate evaluates the pair potential. It never fails on valid input and
// ignores ctx: the evaluation is cheap and not interruptible.
func (lj *LennardJones) Calculate(_ context.Context, atoms *structure.Atoms) (Result, error) {
	n := atoms.Len()
	res := Result{Forces: make([]structure.Vec, n)}
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			rij := atoms.Position(i).Sub(atoms.Position(j))
			r := rij.Norm()
			if r == 0 || (lj.Cutoff > 0 && r > lj.Cutoff) {
				continue
			}
			sr6 := pow6(lj.Sigma / r)
			sr12 := sr6 * sr6
			res.Energy += 4 * lj.Epsilon * (sr12 - sr6)
			// dE/dr = 4*eps*(-12 sr12 + 6 sr6)/r; force on i is -dE/dr * r_ij/r.
			fmag := 4 * lj.Epsilon * (12*sr12 - 6*sr6) / (r * r)
			f := rij.Scale(fmag)
			res.Forces[i] = res.Forces[i].Add(f)
			res.Forces[j] = res.Forces[j].Sub(f)
		}
	}
	return res, nil
}

func pow6(x float64) float64 {
	x3 := x * x * x
	return x3 * x3
}
