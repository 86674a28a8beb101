// Package structure models an atomic structure partitioned into rigid
// fragments: atom positions, fragment membership, force/torque aggregation
// and the rigid-body motion update.
package structure

import (
	"fmt"
)

// atomicMasses maps chemical symbols to standard atomic weights (u).
// Symbols not listed fall back to 1.0, which only affects where the
// center of mass of a fragment sits, never the rigidity of its motion.
var atomicMasses = map[string]float64{
	"H": 1.008, "He": 4.0026,
	"Li": 6.94, "Be": 9.0122, "B": 10.81, "C": 12.011, "N": 14.007,
	"O": 15.999, "F": 18.998, "Ne": 20.180,
	"Na": 22.990, "Mg": 24.305, "Al": 26.982, "Si": 28.085, "P": 30.974,
	"S": 32.06, "Cl": 35.45, "Ar": 39.948,
	"K": 39.098, "Ca": 40.078, "Ti": 47.867, "Cr": 51.996, "Mn": 54.938,
	"Fe": 55.845, "Ni": 58.693, "Cu": 63.546, "Zn": 65.38,
	"Ag": 107.87, "Au": 196.97, "Pt": 195.08, "Pd": 106.42,
}

// MassOf returns the atomic mass for a chemical symbol, or 1.0 if unknown.
func MassOf(symbol string) float64 {
	if m, ok := atomicMasses[symbol]; ok {
		return m
	}
	return 1.0
}

// Atoms is an ordered set of (symbol, position) pairs with an optional
// periodic cell. An Atoms value is immutable once built: every motion
// update produces a new Atoms, the old one stays valid as a history record.
type Atoms struct {
	symbols   []string
	positions []Vec
	cell      *[3]Vec // row vectors of the periodic cell, nil for molecules
}

// NewAtoms builds an immutable atom set. symbols and positions must have
// equal length; both slices are copied.
func NewAtoms(symbols []string, positions []Vec) (*Atoms, error) {
	if len(symbols) != len(positions) {
		return nil, fmt.Errorf("structure: %d symbols but %d positions", len(symbols), len(positions))
	}
	a := &Atoms{
		symbols:   append([]string(nil), symbols...),
		positions: append([]Vec(nil), positions...),
	}
	return a, nil
}

// WithCell returns a copy of a with the given periodic cell (row vectors).
func (a *Atoms) WithCell(cell [3]Vec) *Atoms {
	b := a.withPositions(a.positions)
	c := cell
	b.cell = &c
	return b
}

// withPositions returns a new Atoms sharing symbols and cell with a but
// holding its own copy of positions.
func (a *Atoms) withPositions(positions []Vec) *Atoms {
	return &Atoms{
		symbols:   a.symbols,
		positions: append([]Vec(nil), positions...),
		cell:      a.cell,
	}
}

// Len returns the number of atoms.
func (a *Atoms) Len() int { return len(a.positions) }

// Symbol returns the chemical symbol of atom i.
func (a *Atoms) Symbol(i int) string { return a.symbols[i] }

// Position returns the position of atom i.
func (a *Atoms) Position(i int) Vec { return a.positions[i] }

// Positions returns a copy of all atom positions.
func (a *Atoms) Positions() []Vec {
	return append([]Vec(nil), a.positions...)
}

// Cell returns the periodic cell row vectors and whether one is set.
func (a *Atoms) Cell() ([3]Vec, bool) {
	if a.cell == nil {
		return [3]Vec{}, false
	}
	return *a.cell, true
}

// MaxDisplacement returns the largest per-atom distance between two atom
// sets of equal length and the index of the atom attaining it.
func MaxDisplacement(a, b *Atoms) (float64, int, error) {
	if a.Len() != b.Len() {
		return 0, -1, fmt.Errorf("structure: atom count mismatch %d vs %d", a.Len(), b.Len())
	}
	max, argmax := 0.0, -1
	for i := 0; i < a.Len(); i++ {
		if d := a.positions[i].Sub(b.positions[i]).Norm(); argmax < 0 || d > max {
			max, argmax = d, i
		}
	}
	return max, argmax, nil
}
