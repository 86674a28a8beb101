package structure

import (
	"fmt"
)

// Structure is an atom set together with its rigid-fragment partition.
// Fragments need not cover every atom; unassigned atoms never move.
// Overlapping fragments are rejected when defined, so no atomic force is
// ever counted towards two fragments.
type Structure struct {
	atoms     *Atoms
	fragments []*Fragment
	assigned  map[int]int // atom index -> owning fragment index
}

// New builds a structure around an atom set with no fragments defined yet.
func New(atoms *Atoms) *Structure {
	return &Structure{
		atoms:    atoms,
		assigned: make(map[int]int),
	}
}

// Atoms returns the current atom set.
func (s *Structure) Atoms() *Atoms { return s.atoms }

// Fragments returns the fragments in definition order.
func (s *Structure) Fragments() []*Fragment {
	return append([]*Fragment(nil), s.fragments...)
}

// NumFragments returns the number of defined fragments.
func (s *Structure) NumFragments() int { return len(s.fragments) }

// DefineFragment adds a rigid fragment given by explicit atom indices.
// Indices must be in range and must not belong to a previously defined
// fragment.
func (s *Structure) DefineFragment(indices []int, constraint Constraint) error {
	frag, err := NewFragment(indices, constraint)
	if err != nil {
		return err
	}
	for _, i := range frag.indices {
		if i >= s.atoms.Len() {
			return fmt.Errorf("structure: atom index %d out of range (have %d atoms)", i, s.atoms.Len())
		}
		if owner, taken := s.assigned[i]; taken {
			return fmt.Errorf("structure: atom %d already belongs to fragment %d", i, owner)
		}
	}
	for _, i := range frag.indices {
		s.assigned[i] = len(s.fragments)
	}
	s.fragments = append(s.fragments, frag)
	return nil
}

// ForceTorque holds the per-fragment aggregation of atomic forces: the raw
// net force and torque, and the "allowed" variants after projecting onto
// each fragment's motion constraint. Slices are indexed by fragment.
type ForceTorque struct {
	ForcesRaw      []Vec
	ForcesAllowed  []Vec
	TorquesRaw     []Vec
	TorquesAllowed []Vec
}

// Aggregate reduces per-atom forces to one net force and torque per
// fragment. It is a pure function of the current positions and the given
// forces; forces must hold one vector per atom.
func (s *Structure) Aggregate(forces []Vec) (*ForceTorque, error) {
	if len(forces) != s.atoms.Len() {
		return nil, fmt.Errorf("structure: %d forces for %d atoms", len(forces), s.atoms.Len())
	}
	n := len(s.fragments)
	ft := &ForceTorque{
		ForcesRaw:      make([]Vec, n),
		ForcesAllowed:  make([]Vec, n),
		TorquesRaw:     make([]Vec, n),
		TorquesAllowed: make([]Vec, n),
	}
	for k, frag := range s.fragments {
		ft.ForcesRaw[k] = frag.NetForce(forces)
		ft.TorquesRaw[k] = frag.NetTorque(s.atoms, forces)
		ft.ForcesAllowed[k] = frag.constraint.AllowedForce(ft.ForcesRaw[k])
		ft.TorquesAllowed[k] = frag.constraint.AllowedTorque(ft.TorquesRaw[k])
	}
	return ft, nil
}

// MotionStep holds the step sizes of one rigid motion update: Trans scales
// the translation along the allowed net force (Angstrom per eV/Angstrom)
// and Rot scales the rotation angle about the allowed net torque axis
// (radians per eV).
type MotionStep struct {
	Trans float64
	Rot   float64
}

// Move applies one rigid motion update and returns the resulting structure.
// Each fragment's center of mass is translated by Trans times its allowed
// net force, then the fragment is rotated rigidly about the translated
// center by an angle of Rot times the allowed net torque magnitude, around
// the torque axis. The receiver is not modified; the returned structure
// shares the fragment definitions and carries a fresh atom set.
func (s *Structure) Move(ft *ForceTorque, step MotionStep) (*Structure, error) {
	if len(ft.ForcesAllowed) != len(s.fragments) || len(ft.TorquesAllowed) != len(s.fragments) {
		return nil, fmt.Errorf("structure: force/torque for %d fragments, have %d", len(ft.ForcesAllowed), len(s.fragments))
	}
	positions := s.atoms.Positions()
	for k, frag := range s.fragments {
		shift := ft.ForcesAllowed[k].Scale(step.Trans)
		torque := ft.TorquesAllowed[k]
		rot := newRotation(torque.Normalize(), torque.Norm()*step.Rot)
		frag.move(s.atoms, positions, shift, rot)
	}
	return &Structure{
		atoms:     s.atoms.withPositions(positions),
		fragments: s.fragments,
		assigned:  s.assigned,
	}, nil
}

// WithAtoms returns a structure with the same fragment definitions but a
// different atom set of equal length. Used when rolling back a rejected
// motion update.
func (s *Structure) WithAtoms(atoms *Atoms) (*Structure, error) {
	if atoms.Len() != s.atoms.Len() {
		return nil, fmt.Errorf("structure: atom count mismatch %d vs %d", atoms.Len(), s.atoms.Len())
	}
	return &Structure{atoms: atoms, fragments: s.fragments, assigned: s.assigned}, nil
}
