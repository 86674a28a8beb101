package structure

import (
	"fmt"
	"strings"
)

// Constraint restricts the motion of a fragment to a subset of cartesian
// axes. The zero value allows no motion at all; Free() allows everything.
type Constraint struct {
	// transMask and rotMask hold 1 for an allowed axis and 0 for a locked
	// one. They project net force and net torque onto the allowed axes.
	transMask Vec
	rotMask   Vec
}

// Free returns a constraint allowing translation and rotation on all axes.
func Free() Constraint {
	return Constraint{transMask: Vec{1, 1, 1}, rotMask: Vec{1, 1, 1}}
}

// ParseConstraint builds a constraint from axis strings such as "xyz", "xy"
// or "" (fully locked). trans restricts translation axes, rot rotation axes.
func ParseConstraint(trans, rot string) (Constraint, error) {
	tm, err := parseAxes(trans)
	if err != nil {
		return Constraint{}, err
	}
	rm, err := parseAxes(rot)
	if err != nil {
		return Constraint{}, err
	}
	return Constraint{transMask: tm, rotMask: rm}, nil
}

func parseAxes(axes string) (Vec, error) {
	var mask Vec
	for _, c := range strings.ToLower(axes) {
		switch c {
		case 'x':
			mask[0] = 1
		case 'y':
			mask[1] = 1
		case 'z':
			mask[2] = 1
		default:
			return Vec{}, fmt.Errorf("structure: invalid axis %q in constraint %q", string(c), axes)
		}
	}
	return mask, nil
}

// AllowedForce projects a net force onto the allowed translation axes.
func (c Constraint) AllowedForce(f Vec) Vec { return f.Mul(c.transMask) }

// AllowedTorque projects a net torque onto the allowed rotation axes.
func (c Constraint) AllowedTorque(t Vec) Vec { return t.Mul(c.rotMask) }

// Fragment is a rigid group of atoms identified by their indices into the
// structure's atom set. Membership is immutable for the lifetime of a run;
// the center of mass is recomputed from current positions on every use.
type Fragment struct {
	indices    []int
	constraint Constraint
}

// NewFragment builds a fragment from atom indices. Indices must be unique;
// they are copied and kept in the given order.
func NewFragment(indices []int, constraint Constraint) (*Fragment, error) {
	if len(indices) == 0 {
		return nil, fmt.Errorf("structure: fragment needs at least one atom")
	}
	seen := make(map[int]struct{}, len(indices))
	for _, i := range indices {
		if i < 0 {
			return nil, fmt.Errorf("structure: negative atom index %d", i)
		}
		if _, dup := seen[i]; dup {
			return nil, fmt.Errorf("structure: duplicate atom index %d in fragment", i)
		}
		seen[i] = struct{}{}
	}
	return &Fragment{
		indices:    append([]int(nil), indices...),
		constraint: constraint,
	}, nil
}

// Indices returns a copy of the fragment's atom indices.
func (f *Fragment) Indices() []int { return append([]int(nil), f.indices...) }

// Len returns the number of member atoms.
func (f *Fragment) Len() int { return len(f.indices) }

// Constraint returns the fragment's motion constraint.
func (f *Fragment) Constraint() Constraint { return f.constraint }

// CenterOfMass computes the mass-weighted center of the member atoms from
// their current positions in a.
func (f *Fragment) CenterOfMass(a *Atoms) Vec {
	var com Vec
	var mtot float64
	for _, i := range f.indices {
		m := MassOf(a.Symbol(i))
		com = com.Add(a.Position(i).Scale(m))
		mtot += m
	}
	return com.Scale(1 / mtot)
}

// NetForce sums the forces on the member atoms. forces must hold one vector
// per atom of the full structure.
func (f *Fragment) NetForce(forces []Vec) Vec {
	var sum Vec
	for _, i := range f.indices {
		sum = sum.Add(forces[i])
	}
	return sum
}

// NetTorque sums (r_i - com) x F_i over the member atoms, with the torque
// reference point at the fragment's current center of mass.
func (f *Fragment) NetTorque(a *Atoms, forces []Vec) Vec {
	com := f.CenterOfMass(a)
	var sum Vec
	for _, i := range f.indices {
		sum = sum.Add(a.Position(i).Sub(com).Cross(forces[i]))
	}
	return sum
}

// move writes the rigidly moved member positions into positions, which holds
// the full structure's coordinates. The fragment's center of mass is first
// translated by shift, then every member atom is rotated about the new
// center by rot.
func (f *Fragment) move(a *Atoms, positions []Vec, shift Vec, rot rotation) {
	com := f.CenterOfMass(a).Add(shift)
	for _, i := range f.indices {
		rel := a.Position(i).Add(shift).Sub(com)
		positions[i] = com.Add(rot.apply(rel))
	}
}
