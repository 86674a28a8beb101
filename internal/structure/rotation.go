package structure

import (
	"math"

	"gonum.org/v1/gonum/num/quat"
)

// rotation is a proper rigid rotation stored as a unit quaternion.
// Applying one quaternion to every member atom of a fragment preserves all
// pairwise distances, which is the rigidity invariant of the motion update.
type rotation struct {
	q quat.Number
}

// newRotation builds a rotation of angle radians about axis. A zero axis or
// zero angle yields the identity rotation.
func newRotation(axis Vec, angle float64) rotation {
	n := axis.Norm()
	if n == 0 || angle == 0 {
		return rotation{q: quat.Number{Real: 1}}
	}
	s := math.Sin(angle/2) / n
	return rotation{q: quat.Number{
		Real: math.Cos(angle / 2),
		Imag: s * axis[0],
		Jmag: s * axis[1],
		Kmag: s * axis[2],
	}}
}

// apply rotates v by the quaternion, computing q v q*.
func (r rotation) apply(v Vec) Vec {
	p := quat.Number{Imag: v[0], Jmag: v[1], Kmag: v[2]}
	rp := quat.Mul(quat.Mul(r.q, p), quat.Conj(r.q))
	return Vec{rp.Imag, rp.Jmag, rp.Kmag}
}
