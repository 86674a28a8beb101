package structure

import "math"

// Vec is a cartesian 3-vector (Angstrom for positions, eV/Angstrom for forces).
type Vec [3]float64

// Add returns v + w.
func (v Vec) Add(w Vec) Vec {
	return Vec{v[0] + w[0], v[1] + w[1], v[2] + w[2]}
}

// Sub returns v - w.
func (v Vec) Sub(w Vec) Vec {
	return Vec{v[0] - w[0], v[1] - w[1], v[2] - w[2]}
}

// Scale returns s * v.
func (v Vec) Scale(s float64) Vec {
	return Vec{s * v[0], s * v[1], s * v[2]}
}

// Dot returns the dot product of v and w.
func (v Vec) Dot(w Vec) float64 {
	return v[0]*w[0] + v[1]*w[1] + v[2]*w[2]
}

// Cross returns the cross product v x w.
func (v Vec) Cross(w Vec) Vec {
	return Vec{
		v[1]*w[2] - v[2]*w[1],
		v[2]*w[0] - v[0]*w[2],
		v[0]*w[1] - v[1]*w[0],
	}
}

// Norm returns the euclidean length of v.
func (v Vec) Norm() float64 {
	return math.Sqrt(v.Dot(v))
}

// Mul returns the componentwise product of v and w.
// Used to project vectors onto the allowed axes of a motion constraint.
func (v Vec) Mul(w Vec) Vec {
	return Vec{v[0] * w[0], v[1] * w[1], v[2] * w[2]}
}

// Normalize returns v scaled to unit length. The zero vector is returned
// unchanged so callers can branch on Norm() beforehand.
func (v Vec) Normalize() Vec {
	n := v.Norm()
	if n == 0 {
		return v
	}
	return v.Scale(1 / n)
}

// MaxNorm returns the largest euclidean norm in vs and the index attaining it.
// For an empty slice it returns (0, -1).
func MaxNorm(vs []Vec) (float64, int) {
	max, argmax := 0.0, -1
	for i, v := range vs {
		if n := v.Norm(); argmax < 0 || n > max {
			max, argmax = n, i
		}
	}
	return max, argmax
}
