// Package surrogate implements the Gaussian-process model behind the
// surrogate-guided step strategy: a GP regression over trial step scales
// with an expected-improvement rule for proposing the next one.
package surrogate

import (
	"fmt"
	"math"
)

// Kernel is a covariance function for the Gaussian process.
type Kernel interface {
	// Eval computes the kernel value between two points x1 and x2.
	Eval(x1, x2 []float64) float64
}

// RBF implements the squared-exponential kernel.
type RBF struct {
	// lengthScale controls smoothness (larger = smoother function).
	lengthScale float64
	// signalVar controls the amplitude of the function.
	signalVar float64
}

// NewRBF creates an RBF kernel with the given parameters.
func NewRBF(lengthScale, signalVar float64) *RBF {
	if lengthScale <= 0 {
		panic(fmt.Sprintf("lengthScale must be positive, got %v", lengthScale))
	}
	if signalVar <= 0 {
		panic(fmt.Sprintf("signalVar must be positive, got %v", signalVar))
	}
	return &RBF{lengthScale: lengthScale, signalVar: signalVar}
}

// Eval computes the RBF kernel value between x1 and x2.
func (k *RBF) Eval(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	r2 := sumSq / (2.0 * k.lengthScale * k.lengthScale)
	return k.signalVar * math.Exp(-r2)
}

// Matern52 implements the Matérn 5/2 kernel, a rougher alternative to RBF.
type Matern52 struct {
	lengthScale float64
	signalVar   float64
}

// NewMatern52 creates a Matérn 5/2 kernel with the given parameters.
func NewMatern52(lengthScale, signalVar float64) *Matern52 {
	if lengthScale <= 0 {
		panic(fmt.Sprintf("lengthScale must be positive, got %v", lengthScale))
	}
	if signalVar <= 0 {
		panic(fmt.Sprintf("signalVar must be positive, got %v", signalVar))
	}
	return &Matern52{lengthScale: lengthScale, signalVar: signalVar}
}

// Eval computes the Matérn 5/2 kernel value between x1 and x2.
func (k *Matern52) Eval(x1, x2 []float64) float64 {
	sumSq := 0.0
	for i := range x1 {
		diff := x1[i] - x2[i]
		sumSq += diff * diff
	}
	r := math.Sqrt(sumSq) / k.lengthScale
	polyTerm := 1.0 + math.Sqrt(5)*r + (5.0/3.0)*r*r
	return k.signalVar * polyTerm * math.Exp(-math.Sqrt(5)*r)
}
