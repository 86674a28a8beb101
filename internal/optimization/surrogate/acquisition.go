package surrogate

import (
	"math"

	"gonum.org/v1/gonum/stat/distuv"
)

func sqrt(x float64) float64 { return math.Sqrt(x) }

// ExpectedImprovement computes the expected improvement of a candidate with
// posterior (mu, sigma) over the best observed value, for minimization.
// xi trades exploration against exploitation; the result is non-negative.
func ExpectedImprovement(mu, sigma, bestObserved, xi float64) float64 {
	improvement := bestObserved - mu - xi
	if sigma <= 1e-10 {
		if improvement > 0 {
			return improvement
		}
		return 0
	}

	stdNormal := distuv.UnitNormal
	z := improvement / sigma
	// EI = improvement * CDF(z) + sigma * PDF(z)
	return improvement*stdNormal.CDF(z) + sigma*stdNormal.Prob(z)
}
