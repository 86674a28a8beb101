package surrogate

import (
	"errors"
	"fmt"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/mat"
)

// GP is a Gaussian-process regression model. Fit factorizes the kernel
// matrix once; Predict then gives posterior mean and variance at any point.
type GP struct {
	kernel   Kernel
	noiseVar float64

	// Training data
	x *mat.Dense
	y *mat.VecDense

	// Precomputed values
	alpha *mat.VecDense
	chol  *mat.Cholesky

	logger *zap.Logger
}

// NewGP creates a Gaussian-process model with the given kernel and noise
// variance. A small noise variance keeps the factorization stable even for
// near-duplicate training points.
func NewGP(kernel Kernel, noiseVar float64) *GP {
	logger, _ := zap.NewProduction()
	return &GP{
		kernel:   kernel,
		noiseVar: noiseVar,
		logger:   logger.Named("gaussian_process"),
	}
}

// Fit fits the model to training inputs X (one row per sample) and targets y.
func (gp *GP) Fit(X *mat.Dense, y *mat.VecDense) error {
	if X == nil || y == nil {
		return errors.New("surrogate: input matrices must not be nil")
	}

	nSamples, nFeatures := X.Dims()
	if nSamples == 0 || nFeatures == 0 {
		return errors.New("surrogate: input matrix X must not be empty")
	}
	if nSamples != y.Len() {
		return fmt.Errorf("surrogate: X has %d samples but y has length %d", nSamples, y.Len())
	}

	gp.logger.Debug("fitting GP model",
		zap.Int("samples", nSamples),
		zap.Int("features", nFeatures),
		zap.Float64("noise_var", gp.noiseVar),
	)

	gp.x = mat.DenseCopyOf(X)
	gp.y = mat.VecDenseCopyOf(y)

	// Kernel matrix with noise on the diagonal.
	K := mat.NewSymDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		xi := mat.Row(nil, i, X)
		for j := i; j < nSamples; j++ {
			K.SetSym(i, j, gp.kernel.Eval(xi, mat.Row(nil, j, X)))
		}
		K.SetSym(i, i, K.At(i, i)+gp.noiseVar)
	}

	var chol mat.Cholesky
	if ok := chol.Factorize(K); !ok {
		return errors.New("surrogate: Cholesky decomposition failed, kernel matrix is not positive definite")
	}
	gp.chol = &chol

	// Solve K * alpha = y for the prediction weights.
	alpha := mat.NewVecDense(nSamples, nil)
	if err := chol.SolveVecTo(alpha, y); err != nil {
		return fmt.Errorf("surrogate: failed to solve for alpha: %w", err)
	}
	gp.alpha = alpha
	return nil
}

// Predict returns the posterior mean and standard deviation at x.
func (gp *GP) Predict(x []float64) (mu, sigma float64, err error) {
	if gp.alpha == nil || gp.chol == nil {
		return 0, 0, errors.New("surrogate: model not fitted")
	}
	nSamples, nFeatures := gp.x.Dims()
	if len(x) != nFeatures {
		return 0, 0, fmt.Errorf("surrogate: point has %d features, model expects %d", len(x), nFeatures)
	}

	// k_star_i = k(x, x_i)
	kstar := mat.NewVecDense(nSamples, nil)
	for i := 0; i < nSamples; i++ {
		kstar.SetVec(i, gp.kernel.Eval(x, mat.Row(nil, i, gp.x)))
	}

	mu = mat.Dot(kstar, gp.alpha)

	// Predictive variance: k(x,x) - k_star^T K^-1 k_star.
	v := mat.NewVecDense(nSamples, nil)
	if err := gp.chol.SolveVecTo(v, kstar); err != nil {
		return 0, 0, fmt.Errorf("surrogate: failed to solve for variance: %w", err)
	}
	variance := gp.kernel.Eval(x, x) - mat.Dot(kstar, v)
	if variance < 0 {
		variance = 0
	}
	return mu, sqrt(variance), nil
}
