package optimization

import (
	"context"
	"strings"

	"gonum.org/v1/gonum/mat"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization/surrogate"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// GPR is the surrogate-guided strategy: a Gaussian-process model maps the
// step scales tried so far to the energies they produced, and each
// iteration moves with the scale maximizing expected improvement over the
// best energy seen. The first few iterations sweep a fixed seed sequence so
// the model has a spread of observations to fit. A move that does not lower
// the energy is undone and halves the proposal range, so proposals stay
// contractive as the run approaches the minimum; the range widens again on
// every accepted move.
type GPR struct {
	// TransStep and RotStep are the base step sizes multiplied by the
	// proposed scale.
	TransStep float64
	RotStep   float64
	// MinScale and MaxScale bound the proposal range.
	MinScale float64
	MaxScale float64
	// Candidates is the size of the proposal grid per iteration.
	Candidates int
	// Kernel selects the covariance function ("rbf" or "matern52").
	Kernel string
	// LengthScale, SignalVar and NoiseVar parameterize the GP kernel.
	LengthScale float64
	SignalVar   float64
	NoiseVar    float64
	// Xi is the expected-improvement exploration margin.
	Xi float64
	// Window caps how many recent (scale, energy) observations the model
	// is fit on. Old observations describe geometries far from the current
	// one, and the fit is cubic in the observation count.
	Window int
	// MaxAtomMove caps the largest single-atom displacement per step.
	MaxAtomMove float64
}

// NewGPR builds the surrogate-guided strategy from settings (trans_step,
// rot_step, min_scale, max_scale, candidates, kernel, length_scale,
// signal_var, noise_var, xi, window, max_atom_move).
func NewGPR(s registry.Settings) (*GPR, error) {
	g := &GPR{}
	var err error
	if g.TransStep, err = s.Float("trans_step", 0.01); err != nil {
		return nil, err
	}
	if g.RotStep, err = s.Float("rot_step", 0.01); err != nil {
		return nil, err
	}
	if g.MinScale, err = s.Float("min_scale", 0.05); err != nil {
		return nil, err
	}
	if g.MaxScale, err = s.Float("max_scale", 10); err != nil {
		return nil, err
	}
	if g.Candidates, err = s.Int("candidates", 64); err != nil {
		return nil, err
	}
	if g.Kernel, err = s.String("kernel", "rbf"); err != nil {
		return nil, err
	}
	g.Kernel = strings.ToLower(g.Kernel)
	if g.Kernel != "rbf" && g.Kernel != "matern52" {
		return nil, errors.Configuration("setting %q: unknown kernel %q, recognized: rbf, matern52", "kernel", g.Kernel)
	}
	if g.LengthScale, err = s.Float("length_scale", 1.0); err != nil {
		return nil, err
	}
	if g.SignalVar, err = s.Float("signal_var", 1.0); err != nil {
		return nil, err
	}
	if g.NoiseVar, err = s.Float("noise_var", 1e-6); err != nil {
		return nil, err
	}
	if g.Xi, err = s.Float("xi", 0.01); err != nil {
		return nil, err
	}
	if g.Window, err = s.Int("window", 16); err != nil {
		return nil, err
	}
	if g.MaxAtomMove, err = s.Float("max_atom_move", 0.1); err != nil {
		return nil, err
	}
	return g, nil
}

// Run executes the shared state machine with the surrogate policy.
func (g *GPR) Run(ctx context.Context, cfg RunConfig) (*Result, error) {
	p := &gprPolicy{cfg: g, cap: g.MaxScale}
	return newEngine("gpr", p).Run(ctx, cfg)
}

// gprPolicy records the scale used for every move so each observed energy
// can be paired with the scale that produced it, and tracks the energy of
// the current base geometry plus the shrinking proposal cap.
type gprPolicy struct {
	cfg        *GPR
	scales     []float64
	baseEnergy float64
	cap        float64
}

// seedScales gives the model an initial spread before the GP takes over.
var seedScales = []float64{1.0, 0.25, 4.0}

func (p *gprPolicy) decide(h *History) (decision, error) {
	last := h.Last()
	revert := false
	switch {
	case h.Len() == 1:
		p.baseEnergy = last.Energy
	case last.Energy < p.baseEnergy:
		// Accepted: descend from here and relax the proposal cap.
		p.baseEnergy = last.Energy
		p.cap = clamp(p.cap*2, p.cfg.MinScale, p.cfg.MaxScale)
	default:
		// Rejected: undo the move and halve the proposal range so the
		// next trial cannot overshoot the same way.
		revert = true
		p.cap = clamp(p.scales[len(p.scales)-1]/2, p.cfg.MinScale, p.cfg.MaxScale)
	}

	scale := p.propose(h)
	p.scales = append(p.scales, scale)
	return decision{
		step: structure.MotionStep{
			Trans: p.cfg.TransStep * scale,
			Rot:   p.cfg.RotStep * scale,
		},
		revert:      revert,
		maxAtomMove: p.cfg.MaxAtomMove,
	}, nil
}

func (p *gprPolicy) propose(h *History) float64 {
	if len(p.scales) < len(seedScales) {
		return clamp(seedScales[len(p.scales)], p.cfg.MinScale, p.cap)
	}

	// Move i used scales[i-1] and produced the energy of step i. Fit on
	// the most recent observations only.
	nObs := min(len(p.scales), h.Len()-1)
	first := 0
	if p.cfg.Window > 0 && nObs > p.cfg.Window {
		first = nObs - p.cfg.Window
	}
	n := nObs - first
	X := mat.NewDense(n, 1, nil)
	y := mat.NewVecDense(n, nil)
	best := h.At(first + 1).Energy
	for i := 0; i < n; i++ {
		e := h.At(first + i + 1).Energy
		X.Set(i, 0, p.scales[first+i])
		y.SetVec(i, e)
		if e < best {
			best = e
		}
	}

	gp := surrogate.NewGP(p.kernel(), p.cfg.NoiseVar)
	if err := gp.Fit(X, y); err != nil {
		// A degenerate fit falls back to the neutral scale; the run goes
		// on as plain gradient descent for this iteration.
		return clamp(1.0, p.cfg.MinScale, p.cap)
	}

	bestScale, bestEI := clamp(1.0, p.cfg.MinScale, p.cap), -1.0
	for i := 0; i < p.cfg.Candidates; i++ {
		frac := float64(i) / float64(p.cfg.Candidates-1)
		s := p.cfg.MinScale + frac*(p.cap-p.cfg.MinScale)
		mu, sigma, err := gp.Predict([]float64{s})
		if err != nil {
			continue
		}
		if ei := surrogate.ExpectedImprovement(mu, sigma, best, p.cfg.Xi); ei > bestEI {
			bestEI, bestScale = ei, s
		}
	}
	return bestScale
}

func (p *gprPolicy) kernel() surrogate.Kernel {
	if p.cfg.Kernel == "matern52" {
		return surrogate.NewMatern52(p.cfg.LengthScale, p.cfg.SignalVar)
	}
	return surrogate.NewRBF(p.cfg.LengthScale, p.cfg.SignalVar)
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
