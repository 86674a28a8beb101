package optimization

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siegfriedkaidisch/ROMIS/internal/calculator"
	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// harmonicCalc pulls every atom towards a target point with a spring.
// Uniform within a fragment, so fragments translate without rotating.
type harmonicCalc struct {
	target structure.Vec
	k      float64
	calls  int
	failAt int // fail on the n-th call, 0 disables
}

func (c *harmonicCalc) Calculate(_ context.Context, atoms *structure.Atoms) (calculator.Result, error) {
	c.calls++
	if c.failAt > 0 && c.calls >= c.failAt {
		return calculator.Result{}, assert.AnError
	}
	res := calculator.Result{Forces: make([]structure.Vec, atoms.Len())}
	for i := 0; i < atoms.Len(); i++ {
		d := c.target.Sub(atoms.Position(i))
		res.Forces[i] = d.Scale(c.k)
		res.Energy += 0.5 * c.k * d.Dot(d)
	}
	return res, nil
}

func dimer(t *testing.T) *structure.Structure {
	t.Helper()
	atoms, err := structure.NewAtoms(
		[]string{"H", "H"},
		[]structure.Vec{{2, 0, 0}, {3, 0, 0}},
	)
	require.NoError(t, err)
	s := structure.New(atoms)
	require.NoError(t, s.DefineFragment([]int{0, 1}, structure.Free()))
	return s
}

// maxIterCriterion never converges, forcing the iteration cap.
type neverConverges struct{}

func (neverConverges) Converged(*History) bool { return false }

// forceBelow converges when every allowed fragment force is small.
type forceBelow struct{ limit float64 }

func (c forceBelow) Converged(h *History) bool {
	last := h.Last()
	if last == nil {
		return false
	}
	for _, f := range last.FragmentForces.ForcesAllowed {
		if f.Norm() >= c.limit {
			return false
		}
	}
	return true
}

func TestRunConvergesOnHarmonicWell(t *testing.T) {
	calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0}
	gd, err := NewGD(registry.Settings{"trans_step": 0.2})
	require.NoError(t, err)

	res, err := gd.Run(context.Background(), RunConfig{
		Structure:     dimer(t),
		Calculator:    calc,
		Criterion:     forceBelow{limit: 0.01},
		MaxIterations: 500,
	})
	require.NoError(t, err)

	assert.Equal(t, StateConverged, res.State)
	assert.True(t, res.Converged)
	assert.True(t, res.State.Terminal())
	assert.Equal(t, res.Iterations, res.History.Len()-1)

	// Energy decreased monotonically for plain GD on a harmonic well.
	energies := res.History.Energies()
	require.Greater(t, len(energies), 2)
	assert.Less(t, energies[len(energies)-1], energies[0])

	// The dimer kept its bond length.
	final := res.History.FinalAtoms()
	bond := final.Position(0).Sub(final.Position(1)).Norm()
	assert.InDelta(t, 1.0, bond, 1e-9)
}

func TestRunHitsIterationCap(t *testing.T) {
	calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0}
	gd := &GD{TransStep: 1e-6, RotStep: 1e-6}

	res, err := gd.Run(context.Background(), RunConfig{
		Structure:     dimer(t),
		Calculator:    calc,
		Criterion:     neverConverges{},
		MaxIterations: 5,
	})
	require.NoError(t, err)

	assert.Equal(t, StateMaxIterations, res.State)
	assert.False(t, res.Converged)
	assert.Equal(t, 5, res.Iterations)
	// Step 0 plus one step per iteration.
	assert.Equal(t, 6, res.History.Len())
}

func TestRunCalculatorFailureKeepsHistory(t *testing.T) {
	calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0, failAt: 4}
	gd := &GD{TransStep: 0.01}

	res, err := gd.Run(context.Background(), RunConfig{
		Structure:     dimer(t),
		Calculator:    calc,
		Criterion:     neverConverges{},
		MaxIterations: 100,
	})
	require.Error(t, err)
	assert.True(t, errors.IsCalculator(err))
	require.NotNil(t, res)
	assert.Equal(t, StateFailed, res.State)

	// Three successful evaluations happened before the fourth failed; no
	// partial step was appended, and the iteration count reflects the two
	// completed moves even on the failure path.
	assert.Equal(t, 3, res.History.Len())
	assert.Equal(t, 2, res.Iterations)
}

func TestRunConfigValidation(t *testing.T) {
	gd := &GD{TransStep: 0.01}
	s := dimer(t)
	calc := &harmonicCalc{k: 1}

	tests := []struct {
		name string
		cfg  RunConfig
	}{
		{name: "missing structure", cfg: RunConfig{Calculator: calc, Criterion: neverConverges{}}},
		{name: "missing calculator", cfg: RunConfig{Structure: s, Criterion: neverConverges{}}},
		{name: "missing criterion", cfg: RunConfig{Structure: s, Calculator: calc}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := gd.Run(context.Background(), tt.cfg)
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
			// Configuration errors surface before any calculator call.
			assert.Zero(t, calc.calls)
		})
	}
}

func TestRunCheckpointCallback(t *testing.T) {
	t.Run("called after every step", func(t *testing.T) {
		calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0}
		var lengths []int
		_, err := (&GD{TransStep: 0.01}).Run(context.Background(), RunConfig{
			Structure:     dimer(t),
			Calculator:    calc,
			Criterion:     neverConverges{},
			MaxIterations: 3,
			Callback: func(h *History) error {
				lengths = append(lengths, h.Len())
				return nil
			},
		})
		require.NoError(t, err)
		// Once per appended step, each seeing one more step than before.
		assert.Equal(t, []int{1, 2, 3, 4}, lengths)
	})

	t.Run("callback error aborts as persistence failure", func(t *testing.T) {
		calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0}
		res, err := (&GD{TransStep: 0.01}).Run(context.Background(), RunConfig{
			Structure:     dimer(t),
			Calculator:    calc,
			Criterion:     neverConverges{},
			MaxIterations: 10,
			Callback:      func(*History) error { return assert.AnError },
		})
		require.Error(t, err)
		assert.True(t, errors.IsPersistence(err))
		assert.Equal(t, 1, res.History.Len())
	})
}

func TestGDWASAdaptsAndReverts(t *testing.T) {
	calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0}
	gdwas, err := NewGDWAS(nil)
	require.NoError(t, err)

	res, err := gdwas.Run(context.Background(), RunConfig{
		Structure:     dimer(t),
		Calculator:    calc,
		Criterion:     forceBelow{limit: 0.01},
		MaxIterations: 500,
	})
	require.NoError(t, err)
	assert.Equal(t, StateConverged, res.State)

	// Rigidity still holds under adaptive steps with reverts.
	final := res.History.FinalAtoms()
	bond := final.Position(0).Sub(final.Position(1)).Norm()
	assert.InDelta(t, 1.0, bond, 1e-9)
}

func TestGDWASRejectsEqualEnergyStep(t *testing.T) {
	g, err := NewGDWAS(nil)
	require.NoError(t, err)
	p := &gdwasPolicy{cfg: g, scale: 1.0}

	h := NewHistory()
	h.Append(&Step{Energy: 1.0})
	d, err := p.decide(h)
	require.NoError(t, err)
	assert.False(t, d.revert)

	// A large step can mirror the geometry through the minimum onto a point
	// with exactly the same energy. That is not progress: the move must be
	// undone and the scale shrunk, or the run would bounce between the two
	// mirror points forever.
	h.Append(&Step{Energy: 1.0})
	d, err = p.decide(h)
	require.NoError(t, err)
	assert.True(t, d.revert)
	assert.Equal(t, g.Shrink, p.scale)
}

// risingCalc reports an ever-increasing energy, so every move is rejected.
// The force direction depends on where the atom sits: +x at the start
// position, +y anywhere else. Any geometry in the run's history that moved
// along y was therefore moved with forces evaluated at the wrong geometry.
type risingCalc struct {
	start structure.Vec
	calls int
}

func (c *risingCalc) Calculate(_ context.Context, atoms *structure.Atoms) (calculator.Result, error) {
	c.calls++
	f := structure.Vec{1, 0, 0}
	if atoms.Position(0) != c.start {
		f = structure.Vec{0, 1, 0}
	}
	return calculator.Result{Energy: float64(c.calls), Forces: []structure.Vec{f}}, nil
}

func TestRunConsecutiveRevertsReuseBaseForces(t *testing.T) {
	atoms, err := structure.NewAtoms([]string{"H"}, []structure.Vec{{0, 0, 0}})
	require.NoError(t, err)
	s := structure.New(atoms)
	require.NoError(t, s.DefineFragment([]int{0}, structure.Free()))

	gdwas, err := NewGDWAS(nil)
	require.NoError(t, err)

	res, err := gdwas.Run(context.Background(), RunConfig{
		Structure:     s,
		Calculator:    &risingCalc{start: structure.Vec{0, 0, 0}},
		Criterion:     neverConverges{},
		MaxIterations: 6,
	})
	require.NoError(t, err)
	assert.Equal(t, StateMaxIterations, res.State)

	// Every rejection reverts to the start geometry, so every retry must
	// follow the +x force evaluated there, even after several rejections
	// in a row.
	for i, step := range res.History.Steps() {
		pos := step.Atoms.Position(0)
		assert.Zerof(t, pos[1], "step %d moved along y", i)
		assert.Zerof(t, pos[2], "step %d moved along z", i)
	}
}

func TestGPRConverges(t *testing.T) {
	for _, kernel := range []string{"rbf", "matern52"} {
		t.Run(kernel, func(t *testing.T) {
			calc := &harmonicCalc{target: structure.Vec{0, 0, 0}, k: 1.0}
			gpr, err := NewGPR(registry.Settings{"kernel": kernel})
			require.NoError(t, err)

			res, err := gpr.Run(context.Background(), RunConfig{
				Structure:     dimer(t),
				Calculator:    calc,
				Criterion:     forceBelow{limit: 0.05},
				MaxIterations: 500,
			})
			require.NoError(t, err)
			assert.Equal(t, StateConverged, res.State)
			assert.Less(t, res.History.Last().Energy, res.History.At(0).Energy)
		})
	}
}

func TestGPRKernelSetting(t *testing.T) {
	gpr, err := NewGPR(registry.Settings{"kernel": "Matern52"})
	require.NoError(t, err)
	assert.Equal(t, "matern52", gpr.Kernel)

	gpr, err = NewGPR(nil)
	require.NoError(t, err)
	assert.Equal(t, "rbf", gpr.Kernel)

	_, err = NewGPR(registry.Settings{"kernel": "cubic"})
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestGPRShrinksProposalsAfterEnergyRise(t *testing.T) {
	g, err := NewGPR(nil)
	require.NoError(t, err)
	p := &gprPolicy{cfg: g, cap: g.MaxScale}

	h := NewHistory()
	h.Append(&Step{Energy: 1.0})
	d, err := p.decide(h)
	require.NoError(t, err)
	assert.False(t, d.revert)

	// The move raised the energy: it must be undone and the proposal range
	// must contract below the scale that overshot.
	h.Append(&Step{Energy: 2.0})
	d, err = p.decide(h)
	require.NoError(t, err)
	assert.True(t, d.revert)
	assert.Equal(t, p.scales[0]/2, p.cap)
	assert.LessOrEqual(t, p.scales[1], p.cap)

	// A later drop below the base energy widens the range again.
	h.Append(&Step{Energy: 0.5})
	d, err = p.decide(h)
	require.NoError(t, err)
	assert.False(t, d.revert)
	assert.Equal(t, p.scales[0], p.cap)
}

func TestOptimizerRegistry(t *testing.T) {
	assert.Equal(t, []string{"gd", "gdwas", "gpr"}, Names())

	opt, err := New("gdwas", registry.Settings{"trans_step": 0.05})
	require.NoError(t, err)
	assert.Equal(t, 0.05, opt.(*GDWAS).TransStep)

	_, err = New("newton", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}
