package session

import (
	"context"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siegfriedkaidisch/ROMIS/internal/calculator"
	"github.com/siegfriedkaidisch/ROMIS/internal/config"
	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

func testLogger() *logging.Logger {
	return logging.New(logging.ErrorLevel, io.Discard)
}

// springCalc pulls every atom towards a per-atom target site. The targets
// preserve the rigid shape, so the minimum is reachable by translation.
type springCalc struct {
	targets []structure.Vec
	calls   int
}

func (c *springCalc) Calculate(_ context.Context, atoms *structure.Atoms) (calculator.Result, error) {
	c.calls++
	res := calculator.Result{Forces: make([]structure.Vec, atoms.Len())}
	for i := 0; i < atoms.Len(); i++ {
		d := atoms.Position(i).Sub(c.targets[i])
		res.Energy += 0.5 * d.Dot(d)
		res.Forces[i] = d.Scale(-1)
	}
	return res, nil
}

func dimerSession(t *testing.T, cfg *config.Config) (*Session, *springCalc) {
	t.Helper()
	atoms, err := structure.NewAtoms(
		[]string{"Ar", "Ar"},
		[]structure.Vec{{0, 0, 0}, {1, 0, 0}},
	)
	require.NoError(t, err)

	s := New(atoms, cfg, testLogger())
	require.NoError(t, s.DefineFragment([]int{0, 1}, structure.Free()))

	calc := &springCalc{targets: []structure.Vec{{0.5, 0, 0}, {1.5, 0, 0}}}
	return s, calc
}

func outputConfig(dir string) *config.Config {
	cfg := &config.Config{}
	cfg.Output.Dir = dir
	cfg.Output.Summary = "opt.out"
	cfg.Output.Trajectory = "opt_trajectory.xyz"
	cfg.Output.FinalGeometry = "final_geometry.xyz"
	cfg.Output.History = "opt_history.json.gz"
	cfg.Output.EnergyPlot = "opt_energy.png"
	return cfg
}

func TestRunWithoutCalculator(t *testing.T) {
	dir := t.TempDir()
	s, _ := dimerSession(t, outputConfig(dir))

	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	// Nothing ran, so nothing was written.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries)
}

func TestRunDefaultsAndArtifacts(t *testing.T) {
	dir := t.TempDir()
	s, calc := dimerSession(t, outputConfig(dir))
	s.UseCalculator(calc)
	s.SetMaxIterations(500)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Converged)
	assert.Equal(t, optimization.StateConverged, res.State)
	assert.Greater(t, calc.calls, 1)

	for _, name := range []string{
		"opt.out", "opt_trajectory.xyz", "final_geometry.xyz",
		"opt_history.json.gz", "opt_energy.png",
	} {
		info, err := os.Stat(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Greater(t, info.Size(), int64(0), name)
	}

	// The fragment ended up at its target.
	final := res.History.FinalAtoms()
	assert.InDelta(t, 0.5, final.Position(0)[0], 0.01)
	assert.InDelta(t, 1.5, final.Position(1)[0], 0.01)
}

func TestRunWithoutPersistence(t *testing.T) {
	s, calc := dimerSession(t, nil)
	s.UseCalculator(calc)
	s.SetMaxIterations(500)

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.True(t, res.Converged)
}

func TestSetComponentsByName(t *testing.T) {
	s, _ := dimerSession(t, nil)

	require.NoError(t, s.SetCalculator("lennard-jones", nil))
	require.NoError(t, s.SetOptimizer("gd", map[string]interface{}{"trans_step": 0.005}))
	require.NoError(t, s.SetCriterion("displacement", map[string]interface{}{"threshold": 0.001}))

	err := s.SetCalculator("gaussian", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	err = s.SetOptimizer("bfgs", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))

	err = s.SetCriterion("energy", nil)
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestProgress(t *testing.T) {
	s, calc := dimerSession(t, nil)

	p := s.Progress()
	assert.Equal(t, "init", p.State)
	assert.Zero(t, p.Steps)
	assert.Nil(t, p.Energy)

	s.UseCalculator(calc)
	s.SetMaxIterations(500)
	_, err := s.Run(context.Background())
	require.NoError(t, err)

	p = s.Progress()
	assert.Equal(t, "converged", p.State)
	assert.True(t, p.Converged)
	assert.Greater(t, p.Steps, 1)
	require.NotNil(t, p.Energy)
	assert.Less(t, *p.Energy, 0.25) // started at 0.25, must have descended
}
