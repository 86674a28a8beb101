package session

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
)

func writeJob(t *testing.T, text string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "job.yaml")
	require.NoError(t, os.WriteFile(path, []byte(text), 0o644))
	return path
}

func TestLoadJobInlineAtoms(t *testing.T) {
	job, err := LoadJob(writeJob(t, `
atoms:
  symbols: [C, O]
  positions:
    - [0.0, 0.0, 0.0]
    - [1.2, 0.0, 0.0]
fragments:
  - indices: [0, 1]
    translation: xy
    rotation: z
calculator:
  name: lennard-jones
  settings:
    epsilon: 1.0
optimizer:
  name: gdwas
convergence:
  name: force-torque
  settings:
    max_force: 0.05
max_iterations: 200
`))
	require.NoError(t, err)

	s, err := job.Session(nil, testLogger())
	require.NoError(t, err)
	assert.Equal(t, 2, s.Structure().Atoms().Len())
	assert.Equal(t, 1, s.Structure().NumFragments())
	assert.NotNil(t, s.calc)
	assert.NotNil(t, s.opt)
	assert.NotNil(t, s.crit)
	assert.Equal(t, 200, s.maxIterations)
}

func TestLoadJobGeometryFile(t *testing.T) {
	dir := t.TempDir()
	xyz := filepath.Join(dir, "start.xyz")
	require.NoError(t, os.WriteFile(xyz, []byte(
		"2\nLattice=\"10 0 0 0 10 0 0 0 10\"\nAr 0 0 0\nAr 3.8 0 0\n"), 0o644))

	job, err := LoadJob(writeJob(t, "geometry: "+xyz+"\n"))
	require.NoError(t, err)

	s, err := job.Session(nil, testLogger())
	require.NoError(t, err)
	atoms := s.Structure().Atoms()
	assert.Equal(t, 2, atoms.Len())
	cell, ok := atoms.Cell()
	require.True(t, ok)
	assert.Equal(t, 10.0, cell[0][0])
}

func TestJobValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
	}{
		{"no geometry", "max_iterations: 5\n"},
		{"both geometry and atoms", `
geometry: some.xyz
atoms:
  symbols: [H]
  positions: [[0, 0, 0]]
`},
		{"unknown calculator", `
atoms:
  symbols: [H]
  positions: [[0, 0, 0]]
calculator:
  name: orca
`},
		{"unknown optimizer", `
atoms:
  symbols: [H]
  positions: [[0, 0, 0]]
optimizer:
  name: cg
`},
		{"bad constraint axis", `
atoms:
  symbols: [H, H]
  positions: [[0, 0, 0], [1, 0, 0]]
fragments:
  - indices: [0, 1]
    translation: xq
`},
		{"fragment index out of range", `
atoms:
  symbols: [H]
  positions: [[0, 0, 0]]
fragments:
  - indices: [0, 3]
`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job, err := LoadJob(writeJob(t, tt.yaml))
			require.NoError(t, err)
			_, err = job.Session(nil, testLogger())
			require.Error(t, err)
			assert.True(t, errors.IsConfiguration(err))
		})
	}
}

func TestLoadJobMissingFile(t *testing.T) {
	_, err := LoadJob(filepath.Join(t.TempDir(), "nope.yaml"))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}

func TestLoadJobBadYAML(t *testing.T) {
	_, err := LoadJob(writeJob(t, "atoms: ["))
	require.Error(t, err)
	assert.True(t, errors.IsConfiguration(err))
}
