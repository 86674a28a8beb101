package session

import (
	"os"

	"gopkg.in/yaml.v3"

	"github.com/siegfriedkaidisch/ROMIS/internal/config"
	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// Job is a declarative run description decoded from a YAML job file: the
// start geometry, the fragment partition and the component choices.
type Job struct {
	// Geometry is an XYZ file path. Mutually exclusive with Atoms.
	Geometry string `yaml:"geometry"`
	// Atoms gives the geometry inline.
	Atoms *JobAtoms `yaml:"atoms"`

	Fragments []JobFragment `yaml:"fragments"`

	Calculator  *JobComponent `yaml:"calculator"`
	Optimizer   *JobComponent `yaml:"optimizer"`
	Convergence *JobComponent `yaml:"convergence"`

	MaxIterations int `yaml:"max_iterations"`
}

type JobAtoms struct {
	Symbols   []string       `yaml:"symbols"`
	Positions [][3]float64   `yaml:"positions"`
	Cell      *[3][3]float64 `yaml:"cell"`
}

// JobFragment selects atoms by index. Omitting both axis strings leaves the
// fragment free to translate and rotate on all axes.
type JobFragment struct {
	Indices     []int   `yaml:"indices"`
	Translation *string `yaml:"translation"`
	Rotation    *string `yaml:"rotation"`
}

type JobComponent struct {
	Name     string            `yaml:"name"`
	Settings registry.Settings `yaml:"settings"`
}

// LoadJob reads and decodes a YAML job file.
func LoadJob(path string) (*Job, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Configuration("read job file %s: %v", path, err)
	}
	var job Job
	if err := yaml.Unmarshal(data, &job); err != nil {
		return nil, errors.Configuration("parse job file %s: %v", path, err)
	}
	return &job, nil
}

// Session builds a configured session from the job description. Every
// misconfiguration surfaces here, before any calculator runs.
func (j *Job) Session(cfg *config.Config, logger *logging.Logger) (*Session, error) {
	atoms, err := j.atoms()
	if err != nil {
		return nil, err
	}

	s := New(atoms, cfg, logger)
	for i, frag := range j.Fragments {
		constraint, err := frag.constraint()
		if err != nil {
			return nil, errors.Configuration("fragment %d: %v", i, err)
		}
		if err := s.DefineFragment(frag.Indices, constraint); err != nil {
			return nil, err
		}
	}

	if j.Calculator != nil {
		if err := s.SetCalculator(j.Calculator.Name, j.Calculator.Settings); err != nil {
			return nil, err
		}
	}
	if j.Optimizer != nil {
		if err := s.SetOptimizer(j.Optimizer.Name, j.Optimizer.Settings); err != nil {
			return nil, err
		}
	}
	if j.Convergence != nil {
		if err := s.SetCriterion(j.Convergence.Name, j.Convergence.Settings); err != nil {
			return nil, err
		}
	}
	s.SetMaxIterations(j.MaxIterations)
	return s, nil
}

func (j *Job) atoms() (*structure.Atoms, error) {
	switch {
	case j.Geometry != "" && j.Atoms != nil:
		return nil, errors.Configuration("job gives both geometry file and inline atoms, pick one")
	case j.Geometry != "":
		atoms, err := structure.ReadXYZFile(j.Geometry)
		if err != nil {
			return nil, errors.Configuration("read geometry %s: %v", j.Geometry, err)
		}
		return atoms, nil
	case j.Atoms != nil:
		positions := make([]structure.Vec, len(j.Atoms.Positions))
		for i, p := range j.Atoms.Positions {
			positions[i] = structure.Vec(p)
		}
		atoms, err := structure.NewAtoms(j.Atoms.Symbols, positions)
		if err != nil {
			return nil, errors.Configuration("inline atoms: %v", err)
		}
		if j.Atoms.Cell != nil {
			var cell [3]structure.Vec
			for i := range cell {
				cell[i] = structure.Vec(j.Atoms.Cell[i])
			}
			atoms = atoms.WithCell(cell)
		}
		return atoms, nil
	default:
		return nil, errors.Configuration("job gives no geometry, set geometry or atoms")
	}
}

func (f JobFragment) constraint() (structure.Constraint, error) {
	if f.Translation == nil && f.Rotation == nil {
		return structure.Free(), nil
	}
	trans, rot := "", ""
	if f.Translation != nil {
		trans = *f.Translation
	}
	if f.Rotation != nil {
		rot = *f.Rotation
	}
	return structure.ParseConstraint(trans, rot)
}
