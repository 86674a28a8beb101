package calculator

import (
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
)

// calculators holds the recognized calculator names. "vasp" is the DFT
// evaluator used in production runs; "lennard-jones" is a cheap built-in
// pair potential for smoke tests and development.
var calculators = registry.New[Calculator]("calculator")

func init() {
	calculators.Register("vasp", func(s registry.Settings) (Calculator, error) {
		return NewVASP(s)
	})
	calculators.Register("lennard-jones", func(s registry.Settings) (Calculator, error) {
		return NewLennardJones(s)
	})
}

// New constructs a calculator from a recognized name and settings mapping.
// An unrecognized name is a configuration error raised before any run.
func New(name string, settings registry.Settings) (Calculator, error) {
	return calculators.Resolve(name, settings)
}

// Names returns the recognized calculator names.
func Names() []string { return calculators.Names() }
