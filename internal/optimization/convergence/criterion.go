// Package convergence implements the convergence criteria deciding when an
// optimization run terminates. Every criterion is a pure, deterministic
// predicate over the optimization history.
package convergence

import (
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
)

// criteria holds the recognized criterion names.
var criteria = registry.New[optimization.Criterion]("convergence criterion")

func init() {
	criteria.Register("displacement", func(s registry.Settings) (optimization.Criterion, error) {
		return NewDisplacement(s)
	})
	criteria.Register("force-torque", func(s registry.Settings) (optimization.Criterion, error) {
		return NewForceTorque(s)
	})
}

// New constructs a criterion from a recognized name ("displacement",
// "force-torque") and a settings mapping. An unrecognized name is a
// configuration error raised before any evaluation occurs.
func New(name string, settings registry.Settings) (optimization.Criterion, error) {
	return criteria.Resolve(name, settings)
}

// Names returns the recognized criterion names.
func Names() []string { return criteria.Names() }
