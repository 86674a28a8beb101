// Package session is the user-facing entry point of a run. A session owns
// the structure under optimization, the chosen calculator, optimizer and
// convergence criterion, and the persistence of run artifacts. Components
// are set either as ready-made instances or by recognized name plus
// settings; unset components fall back to the defaults (gradient descent
// with adaptive step, force-torque criterion). A missing calculator is a
// configuration error raised before anything is evaluated.
package session

import (
	"context"
	"os"
	"sync"

	"github.com/siegfriedkaidisch/ROMIS/internal/calculator"
	"github.com/siegfriedkaidisch/ROMIS/internal/config"
	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization/convergence"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/report"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

const (
	defaultOptimizer = "gdwas"
	defaultCriterion = "force-torque"
)

// Session drives one optimization run from geometry to artifacts.
type Session struct {
	cfg    *config.Config
	logger *logging.Logger

	structure     *structure.Structure
	calc          calculator.Calculator
	opt           optimization.Optimizer
	crit          optimization.Criterion
	maxIterations int

	mu       sync.Mutex
	state    optimization.RunState
	progress *optimization.History
}

// New builds a session around a start geometry. A nil cfg disables artifact
// persistence, which is what library callers and tests usually want; the
// CLI always passes the loaded configuration.
func New(atoms *structure.Atoms, cfg *config.Config, logger *logging.Logger) *Session {
	if logger == nil {
		logger = logging.New(logging.InfoLevel, os.Stderr)
	}
	return &Session{
		cfg:       cfg,
		logger:    logger.WithField("component", "session"),
		structure: structure.New(atoms),
		state:     optimization.StateInit,
	}
}

// Structure returns the structure under optimization.
func (s *Session) Structure() *structure.Structure { return s.structure }

// DefineFragment adds a rigid fragment over the given atom indices.
func (s *Session) DefineFragment(indices []int, constraint structure.Constraint) error {
	if err := s.structure.DefineFragment(indices, constraint); err != nil {
		return errors.Configuration("define fragment: %v", err)
	}
	return nil
}

// UseCalculator sets a ready-made calculator instance.
func (s *Session) UseCalculator(c calculator.Calculator) { s.calc = c }

// SetCalculator resolves a calculator by recognized name.
func (s *Session) SetCalculator(name string, settings registry.Settings) error {
	c, err := calculator.New(name, settings)
	if err != nil {
		return err
	}
	s.calc = c
	return nil
}

// UseOptimizer sets a ready-made optimizer instance.
func (s *Session) UseOptimizer(o optimization.Optimizer) { s.opt = o }

// SetOptimizer resolves an optimizer by recognized name.
func (s *Session) SetOptimizer(name string, settings registry.Settings) error {
	o, err := optimization.New(name, settings)
	if err != nil {
		return err
	}
	s.opt = o
	return nil
}

// UseCriterion sets a ready-made convergence criterion.
func (s *Session) UseCriterion(c optimization.Criterion) { s.crit = c }

// SetCriterion resolves a convergence criterion by recognized name.
func (s *Session) SetCriterion(name string, settings registry.Settings) error {
	c, err := convergence.New(name, settings)
	if err != nil {
		return err
	}
	s.crit = c
	return nil
}

// SetMaxIterations caps the number of optimization moves. Zero keeps the
// engine default.
func (s *Session) SetMaxIterations(n int) { s.maxIterations = n }

// Run drives the optimization to a terminal state. Artifacts are written
// after every step and once more, with the final geometry and the energy
// plot, when the run ends. The returned result stays readable after the
// run.
func (s *Session) Run(ctx context.Context) (*optimization.Result, error) {
	if s.calc == nil {
		return nil, errors.Configuration("no calculator configured, set one of: %v", calculator.Names())
	}
	if s.opt == nil {
		o, err := optimization.New(defaultOptimizer, nil)
		if err != nil {
			return nil, err
		}
		s.opt = o
	}
	if s.crit == nil {
		c, err := convergence.New(defaultCriterion, nil)
		if err != nil {
			return nil, err
		}
		s.crit = c
	}

	s.setState(optimization.StateIterating)
	s.logger.Info("Starting optimization run", map[string]interface{}{
		"atoms":     s.structure.Atoms().Len(),
		"fragments": s.structure.NumFragments(),
	})

	res, runErr := s.opt.Run(ctx, optimization.RunConfig{
		Structure:     s.structure,
		Calculator:    s.calc,
		Criterion:     s.crit,
		Callback:      s.checkpoint,
		MaxIterations: s.maxIterations,
	})
	if res == nil {
		s.setState(optimization.StateFailed)
		return nil, runErr
	}

	s.mu.Lock()
	s.state = res.State
	s.progress = res.History
	s.mu.Unlock()

	if saveErr := s.saveFinal(res.History); saveErr != nil {
		if runErr == nil {
			return res, saveErr
		}
		s.logger.Error("Failed to write final artifacts", map[string]interface{}{"error": saveErr.Error()})
	}

	s.logger.Info("Optimization run finished", map[string]interface{}{
		"state":      string(res.State),
		"iterations": res.Iterations,
		"converged":  res.Converged,
	})
	return res, runErr
}

// checkpoint persists the incremental artifacts after each completed step.
func (s *Session) checkpoint(h *optimization.History) error {
	s.mu.Lock()
	s.progress = h
	s.mu.Unlock()

	if s.cfg == nil {
		return nil
	}
	if err := report.SaveSummary(s.cfg.SummaryPath(), h); err != nil {
		return err
	}
	if err := report.SaveTrajectory(s.cfg.TrajectoryPath(), h); err != nil {
		return err
	}
	return report.SaveHistory(s.cfg.HistoryPath(), h)
}

// saveFinal writes the end-of-run artifacts on top of the last checkpoint.
func (s *Session) saveFinal(h *optimization.History) error {
	if s.cfg == nil || h.Len() == 0 {
		return nil
	}
	if err := s.checkpoint(h); err != nil {
		return err
	}
	if err := report.SaveFinalGeometry(s.cfg.FinalGeometryPath(), h); err != nil {
		return err
	}
	return report.SaveEnergyPlot(s.cfg.EnergyPlotPath(), h)
}

func (s *Session) setState(state optimization.RunState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

// Progress is a point-in-time view of a running or finished session, served
// by the monitor endpoint.
type Progress struct {
	State     string   `json:"state"`
	Steps     int      `json:"steps"`
	Energy    *float64 `json:"energy,omitempty"`
	Converged bool     `json:"converged"`
}

// Progress reports the current state of the session. Safe to call
// concurrently with a running optimization: the history is append-only, so
// a concurrent read sees a consistent prefix.
func (s *Session) Progress() Progress {
	s.mu.Lock()
	state, h := s.state, s.progress
	s.mu.Unlock()

	p := Progress{State: string(state), Converged: state == optimization.StateConverged}
	if h != nil {
		p.Steps = h.Len()
		if last := h.Last(); last != nil {
			e := last.Energy
			p.Energy = &e
		}
	}
	return p
}
