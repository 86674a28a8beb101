// Package config loads process-level configuration from the environment:
// logging, the output artifact names of a run, and the optional monitor
// HTTP endpoint. Job-level configuration (geometry, fragments, component
// choices) comes from the YAML job file instead, so the same process
// environment can drive many jobs.
package config

import (
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v10"
)

type Config struct {
	Environment string `env:"ENV" envDefault:"development"`
	Logging     struct {
		Level  string `env:"LOG_LEVEL" envDefault:"info"`
		Format string `env:"LOG_FORMAT" envDefault:"json"`
		Output string `env:"LOG_OUTPUT" envDefault:"stderr"`
	}
	Monitor struct {
		Enabled         bool          `env:"MONITOR_ENABLED" envDefault:"false"`
		Port            int           `env:"MONITOR_PORT" envDefault:"8080"`
		ReadTimeout     time.Duration `env:"MONITOR_READ_TIMEOUT" envDefault:"30s"`
		WriteTimeout    time.Duration `env:"MONITOR_WRITE_TIMEOUT" envDefault:"30s"`
		IdleTimeout     time.Duration `env:"MONITOR_IDLE_TIMEOUT" envDefault:"120s"`
		ShutdownTimeout time.Duration `env:"MONITOR_SHUTDOWN_TIMEOUT" envDefault:"30s"`
	}
	Output struct {
		Dir           string `env:"OUTPUT_DIR" envDefault:"."`
		Summary       string `env:"OUTPUT_SUMMARY" envDefault:"opt.out"`
		Trajectory    string `env:"OUTPUT_TRAJECTORY" envDefault:"opt_trajectory.xyz"`
		FinalGeometry string `env:"OUTPUT_FINAL_GEOMETRY" envDefault:"final_geometry.xyz"`
		History       string `env:"OUTPUT_HISTORY" envDefault:"opt_history.json.gz"`
		EnergyPlot    string `env:"OUTPUT_ENERGY_PLOT" envDefault:"opt_energy.png"`
	}
}

func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}

	// Development runs default to verbose logging unless overridden.
	if cfg.Environment == "development" && cfg.Logging.Level == "info" {
		cfg.Logging.Level = "debug"
	}

	return cfg, nil
}

// SummaryPath returns the summary table path under the output directory.
func (c *Config) SummaryPath() string { return filepath.Join(c.Output.Dir, c.Output.Summary) }

// TrajectoryPath returns the trajectory path under the output directory.
func (c *Config) TrajectoryPath() string { return filepath.Join(c.Output.Dir, c.Output.Trajectory) }

// FinalGeometryPath returns the final geometry path under the output directory.
func (c *Config) FinalGeometryPath() string {
	return filepath.Join(c.Output.Dir, c.Output.FinalGeometry)
}

// HistoryPath returns the history snapshot path under the output directory.
func (c *Config) HistoryPath() string { return filepath.Join(c.Output.Dir, c.Output.History) }

// EnergyPlotPath returns the energy plot path under the output directory.
func (c *Config) EnergyPlotPath() string { return filepath.Join(c.Output.Dir, c.Output.EnergyPlot) }
