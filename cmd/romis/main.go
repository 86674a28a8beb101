package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/siegfriedkaidisch/ROMIS/internal/calculator"
	"github.com/siegfriedkaidisch/ROMIS/internal/config"
	"github.com/siegfriedkaidisch/ROMIS/internal/logging"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization/convergence"
	"github.com/siegfriedkaidisch/ROMIS/internal/server"
	"github.com/siegfriedkaidisch/ROMIS/internal/session"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "romis",
		Short: "rigid-fragment geometry optimizer",
		Long: "ROMIS optimizes atomic geometries composed of rigid fragments:\n" +
			"fragments translate and rotate as units under the net forces and\n" +
			"torques reported by an external calculator.",
		SilenceUsage: true,
	}

	runCmd := &cobra.Command{
		Use:   "run <job.yaml>",
		Short: "run an optimization job",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runJob(args[0])
		},
	}

	namesCmd := &cobra.Command{
		Use:   "names",
		Short: "list recognized component names",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("calculators: %s\n", strings.Join(calculator.Names(), ", "))
			fmt.Printf("optimizers: %s\n", strings.Join(optimization.Names(), ", "))
			fmt.Printf("convergence criteria: %s\n", strings.Join(convergence.Names(), ", "))
		},
	}

	rootCmd.AddCommand(runCmd, namesCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func runJob(jobPath string) error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load configuration: %w", err)
	}

	logger, err := logging.NewLogger(&logging.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return fmt.Errorf("initialize logger: %w", err)
	}

	job, err := session.LoadJob(jobPath)
	if err != nil {
		return err
	}
	sess, err := job.Session(cfg, logger)
	if err != nil {
		return err
	}

	// An interrupt cancels the run after the current evaluation; completed
	// steps are already on disk via the per-step checkpoints.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.Monitor.Enabled {
		srv := server.New(cfg, logger, sess)
		go func() {
			if err := srv.Start(); err != nil {
				logger.Error("Monitor server failed", map[string]interface{}{"error": err.Error()})
			}
		}()
		defer func() {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Monitor.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(shutdownCtx); err != nil {
				logger.Error("Monitor server shutdown failed", map[string]interface{}{"error": err.Error()})
			}
		}()
	}

	res, err := sess.Run(ctx)
	if err != nil {
		return err
	}

	fmt.Printf("state: %s\n", res.State)
	fmt.Printf("steps: %d\n", res.History.Len())
	if last := res.History.Last(); last != nil {
		fmt.Printf("energy: %.10f eV\n", last.Energy)
	}
	if !res.Converged {
		return fmt.Errorf("run ended without convergence (%s)", res.State)
	}
	return nil
}
