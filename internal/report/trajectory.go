package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// writeXYZFrame writes one XYZ frame with the step index and energy in the
// comment line, including the cell for periodic systems.
func writeXYZFrame(w io.Writer, atoms *structure.Atoms, step int, energy float64) error {
	if _, err := fmt.Fprintf(w, "%d\n", atoms.Len()); err != nil {
		return err
	}
	comment := fmt.Sprintf("step=%d energy=%.10f", step, energy)
	if cell, ok := atoms.Cell(); ok {
		comment += fmt.Sprintf(` Lattice="%g %g %g %g %g %g %g %g %g"`,
			cell[0][0], cell[0][1], cell[0][2],
			cell[1][0], cell[1][1], cell[1][2],
			cell[2][0], cell[2][1], cell[2][2])
	}
	if _, err := fmt.Fprintln(w, comment); err != nil {
		return err
	}
	for i := 0; i < atoms.Len(); i++ {
		p := atoms.Position(i)
		if _, err := fmt.Fprintf(w, "%-3s %20.12f %20.12f %20.12f\n", atoms.Symbol(i), p[0], p[1], p[2]); err != nil {
			return err
		}
	}
	return nil
}

// WriteTrajectory writes the ordered (positions, energy) frames of the run,
// one XYZ frame per step.
func WriteTrajectory(w io.Writer, h *optimization.History) error {
	bw := bufio.NewWriter(w)
	for i, step := range h.Steps() {
		if err := writeXYZFrame(bw, step.Atoms, i, step.Energy); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// SaveTrajectory writes the trajectory to path.
func SaveTrajectory(path string, h *optimization.History) error {
	f, err := os.Create(path)
	if err != nil {
		return persistErr(err, "create trajectory")
	}
	defer f.Close()

	if err := WriteTrajectory(f, h); err != nil {
		return persistErr(err, "write trajectory")
	}
	if err := f.Close(); err != nil {
		return persistErr(err, "close trajectory")
	}
	return nil
}

// SaveFinalGeometry writes the last step's atom set as a single XYZ frame.
func SaveFinalGeometry(path string, h *optimization.History) error {
	last := h.Last()
	if last == nil {
		return persistErr(fmt.Errorf("empty history"), "final geometry")
	}

	f, err := os.Create(path)
	if err != nil {
		return persistErr(err, "create final geometry")
	}
	defer f.Close()

	bw := bufio.NewWriter(f)
	if err := writeXYZFrame(bw, last.Atoms, h.Len()-1, last.Energy); err != nil {
		return persistErr(err, "write final geometry")
	}
	if err := bw.Flush(); err != nil {
		return persistErr(err, "write final geometry")
	}
	if err := f.Close(); err != nil {
		return persistErr(err, "close final geometry")
	}
	return nil
}
