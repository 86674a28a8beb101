// Package report derives the persisted artifacts of an optimization run
// from the history: the fixed-width summary table, the XYZ trajectory and
// final geometry, the compressed history snapshot and the energy plot.
// All derivations are pure reads of the history; writers acquire their file
// scoped (open, write, close on every path) and surface write errors as
// persistence failures without retrying.
package report

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// persistErr wraps a write error as a persistence failure.
func persistErr(err error, op string) error {
	if err == nil {
		return nil
	}
	return errors.Wrap(err, "artifact write failed").
		WithKind(errors.KindPersistence).
		WithComponent("report").
		WithOperation(op)
}

// WriteSummary writes the tabular run summary: one row per step with the
// energy, the maximum raw/allowed fragment force and torque magnitudes with
// the fragment index attaining them, and the maximum per-atom force with
// its atom index.
func WriteSummary(w io.Writer, h *optimization.History) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "%5s|%19s|%39s|%39s|%19s|\n",
		"", "", "Max. Force on Fragments [eV/A] ", "Max. Torque on Fragments [eV] ", "Max. Force on ")
	fmt.Fprintf(bw, "%-5s|%19s|%14s%5s|%14s%5s|%14s%5s|%14s%5s|%14s%5s|\n",
		"Step", "Energy [eV] ",
		"Raw", "# ", "Allowed", "# ",
		"Raw", "# ", "Allowed", "# ",
		"Atoms [eV/A]", "# ")
	for i := 0; i < 5+1+19+1+39+1+39+1+19+1; i++ {
		bw.WriteByte('=')
	}
	bw.WriteByte('\n')

	for i, step := range h.Steps() {
		ft := step.FragmentForces
		fRaw, ifRaw := structure.MaxNorm(ft.ForcesRaw)
		fAll, ifAll := structure.MaxNorm(ft.ForcesAllowed)
		tRaw, itRaw := structure.MaxNorm(ft.TorquesRaw)
		tAll, itAll := structure.MaxNorm(ft.TorquesAllowed)
		fAtoms, ifAtoms := structure.MaxNorm(step.ForcesOnAtoms)

		fmt.Fprintf(bw, "%-5d|%19.10f|%14.10f%5d|%14.10f%5d|%14.10f%5d|%14.10f%5d|%14.10f%5d|\n",
			i, step.Energy,
			fRaw, ifRaw, fAll, ifAll,
			tRaw, itRaw, tAll, itAll,
			fAtoms, ifAtoms)
	}
	return bw.Flush()
}

// SaveSummary writes the summary table to path.
func SaveSummary(path string, h *optimization.History) error {
	f, err := os.Create(path)
	if err != nil {
		return persistErr(err, "create summary")
	}
	defer f.Close()

	if err := WriteSummary(f, h); err != nil {
		return persistErr(err, "write summary")
	}
	if err := f.Close(); err != nil {
		return persistErr(err, "close summary")
	}
	return nil
}
