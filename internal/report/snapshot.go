package report

import (
	"encoding/json"
	"io"
	"os"

	"github.com/klauspost/compress/gzip"

	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// Snapshot is the serialized form of the full history. Long DFT runs
// accumulate thousands of force vectors, so the snapshot goes to disk
// gzip-compressed.
type Snapshot struct {
	Steps []StepRecord `json:"steps"`
}

type StepRecord struct {
	Energy         float64         `json:"energy"`
	ForcesOnAtoms  []structure.Vec `json:"forces_on_atoms"`
	ForcesRaw      []structure.Vec `json:"forces_raw"`
	ForcesAllowed  []structure.Vec `json:"forces_allowed"`
	TorquesRaw     []structure.Vec `json:"torques_raw"`
	TorquesAllowed []structure.Vec `json:"torques_allowed"`
	Atoms          AtomsRecord     `json:"atoms"`
}

type AtomsRecord struct {
	Symbols   []string        `json:"symbols"`
	Positions []structure.Vec `json:"positions"`
	Cell      *[3]structure.Vec `json:"cell,omitempty"`
}

func makeSnapshot(h *optimization.History) Snapshot {
	steps := h.Steps()
	snap := Snapshot{Steps: make([]StepRecord, len(steps))}
	for i, step := range steps {
		rec := StepRecord{
			Energy:        step.Energy,
			ForcesOnAtoms: step.ForcesOnAtoms,
			Atoms: AtomsRecord{
				Symbols:   symbolsOf(step.Atoms),
				Positions: step.Atoms.Positions(),
			},
		}
		if cell, ok := step.Atoms.Cell(); ok {
			c := cell
			rec.Atoms.Cell = &c
		}
		if ft := step.FragmentForces; ft != nil {
			rec.ForcesRaw = ft.ForcesRaw
			rec.ForcesAllowed = ft.ForcesAllowed
			rec.TorquesRaw = ft.TorquesRaw
			rec.TorquesAllowed = ft.TorquesAllowed
		}
		snap.Steps[i] = rec
	}
	return snap
}

func symbolsOf(atoms *structure.Atoms) []string {
	symbols := make([]string, atoms.Len())
	for i := range symbols {
		symbols[i] = atoms.Symbol(i)
	}
	return symbols
}

// WriteHistory writes the gzip-compressed JSON snapshot of all steps.
func WriteHistory(w io.Writer, h *optimization.History) error {
	zw := gzip.NewWriter(w)
	if err := json.NewEncoder(zw).Encode(makeSnapshot(h)); err != nil {
		zw.Close()
		return err
	}
	return zw.Close()
}

// SaveHistory writes the history snapshot to path.
func SaveHistory(path string, h *optimization.History) error {
	f, err := os.Create(path)
	if err != nil {
		return persistErr(err, "create history snapshot")
	}
	defer f.Close()

	if err := WriteHistory(f, h); err != nil {
		return persistErr(err, "write history snapshot")
	}
	if err := f.Close(); err != nil {
		return persistErr(err, "close history snapshot")
	}
	return nil
}

// ReadHistory decodes a history snapshot written by WriteHistory. Used by
// tooling that post-processes finished runs.
func ReadHistory(r io.Reader) (Snapshot, error) {
	var snap Snapshot
	zr, err := gzip.NewReader(r)
	if err != nil {
		return snap, err
	}
	defer zr.Close()
	if err := json.NewDecoder(zr).Decode(&snap); err != nil {
		return snap, err
	}
	return snap, nil
}
