package calculator

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"github.com/siegfriedkaidisch/ROMIS/internal/errors"
	"github.com/siegfriedkaidisch/ROMIS/internal/registry"
	"github.com/siegfriedkaidisch/ROMIS/internal/structure"
)

// VASP runs the VASP DFT code in a scratch directory for every evaluation:
// it writes POSCAR/INCAR/KPOINTS, invokes the configured command, and
// parses energy and forces from OUTCAR. The call blocks for the full DFT
// run; a non-zero exit, missing output or malformed OUTCAR is fatal.
type VASP struct {
	// Command invoked for each evaluation, e.g. "vasp_std" or
	// "mpirun -np 64 vasp_std" (run through the shell when it has spaces).
	Command string
	// Dir is the scratch directory for input/output files.
	Dir string
	// INCAR holds the raw INCAR tags, written one "KEY = value" per line.
	INCAR map[string]string
	// KPoints is the Gamma-centered k-point grid.
	KPoints [3]int

	logger *zap.Logger
}

// NewVASP builds the adapter from settings: command, dir, kpoints
// ([3]int), and incar (mapping of INCAR tags).
func NewVASP(s registry.Settings) (*VASP, error) {
	command, err := s.String("command", "vasp_std")
	if err != nil {
		return nil, err
	}
	dir, err := s.String("dir", "vasp")
	if err != nil {
		return nil, err
	}

	v := &VASP{
		Command: command,
		Dir:     dir,
		INCAR:   map[string]string{},
		KPoints: [3]int{1, 1, 1},
	}

	if raw, ok := s["incar"]; ok {
		tags, ok := raw.(map[string]interface{})
		if !ok {
			return nil, errors.Configuration("setting %q: expected mapping, got %T", "incar", raw)
		}
		for k, val := range tags {
			v.INCAR[strings.ToUpper(k)] = fmt.Sprint(val)
		}
	}
	if raw, ok := s["kpoints"]; ok {
		grid, ok := raw.([]interface{})
		if !ok || len(grid) != 3 {
			return nil, errors.Configuration("setting %q: expected list of 3 integers", "kpoints")
		}
		for i, val := range grid {
			n, ok := val.(int)
			if !ok || n < 1 {
				return nil, errors.Configuration("setting %q: expected positive integers", "kpoints")
			}
			v.KPoints[i] = n
		}
	}

	logger, _ := zap.NewProduction()
	v.logger = logger.Named("vasp")
	return v, nil
}

// Calculate writes the input files, runs VASP and parses OUTCAR.
func (v *VASP) Calculate(ctx context.Context, atoms *structure.Atoms) (Result, error) {
	if _, ok := atoms.Cell(); !ok {
		return Result{}, errors.Configuration("vasp requires a periodic cell")
	}

	if err := os.MkdirAll(v.Dir, 0o755); err != nil {
		return Result{}, Failure(err, "prepare scratch dir")
	}
	order, err := v.writeInputs(atoms)
	if err != nil {
		return Result{}, Failure(err, "write inputs")
	}

	v.logger.Info("running vasp",
		zap.String("command", v.Command),
		zap.String("dir", v.Dir),
		zap.Int("atoms", atoms.Len()),
	)

	cmd := exec.CommandContext(ctx, "sh", "-c", v.Command)
	cmd.Dir = v.Dir
	if out, err := cmd.CombinedOutput(); err != nil {
		v.logger.Error("vasp run failed", zap.Error(err), zap.ByteString("tail", tail(out, 2048)))
		return Result{}, Failure(err, "run vasp")
	}

	res, err := v.parseOUTCAR(filepath.Join(v.Dir, "OUTCAR"), order, atoms.Len())
	if err != nil {
		return Result{}, err
	}
	if err := Validate(res, atoms.Len()); err != nil {
		return Result{}, err
	}
	return res, nil
}

// writeInputs writes POSCAR, INCAR and KPOINTS. POSCAR groups atoms by
// species as VASP requires; the returned order maps POSCAR line number to
// the original atom index so parsed forces can be unshuffled.
func (v *VASP) writeInputs(atoms *structure.Atoms) ([]int, error) {
	cell, _ := atoms.Cell()

	// Group atom indices by species, keeping first-seen species order.
	var species []string
	bySpecies := map[string][]int{}
	for i := 0; i < atoms.Len(); i++ {
		sym := atoms.Symbol(i)
		if _, seen := bySpecies[sym]; !seen {
			species = append(species, sym)
		}
		bySpecies[sym] = append(bySpecies[sym], i)
	}
	var order []int
	for _, sym := range species {
		order = append(order, bySpecies[sym]...)
	}

	var poscar strings.Builder
	poscar.WriteString("ROMIS generated\n1.0\n")
	for _, row := range cell {
		fmt.Fprintf(&poscar, " %21.16f %21.16f %21.16f\n", row[0], row[1], row[2])
	}
	poscar.WriteString(strings.Join(species, " ") + "\n")
	for i, sym := range species {
		if i > 0 {
			poscar.WriteString(" ")
		}
		poscar.WriteString(strconv.Itoa(len(bySpecies[sym])))
	}
	poscar.WriteString("\nCartesian\n")
	for _, i := range order {
		p := atoms.Position(i)
		fmt.Fprintf(&poscar, " %21.16f %21.16f %21.16f\n", p[0], p[1], p[2])
	}
	if err := os.WriteFile(filepath.Join(v.Dir, "POSCAR"), []byte(poscar.String()), 0o644); err != nil {
		return nil, err
	}

	var incar strings.Builder
	for tag, val := range v.INCAR {
		fmt.Fprintf(&incar, "%s = %s\n", tag, val)
	}
	if err := os.WriteFile(filepath.Join(v.Dir, "INCAR"), []byte(incar.String()), 0o644); err != nil {
		return nil, err
	}

	kpoints := fmt.Sprintf("ROMIS generated\n0\nGamma\n%d %d %d\n0 0 0\n",
		v.KPoints[0], v.KPoints[1], v.KPoints[2])
	if err := os.WriteFile(filepath.Join(v.Dir, "KPOINTS"), []byte(kpoints), 0o644); err != nil {
		return nil, err
	}
	return order, nil
}

// parseOUTCAR extracts the last TOTEN energy and the last TOTAL-FORCE block.
func (v *VASP) parseOUTCAR(path string, order []int, natoms int) (Result, error) {
	f, err := os.Open(path)
	if err != nil {
		return Result{}, Failure(err, "open OUTCAR")
	}
	defer f.Close()

	var (
		res      Result
		haveE    bool
		haveF    bool
		inForces bool
		row      int
	)
	forces := make([]structure.Vec, natoms)

	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 4*1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		switch {
		case strings.Contains(line, "free  energy   TOTEN"):
			fields := strings.Fields(line)
			// free  energy   TOTEN  =     -123.456 eV
			if len(fields) >= 5 {
				if e, err := strconv.ParseFloat(fields[4], 64); err == nil {
					res.Energy = e
					haveE = true
				}
			}
		case strings.Contains(line, "TOTAL-FORCE"):
			inForces = true
			row = -1 // the next line is the dashes separator
		case inForces:
			if row == -1 {
				row = 0
				continue
			}
			if strings.HasPrefix(strings.TrimSpace(line), "---") || row >= natoms {
				inForces = false
				haveF = row >= natoms
				continue
			}
			fields := strings.Fields(line)
			if len(fields) < 6 {
				return Result{}, errors.Newf("malformed OUTCAR force line %q", line).
					WithKind(errors.KindCalculator).WithComponent("calculator")
			}
			var fvec structure.Vec
			for axis := 0; axis < 3; axis++ {
				val, err := strconv.ParseFloat(fields[3+axis], 64)
				if err != nil {
					return Result{}, errors.Wrap(err, "malformed OUTCAR force value").
						WithKind(errors.KindCalculator).WithComponent("calculator")
				}
				fvec[axis] = val
			}
			forces[order[row]] = fvec
			row++
			if row == natoms {
				inForces = false
				haveF = true
			}
		}
	}
	if err := scanner.Err(); err != nil {
		return Result{}, Failure(err, "read OUTCAR")
	}
	if !haveE || !haveF {
		return Result{}, errors.New("OUTCAR missing energy or forces, calculation likely did not finish").
			WithKind(errors.KindCalculator).WithComponent("calculator")
	}
	res.Forces = forces
	return res, nil
}

func tail(b []byte, n int) []byte {
	if len(b) <= n {
		return b
	}
	return b[len(b)-n:]
}
