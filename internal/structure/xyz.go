package structure

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"
)

// ParseXYZ reads the first frame of an XYZ stream: atom count, comment
// line (an extended-XYZ Lattice="..." entry becomes the periodic cell),
// then one "symbol x y z" line per atom.
func ParseXYZ(r io.Reader) (*Atoms, error) {
	sc := bufio.NewScanner(r)

	if !sc.Scan() {
		return nil, fmt.Errorf("xyz: missing atom count line")
	}
	n, err := strconv.Atoi(strings.TrimSpace(sc.Text()))
	if err != nil || n <= 0 {
		return nil, fmt.Errorf("xyz: bad atom count %q", strings.TrimSpace(sc.Text()))
	}

	if !sc.Scan() {
		return nil, fmt.Errorf("xyz: missing comment line")
	}
	cell, hasCell, err := parseLattice(sc.Text())
	if err != nil {
		return nil, err
	}

	symbols := make([]string, 0, n)
	positions := make([]Vec, 0, n)
	for i := 0; i < n; i++ {
		if !sc.Scan() {
			return nil, fmt.Errorf("xyz: expected %d atoms, got %d", n, i)
		}
		fields := strings.Fields(sc.Text())
		if len(fields) < 4 {
			return nil, fmt.Errorf("xyz: atom line %d: expected symbol and 3 coordinates", i)
		}
		var p Vec
		for k := 0; k < 3; k++ {
			p[k], err = strconv.ParseFloat(fields[1+k], 64)
			if err != nil {
				return nil, fmt.Errorf("xyz: atom line %d: %w", i, err)
			}
		}
		symbols = append(symbols, fields[0])
		positions = append(positions, p)
	}
	if err := sc.Err(); err != nil {
		return nil, err
	}

	atoms, err := NewAtoms(symbols, positions)
	if err != nil {
		return nil, err
	}
	if hasCell {
		atoms = atoms.WithCell(cell)
	}
	return atoms, nil
}

// ReadXYZFile reads the first frame of an XYZ file.
func ReadXYZFile(path string) (*Atoms, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	return ParseXYZ(f)
}

// parseLattice extracts a Lattice="ax ay az bx by bz cx cy cz" entry from
// an extended-XYZ comment line, if present.
func parseLattice(comment string) ([3]Vec, bool, error) {
	var cell [3]Vec
	idx := strings.Index(comment, `Lattice="`)
	if idx < 0 {
		return cell, false, nil
	}
	rest := comment[idx+len(`Lattice="`):]
	end := strings.Index(rest, `"`)
	if end < 0 {
		return cell, false, fmt.Errorf("xyz: unterminated Lattice entry")
	}
	fields := strings.Fields(rest[:end])
	if len(fields) != 9 {
		return cell, false, fmt.Errorf("xyz: Lattice entry has %d components, want 9", len(fields))
	}
	for i, field := range fields {
		v, err := strconv.ParseFloat(field, 64)
		if err != nil {
			return cell, false, fmt.Errorf("xyz: Lattice entry: %w", err)
		}
		cell[i/3][i%3] = v
	}
	return cell, true, nil
}
