package report

import (
	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/siegfriedkaidisch/ROMIS/internal/optimization"
)

// SaveEnergyPlot renders the energy against the step index as a PNG, a
// quick visual check on whether a run is still descending.
func SaveEnergyPlot(path string, h *optimization.History) error {
	energies := h.Energies()
	pts := make(plotter.XYs, len(energies))
	for i, e := range energies {
		pts[i].X = float64(i)
		pts[i].Y = e
	}

	p := plot.New()
	p.Title.Text = "Optimization progress"
	p.X.Label.Text = "Step"
	p.Y.Label.Text = "Energy [eV]"

	line, points, err := plotter.NewLinePoints(pts)
	if err != nil {
		return persistErr(err, "build energy plot")
	}
	p.Add(line, points, plotter.NewGrid())

	if err := p.Save(16*vg.Centimeter, 10*vg.Centimeter, path); err != nil {
		return persistErr(err, "save energy plot")
	}
	return nil
}
