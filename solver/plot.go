package solver

import (
	"image/color"
	"math"

	"github.com/notargets/avs/chart2d"
	utils2 "github.com/notargets/avs/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

var fluxSeriesColors = struct {
	LWUp, LWDn, SWUp, SWDn color.RGBA
}{
	LWUp: color.RGBA{R: 255, A: 255},
	LWDn: color.RGBA{R: 255, G: 165, A: 255},
	SWUp: color.RGBA{B: 255, A: 255},
	SWDn: color.RGBA{G: 255, B: 255, A: 255},
}

// PlotFluxes opens a chart of the domain-mean up/down flux profiles against
// half-level index and blocks displaying it until the process is killed.
// Call after the run and any output writing are complete.
func (rd *RadiationDriver) PlotFluxes() {
	lines := rd.fluxProfileLines()
	var (
		yMin, yMax = float32(math.MaxFloat32), -float32(math.MaxFloat32)
	)
	for _, line := range lines {
		for i := 1; i < len(line); i += 2 {
			if line[i] < yMin {
				yMin = line[i]
			}
			if line[i] > yMax {
				yMax = line[i]
			}
		}
	}
	ch := chart2d.NewChart2D(0, float32(rd.Shape.NHalf()-1), yMin, yMax,
		1024, 1024, utils2.WHITE, utils2.BLACK)
	for col, line := range lines {
		ch.AddLine(line, col)
	}
	for {
	}
}

// fluxProfileLines assembles one polyline per flux component, the domain
// mean on half levels, as x1,y1,x2,y2 segment quads keyed by series color.
func (rd *RadiationDriver) fluxProfileLines() (lines map[color.RGBA][]float32) {
	lines = make(map[color.RGBA][]float32)
	series := []struct {
		col  color.RGBA
		vals []float64
	}{
		{fluxSeriesColors.LWUp, meanProfile(rd.Flux.LWUp)},
		{fluxSeriesColors.LWDn, meanProfile(rd.Flux.LWDn)},
		{fluxSeriesColors.SWUp, meanProfile(rd.Flux.SWUp)},
		{fluxSeriesColors.SWDn, meanProfile(rd.Flux.SWDn)},
	}
	for _, s := range series {
		for l := 0; l < len(s.vals)-1; l++ {
			lines[s.col] = append(lines[s.col],
				float32(l), float32(s.vals[l]),
				float32(l+1), float32(s.vals[l+1]),
			)
		}
	}
	return
}

func meanProfile(m *mat.Dense) (p []float64) {
	rows, cols := m.Dims()
	p = make([]float64, cols)
	for r := 0; r < rows; r++ {
		floats.Add(p, m.RawRowView(r))
	}
	floats.Scale(1/float64(rows), p)
	return
}
