package physics

import (
	"math"

	"github.com/notargets/gorad/utils"
)

// FluxSolver is the radiative-transfer engine. Implementations write the
// flux rows for the columns in blk and nothing else; the call has no other
// side effects. The production engine is an external collaborator, supplied
// by the enclosing driver.
type FluxSolver interface {
	ComputeRadiativeTransfer(blk utils.ColumnBlock, atm *Atmosphere, flux *FluxProfiles) error
}

// Stefan-Boltzmann constant, W/(m^2 K^4)
const sigmaSB = 5.670374419e-8

// GraySolver is a stand-in flux engine for benchmarking and tests: a gray
// two-stream closure driven by the half-level temperatures and the solar
// geometry. Deterministic, cheap, and column-local, so it exercises every
// property the coupling core depends on without the real engine.
type GraySolver struct {
	// OpticalDepth is the total gray longwave optical depth of the column
	OpticalDepth float64
}

func NewGraySolver() *GraySolver {
	return &GraySolver{OpticalDepth: 2.0}
}

func (gs *GraySolver) ComputeRadiativeTransfer(blk utils.ColumnBlock, atm *Atmosphere,
	flux *FluxProfiles) error {
	var (
		shape = atm.Shape
		nhalf = shape.NHalf()
	)
	for col := blk.Start; col < blk.End; col++ {
		var (
			c      = col - 1
			swUp   = flux.SWUp.RawRowView(c)
			swDn   = flux.SWDn.RawRowView(c)
			lwUp   = flux.LWUp.RawRowView(c)
			lwDn   = flux.LWDn.RawRowView(c)
			mu0    = atm.CosSolarZenith[c]
			s0     = atm.SolarIrradiance[c]
			albedo = atm.SWAlbedoDirect[c][0]
			emiss  = atm.LWEmissivity[c][0]
			psurf  = atm.PressureHL[c][nhalf-1]
		)
		surfEmission := emiss * sigmaSB * math.Pow(atm.SkinTemperature[c], 4)
		for l := 0; l < nhalf; l++ {
			// Gray optical depth grows linearly with pressure from the top
			tau := gs.OpticalDepth * atm.PressureHL[c][l] / psurf
			trans := math.Exp(-tau)
			swDn[l] = s0 * mu0 * trans
			swUp[l] = s0 * mu0 * albedo * math.Exp(-(2*gs.OpticalDepth - tau))
			atmEmission := sigmaSB * math.Pow(atm.TemperatureHL[c][l], 4)
			lwUp[l] = surfEmission*trans + atmEmission*(1-trans)
			lwDn[l] = atmEmission * (1 - trans)
		}
	}
	return nil
}
