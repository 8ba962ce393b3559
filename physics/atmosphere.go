package physics

import (
	"fmt"
	"math"
)

// Atmosphere holds the externally-owned column profile arrays the driver
// reads from. Accessors are read-only views keyed by 1-based column index;
// the coupling core never mutates them.
type Atmosphere struct {
	Shape Shape
	NCol  int
	// Per-column scalars
	SkinTemperature []float64
	CosSolarZenith  []float64
	SolarIrradiance []float64
	// Per-column, per-band
	SWAlbedoDiffuse [][]float64 // [NCol][NSWBand]
	SWAlbedoDirect  [][]float64 // [NCol][NSWBand]
	LWEmissivity    [][]float64 // [NCol][NLWBand]
	// Per-column, per-level
	GasMixingRatio [GasCount][][]float64 // [gas][NCol][NLev]
	AerosolMMR     [][][]float64         // [species][NCol][NLev]
	CloudFraction  [][]float64
	LiquidWater    [][]float64
	IceWater       [][]float64
	LiquidRe       [][]float64
	IceRe          [][]float64
	TemperatureHL  [][]float64 // [NCol][NLev+1]
	PressureHL     [][]float64 // [NCol][NLev+1]
	CloudOverlap   [][]float64
}

func NewAtmosphere(shape Shape, ncol int) (atm *Atmosphere) {
	alloc := func(n int) (a [][]float64) {
		a = make([][]float64, ncol)
		for c := range a {
			a[c] = make([]float64, n)
		}
		return
	}
	atm = &Atmosphere{
		Shape:           shape,
		NCol:            ncol,
		SkinTemperature: make([]float64, ncol),
		CosSolarZenith:  make([]float64, ncol),
		SolarIrradiance: make([]float64, ncol),
		SWAlbedoDiffuse: alloc(shape.NSWBand),
		SWAlbedoDirect:  alloc(shape.NSWBand),
		LWEmissivity:    alloc(shape.NLWBand),
		AerosolMMR:      make([][][]float64, shape.NAerosol),
		CloudFraction:   alloc(shape.NLev),
		LiquidWater:     alloc(shape.NLev),
		IceWater:        alloc(shape.NLev),
		LiquidRe:        alloc(shape.NLev),
		IceRe:           alloc(shape.NLev),
		TemperatureHL:   alloc(shape.NHalf()),
		PressureHL:      alloc(shape.NHalf()),
		CloudOverlap:    alloc(shape.NLev),
	}
	for g := GasIndex(0); g < GasCount; g++ {
		atm.GasMixingRatio[g] = alloc(shape.NLev)
	}
	for a := range atm.AerosolMMR {
		atm.AerosolMMR[a] = alloc(shape.NLev)
	}
	return
}

// ExtractColumn snapshots column col (1-based) into dst. Called once per
// column per iteration, before the radiation call; dst is never touched
// again within the same iteration.
func (atm *Atmosphere) ExtractColumn(col int, dst *StateRecord) {
	if col < 1 || col > atm.NCol {
		panic(fmt.Sprintf("column %d out of range [1,%d]", col, atm.NCol))
	}
	dst.CheckShape(atm.Shape)
	c := col - 1
	dst.SkinTemperature = atm.SkinTemperature[c]
	dst.CosSolarZenith = atm.CosSolarZenith[c]
	dst.SolarIrradiance = atm.SolarIrradiance[c]
	copy(dst.SWAlbedoDiffuse, atm.SWAlbedoDiffuse[c])
	copy(dst.SWAlbedoDirect, atm.SWAlbedoDirect[c])
	copy(dst.LWEmissivity, atm.LWEmissivity[c])
	for g := GasIndex(0); g < GasCount; g++ {
		copy(dst.GasMixingRatio[g], atm.GasMixingRatio[g][c])
	}
	for a := range atm.AerosolMMR {
		copy(dst.AerosolMMR[a], atm.AerosolMMR[a][c])
	}
	copy(dst.CloudFraction, atm.CloudFraction[c])
	copy(dst.LiquidWater, atm.LiquidWater[c])
	copy(dst.IceWater, atm.IceWater[c])
	copy(dst.LiquidRe, atm.LiquidRe[c])
	copy(dst.IceRe, atm.IceRe[c])
	copy(dst.TemperatureHL, atm.TemperatureHL[c])
	copy(dst.PressureHL, atm.PressureHL[c])
	copy(dst.CloudOverlap, atm.CloudOverlap[c])
}

// Surface and top-of-atmosphere reference values for the synthetic profiles
const (
	refSurfacePressure = 101325. // Pa
	refSurfaceTemp     = 288.15  // K
	refLapseRate       = 6.5e-3  // K/m
	refScaleHeight     = 7000.   // m
	refSolarIrradiance = 1361.   // W/m^2
)

// NewSyntheticAtmosphere builds a deterministic analytic test atmosphere: an
// exponential pressure profile with a linear-lapse troposphere, column-varying
// solar geometry and a single mid-level cloud deck. Identical inputs produce
// identical profiles, which the repeat loop relies on.
func NewSyntheticAtmosphere(shape Shape, ncol int) (atm *Atmosphere) {
	atm = NewAtmosphere(shape, ncol)
	var (
		nhalf = shape.NHalf()
		nlev  = shape.NLev
	)
	for c := 0; c < ncol; c++ {
		frac := float64(c) / float64(ncol)
		atm.SkinTemperature[c] = refSurfaceTemp + 10*math.Sin(2*math.Pi*frac)
		atm.CosSolarZenith[c] = math.Max(0, math.Cos(math.Pi*(frac-0.5)))
		atm.SolarIrradiance[c] = refSolarIrradiance
		for b := 0; b < shape.NSWBand; b++ {
			atm.SWAlbedoDiffuse[c][b] = 0.2
			atm.SWAlbedoDirect[c][b] = 0.15
		}
		for b := 0; b < shape.NLWBand; b++ {
			atm.LWEmissivity[c][b] = 0.98
		}
		for l := 0; l < nhalf; l++ {
			// Half levels from top of atmosphere down to the surface
			z := refScaleHeight * 3 * (1 - float64(l)/float64(nlev))
			atm.PressureHL[c][l] = refSurfacePressure * math.Exp(-z/refScaleHeight)
			atm.TemperatureHL[c][l] = refSurfaceTemp - refLapseRate*z
		}
		for l := 0; l < nlev; l++ {
			atm.GasMixingRatio[GasH2O][c][l] = 1e-2 * math.Exp(-3*float64(nlev-l)/float64(nlev))
			atm.GasMixingRatio[GasO3][c][l] = 1e-6 * math.Exp(-3*float64(l)/float64(nlev))
			atm.GasMixingRatio[GasCO2][c][l] = 415e-6
			atm.GasMixingRatio[GasN2O][c][l] = 332e-9
			atm.GasMixingRatio[GasCH4][c][l] = 1.9e-6
			atm.GasMixingRatio[GasO2][c][l] = 0.2095
			atm.GasMixingRatio[GasCFC11][c][l] = 226e-12
			atm.GasMixingRatio[GasCFC12][c][l] = 503e-12
			atm.GasMixingRatio[GasHCFC22][c][l] = 247e-12
			atm.GasMixingRatio[GasCCl4][c][l] = 78e-12
			for a := 0; a < shape.NAerosol; a++ {
				atm.AerosolMMR[a][c][l] = 1e-9 * float64(a+1)
			}
			// Single cloud deck in the middle third of the column
			if 3*l > nlev && 3*l < 2*nlev {
				atm.CloudFraction[c][l] = 0.5
				atm.LiquidWater[c][l] = 1e-4
				atm.IceWater[c][l] = 2e-5
				atm.LiquidRe[c][l] = 10e-6
				atm.IceRe[c][l] = 30e-6
			}
			atm.CloudOverlap[c][l] = 0.8
		}
	}
	return
}
