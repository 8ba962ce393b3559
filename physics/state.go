package physics

import "fmt"

// GasIndex orders the gas mixing-ratio profiles carried in a StateRecord.
// The order is part of the exchange contract with the inference model and
// must never change.
type GasIndex int

const (
	GasH2O GasIndex = iota
	GasO3
	GasCO2
	GasN2O
	GasCH4
	GasO2
	GasCFC11
	GasCFC12
	GasHCFC22
	GasCCl4
	GasCount
)

var gasNames = [GasCount]string{
	"h2o", "o3", "co2", "n2o", "ch4", "o2", "cfc11", "cfc12", "hcfc22", "ccl4",
}

func (g GasIndex) String() string {
	return gasNames[g]
}

// Shape fixes the array dimensions of every record exchanged over the
// coupling channel. Fluxes and the correction deltas live on half levels,
// of which there is one more than full levels.
type Shape struct {
	NLev     int // Full (layer) levels
	NSWBand  int // Shortwave albedo bands
	NLWBand  int // Longwave emissivity bands
	NAerosol int // Aerosol species
}

func (s Shape) NHalf() int {
	return s.NLev + 1
}

// StateRecord is the per-column physical-state snapshot consumed by the
// inference model. One record per column slot in a block; the buffers are
// allocated once and overwritten in place each iteration, never reallocated.
type StateRecord struct {
	SkinTemperature float64
	CosSolarZenith  float64
	SolarIrradiance float64
	SWAlbedoDiffuse []float64   // Per SW band
	SWAlbedoDirect  []float64   // Per SW band
	LWEmissivity    []float64   // Per LW band
	GasMixingRatio  [][]float64 // [GasCount][NLev]
	AerosolMMR      [][]float64 // [NAerosol][NLev]
	CloudFraction   []float64   // NLev
	LiquidWater     []float64   // NLev
	IceWater        []float64   // NLev
	LiquidRe        []float64   // NLev
	IceRe           []float64   // NLev
	TemperatureHL   []float64   // NLev+1
	PressureHL      []float64   // NLev+1
	CloudOverlap    []float64   // NLev
}

func NewStateRecord(shape Shape) (sr *StateRecord) {
	sr = &StateRecord{
		SWAlbedoDiffuse: make([]float64, shape.NSWBand),
		SWAlbedoDirect:  make([]float64, shape.NSWBand),
		LWEmissivity:    make([]float64, shape.NLWBand),
		GasMixingRatio:  make([][]float64, GasCount),
		AerosolMMR:      make([][]float64, shape.NAerosol),
		CloudFraction:   make([]float64, shape.NLev),
		LiquidWater:     make([]float64, shape.NLev),
		IceWater:        make([]float64, shape.NLev),
		LiquidRe:        make([]float64, shape.NLev),
		IceRe:           make([]float64, shape.NLev),
		TemperatureHL:   make([]float64, shape.NHalf()),
		PressureHL:      make([]float64, shape.NHalf()),
		CloudOverlap:    make([]float64, shape.NLev),
	}
	for g := range sr.GasMixingRatio {
		sr.GasMixingRatio[g] = make([]float64, shape.NLev)
	}
	for a := range sr.AerosolMMR {
		sr.AerosolMMR[a] = make([]float64, shape.NLev)
	}
	return
}

// CopyFrom deep-copies src into the record's existing buffers. Both records
// must share a shape; the destination is never reallocated.
func (sr *StateRecord) CopyFrom(src *StateRecord) {
	sr.SkinTemperature = src.SkinTemperature
	sr.CosSolarZenith = src.CosSolarZenith
	sr.SolarIrradiance = src.SolarIrradiance
	copy(sr.SWAlbedoDiffuse, src.SWAlbedoDiffuse)
	copy(sr.SWAlbedoDirect, src.SWAlbedoDirect)
	copy(sr.LWEmissivity, src.LWEmissivity)
	for g := range sr.GasMixingRatio {
		copy(sr.GasMixingRatio[g], src.GasMixingRatio[g])
	}
	for a := range sr.AerosolMMR {
		copy(sr.AerosolMMR[a], src.AerosolMMR[a])
	}
	copy(sr.CloudFraction, src.CloudFraction)
	copy(sr.LiquidWater, src.LiquidWater)
	copy(sr.IceWater, src.IceWater)
	copy(sr.LiquidRe, src.LiquidRe)
	copy(sr.IceRe, src.IceRe)
	copy(sr.TemperatureHL, src.TemperatureHL)
	copy(sr.PressureHL, src.PressureHL)
	copy(sr.CloudOverlap, src.CloudOverlap)
}

// CheckShape asserts the record matches shape. A mismatch means the two
// sides of the coupling channel disagree on the exchange contract, which is
// unrecoverable.
func (sr *StateRecord) CheckShape(shape Shape) {
	if len(sr.TemperatureHL) != shape.NHalf() || len(sr.CloudFraction) != shape.NLev ||
		len(sr.SWAlbedoDiffuse) != shape.NSWBand || len(sr.LWEmissivity) != shape.NLWBand ||
		len(sr.GasMixingRatio) != int(GasCount) || len(sr.AerosolMMR) != shape.NAerosol {
		panic(fmt.Sprintf("state record shape mismatch, want NLev=%d NSW=%d NLW=%d NAer=%d",
			shape.NLev, shape.NSWBand, shape.NLWBand, shape.NAerosol))
	}
}
