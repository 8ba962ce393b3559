package physics

import (
	"fmt"
	"math"
)

// CorrectionRecord is the inference model's per-column output. The heating
// rates are diagnostic only; the four delta arrays carry the flux correction
// in the additive/diffuse basis (add = up+dn, diff = up-dn) on half levels.
// Each record is consumed exactly once by the flux blender.
type CorrectionRecord struct {
	HeatingRateSW []float64 // NLev, diagnostic
	HeatingRateLW []float64 // NLev, diagnostic
	DeltaSWDiff   []float64 // NLev+1
	DeltaSWAdd    []float64 // NLev+1
	DeltaLWDiff   []float64 // NLev+1
	DeltaLWAdd    []float64 // NLev+1
}

func NewCorrectionRecord(shape Shape) (cr *CorrectionRecord) {
	cr = &CorrectionRecord{
		HeatingRateSW: make([]float64, shape.NLev),
		HeatingRateLW: make([]float64, shape.NLev),
		DeltaSWDiff:   make([]float64, shape.NHalf()),
		DeltaSWAdd:    make([]float64, shape.NHalf()),
		DeltaLWDiff:   make([]float64, shape.NHalf()),
		DeltaLWAdd:    make([]float64, shape.NHalf()),
	}
	return
}

func (cr *CorrectionRecord) CheckShape(shape Shape) {
	if len(cr.DeltaSWDiff) != shape.NHalf() || len(cr.DeltaSWAdd) != shape.NHalf() ||
		len(cr.DeltaLWDiff) != shape.NHalf() || len(cr.DeltaLWAdd) != shape.NHalf() ||
		len(cr.HeatingRateSW) != shape.NLev || len(cr.HeatingRateLW) != shape.NLev {
		panic(fmt.Sprintf("correction record shape mismatch, want NLev=%d", shape.NLev))
	}
}

// CheckFinite reports the first non-finite delta entry. The coupling
// contract has no partial-result semantics, so the caller decides whether
// to warn or abort; the value is never clamped here.
func (cr *CorrectionRecord) CheckFinite() error {
	deltas := []struct {
		name string
		vals []float64
	}{
		{"delta_sw_diff", cr.DeltaSWDiff},
		{"delta_sw_add", cr.DeltaSWAdd},
		{"delta_lw_diff", cr.DeltaLWDiff},
		{"delta_lw_add", cr.DeltaLWAdd},
	}
	for _, d := range deltas {
		for l, v := range d.vals {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return fmt.Errorf("non-finite correction %s[%d] = %v", d.name, l, v)
			}
		}
	}
	return nil
}

// Zero clears the record in place so a reused buffer never leaks the
// previous iteration's corrections.
func (cr *CorrectionRecord) Zero() {
	for _, v := range [][]float64{
		cr.HeatingRateSW, cr.HeatingRateLW,
		cr.DeltaSWDiff, cr.DeltaSWAdd, cr.DeltaLWDiff, cr.DeltaLWAdd,
	} {
		for i := range v {
			v[i] = 0
		}
	}
}
