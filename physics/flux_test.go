package physics

import (
	"math"
	"testing"

	"github.com/notargets/gorad/utils"
	"github.com/stretchr/testify/assert"
)

func TestFluxBlend(t *testing.T) {
	shape := Shape{NLev: 1, NSWBand: 1, NLWBand: 1, NAerosol: 1}
	{ // Reference numeric case: add=4, diff=2 over pre-existing 10/10
		fp := NewFluxProfiles(shape, 1)
		for l := 0; l < shape.NHalf(); l++ {
			fp.LWUp.Set(0, l, 10.0)
			fp.LWDn.Set(0, l, 10.0)
		}
		cr := NewCorrectionRecord(shape)
		for l := range cr.DeltaLWAdd {
			cr.DeltaLWAdd[l] = 4.0
			cr.DeltaLWDiff[l] = 2.0
		}
		fp.ApplyCorrections(utils.ColumnBlock{Start: 1, End: 2}, []*CorrectionRecord{cr})
		for l := 0; l < shape.NHalf(); l++ {
			assert.True(t, near(11.0, fp.LWUp.At(0, l)))
			assert.True(t, near(13.0, fp.LWDn.At(0, l)))
			assert.True(t, near(0.0, fp.SWUp.At(0, l)))
			assert.True(t, near(0.0, fp.SWDn.At(0, l)))
		}
	}
	{ // Round trip: blending inverts the additive/diffuse decomposition
		cases := [][2]float64{ // add, diff pairs, including zero and negative
			{4, 2}, {0, 0}, {-3, 5}, {1.5, -2.5}, {-1e3, -1e3}, {0.1, 0},
		}
		for _, tc := range cases {
			add, diff := tc[0], tc[1]
			fp := NewFluxProfiles(shape, 1)
			cr := NewCorrectionRecord(shape)
			for l := range cr.DeltaSWAdd {
				cr.DeltaSWAdd[l] = add
				cr.DeltaSWDiff[l] = diff
			}
			fp.ApplyCorrections(utils.ColumnBlock{Start: 1, End: 2}, []*CorrectionRecord{cr})
			up, dn := fp.SWUp.At(0, 0), fp.SWDn.At(0, 0)
			assert.True(t, near((add-diff)/2, up))
			assert.True(t, near((add+diff)/2, dn))
			assert.True(t, near(add, up+dn))
			assert.True(t, near(diff, dn-up))
		}
	}
	{ // Corrections only touch the columns of their block
		fp := NewFluxProfiles(shape, 4)
		cr := NewCorrectionRecord(shape)
		for l := range cr.DeltaLWAdd {
			cr.DeltaLWAdd[l] = 2.0
		}
		crs := []*CorrectionRecord{cr, cr}
		fp.ApplyCorrections(utils.ColumnBlock{Start: 2, End: 4}, crs)
		for c := 0; c < 4; c++ {
			want := 0.0
			if c == 1 || c == 2 {
				want = 1.0
			}
			for l := 0; l < shape.NHalf(); l++ {
				assert.True(t, near(want, fp.LWUp.At(c, l)))
				assert.True(t, near(want, fp.LWDn.At(c, l)))
			}
		}
	}
	{ // Slot count and domain violations are fatal
		fp := NewFluxProfiles(shape, 2)
		cr := NewCorrectionRecord(shape)
		assert.Panics(t, func() {
			fp.ApplyCorrections(utils.ColumnBlock{Start: 1, End: 3}, []*CorrectionRecord{cr})
		})
		assert.Panics(t, func() {
			fp.ApplyCorrections(utils.ColumnBlock{Start: 2, End: 4}, []*CorrectionRecord{cr, cr})
		})
	}
}

func TestCorrectionRecord(t *testing.T) {
	shape := Shape{NLev: 3, NSWBand: 2, NLWBand: 2, NAerosol: 1}
	{ // Finite check reports the offending entry, never clamps
		cr := NewCorrectionRecord(shape)
		assert.NoError(t, cr.CheckFinite())
		cr.DeltaLWAdd[2] = math.NaN()
		err := cr.CheckFinite()
		assert.Error(t, err)
		assert.Contains(t, err.Error(), "delta_lw_add")
		assert.True(t, math.IsNaN(cr.DeltaLWAdd[2]))
		cr.DeltaLWAdd[2] = math.Inf(1)
		assert.Error(t, cr.CheckFinite())
	}
	{ // Zero clears a reused buffer completely
		cr := NewCorrectionRecord(shape)
		for l := range cr.DeltaSWDiff {
			cr.DeltaSWDiff[l] = 7
			cr.DeltaLWAdd[l] = -7
		}
		cr.HeatingRateSW[0] = 1
		cr.Zero()
		assert.NoError(t, cr.CheckFinite())
		for l := range cr.DeltaSWDiff {
			assert.Zero(t, cr.DeltaSWDiff[l])
			assert.Zero(t, cr.DeltaLWAdd[l])
		}
		assert.Zero(t, cr.HeatingRateSW[0])
	}
}

func TestStateRecordExtraction(t *testing.T) {
	shape := Shape{NLev: 4, NSWBand: 2, NLWBand: 3, NAerosol: 2}
	{ // Synthetic atmosphere is deterministic
		a1 := NewSyntheticAtmosphere(shape, 8)
		a2 := NewSyntheticAtmosphere(shape, 8)
		s1, s2 := NewStateRecord(shape), NewStateRecord(shape)
		for col := 1; col <= 8; col++ {
			a1.ExtractColumn(col, s1)
			a2.ExtractColumn(col, s2)
			assert.Equal(t, s1, s2)
		}
	}
	{ // Extraction snapshots, CopyFrom deep-copies
		atm := NewSyntheticAtmosphere(shape, 4)
		sr := NewStateRecord(shape)
		atm.ExtractColumn(2, sr)
		assert.True(t, near(atm.SkinTemperature[1], sr.SkinTemperature))
		assert.True(t, nearVec(atm.PressureHL[1], sr.PressureHL, 1e-12))
		dup := NewStateRecord(shape)
		dup.CopyFrom(sr)
		sr.PressureHL[0] = -1
		assert.False(t, near(-1, dup.PressureHL[0]))
	}
	{ // Column bounds
		atm := NewSyntheticAtmosphere(shape, 4)
		sr := NewStateRecord(shape)
		assert.Panics(t, func() { atm.ExtractColumn(0, sr) })
		assert.Panics(t, func() { atm.ExtractColumn(5, sr) })
	}
	{ // Shape mismatch between the channel ends is fatal
		sr := NewStateRecord(shape)
		assert.Panics(t, func() { sr.CheckShape(Shape{NLev: 5, NSWBand: 2, NLWBand: 3, NAerosol: 2}) })
	}
}

func near(a, b float64, tolI ...float64) (l bool) {
	var (
		tol float64
	)
	if len(tolI) == 0 {
		tol = 1.e-08
	} else {
		tol = tolI[0]
	}
	bound := math.Max(tol, tol*math.Abs(a))
	if math.Abs(a-b) <= bound {
		l = true
	}
	return
}

func nearVec(a, b []float64, tol float64) (l bool) {
	for i, val := range a {
		if !near(b[i], val, tol) {
			return false
		}
	}
	return true
}
