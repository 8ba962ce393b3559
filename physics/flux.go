package physics

import (
	"fmt"

	"github.com/notargets/gorad/utils"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"
)

// FluxProfiles accumulates the up/down broadband fluxes on half levels, one
// row per column. Rows are disjoint between column blocks, so concurrent
// workers owning different blocks write without locking.
type FluxProfiles struct {
	Shape Shape
	NCol  int
	SWUp  *mat.Dense // NCol x NLev+1
	SWDn  *mat.Dense
	LWUp  *mat.Dense
	LWDn  *mat.Dense
}

func NewFluxProfiles(shape Shape, ncol int) (fp *FluxProfiles) {
	nhalf := shape.NHalf()
	fp = &FluxProfiles{
		Shape: shape,
		NCol:  ncol,
		SWUp:  mat.NewDense(ncol, nhalf, nil),
		SWDn:  mat.NewDense(ncol, nhalf, nil),
		LWUp:  mat.NewDense(ncol, nhalf, nil),
		LWDn:  mat.NewDense(ncol, nhalf, nil),
	}
	return
}

// Reset zeroes the accumulators. Called at the top of every repeat iteration
// so re-coupling with identical inputs reproduces identical fluxes.
func (fp *FluxProfiles) Reset() {
	fp.SWUp.Zero()
	fp.SWDn.Zero()
	fp.LWUp.Zero()
	fp.LWDn.Zero()
}

// ApplyCorrections folds one correction record per block column into the
// flux rows. The inferer reports deltas in the additive/diffuse basis
// (add = up+dn, diff = up-dn); this is the inverse transform back to up/down
// space:
//
//	up += (add - diff)/2,  dn += (add + diff)/2
//
// Purely column-local, applied exactly once per column per iteration, after
// the second fence and before output.
func (fp *FluxProfiles) ApplyCorrections(blk utils.ColumnBlock, corrs []*CorrectionRecord) {
	if blk.NCol() != len(corrs) {
		panic(fmt.Sprintf("block %v has %d columns but %d correction records",
			blk, blk.NCol(), len(corrs)))
	}
	if blk.Start < 1 || blk.End > fp.NCol+1 {
		panic(fmt.Sprintf("block %v outside flux domain [1,%d]", blk, fp.NCol))
	}
	for c := blk.Start; c < blk.End; c++ {
		cr := corrs[c-blk.Start]
		cr.CheckShape(fp.Shape)
		blendRow(fp.LWUp.RawRowView(c-1), fp.LWDn.RawRowView(c-1), cr.DeltaLWAdd, cr.DeltaLWDiff)
		blendRow(fp.SWUp.RawRowView(c-1), fp.SWDn.RawRowView(c-1), cr.DeltaSWAdd, cr.DeltaSWDiff)
	}
}

func blendRow(up, dn, add, diff []float64) {
	floats.AddScaled(up, 0.5, add)
	floats.AddScaled(up, -0.5, diff)
	floats.AddScaled(dn, 0.5, add)
	floats.AddScaled(dn, 0.5, diff)
}
