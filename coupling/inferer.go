package coupling

import (
	"fmt"

	"github.com/notargets/gorad/physics"
)

// Inferer is the correction model run on the inferer side of the channel.
// Infer fills corrs[i] from states[i] for every slot of the exchanged block;
// partially filled output is a contract violation, so implementations either
// fill every slot or return an error. solverRank identifies the requesting
// solver for models that shard internal state by client.
type Inferer interface {
	Infer(solverRank int, states []*physics.StateRecord, corrs []*physics.CorrectionRecord) error
}

// ZeroInferer returns all-zero corrections, turning the coupled path into a
// pass-through of the flux engine. Used to validate that coupling itself
// does not perturb the physics.
type ZeroInferer struct{}

func (zi ZeroInferer) Infer(solverRank int, states []*physics.StateRecord,
	corrs []*physics.CorrectionRecord) error {
	if len(states) != len(corrs) {
		return fmt.Errorf("slot mismatch: %d states, %d corrections", len(states), len(corrs))
	}
	for _, cr := range corrs {
		cr.Zero()
	}
	return nil
}

// MarkerInferer writes a constant additive delta derived from the solver
// rank into every slot. Corrections from different ranks are then
// distinguishable in the blended fluxes, which the block-isolation tests
// rely on.
type MarkerInferer struct {
	Base float64
}

func (mi MarkerInferer) Infer(solverRank int, states []*physics.StateRecord,
	corrs []*physics.CorrectionRecord) error {
	if len(states) != len(corrs) {
		return fmt.Errorf("slot mismatch: %d states, %d corrections", len(states), len(corrs))
	}
	mark := mi.Base * float64(solverRank+1)
	for _, cr := range corrs {
		cr.Zero()
		for l := range cr.DeltaSWAdd {
			cr.DeltaSWAdd[l] = 2 * mark
			cr.DeltaLWAdd[l] = 4 * mark
			cr.DeltaLWDiff[l] = 2 * mark
		}
	}
	return nil
}

// LapseRateInferer is a deterministic stand-in correction model: the deltas
// scale with the half-level temperature contrast of the exchanged state, so
// the output depends on the state actually put into the channel. Used by the
// benchmark command in place of a trained model.
type LapseRateInferer struct {
	Gain float64
}

func NewLapseRateInferer() *LapseRateInferer {
	return &LapseRateInferer{Gain: 1e-3}
}

func (li *LapseRateInferer) Infer(solverRank int, states []*physics.StateRecord,
	corrs []*physics.CorrectionRecord) error {
	if len(states) != len(corrs) {
		return fmt.Errorf("slot mismatch: %d states, %d corrections", len(states), len(corrs))
	}
	for i, sr := range states {
		var (
			cr    = corrs[i]
			nhalf = len(sr.TemperatureHL)
			tTop  = sr.TemperatureHL[0]
		)
		cr.Zero()
		for l := 0; l < nhalf; l++ {
			dT := sr.TemperatureHL[l] - tTop
			cr.DeltaLWAdd[l] = li.Gain * dT * dT
			cr.DeltaLWDiff[l] = li.Gain * dT
			cr.DeltaSWAdd[l] = li.Gain * dT * sr.CosSolarZenith
			cr.DeltaSWDiff[l] = 0.5 * li.Gain * dT * sr.CosSolarZenith
		}
		for l := 0; l < nhalf-1; l++ {
			cr.HeatingRateLW[l] = cr.DeltaLWAdd[l+1] - cr.DeltaLWAdd[l]
			cr.HeatingRateSW[l] = cr.DeltaSWAdd[l+1] - cr.DeltaSWAdd[l]
		}
	}
	return nil
}
