package scoring

import (
	"math"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
)

// Phase 2 calibration.
const (
	pairCorrelationCut  = 0.45 // weaker pairs are left alone
	pairCeiling         = 0.9
	strongDirectRelief  = 0.3 // force reduction for a trait with an extreme direct score
	strongDirectBonus   = 0.1 // extra floor for a trait with an extreme direct score
	negativeRespectFrom = 0.65
	negativeRespectGain = 2.0
	negativeRespectStep = 0.25
	positiveForceBoost  = 1.2
	positiveLowDirect   = 0.4
	positiveHighDirect  = 0.6
	positiveRespectGain = 1.5
	positiveRespectStep = 0.2
)

// #region reconcile

// Reconcile walks every strongly correlated trait pair and moves the weaker
// member so the pair agrees with the sign of its correlation. Pairs are
// visited in index order and each sees the effect of the previous ones.
func Reconcile(adjusted, direct []float64, corr registry.Matrix, traits []string, cfg Config) []float64 {
	out := clone(adjusted)
	n := len(out)
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			c := corr.At(i, j)
			if math.Abs(c) < pairCorrelationCut {
				continue
			}
			params := cfg.PairParamsFor(traitName(traits, i), traitName(traits, j))
			if math.Abs(out[i]-neutral) < params.Threshold || math.Abs(out[j]-neutral) < params.Threshold {
				continue
			}
			if c < 0 {
				reconcileNegative(out, direct, i, j, c, params)
			} else {
				reconcilePositive(out, direct, i, j, c, params)
			}
		}
	}
	return out
}

// #endregion reconcile

// #region negative

// reconcileNegative pushes one trait of a same-side pair across neutral.
func reconcileNegative(out, direct []float64, i, j int, c float64, params PairParams) {
	strongI := extremeDirect(direct[i])
	strongJ := extremeDirect(direct[j])

	if sameSide(out[i], out[j]) {
		x, y, strongX := j, i, strongJ
		if math.Abs(out[i]-neutral) < math.Abs(out[j]-neutral) || (strongJ && !strongI) {
			x, y, strongX = i, j, strongI
		}

		force := params.ForceFactor
		if strongX {
			force *= 1 - strongDirectRelief
		}
		out[x] = neutral - (out[y]-neutral)*math.Abs(c)*force

		if direct[x] > negativeRespectFrom {
			pull := (direct[x] - negativeRespectFrom) * negativeRespectGain
			out[x] = math.Max(out[x], params.MinScore+pull*negativeRespectStep)
		}
	}

	out[i] = clamp(out[i], pairFloor(params, strongI), pairCeiling)
	out[j] = clamp(out[j], pairFloor(params, strongJ), pairCeiling)
}

func pairFloor(params PairParams, strong bool) float64 {
	if strong {
		return params.MinScore + strongDirectBonus
	}
	return params.MinScore
}

// #endregion negative

// #region positive

// reconcilePositive pulls the trait closer to neutral onto its partner's side.
func reconcilePositive(out, direct []float64, i, j int, c float64, params PairParams) {
	if oppositeSides(out[i], out[j]) {
		x, y := j, i
		if math.Abs(out[i]-neutral) < math.Abs(out[j]-neutral) {
			x, y = i, j
		}

		force := params.ForceFactor * positiveForceBoost
		out[x] = neutral + (out[y]-neutral)*math.Abs(c)*force

		switch {
		case direct[x] < positiveLowDirect && out[x] > neutral:
			pull := (positiveLowDirect - direct[x]) * positiveRespectGain
			out[x] = math.Min(out[x], neutral+pull*positiveRespectStep)
		case direct[x] > positiveHighDirect && out[x] < neutral:
			pull := (direct[x] - positiveHighDirect) * positiveRespectGain
			out[x] = math.Max(out[x], neutral-pull*positiveRespectStep)
		}
	}

	out[i] = clamp(out[i], params.MinScore, pairCeiling)
	out[j] = clamp(out[j], params.MinScore, pairCeiling)
}

// #endregion positive

func traitName(traits []string, i int) string {
	if i < 0 || i >= len(traits) {
		return ""
	}
	return traits[i]
}
