package scoring

import (
	"math"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
)

// Phase 1 calibration.
const (
	diffusionNegativeBoost = 1.8 // weight multiplier for negative correlations
	diffusionStrongCut     = 0.4 // positive correlations above this get a boost
	diffusionStrongBoost   = 1.6
	diffusionTargetGain    = 1.4
	diffusionTargetMin     = 0.18
	diffusionTargetMax     = 0.82
	diffusionExtremityGain = 1.1

	heavyBiasRatio  = 0.6
	highBiasDamping = 0.8
	lowBiasDamping  = 0.85

	extremeDirectDamping = 0.75 // direct beyond 0.2/0.8
	strongDirectDamping  = 0.85 // direct beyond 0.3/0.7

	directPullOnset = 0.25
	directPullGain  = 0.35

	diffusionHighFloor = 0.6
	diffusionLowCap    = 0.4
	diffusionMin       = 0.12
	diffusionMax       = 0.88
)

// #region diffuse

// Diffuse pulls every correlated trait toward the values its correlations
// predict from the rest of the vector. Strong direct scores damp the pull
// and are restored afterwards, so correlation pressure never erases them.
func Diffuse(adjusted, direct []float64, corr registry.Matrix, pattern Pattern, cfg Config) []float64 {
	n := len(adjusted)
	out := clone(adjusted)

	deviations := make([]float64, n)
	for j, a := range adjusted {
		deviations[j] = a - neutral
	}

	for i := 0; i < n; i++ {
		row := corr.Row(i)
		if !hasCorrelation(row) {
			continue
		}

		var totalAdjustment, totalStrength float64
		for j := 0; j < n; j++ {
			if j == i {
				continue
			}
			c := corr.At(i, j)
			w := math.Abs(c)
			if c < 0 {
				w *= diffusionNegativeBoost
			}
			if c > diffusionStrongCut {
				w *= diffusionStrongBoost
			}
			target := clamp(neutral+c*deviations[j]*diffusionTargetGain, diffusionTargetMin, diffusionTargetMax)
			extremity := 1 + math.Abs(deviations[j])*diffusionExtremityGain

			totalAdjustment += w * (target - adjusted[i]) * extremity
			totalStrength += w
		}
		if totalStrength <= 0 {
			continue
		}

		factor := cfg.CorrelationEnforcement * (totalStrength / float64(n))
		switch {
		case pattern.HighRatio > heavyBiasRatio:
			factor *= highBiasDamping
		case pattern.LowRatio > heavyBiasRatio:
			factor *= lowBiasDamping
		}
		switch d := direct[i]; {
		case d > 0.8 || d < 0.2:
			factor *= extremeDirectDamping
		case d > 0.7 || d < 0.3:
			factor *= strongDirectDamping
		}

		v := adjusted[i] + totalAdjustment*factor/totalStrength

		if dev := math.Abs(direct[i] - neutral); dev > directPullOnset {
			pull := directPullGain * (dev - directPullOnset)
			v = v*(1-pull) + direct[i]*pull
		}

		if direct[i] > 0.8 && v < diffusionHighFloor {
			v = diffusionHighFloor
		} else if direct[i] < 0.2 && v > diffusionLowCap {
			v = diffusionLowCap
		}

		out[i] = clamp(v, diffusionMin, diffusionMax)
	}
	return out
}

// #endregion diffuse

func hasCorrelation(row []float64) bool {
	for _, c := range row {
		if c != 0 {
			return true
		}
	}
	return false
}
