package scoring

import "math"

// Phase 3 calibration.
const (
	criticalActivation    = 0.1 // either trait must sit further than this from neutral
	criticalNegativeForce = 1.9
	criticalPositiveForce = 1.8
	criticalDirectRelief  = 0.4 // force reduction at full direct strength
	criticalMin           = 0.15
	criticalMax           = 0.85
)

// #region enforce-critical

// EnforceCritical re-places one member of each critical pair whose sides
// contradict the expected correlation. Pairs naming an unregistered trait
// are skipped.
func EnforceCritical(adjusted, direct []float64, traits []string, cfg Config) []float64 {
	out := clone(adjusted)
	index := make(map[string]int, len(traits))
	for i, name := range traits {
		if i < len(out) {
			index[name] = i
		}
	}

	for _, cp := range cfg.CriticalPairs {
		i1, ok1 := index[cp.A]
		i2, ok2 := index[cp.B]
		if !ok1 || !ok2 {
			continue
		}

		s1, s2 := out[i1], out[i2]
		if math.Abs(s1-neutral) <= criticalActivation && math.Abs(s2-neutral) <= criticalActivation {
			continue
		}

		strength1 := math.Abs(direct[i1]-neutral) * 2
		strength2 := math.Abs(direct[i2]-neutral) * 2
		moveFirst := math.Abs(s1-neutral) < math.Abs(s2-neutral) || strength1 < strength2

		if cp.Expected < 0 {
			if sameSide(s1, s2) {
				if moveFirst {
					out[i1] = neutral - (s2-neutral)*math.Abs(cp.Expected)*criticalForce(criticalNegativeForce, strength1)
				} else {
					out[i2] = neutral - (s1-neutral)*math.Abs(cp.Expected)*criticalForce(criticalNegativeForce, strength2)
				}
			}
		} else if oppositeSides(s1, s2) {
			if moveFirst {
				out[i1] = neutral + (s2-neutral)*cp.Expected*criticalForce(criticalPositiveForce, strength1)
			} else {
				out[i2] = neutral + (s1-neutral)*cp.Expected*criticalForce(criticalPositiveForce, strength2)
			}
		}

		out[i1] = clamp(out[i1], criticalMin, criticalMax)
		out[i2] = clamp(out[i2], criticalMin, criticalMax)
	}
	return out
}

// criticalForce softens the base force for traits with strong direct input.
func criticalForce(base, directStrength float64) float64 {
	return base * (1 - directStrength*criticalDirectRelief)
}

// #endregion enforce-critical
