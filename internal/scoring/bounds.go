package scoring

import "math"

// #region direct-bounds

// directBand is one bucket of the final safety net, keyed on the direct score.
type directBand struct {
	lo, hi float64
	limit  float64
}

var (
	// Floors for high direct scores; a band matches lo < direct <= hi.
	highDirectFloors = []directBand{
		{lo: 0.9, hi: math.Inf(1), limit: 0.65},
		{lo: 0.8, hi: 0.9, limit: 0.5},
		{lo: 0.7, hi: 0.8, limit: 0.35},
		{lo: 0.6, hi: 0.7, limit: 0.25},
	}
	// Caps for low direct scores; a band matches lo <= direct < hi.
	lowDirectCaps = []directBand{
		{lo: math.Inf(-1), hi: 0.1, limit: 0.35},
		{lo: 0.1, hi: 0.2, limit: 0.5},
		{lo: 0.2, hi: 0.3, limit: 0.65},
	}
)

// ApplyDirectBounds keeps strong direct input from being contradicted by the
// correlation phases, whatever the correlation structure says.
func ApplyDirectBounds(adjusted, direct []float64) []float64 {
	out := clone(adjusted)
	for i := range out {
		d := direct[i]
		for _, b := range highDirectFloors {
			if d > b.lo && d <= b.hi {
				out[i] = math.Max(out[i], b.limit)
			}
		}
		for _, b := range lowDirectCaps {
			if d >= b.lo && d < b.hi {
				out[i] = math.Min(out[i], b.limit)
			}
		}
	}
	return out
}

// #endregion direct-bounds
