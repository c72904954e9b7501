package scoring

import "time"

// #region pair-params

// PairParams tunes pairwise reconciliation for one trait pair.
type PairParams struct {
	ForceFactor float64 `json:"force_factor"`
	Threshold   float64 `json:"threshold"` // both traits must sit at least this far from neutral
	MinScore    float64 `json:"min_score"` // guaranteed floor after reconciliation
}

// Pair is an unordered trait pair. Build it with MakePair.
type Pair struct {
	A, B string
}

// MakePair orders the names so (a, b) and (b, a) share one key.
func MakePair(a, b string) Pair {
	if b < a {
		a, b = b, a
	}
	return Pair{A: a, B: b}
}

// CriticalPair is a trait pair with a known expected correlation that
// receives dedicated enforcement after pairwise reconciliation.
type CriticalPair struct {
	A, B     string
	Expected float64
}

// #endregion pair-params

// #region config

// Config holds the calibration values of the scoring pipeline. The numbers
// are empirically tuned product settings.
type Config struct {
	DirectWeight           float64 // W_d, weight of a primary-trait contribution
	CorrelatedWeight       float64 // W_c, weight of a correlated contribution
	AdjustThreshold        float64 // total weight the pipeline needs before it runs
	CorrelationEnforcement float64 // global phase 1 strength
	DefaultPair            PairParams
	PairOverrides          map[Pair]PairParams
	CriticalPairs          []CriticalPair

	// Relaxed widens score bounds to [0, 1] and bypasses the pipeline.
	Relaxed bool
}

// DefaultConfig returns the production calibration.
func DefaultConfig() Config {
	return Config{
		DirectWeight:           39.0,
		CorrelatedWeight:       0.085,
		AdjustThreshold:        10,
		CorrelationEnforcement: 0.22,
		DefaultPair:            PairParams{ForceFactor: 1.4, Threshold: 0.15, MinScore: 0.15},
		PairOverrides: map[Pair]PairParams{
			MakePair("Agreeableness", "Vigilance"):       {ForceFactor: 2.2, Threshold: 0.08, MinScore: 0.19},
			MakePair("Agreeableness", "Dominance"):       {ForceFactor: 2.1, Threshold: 0.08, MinScore: 0.19},
			MakePair("Conscientiousness", "Flexibility"): {ForceFactor: 2.3, Threshold: 0.08, MinScore: 0.16},
			MakePair("Extraversion", "Dominance"):        {ForceFactor: 2.0, Threshold: 0.08, MinScore: 0.21},
			MakePair("Openness", "Self-Transcendence"):   {ForceFactor: 1.9, Threshold: 0.08, MinScore: 0.21},
			MakePair("Openness", "Abstract Orientation"): {ForceFactor: 1.9, Threshold: 0.08, MinScore: 0.21},
		},
		CriticalPairs: []CriticalPair{
			{A: "Agreeableness", B: "Vigilance", Expected: -0.60},
			{A: "Agreeableness", B: "Dominance", Expected: -0.55},
			{A: "Conscientiousness", B: "Flexibility", Expected: -0.72},
			{A: "Extraversion", B: "Dominance", Expected: 0.56},
			{A: "Openness", B: "Self-Transcendence", Expected: 0.70},
			{A: "Openness", B: "Abstract Orientation", Expected: 0.65},
		},
	}
}

// PairParamsFor returns the override for a pair, or the default.
func (c Config) PairParamsFor(a, b string) PairParams {
	if p, ok := c.PairOverrides[MakePair(a, b)]; ok {
		return p
	}
	return c.DefaultPair
}

// Bounds returns the score range of the configured mode.
func (c Config) Bounds() (lo, hi float64) {
	if c.Relaxed {
		return 0, 1
	}
	return 0.1, 0.9
}

// #endregion config

// #region decision

// Pipeline outcomes recorded in Decision.Action.
const (
	ActionBase     = "base"     // too little weight, base scores returned
	ActionAdjusted = "adjusted" // phases 1-4 ran
	ActionRelaxed  = "relaxed"  // relaxed mode, pipeline bypassed
)

// Decision records whether the correlation pipeline ran and why.
type Decision struct {
	Action string
	Reason string
}

// #endregion decision

// #region metrics

// PhaseMetric captures per-phase telemetry from one recomputation.
type PhaseMetric struct {
	Name      string
	DeltaNorm float64 // L2 norm of the change this phase made
	Changed   int     // traits whose score moved
}

// Metrics captures telemetry from one recomputation.
type Metrics struct {
	TotalWeight float64
	Phases      []PhaseMetric
	ComputeTime time.Duration
}

// #endregion metrics
