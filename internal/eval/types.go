package eval

import "github.com/danielpatrickdp/trait-profile/internal/scoring"

// #region eval-config
// EvalConfig holds the bounds a finished profile is validated against.
type EvalConfig struct {
	ScoreMin      float64 // fail if any trait score is below this
	ScoreMax      float64 // fail if any trait score is above this
	FacetMin      float64
	FacetMax      float64
	CriticalPairs []scoring.CriticalPair // informational sign checks
}

// DefaultEvalConfig returns the normal-mode bounds.
func DefaultEvalConfig() EvalConfig {
	return EvalConfig{
		ScoreMin:      0.1,
		ScoreMax:      0.9,
		FacetMin:      0.1,
		FacetMax:      0.9,
		CriticalPairs: scoring.DefaultConfig().CriticalPairs,
	}
}

// RelaxedEvalConfig widens trait bounds to [0, 1].
func RelaxedEvalConfig() EvalConfig {
	c := DefaultEvalConfig()
	c.ScoreMin, c.ScoreMax = 0, 1
	return c
}

// ConfigFor picks the bounds for a scoring configuration.
func ConfigFor(cfg scoring.Config) EvalConfig {
	if cfg.Relaxed {
		return RelaxedEvalConfig()
	}
	return DefaultEvalConfig()
}

// #endregion eval-config

// #region profile
// Profile is the observable output of one assessment.
type Profile struct {
	Traits []string
	Scores []float64
	Facets map[string]map[string]float64
}

// #endregion profile

// #region eval-metric
// EvalMetric captures a single validation check result.
type EvalMetric struct {
	Name  string
	Value float64
	Pass  bool
}

// #endregion eval-metric

// #region eval-result
// EvalResult is the output of profile validation.
type EvalResult struct {
	Passed  bool
	Metrics []EvalMetric
	Reason  string
}

// #endregion eval-result
