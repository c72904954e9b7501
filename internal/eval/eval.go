package eval

import (
	"fmt"
	"math"
	"sort"
)

// #region eval-harness
// EvalHarness validates finished profiles against the score invariants.
type EvalHarness struct {
	config EvalConfig
}

// NewEvalHarness creates an eval harness with the given configuration.
func NewEvalHarness(config EvalConfig) *EvalHarness {
	return &EvalHarness{config: config}
}

// Run checks vector length, trait bounds and facet bounds. Critical-pair
// sign checks are reported but never fail the run, since direct answers
// are allowed to override the expected correlation.
func (h *EvalHarness) Run(p Profile) EvalResult {
	var metrics []EvalMetric
	passed := true
	var failReasons []string

	// 1. Vector length matches the trait list
	lengthPass := len(p.Scores) == len(p.Traits)
	metrics = append(metrics, EvalMetric{
		Name:  "vector_length",
		Value: float64(len(p.Scores)),
		Pass:  lengthPass,
	})
	if !lengthPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("vector length %d, want %d", len(p.Scores), len(p.Traits)))
	}

	// 2. Trait bounds
	lo, hi := extremes(p.Scores)
	lowPass := lo >= h.config.ScoreMin
	highPass := hi <= h.config.ScoreMax
	metrics = append(metrics,
		EvalMetric{Name: "score_min", Value: lo, Pass: lowPass},
		EvalMetric{Name: "score_max", Value: hi, Pass: highPass},
	)
	if !lowPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("score %.4f below %.4f", lo, h.config.ScoreMin))
	}
	if !highPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("score %.4f above %.4f", hi, h.config.ScoreMax))
	}

	// 3. Facet bounds
	var facetScores []float64
	for _, trait := range sortedKeys(p.Facets) {
		for _, v := range p.Facets[trait] {
			facetScores = append(facetScores, v)
		}
	}
	flo, fhi := extremes(facetScores)
	facetPass := flo >= h.config.FacetMin && fhi <= h.config.FacetMax
	metrics = append(metrics, EvalMetric{Name: "facet_range", Value: fhi - flo, Pass: facetPass})
	if !facetPass {
		passed = false
		failReasons = append(failReasons, fmt.Sprintf("facet scores [%.4f, %.4f] outside [%.4f, %.4f]", flo, fhi, h.config.FacetMin, h.config.FacetMax))
	}

	// 4. Critical pairs: informational only
	index := make(map[string]int, len(p.Traits))
	for i, name := range p.Traits {
		if i < len(p.Scores) {
			index[name] = i
		}
	}
	for _, cp := range h.config.CriticalPairs {
		i, ok1 := index[cp.A]
		j, ok2 := index[cp.B]
		if !ok1 || !ok2 {
			continue
		}
		product := (p.Scores[i] - 0.5) * (p.Scores[j] - 0.5)
		consistent := product == 0 || (cp.Expected < 0) == (product < 0)
		metrics = append(metrics, EvalMetric{
			Name:  fmt.Sprintf("critical_%s_%s", cp.A, cp.B),
			Value: product,
			Pass:  consistent,
		})
	}

	reason := "all checks passed"
	if !passed {
		reason = fmt.Sprintf("eval failed: %s", failReasons[0])
		if len(failReasons) > 1 {
			reason = fmt.Sprintf("eval failed: %d checks: %s", len(failReasons), failReasons[0])
		}
	}

	return EvalResult{
		Passed:  passed,
		Metrics: metrics,
		Reason:  reason,
	}
}

// #endregion eval-harness

// #region helpers
// extremes returns the smallest and largest value, or the neutral point for
// an empty slice.
func extremes(v []float64) (lo, hi float64) {
	if len(v) == 0 {
		return 0.5, 0.5
	}
	lo, hi = math.Inf(1), math.Inf(-1)
	for _, x := range v {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	return lo, hi
}

func sortedKeys(m map[string]map[string]float64) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// #endregion helpers
