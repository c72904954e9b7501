package scoring

import (
	"fmt"
	"math"
	"time"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
)

// neutral is the midpoint of the 0-1 trait scale.
const neutral = 0.5

// #region input

// Input is everything a recomputation reads. Nothing in it is mutated.
type Input struct {
	Traits       []string
	Correlations registry.Matrix
	Accumulators Accumulators
	Pattern      Pattern
}

// Result bundles everything returned by Compute.
type Result struct {
	Scores   []float64 // final trait vector
	Direct   []float64 // base scores before correlation adjustment
	Decision Decision
	Metrics  Metrics
}

// #endregion input

// #region compute

// Compute is a pure function that derives the trait vector from scratch.
// Base scores come from the accumulators; the correlation pipeline runs on
// top of them once enough weight has been collected.
func Compute(in Input, cfg Config) Result {
	start := time.Now()

	direct := BaseScores(in.Accumulators, cfg)
	total := in.Accumulators.TotalWeight()
	decision := gate(total, cfg)

	scores := clone(direct)
	var phases []PhaseMetric
	if decision.Action == ActionAdjusted {
		scores, phases = Adjust(direct, in.Correlations, in.Traits, in.Pattern, cfg)
	}

	lo, hi := cfg.Bounds()
	for i := range scores {
		scores[i] = clamp(scores[i], lo, hi)
	}

	return Result{
		Scores:   scores,
		Direct:   direct,
		Decision: decision,
		Metrics: Metrics{
			TotalWeight: total,
			Phases:      phases,
			ComputeTime: time.Since(start),
		},
	}
}

// gate decides whether the correlation pipeline runs.
func gate(total float64, cfg Config) Decision {
	if cfg.Relaxed {
		return Decision{Action: ActionRelaxed, Reason: "relaxed mode, base scores only"}
	}
	if total <= cfg.AdjustThreshold {
		return Decision{
			Action: ActionBase,
			Reason: fmt.Sprintf("total weight %.3f at or below %.3f", total, cfg.AdjustThreshold),
		}
	}
	return Decision{
		Action: ActionAdjusted,
		Reason: fmt.Sprintf("total weight %.3f above %.3f", total, cfg.AdjustThreshold),
	}
}

// #endregion compute

// #region adjust

// Adjust runs the four correlation phases in order. Each phase reads the
// previous phase's output and the untouched direct scores.
func Adjust(direct []float64, corr registry.Matrix, traits []string, pattern Pattern, cfg Config) ([]float64, []PhaseMetric) {
	type phase struct {
		name string
		run  func([]float64) []float64
	}
	phases := []phase{
		{"diffusion", func(v []float64) []float64 { return Diffuse(v, direct, corr, pattern, cfg) }},
		{"pairwise", func(v []float64) []float64 { return Reconcile(v, direct, corr, traits, cfg) }},
		{"critical", func(v []float64) []float64 { return EnforceCritical(v, direct, traits, cfg) }},
		{"direct_bounds", func(v []float64) []float64 { return ApplyDirectBounds(v, direct) }},
	}

	current := clone(direct)
	metrics := make([]PhaseMetric, 0, len(phases))
	for _, p := range phases {
		next := p.run(current)
		metrics = append(metrics, phaseMetric(p.name, current, next))
		current = next
	}
	return current, metrics
}

// #endregion adjust

// #region helpers

func phaseMetric(name string, before, after []float64) PhaseMetric {
	m := PhaseMetric{Name: name}
	var sumSq float64
	for i := range after {
		d := after[i] - before[i]
		if d != 0 {
			m.Changed++
		}
		sumSq += d * d
	}
	m.DeltaNorm = math.Sqrt(sumSq)
	return m
}

func clone(v []float64) []float64 {
	out := make([]float64, len(v))
	copy(out, v)
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func sameSide(a, b float64) bool {
	return (a > neutral && b > neutral) || (a < neutral && b < neutral)
}

func oppositeSides(a, b float64) bool {
	return (a > neutral && b < neutral) || (a < neutral && b > neutral)
}

// extremeDirect reports a direct score beyond 0.2/0.8.
func extremeDirect(d float64) bool {
	return d > 0.8 || d < 0.2
}

// #endregion helpers
