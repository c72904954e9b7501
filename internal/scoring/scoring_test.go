package scoring

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
)

const tolerance = 1e-6

func near(a, b float64) bool {
	return math.Abs(a-b) <= tolerance
}

// #region value-tests
func TestValueScoreUnknownDefaultsToModerate(t *testing.T) {
	if ValueScore("Somewhat") != 3 {
		t.Fatalf("expected 3 for unknown label, got %v", ValueScore("Somewhat"))
	}
	if ValueScore("Low-Moderate") != 2.5 {
		t.Fatalf("expected 2.5, got %v", ValueScore("Low-Moderate"))
	}
}

func TestCorrelatedScore(t *testing.T) {
	// Very High answer, strong negative link: 3 + 2 * -0.5 * 2 = 1
	if got := CorrelatedScore(5, Adjustment("-")); got != 1 {
		t.Fatalf("expected 1, got %v", got)
	}
	// Unknown symbols carry no signal.
	if got := CorrelatedScore(5, Adjustment("++")); got != 3 {
		t.Fatalf("expected neutral 3, got %v", got)
	}
}

// #endregion value-tests

// #region facet-tests
func TestUpdateFacetConvergesWithoutOvershoot(t *testing.T) {
	score := 0.5
	for i := 0; i < 60; i++ {
		next := UpdateFacet(score, 2) // Low -> 0.25
		if next > score {
			t.Fatalf("step %d moved away from target: %v -> %v", i, score, next)
		}
		if next < 0.1 || next > 0.9 {
			t.Fatalf("step %d left bounds: %v", i, next)
		}
		score = next
	}
	if !near(score, 0.25) {
		t.Fatalf("expected convergence to 0.25, got %v", score)
	}

	high := 0.5
	for i := 0; i < 60; i++ {
		high = UpdateFacet(high, 5)
	}
	if high != 0.9 {
		t.Fatalf("expected clamp at 0.9, got %v", high)
	}
}

func TestUpdateFacetSingleStep(t *testing.T) {
	if got := UpdateFacet(0.5, 5); !near(got, 0.6) {
		t.Fatalf("expected 0.6, got %v", got)
	}
}

// #endregion facet-tests

// #region base-tests
func TestBaseScoresNeutralAndClamp(t *testing.T) {
	acc := NewAccumulators(3)
	acc.Add(0, 5, 39)
	acc.Add(1, 1, 39)

	got := BaseScores(acc, DefaultConfig())
	if got[0] != 0.9 || got[1] != 0.1 || got[2] != 0.5 {
		t.Fatalf("expected [0.9 0.1 0.5], got %v", got)
	}

	relaxed := DefaultConfig()
	relaxed.Relaxed = true
	got = BaseScores(acc, relaxed)
	if got[0] != 1 || got[1] != 0 {
		t.Fatalf("expected relaxed [1 0 ...], got %v", got)
	}
}

func TestAccumulatorsIgnoreUnknownTrait(t *testing.T) {
	acc := NewAccumulators(2)
	acc.Add(7, 5, 39)
	acc.Add(-1, 5, 39)
	if acc.TotalWeight() != 0 {
		t.Fatalf("expected no weight, got %v", acc.TotalWeight())
	}
}

// #endregion base-tests

// #region pattern-tests
func TestPatternDetect(t *testing.T) {
	var p PatternCounters
	for _, label := range []string{"High", "Very High", "High", "Low-Moderate"} {
		p.Record(label)
	}
	pat := p.Detect()
	if !pat.HighBiased || pat.LowBiased {
		t.Fatalf("expected high-biased, got %+v", pat)
	}
	if pat.Balanced {
		t.Fatalf("moderate ratio 0.25 should not be balanced")
	}
	if p.Moderate != 1 || p.Total != 4 {
		t.Fatalf("unexpected counters %+v", p)
	}
}

func TestPatternDetectEmpty(t *testing.T) {
	pat := PatternCounters{}.Detect()
	if pat.HighRatio != 0 || pat.LowRatio != 0 || pat.ModerateRatio != 0 {
		t.Fatalf("expected zero ratios, got %+v", pat)
	}
}

// #endregion pattern-tests

// #region compute-tests
func twoTraitInput(acc Accumulators) Input {
	return Input{
		Traits:       []string{"Agreeableness", "Vigilance"},
		Correlations: registry.Matrix{{0, -0.6}, {-0.6, 0}},
		Accumulators: acc,
	}
}

func TestComputeThresholdGate(t *testing.T) {
	// Only correlated contributions: 0.085 * 100 = 8.5 <= 10.
	acc := NewAccumulators(2)
	for i := 0; i < 50; i++ {
		acc.Add(0, 5, 0.085)
		acc.Add(1, 4, 0.085)
	}
	res := Compute(twoTraitInput(acc), DefaultConfig())

	if res.Decision.Action != ActionBase {
		t.Fatalf("expected base, got %s (%s)", res.Decision.Action, res.Decision.Reason)
	}
	for i := range res.Scores {
		if res.Scores[i] != res.Direct[i] {
			t.Fatalf("score %d altered below threshold: %v != %v", i, res.Scores[i], res.Direct[i])
		}
	}
	if len(res.Metrics.Phases) != 0 {
		t.Fatalf("expected no phase metrics, got %d", len(res.Metrics.Phases))
	}
}

func TestComputeRelaxedBypassesPipeline(t *testing.T) {
	acc := NewAccumulators(2)
	acc.Add(0, 5, 39)
	acc.Add(1, 5, 39)
	cfg := DefaultConfig()
	cfg.Relaxed = true

	res := Compute(twoTraitInput(acc), cfg)
	if res.Decision.Action != ActionRelaxed {
		t.Fatalf("expected relaxed, got %s", res.Decision.Action)
	}
	if res.Scores[0] != 1 || res.Scores[1] != 1 {
		t.Fatalf("expected raw [1 1], got %v", res.Scores)
	}
}

func TestComputeIdempotent(t *testing.T) {
	acc := NewAccumulators(2)
	acc.Add(0, 4, 39)
	acc.Add(1, 4.5, 39)
	in := twoTraitInput(acc)

	r1 := Compute(in, DefaultConfig())
	r2 := Compute(in, DefaultConfig())
	for i := range r1.Scores {
		if r1.Scores[i] != r2.Scores[i] {
			t.Fatalf("non-deterministic at %d: %v vs %v", i, r1.Scores[i], r2.Scores[i])
		}
	}
	if acc[0].SumWeight != 39 {
		t.Fatal("compute must not mutate accumulators")
	}
}

func TestComputeBounded(t *testing.T) {
	rng := rand.New(rand.NewPCG(7, 11))
	labels := []string{"Very Low", "Low", "Low-Moderate", "Moderate", "High", "Very High"}
	traits := []string{"Agreeableness", "Vigilance", "Dominance", "Extraversion", "Openness", "Conscientiousness"}
	n := len(traits)

	for trial := 0; trial < 200; trial++ {
		corr := make(registry.Matrix, n)
		for i := range corr {
			corr[i] = make([]float64, n)
		}
		for i := 0; i < n; i++ {
			for j := i + 1; j < n; j++ {
				c := rng.Float64()*2 - 1
				corr[i][j], corr[j][i] = c, c
			}
		}

		acc := NewAccumulators(n)
		var pattern PatternCounters
		answers := 1 + rng.IntN(30)
		for k := 0; k < answers; k++ {
			label := labels[rng.IntN(len(labels))]
			pattern.Record(label)
			acc.Add(rng.IntN(n), ValueScore(label), 39)
			acc.Add(rng.IntN(n), CorrelatedScore(ValueScore(label), 0.5), 0.085)
		}

		res := Compute(Input{Traits: traits, Correlations: corr, Accumulators: acc, Pattern: pattern.Detect()}, DefaultConfig())
		if len(res.Scores) != n {
			t.Fatalf("trial %d: vector length %d", trial, len(res.Scores))
		}
		for i, s := range res.Scores {
			if s < 0.1 || s > 0.9 {
				t.Fatalf("trial %d: trait %d out of bounds: %v", trial, i, s)
			}
		}
	}
}

func TestDirectDominance(t *testing.T) {
	// Trait 0 already leans low from correlated pressure; one strong direct
	// answer must pull its base score toward the answer's position.
	acc := NewAccumulators(2)
	for i := 0; i < 20; i++ {
		acc.Add(0, 1, 0.085)
	}
	before := BaseScores(acc, DefaultConfig())[0]
	acc.Add(0, 5, 39)
	after := BaseScores(acc, DefaultConfig())[0]

	if after <= before {
		t.Fatalf("expected base score to rise, %v -> %v", before, after)
	}
	if after < 0.85 {
		t.Fatalf("direct answer should dominate, got %v", after)
	}
}

func TestAdjustReportsPhaseMetrics(t *testing.T) {
	direct := []float64{0.8, 0.75}
	_, metrics := Adjust(direct, registry.Matrix{{0, -0.6}, {-0.6, 0}}, []string{"Agreeableness", "Vigilance"}, Pattern{}, DefaultConfig())
	want := []string{"diffusion", "pairwise", "critical", "direct_bounds"}
	if len(metrics) != len(want) {
		t.Fatalf("expected %d phases, got %d", len(want), len(metrics))
	}
	for i, name := range want {
		if metrics[i].Name != name {
			t.Errorf("phase %d: expected %s, got %s", i, name, metrics[i].Name)
		}
	}
	if metrics[1].Changed != 1 {
		t.Errorf("pairwise phase should move one trait, moved %d", metrics[1].Changed)
	}
}

// #endregion compute-tests

// #region scenario-tests

// Two traits at -0.6 with both direct scores on the high side: the weaker
// one is pushed below neutral, the stronger one stays near its direct value.
func TestNegativePairScenario(t *testing.T) {
	direct := []float64{0.8, 0.75}
	corr := registry.Matrix{{0, -0.6}, {-0.6, 0}}
	traits := []string{"Agreeableness", "Vigilance"}
	cfg := DefaultConfig()
	pattern := Pattern{HighRatio: 0.25, LowRatio: 0.25, ModerateRatio: 0.5}

	p1 := Diffuse(direct, direct, corr, pattern, cfg)
	if !near(p1[0], 0.7354868442875) || !near(p1[1], 0.6825796932) {
		t.Fatalf("diffusion: got %v", p1)
	}
	p2 := Reconcile(p1, direct, corr, traits, cfg)
	if !near(p2[0], 0.7354868442875) || !near(p2[1], 0.24) {
		t.Fatalf("pairwise: got %v", p2)
	}
	p3 := EnforceCritical(p2, direct, traits, cfg)
	if !near(p3[1], 0.24) {
		t.Fatalf("critical: got %v", p3)
	}
	p4 := ApplyDirectBounds(p3, direct)
	if !near(p4[0], 0.7354868442875) || !near(p4[1], 0.35) {
		t.Fatalf("direct bounds: got %v", p4)
	}

	if p4[1] >= 0.5 {
		t.Fatalf("weaker trait should sit below neutral, got %v", p4[1])
	}
	if math.Abs(p4[0]-direct[0]) >= math.Abs(p4[1]-direct[1]) {
		t.Fatalf("stronger trait should stay closer to its direct score: %v", p4)
	}
}

func TestEnforceCriticalSeparatesNegativePair(t *testing.T) {
	traits := []string{"Conscientiousness", "Flexibility"}
	cases := [][]float64{
		{0.7, 0.62},
		{0.3, 0.45},
		{0.58, 0.66},
		{0.2, 0.22},
	}
	for _, adjusted := range cases {
		out := EnforceCritical(adjusted, adjusted, traits, DefaultConfig())
		if (out[0]-0.5)*(out[1]-0.5) >= 0 {
			t.Errorf("input %v: expected opposite sides, got %v", adjusted, out)
		}
	}
}

func TestEnforceCriticalJoinsPositivePair(t *testing.T) {
	traits := []string{"Openness", "Self-Transcendence"}
	out := EnforceCritical([]float64{0.8, 0.4}, []float64{0.8, 0.4}, traits, DefaultConfig())
	if out[1] <= 0.5 {
		t.Fatalf("expected second trait lifted above neutral, got %v", out)
	}
}

func TestEnforceCriticalSkipsUnknownTraits(t *testing.T) {
	in := []float64{0.8, 0.8}
	out := EnforceCritical(in, in, []string{"Agreeableness", "Honesty-Humility"}, DefaultConfig())
	if out[0] != 0.8 || out[1] != 0.8 {
		t.Fatalf("expected untouched vector, got %v", out)
	}
}

func TestEnforceCriticalIgnoresNearNeutral(t *testing.T) {
	in := []float64{0.55, 0.58}
	out := EnforceCritical(in, in, []string{"Agreeableness", "Vigilance"}, DefaultConfig())
	if out[0] != 0.55 || out[1] != 0.58 {
		t.Fatalf("expected untouched vector, got %v", out)
	}
}

func TestEnforceCriticalRelievesStrongDirect(t *testing.T) {
	traits := []string{"Conscientiousness", "Flexibility"}
	out := EnforceCritical([]float64{0.62, 0.7}, []float64{0.75, 0.5}, traits, DefaultConfig())
	// 0.5 - 0.2 * 0.72 * 1.9 * (1 - 0.5*0.4)
	if !near(out[0], 0.28112) || out[1] != 0.7 {
		t.Fatalf("expected [0.28112 0.7], got %v", out)
	}
}

// #endregion scenario-tests

// #region phase-tests
func TestReconcileDefaultThresholdSkipsMildPair(t *testing.T) {
	// Unknown pair -> default threshold 0.15; deviations of 0.1 do not qualify.
	in := []float64{0.6, 0.6}
	out := Reconcile(in, in, registry.Matrix{{0, -0.8}, {-0.8, 0}}, []string{"X", "Y"}, DefaultConfig())
	if out[0] != 0.6 || out[1] != 0.6 {
		t.Fatalf("expected untouched vector, got %v", out)
	}
}

func TestReconcileSkipsWeakCorrelation(t *testing.T) {
	in := []float64{0.85, 0.85}
	out := Reconcile(in, in, registry.Matrix{{0, -0.4}, {-0.4, 0}}, []string{"X", "Y"}, DefaultConfig())
	if out[0] != 0.85 || out[1] != 0.85 {
		t.Fatalf("expected untouched vector, got %v", out)
	}
}

func TestReconcilePositiveMovesCloserTrait(t *testing.T) {
	in := []float64{0.8, 0.3}
	direct := []float64{0.5, 0.5}
	out := Reconcile(in, direct, registry.Matrix{{0, 0.6}, {0.6, 0}}, []string{"X", "Y"}, DefaultConfig())
	// 0.5 + 0.3 * 0.6 * 1.4 * 1.2
	if !near(out[1], 0.8024) || out[0] != 0.8 {
		t.Fatalf("expected [0.8 0.8024], got %v", out)
	}
}

func TestDiffuseSkipsUncorrelatedTrait(t *testing.T) {
	in := []float64{0.9, 0.3, 0.7}
	corr := registry.Matrix{{0, 0, 0}, {0, 0, 0.5}, {0, 0.5, 0}}
	out := Diffuse(in, in, corr, Pattern{}, DefaultConfig())
	if out[0] != 0.9 {
		t.Fatalf("uncorrelated trait moved: %v", out[0])
	}
	for _, v := range out[1:] {
		if v < 0.12 || v > 0.88 {
			t.Fatalf("diffused value out of range: %v", v)
		}
	}
}

func TestApplyDirectBounds(t *testing.T) {
	cases := []struct {
		direct, adjusted, want float64
	}{
		{0.95, 0.2, 0.65},
		{0.85, 0.2, 0.5},
		{0.75, 0.2, 0.35},
		{0.65, 0.2, 0.25},
		{0.65, 0.4, 0.4},
		{0.05, 0.8, 0.35},
		{0.15, 0.8, 0.5},
		{0.25, 0.8, 0.65},
		{0.5, 0.8, 0.8},
	}
	for _, c := range cases {
		got := ApplyDirectBounds([]float64{c.adjusted}, []float64{c.direct})[0]
		if !near(got, c.want) {
			t.Errorf("direct %v adjusted %v: expected %v, got %v", c.direct, c.adjusted, c.want, got)
		}
	}
}

func TestReconcileNegativeRelievesStrongDirect(t *testing.T) {
	in := []float64{0.8, 0.7}
	direct := []float64{0.1, 0.1}
	out := Reconcile(in, direct, registry.Matrix{{0, -0.8}, {-0.8, 0}}, []string{"X", "Y"}, DefaultConfig())
	// 0.5 - 0.3 * 0.8 * 1.4 * (1 - 0.3), above the 0.25 strong floor
	if out[0] != 0.8 || !near(out[1], 0.2648) {
		t.Fatalf("expected [0.8 0.2648], got %v", out)
	}
}

func TestReconcilePositiveRespectsDirect(t *testing.T) {
	corr := registry.Matrix{{0, 0.6}, {0.6, 0}}
	cases := []struct {
		name   string
		in     []float64
		direct []float64
		want   []float64
	}{
		// low direct caps the pull at 0.5 + (0.4 - 0.2) * 1.5 * 0.2
		{"low direct", []float64{0.8, 0.3}, []float64{0.5, 0.2}, []float64{0.8, 0.56}},
		// high direct floors the pull at 0.5 - (0.8 - 0.6) * 1.5 * 0.2
		{"high direct", []float64{0.2, 0.7}, []float64{0.5, 0.8}, []float64{0.2, 0.44}},
	}
	for _, tc := range cases {
		out := Reconcile(tc.in, tc.direct, corr, []string{"X", "Y"}, DefaultConfig())
		if !near(out[0], tc.want[0]) || !near(out[1], tc.want[1]) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, out)
		}
	}
}

func TestDiffuseDirectFloorAndCap(t *testing.T) {
	corr := registry.Matrix{{0, -0.6}, {-0.6, 0}}
	cases := []struct {
		name   string
		in     []float64
		direct []float64
		want   []float64
	}{
		{"high direct floor", []float64{0.3, 0.7}, []float64{0.85, 0.5}, []float64{0.6, 0.695362048}},
		{"low direct cap", []float64{0.7, 0.3}, []float64{0.15, 0.5}, []float64{0.4, 0.304637952}},
	}
	for _, tc := range cases {
		out := Diffuse(tc.in, tc.direct, corr, Pattern{}, DefaultConfig())
		if !near(out[0], tc.want[0]) || !near(out[1], tc.want[1]) {
			t.Errorf("%s: expected %v, got %v", tc.name, tc.want, out)
		}
	}
}

func TestDiffuseExtremeDirectDamping(t *testing.T) {
	corr := registry.Matrix{{0, -0.6}, {-0.6, 0}}
	out := Diffuse([]float64{0.8, 0.8}, []float64{0.85, 0.5}, corr, Pattern{}, DefaultConfig())
	// undamped this would land at 0.71758442928
	if !near(out[0], 0.73862582196) || !near(out[1], 0.712781792) {
		t.Fatalf("expected [0.73862582196 0.712781792], got %v", out)
	}
}

func TestDiffuseLowBiasDamping(t *testing.T) {
	corr := registry.Matrix{{0, -0.6}, {-0.6, 0}}
	direct := []float64{0.5, 0.5}
	out := Diffuse([]float64{0.6, 0.8}, direct, corr, Pattern{HighRatio: 0.1, LowRatio: 0.7}, DefaultConfig())
	// without the low-bias factor: [0.544382592 0.749362688]
	if !near(out[0], 0.5527252032) || !near(out[1], 0.7569582848) {
		t.Fatalf("expected [0.5527252032 0.7569582848], got %v", out)
	}
}

// #endregion phase-tests

// #region calibration-tests

// Pinned calibration values. These are product-level tuning knobs, not
// algorithmic necessities; update this test together with any retune.
func TestPinnedCalibration(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.DirectWeight != 39.0 || cfg.CorrelatedWeight != 0.085 {
		t.Errorf("weights changed: W_d=%v W_c=%v", cfg.DirectWeight, cfg.CorrelatedWeight)
	}
	if cfg.AdjustThreshold != 10 || cfg.CorrelationEnforcement != 0.22 {
		t.Errorf("gate/enforcement changed: %v %v", cfg.AdjustThreshold, cfg.CorrelationEnforcement)
	}
	if cfg.DefaultPair != (PairParams{ForceFactor: 1.4, Threshold: 0.15, MinScore: 0.15}) {
		t.Errorf("default pair changed: %+v", cfg.DefaultPair)
	}
	if len(cfg.PairOverrides) != 6 || len(cfg.CriticalPairs) != 6 {
		t.Errorf("override/critical tables changed: %d %d", len(cfg.PairOverrides), len(cfg.CriticalPairs))
	}
}

func TestPairParamsForIsUnordered(t *testing.T) {
	cfg := DefaultConfig()
	a := cfg.PairParamsFor("Vigilance", "Agreeableness")
	b := cfg.PairParamsFor("Agreeableness", "Vigilance")
	if a != b || a.ForceFactor != 2.2 {
		t.Fatalf("expected shared override, got %+v %+v", a, b)
	}
	if cfg.PairParamsFor("X", "Y") != cfg.DefaultPair {
		t.Fatal("expected default params for unknown pair")
	}
}

// #endregion calibration-tests
