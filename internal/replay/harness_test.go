package replay

import (
	"errors"
	"math"
	"path/filepath"
	"testing"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// helper: the shared five-trait bank.
func loadBank(t *testing.T) *registry.Registry {
	t.Helper()
	reg, err := registry.LoadFile(filepath.Join("..", "registry", "testdata", "bank.json"))
	if err != nil {
		t.Fatalf("load bank: %v", err)
	}
	return reg
}

// 1. Every scored step is validated; skipped and demographic steps are not.
func TestReplay_EvalOnScoredStepsOnly(t *testing.T) {
	reg := loadBank(t)
	results, _, err := Replay(reg, reg.Questions, []int{0, 1, 4, 2, 0, 0, 9, 1}, scoring.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	for _, r := range results {
		if (r.EvalResult != nil) != (r.Outcome == session.OutcomeScored) {
			t.Errorf("seq %d (%s): eval presence mismatch", r.Seq, r.Outcome)
		}
		if r.EvalResult != nil && !r.EvalResult.Passed {
			t.Errorf("seq %d: eval failed: %s", r.Seq, r.EvalResult.Reason)
		}
	}
}

// 2. Below the weight threshold the base scores pass through.
func TestReplay_BaseOnlyBelowThreshold(t *testing.T) {
	reg := loadBank(t)
	cfg := scoring.DefaultConfig()
	cfg.DirectWeight = 1 // one direct answer: 1.085 <= 10

	results, s, err := Replay(reg, reg.Questions[:1], []int{0}, cfg, nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if results[0].Action != scoring.ActionBase {
		t.Fatalf("expected base action, got %s", results[0].Action)
	}
	if got := s.Scores(); got[0] != 0.9 || got[1] != 0.1 {
		t.Fatalf("expected unadjusted base scores, got %v", got)
	}
}

// 3. More answers than questions surfaces ErrComplete.
func TestReplay_TooManyAnswers(t *testing.T) {
	reg := loadBank(t)
	results, _, err := Replay(reg, reg.Questions[:2], []int{0, 0, 0}, scoring.DefaultConfig(), nil)
	if !errors.Is(err, session.ErrComplete) {
		t.Fatalf("expected ErrComplete, got %v", err)
	}
	if len(results) != 2 {
		t.Fatalf("expected 2 results before the error, got %d", len(results))
	}
}

// 4. Summarize: counts match result outcomes and actions.
func TestReplay_Summarize(t *testing.T) {
	reg := loadBank(t)
	results, s, err := Replay(reg, reg.Questions, []int{0, 1, 4, 2, 0, 0, 9, 1}, scoring.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}

	summary := Summarize(results, s.Scores())
	if summary.TotalSteps != 8 || summary.Scored != 6 || summary.Skipped != 1 || summary.Demographic != 1 {
		t.Errorf("unexpected outcome counts %+v", summary)
	}
	if summary.Adjusted != 6 || summary.BaseOnly != 0 || summary.EvalFailures != 0 {
		t.Errorf("unexpected action counts %+v", summary)
	}
	if len(summary.FinalScores) != 5 {
		t.Errorf("expected final scores, got %v", summary.FinalScores)
	}
}

// 5. Determinism: two replays of the same stream agree exactly.
func TestReplay_Deterministic(t *testing.T) {
	reg := loadBank(t)
	answers := []int{3, 5, 0, 1, 2, 4, 0, 0}
	_, a, err := Replay(reg, reg.Questions, answers, scoring.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	_, b, err := Replay(reg, reg.Questions, answers, scoring.DefaultConfig(), nil)
	if err != nil {
		t.Fatalf("Replay: %v", err)
	}
	if MaxDeviation(a.Scores(), b.Scores()) != 0 {
		t.Fatalf("replays differ: %v vs %v", a.Scores(), b.Scores())
	}
}

func TestMaxDeviation(t *testing.T) {
	if d := MaxDeviation([]float64{0.5, 0.7}, []float64{0.5, 0.4}); math.Abs(d-0.3) > 1e-12 {
		t.Errorf("expected 0.3, got %v", d)
	}
	if !math.IsInf(MaxDeviation([]float64{1}, nil), 1) {
		t.Error("expected +Inf for length mismatch")
	}
}
