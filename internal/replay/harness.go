package replay

import (
	"fmt"
	"log/slog"
	"math"

	"github.com/danielpatrickdp/trait-profile/internal/eval"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// #region types
// ReplayResult captures the outcome of replaying one answer.
type ReplayResult struct {
	Seq        int
	QuestionID registry.QuestionID
	Choice     int
	Outcome    string // "scored" | "skipped" | "demographic"
	Action     string // scoring decision, empty unless scored
	Reason     string

	TotalWeight float64
	Scores      []float64

	// Eval stage (nil unless scored)
	EvalResult *eval.EvalResult
}

// ReplaySummary provides aggregate stats from a replay run.
type ReplaySummary struct {
	TotalSteps   int
	Scored       int
	Skipped      int
	Demographic  int
	Adjusted     int
	BaseOnly     int
	EvalFailures int
	FinalScores  []float64
}

// #endregion types

// #region replay
// Replay runs the answers through a fresh session over questions, one answer
// per question, and validates the profile after every scored step.
// Operates entirely in-memory.
func Replay(reg *registry.Registry, questions []registry.Question, answers []int, cfg scoring.Config, logger *slog.Logger) ([]ReplayResult, *session.Session, error) {
	s := session.New(reg, cfg, logger)
	s.Start(questions)
	evalInst := eval.NewEvalHarness(eval.ConfigFor(cfg))

	results := make([]ReplayResult, 0, len(answers))
	for i, choice := range answers {
		res, err := s.Answer(choice)
		if err != nil {
			return results, s, fmt.Errorf("answer %d: %w", i+1, err)
		}

		r := ReplayResult{
			Seq:        res.Seq,
			QuestionID: res.QuestionID,
			Choice:     res.Choice,
			Outcome:    res.Outcome,
		}
		if res.Outcome == session.OutcomeScored {
			r.Action = res.Result.Decision.Action
			r.Reason = res.Result.Decision.Reason
			r.TotalWeight = res.Result.Metrics.TotalWeight
			r.Scores = res.Result.Scores

			evalResult := evalInst.Run(eval.Profile{
				Traits: reg.Traits,
				Scores: res.Result.Scores,
				Facets: s.Facets(),
			})
			r.EvalResult = &evalResult
		}
		results = append(results, r)
	}
	return results, s, nil
}

// RunFixture loads the fixture's bank and replays it.
func RunFixture(f *Fixture, logger *slog.Logger) ([]ReplayResult, *session.Session, error) {
	reg, err := f.LoadRegistry()
	if err != nil {
		return nil, nil, err
	}
	return RunFixtureWith(f, reg, logger)
}

// RunFixtureWith replays the fixture against an already loaded registry.
func RunFixtureWith(f *Fixture, reg *registry.Registry, logger *slog.Logger) ([]ReplayResult, *session.Session, error) {
	questions, err := f.ResolveQuestions(reg)
	if err != nil {
		return nil, nil, err
	}
	cfg := scoring.DefaultConfig()
	cfg.Relaxed = f.Relaxed
	return Replay(reg, questions, f.Answers, cfg, logger)
}

// Summarize computes aggregate stats from replay results.
func Summarize(results []ReplayResult, finalScores []float64) ReplaySummary {
	s := ReplaySummary{
		TotalSteps:  len(results),
		FinalScores: finalScores,
	}
	for _, r := range results {
		switch r.Outcome {
		case session.OutcomeScored:
			s.Scored++
		case session.OutcomeSkipped:
			s.Skipped++
		case session.OutcomeDemographic:
			s.Demographic++
		}
		switch r.Action {
		case scoring.ActionAdjusted:
			s.Adjusted++
		case scoring.ActionBase:
			s.BaseOnly++
		}
		if r.EvalResult != nil && !r.EvalResult.Passed {
			s.EvalFailures++
		}
	}
	return s
}

// MaxDeviation returns the largest absolute difference between two vectors,
// or +Inf when their lengths differ.
func MaxDeviation(got, want []float64) float64 {
	if len(got) != len(want) {
		return math.Inf(1)
	}
	var worst float64
	for i := range got {
		worst = math.Max(worst, math.Abs(got[i]-want[i]))
	}
	return worst
}

// #endregion replay
