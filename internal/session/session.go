package session

import (
	"fmt"
	"log/slog"
	"maps"
	"slices"

	"github.com/google/uuid"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
)

// #region session

// Session is one respondent's assessment attempt. It owns the accumulators,
// pattern counters and facet scores, and re-derives the trait vector from
// them after every scored answer. A Session is not safe for concurrent use.
type Session struct {
	id     string
	reg    *registry.Registry
	cfg    scoring.Config
	logger *slog.Logger

	questions []registry.Question
	cursor    int

	acc          scoring.Accumulators
	pattern      scoring.PatternCounters
	scores       []float64
	direct       []float64
	facets       map[string]map[string]float64
	demographics map[registry.QuestionID]int
	answers      []int
	last         scoring.Result
}

// New creates a session over reg with no active questions.
func New(reg *registry.Registry, cfg scoring.Config, logger *slog.Logger) *Session {
	if reg == nil {
		reg = registry.Empty()
	}
	if logger == nil {
		logger = slog.Default()
	}
	s := &Session{
		id:     uuid.New().String(),
		reg:    reg,
		cfg:    cfg,
		logger: logger,
	}
	s.Reset()
	return s
}

// ID returns the session's uuid.
func (s *Session) ID() string { return s.id }

// Registry returns the registry the session scores against.
func (s *Session) Registry() *registry.Registry { return s.reg }

// Config returns the scoring calibration in use.
func (s *Session) Config() scoring.Config { return s.cfg }

// Start installs the active question list and resets the attempt.
func (s *Session) Start(questions []registry.Question) {
	s.questions = slices.Clone(questions)
	s.Reset()
	s.logger.Info("[SESSION] started", "session", s.id, "questions", len(s.questions), "relaxed", s.cfg.Relaxed)
}

// Reset clears the attempt: scores and facets back to neutral, accumulators,
// counters, answers and the cursor cleared. Active questions are kept.
func (s *Session) Reset() {
	n := len(s.reg.Traits)
	s.cursor = 0
	s.acc = scoring.NewAccumulators(n)
	s.pattern = scoring.PatternCounters{}
	s.scores = neutralVector(n)
	s.direct = neutralVector(n)
	s.demographics = map[registry.QuestionID]int{}
	s.answers = nil
	s.last = scoring.Result{}

	s.facets = make(map[string]map[string]float64, len(s.reg.Facets))
	for trait, names := range s.reg.Facets {
		fs := make(map[string]float64, len(names))
		for _, f := range names {
			fs[f] = 0.5
		}
		s.facets[trait] = fs
	}
}

// #endregion session

// #region answer

// Answer processes the choice index for the current question and advances
// the cursor. Out-of-range indexes are recorded in the history and dropped.
func (s *Session) Answer(choice int) (AnswerResult, error) {
	if len(s.questions) == 0 {
		return AnswerResult{}, ErrNoQuestions
	}
	if s.Complete() {
		return AnswerResult{}, ErrComplete
	}

	q := s.questions[s.cursor]
	s.answers = append(s.answers, choice)
	s.cursor++

	res := AnswerResult{
		Seq:        len(s.answers),
		QuestionID: q.ID,
		Choice:     choice,
	}

	if q.IsDemographic() {
		s.demographics[q.ID] = choice
		res.Outcome = OutcomeDemographic
		return res, nil
	}

	if choice < 0 || choice >= len(q.Choices) {
		s.logger.Debug("[SESSION] answer skipped", "session", s.id, "question", q.ID, "choice", choice, "choices", len(q.Choices))
		res.Outcome = OutcomeSkipped
		return res, nil
	}

	c := q.Choices[choice]
	score := scoring.ValueScore(c.Value)
	s.pattern.Record(c.Value)

	trait := q.PrimaryTrait()
	if i, ok := s.reg.Index(trait); ok {
		s.acc.Add(i, score, s.cfg.DirectWeight)
	}
	s.applyCorrelations(c.Correlations, score)

	if facet, ok := q.Facet(); ok {
		s.updateFacet(trait, facet, score)
	}

	res.Outcome = OutcomeScored
	res.Value = c.Value
	res.Score = score
	res.Result = s.Recompute()
	return res, nil
}

// applyCorrelations records one correlated contribution per resolvable
// abbreviation, in sorted abbreviation order.
func (s *Session) applyCorrelations(correlations map[string]string, score float64) {
	for _, abbr := range slices.Sorted(maps.Keys(correlations)) {
		i, ok := s.reg.ResolveAbbreviation(abbr)
		if !ok {
			continue
		}
		adj := scoring.Adjustment(correlations[abbr])
		s.acc.Add(i, scoring.CorrelatedScore(score, adj), s.cfg.CorrelatedWeight)
	}
}

func (s *Session) updateFacet(trait, facet string, score float64) {
	if _, ok := s.reg.Index(trait); !ok {
		return
	}
	fs, ok := s.facets[trait]
	if !ok {
		return
	}
	current, ok := fs[facet]
	if !ok {
		return
	}
	fs[facet] = scoring.UpdateFacet(current, score)
}

// #endregion answer

// #region lifecycle

// Recompute re-derives the trait vector from the accumulators.
func (s *Session) Recompute() scoring.Result {
	res := scoring.Compute(scoring.Input{
		Traits:       s.reg.Traits,
		Correlations: s.reg.Correlations,
		Accumulators: s.acc,
		Pattern:      s.pattern.Detect(),
	}, s.cfg)
	s.scores = res.Scores
	s.direct = res.Direct
	s.last = res
	return res
}

// Finalize recomputes the vector without touching the cursor.
func (s *Session) Finalize() scoring.Result {
	return s.Recompute()
}

// EndNow recomputes the vector and marks the attempt complete.
func (s *Session) EndNow() scoring.Result {
	res := s.Recompute()
	if len(s.questions) > 0 {
		s.cursor = len(s.questions)
	}
	s.logger.Info("[SESSION] ended", "session", s.id, "answered", len(s.answers), "of", len(s.questions))
	return res
}

// Complete reports whether every active question has been answered.
// A session with no questions is never complete.
func (s *Session) Complete() bool {
	if len(s.questions) == 0 {
		return false
	}
	return s.cursor >= len(s.questions)
}

// Progress returns the answered share as a whole percentage, capped at 100.
func (s *Session) Progress() int {
	if len(s.questions) == 0 {
		return 0
	}
	return min(100, s.cursor*100/len(s.questions))
}

// #endregion lifecycle

// #region accessors

// Current returns the question awaiting an answer.
func (s *Session) Current() (registry.Question, bool) {
	if s.cursor >= len(s.questions) {
		return registry.Question{}, false
	}
	return s.questions[s.cursor], true
}

// Cursor returns the index of the next question.
func (s *Session) Cursor() int { return s.cursor }

// Questions returns a copy of the active question list.
func (s *Session) Questions() []registry.Question { return slices.Clone(s.questions) }

// Scores returns a copy of the current trait vector.
func (s *Session) Scores() []float64 { return slices.Clone(s.scores) }

// Direct returns a copy of the base scores behind the current vector.
func (s *Session) Direct() []float64 { return slices.Clone(s.direct) }

// Answers returns every submitted choice index in order.
func (s *Session) Answers() []int { return slices.Clone(s.answers) }

// Pattern returns the answer tendency counters.
func (s *Session) Pattern() scoring.PatternCounters { return s.pattern }

// Accumulators returns a copy of the per-trait running sums.
func (s *Session) Accumulators() scoring.Accumulators { return slices.Clone(s.acc) }

// LastResult returns the most recent recomputation.
func (s *Session) LastResult() scoring.Result { return s.last }

// Demographics returns a copy of the stored demographic answers.
func (s *Session) Demographics() map[registry.QuestionID]int { return maps.Clone(s.demographics) }

// Facets returns a deep copy of the facet scores keyed by trait then facet.
func (s *Session) Facets() map[string]map[string]float64 {
	out := make(map[string]map[string]float64, len(s.facets))
	for trait, fs := range s.facets {
		out[trait] = maps.Clone(fs)
	}
	return out
}

// Score returns the current score of a named trait.
func (s *Session) Score(trait string) (float64, error) {
	i, ok := s.reg.Index(trait)
	if !ok {
		return 0, fmt.Errorf("unknown trait %q", trait)
	}
	return s.scores[i], nil
}

// Snapshot copies the observable state.
func (s *Session) Snapshot() Snapshot {
	return Snapshot{
		ID:           s.id,
		Traits:       slices.Clone(s.reg.Traits),
		Scores:       s.Scores(),
		Direct:       s.Direct(),
		Facets:       s.Facets(),
		Demographics: s.Demographics(),
		Answers:      s.Answers(),
		Pattern:      s.pattern,
		Progress:     s.Progress(),
		Complete:     s.Complete(),
	}
}

// #endregion accessors

func neutralVector(n int) []float64 {
	v := make([]float64, n)
	for i := range v {
		v[i] = 0.5
	}
	return v
}
