package session

import (
	"errors"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
)

var (
	// ErrComplete is returned when an answer arrives after the last question.
	ErrComplete = errors.New("session: assessment complete")
	// ErrNoQuestions is returned when answering a session with no active questions.
	ErrNoQuestions = errors.New("session: no active questions")
)

// #region outcome

// Answer outcomes recorded in AnswerResult.Outcome.
const (
	OutcomeScored      = "scored"      // contributions recorded, vector recomputed
	OutcomeSkipped     = "skipped"     // choice index out of range, dropped
	OutcomeDemographic = "demographic" // stored, never scored
)

// AnswerResult describes what one submitted answer did to the session.
type AnswerResult struct {
	Seq        int // 1-based position in the answer history
	QuestionID registry.QuestionID
	Choice     int
	Outcome    string
	Value      string         // qualitative label of the chosen option
	Score      float64        // 1-5 score of the label, 0 unless scored
	Result     scoring.Result // zero unless scored
}

// #endregion outcome

// #region snapshot

// Snapshot is a read-only copy of the observable session state.
type Snapshot struct {
	ID           string                        `json:"id"`
	Traits       []string                      `json:"traits"`
	Scores       []float64                     `json:"scores"`
	Direct       []float64                     `json:"direct"`
	Facets       map[string]map[string]float64 `json:"facets"`
	Demographics map[registry.QuestionID]int   `json:"demographics,omitempty"`
	Answers      []int                         `json:"answers"`
	Pattern      scoring.PatternCounters       `json:"pattern"`
	Progress     int                           `json:"progress"`
	Complete     bool                          `json:"complete"`
}

// #endregion snapshot
