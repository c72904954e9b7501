package logging

import "time"

// #region answer-entry
// AnswerEntry is a single row in the answer_log table.
type AnswerEntry struct {
	SessionID   string
	Seq         int
	QuestionID  string
	Choice      int
	Outcome     string // "scored" | "skipped" | "demographic"
	Value       string
	Action      string // "base" | "adjusted" | "relaxed", empty unless scored
	Reason      string
	TotalWeight float64
	Scores      []float64
	Direct      []float64
	CreatedAt   time.Time
}
// #endregion answer-entry

// #region session-summary
// SessionSummary aggregates the journal rows of one session.
type SessionSummary struct {
	SessionID   string
	Answers     int
	Scored      int
	LastSeq     int
	FirstAt     time.Time
	LastAt      time.Time
	FinalScores []float64
}
// #endregion session-summary
