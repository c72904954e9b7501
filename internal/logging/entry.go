package logging

import (
	"time"

	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// NewAnswerEntry turns a processed answer into a journal row.
func NewAnswerEntry(sessionID string, res session.AnswerResult) AnswerEntry {
	e := AnswerEntry{
		SessionID:  sessionID,
		Seq:        res.Seq,
		QuestionID: string(res.QuestionID),
		Choice:     res.Choice,
		Outcome:    res.Outcome,
		Value:      res.Value,
		CreatedAt:  time.Now().UTC(),
	}
	if res.Outcome == session.OutcomeScored {
		e.Action = res.Result.Decision.Action
		e.Reason = res.Result.Decision.Reason
		e.TotalWeight = res.Result.Metrics.TotalWeight
		e.Scores = res.Result.Scores
		e.Direct = res.Result.Direct
	}
	return e
}
