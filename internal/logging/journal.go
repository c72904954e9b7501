package logging

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// TimeLayout is the fixed-width UTC layout of created_at, so text
// comparison in SQL orders rows by time.
const TimeLayout = "2006-01-02T15:04:05.000000000Z07:00"

// #region log-answer
// LogAnswer writes one processed answer to the answer_log table.
func LogAnswer(db *sql.DB, entry AnswerEntry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	scoresJSON, err := encodeVector(entry.Scores)
	if err != nil {
		return fmt.Errorf("log answer: %w", err)
	}
	directJSON, err := encodeVector(entry.Direct)
	if err != nil {
		return fmt.Errorf("log answer: %w", err)
	}

	_, err = db.Exec(
		`INSERT INTO answer_log (session_id, seq, question_id, choice, outcome, value, action, reason, total_weight, scores_json, direct_json, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		entry.Seq,
		entry.QuestionID,
		entry.Choice,
		entry.Outcome,
		nullIfEmpty(entry.Value),
		nullIfEmpty(entry.Action),
		nullIfEmpty(entry.Reason),
		entry.TotalWeight,
		nullIfEmpty(scoresJSON),
		nullIfEmpty(directJSON),
		entry.CreatedAt.UTC().Format(TimeLayout),
	)
	if err != nil {
		return fmt.Errorf("log answer: %w", err)
	}
	return nil
}
// #endregion log-answer

// #region list-session
// ListSession returns the journal rows of one session in answer order.
func ListSession(db *sql.DB, sessionID string) ([]AnswerEntry, error) {
	rows, err := db.Query(
		`SELECT session_id, seq, question_id, choice, outcome, value, action, reason, total_weight, scores_json, direct_json, created_at
		 FROM answer_log WHERE session_id = ? ORDER BY seq, id`, sessionID,
	)
	if err != nil {
		return nil, fmt.Errorf("list session %s: %w", sessionID, err)
	}
	defer rows.Close()

	var entries []AnswerEntry
	for rows.Next() {
		var e AnswerEntry
		var value, action, reason, scoresJSON, directJSON sql.NullString
		var totalWeight sql.NullFloat64
		var createdStr string

		if err := rows.Scan(&e.SessionID, &e.Seq, &e.QuestionID, &e.Choice, &e.Outcome,
			&value, &action, &reason, &totalWeight, &scoresJSON, &directJSON, &createdStr); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		e.Value = value.String
		e.Action = action.String
		e.Reason = reason.String
		e.TotalWeight = totalWeight.Float64
		if e.Scores, err = decodeVector(scoresJSON); err != nil {
			return nil, fmt.Errorf("session %s seq %d scores: %w", sessionID, e.Seq, err)
		}
		if e.Direct, err = decodeVector(directJSON); err != nil {
			return nil, fmt.Errorf("session %s seq %d direct: %w", sessionID, e.Seq, err)
		}
		e.CreatedAt, _ = time.Parse(TimeLayout, createdStr)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}
// #endregion list-session

// #region list-sessions
// ListSessions summarizes the most recently active sessions, newest first.
func ListSessions(db *sql.DB, limit int) ([]SessionSummary, error) {
	rows, err := db.Query(
		`SELECT session_id, COUNT(*), SUM(CASE WHEN outcome = 'scored' THEN 1 ELSE 0 END),
		        MAX(seq), MIN(created_at), MAX(created_at)
		 FROM answer_log GROUP BY session_id ORDER BY MAX(created_at) DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}

	var out []SessionSummary
	for rows.Next() {
		var s SessionSummary
		var firstStr, lastStr string
		if err := rows.Scan(&s.SessionID, &s.Answers, &s.Scored, &s.LastSeq, &firstStr, &lastStr); err != nil {
			rows.Close()
			return nil, fmt.Errorf("scan row: %w", err)
		}
		s.FirstAt, _ = time.Parse(TimeLayout, firstStr)
		s.LastAt, _ = time.Parse(TimeLayout, lastStr)
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	for i := range out {
		var scoresJSON sql.NullString
		err := db.QueryRow(
			`SELECT scores_json FROM answer_log
			 WHERE session_id = ? AND scores_json IS NOT NULL ORDER BY seq DESC, id DESC LIMIT 1`,
			out[i].SessionID,
		).Scan(&scoresJSON)
		if err != nil && !errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("final scores of %s: %w", out[i].SessionID, err)
		}
		if out[i].FinalScores, err = decodeVector(scoresJSON); err != nil {
			return nil, fmt.Errorf("final scores of %s: %w", out[i].SessionID, err)
		}
	}
	return out, nil
}
// #endregion list-sessions

// #region helpers
func nullIfEmpty(s string) interface{} {
	if s == "" {
		return nil
	}
	return s
}

func encodeVector(v []float64) (string, error) {
	if v == nil {
		return "", nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return "", fmt.Errorf("marshal vector: %w", err)
	}
	return string(b), nil
}

func decodeVector(s sql.NullString) ([]float64, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	var v []float64
	if err := json.Unmarshal([]byte(s.String), &v); err != nil {
		return nil, fmt.Errorf("unmarshal vector: %w", err)
	}
	return v, nil
}
// #endregion helpers
