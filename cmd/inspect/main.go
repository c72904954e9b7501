package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"os"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/eval"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/scoring"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to traits.db")
	last := flag.Int("last", 20, "show N most recent sessions")
	sessionID := flag.String("session", "", "show single session detail")
	trait := flag.String("trait", "", "add one trait's score column to the session detail")
	jsonOut := flag.Bool("json", false, "output as JSON instead of table")
	flag.Parse()

	if *dbPath == "" {
		fmt.Fprintln(os.Stderr, "usage: inspect --db path/to/traits.db [--last N] [--session id] [--trait name] [--json]")
		os.Exit(2)
	}

	store, err := bank.NewStore(*dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		os.Exit(1)
	}
	defer store.Close()

	traits, err := traitNames(store)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	if *sessionID != "" {
		err = runDetailMode(store, traits, *sessionID, *trait, *jsonOut)
	} else {
		err = runListMode(store, traits, *last, *jsonOut)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// traitNames returns the imported bank's trait order, or nil when the
// database holds only a journal.
func traitNames(store *bank.Store) ([]string, error) {
	reg, err := store.Load()
	if errors.Is(err, bank.ErrEmpty) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return reg.Traits, nil
}

// #endregion main

// #region list-mode

type listRow struct {
	SessionID string             `json:"session_id"`
	Answers   int                `json:"answers"`
	Scored    int                `json:"scored"`
	LastSeq   int                `json:"last_seq"`
	FirstAt   string             `json:"first_at"`
	LastAt    string             `json:"last_at"`
	Scores    map[string]float64 `json:"scores,omitempty"`
}

func runListMode(store *bank.Store, traits []string, last int, jsonOut bool) error {
	sessions, err := logging.ListSessions(store.DB(), last)
	if err != nil {
		return err
	}
	if len(sessions) == 0 {
		fmt.Fprintln(os.Stderr, "no sessions found")
		return nil
	}

	rows := make([]listRow, len(sessions))
	for i, s := range sessions {
		rows[i] = listRow{
			SessionID: s.SessionID,
			Answers:   s.Answers,
			Scored:    s.Scored,
			LastSeq:   s.LastSeq,
			FirstAt:   s.FirstAt.Format("2006-01-02T15:04:05Z"),
			LastAt:    s.LastAt.Format("2006-01-02T15:04:05Z"),
			Scores:    named(traits, s.FinalScores),
		}
	}

	if jsonOut {
		return printJSON(rows)
	}

	fmt.Printf("%-10s  %7s  %6s  %-20s  %s\n", "Session", "Answers", "Scored", "Last Answer", "Top Trait")
	fmt.Printf("%-10s+-%7s+-%6s+-%-20s+-%s\n", "----------", "-------", "------", "--------------------", "------------")
	for i, r := range rows {
		fmt.Printf("%-10s  %7d  %6d  %-20s  %s\n",
			shortID(r.SessionID), r.Answers, r.Scored, r.LastAt, topTrait(traits, sessions[i].FinalScores))
	}
	return nil
}

// #endregion list-mode

// #region detail-mode

type detailOutput struct {
	SessionID string                `json:"session_id"`
	Mode      string                `json:"mode,omitempty"`
	Seed      uint64                `json:"seed,omitempty"`
	Relaxed   bool                  `json:"relaxed"`
	Steps     []logging.AnswerEntry `json:"steps"`
	Final     map[string]float64    `json:"final,omitempty"`
	Eval      *eval.EvalResult      `json:"eval,omitempty"`
}

func runDetailMode(store *bank.Store, traits []string, sessionID, traitFilter string, jsonOut bool) error {
	entries, err := logging.ListSession(store.DB(), sessionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no answers journaled for session %s", sessionID)
	}

	out := detailOutput{SessionID: sessionID, Steps: entries}
	cfg := scoring.DefaultConfig()
	if rec, err := store.GetSession(sessionID); err == nil {
		out.Mode, out.Seed, out.Relaxed = rec.Mode, rec.Seed, rec.Relaxed
		cfg.Relaxed = rec.Relaxed
	}

	final := finalScores(entries)
	if final != nil {
		out.Final = named(traits, final)
		if len(traits) > 0 {
			res := eval.NewEvalHarness(eval.ConfigFor(cfg)).Run(eval.Profile{Traits: traits, Scores: final})
			out.Eval = &res
		}
	}

	if jsonOut {
		return printJSON(out)
	}

	traitIdx := -1
	for i, t := range traits {
		if t == traitFilter {
			traitIdx = i
		}
	}
	if traitFilter != "" && traitIdx < 0 {
		return fmt.Errorf("unknown trait %q", traitFilter)
	}

	fmt.Printf("Session:  %s\n", out.SessionID)
	if out.Mode != "" {
		fmt.Printf("Mode:     %s (seed %d, relaxed %v)\n", out.Mode, out.Seed, out.Relaxed)
	}
	fmt.Println()

	header := fmt.Sprintf("%-4s  %-10s  %6s  %-11s  %-9s  %8s", "Seq", "Question", "Choice", "Outcome", "Action", "Weight")
	if traitIdx >= 0 {
		header += fmt.Sprintf("  %s", traitFilter)
	}
	fmt.Println(header)
	for _, e := range entries {
		line := fmt.Sprintf("%-4d  %-10s  %6d  %-11s  %-9s  %8.3f", e.Seq, e.QuestionID, e.Choice, e.Outcome, dash(e.Action), e.TotalWeight)
		if traitIdx >= 0 {
			if traitIdx < len(e.Scores) {
				line += fmt.Sprintf("  %.4f", e.Scores[traitIdx])
			} else {
				line += "  —"
			}
		}
		fmt.Println(line)
	}

	if final != nil {
		fmt.Printf("\nFinal scores:\n")
		for i, v := range final {
			fmt.Printf("  %-24s %.4f\n", traitLabel(traits, i), v)
		}
	}
	if out.Eval != nil {
		fmt.Printf("\nEval: passed=%v", out.Eval.Passed)
		if out.Eval.Reason != "" {
			fmt.Printf(" (%s)", out.Eval.Reason)
		}
		fmt.Println()
	}
	return nil
}

// finalScores returns the last recorded vector, or nil.
func finalScores(entries []logging.AnswerEntry) []float64 {
	for i := len(entries) - 1; i >= 0; i-- {
		if entries[i].Scores != nil {
			return entries[i].Scores
		}
	}
	return nil
}

// #endregion detail-mode

// #region output

func named(traits []string, scores []float64) map[string]float64 {
	if scores == nil {
		return nil
	}
	out := make(map[string]float64, len(scores))
	for i, v := range scores {
		out[traitLabel(traits, i)] = v
	}
	return out
}

func traitLabel(traits []string, i int) string {
	if i < len(traits) {
		return traits[i]
	}
	return fmt.Sprintf("trait[%d]", i)
}

func topTrait(traits []string, scores []float64) string {
	if len(scores) == 0 {
		return "—"
	}
	best := 0
	for i, v := range scores {
		if v > scores[best] {
			best = i
		}
	}
	return fmt.Sprintf("%s %.2f", traitLabel(traits, best), scores[best])
}

func dash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}

func printJSON(v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}
	fmt.Println(string(data))
	return nil
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

// #endregion output
