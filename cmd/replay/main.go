package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to traits.db (DB mode)")
	sessionID := flag.String("session", "", "session id to replay (DB mode)")
	fixturePath := flag.String("fixture", "", "path to fixture JSON (fixture mode)")
	verbose := flag.Bool("v", false, "log session activity to stderr")
	flag.Parse()

	dbMode := *dbPath != "" && *sessionID != ""
	if dbMode == (*fixturePath != "") {
		fmt.Fprintln(os.Stderr, "usage: replay --db path/to/traits.db --session <id>")
		fmt.Fprintln(os.Stderr, "       replay --fixture path/to/fixture.json")
		os.Exit(2)
	}

	level := "warn"
	if *verbose {
		level = "debug"
	}
	logger, err := logging.NewLogger(os.Stderr, level)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(2)
	}

	var exitCode int
	if *fixturePath != "" {
		exitCode = runFixtureMode(*fixturePath, logger)
	} else {
		exitCode = runDBMode(*dbPath, *sessionID, logger)
	}
	os.Exit(exitCode)
}

// #endregion main

// #region db-extract

func runDBMode(dbPath, sessionID string, logger *slog.Logger) int {
	store, err := bank.NewStore(dbPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "open db: %v\n", err)
		return 2
	}
	defer store.Close()

	rec, err := store.GetSession(sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "get session: %v\n", err)
		return 2
	}
	entries, err := logging.ListSession(store.DB(), sessionID)
	if err != nil {
		fmt.Fprintf(os.Stderr, "list answers: %v\n", err)
		return 2
	}
	if len(entries) == 0 {
		fmt.Fprintf(os.Stderr, "no answers journaled for session %s\n", sessionID)
		return 2
	}

	reg, err := store.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "load bank: %v\n", err)
		return 2
	}

	f := replay.FromJournal(rec, entries, "")
	results, s, err := replay.RunFixtureWith(&f, reg, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(&f, results, s.Scores())
}

// #endregion db-extract

// #region output

func runFixtureMode(path string, logger *slog.Logger) int {
	f, err := replay.LoadFixture(path)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load fixture: %v\n", err)
		return 2
	}
	results, s, err := replay.RunFixture(f, logger)
	if err != nil {
		fmt.Fprintf(os.Stderr, "replay: %v\n", err)
		return 2
	}
	return printComparison(f, results, s.Scores())
}

// printComparison outputs a per-answer comparison table followed by the
// final vector check, and returns the exit code.
func printComparison(f *replay.Fixture, results []replay.ReplayResult, final []float64) int {
	fmt.Printf("%-6s| %-12s| %-15s| %-15s| %s\n", "Seq", "Question", "Expected", "Replayed", "Match")
	fmt.Printf("%-6s+%-13s+%-16s+%-16s+%s\n",
		"------", "-------------", "----------------", "----------------", "------")

	expected := make(map[int]string, len(f.ExpectedResults))
	for _, e := range f.ExpectedResults {
		expected[e.Seq] = label(e.Outcome, e.Action)
	}

	matches, compared := 0, 0
	for _, r := range results {
		got := label(r.Outcome, r.Action)
		exp, ok := expected[r.Seq]
		match := "-"
		if ok {
			compared++
			match = "DIFF"
			if exp == got {
				match = "OK"
				matches++
			}
		}
		fmt.Printf("%-6d| %-12s| %-15s| %-15s| %s\n", r.Seq, r.QuestionID, exp, got, match)
	}

	diverge := compared - matches
	summary := replay.Summarize(results, final)
	fmt.Printf("\nSummary: %d steps (%d scored, %d skipped, %d demographic), %d match, %d diverge, %d eval failures\n",
		summary.TotalSteps, summary.Scored, summary.Skipped, summary.Demographic, matches, diverge, summary.EvalFailures)

	if len(f.Expected.Scores) > 0 {
		dev := replay.MaxDeviation(final, f.Expected.Scores)
		status := "OK"
		if dev > f.Expected.Tolerance {
			status = "DIFF"
			diverge++
		}
		fmt.Printf("Final vector: max deviation %.3g (tolerance %.3g) %s\n", dev, f.Expected.Tolerance, status)
	}

	if diverge > 0 || summary.EvalFailures > 0 {
		return 1
	}
	return 0
}

// label is the decision for scored answers and the outcome otherwise.
func label(outcome, action string) string {
	if action != "" {
		return action
	}
	return outcome
}

// #endregion output
