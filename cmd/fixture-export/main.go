package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/replay"
)

// #region main

func main() {
	dbPath := flag.String("db", "", "path to traits.db")
	sessionID := flag.String("session", "", "session id to export")
	bankPath := flag.String("bank", "", "bank JSON the session was scored against")
	outPath := flag.String("out", "", "output fixture JSON path")
	flag.Parse()

	if *dbPath == "" || *sessionID == "" || *bankPath == "" || *outPath == "" {
		fmt.Fprintln(os.Stderr, "usage: fixture-export --db path/to/db --session <id> --bank path/to/bank.json --out path/to/fixture.json")
		os.Exit(2)
	}

	if err := run(*dbPath, *sessionID, *bankPath, *outPath); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

// #endregion main

// #region extract

func run(dbPath, sessionID, bankPath, outPath string) error {
	store, err := bank.NewStore(dbPath)
	if err != nil {
		return fmt.Errorf("open db: %w", err)
	}
	defer store.Close()

	rec, err := store.GetSession(sessionID)
	if err != nil {
		return err
	}
	entries, err := logging.ListSession(store.DB(), sessionID)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return fmt.Errorf("no answers journaled for session %s", sessionID)
	}

	rel, err := relativeTo(filepath.Dir(outPath), bankPath)
	if err != nil {
		return err
	}
	f := replay.FromJournal(rec, entries, rel)

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal fixture: %w", err)
	}
	if err := os.WriteFile(outPath, append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("write fixture: %w", err)
	}

	fmt.Printf("Exported %d answers from session %s to %s\n", len(entries), sessionID, outPath)
	return nil
}

// relativeTo expresses path relative to dir, since fixtures resolve their
// bank against their own directory.
func relativeTo(dir, path string) (string, error) {
	absDir, err := filepath.Abs(dir)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", dir, err)
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", path, err)
	}
	rel, err := filepath.Rel(absDir, absPath)
	if err != nil {
		return absPath, nil
	}
	return rel, nil
}

// #endregion extract
