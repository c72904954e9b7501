package main

import (
	"bufio"
	"errors"
	"flag"
	"fmt"
	"log"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/config"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/report"
	"github.com/danielpatrickdp/trait-profile/internal/selection"
	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// #region main
func main() {
	cfg, err := config.Load(".env")
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	mode := flag.String("mode", cfg.Mode, "test mode: demo, basic or comprehensive")
	relaxed := flag.Bool("relaxed", cfg.Relaxed, "relaxed scoring, [0, 1] bounds without adjustment")
	seed := flag.Uint64("seed", cfg.Seed, "selection seed, 0 for time based")
	flag.Parse()
	cfg.Relaxed = *relaxed

	logger, err := cfg.Logger(os.Stderr)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}

	// Initialize bank store
	store, err := bank.NewStore(cfg.DB)
	if err != nil {
		log.Fatalf("failed to open store: %v", err)
	}
	defer store.Close()

	reg, bankID, err := ensureBank(store, cfg.Bank, logger)
	if err != nil {
		log.Fatalf("failed to load question bank: %v", err)
	}

	if *seed == 0 {
		*seed = uint64(time.Now().UnixNano())
	}
	questions, err := selection.NewSelector(reg, selection.NewRand(*seed)).Select(*mode)
	if err != nil {
		log.Fatalf("select questions: %v", err)
	}
	if len(questions) == 0 {
		log.Fatalf("question bank %s has no questions", cfg.Bank)
	}

	s := session.New(reg, cfg.Scoring(), logger)
	s.Start(questions)

	ids := make([]string, len(questions))
	for i, q := range questions {
		ids[i] = string(q.ID)
	}
	if err := store.CreateSession(bank.SessionRecord{
		SessionID: s.ID(),
		BankID:    bankID,
		Mode:      *mode,
		Seed:      *seed,
		Relaxed:   cfg.Relaxed,
		Questions: ids,
	}); err != nil {
		logger.Warn("[QUIZ] session journal failed", "error", err)
	}

	fmt.Println("Personality assessment ready.")
	fmt.Printf("  Mode: %s | Questions: %d | Session: %s\n", *mode, len(questions), s.ID())
	fmt.Println("Answer with the choice number ('end' to finish now, 'quit' to exit):")

	scanner := bufio.NewScanner(os.Stdin)
	for !s.Complete() {
		q, _ := s.Current()
		printQuestion(q, s.Cursor()+1, len(questions))

		fmt.Print("> ")
		if !scanner.Scan() {
			return
		}
		input := strings.TrimSpace(scanner.Text())
		switch input {
		case "":
			continue
		case "quit", "exit":
			return
		case "end":
			s.EndNow()
			continue
		}

		n, err := strconv.Atoi(input)
		if err != nil || n < 1 || n > len(q.Choices) {
			fmt.Printf("Enter a number between 1 and %d.\n", len(q.Choices))
			continue
		}

		res, err := s.Answer(n - 1)
		if errors.Is(err, session.ErrComplete) {
			break
		}
		if err != nil {
			log.Printf("answer error: %v", err)
			continue
		}

		// Log answer
		if err := logging.LogAnswer(store.DB(), logging.NewAnswerEntry(s.ID(), res)); err != nil {
			log.Printf("logging error: %v", err)
		}

		if res.Outcome == session.OutcomeScored {
			fmt.Printf("[%d] %s, progress %d%%\n", res.Seq, res.Result.Decision.Action, s.Progress())
		}
	}

	fmt.Println()
	opts := report.DefaultOptions()
	opts.Lang = report.ParseLang(cfg.Lang)
	if err := report.Render(os.Stdout, report.FromSession(s), opts); err != nil {
		log.Printf("report error: %v", err)
	}
}
// #endregion main

// #region helpers
// ensureBank returns the stored bank, importing bankPath first when the
// store is empty.
func ensureBank(store *bank.Store, bankPath string, logger *slog.Logger) (*registry.Registry, string, error) {
	reg, err := store.Load()
	if err == nil {
		info, err := store.Info()
		if err != nil {
			return nil, "", err
		}
		return reg, info.BankID, nil
	}
	if !errors.Is(err, bank.ErrEmpty) {
		return nil, "", err
	}

	logger.Info("[QUIZ] no bank imported, loading file", "path", bankPath)
	reg = registry.LoadOrEmpty(bankPath, logger)
	info, err := store.Import(reg, bankPath)
	if err != nil {
		return nil, "", err
	}
	return reg, info.BankID, nil
}

func printQuestion(q registry.Question, n, total int) {
	fmt.Printf("\nQuestion %d of %d\n%s\n", n, total, q.Text)
	for i, c := range q.Choices {
		fmt.Printf("  %d. %s\n", i+1, c.Text)
	}
}
// #endregion helpers
