package replay

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/danielpatrickdp/trait-profile/internal/bank"
	"github.com/danielpatrickdp/trait-profile/internal/logging"
	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// #region fixture-types

// Fixture is the top-level JSON structure for a replay fixture.
type Fixture struct {
	Description     string                  `json:"description"`
	Bank            string                  `json:"bank,omitempty"` // bank JSON, relative to the fixture file
	Relaxed         bool                    `json:"relaxed"`
	Questions       []string                `json:"questions"`
	Answers         []int                   `json:"answers"`
	Expected        FixtureExpected         `json:"expected"`
	ExpectedResults []FixtureExpectedResult `json:"expected_results,omitempty"`

	dir string
}

// FixtureExpected holds the expected final vector.
type FixtureExpected struct {
	Scores    []float64 `json:"scores"`
	Tolerance float64   `json:"tolerance"`
}

// FixtureExpectedResult captures the expected outcome per answer.
type FixtureExpectedResult struct {
	Seq     int    `json:"seq"`
	Outcome string `json:"outcome"`
	Action  string `json:"action,omitempty"`
}

// #endregion fixture-types

// #region fixture-loader

// LoadFixture reads and parses a JSON fixture file.
func LoadFixture(path string) (*Fixture, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read fixture %s: %w", path, err)
	}
	var f Fixture
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse fixture %s: %w", path, err)
	}
	if len(f.Questions) != len(f.Answers) {
		return nil, fmt.Errorf("fixture %s: %d questions but %d answers", path, len(f.Questions), len(f.Answers))
	}
	f.dir = filepath.Dir(path)
	return &f, nil
}

// BankPath resolves the bank file against the fixture's directory.
func (f *Fixture) BankPath() string {
	if f.Bank == "" || filepath.IsAbs(f.Bank) {
		return f.Bank
	}
	return filepath.Join(f.dir, f.Bank)
}

// LoadRegistry loads the bank the fixture names.
func (f *Fixture) LoadRegistry() (*registry.Registry, error) {
	if f.Bank == "" {
		return nil, fmt.Errorf("fixture has no bank")
	}
	return registry.LoadFile(f.BankPath())
}

// ResolveQuestions maps the fixture's question ids onto reg, in order.
func (f *Fixture) ResolveQuestions(reg *registry.Registry) ([]registry.Question, error) {
	byID := make(map[registry.QuestionID]registry.Question, len(reg.Questions))
	for _, q := range reg.Questions {
		byID[q.ID] = q
	}
	out := make([]registry.Question, len(f.Questions))
	for i, id := range f.Questions {
		q, ok := byID[registry.QuestionID(id)]
		if !ok {
			return nil, fmt.Errorf("question %s not in bank", id)
		}
		out[i] = q
	}
	return out, nil
}

// #endregion fixture-loader

// #region fixture-export

// FromJournal builds a fixture from a journaled session. The expected
// vector is the last recorded score vector.
func FromJournal(rec bank.SessionRecord, entries []logging.AnswerEntry, bankPath string) Fixture {
	f := Fixture{
		Description: fmt.Sprintf("session %s (%s mode)", rec.SessionID, rec.Mode),
		Bank:        bankPath,
		Relaxed:     rec.Relaxed,
		Expected:    FixtureExpected{Tolerance: 1e-9},
	}
	for _, e := range entries {
		f.Questions = append(f.Questions, e.QuestionID)
		f.Answers = append(f.Answers, e.Choice)
		f.ExpectedResults = append(f.ExpectedResults, FixtureExpectedResult{
			Seq:     e.Seq,
			Outcome: e.Outcome,
			Action:  e.Action,
		})
		if e.Outcome == session.OutcomeScored && e.Scores != nil {
			f.Expected.Scores = e.Scores
		}
	}
	return f
}

// #endregion fixture-export
