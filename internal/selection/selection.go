package selection

import (
	"errors"
	"fmt"
	"math/rand/v2"
	"slices"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
)

// ErrUnknownMode is returned for a mode name that is not in Modes.
var ErrUnknownMode = errors.New("selection: unknown test mode")

// #region modes

// Mode names.
const (
	ModeDemo          = "demo"
	ModeBasic         = "basic"
	ModeComprehensive = "comprehensive"
)

// Mode describes one test length.
type Mode struct {
	Name        string
	Label       string
	Questions   int // total active questions
	PerTrait    int // balanced quota per trait, 0 = take the bank in order
	Description string
}

// Modes lists the available test lengths, shortest first.
var Modes = []Mode{
	{Name: ModeDemo, Label: "Demo", Questions: 36, PerTrait: 3, Description: "Quick preview, 3 questions per trait"},
	{Name: ModeBasic, Label: "Basic", Questions: 120, PerTrait: 10, Description: "Standard assessment, 10 questions per trait"},
	{Name: ModeComprehensive, Label: "Comprehensive", Questions: 240, Description: "Full question bank"},
}

// Lookup returns the mode with the given name.
func Lookup(name string) (Mode, error) {
	for _, m := range Modes {
		if m.Name == name {
			return m, nil
		}
	}
	return Mode{}, fmt.Errorf("%w: %q", ErrUnknownMode, name)
}

// #endregion modes

// #region select

// Selector draws active question lists from a registry. All randomness
// comes from rng, so a fixed seed reproduces the same selection.
type Selector struct {
	reg *registry.Registry
	rng *rand.Rand
}

// NewSelector builds a selector. A nil rng gets a fixed-seed source.
func NewSelector(reg *registry.Registry, rng *rand.Rand) *Selector {
	if rng == nil {
		rng = NewRand(0)
	}
	return &Selector{reg: reg, rng: rng}
}

// NewRand returns a PCG-backed generator for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
}

// Select prepares the active questions for a mode name.
func (s *Selector) Select(name string) ([]registry.Question, error) {
	m, err := Lookup(name)
	if err != nil {
		return nil, err
	}
	if m.PerTrait == 0 {
		return s.inOrder(m.Questions), nil
	}
	return s.Balanced(m.PerTrait, m.Questions), nil
}

// inOrder takes the first total questions of the bank and shuffles them.
func (s *Selector) inOrder(total int) []registry.Question {
	qs := slices.Clone(s.reg.Questions[:min(total, len(s.reg.Questions))])
	s.shuffle(qs)
	return qs
}

// Balanced groups questions by primary trait, takes up to perTrait from
// each trait in registry order, fills from the unselected remainder up to
// total, trims a random sample if over, and shuffles the result. A bank
// smaller than total yields every question once.
func (s *Selector) Balanced(perTrait, total int) []registry.Question {
	groups := make(map[string][]int, len(s.reg.Traits))
	for i, q := range s.reg.Questions {
		trait := q.PrimaryTrait()
		if _, ok := s.reg.Index(trait); ok {
			groups[trait] = append(groups[trait], i)
		}
	}

	picked := make([]int, 0, total)
	taken := make(map[int]bool, total)
	for _, trait := range s.reg.Traits {
		group := groups[trait]
		s.shuffleInts(group)
		for _, i := range group[:min(perTrait, len(group))] {
			picked = append(picked, i)
			taken[i] = true
		}
	}

	if len(picked) < total {
		var rest []int
		for i := range s.reg.Questions {
			if !taken[i] {
				rest = append(rest, i)
			}
		}
		s.shuffleInts(rest)
		picked = append(picked, rest[:min(total-len(picked), len(rest))]...)
	}

	if len(picked) > total {
		s.shuffleInts(picked)
		picked = picked[:total]
	}

	out := make([]registry.Question, len(picked))
	for k, i := range picked {
		out[k] = s.reg.Questions[i]
	}
	s.shuffle(out)
	return out
}

func (s *Selector) shuffle(qs []registry.Question) {
	s.rng.Shuffle(len(qs), func(i, j int) { qs[i], qs[j] = qs[j], qs[i] })
}

func (s *Selector) shuffleInts(v []int) {
	s.rng.Shuffle(len(v), func(i, j int) { v[i], v[j] = v[j], v[i] })
}

// #endregion select
