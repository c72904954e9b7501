package registry

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
)

// #region registry

// Registry holds the immutable trait, facet and question definitions.
// Build must run once before lookups; after that the registry is read-only
// and safe to share between sessions.
type Registry struct {
	Traits            []string                   `json:"traits"`
	Facets            map[string][]string        `json:"facets"`
	TraitDescriptions Descriptions               `json:"trait_descriptions"`
	FacetDescriptions Descriptions               `json:"facet_descriptions"`
	Correlations      Matrix                     `json:"trait_correlations"`
	CrossDomain       map[string]json.RawMessage `json:"cross_domain_correlations,omitempty"`
	Abbreviations     map[string]string          `json:"trait_abbreviations,omitempty"`
	Questions         []Question                 `json:"questions"`

	index map[string]int
}

// Empty returns an inert registry with no traits and no questions.
func Empty() *Registry {
	r := &Registry{}
	_ = r.Build()
	return r
}

// Build validates the definitions, including unique trait names and
// question ids, and indexes trait names.
func (r *Registry) Build() error {
	n := len(r.Traits)
	index := make(map[string]int, n)
	for i, name := range r.Traits {
		if _, dup := index[name]; dup {
			return fmt.Errorf("duplicate trait %q", name)
		}
		index[name] = i
	}
	if n > 0 && len(r.Correlations) != n {
		return fmt.Errorf("correlation matrix has %d rows, want %d", len(r.Correlations), n)
	}
	for i, row := range r.Correlations {
		if len(row) != n {
			return fmt.Errorf("correlation row %d has %d columns, want %d", i, len(row), n)
		}
		for j, v := range row {
			if v < -1 || v > 1 {
				return fmt.Errorf("correlation [%d][%d] = %v outside [-1, 1]", i, j, v)
			}
		}
	}
	seen := make(map[QuestionID]struct{}, len(r.Questions))
	for _, q := range r.Questions {
		if _, dup := seen[q.ID]; dup {
			return fmt.Errorf("duplicate question id %q", q.ID)
		}
		seen[q.ID] = struct{}{}
	}
	if r.Facets == nil {
		r.Facets = map[string][]string{}
	}
	if r.Abbreviations == nil {
		r.Abbreviations = DefaultAbbreviations
	}
	r.index = index
	return nil
}

// Index returns the position of a trait name.
func (r *Registry) Index(name string) (int, bool) {
	i, ok := r.index[name]
	return i, ok
}

// ResolveAbbreviation maps a correlation code to a registered trait index.
func (r *Registry) ResolveAbbreviation(abbr string) (int, bool) {
	name, ok := r.Abbreviations[abbr]
	if !ok {
		return 0, false
	}
	return r.Index(name)
}

// HasFacet reports whether facet belongs to trait.
func (r *Registry) HasFacet(trait, facet string) bool {
	for _, f := range r.Facets[trait] {
		if f == facet {
			return true
		}
	}
	return false
}

// FacetDescription looks up a facet description in either bank layout.
func (r *Registry) FacetDescription(trait, facet string) string {
	if d, ok := r.FacetDescriptions[trait+":"+facet]; ok {
		return d
	}
	return r.FacetDescriptions[facet]
}

// #endregion registry

// #region loaders

// Parse decodes a JSON question bank and builds the registry.
func Parse(rd io.Reader) (*Registry, error) {
	var r Registry
	if err := json.NewDecoder(rd).Decode(&r); err != nil {
		return nil, fmt.Errorf("decode bank: %w", err)
	}
	if err := r.Build(); err != nil {
		return nil, fmt.Errorf("build registry: %w", err)
	}
	return &r, nil
}

// LoadFile reads a JSON question bank from disk.
func LoadFile(path string) (*Registry, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open bank %s: %w", path, err)
	}
	defer f.Close()
	return Parse(f)
}

// LoadOrEmpty loads a bank and degrades to an empty registry on any error.
func LoadOrEmpty(path string, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	r, err := LoadFile(path)
	if err != nil {
		logger.Warn("[REGISTRY] bank unavailable, starting empty", "path", path, "error", err)
		return Empty()
	}
	return r
}

// #endregion loaders
