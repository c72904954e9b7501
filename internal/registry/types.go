package registry

import (
	"encoding/json"
	"fmt"
	"strings"
)

// #region question-types

// QuestionTypeDemographic marks questions that are recorded but never scored.
const QuestionTypeDemographic = "demographic"

// QuestionID accepts both numeric and string ids from question banks.
type QuestionID string

// UnmarshalJSON decodes a string or a JSON number into the id.
func (id *QuestionID) UnmarshalJSON(b []byte) error {
	var s string
	if err := json.Unmarshal(b, &s); err == nil {
		*id = QuestionID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(b, &n); err != nil {
		return fmt.Errorf("question id: %w", err)
	}
	*id = QuestionID(n.String())
	return nil
}

// Choice is one selectable answer of a question.
type Choice struct {
	Text         string            `json:"text"`
	Value        string            `json:"value"`
	Correlations map[string]string `json:"correlations,omitempty"`
}

// Question is a single item of the bank. Category is "Trait" or "Trait:Facet".
type Question struct {
	ID       QuestionID `json:"id"`
	Text     string     `json:"text"`
	Category string     `json:"category"`
	Type     string     `json:"type,omitempty"`
	Choices  []Choice   `json:"choices"`
}

// IsDemographic reports whether the question is a demographic item.
func (q Question) IsDemographic() bool {
	return q.Type == QuestionTypeDemographic
}

// PrimaryTrait returns the trait part of the category.
func (q Question) PrimaryTrait() string {
	trait, _, _ := strings.Cut(q.Category, ":")
	return strings.TrimSpace(trait)
}

// Facet returns the facet part of a "Trait:Facet" category.
func (q Question) Facet() (string, bool) {
	_, facet, ok := strings.Cut(q.Category, ":")
	if !ok {
		return "", false
	}
	return strings.TrimSpace(facet), true
}

// #endregion question-types

// #region matrix

// Matrix is a square trait-by-trait correlation matrix aligned to trait order.
type Matrix [][]float64

// At returns the correlation between traits i and j, or 0 outside the matrix.
func (m Matrix) At(i, j int) float64 {
	if i < 0 || i >= len(m) || j < 0 || j >= len(m[i]) {
		return 0
	}
	return m[i][j]
}

// Row returns row i, or nil outside the matrix.
func (m Matrix) Row(i int) []float64 {
	if i < 0 || i >= len(m) {
		return nil
	}
	return m[i]
}

// #endregion matrix

// #region descriptions

// Descriptions maps a name to its human-readable description. Banks store
// facet descriptions either flat ({"Facet": "..."}) or nested per trait
// ({"Trait": {"Facet": "..."}}); nested entries are flattened to "Trait:Facet".
type Descriptions map[string]string

// UnmarshalJSON accepts the flat and the nested layouts.
func (d *Descriptions) UnmarshalJSON(b []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("descriptions: %w", err)
	}
	out := make(Descriptions, len(raw))
	for key, val := range raw {
		var s string
		if err := json.Unmarshal(val, &s); err == nil {
			out[key] = s
			continue
		}
		var nested map[string]string
		if err := json.Unmarshal(val, &nested); err != nil {
			return fmt.Errorf("description %q: %w", key, err)
		}
		for sub, text := range nested {
			out[key+":"+sub] = text
		}
	}
	*d = out
	return nil
}

// #endregion descriptions

// #region abbreviations

// DefaultAbbreviations maps the short trait codes used in choice correlations
// to full trait names.
var DefaultAbbreviations = map[string]string{
	"H-H": "Honesty-Humility",
	"Em":  "Emotionality",
	"Ex":  "Extraversion",
	"Ag":  "Agreeableness",
	"Co":  "Conscientiousness",
	"Op":  "Openness",
	"Do":  "Dominance",
	"Vi":  "Vigilance",
	"ST":  "Self-Transcendence",
	"C/A": "Abstract Orientation",
	"L/V": "Value Orientation",
	"S/F": "Flexibility",
}

// #endregion abbreviations
