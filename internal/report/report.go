package report

import (
	"fmt"
	"io"
	"math"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// #region types
// Profile is the data a report is rendered from.
type Profile struct {
	Traits       []string
	Scores       []float64
	Facets       map[string]map[string]float64
	FacetOrder   map[string][]string // facet display order per trait
	Descriptions map[string]string   // trait descriptions
	Progress     int
}

// Options controls rendering.
type Options struct {
	Lang             language.Tag
	ShowFacets       bool
	ShowDescriptions bool
	BarWidth         int // 0 hides the bar column
}

// DefaultOptions renders English with facets and a 20-cell bar.
func DefaultOptions() Options {
	return Options{Lang: language.English, ShowFacets: true, BarWidth: 20}
}
// #endregion types

// FromSession collects a report profile from a session.
func FromSession(s *session.Session) Profile {
	reg := s.Registry()
	return Profile{
		Traits:       reg.Traits,
		Scores:       s.Scores(),
		Facets:       s.Facets(),
		FacetOrder:   reg.Facets,
		Descriptions: reg.TraitDescriptions,
		Progress:     s.Progress(),
	}
}

// ParseLang returns the tag for value, or English if it does not parse.
func ParseLang(value string) language.Tag {
	tag, err := language.Parse(strings.TrimSpace(value))
	if err != nil {
		return language.English
	}
	return tag
}

// #region render
// Render writes the trait table, and optionally the facets under each
// trait, to w. Label columns are padded by display width so wide
// characters stay aligned.
func Render(w io.Writer, p Profile, opts Options) error {
	printer := message.NewPrinter(opts.Lang)

	rows := make([]row, 0, len(p.Traits))
	for i, trait := range p.Traits {
		score := 0.5
		if i < len(p.Scores) {
			score = p.Scores[i]
		}
		rows = append(rows, row{label: trait, score: score})
		if !opts.ShowFacets {
			continue
		}
		for _, facet := range p.FacetOrder[trait] {
			v, ok := p.Facets[trait][facet]
			if !ok {
				continue
			}
			rows = append(rows, row{label: "  " + facet, score: v, facet: true})
		}
	}

	width := runewidth.StringWidth("Trait")
	for _, r := range rows {
		width = max(width, runewidth.StringWidth(r.label))
	}

	var b strings.Builder
	b.WriteString(printer.Sprintf("Trait profile (%d%% complete)", p.Progress))
	b.WriteString("\n\n")
	b.WriteString(runewidth.FillRight("Trait", width))
	b.WriteString("  ")
	b.WriteString(runewidth.FillLeft("Score", scoreWidth))
	b.WriteString("\n")

	for _, r := range rows {
		line := runewidth.FillRight(r.label, width) + "  " + runewidth.FillLeft(percent(printer, r.score), scoreWidth)
		if opts.BarWidth > 0 && !r.facet {
			line += "  " + bar(r.score, opts.BarWidth)
		}
		b.WriteString(line)
		b.WriteString("\n")
		if opts.ShowDescriptions && !r.facet {
			if d := p.Descriptions[r.label]; d != "" {
				b.WriteString(runewidth.FillRight("", width+2))
				b.WriteString(d)
				b.WriteString("\n")
			}
		}
	}

	if _, err := io.WriteString(w, b.String()); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

const scoreWidth = 7

type row struct {
	label string
	score float64
	facet bool
}

func percent(p *message.Printer, v float64) string {
	return p.Sprintf("%.1f%%", v*100)
}

// bar draws v in [0, 1] as filled and empty cells.
func bar(v float64, width int) string {
	filled := int(math.Round(min(1, max(0, v)) * float64(width)))
	return strings.Repeat("#", filled) + strings.Repeat(".", width-filled)
}
// #endregion render
