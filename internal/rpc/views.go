package rpc

import (
	"maps"
	"slices"

	"google.golang.org/protobuf/types/known/structpb"

	"github.com/danielpatrickdp/trait-profile/internal/registry"
	"github.com/danielpatrickdp/trait-profile/internal/session"
)

// #region views
func questionView(q registry.Question) map[string]any {
	choices := make([]any, len(q.Choices))
	for i, c := range q.Choices {
		choices[i] = c.Text
	}
	return map[string]any{
		"id":       string(q.ID),
		"text":     q.Text,
		"category": q.Category,
		"choices":  choices,
	}
}

func scoreView(traits []string, scores []float64) map[string]any {
	out := make(map[string]any, len(traits))
	for i, name := range traits {
		if i < len(scores) {
			out[name] = scores[i]
		}
	}
	return out
}

func facetView(facets map[string]map[string]float64) map[string]any {
	out := make(map[string]any, len(facets))
	for trait, fs := range facets {
		inner := make(map[string]any, len(fs))
		for name, v := range fs {
			inner[name] = v
		}
		out[trait] = inner
	}
	return out
}

func demographicView(d map[registry.QuestionID]int) map[string]any {
	out := make(map[string]any, len(d))
	for _, id := range slices.Sorted(maps.Keys(d)) {
		out[string(id)] = d[id]
	}
	return out
}

func profileView(s *session.Session) map[string]any {
	traits := make([]any, len(s.Registry().Traits))
	for i, t := range s.Registry().Traits {
		traits[i] = t
	}
	return map[string]any{
		"session_id":   s.ID(),
		"traits":       traits,
		"scores":       scoreView(s.Registry().Traits, s.Scores()),
		"facets":       facetView(s.Facets()),
		"demographics": demographicView(s.Demographics()),
		"progress":     s.Progress(),
		"complete":     s.Complete(),
	}
}

// withCurrent adds the pending question, if any, under "question".
func withCurrent(view map[string]any, s *session.Session) map[string]any {
	if q, ok := s.Current(); ok {
		view["question"] = questionView(q)
	}
	return view
}
// #endregion views

// #region request-fields
func stringField(in *structpb.Struct, name string) string {
	return in.GetFields()[name].GetStringValue()
}

func boolField(in *structpb.Struct, name string) (bool, bool) {
	v, ok := in.GetFields()[name]
	if !ok {
		return false, false
	}
	b, isBool := v.GetKind().(*structpb.Value_BoolValue)
	if !isBool {
		return false, false
	}
	return b.BoolValue, true
}

func numberField(in *structpb.Struct, name string) (float64, bool) {
	v, ok := in.GetFields()[name]
	if !ok {
		return 0, false
	}
	n, isNum := v.GetKind().(*structpb.Value_NumberValue)
	if !isNum {
		return 0, false
	}
	return n.NumberValue, true
}
// #endregion request-fields
