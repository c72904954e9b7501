package scoring

// #region value-map

// NeutralValue is the 1-5 score of a Moderate answer.
const NeutralValue = 3.0

// ValueScores converts qualitative answer labels to the 1-5 scale.
var ValueScores = map[string]float64{
	"Very Low":     1,
	"Low":          2,
	"Low-Moderate": 2.5,
	"Moderate":     3,
	"High":         4,
	"Very High":    5,
}

// AdjustmentMagnitudes converts correlation symbols to signed strengths.
var AdjustmentMagnitudes = map[string]float64{
	"+":  0.5,
	"+m": 0.25,
	"0":  0.0,
	"-m": -0.25,
	"-":  -0.5,
}

// ValueScore maps a label to its 1-5 score; unknown labels count as Moderate.
func ValueScore(label string) float64 {
	if v, ok := ValueScores[label]; ok {
		return v
	}
	return NeutralValue
}

// Adjustment maps a correlation symbol to its strength; unknown symbols are 0.
func Adjustment(symbol string) float64 {
	return AdjustmentMagnitudes[symbol]
}

// CorrelatedScore projects a direct 1-5 score onto a correlated trait.
func CorrelatedScore(score, adjustment float64) float64 {
	return NeutralValue + (score-NeutralValue)*adjustment*2
}

// #endregion value-map

// #region accumulators

// Accumulator holds the weighted running sums of one trait.
type Accumulator struct {
	SumValueWeight float64 `json:"sum_value_weight"`
	SumWeight      float64 `json:"sum_weight"`
}

// Accumulators is indexed by trait position.
type Accumulators []Accumulator

// NewAccumulators returns zeroed accumulators for n traits.
func NewAccumulators(n int) Accumulators {
	return make(Accumulators, n)
}

// Add records one weighted contribution. Out-of-range traits are ignored.
func (a Accumulators) Add(trait int, score, weight float64) {
	if trait < 0 || trait >= len(a) {
		return
	}
	a[trait].SumValueWeight += score * weight
	a[trait].SumWeight += weight
}

// TotalWeight sums the weight accumulated across all traits.
func (a Accumulators) TotalWeight() float64 {
	var total float64
	for _, acc := range a {
		total += acc.SumWeight
	}
	return total
}

// #endregion accumulators

// #region pattern

// Ratio cut for the pattern classification.
const (
	balancedMin = 0.3
	balancedMax = 0.7
	biasRatio   = 0.5
)

// PatternCounters tallies the respondent's answer tendency.
type PatternCounters struct {
	High     int `json:"high"`
	Low      int `json:"low"`
	Moderate int `json:"moderate"`
	Total    int `json:"total"`
}

// Record classifies one answer label into the tally.
func (p *PatternCounters) Record(label string) {
	switch label {
	case "High", "Very High":
		p.High++
	case "Low", "Very Low":
		p.Low++
	default:
		p.Moderate++
	}
	p.Total++
}

// Pattern is the classified answer tendency.
type Pattern struct {
	HighRatio     float64
	LowRatio      float64
	ModerateRatio float64
	Balanced      bool
	HighBiased    bool
	LowBiased     bool
}

// Detect computes ratios over the answers recorded so far.
func (p PatternCounters) Detect() Pattern {
	total := float64(max(1, p.Total))
	pat := Pattern{
		HighRatio:     float64(p.High) / total,
		LowRatio:      float64(p.Low) / total,
		ModerateRatio: float64(p.Moderate) / total,
	}
	pat.Balanced = pat.ModerateRatio >= balancedMin && pat.ModerateRatio <= balancedMax
	pat.HighBiased = pat.HighRatio > biasRatio
	pat.LowBiased = pat.LowRatio > biasRatio
	return pat
}

// #endregion pattern

// #region facet

// Facet smoothing weights and bounds.
const (
	facetRetain = 0.8
	facetBlend  = 0.2
	facetMin    = 0.1
	facetMax    = 0.9
)

// UpdateFacet blends a 1-5 answer score into a facet's current 0-1 score.
func UpdateFacet(current, score float64) float64 {
	next := current*facetRetain + normalize(score)*facetBlend
	return clamp(next, facetMin, facetMax)
}

// #endregion facet

// #region base-scores

// BaseScores computes the direct score of every trait from its accumulator.
// Traits without contributions sit at neutral.
func BaseScores(acc Accumulators, cfg Config) []float64 {
	lo, hi := cfg.Bounds()
	out := make([]float64, len(acc))
	for i, a := range acc {
		if a.SumWeight <= 0 {
			out[i] = neutral
			continue
		}
		out[i] = clamp(normalize(a.SumValueWeight/a.SumWeight), lo, hi)
	}
	return out
}

// normalize maps the 1-5 answer scale onto 0-1.
func normalize(score float64) float64 {
	return (score - 1) / 4
}

// #endregion base-scores
