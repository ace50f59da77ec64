// Package quality scores blueprint completeness on ten weighted signals and
// routes the run between AI-heavy, hybrid, and conservative calculation
// strategies. The score is computed once per run and frozen.
package quality

import (
	"strings"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/extract"
	"heatload_backend/internal/pages"
	"heatload_backend/internal/takeoff"
)

// Routing is the calculation strategy recommendation.
type Routing string

const (
	RouteAIHeavy      Routing = "ai_heavy"
	RouteHybrid       Routing = "hybrid"
	RouteConservative Routing = "conservative"
)

// Routing thresholds.
const (
	aiHeavyThreshold = 0.8
	hybridThreshold  = 0.5
)

// featureWeights sum to 1.0.
var featureWeights = map[string]float64{
	"spec_density_per_page":        0.15,
	"schedules_present":            0.10,
	"sections_elevations_present":  0.10,
	"north_arrow_found":            0.05,
	"ach50_found":                  0.10,
	"duct_location_found":          0.10,
	"room_polygonize_success_rate": 0.15,
	"facade_wwr_reconciled":        0.10,
	"area_vector_vs_table_delta":   0.10,
	"foundation_resolved":          0.05,
}

// Score is the assessment result.
type Score struct {
	Value    float64            `json:"value"`
	Features map[string]float64 `json:"feature_scores"`
	Routing  Routing            `json:"routing"`
	Factors  []string           `json:"factors"`
}

// Input bundles the pipeline artifacts the scorer inspects.
type Input struct {
	Doc             *blueprint.Document
	Classifications []pages.Classification
	Findings        []extract.EnvelopeFinding
	Graph           *takeoff.Graph
	RoomsAttempted  int  // raw candidates before filtering
	DeclaredAreaFt2 float64 // area found in text/tables, 0 if none
	ClimateFallback bool
}

// Scorer computes quality scores.
type Scorer struct{}

// NewScorer creates a scorer.
func NewScorer() *Scorer {
	return &Scorer{}
}

// Assess computes the weighted score and routing decision.
func (s *Scorer) Assess(in Input) Score {
	features := map[string]float64{
		"spec_density_per_page":        s.specDensity(in),
		"schedules_present":            s.schedulesPresent(in),
		"sections_elevations_present":  s.sectionsElevations(in),
		"north_arrow_found":            s.northArrow(in),
		"ach50_found":                  s.ach50Found(in),
		"duct_location_found":          s.ductLocationFound(in),
		"room_polygonize_success_rate": s.roomSuccessRate(in),
		"facade_wwr_reconciled":        s.wwrReconciled(in),
		"area_vector_vs_table_delta":   s.areaConsistency(in),
		"foundation_resolved":          s.foundationResolved(in),
	}

	value := 0.0
	for name, weight := range featureWeights {
		value += features[name] * weight
	}
	if in.ClimateFallback {
		// Unknown ZIP degrades everything downstream.
		value *= 0.9
	}

	score := Score{Value: value, Features: features}
	switch {
	case value >= aiHeavyThreshold:
		score.Routing = RouteAIHeavy
		score.Factors = append(score.Factors, "high spec density enables AI-heavy processing")
	case value >= hybridThreshold:
		score.Routing = RouteHybrid
		score.Factors = append(score.Factors, "medium spec density requires hybrid approach")
	default:
		score.Routing = RouteConservative
		score.Factors = append(score.Factors, "low spec density requires conservative defaults")
	}

	if features["ach50_found"] > 0 {
		score.Factors = append(score.Factors, "ACH50 specified increases confidence")
	}
	if features["duct_location_found"] > 0 {
		score.Factors = append(score.Factors, "duct location known improves accuracy")
	}
	if features["room_polygonize_success_rate"] < 0.5 {
		score.Factors = append(score.Factors, "poor room detection reduces confidence")
	}
	if in.ClimateFallback {
		score.Factors = append(score.Factors, "climate zone resolved by fallback")
	}
	return score
}

var specKeywords = []string{
	"r-", "u-", "ach50", "insulation", "thermal", "btu", "cfm",
	"seer", "hspf", "efficiency", "assembly", "construction",
}

// specDensity normalizes spec mentions per page: 2/page scores 0, 6+/page
// scores 1.
func (s *Scorer) specDensity(in Input) float64 {
	if in.Doc == nil || len(in.Doc.Pages) == 0 {
		return 0
	}
	hits := 0
	for _, page := range in.Doc.Pages {
		for _, run := range page.TextRuns {
			lower := strings.ToLower(run.Text)
			for _, kw := range specKeywords {
				if strings.Contains(lower, kw) {
					hits++
					break
				}
			}
		}
	}
	perPage := float64(hits) / float64(len(in.Doc.Pages))
	return clamp01((perPage - 2) / 4)
}

func (s *Scorer) schedulesPresent(in Input) float64 {
	found := 0
	for _, c := range in.Classifications {
		if c.Kind == pages.KindSchedule {
			found++
		}
	}
	if in.Doc != nil {
		indicators := []string{"window schedule", "door schedule", "equipment schedule", "legend"}
		text := allText(in.Doc)
		for _, term := range indicators {
			if strings.Contains(text, term) {
				found++
			}
		}
	}
	return clamp01(float64(found) / 3)
}

func (s *Scorer) sectionsElevations(in Input) float64 {
	kinds := map[pages.Kind]bool{}
	for _, c := range in.Classifications {
		switch c.Kind {
		case pages.KindElevation, pages.KindSection, pages.KindDetail:
			kinds[c.Kind] = true
		}
	}
	return float64(len(kinds)) / 3
}

func (s *Scorer) northArrow(in Input) float64 {
	if in.Graph != nil && in.Graph.Envelope.NorthKnown {
		return 1
	}
	if in.Doc != nil {
		text := allText(in.Doc)
		if strings.Contains(text, "north") || strings.Contains(text, "orientation") {
			return 1
		}
	}
	return 0
}

func (s *Scorer) ach50Found(in Input) float64 {
	for _, f := range in.Findings {
		if f.Kind == extract.FindingACH50 {
			return 1
		}
	}
	return 0
}

func (s *Scorer) ductLocationFound(in Input) float64 {
	for _, f := range in.Findings {
		if f.Kind == extract.FindingDuctLocation {
			return 1
		}
	}
	return 0
}

func (s *Scorer) roomSuccessRate(in Input) float64 {
	if in.Graph == nil || in.RoomsAttempted == 0 {
		return 0
	}
	valid := 0
	for _, r := range in.Graph.Rooms {
		if r.AreaFt2 > 0 && r.Provenance.Source != takeoff.SourceAugmented {
			valid++
		}
	}
	return clamp01(float64(valid) / float64(in.RoomsAttempted))
}

// wwrReconciled scores higher when elevations exist to check facade window
// area against.
func (s *Scorer) wwrReconciled(in Input) float64 {
	for _, c := range in.Classifications {
		if c.Kind == pages.KindElevation {
			return 0.7
		}
	}
	return 0.3
}

// areaConsistency compares the vector-derived total to a declared area from
// text when one exists.
func (s *Scorer) areaConsistency(in Input) float64 {
	if in.Graph == nil || in.DeclaredAreaFt2 <= 0 {
		return 0.2
	}
	vector := in.Graph.TotalAreaFt2()
	if vector <= 0 {
		return 0.2
	}
	delta := vector/in.DeclaredAreaFt2 - 1
	if delta < 0 {
		delta = -delta
	}
	switch {
	case delta <= 0.05:
		return 1.0
	case delta <= 0.15:
		return 0.8
	case delta <= 0.30:
		return 0.5
	default:
		return 0.2
	}
}

func (s *Scorer) foundationResolved(in Input) float64 {
	for _, f := range in.Findings {
		if f.Kind == extract.FindingFoundation && f.Confidence > 0.5 {
			return f.Confidence
		}
	}
	return 0.3
}

func allText(doc *blueprint.Document) string {
	var b strings.Builder
	for _, page := range doc.Pages {
		for _, run := range page.TextRuns {
			b.WriteString(strings.ToLower(run.Text))
			b.WriteByte(' ')
		}
	}
	return b.String()
}

func clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
