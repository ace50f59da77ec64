package quality

import (
	"math"
	"testing"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/extract"
	"heatload_backend/internal/pages"
	"heatload_backend/internal/takeoff"
)

func TestWeightsSumToOne(t *testing.T) {
	total := 0.0
	for _, w := range featureWeights {
		total += w
	}
	if math.Abs(total-1.0) > 1e-9 {
		t.Fatalf("feature weights must sum to 1, got %f", total)
	}
}

func richInput() Input {
	doc := &blueprint.Document{Pages: []blueprint.Page{{
		Index: 0,
		TextRuns: []blueprint.TextRun{
			{Text: "WALL R-21 INSULATION"},
			{Text: "CEILING R-49 ASSEMBLY"},
			{Text: "WINDOW U-0.30"},
			{Text: "3.0 ACH 50 BLOWER DOOR"},
			{Text: "SEER 16 EFFICIENCY"},
			{Text: "THERMAL ENVELOPE NOTES"},
			{Text: "WINDOW SCHEDULE"},
			{Text: "NORTH ARROW"},
			{Text: "CONSTRUCTION BTU CFM"},
		},
	}}}

	graph := &takeoff.Graph{Rooms: []takeoff.Room{
		{AreaFt2: 300, Provenance: takeoff.Provenance{Source: takeoff.SourceRuleExtractor}},
		{AreaFt2: 180, Provenance: takeoff.Provenance{Source: takeoff.SourceRuleExtractor}},
	}}

	return Input{
		Doc: doc,
		Classifications: []pages.Classification{
			{PageIndex: 0, Kind: pages.KindFloorPlan},
			{PageIndex: 1, Kind: pages.KindElevation},
			{PageIndex: 2, Kind: pages.KindSection},
			{PageIndex: 3, Kind: pages.KindDetail},
			{PageIndex: 4, Kind: pages.KindSchedule},
		},
		Findings: []extract.EnvelopeFinding{
			{Kind: extract.FindingACH50, Value: 3, Confidence: 0.9},
			{Kind: extract.FindingDuctLocation, Text: "ducts in conditioned space", Confidence: 0.8},
			{Kind: extract.FindingFoundation, Text: "slab on grade", Confidence: 0.8},
		},
		Graph:           graph,
		RoomsAttempted:  2,
		DeclaredAreaFt2: 480,
	}
}

func TestAssessRichBlueprintRoutesAIHeavy(t *testing.T) {
	score := NewScorer().Assess(richInput())

	if score.Value < 0 || score.Value > 1 {
		t.Fatalf("quality must be in [0,1], got %f", score.Value)
	}
	if score.Value < aiHeavyThreshold {
		t.Fatalf("rich blueprint should clear the AI-heavy bar, got %f (features %v)", score.Value, score.Features)
	}
	if score.Routing != RouteAIHeavy {
		t.Fatalf("expected ai_heavy routing, got %s", score.Routing)
	}
	if len(score.Factors) == 0 {
		t.Fatalf("factors must explain the score")
	}
}

func TestAssessEmptyBlueprintRoutesConservative(t *testing.T) {
	score := NewScorer().Assess(Input{})
	if score.Routing != RouteConservative {
		t.Fatalf("empty input must route conservative, got %s (%f)", score.Routing, score.Value)
	}
}

func TestAssessHybridMiddle(t *testing.T) {
	in := richInput()
	// Strip the strongest signals: no findings, no sections/details.
	in.Findings = nil
	in.Classifications = []pages.Classification{
		{PageIndex: 0, Kind: pages.KindFloorPlan},
		{PageIndex: 1, Kind: pages.KindElevation},
	}
	score := NewScorer().Assess(in)
	if score.Routing != RouteHybrid {
		t.Fatalf("expected hybrid routing, got %s (%f, features %v)", score.Routing, score.Value, score.Features)
	}
}

func TestClimateFallbackReducesScore(t *testing.T) {
	in := richInput()
	base := NewScorer().Assess(in)

	in.ClimateFallback = true
	reduced := NewScorer().Assess(in)

	if reduced.Value >= base.Value {
		t.Fatalf("climate fallback must reduce quality: %f vs %f", reduced.Value, base.Value)
	}
}

func TestAreaConsistencyBands(t *testing.T) {
	s := NewScorer()
	graph := &takeoff.Graph{Rooms: []takeoff.Room{{AreaFt2: 1000}}}

	if got := s.areaConsistency(Input{Graph: graph, DeclaredAreaFt2: 1000}); got != 1.0 {
		t.Fatalf("exact match should score 1.0, got %f", got)
	}
	if got := s.areaConsistency(Input{Graph: graph, DeclaredAreaFt2: 1120}); got != 0.8 {
		t.Fatalf("11%% delta should score 0.8, got %f", got)
	}
	if got := s.areaConsistency(Input{Graph: graph, DeclaredAreaFt2: 2500}); got != 0.2 {
		t.Fatalf("large delta should score 0.2, got %f", got)
	}
	if got := s.areaConsistency(Input{Graph: graph}); got != 0.2 {
		t.Fatalf("no declared area should score 0.2, got %f", got)
	}
}

func TestRoomSuccessRateExcludesAugmented(t *testing.T) {
	s := NewScorer()
	graph := &takeoff.Graph{Rooms: []takeoff.Room{
		{AreaFt2: 300, Provenance: takeoff.Provenance{Source: takeoff.SourceRuleExtractor}},
		{AreaFt2: 120, Provenance: takeoff.Provenance{Source: takeoff.SourceAugmented}},
	}}
	got := s.roomSuccessRate(Input{Graph: graph, RoomsAttempted: 2})
	if got != 0.5 {
		t.Fatalf("augmented rooms must not count as successes, got %f", got)
	}
}
