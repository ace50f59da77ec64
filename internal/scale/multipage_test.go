package scale

import (
	"testing"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/pages"
)

func notationPage(index int, notation string) blueprint.Page {
	return blueprint.Page{
		Index: index,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 1000, Y1: 800},
		TextRuns: []blueprint.TextRun{{
			PageIndex: index,
			Text:      "SCALE: " + notation,
			BBox:      blueprint.Rect{X0: 850, Y0: 740, X1: 990, Y1: 780},
		}},
	}
}

func planClassifications(indices ...int) []pages.Classification {
	out := make([]pages.Classification, 0, len(indices))
	for _, i := range indices {
		out = append(out, pages.Classification{PageIndex: i, Kind: pages.KindFloorPlan})
	}
	return out
}

func TestMultiPageAgreementBoostsConfidence(t *testing.T) {
	doc := &blueprint.Document{Pages: []blueprint.Page{
		notationPage(0, `1/4" = 1'-0"`),
		notationPage(1, `1/4" = 1'-0"`),
	}}
	e := NewEstimator(40, 1000, 500, 10000)

	res := e.EstimateMultiPage(doc, planClassifications(0, 1), 0)
	if !res.Consistent {
		t.Fatalf("matching notations must be consistent")
	}
	if res.Selected == nil || res.Selected.PixelsPerFoot != 48 {
		t.Fatalf("consensus scale must be selected: %+v", res.Result)
	}
	if res.Selected.Confidence <= 0.9 {
		t.Fatalf("cross-page agreement must boost confidence above a single page, got %f",
			res.Selected.Confidence)
	}
	if len(res.PerPage) != 2 {
		t.Fatalf("per-page estimates must be retained, got %d", len(res.PerPage))
	}
}

func TestMultiPageDisagreementFlagged(t *testing.T) {
	doc := &blueprint.Document{Pages: []blueprint.Page{
		notationPage(0, `1/4" = 1'-0"`),
		notationPage(1, `1/8" = 1'-0"`),
	}}
	e := NewEstimator(40, 1000, 500, 10000)

	res := e.EstimateMultiPage(doc, planClassifications(0, 1), 0)
	if res.Consistent {
		t.Fatalf("48 vs 96 px/ft must be inconsistent")
	}
	if res.Selected == nil {
		t.Fatalf("a best page must still be selected")
	}
	if len(res.Result.Alternatives) < 2 {
		t.Fatalf("the losing cluster must be retained as an alternative: %+v", res.Result.Alternatives)
	}
}

func TestMultiPageSinglePlanFallsBack(t *testing.T) {
	doc := &blueprint.Document{Pages: []blueprint.Page{notationPage(0, `1/4" = 1'-0"`)}}
	e := NewEstimator(40, 1000, 500, 10000)

	res := e.EstimateMultiPage(doc, planClassifications(0), 0)
	if !res.Consistent || res.Selected == nil || res.Selected.PixelsPerFoot != 48 {
		t.Fatalf("single plan page must behave like the single-page path: %+v", res.Result)
	}
}

func TestMultiPageOverrideShortCircuits(t *testing.T) {
	doc := &blueprint.Document{Pages: []blueprint.Page{
		notationPage(0, `1/4" = 1'-0"`),
		notationPage(1, `1/8" = 1'-0"`),
	}}
	e := NewEstimator(40, 1000, 500, 10000)

	res := e.EstimateMultiPage(doc, planClassifications(0, 1), 64)
	if !res.Consistent || res.Selected == nil || res.Selected.PixelsPerFoot != 64 {
		t.Fatalf("override must win over page notations: %+v", res.Result)
	}
}
