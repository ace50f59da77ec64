// Package pages labels blueprint pages so the pipeline knows which sheets to
// trust for takeoff: floor plans feed room extraction, elevations feed WWR
// reconciliation, schedules feed opening specs.
package pages

import (
	"strings"

	"heatload_backend/internal/blueprint"
)

// Kind is a page classification label.
type Kind string

const (
	KindFloorPlan Kind = "floor-plan"
	KindElevation Kind = "elevation"
	KindSection   Kind = "section"
	KindDetail    Kind = "detail"
	KindSchedule  Kind = "schedule"
	KindTitle     Kind = "title"
	KindOther     Kind = "other"
)

// Classification is the result for one page.
type Classification struct {
	PageIndex  int     `json:"page_index"`
	Kind       Kind    `json:"kind"`
	Confidence float64 `json:"confidence"`
	FloorLabel string  `json:"floor_label,omitempty"`
}

// floorPlanThreshold is the score at which a page is called a floor plan.
const floorPlanThreshold = 0.6

var floorLabels = []string{"basement", "first", "second", "third"}

var planTerms = []string{"floor plan", "first floor", "second floor", "foundation plan", "sq ft", "sqft"}
var elevationTerms = []string{"elevation"}
var sectionTerms = []string{"section", "wall section", "building section"}
var detailTerms = []string{"detail", "typ. detail"}
var scheduleTerms = []string{"schedule", "window schedule", "door schedule", "legend"}
var titleTerms = []string{"sheet index", "drawing index", "cover sheet", "vicinity map"}

var roomKeywords = []string{
	"bedroom", "bath", "kitchen", "living", "dining",
	"garage", "closet", "hall", "entry", "office",
}

// Classifier scores pages from their vector content and text runs.
type Classifier struct{}

// NewClassifier creates a page classifier.
func NewClassifier() *Classifier {
	return &Classifier{}
}

// Classify labels a single page.
func (c *Classifier) Classify(page blueprint.Page) Classification {
	text := joinText(page.TextRuns)

	planScore := c.scoreFloorPlan(page, text)
	elevationHit := containsAny(text, elevationTerms)
	sectionHit := containsAny(text, sectionTerms)
	scheduleHit := containsAny(text, scheduleTerms)
	detailHit := containsAny(text, detailTerms)
	titleHit := containsAny(text, titleTerms)
	planTermHit := containsAny(text, planTerms)

	// Elevation keywords trump unless floor-plan keywords are also present
	// and the geometry score clears the plan threshold.
	if elevationHit && !(planTermHit && planScore >= floorPlanThreshold) {
		return Classification{PageIndex: page.Index, Kind: KindElevation, Confidence: 0.8}
	}

	if planScore >= floorPlanThreshold {
		cls := Classification{
			PageIndex:  page.Index,
			Kind:       KindFloorPlan,
			Confidence: min(planScore, 0.95),
		}
		cls.FloorLabel = detectFloorLabel(text)
		return cls
	}

	switch {
	case sectionHit:
		return Classification{PageIndex: page.Index, Kind: KindSection, Confidence: 0.7}
	case scheduleHit:
		return Classification{PageIndex: page.Index, Kind: KindSchedule, Confidence: 0.7}
	case detailHit:
		return Classification{PageIndex: page.Index, Kind: KindDetail, Confidence: 0.6}
	case titleHit:
		return Classification{PageIndex: page.Index, Kind: KindTitle, Confidence: 0.6}
	}
	return Classification{PageIndex: page.Index, Kind: KindOther, Confidence: 0.5}
}

// ClassifyAll labels every page of a document.
func (c *Classifier) ClassifyAll(doc *blueprint.Document) []Classification {
	out := make([]Classification, 0, len(doc.Pages))
	for _, page := range doc.Pages {
		out = append(out, c.Classify(page))
	}
	return out
}

// scoreFloorPlan accumulates the heuristic floor-plan score from geometry and
// text signals.
func (c *Classifier) scoreFloorPlan(page blueprint.Page, text string) float64 {
	score := 0.0

	lineCount, hvCount := countLines(page.Vectors.Primitives)
	area := page.Rect.Area()
	if area <= 0 {
		area = 1
	}
	// Lines per megapixel; floor plans are dense with wall lines.
	lineDensity := float64(lineCount) / (area / 1e6)
	if lineDensity > 50 {
		score += 0.2
	}
	if lineCount > 0 && float64(hvCount)/float64(lineCount) > 0.7 {
		score += 0.15
	}
	if closedRegionCount(page.Vectors.Primitives) >= 3 {
		score += 0.2
	}

	if countKeywords(text, roomKeywords) >= 3 {
		score += 0.15
	}
	if strings.ContainsAny(text, "'\"") || strings.Contains(text, "x") {
		score += 0.1
	}
	if containsAny(text, planTerms) {
		score += 0.1
	}

	aspect := 1.0
	if page.Rect.Height() > 0 {
		aspect = page.Rect.Width() / page.Rect.Height()
	}
	if aspect > 2 || aspect < 0.5 {
		score -= 0.1
	}
	if containsAny(text, elevationTerms) || containsAny(text, sectionTerms) {
		score -= 0.3
	}

	if score < 0 {
		return 0
	}
	return score
}

func countLines(prims []blueprint.Primitive) (total, hv int) {
	for _, p := range prims {
		if p.Kind != blueprint.PrimitiveLine {
			continue
		}
		total++
		if p.IsHorizontal(3) || p.IsVertical(3) {
			hv++
		}
	}
	return total, hv
}

func closedRegionCount(prims []blueprint.Primitive) int {
	n := 0
	for _, p := range prims {
		if p.Kind == blueprint.PrimitiveRectangle {
			n++
		}
	}
	return n
}

func detectFloorLabel(text string) string {
	for _, label := range floorLabels {
		if strings.Contains(text, label) {
			return label
		}
	}
	return ""
}

func joinText(runs []blueprint.TextRun) string {
	var b strings.Builder
	for _, run := range runs {
		b.WriteString(strings.ToLower(run.Text))
		b.WriteByte(' ')
	}
	return b.String()
}

func containsAny(text string, terms []string) bool {
	for _, term := range terms {
		if strings.Contains(text, term) {
			return true
		}
	}
	return false
}

func countKeywords(text string, keywords []string) int {
	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, kw) {
			n++
		}
	}
	return n
}
