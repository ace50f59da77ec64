package estimate

import (
	"context"
	"math"
	"testing"
	"time"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/estimate/transport"
	"heatload_backend/platform/apperr"
	"heatload_backend/platform/logger"
)

// stubConfig satisfies config.PipelineConfig for tests.
type stubConfig struct {
	minRoom, maxRoom, minTotal, maxTotal float64
	maxRooms                             int
	deadline                             time.Duration
	override                             float64
}

func (s stubConfig) GetScaleOverride() float64     { return s.override }
func (s stubConfig) GetMinRoomSqft() float64       { return s.minRoom }
func (s stubConfig) GetMaxRoomSqft() float64       { return s.maxRoom }
func (s stubConfig) GetMinTotalSqft() float64      { return s.minTotal }
func (s stubConfig) GetMaxTotalSqft() float64      { return s.maxTotal }
func (s stubConfig) GetMaxRoomCount() int          { return s.maxRooms }
func (s stubConfig) GetRunDeadline() time.Duration { return s.deadline }

func defaultStubConfig() stubConfig {
	return stubConfig{
		minRoom: 40, maxRoom: 1000, minTotal: 500, maxTotal: 10000,
		maxRooms: 40, deadline: 30 * time.Second,
	}
}

// fixtureOpener serves a pre-built document regardless of the bytes.
type fixtureOpener struct {
	doc *blueprint.Document
}

func (f fixtureOpener) Open(ctx context.Context, pdf []byte) (*blueprint.Document, error) {
	return f.doc, nil
}

const fixtureScale = 48.0

// fixtureDoc builds a synthetic single-page floor plan with labeled room
// rectangles and a title-block scale notation.
func fixtureDoc(roomDims [][2]float64) *blueprint.Document {
	page := blueprint.Page{
		Index: 0,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 3000, Y1: 2400},
	}

	labels := []string{"LIVING", "KITCHEN", "BEDROOM 1", "BEDROOM 2", "BATH", "DINING", "OFFICE", "LAUNDRY"}
	x := 0.0
	for i, dims := range roomDims {
		w := dims[0] * fixtureScale
		h := dims[1] * fixtureScale
		page.Vectors.Primitives = append(page.Vectors.Primitives, blueprint.Primitive{
			Kind:   blueprint.PrimitiveRectangle,
			Points: []blueprint.Point{{X: x, Y: 0}, {X: x + w, Y: h}},
		})
		label := "ROOM"
		if i < len(labels) {
			label = labels[i]
		}
		page.TextRuns = append(page.TextRuns, blueprint.TextRun{
			PageIndex: 0,
			Text:      label,
			BBox:      blueprint.Rect{X0: x + w/2 - 30, Y0: h/2 - 10, X1: x + w/2 + 30, Y1: h/2 + 10},
		})
		x += w + 10
	}

	page.TextRuns = append(page.TextRuns,
		blueprint.TextRun{
			PageIndex: 0,
			Text:      `SCALE: 1/4" = 1'-0"`,
			BBox:      blueprint.Rect{X0: 2700, Y0: 2300, X1: 2950, Y1: 2380},
		},
		blueprint.TextRun{PageIndex: 0, Text: "FIRST FLOOR PLAN"},
		blueprint.TextRun{PageIndex: 0, Text: "WALL R-20 BATT INSULATION"},
		blueprint.TextRun{PageIndex: 0, Text: "CEILING R-49"},
	)
	return &blueprint.Document{Pages: []blueprint.Page{page}}
}

func testService(doc *blueprint.Document, cfg stubConfig) *Service {
	return NewService(fixtureOpener{doc: doc}, nil, cfg, logger.New("test"))
}

func validRequest() Request {
	return Request{
		PDF: []byte("%PDF-fixture"),
		Zip: "63101",
		Assumptions: transport.Assumptions{
			DuctConfig:  "vented_attic",
			HeatingFuel: "gas",
		},
	}
}

func TestRunEndToEnd(t *testing.T) {
	doc := fixtureDoc([][2]float64{
		{20, 15}, {12, 10}, {14, 12}, {12, 10}, {8, 6}, {12, 10}, {10, 10}, {8, 6},
	})
	svc := testService(doc, defaultStubConfig())

	outcome, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.NeedsInput != nil {
		t.Fatalf("unexpected needs-input: %+v", outcome.NeedsInput)
	}
	if outcome.Result == nil || outcome.Report == nil || outcome.Primary == nil {
		t.Fatalf("outcome must carry result, report, and primary")
	}

	res := outcome.Result
	if res.HeatingBTUH <= 0 || res.CoolingBTUH <= 0 {
		t.Fatalf("loads must be positive: %+v", res)
	}
	if res.Confidence < 0 || res.Confidence > 1 {
		t.Fatalf("confidence out of range: %f", res.Confidence)
	}

	total := 0.0
	for _, w := range res.Weights {
		total += w
	}
	if math.Abs(total-1) > 1e-9 {
		t.Fatalf("weights must sum to 1, got %.12f", total)
	}

	if len(res.Candidates) != 4 {
		t.Fatalf("expected 4 candidates, got %d", len(res.Candidates))
	}

	if outcome.Report.SchemaVersion == "" {
		t.Fatalf("audit report must carry a schema version")
	}
	if len(outcome.Report.Provenance) == 0 {
		t.Fatalf("audit report must carry provenance")
	}
}

func TestRunDeterministic(t *testing.T) {
	doc := fixtureDoc([][2]float64{
		{20, 15}, {12, 10}, {14, 12}, {12, 10}, {8, 6}, {12, 10},
	})
	svc := testService(doc, defaultStubConfig())

	first, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	second, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if first.Result.HeatingBTUH != second.Result.HeatingBTUH ||
		first.Result.CoolingBTUH != second.Result.CoolingBTUH {
		t.Fatalf("identical inputs with mocked extraction must be bit-identical")
	}
}

func TestRunNeedsInputForTinyPlan(t *testing.T) {
	// A single room just under the total floor: 499 ft2 with min 500.
	cfg := defaultStubConfig()
	doc := fixtureDoc([][2]float64{{24.95, 20}}) // 499 ft2
	svc := testService(doc, cfg)

	outcome, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.NeedsInput == nil || outcome.NeedsInput.Kind != "plan_quality" {
		t.Fatalf("sub-minimum total area must return plan_quality needs-input: %+v", outcome)
	}
}

func TestRunBoundaryExactMinTotalPasses(t *testing.T) {
	cfg := defaultStubConfig()
	doc := fixtureDoc([][2]float64{{25, 20}}) // exactly 500 ft2
	svc := testService(doc, cfg)

	outcome, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.NeedsInput != nil {
		t.Fatalf("exactly MIN_TOTAL_SQFT must pass: %+v", outcome.NeedsInput)
	}
}

func TestRunRejectsBadZip(t *testing.T) {
	svc := testService(fixtureDoc([][2]float64{{20, 15}}), defaultStubConfig())
	req := validRequest()
	req.Zip = "1234"

	_, err := svc.Run(context.Background(), req)
	if !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}

func TestRunRejectsBadAssumptions(t *testing.T) {
	svc := testService(fixtureDoc([][2]float64{{20, 15}}), defaultStubConfig())

	req := validRequest()
	req.Assumptions.DuctConfig = "underwater"
	if _, err := svc.Run(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("bad duct config must be rejected, got %v", err)
	}

	req = validRequest()
	req.Assumptions.HeatingFuel = "coal"
	if _, err := svc.Run(context.Background(), req); !apperr.Is(err, apperr.KindValidation) {
		t.Fatalf("bad fuel must be rejected, got %v", err)
	}
}

func TestRunRejectsEmptyPDF(t *testing.T) {
	svc := testService(fixtureDoc([][2]float64{{20, 15}}), defaultStubConfig())
	req := validRequest()
	req.PDF = nil

	_, err := svc.Run(context.Background(), req)
	if !apperr.Is(err, apperr.KindSourceUnreadable) {
		t.Fatalf("empty request must be source-unreadable, got %v", err)
	}
}

func TestRunNeedsInputForAmbiguousScale(t *testing.T) {
	// One unlabeled rectangle, no scale notation, no dimensions: room-size
	// validation ties below the confidence floor and the run must ask.
	page := blueprint.Page{
		Index: 0,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 3000, Y1: 2400},
		Vectors: blueprint.VectorPath{Primitives: []blueprint.Primitive{{
			Kind:   blueprint.PrimitiveRectangle,
			Points: []blueprint.Point{{X: 0, Y: 0}, {X: 1440, Y: 1152}},
		}}},
	}
	doc := &blueprint.Document{Pages: []blueprint.Page{page}}
	svc := testService(doc, defaultStubConfig())

	outcome, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.NeedsInput == nil || outcome.NeedsInput.Kind != "scale" {
		t.Fatalf("ambiguous scale must return scale needs-input: %+v", outcome)
	}
	if len(outcome.NeedsInput.Alternatives) == 0 {
		t.Fatalf("needs-input must carry the candidate scales")
	}
	if outcome.NeedsInput.Recommendation == "" {
		t.Fatalf("needs-input must carry a recommendation")
	}
}

func TestRunScaleOverride(t *testing.T) {
	cfg := defaultStubConfig()
	cfg.override = 48

	// No scale notation anywhere: the override must carry the run.
	doc := fixtureDoc([][2]float64{{20, 15}, {12, 10}, {14, 12}, {12, 10}})
	doc.Pages[0].TextRuns = doc.Pages[0].TextRuns[:len(doc.Pages[0].TextRuns)-4]

	svc := testService(doc, cfg)
	outcome, err := svc.Run(context.Background(), validRequest())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if outcome.NeedsInput != nil {
		t.Fatalf("scale override must avoid needs-input: %+v", outcome.NeedsInput)
	}
	if outcome.Report.Scale == nil || outcome.Report.Scale.PixelsPerFoot != 48 {
		t.Fatalf("report must carry the override scale: %+v", outcome.Report.Scale)
	}
}
