package extract

import (
	"math"
	"testing"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/takeoff"
)

const testScale = 48.0 // 1/4"=1'

func rectPrim(x0, y0, wFt, hFt float64) blueprint.Primitive {
	return blueprint.Primitive{
		Kind: blueprint.PrimitiveRectangle,
		Points: []blueprint.Point{
			{X: x0, Y: y0},
			{X: x0 + wFt*testScale, Y: y0 + hFt*testScale},
		},
	}
}

func TestDetectRoomsFromExplicitRectangles(t *testing.T) {
	page := blueprint.Page{
		Index: 0,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 4000, Y1: 3000},
		Vectors: blueprint.VectorPath{Primitives: []blueprint.Primitive{
			rectPrim(0, 0, 20, 15),   // living, 300 ft2
			rectPrim(1000, 0, 12, 10), // kitchen, 120 ft2
			rectPrim(2000, 0, 3, 3),  // 9 ft2, below the floor: filtered
			rectPrim(0, 1000, 40, 30), // 1200 ft2, above the cap: filtered
		}},
		TextRuns: []blueprint.TextRun{
			{Text: "LIVING", BBox: blueprint.Rect{X0: 400, Y0: 300, X1: 500, Y1: 330}},
			{Text: "KITCHEN", BBox: blueprint.Rect{X0: 1200, Y0: 200, X1: 1320, Y1: 230}},
		},
	}

	rooms := DetectRooms(page, testScale)
	if len(rooms) != 2 {
		t.Fatalf("expected 2 rooms after filtering, got %d", len(rooms))
	}
	// Sorted largest first.
	if rooms[0].Kind != takeoff.RoomLiving {
		t.Fatalf("largest room should be living, got %s", rooms[0].Kind)
	}
	if math.Abs(rooms[0].AreaFt2-300) > 1 {
		t.Fatalf("living area should be ~300 ft2, got %f", rooms[0].AreaFt2)
	}
	if rooms[1].Kind != takeoff.RoomKitchen {
		t.Fatalf("second room should be kitchen, got %s", rooms[1].Kind)
	}
	if rooms[0].Confidence != 0.75 {
		t.Fatalf("labeled room confidence should be 0.75, got %f", rooms[0].Confidence)
	}
}

func TestDetectRoomsFromLinePairs(t *testing.T) {
	// A 14x12 ft room drawn as four wall lines.
	w := 14 * testScale
	h := 12 * testScale
	page := blueprint.Page{
		Index: 0,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 2000, Y1: 2000},
		Vectors: blueprint.VectorPath{Primitives: []blueprint.Primitive{
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 0, Y: 0}, {X: w, Y: 0}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 0, Y: h}, {X: w, Y: h}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 0, Y: 0}, {X: 0, Y: h}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: w, Y: 0}, {X: w, Y: h}}},
		}},
	}

	rooms := DetectRooms(page, testScale)
	if len(rooms) != 1 {
		t.Fatalf("expected 1 reconstructed room, got %d", len(rooms))
	}
	if math.Abs(rooms[0].AreaFt2-168) > 2 {
		t.Fatalf("expected ~168 ft2, got %f", rooms[0].AreaFt2)
	}
}

func TestDetectRoomsDedupes(t *testing.T) {
	// Same room as explicit rect and as four lines: must come out once.
	w := 14 * testScale
	h := 12 * testScale
	page := blueprint.Page{
		Index: 0,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 2000, Y1: 2000},
		Vectors: blueprint.VectorPath{Primitives: []blueprint.Primitive{
			rectPrim(0, 0, 14, 12),
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 0, Y: 0}, {X: w, Y: 0}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 0, Y: h}, {X: w, Y: h}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 0, Y: 0}, {X: 0, Y: h}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: w, Y: 0}, {X: w, Y: h}}},
		}},
	}

	rooms := DetectRooms(page, testScale)
	if len(rooms) != 1 {
		t.Fatalf("duplicate detections must collapse to 1, got %d", len(rooms))
	}
}

func TestClassifyWallsExteriorAndAdjacency(t *testing.T) {
	// Two rooms side by side; the shared wall is interior, the outer ring
	// exterior.
	candidates := []RoomCandidate{
		{BoundsPx: blueprint.Rect{X0: 0, Y0: 0, X1: 20 * testScale, Y1: 15 * testScale}},
		{BoundsPx: blueprint.Rect{X0: 20 * testScale, Y0: 0, X1: 32 * testScale, Y1: 15 * testScale}},
	}

	walls := ClassifyWalls(candidates, testScale)
	if len(walls) != 2 {
		t.Fatalf("expected wall sets for both rooms")
	}

	// Room 0 east wall faces room 1: interior. West wall is on the hull.
	var east, west *takeoff.WallSegment
	for i := range walls[0].Segments {
		seg := &walls[0].Segments[i]
		switch seg.Orientation {
		case takeoff.OrientE:
			east = seg
		case takeoff.OrientW:
			west = seg
		}
	}
	if east == nil || west == nil {
		t.Fatalf("missing oriented segments")
	}
	if east.Exterior {
		t.Fatalf("shared wall must be interior")
	}
	if !west.Exterior {
		t.Fatalf("hull wall must be exterior")
	}

	if len(walls[0].AdjacentIndices) != 1 || walls[0].AdjacentIndices[0] != 1 {
		t.Fatalf("room 0 should be adjacent to room 1: %v", walls[0].AdjacentIndices)
	}
	if len(walls[1].AdjacentIndices) != 1 || walls[1].AdjacentIndices[0] != 0 {
		t.Fatalf("room 1 should be adjacent to room 0: %v", walls[1].AdjacentIndices)
	}
}

func TestDetectOpenings(t *testing.T) {
	page := blueprint.Page{
		Index: 0,
		Rect:  blueprint.Rect{X0: 0, Y0: 0, X1: 2000, Y1: 2000},
		Vectors: blueprint.VectorPath{Primitives: []blueprint.Primitive{
			// Window glyph: two parallel 4 ft lines 3 px apart.
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 100, Y: 50}, {X: 100 + 4*testScale, Y: 50}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 100, Y: 53}, {X: 100 + 4*testScale, Y: 53}}},
			// Door swing: quarter arc, 3 ft radius.
			{Kind: blueprint.PrimitiveArc, Points: []blueprint.Point{{X: 500, Y: 500}}, Radius: 3 * testScale, SweepDeg: 90},
			// Too-wide gap: not a window.
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 900, Y: 100}, {X: 900 + 4*testScale, Y: 100}}},
			{Kind: blueprint.PrimitiveLine, Points: []blueprint.Point{{X: 900, Y: 120}, {X: 900 + 4*testScale, Y: 120}}},
			// Arc outside the door radius band.
			{Kind: blueprint.PrimitiveArc, Points: []blueprint.Point{{X: 800, Y: 800}}, Radius: 10 * testScale, SweepDeg: 90},
		}},
	}

	openings := DetectOpenings(page, testScale)
	windows, doors := 0, 0
	for _, o := range openings {
		switch o.Kind {
		case takeoff.OpeningWindow:
			windows++
			if math.Abs(o.WidthFt-4) > 0.1 {
				t.Fatalf("window width should be ~4 ft, got %f", o.WidthFt)
			}
		case takeoff.OpeningDoor:
			doors++
			if math.Abs(o.WidthFt-3) > 0.1 {
				t.Fatalf("door width should be ~3 ft, got %f", o.WidthFt)
			}
		}
	}
	if windows != 1 {
		t.Fatalf("expected 1 window, got %d", windows)
	}
	if doors != 1 {
		t.Fatalf("expected 1 door, got %d", doors)
	}
}

func TestExtractEnvelope(t *testing.T) {
	page := blueprint.Page{
		Index: 2,
		TextRuns: []blueprint.TextRun{
			{Text: "EXTERIOR WALL: 2x6 STUDS W/ R-21 BATT"},
			{Text: "CEILING: R-49 BLOWN"},
			{Text: "WINDOWS: U-0.30 LOW-E"},
			{Text: "BLOWER DOOR TARGET 3.0 ACH @ 50"},
			{Text: "CONTINUOUS INSULATION AT RIM"},
			{Text: "DUCTS IN CONDITIONED SPACE"},
			{Text: "CRAWL SPACE VENTED PER CODE"},
		},
	}

	findings := ExtractEnvelope(page)

	byKind := map[FindingKind]EnvelopeFinding{}
	for _, f := range findings {
		byKind[f.Kind] = f
	}

	if f, ok := byKind[FindingWallR]; !ok || f.Value != 21 || f.Confidence != 0.9 {
		t.Fatalf("wall R finding wrong: %+v", f)
	}
	if f, ok := byKind[FindingCeilingR]; !ok || f.Value != 49 {
		t.Fatalf("ceiling R finding wrong: %+v", f)
	}
	if f, ok := byKind[FindingWindowU]; !ok || f.Value != 0.30 || f.Confidence != 0.9 {
		t.Fatalf("window U finding wrong: %+v", f)
	}
	if f, ok := byKind[FindingACH50]; !ok || f.Value != 3.0 {
		t.Fatalf("ACH50 finding wrong: %+v", f)
	}
	if _, ok := byKind[FindingConstruction]; !ok {
		t.Fatalf("continuous insulation mention missed")
	}
	if _, ok := byKind[FindingDuctLocation]; !ok {
		t.Fatalf("duct location mention missed")
	}
	if _, ok := byKind[FindingFoundation]; !ok {
		t.Fatalf("foundation mention missed")
	}

	for _, f := range findings {
		if f.Confidence < 0.7 || f.Confidence > 0.9 {
			t.Fatalf("finding confidence out of band: %+v", f)
		}
		if f.PageIndex != 2 {
			t.Fatalf("finding must carry its page: %+v", f)
		}
	}
}

func TestParseSchedules(t *testing.T) {
	page := blueprint.Page{
		Index: 4,
		TextRuns: []blueprint.TextRun{
			{Text: "WINDOW SCHEDULE"},
			{Text: "A 3050 CSMT U-0.29 SHGC 0.31"},
			{Text: "B 2840 SH"},
			{Text: "B 2840 SH"}, // duplicate row
		},
	}

	entries := ParseSchedules(page)
	if len(entries) != 2 {
		t.Fatalf("expected 2 unique entries, got %d", len(entries))
	}

	first := entries[0]
	if first.Mark != "3050" {
		t.Fatalf("expected mark 3050, got %s", first.Mark)
	}
	if first.WidthFt != 3.0 || first.HeightFt != 5.0 {
		t.Fatalf("3050 should be 3'0 x 5'0, got %f x %f", first.WidthFt, first.HeightFt)
	}
	if first.Kind != takeoff.OpeningWindow {
		t.Fatalf("schedule kind should be window")
	}
	if first.UValue != 0.29 || first.SHGC != 0.31 {
		t.Fatalf("row specs not picked up: %+v", first)
	}

	second := entries[1]
	if math.Abs(second.WidthFt-(2+8.0/12)) > 1e-9 || second.HeightFt != 4.0 {
		t.Fatalf("2840 should be 2'8 x 4'0, got %f x %f", second.WidthFt, second.HeightFt)
	}
}

func TestParseSchedulesNoHeader(t *testing.T) {
	page := blueprint.Page{
		TextRuns: []blueprint.TextRun{{Text: "3050 somewhere in a note"}},
	}
	if got := ParseSchedules(page); got != nil {
		t.Fatalf("no schedule header: expected nil, got %+v", got)
	}
}
