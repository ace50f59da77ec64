// Package extract holds the deterministic text/vector extractors that run
// unconditionally alongside the vision analyzer: room detection, wall
// classification, opening detection, envelope spec mining, and schedule
// parsing. Everything here is a pure function of page content and scale.
package extract

import (
	"math"
	"sort"
	"strings"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/takeoff"
)

const (
	// explicitRectMinFt2/MaxFt2 bound explicit rectangles accepted as rooms.
	explicitRectMinFt2 = 25.0
	explicitRectMaxFt2 = 1000.0

	// lineAlignToleranceFt is how far apart parallel line endpoints may be
	// while still forming a rectangle side.
	lineAlignToleranceFt = 3.0

	// minSideFt is the minimum room side length for line-derived rectangles.
	minSideFt = 5.0

	// dedupeAreaToleranceFt2 treats rooms with matching centroids and areas
	// within this band as duplicates.
	dedupeAreaToleranceFt2 = 10.0

	// labelProximityPx associates a text label with a room when the label
	// center lies inside the room rectangle or within this distance of the
	// rectangle's center.
	labelProximityPx = 50.0
)

// roomKeywords maps label substrings to room kinds, checked in order so the
// more specific entries win.
var roomKeywords = []struct {
	keyword string
	kind    takeoff.RoomKind
}{
	{"master", takeoff.RoomBedroom},
	{"bedroom", takeoff.RoomBedroom},
	{"bed", takeoff.RoomBedroom},
	{"br", takeoff.RoomBedroom},
	{"bathroom", takeoff.RoomBathroom},
	{"bath", takeoff.RoomBathroom},
	{"powder", takeoff.RoomBathroom},
	{"kitchen", takeoff.RoomKitchen},
	{"pantry", takeoff.RoomKitchen},
	{"nook", takeoff.RoomKitchen},
	{"living", takeoff.RoomLiving},
	{"family", takeoff.RoomLiving},
	{"great", takeoff.RoomLiving},
	{"dining", takeoff.RoomDining},
	{"hall", takeoff.RoomHall},
	{"entry", takeoff.RoomHall},
	{"foyer", takeoff.RoomHall},
	{"mud", takeoff.RoomHall},
	{"closet", takeoff.RoomCloset},
	{"wic", takeoff.RoomCloset},
	{"storage", takeoff.RoomCloset},
	{"garage", takeoff.RoomGarage},
	{"office", takeoff.RoomOffice},
	{"study", takeoff.RoomOffice},
	{"den", takeoff.RoomOffice},
	{"laundry", takeoff.RoomLaundry},
	{"utility", takeoff.RoomLaundry},
	{"mech", takeoff.RoomMechanical},
	{"furnace", takeoff.RoomMechanical},
	{"bonus", takeoff.RoomBonus},
}

// RoomCandidate is a detected room before merging.
type RoomCandidate struct {
	Name       string
	Kind       takeoff.RoomKind
	PageIndex  int
	BoundsPx   blueprint.Rect
	WidthFt    float64
	HeightFt   float64
	AreaFt2    float64
	Confidence float64
}

// CentroidPx returns the candidate center in page space.
func (rc RoomCandidate) CentroidPx() blueprint.Point { return rc.BoundsPx.Center() }

// DetectRooms finds room rectangles on a page at the given scale. It combines
// explicit rectangle primitives with rectangles reconstructed from parallel
// horizontal/vertical line pairs, dedupes them, and classifies each by the
// nearest text label.
func DetectRooms(page blueprint.Page, pxPerFt float64) []RoomCandidate {
	if pxPerFt <= 0 {
		return nil
	}

	var rects []blueprint.Rect
	rects = append(rects, explicitRectangles(page, pxPerFt)...)
	rects = append(rects, rectanglesFromLines(page, pxPerFt)...)
	rects = dedupeRects(rects, pxPerFt)

	candidates := make([]RoomCandidate, 0, len(rects))
	for _, r := range rects {
		w := r.Width() / pxPerFt
		h := r.Height() / pxPerFt
		rc := RoomCandidate{
			PageIndex:  page.Index,
			BoundsPx:   r,
			WidthFt:    w,
			HeightFt:   h,
			AreaFt2:    w * h,
			Kind:       takeoff.RoomOther,
			Confidence: 0.6,
		}
		if name, kind, ok := nearestLabel(page.TextRuns, r); ok {
			rc.Name = name
			rc.Kind = kind
			rc.Confidence = 0.75
		}
		candidates = append(candidates, rc)
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].AreaFt2 > candidates[j].AreaFt2
	})
	return candidates
}

func explicitRectangles(page blueprint.Page, pxPerFt float64) []blueprint.Rect {
	var out []blueprint.Rect
	for _, prim := range page.Vectors.Primitives {
		if prim.Kind != blueprint.PrimitiveRectangle || len(prim.Points) != 2 {
			continue
		}
		r := normalizeRect(prim.Points[0], prim.Points[1])
		area := r.Area() / (pxPerFt * pxPerFt)
		if area >= explicitRectMinFt2 && area <= explicitRectMaxFt2 {
			out = append(out, r)
		}
	}
	return out
}

// rectanglesFromLines matches parallel horizontal pairs with parallel
// vertical pairs into axis-aligned rectangles.
func rectanglesFromLines(page blueprint.Page, pxPerFt float64) []blueprint.Rect {
	alignTolPx := lineAlignToleranceFt * pxPerFt
	minSidePx := minSideFt * pxPerFt

	var hLines, vLines []blueprint.Primitive
	for _, prim := range page.Vectors.Primitives {
		if prim.Kind != blueprint.PrimitiveLine {
			continue
		}
		switch {
		case prim.IsHorizontal(2):
			hLines = append(hLines, prim)
		case prim.IsVertical(2):
			vLines = append(vLines, prim)
		}
	}

	var out []blueprint.Rect
	for i := 0; i < len(hLines); i++ {
		for j := i + 1; j < len(hLines); j++ {
			top, bottom := hLines[i], hLines[j]
			y0 := top.Points[0].Y
			y1 := bottom.Points[0].Y
			if math.Abs(y1-y0) < minSidePx {
				continue
			}
			// Aligned spans: both lines must cover roughly the same x range.
			x0a, x1a := spanX(top)
			x0b, x1b := spanX(bottom)
			if math.Abs(x0a-x0b) > alignTolPx || math.Abs(x1a-x1b) > alignTolPx {
				continue
			}
			if x1a-x0a < minSidePx {
				continue
			}
			// Require vertical closure at both ends.
			if !hasVerticalAt(vLines, x0a, y0, y1, alignTolPx) ||
				!hasVerticalAt(vLines, x1a, y0, y1, alignTolPx) {
				continue
			}
			r := normalizeRect(
				blueprint.Point{X: x0a, Y: math.Min(y0, y1)},
				blueprint.Point{X: x1a, Y: math.Max(y0, y1)},
			)
			area := r.Area() / (pxPerFt * pxPerFt)
			if area >= explicitRectMinFt2 && area <= explicitRectMaxFt2 {
				out = append(out, r)
			}
		}
	}
	return out
}

func spanX(p blueprint.Primitive) (float64, float64) {
	x0 := math.Min(p.Points[0].X, p.Points[1].X)
	x1 := math.Max(p.Points[0].X, p.Points[1].X)
	return x0, x1
}

func hasVerticalAt(vLines []blueprint.Primitive, x, y0, y1, tolPx float64) bool {
	lo, hi := math.Min(y0, y1), math.Max(y0, y1)
	for _, v := range vLines {
		vx := v.Points[0].X
		if math.Abs(vx-x) > tolPx {
			continue
		}
		vy0 := math.Min(v.Points[0].Y, v.Points[1].Y)
		vy1 := math.Max(v.Points[0].Y, v.Points[1].Y)
		if vy0 <= lo+tolPx && vy1 >= hi-tolPx {
			return true
		}
	}
	return false
}

func dedupeRects(rects []blueprint.Rect, pxPerFt float64) []blueprint.Rect {
	var out []blueprint.Rect
	for _, r := range rects {
		dup := false
		for _, kept := range out {
			centroidDist := blueprint.Distance(r.Center(), kept.Center()) / pxPerFt
			areaDelta := math.Abs(r.Area()-kept.Area()) / (pxPerFt * pxPerFt)
			if centroidDist < lineAlignToleranceFt && areaDelta < dedupeAreaToleranceFt2 {
				dup = true
				break
			}
		}
		if !dup {
			out = append(out, r)
		}
	}
	return out
}

func nearestLabel(runs []blueprint.TextRun, r blueprint.Rect) (string, takeoff.RoomKind, bool) {
	bestDist := math.MaxFloat64
	var bestName string
	var bestKind takeoff.RoomKind

	for _, run := range runs {
		kind, ok := classifyLabel(run.Text)
		if !ok {
			continue
		}
		center := run.BBox.Center()
		var dist float64
		if r.Contains(center) {
			dist = 0
		} else {
			dist = blueprint.Distance(center, r.Center())
		}
		if dist <= labelProximityPx && dist < bestDist {
			bestDist = dist
			bestName = strings.TrimSpace(run.Text)
			bestKind = kind
		}
	}
	if bestName == "" {
		return "", takeoff.RoomOther, false
	}
	return bestName, bestKind, true
}

func classifyLabel(text string) (takeoff.RoomKind, bool) {
	lower := strings.ToLower(text)
	for _, kw := range roomKeywords {
		if strings.Contains(lower, kw.keyword) {
			return kw.kind, true
		}
	}
	return takeoff.RoomOther, false
}

func normalizeRect(a, b blueprint.Point) blueprint.Rect {
	return blueprint.Rect{
		X0: math.Min(a.X, b.X),
		Y0: math.Min(a.Y, b.Y),
		X1: math.Max(a.X, b.X),
		Y1: math.Max(a.Y, b.Y),
	}
}
