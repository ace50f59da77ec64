package extract

import (
	"math"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/takeoff"
)

const (
	// Window glyphs draw as short parallel line pairs inside the wall.
	windowGapMinPx   = 2.0
	windowGapMaxPx   = 6.0
	windowLenMinFt   = 1.5
	windowLenMaxFt   = 12.0

	// Door swings draw as quarter-circle arcs; only arcs are read as doors,
	// gaps between wall lines are not detected.
	doorRadiusMinFt = 2.5
	doorRadiusMaxFt = 4.0

	defaultWindowHeightFt = 5.0
	defaultDoorHeightFt   = 6.67
)

// OpeningCandidate is a detected window or door before merging.
type OpeningCandidate struct {
	Kind      takeoff.OpeningKind
	PageIndex int
	CenterPx  blueprint.Point
	WidthFt   float64
	HeightFt  float64
}

// DetectOpenings finds window glyphs (parallel short line pairs) and door
// glyphs (quarter-circle arcs) on a page.
func DetectOpenings(page blueprint.Page, pxPerFt float64) []OpeningCandidate {
	if pxPerFt <= 0 {
		return nil
	}

	var out []OpeningCandidate
	out = append(out, detectWindows(page, pxPerFt)...)
	out = append(out, detectDoors(page, pxPerFt)...)
	return out
}

func detectWindows(page blueprint.Page, pxPerFt float64) []OpeningCandidate {
	var lines []blueprint.Primitive
	for _, prim := range page.Vectors.Primitives {
		if prim.Kind != blueprint.PrimitiveLine {
			continue
		}
		lengthFt := prim.Length() / pxPerFt
		if lengthFt < windowLenMinFt || lengthFt > windowLenMaxFt {
			continue
		}
		if prim.IsHorizontal(1) || prim.IsVertical(1) {
			lines = append(lines, prim)
		}
	}

	var out []OpeningCandidate
	used := make([]bool, len(lines))
	for i := 0; i < len(lines); i++ {
		if used[i] {
			continue
		}
		for j := i + 1; j < len(lines); j++ {
			if used[j] {
				continue
			}
			gap, parallel := parallelGap(lines[i], lines[j])
			if !parallel || gap < windowGapMinPx || gap > windowGapMaxPx {
				continue
			}
			lenA := lines[i].Length()
			lenB := lines[j].Length()
			if math.Abs(lenA-lenB) > gapToleranceForLength(lenA) {
				continue
			}
			mid := midpoint(lines[i])
			out = append(out, OpeningCandidate{
				Kind:      takeoff.OpeningWindow,
				PageIndex: page.Index,
				CenterPx:  mid,
				WidthFt:   lenA / pxPerFt,
				HeightFt:  defaultWindowHeightFt,
			})
			used[i], used[j] = true, true
			break
		}
	}
	return out
}

func gapToleranceForLength(lengthPx float64) float64 {
	tol := lengthPx * 0.1
	if tol < 2 {
		tol = 2
	}
	return tol
}

func detectDoors(page blueprint.Page, pxPerFt float64) []OpeningCandidate {
	var out []OpeningCandidate
	for _, prim := range page.Vectors.Primitives {
		if prim.Kind != blueprint.PrimitiveArc || len(prim.Points) == 0 {
			continue
		}
		radiusFt := prim.Radius / pxPerFt
		if radiusFt < doorRadiusMinFt || radiusFt > doorRadiusMaxFt {
			continue
		}
		// Door swings render as quarter circles; accept a generous band.
		if prim.SweepDeg != 0 && (prim.SweepDeg < 60 || prim.SweepDeg > 120) {
			continue
		}
		out = append(out, OpeningCandidate{
			Kind:      takeoff.OpeningDoor,
			PageIndex: page.Index,
			CenterPx:  prim.Points[0],
			WidthFt:   radiusFt,
			HeightFt:  defaultDoorHeightFt,
		})
	}
	return out
}

// parallelGap returns the perpendicular distance between two lines if they
// are parallel (both horizontal or both vertical).
func parallelGap(a, b blueprint.Primitive) (float64, bool) {
	switch {
	case a.IsHorizontal(1) && b.IsHorizontal(1):
		return math.Abs(a.Points[0].Y - b.Points[0].Y), true
	case a.IsVertical(1) && b.IsVertical(1):
		return math.Abs(a.Points[0].X - b.Points[0].X), true
	}
	return 0, false
}

func midpoint(p blueprint.Primitive) blueprint.Point {
	return blueprint.Point{
		X: (p.Points[0].X + p.Points[1].X) / 2,
		Y: (p.Points[0].Y + p.Points[1].Y) / 2,
	}
}
