package extract

import (
	"math"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/takeoff"
)

const (
	// exteriorProximityFt marks walls within this distance of the building
	// bounding box as exterior.
	exteriorProximityFt = 5.0

	// adjacencyToleranceFt treats two rooms as adjacent when their
	// rectangles come within this distance of one another.
	adjacencyToleranceFt = 3.0
)

// WallClassification is the per-room wall breakdown produced from the
// detected room set.
type WallClassification struct {
	Segments        []takeoff.WallSegment
	AdjacentIndices []int // indices into the candidate slice
}

// ClassifyWalls splits each candidate's four sides into exterior and interior
// segments and computes adjacency between candidates. Orientation assumes the
// page is drawn north-up; orientation uncertainty is handled downstream.
func ClassifyWalls(candidates []RoomCandidate, pxPerFt float64) []WallClassification {
	if len(candidates) == 0 || pxPerFt <= 0 {
		return nil
	}

	outer := boundingBox(candidates)
	tolerancePx := exteriorProximityFt * pxPerFt
	adjacencyPx := adjacencyToleranceFt * pxPerFt

	out := make([]WallClassification, len(candidates))
	for i, rc := range candidates {
		r := rc.BoundsPx
		sides := []struct {
			start, end  blueprint.Point
			orientation takeoff.Orientation
			exterior    bool
		}{
			{blueprint.Point{X: r.X0, Y: r.Y0}, blueprint.Point{X: r.X1, Y: r.Y0}, takeoff.OrientN, math.Abs(r.Y0-outer.Y0) <= tolerancePx},
			{blueprint.Point{X: r.X1, Y: r.Y0}, blueprint.Point{X: r.X1, Y: r.Y1}, takeoff.OrientE, math.Abs(r.X1-outer.X1) <= tolerancePx},
			{blueprint.Point{X: r.X0, Y: r.Y1}, blueprint.Point{X: r.X1, Y: r.Y1}, takeoff.OrientS, math.Abs(r.Y1-outer.Y1) <= tolerancePx},
			{blueprint.Point{X: r.X0, Y: r.Y0}, blueprint.Point{X: r.X0, Y: r.Y1}, takeoff.OrientW, math.Abs(r.X0-outer.X0) <= tolerancePx},
		}

		for _, s := range sides {
			out[i].Segments = append(out[i].Segments, takeoff.WallSegment{
				Start:       blueprint.Point{X: s.start.X / pxPerFt, Y: s.start.Y / pxPerFt},
				End:         blueprint.Point{X: s.end.X / pxPerFt, Y: s.end.Y / pxPerFt},
				LengthFt:    blueprint.Distance(s.start, s.end) / pxPerFt,
				Exterior:    s.exterior,
				Orientation: s.orientation,
			})
		}

		for j, other := range candidates {
			if i == j {
				continue
			}
			if rectsTouch(rc.BoundsPx, other.BoundsPx, adjacencyPx) {
				out[i].AdjacentIndices = append(out[i].AdjacentIndices, j)
			}
		}
	}
	return out
}

func boundingBox(candidates []RoomCandidate) blueprint.Rect {
	outer := candidates[0].BoundsPx
	for _, rc := range candidates[1:] {
		r := rc.BoundsPx
		if r.X0 < outer.X0 {
			outer.X0 = r.X0
		}
		if r.Y0 < outer.Y0 {
			outer.Y0 = r.Y0
		}
		if r.X1 > outer.X1 {
			outer.X1 = r.X1
		}
		if r.Y1 > outer.Y1 {
			outer.Y1 = r.Y1
		}
	}
	return outer
}

// rectsTouch reports whether two rectangles share a wall point within
// tolerance: their gap along each axis must be within tol.
func rectsTouch(a, b blueprint.Rect, tolPx float64) bool {
	gapX := math.Max(math.Max(b.X0-a.X1, a.X0-b.X1), 0)
	gapY := math.Max(math.Max(b.Y0-a.Y1, a.Y0-b.Y1), 0)
	return gapX <= tolPx && gapY <= tolPx
}
