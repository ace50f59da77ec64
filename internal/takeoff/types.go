// Package takeoff defines the canonical room graph produced by reconciling
// vision output with the deterministic rule extractors, and the merger that
// builds it. Every merged field carries provenance so the audit layer never
// has to back-fill.
package takeoff

import "heatload_backend/internal/blueprint"

// Source tags where a merged value came from. Ordering matters: conflict
// resolution walks from strongest to weakest.
type Source string

const (
	SourceUserOverride    Source = "user_override"
	SourceLabeledSchedule Source = "labeled_schedule"
	SourceVisionHigh      Source = "vision_high_confidence"
	SourceRuleExtractor   Source = "rule_extractor"
	SourceVisionLow       Source = "vision_low_confidence"
	SourceAugmented       Source = "augmented"
)

// precedence: lower is stronger.
var sourcePrecedence = map[Source]int{
	SourceUserOverride:    0,
	SourceLabeledSchedule: 1,
	SourceVisionHigh:      2,
	SourceRuleExtractor:   3,
	SourceVisionLow:       4,
	SourceAugmented:       5,
}

// Stronger reports whether a beats b in conflict resolution.
func Stronger(a, b Source) bool {
	ra, ok := sourcePrecedence[a]
	if !ok {
		ra = len(sourcePrecedence)
	}
	rb, ok := sourcePrecedence[b]
	if !ok {
		rb = len(sourcePrecedence)
	}
	return ra < rb
}

// Provenance is attached to every merged field.
type Provenance struct {
	Source     Source  `json:"source"`
	Confidence float64 `json:"confidence"`
}

// RoomKind classifies a room for load purposes.
type RoomKind string

const (
	RoomBedroom    RoomKind = "bedroom"
	RoomBathroom   RoomKind = "bathroom"
	RoomKitchen    RoomKind = "kitchen"
	RoomLiving     RoomKind = "living"
	RoomDining     RoomKind = "dining"
	RoomHall       RoomKind = "hall"
	RoomCloset     RoomKind = "closet"
	RoomGarage     RoomKind = "garage"
	RoomOffice     RoomKind = "office"
	RoomLaundry    RoomKind = "laundry"
	RoomMechanical RoomKind = "mechanical"
	RoomBonus      RoomKind = "bonus"
	RoomOther      RoomKind = "other"
)

// Orientation is a compass facing for walls and openings.
type Orientation string

const (
	OrientN       Orientation = "N"
	OrientNE      Orientation = "NE"
	OrientE       Orientation = "E"
	OrientSE      Orientation = "SE"
	OrientS       Orientation = "S"
	OrientSW      Orientation = "SW"
	OrientW       Orientation = "W"
	OrientNW      Orientation = "NW"
	OrientUnknown Orientation = "unknown"
)

// OpeningKind distinguishes windows from doors.
type OpeningKind string

const (
	OpeningWindow OpeningKind = "window"
	OpeningDoor   OpeningKind = "door"
)

// Opening is a window or door in a wall segment.
type Opening struct {
	Kind        OpeningKind `json:"kind"`
	WidthFt     float64     `json:"width_ft"`
	HeightFt    float64     `json:"height_ft"`
	Orientation Orientation `json:"orientation"`
	UValue      float64     `json:"u_value,omitempty"`
	SHGC        float64     `json:"shgc,omitempty"` // windows only
	WallSegment int         `json:"wall_segment_ref"`
	Provenance  Provenance  `json:"provenance"`
}

// AreaFt2 returns the opening area.
func (o Opening) AreaFt2() float64 { return o.WidthFt * o.HeightFt }

// WallSegment is one run of wall with an exposure classification.
type WallSegment struct {
	Start       blueprint.Point `json:"start"` // in feet, plan coordinates
	End         blueprint.Point `json:"end"`
	LengthFt    float64         `json:"length_ft"`
	Exterior    bool            `json:"exterior"`
	Orientation Orientation     `json:"orientation"`
}

// Room is one conditioned space. Rooms refer to each other by stable numeric
// id rather than pointers, so the graph has no ownership cycles.
type Room struct {
	ID              int               `json:"id"`
	Name            string            `json:"name"`
	Kind            RoomKind          `json:"kind"`
	FloorIndex      int               `json:"floor_index"` // 0 = basement
	PolygonFt       []blueprint.Point `json:"polygon_ft"`
	AreaFt2         float64           `json:"area_ft2"`
	PerimeterFt     float64           `json:"perimeter_ft"`
	CeilingHeightFt float64           `json:"ceiling_height_ft"`
	WallSegments    []WallSegment     `json:"wall_segments"`
	Windows         []Opening         `json:"windows"`
	Doors           []Opening         `json:"doors"`
	AdjacentRoomIDs []int             `json:"adjacent_room_ids"`
	Confidence      float64           `json:"confidence"`
	Provenance      Provenance        `json:"provenance"`
}

// ExteriorWallLengthFt sums exterior wall segment lengths.
func (r Room) ExteriorWallLengthFt() float64 {
	total := 0.0
	for _, w := range r.WallSegments {
		if w.Exterior {
			total += w.LengthFt
		}
	}
	return total
}

// EnvelopeSummary aggregates the exterior envelope of the merged graph.
type EnvelopeSummary struct {
	PerimeterFt          float64                 `json:"perimeter_ft"`
	GrossWallAreaByFacing map[Orientation]float64 `json:"gross_wall_area_by_facing"`
	FloorCount           int                     `json:"floor_count"`
	TotalAreaFt2         float64                 `json:"total_area_ft2"`
	Bedrooms             int                     `json:"bedrooms"`
	NorthKnown           bool                    `json:"north_known"`
}

// Graph is the canonical merged takeoff.
type Graph struct {
	Rooms     []Room          `json:"rooms"`
	Envelope  EnvelopeSummary `json:"envelope"`
	Warnings  []string        `json:"warnings"`
	Augmented bool            `json:"augmented"`
}

// TotalAreaFt2 sums room areas.
func (g *Graph) TotalAreaFt2() float64 {
	total := 0.0
	for _, r := range g.Rooms {
		total += r.AreaFt2
	}
	return total
}

// BedroomCount counts bedrooms for ventilation sizing.
func (g *Graph) BedroomCount() int {
	n := 0
	for _, r := range g.Rooms {
		if r.Kind == RoomBedroom {
			n++
		}
	}
	return n
}

// FloorCount returns the number of distinct above-basement floors.
func (g *Graph) FloorCount() int {
	floors := map[int]bool{}
	for _, r := range g.Rooms {
		if r.FloorIndex > 0 {
			floors[r.FloorIndex] = true
		}
	}
	if len(floors) == 0 {
		return 1
	}
	return len(floors)
}
