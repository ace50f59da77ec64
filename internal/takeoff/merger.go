package takeoff

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"heatload_backend/internal/blueprint"
	"heatload_backend/internal/extract"
	"heatload_backend/internal/vision"
)

const (
	// centroidMatchFraction: vision and rule rooms match when their
	// centroids are within this fraction of the smaller room's width.
	centroidMatchFraction = 0.20

	// visionHighConfidence splits vision rooms into the high and low
	// precedence tiers.
	visionHighConfidence = 0.8

	// DefaultCeilingHeightFt is assumed when no height is detected.
	DefaultCeilingHeightFt = 9.0
)

// MergeInput bundles everything the merger reconciles.
type MergeInput struct {
	PxPerFt        float64
	RuleRooms      []extract.RoomCandidate
	Walls          []extract.WallClassification // parallel to RuleRooms
	Openings       []extract.OpeningCandidate
	Schedule       []extract.ScheduleEntry
	Vision         *vision.Takeoff // nil when the provider was unavailable
	FloorIndex     map[int]int     // page index -> floor index (1-based)
	NorthKnown     bool
	SecondFloorSuspected bool

	MinRoomSqft  float64
	MaxRoomSqft  float64
	MaxRoomCount int
}

// Merger reconciles vision and rule extractor output into the canonical
// room graph.
type Merger struct{}

// NewMerger creates a merger.
func NewMerger() *Merger {
	return &Merger{}
}

// Merge builds the canonical graph: union of both sources, spatial matching,
// per-field conflict resolution, small-plan augmentation, and the exterior
// envelope summary.
func (m *Merger) Merge(in MergeInput) *Graph {
	g := &Graph{}

	rooms := m.roomsFromRules(in)
	rooms = m.reconcileVision(rooms, in, g)

	rooms = filterRooms(rooms, in, g)
	m.attachOpenings(rooms, in)

	// Stable ids by descending area, then name. Adjacency references are
	// remapped from pre-sort positions to the final ids.
	sort.SliceStable(rooms, func(i, j int) bool {
		if rooms[i].AreaFt2 != rooms[j].AreaFt2 {
			return rooms[i].AreaFt2 > rooms[j].AreaFt2
		}
		return rooms[i].Name < rooms[j].Name
	})
	idFor := make(map[int]int, len(rooms))
	for i := range rooms {
		idFor[rooms[i].ID] = i
	}
	for i := range rooms {
		var remapped []int
		for _, old := range rooms[i].AdjacentRoomIDs {
			if newID, ok := idFor[old]; ok {
				remapped = append(remapped, newID)
			}
		}
		rooms[i].AdjacentRoomIDs = remapped
		rooms[i].ID = i
	}
	g.Rooms = rooms

	m.augmentIfSparse(g, in)
	g.Envelope = m.summarizeEnvelope(g, in)
	return g
}

// roomsFromRules converts extractor candidates into canonical rooms.
func (m *Merger) roomsFromRules(in MergeInput) []Room {
	rooms := make([]Room, 0, len(in.RuleRooms))
	for i, rc := range in.RuleRooms {
		room := Room{
			ID:              i,
			Name:            rc.Name,
			Kind:            rc.Kind,
			FloorIndex:      floorFor(in.FloorIndex, rc.PageIndex),
			AreaFt2:         rc.AreaFt2,
			PerimeterFt:     2 * (rc.WidthFt + rc.HeightFt),
			CeilingHeightFt: DefaultCeilingHeightFt,
			Confidence:      rc.Confidence,
			Provenance:      Provenance{Source: SourceRuleExtractor, Confidence: rc.Confidence},
		}
		if in.PxPerFt > 0 {
			room.PolygonFt = rectPolygon(rc.BoundsPx, in.PxPerFt)
		}
		if i < len(in.Walls) {
			room.WallSegments = in.Walls[i].Segments
			room.AdjacentRoomIDs = append(room.AdjacentRoomIDs, in.Walls[i].AdjacentIndices...)
		}
		if room.Name == "" {
			room.Name = fmt.Sprintf("Room %d", i+1)
		}
		rooms = append(rooms, room)
	}
	return rooms
}

// reconcileVision matches vision rooms to rule rooms and resolves conflicts
// by source precedence. Unmatched vision rooms join the graph on their own
// tier.
func (m *Merger) reconcileVision(rooms []Room, in MergeInput, g *Graph) []Room {
	if in.Vision == nil {
		return rooms
	}

	for _, hint := range in.Vision.Rooms {
		source := SourceVisionLow
		if hint.Confidence >= visionHighConfidence {
			source = SourceVisionHigh
		}
		kind := normalizeKind(hint.Kind)

		matched := false
		for i := range rooms {
			if !m.matches(&rooms[i], hint, in.PxPerFt) {
				continue
			}
			matched = true
			mergeField(&rooms[i], hint, source)
			break
		}
		if matched {
			continue
		}

		if hint.AreaFt2 <= 0 && (hint.WidthFt <= 0 || hint.HeightFt <= 0) {
			continue
		}
		area := hint.AreaFt2
		if area <= 0 {
			area = hint.WidthFt * hint.HeightFt
		}
		perimeter := 0.0
		if hint.WidthFt > 0 && hint.HeightFt > 0 {
			perimeter = 2 * (hint.WidthFt + hint.HeightFt)
		} else {
			perimeter = 4 * math.Sqrt(area)
		}
		floor := hint.FloorIndex
		if floor <= 0 {
			floor = 1
		}
		rooms = append(rooms, Room{
			ID:              len(rooms),
			Name:            hint.Name,
			Kind:            kind,
			FloorIndex:      floor,
			AreaFt2:         area,
			PerimeterFt:     perimeter,
			CeilingHeightFt: DefaultCeilingHeightFt,
			Confidence:      hint.Confidence,
			Provenance:      Provenance{Source: source, Confidence: hint.Confidence},
		})
	}
	return rooms
}

// matches applies the spatial + kind compatibility rule.
func (m *Merger) matches(room *Room, hint vision.RoomHint, pxPerFt float64) bool {
	kind := normalizeKind(hint.Kind)
	if room.Kind != RoomOther && kind != RoomOther && room.Kind != kind {
		return false
	}

	// Spatial check when both sides carry coordinates.
	if hint.CenterXFt != 0 || hint.CenterYFt != 0 {
		if len(room.PolygonFt) == 0 {
			return false
		}
		center := polygonCenter(room.PolygonFt)
		dist := math.Hypot(center.X-hint.CenterXFt, center.Y-hint.CenterYFt)
		smallerWidth := math.Min(roomWidth(room), hint.WidthFt)
		if smallerWidth <= 0 {
			smallerWidth = math.Sqrt(math.Min(room.AreaFt2, math.Max(hint.AreaFt2, 1)))
		}
		return dist <= centroidMatchFraction*smallerWidth
	}

	// Without coordinates fall back to name, then kind + area similarity.
	if hint.Name != "" && room.Name != "" &&
		strings.EqualFold(strings.TrimSpace(hint.Name), strings.TrimSpace(room.Name)) {
		return true
	}
	if kind == RoomOther || room.Kind == RoomOther {
		return false
	}
	if hint.AreaFt2 <= 0 || room.AreaFt2 <= 0 {
		return false
	}
	ratio := hint.AreaFt2 / room.AreaFt2
	return ratio > 0.6 && ratio < 1.67
}

// mergeField overwrites room fields whose incoming source is stronger.
func mergeField(room *Room, hint vision.RoomHint, source Source) {
	if !Stronger(source, room.Provenance.Source) {
		// Existing value wins; still adopt a name if we have none.
		if room.Name == "" && hint.Name != "" {
			room.Name = hint.Name
		}
		return
	}
	if hint.Name != "" {
		room.Name = hint.Name
	}
	if kind := normalizeKind(hint.Kind); kind != RoomOther {
		room.Kind = kind
	}
	if hint.AreaFt2 > 0 {
		room.AreaFt2 = hint.AreaFt2
	}
	if hint.WidthFt > 0 && hint.HeightFt > 0 {
		room.PerimeterFt = 2 * (hint.WidthFt + hint.HeightFt)
	}
	if hint.FloorIndex > 0 {
		room.FloorIndex = hint.FloorIndex
	}
	room.Confidence = math.Max(room.Confidence, hint.Confidence)
	room.Provenance = Provenance{Source: source, Confidence: hint.Confidence}
}

// filterRooms drops rooms outside the configured area bounds and caps the
// room count.
func filterRooms(rooms []Room, in MergeInput, g *Graph) []Room {
	if in.MinRoomSqft <= 0 && in.MaxRoomSqft <= 0 {
		return rooms
	}
	kept := rooms[:0]
	for _, r := range rooms {
		if in.MinRoomSqft > 0 && r.AreaFt2 < in.MinRoomSqft {
			g.Warnings = append(g.Warnings,
				fmt.Sprintf("filtered %s: %.0f ft2 below minimum room size", r.Name, r.AreaFt2))
			continue
		}
		if in.MaxRoomSqft > 0 && r.AreaFt2 > in.MaxRoomSqft {
			g.Warnings = append(g.Warnings,
				fmt.Sprintf("filtered %s: %.0f ft2 above maximum room size", r.Name, r.AreaFt2))
			continue
		}
		kept = append(kept, r)
	}
	if in.MaxRoomCount > 0 && len(kept) > in.MaxRoomCount {
		sort.SliceStable(kept, func(i, j int) bool { return kept[i].AreaFt2 > kept[j].AreaFt2 })
		g.Warnings = append(g.Warnings,
			fmt.Sprintf("room count %d exceeds cap %d, keeping largest", len(kept), in.MaxRoomCount))
		kept = kept[:in.MaxRoomCount]
	}
	return kept
}

// attachOpenings assigns detected openings to the room containing (or
// nearest to) each opening center, filling sizes from schedule entries when
// a schedule exists.
func (m *Merger) attachOpenings(rooms []Room, in MergeInput) {
	defaultWindow := scheduleDefault(in.Schedule, "window")
	defaultDoor := scheduleDefault(in.Schedule, "door")

	for _, oc := range in.Openings {
		idx := m.roomForPoint(rooms, oc, in.PxPerFt)
		if idx < 0 {
			continue
		}
		opening := Opening{
			WidthFt:     oc.WidthFt,
			HeightFt:    oc.HeightFt,
			Orientation: OrientUnknown,
			Provenance:  Provenance{Source: SourceRuleExtractor, Confidence: 0.6},
		}
		switch oc.Kind {
		case OpeningWindow:
			if defaultWindow != nil {
				opening.WidthFt = defaultWindow.WidthFt
				opening.HeightFt = defaultWindow.HeightFt
				opening.UValue = defaultWindow.UValue
				opening.SHGC = defaultWindow.SHGC
				opening.Provenance = Provenance{Source: SourceLabeledSchedule, Confidence: 0.85}
			}
			opening.Kind = OpeningWindow
			rooms[idx].Windows = append(rooms[idx].Windows, opening)
		case OpeningDoor:
			if defaultDoor != nil {
				opening.WidthFt = defaultDoor.WidthFt
				opening.HeightFt = defaultDoor.HeightFt
				opening.UValue = defaultDoor.UValue
				opening.Provenance = Provenance{Source: SourceLabeledSchedule, Confidence: 0.85}
			}
			opening.Kind = OpeningDoor
			rooms[idx].Doors = append(rooms[idx].Doors, opening)
		}
	}
}

func (m *Merger) roomForPoint(rooms []Room, oc extract.OpeningCandidate, pxPerFt float64) int {
	if pxPerFt <= 0 {
		return -1
	}
	p := blueprint.Point{X: oc.CenterPx.X / pxPerFt, Y: oc.CenterPx.Y / pxPerFt}

	best := -1
	bestDist := math.MaxFloat64
	for i, r := range rooms {
		if len(r.PolygonFt) == 0 {
			continue
		}
		center := polygonCenter(r.PolygonFt)
		dist := math.Hypot(center.X-p.X, center.Y-p.Y)
		if pointInPolygonBounds(r.PolygonFt, p) {
			return i
		}
		// An opening sits in a wall, so allow a small margin beyond it.
		if dist < bestDist && dist < roomWidth(&r) {
			bestDist = dist
			best = i
		}
	}
	return best
}

func scheduleDefault(entries []extract.ScheduleEntry, kind string) *extract.ScheduleEntry {
	for i := range entries {
		if string(entries[i].Kind) == kind {
			return &entries[i]
		}
	}
	return nil
}

// augmentIfSparse adds a typed estimated room set when the merged plan is
// implausibly small and a second floor is suspected. Policy: warning with
// reduced confidence.
func (m *Merger) augmentIfSparse(g *Graph, in MergeInput) {
	const augmentThresholdFt2 = 2000.0

	if g.TotalAreaFt2() >= augmentThresholdFt2 || !in.SecondFloorSuspected {
		return
	}

	estimated := []struct {
		name string
		kind RoomKind
		area float64
	}{
		{"Kitchen (estimated)", RoomKitchen, 140},
		{"Living (estimated)", RoomLiving, 280},
		{"Dining (estimated)", RoomDining, 130},
		{"Bedroom 1 (estimated)", RoomBedroom, 170},
		{"Bedroom 2 (estimated)", RoomBedroom, 130},
		{"Bedroom 3 (estimated)", RoomBedroom, 120},
		{"Bath 1 (estimated)", RoomBathroom, 50},
		{"Bath 2 (estimated)", RoomBathroom, 40},
		{"Hall (estimated)", RoomHall, 80},
	}

	nextID := len(g.Rooms)
	for _, e := range estimated {
		g.Rooms = append(g.Rooms, Room{
			ID:              nextID,
			Name:            e.name,
			Kind:            e.kind,
			FloorIndex:      2,
			AreaFt2:         e.area,
			PerimeterFt:     4 * math.Sqrt(e.area),
			CeilingHeightFt: DefaultCeilingHeightFt,
			Confidence:      0.3,
			Provenance:      Provenance{Source: SourceAugmented, Confidence: 0.3},
		})
		nextID++
	}

	g.Augmented = true
	g.Warnings = append(g.Warnings,
		fmt.Sprintf("plan area %.0f ft2 with a suspected second floor: added %d estimated rooms at reduced confidence",
			g.TotalAreaFt2(), len(estimated)))
}

// summarizeEnvelope aggregates the exterior envelope of the merged graph.
func (m *Merger) summarizeEnvelope(g *Graph, in MergeInput) EnvelopeSummary {
	summary := EnvelopeSummary{
		GrossWallAreaByFacing: map[Orientation]float64{},
		NorthKnown:            in.NorthKnown,
	}

	for _, r := range g.Rooms {
		hasSegments := false
		for _, seg := range r.WallSegments {
			if !seg.Exterior {
				continue
			}
			hasSegments = true
			summary.PerimeterFt += seg.LengthFt
			summary.GrossWallAreaByFacing[seg.Orientation] += seg.LengthFt * r.CeilingHeightFt
		}
		if !hasSegments && r.Provenance.Source != SourceRuleExtractor {
			// Estimated/vision rooms without geometry contribute an assumed
			// half-exposed perimeter split evenly across facings.
			exposed := r.PerimeterFt / 2
			summary.PerimeterFt += exposed
			for _, o := range []Orientation{OrientN, OrientE, OrientS, OrientW} {
				summary.GrossWallAreaByFacing[o] += exposed / 4 * r.CeilingHeightFt
			}
		}
	}

	summary.TotalAreaFt2 = g.TotalAreaFt2()
	summary.FloorCount = g.FloorCount()
	summary.Bedrooms = g.BedroomCount()
	return summary
}

// ---------------------------------------------------------------------------

var kindAliases = map[string]RoomKind{
	"bedroom": RoomBedroom, "bed": RoomBedroom, "master": RoomBedroom,
	"bathroom": RoomBathroom, "bath": RoomBathroom,
	"kitchen": RoomKitchen,
	"living": RoomLiving, "family": RoomLiving, "great": RoomLiving,
	"dining": RoomDining,
	"hall": RoomHall, "hallway": RoomHall, "entry": RoomHall, "foyer": RoomHall,
	"closet": RoomCloset, "storage": RoomCloset,
	"garage":  RoomGarage,
	"office":  RoomOffice, "study": RoomOffice, "den": RoomOffice,
	"laundry": RoomLaundry, "utility": RoomLaundry,
	"mechanical": RoomMechanical, "mech": RoomMechanical,
	"bonus": RoomBonus,
}

func normalizeKind(raw string) RoomKind {
	lower := strings.ToLower(strings.TrimSpace(raw))
	if kind, ok := kindAliases[lower]; ok {
		return kind
	}
	return RoomOther
}

func floorFor(floorIndex map[int]int, pageIndex int) int {
	if floorIndex != nil {
		if f, ok := floorIndex[pageIndex]; ok {
			return f
		}
	}
	return 1
}

func rectPolygon(r blueprint.Rect, pxPerFt float64) []blueprint.Point {
	return []blueprint.Point{
		{X: r.X0 / pxPerFt, Y: r.Y0 / pxPerFt},
		{X: r.X1 / pxPerFt, Y: r.Y0 / pxPerFt},
		{X: r.X1 / pxPerFt, Y: r.Y1 / pxPerFt},
		{X: r.X0 / pxPerFt, Y: r.Y1 / pxPerFt},
	}
}

func polygonCenter(poly []blueprint.Point) blueprint.Point {
	var sx, sy float64
	for _, p := range poly {
		sx += p.X
		sy += p.Y
	}
	n := float64(len(poly))
	return blueprint.Point{X: sx / n, Y: sy / n}
}

func pointInPolygonBounds(poly []blueprint.Point, p blueprint.Point) bool {
	minX, minY := math.MaxFloat64, math.MaxFloat64
	maxX, maxY := -math.MaxFloat64, -math.MaxFloat64
	for _, v := range poly {
		minX = math.Min(minX, v.X)
		minY = math.Min(minY, v.Y)
		maxX = math.Max(maxX, v.X)
		maxY = math.Max(maxY, v.Y)
	}
	return p.X >= minX && p.X <= maxX && p.Y >= minY && p.Y <= maxY
}

func roomWidth(r *Room) float64 {
	if len(r.PolygonFt) == 0 {
		return math.Sqrt(r.AreaFt2)
	}
	minX, maxX := math.MaxFloat64, -math.MaxFloat64
	for _, p := range r.PolygonFt {
		minX = math.Min(minX, p.X)
		maxX = math.Max(maxX, p.X)
	}
	return maxX - minX
}
