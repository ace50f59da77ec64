package manualj

import (
	"fmt"
	"math"

	"heatload_backend/internal/baseline"
	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
	"heatload_backend/internal/takeoff"
)

// Component tags for the audit breakdown.
const (
	ComponentWall          = "wall"
	ComponentWindowCond    = "window_cond"
	ComponentWindowSolar   = "window_solar"
	ComponentDoor          = "door"
	ComponentRoof          = "roof"
	ComponentFloor         = "floor"
	ComponentFoundation    = "foundation"
	ComponentInfiltrationS = "infiltration_s"
	ComponentInfiltrationL = "infiltration_l"
	ComponentVentilationS  = "ventilation_s"
	ComponentVentilationL  = "ventilation_l"
	ComponentInternalS     = "internal_s"
	ComponentInternalL     = "internal_l"
	ComponentDuct          = "duct"
)

// Indoor design conditions.
const (
	indoorWinterF = 70.0
	indoorSummerF = 75.0
)

// Internal gain schedule (ASHRAE residential).
const (
	occupantSensibleBTUH = 230.0
	occupantLatentBTUH   = 200.0
	equipmentBTUHPerFt2  = 2.56
	lightingBTUHPerFt2   = 2.56
	areaPerOccupantFt2   = 300.0

	kitchenEquipmentMultiplier = 2.0
	bathroomLatentMultiplier   = 1.5
)

// ASHRAE 62.2 ventilation baseline: 0.03 cfm/ft2 plus 7.5 cfm per bedroom.
const (
	ventilationCFMPerFt2     = 0.03
	ventilationCFMPerBedroom = 7.5
)

// rimJoistBandFt is the height of the rim-joist band carried as exterior
// wall at each floor line.
const rimJoistBandFt = 1.0

// Safety factors per ACCA guidance. Heating may run up to 1.40; 1.10 is the
// standard margin.
const (
	safetyFactorHeating = 1.10
	safetyFactorCooling = 1.00
)

// ductFactors by location: independent heating and cooling multipliers.
var ductFactors = map[envelope.DuctLocation][2]float64{
	envelope.DuctConditioned: {1.00, 1.00},
	envelope.DuctBasement:    {1.10, 1.04},
	envelope.DuctCrawl:       {1.15, 1.10},
	envelope.DuctVentedAttic: {1.25, 1.25},
}

// HeatingFuel selects the equipment sizing basis.
type HeatingFuel string

const (
	FuelGas      HeatingFuel = "gas"
	FuelElectric HeatingFuel = "electric"
	FuelHeatPump HeatingFuel = "heat_pump"
)

// ComponentLoad is one tagged load entry.
type ComponentLoad struct {
	Component string  `json:"component"`
	BTUH      float64 `json:"btu_per_hr"`
	AreaFt2   float64 `json:"area,omitempty"`
	UValue    float64 `json:"u,omitempty"`
	DeltaT    float64 `json:"delta_t,omitempty"`
}

// ZoneLoads is the per-room result.
type ZoneLoads struct {
	RoomID          int             `json:"room_id"`
	Name            string          `json:"name"`
	HeatingBTUH     float64         `json:"heating_btuh"`
	CoolingSensible float64         `json:"cooling_sensible_btuh"`
	CoolingLatent   float64         `json:"cooling_latent_btuh"`
	Components      []ComponentLoad `json:"components"`
}

// Results is the complete Manual J output.
type Results struct {
	HeatingBTUH float64 `json:"heating_btuh"`
	CoolingBTUH float64 `json:"cooling_btuh"`
	HeatingTons float64 `json:"heating_tons"`
	CoolingTons float64 `json:"cooling_tons"`

	// SizingBTUH is the equipment sizing basis: heat pumps size to
	// max(heating, cooling); gas systems size the condenser to cooling.
	SizingBTUH  float64 `json:"sizing_btuh"`
	TonnageBand string  `json:"tonnage_band"`

	RequiredCFM       float64 `json:"required_cfm"`
	SensibleHeatRatio float64 `json:"sensible_heat_ratio"`
	HeatingPerFt2     float64 `json:"heating_per_ft2"`
	CoolingPerFt2     float64 `json:"cooling_per_ft2"`

	ZoneLoads         []ZoneLoads        `json:"zone_loads"`
	HeatingComponents map[string]float64 `json:"heating_components"`
	CoolingComponents map[string]float64 `json:"cooling_components"`

	DuctFactorHeating float64 `json:"duct_factor_heating"`
	DuctFactorCooling float64 `json:"duct_factor_cooling"`
	DiversityFactor   float64 `json:"diversity_factor"`

	InfiltrationCFMWinter float64 `json:"infiltration_cfm_winter"`
	InfiltrationCFMSummer float64 `json:"infiltration_cfm_summer"`
	ACHNatural            float64 `json:"ach_natural"`

	Warnings []string `json:"warnings,omitempty"`
}

// Candidate converts the results into the ensemble's primary candidate.
func (r *Results) Candidate() baseline.Candidate {
	return baseline.Candidate{
		Name:        baseline.CandidatePrimary,
		HeatingBTUH: r.HeatingBTUH,
		CoolingBTUH: r.CoolingBTUH,
		Details: map[string]float64{
			"duct_factor_heating": r.DuctFactorHeating,
			"duct_factor_cooling": r.DuctFactorCooling,
			"diversity_factor":    r.DiversityFactor,
			"ach_natural":         r.ACHNatural,
			"sensible_heat_ratio": r.SensibleHeatRatio,
		},
	}
}

// Input bundles everything the calculator reads.
type Input struct {
	Graph  *takeoff.Graph
	Env    *envelope.Envelope
	Design climate.Design
	Fuel   HeatingFuel
}

// Calculator computes the primary Manual J candidate. Pure with respect to
// its inputs; never suspends.
type Calculator struct{}

// NewCalculator creates a calculator.
func NewCalculator() *Calculator {
	return &Calculator{}
}

// Calculate runs the full per-room and whole-building load calculation.
func (c *Calculator) Calculate(in Input) *Results {
	g := in.Graph
	env := in.Env
	d := in.Design

	totalArea := g.TotalAreaFt2()
	if totalArea <= 0 {
		return &Results{Warnings: []string{"no conditioned area detected"}}
	}
	stories := g.FloorCount()
	height := env.CeilingHeightFt.Value
	if height <= 0 {
		height = takeoff.DefaultCeilingHeightFt
	}

	dtHeat := indoorWinterF - d.Winter99
	dtCool := d.Summer1 - indoorSummerF
	if dtCool < 0 {
		dtCool = 0
	}

	geom := c.resolveGeometry(g, env, totalArea, stories, height)

	wallU := WallUEffective(env.WallR.Value)
	roofU := CeilingUEffective(env.CeilingR.Value)
	windowU := env.WindowU.Value
	shgc := env.WindowSHGC.Value
	doorU := env.DoorU.Value
	if doorU <= 0 {
		doorU = 0.20
	}

	// Building-level loads, allocated to rooms by area share below.
	volume := totalArea * height
	shielding := envelope.WindShielding(env.Shielding.Value)
	winterInf := Infiltration(env.ACH50.Value, volume, dtHeat, winterWindMPH, shielding, stories)
	summerInf := Infiltration(env.ACH50.Value, volume, dtCool, summerWindMPH, shielding, stories)

	infHeatS := 1.08 * winterInf.CFM * dtHeat
	infCoolS := 1.08 * summerInf.CFM * dtCool
	infCoolL := LatentLoad(summerInf.CFM, d.HumidityRatioSummer, climate.IndoorHumidityRatio)

	ventCFM := ventilationCFMPerFt2*totalArea + ventilationCFMPerBedroom*float64(g.BedroomCount())
	ventHeatS := 1.08 * ventCFM * dtHeat
	ventCoolS := 1.08 * ventCFM * dtCool
	ventCoolL := LatentLoad(ventCFM, d.HumidityRatioSummer, climate.IndoorHumidityRatio)

	foundationHeat, foundationCool := c.foundationLoads(env, geom, totalArea, dtHeat, dtCool)

	// Rim joists are always carried as a separate band of exterior wall at
	// the floor line, one foot per story around the perimeter.
	rimArea := geom.perimeterFt * rimJoistBandFt * float64(stories)
	rimHeat := wallU * rimArea * dtHeat
	rimCool := wallU * rimArea * dtCool
	foundationHeat += rimHeat
	foundationCool += rimCool

	occupants := math.Max(1, totalArea/areaPerOccupantFt2)

	heatComponents := map[string]float64{}
	coolComponents := map[string]float64{}
	zones := make([]ZoneLoads, 0, len(g.Rooms))

	topFloor := 1
	for _, r := range g.Rooms {
		if r.FloorIndex > topFloor {
			topFloor = r.FloorIndex
		}
	}

	var heatSubtotal, coolSensSubtotal, coolLatSubtotal float64

	for _, room := range g.Rooms {
		share := room.AreaFt2 / totalArea
		zone := ZoneLoads{RoomID: room.ID, Name: room.Name}

		extWallArea := geom.roomWallArea[room.ID]
		windowArea, windows := c.roomWindows(room, extWallArea, env)

		// Walls net of openings.
		doorArea := 0.0
		for _, dr := range room.Doors {
			doorArea += dr.AreaFt2()
		}
		netWall := extWallArea - windowArea - doorArea
		if netWall < 0 {
			netWall = 0
		}

		wallHeat := wallU * netWall * dtHeat
		wallCool := wallU * netWall * dtCool
		zone.add(ComponentWall, wallHeat, netWall, wallU, dtHeat)

		windowHeat := windowU * windowArea * dtHeat
		windowCoolCond := windowU * windowArea * dtCool
		zone.add(ComponentWindowCond, windowHeat, windowArea, windowU, dtHeat)

		solar := 0.0
		for _, w := range windows {
			sh := w.SHGC
			if sh <= 0 {
				sh = shgc
			}
			solar += w.AreaFt2() * sh * SolarFactor(w.Orientation, d.ZoneNumber()) * interiorShadingCoefficient
		}
		zone.add(ComponentWindowSolar, solar, windowArea, 0, 0)

		doorHeat := doorU * doorArea * dtHeat
		doorCool := doorU * doorArea * dtCool
		if doorArea > 0 {
			zone.add(ComponentDoor, doorHeat, doorArea, doorU, dtHeat)
		}

		var roofHeat, roofCool float64
		if room.FloorIndex == topFloor {
			roofHeat = roofU * room.AreaFt2 * dtHeat
			roofCool = roofU * room.AreaFt2 * (dtCool + roofCLTDAdjustment)
			zone.add(ComponentRoof, roofHeat, room.AreaFt2, roofU, dtHeat)
		}

		// Allocated building-level shares.
		zoneFoundationHeat := foundationHeat * share
		zoneFoundationCool := foundationCool * share
		zone.add(ComponentFoundation, zoneFoundationHeat, 0, 0, dtHeat)

		zoneInfHeat := infHeatS * share
		zoneInfCoolS := infCoolS * share
		zoneInfCoolL := infCoolL * share
		zone.add(ComponentInfiltrationS, zoneInfHeat, 0, 0, dtHeat)

		zoneVentHeat := ventHeatS * share
		zoneVentCoolS := ventCoolS * share
		zoneVentCoolL := ventCoolL * share
		zone.add(ComponentVentilationS, zoneVentHeat, 0, 0, dtHeat)

		// Internal gains, cooling only.
		equipment := equipmentBTUHPerFt2 * room.AreaFt2
		if room.Kind == takeoff.RoomKitchen {
			equipment *= kitchenEquipmentMultiplier
		}
		lighting := lightingBTUHPerFt2 * room.AreaFt2
		occSens := occupantSensibleBTUH * occupants * share
		occLat := occupantLatentBTUH * occupants * share
		if room.Kind == takeoff.RoomBathroom {
			occLat *= bathroomLatentMultiplier
		}
		internalS := equipment + lighting + occSens
		zone.add(ComponentInternalS, internalS, room.AreaFt2, 0, 0)

		zone.HeatingBTUH = wallHeat + windowHeat + doorHeat + roofHeat +
			zoneFoundationHeat + zoneInfHeat + zoneVentHeat
		zone.CoolingSensible = wallCool + windowCoolCond + solar + doorCool + roofCool +
			zoneFoundationCool + zoneInfCoolS + zoneVentCoolS + internalS
		zone.CoolingLatent = zoneInfCoolL + zoneVentCoolL + occLat

		heatSubtotal += zone.HeatingBTUH
		coolSensSubtotal += zone.CoolingSensible
		coolLatSubtotal += zone.CoolingLatent

		heatComponents[ComponentWall] += wallHeat
		heatComponents[ComponentWindowCond] += windowHeat
		heatComponents[ComponentDoor] += doorHeat
		heatComponents[ComponentRoof] += roofHeat
		coolComponents[ComponentWall] += wallCool
		coolComponents[ComponentWindowCond] += windowCoolCond
		coolComponents[ComponentWindowSolar] += solar
		coolComponents[ComponentDoor] += doorCool
		coolComponents[ComponentRoof] += roofCool
		coolComponents[ComponentInternalS] += internalS
		coolComponents[ComponentInternalL] += occLat

		zones = append(zones, zone)
	}

	heatComponents[ComponentFoundation] = foundationHeat
	heatComponents[ComponentInfiltrationS] = infHeatS
	heatComponents[ComponentVentilationS] = ventHeatS
	coolComponents[ComponentFoundation] = foundationCool
	coolComponents[ComponentInfiltrationS] = infCoolS
	coolComponents[ComponentInfiltrationL] = infCoolL
	coolComponents[ComponentVentilationS] = ventCoolS
	coolComponents[ComponentVentilationL] = ventCoolL

	// Diversity applies to cooling before distribution losses.
	diversity := 1.0
	switch {
	case len(g.Rooms) > 10:
		diversity = 0.90
	case len(g.Rooms) > 5:
		diversity = 0.95
	}

	heatFactor, coolFactor := c.ductFactors(env)

	heatTotal := heatSubtotal * heatFactor * safetyFactorHeating
	coolTotal := (coolSensSubtotal + coolLatSubtotal) * diversity * coolFactor * safetyFactorCooling

	heatComponents[ComponentDuct] = heatSubtotal * (heatFactor - 1)
	coolComponents[ComponentDuct] = (coolSensSubtotal + coolLatSubtotal) * diversity * (coolFactor - 1)

	shr := 1.0
	if coolSensSubtotal+coolLatSubtotal > 0 {
		shr = coolSensSubtotal / (coolSensSubtotal + coolLatSubtotal)
	}

	res := &Results{
		HeatingBTUH:           heatTotal,
		CoolingBTUH:           coolTotal,
		HeatingTons:           heatTotal / 12000,
		CoolingTons:           coolTotal / 12000,
		RequiredCFM:           coolTotal / 12000 * 400,
		SensibleHeatRatio:     shr,
		HeatingPerFt2:         heatTotal / totalArea,
		CoolingPerFt2:         coolTotal / totalArea,
		ZoneLoads:             zones,
		HeatingComponents:     heatComponents,
		CoolingComponents:     coolComponents,
		DuctFactorHeating:     heatFactor,
		DuctFactorCooling:     coolFactor,
		DiversityFactor:       diversity,
		InfiltrationCFMWinter: winterInf.CFM,
		InfiltrationCFMSummer: summerInf.CFM,
		ACHNatural:            winterInf.ACHNatural,
	}
	res.SizingBTUH = sizingBasis(in.Fuel, heatTotal, coolTotal)
	res.TonnageBand = TonnageBand(res.SizingBTUH)
	res.Warnings = c.validate(res, totalArea)
	return res
}

func (z *ZoneLoads) add(component string, btuh, area, u, deltaT float64) {
	if btuh == 0 {
		return
	}
	z.Components = append(z.Components, ComponentLoad{
		Component: component,
		BTUH:      btuh,
		AreaFt2:   area,
		UValue:    u,
		DeltaT:    deltaT,
	})
}

// geometry resolves exterior wall areas per room: measured segments where
// available, with the remainder of the building hull allocated by area share
// to rooms without geometry.
type geometry struct {
	roomWallArea map[int]float64
	perimeterFt  float64
}

func (c *Calculator) resolveGeometry(g *takeoff.Graph, env *envelope.Envelope, totalArea float64, stories int, height float64) geometry {
	geom := geometry{roomWallArea: make(map[int]float64, len(g.Rooms))}

	footprint := totalArea / float64(stories)
	geom.perimeterFt = g.Envelope.PerimeterFt
	if geom.perimeterFt <= 0 {
		geom.perimeterFt = 4 * math.Sqrt(footprint)
	}
	grossWall := geom.perimeterFt * height * float64(stories)

	measured := 0.0
	var unmeasuredArea float64
	for _, r := range g.Rooms {
		ext := r.ExteriorWallLengthFt() * heightOr(r.CeilingHeightFt, height)
		if ext > 0 {
			geom.roomWallArea[r.ID] = ext
			measured += ext
		} else {
			unmeasuredArea += r.AreaFt2
		}
	}

	remainder := grossWall - measured
	if remainder < 0 {
		remainder = 0
	}
	if unmeasuredArea > 0 {
		for _, r := range g.Rooms {
			if _, ok := geom.roomWallArea[r.ID]; ok {
				continue
			}
			geom.roomWallArea[r.ID] = remainder * r.AreaFt2 / unmeasuredArea
		}
	}
	return geom
}

func heightOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

// roomWindows returns the window area and effective window list for a room:
// detected windows when present, otherwise a WWR share of the exterior wall
// with unknown orientation.
func (c *Calculator) roomWindows(room takeoff.Room, extWallArea float64, env *envelope.Envelope) (float64, []takeoff.Opening) {
	if len(room.Windows) > 0 {
		area := 0.0
		for _, w := range room.Windows {
			area += w.AreaFt2()
		}
		return area, room.Windows
	}
	wwr := env.WWRPerFacade.Value
	if wwr <= 0 || extWallArea <= 0 {
		return 0, nil
	}
	area := extWallArea * wwr
	return area, []takeoff.Opening{{
		Kind:        takeoff.OpeningWindow,
		WidthFt:     area,
		HeightFt:    1,
		Orientation: takeoff.OrientUnknown,
	}}
}

// foundationLoads computes the whole-building foundation term by kind.
func (c *Calculator) foundationLoads(env *envelope.Envelope, geom geometry, totalArea, dtHeat, dtCool float64) (float64, float64) {
	floorR := env.FloorR.Value
	if floorR <= 0 {
		floorR = 19
	}
	floorU := 1 / floorR

	switch env.FoundationKind() {
	case envelope.FoundationSlab:
		const slabFFactor = 0.73 // BTU/hr-ft-F, uninsulated edge typical
		return slabFFactor * geom.perimeterFt * dtHeat, 0

	case envelope.FoundationBasementConditioned, envelope.FoundationBasementUnheated:
		const belowGradeU = 0.059 // R-17 effective soil path
		wallArea := geom.perimeterFt * 7 // 7 ft below grade exposure
		heat := belowGradeU * wallArea * dtHeat * 0.7
		if env.FoundationKind() == envelope.FoundationBasementUnheated {
			// Floor over an unheated basement sees a buffered delta-T.
			heat += floorU * totalArea * dtHeat * 0.5
		}
		return heat, 0

	case envelope.FoundationCrawlConditioned:
		return floorU * totalArea * dtHeat, floorU * totalArea * dtCool * 0.5

	default: // vented crawl, also the conservative unknown
		return floorU * totalArea * dtHeat * 0.7, floorU * totalArea * dtCool * 0.5
	}
}

func (c *Calculator) ductFactors(env *envelope.Envelope) (float64, float64) {
	if env.Ductless {
		return 1.0, 1.0
	}
	if f, ok := ductFactors[env.DuctLocation()]; ok {
		return f[0], f[1]
	}
	return 1.10, 1.12
}

func sizingBasis(fuel HeatingFuel, heating, cooling float64) float64 {
	switch fuel {
	case FuelHeatPump, FuelElectric:
		return math.Max(heating, cooling)
	default: // gas condenser sizes to the cooling load
		return cooling
	}
}

func (c *Calculator) validate(res *Results, totalArea float64) []string {
	var warnings []string
	switch {
	case res.HeatingPerFt2 < 10:
		warnings = append(warnings, fmt.Sprintf("low heating load: %.1f BTU/hr-ft2", res.HeatingPerFt2))
	case res.HeatingPerFt2 > 60:
		warnings = append(warnings, fmt.Sprintf("high heating load: %.1f BTU/hr-ft2", res.HeatingPerFt2))
	}
	switch {
	case res.CoolingPerFt2 < 8:
		warnings = append(warnings, fmt.Sprintf("low cooling load: %.1f BTU/hr-ft2", res.CoolingPerFt2))
	case res.CoolingPerFt2 > 40:
		warnings = append(warnings, fmt.Sprintf("high cooling load: %.1f BTU/hr-ft2", res.CoolingPerFt2))
	}
	if res.CoolingTons > 0 {
		sqftPerTon := totalArea / res.CoolingTons
		if sqftPerTon < 300 {
			warnings = append(warnings, fmt.Sprintf("high cooling tonnage: %.0f ft2/ton", sqftPerTon))
		} else if sqftPerTon > 800 {
			warnings = append(warnings, fmt.Sprintf("low cooling tonnage: %.0f ft2/ton", sqftPerTon))
		}
	}
	return warnings
}
