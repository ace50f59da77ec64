// Package baseline provides the three deterministic load methods that anchor
// the reliability ensemble: IECC code-minimum, UA+OA, and regional intensity.
// All three are pure functions of the envelope and climate design; none
// consults vision output and none suspends.
package baseline

import (
	"math"

	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
)

// Candidate names.
const (
	CandidatePrimary  = "primary"
	CandidateCodeMin  = "code_min"
	CandidateUAOA     = "ua_oa"
	CandidateRegional = "regional"
)

// Candidate is one load estimate with its transparency breakdown.
type Candidate struct {
	Name        string             `json:"name"`
	HeatingBTUH float64            `json:"heating_btuh"`
	CoolingBTUH float64            `json:"cooling_btuh"`
	Details     map[string]float64 `json:"details"`
}

// Building is the geometry summary all baselines consume.
type Building struct {
	AreaFt2         float64
	Stories         int
	PerimeterFt     float64 // 0: estimated as a square footprint
	CeilingHeightFt float64 // 0: 9 ft
}

func (b Building) normalized() Building {
	if b.AreaFt2 <= 0 {
		b.AreaFt2 = 2000
	}
	if b.Stories < 1 {
		b.Stories = 1
	}
	footprint := b.AreaFt2 / float64(b.Stories)
	if b.PerimeterFt <= 0 {
		b.PerimeterFt = 4 * math.Sqrt(footprint)
	}
	if b.CeilingHeightFt <= 0 {
		b.CeilingHeightFt = 9
	}
	return b
}

// Indoor design conditions shared by all methods.
const (
	indoorWinterF = 70.0
	indoorSummerF = 75.0
)

// codeMinWWR is the conservative window-to-wall ratio the code-minimum
// method assumes.
const codeMinWWR = 0.18

// baselineSolarFactor is the flat peak-gain constant (BTU/hr-ft2) both
// simplified methods apply to glazing.
const baselineSolarFactor = 120.0

// CodeMin computes the IECC code-minimum floor: zone minima for the
// envelope, code-maximum leakage, and the worst plausible duct location for
// the story count.
func CodeMin(b Building, env *envelope.Envelope, d climate.Design) Candidate {
	b = b.normalized()
	zone := climate.DefaultsForZone(d.Zone)

	dtHeat := indoorWinterF - d.Winter99
	dtCool := d.Summer1 - indoorSummerF
	if dtCool < 0 {
		dtCool = 0
	}

	wallArea := b.PerimeterFt * b.CeilingHeightFt * float64(b.Stories)
	windowArea := wallArea * codeMinWWR
	netWallArea := wallArea - windowArea
	footprint := b.AreaFt2 / float64(b.Stories)

	wallU := 1.0 / zone.WallR
	ceilingU := 1.0 / zone.RoofR
	floorU := 1.0 / zone.FloorR

	wallHeat := netWallArea * wallU * dtHeat
	windowHeat := windowArea * zone.WindowU * dtHeat
	ceilingHeat := footprint * ceilingU * dtHeat

	var floorHeat float64
	if env != nil && env.FoundationKind() == envelope.FoundationSlab {
		floorHeat = b.PerimeterFt * 2.0 * dtHeat * 0.5 // edge losses only
	} else {
		floorHeat = footprint * floorU * dtHeat * 0.7 // buffered delta-T
	}

	envelopeHeat := wallHeat + windowHeat + ceilingHeat + floorHeat

	// Leakage at the code maximum is the worst legal case.
	achNat := zone.ACH50Max / 20
	volume := b.AreaFt2 * b.CeilingHeightFt
	infCFM := achNat * volume / 60
	infHeat := 1.08 * infCFM * dtHeat

	ductLoc, ductFactor := worstDuctLocation(b.Stories, env)

	heating := (envelopeHeat + infHeat) * ductFactor

	// Cooling: simplified envelope ratio plus solar, internal, and
	// infiltration terms.
	envelopeCool := envelopeHeat * 0.15
	solarCool := windowArea * zone.WindowSHGC * baselineSolarFactor
	internalCool := b.AreaFt2 * 4.0
	infCool := 1.08 * infCFM * dtCool
	cooling := envelopeCool + solarCool + internalCool + infCool

	return Candidate{
		Name:        CandidateCodeMin,
		HeatingBTUH: heating,
		CoolingBTUH: cooling,
		Details: map[string]float64{
			"wall_heating":     wallHeat,
			"window_heating":   windowHeat,
			"ceiling_heating":  ceilingHeat,
			"floor_heating":    floorHeat,
			"infiltration_cfm": infCFM,
			"infiltration":     infHeat,
			"duct_factor":      ductFactor,
			"duct_location":    ductCode(ductLoc),
			"solar_cooling":    solarCool,
			"internal_cooling": internalCool,
		},
	}
}

// worstDuctLocation returns the worst plausible duct placement unless the
// envelope says the ducts are conditioned.
func worstDuctLocation(stories int, env *envelope.Envelope) (envelope.DuctLocation, float64) {
	if env != nil && env.DuctLocation() == envelope.DuctConditioned {
		return envelope.DuctConditioned, 1.0
	}
	if stories == 1 {
		return envelope.DuctVentedAttic, 1.25
	}
	return envelope.DuctCrawl, 1.15
}

func ductCode(loc envelope.DuctLocation) float64 {
	switch loc {
	case envelope.DuctConditioned:
		return 0
	case envelope.DuctBasement:
		return 1
	case envelope.DuctCrawl:
		return 2
	case envelope.DuctVentedAttic:
		return 3
	}
	return -1
}

// bridgingPenalty derates nominal R-values for framing paths in the UA
// calculation.
const bridgingPenalty = 0.85

// UAOA computes the deterministic UA + outdoor-air method: heating is
// UA * dT + 1.08 * CFM * dT, cooling applies a thermal-mass derate to the
// envelope term plus solar, internal, and OA terms.
func UAOA(b Building, env *envelope.Envelope, d climate.Design) Candidate {
	b = b.normalized()
	zone := climate.DefaultsForZone(d.Zone)

	dtHeat := indoorWinterF - d.Winter99
	dtCool := d.Summer1 - indoorSummerF
	if dtCool < 0 {
		dtCool = 0
	}

	wallR := zone.WallR
	roofR := zone.RoofR
	floorR := zone.FloorR
	windowU := zone.WindowU
	shgc := zone.WindowSHGC
	ach50 := zone.ACH50Max
	wwr := codeMinWWR
	if env != nil {
		wallR = env.WallR.Value
		roofR = env.CeilingR.Value
		floorR = env.FloorR.Value
		windowU = env.WindowU.Value
		shgc = env.WindowSHGC.Value
		ach50 = env.ACH50.Value
		if env.WWRPerFacade.Value > 0 {
			wwr = env.WWRPerFacade.Value
		}
	}

	wallArea := b.PerimeterFt * b.CeilingHeightFt * float64(b.Stories)
	windowArea := wallArea * wwr
	netWallArea := wallArea - windowArea
	footprint := b.AreaFt2 / float64(b.Stories)

	// Effective U-values include the parallel-path framing penalty.
	uaWalls := netWallArea / (wallR * bridgingPenalty)
	uaWindows := windowArea * windowU
	uaRoof := footprint / (roofR * bridgingPenalty)
	uaFloor := footprint / floorR * 0.7 // ground coupling

	totalUA := uaWalls + uaWindows + uaRoof + uaFloor
	envelopeHeat := totalUA * dtHeat

	achNat := achNaturalConservative(ach50, b.Stories)
	volume := b.AreaFt2 * b.CeilingHeightFt
	oaCFM := achNat * volume / 60
	oaHeat := 1.08 * oaCFM * dtHeat

	heating := envelopeHeat + oaHeat

	envelopeCool := totalUA * dtCool * 0.7 // thermal mass effect
	solarCool := windowArea * shgc * baselineSolarFactor
	internalCool := b.AreaFt2 * 4.0
	oaCool := 1.08 * oaCFM * dtCool
	cooling := envelopeCool + solarCool + internalCool + oaCool

	return Candidate{
		Name:        CandidateUAOA,
		HeatingBTUH: heating,
		CoolingBTUH: cooling,
		Details: map[string]float64{
			"ua_total":         totalUA,
			"ua_walls":         uaWalls,
			"ua_windows":       uaWindows,
			"ua_roof":          uaRoof,
			"ua_floor":         uaFloor,
			"oa_cfm":           oaCFM,
			"ach_natural":      achNat,
			"envelope_heating": envelopeHeat,
			"oa_heating":       oaHeat,
			"solar_cooling":    solarCool,
			"internal_cooling": internalCool,
		},
	}
}

// achNaturalConservative converts ACH50 to natural ACH with a wind-exposure
// factor for single-story homes and a floor for plausible buildings.
func achNaturalConservative(ach50 float64, stories int) float64 {
	windFactor := 1.0
	if stories == 1 {
		windFactor = 1.2
	}
	achNat := ach50 / 20 * windFactor
	if achNat < 0.3 {
		achNat = 0.3
	}
	return achNat
}

// intensityBand is a BTU/hr-ft2 range.
type intensityBand struct{ lo, hi float64 }

func (ib intensityBand) mid() float64 { return (ib.lo + ib.hi) / 2 }

type regionalConfig struct {
	heating intensityBand
	cooling intensityBand
}

// regionalIntensity is keyed by zone number, then by configuration:
// single/multi story x attic/other ducts.
var regionalIntensity = map[int]map[string]regionalConfig{
	1: {
		"single_attic": {heating: intensityBand{5, 10}, cooling: intensityBand{16, 24}},
		"single_other": {heating: intensityBand{4, 8}, cooling: intensityBand{15, 22}},
		"multi_attic":  {heating: intensityBand{5, 9}, cooling: intensityBand{15, 22}},
		"multi_other":  {heating: intensityBand{4, 7}, cooling: intensityBand{14, 20}},
	},
	2: {
		"single_attic": {heating: intensityBand{8, 16}, cooling: intensityBand{15, 22}},
		"single_other": {heating: intensityBand{7, 13}, cooling: intensityBand{14, 20}},
		"multi_attic":  {heating: intensityBand{7, 14}, cooling: intensityBand{14, 20}},
		"multi_other":  {heating: intensityBand{6, 12}, cooling: intensityBand{13, 19}},
	},
	3: {
		"single_attic": {heating: intensityBand{12, 22}, cooling: intensityBand{12, 18}},
		"single_other": {heating: intensityBand{10, 18}, cooling: intensityBand{11, 17}},
		"multi_attic":  {heating: intensityBand{11, 20}, cooling: intensityBand{11, 17}},
		"multi_other":  {heating: intensityBand{9, 16}, cooling: intensityBand{10, 16}},
	},
	4: {
		"single_attic": {heating: intensityBand{16, 28}, cooling: intensityBand{12, 18}},
		"single_other": {heating: intensityBand{13, 23}, cooling: intensityBand{11, 17}},
		"multi_attic":  {heating: intensityBand{14, 25}, cooling: intensityBand{11, 17}},
		"multi_other":  {heating: intensityBand{12, 20}, cooling: intensityBand{10, 16}},
	},
	5: {
		"single_attic": {heating: intensityBand{18, 30}, cooling: intensityBand{12, 18}},
		"single_other": {heating: intensityBand{15, 25}, cooling: intensityBand{12, 18}},
		"multi_attic":  {heating: intensityBand{16, 26}, cooling: intensityBand{12, 18}},
		"multi_other":  {heating: intensityBand{14, 22}, cooling: intensityBand{12, 18}},
	},
	6: {
		"single_attic": {heating: intensityBand{20, 35}, cooling: intensityBand{12, 18}},
		"single_other": {heating: intensityBand{17, 28}, cooling: intensityBand{12, 18}},
		"multi_attic":  {heating: intensityBand{18, 30}, cooling: intensityBand{12, 18}},
		"multi_other":  {heating: intensityBand{15, 25}, cooling: intensityBand{12, 18}},
	},
	7: {
		"single_attic": {heating: intensityBand{24, 40}, cooling: intensityBand{8, 14}},
		"single_other": {heating: intensityBand{20, 34}, cooling: intensityBand{8, 14}},
		"multi_attic":  {heating: intensityBand{22, 36}, cooling: intensityBand{8, 14}},
		"multi_other":  {heating: intensityBand{18, 30}, cooling: intensityBand{8, 14}},
	},
	8: {
		"single_attic": {heating: intensityBand{30, 50}, cooling: intensityBand{4, 10}},
		"single_other": {heating: intensityBand{26, 42}, cooling: intensityBand{4, 10}},
		"multi_attic":  {heating: intensityBand{28, 45}, cooling: intensityBand{4, 10}},
		"multi_other":  {heating: intensityBand{24, 38}, cooling: intensityBand{4, 10}},
	},
}

// Regional computes the regional-intensity heuristic: the midpoint of a
// closed BTU/hr-ft2 band keyed by zone, story count, and duct placement.
func Regional(b Building, env *envelope.Envelope, d climate.Design) Candidate {
	b = b.normalized()

	configKey := "single_other"
	story := "single"
	if b.Stories > 1 {
		story = "multi"
	}
	duct := "other"
	if env != nil && env.DuctLocation() == envelope.DuctVentedAttic {
		duct = "attic"
	}
	configKey = story + "_" + duct

	zoneBands, ok := regionalIntensity[d.ZoneNumber()]
	if !ok {
		zoneBands = regionalIntensity[5]
	}
	cfg, ok := zoneBands[configKey]
	if !ok {
		cfg = zoneBands["single_attic"]
	}

	return Candidate{
		Name:        CandidateRegional,
		HeatingBTUH: cfg.heating.mid() * b.AreaFt2,
		CoolingBTUH: cfg.cooling.mid() * b.AreaFt2,
		Details: map[string]float64{
			"heating_intensity": cfg.heating.mid(),
			"cooling_intensity": cfg.cooling.mid(),
			"heating_band_lo":   cfg.heating.lo,
			"heating_band_hi":   cfg.heating.hi,
			"cooling_band_lo":   cfg.cooling.lo,
			"cooling_band_hi":   cfg.cooling.hi,
		},
	}
}
