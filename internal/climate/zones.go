package climate

// ZoneDefaults carries the IECC envelope defaults and Manual J factors for a
// climate zone. Values follow 2021 IECC Table R402.1.3 and ACCA Manual J
// 8th Edition.
type ZoneDefaults struct {
	WallR           float64
	RoofR           float64
	FloorR          float64
	WindowU         float64
	WindowSHGC      float64
	InfiltrationACH float64 // natural ACH, typical construction
	ACH50Max        float64 // code maximum blower-door leakage

	SolarGainFactor float64 // peak BTU/hr-ft2 through glazing
	RoofSolarFactor float64

	DuctLossHeating float64
	DuctLossCooling float64

	SafetyFactorHeating float64
	SafetyFactorCooling float64

	HeatingDominated bool
	CoolingDominated bool
}

// zoneDefaultsTable is keyed by the numeric zone (1-8).
var zoneDefaultsTable = map[int]ZoneDefaults{
	1: {
		WallR: 13, RoofR: 30, FloorR: 13,
		WindowU: 0.40, WindowSHGC: 0.25,
		InfiltrationACH: 0.25, ACH50Max: 5.0,
		SolarGainFactor: 50, RoofSolarFactor: 40,
		DuctLossHeating: 1.05, DuctLossCooling: 1.15,
		SafetyFactorHeating: 1.00, SafetyFactorCooling: 1.05,
		CoolingDominated: true,
	},
	2: {
		WallR: 13, RoofR: 30, FloorR: 13,
		WindowU: 0.40, WindowSHGC: 0.25,
		InfiltrationACH: 0.25, ACH50Max: 5.0,
		SolarGainFactor: 45, RoofSolarFactor: 35,
		DuctLossHeating: 1.05, DuctLossCooling: 1.12,
		SafetyFactorHeating: 1.00, SafetyFactorCooling: 1.05,
		CoolingDominated: true,
	},
	3: {
		WallR: 20, RoofR: 30, FloorR: 19,
		WindowU: 0.32, WindowSHGC: 0.25,
		InfiltrationACH: 0.15, ACH50Max: 3.0,
		SolarGainFactor: 35, RoofSolarFactor: 30,
		DuctLossHeating: 1.08, DuctLossCooling: 1.10,
		SafetyFactorHeating: 1.05, SafetyFactorCooling: 1.00,
	},
	4: {
		WallR: 20, RoofR: 49, FloorR: 19,
		WindowU: 0.32, WindowSHGC: 0.40,
		InfiltrationACH: 0.15, ACH50Max: 3.0,
		SolarGainFactor: 30, RoofSolarFactor: 25,
		DuctLossHeating: 1.10, DuctLossCooling: 1.08,
		SafetyFactorHeating: 1.08, SafetyFactorCooling: 1.00,
	},
	5: {
		WallR: 20, RoofR: 49, FloorR: 30,
		WindowU: 0.30, WindowSHGC: 0.40,
		InfiltrationACH: 0.15, ACH50Max: 3.0,
		SolarGainFactor: 30, RoofSolarFactor: 25,
		DuctLossHeating: 1.12, DuctLossCooling: 1.05,
		SafetyFactorHeating: 1.10, SafetyFactorCooling: 1.00,
		HeatingDominated: true,
	},
	6: {
		WallR: 20, RoofR: 49, FloorR: 30,
		WindowU: 0.30, WindowSHGC: 0.40,
		InfiltrationACH: 0.15, ACH50Max: 3.0,
		SolarGainFactor: 25, RoofSolarFactor: 20,
		DuctLossHeating: 1.15, DuctLossCooling: 1.05,
		SafetyFactorHeating: 1.15, SafetyFactorCooling: 1.00,
		HeatingDominated: true,
	},
	7: {
		WallR: 20, RoofR: 60, FloorR: 38,
		WindowU: 0.30, WindowSHGC: 0.45,
		InfiltrationACH: 0.15, ACH50Max: 3.0,
		SolarGainFactor: 20, RoofSolarFactor: 15,
		DuctLossHeating: 1.18, DuctLossCooling: 1.00,
		SafetyFactorHeating: 1.20, SafetyFactorCooling: 1.00,
		HeatingDominated: true,
	},
	8: {
		WallR: 20, RoofR: 60, FloorR: 38,
		WindowU: 0.30, WindowSHGC: 0.50,
		InfiltrationACH: 0.15, ACH50Max: 3.0,
		SolarGainFactor: 15, RoofSolarFactor: 10,
		DuctLossHeating: 1.20, DuctLossCooling: 1.00,
		SafetyFactorHeating: 1.25, SafetyFactorCooling: 1.00,
		HeatingDominated: true,
	},
}

// DefaultsForZone returns the IECC defaults for a zone code such as "5B".
// Unknown zones fall back to zone 4 (mixed).
func DefaultsForZone(zone string) ZoneDefaults {
	if d, ok := zoneDefaultsTable[zoneNumber(zone)]; ok {
		return d
	}
	return zoneDefaultsTable[4]
}

// EraDefaults carries construction-era insulation overrides. When the
// building era is known it takes precedence over zone defaults.
type EraDefaults struct {
	WallR           float64
	RoofR           float64
	FloorR          float64
	WindowU         float64
	InfiltrationACH float64
}

var eraDefaultsTable = map[string]EraDefaults{
	"1960s": {WallR: 11, RoofR: 19, FloorR: 11, WindowU: 1.00, InfiltrationACH: 0.70},
	"1970s": {WallR: 11, RoofR: 19, FloorR: 13, WindowU: 0.80, InfiltrationACH: 0.60},
	"1980s": {WallR: 13, RoofR: 30, FloorR: 19, WindowU: 0.50, InfiltrationACH: 0.50},
	"1990s": {WallR: 13, RoofR: 30, FloorR: 19, WindowU: 0.45, InfiltrationACH: 0.40},
	"2000s": {WallR: 19, RoofR: 38, FloorR: 25, WindowU: 0.35, InfiltrationACH: 0.35},
	"2010s": {WallR: 20, RoofR: 49, FloorR: 30, WindowU: 0.30, InfiltrationACH: 0.25},
	"2020s": {WallR: 21, RoofR: 60, FloorR: 30, WindowU: 0.25, InfiltrationACH: 0.15},
	// New construction sizes for code minimum, not high-performance builds:
	// the cheapest legal envelope is the worst case for equipment sizing.
	"new": {WallR: 20, RoofR: 49, FloorR: 30, WindowU: 0.30, InfiltrationACH: 0.20},
}

// DefaultsForEra returns era overrides for a normalized era string
// ("1990s", "2010s", "new") or a 4-digit year. ok is false when the era is
// unknown or empty.
func DefaultsForEra(era string) (EraDefaults, bool) {
	if era == "" {
		return EraDefaults{}, false
	}
	if d, ok := eraDefaultsTable[era]; ok {
		return d, true
	}
	if len(era) == 4 {
		year := 0
		for _, c := range era {
			if c < '0' || c > '9' {
				return EraDefaults{}, false
			}
			year = year*10 + int(c-'0')
		}
		switch {
		case year >= 2020:
			return eraDefaultsTable["new"], true
		case year >= 2010:
			return eraDefaultsTable["2010s"], true
		case year >= 2000:
			return eraDefaultsTable["2000s"], true
		case year >= 1990:
			return eraDefaultsTable["1990s"], true
		case year >= 1980:
			return eraDefaultsTable["1980s"], true
		case year >= 1970:
			return eraDefaultsTable["1970s"], true
		default:
			return eraDefaultsTable["1960s"], true
		}
	}
	return EraDefaults{}, false
}

// IsNewEra reports whether an era string means new (post-2000) construction
// for the purposes of conservative leakage defaults.
func IsNewEra(era string) bool {
	switch era {
	case "new", "2000s", "2010s", "2020s":
		return true
	}
	if len(era) == 4 {
		return era >= "2000"
	}
	return false
}

// IndoorHumidityRatio is the assumed indoor condition (75F at 50% RH).
const IndoorHumidityRatio = 0.0095
