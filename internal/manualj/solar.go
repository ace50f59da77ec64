package manualj

import "heatload_backend/internal/takeoff"

// ASHRAE peak solar gain factors (BTU/hr-ft2) by orientation and latitude
// band. The latitude band is derived from the climate zone number: zones
// 1-2 are low latitude, 6+ high, the rest mid.
var solarGainFactors = map[takeoff.Orientation]map[string]float64{
	takeoff.OrientN:  {"low": 20, "mid": 25, "high": 30},
	takeoff.OrientS:  {"low": 100, "mid": 85, "high": 70},
	takeoff.OrientE:  {"low": 80, "mid": 75, "high": 70},
	takeoff.OrientW:  {"low": 80, "mid": 75, "high": 70},
	takeoff.OrientNE: {"low": 45, "mid": 50, "high": 55},
	takeoff.OrientNW: {"low": 45, "mid": 50, "high": 55},
	takeoff.OrientSE: {"low": 75, "mid": 70, "high": 65},
	takeoff.OrientSW: {"low": 75, "mid": 70, "high": 65},
}

// interiorShadingCoefficient models typical interior shades.
const interiorShadingCoefficient = 0.85

// roofCLTDAdjustment is added to the cooling delta-T for solar gain on the
// roof (medium-color roof).
const roofCLTDAdjustment = 25.0

// latitudeBand maps a zone number to a solar latitude band.
func latitudeBand(zoneNumber int) string {
	switch {
	case zoneNumber <= 2:
		return "low"
	case zoneNumber >= 6:
		return "high"
	default:
		return "mid"
	}
}

// SolarFactor returns the peak gain factor for an orientation at a latitude
// band. Unknown orientation averages the four cardinal directions.
func SolarFactor(orientation takeoff.Orientation, zoneNumber int) float64 {
	band := latitudeBand(zoneNumber)
	if factors, ok := solarGainFactors[orientation]; ok {
		return factors[band]
	}
	// Unknown: average the cardinals.
	sum := 0.0
	for _, o := range []takeoff.Orientation{takeoff.OrientN, takeoff.OrientE, takeoff.OrientS, takeoff.OrientW} {
		sum += solarGainFactors[o][band]
	}
	return sum / 4
}
