package policy

import (
	"fmt"

	"heatload_backend/internal/climate"
	"heatload_backend/internal/envelope"
)

// Clamp thresholds.
const (
	achNatFloorNew      = 0.25
	achNatFloorExisting = 0.35

	wwrFacadeMax = 0.35

	wallEffectiveRMax = 18.0
	continuousInsulationDerate = 0.8

	singleStoryAtticDuctMinIntensity = 18.0 // BTU/hr-ft2

	infiltrationCFMMaxPerFt2 = 0.5
)

// ClampRecord documents one applied clamp for the audit.
type ClampRecord struct {
	Type          string  `json:"type"`
	Reason        string  `json:"reason"`
	OriginalValue float64 `json:"original_value"`
	ClampedValue  float64 `json:"clamped_value"`
}

// CalcSnapshot carries the calculation values the sanity clamps inspect.
type CalcSnapshot struct {
	HeatingBTUH     float64
	CoolingBTUH     float64
	ACHNatural      float64
	InfiltrationCFM float64
	AreaFt2         float64
	Stories         int
}

// ApplySanityClamps runs the post-calculation engineering checks and returns
// the adjusted snapshot plus a record of every clamp applied.
func ApplySanityClamps(snap CalcSnapshot, env *envelope.Envelope) (CalcSnapshot, []ClampRecord) {
	var records []ClampRecord

	// ACH natural floor by construction era.
	floor := achNatFloorExisting
	if climate.IsNewEra(env.ConstructionEra) {
		floor = achNatFloorNew
	}
	if snap.ACHNatural > 0 && snap.ACHNatural < floor {
		records = append(records, ClampRecord{
			Type:          "achnat_floor",
			Reason:        fmt.Sprintf("natural ACH %.3f below realistic minimum %.2f", snap.ACHNatural, floor),
			OriginalValue: snap.ACHNatural,
			ClampedValue:  floor,
		})
		snap.ACHNatural = floor
	}

	// Infiltration flow ceiling.
	if snap.AreaFt2 > 0 && snap.InfiltrationCFM > infiltrationCFMMaxPerFt2*snap.AreaFt2 {
		capCFM := infiltrationCFMMaxPerFt2 * snap.AreaFt2
		records = append(records, ClampRecord{
			Type:          "infiltration_cfm_max",
			Reason:        fmt.Sprintf("infiltration %.3f CFM/ft2 exceeds maximum %.2f", snap.InfiltrationCFM/snap.AreaFt2, infiltrationCFMMaxPerFt2),
			OriginalValue: snap.InfiltrationCFM,
			ClampedValue:  capCFM,
		})
		snap.InfiltrationCFM = capCFM
	}

	// Heating intensity floor for single-story homes with attic ducts.
	if snap.AreaFt2 > 0 && snap.Stories == 1 &&
		env.DuctLocation() == envelope.DuctVentedAttic && !env.Ductless {
		intensity := snap.HeatingBTUH / snap.AreaFt2
		if intensity < singleStoryAtticDuctMinIntensity {
			raised := singleStoryAtticDuctMinIntensity * snap.AreaFt2
			records = append(records, ClampRecord{
				Type:          "heating_intensity_floor",
				Reason:        fmt.Sprintf("single-story attic ducts: %.1f BTU/hr-ft2 below minimum %.0f", intensity, singleStoryAtticDuctMinIntensity),
				OriginalValue: snap.HeatingBTUH,
				ClampedValue:  raised,
			})
			snap.HeatingBTUH = raised
		}
	}

	return snap, records
}

// WallEffectiveRLimit caps the effective R-value claimed for a wall with
// continuous insulation: R-20+5ci must not imply effective R above 18 once
// thermal bridging is accounted for.
func WallEffectiveRLimit(statedR, continuousR float64) (float64, *ClampRecord) {
	total := statedR + continuousR
	if continuousR <= 0 {
		return total, nil
	}
	effective := statedR + continuousR*continuousInsulationDerate
	if effective > wallEffectiveRMax {
		effective = wallEffectiveRMax
	}
	if effective < total {
		return effective, &ClampRecord{
			Type:          "wall_effective_r_max",
			Reason:        fmt.Sprintf("effective R limited to %.0f for thermal bridging", wallEffectiveRMax),
			OriginalValue: total,
			ClampedValue:  effective,
		}
	}
	return total, nil
}

// WWRFacadeLimit caps the per-facade window-to-wall ratio without elevation
// evidence.
func WWRFacadeLimit(wwr float64, hasElevationEvidence bool) (float64, *ClampRecord) {
	if wwr <= wwrFacadeMax || hasElevationEvidence {
		return wwr, nil
	}
	return wwrFacadeMax, &ClampRecord{
		Type:          "wwr_facade_max",
		Reason:        fmt.Sprintf("WWR %.0f%% exceeds %.0f%% without elevation evidence", wwr*100, wwrFacadeMax*100),
		OriginalValue: wwr,
		ClampedValue:  wwrFacadeMax,
	}
}
