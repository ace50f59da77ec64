// Package manualj implements the ACCA Manual J 8th Edition residential load
// calculation that produces the primary candidate for the reliability
// ensemble: per-room conduction, solar, infiltration (AIM-2), ventilation,
// internal gains, and duct losses.
package manualj

// Parallel-path effective U-values: the cavity path (insulation in series
// with films and sheathing) is parallel-combined with the framing path.

const (
	// Air films plus sheathing resistance added to the cavity R.
	wallFilmsSheathingR = 1.47
	// Ceiling assemblies see films only.
	ceilingFilmsR = 1.30

	// Wood framing resistance per inch of depth.
	framingRPerInch = 1.25

	// Framing fractions: studs at 16" OC, ceiling joists at 24" OC with
	// insulation blown over the top chords.
	wallFramingFraction16OC    = 0.23
	ceilingFramingFraction24OC = 0.07

	// Stud depths. Nominal R >= 19 implies a 2x6 wall.
	studDepth2x4In  = 3.5
	studDepth2x6In  = 5.5
	joistDepth2x10In = 9.25
)

// WallUEffective returns the effective wall U-value for a nominal cavity
// R-value, inferring the framing from the R-value: R-19 and up is a 2x6
// wall at 16" OC, below that a 2x4.
func WallUEffective(nominalR float64) float64 {
	if nominalR <= 0 {
		nominalR = 13
	}
	depth := studDepth2x4In
	if nominalR >= 19 {
		depth = studDepth2x6In
	}

	cavityPath := nominalR + wallFilmsSheathingR
	framingPath := depth*framingRPerInch + wallFilmsSheathingR

	return wallFramingFraction16OC/framingPath + (1-wallFramingFraction16OC)/cavityPath
}

// CeilingUEffective returns the effective ceiling U-value for a nominal
// attic R-value over 2x10 joists at 24" OC.
func CeilingUEffective(nominalR float64) float64 {
	if nominalR <= 0 {
		nominalR = 30
	}
	cavityPath := nominalR + ceilingFilmsR
	framingPath := joistDepth2x10In*framingRPerInch + ceilingFilmsR

	return ceilingFramingFraction24OC/framingPath + (1-ceilingFramingFraction24OC)/cavityPath
}
